// Package fakeserver is an in-memory implementation of the workspace artifacts
// REST surface. It is used by tests and by the CLI's local mode.
package fakeserver

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/fivetwenty-io/artifacts-client/internal/constants"
)

// Mode selects how mutations are answered.
type Mode string

const (
	// ModeSync applies mutations immediately and answers 200/201/204.
	ModeSync Mode = "sync"
	// ModeAsync answers 202 with an Azure-AsyncOperation status monitor.
	ModeAsync Mode = "async"
	// ModeLocation answers 202 with a Location monitor.
	ModeLocation Mode = "location"
	// ModeAccepted answers 202 without any monitor header.
	ModeAccepted Mode = "accepted"
)

const skipTokenParam = "$skipToken"

// Options configures a Server.
type Options struct {
	// PageSize bounds list pages. Zero returns everything on one page.
	PageSize int
	// Mode selects the mutation response style.
	Mode Mode
	// PollsBeforeDone is the number of in-progress status responses an
	// operation reports before it reaches a terminal state.
	PollsBeforeDone int
	// FailOperations makes every asynchronous operation end in Failed.
	FailOperations bool
	// RetryAfter is sent on monitor responses when set.
	RetryAfter string
}

// RecordedRequest is one request observed by the server.
type RecordedRequest struct {
	Method string
	Path   string
	Query  string
}

type item struct {
	ID         string          `json:"id"`
	Name       string          `json:"name"`
	Type       string          `json:"type,omitempty"`
	Etag       string          `json:"etag"`
	Properties json.RawMessage `json:"properties,omitempty"`
}

type operation struct {
	polls  int
	done   bool
	failed bool
	apply  func()
	result *item
}

type cloudError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Server is the fake artifacts service.
type Server struct {
	mu          sync.Mutex
	options     Options
	router      *mux.Router
	collections map[string]map[string]*item
	operations  map[string]*operation
	requests    []RecordedRequest
}

// New creates a Server.
func New(options Options) *Server {
	if options.Mode == "" {
		options.Mode = ModeSync
	}

	server := &Server{
		options:     options,
		collections: make(map[string]map[string]*item),
		operations:  make(map[string]*operation),
	}

	router := mux.NewRouter()
	router.Use(server.record, requireAPIVersion)

	router.HandleFunc("/operations/{id}", server.operationStatus).Methods(http.MethodGet)
	router.HandleFunc("/operations/{id}/result", server.operationResult).Methods(http.MethodGet)

	router.HandleFunc("/{collection}", server.list(false)).Methods(http.MethodGet)
	router.HandleFunc("/{collection}/summary", server.list(true)).Methods(http.MethodGet)
	router.HandleFunc("/{collection}/{name}", server.get).Methods(http.MethodGet)
	router.HandleFunc("/{collection}/{name}", server.put).Methods(http.MethodPut)
	router.HandleFunc("/{collection}/{name}", server.delete).Methods(http.MethodDelete)
	router.HandleFunc("/{collection}/{name}/rename", server.rename).Methods(http.MethodPost)

	server.router = router

	return server
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Requests returns a copy of the requests observed so far.
func (s *Server) Requests() []RecordedRequest {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]RecordedRequest, len(s.requests))
	copy(out, s.requests)

	return out
}

// RequestCount returns how many observed requests used method.
func (s *Server) RequestCount(method string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	count := 0

	for _, req := range s.requests {
		if req.Method == method {
			count++
		}
	}

	return count
}

// Seed stores raw properties under name without going through the API.
func (s *Server) Seed(collection, name string, properties json.RawMessage) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored := s.store(collection, name, properties)

	return stored.Etag
}

func (s *Server) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.requests = append(s.requests, RecordedRequest{
			Method: r.Method,
			Path:   r.URL.Path,
			Query:  r.URL.RawQuery,
		})
		s.mu.Unlock()

		next.ServeHTTP(w, r)
	})
}

func requireAPIVersion(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get(constants.APIVersionParam) == "" {
			writeError(w, http.StatusBadRequest, "MissingApiVersionParameter", "the api-version query parameter is required")

			return
		}

		next.ServeHTTP(w, r)
	})
}

func (s *Server) list(summary bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		collection := mux.Vars(r)["collection"]

		start := 0

		if token := r.URL.Query().Get(skipTokenParam); token != "" {
			parsed, err := strconv.Atoi(token)
			if err != nil || parsed < 0 {
				writeError(w, http.StatusBadRequest, "InvalidSkipToken", "invalid continuation token")

				return
			}

			start = parsed
		}

		s.mu.Lock()
		items := s.sorted(collection)
		s.mu.Unlock()

		if start > len(items) {
			start = len(items)
		}

		end := len(items)
		if s.options.PageSize > 0 && start+s.options.PageSize < end {
			end = start + s.options.PageSize
		}

		page := make([]item, 0, end-start)

		for _, stored := range items[start:end] {
			entry := *stored
			if summary {
				entry.Properties = nil
			}

			page = append(page, entry)
		}

		body := map[string]interface{}{"value": page}

		if end < len(items) {
			next := *r.URL
			next.Scheme = scheme(r)
			next.Host = r.Host

			query := next.Query()
			query.Set(skipTokenParam, strconv.Itoa(end))
			next.RawQuery = query.Encode()

			body["nextLink"] = next.String()
		}

		writeJSON(w, http.StatusOK, body)
	}
}

func (s *Server) get(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	s.mu.Lock()
	stored, ok := s.lookup(vars["collection"], vars["name"])

	var entry item
	if ok {
		entry = *stored
	}
	s.mu.Unlock()

	if !ok {
		writeNotFound(w, vars["name"])

		return
	}

	w.Header().Set(constants.HeaderETag, entry.Etag)

	if match := r.Header.Get(constants.HeaderIfNoneMatch); match != "" && match == entry.Etag {
		w.WriteHeader(http.StatusNotModified)

		return
	}

	writeJSON(w, http.StatusOK, entry)
}

func (s *Server) put(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	collection, name := vars["collection"], vars["name"]

	var payload struct {
		Properties json.RawMessage `json:"properties"`
	}

	err := json.NewDecoder(r.Body).Decode(&payload)
	if err != nil || len(payload.Properties) == 0 {
		writeError(w, http.StatusBadRequest, "InvalidRequestContent", "the request body must carry properties")

		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	existing, exists := s.lookup(collection, name)

	if match := r.Header.Get(constants.HeaderIfMatch); match != "" && (!exists || match != existing.Etag) {
		writeError(w, http.StatusPreconditionFailed, "PreconditionFailed", "the etag does not match the current artifact")

		return
	}

	if s.options.Mode == ModeSync || s.options.Mode == ModeAccepted {
		stored := s.store(collection, name, payload.Properties)

		if s.options.Mode == ModeAccepted {
			w.WriteHeader(http.StatusAccepted)

			return
		}

		status := http.StatusOK
		if !exists {
			status = http.StatusCreated
		}

		w.Header().Set(constants.HeaderETag, stored.Etag)
		writeJSON(w, status, stored)

		return
	}

	op := &operation{}
	op.apply = func() {
		op.result = s.store(collection, name, payload.Properties)
	}

	s.accept(w, r, op)
}

func (s *Server) delete(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	collection, name := vars["collection"], vars["name"]

	s.mu.Lock()
	defer s.mu.Unlock()

	_, exists := s.lookup(collection, name)

	switch s.options.Mode {
	case ModeSync:
		delete(s.collections[collection], name)

		if exists {
			w.WriteHeader(http.StatusOK)

			return
		}

		w.WriteHeader(http.StatusNoContent)

	case ModeAccepted:
		delete(s.collections[collection], name)
		w.WriteHeader(http.StatusAccepted)

	default:
		s.accept(w, r, &operation{apply: func() {
			delete(s.collections[collection], name)
		}})
	}
}

func (s *Server) rename(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	collection, name := vars["collection"], vars["name"]

	var payload struct {
		NewName string `json:"newName"`
	}

	err := json.NewDecoder(r.Body).Decode(&payload)
	if err != nil || payload.NewName == "" {
		writeError(w, http.StatusBadRequest, "InvalidRequestContent", "newName is required")

		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.lookup(collection, name)
	if !ok {
		writeNotFound(w, name)

		return
	}

	if _, taken := s.lookup(collection, payload.NewName); taken {
		writeError(w, http.StatusConflict, "ArtifactAlreadyExists", fmt.Sprintf("artifact %q already exists", payload.NewName))

		return
	}

	apply := func() {
		delete(s.collections[collection], name)

		renamed := s.store(collection, payload.NewName, stored.Properties)
		renamed.ID = stored.ID
	}

	switch s.options.Mode {
	case ModeSync:
		apply()
		w.WriteHeader(http.StatusOK)

	case ModeAccepted:
		apply()
		w.WriteHeader(http.StatusAccepted)

	default:
		s.accept(w, r, &operation{apply: apply})
	}
}

func (s *Server) operationStatus(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	op, ok := s.operations[mux.Vars(r)["id"]]
	if !ok {
		writeNotFound(w, mux.Vars(r)["id"])

		return
	}

	s.advance(op)
	s.retryAfter(w)

	switch {
	case !op.done:
		writeJSON(w, http.StatusAccepted, map[string]string{"status": "InProgress"})
	case op.failed:
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"status": "Failed",
			"error":  cloudError{Code: "OperationFailed", Message: "the operation failed"},
		})
	default:
		writeJSON(w, http.StatusOK, map[string]string{"status": "Succeeded"})
	}
}

func (s *Server) operationResult(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	op, ok := s.operations[mux.Vars(r)["id"]]
	if !ok {
		writeNotFound(w, mux.Vars(r)["id"])

		return
	}

	s.advance(op)

	switch {
	case !op.done:
		s.retryAfter(w)
		w.WriteHeader(http.StatusAccepted)
	case op.failed:
		writeError(w, http.StatusBadRequest, "OperationFailed", "the operation failed")
	case op.result != nil:
		writeJSON(w, http.StatusOK, op.result)
	default:
		w.WriteHeader(http.StatusNoContent)
	}
}

// accept registers op and answers 202 with the configured monitor header.
// The caller holds s.mu.
func (s *Server) accept(w http.ResponseWriter, r *http.Request, op *operation) {
	id := uuid.NewString()
	s.operations[id] = op

	base := scheme(r) + "://" + r.Host + "/operations/" + id
	query := "?" + constants.APIVersionParam + "=" + r.URL.Query().Get(constants.APIVersionParam)

	if s.options.Mode == ModeLocation {
		w.Header().Set(constants.HeaderLocation, base+"/result"+query)
	} else {
		w.Header().Set(constants.HeaderAsyncOperation, base+query)
	}

	s.retryAfter(w)
	w.WriteHeader(http.StatusAccepted)
}

// advance counts one poll and finishes op once enough polls were observed.
func (s *Server) advance(op *operation) {
	if op.done {
		return
	}

	op.polls++
	if op.polls <= s.options.PollsBeforeDone {
		return
	}

	op.done = true

	if s.options.FailOperations {
		op.failed = true

		return
	}

	if op.apply != nil {
		op.apply()
	}
}

func (s *Server) retryAfter(w http.ResponseWriter) {
	if s.options.RetryAfter != "" {
		w.Header().Set(constants.HeaderRetryAfter, s.options.RetryAfter)
	}
}

// store writes an artifact with a fresh etag. The caller holds s.mu.
func (s *Server) store(collection, name string, properties json.RawMessage) *item {
	items, ok := s.collections[collection]
	if !ok {
		items = make(map[string]*item)
		s.collections[collection] = items
	}

	id := uuid.NewString()
	if existing, found := items[name]; found {
		id = existing.ID
	}

	stored := &item{
		ID:         id,
		Name:       name,
		Type:       collection,
		Etag:       uuid.NewString(),
		Properties: properties,
	}
	items[name] = stored

	return stored
}

func (s *Server) lookup(collection, name string) (*item, bool) {
	stored, ok := s.collections[collection][name]

	return stored, ok
}

func (s *Server) sorted(collection string) []*item {
	items := make([]*item, 0, len(s.collections[collection]))
	for _, stored := range s.collections[collection] {
		items = append(items, stored)
	}

	sort.Slice(items, func(i, j int) bool {
		return items[i].Name < items[j].Name
	})

	return items
}

func scheme(r *http.Request) string {
	if r.TLS != nil {
		return "https"
	}

	return "http"
}

func writeNotFound(w http.ResponseWriter, name string) {
	writeError(w, http.StatusNotFound, "ArtifactNotFound", fmt.Sprintf("artifact %q was not found", name))
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, map[string]cloudError{"error": {Code: code, Message: message}})
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	_ = json.NewEncoder(w).Encode(body)
}
