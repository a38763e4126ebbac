package client

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/fivetwenty-io/artifacts-client/pkg/artifacts"
)

const testPollFrequency = 5 * time.Millisecond

// recordedRequest is what the test server saw.
type recordedRequest struct {
	Method string
	Path   string
	Query  string
	Header http.Header
	Body   string
}

// requestLog collects requests received by a test server.
type requestLog struct {
	mu       sync.Mutex
	requests []recordedRequest
}

func (l *requestLog) add(r recordedRequest) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.requests = append(l.requests, r)
}

func (l *requestLog) all() []recordedRequest {
	l.mu.Lock()
	defer l.mu.Unlock()

	return append([]recordedRequest(nil), l.requests...)
}

func (l *requestLog) count() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	return len(l.requests)
}

// newTestClient starts handler behind an httptest server and returns a
// client pointed at it with fast polling.
func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, *requestLog) {
	t.Helper()

	log := &requestLog{}

	server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		body, _ := io.ReadAll(request.Body)

		log.add(recordedRequest{
			Method: request.Method,
			Path:   request.URL.Path,
			Query:  request.URL.RawQuery,
			Header: request.Header.Clone(),
			Body:   string(body),
		})

		handler(writer, request)
	}))
	t.Cleanup(server.Close)

	client, err := New(context.Background(), &artifacts.Config{
		Endpoint:     server.URL,
		AccessToken:  "test-token",
		PollInterval: testPollFrequency,
	})
	require.NoError(t, err)

	return client, log
}

func writeJSON(writer http.ResponseWriter, status int, body string) {
	writer.Header().Set("Content-Type", "application/json")
	writer.WriteHeader(status)
	_, _ = writer.Write([]byte(body))
}

func testNotebook(name string) artifacts.NotebookResource {
	return artifacts.NotebookResource{
		Resource: artifacts.Resource{Name: name},
		Properties: artifacts.Notebook{
			Description: "test notebook",
			NbFormat:    4,
			Cells: []artifacts.NotebookCell{
				{CellType: "code", Source: []string{"print(1)"}},
			},
		},
	}
}
