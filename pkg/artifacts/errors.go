package artifacts

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// Static errors for err113 compliance.
var (
	ErrNotFound           = errors.New("resource not found")
	ErrPreconditionFailed = errors.New("precondition failed")
	ErrConflict           = errors.New("conflict")
	ErrSchemaMismatch     = errors.New("schema mismatch")
	ErrTransport          = errors.New("transport error")
	ErrOperationFailed    = errors.New("operation failed")
	ErrOperationCanceled  = errors.New("operation canceled")
	ErrUnknownServer      = errors.New("unknown server error")
	ErrInvalidArgument    = errors.New("invalid argument")
)

// Pagination and polling errors.
var (
	ErrNoMorePages        = errors.New("no more pages")
	ErrPagerBusy          = errors.New("pager is already being iterated")
	ErrPollerDone         = errors.New("operation already reached a terminal state")
	ErrPollerNotDone      = errors.New("operation has not reached a terminal state")
	ErrInvalidResumeToken = errors.New("invalid resume token")
)

// Configuration errors.
var (
	ErrConfigRequired         = errors.New("config is required")
	ErrEndpointRequired       = errors.New("endpoint is required")
	ErrHandleNotFound         = errors.New("operation handle not found")
	ErrNATSConfigRequired     = errors.New("NATS configuration required for NATS handle store")
	ErrUnsupportedHandleStore = errors.New("unsupported handle store type")
)

// CloudErrorBody is the error payload returned by the service.
type CloudErrorBody struct {
	Code    string           `json:"code"`
	Message string           `json:"message"`
	Target  string           `json:"target,omitempty"`
	Details []CloudErrorBody `json:"details,omitempty"`
}

// Error implements the error interface.
func (b CloudErrorBody) Error() string {
	switch {
	case b.Code == "" && b.Message == "":
		return "no error details available"
	case b.Code == "":
		return b.Message
	case b.Message == "":
		return b.Code
	}

	return fmt.Sprintf("%s: %s", b.Code, b.Message)
}

// ParseCloudError parses an error body in either the nested
// {"error": {...}} shape or the flat {"code", "message"} shape.
func ParseCloudError(data []byte) (CloudErrorBody, error) {
	var envelope struct {
		Error *CloudErrorBody `json:"error"`
		CloudErrorBody
	}

	if len(data) == 0 {
		return CloudErrorBody{}, nil
	}

	err := json.Unmarshal(data, &envelope)
	if err != nil {
		return CloudErrorBody{}, fmt.Errorf("%w: parsing error body: %w", ErrSchemaMismatch, err)
	}

	if envelope.Error != nil {
		return *envelope.Error, nil
	}

	return envelope.CloudErrorBody, nil
}

// ResponseError is returned when the service answers with a status code that
// the operation does not accept.
type ResponseError struct {
	StatusCode int
	Method     string
	URL        string
	Body       CloudErrorBody
}

// Error implements the error interface.
func (e *ResponseError) Error() string {
	return fmt.Sprintf("%s %s: unexpected status %d: %s", e.Method, e.URL, e.StatusCode, e.Body.Error())
}

// Unwrap maps the status code onto the error taxonomy so callers can use errors.Is.
func (e *ResponseError) Unwrap() error {
	switch e.StatusCode {
	case http.StatusNotFound:
		return ErrNotFound
	case http.StatusConflict:
		return ErrConflict
	case http.StatusPreconditionFailed:
		return ErrPreconditionFailed
	default:
		return ErrUnknownServer
	}
}

// OperationError reports a long-running operation that ended in Failed or Canceled.
type OperationError struct {
	State OperationState
	Body  CloudErrorBody
}

// Error implements the error interface.
func (e *OperationError) Error() string {
	return fmt.Sprintf("operation %s: %s", e.State, e.Body.Error())
}

// Unwrap returns the sentinels matching the terminal state.
func (e *OperationError) Unwrap() []error {
	if e.State == OperationStateCanceled {
		return []error{ErrOperationFailed, ErrOperationCanceled}
	}

	return []error{ErrOperationFailed}
}

// IsNotFound checks if the error is a not found error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsConflict checks if the error is a conflict error.
func IsConflict(err error) bool {
	return errors.Is(err, ErrConflict)
}

// IsPreconditionFailed checks if the error is a failed etag precondition.
func IsPreconditionFailed(err error) bool {
	return errors.Is(err, ErrPreconditionFailed)
}
