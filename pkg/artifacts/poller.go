package artifacts

import (
	"context"
	"time"
)

// OperationState is the client-side view of a long-running operation.
type OperationState string

// Operation states.
const (
	OperationStateAccepted   OperationState = "Accepted"
	OperationStateInProgress OperationState = "InProgress"
	OperationStateSucceeded  OperationState = "Succeeded"
	OperationStateFailed     OperationState = "Failed"
	OperationStateCanceled   OperationState = "Canceled"
)

// IsTerminal reports whether no further polling can change the state.
func (s OperationState) IsTerminal() bool {
	switch s {
	case OperationStateSucceeded, OperationStateFailed, OperationStateCanceled:
		return true
	default:
		return false
	}
}

// FinalStateVia selects where the final payload of a body-returning
// operation is read once the status monitor reports success.
type FinalStateVia string

// Final state sources.
const (
	// FinalStateViaDefault picks OriginalURI for PUT and Location otherwise.
	FinalStateViaDefault FinalStateVia = ""
	// FinalStateViaAsyncOperation uses the async operation monitor's last body.
	FinalStateViaAsyncOperation FinalStateVia = "azure-async-operation"
	// FinalStateViaLocation issues a GET against the Location header.
	FinalStateViaLocation FinalStateVia = "location"
	// FinalStateViaOriginalURI issues a GET against the original request path.
	FinalStateViaOriginalURI FinalStateVia = "original-uri"
)

// PollerOptions tunes a long-running operation handle.
type PollerOptions struct {
	// Frequency is the poll interval used when the server sends no Retry-After hint.
	Frequency time.Duration
	// FinalStateVia overrides how the final payload is located.
	FinalStateVia FinalStateVia
}

// PollUntilDoneOptions tunes PollUntilDone.
type PollUntilDoneOptions struct {
	// Frequency overrides the handle's poll interval for this call.
	Frequency time.Duration
}

// Poller observes a long-running operation. A Poller is single-consumer.
// Abandoning a Poller, or canceling the context passed to it, only stops
// client-side observation; the server-side operation keeps running.
type Poller[T any] interface {
	// Poll advances the handle by at most one network round trip.
	Poll(ctx context.Context) (OperationState, error)
	// PollUntilDone polls until a terminal state and returns the final payload.
	PollUntilDone(ctx context.Context, options *PollUntilDoneOptions) (T, error)
	// Done reports whether the operation reached a terminal state.
	Done() bool
	// State returns the current state.
	State() OperationState
	// Result returns the final payload of a terminal operation.
	Result(ctx context.Context) (T, error)
	// ResumeToken serializes the handle so observation can resume later.
	ResumeToken() (string, error)
}
