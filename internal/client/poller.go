package client

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	nethttp "net/http"
	"strconv"
	"strings"
	"time"

	"github.com/fivetwenty-io/artifacts-client/internal/constants"
	"github.com/fivetwenty-io/artifacts-client/internal/http"
	"github.com/fivetwenty-io/artifacts-client/pkg/artifacts"
)

// monitorKind says how the status of an operation is observed.
type monitorKind string

const (
	monitorNone     monitorKind = ""
	monitorAsync    monitorKind = "async"
	monitorLocation monitorKind = "location"
	monitorOriginal monitorKind = "original"
)

// pollerState is the serializable part of an operation handle.
type pollerState struct {
	Operation     string                   `json:"operation"`
	Method        string                   `json:"method"`
	OriginalURL   string                   `json:"originalUrl"`
	Monitor       monitorKind              `json:"monitor"`
	StatusURL     string                   `json:"statusUrl,omitempty"`
	LocationURL   string                   `json:"locationUrl,omitempty"`
	FinalStateVia artifacts.FinalStateVia  `json:"finalStateVia,omitempty"`
	State         artifacts.OperationState `json:"state"`
}

// statusBody covers the fields read from status monitor responses.
type statusBody struct {
	Status     string                    `json:"status"`
	Error      *artifacts.CloudErrorBody `json:"error"`
	Properties struct {
		ProvisioningState string `json:"provisioningState"`
	} `json:"properties"`
}

// lroPoller implements artifacts.Poller.
type lroPoller[T any] struct {
	client    *Client
	frequency time.Duration
	state     pollerState

	lastResp   *http.Response
	result     T
	finalFetch bool
	errBody    artifacts.CloudErrorBody
}

// newPoller derives the initial state from the first response.
func newPoller[T any](client *Client, state pollerState, resp *http.Response, frequency time.Duration) (*lroPoller[T], error) {
	if frequency <= 0 {
		frequency = client.pollInterval
	}

	poller := &lroPoller[T]{
		client:    client,
		frequency: frequency,
		state:     state,
		lastResp:  resp,
	}

	asyncURL := resp.Headers.Get(constants.HeaderAsyncOperation)
	if asyncURL == "" {
		asyncURL = resp.Headers.Get(constants.HeaderOperationLocation)
	}

	location := resp.Headers.Get(constants.HeaderLocation)

	switch resp.StatusCode {
	case nethttp.StatusOK, nethttp.StatusNoContent:
		return poller, poller.succeed(resp.Body)

	case nethttp.StatusCreated, nethttp.StatusAccepted:
		switch {
		case asyncURL != "":
			poller.state.Monitor = monitorAsync
			poller.state.StatusURL = asyncURL
			poller.state.LocationURL = location
		case location != "":
			poller.state.Monitor = monitorLocation
			poller.state.StatusURL = location
			poller.state.LocationURL = location
		case resp.StatusCode == nethttp.StatusAccepted && bodyPolled(state.Method):
			poller.state.Monitor = monitorOriginal
			poller.state.StatusURL = state.OriginalURL
		default:
			return poller, poller.succeed(resp.Body)
		}

		poller.state.State = artifacts.OperationStateAccepted

		return poller, nil

	default:
		return nil, newResponseError(state.Method, state.OriginalURL, resp)
	}
}

// bodyPolled reports whether an unmonitored 202 is observed by reading the
// request URL. Actions and deletes have nothing to read there.
func bodyPolled(method string) bool {
	return method == nethttp.MethodPut
}

// ResumePoller restores a handle created by Poller.ResumeToken.
func ResumePoller[T any](client *Client, token string) (artifacts.Poller[T], error) {
	raw, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", artifacts.ErrInvalidResumeToken, err)
	}

	var state pollerState

	err = json.Unmarshal(raw, &state)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", artifacts.ErrInvalidResumeToken, err)
	}

	if state.Method == "" || state.StatusURL == "" || state.Monitor == monitorNone {
		return nil, fmt.Errorf("%w: missing operation details", artifacts.ErrInvalidResumeToken)
	}

	if state.State.IsTerminal() {
		return nil, fmt.Errorf("%w: %w", artifacts.ErrInvalidResumeToken, artifacts.ErrPollerDone)
	}

	return &lroPoller[T]{
		client:    client,
		frequency: client.pollInterval,
		state:     state,
	}, nil
}

func (p *lroPoller[T]) hasResult() bool {
	_, empty := any(p.result).(artifacts.NoContent)

	return !empty
}

// succeed marks the operation as succeeded with body as the final payload.
func (p *lroPoller[T]) succeed(body []byte) error {
	p.state.State = artifacts.OperationStateSucceeded

	if !p.hasResult() {
		return nil
	}

	err := p.client.serializer.Deserialize(body, &p.result)
	if err != nil {
		return fmt.Errorf("parsing operation result: %w", err)
	}

	return nil
}

func (p *lroPoller[T]) fail(state artifacts.OperationState, body artifacts.CloudErrorBody) {
	p.state.State = state
	p.errBody = body
}

// Done implements artifacts.Poller.Done.
func (p *lroPoller[T]) Done() bool {
	return p.state.State.IsTerminal()
}

// State implements artifacts.Poller.State.
func (p *lroPoller[T]) State() artifacts.OperationState {
	return p.state.State
}

// Poll implements artifacts.Poller.Poll.
func (p *lroPoller[T]) Poll(ctx context.Context) (artifacts.OperationState, error) {
	if p.Done() {
		return p.state.State, nil
	}

	p.client.debug("Polling operation", map[string]interface{}{
		"operation": p.state.Operation,
		"url":       p.state.StatusURL,
		"state":     string(p.state.State),
	})

	resp, err := p.client.httpClient.Do(ctx, &http.Request{
		Operation: p.state.Operation + "." + opPoll,
		Method:    nethttp.MethodGet,
		Path:      p.state.StatusURL,
	})
	if err != nil {
		return p.state.State, fmt.Errorf("polling operation: %w", err)
	}

	p.lastResp = resp

	switch p.state.Monitor {
	case monitorAsync:
		err = p.updateFromAsync(resp)
	case monitorLocation:
		err = p.updateFromLocation(resp)
	case monitorOriginal:
		err = p.updateFromOriginal(resp)
	default:
		err = fmt.Errorf("%w: operation has no status monitor", artifacts.ErrInvalidArgument)
	}

	if err != nil {
		return p.state.State, err
	}

	return p.state.State, nil
}

func (p *lroPoller[T]) updateFromAsync(resp *http.Response) error {
	switch resp.StatusCode {
	case nethttp.StatusOK, nethttp.StatusCreated, nethttp.StatusAccepted, nethttp.StatusNoContent:
	default:
		return newResponseError(nethttp.MethodGet, p.state.StatusURL, resp)
	}

	if resp.StatusCode == nethttp.StatusAccepted && len(strings.TrimSpace(string(resp.Body))) == 0 {
		p.state.State = artifacts.OperationStateInProgress

		return nil
	}

	var status statusBody

	err := p.client.serializer.Deserialize(resp.Body, &status)
	if err != nil {
		return fmt.Errorf("parsing operation status: %w", err)
	}

	state := parseOperationStatus(status.Status)

	switch state {
	case artifacts.OperationStateSucceeded:
		p.state.State = artifacts.OperationStateSucceeded
		p.finalFetch = p.hasResult()
	case artifacts.OperationStateFailed, artifacts.OperationStateCanceled:
		var body artifacts.CloudErrorBody
		if status.Error != nil {
			body = *status.Error
		}

		p.fail(state, body)
	default:
		p.state.State = artifacts.OperationStateInProgress
	}

	return nil
}

func (p *lroPoller[T]) updateFromLocation(resp *http.Response) error {
	switch resp.StatusCode {
	case nethttp.StatusAccepted:
		p.state.State = artifacts.OperationStateInProgress

		return nil
	case nethttp.StatusOK, nethttp.StatusCreated, nethttp.StatusNoContent:
		if len(strings.TrimSpace(string(resp.Body))) == 0 && p.finalStateVia() == artifacts.FinalStateViaOriginalURI {
			p.state.State = artifacts.OperationStateSucceeded
			p.finalFetch = p.hasResult()

			return nil
		}

		return p.succeed(resp.Body)
	default:
		body, err := artifacts.ParseCloudError(resp.Body)
		if err != nil {
			body = artifacts.CloudErrorBody{Message: strings.TrimSpace(string(resp.Body))}
		}

		p.fail(artifacts.OperationStateFailed, body)

		return nil
	}
}

func (p *lroPoller[T]) updateFromOriginal(resp *http.Response) error {
	switch resp.StatusCode {
	case nethttp.StatusAccepted:
		p.state.State = artifacts.OperationStateInProgress

		return nil
	case nethttp.StatusOK, nethttp.StatusCreated:
	default:
		return newResponseError(nethttp.MethodGet, p.state.StatusURL, resp)
	}

	var status statusBody

	err := p.client.serializer.Deserialize(resp.Body, &status)
	if err != nil {
		return fmt.Errorf("parsing operation status: %w", err)
	}

	raw := status.Status
	if raw == "" {
		raw = status.Properties.ProvisioningState
	}

	if raw == "" {
		return p.succeed(resp.Body)
	}

	switch state := parseOperationStatus(raw); state {
	case artifacts.OperationStateSucceeded:
		return p.succeed(resp.Body)
	case artifacts.OperationStateFailed, artifacts.OperationStateCanceled:
		var body artifacts.CloudErrorBody
		if status.Error != nil {
			body = *status.Error
		}

		p.fail(state, body)
	default:
		p.state.State = artifacts.OperationStateInProgress
	}

	return nil
}

// parseOperationStatus maps a service status string onto a state. Unknown
// values are treated as still running.
func parseOperationStatus(status string) artifacts.OperationState {
	switch strings.ToLower(strings.TrimSpace(status)) {
	case constants.OperationStatusSucceeded:
		return artifacts.OperationStateSucceeded
	case constants.OperationStatusFailed:
		return artifacts.OperationStateFailed
	case constants.OperationStatusCanceled, constants.OperationStatusCancelled:
		return artifacts.OperationStateCanceled
	default:
		return artifacts.OperationStateInProgress
	}
}

func (p *lroPoller[T]) finalStateVia() artifacts.FinalStateVia {
	if p.state.FinalStateVia != artifacts.FinalStateViaDefault {
		return p.state.FinalStateVia
	}

	if p.state.Method == nethttp.MethodPut {
		return artifacts.FinalStateViaOriginalURI
	}

	return artifacts.FinalStateViaLocation
}

// fetchResult reads the final payload once the monitor reported success.
func (p *lroPoller[T]) fetchResult(ctx context.Context) error {
	var target string

	switch p.finalStateVia() {
	case artifacts.FinalStateViaAsyncOperation:
		if p.lastResp != nil {
			return p.succeed(p.lastResp.Body)
		}
	case artifacts.FinalStateViaLocation:
		target = p.state.LocationURL
	case artifacts.FinalStateViaOriginalURI:
		target = p.state.OriginalURL
	}

	if target == "" {
		return nil
	}

	resp, err := p.client.httpClient.Do(ctx, &http.Request{
		Operation: p.state.Operation + ".result",
		Method:    nethttp.MethodGet,
		Path:      target,
	})
	if err != nil {
		return fmt.Errorf("fetching operation result: %w", err)
	}

	if resp.StatusCode != nethttp.StatusOK {
		return newResponseError(nethttp.MethodGet, target, resp)
	}

	return p.succeed(resp.Body)
}

// Result implements artifacts.Poller.Result.
func (p *lroPoller[T]) Result(ctx context.Context) (T, error) {
	var zero T

	switch p.state.State {
	case artifacts.OperationStateSucceeded:
	case artifacts.OperationStateFailed, artifacts.OperationStateCanceled:
		return zero, &artifacts.OperationError{State: p.state.State, Body: p.errBody}
	default:
		return zero, artifacts.ErrPollerNotDone
	}

	if p.finalFetch {
		err := p.fetchResult(ctx)
		if err != nil {
			return zero, err
		}

		p.finalFetch = false
	}

	return p.result, nil
}

// PollUntilDone implements artifacts.Poller.PollUntilDone.
func (p *lroPoller[T]) PollUntilDone(ctx context.Context, options *artifacts.PollUntilDoneOptions) (T, error) {
	var zero T

	frequency := p.frequency
	if options != nil && options.Frequency > 0 {
		frequency = options.Frequency
	}

	for !p.Done() {
		timer := time.NewTimer(p.nextInterval(frequency))

		select {
		case <-ctx.Done():
			timer.Stop()

			return zero, fmt.Errorf("waiting for operation: %w", ctx.Err())
		case <-timer.C:
		}

		_, err := p.Poll(ctx)
		if err != nil {
			return zero, err
		}
	}

	return p.Result(ctx)
}

// nextInterval honors Retry-After from the latest response.
func (p *lroPoller[T]) nextInterval(frequency time.Duration) time.Duration {
	if p.lastResp != nil {
		if delay := parseRetryAfter(p.lastResp.Headers.Get(constants.HeaderRetryAfter), time.Now()); delay > 0 {
			return delay
		}
	}

	return frequency
}

// maxRetryAfterSeconds caps delay-seconds so the duration cannot overflow.
const maxRetryAfterSeconds = 3600

// parseRetryAfter reads delay-seconds or an HTTP-date.
func parseRetryAfter(value string, now time.Time) time.Duration {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0
	}

	seconds, err := strconv.Atoi(value)
	if err == nil {
		seconds = min(seconds, maxRetryAfterSeconds)

		return time.Duration(seconds) * time.Second
	}

	at, err := nethttp.ParseTime(value)
	if err != nil {
		return 0
	}

	return min(at.Sub(now), maxRetryAfterSeconds*time.Second)
}

// ResumeToken implements artifacts.Poller.ResumeToken.
func (p *lroPoller[T]) ResumeToken() (string, error) {
	if p.Done() {
		return "", artifacts.ErrPollerDone
	}

	raw, err := json.Marshal(p.state)
	if err != nil {
		return "", fmt.Errorf("encoding resume token: %w", err)
	}

	return base64.RawURLEncoding.EncodeToString(raw), nil
}
