package artifacts

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"github.com/fivetwenty-io/artifacts-client/internal/constants"
)

const tracerName = "github.com/fivetwenty-io/artifacts-client"

// Request represents an HTTP request that can be intercepted.
type Request struct {
	// Operation is the route name, e.g. "notebooks.get".
	Operation string
	Method    string
	URL       string
	Headers   http.Header
	Body      []byte
	Metadata  map[string]interface{}
}

// Response represents an HTTP response that can be intercepted.
type Response struct {
	StatusCode int
	Headers    http.Header
	Body       []byte
	Error      error
}

// RequestInterceptor is called before a request is sent.
type RequestInterceptor func(ctx context.Context, req *Request) error

// ResponseInterceptor is called after a response is received, including when
// the transport failed (resp.Error is then set).
type ResponseInterceptor func(ctx context.Context, req *Request, resp *Response) error

// InterceptorChain manages a chain of interceptors.
type InterceptorChain struct {
	requestInterceptors  []RequestInterceptor
	responseInterceptors []ResponseInterceptor
}

// NewInterceptorChain creates a new interceptor chain.
func NewInterceptorChain() *InterceptorChain {
	return &InterceptorChain{
		requestInterceptors:  make([]RequestInterceptor, 0),
		responseInterceptors: make([]ResponseInterceptor, 0),
	}
}

// AddRequestInterceptor adds a request interceptor to the chain.
func (c *InterceptorChain) AddRequestInterceptor(interceptor RequestInterceptor) {
	c.requestInterceptors = append(c.requestInterceptors, interceptor)
}

// AddResponseInterceptor adds a response interceptor to the chain.
func (c *InterceptorChain) AddResponseInterceptor(interceptor ResponseInterceptor) {
	c.responseInterceptors = append(c.responseInterceptors, interceptor)
}

// Use adds a request/response interceptor pair. Either may be nil.
func (c *InterceptorChain) Use(reqInterceptor RequestInterceptor, respInterceptor ResponseInterceptor) {
	if reqInterceptor != nil {
		c.AddRequestInterceptor(reqInterceptor)
	}

	if respInterceptor != nil {
		c.AddResponseInterceptor(respInterceptor)
	}
}

// Append adds every interceptor of other after the existing ones.
func (c *InterceptorChain) Append(other *InterceptorChain) {
	if other == nil {
		return
	}

	c.requestInterceptors = append(c.requestInterceptors, other.requestInterceptors...)
	c.responseInterceptors = append(c.responseInterceptors, other.responseInterceptors...)
}

// ExecuteRequestInterceptors runs all request interceptors.
func (c *InterceptorChain) ExecuteRequestInterceptors(ctx context.Context, req *Request) error {
	for _, interceptor := range c.requestInterceptors {
		err := interceptor(ctx, req)
		if err != nil {
			return fmt.Errorf("request interceptor failed: %w", err)
		}
	}

	return nil
}

// ExecuteResponseInterceptors runs all response interceptors in reverse
// registration order, so pairs added with Use nest like middleware.
func (c *InterceptorChain) ExecuteResponseInterceptors(ctx context.Context, req *Request, resp *Response) error {
	for i := len(c.responseInterceptors) - 1; i >= 0; i-- {
		err := c.responseInterceptors[i](ctx, req, resp)
		if err != nil {
			return fmt.Errorf("response interceptor failed: %w", err)
		}
	}

	return nil
}

// Common Interceptors

// LoggingInterceptor logs requests.
func LoggingInterceptor(logger Logger) RequestInterceptor {
	return func(ctx context.Context, req *Request) error {
		logger.Debug("HTTP Request", map[string]interface{}{
			"operation": req.Operation,
			"method":    req.Method,
			"url":       req.URL,
		})

		return nil
	}
}

// LoggingResponseInterceptor logs responses.
func LoggingResponseInterceptor(logger Logger) ResponseInterceptor {
	return func(ctx context.Context, req *Request, resp *Response) error {
		fields := map[string]interface{}{
			"operation":   req.Operation,
			"method":      req.Method,
			"url":         req.URL,
			"status_code": resp.StatusCode,
		}

		if resp.Error != nil {
			fields["error"] = resp.Error.Error()
			logger.Error("HTTP Response Error", fields)
		} else {
			logger.Debug("HTTP Response", fields)
		}

		return nil
	}
}

// AuthenticationInterceptor adds a bearer token to every request.
func AuthenticationInterceptor(provider TokenProvider) RequestInterceptor {
	return func(ctx context.Context, req *Request) error {
		token, err := provider.GetToken(ctx)
		if err != nil {
			return fmt.Errorf("failed to get authentication token: %w", err)
		}

		if req.Headers == nil {
			req.Headers = make(http.Header)
		}

		req.Headers.Set("Authorization", "Bearer "+token)

		return nil
	}
}

// HeaderInterceptor adds custom headers to requests.
func HeaderInterceptor(headers map[string]string) RequestInterceptor {
	return func(ctx context.Context, req *Request) error {
		if req.Headers == nil {
			req.Headers = make(http.Header)
		}

		for key, value := range headers {
			req.Headers.Set(key, value)
		}

		return nil
	}
}

// RequestIDInterceptor stamps each request with a fresh client request id
// unless the caller already set one.
func RequestIDInterceptor() RequestInterceptor {
	return func(ctx context.Context, req *Request) error {
		if req.Headers == nil {
			req.Headers = make(http.Header)
		}

		if req.Headers.Get(constants.HeaderClientRequestID) == "" {
			req.Headers.Set(constants.HeaderClientRequestID, uuid.NewString())
		}

		return nil
	}
}

const spanMetadataKey = "otel_span"

// TracingInterceptors returns an interceptor pair that wraps every request in
// a client span named after the operation and propagates W3C trace context.
func TracingInterceptors(provider trace.TracerProvider) (RequestInterceptor, ResponseInterceptor) {
	tracer := provider.Tracer(tracerName)
	propagator := propagation.TraceContext{}

	reqInterceptor := func(ctx context.Context, req *Request) error {
		spanCtx, span := tracer.Start(ctx, "ArtifactsClient-"+req.Operation,
			trace.WithSpanKind(trace.SpanKindClient),
			trace.WithAttributes(
				attribute.String("http.request.method", req.Method),
				attribute.String("url.full", req.URL),
			),
		)

		if req.Headers == nil {
			req.Headers = make(http.Header)
		}

		propagator.Inject(spanCtx, propagation.HeaderCarrier(req.Headers))

		if req.Metadata == nil {
			req.Metadata = make(map[string]interface{})
		}

		req.Metadata[spanMetadataKey] = span

		return nil
	}

	respInterceptor := func(ctx context.Context, req *Request, resp *Response) error {
		span, ok := req.Metadata[spanMetadataKey].(trace.Span)
		if !ok {
			return nil
		}
		defer span.End()

		if resp.Error != nil {
			span.RecordError(resp.Error)
			span.SetStatus(codes.Error, resp.Error.Error())

			return nil
		}

		span.SetAttributes(attribute.Int("http.response.status_code", resp.StatusCode))

		if resp.StatusCode >= http.StatusBadRequest {
			span.SetStatus(codes.Error, "HTTP "+strconv.Itoa(resp.StatusCode))
		}

		return nil
	}

	return reqInterceptor, respInterceptor
}
