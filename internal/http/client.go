package http

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"

	"github.com/fivetwenty-io/artifacts-client/internal/constants"
	"github.com/fivetwenty-io/artifacts-client/pkg/artifacts"
)

// Logger is the logging surface used by the HTTP layer.
type Logger interface {
	Debug(msg string, fields map[string]interface{})
	Info(msg string, fields map[string]interface{})
	Warn(msg string, fields map[string]interface{})
	Error(msg string, fields map[string]interface{})
}

// Client sends requests to the artifacts service.
type Client struct {
	baseURL       string
	httpClient    *retryablehttp.Client
	tokenProvider artifacts.TokenProvider
	logger        Logger
	debug         bool
	userAgent     string
	apiVersion    string
	interceptors  *artifacts.InterceptorChain
	chain         *artifacts.InterceptorChain
}

// Option configures a Client.
type Option func(*Client)

// WithLogger sets the logger.
func WithLogger(logger Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithDebug enables request and response logging.
func WithDebug(debug bool) Option {
	return func(c *Client) {
		c.debug = debug
	}
}

// WithUserAgent overrides the User-Agent header.
func WithUserAgent(userAgent string) Option {
	return func(c *Client) {
		c.userAgent = userAgent
	}
}

// WithRetryConfig enables transport retries on connection errors, 429 and 5xx.
func WithRetryConfig(retryMax int, waitMin, waitMax time.Duration) Option {
	return func(c *Client) {
		c.httpClient.RetryMax = retryMax
		c.httpClient.RetryWaitMin = waitMin
		c.httpClient.RetryWaitMax = waitMax
	}
}

// WithTimeout sets the per-attempt timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		c.httpClient.HTTPClient.Timeout = timeout
	}
}

// WithAPIVersion sets the api-version query parameter added to every request
// that does not already carry one.
func WithAPIVersion(apiVersion string) Option {
	return func(c *Client) {
		c.apiVersion = apiVersion
	}
}

// WithInterceptors runs the chain around every request.
func WithInterceptors(chain *artifacts.InterceptorChain) Option {
	return func(c *Client) {
		c.interceptors = chain
	}
}

// NewClient creates a new HTTP client. A nil tokenProvider sends no
// Authorization header.
func NewClient(baseURL string, tokenProvider artifacts.TokenProvider, opts ...Option) *Client {
	retryClient := retryablehttp.NewClient()
	retryClient.RetryMax = 0
	retryClient.Logger = nil
	retryClient.ErrorHandler = retryablehttp.PassthroughErrorHandler
	retryClient.HTTPClient.Timeout = constants.DefaultHTTPTimeout

	client := &Client{
		baseURL:       strings.TrimSuffix(baseURL, "/"),
		httpClient:    retryClient,
		tokenProvider: tokenProvider,
		userAgent:     constants.DefaultUserAgent,
	}

	for _, opt := range opts {
		opt(client)
	}

	client.chain = client.buildChain()
	retryClient.RequestLogHook = client.logRetry

	if client.debug && client.logger != nil {
		retryClient.Logger = leveledLogger{logger: client.logger}
	}

	return client
}

// buildChain puts authentication and debug logging ahead of the configured
// interceptors.
func (c *Client) buildChain() *artifacts.InterceptorChain {
	chain := artifacts.NewInterceptorChain()

	if c.tokenProvider != nil {
		chain.AddRequestInterceptor(artifacts.AuthenticationInterceptor(c.tokenProvider))
	}

	if c.debug && c.logger != nil {
		chain.Use(artifacts.LoggingInterceptor(c.logger), artifacts.LoggingResponseInterceptor(c.logger))
	}

	chain.Append(c.interceptors)

	return chain
}

// BaseURL returns the service base URL.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// APIVersion returns the configured api-version.
func (c *Client) APIVersion() string {
	return c.apiVersion
}

// Request represents an HTTP request.
type Request struct {
	// Operation names the call for logs, spans and metrics.
	Operation string
	Method    string
	// Path is relative to the base URL, or an absolute URL used verbatim.
	Path    string
	Query   url.Values
	Headers map[string]string
	Body    []byte
}

// Response represents an HTTP response.
type Response struct {
	StatusCode int
	Headers    http.Header
	Body       []byte
}

// Do sends the request. Any HTTP status is returned as a Response; an error
// is only returned when no response was received.
func (c *Client) Do(ctx context.Context, req *Request) (*Response, error) {
	fullURL, err := c.ResolveURL(req.Path, req.Query)
	if err != nil {
		return nil, fmt.Errorf("%w: building request URL: %w", artifacts.ErrInvalidArgument, err)
	}

	intercepted := &artifacts.Request{
		Operation: req.Operation,
		Method:    req.Method,
		URL:       fullURL,
		Headers:   make(http.Header),
		Body:      req.Body,
		Metadata:  make(map[string]interface{}),
	}

	intercepted.Headers.Set("Accept", "application/json")
	intercepted.Headers.Set("User-Agent", c.userAgent)

	if len(req.Body) > 0 {
		intercepted.Headers.Set("Content-Type", "application/json")
	}

	for key, value := range req.Headers {
		intercepted.Headers.Set(key, value)
	}

	err = c.chain.ExecuteRequestInterceptors(ctx, intercepted)
	if err != nil {
		_ = c.chain.ExecuteResponseInterceptors(ctx, intercepted, &artifacts.Response{Error: err})

		return nil, err
	}

	resp, err := c.send(ctx, intercepted)

	interceptedResp := &artifacts.Response{Error: err}
	if resp != nil {
		interceptedResp.StatusCode = resp.StatusCode
		interceptedResp.Headers = resp.Headers
		interceptedResp.Body = resp.Body
	}

	interceptErr := c.chain.ExecuteResponseInterceptors(ctx, intercepted, interceptedResp)

	if err != nil {
		return nil, err
	}

	if interceptErr != nil {
		return nil, interceptErr
	}

	return resp, nil
}

func (c *Client) send(ctx context.Context, req *artifacts.Request) (*Response, error) {
	var body io.Reader
	if len(req.Body) > 0 {
		body = bytes.NewReader(req.Body)
	}

	httpReq, err := retryablehttp.NewRequestWithContext(ctx, req.Method, req.URL, body)
	if err != nil {
		return nil, fmt.Errorf("%w: creating request: %w", artifacts.ErrInvalidArgument, err)
	}

	httpReq.Header = req.Headers.Clone()

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%w: %s %s: %w", artifacts.ErrTransport, req.Method, req.URL, err)
	}

	defer func() { _ = httpResp.Body.Close() }()

	respBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: reading response body: %w", artifacts.ErrTransport, err)
	}

	return &Response{
		StatusCode: httpResp.StatusCode,
		Headers:    httpResp.Header,
		Body:       respBody,
	}, nil
}

// ResolveURL joins path onto the base URL, merges query and adds the
// api-version parameter when it is missing. Absolute URLs keep their
// existing query string untouched.
func (c *Client) ResolveURL(path string, query url.Values) (string, error) {
	var target *url.URL

	parsed, err := url.Parse(path)
	if err != nil {
		return "", fmt.Errorf("parsing path %q: %w", path, err)
	}

	if parsed.IsAbs() {
		target = parsed
	} else {
		target, err = url.Parse(c.baseURL + "/" + strings.TrimPrefix(path, "/"))
		if err != nil {
			return "", fmt.Errorf("parsing URL: %w", err)
		}
	}

	extra := url.Values{}

	for key, values := range query {
		for _, value := range values {
			extra.Add(key, value)
		}
	}

	if c.apiVersion != "" && extra.Get(constants.APIVersionParam) == "" &&
		!target.Query().Has(constants.APIVersionParam) {
		extra.Set(constants.APIVersionParam, c.apiVersion)
	}

	if len(extra) > 0 {
		if target.RawQuery == "" {
			target.RawQuery = extra.Encode()
		} else {
			target.RawQuery += "&" + extra.Encode()
		}
	}

	return target.String(), nil
}

// leveledLogger adapts Logger to retryablehttp.LeveledLogger.
type leveledLogger struct {
	logger Logger
}

func (l leveledLogger) Error(msg string, keysAndValues ...interface{}) {
	l.logger.Error(msg, fieldsOf(keysAndValues))
}

func (l leveledLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Info(msg, fieldsOf(keysAndValues))
}

func (l leveledLogger) Debug(msg string, keysAndValues ...interface{}) {
	l.logger.Debug(msg, fieldsOf(keysAndValues))
}

func (l leveledLogger) Warn(msg string, keysAndValues ...interface{}) {
	l.logger.Warn(msg, fieldsOf(keysAndValues))
}

func fieldsOf(keysAndValues []interface{}) map[string]interface{} {
	fields := make(map[string]interface{}, len(keysAndValues)/2)

	for i := 0; i+1 < len(keysAndValues); i += 2 {
		fields[fmt.Sprint(keysAndValues[i])] = keysAndValues[i+1]
	}

	return fields
}

func (c *Client) logRetry(_ retryablehttp.Logger, req *http.Request, attempt int) {
	if attempt == 0 || c.logger == nil {
		return
	}

	c.logger.Warn("Retrying HTTP request", map[string]interface{}{
		"method":  req.Method,
		"url":     req.URL.String(),
		"attempt": attempt,
	})
}

// Get performs a GET request.
func (c *Client) Get(ctx context.Context, path string, query url.Values) (*Response, error) {
	return c.Do(ctx, &Request{
		Method: http.MethodGet,
		Path:   path,
		Query:  query,
	})
}

// Post performs a POST request.
func (c *Client) Post(ctx context.Context, path string, body []byte) (*Response, error) {
	return c.Do(ctx, &Request{
		Method: http.MethodPost,
		Path:   path,
		Body:   body,
	})
}

// Put performs a PUT request.
func (c *Client) Put(ctx context.Context, path string, body []byte) (*Response, error) {
	return c.Do(ctx, &Request{
		Method: http.MethodPut,
		Path:   path,
		Body:   body,
	})
}

// Delete performs a DELETE request.
func (c *Client) Delete(ctx context.Context, path string) (*Response, error) {
	return c.Do(ctx, &Request{
		Method: http.MethodDelete,
		Path:   path,
	})
}
