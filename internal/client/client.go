package client

import (
	"context"
	"fmt"
	"time"

	"github.com/fivetwenty-io/artifacts-client/internal/constants"
	"github.com/fivetwenty-io/artifacts-client/internal/http"
	"github.com/fivetwenty-io/artifacts-client/pkg/artifacts"
)

// Client implements the artifacts.Client interface.
type Client struct {
	httpClient   *http.Client
	serializer   artifacts.Serializer
	logger       artifacts.Logger
	pollInterval time.Duration

	notebooks artifacts.NotebooksClient
}

// createTokenProvider picks the configured credential source.
func createTokenProvider(config *artifacts.Config) artifacts.TokenProvider {
	if config.AccessToken != "" {
		return artifacts.StaticToken(config.AccessToken)
	}

	return config.TokenProvider // may be nil: no authentication
}

// createInterceptorChain assembles the cross-cutting middleware. Tracing
// wraps metrics, which wrap caller-supplied interceptors.
func createInterceptorChain(config *artifacts.Config) (*artifacts.InterceptorChain, error) {
	chain := artifacts.NewInterceptorChain()
	chain.AddRequestInterceptor(artifacts.RequestIDInterceptor())

	if config.TracerProvider != nil {
		chain.Use(artifacts.TracingInterceptors(config.TracerProvider))
	}

	if config.MetricsRegisterer != nil {
		metrics, err := artifacts.NewMetrics(config.MetricsRegisterer)
		if err != nil {
			return nil, err
		}

		chain.Use(artifacts.MetricsInterceptors(metrics))
	}

	chain.Append(config.Interceptors)

	return chain, nil
}

// createHTTPClientOptions builds HTTP client options from config.
func createHTTPClientOptions(config *artifacts.Config, chain *artifacts.InterceptorChain) []http.Option {
	apiVersion := config.APIVersion
	if apiVersion == "" {
		apiVersion = constants.DefaultAPIVersion
	}

	httpOpts := []http.Option{
		http.WithAPIVersion(apiVersion),
		http.WithInterceptors(chain),
	}

	if config.Logger != nil {
		httpOpts = append(httpOpts, http.WithLogger(config.Logger))
	}

	if config.Debug {
		httpOpts = append(httpOpts, http.WithDebug(true))
	}

	if config.UserAgent != "" {
		httpOpts = append(httpOpts, http.WithUserAgent(config.UserAgent))
	}

	if config.HTTPTimeout > 0 {
		httpOpts = append(httpOpts, http.WithTimeout(config.HTTPTimeout))
	}

	if config.RetryMax > 0 {
		retryWaitMin := constants.DefaultRetryWaitMin
		retryWaitMax := constants.DefaultRetryWaitMax

		if config.RetryWaitMin > 0 {
			retryWaitMin = config.RetryWaitMin
		}

		if config.RetryWaitMax > 0 {
			retryWaitMax = config.RetryWaitMax
		}

		httpOpts = append(httpOpts, http.WithRetryConfig(config.RetryMax, retryWaitMin, retryWaitMax))
	}

	return httpOpts
}

// New creates a new artifacts client. The endpoint is used as given.
func New(ctx context.Context, config *artifacts.Config) (*Client, error) {
	if config == nil {
		return nil, artifacts.ErrConfigRequired
	}

	if config.Endpoint == "" {
		return nil, artifacts.ErrEndpointRequired
	}

	chain, err := createInterceptorChain(config)
	if err != nil {
		return nil, fmt.Errorf("creating interceptors: %w", err)
	}

	httpClient := http.NewClient(config.Endpoint, createTokenProvider(config), createHTTPClientOptions(config, chain)...)

	return newClient(httpClient, config), nil
}

// NewWithHTTPClient creates a client over an existing transport.
func NewWithHTTPClient(httpClient *http.Client, config *artifacts.Config) *Client {
	if config == nil {
		config = &artifacts.Config{}
	}

	return newClient(httpClient, config)
}

func newClient(httpClient *http.Client, config *artifacts.Config) *Client {
	serializer := config.Serializer
	if serializer == nil {
		serializer = artifacts.NewJSONSerializer()
	}

	pollInterval := config.PollInterval
	if pollInterval <= 0 {
		pollInterval = constants.DefaultPollInterval
	}

	client := &Client{
		httpClient:   httpClient,
		serializer:   serializer,
		logger:       config.Logger,
		pollInterval: pollInterval,
	}

	client.notebooks = NewResourceClient[artifacts.NotebookResource](client, constants.NotebooksCollection)

	return client
}

// Notebooks implements artifacts.Client.Notebooks.
func (c *Client) Notebooks() artifacts.NotebooksClient {
	return c.notebooks
}

// Artifacts implements artifacts.Client.Artifacts.
func (c *Client) Artifacts(collection string) artifacts.ArtifactClient[artifacts.Artifact] {
	return NewResourceClient[artifacts.Artifact](c, collection)
}

// ResumeNotebookOperation implements artifacts.Client.ResumeNotebookOperation.
func (c *Client) ResumeNotebookOperation(token string) (artifacts.Poller[artifacts.NotebookResource], error) {
	return ResumePoller[artifacts.NotebookResource](c, token)
}

// ResumeOperation implements artifacts.Client.ResumeOperation.
func (c *Client) ResumeOperation(token string) (artifacts.Poller[artifacts.NoContent], error) {
	return ResumePoller[artifacts.NoContent](c, token)
}

// debug logs through the configured logger, if any.
func (c *Client) debug(msg string, fields map[string]interface{}) {
	if c.logger != nil {
		c.logger.Debug(msg, fields)
	}
}
