package artifacts

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel/trace"
)

// ArtifactClient exposes the operations of one artifact collection.
type ArtifactClient[T any] interface {
	// Get reads one artifact. With GetOptions.IfNoneMatch set, an unchanged
	// artifact yields a result with NotModified set.
	Get(ctx context.Context, name string, options *GetOptions) (*GetResult[T], error)
	// CreateOrUpdate upserts an artifact. The server may finish the write
	// asynchronously, so a handle is returned.
	CreateOrUpdate(ctx context.Context, name string, resource T, options *CreateOrUpdateOptions) (Poller[T], error)
	// Delete removes an artifact. Deleting a missing artifact succeeds.
	Delete(ctx context.Context, name string, options *OperationOptions) (Poller[NoContent], error)
	// Rename moves an artifact to newName.
	Rename(ctx context.Context, name, newName string, options *OperationOptions) (Poller[NoContent], error)

	// ListPage fetches the first page of the collection.
	ListPage(ctx context.Context) (*Page[T], error)
	// ListNextPage fetches the page behind a continuation token.
	ListNextPage(ctx context.Context, nextLink string) (*Page[T], error)
	// ListSummaryPage fetches the first page of the summarized listing.
	ListSummaryPage(ctx context.Context) (*Page[T], error)
	// ListSummaryNextPage fetches the next page of the summarized listing.
	ListSummaryNextPage(ctx context.Context, nextLink string) (*Page[T], error)

	// List returns a pager over the whole collection.
	List() *Pager[T]
	// ListSummary returns a pager over the summarized listing.
	ListSummary() *Pager[T]
}

// NotebooksClient is the client for notebook artifacts.
type NotebooksClient = ArtifactClient[NotebookResource]

// Client is the workspace artifacts client.
type Client interface {
	// Notebooks returns the notebook collection client.
	Notebooks() NotebooksClient
	// Artifacts returns an untyped client for any collection path.
	Artifacts(collection string) ArtifactClient[Artifact]
	// ResumeNotebookOperation restores a handle from Poller.ResumeToken.
	ResumeNotebookOperation(token string) (Poller[NotebookResource], error)
	// ResumeOperation restores a handle of an operation without a payload.
	ResumeOperation(token string) (Poller[NoContent], error)
}

// GetOptions carries conditional read parameters.
type GetOptions struct {
	// IfNoneMatch is the etag the caller already holds.
	IfNoneMatch string
}

// CreateOrUpdateOptions carries write parameters.
type CreateOrUpdateOptions struct {
	// IfMatch makes the write conditional on the current etag.
	IfMatch string
	PollerOptions
}

// OperationOptions carries handle parameters for delete and rename.
type OperationOptions struct {
	PollerOptions
}

// Logger interface for logging.
type Logger interface {
	Debug(msg string, fields map[string]interface{})
	Info(msg string, fields map[string]interface{})
	Warn(msg string, fields map[string]interface{})
	Error(msg string, fields map[string]interface{})
}

// TokenProvider supplies bearer tokens. Credential acquisition is left to the caller.
type TokenProvider interface {
	GetToken(ctx context.Context) (string, error)
}

// StaticToken is a TokenProvider that always returns the same token.
type StaticToken string

// GetToken implements TokenProvider.
func (t StaticToken) GetToken(ctx context.Context) (string, error) {
	return string(t), nil
}

// Config represents client configuration.
type Config struct {
	// Endpoint: base URL of the workspace, e.g. "https://myws.dev.example.net".
	// artifactsclient.New trims a trailing slash and adds "https://" when no
	// scheme is present.
	Endpoint string
	// APIVersion: value of the api-version query parameter. Defaults to
	// constants.DefaultAPIVersion.
	APIVersion string

	// AccessToken: if set, used directly as a Bearer token.
	AccessToken string
	// TokenProvider: used when AccessToken is empty.
	TokenProvider TokenProvider

	// HTTPTimeout: per-request timeout of the transport. Most calls should
	// rely on context deadlines.
	HTTPTimeout time.Duration
	// RetryMax: maximum number of transport retries (>=500, 429 and
	// connection errors). Zero disables retries.
	RetryMax int
	// RetryWaitMin: minimum backoff between retries. Applied when RetryMax > 0.
	RetryWaitMin time.Duration
	// RetryWaitMax: maximum backoff between retries. Applied when RetryMax > 0.
	RetryWaitMax time.Duration

	// Debug: enables verbose HTTP request/response logging when a Logger is provided.
	Debug bool
	// Logger: optional structured logger used by the HTTP layer and pollers.
	Logger Logger
	// UserAgent: overrides the default User-Agent header.
	UserAgent string

	// PollInterval: default long-running operation poll interval.
	PollInterval time.Duration
	// Serializer: overrides the JSON serializer.
	Serializer Serializer

	// Interceptors: extra interceptors run around every request.
	Interceptors *InterceptorChain
	// TracerProvider: when set, every request is wrapped in a client span.
	TracerProvider trace.TracerProvider
	// MetricsRegisterer: when set, request metrics are registered here.
	MetricsRegisterer prometheus.Registerer
}
