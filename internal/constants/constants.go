package constants

import "time"

// File and directory permissions.
const (
	// ConfigDirPerm is the permission for configuration directories.
	ConfigDirPerm = 0750

	// ConfigFilePerm is the permission for configuration files.
	ConfigFilePerm = 0600
)

// HTTP and network timeouts.
const (
	// DefaultHTTPTimeout is the default timeout for HTTP requests.
	DefaultHTTPTimeout = 30 * time.Second

	// ShortHTTPTimeout is used for quick operations.
	ShortHTTPTimeout = 10 * time.Second
)

// Retry limits. Retries are off unless RetryMax is configured.
const (
	// DefaultRetryWaitMin is the minimum wait time between retries.
	DefaultRetryWaitMin = 1 * time.Second

	// DefaultRetryWaitMax is the maximum wait time between retries.
	DefaultRetryWaitMax = 30 * time.Second
)

// Service defaults.
const (
	// DefaultAPIVersion is the api-version query parameter sent with every request.
	DefaultAPIVersion = "2019-06-01-preview"

	// NotebooksCollection is the collection path for notebook artifacts.
	NotebooksCollection = "notebooks"

	// DefaultUserAgent is sent when no user agent is configured.
	DefaultUserAgent = "artifacts-client/go"
)

// Wire names.
const (
	// APIVersionParam is the query parameter carrying the service API version.
	APIVersionParam = "api-version"

	// HeaderAsyncOperation is the Azure-style async operation monitor header.
	HeaderAsyncOperation = "Azure-AsyncOperation"

	// HeaderOperationLocation is the alternative async operation monitor header.
	HeaderOperationLocation = "Operation-Location"

	// HeaderLocation is the location monitor header.
	HeaderLocation = "Location"

	// HeaderRetryAfter carries the server's poll interval hint.
	HeaderRetryAfter = "Retry-After"

	// HeaderETag carries the entity tag of a resource.
	HeaderETag = "ETag"

	// HeaderIfMatch is the write precondition header.
	HeaderIfMatch = "If-Match"

	// HeaderIfNoneMatch is the conditional read header.
	HeaderIfNoneMatch = "If-None-Match"

	// HeaderClientRequestID carries the client generated request id.
	HeaderClientRequestID = "x-ms-client-request-id"
)

// Time intervals and delays.
const (
	// DefaultPollInterval is used for long-running operation polling.
	DefaultPollInterval = 2 * time.Second

	// QuickPollInterval is used for fast polling in tests and local servers.
	QuickPollInterval = 10 * time.Millisecond
)

// Long-running operation status values reported by the service.
const (
	OperationStatusSucceeded = "succeeded"
	OperationStatusFailed    = "failed"
	OperationStatusCanceled  = "canceled"
	OperationStatusCancelled = "cancelled"
)

// Handle store defaults.
const (
	// DefaultHandleBucket is the NATS KV bucket for operation resume tokens.
	DefaultHandleBucket = "artifacts-operations"

	// DefaultHandleTTL bounds how long a stored resume token is kept.
	DefaultHandleTTL = 24 * time.Hour
)

// Command arguments.
const (
	// MinimumArgumentCount is the argument count of two-operand commands.
	MinimumArgumentCount = 2
)

// UI and display constants.
const (
	// NotAvailable is used when information is not available.
	NotAvailable = "N/A"

	// MaskedSecret is used to hide sensitive information.
	MaskedSecret = "***"
)

// Format constants.
const (
	// FormatJSON for JSON output format.
	FormatJSON = "json"

	// FormatYAML for YAML output format.
	FormatYAML = "yaml"

	// FormatTable for table output format.
	FormatTable = "table"
)
