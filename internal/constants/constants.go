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

	// ShortHTTPTimeout is used for quick operations such as session login.
	ShortHTTPTimeout = 10 * time.Second
)

// Retry and backoff limits.
const (
	// DefaultRetryMax is the default maximum number of retries for
	// transient failures.
	DefaultRetryMax = 3

	// DefaultRetryWaitMin is the base delay before the first retry.
	DefaultRetryWaitMin = 1 * time.Second

	// DefaultRetryWaitMax caps the backoff delay between retries.
	DefaultRetryWaitMax = 30 * time.Second

	// ExponentialBackoffBase is the base for exponential backoff.
	ExponentialBackoffBase = 2
)

// Concurrency and batching limits.
const (
	// DefaultConcurrencyLimit limits concurrent batch operations.
	DefaultConcurrencyLimit = 5
)

// REST path defaults.
const (
	// DefaultRESTAPIVersion is the core REST API version segment.
	DefaultRESTAPIVersion = "2"

	// DefaultAgileAPIVersion is the agile REST API version segment.
	DefaultAgileAPIVersion = "1.0"

	// RESTPathPrefix is the core REST path prefix.
	RESTPathPrefix = "/rest/api"

	// AgilePathPrefix is the agile REST path prefix.
	AgilePathPrefix = "/rest/agile"

	// SessionAuthPath is the cookie session login endpoint.
	SessionAuthPath = "/rest/auth/1/session"
)

// Pagination limits.
const (
	// DefaultPageSize is the default number of items requested per page.
	DefaultPageSize = 50

	// MaxPages bounds page iteration to prevent infinite loops.
	MaxPages = 100
)

// Cache sizing.
const (
	// DefaultCacheSize is the default cache entry limit.
	DefaultCacheSize = 1000

	// DefaultCacheTTL is the default cache time-to-live.
	DefaultCacheTTL = 5 * time.Minute

	// MaxCacheValueSize is the maximum size for cached response bodies (1MB).
	MaxCacheValueSize = 1024 * 1024
)

// Output format constants.
const (
	// FormatJSON for JSON output format.
	FormatJSON = "json"

	// FormatYAML for YAML output format.
	FormatYAML = "yaml"

	// FormatTable for table output format.
	FormatTable = "table"
)

// Display constants.
const (
	// NotAvailable is used when information is not available.
	NotAvailable = "N/A"

	// SummaryDisplayLength truncates issue summaries in table output.
	SummaryDisplayLength = 60

	// MaskedSecret is used to hide sensitive information.
	MaskedSecret = "***"
)
