package config

import "errors"

var (
	// ErrNoTarget is returned when no target URL was provided.
	ErrNoTarget = errors.New("no target URL provided")

	// ErrInvalidTimeout is returned when the timeout is zero or negative.
	ErrInvalidTimeout = errors.New("timeout must be positive")

	// ErrInvalidMaxRetries is returned when the retry count is negative.
	ErrInvalidMaxRetries = errors.New("max retries must not be negative")

	// ErrInvalidMaxBytes is returned when the body cap is zero or negative.
	ErrInvalidMaxBytes = errors.New("max bytes must be positive")

	// ErrInvalidMaxEntities is returned when the entity limit is zero or negative.
	ErrInvalidMaxEntities = errors.New("max entities must be positive")

	// ErrInvalidTopCount is returned when a summary size is negative.
	ErrInvalidTopCount = errors.New("top entity/domain counts must not be negative")

	// ErrInvalidConcurrency is returned when concurrency is zero or negative.
	ErrInvalidConcurrency = errors.New("concurrency must be positive")

	// ErrConflictingReportFormats is returned when both JSON and Markdown
	// output are requested.
	ErrConflictingReportFormats = errors.New("JSON and Markdown report formats are mutually exclusive")
)
