package config

import (
	"path/filepath"
	"time"

	"github.com/adrg/xdg"
)

// Default configuration values. Where the original behavior is well
// established (timeout, retry count, body cap, entity limits) the defaults
// match it; the rest follow conservative choices.
const (
	// DefaultTimeout is the per-attempt deadline for one HTTP request.
	// 10 seconds is generous for a single clearnet page while keeping
	// the worst case (timeout on every retry) bounded.
	DefaultTimeout = 10 * time.Second

	// DefaultMaxRetries is the number of extra attempts after the first
	// request fails transiently (timeout, connection reset, 429/5xx).
	DefaultMaxRetries = 3

	// DefaultMaxBytes caps how much of a response body is read.
	// Larger bodies are truncated, not rejected; 1.5MB covers nearly
	// all article-sized pages.
	DefaultMaxBytes = 1_500_000

	// DefaultMaxEntities limits how many entities one extraction pass
	// contributes to the graph.
	DefaultMaxEntities = 50

	// DefaultTopEntities is how many of the most-mentioned entities the
	// summary shows.
	DefaultTopEntities = 10

	// DefaultTopDomains is how many outbound link domains the summary
	// shows.
	DefaultTopDomains = 5

	// DefaultConcurrency is the number of concurrent runs when multiple
	// target URLs are given. The shared graph serializes mutations, so
	// this only parallelizes fetching and extraction.
	DefaultConcurrency = 4

	// DefaultUserAgent identifies KnowledgeMesh in HTTP requests.
	// A descriptive User-Agent lets site operators identify the traffic.
	DefaultUserAgent = "KnowledgeMesh/1.0 (+https://github.com/nao1215/knowledgemesh)"

	// AppName is the application name used for XDG directory paths.
	AppName = "knowledgemesh"
)

// Config holds all configuration options for KnowledgeMesh.
// It is populated from CLI flags, validated once, and passed through the
// application via dependency injection rather than global state.
//
// Design decision: a single flat struct instead of nested sub-structs.
// The number of options is manageable, and nesting would add complexity
// without significant benefit.
type Config struct {
	// Targets is the list of URLs to crawl. At least one is required.
	Targets []string

	// Timeout is the per-attempt deadline for each HTTP request. The
	// overall fetch time is bounded by (MaxRetries+1) * Timeout.
	Timeout time.Duration

	// MaxRetries is the number of retries on transient fetch failures.
	MaxRetries int

	// MaxBytes is the response body cap in bytes. Bodies beyond it are
	// truncated and extraction proceeds on the truncated text.
	MaxBytes int64

	// MaxEntities limits the entities kept per extraction pass.
	MaxEntities int

	// TopEntities is the size of the top-entities summary.
	TopEntities int

	// TopDomains is the size of the top-domains summary.
	TopDomains int

	// SkipLinks disables link-target insertion into the graph.
	SkipLinks bool

	// SameDomainOnly filters outbound links to the exact host of the
	// crawled page.
	SameDomainOnly bool

	// HeuristicOnly forces the capitalization-based extractor, skipping
	// the statistical model entirely. Mainly useful for reproducible
	// runs and constrained environments.
	HeuristicOnly bool

	// UserAgent is the User-Agent header sent with HTTP requests.
	UserAgent string

	// Verbose enables debug-level log output.
	Verbose bool

	// LogJSON emits log records as JSON lines instead of text, for
	// structured log aggregation.
	LogJSON bool

	// JSONReport selects JSON report output. Mutually exclusive with
	// MarkdownReport.
	JSONReport bool

	// MarkdownReport selects Markdown report output. Mutually exclusive
	// with JSONReport.
	MarkdownReport bool

	// ReportFile writes the report to a file instead of stdout.
	// Directories are created as needed.
	ReportFile string

	// ConfigFilePath is the path to the configuration file. If empty,
	// the tool searches the current directory, the XDG config
	// directory, and the user's home directory in that order.
	ConfigFilePath string

	// SiteConfigs holds per-host request settings loaded from the
	// config file.
	SiteConfigs *File

	// Concurrency is the number of concurrent runs for multiple targets.
	Concurrency int

	// DBDir is the directory for the run-history SQLite database.
	// Defaults to the XDG data directory.
	DBDir string

	// SaveToDB indicates whether completed runs are stored for the
	// history command.
	SaveToDB bool
}

// NewConfig creates a Config with default values.
//
// Design decision: a constructor instead of relying on zero values,
// because most defaults are non-zero. It also documents what the
// defaults are.
func NewConfig() *Config {
	return &Config{
		Timeout:     DefaultTimeout,
		MaxRetries:  DefaultMaxRetries,
		MaxBytes:    DefaultMaxBytes,
		MaxEntities: DefaultMaxEntities,
		TopEntities: DefaultTopEntities,
		TopDomains:  DefaultTopDomains,
		Concurrency: DefaultConcurrency,
		UserAgent:   DefaultUserAgent,
	}
}

// XDGDataDir returns the XDG data directory for KnowledgeMesh.
// On Linux: ~/.local/share/knowledgemesh
func XDGDataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// XDGConfigDir returns the XDG config directory for KnowledgeMesh.
// On Linux: ~/.config/knowledgemesh
func XDGConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// Validate checks the configuration and returns the first problem found.
// It is called once after CLI parsing, before any network access, so that
// bad input fails fast with a clear message.
func (c *Config) Validate() error {
	if len(c.Targets) == 0 {
		return ErrNoTarget
	}
	if c.Timeout <= 0 {
		return ErrInvalidTimeout
	}
	if c.MaxRetries < 0 {
		return ErrInvalidMaxRetries
	}
	if c.MaxBytes <= 0 {
		return ErrInvalidMaxBytes
	}
	if c.MaxEntities <= 0 {
		return ErrInvalidMaxEntities
	}
	if c.TopEntities < 0 || c.TopDomains < 0 {
		return ErrInvalidTopCount
	}
	if c.Concurrency <= 0 {
		return ErrInvalidConcurrency
	}
	if c.JSONReport && c.MarkdownReport {
		return ErrConflictingReportFormats
	}
	return nil
}
