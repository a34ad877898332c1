// Package fetcher retrieves a single web page and extracts its visible
// text and outbound links.
//
// # Behavior
//
// One Fetch call issues an HTTP GET with a per-attempt deadline. Transient
// failures (timeouts, reset connections, HTTP 429/5xx) are retried with
// doubling backoff up to the configured retry count; everything else
// fails immediately with a classified error. The content type is checked
// against a text-like allowlist before the body is read, and the body is
// truncated at a soft byte cap without error.
//
// # Scope
//
// The fetcher never follows links itself; it only reports them. Recursive
// crawling is deliberately out of scope, so there is no queue, no depth
// tracking, and no politeness delay.
//
// # Observability
//
// Every attempt emits one structured log record (url, attempt, outcome,
// status, latency). These records exist for observability, not
// correctness; callers must not parse them.
package fetcher
