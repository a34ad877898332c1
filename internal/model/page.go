package model

import "time"

// FetchResult holds everything the fetcher extracted from one page.
// A FetchResult is immutable once returned; a re-crawl produces a new
// value and the graph merges it idempotently.
type FetchResult struct {
	// URL is the normalized URL the page was fetched from.
	URL string `json:"url"`

	// StatusCode is the final HTTP response status code.
	StatusCode int `json:"status_code"`

	// ContentType is the MIME type of the response, without parameters.
	ContentType string `json:"content_type"`

	// Title is the page title from the <title> tag. Empty when absent.
	Title string `json:"title,omitempty"`

	// Text is the visible text of the page with script, style, and
	// noscript content stripped and whitespace collapsed. May be
	// truncated; see Truncated.
	Text string `json:"-"`

	// Links are the outbound hyperlink URLs discovered on the page,
	// normalized, deduplicated, in first-seen order. Invalid hrefs are
	// dropped silently.
	Links []string `json:"links"`

	// Truncated reports whether the response body hit the configured
	// size cap. Truncation is not an error; extraction proceeds on the
	// truncated text.
	Truncated bool `json:"truncated,omitempty"`

	// FetchedAt is the time the successful attempt completed.
	FetchedAt time.Time `json:"fetched_at"`

	// Attempts is the number of HTTP attempts made, including retries.
	Attempts int `json:"attempts"`
}
