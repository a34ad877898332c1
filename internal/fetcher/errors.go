package fetcher

import (
	"errors"
	"fmt"
)

// Kind classifies a fetch failure. The transient kinds (timeout, server
// unavailable) are the only ones the retry loop acts on; everything else
// fails fast.
type Kind string

const (
	// KindTimeout means the per-attempt deadline was exceeded on every
	// attempt.
	KindTimeout Kind = "timeout"

	// KindClient means the server rejected the request (4xx other than
	// 404/429) or the request itself was unusable.
	KindClient Kind = "client"

	// KindNotFound means the server returned 404.
	KindNotFound Kind = "not_found"

	// KindServerUnavailable means a transient server-side failure
	// (429/5xx or a reset connection) persisted through all retries.
	KindServerUnavailable Kind = "server_unavailable"

	// KindUnsupportedContentType means the response is not a text-like
	// type. Detected from the Content-Type header so the body is not
	// downloaded.
	KindUnsupportedContentType Kind = "unsupported_content_type"

	// KindTooLarge means the declared Content-Length exceeds the hard
	// ceiling. Bodies that merely exceed the soft cap are truncated,
	// not rejected.
	KindTooLarge Kind = "too_large"

	// KindDNS means the host could not be resolved.
	KindDNS Kind = "dns"
)

// Error is a classified fetch failure for one URL.
type Error struct {
	// Kind is the failure classification.
	Kind Kind

	// URL is the URL the fetch targeted.
	URL string

	// Err is the underlying error, if any.
	Err error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("fetch %s: %s", e.URL, e.Kind)
	}
	return fmt.Sprintf("fetch %s: %s: %v", e.URL, e.Kind, e.Err)
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.Err
}

// IsKind reports whether err is a fetch Error of the given kind.
func IsKind(err error, kind Kind) bool {
	var fe *Error
	return errors.As(err, &fe) && fe.Kind == kind
}
