// Package urlnorm canonicalizes and validates HTTP(S) URLs.
//
// Every URL entering the system passes through Normalize before it is used
// as a node identity or fetched. Two URLs that differ only in default port,
// trailing slash, or fragment normalize to the same string, which keeps
// graph deduplication a plain map lookup.
package urlnorm

import (
	"fmt"
	"net/url"
	"strings"
)

// Normalize canonicalizes a raw URL string and validates it.
//
// Applied rules:
//   - scheme and host are lower-cased
//   - default ports (80 for http, 443 for https) are stripped
//   - trailing slashes are stripped from the path; a bare root path
//     becomes empty so "https://example.com/" and "https://example.com"
//     are the same identity
//   - the fragment is dropped; the query is kept
//
// Only http and https URLs are accepted. A URL without a scheme is
// rejected rather than guessed at: silently prefixing "https://" hides
// typos and makes the validation boundary fuzzy.
func Normalize(raw string) (string, error) {
	candidate := strings.TrimSpace(raw)
	if candidate == "" {
		return "", ErrEmptyURL
	}

	u, err := url.Parse(candidate)
	if err != nil {
		return "", fmt.Errorf("%w: %q", ErrMalformedURL, raw)
	}

	scheme := strings.ToLower(u.Scheme)
	if scheme != "http" && scheme != "https" {
		return "", fmt.Errorf("%w: %q", ErrUnsupportedScheme, raw)
	}
	u.Scheme = scheme

	if u.Host == "" {
		return "", fmt.Errorf("%w: %q", ErrMissingHost, raw)
	}
	u.Host = strings.ToLower(u.Host)

	// Strip default ports so http://example.com:80 and http://example.com
	// share one identity. Trim the suffix textually: rebuilding the host
	// from u.Hostname() would drop the brackets an IPv6 literal needs.
	switch scheme {
	case "http":
		u.Host = strings.TrimSuffix(u.Host, ":80")
	case "https":
		u.Host = strings.TrimSuffix(u.Host, ":443")
	}

	u.Path = normalizePath(u.Path)
	u.Fragment = ""
	u.RawFragment = ""

	return u.String(), nil
}

// normalizePath strips trailing slashes. The root path collapses to the
// empty string so the host-only form is the canonical one.
func normalizePath(path string) string {
	if path == "" || path == "/" {
		return ""
	}
	return strings.TrimRight(path, "/")
}

// Host returns the normalized host (including any non-default port) of a
// URL, or an error if the URL does not normalize.
func Host(raw string) (string, error) {
	normalized, err := Normalize(raw)
	if err != nil {
		return "", err
	}
	u, err := url.Parse(normalized)
	if err != nil {
		return "", fmt.Errorf("%w: %q", ErrMalformedURL, raw)
	}
	return u.Host, nil
}

// MustHost returns the host of an already-normalized URL, or an empty
// string if the URL is invalid. Intended for grouping queries where the
// input has already passed Normalize.
func MustHost(normalized string) string {
	u, err := url.Parse(normalized)
	if err != nil {
		return ""
	}
	return u.Host
}
