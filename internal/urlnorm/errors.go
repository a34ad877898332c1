package urlnorm

import "errors"

var (
	// ErrEmptyURL is returned when the input is empty or whitespace only.
	ErrEmptyURL = errors.New("url is empty")

	// ErrMalformedURL is returned when the input cannot be parsed as a URL.
	ErrMalformedURL = errors.New("url is malformed")

	// ErrUnsupportedScheme is returned for schemes other than http/https,
	// including URLs that carry no scheme at all.
	ErrUnsupportedScheme = errors.New("url scheme is not http or https")

	// ErrMissingHost is returned when the URL has no authority component.
	ErrMissingHost = errors.New("url has no host")
)
