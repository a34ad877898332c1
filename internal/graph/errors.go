package graph

import "errors"

var (
	// ErrEmptyPageURL means a page operation received an empty URL.
	ErrEmptyPageURL = errors.New("graph: page URL is empty")

	// ErrEmptyEntityText means an entity had no surface text.
	ErrEmptyEntityText = errors.New("graph: entity text is empty")
)
