package model

// ExtractionMode identifies which extractor produced a result set.
type ExtractionMode string

const (
	// ExtractionModeModel means the statistical NER model ran.
	ExtractionModeModel ExtractionMode = "model"

	// ExtractionModeHeuristic means the capitalization-based fallback
	// ran because the model could not be initialized. Results are valid
	// but less accurate, and callers should disclose that.
	ExtractionModeHeuristic ExtractionMode = "heuristic"
)

// Entity is a named entity recognized in page text. Identity is purely
// lexical: the (Text, Label) pair. Entities are not deduplicated across
// pages by coreference.
type Entity struct {
	// Text is the normalized surface text (NFC, whitespace collapsed,
	// case preserved).
	Text string `json:"text"`

	// Label is the entity type, e.g. PERSON, GPE, or MISC for the
	// heuristic fallback.
	Label string `json:"label"`

	// Count is the number of occurrences within a single page's
	// extraction pass.
	Count int `json:"count"`
}

// Extraction bundles the entities from one extraction pass together with
// the mode that produced them.
type Extraction struct {
	// Entities is ordered by descending count, ties broken by first
	// occurrence in the text, truncated to the configured maximum.
	Entities []Entity `json:"entities"`

	// Mode records which extractor ran.
	Mode ExtractionMode `json:"mode"`
}

// Heuristic reports whether the fallback extractor produced this result.
func (e *Extraction) Heuristic() bool {
	return e.Mode == ExtractionModeHeuristic
}
