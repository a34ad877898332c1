package extractor

import (
	"context"
	"sort"
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/nao1215/knowledgemesh/internal/model"
)

// Extractor recognizes named entities in plain text.
type Extractor interface {
	// Extract returns the aggregated entities found in text, ordered by
	// descending count with ties broken by first occurrence, truncated
	// to maxEntities (0 means unlimited). Empty or whitespace-only text
	// yields an empty slice and no error.
	Extract(ctx context.Context, text string, maxEntities int) ([]model.Entity, error)

	// Mode identifies which extractor this is.
	Mode() model.ExtractionMode
}

// mention is a single raw occurrence before aggregation.
type mention struct {
	text  string
	label string
}

// normalizeSurface canonicalizes entity surface text: NFC normalization
// and whitespace collapsed to single spaces. Case is preserved so that
// "Apple" and "apple" stay distinct.
func normalizeSurface(s string) string {
	return strings.Join(strings.Fields(norm.NFC.String(s)), " ")
}

// aggregate folds raw mentions into counted entities. Ordering is by
// descending count; the stable sort preserves first-occurrence order
// for ties.
func aggregate(mentions []mention, maxEntities int) []model.Entity {
	type key struct {
		text  string
		label string
	}

	counts := make(map[key]int, len(mentions))
	order := make([]key, 0, len(mentions))
	for _, m := range mentions {
		k := key{text: m.text, label: m.label}
		if counts[k] == 0 {
			order = append(order, k)
		}
		counts[k]++
	}

	entities := make([]model.Entity, 0, len(order))
	for _, k := range order {
		entities = append(entities, model.Entity{
			Text:  k.text,
			Label: k.label,
			Count: counts[k],
		})
	}

	sort.SliceStable(entities, func(i, j int) bool {
		return entities[i].Count > entities[j].Count
	})

	if maxEntities > 0 && len(entities) > maxEntities {
		entities = entities[:maxEntities]
	}
	return entities
}
