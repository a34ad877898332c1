package extractor

import (
	"context"
	"fmt"
	"strings"

	"github.com/jdkato/prose/v2"

	"github.com/nao1215/knowledgemesh/internal/model"
)

// modelExtractor runs the statistical NER model bundled with
// github.com/jdkato/prose.
//
// Design decision: prose rather than shelling out to an external NLP
// service because:
//  1. The model ships inside the binary, no network or setup required
//  2. Pure Go, so cross-compilation stays trivial
//  3. Its label set (PERSON, GPE, ...) matches what reports display
type modelExtractor struct{}

// newModelExtractor probes the bundled model with a trivial document so
// that acquisition failures surface at construction time rather than on
// the first real page.
func newModelExtractor() (*modelExtractor, error) {
	if _, err := prose.NewDocument("probe", prose.WithSegmentation(false)); err != nil {
		return nil, fmt.Errorf("failed to initialize NER model: %w", err)
	}
	return &modelExtractor{}, nil
}

// Extract runs the NER model over text and aggregates its entities.
func (m *modelExtractor) Extract(ctx context.Context, text string, maxEntities int) ([]model.Entity, error) {
	if strings.TrimSpace(text) == "" {
		return []model.Entity{}, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	doc, err := prose.NewDocument(text)
	if err != nil {
		return nil, fmt.Errorf("failed to analyze text: %w", err)
	}

	mentions := make([]mention, 0, len(doc.Entities()))
	for _, ent := range doc.Entities() {
		surface := normalizeSurface(ent.Text)
		if surface == "" {
			continue
		}
		mentions = append(mentions, mention{text: surface, label: ent.Label})
	}
	return aggregate(mentions, maxEntities), nil
}

// Mode implements Extractor.
func (m *modelExtractor) Mode() model.ExtractionMode {
	return model.ExtractionModeModel
}
