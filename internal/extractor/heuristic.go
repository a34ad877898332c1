package extractor

import (
	"context"
	"regexp"
	"strings"

	"github.com/nao1215/knowledgemesh/internal/model"
)

// heuristicLabel is the label assigned to every heuristic match. The
// fallback cannot distinguish entity types.
const heuristicLabel = "MISC"

// properRunPattern matches runs of capitalized words, e.g. "New York"
// or "Grace Hopper".
var properRunPattern = regexp.MustCompile(`\b[A-Z][a-zA-Z]+(?:\s+[A-Z][a-zA-Z]+)*\b`)

// heuristicStopwords are capitalized function words that the run
// pattern would otherwise pick up at sentence boundaries or in titles.
var heuristicStopwords = map[string]bool{
	"The": true, "This": true, "That": true, "These": true, "Those": true,
	"And": true, "But": true, "For": true, "Not": true, "With": true,
	"When": true, "While": true, "However": true, "Although": true,
	"She": true, "They": true, "His": true, "Her": true, "Its": true,
	"There": true, "Here": true, "What": true, "Who": true, "How": true,
	"Why": true, "Then": true, "Also": true, "Some": true, "Many": true,
	"Most": true, "After": true, "Before": true, "During": true,
}

// heuristicExtractor is the capitalization-based fallback used when the
// statistical model is unavailable.
type heuristicExtractor struct{}

// Extract scans for capitalized word runs. Single-word runs that open a
// sentence are skipped because ordinary sentence capitalization would
// otherwise flood the results; multi-word runs are kept regardless.
func (h *heuristicExtractor) Extract(ctx context.Context, text string, maxEntities int) ([]model.Entity, error) {
	if strings.TrimSpace(text) == "" {
		return []model.Entity{}, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	normalized := normalizeSurface(text)

	var mentions []mention
	for _, loc := range properRunPattern.FindAllStringIndex(normalized, -1) {
		surface := normalized[loc[0]:loc[1]]
		if len(surface) < 3 {
			continue
		}
		if !strings.Contains(surface, " ") {
			if heuristicStopwords[surface] || sentenceInitial(normalized, loc[0]) {
				continue
			}
		}
		mentions = append(mentions, mention{text: surface, label: heuristicLabel})
	}
	return aggregate(mentions, maxEntities), nil
}

// Mode implements Extractor.
func (h *heuristicExtractor) Mode() model.ExtractionMode {
	return model.ExtractionModeHeuristic
}

// sentenceInitial reports whether the token starting at pos opens a
// sentence: it is preceded only by whitespace or quotes back to the
// start of the text or a sentence terminator.
func sentenceInitial(text string, pos int) bool {
	for i := pos - 1; i >= 0; i-- {
		switch text[i] {
		case ' ', '\t', '"', '\'', '(', '[':
			continue
		case '.', '!', '?':
			return true
		default:
			return false
		}
	}
	return true
}
