package report

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/nao1215/knowledgemesh/internal/model"
)

func sampleResult() *model.PipelineResult {
	return &model.PipelineResult{
		URL:         "https://example.com",
		Stage:       model.StageDone,
		StartedAt:   time.Date(2026, 8, 1, 9, 0, 0, 0, time.UTC),
		Elapsed:     340 * time.Millisecond,
		StatusCode:  200,
		Title:       "Example Domain",
		EntityCount: 2,
		LinkCount:   3,
		GraphDelta:  model.GraphDelta{NodesAdded: 5, EdgesAdded: 4},
		TopEntities: []model.EntityRank{
			{Text: "Ada Lovelace", Label: "PERSON", Mentions: 3},
			{Text: "London", Label: "GPE", Mentions: 1},
		},
		TopDomains: []model.DomainRank{
			{Domain: "docs.example.org", Links: 2},
		},
	}
}

func failedResult() *model.PipelineResult {
	return &model.PipelineResult{
		URL:         "https://example.com/gone",
		Stage:       model.StageFailed,
		FailedStage: model.StageFetching,
		Error:       "fetching: page not found",
		StartedAt:   time.Date(2026, 8, 1, 9, 0, 0, 0, time.UTC),
		Elapsed:     80 * time.Millisecond,
	}
}

// TestSimpleWriter tests the human-readable format.
func TestSimpleWriter(t *testing.T) {
	t.Parallel()

	t.Run("writes successful run", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		n, err := NewSimpleWriter(&buf).Write(sampleResult())
		if err != nil {
			t.Fatalf("Write: %v", err)
		}
		if n != buf.Len() {
			t.Errorf("reported %d bytes, wrote %d", n, buf.Len())
		}

		out := buf.String()
		for _, want := range []string{
			"https://example.com",
			"Example Domain",
			"Ada Lovelace (PERSON) - 3 mention(s)",
			"docs.example.org - 2 link(s)",
			"+5 nodes, +4 edges",
		} {
			if !strings.Contains(out, want) {
				t.Errorf("output missing %q:\n%s", want, out)
			}
		}
	})

	t.Run("writes failed run", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewSimpleWriter(&buf).Write(failedResult()); err != nil {
			t.Fatalf("Write: %v", err)
		}

		out := buf.String()
		if !strings.Contains(out, "FAILED during fetching") {
			t.Errorf("output missing failure stage:\n%s", out)
		}
		if strings.Contains(out, "TOP ENTITIES") {
			t.Error("failed run must not render rankings")
		}
	})

	t.Run("discloses heuristic mode", func(t *testing.T) {
		t.Parallel()

		result := sampleResult()
		result.HeuristicMode = true

		var buf bytes.Buffer
		if _, err := NewSimpleWriter(&buf).Write(result); err != nil {
			t.Fatalf("Write: %v", err)
		}
		if !strings.Contains(buf.String(), "heuristic fallback") {
			t.Error("heuristic mode not disclosed")
		}
	})
}

// TestJSONWriter tests the machine-readable format.
func TestJSONWriter(t *testing.T) {
	t.Parallel()

	t.Run("round trips through JSON", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewJSONWriter(&buf).Write(sampleResult()); err != nil {
			t.Fatalf("Write: %v", err)
		}

		var decoded model.PipelineResult
		if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
			t.Fatalf("output is not valid JSON: %v", err)
		}
		if decoded.URL != "https://example.com" || len(decoded.TopEntities) != 2 {
			t.Errorf("decoded = %+v", decoded)
		}
	})

	t.Run("pretty print indents output", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewJSONWriter(&buf, WithPrettyPrint()).Write(sampleResult()); err != nil {
			t.Fatalf("Write: %v", err)
		}
		if !strings.Contains(buf.String(), "\n  ") {
			t.Error("output is not indented")
		}
	})
}

// TestMarkdownWriter tests the documentation format.
func TestMarkdownWriter(t *testing.T) {
	t.Parallel()

	t.Run("writes tables for a successful run", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewMarkdownWriter(&buf).Write(sampleResult()); err != nil {
			t.Fatalf("Write: %v", err)
		}

		out := buf.String()
		for _, want := range []string{
			"# Knowledge Mesh Report",
			"## Top Entities",
			"Ada Lovelace",
			"docs.example.org",
		} {
			if !strings.Contains(out, want) {
				t.Errorf("output missing %q:\n%s", want, out)
			}
		}
	})

	t.Run("writes failure section", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewMarkdownWriter(&buf).Write(failedResult()); err != nil {
			t.Fatalf("Write: %v", err)
		}
		if !strings.Contains(buf.String(), "## Failure") {
			t.Errorf("output missing failure section:\n%s", buf.String())
		}
	})
}

// TestMultiWriter tests fan-out to several destinations.
func TestMultiWriter(t *testing.T) {
	t.Parallel()

	var text, jsonBuf bytes.Buffer
	mw := NewMultiWriter(
		NewSimpleWriter(&text),
		NewJSONWriter(&jsonBuf),
	)

	if _, err := mw.Write(sampleResult()); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if text.Len() == 0 || jsonBuf.Len() == 0 {
		t.Error("multi writer skipped a destination")
	}
}
