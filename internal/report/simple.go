package report

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/nao1215/knowledgemesh/internal/model"
)

// SimpleWriter outputs human-readable text summaries.
//
// Design decision: We use plain text with ASCII formatting rather than
// ANSI colors by default because:
// 1. It works in all terminals without compatibility issues
// 2. It's easier to pipe to files or other tools
// 3. Color can be added as an option later if needed
type SimpleWriter struct {
	baseWriter

	// verbose enables additional detail in the output.
	verbose bool
}

// SimpleWriterOption configures a SimpleWriter.
type SimpleWriterOption func(*SimpleWriter)

// WithVerbose enables verbose output with additional details.
func WithVerbose(verbose bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.verbose = verbose
	}
}

// NewSimpleWriter creates a SimpleWriter that outputs to the given writer.
func NewSimpleWriter(output io.Writer, opts ...SimpleWriterOption) *SimpleWriter {
	w := &SimpleWriter{
		baseWriter: newBaseWriter(output),
	}

	for _, opt := range opts {
		opt(w)
	}

	return w
}

// Write outputs the result in human-readable format.
func (w *SimpleWriter) Write(result *model.PipelineResult) (int, error) {
	var sb strings.Builder

	w.writeHeader(&sb, result)
	if result.Failed() {
		w.writeFailure(&sb, result)
	} else {
		w.writeSummary(&sb, result)
		w.writeRankings(&sb, result)
	}
	w.writeFooter(&sb)

	return w.output.Write([]byte(sb.String()))
}

// writeHeader writes the run header.
func (w *SimpleWriter) writeHeader(sb *strings.Builder, result *model.PipelineResult) {
	sb.WriteString("\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")
	sb.WriteString("                       KNOWLEDGE MESH RUN\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n\n")

	url := result.URL
	if url == "" {
		url = "(invalid target)"
	}
	sb.WriteString(fmt.Sprintf("Target:   %s\n", url))
	sb.WriteString(fmt.Sprintf("Started:  %s\n", result.StartedAt.Format("2006-01-02 15:04:05 MST")))
	sb.WriteString(fmt.Sprintf("Elapsed:  %s\n", result.Elapsed.Round(time.Millisecond)))
	sb.WriteString("\n")
}

// writeFailure writes the failure section for failed runs.
func (w *SimpleWriter) writeFailure(sb *strings.Builder, result *model.PipelineResult) {
	sb.WriteString(fmt.Sprintf("Status:   FAILED during %s\n", result.FailedStage))
	sb.WriteString(fmt.Sprintf("Error:    %s\n", result.Error))
	sb.WriteString("\n")
}

// writeSummary writes the fetch and extraction summary.
func (w *SimpleWriter) writeSummary(sb *strings.Builder, result *model.PipelineResult) {
	sb.WriteString("Status:   Complete\n")
	if result.Title != "" {
		sb.WriteString(fmt.Sprintf("Title:    %s\n", result.Title))
	}
	sb.WriteString(fmt.Sprintf("HTTP:     %d\n", result.StatusCode))
	sb.WriteString(fmt.Sprintf("Entities: %d", result.EntityCount))
	if result.HeuristicMode {
		sb.WriteString("  (heuristic fallback; NER model unavailable)")
	}
	sb.WriteString("\n")
	sb.WriteString(fmt.Sprintf("Links:    %d\n", result.LinkCount))
	if result.Truncated {
		sb.WriteString("Note:     page body truncated at the size cap\n")
	}
	sb.WriteString(fmt.Sprintf("Graph:    +%d nodes, +%d edges\n",
		result.GraphDelta.NodesAdded, result.GraphDelta.EdgesAdded))
	sb.WriteString("\n")
}

// writeRankings writes the top entity and domain sections.
func (w *SimpleWriter) writeRankings(sb *strings.Builder, result *model.PipelineResult) {
	if len(result.TopEntities) > 0 {
		sb.WriteString(strings.Repeat("-", 70))
		sb.WriteString("\n")
		sb.WriteString("TOP ENTITIES\n")
		sb.WriteString(strings.Repeat("-", 70))
		sb.WriteString("\n\n")
		for i, rank := range result.TopEntities {
			sb.WriteString(fmt.Sprintf("  %2d. %s (%s) - %d mention(s)\n",
				i+1, rank.Text, rank.Label, rank.Mentions))
		}
		sb.WriteString("\n")
	}

	if len(result.TopDomains) > 0 {
		sb.WriteString(strings.Repeat("-", 70))
		sb.WriteString("\n")
		sb.WriteString("TOP LINKED DOMAINS\n")
		sb.WriteString(strings.Repeat("-", 70))
		sb.WriteString("\n\n")
		for i, rank := range result.TopDomains {
			sb.WriteString(fmt.Sprintf("  %2d. %s - %d link(s)\n",
				i+1, rank.Domain, rank.Links))
		}
		sb.WriteString("\n")
	}
}

// writeFooter writes the report footer.
func (w *SimpleWriter) writeFooter(sb *strings.Builder) {
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")
	sb.WriteString("Report generated by KnowledgeMesh\n")
	sb.WriteString("https://github.com/nao1215/knowledgemesh\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")
}
