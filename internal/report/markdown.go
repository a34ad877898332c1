package report

import (
	"io"
	"strconv"
	"time"

	"github.com/nao1215/markdown"

	"github.com/nao1215/knowledgemesh/internal/model"
)

// MarkdownWriter outputs results in Markdown format for documentation
// and sharing.
//
// Design decision: We use the nao1215/markdown library for fluent
// markdown generation which provides:
// 1. Type-safe markdown generation
// 2. Support for tables, lists, and code blocks
// 3. GitHub-flavored markdown alerts
type MarkdownWriter struct {
	baseWriter
}

// NewMarkdownWriter creates a MarkdownWriter that outputs to the given writer.
func NewMarkdownWriter(output io.Writer) *MarkdownWriter {
	return &MarkdownWriter{
		baseWriter: newBaseWriter(output),
	}
}

// Write outputs the result in Markdown format.
func (w *MarkdownWriter) Write(result *model.PipelineResult) (int, error) {
	md := markdown.NewMarkdown(w.output)

	w.writeHeader(md, result)
	if result.Failed() {
		w.writeFailure(md, result)
	} else {
		w.writeRankings(md, result)
	}

	return len(md.String()), md.Build()
}

// writeHeader writes the run overview table.
func (w *MarkdownWriter) writeHeader(md *markdown.Markdown, result *model.PipelineResult) {
	md.H1("Knowledge Mesh Report")
	md.PlainText("")

	url := result.URL
	if url == "" {
		url = "(invalid target)"
	}

	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows: [][]string{
			{"Target", "`" + url + "`"},
			{"Started", result.StartedAt.Format("2006-01-02 15:04:05 MST")},
			{"Elapsed", result.Elapsed.Round(time.Millisecond).String()},
			{"Status", w.getStatusText(result)},
			{"Entities", strconv.Itoa(result.EntityCount)},
			{"Links", strconv.Itoa(result.LinkCount)},
			{"Graph delta", "+" + strconv.Itoa(result.GraphDelta.NodesAdded) + " nodes, +" +
				strconv.Itoa(result.GraphDelta.EdgesAdded) + " edges"},
		},
	})
	md.PlainText("")

	if result.HeuristicMode {
		md.Warning("The NER model was unavailable; entities come from the capitalization heuristic and are less accurate.")
		md.PlainText("")
	}
	if result.Truncated {
		md.Note("The page body was truncated at the size cap; entity counts cover the retained portion only.")
		md.PlainText("")
	}
}

// getStatusText returns the status cell based on the run outcome.
func (w *MarkdownWriter) getStatusText(result *model.PipelineResult) string {
	if result.Failed() {
		return "❌ Failed during " + result.FailedStage.String()
	}
	return "✅ Complete"
}

// writeFailure writes the failure section for failed runs.
func (w *MarkdownWriter) writeFailure(md *markdown.Markdown, result *model.PipelineResult) {
	md.H2("Failure")
	md.PlainText("")
	md.PlainText(result.Error)
	md.PlainText("")
}

// writeRankings writes the top entity and domain tables.
func (w *MarkdownWriter) writeRankings(md *markdown.Markdown, result *model.PipelineResult) {
	md.H2("Top Entities")
	md.PlainText("")

	if len(result.TopEntities) == 0 {
		md.PlainText("No entities extracted.")
		md.PlainText("")
	} else {
		rows := make([][]string, 0, len(result.TopEntities))
		for _, rank := range result.TopEntities {
			rows = append(rows, []string{rank.Text, rank.Label, strconv.Itoa(rank.Mentions)})
		}
		md.Table(markdown.TableSet{
			Header: []string{"Entity", "Label", "Mentions"},
			Rows:   rows,
		})
		md.PlainText("")
	}

	md.H2("Top Linked Domains")
	md.PlainText("")

	if len(result.TopDomains) == 0 {
		md.PlainText("No outbound links recorded.")
		md.PlainText("")
		return
	}
	rows := make([][]string, 0, len(result.TopDomains))
	for _, rank := range result.TopDomains {
		rows = append(rows, []string{rank.Domain, strconv.Itoa(rank.Links)})
	}
	md.Table(markdown.TableSet{
		Header: []string{"Domain", "Links"},
		Rows:   rows,
	})
	md.PlainText("")
}
