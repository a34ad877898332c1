package model

import (
	"fmt"
	"time"
)

// Stage identifies a phase of the crawl pipeline. A run moves through the
// stages in order; any failure moves it directly to StageFailed.
type Stage string

const (
	// StageIdle is the state before a run starts.
	StageIdle Stage = "idle"

	// StageValidating covers URL normalization and validation.
	StageValidating Stage = "validating"

	// StageFetching covers the HTTP fetch including retries.
	StageFetching Stage = "fetching"

	// StageExtracting covers entity extraction.
	StageExtracting Stage = "extracting"

	// StageGraphUpdating covers node and edge insertion.
	StageGraphUpdating Stage = "graph_updating"

	// StageDone is the successful terminal state.
	StageDone Stage = "done"

	// StageFailed is the failed terminal state, reachable from any
	// non-idle stage.
	StageFailed Stage = "failed"
)

// String returns the stage name.
func (s Stage) String() string {
	return string(s)
}

// StageError wraps an error with the pipeline stage it occurred in.
// The underlying error is preserved verbatim for errors.Is/As.
type StageError struct {
	// Stage is the stage that failed.
	Stage Stage

	// Err is the underlying failure.
	Err error
}

// Error implements the error interface.
func (e *StageError) Error() string {
	return fmt.Sprintf("%s: %v", e.Stage, e.Err)
}

// Unwrap returns the underlying error.
func (e *StageError) Unwrap() error {
	return e.Err
}

// GraphDelta summarizes what one run added to the session graph.
// Re-running the same page yields a zero delta because insertion is
// idempotent.
type GraphDelta struct {
	// NodesAdded is the number of new nodes inserted.
	NodesAdded int `json:"nodes_added"`

	// EdgesAdded is the number of new edges inserted.
	EdgesAdded int `json:"edges_added"`
}

// EntityRank is one row of the top-entities query.
type EntityRank struct {
	// Text is the entity surface text.
	Text string `json:"text"`

	// Label is the entity type.
	Label string `json:"label"`

	// Mentions is the total mention count across pages in the graph.
	Mentions int `json:"mentions"`
}

// DomainRank is one row of the top-outbound-domains query.
type DomainRank struct {
	// Domain is the normalized host of the link targets.
	Domain string `json:"domain"`

	// Links is the number of LINKS_TO edges pointing at that host.
	Links int `json:"links"`
}

// PipelineResult is the structured outcome of one orchestrated run,
// consumable by any presentation layer.
type PipelineResult struct {
	// URL is the normalized target URL. Empty when validation failed.
	URL string `json:"url"`

	// Stage is the terminal stage: StageDone or StageFailed.
	Stage Stage `json:"stage"`

	// FailedStage names the stage a failed run stopped in.
	FailedStage Stage `json:"failed_stage,omitempty"`

	// Error is the failure message for failed runs.
	Error string `json:"error,omitempty"`

	// StartedAt is when the run began.
	StartedAt time.Time `json:"started_at"`

	// Elapsed is the total wall-clock duration of the run.
	Elapsed time.Duration `json:"elapsed"`

	// StatusCode is the HTTP status of the fetch, when one completed.
	StatusCode int `json:"status_code,omitempty"`

	// Title is the fetched page title.
	Title string `json:"title,omitempty"`

	// EntityCount is the number of distinct entities extracted.
	EntityCount int `json:"entity_count"`

	// LinkCount is the number of outbound links retained after
	// filtering.
	LinkCount int `json:"link_count"`

	// HeuristicMode reports that the extraction fallback ran. Advisory
	// only; the run still succeeds.
	HeuristicMode bool `json:"heuristic_mode"`

	// Truncated reports that the page body was cut at the size cap.
	Truncated bool `json:"truncated,omitempty"`

	// GraphDelta is what this run added to the session graph.
	GraphDelta GraphDelta `json:"graph_delta"`

	// TopEntities are the highest-mention entities in the graph after
	// this run.
	TopEntities []EntityRank `json:"top_entities,omitempty"`

	// TopDomains are the most-linked outbound domains in the graph
	// after this run.
	TopDomains []DomainRank `json:"top_domains,omitempty"`
}

// Failed reports whether the run ended in StageFailed.
func (r *PipelineResult) Failed() bool {
	return r.Stage == StageFailed
}
