package pipeline

import (
	"context"

	"github.com/nao1215/knowledgemesh/internal/extractor"
	"github.com/nao1215/knowledgemesh/internal/fetcher"
	"github.com/nao1215/knowledgemesh/internal/graph"
	"github.com/nao1215/knowledgemesh/internal/model"
	"github.com/nao1215/knowledgemesh/internal/urlnorm"
)

// Step is one stage of the pipeline. Steps communicate through the
// shared run state and return an error to abort the run.
type Step interface {
	// Name returns a short human-readable step name.
	Name() string

	// Stage returns the pipeline stage this step represents.
	Stage() model.Stage

	// Run executes the step, reading and writing the run state.
	Run(ctx context.Context, s *state) error
}

// state is the mutable context threaded through the steps of one run.
type state struct {
	rawURL     string
	url        string
	fetch      *model.FetchResult
	extraction *model.Extraction
	result     *model.PipelineResult
	options    Options
}

// validateStep normalizes and validates the target URL.
type validateStep struct{}

func (validateStep) Name() string       { return "validate" }
func (validateStep) Stage() model.Stage { return model.StageValidating }

func (validateStep) Run(_ context.Context, s *state) error {
	normalized, err := urlnorm.Normalize(s.rawURL)
	if err != nil {
		return err
	}
	s.url = normalized
	s.result.URL = normalized
	return nil
}

// fetchStep retrieves the page. The fetcher is resolved per target so
// per-site overrides apply.
type fetchStep struct {
	resolve func(normalizedURL string) *fetcher.Fetcher
}

func (fetchStep) Name() string       { return "fetch" }
func (fetchStep) Stage() model.Stage { return model.StageFetching }

func (f fetchStep) Run(ctx context.Context, s *state) error {
	result, err := f.resolve(s.url).Fetch(ctx, s.url)
	if err != nil {
		return err
	}
	s.fetch = result
	s.result.StatusCode = result.StatusCode
	s.result.Title = result.Title
	s.result.Truncated = result.Truncated
	s.result.LinkCount = len(result.Links)
	return nil
}

// extractStep runs named-entity extraction over the fetched text.
type extractStep struct {
	provider *extractor.Provider
}

func (extractStep) Name() string       { return "extract" }
func (extractStep) Stage() model.Stage { return model.StageExtracting }

func (e extractStep) Run(ctx context.Context, s *state) error {
	extraction, err := e.provider.Extract(ctx, s.fetch.Text, s.options.MaxEntities)
	if err != nil {
		return err
	}
	s.extraction = extraction
	s.result.EntityCount = len(extraction.Entities)
	s.result.HeuristicMode = extraction.Heuristic()
	return nil
}

// graphStep inserts the page, its entities, and optionally its links
// into the shared graph.
type graphStep struct {
	builder *graph.Builder
}

func (graphStep) Name() string       { return "graph-update" }
func (graphStep) Stage() model.Stage { return model.StageGraphUpdating }

func (g graphStep) Run(_ context.Context, s *state) error {
	var total model.GraphDelta

	delta, err := g.builder.AddPage(s.fetch)
	if err != nil {
		return err
	}
	total.NodesAdded += delta.NodesAdded
	total.EdgesAdded += delta.EdgesAdded

	delta, err = g.builder.AddEntities(s.url, s.extraction.Entities)
	if err != nil {
		return err
	}
	total.NodesAdded += delta.NodesAdded
	total.EdgesAdded += delta.EdgesAdded

	if !s.options.SkipLinks {
		delta, err = g.builder.AddLinks(s.url, s.fetch.Links)
		if err != nil {
			return err
		}
		total.NodesAdded += delta.NodesAdded
		total.EdgesAdded += delta.EdgesAdded
	}

	s.result.GraphDelta = total
	return nil
}
