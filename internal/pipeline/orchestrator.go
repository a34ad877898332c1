package pipeline

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/nao1215/knowledgemesh/internal/config"
	"github.com/nao1215/knowledgemesh/internal/extractor"
	"github.com/nao1215/knowledgemesh/internal/fetcher"
	"github.com/nao1215/knowledgemesh/internal/graph"
	"github.com/nao1215/knowledgemesh/internal/model"
)

// Options are the per-run knobs of the pipeline.
type Options struct {
	// MaxEntities caps how many distinct entities one page contributes.
	MaxEntities int

	// SkipLinks disables link edges; only the page and its entities
	// enter the graph.
	SkipLinks bool

	// TopEntities is how many entity rows the result carries.
	TopEntities int

	// TopDomains is how many domain rows the result carries.
	TopDomains int
}

// withDefaults fills zero fields with the standard defaults.
func (o Options) withDefaults() Options {
	if o.MaxEntities == 0 {
		o.MaxEntities = config.DefaultMaxEntities
	}
	if o.TopEntities == 0 {
		o.TopEntities = config.DefaultTopEntities
	}
	if o.TopDomains == 0 {
		o.TopDomains = config.DefaultTopDomains
	}
	return o
}

// FetcherResolver picks the fetcher for a normalized target URL,
// allowing per-site overrides such as cookies or custom size caps.
type FetcherResolver func(normalizedURL string) *fetcher.Fetcher

// Orchestrator runs the crawl pipeline. It is safe for concurrent use;
// runs share the graph builder and extractor provider.
type Orchestrator struct {
	resolve  FetcherResolver
	provider *extractor.Provider
	graph    *graph.Builder
	options  Options
	logger   *slog.Logger
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithFetcher sets a single fetcher used for every target.
func WithFetcher(f *fetcher.Fetcher) Option {
	return func(o *Orchestrator) {
		o.resolve = func(string) *fetcher.Fetcher { return f }
	}
}

// WithFetcherResolver sets a per-target fetcher resolver.
func WithFetcherResolver(resolve FetcherResolver) Option {
	return func(o *Orchestrator) {
		o.resolve = resolve
	}
}

// WithProvider sets the extractor provider.
func WithProvider(p *extractor.Provider) Option {
	return func(o *Orchestrator) {
		o.provider = p
	}
}

// WithGraph sets the shared graph builder.
func WithGraph(g *graph.Builder) Option {
	return func(o *Orchestrator) {
		o.graph = g
	}
}

// WithOptions sets the per-run options.
func WithOptions(opts Options) Option {
	return func(o *Orchestrator) {
		o.options = opts
	}
}

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *Orchestrator) {
		o.logger = logger
	}
}

// New creates an Orchestrator. Without options it uses a default
// fetcher, the bundled NER model, and a fresh empty graph.
func New(opts ...Option) *Orchestrator {
	o := &Orchestrator{
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(o)
	}

	if o.resolve == nil {
		f := fetcher.New(fetcher.WithLogger(o.logger))
		o.resolve = func(string) *fetcher.Fetcher { return f }
	}
	if o.provider == nil {
		o.provider = extractor.NewProvider(extractor.WithLogger(o.logger))
	}
	if o.graph == nil {
		o.graph = graph.NewBuilder()
	}
	o.options = o.options.withDefaults()
	return o
}

// Graph exposes the shared graph builder, e.g. for persistence or
// snapshot export after a batch.
func (o *Orchestrator) Graph() *graph.Builder {
	return o.graph
}

// steps returns the pipeline stages in execution order.
func (o *Orchestrator) steps() []Step {
	return []Step{
		validateStep{},
		fetchStep{resolve: o.resolve},
		extractStep{provider: o.provider},
		graphStep{builder: o.graph},
	}
}

// Run processes one target URL through the full pipeline. Failures are
// captured in the result rather than returned; a batch keeps going when
// one target fails.
func (o *Orchestrator) Run(ctx context.Context, rawURL string) *model.PipelineResult {
	started := time.Now()
	result := &model.PipelineResult{
		Stage:     model.StageIdle,
		StartedAt: started,
	}
	s := &state{
		rawURL:  rawURL,
		result:  result,
		options: o.options,
	}

	for _, step := range o.steps() {
		o.logger.Debug("pipeline stage",
			"step", step.Name(),
			"stage", step.Stage().String(),
			"url", rawURL,
		)

		if err := step.Run(ctx, s); err != nil {
			stageErr := &model.StageError{Stage: step.Stage(), Err: err}
			result.Stage = model.StageFailed
			result.FailedStage = step.Stage()
			result.Error = stageErr.Error()
			result.Elapsed = time.Since(started)

			o.logger.Warn("pipeline run failed",
				"url", rawURL,
				"stage", step.Stage().String(),
				"error", err.Error(),
			)
			return result
		}
	}

	result.Stage = model.StageDone
	result.TopEntities = o.graph.TopEntities(o.options.TopEntities)
	result.TopDomains = o.graph.TopDomains(o.options.TopDomains)
	result.Elapsed = time.Since(started)

	o.logger.Info("pipeline run done",
		"url", result.URL,
		"entities", result.EntityCount,
		"links", result.LinkCount,
		"nodes_added", result.GraphDelta.NodesAdded,
		"edges_added", result.GraphDelta.EdgesAdded,
		"elapsed", result.Elapsed,
	)
	return result
}
