package extractor

import (
	"context"
	"io"
	"log/slog"
	"sync"

	"github.com/nao1215/knowledgemesh/internal/model"
)

// Factory builds the primary extractor. It exists as a seam so that
// model acquisition failures can be exercised in tests.
type Factory func() (Extractor, error)

// Provider selects the extractor to run for each call.
//
// The primary extractor is built lazily on first use. A successful
// build is cached for the process lifetime; a failed build degrades
// that single call to the heuristic and is retried on the next call,
// so a transient failure does not pin the process in fallback mode.
type Provider struct {
	mu             sync.Mutex
	factory        Factory
	cached         Extractor
	fallback       Extractor
	forceHeuristic bool
	logger         *slog.Logger
}

// ProviderOption configures a Provider.
type ProviderOption func(*Provider)

// WithFactory overrides how the primary extractor is built.
func WithFactory(f Factory) ProviderOption {
	return func(p *Provider) {
		p.factory = f
	}
}

// WithForceHeuristic skips the model entirely and always runs the
// fallback. Used by the --heuristic-only flag.
func WithForceHeuristic(force bool) ProviderOption {
	return func(p *Provider) {
		p.forceHeuristic = force
	}
}

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) ProviderOption {
	return func(p *Provider) {
		p.logger = logger
	}
}

// NewProvider creates a Provider with the bundled NER model as the
// primary extractor.
func NewProvider(opts ...ProviderOption) *Provider {
	p := &Provider{
		factory: func() (Extractor, error) {
			return newModelExtractor()
		},
		fallback: &heuristicExtractor{},
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Extract runs whichever extractor is available and records which one
// produced the result.
func (p *Provider) Extract(ctx context.Context, text string, maxEntities int) (*model.Extraction, error) {
	ext := p.acquire()
	entities, err := ext.Extract(ctx, text, maxEntities)
	if err != nil {
		return nil, err
	}
	return &model.Extraction{Entities: entities, Mode: ext.Mode()}, nil
}

// acquire returns the extractor for this call, building and caching the
// primary one when possible.
func (p *Provider) acquire() Extractor {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.forceHeuristic {
		return p.fallback
	}
	if p.cached != nil {
		return p.cached
	}

	ext, err := p.factory()
	if err != nil {
		p.logger.Warn("NER model unavailable, falling back to heuristic extraction",
			slog.String("error", err.Error()))
		return p.fallback
	}
	p.cached = ext
	return ext
}
