package pipeline

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/nao1215/knowledgemesh/internal/model"
)

// RunBatch processes the targets concurrently with at most concurrency
// workers, all feeding the shared graph. Results come back in target
// order, and a failed target never stops the rest.
func (o *Orchestrator) RunBatch(ctx context.Context, targets []string, concurrency int) []*model.PipelineResult {
	if concurrency < 1 {
		concurrency = 1
	}

	results := make([]*model.PipelineResult, len(targets))

	eg := &errgroup.Group{}
	eg.SetLimit(concurrency)
	for i, target := range targets {
		eg.Go(func() error {
			results[i] = o.Run(ctx, target)
			return nil
		})
	}
	// Workers never return errors; failures live inside each result.
	_ = eg.Wait()

	return results
}
