package pipeline

import (
	"context"

	"golang.org/x/sync/errgroup"

	"ddtft/internal/domain"
)

// BatchResult is the outcome of one document of a batch, in input order.
type BatchResult struct {
	Index       int
	FileName    string
	Document    *domain.Document
	Diagnostics []domain.Diagnostic
	Err         error
}

// ExtractBatch extracts documents in parallel, bounded by Options.Concurrency.
// Each document gets its own Options.Timeout budget. A failed document only
// sets Err on its own result; the rest of the batch is unaffected.
func (e *Engine) ExtractBatch(ctx context.Context, inputs []Input) []BatchResult {
	results := make([]BatchResult, len(inputs))

	var g errgroup.Group
	g.SetLimit(e.opts.Concurrency)

	for i, in := range inputs {
		g.Go(func() error {
			docCtx, cancel := e.documentContext(ctx)
			defer cancel()

			doc, diags, err := e.ExtractContext(docCtx, in)
			results[i] = BatchResult{Index: i, FileName: in.FileName, Document: doc, Diagnostics: diags, Err: err}
			if err != nil {
				e.log.Warn().Err(err).Int("index", i).Str("file", in.FileName).Msg("pipeline.Engine: batch document failed")
			}
			return nil
		})
	}
	_ = g.Wait()
	return results
}

func (e *Engine) documentContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if e.opts.Timeout > 0 {
		return context.WithTimeout(ctx, e.opts.Timeout)
	}
	return context.WithCancel(ctx)
}
