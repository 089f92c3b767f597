package faceid

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/kozaktomas/face-verifier/internal/metrics"
)

// PoolOptions configures a BoundedExtractor.
type PoolOptions struct {
	Concurrency  int           // parallel extractions, at least 1
	QueueTimeout time.Duration // max wait for a slot, 0 = wait for the caller's context
	CallTimeout  time.Duration // max duration of one extraction, 0 = unbounded
	Metrics      *metrics.Metrics
}

// BoundedExtractor limits concurrent extractions and bounds their latency.
// Requests waiting longer than QueueTimeout for a slot fail with ErrExtractorBusy,
// extractions running longer than CallTimeout fail with ErrExtractionTimeout.
type BoundedExtractor struct {
	next Extractor
	sem  *semaphore.Weighted
	opts PoolOptions
}

// NewBoundedExtractor wraps next.
func NewBoundedExtractor(next Extractor, opts PoolOptions) *BoundedExtractor {
	if opts.Concurrency < 1 {
		opts.Concurrency = 1
	}
	return &BoundedExtractor{
		next: next,
		sem:  semaphore.NewWeighted(int64(opts.Concurrency)),
		opts: opts,
	}
}

func (b *BoundedExtractor) Extract(ctx context.Context, image []byte) (Embedding, error) {
	if err := b.acquire(ctx); err != nil {
		b.opts.Metrics.RecordExtraction(Outcome(err), 0)
		return nil, err
	}
	defer b.sem.Release(1)

	b.opts.Metrics.ExtractionStarted()
	defer b.opts.Metrics.ExtractionFinished()

	callCtx := ctx
	if b.opts.CallTimeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, b.opts.CallTimeout)
		defer cancel()
	}

	start := time.Now()
	embedding, err := b.next.Extract(callCtx, image)
	if err != nil && errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
		err = fmt.Errorf("%w after %s", ErrExtractionTimeout, b.opts.CallTimeout)
	}
	b.opts.Metrics.RecordExtraction(Outcome(err), time.Since(start))
	return embedding, err
}

func (b *BoundedExtractor) acquire(ctx context.Context) error {
	if b.sem.TryAcquire(1) {
		return nil
	}

	waitCtx := ctx
	if b.opts.QueueTimeout > 0 {
		var cancel context.CancelFunc
		waitCtx, cancel = context.WithTimeout(ctx, b.opts.QueueTimeout)
		defer cancel()
	}

	if err := b.sem.Acquire(waitCtx, 1); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr //nolint:wrapcheck
		}
		return ErrExtractorBusy
	}
	return nil
}
