// Package batch runs an operation over many inputs with bounded concurrency.
package batch

import (
	"context"
	"runtime"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/multiply-org/multiply-core/pkg/errors"
)

// Func processes one input.
type Func[T any] func(ctx context.Context, input string) (T, error)

// Result is the outcome for one input.
type Result[T any] struct {
	Input string
	Value T
	Err   error
}

// Stats summarizes a Process run.
type Stats struct {
	Processed int64         `json:"processed"`
	Failed    int64         `json:"failed"`
	Duration  time.Duration `json:"duration"`
}

// Processor applies a Func to inputs concurrently.
type Processor[T any] struct {
	fn          Func[T]
	concurrency int
}

// NewProcessor creates a processor running at most concurrency operations
// at a time. A concurrency below 1 uses the number of CPUs.
func NewProcessor[T any](fn Func[T], concurrency int) *Processor[T] {
	if concurrency < 1 {
		concurrency = runtime.NumCPU()
	}
	return &Processor[T]{fn: fn, concurrency: concurrency}
}

// Process runs the operation for every input and returns the results in
// input order. Failures of single inputs are reported in their Result; the
// returned error is set only when ctx ends before all inputs were processed.
func (p *Processor[T]) Process(ctx context.Context, inputs []string) ([]Result[T], Stats, error) {
	started := time.Now()
	results := make([]Result[T], len(inputs))
	var processed, failed atomic.Int64

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.concurrency)
	for i, input := range inputs {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			value, err := p.fn(gctx, input)
			processed.Add(1)
			if err != nil {
				failed.Add(1)
			}
			results[i] = Result[T]{Input: input, Value: value, Err: err}
			return nil
		})
	}
	err := g.Wait()
	if err == nil {
		err = ctx.Err()
	}

	stats := Stats{
		Processed: processed.Load(),
		Failed:    failed.Load(),
		Duration:  time.Since(started),
	}
	if err != nil {
		return results, stats, errors.Wrap(err, errors.ErrCodeOperationCanceled, "batch canceled").
			WithComponent("batch")
	}
	return results, stats, nil
}
