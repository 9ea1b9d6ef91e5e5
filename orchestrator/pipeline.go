// ABOUTME: This file runs a processing function over a slice with bounded fan-out.
// ABOUTME: A fixed worker pool preserves input order in the returned results.
package orchestrator

import (
	"context"
	"sync"
)

// Result pairs one stage output with the error that produced it. Index is
// the position of the corresponding input.
type Result[Out any] struct {
	Value Out
	Err   error
	Index int
}

// Stage describes one bounded-concurrency processing step.
type Stage[In, Out any] struct {
	Name        string
	Concurrency int
	Process     func(ctx context.Context, input In) (Out, error)
}

// RunStage applies stage.Process to every input and returns the results in
// input order. At most stage.Concurrency inputs are in flight at once; the
// bound defaults to 1. Once ctx is canceled the remaining inputs are marked
// with ctx.Err() instead of being processed.
func RunStage[In, Out any](ctx context.Context, stage Stage[In, Out], inputs []In) []Result[Out] {
	if len(inputs) == 0 {
		return nil
	}

	workers := stage.Concurrency
	if workers < 1 {
		workers = 1
	}
	if workers > len(inputs) {
		workers = len(inputs)
	}

	// Each worker writes to distinct indices, so the slice needs no lock.
	results := make([]Result[Out], len(inputs))
	feed := make(chan int)

	var wg sync.WaitGroup
	wg.Add(workers)

	for range workers {
		go func() {
			defer wg.Done()

			for idx := range feed {
				if err := ctx.Err(); err != nil {
					results[idx] = Result[Out]{Err: err, Index: idx}
					continue
				}

				out, err := stage.Process(ctx, inputs[idx])
				results[idx] = Result[Out]{Value: out, Err: err, Index: idx}
			}
		}()
	}

	for i := range inputs {
		feed <- i
	}
	close(feed)

	wg.Wait()

	return results
}
