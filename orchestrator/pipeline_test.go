// ABOUTME: This file tests the bounded stage runner for order, limits and cancellation.
// ABOUTME: Gated process functions make the concurrency observations deterministic.
package orchestrator

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestRunStagePreservesInputOrder(t *testing.T) {
	inputs := make([]int, 40)
	for i := range inputs {
		inputs[i] = i
	}

	stage := Stage[int, int]{
		Name:        "double",
		Concurrency: 8,
		Process: func(_ context.Context, in int) (int, error) {
			return in * 2, nil
		},
	}

	results := RunStage(context.Background(), stage, inputs)

	require.Len(t, results, len(inputs))

	for i, result := range results {
		assert.NoError(t, result.Err)
		assert.Equal(t, i, result.Index)
		assert.Equal(t, i*2, result.Value)
	}
}

func TestRunStageEmptyInput(t *testing.T) {
	stage := Stage[int, int]{
		Name:    "noop",
		Process: func(_ context.Context, in int) (int, error) { return in, nil },
	}

	assert.Nil(t, RunStage(context.Background(), stage, nil))
}

func TestRunStageKeepsPerItemErrors(t *testing.T) {
	stage := Stage[int, string]{
		Name:        "odd-check",
		Concurrency: 4,
		Process: func(_ context.Context, in int) (string, error) {
			if in%2 == 1 {
				return "", fmt.Errorf("odd input %d", in)
			}

			return fmt.Sprintf("ok-%d", in), nil
		},
	}

	results := RunStage(context.Background(), stage, []int{0, 1, 2, 3})

	require.Len(t, results, 4)
	assert.Equal(t, "ok-0", results[0].Value)
	assert.ErrorContains(t, results[1].Err, "odd input 1")
	assert.Equal(t, "ok-2", results[2].Value)
	assert.ErrorContains(t, results[3].Err, "odd input 3")
}

func TestRunStageBoundsConcurrency(t *testing.T) {
	var current, peak atomic.Int64

	stage := Stage[int, int]{
		Name:        "hold",
		Concurrency: 3,
		Process: func(_ context.Context, in int) (int, error) {
			now := current.Add(1)

			for {
				seen := peak.Load()
				if now <= seen || peak.CompareAndSwap(seen, now) {
					break
				}
			}

			time.Sleep(5 * time.Millisecond)
			current.Add(-1)

			return in, nil
		},
	}

	RunStage(context.Background(), stage, make([]int, 30))

	assert.Positive(t, peak.Load())
	assert.LessOrEqual(t, peak.Load(), int64(3))
}

func TestRunStageZeroConcurrencyRunsSerially(t *testing.T) {
	var current, peak atomic.Int64

	stage := Stage[int, int]{
		Name: "serial",
		Process: func(_ context.Context, in int) (int, error) {
			now := current.Add(1)

			for {
				seen := peak.Load()
				if now <= seen || peak.CompareAndSwap(seen, now) {
					break
				}
			}

			current.Add(-1)

			return in, nil
		},
	}

	RunStage(context.Background(), stage, make([]int, 20))

	assert.Equal(t, int64(1), peak.Load())
}

func TestRunStageCancellationMarksRemainder(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	started := make(chan struct{})
	gate := make(chan struct{})

	stage := Stage[int, int]{
		Name:        "gated",
		Concurrency: 2,
		Process: func(_ context.Context, in int) (int, error) {
			started <- struct{}{}
			<-gate

			return in, nil
		},
	}

	done := make(chan []Result[int], 1)

	go func() {
		done <- RunStage(ctx, stage, make([]int, 10))
	}()

	<-started
	<-started
	cancel()
	close(gate)

	results := <-done

	var succeeded, canceled int

	for _, result := range results {
		if result.Err == nil {
			succeeded++
			continue
		}

		assert.ErrorIs(t, result.Err, context.Canceled)
		canceled++
	}

	assert.Equal(t, 2, succeeded)
	assert.Equal(t, 8, canceled)
}
