package providers

import (
	"context"
	"sync"

	"go.uber.org/zap"
)

// PoolConfig configures a Pool.
type PoolConfig struct {
	MaxConcurrent int // Maximum concurrent provider calls (default: 4)
}

// DefaultPoolConfig returns sensible defaults.
func DefaultPoolConfig() PoolConfig {
	return PoolConfig{
		MaxConcurrent: 4,
	}
}

// Pool bounds the number of provider calls in flight for batch work such as
// carousel slides. A semaphore limits outstanding calls and new calls start
// as soon as a slot frees up.
type Pool struct {
	config PoolConfig
	logger *zap.Logger
}

// NewPool creates a new provider call pool.
func NewPool(config PoolConfig, logger *zap.Logger) *Pool {
	if config.MaxConcurrent < 1 {
		config.MaxConcurrent = DefaultPoolConfig().MaxConcurrent
	}
	return &Pool{
		config: config,
		logger: logger.Named("provider-pool"),
	}
}

// WorkItem is a unit of work to be processed.
type WorkItem[T any] struct {
	ID      string                               // For logging/tracking
	Execute func(ctx context.Context) (T, error) // The work to be executed
}

// WorkResult is the result of a work item.
type WorkResult[T any] struct {
	ID     string
	Result T
	Err    error
}

// Process executes all work items with bounded parallelism.
// Results are returned in submission order. Every item is attempted even if
// others fail; items still waiting for a slot when ctx ends report ctx.Err().
// onProgress calls are serialized.
func Process[T any](
	ctx context.Context,
	pool *Pool,
	items []WorkItem[T],
	onProgress func(completed, total int),
) []WorkResult[T] {
	if len(items) == 0 {
		return nil
	}

	results := make([]WorkResult[T], len(items))
	sem := make(chan struct{}, pool.config.MaxConcurrent)

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		completed int
	)

	for i, item := range items {
		wg.Add(1)
		go func(i int, item WorkItem[T]) {
			defer wg.Done()

			var res WorkResult[T]
			select {
			case sem <- struct{}{}:
				r, err := item.Execute(ctx)
				<-sem
				res = WorkResult[T]{ID: item.ID, Result: r, Err: err}
			case <-ctx.Done():
				res = WorkResult[T]{ID: item.ID, Err: ctx.Err()}
			}
			if res.Err != nil {
				pool.logger.Debug("Work item failed", zap.String("id", item.ID), zap.Error(res.Err))
			}

			mu.Lock()
			defer mu.Unlock()
			results[i] = res
			completed++
			if onProgress != nil {
				onProgress(completed, len(items))
			}
		}(i, item)
	}

	wg.Wait()
	return results
}
