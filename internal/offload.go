package internal

import (
	"context"
	"runtime"

	"golang.org/x/sync/semaphore"

	"github.com/dmitrymomot/expanse/pkg/container"
)

// offloader runs blocking handlers on a bounded pool of goroutines.
type offloader struct {
	sem *semaphore.Weighted
}

func newOffloader(workers int) *offloader {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0) * 4
	}
	return &offloader{sem: semaphore.NewWeighted(int64(workers))}
}

type offloadResult struct {
	value any
	err   error
}

// run executes fn on a worker. The request scope is held until fn returns,
// even if the caller stops waiting because ctx was cancelled; abandon is
// called when that happens.
func (o *offloader) run(ctx context.Context, scope *container.Scope, abandon func(), fn func() (any, error)) (any, error) {
	if err := o.sem.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	release := scope.Hold()

	done := make(chan offloadResult, 1)
	go func() {
		defer o.sem.Release(1)
		defer release()
		defer func() {
			if rec := recover(); rec != nil {
				done <- offloadResult{err: NewPanicError(rec)}
			}
		}()

		v, err := fn()
		done <- offloadResult{value: v, err: err}
	}()

	select {
	case res := <-done:
		return res.value, res.err
	case <-ctx.Done():
		abandon()
		return nil, ctx.Err()
	}
}
