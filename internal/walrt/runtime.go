// Package walrt models the two process-wide resources the log store
// needs but must never reach for as a global: a bounded pool that blocking
// KV operations are dispatched onto, and a separate runtime used for
// region open/reconstruction work. Both are constructed once by the
// caller and injected into region.Store.
package walrt

import (
	"context"
	"fmt"

	"golang.org/x/sync/semaphore"
)

// Pool is a bounded dispatcher for blocking work. It does not run its own
// goroutines ahead of time; SpawnBlocking acquires a weighted slot, runs
// fn on a fresh goroutine, and returns once fn completes or ctx is done.
//
// Cancellation only aborts the pending dispatch boundary: once fn has
// started running on the blocking pool, it runs to completion regardless
// of ctx, matching the "in-progress KV operations run to completion"
// requirement for cancellation semantics.
type Pool struct {
	sem *semaphore.Weighted
}

// NewPool returns a Pool that runs at most width blocking operations
// concurrently.
func NewPool(width int64) *Pool {
	if width < 1 {
		width = 1
	}
	return &Pool{sem: semaphore.NewWeighted(width)}
}

// SpawnBlocking dispatches fn onto the pool and blocks the calling
// goroutine until fn returns or ctx is done, whichever comes first. If ctx
// is done after fn has started, the caller gets ctx's error while fn keeps
// running to completion and then releases its slot.
func SpawnBlocking[T any](ctx context.Context, p *Pool, fn func() (T, error)) (T, error) {
	var zero T
	if err := p.sem.Acquire(ctx, 1); err != nil {
		return zero, fmt.Errorf("walrt: acquire blocking slot: %w", err)
	}

	type result struct {
		value T
		err   error
	}
	done := make(chan result, 1)
	go func() {
		defer p.sem.Release(1)
		v, err := fn()
		done <- result{value: v, err: err}
	}()

	select {
	case r := <-done:
		return r.value, r.err
	case <-ctx.Done():
		// The goroutine above still runs fn to completion and releases
		// the slot on its own; we just stop waiting for its result here.
		return zero, fmt.Errorf("walrt: %w", ctx.Err())
	}
}

// SpawnBlockingWrite is SpawnBlocking for functions that only return an
// error, which covers most KV write/scan dispatch call sites.
func SpawnBlockingWrite(ctx context.Context, p *Pool, fn func() error) (struct{}, error) {
	return SpawnBlocking(ctx, p, func() (struct{}, error) {
		return struct{}{}, fn()
	})
}

// Runtimes bundles the two runtimes the log store needs: Blocking for the
// KV dispatch boundary crossed by log writes, truncate's meta update and
// each bucket scan opened by a read, and Background for
// open/reconstruction and the deferred cleaner. They are
// typically sized differently (Background usually narrower, since opens
// are rarer and heavier than steady-state writes).
type Runtimes struct {
	Blocking   *Pool
	Background *Pool
}

// NewRuntimes builds a Runtimes with the given widths.
func NewRuntimes(blockingWidth, backgroundWidth int64) Runtimes {
	return Runtimes{
		Blocking:   NewPool(blockingWidth),
		Background: NewPool(backgroundWidth),
	}
}
