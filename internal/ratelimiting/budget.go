package ratelimiting

import (
	"context"
	"slices"
	"sync"
	"time"
)

// slidingWindowBudget admits at most limit operations per window, shared
// between all callers. Do blocks until a slot frees up or the context
// expires.
type slidingWindowBudget struct {
	limit     int
	window    time.Duration
	nowFunc   func() time.Time
	afterFunc func(time.Duration) <-chan time.Time

	slots chan struct{}

	// Finish times of past operations, ascending
	history []time.Time
	mutex   sync.Mutex
}

func NewSlidingWindowBudget(
	limit int,
	window time.Duration,
	nowFunc func() time.Time,
	afterFunc func(time.Duration) <-chan time.Time,
) *slidingWindowBudget {
	slots := make(chan struct{}, limit)
	for i := 0; i < limit; i++ {
		slots <- struct{}{}
	}

	// Seed the history with finish times outside the window so the first
	// limit operations run without waiting
	expired := nowFunc().Add(-window)
	history := make([]time.Time, limit)
	for i := range history {
		history[i] = expired
	}

	return &slidingWindowBudget{
		limit:     limit,
		window:    window,
		nowFunc:   nowFunc,
		afterFunc: afterFunc,

		slots:   slots,
		history: history,
	}
}

// Do runs operation once the budget permits it. expectedOperationTime is the
// headroom required before the context deadline; Do refuses to queue an
// operation that could not finish in time. Reports whether the operation ran.
func (b *slidingWindowBudget) Do(ctx context.Context, expectedOperationTime time.Duration, operation func()) bool {
	return b.DoCancelable(ctx, expectedOperationTime, func() bool {
		operation()
		return true
	})
}

// DoCancelable is Do for operations that may decide not to run after all.
// The operation returns whether it ran; a false return does not consume
// budget.
func (b *slidingWindowBudget) DoCancelable(ctx context.Context, expectedOperationTime time.Duration, operation func() bool) bool {
	return b.admit(ctx, func(ctx context.Context, wait time.Duration) bool {
		deadline, ok := ctx.Deadline()
		if !ok {
			return true
		}
		return wait+expectedOperationTime <= deadline.Sub(b.nowFunc())
	}, operation)
}

func (b *slidingWindowBudget) admit(ctx context.Context, shouldQueue func(ctx context.Context, wait time.Duration) bool, operation func() bool) bool {
	select {
	case <-b.slots:
		defer func() {
			b.slots <- struct{}{}
		}()
	case <-ctx.Done():
		return false
	}

	oldest, ok := b.takeOldestFinished(ctx, shouldQueue)
	if !ok {
		return false
	}

	// The taken entry must go back into the history: the original finish
	// time if the operation never ran, our own finish time if it did
	finishedAt := oldest
	defer func() {
		b.putFinished(finishedAt)
	}()

	if wait := b.remainingWindow(oldest); wait > 0 {
		select {
		case <-ctx.Done():
			return false
		case <-b.afterFunc(wait):
		}
	}

	if !operation() {
		return false
	}

	finishedAt = b.nowFunc()
	return true
}

// remainingWindow is how long until finishedAt falls out of the window.
func (b *slidingWindowBudget) remainingWindow(finishedAt time.Time) time.Duration {
	return b.window - b.nowFunc().Sub(finishedAt)
}

func (b *slidingWindowBudget) takeOldestFinished(ctx context.Context, shouldQueue func(context.Context, time.Duration) bool) (time.Time, bool) {
	b.mutex.Lock()
	defer b.mutex.Unlock()

	oldest := b.history[0]
	if !shouldQueue(ctx, b.remainingWindow(oldest)) {
		return time.Time{}, false
	}

	b.history = b.history[1:]
	return oldest, true
}

func (b *slidingWindowBudget) putFinished(finishedAt time.Time) {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	b.history = insertSortedTime(b.history, finishedAt)
}

func insertSortedTime(times []time.Time, t time.Time) []time.Time {
	i, _ := slices.BinarySearchFunc(times, t, func(a, b time.Time) int {
		return a.Compare(b)
	})
	return slices.Insert(times, i, t)
}
