package ratelimiting

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestInsertSortedTime(t *testing.T) {
	t.Parallel()

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	at := func(seconds int) time.Time { return base.Add(time.Duration(seconds) * time.Second) }

	times := []time.Time{at(0), at(10), at(20)}

	times = insertSortedTime(times, at(15))
	require.Equal(t, []time.Time{at(0), at(10), at(15), at(20)}, times)

	times = insertSortedTime(times, at(-5))
	require.Equal(t, at(-5), times[0])

	times = insertSortedTime(times, at(30))
	require.Equal(t, at(30), times[len(times)-1])

	// Duplicates are kept
	times = insertSortedTime(times, at(10))
	require.Equal(t, []time.Time{at(-5), at(0), at(10), at(10), at(15), at(20), at(30)}, times)
}

func TestRemainingWindow(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	budget := NewSlidingWindowBudget(1, time.Minute, func() time.Time { return now }, nil)

	require.Equal(t, 45*time.Second, budget.remainingWindow(now.Add(-15*time.Second)))
	require.LessOrEqual(t, budget.remainingWindow(now.Add(-2*time.Minute)), time.Duration(0))
}
