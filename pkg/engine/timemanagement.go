package engine

import (
	"context"
	"time"
)

// minMoveBudget keeps a side that has overdrawn its average from being
// forced into a zero-time search.
const minMoveBudget = 100 * time.Millisecond

// MoveBudget computes the wall-clock allowance for the next move from the
// configured average seconds per move, the total number of plies already
// played, and the time this side has consumed so far. Fast moves bank
// time for later; slow ones draw the allowance down toward the floor.
func MoveBudget(avg time.Duration, plies int, consumed time.Duration) time.Duration {
	var budget = avg*time.Duration(plies+1) - consumed
	if budget < minMoveBudget {
		return minMoveBudget
	}
	return budget
}

// armDeadline turns a move-time limit into a one-shot context deadline.
// Firing cancels the in-flight iteration only, never the process.
func armDeadline(ctx context.Context, limits Limits) (context.Context, context.CancelFunc) {
	if limits.MoveTime > 0 {
		return context.WithDeadline(ctx, time.Now().Add(limits.MoveTime))
	}
	return context.WithCancel(ctx)
}
