package summary

import (
	"context"
	"time"

	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"
)

// Gate bounds in-flight calls to the wrapped completer and paces their start.
type Gate struct {
	next    Completer
	sem     *semaphore.Weighted
	limiter *rate.Limiter
}

// NewGate allows at most concurrency calls at once, started no more often
// than once per interval. A zero interval disables pacing.
func NewGate(next Completer, concurrency int, interval time.Duration) *Gate {
	if concurrency <= 0 {
		concurrency = 1
	}

	limit := rate.Inf
	if interval > 0 {
		limit = rate.Every(interval)
	}

	return &Gate{
		next:    next,
		sem:     semaphore.NewWeighted(int64(concurrency)),
		limiter: rate.NewLimiter(limit, 1),
	}
}

func (g *Gate) Complete(ctx context.Context, req Request) (string, error) {
	if err := g.sem.Acquire(ctx, 1); err != nil {
		return "", err
	}
	defer g.sem.Release(1)

	if err := g.limiter.Wait(ctx); err != nil {
		return "", err
	}

	return g.next.Complete(ctx, req)
}
