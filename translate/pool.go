package translate

import (
	"context"
	"sync/atomic"

	"golang.org/x/sync/semaphore"
)

// Pool is a fixed-size set of permits shared by every backend call of a
// run. It is created once and handed to all document tasks.
type Pool struct {
	sem      *semaphore.Weighted
	size     int
	inFlight atomic.Int64
}

// NewPool returns a pool with n permits (at least one).
func NewPool(n int) *Pool {
	if n < 1 {
		n = 1
	}
	return &Pool{sem: semaphore.NewWeighted(int64(n)), size: n}
}

// Size returns the number of permits.
func (p *Pool) Size() int { return p.size }

// InFlight returns the number of permits currently held.
func (p *Pool) InFlight() int { return int(p.inFlight.Load()) }

// Do blocks until a permit is free, runs fn while holding it, and releases
// it on every exit path, including a panic in fn. If ctx is done before a
// permit is acquired, fn is not run and ctx.Err() is returned.
func (p *Pool) Do(ctx context.Context, fn func(context.Context) error) error {
	if err := p.sem.Acquire(ctx, 1); err != nil {
		return err
	}
	p.inFlight.Add(1)
	defer func() {
		p.inFlight.Add(-1)
		p.sem.Release(1)
	}()
	return fn(ctx)
}
