// Package poll runs a fetch on a fixed interval with at most one fetch in
// flight.
package poll

import (
	"context"
	"sync/atomic"
	"time"
)

// Result is one fetch outcome.
type Result[T any] struct {
	Value T
	Err   error
	Seq   uint64
}

// Poller calls Fetch every Interval. A tick that fires while the previous
// fetch is still running is skipped, so results are delivered in order.
type Poller[T any] struct {
	Interval time.Duration
	Fetch    func(ctx context.Context) (T, error)

	// inFlight is owned by Run's goroutine.
	inFlight bool
	skipped  atomic.Uint64
	seq      uint64
}

// New creates a poller.
func New[T any](interval time.Duration, fetch func(ctx context.Context) (T, error)) *Poller[T] {
	return &Poller[T]{Interval: interval, Fetch: fetch}
}

// Skipped is the number of ticks dropped because a fetch was in flight.
func (p *Poller[T]) Skipped() uint64 { return p.skipped.Load() }

// Run fetches immediately and then on every tick, calling apply with each
// result from Run's goroutine. It returns when ctx is done; an outstanding
// fetch is cancelled and its result dropped.
func (p *Poller[T]) Run(ctx context.Context, apply func(Result[T])) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	results := make(chan Result[T], 1)
	ticker := time.NewTicker(p.Interval)
	defer ticker.Stop()

	p.launch(ctx, results)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if p.inFlight {
				p.skipped.Add(1)
				continue
			}
			p.launch(ctx, results)
		case r := <-results:
			// The next fetch may only start once this result is taken.
			p.inFlight = false
			if ctx.Err() != nil {
				return
			}
			apply(r)
		}
	}
}

func (p *Poller[T]) launch(parent context.Context, results chan<- Result[T]) {
	p.inFlight = true
	p.seq++
	seq := p.seq
	ctx, cancel := context.WithCancel(parent)
	go func() {
		defer cancel()
		v, err := p.Fetch(ctx)
		select {
		case results <- Result[T]{Value: v, Err: err, Seq: seq}:
		case <-parent.Done():
		}
	}()
}
