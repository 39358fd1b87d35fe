package panelsdk

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"
)

// FetchFunc loads one poll result.
type FetchFunc[T any] func(ctx context.Context) (T, error)

// DeliverFunc receives the result of the latest poll cycle.
type DeliverFunc[T any] func(result T, err error)

// Poller runs a fetch on an interval. Every cycle gets a sequence number and
// cancels the cycle before it; only the result of the most recently started
// cycle is delivered, so a slow response never overwrites a newer one.
type Poller[T any] struct {
	interval time.Duration
	fetch    FetchFunc[T]
	deliver  DeliverFunc[T]
	logger   *slog.Logger

	mu     sync.Mutex
	seq    uint64
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewPoller creates a poller. A nil logger discards.
func NewPoller[T any](interval time.Duration, fetch FetchFunc[T], deliver DeliverFunc[T], logger *slog.Logger) *Poller[T] {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Poller[T]{
		interval: interval,
		fetch:    fetch,
		deliver:  deliver,
		logger:   logger.With("component", "poller"),
	}
}

// Run polls immediately and then on every tick until ctx is done. It waits
// for in-flight cycles before returning.
func (p *Poller[T]) Run(ctx context.Context) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.Trigger(ctx)
	for {
		select {
		case <-ctx.Done():
			p.stop()
			p.Wait()
			return
		case <-ticker.C:
			p.Trigger(ctx)
		}
	}
}

// Trigger starts a new cycle, superseding any cycle still in flight.
func (p *Poller[T]) Trigger(ctx context.Context) {
	cycleCtx, cancel := context.WithCancel(ctx)

	p.mu.Lock()
	if p.cancel != nil {
		p.cancel()
	}
	p.seq++
	seq := p.seq
	p.cancel = cancel
	p.mu.Unlock()

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		defer cancel()

		result, err := p.fetch(cycleCtx)

		p.mu.Lock()
		defer p.mu.Unlock()

		if seq != p.seq {
			p.logger.Debug("dropping stale poll result", "seq", seq, "latest", p.seq)
			return
		}
		if err != nil && errors.Is(err, context.Canceled) && cycleCtx.Err() != nil {
			return
		}
		p.deliver(result, err)
	}()
}

// Wait blocks until every started cycle has finished.
func (p *Poller[T]) Wait() {
	p.wg.Wait()
}

func (p *Poller[T]) stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cancel != nil {
		p.cancel()
		p.cancel = nil
	}
}
