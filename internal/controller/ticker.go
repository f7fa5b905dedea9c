package controller

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

// ticker runs fn on a fixed interval in its own goroutine until stopped or
// until fn returns false. Start and Stop are idempotent.
//
// fn runs with t.mu held, so Start and Stop must not be called while holding
// any lock fn acquires, and Stop must not be called from fn.
type ticker struct {
	interval time.Duration

	mu     sync.Mutex
	cancel context.CancelFunc
	g      *errgroup.Group
}

func newTicker(interval time.Duration) *ticker {
	return &ticker{interval: interval}
}

// Start reports whether a new loop was launched.
func (t *ticker) Start(parent context.Context, fn func(now time.Time) bool) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.cancel != nil {
		return false
	}

	ctx, cancel := context.WithCancel(parent)
	g, gctx := errgroup.WithContext(ctx)
	t.cancel = cancel
	t.g = g

	g.Go(func() error {
		tk := time.NewTicker(t.interval)
		defer tk.Stop()
		for {
			select {
			case <-gctx.Done():
				return nil
			case now := <-tk.C:
				t.mu.Lock()
				if gctx.Err() != nil {
					t.mu.Unlock()
					return nil
				}
				if !fn(now) {
					cancel()
					t.cancel = nil
					t.g = nil
					t.mu.Unlock()
					return nil
				}
				t.mu.Unlock()
			}
		}
	})
	return true
}

// Stop cancels the loop and waits for it to exit. No callback fires after
// Stop returns.
func (t *ticker) Stop() {
	t.mu.Lock()
	cancel, g := t.cancel, t.g
	t.cancel = nil
	t.g = nil
	t.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	_ = g.Wait()
}

func (t *ticker) Active() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.cancel != nil
}
