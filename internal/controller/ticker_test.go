package controller

import (
	"context"
	"sync/atomic"
	"testing"
	"time"
)

func TestTickerStopsOnFalse(t *testing.T) {
	tk := newTicker(time.Millisecond)
	var calls atomic.Int32

	tk.Start(context.Background(), func(time.Time) bool {
		return calls.Add(1) < 3
	})

	deadline := time.Now().Add(time.Second)
	for tk.Active() && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	if tk.Active() {
		t.Fatal("ticker should release itself when fn returns false")
	}
	time.Sleep(10 * time.Millisecond)
	if n := calls.Load(); n != 3 {
		t.Errorf("expected 3 calls, got %d", n)
	}
}

func TestTickerStopIsFinal(t *testing.T) {
	tk := newTicker(time.Millisecond)
	var calls atomic.Int32

	if !tk.Start(context.Background(), func(time.Time) bool {
		calls.Add(1)
		return true
	}) {
		t.Fatal("first start should launch")
	}
	if tk.Start(context.Background(), func(time.Time) bool { return true }) {
		t.Error("second start should be a no-op")
	}

	time.Sleep(10 * time.Millisecond)
	tk.Stop()
	tk.Stop()

	n := calls.Load()
	time.Sleep(10 * time.Millisecond)
	if calls.Load() != n {
		t.Error("callback fired after Stop returned")
	}
	if tk.Active() {
		t.Error("ticker should be inactive after Stop")
	}
}

func TestTickerParentCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	tk := newTicker(time.Millisecond)
	var calls atomic.Int32
	tk.Start(ctx, func(time.Time) bool {
		calls.Add(1)
		return true
	})
	cancel()
	tk.Stop()

	n := calls.Load()
	time.Sleep(10 * time.Millisecond)
	if calls.Load() != n {
		t.Error("callback fired after parent cancel")
	}
}
