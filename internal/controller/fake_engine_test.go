package controller_test

import (
	"context"
	"sync"

	"github.com/san-kum/natsel/internal/sim"
)

type stepResult struct {
	snap *sim.Snapshot
	err  error
}

// fakeEngine scripts step results and can hold steps open until released.
type fakeEngine struct {
	mu sync.Mutex

	state    *sim.Snapshot
	stateErr error

	script []stepResult
	last   *sim.Snapshot
	gate   chan struct{}

	steps       int
	inflight    int
	maxInflight int

	resetSnap *sim.Snapshot
	resetErrs []error
	resets    int
	resetCfgs []*sim.Config

	cfg    sim.Config
	accept bool
}

func newFakeEngine(initial *sim.Snapshot) *fakeEngine {
	return &fakeEngine{
		state:     initial,
		last:      initial,
		resetSnap: initial,
		cfg:       sim.DefaultConfig(),
		accept:    true,
	}
}

func (f *fakeEngine) State(ctx context.Context) (*sim.Snapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.stateErr != nil {
		return nil, f.stateErr
	}
	return f.state, nil
}

func (f *fakeEngine) Step(ctx context.Context) (*sim.Snapshot, error) {
	f.mu.Lock()
	f.steps++
	f.inflight++
	if f.inflight > f.maxInflight {
		f.maxInflight = f.inflight
	}
	gate := f.gate
	f.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			f.mu.Lock()
			f.inflight--
			f.mu.Unlock()
			return nil, ctx.Err()
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.inflight--
	if len(f.script) > 0 {
		r := f.script[0]
		f.script = f.script[1:]
		if r.snap != nil {
			f.last = r.snap
		}
		return r.snap, r.err
	}
	return f.last, nil
}

func (f *fakeEngine) Reset(ctx context.Context, cfg *sim.Config) (*sim.Snapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.resets++
	f.resetCfgs = append(f.resetCfgs, cfg)
	if len(f.resetErrs) > 0 {
		err := f.resetErrs[0]
		f.resetErrs = f.resetErrs[1:]
		if err != nil {
			return nil, err
		}
	}
	f.last = f.resetSnap
	return f.resetSnap, nil
}

func (f *fakeEngine) Config(ctx context.Context) (*sim.Config, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	cfg := f.cfg
	return &cfg, nil
}

func (f *fakeEngine) SetConfig(ctx context.Context, cfg sim.Config) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.accept {
		return false, nil
	}
	f.cfg = cfg
	return true, nil
}

func (f *fakeEngine) hold() {
	f.mu.Lock()
	f.gate = make(chan struct{})
	f.mu.Unlock()
}

// release lets exactly one held step complete.
func (f *fakeEngine) release() {
	f.mu.Lock()
	gate := f.gate
	f.mu.Unlock()
	gate <- struct{}{}
}

// open stops holding steps and frees any waiter.
func (f *fakeEngine) open() {
	f.mu.Lock()
	gate := f.gate
	f.gate = nil
	f.mu.Unlock()
	if gate != nil {
		close(gate)
	}
}

func (f *fakeEngine) then(snaps ...*sim.Snapshot) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, s := range snaps {
		f.script = append(f.script, stepResult{snap: s})
	}
}

func (f *fakeEngine) fail(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.script = append(f.script, stepResult{err: err})
}

func (f *fakeEngine) Steps() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.steps
}

func (f *fakeEngine) Inflight() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.inflight
}

func (f *fakeEngine) MaxInflight() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.maxInflight
}

func (f *fakeEngine) Resets() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.resets
}

func snapshot(alive bool, grid sim.Grid) *sim.Snapshot {
	food := make(sim.Food, len(grid))
	for y, row := range grid {
		food[y] = make([]float64, len(row))
	}
	return &sim.Snapshot{
		Grid:              grid,
		Food:              food,
		Alive:             alive,
		TraitDistribution: []float64{1, 0, 0},
		TraitName:         "speed",
		TraitLabels:       []string{"Slow", "Medium", "Fast"},
	}
}

type recorder struct {
	mu     sync.Mutex
	starts int
	steps  []int
}

func (r *recorder) OnStart(*sim.Snapshot, *sim.Config) {
	r.mu.Lock()
	r.starts++
	r.mu.Unlock()
}

func (r *recorder) OnStep(step int, _ *sim.Snapshot) {
	r.mu.Lock()
	r.steps = append(r.steps, step)
	r.mu.Unlock()
}

func (r *recorder) Starts() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.starts
}

func (r *recorder) Steps() []int {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]int, len(r.steps))
	copy(out, r.steps)
	return out
}
