// Package controller drives the remote simulation: it owns the current
// snapshot and the death overlay, runs the polling loop and the animation
// clock, and serves a RenderModel to the UI.
package controller

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/san-kum/natsel/internal/composite"
	"github.com/san-kum/natsel/internal/engine"
	"github.com/san-kum/natsel/internal/metrics"
	"github.com/san-kum/natsel/internal/overlay"
	"github.com/san-kum/natsel/internal/sim"
)

// Engine is the subset of the engine client the controller needs.
type Engine interface {
	State(ctx context.Context) (*sim.Snapshot, error)
	Step(ctx context.Context) (*sim.Snapshot, error)
	Reset(ctx context.Context, cfg *sim.Config) (*sim.Snapshot, error)
	Config(ctx context.Context) (*sim.Config, error)
	SetConfig(ctx context.Context, cfg sim.Config) (bool, error)
}

const (
	DefaultPollInterval      = 300 * time.Millisecond
	DefaultAnimationInterval = 16 * time.Millisecond
)

type Options struct {
	PollInterval      time.Duration
	AnimationInterval time.Duration
	DeathDuration     time.Duration

	// KnownTrait reports whether a trait code has a display mapping. Unknown
	// codes are logged once and rendered with the fallback hue.
	KnownTrait func(sim.Cell) bool

	Logger *slog.Logger
}

func (o *Options) withDefaults() {
	if o.PollInterval <= 0 {
		o.PollInterval = DefaultPollInterval
	}
	if o.AnimationInterval <= 0 {
		o.AnimationInterval = DefaultAnimationInterval
	}
	if o.DeathDuration <= 0 {
		o.DeathDuration = overlay.DefaultDuration
	}
	if o.KnownTrait == nil {
		o.KnownTrait = composite.DefaultPalette().Known
	}
	if o.Logger == nil {
		o.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
}

type Controller struct {
	engine Engine
	opts   Options
	log    *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc

	poll *ticker
	anim *ticker

	mu       sync.Mutex
	snap     *sim.Snapshot
	cfg      *sim.Config
	tracker  *overlay.Tracker
	loaded   bool
	running  bool
	animate  bool
	lastAnim time.Time
	pending  int
	epoch    uint64
	steps    int
	dropped  int
	lastErr  error
	closed   bool
	warned   map[sim.Cell]bool

	reqs sync.WaitGroup

	obsMu     sync.Mutex
	observers []Observer

	updates chan struct{}
}

func New(e Engine, opts Options) *Controller {
	opts.withDefaults()
	ctx, cancel := context.WithCancel(context.Background())
	return &Controller{
		engine:  e,
		opts:    opts,
		log:     opts.Logger.With("component", "controller"),
		ctx:     ctx,
		cancel:  cancel,
		poll:    newTicker(opts.PollInterval),
		anim:    newTicker(opts.AnimationInterval),
		snap:    sim.EmptySnapshot(),
		tracker: overlay.NewTracker(opts.DeathDuration),
		warned:  make(map[sim.Cell]bool),
		updates: make(chan struct{}, 1),
	}
}

// AddObserver registers o for every snapshot applied from now on.
func (c *Controller) AddObserver(o Observer) {
	c.obsMu.Lock()
	c.observers = append(c.observers, o)
	c.obsMu.Unlock()
}

// Updates signals that the RenderModel changed. Signals coalesce; a reader
// should call Model after each receive.
func (c *Controller) Updates() <-chan struct{} { return c.updates }

func (c *Controller) notify() {
	select {
	case c.updates <- struct{}{}:
	default:
	}
}

// Load fetches the current state. A failure is logged and the controller
// settles on the empty default snapshot; it never returns an error.
func (c *Controller) Load(ctx context.Context) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.pending++
	epoch := c.epoch
	c.mu.Unlock()
	c.notify()

	snap, err := c.engine.State(ctx)

	c.mu.Lock()
	c.pending--
	if epoch != c.epoch || c.closed {
		c.mu.Unlock()
		c.notify()
		return
	}
	if err != nil {
		c.log.Warn("initial load failed, showing empty simulation", "err", err)
		snap = sim.EmptySnapshot()
		c.lastErr = err
	} else {
		c.lastErr = nil
		c.checkTraits(snap)
	}
	c.snap = snap
	c.loaded = true
	c.steps = 0
	c.tracker.Clear()
	cfg := c.cfg
	c.mu.Unlock()

	c.log.Info("loaded", "summary", metrics.Summarize(snap))
	c.emitStart(snap, cfg)
	c.notify()
}

// Step advances the engine by one tick. It is meant for the paused state:
// it fails with ErrRunning while the loop is active and ErrBusy while
// another request is in flight. A transport failure degrades the model to
// the empty default and is also returned.
func (c *Controller) Step(ctx context.Context) error {
	c.mu.Lock()
	switch {
	case c.closed:
		c.mu.Unlock()
		return ErrClosed
	case !c.loaded:
		c.mu.Unlock()
		return ErrNotLoaded
	case c.running:
		c.mu.Unlock()
		return ErrRunning
	case c.pending > 0:
		c.mu.Unlock()
		return ErrBusy
	}
	c.pending++
	epoch := c.epoch
	c.mu.Unlock()
	c.notify()

	snap, err := c.engine.Step(ctx)
	c.apply(epoch, snap, err, false)
	if err != nil {
		return fmt.Errorf("step: %w", err)
	}
	return nil
}

// Run starts the polling loop.
func (c *Controller) Run() error {
	c.mu.Lock()
	switch {
	case c.closed:
		c.mu.Unlock()
		return ErrClosed
	case !c.loaded:
		c.mu.Unlock()
		return ErrNotLoaded
	case c.running:
		c.mu.Unlock()
		return nil
	case c.pending > 0:
		c.mu.Unlock()
		return ErrBusy
	case !c.snap.Alive:
		c.mu.Unlock()
		return ErrTerminated
	}
	c.running = true
	c.lastErr = nil
	resume := c.tracker.Len() > 0
	if resume {
		c.wantAnim()
	}
	c.mu.Unlock()

	c.log.Info("running", "interval", c.opts.PollInterval)
	c.poll.Start(c.ctx, c.pollTick)
	if resume {
		c.anim.Start(c.ctx, c.animTick)
	}
	c.notify()
	return nil
}

// Pause stops the polling loop and the animation clock. A request already
// in flight completes and is applied, but nothing further is scheduled.
func (c *Controller) Pause() {
	c.mu.Lock()
	if !c.running {
		c.mu.Unlock()
		return
	}
	c.running = false
	c.animate = false
	c.mu.Unlock()

	c.poll.Stop()
	c.anim.Stop()
	c.log.Info("paused")
	c.notify()
}

// Reset reinitializes the engine with the last applied config. It is valid
// in any state and always ends paused with no death overlays. A transport
// failure is retried once; if that fails too the last snapshot is kept and
// the error returned.
func (c *Controller) Reset(ctx context.Context) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	c.epoch++
	epoch := c.epoch
	c.running = false
	c.animate = false
	c.pending++
	c.tracker.Clear()
	var cfg *sim.Config
	if c.cfg != nil {
		cp := *c.cfg
		cfg = &cp
	}
	c.mu.Unlock()

	c.poll.Stop()
	c.anim.Stop()
	c.notify()

	snap, err := c.engine.Reset(ctx, cfg)
	if err != nil && errors.Is(err, engine.ErrTransport) && ctx.Err() == nil {
		c.log.Warn("reset failed, retrying", "err", err)
		snap, err = c.engine.Reset(ctx, cfg)
	}

	c.mu.Lock()
	c.pending--
	if epoch != c.epoch || c.closed {
		c.mu.Unlock()
		c.notify()
		return err
	}
	c.loaded = true
	c.tracker.Clear()
	if err != nil {
		c.lastErr = err
		c.mu.Unlock()
		c.log.Error("reset failed", "err", err)
		c.notify()
		return fmt.Errorf("reset: %w", err)
	}
	c.snap = snap
	c.steps = 0
	c.lastErr = nil
	c.checkTraits(snap)
	c.mu.Unlock()

	c.log.Info("reset", "config", cfg, "summary", metrics.Summarize(snap))
	c.emitStart(snap, cfg)
	c.notify()
	return nil
}

// Config fetches the engine's stored configuration.
func (c *Controller) Config(ctx context.Context) (*sim.Config, error) {
	cfg, err := c.engine.Config(ctx)
	if err != nil {
		return nil, fmt.Errorf("get config: %w", err)
	}
	return cfg, nil
}

// ApplyConfig stores cfg on the engine for the next reset. It does not
// change the controller's state.
func (c *Controller) ApplyConfig(ctx context.Context, cfg sim.Config) error {
	ok, err := c.engine.SetConfig(ctx, cfg)
	if err != nil {
		return fmt.Errorf("apply config: %w", err)
	}
	if !ok {
		return fmt.Errorf("apply config: %w", ErrConfigRejected)
	}
	c.mu.Lock()
	c.cfg = &cfg
	c.mu.Unlock()
	c.log.Info("config applied", "config", cfg.String())
	return nil
}

// Model returns a consistent view for rendering.
func (c *Controller) Model() RenderModel {
	c.mu.Lock()
	defer c.mu.Unlock()

	m := RenderModel{
		Snapshot: c.snap,
		Dead:     c.tracker.Snapshot(),
		Running:  c.running,
		Loading:  c.pending > 0,
		Loaded:   c.loaded,
		Steps:    c.steps,
		Err:      c.lastErr,
	}
	switch {
	case c.running:
		m.Phase = PhaseRunning
	case c.pending > 0:
		m.Phase = PhaseLoading
	case c.loaded:
		m.Phase = PhasePaused
	default:
		m.Phase = PhaseIdle
	}
	return m
}

// Dropped counts poll ticks skipped because a step was still in flight.
func (c *Controller) Dropped() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.dropped
}

// Close stops both clocks and waits for loop-issued requests to finish.
// The controller cannot be used afterwards.
func (c *Controller) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	c.running = false
	c.animate = false
	c.mu.Unlock()

	c.cancel()
	c.poll.Stop()
	c.anim.Stop()
	c.reqs.Wait()
}

func (c *Controller) pollTick(time.Time) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.running || c.closed {
		return false
	}
	if c.pending > 0 {
		c.dropped++
		return true
	}
	c.pending++
	epoch := c.epoch
	c.reqs.Add(1)
	go func() {
		defer c.reqs.Done()
		snap, err := c.engine.Step(c.ctx)
		c.apply(epoch, snap, err, true)
	}()
	return true
}

// apply folds a step result into the model. Results from before the last
// reset are discarded.
func (c *Controller) apply(epoch uint64, snap *sim.Snapshot, err error, fromLoop bool) {
	c.mu.Lock()
	c.pending--
	if epoch != c.epoch || c.closed {
		c.mu.Unlock()
		c.log.Debug("discarding stale step result")
		c.notify()
		return
	}

	if err != nil {
		c.log.Warn("step failed, showing empty simulation", "err", err)
		c.snap = sim.EmptySnapshot()
		c.tracker.Clear()
		c.lastErr = err
	} else {
		born := c.tracker.Observe(c.snap.Grid, snap.Grid)
		c.snap = snap
		c.steps++
		c.lastErr = nil
		c.checkTraits(snap)
		c.log.Debug("step", "n", c.steps, "deaths", born, "summary", metrics.Summarize(snap))
	}

	stopPoll := false
	if c.running && !c.snap.Alive {
		c.running = false
		stopPoll = true
		c.log.Info("population ended, pausing", "steps", c.steps)
	}

	// A loop result landing after pause must not restart the clock.
	startAnim := c.tracker.Len() > 0 && (c.running || !fromLoop)
	if startAnim {
		c.wantAnim()
	}
	if stopPoll {
		c.animate = false
	}
	steps, applied := c.steps, c.snap
	c.mu.Unlock()

	if stopPoll {
		c.poll.Stop()
		c.anim.Stop()
	}
	if startAnim {
		c.anim.Start(c.ctx, c.animTick)
	}
	if err == nil {
		c.emitStep(steps, applied)
	}
	c.notify()
}

// wantAnim marks the animation clock as wanted and restarts its reference
// time if it was idle. Caller holds c.mu.
func (c *Controller) wantAnim() {
	if !c.animate {
		c.animate = true
		c.lastAnim = time.Time{}
	}
}

func (c *Controller) animTick(now time.Time) bool {
	c.mu.Lock()
	if !c.animate || c.closed {
		c.mu.Unlock()
		return false
	}
	elapsed := c.opts.AnimationInterval
	if !c.lastAnim.IsZero() {
		elapsed = now.Sub(c.lastAnim)
	}
	c.lastAnim = now
	c.tracker.Advance(elapsed)
	keep := c.tracker.Len() > 0
	if !keep {
		c.animate = false
	}
	c.mu.Unlock()

	c.notify()
	return keep
}

// checkTraits logs trait codes without a display mapping. Caller holds c.mu.
func (c *Controller) checkTraits(s *sim.Snapshot) {
	for _, code := range s.UnknownTraits(c.opts.KnownTrait) {
		if c.warned[code] {
			continue
		}
		c.warned[code] = true
		c.log.Warn("unmapped trait code, using fallback color", "trait", int(code))
	}
}

func (c *Controller) emitStart(s *sim.Snapshot, cfg *sim.Config) {
	c.obsMu.Lock()
	defer c.obsMu.Unlock()
	for _, o := range c.observers {
		o.OnStart(s, cfg)
	}
}

func (c *Controller) emitStep(step int, s *sim.Snapshot) {
	c.obsMu.Lock()
	defer c.obsMu.Unlock()
	for _, o := range c.observers {
		o.OnStep(step, s)
	}
}
