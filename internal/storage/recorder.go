package storage

import (
	"io"
	"log/slog"
	"sync"

	"github.com/san-kum/natsel/internal/sim"
)

// Recorder writes every snapshot the controller applies. Each load or reset
// starts a new run. Write failures are logged; recording never blocks the
// simulation.
type Recorder struct {
	store     *Store
	engineURL string
	log       *slog.Logger

	mu  sync.Mutex
	run *Run
}

func NewRecorder(store *Store, engineURL string, log *slog.Logger) *Recorder {
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Recorder{store: store, engineURL: engineURL, log: log.With("component", "recorder")}
}

func (r *Recorder) OnStart(snap *sim.Snapshot, cfg *sim.Config) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.closeLocked()
	run, err := r.store.Create(snap.TraitName, r.engineURL, cfg)
	if err != nil {
		r.log.Error("create run", "err", err)
		return
	}
	r.run = run
	r.log.Info("recording", "run", run.ID())
	if err := run.Append(0, snap); err != nil {
		r.log.Error("record sample", "err", err)
	}
}

func (r *Recorder) OnStep(step int, snap *sim.Snapshot) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.run == nil {
		return
	}
	if err := r.run.Append(step, snap); err != nil {
		r.log.Error("record sample", "run", r.run.ID(), "err", err)
	}
}

// Current returns the active run id, or "".
func (r *Recorder) Current() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.run == nil {
		return ""
	}
	return r.run.ID()
}

func (r *Recorder) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.closeLocked()
}

func (r *Recorder) closeLocked() error {
	if r.run == nil {
		return nil
	}
	err := r.run.Close()
	if err != nil {
		r.log.Error("close run", "run", r.run.ID(), "err", err)
	}
	r.run = nil
	return err
}
