package controller

import (
	"github.com/san-kum/natsel/internal/sim"
)

type Phase int

const (
	PhaseIdle Phase = iota
	PhaseLoading
	PhasePaused
	PhaseRunning
)

func (p Phase) String() string {
	switch p {
	case PhaseLoading:
		return "loading"
	case PhasePaused:
		return "paused"
	case PhaseRunning:
		return "running"
	}
	return "idle"
}

// RenderModel is a read-only view of the controller handed to renderers.
// Dead is a private copy; Snapshot is shared but never mutated.
type RenderModel struct {
	Snapshot *sim.Snapshot
	Dead     map[sim.Coord]sim.DeathEvent
	Running  bool
	Loading  bool
	Loaded   bool
	Phase    Phase
	Steps    int
	Err      error
}

// Observer receives accepted snapshots in the order they were applied.
// Calls are serialized and never made while the controller holds its lock.
type Observer interface {
	// OnStart is called for the first snapshot of a run: the initial load
	// and every successful reset.
	OnStart(snap *sim.Snapshot, cfg *sim.Config)
	OnStep(step int, snap *sim.Snapshot)
}
