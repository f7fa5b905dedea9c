// Package overlay tracks death animations for cells whose organism vanished
// between two snapshots.
package overlay

import (
	"sort"
	"time"

	"github.com/san-kum/natsel/internal/sim"
)

// DefaultDuration is how long a death takes to fade out completely.
const DefaultDuration = time.Second

// Tracker is not safe for concurrent use; its owner serializes access.
type Tracker struct {
	duration time.Duration
	events   map[sim.Coord]sim.DeathEvent
}

func NewTracker(duration time.Duration) *Tracker {
	if duration <= 0 {
		duration = DefaultDuration
	}
	return &Tracker{
		duration: duration,
		events:   make(map[sim.Coord]sim.DeathEvent),
	}
}

func (t *Tracker) Duration() time.Duration { return t.duration }

// Observe diffs two consecutive organism grids and returns the number of new
// death events. Grids of different shape belong to different runs; the
// overlay is cleared and nothing is diffed.
func (t *Tracker) Observe(prev, next sim.Grid) int {
	if prev.Height() != next.Height() || prev.Width() != next.Width() {
		t.Clear()
		return 0
	}

	created := 0
	for y, row := range next {
		for x, c := range row {
			at := sim.Coord{X: x, Y: y}
			if c.Occupied() {
				delete(t.events, at)
				continue
			}
			was := prev[y][x]
			if !was.Occupied() {
				continue
			}
			if _, ok := t.events[at]; ok {
				continue
			}
			t.events[at] = sim.DeathEvent{Trait: was, Progress: 0}
			created++
		}
	}
	return created
}

// Advance moves every event forward by elapsed real time and drops the ones
// that finished. It returns how many were removed.
func (t *Tracker) Advance(elapsed time.Duration) int {
	if elapsed <= 0 || len(t.events) == 0 {
		return 0
	}
	step := float64(elapsed) / float64(t.duration)
	removed := 0
	for at, ev := range t.events {
		ev.Progress += step
		if ev.Progress >= 1 {
			delete(t.events, at)
			removed++
			continue
		}
		t.events[at] = ev
	}
	return removed
}

func (t *Tracker) Clear() {
	clear(t.events)
}

func (t *Tracker) Len() int { return len(t.events) }

func (t *Tracker) At(at sim.Coord) (sim.DeathEvent, bool) {
	ev, ok := t.events[at]
	return ev, ok
}

// Snapshot returns a copy of the overlay that the caller may keep.
func (t *Tracker) Snapshot() map[sim.Coord]sim.DeathEvent {
	out := make(map[sim.Coord]sim.DeathEvent, len(t.events))
	for at, ev := range t.events {
		out[at] = ev
	}
	return out
}

// Coords lists the coordinates with an active event in row-major order.
func (t *Tracker) Coords() []sim.Coord {
	out := make([]sim.Coord, 0, len(t.events))
	for at := range t.events {
		out = append(out, at)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Y != out[j].Y {
			return out[i].Y < out[j].Y
		}
		return out[i].X < out[j].X
	})
	return out
}
