// Package metrics summarizes population snapshots.
package metrics

import (
	"github.com/san-kum/natsel/internal/sim"
)

// Metric accumulates one figure over the snapshots of a run.
type Metric interface {
	Name() string
	Observe(s *sim.Snapshot)
	Value() float64
	Reset()
}

// Standard returns the metrics recorded for every run.
func Standard() []Metric {
	return []Metric{
		NewPeakPopulation(),
		NewMeanPopulation(),
		NewFoodAvailability(),
		NewSurvival(),
	}
}
