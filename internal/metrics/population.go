package metrics

import (
	"gonum.org/v1/gonum/stat"

	"github.com/san-kum/natsel/internal/sim"
)

type PeakPopulation struct {
	name string
	peak int
}

func NewPeakPopulation() *PeakPopulation {
	return &PeakPopulation{name: "peak_population"}
}

func (p *PeakPopulation) Name() string { return p.name }

func (p *PeakPopulation) Observe(s *sim.Snapshot) {
	if n := s.Grid.Occupied(); n > p.peak {
		p.peak = n
	}
}

func (p *PeakPopulation) Value() float64 { return float64(p.peak) }

func (p *PeakPopulation) Reset() { p.peak = 0 }

type MeanPopulation struct {
	name    string
	samples []float64
}

func NewMeanPopulation() *MeanPopulation {
	return &MeanPopulation{name: "mean_population"}
}

func (m *MeanPopulation) Name() string { return m.name }

func (m *MeanPopulation) Observe(s *sim.Snapshot) {
	m.samples = append(m.samples, float64(s.Grid.Occupied()))
}

func (m *MeanPopulation) Value() float64 {
	if len(m.samples) == 0 {
		return 0
	}
	return stat.Mean(m.samples, nil)
}

func (m *MeanPopulation) Reset() { m.samples = m.samples[:0] }

// Survival is the fraction of observed snapshots in which the population was alive.
type Survival struct {
	name    string
	alive   int
	samples int
}

func NewSurvival() *Survival {
	return &Survival{name: "survival"}
}

func (s *Survival) Name() string { return s.name }

func (s *Survival) Observe(snap *sim.Snapshot) {
	s.samples++
	if snap.Alive {
		s.alive++
	}
}

func (s *Survival) Value() float64 {
	if s.samples == 0 {
		return 1.0
	}
	return float64(s.alive) / float64(s.samples)
}

func (s *Survival) Reset() {
	s.alive = 0
	s.samples = 0
}
