package metrics

import (
	"github.com/san-kum/natsel/internal/sim"
)

// FoodAvailability is the mean food quantity per cell across a run.
type FoodAvailability struct {
	name    string
	total   float64
	samples int
}

func NewFoodAvailability() *FoodAvailability {
	return &FoodAvailability{name: "food_per_cell"}
}

func (f *FoodAvailability) Name() string { return f.name }

func (f *FoodAvailability) Observe(s *sim.Snapshot) {
	cells := s.Height() * s.Width()
	if cells == 0 {
		return
	}
	f.total += s.Food.Total() / float64(cells)
	f.samples++
}

func (f *FoodAvailability) Value() float64 {
	if f.samples == 0 {
		return 0
	}
	return f.total / float64(f.samples)
}

func (f *FoodAvailability) Reset() {
	f.total = 0
	f.samples = 0
}
