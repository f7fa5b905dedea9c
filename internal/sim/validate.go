package sim

import (
	"fmt"
	"math"
)

// ValidationError names the snapshot field that failed a structural check.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

// Validate checks that grid and food are rectangular and share dimensions,
// and that the trait distribution holds fractions.
func (s *Snapshot) Validate() error {
	w := s.Grid.Width()
	for y, row := range s.Grid {
		if len(row) != w {
			return &ValidationError{Field: "grid", Reason: fmt.Sprintf("row %d has width %d, want %d", y, len(row), w)}
		}
	}
	if len(s.Food) != len(s.Grid) {
		return &ValidationError{Field: "food", Reason: fmt.Sprintf("height %d, grid height %d", len(s.Food), len(s.Grid))}
	}
	for y, row := range s.Food {
		if len(row) != w {
			return &ValidationError{Field: "food", Reason: fmt.Sprintf("row %d has width %d, want %d", y, len(row), w)}
		}
		for x, v := range row {
			if v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
				return &ValidationError{Field: "food", Reason: fmt.Sprintf("invalid quantity %v at %d,%d", v, x, y)}
			}
		}
	}
	for i, f := range s.TraitDistribution {
		if f < 0 || f > 1 || math.IsNaN(f) {
			return &ValidationError{Field: "trait_distribution", Reason: fmt.Sprintf("bucket %d fraction %v out of range", i, f)}
		}
	}
	return nil
}

// UnknownTraits returns the distinct occupied trait codes for which known
// reports false, in first-seen order.
func (s *Snapshot) UnknownTraits(known func(Cell) bool) []Cell {
	var out []Cell
	seen := make(map[Cell]bool)
	for _, row := range s.Grid {
		for _, c := range row {
			if !c.Occupied() || seen[c] {
				continue
			}
			seen[c] = true
			if !known(c) {
				out = append(out, c)
			}
		}
	}
	return out
}
