package sim

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Cell is the trait code of the organism occupying a grid coordinate.
// Zero means the coordinate is empty.
type Cell int

const Empty Cell = 0

func (c Cell) Occupied() bool { return c > 0 }

// UnmarshalJSON accepts null, numbers and numeric strings. Engines that
// render the grid as strings send "" for an empty cell.
func (c *Cell) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*c = Empty
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		s = strings.TrimSpace(s)
		if s == "" {
			*c = Empty
			return nil
		}
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return fmt.Errorf("cell %q: not a trait code", s)
		}
		*c = cellFromFloat(v)
		return nil
	}
	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("cell %s: not a trait code", data)
	}
	*c = cellFromFloat(v)
	return nil
}

func (c Cell) MarshalJSON() ([]byte, error) {
	if !c.Occupied() {
		return []byte("null"), nil
	}
	return []byte(strconv.Itoa(int(c))), nil
}

func cellFromFloat(v float64) Cell {
	if v <= 0 {
		return Empty
	}
	return Cell(int(v))
}

// Grid holds organism trait codes in row-major order: Grid[y][x].
type Grid [][]Cell

func (g Grid) Height() int { return len(g) }

func (g Grid) Width() int {
	if len(g) == 0 {
		return 0
	}
	return len(g[0])
}

// At returns the cell at (x, y), or Empty when out of range.
func (g Grid) At(x, y int) Cell {
	if y < 0 || y >= len(g) || x < 0 || x >= len(g[y]) {
		return Empty
	}
	return g[y][x]
}

// Occupied counts the cells holding an organism.
func (g Grid) Occupied() int {
	n := 0
	for _, row := range g {
		for _, c := range row {
			if c.Occupied() {
				n++
			}
		}
	}
	return n
}

// Food holds food quantities in row-major order: Food[y][x].
type Food [][]float64

func (f Food) At(x, y int) float64 {
	if y < 0 || y >= len(f) || x < 0 || x >= len(f[y]) {
		return 0
	}
	return f[y][x]
}

func (f Food) Total() float64 {
	total := 0.0
	for _, row := range f {
		for _, v := range row {
			total += v
		}
	}
	return total
}

// Snapshot is one authoritative state payload received from the engine.
// Snapshots are never mutated after decoding.
type Snapshot struct {
	Grid              Grid      `json:"grid"`
	Food              Food      `json:"food"`
	Alive             bool      `json:"alive"`
	TraitDistribution []float64 `json:"trait_distribution"`
	TraitName         string    `json:"trait_name"`
	TraitLabels       []string  `json:"trait_labels"`
}

func (s *Snapshot) Height() int { return s.Grid.Height() }
func (s *Snapshot) Width() int  { return s.Grid.Width() }

// Label returns the display label of a distribution bucket.
func (s *Snapshot) Label(bucket int) string {
	if bucket >= 0 && bucket < len(s.TraitLabels) && s.TraitLabels[bucket] != "" {
		return s.TraitLabels[bucket]
	}
	return fmt.Sprintf("Trait %d", bucket+1)
}

// SameShape reports whether two snapshots share grid dimensions.
func (s *Snapshot) SameShape(o *Snapshot) bool {
	return s.Height() == o.Height() && s.Width() == o.Width()
}

// EmptySnapshot is the safe default rendered before the first load and after
// a failed request: no grid, no organisms, not alive.
func EmptySnapshot() *Snapshot {
	return &Snapshot{
		Grid:              Grid{},
		Food:              Food{},
		Alive:             false,
		TraitDistribution: []float64{},
		TraitName:         DefaultTrait,
		TraitLabels:       TraitLabels(DefaultTrait),
	}
}

// Coord addresses a grid cell.
type Coord struct {
	X, Y int
}

// String matches the engine's "x,y" key format.
func (c Coord) String() string { return strconv.Itoa(c.X) + "," + strconv.Itoa(c.Y) }

// ParseCoord parses an "x,y" key.
func ParseCoord(s string) (Coord, error) {
	xs, ys, ok := strings.Cut(s, ",")
	if !ok {
		return Coord{}, fmt.Errorf("coord %q: missing comma", s)
	}
	x, err := strconv.Atoi(strings.TrimSpace(xs))
	if err != nil {
		return Coord{}, fmt.Errorf("coord %q: %w", s, err)
	}
	y, err := strconv.Atoi(strings.TrimSpace(ys))
	if err != nil {
		return Coord{}, fmt.Errorf("coord %q: %w", s, err)
	}
	return Coord{X: x, Y: y}, nil
}

// DeathEvent is locally synthesized animation state for a cell whose
// organism vanished between two snapshots. Progress is in [0, 1).
type DeathEvent struct {
	Trait    Cell    `json:"trait"`
	Progress float64 `json:"progress"`
}
