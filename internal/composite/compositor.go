// Package composite derives one renderable cell from the organism, food and
// death signals at a grid coordinate.
package composite

import (
	"github.com/lucasb-eyer/go-colorful"

	"github.com/san-kum/natsel/internal/sim"
)

type Kind int

const (
	KindEmpty Kind = iota
	KindFood
	KindOrganism
	KindDying
)

func (k Kind) String() string {
	switch k {
	case KindFood:
		return "food"
	case KindOrganism:
		return "organism"
	case KindDying:
		return "dying"
	}
	return "empty"
}

// RenderedCell is a frame-ready description of one grid coordinate.
type RenderedCell struct {
	Kind  Kind
	Trait sim.Cell

	// Color is the base fill; Opacity applies to it.
	Color   colorful.Color
	Hue     float64
	Opacity float64

	Scale      float64
	Rotation   float64
	Blur       float64
	Brightness float64

	// FoodInset marks food drawn underneath an organism as an indicator.
	Food        float64
	FoodOpacity float64
	FoodInset   bool
}

// Compositor is stateless apart from its palette; Composite is pure.
type Compositor struct {
	palette Palette
}

func New(p Palette) *Compositor {
	return &Compositor{palette: p}
}

func Default() *Compositor {
	return New(DefaultPalette())
}

func (c *Compositor) Palette() Palette { return c.palette }

// Composite applies death, then organism, then food, in that priority.
func (c *Compositor) Composite(organism sim.Cell, food float64, death *sim.DeathEvent) RenderedCell {
	if death != nil {
		return c.dying(*death, food)
	}

	cell := RenderedCell{
		Opacity:    1,
		Scale:      1,
		Brightness: 1,
		Food:       food,
	}

	if organism.Occupied() {
		cell.Kind = KindOrganism
		cell.Trait = organism
		cell.Hue = c.palette.Hue(organism)
		cell.Color = c.palette.Color(organism)
		if food > 0 {
			cell.FoodInset = true
			cell.FoodOpacity = FoodOpacity(food)
		}
		return cell
	}

	cell.Color = FoodColor
	cell.FoodOpacity = FoodOpacity(food)
	cell.Opacity = cell.FoodOpacity
	if cell.FoodOpacity > 0 {
		cell.Kind = KindFood
	}
	return cell
}

func (c *Compositor) dying(ev sim.DeathEvent, food float64) RenderedCell {
	p := clamp01(ev.Progress)
	cell := RenderedCell{
		Kind:       KindDying,
		Trait:      ev.Trait,
		Opacity:    1 - 0.8*p,
		Scale:      1 - 0.5*p,
		Rotation:   180 * p,
		Blur:       2 * p,
		Brightness: 1 - 0.7*p,
		Food:       food,
	}
	if p > 0.5 {
		cell.Hue = DeathHue
		cell.Color = DeathColor(p)
	} else {
		cell.Hue = c.palette.Hue(ev.Trait)
		cell.Color = c.palette.Color(ev.Trait)
	}
	return cell
}

// At composites the cell at (x, y) of a snapshot against an overlay map.
func (c *Compositor) At(s *sim.Snapshot, dead map[sim.Coord]sim.DeathEvent, x, y int) RenderedCell {
	var death *sim.DeathEvent
	if ev, ok := dead[sim.Coord{X: x, Y: y}]; ok {
		death = &ev
	}
	return c.Composite(s.Grid.At(x, y), s.Food.At(x, y), death)
}

// Flatten reduces a cell to the single color a terminal can paint over bg.
func (r RenderedCell) Flatten(bg colorful.Color) colorful.Color {
	if r.Kind == KindEmpty {
		return bg
	}
	base := r.Color
	if r.Brightness < 1 {
		b := clamp01(r.Brightness)
		base = colorful.Color{R: base.R * b, G: base.G * b, B: base.B * b}
	}
	return bg.BlendRgb(base, clamp01(r.Opacity)).Clamped()
}

// Inset is the food indicator color over bg, or false when there is none.
func (r RenderedCell) Inset(bg colorful.Color) (colorful.Color, bool) {
	if !r.FoodInset {
		return colorful.Color{}, false
	}
	return bg.BlendRgb(FoodColor, r.FoodOpacity).Clamped(), true
}
