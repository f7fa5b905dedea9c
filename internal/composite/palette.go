package composite

import (
	"fmt"

	"github.com/lucasb-eyer/go-colorful"

	"github.com/san-kum/natsel/internal/sim"
)

// Saturation and lightness shared by every live organism color.
const (
	organismSaturation = 0.7
	organismLightness  = 0.5
)

// DeathHue is the terminal hue a dying cell shifts to past the midpoint.
const DeathHue = 0.0

// FoodColor is the fixed food tint; only its opacity varies with quantity.
var FoodColor = colorful.Color{R: 76.0 / 255, G: 175.0 / 255, B: 80.0 / 255}

// FoodScale is the quantity at which food reaches its full opacity ramp.
const FoodScale = 5.0

// Palette maps trait codes to hues in degrees. It is the one place the
// client records the engine's trait encoding.
type Palette struct {
	hues     map[sim.Cell]float64
	fallback float64
}

// DefaultPalette covers trait codes 1..5, cold to hot.
func DefaultPalette() Palette {
	return Palette{
		hues: map[sim.Cell]float64{
			1: 240,
			2: 270,
			3: 300,
			4: 15,
			5: 0,
		},
		fallback: 240,
	}
}

// NewPalette builds a palette from explicit hues; fallback is used for any
// unmapped code.
func NewPalette(hues map[sim.Cell]float64, fallback float64) (Palette, error) {
	out := make(map[sim.Cell]float64, len(hues))
	for c, h := range hues {
		if !c.Occupied() {
			return Palette{}, fmt.Errorf("palette: trait code %d is not positive", c)
		}
		if h < 0 || h >= 360 {
			return Palette{}, fmt.Errorf("palette: hue %v for trait %d out of [0,360)", h, c)
		}
		out[c] = h
	}
	return Palette{hues: out, fallback: fallback}, nil
}

// Hue returns the hue for a trait code, falling back for unmapped codes.
func (p Palette) Hue(c sim.Cell) float64 {
	if h, ok := p.hues[c]; ok {
		return h
	}
	return p.fallback
}

func (p Palette) Known(c sim.Cell) bool {
	_, ok := p.hues[c]
	return ok
}

// Color is the live organism color for a trait code.
func (p Palette) Color(c sim.Cell) colorful.Color {
	return colorful.Hsl(p.Hue(c), organismSaturation, organismLightness)
}

// DeathColor darkens slightly less as the animation advances.
func DeathColor(progress float64) colorful.Color {
	return colorful.Hsl(DeathHue, organismSaturation, 0.2+clamp01(progress)*0.1)
}

// FoodOpacity maps a food quantity to the opacity of the food tint. Zero or
// less is fully transparent.
func FoodOpacity(food float64) float64 {
	if food <= 0 {
		return 0
	}
	return clamp01(0.15 + food/FoodScale*0.5)
}

func clamp01(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	}
	return v
}
