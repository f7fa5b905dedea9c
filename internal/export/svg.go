// Package export renders frames and series as standalone SVG documents.
package export

import (
	"fmt"
	"strings"

	"github.com/san-kum/natsel/internal/composite"
	"github.com/san-kum/natsel/internal/sim"
)

const background = "#1e1e2e"

// FrameSVG draws one composited frame, cellSize pixels per grid cell. Unlike
// the terminal view it keeps every visual property of a dying cell.
func FrameSVG(comp *composite.Compositor, snap *sim.Snapshot, dead map[sim.Coord]sim.DeathEvent, cellSize float64) string {
	if snap == nil || snap.Height() == 0 {
		return ""
	}
	width := float64(snap.Width()) * cellSize
	height := float64(snap.Height()) * cellSize

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8"?>
<svg xmlns="http://www.w3.org/2000/svg" width="%.0f" height="%.0f" viewBox="0 0 %.0f %.0f">
<rect width="100%%" height="100%%" fill="%s"/>
`, width, height, width, height, background))

	for y := 0; y < snap.Height(); y++ {
		for x := 0; x < snap.Width(); x++ {
			rc := comp.At(snap, dead, x, y)
			writeCell(&sb, rc, float64(x)*cellSize, float64(y)*cellSize, cellSize)
		}
	}

	sb.WriteString("</svg>")
	return sb.String()
}

func writeCell(sb *strings.Builder, rc composite.RenderedCell, x, y, size float64) {
	switch rc.Kind {
	case composite.KindEmpty:
		return

	case composite.KindFood:
		sb.WriteString(fmt.Sprintf(`<rect x="%.1f" y="%.1f" width="%.1f" height="%.1f" fill="%s" fill-opacity="%.3f"/>
`, x, y, size, size, rc.Color.Hex(), rc.Opacity))

	case composite.KindOrganism:
		sb.WriteString(fmt.Sprintf(`<rect x="%.1f" y="%.1f" width="%.1f" height="%.1f" fill="%s"/>
`, x, y, size, size, rc.Color.Hex()))
		if rc.FoodInset {
			in := size / 4
			sb.WriteString(fmt.Sprintf(`<rect x="%.1f" y="%.1f" width="%.1f" height="%.1f" fill="%s" fill-opacity="%.3f"/>
`, x+in, y+in, size-2*in, size-2*in, composite.FoodColor.Hex(), rc.FoodOpacity))
		}

	case composite.KindDying:
		cx, cy := x+size/2, y+size/2
		sb.WriteString(fmt.Sprintf(`<g transform="translate(%.1f %.1f) rotate(%.1f) scale(%.3f)" opacity="%.3f" style="filter:blur(%.2fpx) brightness(%.3f)">
<rect x="%.1f" y="%.1f" width="%.1f" height="%.1f" fill="%s"/>
</g>
`, cx, cy, rc.Rotation, rc.Scale, rc.Opacity, rc.Blur, rc.Brightness,
			-size/2, -size/2, size, size, rc.Color.Clamped().Hex()))
	}
}

// SeriesSVG draws values as a polyline scaled to fill width x height.
func SeriesSVG(values []float64, width, height int, strokeColor string) string {
	if len(values) < 2 {
		return ""
	}

	minY, maxY := values[0], values[0]
	for _, v := range values {
		minY = min(minY, v)
		maxY = max(maxY, v)
	}
	rangeY := maxY - minY
	if rangeY == 0 {
		rangeY = 1
	}
	minY -= rangeY * 0.1
	rangeY *= 1.2
	stepX := float64(width) / float64(len(values)-1)

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8"?>
<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d">
<rect width="100%%" height="100%%" fill="%s"/>
<path fill="none" stroke="%s" stroke-width="1.5" d="M`,
		width, height, width, height, background, strokeColor))

	for i, v := range values {
		x := float64(i) * stepX
		y := float64(height) - (v-minY)/rangeY*float64(height)
		if i == 0 {
			sb.WriteString(fmt.Sprintf("%.1f,%.1f", x, y))
		} else {
			sb.WriteString(fmt.Sprintf(" L%.1f,%.1f", x, y))
		}
	}

	sb.WriteString(`"/>
</svg>`)
	return sb.String()
}
