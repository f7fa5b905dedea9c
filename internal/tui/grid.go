package tui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/lucasb-eyer/go-colorful"

	"github.com/san-kum/natsel/internal/composite"
	"github.com/san-kum/natsel/internal/controller"
)

// gridView paints the composited grid, one terminal cell block per grid
// coordinate.
type gridView struct {
	comp      *composite.Compositor
	canvas    colorful.Color
	cellWidth int

	// styles are cached per frame by background/foreground pair.
	cache map[string]lipgloss.Style
}

func newGridView(comp *composite.Compositor, theme Theme, cellWidth int) *gridView {
	if cellWidth < 1 {
		cellWidth = 1
	}
	return &gridView{
		comp:      comp,
		canvas:    theme.Canvas(),
		cellWidth: cellWidth,
		cache:     make(map[string]lipgloss.Style),
	}
}

func (g *gridView) style(bg, fg string) lipgloss.Style {
	k := bg + fg
	if s, ok := g.cache[k]; ok {
		return s
	}
	s := lipgloss.NewStyle().Background(lipgloss.Color(bg))
	if fg != "" {
		s = s.Foreground(lipgloss.Color(fg))
	}
	g.cache[k] = s
	return s
}

// cell returns the text and colors for one rendered cell.
func (g *gridView) cell(rc composite.RenderedCell) (text, bg, fg string) {
	bg = rc.Flatten(g.canvas).Hex()
	text = strings.Repeat(" ", g.cellWidth)

	switch rc.Kind {
	case composite.KindOrganism:
		if inset, ok := rc.Inset(rc.Flatten(g.canvas)); ok {
			fg = inset.Hex()
			text = "▪" + strings.Repeat(" ", g.cellWidth-1)
		}
	case composite.KindDying:
		// Shrinking and spinning glyphs stand in for scale and rotation.
		fg = rc.Color.Clamped().Hex()
		glyph := "✕"
		switch {
		case rc.Scale < 0.65:
			glyph = "·"
		case rc.Rotation >= 90:
			glyph = "+"
		}
		text = glyph + strings.Repeat(" ", g.cellWidth-1)
	}
	return text, bg, fg
}

func (g *gridView) Render(m controller.RenderModel) string {
	s := m.Snapshot
	if s == nil || s.Height() == 0 {
		return ""
	}

	var b strings.Builder
	for y := 0; y < s.Height(); y++ {
		for x := 0; x < s.Width(); x++ {
			text, bg, fg := g.cell(g.comp.At(s, m.Dead, x, y))
			b.WriteString(g.style(bg, fg).Render(text))
		}
		if y < s.Height()-1 {
			b.WriteByte('\n')
		}
	}
	return b.String()
}
