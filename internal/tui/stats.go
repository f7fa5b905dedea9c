package tui

import (
	"fmt"
	"strings"

	"github.com/guptarohit/asciigraph"
	"gonum.org/v1/gonum/floats"

	"github.com/san-kum/natsel/internal/metrics"
	"github.com/san-kum/natsel/internal/sim"
)

const (
	barWidth     = 24
	chartHeight  = 6
	chartWidth   = 40
	emptyPrompt  = "press s to step"
	minPctToShow = 1.0
)

// renderStats draws the status, population, distribution and history.
func renderStats(st styles, snap *sim.Snapshot, history []float64) string {
	var b strings.Builder
	sum := metrics.Summarize(snap)

	status := st.running.Render("alive")
	if !snap.Alive {
		status = st.err.Render("ended")
	}
	b.WriteString(st.title.Render("Statistics") + "\n\n")
	fmt.Fprintf(&b, "%s %s\n", st.dim.Render("status     "), status)
	fmt.Fprintf(&b, "%s %s\n", st.dim.Render("population "), st.value.Render(fmt.Sprintf("%d", sum.Population)))
	fmt.Fprintf(&b, "%s %s\n", st.dim.Render("food       "), st.text.Render(fmt.Sprintf("%.1f", sum.FoodTotal)))
	if sum.Dominant >= 0 {
		fmt.Fprintf(&b, "%s %s\n", st.dim.Render("mean trait "), st.text.Render(fmt.Sprintf("%.2f", sum.MeanTrait)))
		fmt.Fprintf(&b, "%s %s\n", st.dim.Render("diversity  "), st.text.Render(fmt.Sprintf("%.2f", sum.Diversity)))
	}

	b.WriteString("\n" + st.title.Render("Trait: "+snap.TraitName) + "\n")
	b.WriteString(renderDistribution(st, snap))

	if len(history) > 1 {
		chart := asciigraph.Plot(history,
			asciigraph.Height(chartHeight),
			asciigraph.Width(chartWidth),
			asciigraph.Caption("population"))
		b.WriteString("\n\n" + st.accent.Render(chart))
	}
	return b.String()
}

// renderDistribution draws one labelled bar per trait bucket, scaled to the
// largest bucket, with a percentage for buckets above 1%.
func renderDistribution(st styles, snap *sim.Snapshot) string {
	dist := snap.TraitDistribution
	total := floats.Sum(dist)
	if len(dist) == 0 || total <= 0 {
		return st.dim.Render(emptyPrompt)
	}
	peak := floats.Max(dist)

	labelWidth := 0
	for i := range dist {
		labelWidth = max(labelWidth, len(snap.Label(i)))
	}

	var b strings.Builder
	for i, v := range dist {
		filled := 0
		if peak > 0 {
			filled = min(max(int(v/peak*barWidth), 0), barWidth)
		}
		bar := strings.Repeat("█", filled) + strings.Repeat("░", barWidth-filled)
		line := fmt.Sprintf("%-*s %s", labelWidth, snap.Label(i), st.value.Render(bar))
		if pct := v / total * 100; pct > minPctToShow {
			line += st.dim.Render(fmt.Sprintf(" %.0f%%", pct))
		}
		b.WriteString(line)
		if i < len(dist)-1 {
			b.WriteByte('\n')
		}
	}
	return b.String()
}
