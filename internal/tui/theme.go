package tui

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/lucasb-eyer/go-colorful"
)

// Theme defines the color scheme for the viewer.
type Theme struct {
	Name       string
	Primary    lipgloss.Color
	Secondary  lipgloss.Color
	Accent     lipgloss.Color
	Background lipgloss.Color
	Text       lipgloss.Color
	Muted      lipgloss.Color
	Success    lipgloss.Color
	Warning    lipgloss.Color
	Error      lipgloss.Color
}

var (
	ThemeDefault = Theme{
		Name:       "default",
		Primary:    lipgloss.Color("#4fc3f7"),
		Secondary:  lipgloss.Color("#81c784"),
		Accent:     lipgloss.Color("#ba68c8"),
		Background: lipgloss.Color("#1e1e2e"),
		Text:       lipgloss.Color("#eeeeee"),
		Muted:      lipgloss.Color("#6c6c80"),
		Success:    lipgloss.Color("#4caf50"),
		Warning:    lipgloss.Color("#ffb300"),
		Error:      lipgloss.Color("#ef5350"),
	}

	ThemeRetro = Theme{
		Name:       "retro",
		Primary:    lipgloss.Color("#00ff00"), // green phosphor
		Secondary:  lipgloss.Color("#00cc00"),
		Accent:     lipgloss.Color("#88ff88"),
		Background: lipgloss.Color("#001100"),
		Text:       lipgloss.Color("#00ff00"),
		Muted:      lipgloss.Color("#005500"),
		Success:    lipgloss.Color("#88ff88"),
		Warning:    lipgloss.Color("#ffff00"),
		Error:      lipgloss.Color("#ff0000"),
	}

	ThemeMinimal = Theme{
		Name:       "minimal",
		Primary:    lipgloss.Color("#ffffff"),
		Secondary:  lipgloss.Color("#cccccc"),
		Accent:     lipgloss.Color("#0088ff"),
		Background: lipgloss.Color("#000000"),
		Text:       lipgloss.Color("#ffffff"),
		Muted:      lipgloss.Color("#888888"),
		Success:    lipgloss.Color("#00ff00"),
		Warning:    lipgloss.Color("#ffaa00"),
		Error:      lipgloss.Color("#ff0000"),
	}

	ThemeOcean = Theme{
		Name:       "ocean",
		Primary:    lipgloss.Color("#0077be"),
		Secondary:  lipgloss.Color("#00a8cc"),
		Accent:     lipgloss.Color("#ffd700"),
		Background: lipgloss.Color("#001a33"),
		Text:       lipgloss.Color("#e0f0ff"),
		Muted:      lipgloss.Color("#4488aa"),
		Success:    lipgloss.Color("#00ff88"),
		Warning:    lipgloss.Color("#ffcc00"),
		Error:      lipgloss.Color("#ff4444"),
	}

	ThemeSunset = Theme{
		Name:       "sunset",
		Primary:    lipgloss.Color("#ff6b6b"),
		Secondary:  lipgloss.Color("#feca57"),
		Accent:     lipgloss.Color("#ff9ff3"),
		Background: lipgloss.Color("#2d1b2e"),
		Text:       lipgloss.Color("#fff5f5"),
		Muted:      lipgloss.Color("#8b6b8c"),
		Success:    lipgloss.Color("#5fd068"),
		Warning:    lipgloss.Color("#ffc048"),
		Error:      lipgloss.Color("#ff4757"),
	}

	Themes = []Theme{ThemeDefault, ThemeRetro, ThemeMinimal, ThemeOcean, ThemeSunset}
)

// GetTheme returns a theme by name, falling back to the default.
func GetTheme(name string) Theme {
	for _, t := range Themes {
		if t.Name == name {
			return t
		}
	}
	return ThemeDefault
}

func ThemeNames() []string {
	names := make([]string, len(Themes))
	for i, t := range Themes {
		names[i] = t.Name
	}
	return names
}

// Canvas is the grid background that cell colors are blended over.
func (t Theme) Canvas() colorful.Color {
	c, err := colorful.Hex(string(t.Background))
	if err != nil {
		return colorful.Color{}
	}
	return c
}

type styles struct {
	title   lipgloss.Style
	text    lipgloss.Style
	dim     lipgloss.Style
	value   lipgloss.Style
	accent  lipgloss.Style
	running lipgloss.Style
	paused  lipgloss.Style
	err     lipgloss.Style
	panel   lipgloss.Style
	dialog  lipgloss.Style
}

func newStyles(t Theme) styles {
	return styles{
		title:   lipgloss.NewStyle().Bold(true).Foreground(t.Primary),
		text:    lipgloss.NewStyle().Foreground(t.Text),
		dim:     lipgloss.NewStyle().Foreground(t.Muted),
		value:   lipgloss.NewStyle().Bold(true).Foreground(t.Secondary),
		accent:  lipgloss.NewStyle().Foreground(t.Accent),
		running: lipgloss.NewStyle().Bold(true).Foreground(t.Success),
		paused:  lipgloss.NewStyle().Bold(true).Foreground(t.Warning),
		err:     lipgloss.NewStyle().Bold(true).Foreground(t.Error),
		panel: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(t.Muted).
			Padding(0, 1),
		dialog: lipgloss.NewStyle().
			Border(lipgloss.DoubleBorder()).
			BorderForeground(t.Accent).
			Padding(1, 3),
	}
}
