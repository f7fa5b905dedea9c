package tui

import (
	"fmt"
	"slices"
	"strings"

	"github.com/san-kum/natsel/internal/config"
	"github.com/san-kum/natsel/internal/sim"
)

// Rows of the settings panel: preset, trait, then one per numeric param.
const (
	rowPreset = iota
	rowTrait
	rowFirstParam
)

type settingsPanel struct {
	cfg     sim.Config
	cursor  int
	preset  string
	loading bool

	// ack is the blocking acknowledgement after an apply attempt.
	ack    string
	ackErr bool
}

func newSettingsPanel() *settingsPanel {
	return &settingsPanel{cfg: sim.DefaultConfig(), loading: true}
}

func (p *settingsPanel) rows() int { return rowFirstParam + len(config.Params) }

func (p *settingsPanel) load(cfg *sim.Config) {
	p.loading = false
	if cfg != nil {
		p.cfg = *cfg
	}
	p.preset = ""
}

func (p *settingsPanel) move(n int) {
	p.cursor = (p.cursor + n + p.rows()) % p.rows()
}

// nudge adjusts the selected row by n steps.
func (p *settingsPanel) nudge(n int) {
	switch p.cursor {
	case rowPreset:
		names := config.ListPresets()
		i := slices.Index(names, p.preset)
		if i < 0 && n < 0 {
			i = 0
		}
		i = (i + n + len(names)) % len(names)
		p.preset = names[i]
		p.cfg = *config.GetPreset(p.preset)
	case rowTrait:
		i := slices.Index(sim.Traits, p.cfg.TraitName)
		if i < 0 {
			i = 0
		}
		p.cfg.TraitName = sim.Traits[(i+n+len(sim.Traits))%len(sim.Traits)]
		p.preset = ""
	default:
		config.Params[p.cursor-rowFirstParam].Nudge(&p.cfg, n)
		p.preset = ""
	}
}

func (p *settingsPanel) acknowledge(err error) {
	if err != nil {
		p.ack = "Failed to apply settings: " + err.Error()
		p.ackErr = true
		return
	}
	p.ack = "Settings applied, press r to reset"
	p.ackErr = false
}

func (p *settingsPanel) View(st styles) string {
	var b strings.Builder
	b.WriteString(st.title.Render("Settings") + "\n\n")
	if p.loading {
		b.WriteString(st.dim.Render("loading config..."))
		return st.panel.Render(b.String())
	}

	row := func(i int, label, value string) {
		cursor := "  "
		lbl := st.dim.Render(fmt.Sprintf("%-22s", label))
		val := st.text.Render(value)
		if i == p.cursor {
			cursor = st.accent.Render("▸ ")
			lbl = st.text.Render(fmt.Sprintf("%-22s", label))
			val = st.value.Render(value)
		}
		b.WriteString(cursor + lbl + val + "\n")
	}

	preset := p.preset
	if preset == "" {
		preset = "custom"
	}
	row(rowPreset, "Preset", "◂ "+preset+" ▸")
	row(rowTrait, "Trait", "◂ "+p.cfg.TraitName+" ▸")
	for i, param := range config.Params {
		row(rowFirstParam+i, param.Label, param.Format(&p.cfg))
	}
	return st.panel.Render(strings.TrimRight(b.String(), "\n"))
}

func (p *settingsPanel) ackView(st styles) string {
	msg := st.running.Render(p.ack)
	if p.ackErr {
		msg = st.err.Render(p.ack)
	}
	return st.dialog.Render(msg + "\n\n" + st.dim.Render("enter to continue"))
}
