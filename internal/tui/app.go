// Package tui is the interactive viewer: the composited grid, the stats
// panel, the controls and the settings panel, driven by a controller.
package tui

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/san-kum/natsel/internal/composite"
	"github.com/san-kum/natsel/internal/controller"
	"github.com/san-kum/natsel/internal/metrics"
	"github.com/san-kum/natsel/internal/sim"
)

// HistoryLength is the number of applied snapshots kept for the chart.
const HistoryLength = 60

type Options struct {
	Theme      string
	CellWidth  int
	Compositor *composite.Compositor
	Logger     *slog.Logger
}

type (
	updateMsg        struct{}
	loadedMsg        struct{}
	cmdErrMsg        struct{ err error }
	configLoadedMsg  struct {
		cfg *sim.Config
		err error
	}
	configAppliedMsg struct{ err error }
)

type Model struct {
	ctx  context.Context
	ctrl *controller.Controller
	log  *slog.Logger

	theme  Theme
	styles styles
	grid   *gridView
	help   help.Model

	view     controller.RenderModel
	lastSnap *sim.Snapshot
	history  *metrics.History
	status   error

	settings *settingsPanel

	width  int
	height int
}

func New(ctx context.Context, ctrl *controller.Controller, opts Options) *Model {
	if opts.Compositor == nil {
		opts.Compositor = composite.Default()
	}
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	theme := GetTheme(opts.Theme)
	return &Model{
		ctx:     ctx,
		ctrl:    ctrl,
		log:     opts.Logger.With("component", "tui"),
		theme:   theme,
		styles:  newStyles(theme),
		grid:    newGridView(opts.Compositor, theme, opts.CellWidth),
		help:    help.New(),
		view:    ctrl.Model(),
		history: metrics.NewHistory(HistoryLength),
	}
}

func waitForUpdate(ch <-chan struct{}) tea.Cmd {
	return func() tea.Msg {
		<-ch
		return updateMsg{}
	}
}

func (m *Model) Init() tea.Cmd {
	ctrl, ctx := m.ctrl, m.ctx
	return tea.Batch(
		waitForUpdate(ctrl.Updates()),
		func() tea.Msg {
			ctrl.Load(ctx)
			return loadedMsg{}
		},
	)
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.help.Width = msg.Width
		return m, nil

	case updateMsg:
		m.refresh()
		return m, waitForUpdate(m.ctrl.Updates())

	case loadedMsg:
		m.refresh()
		return m, nil

	case cmdErrMsg:
		m.status = msg.err
		m.refresh()
		return m, nil

	case configLoadedMsg:
		if m.settings == nil {
			return m, nil
		}
		if msg.err != nil {
			m.log.Warn("config load failed", "err", msg.err)
			m.settings.load(nil)
			m.status = msg.err
			return m, nil
		}
		m.settings.load(msg.cfg)
		return m, nil

	case configAppliedMsg:
		if m.settings != nil {
			m.settings.acknowledge(msg.err)
		}
		return m, nil

	case tea.KeyMsg:
		if m.settings != nil {
			return m.settingsKey(msg)
		}
		return m.mainKey(msg)
	}
	return m, nil
}

// refresh pulls the latest RenderModel and extends the population history
// once per applied snapshot.
func (m *Model) refresh() {
	m.view = m.ctrl.Model()
	if m.view.Snapshot == m.lastSnap {
		return
	}
	if m.view.Steps == 0 {
		m.history.Reset()
	}
	m.lastSnap = m.view.Snapshot
	if m.view.Loaded {
		m.history.Push(float64(m.view.Snapshot.Grid.Occupied()))
	}
}

func (m *Model) mainKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	ctrl, ctx := m.ctrl, m.ctx
	switch {
	case key.Matches(msg, keys.Quit):
		return m, tea.Quit

	case key.Matches(msg, keys.Help):
		m.help.ShowAll = !m.help.ShowAll

	case key.Matches(msg, keys.Step):
		if m.view.Running || m.view.Loading {
			return m, nil
		}
		m.status = nil
		return m, func() tea.Msg { return cmdErrMsg{ctrl.Step(ctx)} }

	case key.Matches(msg, keys.Run):
		if m.view.Running {
			ctrl.Pause()
			m.status = nil
		} else if !m.view.Loading {
			m.status = ctrl.Run()
		}
		m.refresh()

	case key.Matches(msg, keys.Reset):
		m.status = nil
		return m, func() tea.Msg { return cmdErrMsg{ctrl.Reset(ctx)} }

	case key.Matches(msg, keys.Settings):
		m.settings = newSettingsPanel()
		return m, func() tea.Msg {
			cfg, err := ctrl.Config(ctx)
			return configLoadedMsg{cfg, err}
		}
	}
	return m, nil
}

func (m *Model) settingsKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	p := m.settings
	if key.Matches(msg, keys.Quit) && msg.String() == "ctrl+c" {
		return m, tea.Quit
	}

	// The acknowledgement blocks everything until dismissed.
	if p.ack != "" {
		if key.Matches(msg, keys.Apply, keys.Back) {
			closePanel := !p.ackErr
			p.ack = ""
			if closePanel {
				m.settings = nil
			}
		}
		return m, nil
	}
	if p.loading {
		if key.Matches(msg, keys.Back) {
			m.settings = nil
		}
		return m, nil
	}

	switch {
	case key.Matches(msg, keys.Back):
		m.settings = nil
	case key.Matches(msg, keys.Up):
		p.move(-1)
	case key.Matches(msg, keys.Down):
		p.move(1)
	case key.Matches(msg, keys.Left):
		p.nudge(-1)
	case key.Matches(msg, keys.Right):
		p.nudge(1)
	case key.Matches(msg, keys.Apply):
		ctrl, ctx, cfg := m.ctrl, m.ctx, p.cfg
		return m, func() tea.Msg { return configAppliedMsg{ctrl.ApplyConfig(ctx, cfg)} }
	}
	return m, nil
}

func (m *Model) statusLine() string {
	st := m.styles
	var phase string
	switch m.view.Phase {
	case controller.PhaseRunning:
		phase = st.running.Render("● running")
	case controller.PhaseLoading:
		phase = st.paused.Render("◌ loading")
	case controller.PhasePaused:
		phase = st.paused.Render("○ paused")
	default:
		phase = st.dim.Render("○ idle")
	}
	line := fmt.Sprintf("%s  %s", phase, st.dim.Render(fmt.Sprintf("step %d", m.view.Steps)))

	err := m.status
	if err == nil {
		err = m.view.Err
	}
	if err != nil {
		line += "  " + st.err.Render(errText(err))
	}
	return line
}

func errText(err error) string {
	switch {
	case errors.Is(err, controller.ErrRunning):
		return "pause before stepping"
	case errors.Is(err, controller.ErrTerminated):
		return "population has ended, press r to reset"
	case errors.Is(err, controller.ErrBusy):
		return "request in flight"
	}
	return err.Error()
}

func (m *Model) View() string {
	st := m.styles
	var b strings.Builder

	b.WriteString(st.title.Render("natural selection") + "  " + st.dim.Render(m.view.Snapshot.TraitName) + "\n")
	b.WriteString(m.statusLine() + "\n\n")

	gridText := m.grid.Render(m.view)
	if gridText == "" {
		gridText = st.dim.Render("no grid loaded")
	}
	stats := st.panel.Render(renderStats(st, m.view.Snapshot, m.history.Values()))

	var body string
	switch {
	case m.settings != nil && m.settings.ack != "":
		body = lipgloss.JoinHorizontal(lipgloss.Top, gridText, "  ", m.settings.ackView(st))
	case m.settings != nil:
		body = lipgloss.JoinHorizontal(lipgloss.Top, gridText, "  ", m.settings.View(st))
	default:
		body = lipgloss.JoinHorizontal(lipgloss.Top, gridText, "  ", stats)
	}
	b.WriteString(body + "\n\n")

	if m.settings != nil {
		b.WriteString(m.help.View(settingsKeys{keys}))
	} else {
		b.WriteString(m.help.View(keys))
	}
	return b.String()
}

// Run starts the viewer and blocks until the user quits.
func Run(ctx context.Context, ctrl *controller.Controller, opts Options) error {
	p := tea.NewProgram(New(ctx, ctrl, opts), tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := p.Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}
