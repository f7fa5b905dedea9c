package tui

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/san-kum/natsel/internal/composite"
	"github.com/san-kum/natsel/internal/config"
	"github.com/san-kum/natsel/internal/controller"
	"github.com/san-kum/natsel/internal/sim"
)

type stubEngine struct {
	mu      sync.Mutex
	steps   int
	reject  bool
	applied []sim.Config
}

func (e *stubEngine) snapshot() *sim.Snapshot {
	return &sim.Snapshot{
		Grid:              sim.Grid{{1, 0}, {0, 2}},
		Food:              sim.Food{{2, 1}, {0, 0}},
		Alive:             true,
		TraitDistribution: []float64{1, 1, 0},
		TraitName:         "speed",
		TraitLabels:       []string{"Slow", "Medium", "Fast"},
	}
}

func (e *stubEngine) State(context.Context) (*sim.Snapshot, error) { return e.snapshot(), nil }

func (e *stubEngine) Step(context.Context) (*sim.Snapshot, error) {
	e.mu.Lock()
	e.steps++
	e.mu.Unlock()
	return e.snapshot(), nil
}

func (e *stubEngine) Reset(context.Context, *sim.Config) (*sim.Snapshot, error) {
	return e.snapshot(), nil
}

func (e *stubEngine) Config(context.Context) (*sim.Config, error) {
	cfg := sim.DefaultConfig()
	return &cfg, nil
}

func (e *stubEngine) SetConfig(_ context.Context, cfg sim.Config) (bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.reject {
		return false, nil
	}
	e.applied = append(e.applied, cfg)
	return true, nil
}

func newTestModel(t *testing.T, eng *stubEngine) *Model {
	t.Helper()
	ctrl := controller.New(eng, controller.Options{PollInterval: time.Hour})
	t.Cleanup(ctrl.Close)
	ctrl.Load(context.Background())

	m := New(context.Background(), ctrl, Options{CellWidth: 2})
	m.Update(loadedMsg{})
	return m
}

func runes(s string) tea.KeyMsg { return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)} }

var (
	space = tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}}
	enter = tea.KeyMsg{Type: tea.KeyEnter}
	right = tea.KeyMsg{Type: tea.KeyRight}
	down  = tea.KeyMsg{Type: tea.KeyDown}
)

// press sends a key and runs the command it returns, feeding the result back.
func press(m *Model, k tea.KeyMsg) {
	_, cmd := m.Update(k)
	if cmd == nil {
		return
	}
	if msg := cmd(); msg != nil {
		m.Update(msg)
	}
}

func TestDistributionEmpty(t *testing.T) {
	st := newStyles(ThemeDefault)
	out := renderDistribution(st, sim.EmptySnapshot())
	if !strings.Contains(out, "press s to step") {
		t.Errorf("expected step prompt, got %q", out)
	}
}

func TestDistributionLabels(t *testing.T) {
	st := newStyles(ThemeDefault)
	snap := &sim.Snapshot{
		TraitDistribution: []float64{1, 99, 0, 0},
		TraitLabels:       []string{"Slow", "Medium", "Fast"},
	}
	out := renderDistribution(st, snap)

	for _, want := range []string{"Slow", "Medium", "Fast", "Trait 4", "99%"} {
		if !strings.Contains(out, want) {
			t.Errorf("missing %q in %q", want, out)
		}
	}
	if strings.Contains(out, " 1%") || strings.Contains(out, " 0%") {
		t.Errorf("buckets at or below 1%% should have no percentage: %q", out)
	}
	if n := strings.Count(out, "\n"); n != 3 {
		t.Errorf("expected 4 rows, got %d", n+1)
	}
}

func TestGridRender(t *testing.T) {
	g := newGridView(composite.Default(), ThemeDefault, 2)
	snap := &sim.Snapshot{
		Grid: sim.Grid{{1, 0, 0}, {0, 0, 0}},
		Food: sim.Food{{3, 0, 0}, {0, 0, 0}},
	}
	dead := map[sim.Coord]sim.DeathEvent{{X: 2, Y: 1}: {Trait: 1, Progress: 0.8}}

	out := g.Render(controller.RenderModel{Snapshot: snap, Dead: dead})
	if n := strings.Count(out, "\n"); n != 1 {
		t.Fatalf("expected 2 rows, got %d", n+1)
	}
	if !strings.Contains(out, "▪") {
		t.Error("expected a food inset under the organism")
	}
	if !strings.Contains(out, "·") {
		t.Error("expected a shrunken glyph for a late death")
	}
	if g.Render(controller.RenderModel{Snapshot: sim.EmptySnapshot()}) != "" {
		t.Error("expected nothing for an empty grid")
	}
}

func TestSettingsPanelNudge(t *testing.T) {
	p := newSettingsPanel()
	p.load(nil)

	p.cursor = rowFirstParam // food_number
	for i := 0; i < 100; i++ {
		p.nudge(1)
	}
	if p.cfg.FoodNumber != 500 {
		t.Errorf("expected food clamped at 500, got %d", p.cfg.FoodNumber)
	}

	p.cursor = rowTrait
	p.nudge(1)
	if p.cfg.TraitName != "efficiency" {
		t.Errorf("expected efficiency, got %s", p.cfg.TraitName)
	}
	p.nudge(-2)
	if p.cfg.TraitName != "strength" {
		t.Errorf("expected wrap to strength, got %s", p.cfg.TraitName)
	}

	p.cursor = rowPreset
	p.nudge(1)
	first := config.ListPresets()[0]
	if p.preset != first || p.cfg != *config.GetPreset(first) {
		t.Errorf("expected preset %s loaded, got %s %+v", first, p.preset, p.cfg)
	}

	p.move(-1)
	if p.cursor != p.rows()-1 {
		t.Errorf("expected cursor to wrap to last row, got %d", p.cursor)
	}
}

func TestStepAndRunKeys(t *testing.T) {
	eng := &stubEngine{}
	m := newTestModel(t, eng)

	press(m, runes("s"))
	if eng.steps != 1 || m.view.Steps != 1 {
		t.Fatalf("expected one step, engine %d view %d", eng.steps, m.view.Steps)
	}

	press(m, space)
	if !m.view.Running {
		t.Fatal("expected running after space")
	}
	if _, cmd := m.Update(runes("s")); cmd != nil {
		t.Error("step should be disabled while running")
	}

	press(m, space)
	if m.view.Running {
		t.Error("expected paused after second space")
	}
	if !strings.Contains(m.View(), "paused") {
		t.Error("status line should show paused")
	}
}

func TestResetClearsHistory(t *testing.T) {
	m := newTestModel(t, &stubEngine{})
	press(m, runes("s"))
	press(m, runes("s"))
	if m.history.Len() != 3 {
		t.Fatalf("expected load plus two steps, got %d", m.history.Len())
	}
	press(m, runes("r"))
	if m.history.Len() != 1 || m.view.Steps != 0 {
		t.Errorf("expected history restarted, got %d points at step %d", m.history.Len(), m.view.Steps)
	}
}

func TestSettingsApply(t *testing.T) {
	eng := &stubEngine{}
	m := newTestModel(t, eng)

	press(m, runes("c"))
	if m.settings == nil || m.settings.loading {
		t.Fatal("expected loaded settings panel")
	}
	press(m, down)
	press(m, right) // trait -> efficiency
	press(m, enter)

	if len(eng.applied) != 1 || eng.applied[0].TraitName != "efficiency" {
		t.Fatalf("expected applied efficiency config, got %+v", eng.applied)
	}
	if !strings.Contains(m.View(), "Settings applied, press r to reset") {
		t.Error("expected acknowledgement")
	}

	// Blocking: other keys are ignored until dismissed.
	press(m, runes("s"))
	if eng.steps != 0 {
		t.Error("step should be blocked by the acknowledgement")
	}
	press(m, enter)
	if m.settings != nil {
		t.Error("expected panel closed after acknowledging success")
	}
	if m.view.Phase != controller.PhasePaused {
		t.Errorf("applying settings should not change phase, got %v", m.view.Phase)
	}
}

func TestSettingsRejected(t *testing.T) {
	m := newTestModel(t, &stubEngine{reject: true})

	press(m, runes("c"))
	press(m, enter)
	if m.settings == nil || !m.settings.ackErr {
		t.Fatal("expected error acknowledgement")
	}
	press(m, enter)
	if m.settings == nil {
		t.Error("panel should stay open after a failed apply")
	}
}

func TestThemes(t *testing.T) {
	if GetTheme("ocean").Name != "ocean" {
		t.Error("expected ocean theme")
	}
	if GetTheme("nope").Name != "default" {
		t.Error("expected fallback to default")
	}
	if len(ThemeNames()) != len(Themes) {
		t.Error("theme names mismatch")
	}
	if ThemeMinimal.Canvas().Hex() != "#000000" {
		t.Errorf("unexpected canvas %s", ThemeMinimal.Canvas().Hex())
	}
}
