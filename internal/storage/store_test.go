package storage

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/san-kum/natsel/internal/sim"
)

func snap(alive bool, grid sim.Grid, dist []float64) *sim.Snapshot {
	food := make(sim.Food, len(grid))
	for y, row := range grid {
		food[y] = make([]float64, len(row))
		for x := range row {
			food[y][x] = 1
		}
	}
	return &sim.Snapshot{
		Grid:              grid,
		Food:              food,
		Alive:             alive,
		TraitDistribution: dist,
		TraitName:         "vision",
		TraitLabels:       []string{"Nearsighted", "Keen"},
	}
}

func TestRunSaveLoad(t *testing.T) {
	st := New(t.TempDir())
	cfg := sim.DefaultConfig()

	run, err := st.Create("vision", "http://localhost:5001", &cfg)
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if !strings.HasPrefix(run.ID(), "vision_") {
		t.Errorf("unexpected run id %s", run.ID())
	}

	steps := []*sim.Snapshot{
		snap(true, sim.Grid{{1, 2}}, []float64{0.5, 0.5}),
		snap(true, sim.Grid{{1, 0}}, []float64{1, 0}),
		snap(false, sim.Grid{{0, 0}}, []float64{}),
	}
	for i, s := range steps {
		if err := run.Append(i, s); err != nil {
			t.Fatalf("append %d: %v", i, err)
		}
	}
	if err := run.Close(); err != nil {
		t.Fatalf("close failed: %v", err)
	}

	meta, err := st.Load(run.ID())
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if meta.Steps != 2 || !meta.Ended {
		t.Errorf("expected 2 steps and ended, got %d %v", meta.Steps, meta.Ended)
	}
	if meta.Config == nil || meta.Config.FoodNumber != 300 {
		t.Errorf("config not recorded: %+v", meta.Config)
	}
	if meta.Metrics["peak_population"] != 2 {
		t.Errorf("expected peak 2, got %f", meta.Metrics["peak_population"])
	}

	samples, err := st.LoadSamples(run.ID())
	if err != nil {
		t.Fatalf("load samples failed: %v", err)
	}
	if len(samples) != 3 {
		t.Fatalf("expected 3 samples, got %d", len(samples))
	}
	if samples[0].Population != 2 || samples[1].Population != 1 || samples[2].Alive {
		t.Errorf("unexpected samples %+v", samples)
	}
	if len(samples[0].Distribution) != 2 || samples[0].Distribution[1] != 0.5 {
		t.Errorf("distribution not round-tripped: %v", samples[0].Distribution)
	}
	if len(samples[2].Distribution) != 0 {
		t.Errorf("expected empty distribution, got %v", samples[2].Distribution)
	}
}

func TestCreateAvoidsCollisions(t *testing.T) {
	st := New(t.TempDir())
	a, err := st.Create("speed", "", nil)
	if err != nil {
		t.Fatal(err)
	}
	defer a.Close()
	b, err := st.Create("speed", "", nil)
	if err != nil {
		t.Fatal(err)
	}
	defer b.Close()
	if a.ID() == b.ID() {
		t.Errorf("expected distinct ids, both %s", a.ID())
	}
}

func TestListEmpty(t *testing.T) {
	st := New(filepath.Join(t.TempDir(), "missing"))
	runs, err := st.List()
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(runs) != 0 {
		t.Errorf("expected no runs, got %d", len(runs))
	}
}

func TestListSkipsJunk(t *testing.T) {
	dir := t.TempDir()
	st := New(dir)
	run, _ := st.Create("speed", "", nil)
	run.Close()

	os.MkdirAll(filepath.Join(dir, "not_a_run"), 0755)
	os.WriteFile(filepath.Join(dir, "stray.txt"), []byte("x"), 0644)

	runs, err := st.List()
	if err != nil {
		t.Fatal(err)
	}
	if len(runs) != 1 || runs[0].ID != run.ID() {
		t.Errorf("expected only %s, got %+v", run.ID(), runs)
	}
}

func TestRecorderStartsRunPerReset(t *testing.T) {
	st := New(t.TempDir())
	rec := NewRecorder(st, "http://engine", nil)

	first := snap(true, sim.Grid{{1}}, []float64{1, 0})
	rec.OnStart(first, nil)
	firstID := rec.Current()
	rec.OnStep(1, first)
	rec.OnStep(2, first)

	rec.OnStart(first, nil)
	secondID := rec.Current()
	rec.OnStep(1, first)
	if err := rec.Close(); err != nil {
		t.Fatalf("close failed: %v", err)
	}

	if firstID == "" || firstID == secondID {
		t.Fatalf("expected two distinct runs, got %q and %q", firstID, secondID)
	}
	a, _ := st.LoadSamples(firstID)
	b, _ := st.LoadSamples(secondID)
	if len(a) != 3 || len(b) != 2 {
		t.Errorf("expected 3 and 2 samples, got %d and %d", len(a), len(b))
	}
	meta, _ := st.Load(firstID)
	if meta.EngineURL != "http://engine" {
		t.Errorf("unexpected engine url %s", meta.EngineURL)
	}
}

func TestExport(t *testing.T) {
	st := New(t.TempDir())
	run, _ := st.Create("speed", "", nil)
	run.Append(0, snap(true, sim.Grid{{1}}, []float64{1}))
	run.Close()

	data, err := st.Export(run.ID())
	if err != nil {
		t.Fatalf("export failed: %v", err)
	}

	var buf bytes.Buffer
	if err := ExportCSV(&buf, data); err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(buf.String(), "step,elapsed,alive,population") {
		t.Errorf("unexpected csv header: %q", buf.String())
	}

	buf.Reset()
	if err := ExportJSON(&buf, data); err != nil {
		t.Fatal(err)
	}
	var decoded ExportData
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if decoded.Run.ID != run.ID() || len(decoded.Samples) != 1 {
		t.Errorf("unexpected export %+v", decoded)
	}
}
