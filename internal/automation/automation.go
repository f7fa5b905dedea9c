// Package automation drives the engine headlessly: scripted scenarios,
// parameter sweeps and repeated trials.
package automation

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/san-kum/natsel/internal/config"
	"github.com/san-kum/natsel/internal/metrics"
	"github.com/san-kum/natsel/internal/sim"
	"github.com/san-kum/natsel/internal/storage"
)

// DefaultMaxSteps bounds a run whose population never ends.
const DefaultMaxSteps = 500

// Engine is what a headless run needs from the engine client.
type Engine interface {
	Reset(ctx context.Context, cfg *sim.Config) (*sim.Snapshot, error)
	Step(ctx context.Context) (*sim.Snapshot, error)
}

// Scenario is a named sequence of runs loaded from YAML.
type Scenario struct {
	Name        string        `yaml:"name"`
	Description string        `yaml:"description"`
	Runs        []ScenarioRun `yaml:"runs"`
}

// ScenarioRun configures one run: either a preset name or an explicit config.
type ScenarioRun struct {
	Name     string      `yaml:"name"`
	Preset   string      `yaml:"preset"`
	Config   *sim.Config `yaml:"config"`
	MaxSteps int         `yaml:"max_steps"`
	Record   bool        `yaml:"record"`
}

// UnmarshalYAML lays an inline config over the default parameters so a run
// only lists what it changes.
func (r *ScenarioRun) UnmarshalYAML(value *yaml.Node) error {
	type plain ScenarioRun
	if err := value.Decode((*plain)(r)); err != nil {
		return err
	}
	for i := 0; i+1 < len(value.Content); i += 2 {
		if value.Content[i].Value != "config" {
			continue
		}
		cfg := sim.DefaultConfig()
		if err := value.Content[i+1].Decode(&cfg); err != nil {
			return err
		}
		r.Config = &cfg
	}
	return nil
}

// Resolve returns the engine config for the run.
func (r ScenarioRun) Resolve() (sim.Config, error) {
	switch {
	case r.Config != nil && r.Preset != "":
		return sim.Config{}, errors.New("set either preset or config, not both")
	case r.Config != nil:
		return *r.Config, config.CheckParams(*r.Config)
	case r.Preset != "":
		p := config.GetPreset(r.Preset)
		if p == nil {
			return sim.Config{}, fmt.Errorf("unknown preset %q", r.Preset)
		}
		return *p, nil
	}
	return sim.DefaultConfig(), nil
}

func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var scenario Scenario
	if err := yaml.Unmarshal(data, &scenario); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if len(scenario.Runs) == 0 {
		return nil, fmt.Errorf("%s: scenario has no runs", path)
	}
	for i, r := range scenario.Runs {
		if _, err := r.Resolve(); err != nil {
			return nil, fmt.Errorf("%s: run %d: %w", path, i+1, err)
		}
	}
	return &scenario, nil
}

// Outcome summarizes one finished run.
type Outcome struct {
	Name            string     `json:"name"`
	Config          sim.Config `json:"config"`
	Steps           int        `json:"steps"`
	FinalPopulation int        `json:"final_population"`
	PeakPopulation  int        `json:"peak_population"`
	Extinct         bool       `json:"extinct"`
	Dominant        string     `json:"dominant"`
	RunID           string     `json:"run_id,omitempty"`
}

type Options struct {
	// Store receives runs marked for recording. Nil disables recording.
	Store     *storage.Store
	EngineURL string
	Logger    *slog.Logger
}

func (o *Options) logger() *slog.Logger {
	if o.Logger == nil {
		return slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return o.Logger
}

// RunScenario executes every run in order. On error the outcomes gathered
// so far are returned with it.
func RunScenario(ctx context.Context, scenario *Scenario, eng Engine, opts Options) ([]Outcome, error) {
	log := opts.logger().With("scenario", scenario.Name)
	outcomes := make([]Outcome, 0, len(scenario.Runs))

	for i, run := range scenario.Runs {
		cfg, err := run.Resolve()
		if err != nil {
			return outcomes, fmt.Errorf("run %d: %w", i+1, err)
		}
		name := run.Name
		if name == "" {
			name = fmt.Sprintf("run-%d", i+1)
		}
		log.Info("starting run", "n", i+1, "of", len(scenario.Runs), "name", name, "config", cfg.String())

		out, err := runOne(ctx, eng, cfg, run.MaxSteps, run.Record, opts)
		if err != nil {
			return outcomes, fmt.Errorf("run %d (%s): %w", i+1, name, err)
		}
		out.Name = name
		log.Info("run finished", "name", name, "steps", out.Steps, "extinct", out.Extinct, "dominant", out.Dominant)
		outcomes = append(outcomes, out)
	}
	return outcomes, nil
}

func runOne(ctx context.Context, eng Engine, cfg sim.Config, maxSteps int, record bool, opts Options) (Outcome, error) {
	if maxSteps <= 0 {
		maxSteps = DefaultMaxSteps
	}

	snap, err := eng.Reset(ctx, &cfg)
	if err != nil {
		return Outcome{}, err
	}

	var rec *storage.Run
	if record && opts.Store != nil {
		rec, err = opts.Store.Create(snap.TraitName, opts.EngineURL, &cfg)
		if err != nil {
			return Outcome{}, err
		}
		defer rec.Close()
		if err := rec.Append(0, snap); err != nil {
			return Outcome{}, err
		}
	}

	peak := metrics.NewPeakPopulation()
	peak.Observe(snap)

	steps := 0
	for snap.Alive && steps < maxSteps {
		if err := ctx.Err(); err != nil {
			return Outcome{}, err
		}
		snap, err = eng.Step(ctx)
		if err != nil {
			return Outcome{}, fmt.Errorf("step %d: %w", steps+1, err)
		}
		steps++
		peak.Observe(snap)
		if rec != nil {
			if err := rec.Append(steps, snap); err != nil {
				return Outcome{}, err
			}
		}
	}

	sum := metrics.Summarize(snap)
	out := Outcome{
		Config:          cfg,
		Steps:           steps,
		FinalPopulation: sum.Population,
		PeakPopulation:  int(peak.Value()),
		Extinct:         !snap.Alive,
		Dominant:        sum.DominantLabel,
	}
	if rec != nil {
		out.RunID = rec.ID()
	}
	return out, nil
}
