package config

import (
	"fmt"
	"math"
	"slices"

	"github.com/san-kum/natsel/internal/sim"
)

// Param describes one numeric engine parameter as the settings panel edits it.
type Param struct {
	Key   string
	Label string
	Min   float64
	Max   float64
	Step  float64
	Float bool

	get func(*sim.Config) float64
	set func(*sim.Config, float64)
}

func (p Param) Get(cfg *sim.Config) float64 { return p.get(cfg) }

// Set stores v clamped to the range and rounded to the step.
func (p Param) Set(cfg *sim.Config, v float64) {
	p.set(cfg, p.Clamp(v))
}

func (p Param) Clamp(v float64) float64 {
	v = math.Max(p.Min, math.Min(p.Max, v))
	if p.Step > 0 {
		v = p.Min + math.Round((v-p.Min)/p.Step)*p.Step
		v = math.Round(v*1e6) / 1e6
	}
	return math.Min(v, p.Max)
}

// Nudge moves the value by n steps.
func (p Param) Nudge(cfg *sim.Config, n int) {
	p.Set(cfg, p.Get(cfg)+float64(n)*p.Step)
}

func (p Param) Format(cfg *sim.Config) string {
	if p.Float {
		return fmt.Sprintf("%.2f", p.Get(cfg))
	}
	return fmt.Sprintf("%d", int(p.Get(cfg)))
}

func intParam(key, label string, min, max, step float64, field func(*sim.Config) *int) Param {
	return Param{
		Key: key, Label: label, Min: min, Max: max, Step: step,
		get: func(c *sim.Config) float64 { return float64(*field(c)) },
		set: func(c *sim.Config, v float64) { *field(c) = int(math.Round(v)) },
	}
}

func floatParam(key, label string, min, max, step float64, field func(*sim.Config) *float64) Param {
	return Param{
		Key: key, Label: label, Min: min, Max: max, Step: step, Float: true,
		get: func(c *sim.Config) float64 { return *field(c) },
		set: func(c *sim.Config, v float64) { *field(c) = v },
	}
}

// Params lists the numeric parameters in panel order.
var Params = []Param{
	intParam("food_number", "Food", 50, 500, 10, func(c *sim.Config) *int { return &c.FoodNumber }),
	intParam("num_organisms", "Organisms", 5, 100, 5, func(c *sim.Config) *int { return &c.NumOrganisms }),
	intParam("starting_energy", "Starting energy", 5, 50, 1, func(c *sim.Config) *int { return &c.StartingEnergy }),
	intParam("reproduction_energy_threshold", "Reproduction energy", 10, 50, 1, func(c *sim.Config) *int { return &c.ReproductionEnergyThreshold }),
	intParam("chance_reproduction_threshold", "Chance threshold", 5, 30, 1, func(c *sim.Config) *int { return &c.ChanceReproductionThreshold }),
	floatParam("repro_chance", "Reproduction chance", 0, 1, 0.05, func(c *sim.Config) *float64 { return &c.ReproChance }),
	floatParam("mutation_chance", "Mutation chance", 0, 0.5, 0.01, func(c *sim.Config) *float64 { return &c.MutationChance }),
}

func LookupParam(key string) (Param, bool) {
	for _, p := range Params {
		if p.Key == key {
			return p, true
		}
	}
	return Param{}, false
}

// RangeError reports a parameter outside the range the settings panel allows.
type RangeError struct {
	Key   string
	Value float64
	Min   float64
	Max   float64
}

func (e *RangeError) Error() string {
	return fmt.Sprintf("%s = %v outside [%v, %v]", e.Key, e.Value, e.Min, e.Max)
}

// CheckParams validates cfg against the panel ranges. The engine enforces
// its own limits; this catches typos in presets and CLI flags.
func CheckParams(cfg sim.Config) error {
	if !slices.Contains(sim.Traits, cfg.TraitName) {
		return fmt.Errorf("unknown trait %q (want one of %v)", cfg.TraitName, sim.Traits)
	}
	for _, p := range Params {
		v := p.Get(&cfg)
		if v < p.Min || v > p.Max || math.IsNaN(v) {
			return &RangeError{Key: p.Key, Value: v, Min: p.Min, Max: p.Max}
		}
	}
	return nil
}
