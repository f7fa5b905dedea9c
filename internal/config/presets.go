package config

import (
	"sort"

	"github.com/san-kum/natsel/internal/sim"
)

// Presets are named engine parameter sets.
var Presets = map[string]sim.Config{
	"default": sim.DefaultConfig(),
	"scarce": {
		TraitName: "efficiency", FoodNumber: 80, NumOrganisms: 30, StartingEnergy: 15,
		ReproductionEnergyThreshold: 30, ChanceReproductionThreshold: 20,
		ReproChance: 0.2, MutationChance: 0.05,
	},
	"abundant": {
		TraitName: "speed", FoodNumber: 500, NumOrganisms: 15, StartingEnergy: 25,
		ReproductionEnergyThreshold: 20, ChanceReproductionThreshold: 10,
		ReproChance: 0.4, MutationChance: 0.05,
	},
	"volatile": {
		TraitName: "vision", FoodNumber: 250, NumOrganisms: 40, StartingEnergy: 20,
		ReproductionEnergyThreshold: 25, ChanceReproductionThreshold: 15,
		ReproChance: 0.3, MutationChance: 0.35,
	},
	"strength": {
		TraitName: "strength", FoodNumber: 200, NumOrganisms: 50, StartingEnergy: 20,
		ReproductionEnergyThreshold: 25, ChanceReproductionThreshold: 15,
		ReproChance: 0.25, MutationChance: 0.1,
	},
}

// GetPreset returns a copy of the named preset, or nil.
func GetPreset(name string) *sim.Config {
	p, ok := Presets[name]
	if !ok {
		return nil
	}
	return &p
}

func ListPresets() []string {
	names := make([]string, 0, len(Presets))
	for name := range Presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
