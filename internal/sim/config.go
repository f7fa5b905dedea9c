package sim

import "fmt"

const DefaultTrait = "speed"

// Config is the engine's parameter set. It applies to the next reset only.
type Config struct {
	TraitName                   string  `json:"trait_name" yaml:"trait_name"`
	FoodNumber                  int     `json:"food_number" yaml:"food_number"`
	NumOrganisms                int     `json:"num_organisms" yaml:"num_organisms"`
	StartingEnergy              int     `json:"starting_energy" yaml:"starting_energy"`
	ReproductionEnergyThreshold int     `json:"reproduction_energy_threshold" yaml:"reproduction_energy_threshold"`
	ChanceReproductionThreshold int     `json:"chance_reproduction_threshold" yaml:"chance_reproduction_threshold"`
	ReproChance                 float64 `json:"repro_chance" yaml:"repro_chance"`
	MutationChance              float64 `json:"mutation_chance" yaml:"mutation_chance"`
}

func DefaultConfig() Config {
	return Config{
		TraitName:                   DefaultTrait,
		FoodNumber:                  300,
		NumOrganisms:                20,
		StartingEnergy:              20,
		ReproductionEnergyThreshold: 25,
		ChanceReproductionThreshold: 15,
		ReproChance:                 0.25,
		MutationChance:              0.05,
	}
}

func (c Config) String() string {
	return fmt.Sprintf("trait=%s food=%d organisms=%d energy=%d repro=%d/%d p_repro=%.2f p_mut=%.2f",
		c.TraitName, c.FoodNumber, c.NumOrganisms, c.StartingEnergy,
		c.ReproductionEnergyThreshold, c.ChanceReproductionThreshold,
		c.ReproChance, c.MutationChance)
}

// Traits lists the trait names the engine can track, in menu order.
var Traits = []string{"speed", "efficiency", "vision", "strength"}

var traitLabels = map[string][]string{
	"speed":      {"Slow", "Medium", "Fast"},
	"efficiency": {"Wasteful", "Normal", "Efficient", "Optimal"},
	"vision":     {"Nearsighted", "Keen"},
	"strength":   {"Weak", "Average", "Strong", "Powerful", "Titanic"},
}

// TraitLabels returns the bucket labels the engine uses for a trait.
func TraitLabels(trait string) []string {
	labels, ok := traitLabels[trait]
	if !ok {
		return nil
	}
	out := make([]string, len(labels))
	copy(out, labels)
	return out
}
