package main

import (
	"testing"

	"github.com/san-kum/natsel/internal/sim"
)

func TestFlagName(t *testing.T) {
	if got := flagName("reproduction_energy_threshold"); got != "reproduction-energy-threshold" {
		t.Errorf("unexpected flag name %q", got)
	}
}

func TestBaseConfig(t *testing.T) {
	cfg, err := baseConfig("")
	if err != nil || cfg != sim.DefaultConfig() {
		t.Errorf("expected default config, got %+v %v", cfg, err)
	}
	cfg, err = baseConfig("scarce")
	if err != nil || cfg.FoodNumber != 80 {
		t.Errorf("expected scarce preset, got %+v %v", cfg, err)
	}
	if _, err := baseConfig("lush"); err == nil {
		t.Error("expected error for unknown preset")
	}
}
