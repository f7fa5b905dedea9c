package main

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/san-kum/natsel/internal/composite"
	"github.com/san-kum/natsel/internal/config"
	"github.com/san-kum/natsel/internal/export"
	"github.com/san-kum/natsel/internal/metrics"
	"github.com/san-kum/natsel/internal/sim"
)

const svgCellSize = 12

func printSummary(prefix string, snap *sim.Snapshot) {
	sum := metrics.Summarize(snap)
	status := "alive"
	if !sum.Alive {
		status = "ended"
	}
	fmt.Printf("%s%s  population=%d  food=%.1f  trait=%s", prefix, status, sum.Population, sum.FoodTotal, sum.TraitName)
	if sum.Dominant >= 0 {
		fmt.Printf("  dominant=%s  mean=%.2f  diversity=%.2f", sum.DominantLabel, sum.MeanTrait, sum.Diversity)
	}
	fmt.Println()
}

func printDistribution(snap *sim.Snapshot) {
	total := 0.0
	for _, v := range snap.TraitDistribution {
		total += v
	}
	if total <= 0 {
		return
	}
	for i, v := range snap.TraitDistribution {
		fmt.Printf("  %-12s %5.1f%%\n", snap.Label(i), v/total*100)
	}
}

func stateCommand() *cobra.Command {
	var (
		asJSON  bool
		svgPath string
	)
	cmd := &cobra.Command{
		Use:   "state",
		Short: "print the current simulation state",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, client, _, err := headless(cmd)
			if err != nil {
				return err
			}
			ctx, cancel := signalContext()
			defer cancel()

			snap, err := client.State(ctx)
			if err != nil {
				return err
			}
			if svgPath != "" {
				frame := export.FrameSVG(composite.Default(), snap, nil, svgCellSize)
				if err := os.WriteFile(svgPath, []byte(frame), 0644); err != nil {
					return err
				}
			}
			if asJSON {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(snap)
			}
			fmt.Printf("grid: %dx%d\n", snap.Width(), snap.Height())
			printSummary("", snap)
			printDistribution(snap)
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the raw snapshot as JSON")
	cmd.Flags().StringVar(&svgPath, "svg", "", "also write the grid as an svg image")
	return cmd
}

func stepCommand() *cobra.Command {
	var n int
	cmd := &cobra.Command{
		Use:   "step",
		Short: "advance the simulation",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, client, _, err := headless(cmd)
			if err != nil {
				return err
			}
			ctx, cancel := signalContext()
			defer cancel()

			for i := 1; i <= n; i++ {
				snap, err := client.Step(ctx)
				if err != nil {
					return fmt.Errorf("step %d: %w", i, err)
				}
				printSummary(fmt.Sprintf("%4d  ", i), snap)
				if !snap.Alive {
					break
				}
			}
			return nil
		},
	}
	cmd.Flags().IntVarP(&n, "count", "n", 1, "number of steps")
	return cmd
}

func resetCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "reset",
		Short: "reset the simulation with the engine's stored config",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, client, _, err := headless(cmd)
			if err != nil {
				return err
			}
			ctx, cancel := signalContext()
			defer cancel()

			snap, err := client.Reset(ctx, nil)
			if err != nil {
				return err
			}
			printSummary("", snap)
			return nil
		},
	}
}

// flagName maps a parameter key to its flag: food_number -> food-number.
func flagName(key string) string { return strings.ReplaceAll(key, "_", "-") }

func configCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "read or update the engine parameters",
	}

	getCmd := &cobra.Command{
		Use:   "get",
		Short: "print the engine's stored config",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, client, _, err := headless(cmd)
			if err != nil {
				return err
			}
			ctx, cancel := signalContext()
			defer cancel()

			cfg, err := client.Config(ctx)
			if err != nil {
				return err
			}
			return yaml.NewEncoder(os.Stdout).Encode(cfg)
		},
	}

	var preset, trait string
	setCmd := &cobra.Command{
		Use:   "set",
		Short: "update the engine's stored config; takes effect on the next reset",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, client, log, err := headless(cmd)
			if err != nil {
				return err
			}
			ctx, cancel := signalContext()
			defer cancel()

			var cfg sim.Config
			if preset != "" {
				p := config.GetPreset(preset)
				if p == nil {
					return fmt.Errorf("unknown preset %q (have %v)", preset, config.ListPresets())
				}
				cfg = *p
			} else {
				cur, err := client.Config(ctx)
				if err != nil {
					return err
				}
				cfg = *cur
			}

			flags := cmd.Flags()
			if flags.Changed("trait") {
				cfg.TraitName = trait
			}
			for _, p := range config.Params {
				name := flagName(p.Key)
				if !flags.Changed(name) {
					continue
				}
				v, err := flags.GetFloat64(name)
				if err != nil {
					return err
				}
				if v < p.Min || v > p.Max || math.IsNaN(v) {
					return &config.RangeError{Key: p.Key, Value: v, Min: p.Min, Max: p.Max}
				}
				p.Set(&cfg, v)
			}
			if err := config.CheckParams(cfg); err != nil {
				return err
			}

			ok, err := client.SetConfig(ctx, cfg)
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("engine rejected config: %s", cfg.String())
			}
			log.Info("config applied", "config", cfg.String())
			fmt.Println("settings applied, run `natsel reset` to start a new population")
			return nil
		},
	}
	setCmd.Flags().StringVar(&preset, "preset", "", "start from a preset instead of the stored config")
	setCmd.Flags().StringVar(&trait, "trait", "", fmt.Sprintf("tracked trait %v", sim.Traits))
	for _, p := range config.Params {
		setCmd.Flags().Float64(flagName(p.Key), 0, fmt.Sprintf("%s (%v to %v)", strings.ToLower(p.Label), p.Min, p.Max))
	}

	cmd.AddCommand(getCmd, setCmd)
	return cmd
}

func presetsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "presets",
		Short: "list engine parameter presets",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			for _, name := range config.ListPresets() {
				fmt.Printf("  %-10s %s\n", name, config.GetPreset(name).String())
			}
		},
	}
}
