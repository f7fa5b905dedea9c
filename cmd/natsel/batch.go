package main

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/san-kum/natsel/internal/automation"
	"github.com/san-kum/natsel/internal/config"
	"github.com/san-kum/natsel/internal/sim"
	"github.com/san-kum/natsel/internal/storage"
)

func printOutcomes(outcomes []automation.Outcome) error {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tSTEPS\tFINAL\tPEAK\tEXTINCT\tDOMINANT\tRUN")
	for _, o := range outcomes {
		fmt.Fprintf(w, "%s\t%d\t%d\t%d\t%v\t%s\t%s\n",
			o.Name, o.Steps, o.FinalPopulation, o.PeakPopulation, o.Extinct, o.Dominant, o.RunID)
	}
	return w.Flush()
}

func baseConfig(preset string) (sim.Config, error) {
	if preset == "" {
		return sim.DefaultConfig(), nil
	}
	p := config.GetPreset(preset)
	if p == nil {
		return sim.Config{}, fmt.Errorf("unknown preset %q (have %v)", preset, config.ListPresets())
	}
	return *p, nil
}

func scenarioCommand() *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "scenario [file]",
		Short: "run a yaml scenario headlessly",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, client, log, err := headless(cmd)
			if err != nil {
				return err
			}
			scenario, err := automation.LoadScenario(args[0])
			if err != nil {
				return err
			}
			ctx, cancel := signalContext()
			defer cancel()

			outcomes, err := automation.RunScenario(ctx, scenario, client, automation.Options{
				Store:     storage.New(cfg.DataDir),
				EngineURL: client.BaseURL(),
				Logger:    log,
			})
			if len(outcomes) > 0 {
				if asJSON {
					enc := json.NewEncoder(os.Stdout)
					enc.SetIndent("", "  ")
					if encErr := enc.Encode(outcomes); encErr != nil {
						return encErr
					}
				} else if printErr := printOutcomes(outcomes); printErr != nil {
					return printErr
				}
			}
			return err
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print outcomes as JSON")
	return cmd
}

func sweepCommand() *cobra.Command {
	var (
		param, preset  string
		lo, hi         float64
		points, stepsN int
	)
	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "run one simulation per value of a parameter",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, client, log, err := headless(cmd)
			if err != nil {
				return err
			}
			base, err := baseConfig(preset)
			if err != nil {
				return err
			}
			ctx, cancel := signalContext()
			defer cancel()

			results, err := automation.RunSweep(ctx, &automation.ParameterSweep{
				Base:     base,
				Param:    param,
				Min:      lo,
				Max:      hi,
				NumSteps: points,
				MaxSteps: stepsN,
			}, client, automation.Options{EngineURL: client.BaseURL(), Logger: log})

			outcomes := make([]automation.Outcome, len(results))
			for i, r := range results {
				outcomes[i] = r.Outcome
			}
			if printErr := printOutcomes(outcomes); printErr != nil {
				return printErr
			}
			return err
		},
	}
	cmd.Flags().StringVar(&param, "param", "food_number", "parameter key to vary")
	cmd.Flags().StringVar(&preset, "preset", "", "base preset")
	cmd.Flags().Float64Var(&lo, "min", 50, "first value")
	cmd.Flags().Float64Var(&hi, "max", 500, "last value")
	cmd.Flags().IntVar(&points, "points", 5, "number of values")
	cmd.Flags().IntVar(&stepsN, "max-steps", automation.DefaultMaxSteps, "step limit per run")
	return cmd
}

func trialsCommand() *cobra.Command {
	var (
		preset         string
		trials, stepsN int
	)
	cmd := &cobra.Command{
		Use:   "trials",
		Short: "repeat one configuration and summarize the outcomes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, client, log, err := headless(cmd)
			if err != nil {
				return err
			}
			base, err := baseConfig(preset)
			if err != nil {
				return err
			}
			ctx, cancel := signalContext()
			defer cancel()

			outcomes, err := automation.RunTrials(ctx, &automation.Trials{
				Config:    base,
				NumTrials: trials,
				MaxSteps:  stepsN,
			}, client, automation.Options{EngineURL: client.BaseURL(), Logger: log})
			if len(outcomes) == 0 {
				return err
			}

			st := automation.Stats(outcomes)
			fmt.Printf("trials:      %d\n", st.Trials)
			fmt.Printf("extinct:     %d (%.0f%%)\n", st.Extinct, float64(st.Extinct)/float64(st.Trials)*100)
			fmt.Printf("mean steps:  %.1f\n", st.MeanSteps)
			fmt.Printf("final pop:   %.1f ± %.1f\n", st.MeanFinal, st.StdDevFinal)

			labels := make([]string, 0, len(st.DominantCounts))
			for l := range st.DominantCounts {
				labels = append(labels, l)
			}
			sort.Slice(labels, func(i, j int) bool { return st.DominantCounts[labels[i]] > st.DominantCounts[labels[j]] })
			for _, l := range labels {
				fmt.Printf("  %-12s %d\n", l, st.DominantCounts[l])
			}
			return err
		},
	}
	cmd.Flags().StringVar(&preset, "preset", "", "preset to repeat")
	cmd.Flags().IntVarP(&trials, "count", "n", 10, "number of trials")
	cmd.Flags().IntVar(&stepsN, "max-steps", automation.DefaultMaxSteps, "step limit per trial")
	return cmd
}
