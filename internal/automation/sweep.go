package automation

import (
	"context"
	"fmt"

	"gonum.org/v1/gonum/stat"

	"github.com/san-kum/natsel/internal/config"
	"github.com/san-kum/natsel/internal/sim"
)

// ParameterSweep runs one config per value of a single numeric parameter.
type ParameterSweep struct {
	Base     sim.Config
	Param    string
	Min      float64
	Max      float64
	NumSteps int
	MaxSteps int
}

type SweepResult struct {
	Value   float64
	Outcome Outcome
}

func RunSweep(ctx context.Context, sweep *ParameterSweep, eng Engine, opts Options) ([]SweepResult, error) {
	p, ok := config.LookupParam(sweep.Param)
	if !ok {
		return nil, fmt.Errorf("unknown parameter %q", sweep.Param)
	}
	if sweep.NumSteps < 2 {
		return nil, fmt.Errorf("sweep needs at least 2 points, got %d", sweep.NumSteps)
	}
	log := opts.logger().With("sweep", sweep.Param)

	results := make([]SweepResult, 0, sweep.NumSteps)
	step := (sweep.Max - sweep.Min) / float64(sweep.NumSteps-1)

	for i := 0; i < sweep.NumSteps; i++ {
		cfg := sweep.Base
		p.Set(&cfg, sweep.Min+float64(i)*step)
		value := p.Get(&cfg)

		out, err := runOne(ctx, eng, cfg, sweep.MaxSteps, false, opts)
		if err != nil {
			return results, fmt.Errorf("%s=%v: %w", sweep.Param, value, err)
		}
		out.Name = fmt.Sprintf("%s=%s", sweep.Param, p.Format(&cfg))
		results = append(results, SweepResult{Value: value, Outcome: out})
		log.Info("sweep point", "n", i+1, "of", sweep.NumSteps, "value", value, "steps", out.Steps, "extinct", out.Extinct)
	}
	return results, nil
}

// Trials repeats one configuration; the engine is stochastic, so the
// outcomes differ.
type Trials struct {
	Config    sim.Config
	NumTrials int
	MaxSteps  int
}

type TrialStats struct {
	Trials         int
	Extinct        int
	MeanSteps      float64
	MeanFinal      float64
	StdDevFinal    float64
	DominantCounts map[string]int
}

func RunTrials(ctx context.Context, t *Trials, eng Engine, opts Options) ([]Outcome, error) {
	log := opts.logger()
	results := make([]Outcome, 0, t.NumTrials)
	for i := 0; i < t.NumTrials; i++ {
		out, err := runOne(ctx, eng, t.Config, t.MaxSteps, false, opts)
		if err != nil {
			return results, fmt.Errorf("trial %d: %w", i+1, err)
		}
		out.Name = fmt.Sprintf("trial-%d", i+1)
		results = append(results, out)
		if (i+1)%10 == 0 {
			log.Info("trials progress", "done", i+1, "of", t.NumTrials)
		}
	}
	return results, nil
}

func Stats(outcomes []Outcome) TrialStats {
	st := TrialStats{Trials: len(outcomes), DominantCounts: make(map[string]int)}
	if len(outcomes) == 0 {
		return st
	}
	steps := make([]float64, len(outcomes))
	final := make([]float64, len(outcomes))
	for i, o := range outcomes {
		if o.Extinct {
			st.Extinct++
		}
		if o.Dominant != "" {
			st.DominantCounts[o.Dominant]++
		}
		steps[i] = float64(o.Steps)
		final[i] = float64(o.FinalPopulation)
	}
	st.MeanSteps = stat.Mean(steps, nil)
	st.MeanFinal, st.StdDevFinal = stat.MeanStdDev(final, nil)
	if len(outcomes) < 2 {
		st.StdDevFinal = 0
	}
	return st
}
