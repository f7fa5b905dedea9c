package metrics

import (
	"log/slog"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/san-kum/natsel/internal/sim"
)

// Summary condenses one snapshot into the figures shown in the stats panel
// and written to run records.
type Summary struct {
	Alive      bool
	TraitName  string
	Population int
	FoodTotal  float64

	// MeanTrait is the distribution-weighted mean bucket, 1-based. Zero
	// when the distribution is empty.
	MeanTrait float64

	// Diversity is the Shannon entropy of the distribution in nats.
	Diversity float64

	Dominant      int
	DominantLabel string
}

func Summarize(s *sim.Snapshot) Summary {
	sum := Summary{
		Alive:      s.Alive,
		TraitName:  s.TraitName,
		Population: s.Grid.Occupied(),
		FoodTotal:  s.Food.Total(),
		Dominant:   -1,
	}

	dist := s.TraitDistribution
	total := floats.Sum(dist)
	if len(dist) == 0 || total <= 0 {
		return sum
	}

	buckets := make([]float64, len(dist))
	for i := range buckets {
		buckets[i] = float64(i + 1)
	}
	sum.MeanTrait = stat.Mean(buckets, dist)

	p := make([]float64, len(dist))
	floats.ScaleTo(p, 1/total, dist)
	sum.Diversity = stat.Entropy(p)

	sum.Dominant = floats.MaxIdx(dist)
	sum.DominantLabel = s.Label(sum.Dominant)
	return sum
}

// Evenness is diversity normalized by the maximum possible for the bucket count.
func (s Summary) Evenness(buckets int) float64 {
	if buckets < 2 {
		return 0
	}
	return s.Diversity / math.Log(float64(buckets))
}

func (s Summary) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Bool("alive", s.Alive),
		slog.Int("population", s.Population),
		slog.Float64("food", s.FoodTotal),
		slog.Float64("mean_trait", s.MeanTrait),
		slog.Float64("diversity", s.Diversity),
		slog.String("dominant", s.DominantLabel),
	)
}
