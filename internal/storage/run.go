package storage

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gocarina/gocsv"

	"github.com/san-kum/natsel/internal/metrics"
	"github.com/san-kum/natsel/internal/sim"
)

// Run is an open recording. Append samples, then Close to finalize the
// metadata.
type Run struct {
	dir     string
	meta    RunMetadata
	file    *os.File
	started time.Time
	header  bool
	metrics []metrics.Metric
}

// Create opens a new run directory named <trait>_<unix seconds>, with a
// numeric suffix if that name is taken.
func (s *Store) Create(trait, engineURL string, cfg *sim.Config) (*Run, error) {
	if err := s.Init(); err != nil {
		return nil, err
	}
	if trait == "" {
		trait = sim.DefaultTrait
	}

	now := time.Now()
	base := fmt.Sprintf("%s_%d", trait, now.Unix())
	id := base
	dir := filepath.Join(s.baseDir, id)
	for n := 2; ; n++ {
		err := os.Mkdir(dir, 0755)
		if err == nil {
			break
		}
		if !errors.Is(err, os.ErrExist) {
			return nil, err
		}
		id = fmt.Sprintf("%s_%d", base, n)
		dir = filepath.Join(s.baseDir, id)
	}

	file, err := os.Create(filepath.Join(dir, samplesFile))
	if err != nil {
		return nil, err
	}

	r := &Run{
		dir:  dir,
		file: file,
		meta: RunMetadata{
			ID:        id,
			Trait:     trait,
			EngineURL: engineURL,
			Timestamp: now,
			Config:    cfg,
		},
		started: now,
		metrics: metrics.Standard(),
	}
	if err := writeMetadata(dir, &r.meta); err != nil {
		file.Close()
		return nil, err
	}
	return r, nil
}

func (r *Run) ID() string { return r.meta.ID }

// Append records one snapshot as a sample.
func (r *Run) Append(step int, snap *sim.Snapshot) error {
	sum := metrics.Summarize(snap)
	for _, m := range r.metrics {
		m.Observe(snap)
	}

	rows := []Sample{{
		Step:         step,
		Elapsed:      time.Since(r.started).Seconds(),
		Alive:        snap.Alive,
		Population:   sum.Population,
		FoodTotal:    sum.FoodTotal,
		MeanTrait:    sum.MeanTrait,
		Diversity:    sum.Diversity,
		Distribution: Distribution(snap.TraitDistribution),
	}}

	var err error
	if !r.header {
		err = gocsv.Marshal(&rows, r.file)
		r.header = true
	} else {
		err = gocsv.MarshalWithoutHeaders(&rows, r.file)
	}
	if err != nil {
		return fmt.Errorf("run %s: %w", r.meta.ID, err)
	}

	r.meta.Steps = step
	r.meta.Ended = !snap.Alive
	return nil
}

// Close flushes the sample file and writes the final metadata.
func (r *Run) Close() error {
	r.meta.Metrics = make(map[string]float64, len(r.metrics))
	for _, m := range r.metrics {
		r.meta.Metrics[m.Name()] = m.Value()
	}
	errClose := r.file.Close()
	if err := writeMetadata(r.dir, &r.meta); err != nil {
		return err
	}
	return errClose
}
