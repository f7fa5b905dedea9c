// Package storage records controller runs to disk: one directory per run
// with JSON metadata and a CSV of per-step samples.
package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/gocarina/gocsv"

	"github.com/san-kum/natsel/internal/sim"
)

const (
	metadataFile = "metadata.json"
	samplesFile  = "samples.csv"
)

type Store struct {
	baseDir string
}

func New(baseDir string) *Store {
	return &Store{baseDir: baseDir}
}

func (s *Store) Init() error {
	return os.MkdirAll(s.baseDir, 0755)
}

func (s *Store) Dir() string { return s.baseDir }

type RunMetadata struct {
	ID        string             `json:"id"`
	Trait     string             `json:"trait"`
	EngineURL string             `json:"engine_url"`
	Timestamp time.Time          `json:"timestamp"`
	Config    *sim.Config        `json:"config,omitempty"`
	Steps     int                `json:"steps"`
	Ended     bool               `json:"ended"`
	Metrics   map[string]float64 `json:"metrics,omitempty"`
}

// Distribution is stored as one CSV field, buckets separated by ';'.
type Distribution []float64

func (d Distribution) MarshalCSV() (string, error) {
	parts := make([]string, len(d))
	for i, v := range d {
		parts[i] = strconv.FormatFloat(v, 'f', 4, 64)
	}
	return strings.Join(parts, ";"), nil
}

func (d *Distribution) UnmarshalCSV(s string) error {
	*d = (*d)[:0]
	if s == "" {
		return nil
	}
	for _, part := range strings.Split(s, ";") {
		v, err := strconv.ParseFloat(part, 64)
		if err != nil {
			return fmt.Errorf("distribution %q: %w", s, err)
		}
		*d = append(*d, v)
	}
	return nil
}

type Sample struct {
	Step         int          `csv:"step" json:"step"`
	Elapsed      float64      `csv:"elapsed" json:"elapsed"`
	Alive        bool         `csv:"alive" json:"alive"`
	Population   int          `csv:"population" json:"population"`
	FoodTotal    float64      `csv:"food_total" json:"food_total"`
	MeanTrait    float64      `csv:"mean_trait" json:"mean_trait"`
	Diversity    float64      `csv:"diversity" json:"diversity"`
	Distribution Distribution `csv:"distribution" json:"distribution"`
}

func (s *Store) List() ([]RunMetadata, error) {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []RunMetadata{}, nil
		}
		return nil, err
	}

	runs := make([]RunMetadata, 0)
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		meta, err := s.Load(entry.Name())
		if err != nil {
			continue
		}
		runs = append(runs, *meta)
	}

	sort.Slice(runs, func(i, j int) bool { return runs[i].Timestamp.Before(runs[j].Timestamp) })
	return runs, nil
}

func (s *Store) Load(runID string) (*RunMetadata, error) {
	data, err := os.ReadFile(filepath.Join(s.baseDir, runID, metadataFile))
	if err != nil {
		return nil, err
	}

	var meta RunMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, fmt.Errorf("run %s: %w", runID, err)
	}
	return &meta, nil
}

func (s *Store) LoadSamples(runID string) ([]Sample, error) {
	file, err := os.Open(filepath.Join(s.baseDir, runID, samplesFile))
	if err != nil {
		return nil, err
	}
	defer file.Close()

	samples := []Sample{}
	if err := gocsv.UnmarshalFile(file, &samples); err != nil {
		if errors.Is(err, gocsv.ErrEmptyCSVFile) {
			return []Sample{}, nil
		}
		return nil, fmt.Errorf("run %s samples: %w", runID, err)
	}
	return samples, nil
}

func writeMetadata(dir string, meta *RunMetadata) error {
	tmp := filepath.Join(dir, metadataFile+".tmp")
	f, err := os.Create(tmp)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(meta); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	return os.Rename(tmp, filepath.Join(dir, metadataFile))
}
