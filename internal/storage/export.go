package storage

import (
	"encoding/json"
	"io"

	"github.com/gocarina/gocsv"
)

type ExportData struct {
	Run     RunMetadata `json:"run"`
	Samples []Sample    `json:"samples"`
}

// Export loads a run's metadata and samples together.
func (s *Store) Export(runID string) (*ExportData, error) {
	meta, err := s.Load(runID)
	if err != nil {
		return nil, err
	}
	samples, err := s.LoadSamples(runID)
	if err != nil {
		return nil, err
	}
	return &ExportData{Run: *meta, Samples: samples}, nil
}

func ExportJSON(w io.Writer, data *ExportData) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(data)
}

func ExportCSV(w io.Writer, data *ExportData) error {
	return gocsv.Marshal(&data.Samples, w)
}
