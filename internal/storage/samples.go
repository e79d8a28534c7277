package storage

import (
	"path/filepath"
	"sort"
)

const samplesFile = "risk_samples.json"

// SampleStore retains per-cycle risk observations for the export command.
type SampleStore struct {
	path     string
	maxItems int
}

// NewSampleStore roots the store at dataDir with the given retention cap.
func NewSampleStore(dataDir string, maxItems int) *SampleStore {
	if maxItems <= 0 {
		maxItems = 5000
	}
	return &SampleStore{path: filepath.Join(dataDir, samplesFile), maxItems: maxItems}
}

// Load returns all retained samples ordered oldest first.
func (s *SampleStore) Load() ([]RiskSample, error) {
	samples, err := readRecords[RiskSample](s.path)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(samples, func(i, j int) bool {
		return samples[i].Timestamp < samples[j].Timestamp
	})
	return samples, nil
}

// Append records samples from one cycle, dropping the oldest beyond the cap.
func (s *SampleStore) Append(samples ...RiskSample) error {
	all, err := s.Load()
	if err != nil {
		return err
	}

	all = append(all, samples...)
	if len(all) > s.maxItems {
		all = all[len(all)-s.maxItems:]
	}
	return writeRecords(s.path, all)
}
