package exporter

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"covidcli/internal/dataprocessing"
	"covidcli/internal/errors"
)

// Run statuses recorded in the manifest.
const (
	RunStatusRunning   = "running"
	RunStatusCompleted = "completed"
	RunStatusFailed    = "failed"
)

// DatasetInfo records the provenance of the source dataset.
type DatasetInfo struct {
	Path string `json:"path"`
	// Fingerprint is the BLAKE2b-256 digest of the dataset file, so a
	// manifest can be matched to the exact input that produced a run.
	Fingerprint string `json:"fingerprint,omitempty"`
	SizeBytes   int64  `json:"size_bytes,omitempty"`
}

// ArtifactInfo records one file a run produced.
type ArtifactInfo struct {
	Name      string    `json:"name"`
	Path      string    `json:"path"`
	Rows      int       `json:"rows,omitempty"`
	SizeBytes int64     `json:"size_bytes,omitempty"`
	WrittenAt time.Time `json:"written_at"`
}

// RunManifest is the single source of truth for what a batch run consumed
// and produced. Written next to the artifacts it describes. Safe for
// concurrent artifact recording while the report writers fan out.
type RunManifest struct {
	mu sync.RWMutex

	// Identity
	RunID     string    `json:"run_id"`
	Mode      string    `json:"mode"`
	StartedAt time.Time `json:"started_at"`

	// Current status
	Status     string    `json:"status"`
	Error      string    `json:"error,omitempty"`
	FinishedAt time.Time `json:"finished_at"`

	// Inputs
	Dataset DatasetInfo               `json:"dataset"`
	Load    *dataprocessing.LoadStats `json:"load,omitempty"`

	// Pipeline accounting, including per-step timings
	Prepare *dataprocessing.PrepareStats `json:"prepare,omitempty"`

	// Outputs
	Artifacts []ArtifactInfo `json:"artifacts"`
}

// NewRunManifest creates a manifest for a run that has just started.
func NewRunManifest(runID, mode string) *RunManifest {
	return &RunManifest{
		RunID:     runID,
		Mode:      mode,
		StartedAt: time.Now().UTC(),
		Status:    RunStatusRunning,
		Artifacts: []ArtifactInfo{},
	}
}

// SetDataset records the source dataset and its fingerprint.
func (m *RunManifest) SetDataset(path, fingerprint string, sizeBytes int64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.Dataset = DatasetInfo{
		Path:        path,
		Fingerprint: fingerprint,
		SizeBytes:   sizeBytes,
	}
}

// SetLoadStats attaches loader accounting to the manifest.
func (m *RunManifest) SetLoadStats(stats *dataprocessing.LoadStats) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Load = stats
}

// SetPrepareStats attaches pipeline accounting to the manifest.
func (m *RunManifest) SetPrepareStats(stats *dataprocessing.PrepareStats) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Prepare = stats
}

// RecordArtifact registers a produced file. The file is stat'ed for its
// size; a file that cannot be stat'ed is still recorded with size zero.
func (m *RunManifest) RecordArtifact(name, path string, rows int) {
	var size int64
	if info, err := os.Stat(path); err == nil {
		size = info.Size()
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.Artifacts = append(m.Artifacts, ArtifactInfo{
		Name:      name,
		Path:      path,
		Rows:      rows,
		SizeBytes: size,
		WrittenAt: time.Now().UTC(),
	})
}

// Complete marks the run as finished successfully.
func (m *RunManifest) Complete() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.Status = RunStatusCompleted
	m.FinishedAt = time.Now().UTC()
}

// Fail marks the run as failed with the terminal error.
func (m *RunManifest) Fail(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.Status = RunStatusFailed
	if err != nil {
		m.Error = err.Error()
	}
	m.FinishedAt = time.Now().UTC()
}

// Duration returns the wall-clock span of the run so far, or of the whole
// run once finished.
func (m *RunManifest) Duration() time.Duration {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.FinishedAt.IsZero() {
		return time.Since(m.StartedAt)
	}
	return m.FinishedAt.Sub(m.StartedAt)
}

// Save writes the manifest as indented JSON. Artifacts are ordered by name
// so concurrent writers cannot make two runs over the same input differ.
func (m *RunManifest) Save(path string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	sort.Slice(m.Artifacts, func(i, j int) bool {
		return m.Artifacts[i].Name < m.Artifacts[j].Name
	})

	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return errors.NewStorageError("failed to marshal run manifest", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return errors.NewStorageError("failed to create manifest directory", err).
			WithContext("path", path)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return errors.NewStorageError("failed to write run manifest", err).
			WithContext("path", path)
	}
	return nil
}

// LoadRunManifest reads a manifest back from disk.
func LoadRunManifest(path string) (*RunManifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.NewStorageError("failed to read run manifest", err).
			WithContext("path", path)
	}

	var manifest RunManifest
	if err := json.Unmarshal(data, &manifest); err != nil {
		return nil, errors.NewStorageError("failed to unmarshal run manifest", err).
			WithContext("path", path)
	}
	return &manifest, nil
}
