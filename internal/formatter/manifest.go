package formatter

import (
	"fmt"
	"os"
	"time"

	"github.com/desertthunder/lbx/internal/shared"
)

// ManifestEntry is one unit of work recorded in a manifest.
type ManifestEntry struct {
	Name   string   `json:"name"`
	Status string   `json:"status"`
	Files  []string `json:"files,omitempty"`
	Error  string   `json:"error,omitempty"`
}

// Manifest summarises a bulk run (feed export or cover art download).
type Manifest struct {
	RunID           string          `json:"run_id"`
	Kind            string          `json:"kind"`
	Format          string          `json:"format,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
	Total           int             `json:"total"`
	Succeeded       int             `json:"succeeded"`
	Skipped         int             `json:"skipped"`
	Failed          int             `json:"failed"`
	OutputDirectory string          `json:"output_directory"`
	Entries         []ManifestEntry `json:"entries"`
}

// NewManifest starts a manifest for a run of kind writing into outputDir.
func NewManifest(kind, format, outputDir string) *Manifest {
	return &Manifest{
		RunID:           shared.GenerateID(),
		Kind:            kind,
		Format:          format,
		CreatedAt:       time.Now().UTC(),
		OutputDirectory: outputDir,
		Entries:         []ManifestEntry{},
	}
}

// Success records a completed entry.
func (m *Manifest) Success(name string, files ...string) {
	m.Total++
	m.Succeeded++
	m.Entries = append(m.Entries, ManifestEntry{Name: name, Status: "success", Files: files})
}

// Skip records an entry that needed no work.
func (m *Manifest) Skip(name string, files ...string) {
	m.Total++
	m.Skipped++
	m.Entries = append(m.Entries, ManifestEntry{Name: name, Status: "skipped", Files: files})
}

// Failure records a failed entry.
func (m *Manifest) Failure(name string, err error) {
	m.Total++
	m.Failed++
	entry := ManifestEntry{Name: name, Status: "failed"}
	if err != nil {
		entry.Error = err.Error()
	}
	m.Entries = append(m.Entries, entry)
}

// WriteManifest writes m as indented JSON to path.
func WriteManifest(m *Manifest, path string) error {
	data, err := shared.MarshalJSON(m, true)
	if err != nil {
		return fmt.Errorf("failed to marshal manifest: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write manifest: %w", err)
	}
	return nil
}
