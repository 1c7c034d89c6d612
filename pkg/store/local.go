package store

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/NuHepMC/ReferenceImplementation/pkg/report"
)

// Local stores reports as JSON files in a directory.
type Local struct {
	dir string
}

// NewLocal creates a local backend, creating dir if needed.
func NewLocal(dir string) (*Local, error) {
	if dir == "" {
		return nil, errors.New("local store needs a directory")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create store directory: %w", err)
	}
	return &Local{dir: dir}, nil
}

func (l *Local) path(key string) string {
	return filepath.Join(l.dir, key+".json")
}

// Save writes the report to a temp file and renames it into place.
func (l *Local) Save(_ context.Context, key string, r *report.Report) error {
	data, err := report.Marshal(r)
	if err != nil {
		return fmt.Errorf("failed to encode report: %w", err)
	}

	tmp, err := os.CreateTemp(l.dir, key+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("failed to write report: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to write report: %w", err)
	}
	if err := os.Rename(tmpPath, l.path(key)); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to store report: %w", err)
	}
	return nil
}

// Load reads a stored report.
func (l *Local) Load(_ context.Context, key string) (*report.Report, error) {
	data, err := os.ReadFile(l.path(key))
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read report: %w", err)
	}
	return decode(key, data)
}

// Delete removes a stored report. Deleting a missing report is not an error.
func (l *Local) Delete(_ context.Context, key string) error {
	err := os.Remove(l.path(key))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to delete report: %w", err)
	}
	return nil
}

// Name returns the backend name.
func (l *Local) Name() string { return BackendLocal }
