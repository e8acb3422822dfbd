package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"realty-scanner/models"
)

const (
	snapshotFile     = "latest.json"
	latestReportFile = "latest-report.md"
	alertsFile       = "alerts.json"
)

// Stamp formats a run time for artifact file names.
func Stamp(t time.Time) string {
	return t.UTC().Format("2006-01-02T15-04-05")
}

// FileStore keeps the snapshot and every artifact under one data directory.
type FileStore struct {
	dir string
}

// NewFileStore creates dir if needed.
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("files: create data dir: %w", err)
	}
	return &FileStore{dir: dir}, nil
}

// Dir returns the data directory.
func (fs *FileStore) Dir() string { return fs.dir }

func (fs *FileStore) Load(ctx context.Context) (*models.ScanSnapshot, error) {
	data, err := os.ReadFile(filepath.Join(fs.dir, snapshotFile))
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("files: read snapshot: %w", err)
	}

	var snap models.ScanSnapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("files: decode snapshot: %w", err)
	}
	return &snap, nil
}

func (fs *FileStore) Save(ctx context.Context, snap *models.ScanSnapshot) error {
	return fs.writeJSON(snapshotFile, snap)
}

// Close is a no-op.
func (fs *FileStore) Close() error { return nil }

func (fs *FileStore) WriteScan(stamp string, report *models.ScanReport) error {
	return fs.writeJSON("scan-"+stamp+".json", report)
}

func (fs *FileStore) WriteReport(stamp string, markdown string) error {
	if err := fs.writeAtomic("report-"+stamp+".md", []byte(markdown)); err != nil {
		return err
	}
	return fs.writeAtomic(latestReportFile, []byte(markdown))
}

func (fs *FileStore) WriteListings(stamp string, rows []models.ScoredListing) error {
	w, err := NewCSVWriter(filepath.Join(fs.dir, "listings-"+stamp+".csv"))
	if err != nil {
		return err
	}
	if err := w.Write(rows); err != nil {
		_ = w.Close()
		return err
	}
	return w.Close()
}

func (fs *FileStore) WriteAlerts(alerts []models.Alert) error {
	if len(alerts) == 0 {
		return nil
	}
	return fs.writeJSON(alertsFile, alerts)
}

func (fs *FileStore) writeJSON(name string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("files: encode %s: %w", name, err)
	}
	return fs.writeAtomic(name, data)
}

// writeAtomic writes to a temp file in the same directory and renames it
// over name, so readers never observe a partial file.
func (fs *FileStore) writeAtomic(name string, data []byte) error {
	tmp, err := os.CreateTemp(fs.dir, "."+name+".*.tmp")
	if err != nil {
		return fmt.Errorf("files: create temp for %s: %w", name, err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("files: write %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("files: close %s: %w", name, err)
	}
	if err := os.Rename(tmpName, filepath.Join(fs.dir, name)); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("files: replace %s: %w", name, err)
	}
	return nil
}
