package storage

import (
	"context"

	"realty-scanner/models"
)

// SnapshotStore holds the single latest scan snapshot.
type SnapshotStore interface {
	// Load returns nil without error when no snapshot has been saved yet.
	Load(ctx context.Context) (*models.ScanSnapshot, error)
	// Save replaces the latest snapshot.
	Save(ctx context.Context, snap *models.ScanSnapshot) error
	Close() error
}

// ArtifactWriter persists the per-run outputs. stamp identifies the run.
type ArtifactWriter interface {
	WriteScan(stamp string, report *models.ScanReport) error
	WriteReport(stamp string, markdown string) error
	WriteListings(stamp string, rows []models.ScoredListing) error
	// WriteAlerts writes nothing when alerts is empty.
	WriteAlerts(alerts []models.Alert) error
}
