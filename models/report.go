package models

import "time"

// SearchResult is one search's scored output within a scan.
type SearchResult struct {
	Spec       SearchSpec      `json:"spec"`
	Source     SourceKind      `json:"source"`
	Total      int             `json:"total_reported"`
	Error      string          `json:"error,omitempty"`
	Text       string          `json:"text,omitempty"`
	Listings   []ScoredListing `json:"listings"`
	Assessment int             `json:"assessment_records"`
}

// ScanReport is everything a run produced, shaped for the report and the
// immutable scan record.
type ScanReport struct {
	GeneratedAt time.Time      `json:"generated_at"`
	Threshold   int            `json:"alert_threshold"`
	Baseline    bool           `json:"baseline"`
	Searches    []SearchResult `json:"searches"`
	Delisted    []string       `json:"delisted"`
	Alerts      []Alert        `json:"alerts"`
}
