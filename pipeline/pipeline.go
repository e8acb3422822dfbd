// Package pipeline runs one scan: every search in order, scoring, the diff
// against the previous snapshot, artifacts, and finally the snapshot commit.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"realty-scanner/assessment"
	"realty-scanner/models"
	"realty-scanner/services"
	"realty-scanner/storage"
	"realty-scanner/utils"
)

// Collector gathers the listings of one search.
type Collector interface {
	Collect(ctx context.Context, spec models.SearchSpec) (*models.Collection, error)
}

// AssessmentSource fetches the valuation records of one community.
type AssessmentSource interface {
	FetchAll(ctx context.Context, area string) ([]models.AssessmentRecord, error)
}

// Notifier pushes alerts somewhere outside the data directory.
type Notifier interface {
	Notify(ctx context.Context, alerts []models.Alert) error
}

// Deps wires a Scanner. Assessments and Notifier are optional.
type Deps struct {
	Collector   Collector
	Assessments AssessmentSource
	Snapshots   storage.SnapshotStore
	Artifacts   storage.ArtifactWriter
	Notifier    Notifier
	Reporter    *services.ReportGenerator
	Scoring     services.ScoringConfig
	Threshold   int
	SearchDelay time.Duration
	Logger      *utils.Logger
	Now         func() time.Time
}

// Scanner runs scans.
type Scanner struct {
	deps Deps
}

// New creates a Scanner.
func New(deps Deps) *Scanner {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.Reporter == nil {
		deps.Reporter = services.NewReportGenerator(deps.Logger, 20)
	}
	return &Scanner{deps: deps}
}

// Run scans every search. A non-nil error means the run was aborted: nothing
// was written and the previous snapshot is untouched.
func (s *Scanner) Run(ctx context.Context, searches []models.SearchSpec) (*models.ScanReport, error) {
	d := s.deps
	started := d.Now()

	prev, err := d.Snapshots.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("pipeline: load snapshot: %w", err)
	}
	if prev == nil {
		d.Logger.Info("[pipeline] No previous snapshot, this run is the baseline")
	} else {
		d.Logger.Info("[pipeline] Previous snapshot from %s", prev.TakenAt.Format(time.RFC3339))
	}

	report := &models.ScanReport{
		GeneratedAt: started,
		Threshold:   d.Threshold,
		Baseline:    prev != nil,
		Delisted:    []string{},
		Alerts:      []models.Alert{},
	}
	next := &models.ScanSnapshot{TakenAt: started, Searches: make(map[string][]models.Listing)}
	indexes := make(map[string]*assessment.Index)
	pacer := utils.NewPacer(d.SearchDelay)

	var currentIDs []string
	for _, spec := range searches {
		if err := pacer.Wait(ctx); err != nil {
			return nil, fmt.Errorf("pipeline: %w", err)
		}

		col, err := d.Collector.Collect(ctx, spec)
		if err != nil {
			return nil, fmt.Errorf("pipeline: search %s: %w", spec.Key, err)
		}

		var lookup services.AssessmentLookup
		index := s.indexFor(ctx, spec.AssessmentArea, indexes)
		if index != nil {
			lookup = index
		}
		scorer := services.NewScorer(d.Scoring, lookup)
		result := models.SearchResult{
			Spec:     spec,
			Source:   col.Source,
			Total:    col.TotalReported,
			Error:    col.ErrorText(),
			Text:     col.Text,
			Listings: make([]models.ScoredListing, 0, len(col.Listings)),
		}
		if index != nil {
			result.Assessment = index.Len()
		}
		for _, l := range col.Listings {
			sl := scorer.Score(l, spec.Profile)
			sl.Search = spec.Key
			result.Listings = append(result.Listings, sl)
		}
		report.Searches = append(report.Searches, result)

		kept := col.Listings
		if incomplete(col) {
			// an unreadable search keeps its previous listings so they are
			// neither reported delisted nor re-flagged new next time
			kept = carryForward(prev, spec.Key, col.Listings)
			d.Logger.Warn("[pipeline] %s incomplete (%s), keeping %d listings from the previous snapshot",
				spec.Key, col.Source, len(kept)-len(col.Listings))
		}
		next.Searches[spec.Key] = kept
		for _, l := range kept {
			currentIDs = append(currentIDs, l.ID)
		}
	}

	diff := services.Diff(prev, currentIDs)
	report.Delisted = append(report.Delisted, diff.Delisted...)
	for i := range report.Searches {
		sr := &report.Searches[i]
		for j := range sr.Listings {
			sr.Listings[j].IsNew = diff.IsNew(sr.Listings[j].ID)
		}
		report.Alerts = append(report.Alerts, services.BuildAlerts(sr.Spec, sr.Listings, d.Threshold)...)
	}
	d.Logger.Info("[pipeline] %d new, %d delisted, %d alerts", len(diff.New), len(diff.Delisted), len(report.Alerts))

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("pipeline: %w", err)
	}
	if err := s.writeArtifacts(report); err != nil {
		return nil, err
	}
	if err := d.Snapshots.Save(ctx, next); err != nil {
		return nil, fmt.Errorf("pipeline: save snapshot: %w", err)
	}

	if d.Notifier != nil && len(report.Alerts) > 0 {
		if err := d.Notifier.Notify(ctx, report.Alerts); err != nil {
			d.Logger.Warn("[pipeline] Alert push failed: %v", err)
		}
	}
	return report, nil
}

func (s *Scanner) writeArtifacts(report *models.ScanReport) error {
	d := s.deps
	stamp := storage.Stamp(report.GeneratedAt)

	if err := d.Artifacts.WriteScan(stamp, report); err != nil {
		return fmt.Errorf("pipeline: write scan record: %w", err)
	}
	if err := d.Artifacts.WriteReport(stamp, d.Reporter.Markdown(report)); err != nil {
		return fmt.Errorf("pipeline: write report: %w", err)
	}
	var rows []models.ScoredListing
	for _, sr := range report.Searches {
		rows = append(rows, sr.Listings...)
	}
	if err := d.Artifacts.WriteListings(stamp, rows); err != nil {
		return fmt.Errorf("pipeline: write listings: %w", err)
	}
	if err := d.Artifacts.WriteAlerts(report.Alerts); err != nil {
		return fmt.Errorf("pipeline: write alerts: %w", err)
	}
	return nil
}

// indexFor builds each community's index once per run. A failed fetch leaves
// the search unmatched rather than failing the run.
func (s *Scanner) indexFor(ctx context.Context, area string, cache map[string]*assessment.Index) *assessment.Index {
	if area == "" || s.deps.Assessments == nil {
		return nil
	}
	if idx, ok := cache[area]; ok {
		return idx
	}

	records, err := s.deps.Assessments.FetchAll(ctx, area)
	if err != nil {
		s.deps.Logger.Warn("[pipeline] Assessments for %s unavailable: %v", area, err)
		cache[area] = nil
		return nil
	}
	idx := assessment.BuildIndex(records)
	s.deps.Logger.Info("[pipeline] Indexed %d/%d assessment records for %s", idx.Len(), len(records), area)
	cache[area] = idx
	return idx
}

func incomplete(col *models.Collection) bool {
	return col.Source == models.SourceError || col.Source == models.SourceText
}

// carryForward merges the previous snapshot's listings for key after the
// partial ones, first occurrence wins.
func carryForward(prev *models.ScanSnapshot, key string, partial []models.Listing) []models.Listing {
	out := make([]models.Listing, 0, len(partial))
	seen := utils.NewIDSet()
	for _, l := range partial {
		if seen.Add(l.ID) {
			out = append(out, l)
		}
	}
	if prev == nil {
		return out
	}
	for _, l := range prev.Searches[key] {
		if seen.Add(l.ID) {
			out = append(out, l)
		}
	}
	return out
}
