package pipeline

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"testing"
	"time"

	"realty-scanner/models"
	"realty-scanner/scraper/realtor"
	"realty-scanner/services"
	"realty-scanner/utils"
)

type fakeCollector struct {
	results map[string]*models.Collection
	errs    map[string]error
	calls   []string
}

func (f *fakeCollector) Collect(ctx context.Context, spec models.SearchSpec) (*models.Collection, error) {
	f.calls = append(f.calls, spec.Key)
	if err := f.errs[spec.Key]; err != nil {
		return nil, err
	}
	if col, ok := f.results[spec.Key]; ok {
		return col, nil
	}
	return &models.Collection{Search: spec.Key, Source: models.SourceAPI, Listings: []models.Listing{}}, nil
}

type fakeAssessments struct {
	records map[string][]models.AssessmentRecord
	err     error
	calls   int
}

func (f *fakeAssessments) FetchAll(ctx context.Context, area string) ([]models.AssessmentRecord, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.records[area], nil
}

type memSnapshots struct {
	snap  *models.ScanSnapshot
	saves int
}

func (m *memSnapshots) Load(ctx context.Context) (*models.ScanSnapshot, error) { return m.snap, nil }
func (m *memSnapshots) Save(ctx context.Context, s *models.ScanSnapshot) error {
	m.snap = s
	m.saves++
	return nil
}
func (m *memSnapshots) Close() error { return nil }

type memArtifacts struct {
	scans    int
	reports  []string
	listings int
	alerts   [][]models.Alert
}

func (m *memArtifacts) WriteScan(stamp string, r *models.ScanReport) error { m.scans++; return nil }
func (m *memArtifacts) WriteReport(stamp, md string) error {
	m.reports = append(m.reports, md)
	return nil
}
func (m *memArtifacts) WriteListings(stamp string, rows []models.ScoredListing) error {
	m.listings += len(rows)
	return nil
}
func (m *memArtifacts) WriteAlerts(a []models.Alert) error {
	m.alerts = append(m.alerts, a)
	return nil
}

type recordingNotifier struct{ got []models.Alert }

func (r *recordingNotifier) Notify(ctx context.Context, alerts []models.Alert) error {
	r.got = append(r.got, alerts...)
	return nil
}

var searches = []models.SearchSpec{
	{Key: "walkout", Name: "Walkouts", Profile: models.ProfileWalkout},
	{Key: "community", Name: "Lake Bonavista", Profile: models.ProfileCommunity, AssessmentArea: "LAKE BONAVISTA"},
}

func apiCollection(key string, listings ...models.Listing) *models.Collection {
	return &models.Collection{Search: key, Source: models.SourceAPI, Listings: listings}
}

type fixture struct {
	collector *fakeCollector
	assess    *fakeAssessments
	snaps     *memSnapshots
	artifacts *memArtifacts
	notifier  *recordingNotifier
}

func newFixture() *fixture {
	return &fixture{
		collector: &fakeCollector{results: map[string]*models.Collection{}, errs: map[string]error{}},
		assess:    &fakeAssessments{records: map[string][]models.AssessmentRecord{}},
		snaps:     &memSnapshots{},
		artifacts: &memArtifacts{},
		notifier:  &recordingNotifier{},
	}
}

func (f *fixture) scanner() *Scanner {
	return New(Deps{
		Collector:   f.collector,
		Assessments: f.assess,
		Snapshots:   f.snaps,
		Artifacts:   f.artifacts,
		Notifier:    f.notifier,
		Scoring:     services.DefaultScoringConfig(),
		Threshold:   50,
		Logger:      utils.Discard(),
		Now:         func() time.Time { return time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC) },
	})
}

const hotRemarks = "Judicial sale. Walkout backing the ravine." // 30 + 25 + 15 + 5

func TestRunFirstScanIsBaseline(t *testing.T) {
	f := newFixture()
	f.collector.results["walkout"] = apiCollection("walkout", models.Listing{ID: "A", Description: hotRemarks})

	report, err := f.scanner().Run(context.Background(), searches)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if report.Baseline {
		t.Error("first run has no baseline")
	}
	if len(report.Alerts) != 0 {
		t.Errorf("first run must not alert: %v", report.Alerts)
	}
	if f.snaps.saves != 1 || f.artifacts.scans != 1 || len(f.artifacts.reports) != 1 {
		t.Errorf("saves=%d scans=%d reports=%d", f.snaps.saves, f.artifacts.scans, len(f.artifacts.reports))
	}
	if got := report.Searches[0].Listings[0].Score; got < 50 {
		t.Errorf("Score: got %d, want >= 50", got)
	}
	if len(f.notifier.got) != 0 {
		t.Error("nothing to notify")
	}
}

func TestRunDiffAndAlerts(t *testing.T) {
	f := newFixture()
	f.snaps.snap = &models.ScanSnapshot{Searches: map[string][]models.Listing{
		"walkout": {{ID: "A"}, {ID: "B"}},
	}}
	f.collector.results["walkout"] = apiCollection("walkout",
		models.Listing{ID: "B", Description: hotRemarks},
		models.Listing{ID: "C", Description: hotRemarks},
		models.Listing{ID: "D", Description: "tidy home"},
	)

	report, err := f.scanner().Run(context.Background(), searches)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if strings.Join(report.Delisted, ",") != "A" {
		t.Errorf("Delisted: got %v, want [A]", report.Delisted)
	}
	if len(report.Alerts) != 1 || report.Alerts[0].ID != "C" {
		t.Fatalf("Alerts: got %+v, want only C", report.Alerts)
	}
	listings := report.Searches[0].Listings
	if listings[0].IsNew || !listings[1].IsNew || !listings[2].IsNew {
		t.Errorf("IsNew flags wrong: %v %v %v", listings[0].IsNew, listings[1].IsNew, listings[2].IsNew)
	}
	if len(f.artifacts.alerts) != 1 || len(f.artifacts.alerts[0]) != 1 {
		t.Errorf("alerts artifact: %v", f.artifacts.alerts)
	}
	if len(f.notifier.got) != 1 {
		t.Errorf("notifier: got %d alerts", len(f.notifier.got))
	}
	if ids := f.snaps.snap.IDs(); strings.Join(ids, ",") != "B,C,D" {
		t.Errorf("snapshot IDs: got %v", ids)
	}
	if !strings.Contains(f.artifacts.reports[0], "Delisted Since Last Scan") {
		t.Error("report should list delisted identifiers")
	}
}

func TestRunFatalWritesNothing(t *testing.T) {
	f := newFixture()
	prev := &models.ScanSnapshot{Searches: map[string][]models.Listing{"walkout": {{ID: "A"}}}}
	f.snaps.snap = prev
	f.collector.results["walkout"] = apiCollection("walkout", models.Listing{ID: "B"})
	f.collector.errs["community"] = fmt.Errorf("realtor: community: %w", realtor.ErrSessionLost)

	report, err := f.scanner().Run(context.Background(), searches)
	if !errors.Is(err, realtor.ErrSessionLost) {
		t.Fatalf("err: got %v, want ErrSessionLost", err)
	}
	if report != nil {
		t.Error("no report on fatal error")
	}
	if f.snaps.saves != 0 || f.snaps.snap != prev {
		t.Error("snapshot must be untouched")
	}
	if f.artifacts.scans != 0 || len(f.artifacts.reports) != 0 || f.artifacts.listings != 0 {
		t.Error("no artifacts on fatal error")
	}
}

func TestRunCancelled(t *testing.T) {
	f := newFixture()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := f.scanner().Run(ctx, searches); !errors.Is(err, context.Canceled) {
		t.Errorf("err: got %v, want context.Canceled", err)
	}
	if f.snaps.saves != 0 {
		t.Error("snapshot must not be saved")
	}
}

func TestRunErroredSearchCarriesForward(t *testing.T) {
	f := newFixture()
	f.snaps.snap = &models.ScanSnapshot{Searches: map[string][]models.Listing{
		"walkout":   {{ID: "A"}},
		"community": {{ID: "L1"}, {ID: "L2"}},
	}}
	f.collector.results["walkout"] = apiCollection("walkout", models.Listing{ID: "A"})
	f.collector.results["community"] = &models.Collection{
		Search:   "community",
		Source:   models.SourceError,
		Listings: []models.Listing{{ID: "L2"}, {ID: "L3"}},
		Err:      realtor.ErrTransport,
	}

	report, err := f.scanner().Run(context.Background(), searches)
	if err != nil {
		t.Fatalf("errored searches are not fatal: %v", err)
	}
	if len(report.Delisted) != 0 {
		t.Errorf("listings of an errored search must not be delisted: %v", report.Delisted)
	}
	if got := report.Searches[1].Error; got == "" {
		t.Error("search error should be recorded")
	}
	var ids []string
	for _, l := range f.snaps.snap.Searches["community"] {
		ids = append(ids, l.ID)
	}
	if strings.Join(ids, ",") != "L2,L3,L1" {
		t.Errorf("carried snapshot: got %v, want [L2 L3 L1]", ids)
	}
	if !report.Searches[1].Listings[1].IsNew {
		t.Error("L3 is new")
	}
}

func TestRunAssessmentJoin(t *testing.T) {
	f := newFixture()
	f.assess.records["LAKE BONAVISTA"] = []models.AssessmentRecord{
		{RollNumber: "1", Address: "123 LAKE BONAVISTA DR SE", AssessedValue: 500000},
	}
	f.collector.results["community"] = apiCollection("community",
		models.Listing{ID: "L1", Address: "123 Lake Bonavista Drive SE|Calgary, Alberta", Price: 400000})

	report, err := f.scanner().Run(context.Background(), append(searches, models.SearchSpec{
		Key: "community-2", Profile: models.ProfileCommunity, AssessmentArea: "LAKE BONAVISTA",
	}))
	if err != nil {
		t.Fatal(err)
	}
	l := report.Searches[1].Listings[0]
	if l.DiscountPct == nil || math.Abs(*l.DiscountPct-20) > 1e-9 {
		t.Fatalf("expected a 20%% discount, got %v", l.DiscountPct)
	}
	if report.Searches[1].Assessment != 1 {
		t.Errorf("Assessment count: got %d", report.Searches[1].Assessment)
	}
	if f.assess.calls != 1 {
		t.Errorf("index should be fetched once per area, got %d fetches", f.assess.calls)
	}
	if report.Searches[0].Assessment != 0 {
		t.Error("searches without an area are not joined")
	}
}

func TestRunAssessmentFailureIsNotFatal(t *testing.T) {
	f := newFixture()
	f.assess.err = errors.New("503 Service Unavailable")
	f.collector.results["community"] = apiCollection("community", models.Listing{ID: "L1", Address: "1 Elm St", Price: 1})

	report, err := f.scanner().Run(context.Background(), searches)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if report.Searches[1].Listings[0].Assessment != nil {
		t.Error("no assessment expected")
	}
	if f.snaps.saves != 1 {
		t.Error("run should complete")
	}
}
