package services

import (
	"reflect"
	"testing"
	"time"

	"realty-scanner/models"
)

func snapshotOf(ids ...string) *models.ScanSnapshot {
	listings := make([]models.Listing, 0, len(ids))
	for _, id := range ids {
		listings = append(listings, models.Listing{ID: id})
	}
	return &models.ScanSnapshot{TakenAt: time.Now(), Searches: map[string][]models.Listing{"walkout": listings}}
}

func TestDiffNewAndDelisted(t *testing.T) {
	d := Diff(snapshotOf("A", "B"), []string{"B", "C"})

	if !reflect.DeepEqual(d.New, []string{"C"}) {
		t.Errorf("New: got %v, want [C]", d.New)
	}
	if !reflect.DeepEqual(d.Delisted, []string{"A"}) {
		t.Errorf("Delisted: got %v, want [A]", d.Delisted)
	}
	if !d.IsNew("C") || d.IsNew("B") {
		t.Errorf("IsNew: C should be new, B should not")
	}
}

func TestDiffFirstRun(t *testing.T) {
	d := Diff(nil, []string{"A", "B"})

	if len(d.New) != 0 {
		t.Errorf("first run must not flag everything as new: %v", d.New)
	}
	if len(d.Delisted) != 0 {
		t.Errorf("first run has no delisted: %v", d.Delisted)
	}
	if d.IsNew("A") {
		t.Error("IsNew must be false without a baseline")
	}
}

func TestDiffUnionAcrossSearches(t *testing.T) {
	prev := &models.ScanSnapshot{Searches: map[string][]models.Listing{
		"walkout": {{ID: "A"}},
		"rental":  {{ID: "A"}, {ID: "B"}},
	}}
	d := Diff(prev, []string{"A", "A", "D"})

	if !reflect.DeepEqual(d.New, []string{"D"}) {
		t.Errorf("New: got %v, want [D]", d.New)
	}
	if !reflect.DeepEqual(d.Delisted, []string{"B"}) {
		t.Errorf("Delisted: got %v, want [B]", d.Delisted)
	}
}

func TestDiffEmptyBaseline(t *testing.T) {
	d := Diff(&models.ScanSnapshot{}, []string{"A"})
	if !d.IsNew("A") {
		t.Error("an existing but empty snapshot is still a baseline")
	}
}
