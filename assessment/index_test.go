package assessment

import (
	"testing"

	"realty-scanner/models"
)

func TestBuildIndexFiltersAndLastWriteWins(t *testing.T) {
	idx := BuildIndex([]models.AssessmentRecord{
		{RollNumber: "1", Address: "123 ELM STREET", AssessedValue: 400000},
		{RollNumber: "2", Address: "123 Elm St", AssessedValue: 450000},
		{RollNumber: "3", Address: "9 OAK DR", AssessedValue: 0},
	})

	if idx.Len() != 1 {
		t.Fatalf("Len: got %d, want 1", idx.Len())
	}
	r, ok := idx.Lookup("123 Elm Street|Calgary, Alberta T2J1A1")
	if !ok {
		t.Fatal("expected a match")
	}
	if r.RollNumber != "2" {
		t.Errorf("collision: got roll %s, want 2 (last write wins)", r.RollNumber)
	}
	if _, ok := idx.Lookup("9 Oak Drive"); ok {
		t.Error("zero-value record must not be indexed")
	}
}

func TestLookupRetriesWithoutUnit(t *testing.T) {
	idx := BuildIndex([]models.AssessmentRecord{
		{RollNumber: "7", Address: "1234 LAKE BONAVISTA DR SE", AssessedValue: 800000},
	})

	r, ok := idx.Lookup("101, 1234 Lake Bonavista Drive SE|Calgary, Alberta")
	if !ok {
		t.Fatal("expected unit-stripped retry to match")
	}
	if r.RollNumber != "7" {
		t.Errorf("roll: got %s, want 7", r.RollNumber)
	}
}

func TestLookupMiss(t *testing.T) {
	idx := BuildIndex(nil)
	if _, ok := idx.Lookup("1 Nowhere Rd"); ok {
		t.Error("empty index must not match")
	}

	var nilIdx *Index
	if _, ok := nilIdx.Lookup("1 Nowhere Rd"); ok {
		t.Error("nil index must not match")
	}
}
