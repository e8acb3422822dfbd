package services

import (
	"math"
	"strings"
	"testing"

	"realty-scanner/assessment"
	"realty-scanner/models"
)

func hasFlag(flags []string, substr string) bool {
	for _, f := range flags {
		if strings.Contains(f, substr) {
			return true
		}
	}
	return false
}

func newTestScorer(records ...models.AssessmentRecord) *Scorer {
	return NewScorer(DefaultScoringConfig(), assessment.BuildIndex(records))
}

func TestScoreJudicialSale(t *testing.T) {
	s := newTestScorer()
	got := s.Score(models.Listing{ID: "A1", Description: "Judicial sale. Sold as is where is."}, models.ProfileWalkout)

	if got.Score < 30 {
		t.Errorf("Score: got %d, want >= 30", got.Score)
	}
	if !hasFlag(got.Flags, "JUDICIAL") {
		t.Errorf("Flags %v missing judicial flag", got.Flags)
	}
}

func TestScoreDiscountTiers(t *testing.T) {
	tests := []struct {
		name      string
		assessed  float64
		price     float64
		wantScore int
		wantFlag  string
		wantPct   float64
	}{
		{"high", 500000, 400000, 25, "20% BELOW ASSESSED", 20},
		{"medium", 500000, 440000, 18, "12% BELOW ASSESSED", 12},
		{"low", 500000, 470000, 10, "6% BELOW ASSESSED", 6},
		{"none", 500000, 490000, 0, "", 2},
		{"above", 500000, 650000, 0, "30% ABOVE ASSESSED", -30},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestScorer(models.AssessmentRecord{RollNumber: "1", Address: "12 ELM ST SE", AssessedValue: tt.assessed})
			got := s.Score(models.Listing{ID: "A1", Address: "12 Elm Street SE|Calgary, Alberta", Price: tt.price}, "")

			if got.DiscountPct == nil {
				t.Fatal("DiscountPct should be set when both values are positive")
			}
			if math.Abs(*got.DiscountPct-tt.wantPct) > 1e-9 {
				t.Errorf("DiscountPct: got %.4f, want %.4f", *got.DiscountPct, tt.wantPct)
			}
			if got.Score != tt.wantScore {
				t.Errorf("Score: got %d, want %d (flags %v)", got.Score, tt.wantScore, got.Flags)
			}
			if tt.wantFlag == "" && len(got.Flags) != 0 {
				t.Errorf("expected no flags, got %v", got.Flags)
			}
			if tt.wantFlag != "" && !hasFlag(got.Flags, tt.wantFlag) {
				t.Errorf("Flags %v missing %q", got.Flags, tt.wantFlag)
			}
			if got.Assessment == nil || got.AssessedValue() != tt.assessed {
				t.Errorf("Assessment not attached")
			}
		})
	}
}

func TestScoreUnmatchedHasNoDiscount(t *testing.T) {
	s := newTestScorer(models.AssessmentRecord{Address: "1 OAK DR", AssessedValue: 500000})
	got := s.Score(models.Listing{ID: "A1", Address: "99 Nowhere Rd", Price: 100000}, "")

	if got.DiscountPct != nil {
		t.Errorf("unmatched listing should have no discount, got %.2f", *got.DiscountPct)
	}
	if got.AssessedValue() != 0 {
		t.Errorf("unmatched listing should have zero assessed value")
	}
	if got.Score != 0 {
		t.Errorf("Score: got %d, want 0", got.Score)
	}
}

func TestScoreNilIndex(t *testing.T) {
	s := NewScorer(DefaultScoringConfig(), nil)
	got := s.Score(models.Listing{ID: "A1", Price: 1, Description: "estate sale"}, "")
	if got.Score != 20 {
		t.Errorf("Score: got %d, want 20", got.Score)
	}
}

func TestScorePriceChangeTakesPrecedence(t *testing.T) {
	s := newTestScorer()

	withAge := s.Score(models.Listing{ID: "A", PriceChangeAge: "5 days", Description: "just reduced!"}, "")
	if withAge.Score != 12 {
		t.Errorf("explicit price change: got %d, want 12", withAge.Score)
	}
	if !hasFlag(withAge.Flags, "PRICE DROP (5 days ago)") {
		t.Errorf("Flags %v missing price change age", withAge.Flags)
	}

	textOnly := s.Score(models.Listing{ID: "B", Description: "New price for this home"}, "")
	if textOnly.Score != 10 {
		t.Errorf("price reduced text: got %d, want 10", textOnly.Score)
	}
}

func TestScoreDaysOnMarketTiers(t *testing.T) {
	tests := []struct {
		tom  string
		want int
	}{
		{"45 days", 0},
		{"61 days", 5},
		{"3 months", 5},
		{"91 days", 10},
		{"120 days", 10},
		{"121 days", 15},
		{"1 year", 15},
		{"20 weeks", 15},
		{"", 0},
	}

	s := newTestScorer()
	for _, tt := range tests {
		got := s.Score(models.Listing{ID: "A", TimeOnMarket: tt.tom}, "")
		if got.Score != tt.want {
			t.Errorf("TimeOnMarket %q: got %d, want %d", tt.tom, got.Score, tt.want)
		}
	}
}

func TestParseDaysOnMarket(t *testing.T) {
	tests := []struct {
		in   string
		want int
	}{
		{"45 days", 45},
		{"3 months", 90},
		{"2 years", 730},
		{"6 weeks", 42},
		{"12 hours", 12},
		{"New", 0},
	}
	for _, tt := range tests {
		if got := ParseDaysOnMarket(tt.in); got != tt.want {
			t.Errorf("ParseDaysOnMarket(%q) = %d; want %d", tt.in, got, tt.want)
		}
	}
}

func TestParseLotSqft(t *testing.T) {
	tests := []struct {
		in   string
		want float64
	}{
		{"6200 sqft", 6200},
		{"7,250 sq ft", 7250},
		{"576 m2", 576 * 10.7639},
		{"0.25 ac", 0.25 * 43560},
		{"6500", 6500},
		{"", 0},
		{"4,051 - 7,250 sqft", 7250},
	}
	for _, tt := range tests {
		if got := ParseLotSqft(tt.in); math.Abs(got-tt.want) > 1e-6 {
			t.Errorf("ParseLotSqft(%q) = %.2f; want %.2f", tt.in, got, tt.want)
		}
	}
}

func TestScoreWalkoutProfile(t *testing.T) {
	s := newTestScorer()
	l := models.Listing{
		ID:          "W1",
		Price:       750000,
		Storeys:     "1",
		LotSize:     "6800 sqft",
		Description: "Walk-out bungalow backing onto the ravine with a legal suite.",
	}

	got := s.Score(l, models.ProfileWalkout)
	// walkout 25 + nature 15 + bungalow 5 + suite 10 + lot 10 + low price 5 + special lot 5
	if got.Score != 75 {
		t.Errorf("Score: got %d, want 75 (flags %v)", got.Score, got.Flags)
	}
	for _, want := range []string{"WALKOUT", "NATURE", "BUNGALOW", "SUITE", "LOT:6800 sqft", "<800K", "SPECIAL LOT"} {
		if !hasFlag(got.Flags, want) {
			t.Errorf("Flags %v missing %q", got.Flags, want)
		}
	}

	// profile rules do not apply to other profiles
	if other := s.Score(l, models.ProfileRental); hasFlag(other.Flags, "WALKOUT") {
		t.Errorf("walkout rule leaked into rental profile: %v", other.Flags)
	}
}

func TestScoreRentalProfile(t *testing.T) {
	s := newTestScorer()

	got := s.Score(models.Listing{
		ID:          "R1",
		Price:       440000,
		Bedrooms:    4,
		Description: "Up and down duplex, currently rented, steps to the C-Train.",
	}, models.ProfileRental)
	// rental income 25 + multi-unit 20 + 110k/bed 15 + transit 10
	if got.Score != 70 {
		t.Errorf("Score: got %d, want 70 (flags %v)", got.Score, got.Flags)
	}
	if !hasFlag(got.Flags, "$110k/bed") {
		t.Errorf("Flags %v missing price-per-bed flag", got.Flags)
	}

	mid := s.Score(models.Listing{ID: "R2", Price: 420000, Bedrooms: 3}, models.ProfileRental)
	if mid.Score != 8 {
		t.Errorf("140k/bed: got %d, want 8 (flags %v)", mid.Score, mid.Flags)
	}

	expensive := s.Score(models.Listing{ID: "R3", Price: 600000, Bedrooms: 3}, models.ProfileRental)
	if expensive.Score != 0 {
		t.Errorf("200k/bed: got %d, want 0", expensive.Score)
	}

	condo := s.Score(models.Listing{ID: "R4", Price: 250000, BuildingType: "Apartment"}, models.ProfileRental)
	if condo.Score != 5 {
		t.Errorf("cheap condo: got %d, want 5", condo.Score)
	}
}

func TestScoreNeverNegative(t *testing.T) {
	s := newTestScorer(models.AssessmentRecord{Address: "1 ELM ST", AssessedValue: 100000})
	got := s.Score(models.Listing{ID: "A", Address: "1 Elm St", Price: 900000}, models.ProfileWalkout)
	if got.Score < 0 {
		t.Errorf("Score must be non-negative, got %d", got.Score)
	}
	if !hasFlag(got.Flags, "ABOVE ASSESSED") {
		t.Errorf("expected informational above-assessed flag, got %v", got.Flags)
	}
}

func TestScoringRulesTable(t *testing.T) {
	seen := make(map[string]bool, len(scoringRules))
	for _, r := range scoringRules {
		if r.Name == "" || r.Eval == nil {
			t.Errorf("incomplete rule %q", r.Name)
			continue
		}
		if seen[r.Name] {
			t.Errorf("duplicate rule name %q", r.Name)
		}
		seen[r.Name] = true
		switch r.Profile {
		case "", models.ProfileWalkout, models.ProfileRental, models.ProfileCommunity:
		default:
			t.Errorf("rule %q: unknown profile %q", r.Name, r.Profile)
		}
	}
}
