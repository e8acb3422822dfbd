package models

import (
	"sort"
	"time"
)

// Listing is one property offering as seen in a single scan.
// ID is the listing service's identifier (an MLS number) and is the identity key.
type Listing struct {
	ID           string  `json:"id"`
	Price        float64 `json:"price"`
	PriceText    string  `json:"price_text"`
	Address      string  `json:"address"`
	Bedrooms     int     `json:"bedrooms"`
	Bathrooms    int     `json:"bathrooms"`
	BuildingType string  `json:"building_type,omitempty"`
	Storeys      string  `json:"storeys,omitempty"`
	InteriorSize string  `json:"interior_size,omitempty"`
	LotSize      string  `json:"lot_size,omitempty"`
	Description  string  `json:"description,omitempty"`
	TimeOnMarket string  `json:"time_on_market,omitempty"`
	// PriceChangeAge is set only when the service reports a price change.
	PriceChangeAge string `json:"price_change_age,omitempty"`
	URLPath        string `json:"url_path,omitempty"`
}

// AssessmentRecord is one property from the bulk valuation dataset.
type AssessmentRecord struct {
	RollNumber    string  `json:"roll_number"`
	AssessedValue float64 `json:"assessed_value"`
	YearBuilt     int     `json:"year_built,omitempty"`
	Zoning        string  `json:"zoning,omitempty"`
	LotSqft       float64 `json:"lot_sqft,omitempty"`
	LotSqm        float64 `json:"lot_sqm,omitempty"`
	PropertyType  string  `json:"property_type,omitempty"`
	Address       string  `json:"address"`
}

// ScoredListing is a Listing after rule evaluation and the diff pass.
type ScoredListing struct {
	Listing
	Search      string            `json:"search"`
	Score       int               `json:"score"`
	Flags       []string          `json:"flags"`
	DiscountPct *float64          `json:"discount_pct,omitempty"`
	Assessment  *AssessmentRecord `json:"assessment,omitempty"`
	IsNew       bool              `json:"is_new"`
}

// AssessedValue returns the matched assessed value or 0 when unmatched.
func (s *ScoredListing) AssessedValue() float64 {
	if s.Assessment == nil {
		return 0
	}
	return s.Assessment.AssessedValue
}

// Alert is a new listing whose score reached the alert threshold.
type Alert struct {
	Search      string   `json:"search"`
	Profile     string   `json:"profile"`
	ID          string   `json:"mls"`
	Score       int      `json:"score"`
	Flags       string   `json:"flags"`
	Price       string   `json:"price"`
	Address     string   `json:"address"`
	Bedrooms    int      `json:"beds"`
	Bathrooms   int      `json:"baths"`
	Interior    string   `json:"sqft,omitempty"`
	Assessed    float64  `json:"assessed,omitempty"`
	DiscountPct *float64 `json:"discount,omitempty"`
	URL         string   `json:"url"`
}

// ScanSnapshot is the persisted diff baseline: the deduplicated listings of the
// last successful run, keyed by search.
type ScanSnapshot struct {
	TakenAt  time.Time            `json:"taken_at"`
	Searches map[string][]Listing `json:"searches"`
}

// IDs returns the union of listing identifiers across all searches, walking
// searches in key order.
func (s *ScanSnapshot) IDs() []string {
	if s == nil {
		return nil
	}
	keys := make([]string, 0, len(s.Searches))
	for k := range s.Searches {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	seen := make(map[string]struct{})
	var ids []string
	for _, k := range keys {
		for _, l := range s.Searches[k] {
			if _, ok := seen[l.ID]; ok {
				continue
			}
			seen[l.ID] = struct{}{}
			ids = append(ids, l.ID)
		}
	}
	return ids
}
