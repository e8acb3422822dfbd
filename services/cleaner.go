package services

import (
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"realty-scanner/models"
	"realty-scanner/utils"
)

var (
	// priceRegexp captures numeric price values
	priceRegexp = regexp.MustCompile(`\d+(?:\.\d+)?`)
	// leadingIntRegexp captures the first integer, e.g. "3" in "3 + 1"
	leadingIntRegexp = regexp.MustCompile(`\d+`)
)

// Cleaner coerces RawListings into typed Listings at the collection boundary.
type Cleaner struct {
	logger *utils.Logger
}

// NewCleaner creates a Cleaner with the given logger.
func NewCleaner(logger *utils.Logger) *Cleaner {
	return &Cleaner{logger: logger}
}

// Clean converts raw listings, dropping those without an identifier and
// keeping the first occurrence of each identifier.
func (c *Cleaner) Clean(raw []models.RawListing) []models.Listing {
	seen := utils.NewIDSet()
	result := make([]models.Listing, 0, len(raw))

	for _, r := range raw {
		l, ok := c.CleanOne(r)
		if !ok {
			continue
		}
		if !seen.Add(l.ID) {
			c.logger.Debug("[cleaner] Duplicate listing skipped: %s", l.ID)
			continue
		}
		result = append(result, l)
	}

	if dropped := len(raw) - len(result); dropped > 0 {
		c.logger.Debug("[cleaner] Cleaned %d → %d listings (dropped %d)", len(raw), len(result), dropped)
	}
	return result
}

// CleanOne converts a single raw listing. It reports false when the listing
// has no identifier.
func (c *Cleaner) CleanOne(r models.RawListing) (models.Listing, bool) {
	id := strings.TrimSpace(r.ID)
	if id == "" {
		c.logger.Debug("[cleaner] Dropping listing with empty id: %s", r.Address)
		return models.Listing{}, false
	}

	price := parsePrice(r.PriceValue)
	if price == 0 {
		price = parsePrice(r.PriceText)
	}

	return models.Listing{
		ID:             id,
		Price:          price,
		PriceText:      normaliseText(r.PriceText),
		Address:        normaliseText(r.Address),
		Bedrooms:       parseLeadingInt(r.Bedrooms),
		Bathrooms:      parseLeadingInt(r.Bathrooms),
		BuildingType:   normaliseText(r.BuildingType),
		Storeys:        normaliseText(r.Storeys),
		InteriorSize:   normaliseText(r.InteriorSize),
		LotSize:        normaliseText(r.LotSize),
		Description:    normaliseText(r.Description),
		TimeOnMarket:   normaliseText(r.TimeOnMarket),
		PriceChangeAge: normaliseText(r.PriceChangeAge),
		URLPath:        strings.TrimSpace(r.URLPath),
	}, true
}

// parsePrice extracts the first numeric value from a display price.
// Examples:
//
//	"$549,900" → 549900
//	"549900.00" → 549900
//	"Price on request" → 0
func parsePrice(raw string) float64 {
	cleaned := strings.ReplaceAll(raw, ",", "")
	match := priceRegexp.FindString(cleaned)
	if match == "" {
		return 0
	}
	price, err := strconv.ParseFloat(match, 64)
	if err != nil {
		return 0
	}
	return price
}

func parseLeadingInt(raw string) int {
	match := leadingIntRegexp.FindString(raw)
	if match == "" {
		return 0
	}
	n, err := strconv.Atoi(match)
	if err != nil {
		return 0
	}
	return n
}

// normaliseText strips leading/trailing whitespace and collapses internal whitespace.
func normaliseText(s string) string {
	fields := strings.FieldsFunc(s, func(r rune) bool {
		return unicode.IsSpace(r)
	})
	return strings.Join(fields, " ")
}
