package services

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"realty-scanner/models"
)

// ScoringConfig holds the numeric thresholds used by the structured-field rules.
type ScoringConfig struct {
	LargeLotSqft    float64
	LowPrice        float64
	PricePerBedLow  float64
	PricePerBedHigh float64
	CondoPrice      float64
}

// DefaultScoringConfig returns the thresholds the scanner ships with.
func DefaultScoringConfig() ScoringConfig {
	return ScoringConfig{
		LargeLotSqft:    6000,
		LowPrice:        800000,
		PricePerBedLow:  120000,
		PricePerBedHigh: 150000,
		CondoPrice:      300000,
	}
}

// AssessmentLookup resolves a listing address to its valuation record.
type AssessmentLookup interface {
	Lookup(listingAddress string) (*models.AssessmentRecord, bool)
}

// facts is everything a rule may look at, computed once per listing.
type facts struct {
	listing     *models.Listing
	cfg         ScoringConfig
	dom         int
	lotSqft     float64
	discountPct *float64
	assessed    float64
}

// rule is one row of the scoring table. An empty Profile applies to every
// profile. Eval returns the flag to append when the rule triggers.
type rule struct {
	Name    string
	Profile models.Profile
	Points  int
	Eval    func(f *facts) (flag string, ok bool)
}

// textRule triggers when the description matches pattern (case-insensitive).
func textRule(name string, profile models.Profile, points int, flag, pattern string) rule {
	re := regexp.MustCompile(`(?i)` + pattern)
	return rule{
		Name:    name,
		Profile: profile,
		Points:  points,
		Eval: func(f *facts) (string, bool) {
			return flag, re.MatchString(f.listing.Description)
		},
	}
}

var (
	priceReducedRe = regexp.MustCompile(`(?i)price.?reduc|new.?price|just.?reduced`)
	bungalowRe     = regexp.MustCompile(`(?i)bungalow|one.?stor|single.?stor`)
	condoTypeRe    = regexp.MustCompile(`(?i)condo|apartment`)
	domValueRe     = regexp.MustCompile(`\d+`)
	lotValueRe     = regexp.MustCompile(`(?i)(\d[\d,]*(?:\.\d+)?)\s*(sq\.?\s*f(?:ee|oo)?t|sqft|ft2|m2|sq\.?\s*m|sqm|acres?|ac\b|hectares?|ha\b)?`)
)

func domRule(points, min, max int) rule {
	return rule{
		Name:   fmt.Sprintf("dom-%d-%d", min, max),
		Points: points,
		Eval: func(f *facts) (string, bool) {
			return "📅 " + f.listing.TimeOnMarket, f.dom >= min && (max == 0 || f.dom <= max)
		},
	}
}

func discountRule(points int, above float64, upper float64) rule {
	return rule{
		Name:   fmt.Sprintf("below-assessed-%.0f", above),
		Points: points,
		Eval: func(f *facts) (string, bool) {
			if f.discountPct == nil {
				return "", false
			}
			d := *f.discountPct
			if d <= above || (upper > 0 && d > upper) {
				return "", false
			}
			return fmt.Sprintf("🏷️ %.0f%% BELOW ASSESSED ($%.0fk)", d, f.assessed/1000), true
		},
	}
}

func pricePerBedRule(points int, below func(ScoringConfig) float64, atLeast func(ScoringConfig) float64) rule {
	return rule{
		Name:    fmt.Sprintf("price-per-bed-%d", points),
		Profile: models.ProfileRental,
		Points:  points,
		Eval: func(f *facts) (string, bool) {
			l := f.listing
			if l.Price <= 0 || l.Bedrooms <= 0 {
				return "", false
			}
			ppb := l.Price / float64(l.Bedrooms)
			if ppb >= below(f.cfg) || (atLeast != nil && ppb < atLeast(f.cfg)) {
				return "", false
			}
			return fmt.Sprintf("💎 $%.0fk/bed", math.Round(ppb/1000)), true
		},
	}
}

// scoringRules is the scoring table, evaluated top to bottom. Contributions are
// purely additive; no rule suppresses another. Mutually exclusive tiers are
// expressed through their predicates.
var scoringRules = []rule{
	// assessment gap
	discountRule(25, 15, 0),
	discountRule(18, 10, 15),
	discountRule(10, 5, 10),
	{
		Name: "above-assessed",
		Eval: func(f *facts) (string, bool) {
			if f.discountPct == nil || *f.discountPct >= -20 {
				return "", false
			}
			return fmt.Sprintf("📈 %.0f%% ABOVE ASSESSED ($%.0fk)", math.Abs(*f.discountPct), f.assessed/1000), true
		},
	},

	// universal
	textRule("judicial", "", 30, "🏛️ JUDICIAL/FORECLOSURE", `judicial|court.?order|foreclos|bank.?own|power.?of.?sale|lender`),
	textRule("estate", "", 20, "⚰️ ESTATE SALE", `estate.?sale|probate|executor|deceased`),
	textRule("motivated", "", 15, "🔥 MOTIVATED", `must.?sell|motiv|relocat|divorce|urgent|\bas.?is\b|quick.?close`),
	{
		Name:   "price-change",
		Points: 12,
		Eval: func(f *facts) (string, bool) {
			age := f.listing.PriceChangeAge
			return fmt.Sprintf("📉 PRICE DROP (%s ago)", age), age != ""
		},
	},
	{
		Name:   "price-reduced-text",
		Points: 10,
		Eval: func(f *facts) (string, bool) {
			return "📉 PRICE DROP", f.listing.PriceChangeAge == "" && priceReducedRe.MatchString(f.listing.Description)
		},
	},
	domRule(15, 121, 0),
	domRule(10, 91, 120),
	domRule(5, 61, 90),

	// walkout
	textRule("walkout", models.ProfileWalkout, 25, "🚪 WALKOUT", `walk.?out`),
	textRule("nature", models.ProfileWalkout, 15, "🌲 BACKING NATURE", `ravin|creek|river|pond|lake|coulee|escarpment|bluff|green.?space|pathway|\bpark(?:s|land)?\b`),
	{
		Name:    "bungalow",
		Profile: models.ProfileWalkout,
		Points:  5,
		Eval: func(f *facts) (string, bool) {
			return "🏡 BUNGALOW", f.listing.Storeys == "1" || bungalowRe.MatchString(f.listing.Description)
		},
	},
	textRule("suite", models.ProfileWalkout, 10, "🏠 SUITE", `\bsuites?\b|in.?law`),
	{
		Name:    "large-lot",
		Profile: models.ProfileWalkout,
		Points:  10,
		Eval: func(f *facts) (string, bool) {
			return "📐 LOT:" + f.listing.LotSize, f.lotSqft > f.cfg.LargeLotSqft
		},
	},
	{
		Name:    "low-price",
		Profile: models.ProfileWalkout,
		Points:  5,
		Eval: func(f *facts) (string, bool) {
			p := f.listing.Price
			return fmt.Sprintf("💰 <%.0fK", f.cfg.LowPrice/1000), p > 0 && p < f.cfg.LowPrice
		},
	},
	textRule("special-lot", models.ProfileWalkout, 5, "📐 SPECIAL LOT", `pie.?lot|corner.?lot|backing`),

	// rental
	textRule("rental-income", models.ProfileRental, 25, "💰 RENTAL INCOME", `legal.?suite|basement.?suite|secondary.?suite|in.?law|rental.?income|revenue|tenant|rented`),
	textRule("multi-unit", models.ProfileRental, 20, "🏘️ MULTI-UNIT", `duplex|triplex|fourplex|multi.?family|side.?by.?side|up.?and.?down`),
	pricePerBedRule(15, func(c ScoringConfig) float64 { return c.PricePerBedLow }, nil),
	pricePerBedRule(8, func(c ScoringConfig) float64 { return c.PricePerBedHigh }, func(c ScoringConfig) float64 { return c.PricePerBedLow }),
	textRule("transit", models.ProfileRental, 10, "🚇 TRANSIT", `c.?train|\blrt\b|transit|university|\bsait\b|\bmru\b|u.?of.?c\b|downtown`),
	{
		Name:    "cheap-condo",
		Profile: models.ProfileRental,
		Points:  5,
		Eval: func(f *facts) (string, bool) {
			p := f.listing.Price
			return fmt.Sprintf("🏢 CONDO<%.0fK", f.cfg.CondoPrice/1000),
				p > 0 && p < f.cfg.CondoPrice && condoTypeRe.MatchString(f.listing.BuildingType)
		},
	},

	// community
	textRule("community-walkout", models.ProfileCommunity, 15, "🚪 WALKOUT", `walk.?out`),
	textRule("community-nature", models.ProfileCommunity, 10, "🌊 LAKE/NATURE", `lake|water|ravin|creek|pathway|backing|\bpark(?:s|land)?\b`),
	textRule("community-suite", models.ProfileCommunity, 10, "🏠 SUITE", `\bsuites?\b|in.?law`),
	textRule("fixer", models.ProfileCommunity, 8, "🔨 FIXER", `renovat|updat|fixer|handyman|\btlc\b|potential|opportunity|original|dated`),
}

// Scorer evaluates listings against the rule table.
type Scorer struct {
	cfg   ScoringConfig
	index AssessmentLookup
	rules []rule
}

// NewScorer creates a Scorer. index may be nil, in which case no listing is
// matched to an assessment.
func NewScorer(cfg ScoringConfig, index AssessmentLookup) *Scorer {
	return &Scorer{cfg: cfg, index: index, rules: scoringRules}
}

// Score evaluates the universal rules and the rules of profile for l.
func (s *Scorer) Score(l models.Listing, profile models.Profile) models.ScoredListing {
	out := models.ScoredListing{Listing: l, Flags: []string{}}

	f := &facts{
		listing: &out.Listing,
		cfg:     s.cfg,
		dom:     ParseDaysOnMarket(l.TimeOnMarket),
		lotSqft: ParseLotSqft(l.LotSize),
	}

	if s.index != nil {
		if rec, ok := s.index.Lookup(l.Address); ok {
			out.Assessment = rec
			f.assessed = rec.AssessedValue
			if rec.AssessedValue > 0 && l.Price > 0 {
				d := (rec.AssessedValue - l.Price) / rec.AssessedValue * 100
				out.DiscountPct = &d
				f.discountPct = &d
			}
		}
	}

	for _, r := range s.rules {
		if r.Profile != "" && r.Profile != profile {
			continue
		}
		flag, ok := r.Eval(f)
		if !ok {
			continue
		}
		out.Score += r.Points
		out.Flags = append(out.Flags, flag)
	}
	return out
}

// ParseDaysOnMarket converts a duration text such as "45 days" or "3 months"
// into days. Text without a number yields 0.
func ParseDaysOnMarket(s string) int {
	m := domValueRe.FindString(s)
	if m == "" {
		return 0
	}
	n, err := strconv.Atoi(m)
	if err != nil {
		return 0
	}
	lower := strings.ToLower(s)
	switch {
	case strings.Contains(lower, "month"):
		return n * 30
	case strings.Contains(lower, "year"):
		return n * 365
	case strings.Contains(lower, "week"):
		return n * 7
	default:
		return n
	}
}

// ParseLotSqft converts a lot size text into square feet. The first value
// carrying a unit wins; a bare number is taken as square feet.
func ParseLotSqft(s string) float64 {
	var bare float64
	for _, m := range lotValueRe.FindAllStringSubmatch(s, -1) {
		v, err := strconv.ParseFloat(strings.ReplaceAll(m[1], ",", ""), 64)
		if err != nil {
			continue
		}
		unit := strings.ToLower(strings.ReplaceAll(strings.ReplaceAll(m[2], " ", ""), ".", ""))
		switch {
		case unit == "":
			if bare == 0 {
				bare = v
			}
			continue
		case strings.HasPrefix(unit, "sqf"), unit == "ft2":
			return v
		case unit == "m2", unit == "sqm":
			return v * 10.7639
		case strings.HasPrefix(unit, "ac"):
			return v * 43560
		case strings.HasPrefix(unit, "h"):
			return v * 107639
		}
	}
	return bare
}
