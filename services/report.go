package services

import (
	"fmt"
	"sort"
	"strings"

	"realty-scanner/address"
	"realty-scanner/models"
	"realty-scanner/utils"
)

const (
	listingBaseURL = "https://www.realtor.ca"
	excerptMinimum = 20
	excerptLength  = 250
	scoredLimit    = 25
	latestLimit    = 5
)

// ListingURL returns the public page of a listing.
func ListingURL(l models.Listing) string {
	return listingBaseURL + l.URLPath
}

// BuildAlerts returns an alert for every listing that is new and scored at
// least threshold, in input order.
func BuildAlerts(spec models.SearchSpec, scored []models.ScoredListing, threshold int) []models.Alert {
	var alerts []models.Alert
	for _, s := range scored {
		if !s.IsNew || s.Score < threshold {
			continue
		}
		alerts = append(alerts, models.Alert{
			Search:      spec.Key,
			Profile:     string(spec.Profile),
			ID:          s.ID,
			Score:       s.Score,
			Flags:       strings.Join(s.Flags, " "),
			Price:       s.PriceText,
			Address:     s.Address,
			Bedrooms:    s.Bedrooms,
			Bathrooms:   s.Bathrooms,
			Interior:    s.InteriorSize,
			Assessed:    s.AssessedValue(),
			DiscountPct: s.DiscountPct,
			URL:         ListingURL(s.Listing),
		})
	}
	return alerts
}

// ReportGenerator renders scan reports.
type ReportGenerator struct {
	logger       *utils.Logger
	topDiscounts int
}

// NewReportGenerator creates a generator listing at most topDiscounts rows in
// each assessment-gap table. A non-positive value shows every row.
func NewReportGenerator(logger *utils.Logger, topDiscounts int) *ReportGenerator {
	return &ReportGenerator{logger: logger, topDiscounts: topDiscounts}
}

// Markdown renders r. The output depends only on r.
func (g *ReportGenerator) Markdown(r *models.ScanReport) string {
	var b strings.Builder

	b.WriteString("# 🏠 Calgary Real Estate Scan\n")
	fmt.Fprintf(&b, "**%s**\n\n", formatTimestamp(r))

	for i := range r.Searches {
		g.writeSearch(&b, &r.Searches[i], r.Baseline)
	}

	if len(r.Delisted) > 0 {
		fmt.Fprintf(&b, "## 👋 Delisted Since Last Scan (%d)\n\n", len(r.Delisted))
		for _, id := range r.Delisted {
			fmt.Fprintf(&b, "- %s\n", id)
		}
		b.WriteString("\n")
	}

	fmt.Fprintf(&b, "## 🚨 Alerts (score ≥ %d, new)\n\n", r.Threshold)
	if len(r.Alerts) == 0 {
		b.WriteString("No new alerts.\n")
	}

	if g.logger != nil {
		g.logger.Debug("[report] rendered %d searches, %d alerts, %d delisted", len(r.Searches), len(r.Alerts), len(r.Delisted))
	}
	for _, a := range r.Alerts {
		fmt.Fprintf(&b, "- **%d** | %s | %s | %s | [View](%s)\n", a.Score, a.Price, a.Address, a.Flags, a.URL)
	}

	return b.String()
}

func formatTimestamp(r *models.ScanReport) string {
	if r.GeneratedAt.IsZero() {
		return "unknown time"
	}
	return r.GeneratedAt.Format("2006-01-02 15:04 MST")
}

func (g *ReportGenerator) writeSearch(b *strings.Builder, s *models.SearchResult, baseline bool) {
	var flagged, fresh, below int
	for _, l := range s.Listings {
		if l.Score > 0 {
			flagged++
		}
		if l.IsNew {
			fresh++
		}
		if l.DiscountPct != nil && *l.DiscountPct > 5 {
			below++
		}
	}

	fmt.Fprintf(b, "## 📍 %s\n\n", s.Spec.Name)
	fmt.Fprintf(b, "**Source:** %s | **Active listings:** %d | **Flagged:** %d | **New:** %d | **Below assessed:** %d\n\n",
		s.Source, len(s.Listings), flagged, fresh, below)
	if s.Error != "" {
		fmt.Fprintf(b, "⚠️ Collection ended early: %s\n\n", s.Error)
	}

	g.writeDiscounts(b, s.Listings)
	writeScored(b, s.Listings)

	if baseline && fresh > 0 {
		b.WriteString("### 🆕 New Since Last Scan\n\n")
		for _, l := range s.Listings {
			if !l.IsNew {
				continue
			}
			fmt.Fprintf(b, "- **%s** | %s | Score: %d | [View](%s)\n", l.PriceText, l.Address, l.Score, ListingURL(l.Listing))
		}
		b.WriteString("\n")
	}
}

func (g *ReportGenerator) writeDiscounts(b *strings.Builder, listings []models.ScoredListing) {
	var discounted []models.ScoredListing
	for _, l := range listings {
		if l.DiscountPct != nil && *l.DiscountPct > 0 {
			discounted = append(discounted, l)
		}
	}
	if len(discounted) == 0 {
		return
	}
	sort.SliceStable(discounted, func(i, j int) bool {
		return *discounted[i].DiscountPct > *discounted[j].DiscountPct
	})
	if g.topDiscounts > 0 && len(discounted) > g.topDiscounts {
		discounted = discounted[:g.topDiscounts]
	}

	b.WriteString("### 📊 Assessment vs Listing Price (Biggest Gaps)\n\n")
	b.WriteString("| Address | Listed | Assessed | Gap | Score | Flags |\n")
	b.WriteString("|---------|--------|----------|-----|-------|-------|\n")
	for _, l := range discounted {
		var flags []string
		for _, f := range l.Flags {
			if !strings.Contains(f, "ASSESSED") {
				flags = append(flags, f)
			}
		}
		fmt.Fprintf(b, "| %s | %s | $%.0fk | **-%.1f%%** | %d | %s |\n",
			tableCell(address.FirstSegment(l.Address)), tableCell(l.PriceText), l.AssessedValue()/1000,
			*l.DiscountPct, l.Score, tableCell(strings.Join(flags, " ")))
	}
	b.WriteString("\n")
}

func writeScored(b *strings.Builder, listings []models.ScoredListing) {
	var scored []models.ScoredListing
	for _, l := range listings {
		if l.Score > 0 {
			scored = append(scored, l)
		}
	}
	if len(scored) == 0 {
		writeLatest(b, listings)
		return
	}
	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})
	if len(scored) > scoredLimit {
		scored = scored[:scoredLimit]
	}

	b.WriteString("### 🎯 Top Scored Listings\n\n")
	for i, l := range scored {
		tag := ""
		if l.IsNew {
			tag = " 🆕"
		}
		fmt.Fprintf(b, "#### %d. %s%s\n", i+1, orDefault(l.Address, "Unknown"), tag)
		fmt.Fprintf(b, "**%s** | %sbd/%sba | %s | %s\n",
			l.PriceText, countOrUnknown(l.Bedrooms), countOrUnknown(l.Bathrooms),
			orDefault(l.InteriorSize, "N/A"), orDefault(l.BuildingType, "N/A"))
		if l.DiscountPct != nil {
			rel := fmt.Sprintf("%.1f%% below", *l.DiscountPct)
			if *l.DiscountPct < 0 {
				rel = fmt.Sprintf("%.1f%% above", -*l.DiscountPct)
			}
			fmt.Fprintf(b, "Assessed: **$%.0fk** (%s)\n", l.AssessedValue()/1000, rel)
		}
		fmt.Fprintf(b, "Score: **%d** | %s\n", l.Score, strings.Join(l.Flags, " "))
		fmt.Fprintf(b, "%s | Lot: %s | [View](%s)\n", orDefault(l.TimeOnMarket, "New"), orDefault(l.LotSize, "N/A"), ListingURL(l.Listing))
		if l.Score >= excerptMinimum && l.Description != "" {
			fmt.Fprintf(b, "> %s\n", truncate(l.Description, excerptLength))
		}
		b.WriteString("\n")
	}
}

// writeLatest lists the first few listings when none carries a signal.
func writeLatest(b *strings.Builder, listings []models.ScoredListing) {
	if len(listings) == 0 {
		return
	}
	if len(listings) > latestLimit {
		listings = listings[:latestLimit]
	}
	fmt.Fprintf(b, "No high-signal listings. Showing latest %d:\n\n", len(listings))
	for _, l := range listings {
		fmt.Fprintf(b, "- **%s** | %sbd/%sba | %s | MLS# %s\n",
			orDefault(l.PriceText, "?"), countOrUnknown(l.Bedrooms), countOrUnknown(l.Bathrooms),
			orDefault(l.Address, "?"), l.ID)
	}
	b.WriteString("\n")
}

// PrintSummary writes a short console overview of r.
func (g *ReportGenerator) PrintSummary(r *models.ScanReport) {
	sep := strings.Repeat("═", 54)
	thin := strings.Repeat("─", 54)

	fmt.Printf("\n\033[1;35m%s\033[0m\n", sep)
	fmt.Printf("\033[1;35m  🏠 SCAN SUMMARY\033[0m\n")
	fmt.Printf("\033[1;35m%s\033[0m\n\n", sep)

	for _, s := range r.Searches {
		top := 0
		for _, l := range s.Listings {
			if l.Score > top {
				top = l.Score
			}
		}
		fmt.Printf("\033[1;33m  %s\033[0m\n", s.Spec.Name)
		fmt.Printf("  %s\n", thin)
		fmt.Printf("  Source     : \033[1m%s\033[0m\n", s.Source)
		fmt.Printf("  Listings   : \033[1m%d\033[0m (service reported %d)\n", len(s.Listings), s.Total)
		fmt.Printf("  Top score  : \033[1;32m%d\033[0m\n", top)
		if s.Error != "" {
			fmt.Printf("  Error      : \033[1;31m%s\033[0m\n", truncate(s.Error, 40))
		}
		fmt.Println()
	}

	fmt.Printf("  Delisted : \033[1m%d\033[0m\n", len(r.Delisted))
	fmt.Printf("  Alerts   : \033[1;31m%d\033[0m\n", len(r.Alerts))
	fmt.Printf("\n\033[1;35m%s\033[0m\n\n", sep)
}

// tableCell keeps a value from splitting a Markdown table row.
func tableCell(s string) string {
	return strings.ReplaceAll(s, "|", `\|`)
}

func countOrUnknown(n int) string {
	if n <= 0 {
		return "?"
	}
	return fmt.Sprintf("%d", n)
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}

func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max-3]) + "..."
}
