// Package address canonicalizes street addresses into equality join keys.
package address

import (
	"regexp"
	"strings"
)

// substitution maps a whole word to its canonical abbreviation.
type substitution struct {
	re   *regexp.Regexp
	repl string
}

// Abbreviations is the street-type and directional synonym table.
var Abbreviations = []struct{ Word, Abbrev string }{
	{`STREET`, "ST"},
	{`AVENUE`, "AV"},
	{`DRIVE`, "DR"},
	{`CRESCENT`, "CR"},
	{`BOULEVARD`, "BV"},
	{`ROAD`, "RD"},
	{`PLACE`, "PL"},
	{`COURT`, "CO"},
	{`CLOSE`, "CL"},
	{`BAY`, "BA"},
	{`WAY`, "WY"},
	{`TERRACE`, "TC"},
	{`GREEN`, "GR"},
	{`GATE`, "GA"},
	{`PARK`, "PA"},
	{`GARDENS?`, "GD"},
	{`LANE`, "LA"},
	{`MANOR`, "MR"},
	{`MEWS`, "ME"},
	{`POINT`, "PT"},
	{`RISE`, "RI"},
	{`VIEW`, "VW"},
	{`SOUTHEAST`, "SE"},
	{`SOUTHWEST`, "SW"},
	{`NORTHEAST`, "NE"},
	{`NORTHWEST`, "NW"},
}

var (
	substitutions = compile()
	whitespace    = regexp.MustCompile(`\s+`)
	// unitPrefix matches "101, ", "#5 " or "5- " when a house number follows.
	unitPrefix = regexp.MustCompile(`^#?\d+[A-Z]?\s*[,\-]?\s+(\d)`)
)

func compile() []substitution {
	subs := make([]substitution, 0, len(Abbreviations))
	for _, a := range Abbreviations {
		subs = append(subs, substitution{
			re:   regexp.MustCompile(`\b` + a.Word + `\b`),
			repl: a.Abbrev,
		})
	}
	return subs
}

// Normalize returns the canonical key for addr. Normalize(Normalize(x)) ==
// Normalize(x) for every x.
func Normalize(addr string) string {
	s := collapse(addr)
	for _, sub := range substitutions {
		s = sub.re.ReplaceAllString(s, sub.repl)
	}
	if i := strings.IndexByte(s, ','); i >= 0 {
		s = s[:i]
	}
	return strings.TrimSpace(s)
}

// StripUnit removes a leading unit token from addr ("101, 1234 LAKE DR" becomes
// "1234 LAKE DR"). Addresses without a unit token are returned collapsed but
// otherwise unchanged.
func StripUnit(addr string) string {
	s := collapse(addr)
	return unitPrefix.ReplaceAllString(s, "$1")
}

// FirstSegment returns the part of a listing address before the "|" separator
// the listing service uses between street and city lines.
func FirstSegment(addr string) string {
	if i := strings.IndexByte(addr, '|'); i >= 0 {
		addr = addr[:i]
	}
	return strings.TrimSpace(addr)
}

func collapse(s string) string {
	s = strings.ToUpper(s)
	return strings.TrimSpace(whitespace.ReplaceAllString(s, " "))
}
