package models

import (
	"fmt"
	"net/url"
	"sort"
	"strings"
)

// Profile selects the profile-specific layer of the scoring rules.
type Profile string

const (
	ProfileWalkout   Profile = "walkout"
	ProfileRental    Profile = "rental"
	ProfileCommunity Profile = "community"
)

// Bounds is a latitude/longitude box.
type Bounds struct {
	LatMin float64 `yaml:"lat_min" json:"lat_min"`
	LatMax float64 `yaml:"lat_max" json:"lat_max"`
	LngMin float64 `yaml:"lng_min" json:"lng_min"`
	LngMax float64 `yaml:"lng_max" json:"lng_max"`
}

// Center returns the midpoint of the box.
func (b Bounds) Center() (lat, lng float64) {
	return (b.LatMin + b.LatMax) / 2, (b.LngMin + b.LngMax) / 2
}

// SearchSpec is one search run against the listing service.
type SearchSpec struct {
	Key     string            `yaml:"key" json:"key"`
	Name    string            `yaml:"name" json:"name"`
	Profile Profile           `yaml:"profile" json:"profile"`
	Bounds  Bounds            `yaml:"bounds" json:"bounds"`
	Zoom    int               `yaml:"zoom" json:"zoom"`
	GeoName string            `yaml:"geo_name" json:"geo_name"`
	Filters map[string]string `yaml:"filters" json:"filters"`
	// URL overrides the URL built from Bounds and Filters.
	URL string `yaml:"url" json:"url,omitempty"`
	// AssessmentArea names the community to cross-reference; empty skips the join.
	AssessmentArea string `yaml:"assessment_area" json:"assessment_area,omitempty"`
}

const mapBaseURL = "https://www.realtor.ca/map"

// SearchURL returns the map-view URL the collector navigates to.
// Filter keys are emitted in sorted order so the URL is stable.
func (s SearchSpec) SearchURL() string {
	if s.URL != "" {
		return s.URL
	}

	zoom := s.Zoom
	if zoom == 0 {
		zoom = 11
	}
	lat, lng := s.Bounds.Center()

	parts := []string{
		fmt.Sprintf("ZoomLevel=%d", zoom),
		"Center=" + escape(fmt.Sprintf("%.6f,%.6f", lat, lng)),
		fmt.Sprintf("LatitudeMax=%.5f", s.Bounds.LatMax),
		fmt.Sprintf("LongitudeMax=%.5f", s.Bounds.LngMax),
		fmt.Sprintf("LatitudeMin=%.5f", s.Bounds.LatMin),
		fmt.Sprintf("LongitudeMin=%.5f", s.Bounds.LngMin),
	}
	if s.GeoName != "" {
		parts = append(parts, "GeoName="+escape(s.GeoName))
	}

	keys := make([]string, 0, len(s.Filters))
	for k := range s.Filters {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		parts = append(parts, k+"="+escape(s.Filters[k]))
	}

	return mapBaseURL + "#" + strings.Join(parts, "&")
}

func escape(v string) string {
	return strings.ReplaceAll(url.QueryEscape(v), "+", "%20")
}
