package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"realty-scanner/models"
)

type searchesFile struct {
	Searches []models.SearchSpec `yaml:"searches"`
}

var southCalgary = models.Bounds{LatMin: 50.88, LatMax: 51.045, LngMin: -114.315, LngMax: -113.9}

// DefaultSearches are used when no searches file is configured.
func DefaultSearches() []models.SearchSpec {
	return []models.SearchSpec{
		{
			Key:     "walkout",
			Name:    "Walkout Bungalows (SW+SE Calgary)",
			Profile: models.ProfileWalkout,
			Bounds:  southCalgary,
			Zoom:    11,
			GeoName: "Calgary, AB",
			Filters: map[string]string{
				"Sort": "6-D", "PropertyTypeGroupID": "1", "TransactionTypeId": "2",
				"PriceMin": "500000", "PriceMax": "1200000", "BuildingTypeId": "1",
				"BedRange": "3-0", "BathRange": "2-0", "StoreyRange": "1-2", "Currency": "CAD",
			},
		},
		{
			Key:     "rental",
			Name:    "Rental Yield (SW+SE Calgary)",
			Profile: models.ProfileRental,
			Bounds:  southCalgary,
			Zoom:    11,
			GeoName: "Calgary, AB",
			Filters: map[string]string{
				"Sort": "6-D", "PropertyTypeGroupID": "1", "TransactionTypeId": "2",
				"PriceMin": "150000", "PriceMax": "600000", "BuildingTypeId": "1", "Currency": "CAD",
			},
		},
		{
			Key:            "lake-bonavista",
			Name:           "Lake Bonavista",
			Profile:        models.ProfileCommunity,
			Bounds:         models.Bounds{LatMin: 50.925, LatMax: 50.945, LngMin: -114.085, LngMax: -114.05},
			Zoom:           14,
			GeoName:        "Lake Bonavista, Calgary, AB",
			AssessmentArea: "LAKE BONAVISTA",
			Filters: map[string]string{
				"Sort": "6-D", "PropertyTypeGroupID": "1", "TransactionTypeId": "2",
				"BuildingTypeId": "1", "Currency": "CAD",
			},
		},
	}
}

// LoadSearches reads search specifications from a YAML file. An empty path
// yields DefaultSearches.
func LoadSearches(path string) ([]models.SearchSpec, error) {
	if path == "" {
		return DefaultSearches(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read searches file: %w", err)
	}

	var f searchesFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse searches file: %w", err)
	}
	if err := validate(f.Searches); err != nil {
		return nil, err
	}
	return f.Searches, nil
}

func validate(specs []models.SearchSpec) error {
	if len(specs) == 0 {
		return fmt.Errorf("searches file defines no searches")
	}
	seen := make(map[string]bool, len(specs))
	for i, s := range specs {
		if s.Key == "" {
			return fmt.Errorf("search %d has no key", i)
		}
		if seen[s.Key] {
			return fmt.Errorf("duplicate search key %q", s.Key)
		}
		seen[s.Key] = true
		switch s.Profile {
		case models.ProfileWalkout, models.ProfileRental, models.ProfileCommunity:
		default:
			return fmt.Errorf("search %q: unknown profile %q", s.Key, s.Profile)
		}
		if s.URL == "" && s.Bounds == (models.Bounds{}) {
			return fmt.Errorf("search %q needs bounds or a url", s.Key)
		}
		if specs[i].Name == "" {
			specs[i].Name = s.Key
		}
	}
	return nil
}
