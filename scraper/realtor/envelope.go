package realtor

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"realty-scanner/models"
)

// looseString accepts a JSON string, number or boolean. The service is not
// consistent about quoting numeric fields.
type looseString string

func (s *looseString) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	switch {
	case len(b) == 0 || bytes.Equal(b, []byte("null")):
		*s = ""
	case b[0] == '"':
		var v string
		if err := json.Unmarshal(b, &v); err != nil {
			return err
		}
		*s = looseString(v)
	case b[0] == '{' || b[0] == '[':
		*s = ""
	default:
		*s = looseString(b)
	}
	return nil
}

func (s looseString) String() string { return strings.TrimSpace(string(s)) }

type envelopeResult struct {
	MlsNumber     looseString `json:"MlsNumber"`
	PublicRemarks looseString `json:"PublicRemarks"`
	TimeOnRealtor looseString `json:"TimeOnRealtor"`
	RelativeURLEn looseString `json:"RelativeURLEn"`
	Property      struct {
		Price                    looseString `json:"Price"`
		PriceUnformattedValue    looseString `json:"PriceUnformattedValue"`
		Type                     looseString `json:"Type"`
		PriceChangeTimeOnRealtor looseString `json:"PriceChangeTimeOnRealtor"`
		Address                  struct {
			AddressText looseString `json:"AddressText"`
		} `json:"Address"`
	} `json:"Property"`
	Building struct {
		Bedrooms      looseString `json:"Bedrooms"`
		BathroomTotal looseString `json:"BathroomTotal"`
		SizeInterior  looseString `json:"SizeInterior"`
		Type          looseString `json:"Type"`
		StoriesTotal  looseString `json:"StoriesTotal"`
	} `json:"Building"`
	Land struct {
		SizeTotal looseString `json:"SizeTotal"`
	} `json:"Land"`
}

type envelope struct {
	Results *[]envelopeResult `json:"Results"`
	Paging  struct {
		TotalRecords looseString `json:"TotalRecords"`
	} `json:"Paging"`
}

// Batch is one decoded search response.
type Batch struct {
	Listings []models.RawListing
	// Total is the service's reported result count, 0 when absent.
	Total int
}

// DecodeBatch decodes a captured search response body. A body without a
// Results array is malformed.
func DecodeBatch(body []byte) (Batch, error) {
	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return Batch{}, fmt.Errorf("%w: %v", ErrParse, err)
	}
	if env.Results == nil {
		return Batch{}, fmt.Errorf("%w: no Results array", ErrParse)
	}

	b := Batch{Listings: make([]models.RawListing, 0, len(*env.Results))}
	if total, err := strconv.Atoi(env.Paging.TotalRecords.String()); err == nil && total > 0 {
		b.Total = total
	}
	for _, r := range *env.Results {
		b.Listings = append(b.Listings, r.raw())
	}
	return b, nil
}

func (r envelopeResult) raw() models.RawListing {
	buildingType := r.Building.Type.String()
	if buildingType == "" {
		buildingType = r.Property.Type.String()
	}
	return models.RawListing{
		ID:             r.MlsNumber.String(),
		PriceText:      r.Property.Price.String(),
		PriceValue:     r.Property.PriceUnformattedValue.String(),
		Address:        r.Property.Address.AddressText.String(),
		Bedrooms:       r.Building.Bedrooms.String(),
		Bathrooms:      r.Building.BathroomTotal.String(),
		BuildingType:   buildingType,
		Storeys:        r.Building.StoriesTotal.String(),
		InteriorSize:   r.Building.SizeInterior.String(),
		LotSize:        r.Land.SizeTotal.String(),
		Description:    r.PublicRemarks.String(),
		TimeOnMarket:   r.TimeOnRealtor.String(),
		PriceChangeAge: r.Property.PriceChangeTimeOnRealtor.String(),
		URLPath:        r.RelativeURLEn.String(),
	}
}
