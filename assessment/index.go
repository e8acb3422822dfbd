package assessment

import (
	"realty-scanner/address"
	"realty-scanner/models"
)

// Index maps normalized addresses to assessment records.
type Index struct {
	byKey map[string]*models.AssessmentRecord
}

// BuildIndex keys every record with a positive assessed value by its
// normalized address. On key collision the record processed last wins.
func BuildIndex(records []models.AssessmentRecord) *Index {
	idx := &Index{byKey: make(map[string]*models.AssessmentRecord, len(records))}
	for i := range records {
		r := records[i]
		if r.AssessedValue <= 0 {
			continue
		}
		key := address.Normalize(r.Address)
		if key == "" {
			continue
		}
		idx.byKey[key] = &r
	}
	return idx
}

// Len returns the number of indexed keys.
func (i *Index) Len() int {
	if i == nil {
		return 0
	}
	return len(i.byKey)
}

// Lookup finds the record for a listing address. The exact normalized key is
// tried first, then once more with a leading unit token removed. A miss
// returns nil, false and is not an error.
func (i *Index) Lookup(listingAddress string) (*models.AssessmentRecord, bool) {
	if i == nil || len(i.byKey) == 0 {
		return nil, false
	}
	street := address.FirstSegment(listingAddress)

	if r, ok := i.byKey[address.Normalize(street)]; ok {
		return r, true
	}
	if r, ok := i.byKey[address.Normalize(address.StripUnit(street))]; ok {
		return r, true
	}
	return nil, false
}
