package services

import "realty-scanner/models"

// DiffResult compares the current scan's identifiers against the previous
// snapshot's.
type DiffResult struct {
	// Baseline is false when there was no previous snapshot to compare with.
	Baseline bool
	New      []string
	Delisted []string
	previous map[string]struct{}
}

// IsNew reports whether id was absent from the previous snapshot. Without a
// baseline nothing is new.
func (d *DiffResult) IsNew(id string) bool {
	if d == nil || !d.Baseline {
		return false
	}
	_, seen := d.previous[id]
	return !seen
}

// Diff computes New = current − previous and Delisted = previous − current.
// Both preserve the order of their source list. A nil previous snapshot means
// first run: both sets are empty.
func Diff(previous *models.ScanSnapshot, current []string) *DiffResult {
	if previous == nil {
		return &DiffResult{}
	}
	return DiffIDs(previous.IDs(), current)
}

// DiffIDs is Diff over plain identifier lists; previous is treated as a
// baseline even when empty.
func DiffIDs(previous, current []string) *DiffResult {
	res := &DiffResult{Baseline: true, previous: make(map[string]struct{}, len(previous))}
	for _, id := range previous {
		res.previous[id] = struct{}{}
	}

	cur := make(map[string]struct{}, len(current))
	for _, id := range current {
		if _, dup := cur[id]; dup {
			continue
		}
		cur[id] = struct{}{}
		if _, seen := res.previous[id]; !seen {
			res.New = append(res.New, id)
		}
	}

	emitted := make(map[string]struct{})
	for _, id := range previous {
		if _, still := cur[id]; still {
			continue
		}
		if _, done := emitted[id]; done {
			continue
		}
		emitted[id] = struct{}{}
		res.Delisted = append(res.Delisted, id)
	}
	return res
}
