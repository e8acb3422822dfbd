package storage

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"

	"realty-scanner/models"
)

var csvHeader = []string{
	"search", "mls", "score", "is_new", "price", "address", "beds", "baths",
	"building_type", "interior", "lot", "time_on_market", "assessed", "discount_pct", "flags", "url",
}

// CSVWriter writes scored listings, best first, to a CSV file.
// It is safe for concurrent use.
type CSVWriter struct {
	mu     sync.Mutex
	file   *os.File
	writer *csv.Writer
}

// NewCSVWriter creates (or truncates) the CSV file at the given path and
// writes the header row. Intermediate directories are created automatically.
func NewCSVWriter(path string) (*CSVWriter, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("csv: create output dir: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("csv: create file %q: %w", path, err)
	}

	w := csv.NewWriter(f)
	if err := w.Write(csvHeader); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("csv: write header: %w", err)
	}
	w.Flush()

	return &CSVWriter{file: f, writer: w}, nil
}

// Write appends rows ordered by score descending; equal scores keep their
// input order.
func (c *CSVWriter) Write(rows []models.ScoredListing) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	ranked := make([]models.ScoredListing, len(rows))
	copy(ranked, rows)
	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].Score > ranked[j].Score })

	for _, l := range ranked {
		discount := ""
		if l.DiscountPct != nil {
			discount = strconv.FormatFloat(*l.DiscountPct, 'f', 1, 64)
		}
		assessed := ""
		if v := l.AssessedValue(); v > 0 {
			assessed = strconv.FormatFloat(v, 'f', 0, 64)
		}
		row := []string{
			l.Search,
			l.ID,
			strconv.Itoa(l.Score),
			strconv.FormatBool(l.IsNew),
			strconv.FormatFloat(l.Price, 'f', 0, 64),
			l.Address,
			strconv.Itoa(l.Bedrooms),
			strconv.Itoa(l.Bathrooms),
			l.BuildingType,
			l.InteriorSize,
			l.LotSize,
			l.TimeOnMarket,
			assessed,
			discount,
			strings.Join(l.Flags, " | "),
			"https://www.realtor.ca" + l.URLPath,
		}
		if err := c.writer.Write(row); err != nil {
			return fmt.Errorf("csv: write row: %w", err)
		}
	}

	c.writer.Flush()
	return c.writer.Error()
}

// Close flushes and closes the underlying file.
func (c *CSVWriter) Close() error {
	c.writer.Flush()
	return c.file.Close()
}
