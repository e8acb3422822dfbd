// Package assessment fetches the bulk property valuation dataset and indexes it
// by normalized address.
package assessment

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"realty-scanner/models"
	"realty-scanner/utils"
)

// DefaultPageSize is the number of rows requested per page.
const DefaultPageSize = 1000

// DefaultBaseURL is the City of Calgary property assessment dataset.
const DefaultBaseURL = "https://data.calgary.ca/resource/4bsw-nn7w.json"

// Client pages through a Socrata-style valuation dataset.
type Client struct {
	baseURL    string
	pageSize   int
	httpClient *http.Client
	retry      *utils.RetryConfig
	logger     *utils.Logger
}

// NewClient creates a Client. pageSize <= 0 selects DefaultPageSize.
func NewClient(baseURL string, pageSize int, httpClient *http.Client, retry *utils.RetryConfig, logger *utils.Logger) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	if retry == nil {
		retry = &utils.RetryConfig{MaxAttempts: 1, Logger: logger}
	}
	return &Client{
		baseURL:    baseURL,
		pageSize:   pageSize,
		httpClient: httpClient,
		retry:      retry,
		logger:     logger,
	}
}

// rawRecord mirrors the dataset's JSON row; every field arrives as a string.
type rawRecord struct {
	RollNumber      string `json:"roll_number"`
	Address         string `json:"address"`
	AssessedValue   string `json:"assessed_value"`
	YearBuilt       string `json:"year_of_construction"`
	LandUse         string `json:"land_use_designation"`
	LandSizeSF      string `json:"land_size_sf"`
	LandSizeSM      string `json:"land_size_sm"`
	PropertyType    string `json:"property_type"`
	AssessmentClass string `json:"assessment_class"`
}

func (r rawRecord) toModel() models.AssessmentRecord {
	year, _ := strconv.Atoi(strings.TrimSpace(r.YearBuilt))
	return models.AssessmentRecord{
		RollNumber:    r.RollNumber,
		AssessedValue: parseFloat(r.AssessedValue),
		YearBuilt:     year,
		Zoning:        r.LandUse,
		LotSqft:       parseFloat(r.LandSizeSF),
		LotSqm:        parseFloat(r.LandSizeSM),
		PropertyType:  r.PropertyType,
		Address:       r.Address,
	}
}

// FetchAll returns every residential record with a positive assessed value in
// the named community, in dataset (address) order. Paging stops at the first
// page shorter than the page size.
func (c *Client) FetchAll(ctx context.Context, area string) ([]models.AssessmentRecord, error) {
	var all []models.AssessmentRecord
	offset := 0

	for {
		var page []rawRecord
		err := c.retry.Do(ctx, fmt.Sprintf("assessment-page-%d", offset/c.pageSize+1), func(ctx context.Context) error {
			var err error
			page, err = c.fetchPage(ctx, area, offset)
			return err
		})
		if err != nil {
			return all, err
		}

		for _, r := range page {
			rec := r.toModel()
			if rec.AssessedValue <= 0 {
				continue
			}
			all = append(all, rec)
		}

		if c.logger != nil {
			c.logger.Debug("[assessment] %s offset %d: %d rows", area, offset, len(page))
		}

		if len(page) == 0 || len(page) < c.pageSize {
			break
		}
		offset += c.pageSize
	}

	if c.logger != nil {
		c.logger.Info("[assessment] %s: %d residential properties", area, len(all))
	}
	return all, nil
}

func (c *Client) fetchPage(ctx context.Context, area string, offset int) ([]rawRecord, error) {
	reqURL := c.pageURL(area, offset)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("assessment: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("assessment: request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("assessment: status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var rows []rawRecord
	if err := json.NewDecoder(resp.Body).Decode(&rows); err != nil {
		return nil, fmt.Errorf("assessment: decode page: %w", err)
	}
	return rows, nil
}

func (c *Client) pageURL(area string, offset int) string {
	where := fmt.Sprintf("comm_name='%s' AND assessment_class='RE' AND assessed_value>0",
		strings.ReplaceAll(strings.ToUpper(area), "'", "''"))

	q := url.Values{}
	q.Set("$where", where)
	q.Set("$limit", strconv.Itoa(c.pageSize))
	q.Set("$offset", strconv.Itoa(offset))
	q.Set("$order", "address")
	return c.baseURL + "?" + q.Encode()
}

func parseFloat(s string) float64 {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0
	}
	return f
}
