package cms

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/ignite/partd-ssri/internal/config"
	"github.com/ignite/partd-ssri/internal/pkg/httpclient"
)

// filterColumns are the dataset columns a drug name is matched against.
// Each name gets one OR condition per column.
var filterColumns = []string{"Gnrc_Name", "Brnd_Name"}

// Client fetches filtered pages from the CMS data API
type Client struct {
	baseURL    string
	httpClient httpclient.HTTPDoer
	pageSize   int
	pageDelay  time.Duration
	maxRows    int
	year       string
	states     []string
	drugNames  []string
}

// NewClient creates a CMS data API client from configuration
func NewClient(cfg config.CMSConfig, pipeline config.PipelineConfig) *Client {
	return &Client{
		baseURL:    cfg.BaseURL,
		httpClient: httpclient.New(cfg.Timeout()),
		pageSize:   cfg.PageSize,
		pageDelay:  cfg.PageDelay(),
		maxRows:    cfg.MaxRows,
		year:       cfg.Year,
		states:     pipeline.States,
		drugNames:  pipeline.DrugNames(),
	}
}

// SetHTTPClient sets a custom HTTP client (useful for testing)
func (c *Client) SetHTTPClient(client httpclient.HTTPDoer) {
	c.httpClient = client
}

// buildQuery assembles the query string for one page. The API ORs the
// conditions inside each filter block (state_filter-*, drug_filter-*) and
// ANDs the blocks together, so the result is
// (state OR ...) AND (drug OR ...) AND year.
func (c *Client) buildQuery(offset, size int) url.Values {
	params := url.Values{}
	params.Set("size", strconv.Itoa(size))
	params.Set("offset", strconv.Itoa(offset))

	for i, state := range c.states {
		key := fmt.Sprintf("filter[state_filter-%d]", i)
		params.Set(key+"[condition][path]", "Prscrbr_State_Abrvtn")
		params.Set(key+"[condition][operator]", "===")
		params.Set(key+"[condition][value]", state)
	}

	// Each drug name is matched against both the generic and the brand
	// column, so a name that appears in either column passes the filter.
	i := 0
	for _, name := range c.drugNames {
		for _, column := range filterColumns {
			key := fmt.Sprintf("filter[drug_filter-%d]", i)
			params.Set(key+"[condition][path]", column)
			params.Set(key+"[condition][operator]", "===")
			params.Set(key+"[condition][value]", name)
			i++
		}
	}

	params.Set("filter[year_filter][condition][path]", "Data_Yr")
	params.Set("filter[year_filter][condition][operator]", "===")
	params.Set("filter[year_filter][condition][value]", c.year)

	return params
}

// fetchPage retrieves a single page of records at the given offset
func (c *Client) fetchPage(ctx context.Context, offset, size int) ([]RawRecord, error) {
	reqURL := fmt.Sprintf("%s?%s", c.baseURL, c.buildQuery(offset, size).Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed at offset %d: %w", offset, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("API error at offset %d (status %d): %s", offset, resp.StatusCode, string(body))
	}

	// The API returns a JSON array of row objects. Anything else is a
	// malformed or error response.
	var records []RawRecord
	if err := json.Unmarshal(body, &records); err != nil {
		return nil, fmt.Errorf("unexpected response format at offset %d: %w", offset, err)
	}

	return records, nil
}

// FetchAll pages through the filtered dataset until it is exhausted, a page
// request fails, or the configured row cap is reached. Records collected
// before a failure are kept, and the result's StopReason says how the run
// ended. Pages are requested one at a time with a fixed delay between them.
func (c *Client) FetchAll(ctx context.Context) *FetchResult {
	result := &FetchResult{
		RunID:     uuid.New().String(),
		StartedAt: time.Now().UTC(),
	}

	offset := 0
	for {
		pageSize := c.pageSize
		if c.maxRows > 0 {
			remaining := c.maxRows - len(result.Records)
			if remaining <= 0 {
				log.Printf("[cms] row cap of %d reached, stopping fetch", c.maxRows)
				result.StopReason = StopRowCap
				break
			}
			if remaining < pageSize {
				pageSize = remaining
			}
		}

		log.Printf("[cms] fetching page at offset %d (total fetched: %d, page size: %d)", offset, len(result.Records), pageSize)

		rows, err := c.fetchPage(ctx, offset, pageSize)
		if err != nil {
			log.Printf("[cms] page fetch failed: %v", err)
			result.StopReason = StopErrored
			result.Err = err
			break
		}
		if len(rows) == 0 {
			log.Printf("[cms] no more data returned, stopping fetch")
			result.StopReason = StopExhausted
			break
		}

		result.Records = append(result.Records, rows...)
		result.Pages++

		if len(rows) < pageSize {
			log.Printf("[cms] received %d records, end of the filtered dataset", len(rows))
			result.StopReason = StopExhausted
			break
		}
		if c.maxRows > 0 && len(result.Records) >= c.maxRows {
			log.Printf("[cms] row cap of %d reached, stopping fetch", c.maxRows)
			result.StopReason = StopRowCap
			break
		}

		// Offset advances by the configured page size even when the request
		// size was shrunk to fit the row cap.
		offset += c.pageSize
		time.Sleep(c.pageDelay)
	}

	result.FinishedAt = time.Now().UTC()
	log.Printf("[cms] collected %d records over %d pages (%s)", len(result.Records), result.Pages, result.StopReason)
	return result
}

// NewManifest builds the manifest describing a completed fetch run.
func (c *Client) NewManifest(result *FetchResult) Manifest {
	m := Manifest{
		RunID:      result.RunID,
		Source:     c.baseURL,
		Year:       c.year,
		States:     c.states,
		DrugNames:  c.drugNames,
		Rows:       len(result.Records),
		Pages:      result.Pages,
		StopReason: string(result.StopReason),
		StartedAt:  result.StartedAt,
		FinishedAt: result.FinishedAt,
	}
	if result.Err != nil {
		m.Error = result.Err.Error()
	}
	return m
}
