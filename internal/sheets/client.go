// Package sheets fetches the survey data as CSV from spreadsheet export
// URLs. It returns raw rows keyed by column header; all cleaning and
// column-role resolution happens downstream in the ratings package.
package sheets

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Client fetches the ratings sheet and the optional snack-name lookup sheet.
type Client struct {
	ratingsURL     string
	namesURL       string
	httpClient     *http.Client
	maxRetries     int
	retryDelayBase time.Duration
}

// NewClient creates a new sheets client. namesURL may be empty, in which
// case FetchSnackNames returns an empty lookup.
func NewClient(ratingsURL, namesURL string, timeout time.Duration, maxRetries int, retryDelayBase time.Duration) *Client {
	if maxRetries <= 0 {
		maxRetries = 3
	}
	if retryDelayBase <= 0 {
		retryDelayBase = time.Second
	}

	return &Client{
		ratingsURL: ratingsURL,
		namesURL:   namesURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		maxRetries:     maxRetries,
		retryDelayBase: retryDelayBase,
	}
}

// FetchRatings retrieves and parses the ratings sheet. Each row is a map
// from column header to raw cell value.
func (c *Client) FetchRatings(ctx context.Context) ([]map[string]string, error) {
	resp, err := c.doRequest(ctx, c.ratingsURL)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch ratings sheet: %w", err)
	}
	defer resp.Body.Close()

	rows, err := parseCSV(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to parse ratings sheet: %w", err)
	}
	return rows, nil
}

// FetchSnackNames retrieves the snack ID to display name lookup. Rows with
// an empty ID or name are skipped; IDs and names are whitespace-trimmed.
// Returns an empty map when no names URL is configured.
func (c *Client) FetchSnackNames(ctx context.Context, idColumn, nameColumn string) (map[string]string, error) {
	names := make(map[string]string)
	if c.namesURL == "" {
		return names, nil
	}

	resp, err := c.doRequest(ctx, c.namesURL)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch snack names sheet: %w", err)
	}
	defer resp.Body.Close()

	rows, err := parseCSV(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to parse snack names sheet: %w", err)
	}

	for _, row := range rows {
		id := strings.TrimSpace(row[idColumn])
		name := strings.TrimSpace(row[nameColumn])
		if id == "" || name == "" {
			continue
		}
		names[id] = name
	}
	return names, nil
}

// doRequest performs an HTTP GET with retry on transport errors and 5xx
// responses, with linear backoff.
func (c *Client) doRequest(ctx context.Context, url string) (*http.Response, error) {
	var lastErr error

	for i := 0; i < c.maxRetries; i++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return nil, err
		}

		req.Header.Set("Accept", "text/csv")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = err
			time.Sleep(c.retryDelayBase * time.Duration(i+1))
			continue
		}

		if resp.StatusCode >= 500 {
			resp.Body.Close()
			lastErr = fmt.Errorf("server error: %d", resp.StatusCode)
			time.Sleep(c.retryDelayBase * time.Duration(i+1))
			continue
		}

		if resp.StatusCode != http.StatusOK {
			resp.Body.Close()
			return nil, fmt.Errorf("unexpected status: %d", resp.StatusCode)
		}

		return resp, nil
	}

	return nil, fmt.Errorf("max retries exceeded: %w", lastErr)
}

// parseCSV reads a CSV document into rows keyed by the header row. Short
// rows are tolerated; missing cells read as empty strings.
func parseCSV(r io.Reader) ([]map[string]string, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err == io.EOF {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}

	var rows []map[string]string
	for {
		fields, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read row: %w", err)
		}

		row := make(map[string]string, len(header))
		for i, col := range header {
			if i < len(fields) {
				row[col] = fields[i]
			}
		}
		rows = append(rows, row)
	}

	return rows, nil
}
