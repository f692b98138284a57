package foods

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/noot-app/macroplan-mcp-server/internal/types"
)

// DefaultOFFSearchURL is the public Open Food Facts search endpoint
const DefaultOFFSearchURL = "https://world.openfoodfacts.org/cgi/search.pl"

// OFFClient searches the Open Food Facts public API
type OFFClient struct {
	baseURL string
	client  *http.Client
	log     *slog.Logger
}

var _ Provider = (*OFFClient)(nil)

type offSearchResponse struct {
	Count    int             `json:"count"`
	Products []types.Product `json:"products"`
}

// NewOFFClient creates a client for the Open Food Facts search API
func NewOFFClient(baseURL string, timeout time.Duration, logger *slog.Logger) *OFFClient {
	if baseURL == "" {
		baseURL = DefaultOFFSearchURL
	}
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &OFFClient{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
		log:     logger,
	}
}

// Name identifies the provider in logs and results
func (c *OFFClient) Name() string {
	return "openfoodfacts-api"
}

// Search queries the search API and keeps products with complete per-100g macros
func (c *OFFClient) Search(ctx context.Context, name string, limit int) ([]Candidate, error) {
	start := time.Now()

	reqURL, err := url.Parse(c.baseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse base URL: %w", err)
	}
	params := reqURL.Query()
	params.Set("search_terms", name)
	params.Set("search_simple", "1")
	params.Set("action", "process")
	params.Set("json", "1")
	params.Set("page_size", strconv.Itoa(limit*4))
	params.Set("fields", "code,product_name,nutriments")
	reqURL.RawQuery = params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "macroplan-mcp-server/1.0")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("search request failed with status %d: %s", resp.StatusCode, string(body))
	}

	var parsed offSearchResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("failed to decode search response: %w", err)
	}

	var results []Candidate
	for i := range parsed.Products {
		p := &parsed.Products[i]
		if p.ProductName == "" {
			continue
		}
		profile, ok := p.Profile()
		if !ok {
			continue
		}
		results = append(results, Candidate{Name: p.ProductName, Profile: profile, Source: c.Name()})
		if len(results) >= limit {
			break
		}
	}

	c.log.Debug("Search completed", "provider", c.Name(), "name", name, "count", len(results), "duration", time.Since(start))
	return results, nil
}
