package nutrition

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
)

const (
	fdcBaseURL        = "https://api.nal.usda.gov/fdc/v1"
	fdcSearchPageSize = 5
	fdcTimeout        = 10 * time.Second
)

// FDC nutrient numbers for the macros we track.
const (
	nutrientEnergy  = 1008
	nutrientProtein = 1003
	nutrientFat     = 1004
	nutrientCarbs   = 1005
)

// LookupResult is one candidate match from the external nutrition database,
// with per-100g macro values.
type LookupResult struct {
	Description string
	ExternalID  string
	Per100g     Per100g
}

// Lookup abstracts the external nutrition database for the enrichment
// pipeline and its tests.
type Lookup interface {
	Search(ctx context.Context, query string) ([]LookupResult, error)
}

// FDCClient queries the USDA FoodData Central REST API.
type FDCClient struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

// NewFDCClient creates a client with the given API key.
func NewFDCClient(apiKey string) *FDCClient {
	return &FDCClient{
		apiKey:     apiKey,
		baseURL:    fdcBaseURL,
		httpClient: &http.Client{Timeout: 0},
	}
}

// NewFDCClientWithBaseURL points the client at a custom base URL (for testing).
func NewFDCClientWithBaseURL(apiKey, baseURL string) *FDCClient {
	c := NewFDCClient(apiKey)
	c.baseURL = strings.TrimRight(baseURL, "/")
	return c
}

type fdcSearchResponse struct {
	Foods []struct {
		FdcID         int64  `json:"fdcId"`
		Description   string `json:"description"`
		FoodNutrients []struct {
			NutrientID int64   `json:"nutrientId"`
			Value      float64 `json:"value"`
		} `json:"foodNutrients"`
	} `json:"foods"`
}

// Search returns up to fdcSearchPageSize candidates for the query with their
// per-100g macros.
func (c *FDCClient) Search(ctx context.Context, query string) ([]LookupResult, error) {
	ctx, cancel := context.WithTimeout(ctx, fdcTimeout)
	defer cancel()

	params := url.Values{}
	params.Set("api_key", c.apiKey)
	params.Set("query", query)
	params.Set("pageSize", strconv.Itoa(fdcSearchPageSize))
	params.Set("dataType", "Foundation,SR Legacy")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/foods/search?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("creating search request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("searching foods: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		excerpt, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
		return nil, fmt.Errorf("food search: unexpected status %d: %s", resp.StatusCode, excerpt)
	}

	var parsed fdcSearchResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decoding search response: %w", err)
	}

	results := make([]LookupResult, 0, len(parsed.Foods))
	for _, f := range parsed.Foods {
		r := LookupResult{
			Description: f.Description,
			ExternalID:  strconv.FormatInt(f.FdcID, 10),
		}
		for _, n := range f.FoodNutrients {
			switch n.NutrientID {
			case nutrientEnergy:
				r.Per100g.Calories = n.Value
			case nutrientProtein:
				r.Per100g.Protein = n.Value
			case nutrientFat:
				r.Per100g.Fats = n.Value
			case nutrientCarbs:
				r.Per100g.Carbs = n.Value
			}
		}
		results = append(results, r)
	}
	return results, nil
}
