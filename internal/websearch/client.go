// Package websearch provides a thin client for the Tavily search API,
// used to enrich saved events and to gather raw material for topic
// research.
package websearch

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

// ErrNoAPIKey is returned by NewClient when no key is configured.
// Search is an optional capability; callers degrade gracefully.
var ErrNoAPIKey = errors.New("websearch: no API key configured")

// Result is one search hit.
type Result struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Content string `json:"content"`
}

// Searcher is the capability the enrichment worker and research agent
// consume.
type Searcher interface {
	Search(ctx context.Context, query string, depth string, maxResults int) ([]Result, error)
}

// Search depths accepted by the API.
const (
	DepthBasic    = "basic"
	DepthAdvanced = "advanced"
)

// ClientConfig holds the search client settings.
type ClientConfig struct {
	APIKey  string
	BaseURL string
	Timeout time.Duration
}

// Client talks to the Tavily search API.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a search client. Returns ErrNoAPIKey when the key
// is empty so callers can disable search-dependent features up front.
func NewClient(cfg ClientConfig) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, ErrNoAPIKey
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.tavily.com"
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 10 * time.Second
	}
	return &Client{
		apiKey:     cfg.APIKey,
		baseURL:    cfg.BaseURL,
		httpClient: &http.Client{Timeout: cfg.Timeout},
	}, nil
}

type searchRequest struct {
	APIKey      string `json:"api_key"`
	Query       string `json:"query"`
	SearchDepth string `json:"search_depth"`
	MaxResults  int    `json:"max_results"`
}

type searchResponse struct {
	Results []Result `json:"results"`
}

// Search runs a query and returns up to maxResults hits.
func (c *Client) Search(ctx context.Context, query string, depth string, maxResults int) ([]Result, error) {
	if depth != DepthAdvanced {
		depth = DepthBasic
	}
	if maxResults <= 0 {
		maxResults = 3
	}

	body, err := json.Marshal(searchRequest{
		APIKey:      c.apiKey,
		Query:       query,
		SearchDepth: depth,
		MaxResults:  maxResults,
	})
	if err != nil {
		return nil, fmt.Errorf("websearch: failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/search", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("websearch: failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("websearch: search failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("websearch: failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("websearch: search returned status %d: %s", resp.StatusCode, string(respBody))
	}

	var parsed searchResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return nil, fmt.Errorf("websearch: failed to parse response: %w", err)
	}
	return parsed.Results, nil
}

var _ Searcher = (*Client)(nil)
