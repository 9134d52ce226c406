// Package search wraps the LangSearch web-search API. Search degrades to an
// explanatory context string on every failure path; it is never fatal to the
// chat turn that invoked it.
package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"srushti-backend/internal/models"
)

const (
	defaultBaseURL = "https://api.langsearch.com/v1"
	searchTimeout  = 15 * time.Second
	maxResults     = 5
)

// Fixed context strings returned on the non-success paths. The model sees
// these as the tool result, so they read as prose, not error codes.
const (
	msgNotConfigured = "Web search is not configured."
	msgNoResults     = "No relevant information found on the web for the past week."
)

// Client calls the LangSearch web-search endpoint.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewClient creates a search client. baseURL may be empty to use the public
// endpoint; a nil httpClient gets a 15s-timeout default. An empty apiKey is
// allowed and makes Search return the not-configured context.
func NewClient(baseURL, apiKey string, httpClient *http.Client) *Client {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: searchTimeout}
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: httpClient,
	}
}

type webSearchRequest struct {
	Query     string `json:"query"`
	Freshness string `json:"freshness"`
}

type webSearchResponse struct {
	Data struct {
		WebPages struct {
			Value []struct {
				Name    string `json:"name"`
				URL     string `json:"url"`
				Snippet string `json:"snippet"`
			} `json:"value"`
		} `json:"webPages"`
	} `json:"data"`
}

// Search issues one bounded web search restricted to the last 7 days and
// returns citation sources plus a numbered text context block. On any
// failure it returns no sources and an explanatory context string instead.
func (c *Client) Search(ctx context.Context, query string) ([]models.Source, string) {
	log.Printf("[SearchClient] Performing web search for: %q", query)
	if c.apiKey == "" {
		return nil, msgNotConfigured
	}

	oneWeekAgo := time.Now().AddDate(0, 0, -7).Format("2006-01-02")
	enhancedQuery := fmt.Sprintf("%s after:%s", query, oneWeekAgo)

	payload, err := json.Marshal(webSearchRequest{Query: enhancedQuery, Freshness: "Past week"})
	if err != nil {
		log.Printf("ERROR [SearchClient] Failed to encode search request: %v", err)
		return nil, fmt.Sprintf("An error occurred during web search: %v", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/web-search", bytes.NewReader(payload))
	if err != nil {
		log.Printf("ERROR [SearchClient] Failed to build search request: %v", err)
		return nil, fmt.Sprintf("An error occurred during web search: %v", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		log.Printf("ERROR [SearchClient] Search request failed: %v", err)
		return nil, fmt.Sprintf("An error occurred during web search: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		log.Printf("ERROR [SearchClient] Search request returned status %d", resp.StatusCode)
		return nil, fmt.Sprintf("An error occurred during web search: unexpected status %d", resp.StatusCode)
	}

	var decoded webSearchResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		log.Printf("ERROR [SearchClient] Failed to decode search response: %v", err)
		return nil, fmt.Sprintf("An error occurred during web search: %v", err)
	}

	results := decoded.Data.WebPages.Value
	if len(results) == 0 {
		return nil, msgNoResults
	}
	if len(results) > maxResults {
		results = results[:maxResults]
	}

	var contextBlock strings.Builder
	contextBlock.WriteString("Web search results:\n\n")
	sources := make([]models.Source, 0, len(results))

	for i, result := range results {
		title := result.Name
		if title == "" {
			title = "No Title"
		}
		snippet := result.Snippet
		if snippet == "" {
			snippet = "No snippet available."
		}
		fmt.Fprintf(&contextBlock, "[%d] Title: %s\nURL: %s\nSnippet: %s\n\n", i+1, title, result.URL, snippet)
		if result.URL != "" {
			sources = append(sources, models.Source{Title: title, URL: result.URL})
		}
	}

	return sources, contextBlock.String()
}
