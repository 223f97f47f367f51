// Package graph provides the client for the external Graph API, the
// Neo4j-backed topic/report service. Only the call surface lives here; topic
// modelling and report generation belong to that service.
package graph

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog/log"
)

// Client calls the Graph API.
type Client struct {
	client *resty.Client
}

// NewsResult is one article returned by the Graph API news search.
type NewsResult struct {
	Title   string `json:"title"`
	Source  string `json:"source"`
	PubDate string `json:"pubDate"`
	Summary string `json:"summary,omitempty"`
	URL     string `json:"url,omitempty"`
}

// NewsSearchResponse is the Graph API news search payload.
type NewsSearchResponse struct {
	Articles []NewsResult `json:"articles"`
}

// NewClient creates a Graph API client.
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		client: resty.New().
			SetBaseURL(baseURL).
			SetTimeout(timeout).
			SetRetryCount(2),
	}
}

// SearchNews queries the Graph API for recent articles matching a query.
func (c *Client) SearchNews(ctx context.Context, query string, maxResults int) ([]NewsResult, error) {
	resp, err := c.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(map[string]interface{}{
			"query":       query,
			"max_results": maxResults,
		}).
		Post("/chat/search-news")

	if err != nil {
		return nil, fmt.Errorf("graph news search failed: %w", err)
	}
	if resp.StatusCode() != 200 {
		return nil, fmt.Errorf("graph API returned %d: %s", resp.StatusCode(), resp.String())
	}

	var result NewsSearchResponse
	if err := json.Unmarshal(resp.Body(), &result); err != nil {
		return nil, fmt.Errorf("failed to parse graph response: %w", err)
	}

	log.Debug().
		Str("query", query).
		Int("results", len(result.Articles)).
		Msg("Graph news search complete")

	return result.Articles, nil
}

// GetReport fetches a generated report for a topic. The payload is passed
// through untouched.
func (c *Client) GetReport(ctx context.Context, topicID string) (json.RawMessage, error) {
	resp, err := c.client.R().
		SetContext(ctx).
		Get("/neo/reports/" + topicID)

	if err != nil {
		return nil, fmt.Errorf("graph report fetch failed: %w", err)
	}
	if resp.StatusCode() != 200 {
		return nil, fmt.Errorf("graph API returned %d: %s", resp.StatusCode(), resp.String())
	}

	return json.RawMessage(resp.Body()), nil
}
