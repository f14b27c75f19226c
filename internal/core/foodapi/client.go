package foodapi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"nutriscan/internal/infrastructure/config"
	"nutriscan/internal/pkg/common"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

// Client talks to the FoodData Central API. Responses are returned as raw
// JSON so the normalization layer can tolerate arbitrary extra or missing
// fields.
type Client struct {
	client *resty.Client
	cfg    *config.USDAConfig
}

// SearchResult is a page of raw search hits.
type SearchResult struct {
	TotalPages int               `json:"totalPages"`
	Foods      []json.RawMessage `json:"foods"`
}

// NewClient creates a nutrition-database client.
func NewClient(cfg *config.USDAConfig) *Client {
	client := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetTimeout(cfg.Timeout).
		SetHeader("accept", "application/json")

	return &Client{
		client: client,
		cfg:    cfg,
	}
}

// GetRecord fetches the full raw record for one FoodData Central ID.
func (c *Client) GetRecord(ctx context.Context, id string) ([]byte, error) {
	resp, err := c.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"format":  "full",
			"api_key": c.cfg.APIKey,
		}).
		Get("/food/" + id)

	if err != nil {
		return nil, fmt.Errorf("failed to fetch food record: %w", err)
	}
	if resp.StatusCode() != http.StatusOK {
		common.LogWarn("nutrition lookup returned non-OK status",
			zap.Int("status", resp.StatusCode()),
			zap.String("id", id),
		)
		return nil, fmt.Errorf("nutrition lookup returned status %d", resp.StatusCode())
	}

	return resp.Body(), nil
}

// Search runs a paged product search sorted by published date.
func (c *Client) Search(ctx context.Context, query string, page int) (*SearchResult, error) {
	resp, err := c.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"query":      query,
			"pageSize":   strconv.Itoa(c.cfg.PageSize),
			"pageNumber": strconv.Itoa(page),
			"dataType":   "Foundation, Branded",
			"sortBy":     "publishedDate",
			"sortOrder":  "asc",
			"api_key":    c.cfg.APIKey,
		}).
		Get("/foods/search")

	if err != nil {
		return nil, fmt.Errorf("failed to search foods: %w", err)
	}
	if resp.StatusCode() != http.StatusOK {
		common.LogWarn("nutrition search returned non-OK status",
			zap.Int("status", resp.StatusCode()),
			zap.String("query", query),
		)
		return nil, fmt.Errorf("nutrition search returned status %d", resp.StatusCode())
	}

	var result SearchResult
	if err := common.ParseJSONBytes(resp.Body(), &result); err != nil {
		return nil, fmt.Errorf("failed to parse search response: %w", err)
	}

	return &result, nil
}
