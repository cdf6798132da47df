package schedulerapi

import (
	"context"
	"net/http"
)

// Extract extracts a single article. An empty output format defaults to json.
func (c *Client) Extract(ctx context.Context, req ExtractRequest) (*ExtractResponse, error) {
	if req.OutputFormat == "" {
		req.OutputFormat = FormatJSON
	}
	var r ExtractResponse
	if err := c.do(ctx, http.MethodPost, "/api/extract", nil, req, &r); err != nil {
		return nil, err
	}
	return &r, nil
}

// Platforms lists the platforms the extractor recognizes.
func (c *Client) Platforms(ctx context.Context) (*PlatformsResponse, error) {
	var r PlatformsResponse
	if err := c.do(ctx, http.MethodGet, "/api/platforms", nil, nil, &r); err != nil {
		return nil, err
	}
	return &r, nil
}

// Health checks that the backend is up.
func (c *Client) Health(ctx context.Context) (*HealthResponse, error) {
	var r HealthResponse
	if err := c.do(ctx, http.MethodGet, "/api/health", nil, nil, &r); err != nil {
		return nil, err
	}
	return &r, nil
}
