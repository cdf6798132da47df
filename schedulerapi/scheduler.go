package schedulerapi

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
)

// DefaultInitInterval is the crawl interval InitTasks sends when none is given.
const DefaultInitInterval = 60

// Status returns the scheduler running state.
func (c *Client) Status(ctx context.Context) (*SchedulerStatus, error) {
	var s SchedulerStatus
	if err := c.do(ctx, http.MethodGet, "/api/scheduler/status", nil, nil, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// Start starts the scheduler loop.
func (c *Client) Start(ctx context.Context) (*ControlResponse, error) {
	var r ControlResponse
	if err := c.do(ctx, http.MethodPost, "/api/scheduler/start", nil, nil, &r); err != nil {
		return nil, err
	}
	return &r, nil
}

// Stop stops the scheduler loop.
func (c *Client) Stop(ctx context.Context) (*ControlResponse, error) {
	var r ControlResponse
	if err := c.do(ctx, http.MethodPost, "/api/scheduler/stop", nil, nil, &r); err != nil {
		return nil, err
	}
	return &r, nil
}

// Stats returns aggregate task and crawl counts.
func (c *Client) Stats(ctx context.Context) (*Stats, error) {
	var s Stats
	if err := c.do(ctx, http.MethodGet, "/api/scheduler/stats", nil, nil, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// Countries returns per-country task counts.
func (c *Client) Countries(ctx context.Context) (*CountriesResponse, error) {
	var r CountriesResponse
	if err := c.do(ctx, http.MethodGet, "/api/countries", nil, nil, &r); err != nil {
		return nil, err
	}
	return &r, nil
}

// InitTasks creates tasks for every configured source that doesn't have one
// yet. A non-positive interval sends DefaultInitInterval.
func (c *Client) InitTasks(ctx context.Context, intervalMinutes int) (*InitResponse, error) {
	if intervalMinutes <= 0 {
		intervalMinutes = DefaultInitInterval
	}
	q := url.Values{}
	q.Set("interval_minutes", strconv.Itoa(intervalMinutes))

	var r InitResponse
	if err := c.do(ctx, http.MethodPost, "/api/init", q, nil, &r); err != nil {
		return nil, err
	}
	return &r, nil
}
