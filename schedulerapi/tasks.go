package schedulerapi

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strconv"
)

// ErrSourceIDRequired is returned before any request is sent when an
// endpoint needs a source id and none was given.
var ErrSourceIDRequired = errors.New("source id is required")

func (f TaskFilter) values() url.Values {
	q := url.Values{}
	if f.Country != "" {
		q.Set("country", f.Country)
	}
	if f.Enabled != nil {
		q.Set("enabled", strconv.FormatBool(*f.Enabled))
	}
	if f.Page > 0 {
		q.Set("page", strconv.Itoa(f.Page))
	}
	if f.PageSize > 0 {
		q.Set("page_size", strconv.Itoa(f.PageSize))
	}
	return q
}

func (f HistoryFilter) values() url.Values {
	q := url.Values{}
	if f.SourceID != "" {
		q.Set("source_id", f.SourceID)
	}
	if f.Status != "" {
		q.Set("status", f.Status)
	}
	if f.Limit > 0 {
		q.Set("limit", strconv.Itoa(f.Limit))
	}
	return q
}

// Tasks lists tasks matching the filter.
func (c *Client) Tasks(ctx context.Context, filter TaskFilter) ([]Task, error) {
	var tasks []Task
	if err := c.do(ctx, http.MethodGet, "/api/tasks", filter.values(), nil, &tasks); err != nil {
		return nil, err
	}
	return tasks, nil
}

// Task returns the task for a source.
func (c *Client) Task(ctx context.Context, sourceID string) (*Task, error) {
	if sourceID == "" {
		return nil, ErrSourceIDRequired
	}
	var t Task
	if err := c.do(ctx, http.MethodGet, taskPath(sourceID), nil, nil, &t); err != nil {
		return nil, err
	}
	return &t, nil
}

// UpdateTask applies a partial update to a source's task.
func (c *Client) UpdateTask(ctx context.Context, sourceID string, update TaskUpdate) (*TaskActionResponse, error) {
	if sourceID == "" {
		return nil, ErrSourceIDRequired
	}
	var r TaskActionResponse
	if err := c.do(ctx, http.MethodPatch, taskPath(sourceID), nil, update, &r); err != nil {
		return nil, err
	}
	return &r, nil
}

// RunTask asks the backend to crawl a source now. The crawl runs in the
// background; the call returns as soon as it has been accepted.
func (c *Client) RunTask(ctx context.Context, sourceID string) (*TaskActionResponse, error) {
	if sourceID == "" {
		return nil, ErrSourceIDRequired
	}
	var r TaskActionResponse
	if err := c.do(ctx, http.MethodPost, taskPath(sourceID, "run"), nil, nil, &r); err != nil {
		return nil, err
	}
	return &r, nil
}

// History lists crawl attempts, newest first.
func (c *Client) History(ctx context.Context, filter HistoryFilter) ([]History, error) {
	var h []History
	if err := c.do(ctx, http.MethodGet, "/api/history", filter.values(), nil, &h); err != nil {
		return nil, err
	}
	return h, nil
}

// Articles lists the articles crawled from a source. A non-positive limit
// leaves the server default in place.
func (c *Client) Articles(ctx context.Context, sourceID string, limit int) ([]Article, error) {
	if sourceID == "" {
		return nil, ErrSourceIDRequired
	}
	q := url.Values{}
	q.Set("source_id", sourceID)
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}

	var a []Article
	if err := c.do(ctx, http.MethodGet, "/api/articles", q, nil, &a); err != nil {
		return nil, err
	}
	return a, nil
}
