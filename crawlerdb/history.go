package crawlerdb

import (
	"context"
	"fmt"
)

const historyColumns = `id, task_id, source_id, url, status, articles_count,
	error_message, crawl_time, duration_seconds`

// CreateHistory records a crawl attempt and returns its id.
func (p *Postgres) CreateHistory(ctx context.Context, h *History) (int, error) {
	var id int
	result := p.db.QueryRowContext(ctx,
		`INSERT INTO crawl_history
		(task_id, source_id, url, status, articles_count, error_message, crawl_time, duration_seconds)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id`,
		h.TaskID, h.SourceID, h.URL, h.Status, h.ArticlesCount, h.ErrorMessage, h.CrawlTime, h.DurationSeconds)
	if err := result.Scan(&id); err != nil {
		return id, fmt.Errorf("Unable to record history for task %d: %w", h.TaskID, err)
	}
	return id, nil
}

// TaskHistory returns the most recent crawl attempts of a task, newest first.
func (p *Postgres) TaskHistory(ctx context.Context, taskID, limit int) ([]*History, error) {
	history := []*History{}
	err := p.db.SelectContext(ctx, &history,
		`SELECT `+historyColumns+`
		FROM crawl_history
		WHERE task_id = $1
		ORDER BY crawl_time DESC
		LIMIT $2`, taskID, limit)
	if err != nil {
		return nil, fmt.Errorf("Unable to get history for task %d: %w", taskID, err)
	}
	return history, nil
}

// RecentHistory returns the most recent crawl attempts across all tasks.
func (p *Postgres) RecentHistory(ctx context.Context, limit int) ([]*History, error) {
	history := []*History{}
	err := p.db.SelectContext(ctx, &history,
		`SELECT `+historyColumns+`
		FROM crawl_history
		ORDER BY crawl_time DESC
		LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("Unable to get recent history: %w", err)
	}
	return history, nil
}
