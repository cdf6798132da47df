package crawlerdb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	ErrDoesNotExist = errors.New("does not exist")
)

const taskColumns = `id, source_id, source_name, url, country, enabled, interval_minutes,
	last_crawl_time, next_crawl_time, created_at, updated_at`

// CreateTask creates a new task and returns its id.
func (p *Postgres) CreateTask(ctx context.Context, t *Task) (int, error) {
	var id int
	result := p.db.QueryRowContext(ctx,
		`INSERT INTO crawl_tasks
		(source_id, source_name, url, country, enabled, interval_minutes,
		 last_crawl_time, next_crawl_time, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, now(), now())
		RETURNING id`,
		t.SourceID, t.SourceName, t.URL, t.Country, t.Enabled, t.IntervalMinutes,
		t.LastCrawlTime, t.NextCrawlTime)
	if err := result.Scan(&id); err != nil {
		return id, fmt.Errorf("Unable to create task for source %s: %w", t.SourceID, err)
	}
	return id, nil
}

// GetTask returns the task for the given source id.
func (p *Postgres) GetTask(ctx context.Context, sourceID string) (*Task, error) {
	var t Task
	err := p.db.GetContext(ctx, &t,
		`SELECT `+taskColumns+`
		FROM crawl_tasks
		WHERE source_id = $1`, sourceID)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("Unable to get task %s: %w", sourceID, ErrDoesNotExist)
	}
	if err != nil {
		return nil, fmt.Errorf("Unable to get task %s: %w", sourceID, err)
	}
	return &t, nil
}

// ListTasks returns all tasks matching the filter, ordered by id.
func (p *Postgres) ListTasks(ctx context.Context, f TaskFilter) ([]*Task, error) {
	var (
		conds []string
		args  []interface{}
	)
	if f.Country != "" {
		args = append(args, f.Country)
		conds = append(conds, fmt.Sprintf("country = $%d", len(args)))
	}
	if f.Enabled != nil {
		args = append(args, *f.Enabled)
		conds = append(conds, fmt.Sprintf("enabled = $%d", len(args)))
	}
	query := `SELECT ` + taskColumns + ` FROM crawl_tasks`
	if len(conds) > 0 {
		query += ` WHERE ` + strings.Join(conds, " AND ")
	}
	query += ` ORDER BY id ASC`

	tasks := []*Task{}
	if err := p.db.SelectContext(ctx, &tasks, query, args...); err != nil {
		return nil, fmt.Errorf("Unable to list tasks: %w", err)
	}
	return tasks, nil
}

// ListEnabledTasks returns every enabled task.
func (p *Postgres) ListEnabledTasks(ctx context.Context) ([]*Task, error) {
	enabled := true
	return p.ListTasks(ctx, TaskFilter{Enabled: &enabled})
}

// UpdateTaskSettings changes whether a task is enabled and how often it is
// crawled, and returns the updated task. Nil settings are kept. Crawl times
// are left to UpdateCrawlTimes.
func (p *Postgres) UpdateTaskSettings(ctx context.Context, sourceID string, enabled *bool, intervalMinutes *int) (*Task, error) {
	var t Task
	err := p.db.GetContext(ctx, &t,
		`UPDATE crawl_tasks
		SET enabled = COALESCE($2, enabled),
			interval_minutes = COALESCE($3, interval_minutes),
			updated_at = now()
		WHERE source_id = $1
		RETURNING `+taskColumns,
		sourceID, enabled, intervalMinutes)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("Unable to update task %s: %w", sourceID, ErrDoesNotExist)
	}
	if err != nil {
		return nil, fmt.Errorf("Unable to update task %s: %w", sourceID, err)
	}
	return &t, nil
}

// UpdateCrawlTimes records a finished crawl of a task without touching its
// configuration.
func (p *Postgres) UpdateCrawlTimes(ctx context.Context, sourceID string, last, next time.Time) error {
	res, err := p.db.ExecContext(ctx,
		`UPDATE crawl_tasks
		SET last_crawl_time = $2, next_crawl_time = $3, updated_at = now()
		WHERE source_id = $1`,
		sourceID, last, next)
	if err != nil {
		return fmt.Errorf("Unable to update crawl times of task %s: %w", sourceID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("Unable to update crawl times of task %s: %w", sourceID, err)
	}
	if n == 0 {
		return fmt.Errorf("Unable to update crawl times of task %s: %w", sourceID, ErrDoesNotExist)
	}
	return nil
}

// CountryStats returns task counts grouped by country, ordered by country.
func (p *Postgres) CountryStats(ctx context.Context) ([]CountryStats, error) {
	stats := []CountryStats{}
	err := p.db.SelectContext(ctx, &stats,
		`SELECT country,
			COUNT(*) AS total_tasks,
			COUNT(*) FILTER (WHERE enabled) AS enabled_tasks,
			COUNT(*) FILTER (WHERE NOT enabled) AS disabled_tasks
		FROM crawl_tasks
		GROUP BY country
		ORDER BY country ASC`)
	if err != nil {
		return nil, fmt.Errorf("Unable to count tasks by country: %w", err)
	}
	return stats, nil
}
