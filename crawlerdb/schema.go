package crawlerdb

import (
	"context"
	"fmt"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS crawl_tasks (
		id SERIAL PRIMARY KEY,
		source_id TEXT UNIQUE NOT NULL,
		source_name TEXT NOT NULL,
		url TEXT NOT NULL,
		country TEXT NOT NULL,
		enabled BOOLEAN NOT NULL DEFAULT TRUE,
		interval_minutes INTEGER NOT NULL DEFAULT 60,
		last_crawl_time TIMESTAMPTZ,
		next_crawl_time TIMESTAMPTZ,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS crawl_history (
		id SERIAL PRIMARY KEY,
		task_id INTEGER NOT NULL REFERENCES crawl_tasks(id) ON DELETE CASCADE,
		source_id TEXT NOT NULL,
		url TEXT NOT NULL,
		status TEXT NOT NULL,
		articles_count INTEGER NOT NULL DEFAULT 0,
		error_message TEXT,
		crawl_time TIMESTAMPTZ NOT NULL,
		duration_seconds DOUBLE PRECISION NOT NULL DEFAULT 0
	)`,
	`CREATE TABLE IF NOT EXISTS crawl_articles (
		id SERIAL PRIMARY KEY,
		source_id TEXT NOT NULL,
		article_id TEXT NOT NULL,
		title TEXT NOT NULL,
		url TEXT NOT NULL,
		author TEXT,
		publish_time TIMESTAMPTZ,
		content TEXT NOT NULL,
		summary TEXT,
		category TEXT,
		tags TEXT NOT NULL DEFAULT '[]',
		images TEXT NOT NULL DEFAULT '[]',
		videos TEXT NOT NULL DEFAULT '[]',
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		UNIQUE (source_id, article_id)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_tasks_enabled ON crawl_tasks(enabled)`,
	`CREATE INDEX IF NOT EXISTS idx_tasks_country ON crawl_tasks(country)`,
	`CREATE INDEX IF NOT EXISTS idx_history_task_id ON crawl_history(task_id)`,
	`CREATE INDEX IF NOT EXISTS idx_history_crawl_time ON crawl_history(crawl_time DESC)`,
	`CREATE INDEX IF NOT EXISTS idx_articles_source_id ON crawl_articles(source_id)`,
}

// Migrate creates the tables and indexes if they don't exist yet.
func (p *Postgres) Migrate(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := p.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("Unable to apply schema: %w", err)
		}
	}
	return nil
}
