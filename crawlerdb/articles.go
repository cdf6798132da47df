package crawlerdb

import (
	"context"
	"fmt"
)

// CreateArticle stores an article unless one with the same source and
// article id already exists. It reports whether a new row was written.
func (p *Postgres) CreateArticle(ctx context.Context, a *Article) (bool, error) {
	res, err := p.db.ExecContext(ctx,
		`INSERT INTO crawl_articles
		(source_id, article_id, title, url, author, publish_time, content,
		 summary, category, tags, images, videos, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, now(), now())
		ON CONFLICT (source_id, article_id) DO NOTHING`,
		a.SourceID, a.ArticleID, a.Title, a.URL, a.Author, a.PublishTime, a.Content,
		a.Summary, a.Category, jsonOrEmpty(a.Tags), jsonOrEmpty(a.Images), jsonOrEmpty(a.Videos))
	if err != nil {
		return false, fmt.Errorf("Unable to store article %s for source %s: %w", a.ArticleID, a.SourceID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("Unable to store article %s for source %s: %w", a.ArticleID, a.SourceID, err)
	}
	return n > 0, nil
}

// ArticlesBySource returns the newest articles crawled from a source.
func (p *Postgres) ArticlesBySource(ctx context.Context, sourceID string, limit int) ([]*Article, error) {
	articles := []*Article{}
	err := p.db.SelectContext(ctx, &articles,
		`SELECT id, source_id, article_id, title, url, author, publish_time, content,
			summary, category, tags, images, videos, created_at, updated_at
		FROM crawl_articles
		WHERE source_id = $1
		ORDER BY created_at DESC
		LIMIT $2`, sourceID, limit)
	if err != nil {
		return nil, fmt.Errorf("Unable to get articles for source %s: %w", sourceID, err)
	}
	return articles, nil
}

func jsonOrEmpty(j []byte) string {
	if len(j) == 0 {
		return "[]"
	}
	return string(j)
}
