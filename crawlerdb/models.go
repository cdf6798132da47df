package crawlerdb

import (
	"encoding/json"
	"time"

	"github.com/jmoiron/sqlx/types"
)

// Task represents the scheduled crawl of a single news source.
type Task struct {
	ID              int        `db:"id"`
	SourceID        string     `db:"source_id"`
	SourceName      string     `db:"source_name"`
	URL             string     `db:"url"`
	Country         string     `db:"country"`
	Enabled         bool       `db:"enabled"`
	IntervalMinutes int        `db:"interval_minutes"`
	LastCrawlTime   *time.Time `db:"last_crawl_time"`
	NextCrawlTime   *time.Time `db:"next_crawl_time"`
	CreatedAt       time.Time  `db:"created_at"`
	UpdatedAt       time.Time  `db:"updated_at"`
}

// Due reports whether the task should be crawled at now.
func (t *Task) Due(now time.Time) bool {
	return t.NextCrawlTime == nil || !t.NextCrawlTime.After(now)
}

// TaskFilter narrows ListTasks. Empty fields match everything.
type TaskFilter struct {
	Country string
	Enabled *bool
}

// History statuses.
const (
	StatusSuccess = "success"
	StatusFailed  = "failed"
)

// History represents one executed crawl of a task.
type History struct {
	ID              int       `db:"id"`
	TaskID          int       `db:"task_id"`
	SourceID        string    `db:"source_id"`
	URL             string    `db:"url"`
	Status          string    `db:"status"`
	ArticlesCount   int       `db:"articles_count"`
	ErrorMessage    *string   `db:"error_message"`
	CrawlTime       time.Time `db:"crawl_time"`
	DurationSeconds float64   `db:"duration_seconds"`
}

// Article represents a crawled article. Tags, Images and Videos hold JSON
// string arrays.
type Article struct {
	ID          int            `db:"id"`
	SourceID    string         `db:"source_id"`
	ArticleID   string         `db:"article_id"`
	Title       string         `db:"title"`
	URL         string         `db:"url"`
	Author      *string        `db:"author"`
	PublishTime *time.Time     `db:"publish_time"`
	Content     string         `db:"content"`
	Summary     *string        `db:"summary"`
	Category    *string        `db:"category"`
	Tags        types.JSONText `db:"tags"`
	Images      types.JSONText `db:"images"`
	Videos      types.JSONText `db:"videos"`
	CreatedAt   time.Time      `db:"created_at"`
	UpdatedAt   time.Time      `db:"updated_at"`
}

// StringList encodes a string slice for the JSON array columns. A nil slice
// encodes as an empty array.
func StringList(s []string) types.JSONText {
	if s == nil {
		s = []string{}
	}
	b, _ := json.Marshal(s)
	return types.JSONText(b)
}

// Strings decodes a JSON array column.
func Strings(j types.JSONText) []string {
	var s []string
	if len(j) == 0 {
		return s
	}
	if err := j.Unmarshal(&s); err != nil {
		return nil
	}
	return s
}

// CountryStats counts the tasks of a single country.
type CountryStats struct {
	Country       string `db:"country"`
	TotalTasks    int    `db:"total_tasks"`
	EnabledTasks  int    `db:"enabled_tasks"`
	DisabledTasks int    `db:"disabled_tasks"`
}
