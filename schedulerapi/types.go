package schedulerapi

import (
	"encoding/json"
	"time"
)

// Task represents the scheduled-crawl configuration of a news source.
type Task struct {
	ID              int        `json:"id"`
	SourceID        string     `json:"source_id"`
	SourceName      string     `json:"source_name"`
	URL             string     `json:"url"`
	Country         string     `json:"country"`
	Enabled         bool       `json:"enabled"`
	IntervalMinutes int        `json:"interval_minutes"`
	LastCrawlTime   *time.Time `json:"last_crawl_time"`
	NextCrawlTime   *time.Time `json:"next_crawl_time"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// Crawl statuses recorded in History.
const (
	StatusSuccess = "success"
	StatusFailed  = "failed"
)

// History represents one executed crawl attempt.
type History struct {
	ID              int       `json:"id"`
	TaskID          int       `json:"task_id"`
	SourceID        string    `json:"source_id"`
	URL             string    `json:"url"`
	Status          string    `json:"status"`
	ArticlesCount   int       `json:"articles_count"`
	ErrorMessage    *string   `json:"error_message"`
	CrawlTime       time.Time `json:"crawl_time"`
	DurationSeconds float64   `json:"duration_seconds"`
}

// Article represents the metadata of a single crawled article.
type Article struct {
	ID          int        `json:"id"`
	SourceID    string     `json:"source_id"`
	ArticleID   string     `json:"article_id"`
	Title       string     `json:"title"`
	URL         string     `json:"url"`
	Author      *string    `json:"author"`
	PublishTime *time.Time `json:"publish_time"`
	Summary     *string    `json:"summary"`
	Category    *string    `json:"category"`
	CreatedAt   time.Time  `json:"created_at"`
}

// CountryStats holds task counts for a single country.
type CountryStats struct {
	Country       string `json:"country"`
	TotalTasks    int    `json:"total_tasks"`
	EnabledTasks  int    `json:"enabled_tasks"`
	DisabledTasks int    `json:"disabled_tasks"`
}

// Stats holds aggregate scheduler counts.
type Stats struct {
	TotalTasks    int            `json:"total_tasks"`
	EnabledTasks  int            `json:"enabled_tasks"`
	DisabledTasks int            `json:"disabled_tasks"`
	RecentSuccess int            `json:"recent_success"`
	RecentFailed  int            `json:"recent_failed"`
	Countries     int            `json:"countries"`
	CountriesList []CountryStats `json:"countries_list"`
}

// SchedulerStatus reports whether the scheduler loop is running.
type SchedulerStatus struct {
	Running            bool `json:"running"`
	RegisteredCrawlers int  `json:"registered_crawlers"`
}

// ControlResponse is returned by the scheduler start and stop endpoints.
type ControlResponse struct {
	Message string `json:"message"`
	Running bool   `json:"running"`
}

// TaskActionResponse is returned by the task update and run endpoints.
type TaskActionResponse struct {
	Message  string `json:"message"`
	SourceID string `json:"source_id"`
}

// CountriesResponse wraps the country list.
type CountriesResponse struct {
	Countries []CountryStats `json:"countries"`
}

// InitResponse is returned by the task initialization endpoint.
type InitResponse struct {
	Message         string `json:"message"`
	TotalTasks      int    `json:"total_tasks"`
	IntervalMinutes int    `json:"interval_minutes"`
}

// TaskUpdate is a partial task update. Nil fields are left untouched.
type TaskUpdate struct {
	Enabled         *bool `json:"enabled,omitempty"`
	IntervalMinutes *int  `json:"interval_minutes,omitempty"`
}

// TaskFilter narrows the task list. Zero values are not sent.
type TaskFilter struct {
	Country  string
	Enabled  *bool
	Page     int
	PageSize int
}

// HistoryFilter narrows the crawl history. Zero values are not sent.
type HistoryFilter struct {
	SourceID string
	Status   string
	Limit    int
}

// ErrorResponse is the error body returned by the backend. Detail is either
// a message string or an extraction envelope.
type ErrorResponse struct {
	Detail json.RawMessage `json:"detail"`
}

// Bool returns a pointer to b.
func Bool(b bool) *bool { return &b }

// Int returns a pointer to i.
func Int(i int) *int { return &i }
