package api

import (
	"context"
	"errors"
	"io"
	"math"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/emilyzhang/newscrawlr/crawlerdb"
	"github.com/emilyzhang/newscrawlr/extractor"
	"github.com/emilyzhang/newscrawlr/scheduler"
	"github.com/emilyzhang/newscrawlr/schedulerapi"
)

// memStore is an in-memory stand-in for crawlerdb.Postgres.
type memStore struct {
	mu       sync.Mutex
	tasks    []*crawlerdb.Task
	history  []*crawlerdb.History
	articles []*crawlerdb.Article
}

func (m *memStore) find(sourceID string) *crawlerdb.Task {
	for _, t := range m.tasks {
		if t.SourceID == sourceID {
			return t
		}
	}
	return nil
}

func (m *memStore) CreateTask(ctx context.Context, t *crawlerdb.Task) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t.ID = len(m.tasks) + 1
	cp := *t
	m.tasks = append(m.tasks, &cp)
	return t.ID, nil
}

func (m *memStore) GetTask(ctx context.Context, sourceID string) (*crawlerdb.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t := m.find(sourceID)
	if t == nil {
		return nil, crawlerdb.ErrDoesNotExist
	}
	cp := *t
	return &cp, nil
}

func (m *memStore) ListTasks(ctx context.Context, f crawlerdb.TaskFilter) ([]*crawlerdb.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []*crawlerdb.Task{}
	for _, t := range m.tasks {
		if f.Country != "" && t.Country != f.Country {
			continue
		}
		if f.Enabled != nil && t.Enabled != *f.Enabled {
			continue
		}
		cp := *t
		out = append(out, &cp)
	}
	return out, nil
}

func (m *memStore) ListEnabledTasks(ctx context.Context) ([]*crawlerdb.Task, error) {
	enabled := true
	return m.ListTasks(ctx, crawlerdb.TaskFilter{Enabled: &enabled})
}

func (m *memStore) UpdateTaskSettings(ctx context.Context, sourceID string, enabled *bool, intervalMinutes *int) (*crawlerdb.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t := m.find(sourceID)
	if t == nil {
		return nil, crawlerdb.ErrDoesNotExist
	}
	if enabled != nil {
		t.Enabled = *enabled
	}
	if intervalMinutes != nil {
		t.IntervalMinutes = *intervalMinutes
	}
	cp := *t
	return &cp, nil
}

func (m *memStore) UpdateCrawlTimes(ctx context.Context, sourceID string, last, next time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	t := m.find(sourceID)
	if t == nil {
		return crawlerdb.ErrDoesNotExist
	}
	t.LastCrawlTime = &last
	t.NextCrawlTime = &next
	return nil
}

func (m *memStore) CountryStats(ctx context.Context) ([]crawlerdb.CountryStats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	byCountry := map[string]*crawlerdb.CountryStats{}
	for _, t := range m.tasks {
		c, ok := byCountry[t.Country]
		if !ok {
			c = &crawlerdb.CountryStats{Country: t.Country}
			byCountry[t.Country] = c
		}
		c.TotalTasks++
		if t.Enabled {
			c.EnabledTasks++
		} else {
			c.DisabledTasks++
		}
	}
	out := []crawlerdb.CountryStats{}
	for _, c := range byCountry {
		out = append(out, *c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Country < out[j].Country })
	return out, nil
}

func (m *memStore) CreateHistory(ctx context.Context, h *crawlerdb.History) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	h.ID = len(m.history) + 1
	m.history = append(m.history, h)
	return h.ID, nil
}

func (m *memStore) recent(limit int, keep func(*crawlerdb.History) bool) []*crawlerdb.History {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []*crawlerdb.History{}
	for i := len(m.history) - 1; i >= 0 && len(out) < limit; i-- {
		if keep(m.history[i]) {
			out = append(out, m.history[i])
		}
	}
	return out
}

func (m *memStore) TaskHistory(ctx context.Context, taskID, limit int) ([]*crawlerdb.History, error) {
	return m.recent(limit, func(h *crawlerdb.History) bool { return h.TaskID == taskID }), nil
}

func (m *memStore) RecentHistory(ctx context.Context, limit int) ([]*crawlerdb.History, error) {
	return m.recent(limit, func(*crawlerdb.History) bool { return true }), nil
}

func (m *memStore) CreateArticle(ctx context.Context, a *crawlerdb.Article) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.articles {
		if existing.SourceID == a.SourceID && existing.ArticleID == a.ArticleID {
			return false, nil
		}
	}
	a.ID = len(m.articles) + 1
	m.articles = append(m.articles, a)
	return true, nil
}

func (m *memStore) ArticlesBySource(ctx context.Context, sourceID string, limit int) ([]*crawlerdb.Article, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []*crawlerdb.Article{}
	for i := len(m.articles) - 1; i >= 0 && len(out) < limit; i-- {
		if m.articles[i].SourceID == sourceID {
			out = append(out, m.articles[i])
		}
	}
	return out, nil
}

type stubCrawler struct {
	items []*schedulerapi.NewsItem
	err   error
}

func (c *stubCrawler) Run(ctx context.Context, listURL string) ([]*schedulerapi.NewsItem, error) {
	return c.items, c.err
}

var testNow = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func seedStore() *memStore {
	store := &memStore{}
	future := testNow.Add(time.Hour)
	for _, t := range []*crawlerdb.Task{
		{SourceID: "bbc", SourceName: "BBC News", URL: "https://www.bbc.com/news", Country: "uk", Enabled: true, IntervalMinutes: 60},
		{SourceID: "guardian", SourceName: "The Guardian", URL: "https://www.theguardian.com", Country: "uk", Enabled: false, IntervalMinutes: 60},
		{SourceID: "detik", SourceName: "Detik", URL: "https://news.detik.com", Country: "id", Enabled: true, IntervalMinutes: 30},
		{SourceID: "a/b", SourceName: "Slashed", URL: "https://slashed.example.com", Country: "us", Enabled: true, IntervalMinutes: 15, NextCrawlTime: &future},
	} {
		store.CreateTask(context.Background(), t)
	}
	return store
}

// testServer starts the API on an httptest server and returns a client
// pointed at it.
func testServer(t *testing.T, store *memStore, cfg scheduler.Config) (*schedulerapi.Client, *scheduler.Scheduler, string) {
	t.Helper()
	if cfg.Now == nil {
		cfg.Now = func() time.Time { return testNow }
	}
	sched := scheduler.New(store, cfg)
	t.Cleanup(sched.Close)

	s := New(store, sched, nil, nil)
	s.now = func() time.Time { return testNow }
	srv := httptest.NewServer(s.Handler())
	t.Cleanup(srv.Close)
	return schedulerapi.New(schedulerapi.WithBaseURL(srv.URL)), sched, srv.URL
}

func statusCode(t *testing.T, err error) int {
	t.Helper()
	var se *schedulerapi.StatusError
	require.True(t, errors.As(err, &se), "expected a status error, got %v", err)
	return se.StatusCode
}

func TestSchedulerEndpoints(t *testing.T) {
	ctx := context.Background()
	client, _, _ := testServer(t, seedStore(), scheduler.Config{})

	status, err := client.Status(ctx)
	require.NoError(t, err)
	assert.False(t, status.Running)

	resp, err := client.Start(ctx)
	require.NoError(t, err)
	assert.True(t, resp.Running)

	_, err = client.Start(ctx)
	assert.Equal(t, http.StatusBadRequest, statusCode(t, err))
	assert.Contains(t, err.Error(), "already running")

	status, err = client.Status(ctx)
	require.NoError(t, err)
	assert.True(t, status.Running)

	resp, err = client.Stop(ctx)
	require.NoError(t, err)
	assert.False(t, resp.Running)

	_, err = client.Stop(ctx)
	assert.Equal(t, http.StatusBadRequest, statusCode(t, err))
}

func TestTaskEndpoints(t *testing.T) {
	ctx := context.Background()
	store := seedStore()
	client, sched, _ := testServer(t, store, scheduler.Config{})

	t.Run("lists tasks with filters and paging", func(tt *testing.T) {
		tasks, err := client.Tasks(ctx, schedulerapi.TaskFilter{})
		require.NoError(tt, err)
		assert.Len(tt, tasks, 4)

		tasks, err = client.Tasks(ctx, schedulerapi.TaskFilter{Country: "uk", Enabled: schedulerapi.Bool(true)})
		require.NoError(tt, err)
		require.Len(tt, tasks, 1)
		assert.Equal(tt, "bbc", tasks[0].SourceID)

		tasks, err = client.Tasks(ctx, schedulerapi.TaskFilter{Page: 2, PageSize: 3})
		require.NoError(tt, err)
		require.Len(tt, tasks, 1)
		assert.Equal(tt, "a/b", tasks[0].SourceID)

		tasks, err = client.Tasks(ctx, schedulerapi.TaskFilter{Page: 5, PageSize: 3})
		require.NoError(tt, err)
		assert.Empty(tt, tasks)
	})

	t.Run("rejects out of range paging", func(tt *testing.T) {
		_, err := client.Tasks(ctx, schedulerapi.TaskFilter{PageSize: 500})
		assert.Equal(tt, http.StatusUnprocessableEntity, statusCode(tt, err))
	})

	t.Run("pages past the end are empty", func(tt *testing.T) {
		for _, page := range []int{3, 1000, math.MaxInt} {
			tasks, err := client.Tasks(ctx, schedulerapi.TaskFilter{Page: page, PageSize: 2})
			require.NoError(tt, err, "page %d", page)
			assert.Empty(tt, tasks, "page %d", page)
		}

		tasks, err := client.Tasks(ctx, schedulerapi.TaskFilter{Page: 2, PageSize: 3})
		require.NoError(tt, err)
		require.Len(tt, tasks, 1)
		assert.Equal(tt, "a/b", tasks[0].SourceID)
	})

	t.Run("gets a single task", func(tt *testing.T) {
		task, err := client.Task(ctx, "detik")
		require.NoError(tt, err)
		assert.Equal(tt, "Detik", task.SourceName)
		assert.Equal(tt, 30, task.IntervalMinutes)

		// source ids are path escaped
		task, err = client.Task(ctx, "a/b")
		require.NoError(tt, err)
		assert.Equal(tt, "Slashed", task.SourceName)

		_, err = client.Task(ctx, "nope")
		assert.Equal(tt, http.StatusNotFound, statusCode(tt, err))
	})

	t.Run("updates only the fields sent", func(tt *testing.T) {
		resp, err := client.UpdateTask(ctx, "detik", schedulerapi.TaskUpdate{Enabled: schedulerapi.Bool(false)})
		require.NoError(tt, err)
		assert.Equal(tt, "detik", resp.SourceID)

		task, err := client.Task(ctx, "detik")
		require.NoError(tt, err)
		assert.False(tt, task.Enabled)
		assert.Equal(tt, 30, task.IntervalMinutes)

		_, err = client.UpdateTask(ctx, "detik", schedulerapi.TaskUpdate{IntervalMinutes: schedulerapi.Int(120)})
		require.NoError(tt, err)
		task, err = client.Task(ctx, "detik")
		require.NoError(tt, err)
		assert.False(tt, task.Enabled)
		assert.Equal(tt, 120, task.IntervalMinutes)

		_, err = client.UpdateTask(ctx, "detik", schedulerapi.TaskUpdate{IntervalMinutes: schedulerapi.Int(0)})
		assert.Equal(tt, http.StatusUnprocessableEntity, statusCode(tt, err))

		_, err = client.UpdateTask(ctx, "nope", schedulerapi.TaskUpdate{Enabled: schedulerapi.Bool(true)})
		assert.Equal(tt, http.StatusNotFound, statusCode(tt, err))
	})

	t.Run("updating settings keeps crawl times", func(tt *testing.T) {
		last, next := testNow.Add(-time.Minute), testNow.Add(29*time.Minute)
		require.NoError(tt, store.UpdateCrawlTimes(ctx, "detik", last, next))

		_, err := client.UpdateTask(ctx, "detik", schedulerapi.TaskUpdate{Enabled: schedulerapi.Bool(true)})
		require.NoError(tt, err)

		task, err := client.Task(ctx, "detik")
		require.NoError(tt, err)
		assert.True(tt, task.Enabled)
		require.NotNil(tt, task.LastCrawlTime)
		require.NotNil(tt, task.NextCrawlTime)
		assert.True(tt, task.LastCrawlTime.Equal(last))
		assert.True(tt, task.NextCrawlTime.Equal(next))
	})

	t.Run("runs a task in the background", func(tt *testing.T) {
		sched.RegisterCrawler("bbc", &stubCrawler{items: []*schedulerapi.NewsItem{
			{Title: "Storm hits the coast", NewsURL: "https://www.bbc.com/news/articles/1", Texts: []string{"It rained."}},
		}})

		resp, err := client.RunTask(ctx, "bbc")
		require.NoError(tt, err)
		assert.Equal(tt, "bbc", resp.SourceID)

		assert.Eventually(tt, func() bool {
			history, err := client.History(ctx, schedulerapi.HistoryFilter{SourceID: "bbc"})
			return err == nil && len(history) == 1
		}, time.Second, 10*time.Millisecond)

		history, err := client.History(ctx, schedulerapi.HistoryFilter{SourceID: "bbc"})
		require.NoError(tt, err)
		assert.Equal(tt, schedulerapi.StatusSuccess, history[0].Status)
		assert.Equal(tt, 1, history[0].ArticlesCount)

		articles, err := client.Articles(ctx, "bbc", 0)
		require.NoError(tt, err)
		require.Len(tt, articles, 1)
		assert.Equal(tt, "Storm hits the coast", articles[0].Title)
		require.NotNil(tt, articles[0].Summary)
		assert.Equal(tt, "It rained.", *articles[0].Summary)

		_, err = client.RunTask(ctx, "nope")
		assert.Equal(tt, http.StatusNotFound, statusCode(tt, err))
	})

	t.Run("filters history by status", func(tt *testing.T) {
		// no crawler is registered for uk/guardian
		_, err := client.RunTask(ctx, "guardian")
		require.NoError(tt, err)
		assert.Eventually(tt, func() bool {
			history, err := client.History(ctx, schedulerapi.HistoryFilter{Status: schedulerapi.StatusFailed})
			return err == nil && len(history) == 1
		}, time.Second, 10*time.Millisecond)

		history, err := client.History(ctx, schedulerapi.HistoryFilter{Status: schedulerapi.StatusSuccess})
		require.NoError(tt, err)
		require.Len(tt, history, 1)
		assert.Equal(tt, "bbc", history[0].SourceID)

		history, err = client.History(ctx, schedulerapi.HistoryFilter{Limit: 1})
		require.NoError(tt, err)
		require.Len(tt, history, 1)
		assert.Equal(tt, "guardian", history[0].SourceID)

		_, err = client.History(ctx, schedulerapi.HistoryFilter{SourceID: "nope"})
		assert.Equal(tt, http.StatusNotFound, statusCode(tt, err))
	})

	t.Run("counts tasks per country", func(tt *testing.T) {
		resp, err := client.Countries(ctx)
		require.NoError(tt, err)
		require.Len(tt, resp.Countries, 3)
		assert.Equal(tt, schedulerapi.CountryStats{Country: "uk", TotalTasks: 2, EnabledTasks: 1, DisabledTasks: 1}, resp.Countries[1])

		stats, err := client.Stats(ctx)
		require.NoError(tt, err)
		assert.Equal(tt, 4, stats.TotalTasks)
		assert.Equal(tt, 3, stats.Countries)
		assert.Equal(tt, 1, stats.RecentSuccess)
		assert.Equal(tt, 1, stats.RecentFailed)
	})
}

func TestArticlesRequiresSource(t *testing.T) {
	_, _, baseURL := testServer(t, seedStore(), scheduler.Config{})
	resp, err := http.Get(baseURL + "/api/articles")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	body, _ := io.ReadAll(resp.Body)
	assert.JSONEq(t, `{"detail": "source_id is required"}`, string(body))
}

func TestInitEndpoint(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "sources.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
sources:
  - id: bbc
    url: https://www.bbc.com/news
    country: uk
  - id: cnn
    name: CNN
    url: https://edition.cnn.com
    country: us
`), 0o644))

	client, sched, _ := testServer(t, seedStore(), scheduler.Config{SourcesPath: path})
	resp, err := client.InitTasks(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, 5, resp.TotalTasks)
	assert.Equal(t, 60, resp.IntervalMinutes)
	assert.Equal(t, 2, sched.RegisteredCrawlers())

	task, err := client.Task(ctx, "cnn")
	require.NoError(t, err)
	assert.Equal(t, "CNN", task.SourceName)
	assert.Equal(t, 60, task.IntervalMinutes)
}

func TestExtractEndpoints(t *testing.T) {
	ctx := context.Background()
	site := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/empty" {
			io.WriteString(w, "<html><body></body></html>")
			return
		}
		io.WriteString(w, `<html><head><meta name="author" content="Jane Doe"></head>
			<body><article><h1>Rates held steady</h1><p>The bank kept rates unchanged.</p></article></body></html>`)
	}))
	defer site.Close()

	client, _, _ := testServer(t, seedStore(), scheduler.Config{})

	t.Run("extracts an article", func(tt *testing.T) {
		resp, err := client.Extract(ctx, schedulerapi.ExtractRequest{URL: site.URL + "/story"})
		require.NoError(tt, err)
		assert.Equal(tt, schedulerapi.StatusSuccess, resp.Status)
		require.NotNil(tt, resp.Data)
		assert.Equal(tt, "Rates held steady", resp.Data.Title)
		assert.Equal(tt, []string{"The bank kept rates unchanged."}, resp.Data.Texts)
		assert.Equal(tt, extractor.GenericPlatform, resp.Platform)
		assert.True(tt, strings.HasPrefix(resp.Markdown, "# Rates held steady"))
		assert.Equal(tt, testNow.Format(time.RFC3339), resp.ExtractedAt)
	})

	t.Run("pages without content fail extraction", func(tt *testing.T) {
		_, err := client.Extract(ctx, schedulerapi.ExtractRequest{URL: site.URL + "/empty"})
		assert.Equal(tt, http.StatusBadRequest, statusCode(tt, err))
		assert.Contains(tt, err.Error(), "EXTRACTION_FAILED")
	})

	t.Run("invalid urls fail extraction", func(tt *testing.T) {
		_, err := client.Extract(ctx, schedulerapi.ExtractRequest{URL: "ftp://example.com/story"})
		assert.Equal(tt, http.StatusBadRequest, statusCode(tt, err))
	})

	t.Run("lists platforms", func(tt *testing.T) {
		resp, err := client.Platforms(ctx)
		require.NoError(tt, err)
		assert.Equal(tt, schedulerapi.StatusSuccess, resp.Status)
		assert.Equal(tt, extractor.Platforms(), resp.Platforms)
	})

	t.Run("health", func(tt *testing.T) {
		resp, err := client.Health(ctx)
		require.NoError(tt, err)
		assert.Equal(tt, "healthy", resp.Status)
	})
}

func TestRouter(t *testing.T) {
	_, _, baseURL := testServer(t, seedStore(), scheduler.Config{})

	cases := []struct {
		method string
		path   string
		status int
	}{
		{http.MethodGet, "/", http.StatusOK},
		{http.MethodGet, "/metrics", http.StatusOK},
		{http.MethodGet, "/api/unknown", http.StatusNotFound},
		{http.MethodDelete, "/api/tasks/bbc", http.StatusMethodNotAllowed},
		{http.MethodGet, "/api/scheduler/start", http.StatusMethodNotAllowed},
		{http.MethodGet, "/api/tasks?enabled=maybe", http.StatusUnprocessableEntity},
		{http.MethodGet, "/api/history?limit=0", http.StatusUnprocessableEntity},
		{http.MethodPost, "/api/init?interval_minutes=abc", http.StatusUnprocessableEntity},
	}
	for _, c := range cases {
		t.Run(c.method+" "+c.path, func(tt *testing.T) {
			req, err := http.NewRequest(c.method, baseURL+c.path, nil)
			require.NoError(tt, err)
			resp, err := http.DefaultClient.Do(req)
			require.NoError(tt, err)
			resp.Body.Close()
			assert.Equal(tt, c.status, resp.StatusCode)
		})
	}
}

func TestCORS(t *testing.T) {
	_, _, baseURL := testServer(t, seedStore(), scheduler.Config{})
	const origin = "http://localhost:3000"

	t.Run("answers preflight requests", func(tt *testing.T) {
		req, err := http.NewRequest(http.MethodOptions, baseURL+"/api/tasks/bbc", nil)
		require.NoError(tt, err)
		req.Header.Set("Origin", origin)
		req.Header.Set("Access-Control-Request-Method", http.MethodPatch)
		req.Header.Set("Access-Control-Request-Headers", "Content-Type")
		resp, err := http.DefaultClient.Do(req)
		require.NoError(tt, err)
		resp.Body.Close()

		assert.Equal(tt, http.StatusNoContent, resp.StatusCode)
		assert.Contains(tt, []string{"*", origin}, resp.Header.Get("Access-Control-Allow-Origin"))
		assert.Contains(tt, resp.Header.Get("Access-Control-Allow-Methods"), http.MethodPatch)
	})

	t.Run("adds headers to regular responses", func(tt *testing.T) {
		req, err := http.NewRequest(http.MethodGet, baseURL+"/api/scheduler/status", nil)
		require.NoError(tt, err)
		req.Header.Set("Origin", origin)
		resp, err := http.DefaultClient.Do(req)
		require.NoError(tt, err)
		resp.Body.Close()

		assert.Equal(tt, http.StatusOK, resp.StatusCode)
		assert.Contains(tt, []string{"*", origin}, resp.Header.Get("Access-Control-Allow-Origin"))
	})

	t.Run("plain options without preflight headers is not routed", func(tt *testing.T) {
		req, err := http.NewRequest(http.MethodOptions, baseURL+"/api/tasks/bbc", nil)
		require.NoError(tt, err)
		resp, err := http.DefaultClient.Do(req)
		require.NoError(tt, err)
		resp.Body.Close()
		assert.Equal(tt, http.StatusMethodNotAllowed, resp.StatusCode)
	})
}
