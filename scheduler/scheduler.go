// Package scheduler runs crawl tasks for news sources on their configured
// intervals and records the outcome of every run.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/emilyzhang/newscrawlr/crawlerdb"
	"github.com/emilyzhang/newscrawlr/extractor"
	"github.com/emilyzhang/newscrawlr/newscrawler"
	"github.com/emilyzhang/newscrawlr/schedulerapi"
)

var (
	ErrAlreadyRunning = errors.New("scheduler is already running")
	ErrNotRunning     = errors.New("scheduler is not running")
	ErrNoCrawler      = errors.New("no crawler registered for source")
	ErrTaskRunning    = errors.New("task is already running")
)

const (
	// DefaultSchedule is how often due tasks are checked for.
	DefaultSchedule   = "@every 1m"
	DefaultMaxWorkers = 4
	// DefaultInterval is used for tasks without a positive interval.
	DefaultInterval = 60

	recentHistoryLimit = 100
	summaryLength      = 200
)

// Store is the persistence the scheduler needs.
type Store interface {
	CreateTask(ctx context.Context, t *crawlerdb.Task) (int, error)
	GetTask(ctx context.Context, sourceID string) (*crawlerdb.Task, error)
	ListTasks(ctx context.Context, f crawlerdb.TaskFilter) ([]*crawlerdb.Task, error)
	ListEnabledTasks(ctx context.Context) ([]*crawlerdb.Task, error)
	UpdateCrawlTimes(ctx context.Context, sourceID string, last, next time.Time) error
	CountryStats(ctx context.Context) ([]crawlerdb.CountryStats, error)
	CreateHistory(ctx context.Context, h *crawlerdb.History) (int, error)
	RecentHistory(ctx context.Context, limit int) ([]*crawlerdb.History, error)
	CreateArticle(ctx context.Context, a *crawlerdb.Article) (bool, error)
}

// Crawler fetches the articles currently listed on a source page.
type Crawler interface {
	Run(ctx context.Context, listURL string) ([]*schedulerapi.NewsItem, error)
}

// CrawlerFactory builds the crawler for a configured source.
type CrawlerFactory func(Source) (Crawler, error)

// Config configures a Scheduler. Zero values get defaults.
type Config struct {
	SourcesPath string
	Schedule    string
	MaxWorkers  int
	Logger      *zap.Logger
	NewCrawler  CrawlerFactory
	Now         func() time.Time
}

// Scheduler periodically runs every enabled task that is due.
type Scheduler struct {
	store       Store
	sourcesPath string
	schedule    string
	maxWorkers  int
	logger      *zap.Logger
	newCrawler  CrawlerFactory
	now         func() time.Time

	mu         sync.Mutex
	crawlers   map[string]Crawler
	inFlight   map[string]bool
	running    bool
	cron       *cron.Cron
	loopCancel context.CancelFunc

	// ctx outlives Start/Stop cycles and bounds manual runs.
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates a new Scheduler.
func New(store Store, cfg Config) *Scheduler {
	s := &Scheduler{
		store:       store,
		sourcesPath: cfg.SourcesPath,
		schedule:    cfg.Schedule,
		maxWorkers:  cfg.MaxWorkers,
		logger:      cfg.Logger,
		newCrawler:  cfg.NewCrawler,
		now:         cfg.Now,
		crawlers:    make(map[string]Crawler),
		inFlight:    make(map[string]bool),
	}
	if s.schedule == "" {
		s.schedule = DefaultSchedule
	}
	if s.maxWorkers <= 0 {
		s.maxWorkers = DefaultMaxWorkers
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	if s.newCrawler == nil {
		s.newCrawler = genericCrawler(s.logger)
	}
	if s.now == nil {
		s.now = time.Now
	}
	s.ctx, s.cancel = context.WithCancel(context.Background())
	return s
}

// genericCrawler builds a list-page crawler for any source.
func genericCrawler(logger *zap.Logger) CrawlerFactory {
	return func(src Source) (Crawler, error) {
		c, err := newscrawler.New(newscrawler.Config{
			LinkPattern: src.LinkPattern,
			Logger:      logger.With(zap.String("source_id", src.ID)),
		})
		if err != nil {
			return nil, err
		}
		return c, nil
	}
}

// RegisterCrawler registers the crawler used for a source.
func (s *Scheduler) RegisterCrawler(sourceID string, c Crawler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.crawlers[sourceID] = c
}

// RegisterSources builds and registers a crawler for each source. Sources
// whose crawler can't be built are skipped and reported in the error.
func (s *Scheduler) RegisterSources(sources []Source) error {
	var errs []error
	for _, src := range sources {
		c, err := s.newCrawler(src)
		if err != nil {
			errs = append(errs, fmt.Errorf("source %s: %w", src.ID, err))
			continue
		}
		s.RegisterCrawler(src.ID, c)
	}
	return errors.Join(errs...)
}

// LoadSources reads the configured sources file and registers its sources.
func (s *Scheduler) LoadSources() ([]Source, error) {
	sources, err := LoadSources(s.sourcesPath)
	if err != nil {
		return nil, err
	}
	return sources, s.RegisterSources(sources)
}

// RegisteredCrawlers returns the number of registered crawlers.
func (s *Scheduler) RegisteredCrawlers() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.crawlers)
}

// Running reports whether the scheduler loop is running.
func (s *Scheduler) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// Start starts the scheduler loop. Due tasks are checked immediately and
// then on every tick of the schedule.
func (s *Scheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return ErrAlreadyRunning
	}

	loopCtx, cancel := context.WithCancel(s.ctx)
	cronLogger := cron.PrintfLogger(zap.NewStdLog(s.logger))
	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cronLogger), cron.Recover(cronLogger)))
	if _, err := c.AddFunc(s.schedule, func() { s.tick(loopCtx) }); err != nil {
		cancel()
		return fmt.Errorf("invalid schedule %q: %w", s.schedule, err)
	}
	c.Start()

	s.cron = c
	s.loopCancel = cancel
	s.running = true
	schedulerRunning.Set(1)
	s.logger.Info("scheduler started", zap.String("schedule", s.schedule))

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.tick(loopCtx)
	}()
	return nil
}

// Stop stops the scheduler loop and cancels the crawls it started. Manual
// runs keep going.
func (s *Scheduler) Stop() error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return ErrNotRunning
	}
	c, cancel := s.cron, s.loopCancel
	s.running = false
	s.cron = nil
	s.loopCancel = nil
	s.mu.Unlock()

	cancel()
	<-c.Stop().Done()
	schedulerRunning.Set(0)
	s.logger.Info("scheduler stopped")
	return nil
}

// Close stops the loop and waits for every crawl to finish.
func (s *Scheduler) Close() {
	if err := s.Stop(); err != nil && !errors.Is(err, ErrNotRunning) {
		s.logger.Error("unable to stop scheduler", zap.Error(err))
	}
	s.cancel()
	s.wg.Wait()
}

func (s *Scheduler) tick(ctx context.Context) {
	if err := s.CheckAndExecute(ctx); err != nil && ctx.Err() == nil {
		s.logger.Error("unable to check tasks", zap.Error(err))
	}
}

// CheckAndExecute runs every enabled task that is due, at most maxWorkers at
// a time, and waits for them. Tasks that are already running are skipped.
func (s *Scheduler) CheckAndExecute(ctx context.Context) error {
	tasks, err := s.store.ListEnabledTasks(ctx)
	if err != nil {
		return err
	}

	now := s.now()
	sem := make(chan struct{}, s.maxWorkers)
	wg := &sync.WaitGroup{}
	for _, t := range tasks {
		if !t.Due(now) {
			continue
		}
		if ctx.Err() != nil {
			break
		}
		if !s.acquire(t.SourceID) {
			continue
		}
		sem <- struct{}{}
		wg.Add(1)
		go func(t *crawlerdb.Task) {
			defer wg.Done()
			defer func() { <-sem }()
			defer s.release(t.SourceID)
			s.ExecuteTask(ctx, t)
		}(t)
	}
	wg.Wait()
	return nil
}

// RunTask starts a crawl of a source in the background.
func (s *Scheduler) RunTask(ctx context.Context, sourceID string) error {
	t, err := s.store.GetTask(ctx, sourceID)
	if err != nil {
		return err
	}
	if !s.acquire(sourceID) {
		return ErrTaskRunning
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer s.release(sourceID)
		s.ExecuteTask(s.ctx, t)
	}()
	return nil
}

// ExecuteSource crawls a source and waits for the crawl to finish.
func (s *Scheduler) ExecuteSource(ctx context.Context, sourceID string) error {
	t, err := s.store.GetTask(ctx, sourceID)
	if err != nil {
		return err
	}
	if !s.acquire(sourceID) {
		return ErrTaskRunning
	}
	defer s.release(sourceID)
	return s.ExecuteTask(ctx, t)
}

func (s *Scheduler) acquire(sourceID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.inFlight[sourceID] {
		return false
	}
	s.inFlight[sourceID] = true
	return true
}

func (s *Scheduler) release(sourceID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.inFlight, sourceID)
}

func (s *Scheduler) crawler(sourceID string) Crawler {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.crawlers[sourceID]
}

// ExecuteTask crawls a single task, stores new articles, moves the task's
// crawl times forward and records the attempt in the history. The returned
// error is the crawl failure, if any; bookkeeping failures are logged.
func (s *Scheduler) ExecuteTask(ctx context.Context, t *crawlerdb.Task) error {
	start := s.now()
	logger := s.logger.With(zap.String("source_id", t.SourceID), zap.String("url", t.URL))
	logger.Info("executing task")

	var (
		created  int
		crawlErr error
	)
	if c := s.crawler(t.SourceID); c == nil {
		crawlErr = ErrNoCrawler
	} else if items, err := c.Run(ctx, t.URL); err != nil {
		crawlErr = fmt.Errorf("crawl failed: %w", err)
	} else {
		created = s.storeArticles(ctx, t, items, logger)
	}

	end := s.now()
	duration := end.Sub(start)
	interval := t.IntervalMinutes
	if interval <= 0 {
		interval = DefaultInterval
	}
	next := end.Add(time.Duration(interval) * time.Minute)
	t.LastCrawlTime = &end
	t.NextCrawlTime = &next

	h := &crawlerdb.History{
		TaskID:          t.ID,
		SourceID:        t.SourceID,
		URL:             t.URL,
		Status:          crawlerdb.StatusSuccess,
		ArticlesCount:   created,
		CrawlTime:       end,
		DurationSeconds: duration.Seconds(),
	}
	if crawlErr != nil {
		msg := crawlErr.Error()
		h.Status = crawlerdb.StatusFailed
		h.ErrorMessage = &msg
	}

	// bookkeeping must survive a cancelled crawl
	wctx := context.WithoutCancel(ctx)
	if err := s.store.UpdateCrawlTimes(wctx, t.SourceID, end, next); err != nil {
		logger.Error("unable to update task", zap.Error(err))
	}
	if _, err := s.store.CreateHistory(wctx, h); err != nil {
		logger.Error("unable to record history", zap.Error(err))
	}

	crawlsTotal.WithLabelValues(h.Status).Inc()
	crawlDuration.Observe(duration.Seconds())
	articlesStored.Add(float64(created))

	if crawlErr != nil {
		logger.Warn("task failed", zap.Duration("duration", duration), zap.Error(crawlErr))
		return crawlErr
	}
	logger.Info("task completed", zap.Int("new_articles", created), zap.Duration("duration", duration))
	return nil
}

// storeArticles stores the crawled items and returns how many were new.
func (s *Scheduler) storeArticles(ctx context.Context, t *crawlerdb.Task, items []*schedulerapi.NewsItem, logger *zap.Logger) int {
	created := 0
	for _, item := range items {
		if item == nil || item.NewsURL == "" {
			continue
		}
		ok, err := s.store.CreateArticle(ctx, toArticle(t.SourceID, item))
		if err != nil {
			logger.Warn("unable to store article", zap.String("article_url", item.NewsURL), zap.Error(err))
			continue
		}
		if ok {
			created++
		}
	}
	return created
}

func toArticle(sourceID string, item *schedulerapi.NewsItem) *crawlerdb.Article {
	id := item.NewsID
	if id == "" {
		id = extractor.NewsID(item.NewsURL)
	}
	a := &crawlerdb.Article{
		SourceID:    sourceID,
		ArticleID:   id,
		Title:       item.Title,
		URL:         item.NewsURL,
		Author:      optional(item.MetaInfo.AuthorName),
		PublishTime: extractor.ParseTime(item.MetaInfo.PublishTime),
		Content:     strings.Join(item.Texts, "\n"),
		Tags:        crawlerdb.StringList(nil),
		Images:      crawlerdb.StringList(item.Images),
		Videos:      crawlerdb.StringList(item.Videos),
	}
	if len(item.Texts) > 0 {
		a.Summary = optional(truncate(item.Texts[0], summaryLength))
	}
	return a
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return string(r[:n]) + "…"
}

// InitTasks creates a task for every enabled source in the sources file that
// doesn't have one yet, registers crawlers for all sources, and returns the
// total number of tasks.
func (s *Scheduler) InitTasks(ctx context.Context, intervalMinutes int) (int, error) {
	if intervalMinutes <= 0 {
		intervalMinutes = DefaultInterval
	}
	sources, err := LoadSources(s.sourcesPath)
	if err != nil {
		return 0, err
	}

	now := s.now()
	for _, src := range sources {
		if !src.IsEnabled() {
			continue
		}
		_, err := s.store.GetTask(ctx, src.ID)
		if err == nil {
			continue
		}
		if !errors.Is(err, crawlerdb.ErrDoesNotExist) {
			return 0, err
		}
		next := now
		id, err := s.store.CreateTask(ctx, &crawlerdb.Task{
			SourceID:        src.ID,
			SourceName:      src.Name,
			URL:             src.URL,
			Country:         src.Country,
			Enabled:         true,
			IntervalMinutes: intervalMinutes,
			NextCrawlTime:   &next,
		})
		if err != nil {
			return 0, err
		}
		s.logger.Info("created task", zap.String("source_id", src.ID), zap.Int("task_id", id))
	}

	if err := s.RegisterSources(sources); err != nil {
		s.logger.Warn("some crawlers could not be registered", zap.Error(err))
	}

	tasks, err := s.store.ListTasks(ctx, crawlerdb.TaskFilter{})
	if err != nil {
		return 0, err
	}
	return len(tasks), nil
}

// Stats returns task counts and the outcome of the most recent crawls.
func (s *Scheduler) Stats(ctx context.Context) (*schedulerapi.Stats, error) {
	countries, err := s.store.CountryStats(ctx)
	if err != nil {
		return nil, err
	}
	history, err := s.store.RecentHistory(ctx, recentHistoryLimit)
	if err != nil {
		return nil, err
	}

	stats := &schedulerapi.Stats{
		Countries:     len(countries),
		CountriesList: make([]schedulerapi.CountryStats, 0, len(countries)),
	}
	for _, c := range countries {
		stats.TotalTasks += c.TotalTasks
		stats.EnabledTasks += c.EnabledTasks
		stats.DisabledTasks += c.DisabledTasks
		stats.CountriesList = append(stats.CountriesList, schedulerapi.CountryStats(c))
	}
	for _, h := range history {
		switch h.Status {
		case crawlerdb.StatusSuccess:
			stats.RecentSuccess++
		case crawlerdb.StatusFailed:
			stats.RecentFailed++
		}
	}
	return stats, nil
}
