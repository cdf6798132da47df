// Package newscrawler crawls a news source's list page and extracts the
// articles it links to.
package newscrawler

import (
	"context"
	"fmt"
	"net/http"
	"regexp"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/emilyzhang/newscrawlr/extractor"
	"github.com/emilyzhang/newscrawlr/schedulerapi"
)

const userAgent = "newscrawlr/1.0 (+https://github.com/emilyzhang/newscrawlr)"

// DefaultLimit caps the number of articles taken from one list page.
const DefaultLimit = 20

// Crawler crawls a single source. It is safe for concurrent use.
type Crawler struct {
	client      *http.Client
	extractor   *extractor.Extractor
	linkPattern *regexp.Regexp
	limit       int
	maxWorkers  int
	logger      *zap.Logger
}

// Config configures a Crawler.
type Config struct {
	// LinkPattern, when set, selects article links by URL instead of by
	// headline length.
	LinkPattern string
	Limit       int
	MaxWorkers  int
	HTTPClient  *http.Client
	Logger      *zap.Logger
}

// New creates a new Crawler.
func New(cfg Config) (*Crawler, error) {
	c := &Crawler{
		client:     cfg.HTTPClient,
		limit:      cfg.Limit,
		maxWorkers: cfg.MaxWorkers,
		logger:     cfg.Logger,
	}
	if c.client == nil {
		c.client = &http.Client{Timeout: 2 * time.Minute}
	}
	if c.limit <= 0 {
		c.limit = DefaultLimit
	}
	if c.maxWorkers <= 0 {
		c.maxWorkers = 4
	}
	if c.logger == nil {
		c.logger = zap.NewNop()
	}
	if cfg.LinkPattern != "" {
		re, err := regexp.Compile(cfg.LinkPattern)
		if err != nil {
			return nil, fmt.Errorf("invalid link pattern %q: %w", cfg.LinkPattern, err)
		}
		c.linkPattern = re
	}
	c.extractor = extractor.New(c.client)
	return c, nil
}

// Run fetches listURL, picks up to the configured limit of article links and
// extracts each of them. Articles that fail to extract are returned with the
// headline from the list page only.
func (c *Crawler) Run(ctx context.Context, listURL string) ([]*schedulerapi.NewsItem, error) {
	links, err := c.articleLinks(ctx, listURL)
	if err != nil {
		return nil, err
	}

	items := make([]*schedulerapi.NewsItem, len(links))
	jobs := make(chan int)
	wg := &sync.WaitGroup{}
	workers := c.maxWorkers
	if workers > len(links) {
		workers = len(links)
	}
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				items[i] = c.extract(ctx, links[i])
			}
		}()
	}
	for i := range links {
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	return items, ctx.Err()
}

// articleLinks returns the article links found on listURL.
func (c *Crawler) articleLinks(ctx context.Context, listURL string) ([]link, error) {
	resp, err := c.getRequest(ctx, listURL)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	links, err := filterLinks(findRawLinks(resp.Body), listURL, c.linkPattern)
	if err != nil {
		return nil, err
	}
	if len(links) > c.limit {
		links = links[:c.limit]
	}
	c.logger.Debug("found article links", zap.String("url", listURL), zap.Int("count", len(links)))
	return links, nil
}

func (c *Crawler) extract(ctx context.Context, l link) *schedulerapi.NewsItem {
	item, _, err := c.extractor.Extract(ctx, l.URL, "", "")
	if err != nil {
		c.logger.Warn("article extraction failed, keeping headline",
			zap.String("url", l.URL), zap.Error(err))
		return &schedulerapi.NewsItem{
			Title:   l.Title,
			NewsURL: l.URL,
			NewsID:  extractor.NewsID(l.URL),
		}
	}
	if item.Title == "" {
		item.Title = l.Title
	}
	return item
}
