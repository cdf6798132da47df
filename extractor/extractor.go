// Package extractor turns a single news article page into a NewsItem.
package extractor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/google/uuid"

	"github.com/emilyzhang/newscrawlr/schedulerapi"
)

const userAgent = "newscrawlr/1.0 (+https://github.com/emilyzhang/newscrawlr)"

var (
	// ErrNoContent is returned when a page has neither a title nor body text.
	ErrNoContent  = errors.New("no article content found")
	ErrInvalidURL = errors.New("invalid article url")
	ErrBadStatus  = errors.New("unexpected response status")
)

// IsExtractionError reports whether err was caused by the article itself
// rather than by the network or the extractor.
func IsExtractionError(err error) bool {
	return errors.Is(err, ErrNoContent) || errors.Is(err, ErrInvalidURL) || errors.Is(err, ErrBadStatus)
}

// Extractor downloads and parses article pages.
type Extractor struct {
	client *http.Client
}

// New creates a new Extractor.
func New(client *http.Client) *Extractor {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &Extractor{client: client}
}

// NewsID returns a stable id for an article URL.
func NewsID(articleURL string) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(articleURL)).String()
}

// Extract downloads rawURL and extracts the article on it. An empty platform
// is detected from the URL. It returns the item and the platform used.
func (e *Extractor) Extract(ctx context.Context, rawURL, platform, cookie string) (*schedulerapi.NewsItem, string, error) {
	u, err := url.Parse(rawURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, "", fmt.Errorf("%w %q", ErrInvalidURL, rawURL)
	}
	if platform == "" {
		platform = DetectPlatform(rawURL)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, platform, err
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")
	if cookie != "" {
		req.Header.Set("Cookie", cookie)
	}

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, platform, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, platform, fmt.Errorf("%w %d %s for %s", ErrBadStatus, resp.StatusCode, http.StatusText(resp.StatusCode), rawURL)
	}

	item, err := Parse(resp.Body, u)
	if err != nil {
		return nil, platform, err
	}
	return item, platform, nil
}

// Parse extracts an article from an HTML document located at base.
func Parse(r io.Reader, base *url.URL) (*schedulerapi.NewsItem, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("unable to parse html: %w", err)
	}

	item := &schedulerapi.NewsItem{
		Title:    title(doc),
		NewsURL:  base.String(),
		NewsID:   NewsID(base.String()),
		Contents: []schedulerapi.ContentItem{},
		Texts:    []string{},
		Images:   []string{},
		Videos:   []string{},
	}
	item.MetaInfo = schedulerapi.NewsMetaInfo{
		AuthorName:  author(doc),
		AuthorURL:   resolve(base, attr(doc.Find(`a[rel="author"]`), "href")),
		PublishTime: publishTime(doc),
	}

	doc.Find("script, style, noscript, nav, header, footer, aside, form, iframe").Remove()
	root := doc.Find("article").First()
	if root.Length() == 0 {
		root = doc.Find("main").First()
	}
	if root.Length() == 0 {
		root = doc.Find("body")
	}

	seen := map[string]bool{}
	root.Find("p, h2, h3, img, video").Each(func(_ int, s *goquery.Selection) {
		switch goquery.NodeName(s) {
		case "img":
			src := resolve(base, firstNonEmpty(attr(s, "src"), attr(s, "data-src")))
			if src == "" || seen[src] {
				return
			}
			seen[src] = true
			item.Images = append(item.Images, src)
			item.Contents = append(item.Contents, schedulerapi.ContentItem{
				Type: schedulerapi.ContentImage, Content: src, Desc: strings.TrimSpace(attr(s, "alt")),
			})
		case "video":
			src := resolve(base, firstNonEmpty(attr(s, "src"), attr(s.Find("source"), "src")))
			if src == "" || seen[src] {
				return
			}
			seen[src] = true
			item.Videos = append(item.Videos, src)
			item.Contents = append(item.Contents, schedulerapi.ContentItem{
				Type: schedulerapi.ContentVideo, Content: src,
			})
		default:
			text := collapse(s.Text())
			if text == "" {
				return
			}
			item.Texts = append(item.Texts, text)
			item.Contents = append(item.Contents, schedulerapi.ContentItem{
				Type: schedulerapi.ContentText, Content: text,
			})
		}
	})

	if item.Title == "" && len(item.Texts) == 0 {
		return nil, ErrNoContent
	}
	return item, nil
}

func title(doc *goquery.Document) string {
	return firstNonEmpty(
		attr(doc.Find(`meta[property="og:title"]`), "content"),
		collapse(doc.Find("h1").First().Text()),
		collapse(doc.Find("title").First().Text()),
	)
}

func author(doc *goquery.Document) string {
	return firstNonEmpty(
		attr(doc.Find(`meta[name="author"]`), "content"),
		attr(doc.Find(`meta[property="article:author"]`), "content"),
		collapse(doc.Find(`a[rel="author"]`).First().Text()),
	)
}

func publishTime(doc *goquery.Document) string {
	return firstNonEmpty(
		attr(doc.Find(`meta[property="article:published_time"]`), "content"),
		attr(doc.Find(`meta[name="pubdate"]`), "content"),
		attr(doc.Find("time[datetime]"), "datetime"),
	)
}

func attr(s *goquery.Selection, name string) string {
	v, _ := s.First().Attr(name)
	return strings.TrimSpace(v)
}

// resolve makes ref absolute against base. Non-http(s) results are dropped.
func resolve(base *url.URL, ref string) string {
	if ref == "" {
		return ""
	}
	u, err := base.Parse(ref)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		return ""
	}
	return u.String()
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// ParseTime parses the publish time formats found in article metadata.
// It returns nil when the value can't be parsed.
func ParseTime(value string) *time.Time {
	if value == "" {
		return nil
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02 15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, value); err == nil {
			return &t
		}
	}
	return nil
}
