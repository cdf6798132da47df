package newscrawler

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"unicode/utf8"

	"golang.org/x/net/html"
)

// minHeadlineLength is the shortest anchor text treated as an article
// headline when a source has no link pattern.
const minHeadlineLength = 15

// link is an anchor found on a list page.
type link struct {
	URL   string
	Title string
}

// getRequest returns an *http.Response for a given url.
func (c *Crawler) getRequest(ctx context.Context, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", userAgent)
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("received status %d %s when crawling %s", resp.StatusCode, http.StatusText(resp.StatusCode), url)
	}
	return resp, nil
}

// findRawLinks uses an html parser to find links and their anchor text.
func findRawLinks(body io.Reader) []link {
	var (
		links   []link
		current *link
		text    strings.Builder
	)
	tokenizer := html.NewTokenizer(body)
	for {
		switch tokenizer.Next() {
		case html.ErrorToken:
			return links
		case html.StartTagToken:
			token := tokenizer.Token()
			if token.Data != "a" {
				continue
			}
			// an unclosed anchor ends at the next one
			if current != nil {
				current.Title = collapse(text.String())
				links = append(links, *current)
			}
			current = &link{}
			text.Reset()
			for _, a := range token.Attr {
				if a.Key == "href" {
					current.URL = a.Val
					break
				}
			}
		case html.TextToken:
			if current != nil {
				text.Write(tokenizer.Text())
			}
		case html.EndTagToken:
			name, _ := tokenizer.TagName()
			if string(name) == "a" && current != nil {
				current.Title = collapse(text.String())
				links = append(links, *current)
				current = nil
			}
		}
	}
}

// filterLinks resolves links against the list page, strips fragments and
// keeps unique http(s) links on the list page's host that look like
// articles: they match pattern when one is given, otherwise their anchor text
// is long enough to be a headline.
func filterLinks(links []link, refURL string, pattern *regexp.Regexp) ([]link, error) {
	var out []link
	ref, err := url.Parse(refURL)
	if err != nil {
		return out, err
	}
	ref.Fragment = ""

	seen := map[string]bool{ref.String(): true}
	for _, l := range links {
		if l.URL == "" {
			continue
		}
		u, err := ref.Parse(strings.TrimSpace(l.URL))
		if err != nil {
			continue
		}
		u.Fragment = ""
		// ignore urls that don't have http or https protocol set
		// (ex: mailto or javascript links)
		if u.Scheme != "http" && u.Scheme != "https" {
			continue
		}
		if !sameSite(u.Hostname(), ref.Hostname()) {
			continue
		}
		s := u.String()
		if seen[s] {
			continue
		}
		if pattern != nil {
			if !pattern.MatchString(s) {
				continue
			}
		} else if utf8.RuneCountInString(l.Title) < minHeadlineLength {
			continue
		}
		seen[s] = true
		out = append(out, link{URL: s, Title: l.Title})
	}
	return out, nil
}

// sameSite treats www.example.com and example.com as the same host.
func sameSite(a, b string) bool {
	return strings.TrimPrefix(a, "www.") == strings.TrimPrefix(b, "www.")
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
