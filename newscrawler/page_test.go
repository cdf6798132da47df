package newscrawler

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const listPage = `<body>
<a href="index.html">home</a>
<a href="/world/2024/storm-hits-the-northern-coast#comments">Storm hits the <b>northern</b> coast</a>
<a href="http://support.com/help">Support and frequently asked questions</a>
<a href="mailto:desk@example.com">Email the news desk directly today</a>
<a href="https://www.example.com/business/markets-rally-after-rate-decision">Markets rally after rate decision</a>
<a href="/world/2024/storm-hits-the-northern-coast">Storm hits the northern coast</a>
<a href="/short">Short</a>
</body>`

func TestURLParsing(t *testing.T) {
	t.Run("successfully finds all raw links with anchor text", func(tt *testing.T) {
		links := findRawLinks(strings.NewReader(listPage))
		assert.Len(tt, links, 7)
		assert.Equal(tt, "Storm hits the northern coast", links[1].Title)
		assert.Equal(tt, "index.html", links[0].URL)
	})

	t.Run("unclosed anchors end at the next anchor", func(tt *testing.T) {
		links := findRawLinks(strings.NewReader(`<a href="/a">first<a href="/b">second</a>`))
		require.Len(tt, links, 2)
		assert.Equal(tt, "first", links[0].Title)
		assert.Equal(tt, "second", links[1].Title)
	})

	t.Run("keeps same-site headlines, stripping fragments and duplicates", func(tt *testing.T) {
		links, err := filterLinks(findRawLinks(strings.NewReader(listPage)), "http://example.com/news", nil)
		assert.NoError(tt, err)
		require.Len(tt, links, 2)
		// parses relative urls correctly and strips the fragment
		assert.Equal(tt, "http://example.com/world/2024/storm-hits-the-northern-coast", links[0].URL)
		// www. prefix counts as the same site
		assert.Equal(tt, "https://www.example.com/business/markets-rally-after-rate-decision", links[1].URL)
	})

	t.Run("link pattern replaces the headline heuristic", func(tt *testing.T) {
		links, err := filterLinks(findRawLinks(strings.NewReader(listPage)), "http://example.com/news",
			regexp.MustCompile(`/(short|business/)`))
		assert.NoError(tt, err)
		require.Len(tt, links, 2)
		assert.Equal(tt, "https://www.example.com/business/markets-rally-after-rate-decision", links[0].URL)
		assert.Equal(tt, "http://example.com/short", links[1].URL)
	})

	t.Run("non-200 list page is an error", func(tt *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		}))
		defer srv.Close()
		c, err := New(Config{HTTPClient: srv.Client()})
		require.NoError(tt, err)
		_, err = c.getRequest(context.Background(), srv.URL)
		assert.Error(tt, err)
	})

	t.Run("successfully retrieves http response from url", func(tt *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(tt, userAgent, r.Header.Get("User-Agent"))
			io.WriteString(w, "<body></body>")
		}))
		defer srv.Close()
		c, err := New(Config{HTTPClient: srv.Client()})
		require.NoError(tt, err)
		resp, err := c.getRequest(context.Background(), srv.URL)
		require.NoError(tt, err)
		resp.Body.Close()
	})
}
