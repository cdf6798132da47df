package newscrawler

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/emilyzhang/newscrawlr/extractor"
)

func newsSite(t *testing.T, articles int) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/news", func(w http.ResponseWriter, r *http.Request) {
		var b strings.Builder
		b.WriteString("<body>")
		for i := 0; i < articles; i++ {
			fmt.Fprintf(&b, `<a href="/story/%d">Headline number %d about the news</a>`, i, i)
		}
		b.WriteString(`<a href="/story/broken">This story is always broken somehow</a>`)
		b.WriteString("</body>")
		io.WriteString(w, b.String())
	})
	mux.HandleFunc("/story/", func(w http.ResponseWriter, r *http.Request) {
		if strings.HasSuffix(r.URL.Path, "broken") {
			http.Error(w, "boom", http.StatusInternalServerError)
			return
		}
		fmt.Fprintf(w, `<html><head><meta name="author" content="Reporter"></head>
			<body><article><h1>Full title %s</h1><p>Body of %s.</p></article></body></html>`, r.URL.Path, r.URL.Path)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestRun(t *testing.T) {
	ctx := context.Background()

	t.Run("extracts every article link in page order", func(tt *testing.T) {
		srv := newsSite(tt, 3)
		c, err := New(Config{HTTPClient: srv.Client(), MaxWorkers: 2})
		require.NoError(tt, err)

		items, err := c.Run(ctx, srv.URL+"/news")
		require.NoError(tt, err)
		require.Len(tt, items, 4)

		assert.Equal(tt, "Full title /story/0", items[0].Title)
		assert.Equal(tt, "Reporter", items[0].MetaInfo.AuthorName)
		assert.Equal(tt, []string{"Body of /story/0."}, items[0].Texts)
		assert.Equal(tt, extractor.NewsID(srv.URL+"/story/0"), items[0].NewsID)

		// failed extraction keeps the list-page headline
		assert.Equal(tt, "This story is always broken somehow", items[3].Title)
		assert.Equal(tt, srv.URL+"/story/broken", items[3].NewsURL)
		assert.Empty(tt, items[3].Texts)
	})

	t.Run("caps the number of articles", func(tt *testing.T) {
		srv := newsSite(tt, 10)
		c, err := New(Config{HTTPClient: srv.Client(), Limit: 5})
		require.NoError(tt, err)

		items, err := c.Run(ctx, srv.URL+"/news")
		require.NoError(tt, err)
		assert.Len(tt, items, 5)
	})

	t.Run("list page failure is returned", func(tt *testing.T) {
		srv := newsSite(tt, 1)
		c, err := New(Config{HTTPClient: srv.Client()})
		require.NoError(tt, err)

		_, err = c.Run(ctx, srv.URL+"/missing")
		assert.Error(tt, err)
	})

	t.Run("invalid link pattern is rejected", func(tt *testing.T) {
		_, err := New(Config{LinkPattern: "("})
		assert.Error(tt, err)
	})
}
