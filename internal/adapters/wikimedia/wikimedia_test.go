package wikimedia_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/samirrijal/data512/internal/adapters/fetch"
	"github.com/samirrijal/data512/internal/adapters/wikimedia"
)

func serve(t *testing.T, handler http.HandlerFunc) string {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return srv.URL
}

func httpClient(api string) *fetch.Client {
	return fetch.New(fetch.Options{API: api, UserAgent: "<me@example.org>, data512", Timeout: 5 * time.Second})
}

func TestEscapeTitle(t *testing.T) {
	tests := map[string]string{
		"Klinefelter syndrome":  "Klinefelter_syndrome",
		"AC/DC":                 "AC%2FDC",
		"Sjögren's syndrome":    "Sj%C3%B6gren%27s_syndrome",
		"Type 2 diabetes (T2D)": "Type_2_diabetes_%28T2D%29",
		"A&B?":                  "A%26B%3F",
	}
	for in, want := range tests {
		assert.Equal(t, want, wikimedia.EscapeTitle(in), in)
	}
}

func TestArticlePageviews(t *testing.T) {
	base := serve(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t,
			"/metrics/pageviews/per-article/en.wikipedia.org/mobile-web/user/AC%2FDC_syndrome/monthly/2015070100/2024093000",
			r.RequestURI)
		assert.Equal(t, "<me@example.org>, data512", r.Header.Get("User-Agent"))
		_, _ = w.Write([]byte(`{"items":[
			{"project":"en.wikipedia","article":"AC/DC_syndrome","granularity":"monthly","timestamp":"2015070100","access":"mobile-web","agent":"user","views":12},
			{"project":"en.wikipedia","article":"AC/DC_syndrome","granularity":"monthly","timestamp":"2015080100","access":"mobile-web","agent":"user","views":7}
		]}`))
	})

	c := wikimedia.NewPageviewsClient(httpClient("pageviews"), base+"/metrics/pageviews", wikimedia.PageviewsParams{
		Project:     "en.wikipedia.org",
		Agent:       "user",
		Granularity: "monthly",
		Start:       "2015070100",
		End:         "2024093000",
	})

	items, err := c.ArticlePageviews(context.Background(), "AC/DC syndrome", "mobile-web")
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, int64(12), items[0].Views)
	assert.Equal(t, "2015080100", items[1].Timestamp)

	// access is not carried on the items
	out, err := json.Marshal(items[0])
	require.NoError(t, err)
	assert.NotContains(t, string(out), "access")
}

func TestArticlePageviewsNotFound(t *testing.T) {
	base := serve(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	c := wikimedia.NewPageviewsClient(httpClient("pageviews"), base, wikimedia.PageviewsParams{})

	_, err := c.ArticlePageviews(context.Background(), "Nope", "desktop")
	var se *fetch.StatusError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, http.StatusNotFound, se.Code)

	_, err = c.ArticlePageviews(context.Background(), "", "desktop")
	assert.Error(t, err)
}

func TestLatestRevision(t *testing.T) {
	base := serve(t, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "query", q.Get("action"))
		assert.Equal(t, "json", q.Get("format"))
		assert.Equal(t, "info", q.Get("prop"))
		switch q.Get("titles") {
		case "Abraham Lincoln":
			_, _ = w.Write([]byte(`{"query":{"pages":{"307":{"pageid":307,"ns":0,"title":"Abraham Lincoln","lastrevid":1249372651}}}}`))
		default:
			_, _ = w.Write([]byte(`{"query":{"pages":{"-1":{"ns":0,"title":"Nobody Atall","missing":""}}}}`))
		}
	})
	c := wikimedia.NewPageInfoClient(httpClient("pageinfo"), base)

	info, err := c.LatestRevision(context.Background(), "Abraham Lincoln")
	require.NoError(t, err)
	assert.Equal(t, "Abraham Lincoln", info.Title)
	assert.Equal(t, int64(1249372651), info.RevisionID)

	_, err = c.LatestRevision(context.Background(), "Nobody Atall")
	assert.True(t, errors.Is(err, wikimedia.ErrNoRevision))
}

func TestArticleQuality(t *testing.T) {
	base := serve(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "Bearer token-123", r.Header.Get("Authorization"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "en", body["lang"])
		assert.Equal(t, true, body["features"])
		assert.EqualValues(t, 1234, body["rev_id"])

		_, _ = w.Write([]byte(`{"enwiki":{"models":{"articlequality":{"version":"0.9.2"}},
			"scores":{"1234":{"articlequality":{"score":{"prediction":"GA","probability":{"GA":0.6,"B":0.4}}}}}}}`))
	})
	c := wikimedia.NewORESClient(httpClient("ores"), base+"/models/enwiki-articlequality:predict", "en", "token-123")

	score, err := c.ArticleQuality(context.Background(), 1234)
	require.NoError(t, err)
	assert.Equal(t, int64(1234), score.RevisionID)
	assert.Equal(t, "GA", score.Prediction)
}

func TestArticleQualityMalformed(t *testing.T) {
	base := serve(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"enwiki":{"scores":{}}}`))
	})
	c := wikimedia.NewORESClient(httpClient("ores"), base, "en", "t")

	_, err := c.ArticleQuality(context.Background(), 5)
	assert.ErrorContains(t, err, "no scores")

	_, err = c.ArticleQuality(context.Background(), 0)
	assert.Error(t, err)
}
