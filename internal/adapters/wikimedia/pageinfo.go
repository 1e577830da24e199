package wikimedia

import (
	"context"
	"errors"
	"fmt"
	"net/url"

	"github.com/samirrijal/data512/internal/adapters/fetch"
	"github.com/samirrijal/data512/internal/core/domain"
)

// ErrNoRevision is returned when the API knows no revision for a title.
var ErrNoRevision = domain.ErrNoRevision

// PageInfoClient implements ports.PageInfoSource with the MediaWiki action API.
type PageInfoClient struct {
	http     *fetch.Client
	endpoint string
}

// NewPageInfoClient creates a client for endpoint, e.g. https://en.wikipedia.org/w/api.php.
func NewPageInfoClient(http *fetch.Client, endpoint string) *PageInfoClient {
	return &PageInfoClient{http: http, endpoint: endpoint}
}

type pageInfoResponse struct {
	Query struct {
		Pages map[string]struct {
			PageID    int64  `json:"pageid"`
			Title     string `json:"title"`
			LastRevID *int64 `json:"lastrevid"`
		} `json:"pages"`
	} `json:"query"`
}

// LatestRevision returns the title as normalised by the API and its latest revision id.
func (c *PageInfoClient) LatestRevision(ctx context.Context, title string) (*domain.PageInfo, error) {
	if title == "" {
		return nil, errors.New("pageinfo: article title is required")
	}

	v := url.Values{}
	v.Set("action", "query")
	v.Set("format", "json")
	v.Set("prop", "info")
	v.Set("titles", title)

	var resp pageInfoResponse
	if err := c.http.GetJSON(ctx, c.endpoint+"?"+v.Encode(), nil, &resp); err != nil {
		return nil, fmt.Errorf("pageinfo %q: %w", title, err)
	}

	// One title is requested at a time, so there is at most one page.
	for _, page := range resp.Query.Pages {
		if page.LastRevID == nil {
			return nil, fmt.Errorf("pageinfo %q: %w", page.Title, ErrNoRevision)
		}
		return &domain.PageInfo{Title: page.Title, RevisionID: *page.LastRevID}, nil
	}
	return nil, fmt.Errorf("pageinfo %q: response has no pages", title)
}
