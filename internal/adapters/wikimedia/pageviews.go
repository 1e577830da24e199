package wikimedia

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/samirrijal/data512/internal/adapters/fetch"
	"github.com/samirrijal/data512/internal/core/domain"
)

// PageviewsParams are the fixed parts of a per-article pageviews request.
type PageviewsParams struct {
	Project     string // e.g. en.wikipedia.org
	Agent       string // user, spider, automated or all-agents
	Granularity string // daily or monthly
	Start       string // YYYYMMDDHH
	End         string // YYYYMMDDHH
}

// PageviewsClient implements ports.PageviewSource against the Wikimedia REST API.
type PageviewsClient struct {
	http     *fetch.Client
	endpoint string
	params   PageviewsParams
}

// NewPageviewsClient creates a client. endpoint is the pageviews metrics root,
// e.g. https://wikimedia.org/api/rest_v1/metrics/pageviews/.
func NewPageviewsClient(http *fetch.Client, endpoint string, params PageviewsParams) *PageviewsClient {
	if !strings.HasSuffix(endpoint, "/") {
		endpoint += "/"
	}
	return &PageviewsClient{http: http, endpoint: endpoint, params: params}
}

// ArticleURL builds the per-article request URL for title and access.
func (c *PageviewsClient) ArticleURL(title, access string) string {
	return fmt.Sprintf("%sper-article/%s/%s/%s/%s/%s/%s/%s",
		c.endpoint,
		c.params.Project,
		access,
		c.params.Agent,
		EscapeTitle(title),
		c.params.Granularity,
		c.params.Start,
		c.params.End,
	)
}

// ArticlePageviews returns the pageview items for one article. The access
// field of each item is dropped.
func (c *PageviewsClient) ArticlePageviews(ctx context.Context, title, access string) ([]domain.PageviewItem, error) {
	if title == "" {
		return nil, errors.New("pageviews: article title is required")
	}
	if access == "" {
		return nil, errors.New("pageviews: access type is required")
	}

	var resp struct {
		Items []domain.PageviewItem `json:"items"`
	}
	if err := c.http.GetJSON(ctx, c.ArticleURL(title, access), nil, &resp); err != nil {
		return nil, fmt.Errorf("pageviews %q: %w", title, err)
	}
	if resp.Items == nil {
		return nil, fmt.Errorf("pageviews %q: response has no items", title)
	}
	return resp.Items, nil
}

// EscapeTitle turns an article title into a single path segment: spaces become
// underscores and every reserved character is percent-encoded.
func EscapeTitle(title string) string {
	return url.QueryEscape(strings.ReplaceAll(title, " ", "_"))
}
