package aqs

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/samirrijal/data512/internal/adapters/fetch"
	"github.com/samirrijal/data512/internal/core/domain"
	"github.com/samirrijal/data512/internal/core/ports"
)

// ErrNoData is returned when a query matched no observations.
var ErrNoData = domain.ErrNoData

// Client implements ports.AirQualitySource against the EPA AQS data API.
type Client struct {
	http    *fetch.Client
	baseURL string
	email   string
	key     string
}

// NewClient creates an AQS client. baseURL is the API root, e.g. https://aqs.epa.gov/data/api.
func NewClient(http *fetch.Client, baseURL, email, key string) *Client {
	return &Client{
		http:    http,
		baseURL: strings.TrimRight(baseURL, "/"),
		email:   email,
		key:     key,
	}
}

// DailySummary fetches daily summary rows for one county.
func (c *Client) DailySummary(ctx context.Context, q ports.DailySummaryQuery) (*domain.AQSResponse, error) {
	if err := validate(q); err != nil {
		return nil, err
	}

	v := url.Values{}
	v.Set("email", c.email)
	v.Set("key", c.key)
	v.Set("param", q.Params)
	v.Set("bdate", q.BeginDate)
	v.Set("edate", q.EndDate)
	v.Set("state", q.State)
	v.Set("county", q.County)

	var resp domain.AQSResponse
	if err := c.http.GetJSON(ctx, c.baseURL+"/dailyData/byCounty?"+v.Encode(), nil, &resp); err != nil {
		return nil, fmt.Errorf("aqs daily summary %s-%s [%s]: %w", q.BeginDate, q.EndDate, q.Params, err)
	}

	if len(resp.Header) > 0 && strings.EqualFold(resp.Header[0].Status, "Failed") {
		return nil, fmt.Errorf("aqs daily summary %s-%s [%s]: %s", q.BeginDate, q.EndDate, q.Params,
			strings.Join(resp.Header[0].Error, "; "))
	}
	if len(resp.Data) == 0 {
		return nil, ErrNoData
	}
	return &resp, nil
}

// SplitFIPS splits a 5-digit state+county FIPS code.
func SplitFIPS(fips string) (state, county string, err error) {
	if len(fips) != 5 {
		return "", "", fmt.Errorf("fips %q must have 5 digits", fips)
	}
	for _, r := range fips {
		if r < '0' || r > '9' {
			return "", "", fmt.Errorf("fips %q must have 5 digits", fips)
		}
	}
	return fips[:2], fips[2:], nil
}

func validate(q ports.DailySummaryQuery) error {
	var missing []string
	if q.Params == "" {
		missing = append(missing, "param")
	}
	if q.BeginDate == "" {
		missing = append(missing, "begin date")
	}
	if q.EndDate == "" {
		missing = append(missing, "end date")
	}
	if q.State == "" || q.County == "" {
		missing = append(missing, "state/county")
	}
	if len(missing) > 0 {
		return fmt.Errorf("aqs daily summary: missing %s", strings.Join(missing, ", "))
	}
	if len(strings.Split(q.Params, ",")) > 5 {
		return fmt.Errorf("aqs daily summary: at most 5 parameter codes, got %q", q.Params)
	}
	if len(q.BeginDate) != 8 || len(q.EndDate) != 8 || q.BeginDate[:4] != q.EndDate[:4] {
		return fmt.Errorf("aqs daily summary: dates %s-%s must be YYYYMMDD in the same year", q.BeginDate, q.EndDate)
	}
	return nil
}
