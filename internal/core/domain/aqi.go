package domain

import "errors"

// ErrNoData is returned by an air-quality source when a query matched no observations.
var ErrNoData = errors.New("no data matched the request")

// AQSResponse is the envelope returned by the EPA AQS API.
type AQSResponse struct {
	Header []AQSHeader      `json:"Header"`
	Data   []AQSObservation `json:"Data"`
}

// AQSHeader carries the request status reported by AQS.
type AQSHeader struct {
	Status      string   `json:"status"`
	RequestTime string   `json:"request_time"`
	URL         string   `json:"url"`
	Rows        int      `json:"rows"`
	Error       []string `json:"error,omitempty"`
}

// AQSObservation is one row of a daily summary. AQI is null for pollutants
// and sample durations that do not define one.
type AQSObservation struct {
	StateCode     string   `json:"state_code"`
	CountyCode    string   `json:"county_code"`
	SiteNumber    string   `json:"site_number"`
	ParameterCode string   `json:"parameter_code"`
	Parameter     string   `json:"parameter"`
	DateLocal     string   `json:"date_local"`
	AQI           *float64 `json:"aqi"`
}

// DailyAQI is the consolidated AQI for one day: the maximum over pollutants of
// the per-pollutant mean across monitors.
type DailyAQI struct {
	Date string  `json:"date"`
	AQI  float64 `json:"aqi"`
	Year int     `json:"year"`
}
