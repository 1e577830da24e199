package domain

import "errors"

// ErrNoRevision is returned by a page info source for a title without a
// revision, typically because the page does not exist.
var ErrNoRevision = errors.New("no revision id available")

// PageviewItem is one monthly pageview record for an article. The access type
// is dropped so records from different access types can be merged.
type PageviewItem struct {
	Project     string `json:"project"`
	Article     string `json:"article"`
	Granularity string `json:"granularity"`
	Timestamp   string `json:"timestamp"`
	Agent       string `json:"agent"`
	Views       int64  `json:"views"`
}

// PageviewSet maps article titles to their pageview records.
type PageviewSet map[string][]PageviewItem

// PageInfo is the latest revision of an article.
type PageInfo struct {
	Title      string `json:"article_title"`
	RevisionID int64  `json:"revision_id"`
}

// QualityScore is the articlequality prediction for a revision.
type QualityScore struct {
	RevisionID int64  `json:"revision_id"`
	Prediction string `json:"article_quality"`
}
