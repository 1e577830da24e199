package wikimedia

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"

	"github.com/samirrijal/data512/internal/adapters/fetch"
	"github.com/samirrijal/data512/internal/core/domain"
)

// ORESClient implements ports.QualitySource with the LiftWing articlequality model.
type ORESClient struct {
	http        *fetch.Client
	endpoint    string
	language    string
	accessToken string
}

// NewORESClient creates a client posting to endpoint, the full model predict URL.
func NewORESClient(http *fetch.Client, endpoint, language, accessToken string) *ORESClient {
	return &ORESClient{http: http, endpoint: endpoint, language: language, accessToken: accessToken}
}

type oresRequest struct {
	Lang     string `json:"lang"`
	RevID    int64  `json:"rev_id"`
	Features bool   `json:"features"`
}

type oresScore struct {
	ArticleQuality struct {
		Score struct {
			Prediction  string             `json:"prediction"`
			Probability map[string]float64 `json:"probability"`
		} `json:"score"`
	} `json:"articlequality"`
}

type oresResponse map[string]struct {
	Scores map[string]oresScore `json:"scores"`
}

// ArticleQuality scores one revision.
func (c *ORESClient) ArticleQuality(ctx context.Context, revisionID int64) (*domain.QualityScore, error) {
	if revisionID <= 0 {
		return nil, fmt.Errorf("ores: invalid revision id %d", revisionID)
	}

	headers := map[string]string{"Authorization": "Bearer " + c.accessToken}
	req := oresRequest{Lang: c.language, RevID: revisionID, Features: true}

	var resp oresResponse
	if err := c.http.PostJSON(ctx, c.endpoint, headers, req, &resp); err != nil {
		return nil, fmt.Errorf("ores revision %d: %w", revisionID, err)
	}

	prediction, err := c.prediction(resp, revisionID)
	if err != nil {
		return nil, fmt.Errorf("ores revision %d: %w", revisionID, err)
	}
	return &domain.QualityScore{RevisionID: revisionID, Prediction: prediction}, nil
}

func (c *ORESClient) prediction(resp oresResponse, revisionID int64) (string, error) {
	wiki, ok := resp[c.language+"wiki"]
	if !ok {
		return "", fmt.Errorf("response has no %swiki section", c.language)
	}
	if len(wiki.Scores) == 0 {
		return "", errors.New("response has no scores")
	}

	score, ok := wiki.Scores[strconv.FormatInt(revisionID, 10)]
	if !ok {
		keys := make([]string, 0, len(wiki.Scores))
		for k := range wiki.Scores {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		score = wiki.Scores[keys[0]]
	}

	if score.ArticleQuality.Score.Prediction == "" {
		return "", errors.New("response has no articlequality prediction")
	}
	return score.ArticleQuality.Score.Prediction, nil
}
