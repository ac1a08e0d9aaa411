package catalog

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"metiz/internal"
	"metiz/internal/util"
)

// SearchClient is the external search fallback used when the local index
// cannot serve a query. Transport failures are retried with backoff;
// exhausted retries degrade to an empty result, never an error.
type SearchClient struct {
	baseURL string
	token   string
	http    *http.Client
	retry   util.RetryConfig
}

func NewSearchClient(baseURL, token string, timeout time.Duration, retry util.RetryConfig) *SearchClient {
	return &SearchClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		http:    &http.Client{Timeout: timeout},
		retry:   retry,
	}
}

type searchRequest struct {
	SearchQuery string            `json:"search_query"`
	UserIntent  internal.TokenSet `json:"user_intent"`
}

type searchResult struct {
	SKU                string   `json:"sku"`
	Name               string   `json:"name"`
	PackSize           float64  `json:"pack_size"`
	Unit               string   `json:"unit"`
	Price              *float64 `json:"price"`
	ProbabilityPercent *int     `json:"probability_percent"`
	MatchReason        *string  `json:"match_reason"`
}

type searchResponse struct {
	Results []searchResult `json:"results"`
}

// Search posts the sub-query and intent to the external endpoint. The
// remote side may pre-rank results; when it does, the probability is kept
// in the candidate score so callers can decide whether to re-rank locally.
func (c *SearchClient) Search(ctx context.Context, query string, intent internal.TokenSet) []internal.Candidate {
	if c.baseURL == "" {
		return nil
	}

	payload, err := json.Marshal(searchRequest{SearchQuery: query, UserIntent: intent})
	if err != nil {
		return nil
	}

	var body []byte
	err = util.Retry(ctx, c.retry, func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/search", bytes.NewReader(payload))
		if err != nil {
			return err
		}
		req.Header.Set("Content-Type", "application/json")
		if c.token != "" {
			req.Header.Set("Authorization", "Bearer "+c.token)
		}

		resp, err := c.http.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			if util.IsRetryableStatus(resp.StatusCode) {
				return fmt.Errorf("поиск: статус %d", resp.StatusCode)
			}
			body = nil
			return nil
		}
		body, err = io.ReadAll(io.LimitReader(resp.Body, 4<<20))
		return err
	})
	if err != nil {
		log.Printf("внешний поиск %q: попытки исчерпаны: %v", query, err)
		return nil
	}
	if len(body) == 0 {
		return nil
	}

	var sr searchResponse
	if err := json.Unmarshal(body, &sr); err != nil {
		log.Printf("внешний поиск %q: некорректный ответ: %v", query, err)
		return nil
	}

	out := make([]internal.Candidate, 0, len(sr.Results))
	for _, r := range sr.Results {
		if r.SKU == "" {
			continue
		}
		cand := internal.Candidate{
			SKU:      r.SKU,
			Name:     r.Name,
			PackSize: r.PackSize,
			Unit:     r.Unit,
			Price:    r.Price,
			Source:   internal.CandidateExternal,
		}
		if r.ProbabilityPercent != nil {
			cand.Score = float64(*r.ProbabilityPercent) / 100
		}
		if r.MatchReason != nil {
			cand.Explanation = *r.MatchReason
		}
		out = append(out, cand)
	}
	return out
}
