package rerank

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Result is one cross-encoder score tied back to the caller's candidate list.
type Result struct {
	Index int     `json:"index"`
	Score float64 `json:"score"`
}

// Client calls a cross-encoder rerank endpoint:
// POST {url} {"query": ..., "texts": [...]} -> [{"index": i, "score": s}, ...]
//
// Reranking is a soft dependency: callers must treat a nil result as "keep
// the current ordering", never as a request failure.
type Client struct {
	URL        string
	HTTPClient *http.Client
}

func NewClient(url string) *Client {
	return &Client{
		URL: url,
		HTTPClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

type rerankRequest struct {
	Query string   `json:"query"`
	Texts []string `json:"texts"`
}

// Rerank returns results ordered by relevance descending, or an error when
// the call failed in any way (including empty input and malformed payloads).
func (c *Client) Rerank(ctx context.Context, query string, texts []string) ([]Result, error) {
	if len(texts) == 0 {
		return nil, fmt.Errorf("rerank called with no texts")
	}

	payloadBytes, err := json.Marshal(rerankRequest{
		Query: query,
		Texts: texts,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.URL, bytes.NewBuffer(payloadBytes))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("rerank request failed: %w", err)
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("rerank error: status %d, body: %s", resp.StatusCode, string(bodyBytes))
	}

	var results []Result
	if err := json.Unmarshal(bodyBytes, &results); err != nil {
		return nil, fmt.Errorf("unmarshal response: %w", err)
	}

	// An index outside the candidate list means the payload cannot be
	// trusted; let the caller fall back to the original order.
	for _, r := range results {
		if r.Index < 0 || r.Index >= len(texts) {
			return nil, fmt.Errorf("rerank returned out-of-range index %d for %d texts", r.Index, len(texts))
		}
	}

	return results, nil
}
