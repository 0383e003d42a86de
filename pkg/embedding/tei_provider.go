package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// TEIProvider calls a text-embeddings-inference style endpoint:
// POST {url} {"inputs": text} -> [[f32...]]
type TEIProvider struct {
	URL    string
	Dim    int
	Client *http.Client
}

var _ EmbeddingProvider = &TEIProvider{}

func NewTEIProvider(url string, dim int) *TEIProvider {
	if dim <= 0 {
		dim = 1024
	}
	return &TEIProvider{
		URL: url,
		Dim: dim,
		Client: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

type teiEmbedRequest struct {
	Inputs string `json:"inputs"`
}

func (p *TEIProvider) Embed(ctx context.Context, text string) ([]float32, error) {
	// Blank input is "no embedding", not an error; callers treat it as no match.
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}

	payloadBytes, err := json.Marshal(teiEmbedRequest{Inputs: text})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", p.URL, bytes.NewBuffer(payloadBytes))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("embed request failed: %w", err)
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("embed error: status %d, body: %s", resp.StatusCode, string(bodyBytes))
	}

	// The endpoint embeds a batch; we always send one input.
	var vectors [][]float32
	if err := json.Unmarshal(bodyBytes, &vectors); err != nil {
		return nil, fmt.Errorf("unmarshal response: %w", err)
	}
	if len(vectors) == 0 {
		return nil, fmt.Errorf("embed response contained no vectors")
	}

	vector := vectors[0]
	if len(vector) != p.Dim {
		return nil, fmt.Errorf("unexpected embedding dimension: got %d, want %d", len(vector), p.Dim)
	}

	return vector, nil
}
