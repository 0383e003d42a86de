package search

import (
	"context"
	"fmt"
	"strings"

	"service-resolver-be/pkg/embedding"
	"service-resolver-be/pkg/index"
	"service-resolver-be/pkg/rerank"
)

// Reranker reorders candidate texts by relevance to a query. A nil result
// with a nil error means the caller should keep its current ordering.
type Reranker interface {
	Rerank(ctx context.Context, query string, texts []string) ([]rerank.Result, error)
}

// Orchestrator runs the retrieval half of the pipeline: embed the query,
// search the vector index, drop weak candidates, then rerank the rest.
// Each stage is exposed separately so the caller can put its own deadline
// on each remote call.
type Orchestrator struct {
	embedder   embedding.EmbeddingProvider
	idx        index.Client
	reranker   Reranker // nil disables reranking
	collection string
	threshold  float64
}

func NewOrchestrator(embedder embedding.EmbeddingProvider, idx index.Client, reranker Reranker, collection string, threshold float64) *Orchestrator {
	return &Orchestrator{
		embedder:   embedder,
		idx:        idx,
		reranker:   reranker,
		collection: collection,
		threshold:  threshold,
	}
}

// EmbedQuery turns the query into a vector. A blank query returns a nil
// vector and no error, without touching the embedding service.
func (o *Orchestrator) EmbedQuery(ctx context.Context, query string) ([]float32, error) {
	if strings.TrimSpace(query) == "" {
		return nil, nil
	}

	vector, err := o.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	return vector, nil
}

// SearchIndex fetches raw candidates for the vector, unfiltered.
func (o *Orchestrator) SearchIndex(ctx context.Context, vector []float32, limit int) ([]index.Candidate, error) {
	candidates, err := o.idx.Search(ctx, o.collection, vector, limit)
	if err != nil {
		return nil, fmt.Errorf("index search: %w", err)
	}
	return candidates, nil
}

// Filter keeps candidates at or above the configured threshold,
// preserving the index ordering.
func (o *Orchestrator) Filter(candidates []index.Candidate) []index.Candidate {
	return FilterBySimilarity(candidates, o.threshold)
}

// RerankOrKeep reorders candidates by cross-encoder relevance. Rerank
// failures are soft: the input ordering is returned and ok reports false.
func (o *Orchestrator) RerankOrKeep(ctx context.Context, query string, candidates []index.Candidate) (ranked []index.Candidate, ok bool) {
	if o.reranker == nil || len(candidates) < 2 {
		return candidates, false
	}

	texts := make([]string, len(candidates))
	for i, c := range candidates {
		texts[i] = c.ServiceName
	}

	results, err := o.reranker.Rerank(ctx, query, texts)
	if err != nil || results == nil {
		return candidates, false
	}

	reordered := make([]index.Candidate, 0, len(candidates))
	for _, r := range results {
		reordered = append(reordered, candidates[r.Index])
	}
	return reordered, true
}

// Retrieve composes the stages for callers that do not need per-stage
// deadlines: embed, over-fetch, filter, rerank, truncate to limit.
func (o *Orchestrator) Retrieve(ctx context.Context, query string, limit int) (candidates []index.Candidate, rerankOK bool, err error) {
	vector, err := o.EmbedQuery(ctx, query)
	if err != nil {
		return nil, false, err
	}
	if vector == nil {
		return nil, false, nil
	}

	// Over-fetch so the similarity filter still leaves enough to rank.
	raw, err := o.SearchIndex(ctx, vector, limit*2)
	if err != nil {
		return nil, false, err
	}

	filtered := o.Filter(raw)
	if len(filtered) == 0 {
		return nil, false, nil
	}

	ranked, rerankOK := o.RerankOrKeep(ctx, query, filtered)
	if len(ranked) > limit {
		ranked = ranked[:limit]
	}
	return ranked, rerankOK, nil
}

// FilterBySimilarity keeps candidates at or above the threshold,
// preserving the index ordering.
func FilterBySimilarity(candidates []index.Candidate, threshold float64) []index.Candidate {
	kept := make([]index.Candidate, 0, len(candidates))
	for _, c := range candidates {
		if c.Similarity >= threshold {
			kept = append(kept, c)
		}
	}
	return kept
}
