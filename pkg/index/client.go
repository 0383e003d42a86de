package index

import "context"

// Candidate is one vector-search hit from the service catalog.
// Candidates are never mutated downstream, only filtered and reordered.
type Candidate struct {
	ServiceName        string  `json:"service_name"`
	GeneralizationText string  `json:"generalization_text"`
	Similarity         float64 `json:"similarity"`
	ExternalID         string  `json:"external_id"`
}

// Client performs approximate nearest-neighbor search over a named collection.
// Results are ordered by the index's native metric, most relevant first.
type Client interface {
	Search(ctx context.Context, collection string, vector []float32, limit int) ([]Candidate, error)
	Close() error
}
