package embedding

import "context"

// EmbeddingProvider defines the interface for turning query text into a vector.
type EmbeddingProvider interface {
	// Embed returns the embedding for text, or nil (no error) when text is
	// blank. Malformed remote payloads and dimension mismatches are errors.
	Embed(ctx context.Context, text string) ([]float32, error)
}
