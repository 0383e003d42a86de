package executor

import "errors"

// Sentinel errors for the resolution pipeline. The HTTP layer maps these
// to status codes, the alert service counts the upstream ones.
var (
	ErrInvalidInput            = errors.New("resolve: invalid input")
	ErrEmbeddingUnavailable    = errors.New("resolve: embedding service unavailable")
	ErrIndexUnavailable        = errors.New("resolve: vector index unavailable")
	ErrRerankUnavailable       = errors.New("resolve: rerank service unavailable")
	ErrAugmentationUnavailable = errors.New("resolve: augmentation service unavailable")
	ErrCacheUnavailable        = errors.New("resolve: result cache unavailable")
	ErrTimeout                 = errors.New("resolve: pipeline stage timed out")
)
