package executor

import (
	"context"
	"errors"
	"fmt"
	"time"

	"service-resolver-be/pkg/index"
	"service-resolver-be/pkg/llm"
	"service-resolver-be/pkg/resolve/disambig"
	"service-resolver-be/pkg/resolve/search"
)

// Config carries the pipeline's tuning knobs. Embed and search are hard
// dependencies, rerank and augment degrade gracefully, so only the first
// two timeouts can fail a request.
type Config struct {
	DefaultLimit   int
	EmbedTimeout   time.Duration
	SearchTimeout  time.Duration
	RerankTimeout  time.Duration
	AugmentTimeout time.Duration
	SystemPrompt   string
}

// Resolution is the full outcome of one pipeline run.
type Resolution struct {
	Kind           disambig.Kind
	ServiceName    string
	FollowUpPrompt string
	Options        []string
	Candidates     []index.Candidate
	Augmented      string
	AugmentErr     error
	RerankApplied  bool
}

// Pipeline sequences retrieval, disambiguation and augmentation for one
// query. Each remote call runs under its own deadline.
type Pipeline struct {
	orchestrator *search.Orchestrator
	augmenter    llm.LLMProvider // nil disables augmentation
	cfg          Config
}

func NewPipeline(orchestrator *search.Orchestrator, augmenter llm.LLMProvider, cfg Config) *Pipeline {
	return &Pipeline{
		orchestrator: orchestrator,
		augmenter:    augmenter,
		cfg:          cfg,
	}
}

// Run resolves one query. Embedding and index failures abort the run with
// a sentinel error; rerank and augmentation failures are recorded on the
// Resolution and the run continues.
func (p *Pipeline) Run(ctx context.Context, query string) (*Resolution, error) {
	embedCtx, cancel := context.WithTimeout(ctx, p.cfg.EmbedTimeout)
	vector, err := p.orchestrator.EmbedQuery(embedCtx, query)
	cancel()
	if err != nil {
		return nil, stageError(err, ErrEmbeddingUnavailable)
	}
	if vector == nil {
		// Blank query: nothing to search for.
		return &Resolution{Kind: disambig.KindNoMatch}, nil
	}

	searchCtx, cancel := context.WithTimeout(ctx, p.cfg.SearchTimeout)
	raw, err := p.orchestrator.SearchIndex(searchCtx, vector, p.cfg.DefaultLimit*2)
	cancel()
	if err != nil {
		return nil, stageError(err, ErrIndexUnavailable)
	}

	filtered := p.orchestrator.Filter(raw)
	if len(filtered) == 0 {
		return &Resolution{Kind: disambig.KindNoMatch}, nil
	}

	rerankCtx, cancel := context.WithTimeout(ctx, p.cfg.RerankTimeout)
	ranked, rerankOK := p.orchestrator.RerankOrKeep(rerankCtx, query, filtered)
	cancel()

	result := disambig.Resolve(ranked, p.cfg.DefaultLimit)

	resolution := &Resolution{
		Kind:           result.Kind,
		ServiceName:    result.ServiceName,
		FollowUpPrompt: result.Prompt,
		Options:        result.Options,
		Candidates:     result.RawCandidates,
		RerankApplied:  rerankOK,
	}

	resolution.Augmented, resolution.AugmentErr = p.augment(ctx, query, result)

	return resolution, nil
}

// augment asks the language model to confirm or rephrase the resolution.
// It never fails the run; the caller decides whether to log the error.
func (p *Pipeline) augment(ctx context.Context, query string, result disambig.Result) (string, error) {
	if p.augmenter == nil || result.Kind == disambig.KindNoMatch {
		return "", nil
	}

	augCtx, cancel := context.WithTimeout(ctx, p.cfg.AugmentTimeout)
	defer cancel()

	knowledge := fmt.Sprintf("主项名称：%s，追问问题：%s", result.ServiceName, result.Prompt)
	messages := []llm.Message{
		{Role: "system", Content: p.cfg.SystemPrompt},
		{Role: "system", Content: "知识库内容：" + knowledge},
		{Role: "user", Content: query},
	}

	answer, err := p.augmenter.Chat(augCtx, messages,
		llm.WithTemperature(0.5),
		llm.WithTopP(0.5),
		llm.WithMaxTokens(16384),
	)
	if err != nil {
		return "", stageError(err, ErrAugmentationUnavailable)
	}
	return answer, nil
}

// stageError maps a stage failure onto a sentinel. Deadline hits become
// ErrTimeout so the transport layer can answer 504 instead of 502.
func stageError(err error, sentinel error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	}
	return fmt.Errorf("%w: %v", sentinel, err)
}
