package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"service-resolver-be/internal/dto"
	"service-resolver-be/internal/pkg/logger"
	"service-resolver-be/pkg/resolve/disambig"
	"service-resolver-be/pkg/resolve/executor"
	"service-resolver-be/pkg/store"
)

// resolutionPipeline is what the service needs from the executor.
type resolutionPipeline interface {
	Run(ctx context.Context, query string) (*executor.Resolution, error)
}

// ConversationGateway provisions upstream conversation handles and relays
// queries to the dialogue platform. *upstream.Client satisfies it; nil
// disables the integration.
type ConversationGateway interface {
	CreateConversation(ctx context.Context) (string, error)
	ChatQuery(ctx context.Context, conversationID, query string) (string, error)
}

type IResolverService interface {
	Resolve(ctx context.Context, req *dto.ResolveRequest) (*dto.ResolveResponse, error)
}

type resolverService struct {
	pipeline  resolutionPipeline
	sessions  store.SessionStore
	upstream  ConversationGateway
	publisher IPublisherService
	alerts    IAlertService
	log       logger.ILogger
}

func NewResolverService(
	pipeline resolutionPipeline,
	sessions store.SessionStore,
	upstreamClient ConversationGateway,
	publisher IPublisherService,
	alerts IAlertService,
	log logger.ILogger,
) IResolverService {
	return &resolverService{
		pipeline:  pipeline,
		sessions:  sessions,
		upstream:  upstreamClient,
		publisher: publisher,
		alerts:    alerts,
		log:       log,
	}
}

// Resolve handles one conversational turn. A turn is either a fresh query
// that runs the full pipeline, or a numeric reply consumed against the
// session's pending follow-up options.
func (s *resolverService) Resolve(ctx context.Context, req *dto.ResolveRequest) (*dto.ResolveResponse, error) {
	sessionID := strings.TrimSpace(req.SessionId)
	queryText := strings.TrimSpace(req.QueryText)
	if sessionID == "" || queryText == "" {
		return nil, fmt.Errorf("%w: session_id and query_text are required", executor.ErrInvalidInput)
	}

	start := time.Now()
	cacheKey := store.ResultKey(sessionID, queryText)

	// 1. Result cache. A store failure is a miss, never a request failure.
	if cached, err := s.sessions.GetResult(ctx, cacheKey); err == nil {
		// A replayed follow-up answer must leave the session awaiting a
		// choice again, or the next numeric reply runs as a fresh query.
		if cached.Outcome == store.OutcomeNeedsFollowUp {
			s.rearmFollowUp(ctx, sessionID, cached)
		}
		return cachedResponse(cached, time.Since(start)), nil
	} else if !errors.Is(err, store.ErrNotFound) {
		s.log.Warn("resolver", "result cache unavailable, treating as miss", map[string]interface{}{
			"error": err.Error(),
		})
	}

	session := s.loadSession(ctx, sessionID)

	// 2. Pending follow-up: interpret the turn as a choice.
	if session.HasPendingFollowUp() {
		return s.consumeFollowUp(ctx, session, queryText, start)
	}

	// 3. Full pipeline run. The caller disconnecting must not abandon the
	// run: the result still feeds the cache for the retry that follows.
	runCtx := context.WithoutCancel(ctx)
	resolution, err := s.pipeline.Run(runCtx, queryText)
	if err != nil {
		s.alerts.RecordFailure(err.Error())
		s.log.Error("resolver", "pipeline failed", map[string]interface{}{
			"session_id": sessionID,
			"error":      err.Error(),
		})
		s.publishFailure(runCtx, sessionID, queryText, err)
		return nil, err
	}

	// 4. The local catalog found nothing: give the dialogue platform a
	// chance to answer through the session's conversation handle.
	if resolution.Kind == disambig.KindNoMatch {
		if upstreamRes := s.consultUpstream(runCtx, session, queryText); upstreamRes != nil {
			resolution = upstreamRes
		}
	}

	if resolution.AugmentErr != nil {
		s.log.Warn("resolver", "augmentation degraded", map[string]interface{}{
			"session_id": sessionID,
			"error":      resolution.AugmentErr.Error(),
		})
	}
	if !resolution.RerankApplied && resolution.Kind != disambig.KindNoMatch {
		s.log.Debug("resolver", "rerank skipped, filter order kept", map[string]interface{}{
			"session_id": sessionID,
		})
	}

	response := s.buildResponse(resolution, time.Since(start))
	s.persistTurn(runCtx, session, resolution)
	s.finishTurn(runCtx, sessionID, queryText, response)

	return response, nil
}

// consumeFollowUp maps a reply onto the pending options. An unparseable
// reply re-issues the same prompt instead of failing the turn.
func (s *resolverService) consumeFollowUp(ctx context.Context, session *store.Session, reply string, start time.Time) (*dto.ResolveResponse, error) {
	chosen, ok := disambig.ParseChoice(reply, session.Options)
	if !ok {
		prompt := session.PendingPrompt
		options := session.Options
		return &dto.ResolveResponse{
			Resolved:       false,
			FollowUpPrompt: &prompt,
			Options:        options,
			DurationMs:     time.Since(start).Milliseconds(),
		}, nil
	}

	session.PendingPrompt = ""
	session.Options = nil
	if err := s.sessions.SaveSession(ctx, session); err != nil {
		s.log.Warn("resolver", "failed to clear pending follow-up", map[string]interface{}{
			"session_id": session.ID,
			"error":      err.Error(),
		})
	}

	response := &dto.ResolveResponse{
		Resolved:    true,
		ServiceName: &chosen,
		Options:     []string{},
		DurationMs:  time.Since(start).Milliseconds(),
	}
	s.finishTurn(ctx, session.ID, reply, response)

	return response, nil
}

// rearmFollowUp restores the pending choice state for a follow-up answer
// served from the result cache, so the next numeric reply is consumed
// against the cached options.
func (s *resolverService) rearmFollowUp(ctx context.Context, sessionID string, entry *store.CacheEntry) {
	if entry.FollowUpPrompt == "" || len(entry.Options) == 0 {
		return
	}

	session := s.loadSession(ctx, sessionID)
	session.PendingPrompt = entry.FollowUpPrompt
	session.Options = entry.Options
	if err := s.sessions.SaveSession(ctx, session); err != nil {
		s.log.Warn("resolver", "failed to re-arm pending follow-up", map[string]interface{}{
			"session_id": sessionID,
			"error":      err.Error(),
		})
	}
}

// consultUpstream relays the query through the session's conversation
// handle and interprets the free-text answer. Any failure or an answer
// without the expected fields keeps the local no-match result.
func (s *resolverService) consultUpstream(ctx context.Context, session *store.Session, query string) *executor.Resolution {
	if s.upstream == nil || session.UpstreamHandle == "" {
		return nil
	}

	answer, err := s.upstream.ChatQuery(ctx, session.UpstreamHandle, query)
	if err != nil {
		s.log.Warn("resolver", "upstream chat query failed", map[string]interface{}{
			"session_id": session.ID,
			"error":      err.Error(),
		})
		return nil
	}

	parsed := disambig.ParseUpstreamAnswer(answer)
	switch parsed.Type {
	case disambig.AnswerBusinessItem:
		return &executor.Resolution{Kind: disambig.KindResolved, ServiceName: parsed.Content}
	case disambig.AnswerFollowUp:
		// A free-text question, not a numbered choice; no options to arm.
		return &executor.Resolution{Kind: disambig.KindNeedsFollowUp, FollowUpPrompt: parsed.Content}
	default:
		return nil
	}
}

func (s *resolverService) loadSession(ctx context.Context, sessionID string) *store.Session {
	session, err := s.sessions.GetSession(ctx, sessionID)
	if err == nil {
		return session
	}
	if !errors.Is(err, store.ErrNotFound) {
		s.log.Warn("resolver", "session store unavailable, starting fresh", map[string]interface{}{
			"session_id": sessionID,
			"error":      err.Error(),
		})
	}

	session = &store.Session{ID: sessionID, CreatedAt: time.Now()}
	if s.upstream != nil {
		handle, err := s.upstream.CreateConversation(ctx)
		if err != nil {
			s.log.Warn("resolver", "upstream conversation unavailable", map[string]interface{}{
				"session_id": sessionID,
				"error":      err.Error(),
			})
		} else {
			session.UpstreamHandle = handle
		}
	}
	return session
}

func (s *resolverService) buildResponse(resolution *executor.Resolution, elapsed time.Duration) *dto.ResolveResponse {
	response := &dto.ResolveResponse{
		Options:    []string{},
		Augmented:  disambig.NormalizeDashes(resolution.Augmented),
		DurationMs: elapsed.Milliseconds(),
	}

	switch resolution.Kind {
	case disambig.KindResolved:
		name := resolution.ServiceName
		response.Resolved = true
		response.ServiceName = &name
	case disambig.KindNeedsFollowUp:
		prompt := resolution.FollowUpPrompt
		response.FollowUpPrompt = &prompt
		response.Options = resolution.Options
	}

	return response
}

// persistTurn records the conversation state the next turn depends on.
// Terminal outcomes clear the pending follow-up; NeedsFollowUp arms it when
// there are options a numeric reply can select from.
func (s *resolverService) persistTurn(ctx context.Context, session *store.Session, resolution *executor.Resolution) {
	if resolution.Kind == disambig.KindNeedsFollowUp && len(resolution.Options) > 0 {
		session.PendingPrompt = resolution.FollowUpPrompt
		session.Options = resolution.Options
	} else {
		session.PendingPrompt = ""
		session.Options = nil
	}

	if err := s.sessions.SaveSession(ctx, session); err != nil {
		s.log.Warn("resolver", "failed to persist session", map[string]interface{}{
			"session_id": session.ID,
			"error":      err.Error(),
		})
	}
}

// finishTurn writes the result cache entry and emits the resolution event.
// Both are best-effort; the response is already built.
func (s *resolverService) finishTurn(ctx context.Context, sessionID, queryText string, response *dto.ResolveResponse) {
	entry := &store.CacheEntry{
		Outcome:    outcomeOf(response),
		DurationMs: response.DurationMs,
		CreatedAt:  time.Now(),
	}
	if response.ServiceName != nil {
		entry.ServiceName = *response.ServiceName
	}
	if response.FollowUpPrompt != nil {
		entry.FollowUpPrompt = *response.FollowUpPrompt
	}
	entry.Options = response.Options

	cacheKey := store.ResultKey(sessionID, queryText)
	if err := s.sessions.PutResult(ctx, cacheKey, entry); err != nil {
		s.log.Warn("resolver", "failed to write result cache", map[string]interface{}{
			"session_id": sessionID,
			"error":      err.Error(),
		})
	}

	if s.publisher == nil {
		return
	}
	payload, err := json.Marshal(dto.PublishResolutionMessage{
		SessionId:   sessionID,
		QueryText:   queryText,
		Outcome:     string(entry.Outcome),
		ServiceName: entry.ServiceName,
		DurationMs:  response.DurationMs,
		FromCache:   response.FromCache,
	})
	if err != nil {
		return
	}
	if err := s.publisher.Publish(ctx, payload); err != nil {
		s.log.Warn("resolver", "failed to publish resolution event", map[string]interface{}{
			"session_id": sessionID,
			"error":      err.Error(),
		})
	}
}

// publishFailure emits the failed-resolution event so the audit trail and
// the external bus see hard failures, not only completed turns.
func (s *resolverService) publishFailure(ctx context.Context, sessionID, queryText string, cause error) {
	if s.publisher == nil {
		return
	}
	payload, err := json.Marshal(dto.PublishResolutionMessage{
		SessionId: sessionID,
		QueryText: queryText,
		Failed:    true,
		Reason:    cause.Error(),
	})
	if err != nil {
		return
	}
	if err := s.publisher.Publish(ctx, payload); err != nil {
		s.log.Warn("resolver", "failed to publish failure event", map[string]interface{}{
			"session_id": sessionID,
			"error":      err.Error(),
		})
	}
}

func cachedResponse(entry *store.CacheEntry, elapsed time.Duration) *dto.ResolveResponse {
	response := &dto.ResolveResponse{
		Resolved:   entry.Outcome == store.OutcomeResolved,
		Options:    entry.Options,
		FromCache:  true,
		DurationMs: elapsed.Milliseconds(),
	}
	if response.Options == nil {
		response.Options = []string{}
	}
	if entry.ServiceName != "" {
		name := entry.ServiceName
		response.ServiceName = &name
	}
	if entry.FollowUpPrompt != "" {
		prompt := entry.FollowUpPrompt
		response.FollowUpPrompt = &prompt
	}
	return response
}

func outcomeOf(response *dto.ResolveResponse) store.Outcome {
	switch {
	case response.Resolved:
		return store.OutcomeResolved
	case response.FollowUpPrompt != nil:
		return store.OutcomeNeedsFollowUp
	default:
		return store.OutcomeNoMatch
	}
}
