package service

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"service-resolver-be/internal/dto"
	"service-resolver-be/internal/pkg/logger"
	"service-resolver-be/pkg/resolve/disambig"
	"service-resolver-be/pkg/resolve/executor"
	"service-resolver-be/pkg/store"
)

type fakePipeline struct {
	resolution *executor.Resolution
	err        error
	calls      int
}

func (f *fakePipeline) Run(_ context.Context, _ string) (*executor.Resolution, error) {
	f.calls++
	return f.resolution, f.err
}

type fakeUpstream struct {
	handle string
	err    error
	calls  int

	answer     string
	chatErr    error
	chatCalls  int
	lastHandle string
}

func (f *fakeUpstream) CreateConversation(_ context.Context) (string, error) {
	f.calls++
	return f.handle, f.err
}

func (f *fakeUpstream) ChatQuery(_ context.Context, conversationID, _ string) (string, error) {
	f.chatCalls++
	f.lastHandle = conversationID
	return f.answer, f.chatErr
}

type fakePublisher struct {
	payloads [][]byte
}

func (f *fakePublisher) Publish(_ context.Context, payload []byte) error {
	f.payloads = append(f.payloads, payload)
	return nil
}

type fakeAlerts struct {
	reasons []string
}

func (f *fakeAlerts) RecordFailure(reason string) {
	f.reasons = append(f.reasons, reason)
}

type nopLogger struct{}

func (nopLogger) Debug(string, string, map[string]interface{}) {}
func (nopLogger) Info(string, string, map[string]interface{})  {}
func (nopLogger) Warn(string, string, map[string]interface{})  {}
func (nopLogger) Error(string, string, map[string]interface{}) {}
func (nopLogger) Sync() error                                  { return nil }
func (nopLogger) GetLogs(string, int, int) ([]logger.LogEntry, error) {
	return nil, nil
}
func (nopLogger) GetLogById(string) (*logger.LogEntry, error) { return nil, nil }

func newService(pipeline *fakePipeline, sessions store.SessionStore, up *fakeUpstream, alerts *fakeAlerts) IResolverService {
	var gateway ConversationGateway
	if up != nil {
		gateway = up
	}
	return NewResolverService(pipeline, sessions, gateway, nil, alerts, nopLogger{})
}

func resolvedResolution(name string) *executor.Resolution {
	return &executor.Resolution{Kind: disambig.KindResolved, ServiceName: name}
}

func followUpResolution(options ...string) *executor.Resolution {
	return &executor.Resolution{
		Kind:           disambig.KindNeedsFollowUp,
		FollowUpPrompt: disambig.BuildFollowUpPrompt(options),
		Options:        options,
	}
}

func TestResolveRejectsBlankInput(t *testing.T) {
	svc := newService(&fakePipeline{}, store.NewMemoryStore(time.Hour, time.Minute), nil, &fakeAlerts{})

	for _, req := range []*dto.ResolveRequest{
		{SessionId: "", QueryText: "办护照"},
		{SessionId: "sess", QueryText: "   "},
	} {
		_, err := svc.Resolve(context.Background(), req)
		if !errors.Is(err, executor.ErrInvalidInput) {
			t.Errorf("Resolve(%+v) error = %v, want ErrInvalidInput", req, err)
		}
	}
}

func TestResolveSingleMatch(t *testing.T) {
	pipeline := &fakePipeline{resolution: resolvedResolution("住房公积金异地转移")}
	svc := newService(pipeline, store.NewMemoryStore(time.Hour, time.Minute), nil, &fakeAlerts{})

	resp, err := svc.Resolve(context.Background(), &dto.ResolveRequest{
		SessionId: "sess-1",
		QueryText: "公积金二手房贷款如何办理",
	})
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if !resp.Resolved || resp.ServiceName == nil || *resp.ServiceName != "住房公积金异地转移" {
		t.Errorf("resp = %+v, want resolved service", resp)
	}
	if resp.FollowUpPrompt != nil {
		t.Errorf("FollowUpPrompt = %v, want nil", *resp.FollowUpPrompt)
	}
	if len(resp.Options) != 0 {
		t.Errorf("Options = %v, want empty", resp.Options)
	}
	if resp.FromCache {
		t.Error("FromCache = true on first request")
	}
}

func TestResolveSecondIdenticalRequestIsCached(t *testing.T) {
	pipeline := &fakePipeline{resolution: resolvedResolution("残疾证办理")}
	svc := newService(pipeline, store.NewMemoryStore(time.Hour, time.Minute), nil, &fakeAlerts{})
	req := &dto.ResolveRequest{SessionId: "sess-2", QueryText: "办残疾证"}

	first, err := svc.Resolve(context.Background(), req)
	if err != nil {
		t.Fatalf("first Resolve() error = %v", err)
	}
	second, err := svc.Resolve(context.Background(), req)
	if err != nil {
		t.Fatalf("second Resolve() error = %v", err)
	}

	if pipeline.calls != 1 {
		t.Errorf("pipeline ran %d times, want 1", pipeline.calls)
	}
	if !second.FromCache {
		t.Error("second response FromCache = false")
	}
	if *first.ServiceName != *second.ServiceName {
		t.Errorf("cached answer diverged: %q vs %q", *first.ServiceName, *second.ServiceName)
	}
}

func TestResolveFollowUpRoundTrip(t *testing.T) {
	pipeline := &fakePipeline{resolution: followUpResolution("残疾证办理", "营业执照办理")}
	sessions := store.NewMemoryStore(time.Hour, time.Minute)
	svc := newService(pipeline, sessions, nil, &fakeAlerts{})

	first, err := svc.Resolve(context.Background(), &dto.ResolveRequest{
		SessionId: "sess-3",
		QueryText: "怎么办证",
	})
	if err != nil {
		t.Fatalf("first turn error = %v", err)
	}
	if first.Resolved || first.FollowUpPrompt == nil {
		t.Fatalf("first turn = %+v, want follow-up", first)
	}
	if !strings.Contains(*first.FollowUpPrompt, "1. 残疾证办理") {
		t.Errorf("prompt = %q", *first.FollowUpPrompt)
	}

	second, err := svc.Resolve(context.Background(), &dto.ResolveRequest{
		SessionId: "sess-3",
		QueryText: "2",
	})
	if err != nil {
		t.Fatalf("second turn error = %v", err)
	}
	if !second.Resolved || second.ServiceName == nil || *second.ServiceName != "营业执照办理" {
		t.Errorf("second turn = %+v, want 营业执照办理 resolved", second)
	}
	if pipeline.calls != 1 {
		t.Errorf("pipeline ran %d times, want 1 (reply consumed from session)", pipeline.calls)
	}

	// Terminal outcome clears the pending state.
	session, err := sessions.GetSession(context.Background(), "sess-3")
	if err != nil {
		t.Fatalf("GetSession() error = %v", err)
	}
	if session.HasPendingFollowUp() {
		t.Error("pending follow-up not cleared after choice")
	}
}

func TestResolveInvalidChoiceReprompts(t *testing.T) {
	pipeline := &fakePipeline{resolution: followUpResolution("残疾证办理", "营业执照办理")}
	svc := newService(pipeline, store.NewMemoryStore(time.Hour, time.Minute), nil, &fakeAlerts{})

	first, err := svc.Resolve(context.Background(), &dto.ResolveRequest{
		SessionId: "sess-4",
		QueryText: "怎么办证",
	})
	if err != nil {
		t.Fatalf("first turn error = %v", err)
	}

	second, err := svc.Resolve(context.Background(), &dto.ResolveRequest{
		SessionId: "sess-4",
		QueryText: "9",
	})
	if err != nil {
		t.Fatalf("second turn error = %v", err)
	}
	if second.Resolved {
		t.Error("invalid choice resolved")
	}
	if second.FollowUpPrompt == nil || *second.FollowUpPrompt != *first.FollowUpPrompt {
		t.Error("invalid choice did not re-issue the same prompt")
	}

	// The pending state survives, a valid reply still works.
	third, err := svc.Resolve(context.Background(), &dto.ResolveRequest{
		SessionId: "sess-4",
		QueryText: "1",
	})
	if err != nil {
		t.Fatalf("third turn error = %v", err)
	}
	if !third.Resolved || *third.ServiceName != "残疾证办理" {
		t.Errorf("third turn = %+v, want 残疾证办理", third)
	}
}

func TestResolvePipelineFailureRecordsAlert(t *testing.T) {
	pipeline := &fakePipeline{err: executor.ErrIndexUnavailable}
	alerts := &fakeAlerts{}
	svc := newService(pipeline, store.NewMemoryStore(time.Hour, time.Minute), nil, alerts)

	_, err := svc.Resolve(context.Background(), &dto.ResolveRequest{
		SessionId: "sess-5",
		QueryText: "办护照",
	})
	if !errors.Is(err, executor.ErrIndexUnavailable) {
		t.Fatalf("error = %v, want ErrIndexUnavailable", err)
	}
	if len(alerts.reasons) != 1 {
		t.Errorf("alerts recorded = %d, want 1", len(alerts.reasons))
	}
}

func TestResolveCreatesUpstreamHandleLazily(t *testing.T) {
	pipeline := &fakePipeline{resolution: resolvedResolution("残疾证办理")}
	sessions := store.NewMemoryStore(time.Hour, time.Minute)
	up := &fakeUpstream{handle: "conv-1"}
	svc := newService(pipeline, sessions, up, &fakeAlerts{})

	_, err := svc.Resolve(context.Background(), &dto.ResolveRequest{
		SessionId: "sess-6",
		QueryText: "办残疾证",
	})
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if up.calls != 1 {
		t.Errorf("upstream calls = %d, want 1", up.calls)
	}

	session, err := sessions.GetSession(context.Background(), "sess-6")
	if err != nil {
		t.Fatalf("GetSession() error = %v", err)
	}
	if session.UpstreamHandle != "conv-1" {
		t.Errorf("UpstreamHandle = %q, want conv-1", session.UpstreamHandle)
	}

	// Second turn reuses the persisted handle.
	_, err = svc.Resolve(context.Background(), &dto.ResolveRequest{
		SessionId: "sess-6",
		QueryText: "别的问题",
	})
	if err != nil {
		t.Fatalf("second Resolve() error = %v", err)
	}
	if up.calls != 1 {
		t.Errorf("upstream calls = %d, want handle reused", up.calls)
	}
}

func TestResolveUpstreamFailureIsSoft(t *testing.T) {
	pipeline := &fakePipeline{resolution: resolvedResolution("残疾证办理")}
	up := &fakeUpstream{err: errors.New("gateway down")}
	svc := newService(pipeline, store.NewMemoryStore(time.Hour, time.Minute), up, &fakeAlerts{})

	resp, err := svc.Resolve(context.Background(), &dto.ResolveRequest{
		SessionId: "sess-7",
		QueryText: "办残疾证",
	})
	if err != nil {
		t.Fatalf("Resolve() error = %v, want soft upstream failure", err)
	}
	if !resp.Resolved {
		t.Error("resolution blocked by upstream failure")
	}
}

func TestResolveNoMatch(t *testing.T) {
	pipeline := &fakePipeline{resolution: &executor.Resolution{Kind: disambig.KindNoMatch}}
	svc := newService(pipeline, store.NewMemoryStore(time.Hour, time.Minute), nil, &fakeAlerts{})

	resp, err := svc.Resolve(context.Background(), &dto.ResolveRequest{
		SessionId: "sess-8",
		QueryText: "完全无关的问题",
	})
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if resp.Resolved || resp.ServiceName != nil || resp.FollowUpPrompt != nil {
		t.Errorf("resp = %+v, want bare no-match", resp)
	}
}

func TestResolveCachedFollowUpRearmsPendingChoice(t *testing.T) {
	pipeline := &fakePipeline{resolution: followUpResolution("残疾证办理", "营业执照办理")}
	svc := newService(pipeline, store.NewMemoryStore(time.Hour, time.Minute), nil, &fakeAlerts{})

	// Turn 1 arms the follow-up, turn 2 consumes it.
	if _, err := svc.Resolve(context.Background(), &dto.ResolveRequest{SessionId: "sess-10", QueryText: "怎么办证"}); err != nil {
		t.Fatalf("first turn error = %v", err)
	}
	second, err := svc.Resolve(context.Background(), &dto.ResolveRequest{SessionId: "sess-10", QueryText: "2"})
	if err != nil {
		t.Fatalf("second turn error = %v", err)
	}
	if !second.Resolved || *second.ServiceName != "营业执照办理" {
		t.Fatalf("second turn = %+v, want 营业执照办理", second)
	}

	// Turn 3 replays the original query from the result cache.
	third, err := svc.Resolve(context.Background(), &dto.ResolveRequest{SessionId: "sess-10", QueryText: "怎么办证"})
	if err != nil {
		t.Fatalf("third turn error = %v", err)
	}
	if !third.FromCache || third.FollowUpPrompt == nil {
		t.Fatalf("third turn = %+v, want cached follow-up", third)
	}

	// The cached prompt must leave the session awaiting a choice: turn 4's
	// numeric reply selects an option instead of running a fresh query.
	fourth, err := svc.Resolve(context.Background(), &dto.ResolveRequest{SessionId: "sess-10", QueryText: "1"})
	if err != nil {
		t.Fatalf("fourth turn error = %v", err)
	}
	if !fourth.Resolved || fourth.ServiceName == nil || *fourth.ServiceName != "残疾证办理" {
		t.Errorf("fourth turn = %+v, want 残疾证办理 resolved", fourth)
	}
	if pipeline.calls != 1 {
		t.Errorf("pipeline ran %d times, want 1", pipeline.calls)
	}
}

func TestResolveNoMatchConsultsUpstream(t *testing.T) {
	pipeline := &fakePipeline{resolution: &executor.Resolution{Kind: disambig.KindNoMatch}}
	up := &fakeUpstream{handle: "conv-9", answer: "“业务主项”：残疾证办理，“追问问题”：空"}
	svc := newService(pipeline, store.NewMemoryStore(time.Hour, time.Minute), up, &fakeAlerts{})

	resp, err := svc.Resolve(context.Background(), &dto.ResolveRequest{
		SessionId: "sess-11",
		QueryText: "证件怎么弄",
	})
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if !resp.Resolved || resp.ServiceName == nil || *resp.ServiceName != "残疾证办理" {
		t.Errorf("resp = %+v, want upstream-resolved 残疾证办理", resp)
	}
	if up.chatCalls != 1 {
		t.Errorf("upstream queried %d times, want 1", up.chatCalls)
	}
	if up.lastHandle != "conv-9" {
		t.Errorf("queried handle = %q, want conv-9", up.lastHandle)
	}
}

func TestResolveUpstreamFollowUpQuestionHasNoOptions(t *testing.T) {
	pipeline := &fakePipeline{resolution: &executor.Resolution{Kind: disambig.KindNoMatch}}
	up := &fakeUpstream{handle: "conv-12", answer: "“业务主项”：空，“追问问题”：请问您要办理哪类证件"}
	sessions := store.NewMemoryStore(time.Hour, time.Minute)
	svc := newService(pipeline, sessions, up, &fakeAlerts{})

	resp, err := svc.Resolve(context.Background(), &dto.ResolveRequest{
		SessionId: "sess-12",
		QueryText: "证件怎么弄",
	})
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if resp.FollowUpPrompt == nil || *resp.FollowUpPrompt != "请问您要办理哪类证件" {
		t.Fatalf("resp = %+v, want upstream follow-up question", resp)
	}
	if len(resp.Options) != 0 {
		t.Errorf("Options = %v, want none for a free-text question", resp.Options)
	}

	// A free-text question carries nothing a numeric reply could select,
	// so the session must not be left awaiting a choice.
	session, err := sessions.GetSession(context.Background(), "sess-12")
	if err != nil {
		t.Fatalf("GetSession() error = %v", err)
	}
	if session.HasPendingFollowUp() {
		t.Error("pending follow-up armed without options")
	}
}

func TestResolveUpstreamChatFailureKeepsNoMatch(t *testing.T) {
	pipeline := &fakePipeline{resolution: &executor.Resolution{Kind: disambig.KindNoMatch}}
	up := &fakeUpstream{handle: "conv-13", chatErr: errors.New("gateway down")}
	svc := newService(pipeline, store.NewMemoryStore(time.Hour, time.Minute), up, &fakeAlerts{})

	resp, err := svc.Resolve(context.Background(), &dto.ResolveRequest{
		SessionId: "sess-13",
		QueryText: "证件怎么弄",
	})
	if err != nil {
		t.Fatalf("Resolve() error = %v, want soft upstream failure", err)
	}
	if resp.Resolved || resp.ServiceName != nil || resp.FollowUpPrompt != nil {
		t.Errorf("resp = %+v, want bare no-match", resp)
	}
}

func TestResolvePipelineFailurePublishesFailureEvent(t *testing.T) {
	pipeline := &fakePipeline{err: executor.ErrIndexUnavailable}
	publisher := &fakePublisher{}
	svc := NewResolverService(pipeline, store.NewMemoryStore(time.Hour, time.Minute), nil, publisher, &fakeAlerts{}, nopLogger{})

	_, err := svc.Resolve(context.Background(), &dto.ResolveRequest{
		SessionId: "sess-14",
		QueryText: "办护照",
	})
	if !errors.Is(err, executor.ErrIndexUnavailable) {
		t.Fatalf("error = %v, want ErrIndexUnavailable", err)
	}

	if len(publisher.payloads) != 1 {
		t.Fatalf("published %d messages, want 1 failure event", len(publisher.payloads))
	}
	var msg dto.PublishResolutionMessage
	if err := json.Unmarshal(publisher.payloads[0], &msg); err != nil {
		t.Fatalf("unmarshal payload: %v", err)
	}
	if !msg.Failed || msg.SessionId != "sess-14" || msg.Reason == "" {
		t.Errorf("payload = %+v, want failed message with reason", msg)
	}
}

func TestResolveNormalizesDashesInAugmentedText(t *testing.T) {
	pipeline := &fakePipeline{resolution: &executor.Resolution{
		Kind:        disambig.KindResolved,
		ServiceName: "残疾证办理",
		Augmented:   "请前往市民服务中心-三楼办理",
	}}
	svc := newService(pipeline, store.NewMemoryStore(time.Hour, time.Minute), nil, &fakeAlerts{})

	resp, err := svc.Resolve(context.Background(), &dto.ResolveRequest{
		SessionId: "sess-9",
		QueryText: "办残疾证",
	})
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if strings.Contains(resp.Augmented, "-") {
		t.Errorf("Augmented = %q, want dashes normalized", resp.Augmented)
	}
}
