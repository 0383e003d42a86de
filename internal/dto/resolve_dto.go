package dto

// ResolveRequest is one conversational turn: a fresh query, or a numeric
// reply to a pending follow-up prompt on the same session.
type ResolveRequest struct {
	SessionId string `json:"session_id" validate:"required"`
	QueryText string `json:"query_text" validate:"required"`
}

type ResolveResponse struct {
	Resolved       bool     `json:"resolved"`
	ServiceName    *string  `json:"service_name"`
	FollowUpPrompt *string  `json:"follow_up_prompt"`
	Options        []string `json:"options"`
	Augmented      string   `json:"augmented,omitempty"`
	FromCache      bool     `json:"from_cache"`
	DurationMs     int64    `json:"duration_ms"`
}

// PublishResolutionMessage is the event bus payload emitted after each
// resolution turn. Failed carries hard pipeline failures; the outcome
// fields are empty for those.
type PublishResolutionMessage struct {
	SessionId   string `json:"session_id"`
	QueryText   string `json:"query_text"`
	Outcome     string `json:"outcome"`
	ServiceName string `json:"service_name"`
	DurationMs  int64  `json:"duration_ms"`
	FromCache   bool   `json:"from_cache"`
	Failed      bool   `json:"failed,omitempty"`
	Reason      string `json:"reason,omitempty"`
}
