package disambig

import (
	"regexp"
	"strings"
)

// AnswerType classifies what an upstream model answer carries.
type AnswerType string

const (
	AnswerBusinessItem AnswerType = "business_item"
	AnswerFollowUp     AnswerType = "follow_up"
	AnswerUnknown      AnswerType = "unknown"
)

// UpstreamAnswer is the structured form of a free-text model answer.
type UpstreamAnswer struct {
	Type    AnswerType
	Content string
}

// The upstream model answers in free text with full-width delimiters, e.g.
// “业务主项”：律师事务所（分所）变更，“追问问题”：空
// The fields stop at the next full-width comma or end of text, and the
// literal 空 means the field is absent.
var (
	businessItemPattern = regexp.MustCompile(`(?m)“业务主项”：(.*?)(?:，|$)`)
	followUpPattern     = regexp.MustCompile(`(?m)“追问问题”：(.*?)(?:，|$)`)
)

const emptySentinel = "空"

// ParseUpstreamAnswer extracts the business item or follow-up question
// from a free-text model answer. A populated business item wins over a
// follow-up question; if neither is present the raw answer is passed
// through as unknown.
func ParseUpstreamAnswer(answer string) UpstreamAnswer {
	businessItem := extractField(businessItemPattern, answer)
	followUp := extractField(followUpPattern, answer)

	if businessItem != "" {
		return UpstreamAnswer{Type: AnswerBusinessItem, Content: businessItem}
	}
	if followUp != "" {
		return UpstreamAnswer{Type: AnswerFollowUp, Content: followUp}
	}
	return UpstreamAnswer{Type: AnswerUnknown, Content: answer}
}

func extractField(pattern *regexp.Regexp, answer string) string {
	match := pattern.FindStringSubmatch(answer)
	if match == nil {
		return ""
	}
	value := strings.TrimSpace(match[1])
	if value == "" || strings.EqualFold(value, emptySentinel) {
		return ""
	}
	return value
}
