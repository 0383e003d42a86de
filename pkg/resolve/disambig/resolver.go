package disambig

import (
	"fmt"
	"strconv"
	"strings"

	"service-resolver-be/pkg/index"
)

// Kind tags which variant of a Result is active.
type Kind int

const (
	KindNoMatch Kind = iota
	KindResolved
	KindNeedsFollowUp
)

// Result is the outcome of collapsing ranked candidates. Exactly one
// variant is active: Resolved carries ServiceName, NeedsFollowUp carries
// Prompt and Options, NoMatch carries nothing.
type Result struct {
	Kind          Kind
	ServiceName   string
	Prompt        string
	Options       []string
	RawCandidates []index.Candidate
}

const (
	followUpHeader = "找到多个相关服务，请选择您需要的服务："
	followUpFooter = "请输入对应数字选择服务。"

	// SelectionMarker appears in every follow-up prompt. Downstream
	// consumers use it to detect that a reply should be parsed as a choice.
	SelectionMarker = "请选择您需要的服务"
)

// Resolve collapses ranked candidates into a single resolution. Candidates
// are truncated to limit, then their distinct service names are extracted
// in order of first appearance. Zero names is NoMatch, one is Resolved,
// two or more produce a numbered follow-up prompt.
func Resolve(candidates []index.Candidate, limit int) Result {
	if limit > 0 && len(candidates) > limit {
		candidates = candidates[:limit]
	}

	names := distinctNames(candidates)

	switch len(names) {
	case 0:
		return Result{Kind: KindNoMatch}
	case 1:
		return Result{
			Kind:          KindResolved,
			ServiceName:   names[0],
			RawCandidates: candidates,
		}
	default:
		return Result{
			Kind:          KindNeedsFollowUp,
			Prompt:        BuildFollowUpPrompt(names),
			Options:       names,
			RawCandidates: candidates,
		}
	}
}

// distinctNames keeps the first occurrence of each service name so the
// numbering in the prompt matches the rank order the user would expect.
func distinctNames(candidates []index.Candidate) []string {
	seen := make(map[string]struct{}, len(candidates))
	names := make([]string, 0, len(candidates))
	for _, c := range candidates {
		name := strings.TrimSpace(c.ServiceName)
		if name == "" {
			continue
		}
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		names = append(names, name)
	}
	return names
}

// BuildFollowUpPrompt enumerates the options with 1-based numbering so a
// numeric reply maps back to an option unambiguously.
func BuildFollowUpPrompt(options []string) string {
	var b strings.Builder
	b.WriteString(followUpHeader)
	b.WriteString("\n")
	for i, name := range options {
		b.WriteString(fmt.Sprintf("%d. %s\n", i+1, name))
	}
	b.WriteString(followUpFooter)
	return b.String()
}

// ParseChoice maps a user's follow-up reply onto one of the offered
// options. It accepts a bare number within range; anything else fails and
// the caller should re-prompt.
func ParseChoice(reply string, options []string) (string, bool) {
	trimmed := strings.TrimSpace(reply)
	trimmed = strings.TrimRight(trimmed, ".。、 ")
	if trimmed == "" {
		return "", false
	}

	n, err := strconv.Atoi(trimmed)
	if err != nil {
		return "", false
	}
	if n < 1 || n > len(options) {
		return "", false
	}
	return options[n-1], true
}

// NormalizeDashes rewrites dashes in answer text as spaces before the
// text is shown to the user.
func NormalizeDashes(text string) string {
	if !strings.Contains(text, "-") {
		return text
	}
	return strings.ReplaceAll(text, "-", " ")
}
