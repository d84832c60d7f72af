// Package session holds the client-side state machines behind the two chat
// surfaces: the full-page Assistant, which shows only the latest exchange, and
// the floating Widget, which keeps a running transcript.
//
// Both are safe for concurrent use. At most one submission is in flight per
// session; a second Submit while one is outstanding fails with ErrBusy.
package session

import (
	"context"
	"errors"
	"strings"
	"unicode/utf8"

	"mindful-assistant/internal/types"
)

// MaxDraftRunes caps the draft length.
const MaxDraftRunes = 500

var (
	ErrBusy       = errors.New("session: a submission is already in flight")
	ErrEmptyDraft = errors.New("session: draft is empty")
)

// Completer is satisfied by *client.Client.
type Completer interface {
	Complete(ctx context.Context, req types.PromptRequest) (types.CompletionResult, error)
}

type Phase int

const (
	Idle Phase = iota
	Submitting
	Resolved
	Failed
)

func (p Phase) String() string {
	switch p {
	case Idle:
		return "idle"
	case Submitting:
		return "submitting"
	case Resolved:
		return "resolved"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// capDraft truncates text to max runes; max <= 0 disables the cap.
func capDraft(text string, max int) string {
	if max <= 0 || utf8.RuneCountInString(text) <= max {
		return text
	}
	runes := []rune(text)
	return string(runes[:max])
}

func blank(s string) bool { return strings.TrimSpace(s) == "" }

func errorText(err error) string {
	if msg := err.Error(); msg != "" {
		return msg
	}
	return "An unexpected error occurred while generating the response"
}
