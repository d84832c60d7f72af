package session

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"mindful-assistant/internal/prompt"
)

// AssistantState is a snapshot of the full-page assistant.
type AssistantState struct {
	Phase Phase
	Draft string
	// Query and Reply are the latest completed exchange.
	Query   string
	Reply   string
	Loading bool
	// Err is the last failure, cleared when the next submission starts.
	Err string
}

// Assistant keeps only the latest query/reply pair.
type Assistant struct {
	mu    sync.Mutex
	id    string
	gw    Completer
	tmpl  prompt.Template
	state AssistantState
}

func NewAssistant(gw Completer, tmpl prompt.Template) *Assistant {
	return &Assistant{id: uuid.NewString(), gw: gw, tmpl: tmpl}
}

func (a *Assistant) ID() string { return a.id }

// SetDraft replaces the draft, truncated to MaxDraftRunes. Edits are ignored
// while a submission is in flight. It returns the draft now held.
func (a *Assistant) SetDraft(text string) string {
	a.mu.Lock()
	defer a.mu.Unlock()
	if !a.state.Loading {
		a.state.Draft = capDraft(text, MaxDraftRunes)
	}
	return a.state.Draft
}

func (a *Assistant) State() AssistantState {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state
}

// Submit sends the current draft and blocks until the gateway answers. On
// success the reply replaces the previous exchange and the draft is cleared;
// on failure Err is set and the draft and previous exchange are kept.
func (a *Assistant) Submit(ctx context.Context) error {
	a.mu.Lock()
	if a.state.Loading {
		a.mu.Unlock()
		return ErrBusy
	}
	query := a.state.Draft
	if blank(query) {
		a.mu.Unlock()
		return ErrEmptyDraft
	}
	a.state.Loading = true
	a.state.Phase = Submitting
	a.state.Err = ""
	a.mu.Unlock()

	res, err := a.gw.Complete(ctx, a.tmpl.Build(query))

	a.mu.Lock()
	defer a.mu.Unlock()
	a.state.Loading = false
	if err != nil {
		log.Warn().Err(err).Str("session", a.id).Msg("[assistant] submission failed")
		a.state.Phase = Failed
		a.state.Err = errorText(err)
		return err
	}
	a.state.Phase = Resolved
	a.state.Query = query
	a.state.Reply = prompt.ParseAdvice(res.Result)
	a.state.Draft = ""
	return nil
}
