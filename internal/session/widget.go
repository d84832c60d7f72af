package session

import (
	"context"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"mindful-assistant/internal/prompt"
)

const (
	// ErrorReply is the bot entry appended when a submission fails.
	ErrorReply      = "Sorry, there was an error."
	MoodNotProvided = "Mood not provided"

	DefaultMeditationVideo = "https://www.youtube.com/embed/YourMeditationVideoID"
)

type WidgetOptions struct {
	// MeditationVideo is the embed URL shown with the meditation suggestion.
	MeditationVideo string
	// MaxTranscript bounds the transcript; zero keeps everything.
	MaxTranscript int
}

// Widget is the floating chatbot: a running transcript, an optional mood, and
// a meditation suggestion raised by replies that mention relaxing or stress.
type Widget struct {
	mu         sync.Mutex
	id         string
	gw         Completer
	tmpl       prompt.Template
	video      string
	transcript *Transcript

	draft      string
	mood       string
	loading    bool
	phase      Phase
	lastErr    string
	meditation bool
}

func NewWidget(gw Completer, tmpl prompt.Template, opts WidgetOptions) *Widget {
	video := opts.MeditationVideo
	if video == "" {
		video = DefaultMeditationVideo
	}
	return &Widget{
		id:         uuid.NewString(),
		gw:         gw,
		tmpl:       tmpl,
		video:      video,
		transcript: NewTranscript(opts.MaxTranscript),
	}
}

func (w *Widget) ID() string { return w.id }

// SetDraft behaves like Assistant.SetDraft.
func (w *Widget) SetDraft(text string) string {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.loading {
		w.draft = capDraft(text, MaxDraftRunes)
	}
	return w.draft
}

func (w *Widget) Draft() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.draft
}

// SetMood sets the mood label sent with every following submission.
func (w *Widget) SetMood(mood string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.mood = mood
}

func (w *Widget) Loading() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.loading
}

func (w *Widget) Phase() Phase {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.phase
}

// LastError is the most recent failure, for logging; the widget shows
// ErrorReply in the transcript instead.
func (w *Widget) LastError() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.lastErr
}

func (w *Widget) Transcript() []Entry { return w.transcript.Entries() }

func (w *Widget) MeditationVisible() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.meditation
}

// DismissMeditation is the only way the suggestion is cleared.
func (w *Widget) DismissMeditation() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.meditation = false
}

func (w *Widget) MeditationVideo() string { return w.video }

// Submit appends the user's message, sends it with the mood context, and
// appends the bot's reply (or ErrorReply). The draft is cleared only on
// success.
func (w *Widget) Submit(ctx context.Context) error {
	w.mu.Lock()
	if w.loading {
		w.mu.Unlock()
		return ErrBusy
	}
	text := w.draft
	if blank(text) {
		w.mu.Unlock()
		return ErrEmptyDraft
	}
	req := w.tmpl.Build(text)
	req.Mood = moodContext(w.mood)
	w.loading = true
	w.phase = Submitting
	w.lastErr = ""
	w.transcript.Append(Entry{Speaker: User, Text: text})
	w.mu.Unlock()

	res, err := w.gw.Complete(ctx, req)

	w.mu.Lock()
	defer w.mu.Unlock()
	w.loading = false
	if err != nil {
		log.Warn().Err(err).Str("session", w.id).Msg("[widget] submission failed")
		w.phase = Failed
		w.lastErr = errorText(err)
		w.transcript.Append(Entry{Speaker: Bot, Text: ErrorReply})
		return err
	}
	reply := prompt.ParseAdvice(res.Result)
	w.transcript.Append(Entry{Speaker: Bot, Text: reply})
	if ShouldSuggestMeditation(reply) {
		w.meditation = true
	}
	w.phase = Resolved
	w.draft = ""
	return nil
}

func moodContext(mood string) string {
	mood = strings.TrimSpace(mood)
	if mood == "" {
		return MoodNotProvided
	}
	return "Mood: " + mood
}
