package session

import "sync"

type Speaker int

const (
	User Speaker = iota
	Bot
)

func (s Speaker) String() string {
	if s == Bot {
		return "Bot"
	}
	return "User"
}

type Entry struct {
	Speaker Speaker
	Text    string
}

// String renders the entry the way the widget displays it, e.g. "Bot: Hi".
func (e Entry) String() string {
	return e.Speaker.String() + ": " + e.Text
}

// Transcript is an append-only, insertion-ordered list of entries. When
// maxEntries > 0 only the newest maxEntries are kept.
type Transcript struct {
	mu         sync.RWMutex
	entries    []Entry
	maxEntries int
}

func NewTranscript(maxEntries int) *Transcript {
	return &Transcript{maxEntries: maxEntries}
}

func (t *Transcript) Append(e Entry) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.entries = append(t.entries, e)
	t.trimLocked()
}

// Entries returns a copy in display order.
func (t *Transcript) Entries() []Entry {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]Entry, len(t.entries))
	copy(out, t.entries)
	return out
}

func (t *Transcript) trimLocked() {
	if t.maxEntries <= 0 {
		return
	}
	if len(t.entries) > t.maxEntries {
		t.entries = t.entries[len(t.entries)-t.maxEntries:]
	}
}
