package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"mindful-assistant/internal/session"
)

const (
	cmdQuit    = ":quit"
	cmdMood    = ":mood"
	cmdClose   = ":close"
	cmdHistory = ":history"
)

// readLines feeds each non-empty input line to handle until input ends,
// handle returns stop, or ctx is cancelled. Cancellation is observed while
// waiting for input, so an interrupt at the prompt exits immediately.
func readLines(ctx context.Context, in io.Reader, out io.Writer, handle func(line string) (stop bool)) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	lines := make(chan string)
	scanErr := make(chan error, 1)
	go func() {
		defer close(lines)
		sc := bufio.NewScanner(in)
		for sc.Scan() {
			select {
			case lines <- sc.Text():
			case <-ctx.Done():
				return
			}
		}
		scanErr <- sc.Err()
	}()

	for {
		fmt.Fprint(out, "> ")
		select {
		case <-ctx.Done():
			fmt.Fprintln(out)
			return nil
		case raw, ok := <-lines:
			if !ok {
				fmt.Fprintln(out)
				select {
				case err := <-scanErr:
					return err
				default:
					return nil
				}
			}
			line := strings.TrimSpace(raw)
			if line == "" {
				continue
			}
			if line == cmdQuit || handle(line) {
				return nil
			}
		}
	}
}

func warnTruncated(out io.Writer, line, kept string) {
	if utf8.RuneCountInString(line) > utf8.RuneCountInString(kept) {
		fmt.Fprintf(out, "(message shortened to %d characters)\n", session.MaxDraftRunes)
	}
}

func runAssistant(ctx context.Context, a *session.Assistant, in io.Reader, out io.Writer) error {
	fmt.Fprintln(out, "Mental Health Assistant. Type a question, or :quit to leave.")
	fmt.Fprintln(out, emergencyNotice)

	return readLines(ctx, in, out, func(line string) bool {
		if strings.HasPrefix(line, ":") {
			fmt.Fprintf(out, "unknown command %q\n", line)
			return false
		}
		warnTruncated(out, line, a.SetDraft(line))
		fmt.Fprintln(out, "Generating...")
		if err := a.Submit(ctx); err != nil {
			if errors.Is(err, session.ErrEmptyDraft) || errors.Is(err, session.ErrBusy) {
				return false
			}
			fmt.Fprintf(out, "Error: %s\n", a.State().Err)
			return false
		}
		st := a.State()
		fmt.Fprintf(out, "Response for %q:\n%s\n", st.Query, st.Reply)
		return false
	})
}

func runWidget(ctx context.Context, w *session.Widget, in io.Reader, out io.Writer) error {
	fmt.Fprintln(out, "Mental Health Chatbot. Commands: :mood <how you feel>, :history, :close, :quit")
	fmt.Fprintln(out, emergencyNotice)

	shown := false
	return readLines(ctx, in, out, func(line string) bool {
		switch {
		case line == cmdHistory:
			for _, e := range w.Transcript() {
				fmt.Fprintln(out, e.String())
			}
			return false
		case line == cmdClose:
			w.DismissMeditation()
			shown = false
			return false
		case line == cmdMood || strings.HasPrefix(line, cmdMood+" "):
			mood := strings.TrimSpace(strings.TrimPrefix(line, cmdMood))
			w.SetMood(mood)
			if mood == "" {
				fmt.Fprintln(out, "Mood cleared.")
			} else {
				fmt.Fprintf(out, "Mood set to %q.\n", mood)
			}
			return false
		case strings.HasPrefix(line, ":"):
			fmt.Fprintf(out, "unknown command %q\n", line)
			return false
		}

		warnTruncated(out, line, w.SetDraft(line))
		if err := w.Submit(ctx); errors.Is(err, session.ErrEmptyDraft) || errors.Is(err, session.ErrBusy) {
			return false
		}
		if tr := w.Transcript(); len(tr) > 0 {
			fmt.Fprintln(out, tr[len(tr)-1].String())
		}
		if w.MeditationVisible() && !shown {
			shown = true
			fmt.Fprintln(out, "Guided Meditation: take a deep breath and relax with this meditation session.")
			fmt.Fprintf(out, "  %s\n  (type %s to close)\n", w.MeditationVideo(), cmdClose)
		}
		return false
	})
}
