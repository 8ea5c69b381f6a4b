// Package reveal replays an already complete reply word by word. The effect
// is cosmetic: the whole text is known before the first frame is shown.
package reveal

import (
	"context"
	"iter"
	"strings"
	"time"
	"unicode"

	tea "github.com/charmbracelet/bubbletea"
)

// Delay is the pause between two frames.
const Delay = 20 * time.Millisecond

// Tokens yields the whitespace separated words of text lazily.
func Tokens(text string) iter.Seq[string] {
	return func(yield func(string) bool) {
		start := -1
		for i, r := range text {
			if unicode.IsSpace(r) {
				if start >= 0 {
					if !yield(text[start:i]) {
						return
					}
					start = -1
				}
				continue
			}
			if start < 0 {
				start = i
			}
		}
		if start >= 0 {
			yield(text[start:])
		}
	}
}

// Frames returns the growing prefixes shown during a reveal. Every token is
// followed by a single space.
func Frames(text string) []string {
	var frames []string
	var b strings.Builder
	for token := range Tokens(text) {
		b.WriteString(token)
		b.WriteByte(' ')
		frames = append(frames, b.String())
	}
	return frames
}

// Play shows every frame of text through onFrame, sleeping delay between
// frames. It blocks until the last frame or until ctx is done.
func Play(ctx context.Context, text string, delay time.Duration, onFrame func(frame string)) error {
	var b strings.Builder
	first := true
	for token := range Tokens(text) {
		if !first && delay > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}
		first = false
		b.WriteString(token)
		b.WriteByte(' ')
		onFrame(b.String())
	}
	return nil
}

// FrameMsg asks the UI to show frame Index of a reveal identified by Turn.
type FrameMsg struct {
	Turn  int
	Index int
}

// TickCmd schedules the next frame of a reveal.
func TickCmd(delay time.Duration, turn, index int) tea.Cmd {
	return tea.Tick(delay, func(time.Time) tea.Msg {
		return FrameMsg{Turn: turn, Index: index}
	})
}
