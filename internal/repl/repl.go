// Package repl is the line oriented front end used when the terminal cannot
// host the full screen UI.
package repl

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"unicode"

	"github.com/atotto/clipboard"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"agentchat/internal/chat"
)

const helpText = `Commands:
  /reset        clear the conversation
  /export       write chat_history.json to the export directory
  /copy         copy the conversation as JSON to the clipboard
  /temp [0..1]  show or set the temperature
  /history      print the conversation
  /help         show this help
  /quit         leave
Start a message with // to send a line that begins with a command word.`

type Options struct {
	ExportDir string
	Prompt    string
	// Clipboard receives the exported transcript on /copy. Defaults to the
	// system clipboard.
	Clipboard func(text string) error
}

type REPL struct {
	loop *chat.Loop
	in   *bufio.Scanner
	out  io.Writer
	opts Options
}

func New(loop *chat.Loop, in io.Reader, out io.Writer, opts Options) *REPL {
	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	if opts.Clipboard == nil {
		opts.Clipboard = clipboard.WriteAll
	}
	if opts.Prompt == "" {
		opts.Prompt = "you> "
	}
	return &REPL{loop: loop, in: scanner, out: out, opts: opts}
}

// Run reads lines until EOF, /quit or ctx is done. Gateway failures are
// printed and do not end the loop.
func (r *REPL) Run(ctx context.Context) error {
	done := make(chan struct{})
	defer close(done)
	lines, readErr := r.readLines(done)

	for {
		fmt.Fprint(r.out, r.opts.Prompt)
		var line string
		select {
		case <-ctx.Done():
			fmt.Fprintln(r.out)
			return nil
		case text, ok := <-lines:
			if !ok {
				fmt.Fprintln(r.out)
				if err := <-readErr; err != nil {
					return errors.Wrap(err, "read input")
				}
				return nil
			}
			line = text
		}
		// a line racing with cancellation is dropped
		if ctx.Err() != nil {
			fmt.Fprintln(r.out)
			return nil
		}
		if fields := strings.Fields(line); len(fields) > 0 && isCommand(fields[0]) {
			if quit := r.handleSlash(line); quit {
				return nil
			}
			continue
		}
		r.turn(ctx, unescape(line))
	}
}

// readLines scans the input on its own goroutine so that Run can wait on
// the context as well. A goroutine blocked in Scan exits once the input is
// closed.
func (r *REPL) readLines(done <-chan struct{}) (<-chan string, <-chan error) {
	lines := make(chan string)
	readErr := make(chan error, 1)
	go func() {
		defer close(lines)
		for r.in.Scan() {
			select {
			case lines <- r.in.Text():
			case <-done:
				return
			}
		}
		readErr <- r.in.Err()
	}()
	return lines, readErr
}

func (r *REPL) turn(ctx context.Context, text string) {
	shown := 0
	started := false
	onFrame := func(frame string) {
		if !started {
			fmt.Fprint(r.out, "bot> ")
			started = true
		}
		fmt.Fprint(r.out, frame[shown:])
		shown = len(frame)
	}
	reply, submitted, err := r.loop.RunTurn(ctx, text, onFrame)
	if err != nil {
		if started {
			fmt.Fprintln(r.out)
		}
		fmt.Fprintf(r.out, "error: %v\n", err)
		if submitted {
			fmt.Fprintln(r.out, "Your message was kept. Send it again to retry.")
		}
		return
	}
	if !submitted {
		return
	}
	if !started {
		fmt.Fprint(r.out, "bot> ")
		if reply == "" {
			fmt.Fprint(r.out, "(empty reply)")
		}
	}
	fmt.Fprintln(r.out)
}

var commands = map[string]bool{
	"/help": true, "/quit": true, "/exit": true, "/reset": true, "/export": true,
	"/copy": true, "/temp": true, "/temperature": true, "/history": true,
}

// isCommand reports whether word names a command. Other lines starting with
// a slash are sent to the agent.
func isCommand(word string) bool {
	return commands[strings.ToLower(word)]
}

// unescape strips one slash from a line starting with "//" so that a
// message can begin with a command word.
func unescape(line string) string {
	trimmed := strings.TrimLeftFunc(line, unicode.IsSpace)
	if strings.HasPrefix(trimmed, "//") {
		return trimmed[1:]
	}
	return line
}

// handleSlash runs a command line and reports whether the session should end.
func (r *REPL) handleSlash(raw string) bool {
	parts := strings.Fields(strings.TrimSpace(raw))
	if len(parts) == 0 {
		return false
	}
	cmd := strings.ToLower(parts[0])
	tail := parts[1:]
	switch cmd {
	case "/help":
		fmt.Fprintln(r.out, helpText)
	case "/quit", "/exit":
		return true
	case "/reset":
		if err := r.loop.Reset(); err != nil {
			fmt.Fprintf(r.out, "reset failed: %v\n", err)
			return false
		}
		fmt.Fprintln(r.out, "chat reset")
	case "/export":
		path, err := r.loop.Export(r.opts.ExportDir)
		if err != nil {
			fmt.Fprintf(r.out, "export failed: %v\n", err)
			return false
		}
		fmt.Fprintf(r.out, "exported %d messages to %s\n", r.loop.Session().Len(), path)
	case "/copy":
		data, err := r.loop.Session().Export()
		if err == nil {
			err = r.opts.Clipboard(string(data))
		}
		if err != nil {
			log.Warn().Err(err).Msg("clipboard copy failed")
			fmt.Fprintf(r.out, "copy failed: %v\n", err)
			return false
		}
		fmt.Fprintf(r.out, "copied %d messages to clipboard\n", r.loop.Session().Len())
	case "/temp", "/temperature":
		if len(tail) == 0 {
			fmt.Fprintf(r.out, "temperature %.1f\n", r.loop.Temperature())
			return false
		}
		value, err := strconv.ParseFloat(tail[0], 64)
		if err != nil || value < chat.MinTemperature || value > chat.MaxTemperature {
			fmt.Fprintf(r.out, "temperature must be a number between %.1f and %.1f\n", chat.MinTemperature, chat.MaxTemperature)
			return false
		}
		r.loop.SetTemperature(value)
		fmt.Fprintf(r.out, "temperature %.1f\n", r.loop.Temperature())
	case "/history":
		messages := r.loop.Session().Messages()
		if len(messages) == 0 {
			fmt.Fprintln(r.out, "(no messages)")
			return false
		}
		for _, msg := range messages {
			fmt.Fprintf(r.out, "[%s] %s\n", msg.Role, msg.Content)
		}
	}
	return false
}
