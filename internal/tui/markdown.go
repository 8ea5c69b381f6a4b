package tui

import (
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/rs/zerolog/log"

	"agentchat/internal/session"
)

// markdownRenderer renders message bodies, rebuilding the glamour renderer
// when the wrap width changes. A nil renderer falls back to plain wrapping.
type markdownRenderer struct {
	enabled  bool
	width    int
	renderer *glamour.TermRenderer
}

func newMarkdownRenderer(enabled bool) *markdownRenderer {
	return &markdownRenderer{enabled: enabled}
}

func (r *markdownRenderer) Render(text string, width int) string {
	width = maxInt(20, width)
	if !r.enabled {
		return wrapText(text, width)
	}
	if r.renderer == nil || r.width != width {
		renderer, err := glamour.NewTermRenderer(
			glamour.WithStandardStyle("dark"),
			glamour.WithWordWrap(width),
		)
		if err != nil {
			log.Warn().Err(err).Msg("markdown renderer unavailable")
			r.enabled = false
			return wrapText(text, width)
		}
		r.renderer = renderer
		r.width = width
	}
	out, err := r.renderer.Render(text)
	if err != nil {
		log.Debug().Err(err).Msg("markdown render failed")
		return wrapText(text, width)
	}
	return strings.Trim(out, "\n")
}

type renderedBody struct {
	role    session.Role
	content string
	body    string
}

// bodyCache keeps the rendered bodies of recorded messages for one wrap
// width. Recorded messages never change, so a redraw renders only the
// messages appended since the last one.
type bodyCache struct {
	width   int
	entries []renderedBody
}

func (c *bodyCache) Bodies(r *markdownRenderer, messages []session.Message, width int) []string {
	if c.width != width {
		c.width = width
		c.entries = c.entries[:0]
	}
	out := make([]string, len(messages))
	for i, msg := range messages {
		if i < len(c.entries) && c.entries[i].role == msg.Role && c.entries[i].content == msg.Content {
			out[i] = c.entries[i].body
			continue
		}
		c.entries = c.entries[:i]
		out[i] = r.Render(msg.Content, width)
		c.entries = append(c.entries, renderedBody{role: msg.Role, content: msg.Content, body: out[i]})
	}
	c.entries = c.entries[:len(messages)]
	return out
}
