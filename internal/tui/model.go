// Package tui is the terminal front end: a transcript pane, a controls
// sidebar and an input line driven by bubbletea.
package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/rs/zerolog/log"

	"agentchat/internal/chat"
	"agentchat/internal/reveal"
)

type focusArea int

const (
	focusInput focusArea = iota
	focusControls
)

type phase int

const (
	phaseIdle phase = iota
	phaseThinking
	phaseRevealing
)

const (
	controlTemperature = iota
	controlReset
	controlExport
	controlCopy
	controlCount
)

type Options struct {
	Title     string
	ExportDir string
	// Backend is shown in the sidebar only.
	Backend string
	// Markdown renders message bodies through glamour.
	Markdown bool
	// RevealDelay overrides reveal.Delay when positive.
	RevealDelay time.Duration
	// Clipboard receives the exported transcript on copy. Defaults to the
	// system clipboard.
	Clipboard func(text string) error
}

type Model struct {
	ctx  context.Context
	loop *chat.Loop
	opts Options

	phase       phase
	frames      []string
	frameIndex  int
	reply       string
	revealDelay time.Duration

	statusLine   string
	errText      string
	lastExport   string
	focus        focusArea
	controlIndex int
	quitConfirm  bool

	width  int
	height int

	input      textinput.Model
	transcript viewport.Model
	spinner    spinner.Model
	markdown   *markdownRenderer
	bodies     *bodyCache

	theme uiTheme
}

type agentDoneMsg struct {
	turn  int
	reply string
	err   error
}

func New(ctx context.Context, loop *chat.Loop, opts Options) Model {
	input := textinput.New()
	input.Prompt = "❯ "
	input.CharLimit = 0
	input.Placeholder = "Ask me anything..."
	input.Focus()

	sp := spinner.New()
	sp.Spinner = spinner.Points
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("#05ffa1"))

	transcript := viewport.New(0, 0)
	transcript.MouseWheelEnabled = true
	transcript.MouseWheelDelta = 4

	if opts.Clipboard == nil {
		opts.Clipboard = clipboard.WriteAll
	}
	delay := reveal.Delay
	if opts.RevealDelay > 0 {
		delay = opts.RevealDelay
	}

	m := Model{
		ctx:         ctx,
		loop:        loop,
		opts:        opts,
		revealDelay: delay,
		statusLine:  "ready",
		focus:       focusInput,
		width:       100,
		height:      30,
		input:       input,
		transcript:  transcript,
		spinner:     sp,
		markdown:    newMarkdownRenderer(opts.Markdown),
		bodies:      &bodyCache{},
		theme:       newTheme(),
	}
	m.resize()
	m.renderPanes()
	return m
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.spinner.Tick)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd
	switch msg := msg.(type) {
	case agentDoneMsg:
		if msg.turn != m.loop.Turn() || m.phase != phaseThinking {
			break
		}
		if msg.err != nil {
			failed := m.loop.Pending()
			m.loop.Fail(msg.err)
			m.phase = phaseIdle
			m.errText = msg.err.Error()
			m.statusLine = "error: " + compactSingleLine(msg.err.Error(), 160)
			m.input.SetValue(failed)
			m.input.CursorEnd()
			m.input.Focus()
			m.renderPanes()
			break
		}
		m.reply = msg.reply
		m.frames = reveal.Frames(msg.reply)
		if len(m.frames) == 0 {
			m.finishTurn()
			break
		}
		m.phase = phaseRevealing
		m.frameIndex = 0
		m.statusLine = "streaming..."
		m.renderPanes()
		cmds = append(cmds, reveal.TickCmd(m.revealDelay, msg.turn, 1))
	case reveal.FrameMsg:
		if msg.Turn != m.loop.Turn() || m.phase != phaseRevealing {
			break
		}
		if msg.Index >= len(m.frames) {
			m.finishTurn()
			break
		}
		m.frameIndex = msg.Index
		m.renderPanes()
		cmds = append(cmds, reveal.TickCmd(m.revealDelay, msg.Turn, msg.Index+1))
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.resize()
		m.renderPanes()
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		cmds = append(cmds, cmd)
	case tea.MouseMsg:
		if m.quitConfirm {
			break
		}
		var cmd tea.Cmd
		m.transcript, cmd = m.transcript.Update(msg)
		cmds = append(cmds, cmd)
	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, tea.Batch(cmds...)
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()
	if key == "ctrl+c" {
		return m, tea.Quit
	}
	if m.quitConfirm {
		switch key {
		case "y", "Y", "enter":
			return m, tea.Quit
		case "n", "N", "esc":
			m.quitConfirm = false
			m.statusLine = "quit canceled"
		}
		return m, nil
	}

	switch key {
	case "esc":
		m.quitConfirm = true
		return m, nil
	case "pgup", "ctrl+b":
		m.transcript.LineUp(8)
		return m, nil
	case "pgdown", "ctrl+f":
		m.transcript.LineDown(8)
		return m, nil
	case "home":
		m.transcript.GotoTop()
		return m, nil
	case "end":
		m.transcript.GotoBottom()
		return m, nil
	}

	// nothing below is accepted while a turn runs
	if m.loop.Busy() {
		return m, nil
	}

	switch key {
	case "tab", "shift+tab":
		m.toggleFocus()
		return m, nil
	case "ctrl+r":
		m.resetSession()
		return m, nil
	case "ctrl+e":
		m.exportSession()
		return m, nil
	case "ctrl+y":
		m.copySession()
		return m, nil
	}

	if m.focus == focusControls {
		m.handleControlKey(key)
		return m, nil
	}

	if key == "enter" {
		return m.submit()
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *Model) handleControlKey(key string) {
	switch key {
	case "up", "k":
		m.controlIndex = maxInt(0, m.controlIndex-1)
	case "down", "j":
		m.controlIndex = minInt(controlCount-1, m.controlIndex+1)
	case "left", "h", "-":
		if m.controlIndex == controlTemperature {
			m.loop.AdjustTemperature(-1)
			m.statusLine = fmt.Sprintf("temperature %.1f", m.loop.Temperature())
		}
	case "right", "l", "+", "=":
		if m.controlIndex == controlTemperature {
			m.loop.AdjustTemperature(1)
			m.statusLine = fmt.Sprintf("temperature %.1f", m.loop.Temperature())
		}
	case "enter", " ":
		switch m.controlIndex {
		case controlReset:
			m.resetSession()
		case controlExport:
			m.exportSession()
		case controlCopy:
			m.copySession()
		}
	}
}

func (m *Model) toggleFocus() {
	if m.focus == focusInput {
		m.focus = focusControls
		m.input.Blur()
		m.statusLine = "controls · ↑/↓ select · ←/→ adjust · enter trigger"
		return
	}
	m.focus = focusInput
	m.input.Focus()
	m.statusLine = "ready"
}

func (m Model) submit() (tea.Model, tea.Cmd) {
	raw := m.input.Value()
	ok, err := m.loop.Submit(raw)
	if err != nil {
		m.errText = err.Error()
		m.statusLine = "error: " + compactSingleLine(err.Error(), 160)
		return m, nil
	}
	if !ok {
		return m, nil
	}
	call, err := m.loop.Call()
	if err != nil {
		m.loop.Fail(err)
		m.errText = err.Error()
		return m, nil
	}
	m.input.SetValue("")
	m.input.Blur()
	m.errText = ""
	m.phase = phaseThinking
	m.statusLine = "thinking..."
	m.transcript.GotoBottom()
	m.renderPanes()

	ctx := m.ctx
	return m, func() tea.Msg {
		reply, err := call.Do(ctx)
		return agentDoneMsg{turn: call.Turn, reply: reply, err: err}
	}
}

func (m *Model) finishTurn() {
	if err := m.loop.Complete(m.reply); err != nil {
		m.errText = err.Error()
	}
	m.phase = phaseIdle
	m.frames = nil
	m.frameIndex = 0
	m.reply = ""
	m.statusLine = "ready"
	if m.focus == focusInput {
		m.input.Focus()
	}
	m.renderPanes()
}

func (m *Model) resetSession() {
	if err := m.loop.Reset(); err != nil {
		m.statusLine = "error: " + err.Error()
		return
	}
	m.errText = ""
	m.statusLine = "chat reset"
	m.renderPanes()
}

func (m *Model) exportSession() {
	path, err := m.loop.Export(m.opts.ExportDir)
	if err != nil {
		m.statusLine = "export failed: " + compactSingleLine(err.Error(), 160)
		return
	}
	m.lastExport = path
	m.statusLine = fmt.Sprintf("exported %d messages to %s", m.loop.Session().Len(), path)
}

func (m *Model) copySession() {
	data, err := m.loop.Session().Export()
	if err == nil {
		err = m.opts.Clipboard(string(data))
	}
	if err != nil {
		log.Warn().Err(err).Msg("clipboard copy failed")
		m.statusLine = "copy failed: " + compactSingleLine(err.Error(), 160)
		return
	}
	m.statusLine = fmt.Sprintf("copied %d messages to clipboard", m.loop.Session().Len())
}

// revealText is the frame currently shown for the assistant reply.
func (m *Model) revealText() string {
	if m.phase != phaseRevealing || m.frameIndex >= len(m.frames) {
		return ""
	}
	return strings.TrimRight(m.frames[m.frameIndex], " ")
}
