package tui

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"agentchat/internal/agent"
	"agentchat/internal/chat"
	"agentchat/internal/reveal"
	"agentchat/internal/session"
)

type testHarness struct {
	model     Model
	copied    []string
	exportDir string
}

func newHarness(t *testing.T, gw agent.Gateway) *testHarness {
	t.Helper()
	h := &testHarness{exportDir: t.TempDir()}
	loop := chat.New(session.New(), gw, "", chat.DefaultTemperature)
	h.model = New(context.Background(), loop, Options{
		Title:     "Test Chat",
		ExportDir: h.exportDir,
		Clipboard: func(text string) error {
			h.copied = append(h.copied, text)
			return nil
		},
	})
	return h
}

func (h *testHarness) send(msg tea.Msg) tea.Cmd {
	next, cmd := h.model.Update(msg)
	h.model = next.(Model)
	return cmd
}

func (h *testHarness) typeText(text string) {
	h.send(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(text)})
}

func (h *testHarness) key(k tea.KeyType) tea.Cmd {
	return h.send(tea.KeyMsg{Type: k})
}

// finishReveal feeds frame messages until the turn is recorded and returns
// the frames that were shown.
func (h *testHarness) finishReveal(t *testing.T) []string {
	t.Helper()
	var shown []string
	if h.model.phase == phaseRevealing {
		shown = append(shown, h.model.revealText())
	}
	turn := h.model.loop.Turn()
	for i := 1; h.model.phase == phaseRevealing; i++ {
		require.Less(t, i, 10000)
		h.send(reveal.FrameMsg{Turn: turn, Index: i})
		if h.model.phase == phaseRevealing {
			shown = append(shown, h.model.revealText())
		}
	}
	return shown
}

func echo() agent.Gateway {
	return agent.EchoGateway{}
}

func TestFullTurn(t *testing.T) {
	h := newHarness(t, echo())
	h.typeText("hello   brave new world")
	cmd := h.key(tea.KeyEnter)
	require.NotNil(t, cmd)

	assert.Equal(t, phaseThinking, h.model.phase)
	assert.Equal(t, 1, h.model.loop.Session().Len())
	assert.Equal(t, "", h.model.input.Value())

	done, ok := cmd().(agentDoneMsg)
	require.True(t, ok)
	require.NoError(t, done.err)
	tick := h.send(done)
	require.NotNil(t, tick)
	assert.Equal(t, phaseRevealing, h.model.phase)
	assert.Equal(t, 1, h.model.loop.Session().Len())

	shown := h.finishReveal(t)
	assert.Equal(t, []string{"hello", "hello brave", "hello brave new", "hello brave new world"}, shown)

	msgs := h.model.loop.Session().Messages()
	require.Len(t, msgs, 2)
	assert.Equal(t, session.RoleAssistant, msgs[1].Role)
	assert.Equal(t, "hello   brave new world", msgs[1].Content)
	assert.Equal(t, phaseIdle, h.model.phase)
	assert.Equal(t, chat.StateIdle, h.model.loop.State())
	assert.Contains(t, h.model.View(), "hello brave new")
}

func TestBlankSubmissionIsNoop(t *testing.T) {
	h := newHarness(t, echo())
	h.typeText("   ")
	cmd := h.key(tea.KeyEnter)
	assert.Nil(t, cmd)
	assert.Equal(t, 0, h.model.loop.Session().Len())
	assert.Equal(t, phaseIdle, h.model.phase)
}

func TestGatewayFailureKeepsUserMessage(t *testing.T) {
	gw := agent.GatewayFunc(func(context.Context, agent.Request, agent.Config) (agent.Response, error) {
		return agent.Response{}, errors.New("graph unreachable")
	})
	h := newHarness(t, gw)
	h.typeText("X")
	cmd := h.key(tea.KeyEnter)
	require.NotNil(t, cmd)
	h.send(cmd())

	msgs := h.model.loop.Session().Messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, session.Message{Role: session.RoleUser, Content: "X"}, msgs[0])
	assert.Equal(t, phaseIdle, h.model.phase)
	assert.Equal(t, "X", h.model.input.Value())
	assert.Contains(t, h.model.statusLine, "graph unreachable")
	assert.Contains(t, h.model.transcript.View(), "graph unreachable")
}

func TestInputRefusedDuringTurn(t *testing.T) {
	h := newHarness(t, echo())
	h.typeText("first")
	cmd := h.key(tea.KeyEnter)
	require.NotNil(t, cmd)

	h.typeText("second")
	assert.Equal(t, "", h.model.input.Value())
	assert.Nil(t, h.key(tea.KeyEnter))
	h.key(tea.KeyCtrlR)
	assert.Equal(t, 1, h.model.loop.Session().Len())
	assert.Equal(t, 1, h.model.loop.Turn())
}

func TestStaleMessagesIgnored(t *testing.T) {
	h := newHarness(t, echo())
	h.send(agentDoneMsg{turn: 7, reply: "ghost"})
	h.send(reveal.FrameMsg{Turn: 7, Index: 1})
	assert.Equal(t, 0, h.model.loop.Session().Len())
	assert.Equal(t, phaseIdle, h.model.phase)
}

func TestEmptyReplyCompletesImmediately(t *testing.T) {
	gw := agent.GatewayFunc(func(context.Context, agent.Request, agent.Config) (agent.Response, error) {
		return agent.Response{}, nil
	})
	h := newHarness(t, gw)
	h.typeText("anything")
	cmd := h.key(tea.KeyEnter)
	h.send(cmd())
	assert.Equal(t, phaseIdle, h.model.phase)
	msgs := h.model.loop.Session().Messages()
	require.Len(t, msgs, 2)
	assert.Equal(t, "", msgs[1].Content)
}

func runTurn(t *testing.T, h *testHarness, text string) {
	t.Helper()
	h.typeText(text)
	cmd := h.key(tea.KeyEnter)
	require.NotNil(t, cmd)
	h.send(cmd())
	h.finishReveal(t)
}

func TestResetShortcut(t *testing.T) {
	h := newHarness(t, echo())
	runTurn(t, h, "one")
	runTurn(t, h, "two")
	require.Equal(t, 4, h.model.loop.Session().Len())

	h.key(tea.KeyCtrlR)
	assert.Equal(t, 0, h.model.loop.Session().Len())
	assert.Equal(t, "chat reset", h.model.statusLine)
	assert.Contains(t, h.model.transcript.View(), "No messages yet")
}

func TestControlsAdjustTemperatureAndTrigger(t *testing.T) {
	h := newHarness(t, echo())
	runTurn(t, h, "hi")

	h.key(tea.KeyTab)
	assert.Equal(t, focusControls, h.model.focus)
	h.key(tea.KeyRight)
	h.key(tea.KeyRight)
	assert.InDelta(t, 0.5, h.model.loop.Temperature(), 1e-9)
	for i := 0; i < 12; i++ {
		h.key(tea.KeyLeft)
	}
	assert.InDelta(t, 0.0, h.model.loop.Temperature(), 1e-9)

	h.key(tea.KeyDown)
	h.key(tea.KeyDown)
	assert.Equal(t, controlExport, h.model.controlIndex)
	h.key(tea.KeyEnter)

	data, err := os.ReadFile(filepath.Join(h.exportDir, session.ExportFileName))
	require.NoError(t, err)
	var exported []session.Message
	require.NoError(t, json.Unmarshal(data, &exported))
	assert.Equal(t, []session.Message{
		{Role: session.RoleUser, Content: "hi"},
		{Role: session.RoleAssistant, Content: "hi"},
	}, exported)

	h.key(tea.KeyDown)
	h.key(tea.KeyEnter)
	require.Len(t, h.copied, 1)
	assert.Equal(t, string(data), h.copied[0])

	h.key(tea.KeyUp)
	h.key(tea.KeyUp)
	h.key(tea.KeyEnter)
	assert.Equal(t, 0, h.model.loop.Session().Len())

	h.key(tea.KeyTab)
	assert.Equal(t, focusInput, h.model.focus)
}

func TestExportShortcutWithEmptyHistory(t *testing.T) {
	h := newHarness(t, echo())
	h.key(tea.KeyCtrlE)
	data, err := os.ReadFile(filepath.Join(h.exportDir, session.ExportFileName))
	require.NoError(t, err)
	assert.Equal(t, "[]", string(data))
	assert.True(t, strings.HasPrefix(h.model.statusLine, "exported 0 messages"))
}

func TestTemperatureReachesGateway(t *testing.T) {
	var seen []agent.Config
	gw := agent.GatewayFunc(func(_ context.Context, req agent.Request, cfg agent.Config) (agent.Response, error) {
		seen = append(seen, cfg)
		return agent.TextResponse("ok"), nil
	})
	h := newHarness(t, gw)
	runTurn(t, h, "a")
	h.key(tea.KeyTab)
	h.key(tea.KeyRight)
	h.key(tea.KeyTab)
	runTurn(t, h, "b")

	require.Len(t, seen, 2)
	assert.InDelta(t, 0.3, seen[0].Configurable.Temperature, 1e-9)
	assert.InDelta(t, 0.4, seen[1].Configurable.Temperature, 1e-9)
	assert.Equal(t, agent.DefaultThreadID, seen[1].Configurable.ThreadID)
}

func TestQuitConfirmation(t *testing.T) {
	h := newHarness(t, echo())
	h.key(tea.KeyEsc)
	assert.True(t, h.model.quitConfirm)
	assert.Contains(t, h.model.View(), "Leave the chat?")

	h.send(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("n")})
	assert.False(t, h.model.quitConfirm)

	h.key(tea.KeyEsc)
	cmd := h.send(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("y")})
	require.NotNil(t, cmd)
	assert.Equal(t, tea.QuitMsg{}, cmd())
}

func TestWindowResize(t *testing.T) {
	h := newHarness(t, echo())
	h.send(tea.WindowSizeMsg{Width: 160, Height: 50})
	assert.Equal(t, 160, h.model.width)
	assert.Greater(t, h.model.transcript.Width, 100)
	assert.Contains(t, h.model.View(), "Test Chat")
}

func TestScrollPositionKeptDuringReveal(t *testing.T) {
	h := newHarness(t, echo())
	for i := 0; i < 6; i++ {
		runTurn(t, h, "alpha beta gamma")
	}
	require.True(t, h.model.transcript.AtBottom())

	h.typeText("one two three four five")
	cmd := h.key(tea.KeyEnter)
	h.send(cmd())
	require.Equal(t, phaseRevealing, h.model.phase)

	h.key(tea.KeyPgUp)
	offset := h.model.transcript.YOffset
	require.False(t, h.model.transcript.AtBottom())

	turn := h.model.loop.Turn()
	h.send(reveal.FrameMsg{Turn: turn, Index: 1})
	h.send(reveal.FrameMsg{Turn: turn, Index: 2})
	assert.Equal(t, offset, h.model.transcript.YOffset)
	assert.False(t, h.model.transcript.AtBottom())
}

func TestRecordedBodiesRenderedOnce(t *testing.T) {
	h := newHarness(t, echo())
	runTurn(t, h, "first question")
	require.Len(t, h.model.bodies.entries, 2)

	// a cached body is reused as is on the next redraw
	h.model.bodies.entries[0].body = "from cache"
	h.typeText("second question here")
	cmd := h.key(tea.KeyEnter)
	h.send(cmd())
	h.send(reveal.FrameMsg{Turn: h.model.loop.Turn(), Index: 1})
	assert.Contains(t, h.model.transcript.View(), "from cache")

	h.finishReveal(t)
	assert.Len(t, h.model.bodies.entries, 4)

	h.send(tea.WindowSizeMsg{Width: 140, Height: 40})
	assert.NotContains(t, h.model.transcript.View(), "from cache")
}

func TestLongInputRecordedWhole(t *testing.T) {
	h := newHarness(t, echo())
	long := strings.Repeat("word ", 2000)
	h.typeText(long)
	cmd := h.key(tea.KeyEnter)
	require.NotNil(t, cmd)

	msgs := h.model.loop.Session().Messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, long, msgs[0].Content)
}
