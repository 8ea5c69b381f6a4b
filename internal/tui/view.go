package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"agentchat/internal/session"
)

const sidebarWidth = 30

func (m Model) View() string {
	header := m.renderHeader()
	content := m.renderContent()
	input := m.renderInput()
	footer := m.renderFooter()
	out := lipgloss.JoinVertical(lipgloss.Left, header, content, input, footer)
	if m.quitConfirm {
		out = m.renderQuitModal()
	}
	return m.theme.root.Render(out)
}

func (m *Model) renderHeader() string {
	title := m.theme.title.Render("🤖 " + nullCoalesce(m.opts.Title, "Assistant Chatbot"))
	meta := m.theme.helpText.Render(fmt.Sprintf("  thread: %s · session: %s",
		m.loop.ThreadID(), truncate(m.loop.Session().ID, 8)))
	joined := lipgloss.JoinHorizontal(lipgloss.Left, title, meta)
	return m.theme.header.Width(maxInt(20, m.width-4)).Render(joined)
}

func (m *Model) paneSizes() (contentHeight, leftWidth, rightWidth int) {
	contentHeight = maxInt(8, m.height-12)
	contentWidth := maxInt(40, m.width-4)
	rightWidth = sidebarWidth
	leftWidth = contentWidth - rightWidth - 1
	if leftWidth < 30 {
		leftWidth = 30
		rightWidth = maxInt(20, contentWidth-leftWidth-1)
	}
	return contentHeight, leftWidth, rightWidth
}

func (m *Model) renderContent() string {
	contentHeight, leftWidth, rightWidth := m.paneSizes()
	transcriptPanel := m.theme.panel
	controlsPanel := m.theme.panel
	if m.focus == focusControls {
		controlsPanel = m.theme.panelFocused
	}
	left := transcriptPanel.Width(leftWidth).Height(contentHeight).Render(
		m.theme.panelTitle.Render("Conversation") + "\n" + m.transcript.View(),
	)
	right := controlsPanel.Width(rightWidth).Height(contentHeight).Render(
		m.theme.panelTitle.Render("⚙️  Controls") + "\n" + m.renderControls(),
	)
	return lipgloss.JoinHorizontal(lipgloss.Top, left, right)
}

func (m *Model) renderInput() string {
	contentWidth := maxInt(40, m.width-4)
	inputView := m.input.View()
	switch m.phase {
	case phaseThinking:
		inputView = m.spinner.View() + " 🤖 Thinking..."
	case phaseRevealing:
		inputView = m.spinner.View() + " streaming reply..."
	default:
		if m.focus == focusControls {
			inputView = m.theme.helpText.Render("Input paused while controls are focused. Press Tab to type.")
		}
	}
	return m.theme.inputPanel.Width(contentWidth).Render(inputView)
}

func (m *Model) renderFooter() string {
	contentWidth := maxInt(40, m.width-4)
	statusStyle := m.theme.status
	lower := strings.ToLower(m.statusLine)
	if strings.Contains(lower, "failed") || strings.Contains(lower, "error") {
		statusStyle = m.theme.errorStatus
	}
	line := statusStyle.Render(compactSingleLine(m.statusLine, 180))
	hints := m.theme.helpText.Render("Keys: Enter send · Tab controls · Ctrl+R reset · Ctrl+E export · Ctrl+Y copy · PgUp/PgDn scroll · Esc quit")
	return m.theme.footer.Width(contentWidth).Render(line + "\n" + hints)
}

func (m *Model) renderQuitModal() string {
	canvasWidth := maxInt(40, m.width-4)
	canvasHeight := maxInt(12, m.height-4)
	modalWidth := clampInt(int(float64(canvasWidth)*0.56), 32, 70)
	if modalWidth > canvasWidth-2 {
		modalWidth = canvasWidth - 2
	}

	body := strings.Join([]string{
		m.theme.errorStatus.Render("Leave the chat?"),
		"",
		m.theme.helpText.Render("The conversation lives only in this session."),
		m.theme.helpText.Render("Export it first (Ctrl+E) if you want to keep it."),
		"",
		m.theme.controlPick.Render("[Y / Enter] Quit") + "    " + m.theme.helpText.Render("[N / Esc] Return"),
	}, "\n")
	panel := m.theme.modal.Width(modalWidth).Render(body)
	return lipgloss.Place(
		canvasWidth,
		canvasHeight,
		lipgloss.Center,
		lipgloss.Center,
		panel,
		lipgloss.WithWhitespaceBackground(m.theme.background),
	)
}

func (m *Model) renderControls() string {
	rows := []struct {
		label string
		value string
	}{
		{"Temperature", fmt.Sprintf("%.1f", m.loop.Temperature())},
		{"🧹 Reset Chat", "ctrl+r"},
		{"💾 Export Chat", "ctrl+e"},
		{"📋 Copy Chat", "ctrl+y"},
	}
	var b strings.Builder
	for i, row := range rows {
		labelStyle := m.theme.controlKey
		valueStyle := m.theme.controlValue
		prefix := "  "
		if m.focus == focusControls && i == m.controlIndex {
			labelStyle = m.theme.controlPick
			valueStyle = m.theme.controlPick
			prefix = "▶ "
		}
		b.WriteString(prefix + labelStyle.Render(row.label) + " " + valueStyle.Render(row.value) + "\n")
		if i == controlTemperature {
			b.WriteString("  " + m.renderSlider() + "\n\n")
		}
	}
	b.WriteString("\n")
	b.WriteString(m.theme.helpText.Render(fmt.Sprintf("Messages  %d", m.loop.Session().Len())) + "\n")
	b.WriteString(m.theme.helpText.Render(fmt.Sprintf("Turns     %d", m.loop.Turn())) + "\n")
	if m.opts.Backend != "" {
		b.WriteString(m.theme.helpText.Render("Agent     "+m.opts.Backend) + "\n")
	}
	if m.lastExport != "" {
		b.WriteString(m.theme.helpText.Render("Saved     "+truncate(m.lastExport, sidebarWidth-14)) + "\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

// renderSlider draws the temperature as an 11 position track.
func (m *Model) renderSlider() string {
	pos := clampInt(int(m.loop.Temperature()*10+0.5), 0, 10)
	return m.theme.sliderFill.Render(strings.Repeat("━", pos)) +
		m.theme.sliderKnob.Render("●") +
		m.theme.sliderTrack.Render(strings.Repeat("─", 10-pos))
}

func (m *Model) resize() {
	contentWidth := maxInt(40, m.width-4)
	m.input.Width = maxInt(20, contentWidth-6)
}

func (m *Model) renderPanes() {
	prevYOffset := m.transcript.YOffset
	prevAtBottom := m.transcript.AtBottom()

	contentHeight, leftWidth, _ := m.paneSizes()
	m.transcript.Width = maxInt(20, leftWidth-4)
	m.transcript.Height = maxInt(5, contentHeight-3)

	m.transcript.SetContent(m.renderTranscript())
	if prevAtBottom {
		m.transcript.GotoBottom()
	} else {
		m.transcript.SetYOffset(prevYOffset)
	}
}

func (m *Model) renderTranscript() string {
	messages := m.loop.Session().Messages()
	width := maxInt(20, m.transcript.Width-2)
	if len(messages) == 0 && m.phase == phaseIdle && m.errText == "" {
		return m.theme.helpText.Render("No messages yet. Ask me anything to start.")
	}

	bodies := m.bodies.Bodies(m.markdown, messages, width)
	var b strings.Builder
	for i, msg := range messages {
		b.WriteString(m.renderLabel(msg.Role))
		b.WriteString("\n")
		b.WriteString(bodies[i])
		b.WriteString("\n\n")
	}
	switch m.phase {
	case phaseThinking:
		b.WriteString(m.renderLabel(session.RoleAssistant))
		b.WriteString("\n")
		b.WriteString(m.theme.helpText.Render("…"))
		b.WriteString("\n")
	case phaseRevealing:
		b.WriteString(m.renderLabel(session.RoleAssistant))
		b.WriteString("\n")
		b.WriteString(m.markdown.Render(m.revealText(), width))
		b.WriteString("\n")
	}
	if m.errText != "" {
		b.WriteString(m.theme.errorBlock.Render(wrapText("Agent error: "+m.errText, width-2)))
		b.WriteString("\n")
		b.WriteString(m.theme.helpText.Render("Your message was kept. Press Enter to send it again."))
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

func (m *Model) renderLabel(role session.Role) string {
	if role == session.RoleUser {
		return m.theme.userLabel.Render("👤 You")
	}
	return m.theme.assistantLabel.Render("🤖 Assistant")
}
