package tui

import "github.com/charmbracelet/lipgloss"

type uiTheme struct {
	root           lipgloss.Style
	header         lipgloss.Style
	title          lipgloss.Style
	panel          lipgloss.Style
	panelFocused   lipgloss.Style
	panelTitle     lipgloss.Style
	footer         lipgloss.Style
	status         lipgloss.Style
	errorStatus    lipgloss.Style
	errorBlock     lipgloss.Style
	inputPanel     lipgloss.Style
	helpText       lipgloss.Style
	userLabel      lipgloss.Style
	assistantLabel lipgloss.Style
	controlKey     lipgloss.Style
	controlValue   lipgloss.Style
	controlPick    lipgloss.Style
	sliderFill     lipgloss.Style
	sliderKnob     lipgloss.Style
	sliderTrack    lipgloss.Style
	modal          lipgloss.Style
	accent         lipgloss.Style
	background     lipgloss.Color
}

func newTheme() uiTheme {
	pink := lipgloss.Color("#ff71ce")
	blue := lipgloss.Color("#01cdfe")
	mint := lipgloss.Color("#05ffa1")
	bg := lipgloss.Color("#120924")
	panelBg := lipgloss.Color("#1b0f35")
	text := lipgloss.Color("#f3f3ff")
	muted := lipgloss.Color("#9ca3d8")

	return uiTheme{
		root: lipgloss.NewStyle().
			Background(bg).
			Foreground(text).
			Padding(0, 1),
		header: lipgloss.NewStyle().
			Background(panelBg).
			Foreground(text).
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(blue).
			Padding(0, 1),
		title: lipgloss.NewStyle().
			Background(pink).
			Foreground(lipgloss.Color("#22062f")).
			Bold(true).
			Padding(0, 1),
		panel: lipgloss.NewStyle().
			Background(panelBg).
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(blue).
			Padding(0, 1),
		panelFocused: lipgloss.NewStyle().
			Background(panelBg).
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(pink).
			Padding(0, 1),
		panelTitle: lipgloss.NewStyle().
			Foreground(mint).
			Bold(true),
		footer: lipgloss.NewStyle().
			Background(panelBg).
			Foreground(muted).
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(pink).
			Padding(0, 1),
		status:      lipgloss.NewStyle().Foreground(blue).Bold(true),
		errorStatus: lipgloss.NewStyle().Foreground(pink).Bold(true),
		errorBlock: lipgloss.NewStyle().
			Foreground(pink).
			BorderStyle(lipgloss.NormalBorder()).
			BorderLeft(true).
			BorderForeground(pink).
			PaddingLeft(1),
		inputPanel: lipgloss.NewStyle().
			Background(panelBg).
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(mint).
			Padding(0, 1),
		helpText:       lipgloss.NewStyle().Foreground(muted),
		userLabel:      lipgloss.NewStyle().Foreground(mint).Bold(true),
		assistantLabel: lipgloss.NewStyle().Foreground(pink).Bold(true),
		controlKey:     lipgloss.NewStyle().Foreground(blue),
		controlValue:   lipgloss.NewStyle().Foreground(text),
		controlPick:    lipgloss.NewStyle().Foreground(pink).Bold(true),
		sliderFill:     lipgloss.NewStyle().Foreground(mint),
		sliderKnob:     lipgloss.NewStyle().Foreground(pink).Bold(true),
		sliderTrack:    lipgloss.NewStyle().Foreground(muted),
		modal: lipgloss.NewStyle().
			Background(panelBg).
			BorderStyle(lipgloss.ThickBorder()).
			BorderForeground(blue).
			Padding(1, 2),
		accent:     lipgloss.NewStyle().Foreground(mint).Bold(true),
		background: bg,
	}
}
