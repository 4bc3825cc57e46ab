// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package styles

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

// Theme holds all the styled components for the application. It detects
// the terminal's color capability and adjusts accordingly.
type Theme struct {
	IsDark       bool
	HasTrueColor bool
	ColorProfile termenv.Profile

	// Header
	Header      lipgloss.Style
	HeaderTitle lipgloss.Style
	HeaderMeta  lipgloss.Style

	// Message bubbles
	UserBubble  lipgloss.Style
	ModelBubble lipgloss.Style
	Reasoning   lipgloss.Style
	Citation    lipgloss.Style
	Notice      lipgloss.Style

	// Input area
	InputContainer lipgloss.Style
	InputPrompt    lipgloss.Style

	// Status bar
	StatusBar    lipgloss.Style
	ModeChat     lipgloss.Style
	ModeProject  lipgloss.Style
	ModeMedia    lipgloss.Style
	ToggleOn     lipgloss.Style
	ToggleOff    lipgloss.Style
	ShortcutKey  lipgloss.Style
	ShortcutDesc lipgloss.Style

	// Spinner and loading
	Spinner      lipgloss.Style
	ThinkingText lipgloss.Style

	// Project file tree
	TreePanel    lipgloss.Style
	TreeDir      lipgloss.Style
	TreeFile     lipgloss.Style
	TreeSelected lipgloss.Style

	// Session list
	SessionItem         lipgloss.Style
	SessionItemSelected lipgloss.Style
	SessionMeta         lipgloss.Style

	// Errors
	ErrorBox     lipgloss.Style
	ErrorTitle   lipgloss.Style
	ErrorMessage lipgloss.Style

	// Help overlay
	HelpBox lipgloss.Style
	HelpKey lipgloss.Style
}

// NewTheme creates a new theme with all styles configured.
func NewTheme() *Theme {
	colorProfile := termenv.ColorProfile()

	t := &Theme{
		IsDark:       termenv.HasDarkBackground(),
		HasTrueColor: colorProfile == termenv.TrueColor,
		ColorProfile: colorProfile,
	}
	t.initStyles()
	return t
}

// initStyles initializes all the lip gloss styles.
func (t *Theme) initStyles() {
	// Header
	t.Header = lipgloss.NewStyle().
		Background(SurfaceDim).
		Padding(0, 1)

	t.HeaderTitle = lipgloss.NewStyle().
		Bold(true).
		Foreground(Teal)

	t.HeaderMeta = lipgloss.NewStyle().
		Foreground(TextMuted)

	// Message bubbles
	t.UserBubble = lipgloss.NewStyle().
		Foreground(UserBubbleFg).
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(UserBubbleBorder).
		Padding(0, 1).
		MarginLeft(4)

	t.ModelBubble = lipgloss.NewStyle().
		Foreground(ModelBubbleFg).
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(ModelBubbleBorder).
		Padding(0, 1).
		MarginRight(4)

	t.Reasoning = lipgloss.NewStyle().
		Foreground(ReasoningFg).
		Italic(true).
		PaddingLeft(2)

	t.Citation = lipgloss.NewStyle().
		Foreground(Teal).
		Underline(true)

	t.Notice = lipgloss.NewStyle().
		Foreground(Amber).
		Italic(true)

	// Input area
	t.InputContainer = lipgloss.NewStyle().
		BorderStyle(lipgloss.NormalBorder()).
		BorderTop(true).
		BorderForeground(Overlay).
		Padding(0, 1)

	t.InputPrompt = lipgloss.NewStyle().
		Foreground(Teal).
		Bold(true)

	// Status bar
	t.StatusBar = lipgloss.NewStyle().
		Background(SurfaceDim).
		Foreground(TextSecondary).
		Padding(0, 1)

	t.ModeChat = lipgloss.NewStyle().
		Foreground(Teal).
		Bold(true)

	t.ModeProject = lipgloss.NewStyle().
		Foreground(Emerald).
		Bold(true)

	t.ModeMedia = lipgloss.NewStyle().
		Foreground(Amber).
		Bold(true)

	t.ToggleOn = lipgloss.NewStyle().
		Foreground(Emerald).
		Bold(true)

	t.ToggleOff = lipgloss.NewStyle().
		Foreground(TextMuted)

	t.ShortcutKey = lipgloss.NewStyle().
		Foreground(Teal).
		Bold(true)

	t.ShortcutDesc = lipgloss.NewStyle().
		Foreground(TextMuted)

	// Spinner and loading
	t.Spinner = lipgloss.NewStyle().
		Foreground(Indigo)

	t.ThinkingText = lipgloss.NewStyle().
		Foreground(TextSecondary).
		Italic(true)

	// Project file tree
	t.TreePanel = lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(Overlay).
		Padding(0, 1)

	t.TreeDir = lipgloss.NewStyle().
		Foreground(Indigo).
		Bold(true)

	t.TreeFile = lipgloss.NewStyle().
		Foreground(TextPrimary)

	t.TreeSelected = lipgloss.NewStyle().
		Background(Indigo).
		Foreground(TextInverse)

	// Session list
	t.SessionItem = lipgloss.NewStyle().
		Foreground(TextPrimary).
		Padding(0, 1)

	t.SessionItemSelected = lipgloss.NewStyle().
		Background(Indigo).
		Foreground(TextInverse).
		Bold(true).
		Padding(0, 1)

	t.SessionMeta = lipgloss.NewStyle().
		Foreground(TextMuted)

	// Errors
	t.ErrorBox = lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(Rose).
		Padding(0, 1)

	t.ErrorTitle = lipgloss.NewStyle().
		Foreground(Rose).
		Bold(true)

	t.ErrorMessage = lipgloss.NewStyle().
		Foreground(TextPrimary)

	// Help overlay
	t.HelpBox = lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(Overlay).
		Padding(1, 2)

	t.HelpKey = lipgloss.NewStyle().
		Foreground(Teal).
		Bold(true).
		Width(14)
}
