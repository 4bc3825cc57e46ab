// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/rexcorp1/rexpro-ai/internal/model"
	"github.com/rexcorp1/rexpro-ai/internal/router"
	"github.com/rexcorp1/rexpro-ai/internal/ui/styles"
	"github.com/rexcorp1/rexpro-ai/internal/util"
)

// StatusBar renders the bottom status line: active mode, model, toggle
// states, and token usage.
type StatusBar struct {
	theme *styles.Theme
}

// NewStatusBar creates a status bar renderer.
func NewStatusBar(theme *styles.Theme) *StatusBar {
	return &StatusBar{theme: theme}
}

// toggleLabels in display order.
var toggleLabels = []struct {
	toggle router.Toggle
	label  string
}{
	{router.ToggleCodeInterpreter, "code"},
	{router.ToggleDeepResearch, "research"},
	{router.ToggleImageTool, "image"},
	{router.ToggleVideoTool, "video"},
	{router.ToggleSearch, "search"},
}

// Render draws the status bar at the given width.
func (s *StatusBar) Render(sel *router.Selector, tokens, width int) string {
	var segments []string

	segments = append(segments, s.modeStyle(sel.Mode()).Render(strings.ToUpper(sel.Mode().String())))

	modelName := sel.ModelID()
	if info, ok := model.GetModelInfo(modelName); ok {
		modelName = info.Name
	}
	segments = append(segments, s.theme.ShortcutDesc.Render(modelName))

	toggles := sel.Toggles()
	var parts []string
	for _, tl := range toggleLabels {
		if toggles.Get(tl.toggle) {
			parts = append(parts, s.theme.ToggleOn.Render(tl.label))
		} else {
			parts = append(parts, s.theme.ToggleOff.Render(tl.label))
		}
	}
	segments = append(segments, strings.Join(parts, " "))

	if tokens > 0 {
		segments = append(segments, s.theme.ShortcutDesc.Render(fmt.Sprintf("%s tok", util.IntToString(tokens))))
	}

	bar := strings.Join(segments, s.theme.ShortcutDesc.Render(" | "))
	if lipgloss.Width(bar) > width {
		bar = util.TruncateWidth(bar, width)
	}
	return s.theme.StatusBar.Width(width).Render(bar)
}

func (s *StatusBar) modeStyle(mode router.Mode) lipgloss.Style {
	switch mode {
	case router.ModeProject:
		return s.theme.ModeProject
	case router.ModeImage, router.ModeVideo:
		return s.theme.ModeMedia
	default:
		return s.theme.ModeChat
	}
}
