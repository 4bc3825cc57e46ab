// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// chromeHeight is the number of rows reserved around the transcript:
// header, input border, input, status bar.
const chromeHeight = 5

// treePanelWidth is the project panel's share of the terminal.
func treePanelWidth(total int) int {
	w := total / 3
	if w < 24 {
		w = 24
	}
	if w > total-30 {
		w = total - 30
	}
	return w
}

// View renders the full chat screen.
func (m Model) View() string {
	if m.width == 0 {
		return "Loading..."
	}
	if m.showHelp {
		return m.viewHelp()
	}
	if m.showSessions {
		return m.viewSessions()
	}

	var b strings.Builder
	b.WriteString(m.viewHeader())
	b.WriteString("\n")

	transcript := m.viewport.View()
	if m.showTree {
		tree := m.fileTree.Render(treePanelWidth(m.width)-2, m.viewport.Height)
		b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, transcript, tree))
	} else {
		b.WriteString(transcript)
	}
	b.WriteString("\n")

	b.WriteString(m.viewInput())
	b.WriteString("\n")
	b.WriteString(m.statusBar.Render(m.orch.Selector(), m.activeTokens(), m.width))
	return b.String()
}

func (m Model) viewHeader() string {
	title := m.theme.HeaderTitle.Render("rexpro")
	meta := ""
	if sess := m.orch.Store().Active(); sess != nil {
		meta = m.theme.HeaderMeta.Render("  " + sess.GetTitle())
	}
	return m.theme.Header.Width(m.width).Render(title + meta)
}

func (m Model) viewInput() string {
	if m.state == StateStreaming {
		row := m.spinner.View() + " " + m.theme.ThinkingText.Render("Generating... (esc to stop)")
		return m.theme.InputContainer.Width(m.width).Render(row)
	}
	row := m.input.View()
	if m.statusMsg != "" {
		row += "\n" + m.theme.HeaderMeta.Render(m.statusMsg)
	}
	return m.theme.InputContainer.Width(m.width).Render(row)
}

func (m Model) viewSessions() string {
	var b strings.Builder
	b.WriteString(m.theme.HeaderTitle.Render("Sessions"))
	b.WriteString("\n\n")

	if len(m.sessions) == 0 {
		b.WriteString(m.theme.SessionMeta.Render("No saved sessions."))
	}
	for i, meta := range m.sessions {
		line := fmt.Sprintf("%s  %s", meta.Title, m.theme.SessionMeta.Render(
			fmt.Sprintf("%d msg, %s", meta.MessageCount, meta.UpdatedAt.Format("Jan 2 15:04"))))
		if i == m.sessionIdx {
			line = m.theme.SessionItemSelected.Render(line)
		} else {
			line = m.theme.SessionItem.Render(line)
		}
		b.WriteString(line)
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(m.theme.ShortcutDesc.Render("enter select · esc close"))
	return m.theme.HelpBox.Width(m.width - 4).Render(b.String())
}

func (m Model) viewHelp() string {
	rows := []struct{ key, desc string }{
		{"enter", "send message"},
		{"esc", "stop streaming / close panel"},
		{"ctrl+n", "new session"},
		{"ctrl+s", "session picker"},
		{"ctrl+t", "project file panel"},
		{"ctrl+h", "this help"},
		{"ctrl+c", "quit"},
		{"/project", "toggle project mode"},
		{"/toggle X", "code, research, image, video, search"},
		{"/model X", "switch the active model"},
		{"/attach X", "attach a file to the next send"},
		{"/export", "export session as markdown"},
	}

	var b strings.Builder
	b.WriteString(m.theme.HeaderTitle.Render("Keyboard & commands"))
	b.WriteString("\n\n")
	for _, r := range rows {
		b.WriteString(m.theme.HelpKey.Render(r.key))
		b.WriteString(m.theme.ShortcutDesc.Render(r.desc))
		b.WriteString("\n")
	}
	b.WriteString("\n")
	b.WriteString(m.theme.ShortcutDesc.Render("any key to close"))
	return m.theme.HelpBox.Width(m.width - 4).Render(b.String())
}

func (m Model) activeTokens() int {
	if sess := m.orch.Store().Active(); sess != nil {
		return sess.TokensUsed
	}
	return 0
}
