// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/rexcorp1/rexpro-ai/internal/model"
	"github.com/rexcorp1/rexpro-ai/internal/router"
	"github.com/rexcorp1/rexpro-ai/internal/storage"
)

// toggleByName maps command arguments to toggles.
var toggleByName = map[string]router.Toggle{
	"code":     router.ToggleCodeInterpreter,
	"research": router.ToggleDeepResearch,
	"image":    router.ToggleImageTool,
	"video":    router.ToggleVideoTool,
	"search":   router.ToggleSearch,
}

// activeModelLabel names the model the next send will use, preferring
// a pinned media-mode override over the chat selection.
func activeModelLabel(s *router.Selector) string {
	if id := s.MediaModelOverride(); id != "" {
		return id
	}
	return s.ModelID()
}

// runCommand dispatches a slash command typed into the prompt.
func (m Model) runCommand(text string) (tea.Model, tea.Cmd) {
	fields := strings.Fields(text)
	cmd, args := fields[0], fields[1:]

	switch cmd {
	case "/new":
		m.orch.Store().ClearActive()
		m.fileTree.SetProject(nil)
		m.refreshViewport()
		m.statusMsg = "New session"

	case "/sessions":
		if len(args) > 0 {
			m.sessions = m.orch.Store().Search(strings.Join(args, " "))
		} else {
			m.sessions = m.orch.Store().List()
		}
		m.sessionIdx = 0
		m.showSessions = true

	case "/rename":
		if len(args) == 0 {
			m.statusMsg = "usage: /rename <title>"
			break
		}
		id := m.orch.Store().ActiveID()
		if id == "" {
			m.statusMsg = "No active session"
			break
		}
		if err := m.orch.Store().Rename(id, strings.Join(args, " ")); err != nil {
			m.statusMsg = err.Error()
		} else {
			m.statusMsg = "Renamed"
		}

	case "/delete":
		id := m.orch.Store().ActiveID()
		if id == "" {
			m.statusMsg = "No active session"
			break
		}
		if err := m.orch.Store().Delete(id); err != nil {
			m.statusMsg = err.Error()
		} else {
			m.fileTree.SetProject(nil)
			m.refreshViewport()
			m.statusMsg = "Session deleted"
		}

	case "/export":
		sess := m.orch.Store().Active()
		if sess == nil {
			m.statusMsg = "No active session"
			break
		}
		path := sess.ID + ".md"
		if len(args) > 0 {
			path = args[0]
		}
		if err := storage.ExportMarkdown(sess, path); err != nil {
			m.statusMsg = err.Error()
		} else {
			m.statusMsg = "Exported to " + path
		}

	case "/model":
		if len(args) == 0 {
			m.statusMsg = "Model: " + activeModelLabel(m.orch.Selector())
			break
		}
		if err := m.orch.Selector().SetModel(args[0]); err != nil {
			m.statusMsg = err.Error()
		} else {
			m.statusMsg = "Model: " + activeModelLabel(m.orch.Selector())
		}

	case "/attach":
		if len(args) == 0 {
			m.statusMsg = "usage: /attach <path>"
			break
		}
		att, err := model.LoadAttachment(args[0])
		if err != nil {
			m.statusMsg = err.Error()
			break
		}
		m.pending = append(m.pending, att)
		m.statusMsg = fmt.Sprintf("Attached %s (%d pending)", att.Name, len(m.pending))

	case "/project":
		on := !m.orch.Selector().ProjectMode()
		if len(args) > 0 {
			on = args[0] == "on"
		}
		m.orch.Selector().SetProjectMode(on)
		m.statusMsg = fmt.Sprintf("Project mode: %v", on)

	case "/toggle":
		if len(args) == 0 {
			m.statusMsg = "usage: /toggle code|research|image|video|search"
			break
		}
		toggle, ok := toggleByName[args[0]]
		if !ok {
			m.statusMsg = "Unknown toggle: " + args[0]
			break
		}
		now := !m.orch.Selector().Toggles().Get(toggle)
		m.orch.Selector().SetToggle(toggle, now)
		m.statusMsg = fmt.Sprintf("%s: %v", args[0], now)

	case "/help":
		m.showHelp = true

	case "/quit":
		return m, tea.Quit

	default:
		m.statusMsg = "Unknown command: " + cmd
	}

	return m, nil
}
