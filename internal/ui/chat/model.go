// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat provides the chat view for the rexpro TUI: the scrolling
// transcript, the prompt input, the project file panel, and the session
// picker. It drives the request orchestrator but never implements
// orchestration itself.
package chat

import (
	"context"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	core "github.com/rexcorp1/rexpro-ai/internal/chat"
	"github.com/rexcorp1/rexpro-ai/internal/model"
	"github.com/rexcorp1/rexpro-ai/internal/ui/components"
	"github.com/rexcorp1/rexpro-ai/internal/ui/styles"
)

// =============================================================================
// CHAT STATE
// =============================================================================

// State represents the current state of the chat view.
type State int

const (
	StateReady     State = iota // Ready for input
	StateStreaming              // A send is in flight
)

// =============================================================================
// CHAT MODEL
// =============================================================================

// Model is the Bubble Tea model for the chat view.
type Model struct {
	state State
	theme *styles.Theme

	width  int
	height int

	// Core
	orch *core.Orchestrator
	send *sendHandle

	// UI components
	viewport  viewport.Model
	input     textinput.Model
	spinner   spinner.Model
	renderer  *components.MessageRenderer
	statusBar *components.StatusBar
	fileTree  *components.FileTree

	keyMap KeyMap

	// Panels
	showTree     bool
	focusTree    bool
	showHelp     bool
	showSessions bool
	sessions     []model.SessionMeta
	sessionIdx   int

	// pending holds /attach files until the next send consumes them.
	pending []model.Attachment

	// Transient status line
	statusMsg string
}

// New creates a new chat model driving the given orchestrator.
func New(theme *styles.Theme, orch *core.Orchestrator) Model {
	ti := textinput.New()
	ti.Prompt = "> "
	ti.Placeholder = "Type a message, / for commands..."
	ti.CharLimit = 8192
	ti.Focus()

	vp := viewport.New(80, 20)

	sp := spinner.New()
	sp.Spinner = spinner.Spinner{
		Frames: []string{"|", "/", "-", "\\"},
		FPS:    time.Second / 10,
	}
	sp.Style = theme.Spinner

	return Model{
		state:     StateReady,
		theme:     theme,
		orch:      orch,
		viewport:  vp,
		input:     ti,
		spinner:   sp,
		renderer:  components.NewMessageRenderer(theme),
		statusBar: components.NewStatusBar(theme),
		fileTree:  components.NewFileTree(theme),
		keyMap:    DefaultKeyMap(),
	}
}

// Init initializes the model.
func (m Model) Init() tea.Cmd {
	return textinput.Blink
}

// =============================================================================
// UPDATE
// =============================================================================

// Update handles messages and updates the model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		return m.handleResize(msg)

	case tea.KeyMsg:
		return m.handleKey(msg)

	case StreamUpdateMsg:
		return m.handleStreamUpdate(msg)

	case SendFinishedMsg:
		return m.handleSendFinished(msg)

	case StatusMsg:
		m.statusMsg = msg.Text
		return m, nil

	case RevealTickMsg:
		if m.fileTree.AdvanceReveal(2) {
			return m, revealTickCmd()
		}
		return m, nil

	case spinner.TickMsg:
		if m.state == StateStreaming {
			var cmd tea.Cmd
			m.spinner, cmd = m.spinner.Update(msg)
			return m, cmd
		}
		return m, nil
	}

	return m.updateComponents(msg)
}

func (m Model) updateComponents(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd
	var cmd tea.Cmd

	m.viewport, cmd = m.viewport.Update(msg)
	cmds = append(cmds, cmd)

	if !m.focusTree && !m.showSessions {
		m.input, cmd = m.input.Update(msg)
		cmds = append(cmds, cmd)
	}

	return m, tea.Batch(cmds...)
}

func (m Model) handleResize(msg tea.WindowSizeMsg) (tea.Model, tea.Cmd) {
	m.width = msg.Width
	m.height = msg.Height

	transcriptWidth := m.width
	if m.showTree {
		transcriptWidth = m.width - treePanelWidth(m.width)
	}
	m.renderer.SetWidth(transcriptWidth)
	m.viewport.Width = transcriptWidth
	m.viewport.Height = m.height - chromeHeight
	m.input.Width = m.width - 6

	m.refreshViewport()
	return m, nil
}

// =============================================================================
// KEY HANDLING
// =============================================================================

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	// Quit always wins, even mid-stream.
	if key.Matches(msg, m.keyMap.Quit) {
		m.orch.Stop()
		return m, tea.Quit
	}

	if m.showHelp {
		m.showHelp = false
		return m, nil
	}
	if m.showSessions {
		return m.handleSessionKey(msg)
	}
	if m.focusTree {
		return m.handleTreeKey(msg)
	}

	switch {
	case key.Matches(msg, m.keyMap.Stop):
		if m.state == StateStreaming {
			m.orch.Stop()
			return m, nil
		}

	case key.Matches(msg, m.keyMap.Send):
		return m.submit()

	case key.Matches(msg, m.keyMap.NewSession):
		m.orch.Store().ClearActive()
		m.fileTree.SetProject(nil)
		m.refreshViewport()
		m.statusMsg = "New session"
		return m, nil

	case key.Matches(msg, m.keyMap.Sessions):
		m.sessions = m.orch.Store().List()
		m.sessionIdx = 0
		m.showSessions = true
		return m, nil

	case key.Matches(msg, m.keyMap.ToggleTree):
		m.showTree = !m.showTree
		m.focusTree = m.showTree && !m.fileTree.Empty()
		return m.handleResize(tea.WindowSizeMsg{Width: m.width, Height: m.height})

	case key.Matches(msg, m.keyMap.Help):
		m.showHelp = true
		return m, nil
	}

	return m.updateComponents(msg)
}

func (m Model) handleTreeKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keyMap.TreeUp):
		m.fileTree.MoveUp()
	case key.Matches(msg, m.keyMap.TreeDown):
		m.fileTree.MoveDown()
	case key.Matches(msg, m.keyMap.TreeOpen):
		if m.fileTree.OpenSelected() {
			return m, revealTickCmd()
		}
	case key.Matches(msg, m.keyMap.ToggleTree), key.Matches(msg, m.keyMap.Stop):
		m.focusTree = false
		m.showTree = false
		return m.handleResize(tea.WindowSizeMsg{Width: m.width, Height: m.height})
	}
	return m, nil
}

func (m Model) handleSessionKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keyMap.TreeUp):
		if m.sessionIdx > 0 {
			m.sessionIdx--
		}
	case key.Matches(msg, m.keyMap.TreeDown):
		if m.sessionIdx < len(m.sessions)-1 {
			m.sessionIdx++
		}
	case key.Matches(msg, m.keyMap.Send):
		m.showSessions = false
		if m.sessionIdx < len(m.sessions) {
			id := m.sessions[m.sessionIdx].ID
			if err := m.orch.Store().SetActive(id); err == nil {
				reveal := m.syncProjectPanel()
				m.refreshViewport()
				if reveal {
					return m, revealTickCmd()
				}
			}
		}
	case key.Matches(msg, m.keyMap.Stop):
		m.showSessions = false
	}
	return m, nil
}

// =============================================================================
// SEND LIFECYCLE
// =============================================================================

func (m Model) submit() (tea.Model, tea.Cmd) {
	text := strings.TrimSpace(m.input.Value())
	if text == "" {
		return m, nil
	}
	if strings.HasPrefix(text, "/") {
		m.input.SetValue("")
		return m.runCommand(text)
	}
	if m.state == StateStreaming {
		m.statusMsg = "Still responding; esc to stop"
		return m, nil
	}

	m.input.SetValue("")
	m.state = StateStreaming
	m.statusMsg = ""

	orch := m.orch
	attachments := m.pending
	m.pending = nil
	handle, waitCmd := startSend(func(onUpdate core.UpdateFunc) error {
		return orch.Send(context.Background(), text, attachments, onUpdate)
	})
	m.send = handle

	return m, tea.Batch(waitCmd, m.spinner.Tick)
}

func (m Model) handleStreamUpdate(msg StreamUpdateMsg) (tea.Model, tea.Cmd) {
	m.refreshViewport()
	if m.send == nil {
		return m, nil
	}
	return m, m.send.wait()
}

func (m Model) handleSendFinished(msg SendFinishedMsg) (tea.Model, tea.Cmd) {
	m.state = StateReady
	m.send = nil
	if msg.Err != nil {
		m.statusMsg = msg.Err.Error()
	}
	reveal := m.syncProjectPanel()
	m.refreshViewport()
	m.input.Focus()
	if reveal {
		return m, tea.Batch(textinput.Blink, revealTickCmd())
	}
	return m, textinput.Blink
}

// =============================================================================
// VIEWPORT SYNC
// =============================================================================

func (m *Model) refreshViewport() {
	sess := m.orch.Store().Active()
	if sess == nil {
		m.viewport.SetContent(m.theme.HeaderMeta.Render("No messages yet. Type to start a conversation."))
		return
	}
	m.viewport.SetContent(m.renderer.RenderAll(sess.Messages))
	m.viewport.GotoBottom()
}

// syncProjectPanel pushes the active session's project into the tree,
// opens the panel when files first appear, and previews the file the
// last merge touched. Reports whether a preview reveal started.
func (m *Model) syncProjectPanel() bool {
	sess := m.orch.Store().Active()
	if sess == nil || sess.Project == nil || sess.Project.IsEmpty() {
		m.fileTree.SetProject(nil)
		return false
	}
	m.fileTree.SetProject(sess.Project)
	if !m.showTree {
		m.showTree = true
	}
	if active := sess.Project.ActiveFile; active != "" {
		return m.fileTree.OpenPath(active)
	}
	return false
}

// revealTickCmd paces the preview typing simulation.
func revealTickCmd() tea.Cmd {
	return tea.Tick(40*time.Millisecond, func(time.Time) tea.Msg {
		return RevealTickMsg{}
	})
}
