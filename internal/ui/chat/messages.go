// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	tea "github.com/charmbracelet/bubbletea"

	core "github.com/rexcorp1/rexpro-ai/internal/chat"
)

// =============================================================================
// MESSAGES
// =============================================================================

// StreamUpdateMsg carries one orchestrator progress event into the
// Bubble Tea loop.
type StreamUpdateMsg struct {
	Update core.Update
}

// SendFinishedMsg signals that the Send goroutine returned.
type SendFinishedMsg struct {
	Err error
}

// StatusMsg sets a transient status-line message.
type StatusMsg struct {
	Text string
}

// RevealTickMsg drives the project preview typing simulation.
type RevealTickMsg struct{}

// =============================================================================
// ORCHESTRATOR BRIDGE
// =============================================================================

// sendHandle connects one in-flight Send to the Bubble Tea loop.
type sendHandle struct {
	updates chan core.Update
	err     chan error
}

// startSend launches the orchestrator send on its own goroutine and
// returns the handle plus the command that waits for its first event.
func startSend(send func(onUpdate core.UpdateFunc) error) (*sendHandle, tea.Cmd) {
	h := &sendHandle{
		updates: make(chan core.Update, 16),
		err:     make(chan error, 1),
	}
	go func() {
		h.err <- send(func(u core.Update) { h.updates <- u })
		close(h.updates)
	}()
	return h, h.wait()
}

// wait returns a command that blocks for the next event. When the
// update channel closes the send has returned, and the error (nil on
// success) becomes a SendFinishedMsg.
func (h *sendHandle) wait() tea.Cmd {
	return func() tea.Msg {
		u, ok := <-h.updates
		if !ok {
			return SendFinishedMsg{Err: <-h.err}
		}
		return StreamUpdateMsg{Update: u}
	}
}
