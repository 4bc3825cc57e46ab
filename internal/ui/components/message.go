// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"

	"github.com/rexcorp1/rexpro-ai/internal/model"
	"github.com/rexcorp1/rexpro-ai/internal/ui/styles"
)

// MessageRenderer renders chat messages for the viewport. It caches a
// glamour renderer per width since rebuilding one per frame is expensive.
type MessageRenderer struct {
	theme    *styles.Theme
	width    int
	markdown *glamour.TermRenderer

	// ShowReasoning controls whether extracted reasoning blocks are
	// rendered above the reply.
	ShowReasoning bool
}

// NewMessageRenderer creates a renderer for the given theme.
func NewMessageRenderer(theme *styles.Theme) *MessageRenderer {
	r := &MessageRenderer{theme: theme, ShowReasoning: true}
	r.SetWidth(80)
	return r
}

// SetWidth resizes the renderer. The glamour renderer is rebuilt only
// when the wrap width actually changes.
func (r *MessageRenderer) SetWidth(width int) {
	if width < 20 {
		width = 20
	}
	if width == r.width && r.markdown != nil {
		return
	}
	r.width = width

	md, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(width-8),
	)
	if err != nil {
		// Plain text fallback; renderMarkdown handles nil.
		md = nil
	}
	r.markdown = md
}

// Render renders a single message as a block of terminal lines.
func (r *MessageRenderer) Render(msg *model.Message) string {
	switch msg.Role {
	case model.RoleUser:
		return r.renderUser(msg)
	default:
		return r.renderModel(msg)
	}
}

// RenderAll renders a full transcript with blank lines between messages.
func (r *MessageRenderer) RenderAll(msgs []*model.Message) string {
	var b strings.Builder
	for i, msg := range msgs {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString(r.Render(msg))
		b.WriteString("\n")
	}
	return b.String()
}

func (r *MessageRenderer) renderUser(msg *model.Message) string {
	content := msg.Content
	if len(msg.Attachments) > 0 {
		content += "\n" + r.renderAttachments(msg.Attachments)
	}
	bubble := r.theme.UserBubble.MaxWidth(r.width).Render(content)
	return lipgloss.PlaceHorizontal(r.width, lipgloss.Right, bubble)
}

func (r *MessageRenderer) renderModel(msg *model.Message) string {
	var sections []string

	if r.ShowReasoning && msg.Reasoning != "" {
		sections = append(sections, r.theme.Reasoning.MaxWidth(r.width-4).Render(msg.Reasoning))
	}

	content := msg.DisplayContent()
	if msg.IsThinking && content == "" {
		// Spinner row is drawn by the chat view; nothing to show yet.
		return ""
	}
	if content != "" {
		sections = append(sections, r.renderMarkdown(content))
	}

	if len(msg.Attachments) > 0 {
		sections = append(sections, r.renderAttachments(msg.Attachments))
	}
	if msg.ProjectFilesUpdate {
		sections = append(sections, r.theme.Notice.Render("Project files updated."))
	}
	if len(msg.Citations) > 0 {
		sections = append(sections, r.renderCitations(msg.Citations))
	}

	body := strings.Join(sections, "\n")
	return r.theme.ModelBubble.MaxWidth(r.width).Render(body)
}

func (r *MessageRenderer) renderMarkdown(content string) string {
	if r.markdown == nil {
		return content
	}
	rendered, err := r.markdown.Render(content)
	if err != nil {
		return content
	}
	return strings.TrimRight(rendered, "\n")
}

func (r *MessageRenderer) renderAttachments(attachments []model.Attachment) string {
	var lines []string
	for _, att := range attachments {
		lines = append(lines, fmt.Sprintf("[%s]", att.Name))
	}
	return r.theme.HeaderMeta.Render(strings.Join(lines, " "))
}

func (r *MessageRenderer) renderCitations(citations []model.Citation) string {
	var b strings.Builder
	b.WriteString(r.theme.HeaderMeta.Render("Sources:"))
	for i, c := range citations {
		title := c.Title
		if title == "" {
			title = c.URL
		}
		b.WriteString(fmt.Sprintf("\n  %d. %s", i+1, r.theme.Citation.Render(title)))
	}
	return b.String()
}
