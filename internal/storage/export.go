// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/rexcorp1/rexpro-ai/internal/model"
	"github.com/rexcorp1/rexpro-ai/internal/util"
)

// =============================================================================
// SESSION EXPORT
// =============================================================================

// ExportJSON writes a session to path as indented JSON.
func ExportJSON(sess *model.Session, path string) error {
	data, err := json.MarshalIndent(sess, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode session: %w", err)
	}
	return util.AtomicWriteFile(path, data, 0o644)
}

// ExportMarkdown writes a session transcript to path as markdown, one
// section per message with reasoning and citations where present.
func ExportMarkdown(sess *model.Session, path string) error {
	return util.AtomicWriteFile(path, []byte(RenderMarkdown(sess)), 0o644)
}

// RenderMarkdown formats a session transcript as markdown.
func RenderMarkdown(sess *model.Session) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# %s\n\n", sess.GetTitle())
	fmt.Fprintf(&b, "Created: %s\n\n", sess.CreatedAt.Format("2006-01-02 15:04"))

	for _, msg := range sess.Messages {
		switch msg.Role {
		case model.RoleUser:
			b.WriteString("## You\n\n")
		default:
			b.WriteString("## Assistant\n\n")
		}

		if msg.Reasoning != "" {
			b.WriteString("<details><summary>Reasoning</summary>\n\n")
			b.WriteString(msg.Reasoning)
			b.WriteString("\n\n</details>\n\n")
		}

		if msg.Content != "" {
			b.WriteString(msg.Content)
			b.WriteString("\n\n")
		}

		for _, att := range msg.Attachments {
			fmt.Fprintf(&b, "- attachment: %s (%s)\n", att.Name, att.MimeType)
		}
		if len(msg.Attachments) > 0 {
			b.WriteString("\n")
		}

		if len(msg.Citations) > 0 {
			b.WriteString("Sources:\n\n")
			for i, c := range msg.Citations {
				title := c.Title
				if title == "" {
					title = c.URL
				}
				fmt.Fprintf(&b, "%d. [%s](%s)\n", i+1, title, c.URL)
			}
			b.WriteString("\n")
		}
	}

	if sess.Project != nil && !sess.Project.IsEmpty() {
		b.WriteString("## Project files\n\n```\n")
		b.WriteString(sess.Project.RenderTree())
		b.WriteString("\n```\n")
	}

	return b.String()
}
