// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package response

import "strings"

const (
	thinkingOpen  = "<thinking>"
	thinkingClose = "</thinking>"
)

// ExtractThinking splits inline thinking tags out of text. All
// <thinking>...</thinking> spans move to the reasoning return, joined
// with newlines; an unterminated opening tag claims the rest of the
// text. The visible content keeps its surrounding whitespace trimmed.
func ExtractThinking(text string) (content, reasoning string) {
	if !strings.Contains(text, thinkingOpen) {
		return strings.TrimSpace(text), ""
	}

	var visible strings.Builder
	var thoughts []string

	rest := text
	for {
		start := strings.Index(rest, thinkingOpen)
		if start < 0 {
			visible.WriteString(rest)
			break
		}
		visible.WriteString(rest[:start])
		rest = rest[start+len(thinkingOpen):]

		end := strings.Index(rest, thinkingClose)
		if end < 0 {
			// Unterminated tag: everything remaining is reasoning.
			if t := strings.TrimSpace(rest); t != "" {
				thoughts = append(thoughts, t)
			}
			break
		}
		if t := strings.TrimSpace(rest[:end]); t != "" {
			thoughts = append(thoughts, t)
		}
		rest = rest[end+len(thinkingClose):]
	}

	return strings.TrimSpace(visible.String()), strings.Join(thoughts, "\n")
}
