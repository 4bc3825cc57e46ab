// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package response

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/rexcorp1/rexpro-ai/internal/project"
)

// FallbackPrefix introduces the raw model output when project parsing
// fails and the text is shown as-is.
const FallbackPrefix = "The response was not in the expected format."

// ErrNotProjectJSON indicates the text contained no parseable project
// payload.
var ErrNotProjectJSON = errors.New("no project JSON in response")

// projectPayload is the wire shape a project-mode response must carry.
type projectPayload struct {
	ProjectName string              `json:"projectName"`
	Explanation string              `json:"explanation"`
	Files       []project.FileEntry `json:"files"`
}

// isolateJSON extracts the JSON document from model output. A fenced
// ```json block wins; otherwise the span from the first '{' to the
// last '}' is taken.
func isolateJSON(text string) (string, bool) {
	if fenced, ok := fencedJSONBlock(text); ok {
		return fenced, true
	}
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end <= start {
		return "", false
	}
	return text[start : end+1], true
}

// fencedJSONBlock returns the body of the first ```json fence.
func fencedJSONBlock(text string) (string, bool) {
	const fence = "```json"
	start := strings.Index(text, fence)
	if start < 0 {
		return "", false
	}
	body := text[start+len(fence):]
	end := strings.Index(body, "```")
	if end < 0 {
		return "", false
	}
	return strings.TrimSpace(body[:end]), true
}

// parseProject isolates and decodes the project payload, requiring all
// three fields.
func parseProject(text string) (*projectPayload, error) {
	raw, ok := isolateJSON(text)
	if !ok {
		return nil, ErrNotProjectJSON
	}

	var payload projectPayload
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotProjectJSON, err)
	}
	if payload.ProjectName == "" || payload.Explanation == "" || payload.Files == nil {
		return nil, fmt.Errorf("%w: missing required fields", ErrNotProjectJSON)
	}
	return &payload, nil
}

// MergeProject parses a project-mode response and merges its files into
// prior (copy-on-write; prior is never mutated). On parse failure it
// returns the raw text prefixed with FallbackPrefix and a nil project.
//
// Entries that conflict with the existing tree (a directory where the
// entry needs a file, or the reverse) are skipped individually; the
// remaining entries still land.
func MergeProject(text string, prior *project.Project) (merged *project.Project, explanation string, ok bool) {
	payload, err := parseProject(text)
	if err != nil {
		return nil, FallbackPrefix + "\n\n" + strings.TrimSpace(text), false
	}

	if prior != nil {
		merged = prior.Clone()
	} else {
		merged = project.NewProject(payload.ProjectName, payload.Explanation)
	}
	merged.Name = payload.ProjectName
	merged.Explanation = payload.Explanation
	merged.ApplyFiles(payload.Files)

	return merged, payload.Explanation, true
}
