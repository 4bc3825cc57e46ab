// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package router

import "fmt"

// ============================================================================
// MODE TYPE
// ============================================================================

// Mode is the generation mode of a send.
type Mode int

const (
	// ModeChat is plain conversational text generation.
	ModeChat Mode = iota
	// ModeProject generates a structured multi-file project.
	ModeProject
	// ModeImage generates or edits an image.
	ModeImage
	// ModeVideo generates a video via the long-poll operation API.
	ModeVideo
)

// String returns the human-readable name of the mode.
func (m Mode) String() string {
	switch m {
	case ModeChat:
		return "Chat"
	case ModeProject:
		return "Project"
	case ModeImage:
		return "Image"
	case ModeVideo:
		return "Video"
	default:
		return fmt.Sprintf("Mode(%d)", m)
	}
}

// IsMedia returns true for the image and video modes.
func (m Mode) IsMedia() bool {
	return m == ModeImage || m == ModeVideo
}

// ============================================================================
// TOGGLE TYPE
// ============================================================================

// Toggle is one of the user-switchable capabilities. The first four are
// mutually exclusive: enabling one disables the other three. Search is
// independent.
type Toggle int

const (
	// ToggleCodeInterpreter enables the code execution tool.
	ToggleCodeInterpreter Toggle = iota
	// ToggleDeepResearch enables deep research with search grounding.
	ToggleDeepResearch
	// ToggleImageTool switches the send into image mode.
	ToggleImageTool
	// ToggleVideoTool switches the send into video mode.
	ToggleVideoTool
	// ToggleSearch enables search grounding without deep research.
	ToggleSearch
)

// String returns the human-readable name of the toggle.
func (t Toggle) String() string {
	switch t {
	case ToggleCodeInterpreter:
		return "CodeInterpreter"
	case ToggleDeepResearch:
		return "DeepResearch"
	case ToggleImageTool:
		return "ImageTool"
	case ToggleVideoTool:
		return "VideoTool"
	case ToggleSearch:
		return "Search"
	default:
		return fmt.Sprintf("Toggle(%d)", t)
	}
}

// exclusive reports whether t participates in the mutual exclusion set.
func (t Toggle) exclusive() bool {
	return t == ToggleCodeInterpreter || t == ToggleDeepResearch ||
		t == ToggleImageTool || t == ToggleVideoTool
}
