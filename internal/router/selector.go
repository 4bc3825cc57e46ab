// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package router

import (
	"errors"
	"fmt"

	"github.com/rexcorp1/rexpro-ai/internal/model"
)

// ============================================================================
// MODEL TABLES
// ============================================================================

// Default model identifiers per concern. Mode compatibility is resolved
// against the model registry's capability classes.
const (
	DefaultChatModel   = "gemini-2.5-flash"
	ImageGenerateModel = "imagen-4.0-generate-001"
	ImageEditModel     = "gemini-2.0-flash-preview-image-generation"
	VideoModel         = "veo-2.0-generate-001"
)

// DeepResearchModels is the set of models deep research may run on.
var DeepResearchModels = []string{
	"gemini-2.5-flash",
	"gemini-2.5-pro",
}

// Selection errors.
var (
	// ErrUnknownModel indicates a model ID absent from the registry.
	ErrUnknownModel = errors.New("unknown model")

	// ErrIncompatibleModel indicates the model's capability class does
	// not fit the active mode or toggles.
	ErrIncompatibleModel = errors.New("model incompatible with current mode")
)

func isDeepResearchModel(id string) bool {
	for _, m := range DeepResearchModels {
		if m == id {
			return true
		}
	}
	return false
}

// ============================================================================
// SELECTOR
// ============================================================================

// Toggles is the current on/off state of the user-switchable
// capabilities. Zero value means everything off.
type Toggles struct {
	CodeInterpreter bool
	DeepResearch    bool
	ImageTool       bool
	VideoTool       bool
	Search          bool
}

// Get returns the state of a single toggle.
func (t Toggles) Get(toggle Toggle) bool {
	switch toggle {
	case ToggleCodeInterpreter:
		return t.CodeInterpreter
	case ToggleDeepResearch:
		return t.DeepResearch
	case ToggleImageTool:
		return t.ImageTool
	case ToggleVideoTool:
		return t.VideoTool
	case ToggleSearch:
		return t.Search
	default:
		return false
	}
}

// Selector holds the mutable pre-send state: project mode flag, tool
// toggles, and the chosen chat model. It is not safe for concurrent
// use; the orchestrator owns it from a single goroutine.
type Selector struct {
	projectMode bool
	toggles     Toggles
	modelID     string

	// mediaModelID overrides the table-driven model while an image or
	// video toggle is active. Cleared on every exclusive-set change.
	mediaModelID string
}

// NewSelector returns a selector in chat mode with the default model.
func NewSelector() *Selector {
	return &Selector{modelID: DefaultChatModel}
}

// Toggles returns the current toggle state.
func (s *Selector) Toggles() Toggles {
	return s.toggles
}

// ModelID returns the currently selected chat model.
func (s *Selector) ModelID() string {
	return s.modelID
}

// ProjectMode reports whether project mode is active.
func (s *Selector) ProjectMode() bool {
	return s.projectMode
}

// Mode derives the generation mode from the current state. The
// exclusive set keeps at most one of {project, research, image, video}
// active, so the order here never arbitrates a conflict.
func (s *Selector) Mode() Mode {
	switch {
	case s.toggles.ImageTool:
		return ModeImage
	case s.toggles.VideoTool:
		return ModeVideo
	case s.projectMode:
		return ModeProject
	default:
		return ModeChat
	}
}

// SetProjectMode switches project mode on or off. Project mode is a
// member of the exclusive set: entering it clears every exclusive
// toggle, and enabling any exclusive toggle leaves it.
func (s *Selector) SetProjectMode(on bool) {
	s.projectMode = on
	if on {
		s.toggles.CodeInterpreter = false
		s.toggles.DeepResearch = false
		s.toggles.ImageTool = false
		s.toggles.VideoTool = false
		s.mediaModelID = ""
	}
}

// SetToggle flips one toggle. Enabling a member of the exclusive set
// turns the other members off, project mode included. The model is left
// alone unless it no longer fits the resulting state.
func (s *Selector) SetToggle(toggle Toggle, on bool) {
	switch toggle {
	case ToggleCodeInterpreter:
		s.toggles.CodeInterpreter = on
	case ToggleDeepResearch:
		s.toggles.DeepResearch = on
	case ToggleImageTool:
		s.toggles.ImageTool = on
		s.mediaModelID = ""
	case ToggleVideoTool:
		s.toggles.VideoTool = on
		s.mediaModelID = ""
	case ToggleSearch:
		s.toggles.Search = on
		return
	default:
		return
	}

	if on && toggle.exclusive() {
		if toggle != ToggleCodeInterpreter {
			s.toggles.CodeInterpreter = false
		}
		if toggle != ToggleDeepResearch {
			s.toggles.DeepResearch = false
		}
		if toggle != ToggleImageTool {
			s.toggles.ImageTool = false
		}
		if toggle != ToggleVideoTool {
			s.toggles.VideoTool = false
		}
		s.projectMode = false

		if toggle == ToggleDeepResearch && !isDeepResearchModel(s.modelID) {
			s.modelID = DeepResearchModels[0]
		}
	}
}

// SetModel selects a model, validating it against the registry and the
// active state. While an image or video toggle is on the selection
// becomes that mode's override instead of touching the chat model.
func (s *Selector) SetModel(id string) error {
	info, ok := model.GetModelInfo(id)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownModel, id)
	}
	switch s.Mode() {
	case ModeImage:
		if info.Capability != model.CapabilityImageGenerate && info.Capability != model.CapabilityImageEdit {
			return fmt.Errorf("%w: %s is %s", ErrIncompatibleModel, info.ID, info.Capability)
		}
		s.mediaModelID = info.ID
		return nil
	case ModeVideo:
		if info.Capability != model.CapabilityVideo {
			return fmt.Errorf("%w: %s is %s", ErrIncompatibleModel, info.ID, info.Capability)
		}
		s.mediaModelID = info.ID
		return nil
	}
	if !info.Capability.IsChat() {
		return fmt.Errorf("%w: %s is %s", ErrIncompatibleModel, info.ID, info.Capability)
	}
	if s.toggles.DeepResearch && !isDeepResearchModel(info.ID) {
		return fmt.Errorf("%w: deep research supports only %v", ErrIncompatibleModel, DeepResearchModels)
	}
	s.modelID = info.ID
	return nil
}

// MediaModelOverride returns the model pinned for the active image or
// video mode, or "" when no override applies.
func (s *Selector) MediaModelOverride() string {
	switch s.Mode() {
	case ModeImage, ModeVideo:
		return s.mediaModelID
	default:
		return ""
	}
}
