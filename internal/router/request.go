// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package router

import (
	"errors"
	"fmt"

	"github.com/rexcorp1/rexpro-ai/internal/model"
)

// ============================================================================
// BUILD OPTIONS
// ============================================================================

// Options carries per-send configuration resolved outside the selector:
// the thinking budget table, sampling settings, and an optional model
// override for the media modes.
type Options struct {
	// ThinkingBudgets maps model ID to reasoning token budget. Models
	// absent from the table use DefaultThinkingBudget.
	ThinkingBudgets map[string]int

	// DefaultThinkingBudget applies when the table has no entry.
	// -1 lets the model decide.
	DefaultThinkingBudget int

	// Temperature, when non-nil, overrides the API default.
	Temperature *float64

	// SystemPrompt is prepended as the system instruction.
	SystemPrompt string

	// ModelOverride pins a specific model instead of the table-driven
	// choice. Validated against the mode's capability requirements.
	ModelOverride string

	// Image carries the image-mode generation knobs.
	Image ImageParams
}

// ImageParams are the image-generation settings sealed into an
// image-mode request.
type ImageParams struct {
	Count            int
	NegativePrompt   string
	Seed             int64
	AspectRatio      string
	PersonGeneration string
}

// Build errors.
var (
	// ErrEditNeedsAttachment indicates an image-edit model was selected
	// with no input image.
	ErrEditNeedsAttachment = errors.New("image editing requires an attached image")

	// ErrGenerateRejectsAttachment indicates a text-to-image model was
	// selected with input images attached.
	ErrGenerateRejectsAttachment = errors.New("text-to-image model does not accept attachments")
)

// ============================================================================
// REQUEST
// ============================================================================

// Request is the immutable configuration of one send. It is built once
// per send from the selector state; later selector mutations do not
// reach a request already handed to the orchestrator.
type Request struct {
	Mode        Mode
	ModelID     string
	Prompt      string
	Attachments []model.Attachment

	ThinkingBudget      int
	EnableSearch        bool
	EnableCodeExecution bool
	DeepResearch        bool

	Temperature  *float64
	SystemPrompt string

	Image ImageParams
}

// HasAttachments reports whether any attachments ride with the send.
func (r Request) HasAttachments() bool {
	return len(r.Attachments) > 0
}

// HasImageAttachment reports whether at least one attachment is an image.
func (r Request) HasImageAttachment() bool {
	for _, a := range r.Attachments {
		if a.IsImage() {
			return true
		}
	}
	return false
}

// Build snapshots the selector state plus the prompt into a Request.
// The media modes resolve their model from the attachment set: image
// mode edits when an image is attached and generates otherwise.
func (s *Selector) Build(prompt string, attachments []model.Attachment, opts Options) (Request, error) {
	mode := s.Mode()

	modelID, err := resolveModel(mode, s.modelID, attachments, opts)
	if err != nil {
		return Request{}, err
	}

	req := Request{
		Mode:                mode,
		ModelID:             modelID,
		Prompt:              prompt,
		Attachments:         cloneAttachments(attachments),
		ThinkingBudget:      budgetFor(modelID, opts),
		EnableSearch:        s.toggles.Search || s.toggles.DeepResearch,
		EnableCodeExecution: s.toggles.CodeInterpreter,
		DeepResearch:        s.toggles.DeepResearch,
		Temperature:         opts.Temperature,
		SystemPrompt:        opts.SystemPrompt,
		Image:               opts.Image,
	}
	return req, nil
}

// resolveModel picks the model for a send and validates mode fit.
func resolveModel(mode Mode, selected string, attachments []model.Attachment, opts Options) (string, error) {
	switch mode {
	case ModeImage:
		id := opts.ModelOverride
		if id == "" {
			if hasImage(attachments) {
				return ImageEditModel, nil
			}
			return ImageGenerateModel, nil
		}
		info, ok := model.GetModelInfo(id)
		if !ok {
			return "", fmt.Errorf("%w: %s", ErrUnknownModel, id)
		}
		switch info.Capability {
		case model.CapabilityImageEdit:
			if !hasImage(attachments) {
				return "", ErrEditNeedsAttachment
			}
		case model.CapabilityImageGenerate:
			if hasImage(attachments) {
				return "", ErrGenerateRejectsAttachment
			}
		default:
			return "", fmt.Errorf("%w: %s is %s", ErrIncompatibleModel, info.ID, info.Capability)
		}
		return info.ID, nil

	case ModeVideo:
		if opts.ModelOverride != "" {
			info, ok := model.GetModelInfo(opts.ModelOverride)
			if !ok {
				return "", fmt.Errorf("%w: %s", ErrUnknownModel, opts.ModelOverride)
			}
			if info.Capability != model.CapabilityVideo {
				return "", fmt.Errorf("%w: %s is %s", ErrIncompatibleModel, info.ID, info.Capability)
			}
			return info.ID, nil
		}
		return VideoModel, nil

	default:
		if opts.ModelOverride != "" {
			selected = opts.ModelOverride
		}
		info, ok := model.GetModelInfo(selected)
		if !ok {
			return "", fmt.Errorf("%w: %s", ErrUnknownModel, selected)
		}
		if !info.Capability.IsChat() {
			return "", fmt.Errorf("%w: %s is %s", ErrIncompatibleModel, info.ID, info.Capability)
		}
		return info.ID, nil
	}
}

func hasImage(attachments []model.Attachment) bool {
	for _, a := range attachments {
		if a.IsImage() {
			return true
		}
	}
	return false
}

// budgetFor resolves the thinking budget for a model. Non-reasoning
// models get 0 regardless of the table.
func budgetFor(modelID string, opts Options) int {
	info, ok := model.GetModelInfo(modelID)
	if !ok || info.Capability != model.CapabilityChatReasoning {
		return 0
	}
	if b, ok := opts.ThinkingBudgets[modelID]; ok {
		return b
	}
	return opts.DefaultThinkingBudget
}

func cloneAttachments(in []model.Attachment) []model.Attachment {
	if len(in) == 0 {
		return nil
	}
	out := make([]model.Attachment, len(in))
	copy(out, in)
	return out
}
