// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"fmt"
	"sort"
	"strings"
)

// =============================================================================
// CAPABILITY CLASS
// =============================================================================

// Capability categorizes what a model can generate. Mode compatibility is
// decided from the capability class, never from the model ID string.
type Capability int

const (
	// CapabilityChat is a text model without visible reasoning support.
	CapabilityChat Capability = iota
	// CapabilityChatReasoning is a text model with a configurable thinking budget.
	CapabilityChatReasoning
	// CapabilityImageGenerate is a text-to-image model; attachments are rejected.
	CapabilityImageGenerate
	// CapabilityImageEdit is an image-editing model; requires at least one attachment.
	CapabilityImageEdit
	// CapabilityVideo is a text/image-to-video model.
	CapabilityVideo
)

// String returns the human-readable name of the capability class.
func (c Capability) String() string {
	switch c {
	case CapabilityChat:
		return "Chat"
	case CapabilityChatReasoning:
		return "Reasoning"
	case CapabilityImageGenerate:
		return "ImageGenerate"
	case CapabilityImageEdit:
		return "ImageEdit"
	case CapabilityVideo:
		return "Video"
	default:
		return fmt.Sprintf("Capability(%d)", c)
	}
}

// IsChat reports whether the model holds text conversations.
func (c Capability) IsChat() bool {
	return c == CapabilityChat || c == CapabilityChatReasoning
}

// =============================================================================
// MODEL INFO TYPE
// =============================================================================

// ModelInfo contains metadata about a selectable model.
type ModelInfo struct {
	// ID is the model identifier used in API calls
	ID string `json:"id"`

	// Name is the human-readable display name
	Name string `json:"name"`

	// Capability is the model's capability class
	Capability Capability `json:"capability"`

	// MaxTokens is the maximum context window size
	MaxTokens int `json:"maxTokens"`

	// SupportsSearch indicates whether search grounding can be enabled
	SupportsSearch bool `json:"supportsSearch"`

	// Description is a brief explanation of the model's strengths
	Description string `json:"description"`
}

// =============================================================================
// MODEL REGISTRY
// =============================================================================

// Models is the registry of known models with their metadata.
var Models = map[string]ModelInfo{
	"flash": {
		ID:             "gemini-2.5-flash",
		Name:           "Gemini 2.5 Flash",
		Capability:     CapabilityChatReasoning,
		MaxTokens:      1048576,
		SupportsSearch: true,
		Description:    "Fast reasoning model for everyday chat",
	},
	"pro": {
		ID:             "gemini-2.5-pro",
		Name:           "Gemini 2.5 Pro",
		Capability:     CapabilityChatReasoning,
		MaxTokens:      1048576,
		SupportsSearch: true,
		Description:    "Most capable model for complex reasoning and code",
	},
	"flash-lite": {
		ID:             "gemini-2.0-flash-lite",
		Name:           "Gemini 2.0 Flash Lite",
		Capability:     CapabilityChat,
		MaxTokens:      1048576,
		SupportsSearch: false,
		Description:    "Low-latency model for simple exchanges",
	},
	"imagen": {
		ID:          "imagen-4.0-generate-001",
		Name:        "Imagen 4",
		Capability:  CapabilityImageGenerate,
		MaxTokens:   480,
		Description: "Text-to-image generation",
	},
	"image-edit": {
		ID:          "gemini-2.0-flash-preview-image-generation",
		Name:        "Gemini Flash Image Edit",
		Capability:  CapabilityImageEdit,
		MaxTokens:   32768,
		Description: "Conversational image editing over an input image",
	},
	"veo": {
		ID:          "veo-2.0-generate-001",
		Name:        "Veo 2",
		Capability:  CapabilityVideo,
		MaxTokens:   1024,
		Description: "Text/image-to-video generation",
	},
}

// =============================================================================
// MODEL LOOKUP FUNCTIONS
// =============================================================================

// GetModelInfo looks up a model by short name or full API ID.
func GetModelInfo(nameOrID string) (ModelInfo, bool) {
	if info, ok := Models[nameOrID]; ok {
		return info, true
	}
	for _, info := range Models {
		if info.ID == nameOrID {
			return info, true
		}
	}
	return ModelInfo{}, false
}

// ModelsByCapability returns all models of a given capability class,
// sorted by ID for stable ordering.
func ModelsByCapability(c Capability) []ModelInfo {
	result := []ModelInfo{}
	for _, info := range Models {
		if info.Capability == c {
			result = append(result, info)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result
}

// ChatModels returns all chat-capable models (chat and reasoning classes).
func ChatModels() []ModelInfo {
	result := []ModelInfo{}
	for _, info := range Models {
		if info.Capability.IsChat() {
			result = append(result, info)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result
}

// ContextString returns a formatted context window string.
func (m ModelInfo) ContextString() string {
	if m.MaxTokens >= 1000000 {
		return fmt.Sprintf("%.1fM tokens", float64(m.MaxTokens)/1000000)
	}
	if m.MaxTokens >= 1000 {
		return fmt.Sprintf("%dK tokens", m.MaxTokens/1000)
	}
	return fmt.Sprintf("%d tokens", m.MaxTokens)
}

// CapabilitiesString returns a comma-separated capability summary for the
// model picker UI.
func (m ModelInfo) CapabilitiesString() string {
	caps := []string{m.Capability.String()}
	if m.MaxTokens >= 100000 {
		caps = append(caps, "Long context")
	}
	if m.SupportsSearch {
		caps = append(caps, "Search grounding")
	}
	if strings.Contains(strings.ToLower(m.Name), "flash") {
		caps = append(caps, "Low latency")
	}
	return strings.Join(caps, ", ")
}
