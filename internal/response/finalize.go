// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package response

import (
	"fmt"
	"time"

	"github.com/rexcorp1/rexpro-ai/internal/genai"
	"github.com/rexcorp1/rexpro-ai/internal/model"
	"github.com/rexcorp1/rexpro-ai/internal/project"
	"github.com/rexcorp1/rexpro-ai/internal/router"
)

// videoPlaceholderText is shown alongside a generated video attachment.
const videoPlaceholderText = "Here is the video you requested."

// Raw is everything a finished generation produced, before
// post-processing.
type Raw struct {
	// Text is the accumulated visible output.
	Text string

	// Thought is reasoning text delivered out-of-band by the API.
	Thought string

	// Grounding carries search sources in arrival order.
	Grounding []genai.GroundingChunk

	// Image is the generated/edited image, for the image mode.
	Image *genai.GeneratedImage

	// Video is the generated video, for the video mode.
	Video *genai.GeneratedVideo

	// Usage is the token accounting reported by the API.
	Usage *genai.UsageMetadata
}

// Result is the post-processed outcome applied to the placeholder
// message.
type Result struct {
	Content      string
	Reasoning    string
	Citations    []model.Citation
	Attachments  []model.Attachment
	Project      *project.Project
	FilesUpdated bool
	TokenCount   int
}

// Finalize post-processes a finished generation. It is pure: prior is
// cloned before merging, and at supplies the timestamp for generated
// media names.
func Finalize(mode router.Mode, raw Raw, prior *project.Project, at time.Time) Result {
	res := Result{Citations: DedupCitations(raw.Grounding)}
	if raw.Usage != nil {
		res.TokenCount = raw.Usage.TotalTokenCount
	}

	content, tagged := ExtractThinking(raw.Text)
	res.Reasoning = joinReasoning(raw.Thought, tagged)

	switch mode {
	case router.ModeProject:
		merged, explanation, ok := MergeProject(content, prior)
		if !ok {
			res.Content = explanation
			res.Project = prior
			return res
		}
		res.Content = explanation
		res.Project = merged
		res.FilesUpdated = true

	case router.ModeImage:
		res.Content = content
		res.Project = prior
		if raw.Image != nil {
			res.Attachments = append(res.Attachments, model.NewAttachment(
				fmt.Sprintf("generated-image-%d.png", at.UnixMilli()),
				raw.Image.MimeType,
				raw.Image.Data,
			))
		}

	case router.ModeVideo:
		res.Content = content
		res.Project = prior
		if raw.Video != nil {
			if res.Content == "" {
				res.Content = videoPlaceholderText
			}
			att := model.NewAttachment(
				fmt.Sprintf("generated-video-%d.mp4", at.UnixMilli()),
				raw.Video.MimeType,
				raw.Video.Data,
			)
			if raw.Video.Data == "" {
				att.DataURL = raw.Video.URI
			}
			res.Attachments = append(res.Attachments, att)
		}

	default:
		res.Content = content
		res.Project = prior
	}

	return res
}

func joinReasoning(a, b string) string {
	switch {
	case a == "":
		return b
	case b == "":
		return a
	default:
		return a + "\n" + b
	}
}
