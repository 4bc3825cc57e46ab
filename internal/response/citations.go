// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package response

import (
	"github.com/rexcorp1/rexpro-ai/internal/genai"
	"github.com/rexcorp1/rexpro-ai/internal/model"
)

// DedupCitations converts grounding chunks into citations, dropping
// entries without a URL and keeping the first occurrence of each URL.
// First-seen order is preserved; a later duplicate never replaces an
// earlier title.
func DedupCitations(chunks []genai.GroundingChunk) []model.Citation {
	var citations []model.Citation
	seen := make(map[string]bool, len(chunks))

	for _, chunk := range chunks {
		if chunk.Web == nil || chunk.Web.URI == "" {
			continue
		}
		if seen[chunk.Web.URI] {
			continue
		}
		seen[chunk.Web.URI] = true
		citations = append(citations, model.Citation{
			URL:   chunk.Web.URI,
			Title: chunk.Web.Title,
		})
	}
	return citations
}
