// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package response

import (
	"strings"
	"testing"
	"time"

	"github.com/rexcorp1/rexpro-ai/internal/genai"
	"github.com/rexcorp1/rexpro-ai/internal/project"
	"github.com/rexcorp1/rexpro-ai/internal/router"
)

// =============================================================================
// THINKING EXTRACTION TESTS
// =============================================================================

func TestExtractThinking(t *testing.T) {
	tests := []struct {
		name          string
		input         string
		wantContent   string
		wantReasoning string
	}{
		{
			name:        "no tags",
			input:       "plain answer",
			wantContent: "plain answer",
		},
		{
			name:          "single span",
			input:         "<thinking>hmm</thinking>the answer",
			wantContent:   "the answer",
			wantReasoning: "hmm",
		},
		{
			name:          "multiple spans",
			input:         "<thinking>one</thinking>a<thinking>two</thinking>b",
			wantContent:   "ab",
			wantReasoning: "one\ntwo",
		},
		{
			name:          "unterminated tag claims the rest",
			input:         "prefix<thinking>never closed",
			wantContent:   "prefix",
			wantReasoning: "never closed",
		},
		{
			name:        "empty span ignored",
			input:       "a<thinking>  </thinking>b",
			wantContent: "ab",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			content, reasoning := ExtractThinking(tt.input)
			if content != tt.wantContent {
				t.Errorf("content = %q, want %q", content, tt.wantContent)
			}
			if reasoning != tt.wantReasoning {
				t.Errorf("reasoning = %q, want %q", reasoning, tt.wantReasoning)
			}
		})
	}
}

// =============================================================================
// CITATION TESTS
// =============================================================================

func TestDedupCitations(t *testing.T) {
	chunks := []genai.GroundingChunk{
		{Web: &genai.WebSource{URI: "https://a.dev", Title: "A"}},
		{Web: &genai.WebSource{URI: "", Title: "no url"}},
		{Web: nil},
		{Web: &genai.WebSource{URI: "https://b.dev", Title: "B"}},
		{Web: &genai.WebSource{URI: "https://a.dev", Title: "A duplicate"}},
	}

	got := DedupCitations(chunks)
	if len(got) != 2 {
		t.Fatalf("len = %d, want 2: %v", len(got), got)
	}
	if got[0].URL != "https://a.dev" || got[0].Title != "A" {
		t.Errorf("first citation = %+v, want first-seen title kept", got[0])
	}
	if got[1].URL != "https://b.dev" {
		t.Errorf("second citation = %+v", got[1])
	}
}

func TestDedupCitations_Empty(t *testing.T) {
	if got := DedupCitations(nil); got != nil {
		t.Errorf("DedupCitations(nil) = %v, want nil", got)
	}
}

// =============================================================================
// PROJECT JSON TESTS
// =============================================================================

const validProjectJSON = `{
  "projectName": "todo-app",
  "explanation": "A simple todo application.",
  "files": [
    {"path": "index.html", "content": "<html></html>"},
    {"path": "src/app.js", "content": "console.log(1)"}
  ]
}`

func TestMergeProject_FencedBlockPreferred(t *testing.T) {
	text := "Here is your project:\n```json\n" + validProjectJSON + "\n```\nEnjoy! {not json}"

	merged, explanation, ok := MergeProject(text, nil)
	if !ok {
		t.Fatalf("MergeProject failed: %s", explanation)
	}
	if merged.Name != "todo-app" {
		t.Errorf("Name = %q", merged.Name)
	}
	if explanation != "A simple todo application." {
		t.Errorf("explanation = %q", explanation)
	}
	if merged.FileCount() != 2 {
		t.Errorf("FileCount = %d, want 2", merged.FileCount())
	}
	if merged.ActiveFile != "src/app.js" {
		t.Errorf("ActiveFile = %q, want the last merged path", merged.ActiveFile)
	}
}

func TestMergeProject_BraceSpanFallback(t *testing.T) {
	text := "Sure thing! " + validProjectJSON + " Done."

	merged, _, ok := MergeProject(text, nil)
	if !ok {
		t.Fatal("MergeProject should parse brace span")
	}
	if _, found := merged.FileContent("src/app.js"); !found {
		t.Error("src/app.js missing after merge")
	}
}

func TestMergeProject_FallbackOnGarbage(t *testing.T) {
	_, explanation, ok := MergeProject("I cannot do that.", nil)
	if ok {
		t.Fatal("MergeProject should fail on non-JSON text")
	}
	if !strings.HasPrefix(explanation, FallbackPrefix) {
		t.Errorf("fallback = %q, want %q prefix", explanation, FallbackPrefix)
	}
	if !strings.Contains(explanation, "I cannot do that.") {
		t.Error("fallback should carry the raw text")
	}
}

func TestMergeProject_MissingFields(t *testing.T) {
	_, _, ok := MergeProject(`{"projectName":"x","files":[]}`, nil)
	if ok {
		t.Error("payload without explanation should fail")
	}
}

func TestMergeProject_CopyOnWrite(t *testing.T) {
	prior := project.NewProject("todo-app", "v1")
	if err := prior.Upsert("index.html", "old"); err != nil {
		t.Fatal(err)
	}

	merged, _, ok := MergeProject(validProjectJSON, prior)
	if !ok {
		t.Fatal("MergeProject failed")
	}

	if content, _ := merged.FileContent("index.html"); content != "<html></html>" {
		t.Errorf("merged index.html = %q", content)
	}
	if content, _ := prior.FileContent("index.html"); content != "old" {
		t.Error("prior project was mutated")
	}
	if prior.FileCount() != 1 {
		t.Error("prior project gained files")
	}
}

func TestMergeProject_SkipsConflictingEntries(t *testing.T) {
	prior := project.NewProject("todo-app", "v1")
	if err := prior.Upsert("src/app.js/old.js", "nested"); err != nil {
		t.Fatal(err)
	}

	// src/app.js is a directory in prior; that entry is skipped, the
	// rest of the batch still applies.
	merged, _, ok := MergeProject(validProjectJSON, prior)
	if !ok {
		t.Fatal("MergeProject failed")
	}
	if _, found := merged.FileContent("index.html"); !found {
		t.Error("index.html should apply despite the conflicting entry")
	}
	if _, isDir := merged.Lookup("src/app.js").(*project.Dir); !isDir {
		t.Error("src/app.js should remain a directory")
	}
}

// =============================================================================
// FINALIZE TESTS
// =============================================================================

var testTime = time.UnixMilli(1700000000000)

func TestFinalize_Chat(t *testing.T) {
	raw := Raw{
		Text:    "<thinking>consider</thinking>The answer is 4.",
		Thought: "api thought",
		Grounding: []genai.GroundingChunk{
			{Web: &genai.WebSource{URI: "https://a.dev", Title: "A"}},
		},
		Usage: &genai.UsageMetadata{TotalTokenCount: 99},
	}

	res := Finalize(router.ModeChat, raw, nil, testTime)
	if res.Content != "The answer is 4." {
		t.Errorf("Content = %q", res.Content)
	}
	if res.Reasoning != "api thought\nconsider" {
		t.Errorf("Reasoning = %q", res.Reasoning)
	}
	if len(res.Citations) != 1 {
		t.Errorf("Citations = %v", res.Citations)
	}
	if res.TokenCount != 99 {
		t.Errorf("TokenCount = %d", res.TokenCount)
	}
	if res.FilesUpdated {
		t.Error("chat mode should not report file updates")
	}
}

func TestFinalize_ProjectSuccess(t *testing.T) {
	res := Finalize(router.ModeProject, Raw{Text: validProjectJSON}, nil, testTime)
	if !res.FilesUpdated {
		t.Fatal("FilesUpdated should be true")
	}
	if res.Project == nil || res.Project.FileCount() != 2 {
		t.Errorf("Project = %+v", res.Project)
	}
	if res.Content != "A simple todo application." {
		t.Errorf("Content = %q", res.Content)
	}
}

func TestFinalize_ProjectFallbackKeepsPrior(t *testing.T) {
	prior := project.NewProject("x", "y")
	if err := prior.Upsert("a.txt", "keep"); err != nil {
		t.Fatal(err)
	}

	res := Finalize(router.ModeProject, Raw{Text: "nope"}, prior, testTime)
	if res.FilesUpdated {
		t.Error("fallback should not report file updates")
	}
	if res.Project != prior {
		t.Error("fallback should keep the prior project untouched")
	}
	if !strings.HasPrefix(res.Content, FallbackPrefix) {
		t.Errorf("Content = %q", res.Content)
	}
}

func TestFinalize_ImageAttachment(t *testing.T) {
	raw := Raw{
		Text:  "Here you go.",
		Image: &genai.GeneratedImage{MimeType: "image/png", Data: "aW1n"},
	}

	res := Finalize(router.ModeImage, raw, nil, testTime)
	if len(res.Attachments) != 1 {
		t.Fatalf("Attachments = %v", res.Attachments)
	}
	att := res.Attachments[0]
	if att.Name != "generated-image-1700000000000.png" {
		t.Errorf("Name = %q", att.Name)
	}
	if !att.IsImage() {
		t.Error("generated attachment should be an image")
	}
}

func TestFinalize_VideoPlaceholder(t *testing.T) {
	raw := Raw{
		Video: &genai.GeneratedVideo{MimeType: "video/mp4", URI: "https://cdn/v.mp4"},
	}

	res := Finalize(router.ModeVideo, raw, nil, testTime)
	if res.Content != videoPlaceholderText {
		t.Errorf("Content = %q", res.Content)
	}
	if len(res.Attachments) != 1 {
		t.Fatalf("Attachments = %v", res.Attachments)
	}
	if res.Attachments[0].Name != "generated-video-1700000000000.mp4" {
		t.Errorf("Name = %q", res.Attachments[0].Name)
	}
	if res.Attachments[0].DataURL != "https://cdn/v.mp4" {
		t.Errorf("DataURL = %q, want URI when no inline data", res.Attachments[0].DataURL)
	}
}
