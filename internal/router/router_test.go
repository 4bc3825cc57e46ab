// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package router

import (
	"errors"
	"testing"

	"github.com/rexcorp1/rexpro-ai/internal/model"
)

// =============================================================================
// SELECTOR TESTS
// =============================================================================

func TestSelector_Defaults(t *testing.T) {
	s := NewSelector()
	if s.Mode() != ModeChat {
		t.Errorf("Mode = %v, want ModeChat", s.Mode())
	}
	if s.ModelID() != DefaultChatModel {
		t.Errorf("ModelID = %q, want %q", s.ModelID(), DefaultChatModel)
	}
}

func TestSetToggle_MutualExclusion(t *testing.T) {
	tests := []struct {
		name   string
		first  Toggle
		second Toggle
	}{
		{"code then research", ToggleCodeInterpreter, ToggleDeepResearch},
		{"research then image", ToggleDeepResearch, ToggleImageTool},
		{"image then video", ToggleImageTool, ToggleVideoTool},
		{"video then code", ToggleVideoTool, ToggleCodeInterpreter},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewSelector()
			s.SetToggle(tt.first, true)
			s.SetToggle(tt.second, true)

			if !s.Toggles().Get(tt.second) {
				t.Errorf("%v should be on", tt.second)
			}
			if s.Toggles().Get(tt.first) {
				t.Errorf("%v should have been turned off by %v", tt.first, tt.second)
			}
		})
	}
}

func TestSetToggle_SearchIsIndependent(t *testing.T) {
	s := NewSelector()
	s.SetToggle(ToggleSearch, true)
	s.SetToggle(ToggleCodeInterpreter, true)

	if !s.Toggles().Search {
		t.Error("search should survive enabling code interpreter")
	}
	if !s.Toggles().CodeInterpreter {
		t.Error("code interpreter should be on")
	}
}

func TestSetToggle_ProjectModeInExclusiveSet(t *testing.T) {
	s := NewSelector()

	s.SetProjectMode(true)
	s.SetToggle(ToggleDeepResearch, true)
	if s.ProjectMode() {
		t.Error("project mode should have been cleared by deep research")
	}
	if !s.Toggles().DeepResearch {
		t.Error("deep research should be on")
	}

	s.SetProjectMode(true)
	if s.Toggles().DeepResearch {
		t.Error("entering project mode should clear deep research")
	}

	// A full image toggle cycle must not bring project mode back.
	s.SetToggle(ToggleImageTool, true)
	s.SetToggle(ToggleImageTool, false)
	if s.ProjectMode() {
		t.Error("project mode came back after the image toggle cycle")
	}
	if s.Mode() != ModeChat {
		t.Errorf("Mode = %v, want ModeChat", s.Mode())
	}
}

func TestSetToggle_ModelResetOnlyOnMismatch(t *testing.T) {
	s := NewSelector()
	if err := s.SetModel("gemini-2.0-flash-lite"); err != nil {
		t.Fatal(err)
	}

	s.SetToggle(ToggleDeepResearch, true)
	if s.ModelID() != DeepResearchModels[0] {
		t.Errorf("ModelID = %q, want %q after enabling research on an incompatible model", s.ModelID(), DeepResearchModels[0])
	}

	// An allowlisted model survives the research toggle in both directions.
	s = NewSelector()
	if err := s.SetModel("gemini-2.5-pro"); err != nil {
		t.Fatal(err)
	}
	s.SetToggle(ToggleDeepResearch, true)
	if s.ModelID() != "gemini-2.5-pro" {
		t.Errorf("ModelID = %q, allowlisted model should survive enabling research", s.ModelID())
	}
	s.SetToggle(ToggleDeepResearch, false)
	if s.ModelID() != "gemini-2.5-pro" {
		t.Errorf("ModelID = %q, model should survive disabling research", s.ModelID())
	}
}

func TestSelector_ModeDerivation(t *testing.T) {
	s := NewSelector()

	s.SetToggle(ToggleImageTool, true)
	if s.Mode() != ModeImage {
		t.Errorf("Mode = %v, want ModeImage", s.Mode())
	}

	s.SetToggle(ToggleVideoTool, true)
	if s.Mode() != ModeVideo {
		t.Errorf("Mode = %v, want ModeVideo", s.Mode())
	}

	s.SetProjectMode(true)
	if s.Mode() != ModeProject {
		t.Errorf("Mode = %v, want ModeProject (media toggles cleared)", s.Mode())
	}
	if s.Toggles().VideoTool {
		t.Error("entering project mode should clear the video toggle")
	}

	s.SetProjectMode(false)
	if s.Mode() != ModeChat {
		t.Errorf("Mode = %v, want ModeChat", s.Mode())
	}
}

func TestSetModel_Validation(t *testing.T) {
	s := NewSelector()

	if err := s.SetModel("no-such-model"); !errors.Is(err, ErrUnknownModel) {
		t.Errorf("err = %v, want ErrUnknownModel", err)
	}
	if err := s.SetModel(VideoModel); !errors.Is(err, ErrIncompatibleModel) {
		t.Errorf("err = %v, want ErrIncompatibleModel for video model in chat", err)
	}

	s.SetToggle(ToggleDeepResearch, true)
	if err := s.SetModel("gemini-2.0-flash-lite"); !errors.Is(err, ErrIncompatibleModel) {
		t.Errorf("err = %v, want ErrIncompatibleModel outside research set", err)
	}
	if err := s.SetModel("gemini-2.5-pro"); err != nil {
		t.Errorf("SetModel within research set: %v", err)
	}
}

// =============================================================================
// BUILD TESTS
// =============================================================================

func TestBuild_ChatSnapshot(t *testing.T) {
	s := NewSelector()
	s.SetToggle(ToggleSearch, true)

	atts := []model.Attachment{model.NewAttachment("a.png", "image/png", "QQ==")}
	req, err := s.Build("hello", atts, Options{
		ThinkingBudgets:       map[string]int{DefaultChatModel: 8192},
		DefaultThinkingBudget: -1,
	})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	if req.Mode != ModeChat || req.ModelID != DefaultChatModel {
		t.Errorf("req = %+v", req)
	}
	if !req.EnableSearch {
		t.Error("EnableSearch should be set")
	}
	if req.ThinkingBudget != 8192 {
		t.Errorf("ThinkingBudget = %d, want 8192", req.ThinkingBudget)
	}

	// Immutability: later mutations never reach the built request.
	s.SetToggle(ToggleImageTool, true)
	atts[0].Name = "b.png"
	if req.Mode != ModeChat {
		t.Error("built request changed mode after selector mutation")
	}
	if req.Attachments[0].Name != "a.png" {
		t.Error("built request shares attachment backing array with caller")
	}
}

func TestBuild_ImageModeModelByAttachment(t *testing.T) {
	s := NewSelector()
	s.SetToggle(ToggleImageTool, true)

	req, err := s.Build("a fox", nil, Options{})
	if err != nil {
		t.Fatal(err)
	}
	if req.ModelID != ImageGenerateModel {
		t.Errorf("no attachment: ModelID = %q, want generate model", req.ModelID)
	}

	req, err = s.Build("make it blue", []model.Attachment{
		model.NewAttachment("in.png", "image/png", "QQ=="),
	}, Options{})
	if err != nil {
		t.Fatal(err)
	}
	if req.ModelID != ImageEditModel {
		t.Errorf("with attachment: ModelID = %q, want edit model", req.ModelID)
	}
}

func TestBuild_ImageModeOverrideValidation(t *testing.T) {
	s := NewSelector()
	s.SetToggle(ToggleImageTool, true)
	img := []model.Attachment{model.NewAttachment("in.png", "image/png", "QQ==")}

	_, err := s.Build("x", nil, Options{ModelOverride: ImageEditModel})
	if !errors.Is(err, ErrEditNeedsAttachment) {
		t.Errorf("err = %v, want ErrEditNeedsAttachment", err)
	}

	_, err = s.Build("x", img, Options{ModelOverride: ImageGenerateModel})
	if !errors.Is(err, ErrGenerateRejectsAttachment) {
		t.Errorf("err = %v, want ErrGenerateRejectsAttachment", err)
	}
}

func TestBuild_VideoMode(t *testing.T) {
	s := NewSelector()
	s.SetToggle(ToggleVideoTool, true)

	req, err := s.Build("a sunrise", nil, Options{})
	if err != nil {
		t.Fatal(err)
	}
	if req.Mode != ModeVideo || req.ModelID != VideoModel {
		t.Errorf("req = %+v", req)
	}
}

func TestBuild_ThinkingBudgetZeroForNonReasoning(t *testing.T) {
	s := NewSelector()
	if err := s.SetModel("gemini-2.0-flash-lite"); err != nil {
		t.Fatal(err)
	}

	req, err := s.Build("hi", nil, Options{DefaultThinkingBudget: 4096})
	if err != nil {
		t.Fatal(err)
	}
	if req.ThinkingBudget != 0 {
		t.Errorf("ThinkingBudget = %d, want 0 for non-reasoning model", req.ThinkingBudget)
	}
}

func TestBuild_DeepResearchEnablesSearch(t *testing.T) {
	s := NewSelector()
	s.SetToggle(ToggleDeepResearch, true)

	req, err := s.Build("research this", nil, Options{})
	if err != nil {
		t.Fatal(err)
	}
	if !req.DeepResearch || !req.EnableSearch {
		t.Errorf("req = %+v, want DeepResearch and EnableSearch set", req)
	}
}

func TestSetModel_MediaOverride(t *testing.T) {
	s := NewSelector()
	s.SetToggle(ToggleImageTool, true)

	if err := s.SetModel(VideoModel); !errors.Is(err, ErrIncompatibleModel) {
		t.Errorf("err = %v, want ErrIncompatibleModel for a video model in image mode", err)
	}
	if err := s.SetModel(ImageEditModel); err != nil {
		t.Fatal(err)
	}
	if got := s.MediaModelOverride(); got != ImageEditModel {
		t.Errorf("MediaModelOverride = %q, want %q", got, ImageEditModel)
	}
	if s.ModelID() != DefaultChatModel {
		t.Errorf("ModelID = %q, chat selection must not change in image mode", s.ModelID())
	}

	// The pinned edit model makes the attachment requirement reachable.
	_, err := s.Build("x", nil, Options{ModelOverride: s.MediaModelOverride()})
	if !errors.Is(err, ErrEditNeedsAttachment) {
		t.Errorf("err = %v, want ErrEditNeedsAttachment", err)
	}

	// Leaving image mode drops the override.
	s.SetToggle(ToggleImageTool, false)
	if got := s.MediaModelOverride(); got != "" {
		t.Errorf("MediaModelOverride = %q after leaving image mode, want empty", got)
	}
	s.SetToggle(ToggleImageTool, true)
	if got := s.MediaModelOverride(); got != "" {
		t.Errorf("MediaModelOverride = %q on fresh image mode, want empty", got)
	}
}
