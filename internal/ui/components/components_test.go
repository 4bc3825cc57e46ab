// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rexcorp1/rexpro-ai/internal/model"
	"github.com/rexcorp1/rexpro-ai/internal/project"
	"github.com/rexcorp1/rexpro-ai/internal/router"
	"github.com/rexcorp1/rexpro-ai/internal/ui/styles"
)

func testProject(t *testing.T) *project.Project {
	t.Helper()
	proj := project.NewProject("demo", "a demo")
	require.NoError(t, proj.Upsert("cmd/main.go", "package main"))
	require.NoError(t, proj.Upsert("internal/app/app.go", "package app"))
	require.NoError(t, proj.Upsert("README.md", "# demo"))
	return proj
}

// =============================================================================
// FILE TREE
// =============================================================================

func TestFileTree_WalkOrder(t *testing.T) {
	ft := NewFileTree(styles.NewTheme())
	ft.SetProject(testProject(t))

	var paths []string
	for _, row := range ft.rows {
		paths = append(paths, row.path)
	}
	// Directories sort before files at each level.
	assert.Equal(t, []string{
		"cmd",
		"cmd/main.go",
		"internal",
		"internal/app",
		"internal/app/app.go",
		"README.md",
	}, paths)
}

func TestFileTree_Navigation(t *testing.T) {
	ft := NewFileTree(styles.NewTheme())
	ft.SetProject(testProject(t))

	assert.Equal(t, "cmd", ft.SelectedPath())
	ft.MoveUp()
	assert.Equal(t, "cmd", ft.SelectedPath(), "MoveUp clamps at the top")

	ft.MoveDown()
	assert.Equal(t, "cmd/main.go", ft.SelectedPath())

	for i := 0; i < 20; i++ {
		ft.MoveDown()
	}
	assert.Equal(t, "README.md", ft.SelectedPath(), "MoveDown clamps at the bottom")
}

func TestFileTree_OpenAndReveal(t *testing.T) {
	ft := NewFileTree(styles.NewTheme())
	ft.SetProject(testProject(t))

	// cmd is a directory; opening it is refused.
	require.False(t, ft.OpenSelected())

	ft.MoveDown()
	require.True(t, ft.OpenSelected())
	assert.Equal(t, "cmd/main.go", ft.previewPath)
	assert.Zero(t, ft.revealed)

	more := ft.AdvanceReveal(1)
	assert.False(t, more, "single-line file reveals in one step")
	assert.Equal(t, len(ft.previewLines), ft.revealed)
}

func TestFileTree_OpenPath(t *testing.T) {
	ft := NewFileTree(styles.NewTheme())
	ft.SetProject(testProject(t))

	require.True(t, ft.OpenPath("internal/app/app.go"))
	assert.Equal(t, "internal/app/app.go", ft.previewPath)
	assert.Equal(t, "internal/app/app.go", ft.SelectedPath(), "opening moves the selection")

	assert.False(t, ft.OpenPath("internal"), "directories are refused")
	assert.False(t, ft.OpenPath("no/such/file.go"))
	assert.Equal(t, "internal/app/app.go", ft.previewPath, "failed open keeps the preview")
}

func TestFileTree_SetProjectDropsStalePreview(t *testing.T) {
	ft := NewFileTree(styles.NewTheme())
	ft.SetProject(testProject(t))
	ft.MoveDown()
	require.True(t, ft.OpenSelected())
	ft.RevealAll()

	replacement := project.NewProject("other", "different files")
	require.NoError(t, replacement.Upsert("notes.txt", "hi"))
	ft.SetProject(replacement)

	assert.Empty(t, ft.previewPath)
	assert.Zero(t, ft.revealed)
}

func TestFileTree_EmptyRender(t *testing.T) {
	ft := NewFileTree(styles.NewTheme())
	out := ft.Render(30, 10)
	assert.Contains(t, out, "(no files)")
}

// =============================================================================
// STATUS BAR
// =============================================================================

func TestStatusBar_ShowsModeAndToggles(t *testing.T) {
	theme := styles.NewTheme()
	bar := NewStatusBar(theme)
	sel := router.NewSelector()

	out := bar.Render(sel, 0, 120)
	assert.Contains(t, out, "CHAT")

	sel.SetProjectMode(true)
	out = bar.Render(sel, 1234, 120)
	assert.Contains(t, out, "PROJECT")
	assert.Contains(t, out, "1234 tok")
}

// =============================================================================
// MESSAGE RENDERER
// =============================================================================

func TestMessageRenderer_ModelMessage(t *testing.T) {
	r := NewMessageRenderer(styles.NewTheme())
	r.SetWidth(100)

	msg := model.NewModelPlaceholder(true)
	msg.Finalize("All done.", "thought briefly", nil,
		[]model.Citation{{URL: "https://ex.com", Title: "Example"}}, nil, false)

	out := r.Render(msg)
	assert.Contains(t, out, "All done.")
	assert.Contains(t, out, "thought briefly")
	assert.Contains(t, out, "Example")
}

func TestMessageRenderer_LivePlaceholderIsBlank(t *testing.T) {
	r := NewMessageRenderer(styles.NewTheme())
	msg := model.NewModelPlaceholder(true)
	assert.Empty(t, strings.TrimSpace(r.Render(msg)))
}
