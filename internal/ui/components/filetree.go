// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"bytes"
	"path"
	"strings"

	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/formatters"
	"github.com/alecthomas/chroma/v2/lexers"
	chromastyles "github.com/alecthomas/chroma/v2/styles"

	"github.com/rexcorp1/rexpro-ai/internal/project"
	"github.com/rexcorp1/rexpro-ai/internal/ui/styles"
	"github.com/rexcorp1/rexpro-ai/internal/util"
)

// treeRow is one visible line of the file tree.
type treeRow struct {
	path  string
	name  string
	depth int
	isDir bool
}

// FileTree is the project panel: a navigable tree of the generated files
// with a syntax-highlighted preview of the selected file. The preview is
// revealed progressively so freshly generated files appear to type
// themselves out.
type FileTree struct {
	theme *styles.Theme

	proj     *project.Project
	rows     []treeRow
	selected int

	previewPath  string
	previewLines []string
	revealed     int
}

// NewFileTree creates an empty file tree panel.
func NewFileTree(theme *styles.Theme) *FileTree {
	return &FileTree{theme: theme}
}

// SetProject replaces the displayed project and rebuilds the rows. The
// selection is clamped; the preview resets if its file disappeared.
func (f *FileTree) SetProject(proj *project.Project) {
	f.proj = proj
	f.rows = f.rows[:0]
	if proj != nil {
		f.walk(proj.Root, "", 0)
	}
	if f.selected >= len(f.rows) {
		f.selected = len(f.rows) - 1
	}
	if f.selected < 0 {
		f.selected = 0
	}
	if f.previewPath != "" {
		if _, ok := f.fileContent(f.previewPath); !ok {
			f.previewPath = ""
			f.previewLines = nil
			f.revealed = 0
		}
	}
}

func (f *FileTree) walk(dir *project.Dir, prefix string, depth int) {
	for _, name := range dir.SortedNames() {
		child := dir.Children[name]
		childPath := path.Join(prefix, name)
		switch n := child.(type) {
		case *project.Dir:
			f.rows = append(f.rows, treeRow{path: childPath, name: name, depth: depth, isDir: true})
			f.walk(n, childPath, depth+1)
		case *project.File:
			f.rows = append(f.rows, treeRow{path: childPath, name: name, depth: depth})
		}
	}
}

// Empty reports whether there is nothing to show.
func (f *FileTree) Empty() bool {
	return len(f.rows) == 0
}

// MoveUp moves the selection up one row.
func (f *FileTree) MoveUp() {
	if f.selected > 0 {
		f.selected--
	}
}

// MoveDown moves the selection down one row.
func (f *FileTree) MoveDown() {
	if f.selected < len(f.rows)-1 {
		f.selected++
	}
}

// SelectedPath returns the path of the selected row, or "".
func (f *FileTree) SelectedPath() string {
	if f.selected < 0 || f.selected >= len(f.rows) {
		return ""
	}
	return f.rows[f.selected].path
}

// OpenSelected starts a progressive preview of the selected file.
// Returns false when the selection is a directory or out of range.
func (f *FileTree) OpenSelected() bool {
	p := f.SelectedPath()
	if p == "" || f.rows[f.selected].isDir {
		return false
	}
	content, ok := f.fileContent(p)
	if !ok {
		return false
	}
	f.previewPath = p
	f.previewLines = strings.Split(highlight(p, content), "\n")
	f.revealed = 0
	return true
}

// OpenPath selects the row at path and starts its progressive preview.
// Returns false when the path is absent or resolves to a directory.
func (f *FileTree) OpenPath(p string) bool {
	for i, row := range f.rows {
		if row.path == p && !row.isDir {
			f.selected = i
			return f.OpenSelected()
		}
	}
	return false
}

// AdvanceReveal reveals the next n preview lines; returns true while
// more remain.
func (f *FileTree) AdvanceReveal(n int) bool {
	f.revealed += n
	if f.revealed >= len(f.previewLines) {
		f.revealed = len(f.previewLines)
		return false
	}
	return true
}

// RevealAll completes the typing simulation immediately.
func (f *FileTree) RevealAll() {
	f.revealed = len(f.previewLines)
}

func (f *FileTree) fileContent(p string) (string, bool) {
	if f.proj == nil {
		return "", false
	}
	return f.proj.FileContent(p)
}

// Render draws the tree and, when a file is open, its preview below.
func (f *FileTree) Render(width, height int) string {
	if f.Empty() {
		return f.theme.TreePanel.Width(width).Render(f.theme.SessionMeta.Render("(no files)"))
	}

	var b strings.Builder
	for i, row := range f.rows {
		indent := strings.Repeat("  ", row.depth)
		label := row.name
		if row.isDir {
			label += "/"
		}
		line := util.TruncateWidth(indent+label, width-4)
		switch {
		case i == f.selected:
			line = f.theme.TreeSelected.Render(line)
		case row.isDir:
			line = f.theme.TreeDir.Render(line)
		default:
			line = f.theme.TreeFile.Render(line)
		}
		b.WriteString(line)
		b.WriteString("\n")
	}

	if f.previewPath != "" && f.revealed > 0 {
		b.WriteString("\n")
		b.WriteString(f.theme.HeaderTitle.Render(f.previewPath))
		b.WriteString("\n")
		for _, line := range f.previewLines[:f.revealed] {
			b.WriteString(line)
			b.WriteString("\n")
		}
	}

	return f.theme.TreePanel.Width(width).MaxHeight(height).Render(strings.TrimRight(b.String(), "\n"))
}

// highlight applies chroma syntax highlighting keyed by file extension.
// Unknown extensions render as plain text.
func highlight(filename, content string) string {
	lexer := lexers.Match(filename)
	if lexer == nil {
		lexer = lexers.Fallback
	}
	lexer = chroma.Coalesce(lexer)

	style := chromastyles.Get("monokai")
	if style == nil {
		style = chromastyles.Fallback
	}
	formatter := formatters.Get("terminal256")
	if formatter == nil {
		formatter = formatters.Fallback
	}

	iterator, err := lexer.Tokenise(nil, content)
	if err != nil {
		return content
	}
	var buf bytes.Buffer
	if err := formatter.Format(&buf, style, iterator); err != nil {
		return content
	}
	return strings.TrimRight(buf.String(), "\n")
}
