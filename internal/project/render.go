// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package project

import "strings"

// =============================================================================
// TREE RENDERING
// =============================================================================

// RenderTree returns the project's file tree as indented ASCII, one node
// per line, directories suffixed with a slash. Directories sort before
// files at each level.
func (p *Project) RenderTree() string {
	if p.IsEmpty() {
		return "(no files)"
	}
	var b strings.Builder
	if p.Name != "" {
		b.WriteString(p.Name)
		b.WriteString("/\n")
	}
	renderDir(&b, p.Root, "")
	return strings.TrimRight(b.String(), "\n")
}

func renderDir(b *strings.Builder, d *Dir, prefix string) {
	names := d.SortedNames()
	for i, name := range names {
		connector := "├── "
		childPrefix := prefix + "│   "
		if i == len(names)-1 {
			connector = "└── "
			childPrefix = prefix + "    "
		}
		b.WriteString(prefix)
		b.WriteString(connector)
		switch child := d.Children[name].(type) {
		case *Dir:
			b.WriteString(name)
			b.WriteString("/\n")
			renderDir(b, child, childPrefix)
		case *File:
			b.WriteString(name)
			b.WriteString("\n")
		}
	}
}
