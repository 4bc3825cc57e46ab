// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package project

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// =============================================================================
// NODE SUM TYPE
// =============================================================================

// Node is a file-tree node: exactly File or Dir implement it. The sealed
// method keeps external packages from adding variants.
type Node interface {
	// NodeName returns the node's name within its parent directory.
	NodeName() string

	// Clone returns a deep copy of the node.
	Clone() Node

	isNode()
}

// File is a leaf node holding text content.
type File struct {
	Name    string `json:"name"`
	Content string `json:"content"`
}

// Dir is an interior node holding named children.
type Dir struct {
	Name     string `json:"name"`
	Children map[string]Node `json:"children"`
}

func (f *File) NodeName() string { return f.Name }
func (d *Dir) NodeName() string  { return d.Name }

func (f *File) isNode() {}
func (d *Dir) isNode()  {}

// Clone returns a deep copy of the file.
func (f *File) Clone() Node {
	cp := *f
	return &cp
}

// Clone returns a deep copy of the directory and its subtree.
func (d *Dir) Clone() Node {
	cp := &Dir{Name: d.Name, Children: make(map[string]Node, len(d.Children))}
	for name, child := range d.Children {
		cp.Children[name] = child.Clone()
	}
	return cp
}

// NewDir returns an empty directory with the given name.
func NewDir(name string) *Dir {
	return &Dir{Name: name, Children: make(map[string]Node)}
}

// UnmarshalJSON decodes a directory, discriminating each child by shape:
// an object with a "children" key is a Dir, anything else is a File. The
// Node interface itself cannot be unmarshalled directly.
func (d *Dir) UnmarshalJSON(data []byte) error {
	var raw struct {
		Name     string                     `json:"name"`
		Children map[string]json.RawMessage `json:"children"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	d.Name = raw.Name
	d.Children = make(map[string]Node, len(raw.Children))
	for name, msg := range raw.Children {
		node, err := unmarshalNode(msg)
		if err != nil {
			return fmt.Errorf("child %q: %w", name, err)
		}
		d.Children[name] = node
	}
	return nil
}

func unmarshalNode(data []byte) (Node, error) {
	var shape struct {
		Children json.RawMessage `json:"children"`
	}
	if err := json.Unmarshal(data, &shape); err != nil {
		return nil, err
	}
	if shape.Children != nil {
		var dir Dir
		if err := json.Unmarshal(data, &dir); err != nil {
			return nil, err
		}
		return &dir, nil
	}
	var f File
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, err
	}
	return &f, nil
}

// Child returns the named child, or nil if absent.
func (d *Dir) Child(name string) Node {
	if d.Children == nil {
		return nil
	}
	return d.Children[name]
}

// SortedNames returns the child names in lexical order, directories first.
// Used by the tree renderer for stable display ordering.
func (d *Dir) SortedNames() []string {
	names := make([]string, 0, len(d.Children))
	for name := range d.Children {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		_, iDir := d.Children[names[i]].(*Dir)
		_, jDir := d.Children[names[j]].(*Dir)
		if iDir != jDir {
			return iDir
		}
		return names[i] < names[j]
	})
	return names
}

// =============================================================================
// PROJECT
// =============================================================================

// FileEntry is one flat path/content pair from a model response.
type FileEntry struct {
	Path    string `json:"path"`
	Content string `json:"content"`
}

// Project is a named virtual file tree plus the explanation that
// accompanied its most recent update.
type Project struct {
	Name        string `json:"name"`
	Explanation string `json:"explanation"`
	Root        *Dir   `json:"root"`

	// ActiveFile is the path of the most recently applied file; the UI
	// opens it in the preview after a merge.
	ActiveFile string `json:"activeFile,omitempty"`
}

// NewProject returns a project with an empty root directory.
func NewProject(name, explanation string) *Project {
	return &Project{
		Name:        name,
		Explanation: explanation,
		Root:        NewDir(""),
	}
}

// Clone returns a deep copy of the project.
func (p *Project) Clone() *Project {
	if p == nil {
		return nil
	}
	cp := &Project{Name: p.Name, Explanation: p.Explanation, ActiveFile: p.ActiveFile}
	if p.Root != nil {
		cp.Root = p.Root.Clone().(*Dir)
	}
	return cp
}

// Upsert creates or overwrites the file at path, creating intermediate
// directories as needed. It returns an error without modifying the tree
// when a path segment conflicts with an existing node of the other kind:
// an intermediate segment that is already a file, or a final segment
// that is already a directory.
func (p *Project) Upsert(path, content string) error {
	segments := splitPath(path)
	if len(segments) == 0 {
		return fmt.Errorf("empty path")
	}
	if p.Root == nil {
		p.Root = NewDir("")
	}

	dir := p.Root
	for _, seg := range segments[:len(segments)-1] {
		switch child := dir.Child(seg).(type) {
		case *Dir:
			dir = child
		case *File:
			return fmt.Errorf("path %q: segment %q is a file, not a directory", path, seg)
		default:
			next := NewDir(seg)
			dir.Children[seg] = next
			dir = next
		}
	}

	leaf := segments[len(segments)-1]
	if _, isDir := dir.Child(leaf).(*Dir); isDir {
		return fmt.Errorf("path %q: %q is a directory, cannot overwrite with a file", path, leaf)
	}
	dir.Children[leaf] = &File{Name: leaf, Content: content}
	return nil
}

// ApplyFiles merges a batch of entries into the tree. Entries that fail
// are skipped and reported; the rest of the batch still applies.
// ActiveFile tracks the last entry that landed.
func (p *Project) ApplyFiles(entries []FileEntry) []error {
	var errs []error
	for _, e := range entries {
		if err := p.Upsert(e.Path, e.Content); err != nil {
			errs = append(errs, err)
			continue
		}
		p.ActiveFile = strings.Join(splitPath(e.Path), "/")
	}
	return errs
}

// Lookup returns the node at path, or nil if the path does not resolve.
func (p *Project) Lookup(path string) Node {
	if p == nil || p.Root == nil {
		return nil
	}
	segments := splitPath(path)
	if len(segments) == 0 {
		return p.Root
	}
	var node Node = p.Root
	for _, seg := range segments {
		dir, ok := node.(*Dir)
		if !ok {
			return nil
		}
		node = dir.Child(seg)
		if node == nil {
			return nil
		}
	}
	return node
}

// FileContent returns the content of the file at path. The second return
// is false when the path is absent or resolves to a directory.
func (p *Project) FileContent(path string) (string, bool) {
	f, ok := p.Lookup(path).(*File)
	if !ok {
		return "", false
	}
	return f.Content, true
}

// Flatten returns every file in the tree as path/content entries in
// lexical path order.
func (p *Project) Flatten() []FileEntry {
	if p == nil || p.Root == nil {
		return nil
	}
	var entries []FileEntry
	var walk func(prefix string, d *Dir)
	walk = func(prefix string, d *Dir) {
		for _, name := range d.SortedNames() {
			full := name
			if prefix != "" {
				full = prefix + "/" + name
			}
			switch child := d.Children[name].(type) {
			case *File:
				entries = append(entries, FileEntry{Path: full, Content: child.Content})
			case *Dir:
				walk(full, child)
			}
		}
	}
	walk("", p.Root)
	// Flatten promises lexical order over full paths, while the walk
	// emits directories-first per level.
	sort.Slice(entries, func(i, j int) bool { return entries[i].Path < entries[j].Path })
	return entries
}

// FileCount returns the number of files in the tree.
func (p *Project) FileCount() int {
	return len(p.Flatten())
}

// IsEmpty reports whether the project has no files.
func (p *Project) IsEmpty() bool {
	return p == nil || p.Root == nil || len(p.Root.Children) == 0
}

func splitPath(path string) []string {
	var segments []string
	for _, seg := range strings.Split(path, "/") {
		if seg != "" {
			segments = append(segments, seg)
		}
	}
	return segments
}
