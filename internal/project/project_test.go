// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package project

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestProject_JSONRoundTrip(t *testing.T) {
	p := NewProject("demo", "a demo project")
	for _, f := range []struct{ path, content string }{
		{"main.go", "package main"},
		{"internal/app/app.go", "package app"},
		{"docs/README.md", "# demo"},
	} {
		if err := p.Upsert(f.path, f.content); err != nil {
			t.Fatal(err)
		}
	}

	data, err := json.Marshal(p)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}

	var got Project
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}

	if got.Name != "demo" || got.Explanation != "a demo project" {
		t.Errorf("metadata = %q/%q", got.Name, got.Explanation)
	}
	if content, ok := got.FileContent("internal/app/app.go"); !ok || content != "package app" {
		t.Errorf("nested file = %q, %v", content, ok)
	}
	if _, isDir := got.Lookup("internal/app").(*Dir); !isDir {
		t.Error("internal/app should decode as a directory")
	}
	if _, isFile := got.Lookup("main.go").(*File); !isFile {
		t.Error("main.go should decode as a file")
	}
	if got.FileCount() != 3 {
		t.Errorf("FileCount = %d, want 3", got.FileCount())
	}
}

func TestUpsert_CreatesIntermediateDirs(t *testing.T) {
	p := NewProject("demo", "")

	if err := p.Upsert("src/app/main.go", "package main"); err != nil {
		t.Fatalf("Upsert: %v", err)
	}

	content, ok := p.FileContent("src/app/main.go")
	if !ok {
		t.Fatal("FileContent: file not found")
	}
	if content != "package main" {
		t.Errorf("content = %q", content)
	}
	if _, isDir := p.Lookup("src").(*Dir); !isDir {
		t.Error("intermediate segment src should be a directory")
	}
}

func TestUpsert_OverwritesExistingFile(t *testing.T) {
	p := NewProject("demo", "")
	if err := p.Upsert("readme.md", "v1"); err != nil {
		t.Fatal(err)
	}
	if err := p.Upsert("readme.md", "v2"); err != nil {
		t.Fatal(err)
	}

	content, _ := p.FileContent("readme.md")
	if content != "v2" {
		t.Errorf("content = %q, want %q", content, "v2")
	}
	if p.FileCount() != 1 {
		t.Errorf("FileCount = %d, want 1", p.FileCount())
	}
}

func TestUpsert_RefusesDirToFile(t *testing.T) {
	p := NewProject("demo", "")
	if err := p.Upsert("src/main.go", "x"); err != nil {
		t.Fatal(err)
	}

	if err := p.Upsert("src", "now a file"); err == nil {
		t.Fatal("Upsert over a directory should fail")
	}

	// Tree unchanged: src is still a directory, file still intact.
	if _, isDir := p.Lookup("src").(*Dir); !isDir {
		t.Error("src should remain a directory")
	}
	if _, ok := p.FileContent("src/main.go"); !ok {
		t.Error("src/main.go should survive the failed upsert")
	}
}

func TestUpsert_RefusesFileAsIntermediate(t *testing.T) {
	p := NewProject("demo", "")
	if err := p.Upsert("config", "a file"); err != nil {
		t.Fatal(err)
	}

	if err := p.Upsert("config/app.toml", "x"); err == nil {
		t.Fatal("Upsert through a file segment should fail")
	}
	content, _ := p.FileContent("config")
	if content != "a file" {
		t.Errorf("config content = %q, want unchanged", content)
	}
}

func TestApplyFiles_SkipsFailedEntries(t *testing.T) {
	p := NewProject("demo", "")
	if err := p.Upsert("src/main.go", "old"); err != nil {
		t.Fatal(err)
	}

	errs := p.ApplyFiles([]FileEntry{
		{Path: "src/main.go", Content: "new"},
		{Path: "src", Content: "bad: dir to file"},
		{Path: "docs/guide.md", Content: "guide"},
	})

	if len(errs) != 1 {
		t.Fatalf("len(errs) = %d, want 1: %v", len(errs), errs)
	}
	if content, _ := p.FileContent("src/main.go"); content != "new" {
		t.Errorf("src/main.go = %q, want %q", content, "new")
	}
	if _, ok := p.FileContent("docs/guide.md"); !ok {
		t.Error("entries after the failed one should still apply")
	}
}

func TestFlatten_LexicalOrder(t *testing.T) {
	p := NewProject("demo", "")
	for _, path := range []string{"z.txt", "a/b.txt", "a/a.txt", "m.txt"} {
		if err := p.Upsert(path, path); err != nil {
			t.Fatal(err)
		}
	}

	entries := p.Flatten()
	want := []string{"a/a.txt", "a/b.txt", "m.txt", "z.txt"}
	if len(entries) != len(want) {
		t.Fatalf("len = %d, want %d", len(entries), len(want))
	}
	for i, w := range want {
		if entries[i].Path != w {
			t.Errorf("entries[%d].Path = %q, want %q", i, entries[i].Path, w)
		}
	}
}

func TestClone_Independent(t *testing.T) {
	p := NewProject("demo", "before")
	if err := p.Upsert("a/b.txt", "original"); err != nil {
		t.Fatal(err)
	}

	cp := p.Clone()
	if err := cp.Upsert("a/b.txt", "changed"); err != nil {
		t.Fatal(err)
	}
	cp.Explanation = "after"

	if content, _ := p.FileContent("a/b.txt"); content != "original" {
		t.Error("Clone shares file nodes with original")
	}
	if p.Explanation != "before" {
		t.Error("Clone shares Explanation with original")
	}
}

func TestRenderTree(t *testing.T) {
	p := NewProject("demo", "")
	for _, path := range []string{"src/main.go", "src/util.go", "readme.md"} {
		if err := p.Upsert(path, "x"); err != nil {
			t.Fatal(err)
		}
	}

	out := p.RenderTree()
	if !strings.HasPrefix(out, "demo/") {
		t.Errorf("tree should start with project name:\n%s", out)
	}
	// Directories render before files at each level.
	if strings.Index(out, "src/") > strings.Index(out, "readme.md") {
		t.Errorf("src/ should render before readme.md:\n%s", out)
	}
	for _, want := range []string{"main.go", "util.go", "readme.md"} {
		if !strings.Contains(out, want) {
			t.Errorf("tree missing %q:\n%s", want, out)
		}
	}
}

func TestRenderTree_Empty(t *testing.T) {
	p := NewProject("demo", "")
	if got := p.RenderTree(); got != "(no files)" {
		t.Errorf("RenderTree = %q", got)
	}
}

func TestApplyFiles_TracksActiveFile(t *testing.T) {
	p := NewProject("demo", "")
	errs := p.ApplyFiles([]FileEntry{
		{Path: "src/main.go", Content: "package main"},
		{Path: "docs/guide.md", Content: "guide"},
	})
	if len(errs) != 0 {
		t.Fatalf("errs = %v", errs)
	}
	if p.ActiveFile != "docs/guide.md" {
		t.Errorf("ActiveFile = %q, want the last applied entry", p.ActiveFile)
	}

	// A failed trailing entry leaves the last successful path in place.
	p.ApplyFiles([]FileEntry{{Path: "src", Content: "dir conflict"}})
	if p.ActiveFile != "docs/guide.md" {
		t.Errorf("ActiveFile = %q after failed entry, want docs/guide.md", p.ActiveFile)
	}

	if clone := p.Clone(); clone.ActiveFile != "docs/guide.md" {
		t.Errorf("clone ActiveFile = %q", clone.ActiveFile)
	}
}
