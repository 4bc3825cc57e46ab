// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import "testing"

func TestTreePanelWidth(t *testing.T) {
	tests := []struct {
		total int
		want  int
	}{
		{120, 40},
		{80, 26},
		{60, 24},
		{50, 20}, // narrow terminal, transcript keeps its minimum
	}
	for _, tt := range tests {
		if got := treePanelWidth(tt.total); got != tt.want {
			t.Errorf("treePanelWidth(%d) = %d, want %d", tt.total, got, tt.want)
		}
	}
}

func TestToggleByName_CoversAllToggles(t *testing.T) {
	for _, name := range []string{"code", "research", "image", "video", "search"} {
		if _, ok := toggleByName[name]; !ok {
			t.Errorf("toggle %q not mapped", name)
		}
	}
}
