// SPDX-License-Identifier: MPL-2.0

package modload

import (
	"slices"
	"testing"
)

func TestLoadStack(t *testing.T) {
	t.Parallel()

	s := NewLoadStack()
	if s.Pop() != "" || s.Len() != 0 {
		t.Fatal("popping an empty stack should be a no-op")
	}

	s.Push("/a")
	s.Push("/b")
	s.Push("/a")
	if !s.Contains("/a") || !s.Contains("/b") || s.Contains("/c") {
		t.Errorf("Contains() mismatch: %v", s.Snapshot())
	}
	if got := s.Snapshot(); !slices.Equal(got, []CanonicalPath{"/a", "/b", "/a"}) {
		t.Errorf("Snapshot() = %v", got)
	}

	if p := s.Pop(); p != "/a" {
		t.Errorf("Pop() = %s, want /a", p)
	}
	if !s.Contains("/a") {
		t.Error("outer /a entry should still be in flight")
	}
	s.Pop()
	s.Pop()
	if s.Contains("/a") || s.Len() != 0 {
		t.Errorf("stack should be empty, got %v", s.Snapshot())
	}
}
