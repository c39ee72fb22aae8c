// SPDX-License-Identifier: MPL-2.0

package modload

import "slices"

// LoadStack is the ordered set of canonical paths currently being resolved
// or evaluated. It is diagnostic only and owns no records.
type LoadStack struct {
	paths []CanonicalPath
	depth map[CanonicalPath]int
}

// NewLoadStack returns an empty stack.
func NewLoadStack() *LoadStack {
	return &LoadStack{depth: make(map[CanonicalPath]int)}
}

// Push enters p.
func (s *LoadStack) Push(p CanonicalPath) {
	s.paths = append(s.paths, p)
	s.depth[p]++
}

// Pop leaves the innermost path. Popping an empty stack is a no-op.
func (s *LoadStack) Pop() CanonicalPath {
	n := len(s.paths)
	if n == 0 {
		return ""
	}
	p := s.paths[n-1]
	s.paths = s.paths[:n-1]
	if s.depth[p]--; s.depth[p] == 0 {
		delete(s.depth, p)
	}
	return p
}

// Contains reports whether p is in flight.
func (s *LoadStack) Contains(p CanonicalPath) bool { return s.depth[p] > 0 }

// Len returns the stack depth.
func (s *LoadStack) Len() int { return len(s.paths) }

// Snapshot returns the stack, outermost first.
func (s *LoadStack) Snapshot() []CanonicalPath { return slices.Clone(s.paths) }
