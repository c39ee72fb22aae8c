// SPDX-License-Identifier: MPL-2.0

// Package dag orders a module import graph so that every module comes after
// the modules it imports. Cycles are legal in a loader run (under the warn
// and ignore policies), so ordering reports them instead of failing.
package dag

import (
	"fmt"
	"strings"

	"github.com/invowk/modload/pkg/modload"
)

type (
	// CycleError lists the modules that take part in (or depend on) an
	// import cycle and therefore have no dependency-first position.
	CycleError struct {
		Cycle []modload.CanonicalPath
	}

	// Edge is one import: Importer imported Imported.
	Edge struct {
		Importer modload.CanonicalPath
		Imported modload.CanonicalPath
	}

	// Graph is a directed import graph. An edge runs from an imported module
	// to its importer, so a topological order is an evaluation order.
	Graph struct {
		// dependents maps each module to the modules importing it.
		dependents map[modload.CanonicalPath][]modload.CanonicalPath
		// nodes tracks all modules in insertion order for deterministic output.
		nodes   []modload.CanonicalPath
		nodeSet map[modload.CanonicalPath]bool
		edges   []Edge
	}
)

func (e *CycleError) Error() string {
	names := make([]string, len(e.Cycle))
	for i, p := range e.Cycle {
		names[i] = string(p)
	}
	return fmt.Sprintf("import cycle among: %s", strings.Join(names, ", "))
}

// Unwrap returns modload.ErrCircularDependency.
func (e *CycleError) Unwrap() error { return modload.ErrCircularDependency }

// New creates an empty Graph.
func New() *Graph {
	return &Graph{
		dependents: make(map[modload.CanonicalPath][]modload.CanonicalPath),
		nodeSet:    make(map[modload.CanonicalPath]bool),
	}
}

// FromLoader builds the graph of every module l has registered, in
// canonical path order, with the imports observed during evaluation.
func FromLoader(l *modload.Loader) *Graph {
	g := New()
	for _, rec := range l.Modules() {
		g.AddModule(rec.Name)
	}
	for _, rec := range l.Modules() {
		for _, imported := range l.Imports(rec.Name) {
			g.AddImport(rec.Name, imported)
		}
	}
	return g
}

// AddModule adds a module. Adding it twice is a no-op.
func (g *Graph) AddModule(p modload.CanonicalPath) {
	if g.nodeSet[p] {
		return
	}
	g.nodeSet[p] = true
	g.nodes = append(g.nodes, p)
}

// AddImport records that importer imports imported. Both modules are added
// if they are new.
func (g *Graph) AddImport(importer, imported modload.CanonicalPath) {
	g.AddModule(importer)
	g.AddModule(imported)
	g.dependents[imported] = append(g.dependents[imported], importer)
	g.edges = append(g.edges, Edge{Importer: importer, Imported: imported})
}

// Edges returns the imports in the order they were added.
func (g *Graph) Edges() []Edge {
	return append([]Edge(nil), g.edges...)
}

// Len returns the number of modules.
func (g *Graph) Len() int { return len(g.nodes) }

// Order returns the modules dependencies-first using Kahn's algorithm.
// Modules at the same depth keep their insertion order. When the graph has
// a cycle, Order returns every module it could place together with a
// CycleError naming the rest.
func (g *Graph) Order() ([]modload.CanonicalPath, error) {
	if len(g.nodes) == 0 {
		return nil, nil
	}

	inDegree := make(map[modload.CanonicalPath]int, len(g.nodes))
	for _, e := range g.edges {
		inDegree[e.Importer]++
	}

	queue := make([]modload.CanonicalPath, 0)
	for _, node := range g.nodes {
		if inDegree[node] == 0 {
			queue = append(queue, node)
		}
	}

	result := make([]modload.CanonicalPath, 0, len(g.nodes))
	for len(queue) > 0 {
		node := queue[0]
		queue = queue[1:]
		result = append(result, node)

		for _, dependent := range g.dependents[node] {
			inDegree[dependent]--
			if inDegree[dependent] == 0 {
				queue = append(queue, dependent)
			}
		}
	}

	if len(result) != len(g.nodes) {
		var cycle []modload.CanonicalPath
		for _, node := range g.nodes {
			if inDegree[node] > 0 {
				cycle = append(cycle, node)
			}
		}
		return result, &CycleError{Cycle: cycle}
	}

	return result, nil
}
