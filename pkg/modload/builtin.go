// SPDX-License-Identifier: MPL-2.0

package modload

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"
	"sync"
)

var (
	// ErrBuiltinExists is returned when a name is registered twice.
	ErrBuiltinExists = errors.New("builtin module already registered")
	// ErrInvalidBuiltin is returned for empty names, names containing a path
	// separator, or sources that cannot back a built-in module.
	ErrInvalidBuiltin = errors.New("invalid builtin module")
)

// BuiltinEntry is one compiled-in module. The entry itself is shared by
// every Loader using the table; each Loader instantiates its own Record.
type BuiltinEntry struct {
	name string
	src  Source

	// decode caches the decoded bytecode definition for all Loaders.
	decode sync.Once
	def    CompiledModule
	defErr error
}

// Name returns the built-in module name.
func (e *BuiltinEntry) Name() string { return e.name }

// Path returns the canonical path of the entry.
func (e *BuiltinEntry) Path() CanonicalPath { return BuiltinPath(e.name) }

// Kind returns the module kind the entry produces.
func (e *BuiltinEntry) Kind() Kind { return e.src.kind() }

// Source returns the registered source.
func (e *BuiltinEntry) Source() Source { return e.src }

// definition decodes a bytecode blob exactly once, however many Loaders
// instantiate the entry concurrently.
func (e *BuiltinEntry) definition(d Decoder, blob []byte) (CompiledModule, error) {
	e.decode.Do(func() {
		e.def, e.defErr = d.Decode(blob, e.Path())
	})
	return e.def, e.defErr
}

// BuiltinTable is the registry of compiled-in modules. It is safe for
// concurrent use and meant to be populated at program start and then only
// read.
type BuiltinTable struct {
	mu      sync.RWMutex
	entries map[string]*BuiltinEntry
}

// NewBuiltinTable returns an empty table.
func NewBuiltinTable() *BuiltinTable {
	return &BuiltinTable{entries: make(map[string]*BuiltinEntry)}
}

// Register adds a built-in module backed by a NativeSource or a
// BytecodeSource.
func (t *BuiltinTable) Register(name string, src Source) error {
	if name == "" || strings.ContainsAny(name, `/\`) || strings.HasPrefix(name, ".") {
		return fmt.Errorf("%w: name %q", ErrInvalidBuiltin, name)
	}
	switch s := src.(type) {
	case NativeSource:
		if s.Init == nil {
			return fmt.Errorf("%w: %q has a nil initializer", ErrInvalidBuiltin, name)
		}
	case BytecodeSource:
		if len(s.Blob) == 0 {
			return fmt.Errorf("%w: %q has an empty blob", ErrInvalidBuiltin, name)
		}
	default:
		return fmt.Errorf("%w: %q must be native or bytecode", ErrInvalidBuiltin, name)
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if _, exists := t.entries[name]; exists {
		return fmt.Errorf("%w: %q", ErrBuiltinExists, name)
	}
	t.entries[name] = &BuiltinEntry{name: name, src: src}
	return nil
}

// Find returns the entry registered under name.
func (t *BuiltinTable) Find(name string) (*BuiltinEntry, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	e, ok := t.entries[name]
	return e, ok
}

// Names returns the registered names, sorted.
func (t *BuiltinTable) Names() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return slices.Sorted(maps.Keys(t.entries))
}

// Len returns the number of registered modules.
func (t *BuiltinTable) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.entries)
}
