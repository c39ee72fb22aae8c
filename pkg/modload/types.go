// SPDX-License-Identifier: MPL-2.0

package modload

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"
)

const (
	// KindNative is a module whose exports are populated by Go code.
	KindNative Kind = "native"
	// KindBytecode is a module decoded from a precompiled blob.
	KindBytecode Kind = "bytecode"
	// KindSource is a module compiled from source text.
	KindSource Kind = "source"
	// KindData is a module synthesized from a JSON data URI.
	KindData Kind = "data"

	// StateUnresolved is the zero state of a record that was never inserted.
	StateUnresolved State = "unresolved"
	// StateResolving marks a record that is inserted but not compiled yet.
	StateResolving State = "resolving"
	// StateResolved marks a compiled record awaiting evaluation.
	StateResolved State = "resolved"
	// StateEvaluating marks a record whose body is running.
	StateEvaluating State = "evaluating"
	// StateEvaluated is terminal: the body completed.
	StateEvaluated State = "evaluated"
	// StateEvaluationFailed is terminal: compilation or evaluation failed.
	StateEvaluationFailed State = "evaluation_failed"

	// CycleWarn emits a diagnostic and lets the load proceed.
	CycleWarn CyclePolicy = "warn"
	// CycleError fails the importing load with a CircularDependencyError.
	CycleError CyclePolicy = "error"
	// CycleIgnore lets the load proceed silently.
	CycleIgnore CyclePolicy = "ignore"

	builtinScheme = "builtin:"
)

var (
	// ErrInvalidKind is the sentinel error wrapped by InvalidKindError.
	ErrInvalidKind = errors.New("invalid module kind")
	// ErrInvalidCyclePolicy is the sentinel error wrapped by InvalidCyclePolicyError.
	ErrInvalidCyclePolicy = errors.New("invalid cycle policy")
	// ErrInvalidTransition is returned when a record is moved backwards or out of a terminal state.
	ErrInvalidTransition = errors.New("invalid module state transition")

	// transitions lists the forward edges of the record state machine.
	transitions = map[State][]State{
		StateUnresolved: {StateResolving},
		StateResolving:  {StateResolved, StateEvaluationFailed},
		StateResolved:   {StateEvaluating, StateEvaluationFailed},
		StateEvaluating: {StateEvaluated, StateEvaluationFailed},
	}
)

type (
	// CanonicalPath is the normalized resolution key of a module: an absolute
	// file path, "builtin:<name>", or "data:<digest>".
	CanonicalPath string

	// Kind classifies how a module was produced.
	Kind string

	// InvalidKindError is returned when a Kind value is not recognized.
	// It wraps ErrInvalidKind for errors.Is() compatibility.
	InvalidKindError struct {
		Value Kind
	}

	// State is the lifecycle state of a Record.
	State string

	// CyclePolicy selects what happens when a circular import is detected.
	CyclePolicy string

	// InvalidCyclePolicyError is returned when a CyclePolicy value is not recognized.
	// It wraps ErrInvalidCyclePolicy for errors.Is() compatibility.
	InvalidCyclePolicyError struct {
		Value CyclePolicy
	}

	// ExportTable holds a module's exported bindings in definition order.
	// It is populated while the module evaluates, so an importer that
	// reaches a module through a cycle may observe a partial table.
	ExportTable struct {
		names  []string
		values map[string]any
	}

	// Record is the registry entry for one canonical path. A Loader creates
	// at most one Record per canonical path and never destroys it.
	Record struct {
		// Name is the canonical path this record is registered under.
		Name CanonicalPath
		// Kind is how the module was produced.
		Kind Kind
		// Def is the compiled definition returned by the engine, if any.
		Def CompiledModule
		// State is the current lifecycle state.
		State State
		// Exports is the live export table.
		Exports *ExportTable
		// Err is the compile or evaluation failure, set in StateEvaluationFailed.
		Err error

		namespace map[string]any
	}
)

// NewExportTable returns an empty export table.
func NewExportTable() *ExportTable {
	return &ExportTable{values: make(map[string]any)}
}

// Set binds name to v. Rebinding keeps the original position.
func (t *ExportTable) Set(name string, v any) {
	if _, ok := t.values[name]; !ok {
		t.names = append(t.names, name)
	}
	t.values[name] = v
}

// Get returns the value bound to name.
func (t *ExportTable) Get(name string) (any, bool) {
	v, ok := t.values[name]
	return v, ok
}

// Names returns the exported names in definition order.
func (t *ExportTable) Names() []string {
	return slices.Clone(t.names)
}

// Len returns the number of exported names.
func (t *ExportTable) Len() int { return len(t.names) }

// Map returns a copy of the table as a plain map.
func (t *ExportTable) Map() map[string]any {
	return maps.Clone(t.values)
}

// String returns the canonical path as a string.
func (p CanonicalPath) String() string { return string(p) }

// IsBuiltin reports whether p names a built-in module.
func (p CanonicalPath) IsBuiltin() bool {
	return strings.HasPrefix(string(p), builtinScheme)
}

// IsData reports whether p names a data-URI module.
func (p CanonicalPath) IsData() bool {
	return strings.HasPrefix(string(p), dataScheme)
}

// BuiltinPath returns the canonical path of the built-in module name.
func BuiltinPath(name string) CanonicalPath {
	return CanonicalPath(builtinScheme + name)
}

// String returns the string representation of the Kind.
func (k Kind) String() string { return string(k) }

// IsValid returns whether the Kind is one of the defined kinds.
func (k Kind) IsValid() (bool, []error) {
	switch k {
	case KindNative, KindBytecode, KindSource, KindData:
		return true, nil
	default:
		return false, []error{&InvalidKindError{Value: k}}
	}
}

// Error implements the error interface for InvalidKindError.
func (e *InvalidKindError) Error() string {
	return fmt.Sprintf("invalid module kind %q (valid: native, bytecode, source, data)", e.Value)
}

// Unwrap returns ErrInvalidKind for errors.Is() compatibility.
func (e *InvalidKindError) Unwrap() error { return ErrInvalidKind }

// String returns the string representation of the State.
func (s State) String() string { return string(s) }

// IsTerminal reports whether s is EVALUATED or EVALUATION_FAILED.
func (s State) IsTerminal() bool {
	return s == StateEvaluated || s == StateEvaluationFailed
}

// InFlight reports whether a record in state s is still being resolved or
// evaluated. Reaching an in-flight record from an import means a cycle.
func (s State) InFlight() bool {
	switch s {
	case StateResolving, StateResolved, StateEvaluating:
		return true
	default:
		return false
	}
}

// String returns the string representation of the CyclePolicy.
func (p CyclePolicy) String() string { return string(p) }

// IsValid returns whether the CyclePolicy is recognized.
// The zero value ("") is valid and means CycleWarn.
func (p CyclePolicy) IsValid() (bool, []error) {
	switch p {
	case "", CycleWarn, CycleError, CycleIgnore:
		return true, nil
	default:
		return false, []error{&InvalidCyclePolicyError{Value: p}}
	}
}

// Error implements the error interface for InvalidCyclePolicyError.
func (e *InvalidCyclePolicyError) Error() string {
	return fmt.Sprintf("invalid cycle policy %q (valid: warn, error, ignore)", e.Value)
}

// Unwrap returns ErrInvalidCyclePolicy for errors.Is() compatibility.
func (e *InvalidCyclePolicyError) Unwrap() error { return ErrInvalidCyclePolicy }

// NewSyntheticModule builds an evaluated native record from a fixed export
// map. Loader hooks use it to hand back a fully resolved module.
func NewSyntheticModule(name CanonicalPath, exports map[string]any) *Record {
	table := NewExportTable()
	for _, k := range slices.Sorted(maps.Keys(exports)) {
		table.Set(k, exports[k])
	}
	return &Record{
		Name:      name,
		Kind:      KindNative,
		State:     StateEvaluated,
		Exports:   table,
		namespace: table.Map(),
	}
}

// Namespace returns the frozen export map of an evaluated module, or nil
// while the module is in flight or after it failed.
func (r *Record) Namespace() map[string]any {
	return maps.Clone(r.namespace)
}

// Failure returns the cached compile or evaluation error, if any.
func (r *Record) Failure() error {
	if r.State == StateEvaluationFailed {
		return r.Err
	}
	return nil
}

// advance moves the record along the state machine.
func (r *Record) advance(to State) error {
	from := r.State
	if from == "" {
		from = StateUnresolved
	}
	if slices.Contains(transitions[from], to) {
		r.State = to
		if to == StateEvaluated {
			r.namespace = r.Exports.Map()
		}
		return nil
	}
	return fmt.Errorf("%w: %s: %s -> %s", ErrInvalidTransition, r.Name, from, to)
}

// fail records err and moves the record to EVALUATION_FAILED.
func (r *Record) fail(err error) error {
	if advErr := r.advance(StateEvaluationFailed); advErr != nil {
		return advErr
	}
	r.Err = err
	return err
}
