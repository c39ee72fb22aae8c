// SPDX-License-Identifier: MPL-2.0

package modload

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNotFound is returned when no strategy produced a canonical path.
	ErrNotFound = errors.New("module not found")
	// ErrCompile is the sentinel error wrapped by CompileError.
	ErrCompile = errors.New("module compile failed")
	// ErrEvaluation is the sentinel error wrapped by EvaluationError.
	ErrEvaluation = errors.New("module evaluation failed")
	// ErrCircularDependency is the sentinel error wrapped by CircularDependencyError.
	ErrCircularDependency = errors.New("circular dependency")
	// ErrHook is the sentinel error wrapped by HookError.
	ErrHook = errors.New("loader hook failed")
	// ErrNoEngine is returned by New when Options.Engine is nil.
	ErrNoEngine = errors.New("modload: no engine configured")
)

type (
	// NotFoundError reports a specifier that no strategy could resolve.
	// It wraps ErrNotFound for errors.Is() compatibility.
	NotFoundError struct {
		Specifier string
		Referrer  string
	}

	// CompileError reports a module whose source, blob, or JSON payload
	// could not be turned into a compiled definition.
	CompileError struct {
		Path CanonicalPath
		Err  error
	}

	// EvaluationError reports a module body that raised during its first
	// evaluation. The error is cached on the record and returned to every
	// later importer.
	EvaluationError struct {
		Path CanonicalPath
		Err  error
	}

	// CircularDependencyError is returned under CycleError when an import
	// reaches a module that is still in flight.
	CircularDependencyError struct {
		Specifier string
		Path      CanonicalPath
		Stack     []CanonicalPath
	}

	// HookError reports a failing loader or normalizer hook. It aborts the
	// whole in-flight resolution instead of failing a single module.
	HookError struct {
		ID        HookID
		Phase     string
		Specifier string
		Err       error
	}
)

// Error implements the error interface for NotFoundError.
func (e *NotFoundError) Error() string {
	if e.Referrer != "" {
		return fmt.Sprintf("module %q not found (imported from %s)", e.Specifier, e.Referrer)
	}
	return fmt.Sprintf("module %q not found", e.Specifier)
}

// Unwrap returns ErrNotFound for errors.Is() compatibility.
func (e *NotFoundError) Unwrap() error { return ErrNotFound }

// Error implements the error interface for CompileError.
func (e *CompileError) Error() string {
	return fmt.Sprintf("compile %s: %v", e.Path, e.Err)
}

// Unwrap returns ErrCompile and the underlying cause.
func (e *CompileError) Unwrap() []error { return []error{ErrCompile, e.Err} }

// Error implements the error interface for EvaluationError.
func (e *EvaluationError) Error() string {
	return fmt.Sprintf("evaluate %s: %v", e.Path, e.Err)
}

// Unwrap returns ErrEvaluation and the underlying cause.
func (e *EvaluationError) Unwrap() []error { return []error{ErrEvaluation, e.Err} }

// Error implements the error interface for CircularDependencyError.
func (e *CircularDependencyError) Error() string {
	chain := make([]string, 0, len(e.Stack)+1)
	for _, p := range e.Stack {
		chain = append(chain, string(p))
	}
	chain = append(chain, string(e.Path))
	return fmt.Sprintf("circular dependency on %q: %s", e.Specifier, strings.Join(chain, " -> "))
}

// Unwrap returns ErrCircularDependency for errors.Is() compatibility.
func (e *CircularDependencyError) Unwrap() error { return ErrCircularDependency }

// Error implements the error interface for HookError.
func (e *HookError) Error() string {
	return fmt.Sprintf("%s hook %q failed for %q: %v", e.Phase, e.ID, e.Specifier, e.Err)
}

// Unwrap returns ErrHook and the underlying cause.
func (e *HookError) Unwrap() []error { return []error{ErrHook, e.Err} }

// IsFatal reports whether err must abort the entire in-flight resolution
// rather than fail a single module.
func IsFatal(err error) bool {
	var he *HookError
	return errors.As(err, &he)
}
