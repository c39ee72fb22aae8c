// SPDX-License-Identifier: MPL-2.0

package modscript

import (
	"errors"
	"fmt"
)

var (
	// ErrSyntax is the sentinel error wrapped by SyntaxError.
	ErrSyntax = errors.New("syntax error")
	// ErrThrown is the sentinel error wrapped by ThrownError.
	ErrThrown = errors.New("module threw")
	// ErrNotProgram is returned when Evaluate receives a foreign compiled module.
	ErrNotProgram = errors.New("compiled module is not a modscript program")
)

type (
	// SyntaxError reports a malformed statement.
	// It wraps ErrSyntax for errors.Is() compatibility.
	SyntaxError struct {
		Path string
		Line int
		Msg  string
	}

	// ThrownError is raised by a throw statement. Value is the evaluated
	// operand.
	ThrownError struct {
		Path  string
		Line  int
		Value any
	}
)

// Error implements the error interface for SyntaxError.
func (e *SyntaxError) Error() string {
	return fmt.Sprintf("%s:%d: %s", e.Path, e.Line, e.Msg)
}

// Unwrap returns ErrSyntax for errors.Is() compatibility.
func (e *SyntaxError) Unwrap() error { return ErrSyntax }

// Error implements the error interface for ThrownError.
func (e *ThrownError) Error() string {
	return fmt.Sprintf("%s:%d: thrown: %v", e.Path, e.Line, e.Value)
}

// Unwrap returns ErrThrown for errors.Is() compatibility.
func (e *ThrownError) Unwrap() error { return ErrThrown }
