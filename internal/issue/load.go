// SPDX-License-Identifier: MPL-2.0

package issue

import (
	"errors"

	"github.com/invowk/modload/pkg/modload"
)

// ForLoad wraps a loader error with the operation, the specifier that was
// requested, and suggestions matching the failure class. It returns nil for
// a nil error.
func ForLoad(err error, operation, specifier string) error {
	if err == nil {
		return nil
	}

	c := NewErrorContext().
		WithOperation(operation).
		WithResource(specifier).
		Wrap(err)

	var (
		cycleErr *modload.CircularDependencyError
		hookErr  *modload.HookError
	)
	switch {
	case errors.As(err, &hookErr):
		c.WithGuide(HookFailedID).
			WithSuggestion("The " + hookErr.Phase + " hook " + string(hookErr.ID) + " aborted the resolution")
	case errors.As(err, &cycleErr):
		c.WithGuide(CircularDependencyID).
			WithSuggestion("Break the cycle through " + string(cycleErr.Path)).
			WithSuggestion("Use --on-cycle warn to allow partially initialized imports")
	case errors.Is(err, modload.ErrMalformedDataURI):
		c.WithGuide(MalformedDataURIID).
			WithSuggestion("Check the data URI header and payload encoding")
	case errors.Is(err, modload.ErrNotFound):
		c.WithGuide(ModuleNotFoundID).
			WithSuggestion("Check the specifier and the search path (MODLOAD_PATH or search_path)").
			WithSuggestion("Use 'modload resolve' to see how the specifier is normalized")
	case errors.Is(err, modload.ErrCompile):
		c.WithGuide(CompileFailedID).
			WithSuggestion("Fix the syntax error reported above")
	case errors.Is(err, modload.ErrEvaluation):
		c.WithGuide(EvaluationFailedID).
			WithSuggestion("Re-run with -vv to trace module evaluation")
	}

	return c.BuildError()
}
