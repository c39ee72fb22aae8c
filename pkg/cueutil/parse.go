// SPDX-License-Identifier: MPL-2.0

package cueutil

import (
	"fmt"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
)

// ParseResult contains the result of a successful CUE parse operation.
type ParseResult[T any] struct {
	// Value is the decoded Go value.
	Value *T

	// Unified is the unified CUE value, available for callers that need to
	// inspect which fields the user actually set.
	Unified cue.Value
}

// ParseAndDecode compiles the embedded schema, compiles data and unifies it
// with the definition at schemaPath (e.g. "#Config"), validates the result
// and decodes it into T.
func ParseAndDecode[T any](schema, data []byte, schemaPath string, opts ...Option) (*ParseResult[T], error) {
	o := applyOptions(opts)

	if err := CheckFileSize(data, o.maxFileSize, o.filename); err != nil {
		return nil, err
	}

	ctx := cuecontext.New()

	schemaValue := ctx.CompileBytes(schema)
	if schemaValue.Err() != nil {
		return nil, fmt.Errorf("internal error: failed to compile schema: %w", schemaValue.Err())
	}

	userValue := ctx.CompileBytes(data, cue.Filename(o.filename))
	if userValue.Err() != nil {
		return nil, FormatError(userValue.Err(), o.filename)
	}

	schemaRoot := schemaValue.LookupPath(cue.ParsePath(schemaPath))
	if schemaRoot.Err() != nil {
		return nil, fmt.Errorf("internal error: schema definition %s not found: %w", schemaPath, schemaRoot.Err())
	}

	unified := schemaRoot.Unify(userValue)

	var err error
	if o.concrete {
		err = unified.Validate(cue.Concrete(true))
	} else {
		err = unified.Validate()
	}
	if err != nil {
		return nil, FormatError(err, o.filename)
	}

	var result T
	if err := unified.Decode(&result); err != nil {
		return nil, FormatError(err, o.filename)
	}

	return &ParseResult[T]{
		Value:   &result,
		Unified: unified,
	}, nil
}

// EvalExpr evaluates a CUE expression in which the keys of scope are bound
// as identifiers, and decodes the concrete result into plain Go values:
// map[string]any, []any, int64, float64, string, bool or nil.
//
// A nil ctx allocates a fresh cue.Context.
func EvalExpr(ctx *cue.Context, scope map[string]any, expr string, opts ...Option) (any, error) {
	o := applyOptions(opts)
	if ctx == nil {
		ctx = cuecontext.New()
	}

	sv := ctx.Encode(scope)
	if sv.Err() != nil {
		return nil, FormatError(sv.Err(), o.filename)
	}
	v := ctx.CompileString(expr, cue.Scope(sv), cue.Filename(o.filename))
	if v.Err() != nil {
		return nil, FormatError(v.Err(), o.filename)
	}
	if err := v.Validate(cue.Concrete(true)); err != nil {
		return nil, FormatError(err, o.filename)
	}

	var out any
	if err := v.Decode(&out); err != nil {
		return nil, FormatError(err, o.filename)
	}
	return out, nil
}
