// SPDX-License-Identifier: MPL-2.0

// Package cueutil provides shared CUE helpers.
//
// Two flows use it:
//
//  1. Configuration files are compiled, unified with an embedded schema,
//     validated and decoded in one call to ParseAndDecode.
//  2. Module expressions are evaluated against a scope of plain Go values
//     with EvalExpr.
//
// # Usage
//
//	//go:embed config_schema.cue
//	var schemaBytes []byte
//
//	result, err := cueutil.ParseAndDecode[Config](
//	    schemaBytes,
//	    userFileBytes,
//	    "#Config",
//	    cueutil.WithFilename("config.cue"),
//	)
//	if err != nil {
//	    return nil, err  // Error includes CUE path for debugging
//	}
//	return result.Value, nil
package cueutil
