// SPDX-License-Identifier: MPL-2.0

// Package modscript is a small line-oriented module language and the
// reference Engine for package modload.
//
// A module is a sequence of statements, one per line:
//
//	// comment
//	import "spec"
//	import name from "spec"
//	export name = <expr>
//	export default <expr>
//	throw <expr>
//
// Expressions are CUE expressions. Import bindings and earlier exports are
// in scope, so `export b = a + 1` reads the export a defined above it and
// `export c = util.name` reads the namespace bound by an import.
//
// Compiled programs serialize with msgpack; the encoded form is the bytecode
// format of precompiled built-in modules.
package modscript
