// SPDX-License-Identifier: MPL-2.0

// Package modload resolves module specifiers to concrete modules and
// initializes each module at most once per Loader.
//
// A Loader is the resolver context of one runtime instance. It owns the
// module registry, the load stack, the loader hook chain, and the manifest
// alias cache. The only state shared between Loaders is a BuiltinTable,
// which is read-mostly after program start.
//
// Resolution of Load(ctx, specifier, referrer) runs, in order:
//
//  1. Loader hooks (Hook.Load), which may rewrite the specifier or return a
//     fully resolved module.
//  2. Normalizer hooks (Hook.Normalize), then the built-in normalization
//     algorithm: data URIs, built-in names, relative or absolute paths with
//     suffix search, one manifest alias substitution, and the search path.
//  3. The module registry. A cached record is returned as is, including a
//     cached failure, which is re-surfaced to every importer.
//  4. Compilation and evaluation through the Engine, with the record
//     inserted before compiling so re-entrant imports observe it.
//
// Cycles are reported according to the configured CyclePolicy. Hook failures
// are fatal for the whole in-flight resolution.
//
// Compiling and evaluating module bodies is delegated to an Engine supplied
// by the embedder; see package modscript for the reference engine.
package modload
