// SPDX-License-Identifier: MPL-2.0

package modload

import "context"

type (
	// CompiledModule is an engine-specific compiled definition. The loader
	// treats it as opaque.
	CompiledModule any

	// Compiler turns source text into a compiled module.
	Compiler interface {
		Compile(text []byte, path CanonicalPath, isModule bool) (CompiledModule, error)
	}

	// Decoder deserializes a precompiled (bytecode) module blob.
	Decoder interface {
		Decode(blob []byte, path CanonicalPath) (CompiledModule, error)
	}

	// Evaluator runs a compiled module body once. The body populates the
	// export table through the Linker and imports other modules with it.
	Evaluator interface {
		Evaluate(ctx context.Context, mod CompiledModule, l Linker) error
	}

	// Engine bundles the collaborator services the loader consumes.
	Engine interface {
		Compiler
		Decoder
		Evaluator
	}

	// Linker is the view a running module body has of the loader.
	Linker interface {
		// Path is the canonical path of the module being evaluated.
		Path() CanonicalPath
		// Exports is the export table of the module being evaluated.
		Exports() *ExportTable
		// Import resolves specifier relative to the running module.
		Import(ctx context.Context, specifier string) (*Record, error)
	}

	// NativeInit populates a native module's exports.
	NativeInit func(ctx context.Context, l Linker) error
)

// linker binds a record to the Loader that is evaluating it.
type linker struct {
	l   *Loader
	rec *Record
}

func (k *linker) Path() CanonicalPath   { return k.rec.Name }
func (k *linker) Exports() *ExportTable { return k.rec.Exports }

func (k *linker) Import(ctx context.Context, specifier string) (*Record, error) {
	rec, err := k.l.Load(ctx, specifier, string(k.rec.Name))
	if rec != nil {
		k.l.registry.addImport(k.rec.Name, rec.Name)
	}
	return rec, err
}
