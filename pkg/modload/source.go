// SPDX-License-Identifier: MPL-2.0

package modload

// Source is the closed set of things a module can be built from. The only
// implementations are NativeSource, BytecodeSource, TextSource and
// DataSource; Loader.compile is the single place that dispatches on them.
type Source interface {
	kind() Kind
}

type (
	// NativeSource is a module implemented by a Go initializer.
	NativeSource struct {
		Init NativeInit
	}

	// BytecodeSource is a module serialized at build time by the engine.
	BytecodeSource struct {
		Blob []byte
	}

	// TextSource is module source text, read from a file or a data URI.
	TextSource struct {
		Text []byte
	}

	// DataSource is a JSON document exposed as the module's default export.
	DataSource struct {
		JSON []byte
	}
)

func (NativeSource) kind() Kind   { return KindNative }
func (BytecodeSource) kind() Kind { return KindBytecode }
func (TextSource) kind() Kind     { return KindSource }
func (DataSource) kind() Kind     { return KindData }

// KindOf returns the module kind a source produces.
func KindOf(src Source) Kind { return src.kind() }
