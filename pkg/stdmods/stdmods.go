// SPDX-License-Identifier: MPL-2.0

// Package stdmods provides the compiled-in modules every modload binary
// ships with.
//
// Native modules:
//
//   - os: platform, arch, path and list separators
//   - env: a snapshot of the process environment taken at first import
//   - modload: the loader version
//
// Bytecode modules:
//
//   - strings: character-class constants, precompiled from modscript source
package stdmods

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"

	"github.com/invowk/modload/pkg/modload"
	"github.com/invowk/modload/pkg/modscript"
)

const stringsSource = `// character classes
export digits = "0123456789"
export lowercase = "abcdefghijklmnopqrstuvwxyz"
export uppercase = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"
export letters = lowercase + uppercase
export hexdigits = digits + "abcdefABCDEF"
export whitespace = " \t\n\r"
`

var (
	// Version is reported by the modload built-in. The CLI overrides it
	// with its own build version.
	Version = "dev"

	stringsBlob = modscript.MustPrecompile(stringsSource, "builtin:strings")

	defaultOnce  sync.Once
	defaultTable *modload.BuiltinTable
)

// Register adds every standard module to t.
func Register(t *modload.BuiltinTable) error {
	natives := []struct {
		name string
		init modload.NativeInit
	}{
		{name: "os", init: initOS},
		{name: "env", init: initEnv},
		{name: "modload", init: initModload},
	}
	for _, n := range natives {
		if err := t.Register(n.name, modload.NativeSource{Init: n.init}); err != nil {
			return fmt.Errorf("register %s: %w", n.name, err)
		}
	}
	if err := t.Register("strings", modload.BytecodeSource{Blob: stringsBlob}); err != nil {
		return fmt.Errorf("register strings: %w", err)
	}
	return nil
}

// Default returns the process-wide table holding the standard modules.
// It is built on first use and shared by every Loader that asks for it.
func Default() *modload.BuiltinTable {
	defaultOnce.Do(func() {
		defaultTable = modload.NewBuiltinTable()
		if err := Register(defaultTable); err != nil {
			panic(err)
		}
	})
	return defaultTable
}

func initOS(_ context.Context, l modload.Linker) error {
	ex := l.Exports()
	ex.Set("platform", runtime.GOOS)
	ex.Set("arch", runtime.GOARCH)
	ex.Set("separator", string(filepath.Separator))
	ex.Set("list_separator", string(filepath.ListSeparator))
	return nil
}

func initEnv(_ context.Context, l modload.Linker) error {
	vars := make(map[string]any)
	for _, kv := range os.Environ() {
		if k, v, ok := strings.Cut(kv, "="); ok && k != "" {
			vars[k] = v
		}
	}
	l.Exports().Set("vars", vars)
	return nil
}

func initModload(_ context.Context, l modload.Linker) error {
	l.Exports().Set("version", Version)
	return nil
}
