// SPDX-License-Identifier: MPL-2.0

package modload

import (
	"context"
	"errors"
	"fmt"
	"plugin"
)

// NativeInitSymbol is the symbol a native-extension file must export.
const NativeInitSymbol = "ModuleInit"

// ErrNativeSymbol is returned when a native-extension file does not export
// a usable NativeInitSymbol.
var ErrNativeSymbol = errors.New("native module has no usable " + NativeInitSymbol)

// NativeOpener loads the native-extension file at path and returns its
// initializer.
type NativeOpener func(ctx context.Context, path string) (NativeInit, error)

// OpenPlugin is the default NativeOpener. It opens path as a Go plugin and
// looks up NativeInitSymbol, which may be a function or a variable of type
// NativeInit.
func OpenPlugin(_ context.Context, path string) (NativeInit, error) {
	p, err := plugin.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open native module: %w", err)
	}
	sym, err := p.Lookup(NativeInitSymbol)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNativeSymbol, err)
	}
	switch fn := sym.(type) {
	case func(context.Context, Linker) error:
		return fn, nil
	case *NativeInit:
		if *fn != nil {
			return *fn, nil
		}
	case *func(context.Context, Linker) error:
		if *fn != nil {
			return *fn, nil
		}
	}
	return nil, fmt.Errorf("%w: %s has type %T", ErrNativeSymbol, path, sym)
}
