// SPDX-License-Identifier: MPL-2.0

package modscript

import (
	"fmt"

	"github.com/vmihailenco/msgpack/v5"
)

// Encode serializes a compiled program.
func Encode(p *Program) ([]byte, error) {
	blob, err := msgpack.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("encode program %s: %w", p.Path, err)
	}
	return blob, nil
}

// Decode deserializes a program produced by Encode.
func Decode(blob []byte) (*Program, error) {
	var p Program
	if err := msgpack.Unmarshal(blob, &p); err != nil {
		return nil, fmt.Errorf("decode program: %w", err)
	}
	return &p, nil
}

// Precompile parses module source and returns its serialized form, ready to
// be registered as a bytecode built-in.
func Precompile(src, name string) ([]byte, error) {
	p, err := Parse([]byte(src), name, true)
	if err != nil {
		return nil, err
	}
	return Encode(p)
}

// MustPrecompile is like Precompile but panics on error. It is meant for
// package-level built-in sources.
func MustPrecompile(src, name string) []byte {
	blob, err := Precompile(src, name)
	if err != nil {
		panic(err)
	}
	return blob
}
