// SPDX-License-Identifier: MPL-2.0

package modload

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"

	"github.com/spf13/afero"
)

var errFakeSyntax = errors.New("fake syntax error")

type (
	// fakeEngine understands one statement per line:
	//
	//	import <specifier>
	//	export <name> <value>
	//	throw <message>
	//
	// Text starting with "!syntax" fails to compile.
	fakeEngine struct {
		mu       sync.Mutex
		compiles map[CanonicalPath]int
		decodes  map[CanonicalPath]int
		evals    map[CanonicalPath]int
	}

	fakeModule struct {
		lines []string
	}

	// recordingHandler keeps every log record for assertions.
	recordingHandler struct {
		mu      sync.Mutex
		records []slog.Record
		ctxs    []context.Context
	}

	// countingFs counts Open calls per path.
	countingFs struct {
		afero.Fs
		mu    sync.Mutex
		opens map[string]int
	}
)

func newFakeEngine() *fakeEngine {
	return &fakeEngine{
		compiles: make(map[CanonicalPath]int),
		decodes:  make(map[CanonicalPath]int),
		evals:    make(map[CanonicalPath]int),
	}
}

func (e *fakeEngine) Compile(text []byte, path CanonicalPath, _ bool) (CompiledModule, error) {
	e.mu.Lock()
	e.compiles[path]++
	e.mu.Unlock()
	return parseFake(text)
}

func (e *fakeEngine) Decode(blob []byte, path CanonicalPath) (CompiledModule, error) {
	e.mu.Lock()
	e.decodes[path]++
	e.mu.Unlock()
	return parseFake(blob)
}

func (e *fakeEngine) Evaluate(ctx context.Context, mod CompiledModule, l Linker) error {
	e.mu.Lock()
	e.evals[l.Path()]++
	e.mu.Unlock()

	for _, line := range mod.(fakeModule).lines {
		op, rest, _ := strings.Cut(line, " ")
		switch op {
		case "import":
			if _, err := l.Import(ctx, rest); err != nil {
				return fmt.Errorf("import %q: %w", rest, err)
			}
		case "export":
			name, value, _ := strings.Cut(rest, " ")
			l.Exports().Set(name, value)
		case "throw":
			return errors.New(rest)
		}
	}
	return nil
}

func (e *fakeEngine) count(m map[CanonicalPath]int, p CanonicalPath) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return m[p]
}

func parseFake(text []byte) (CompiledModule, error) {
	if bytes.HasPrefix(text, []byte("!syntax")) {
		return nil, errFakeSyntax
	}
	var lines []string
	for line := range strings.SplitSeq(string(text), "\n") {
		if line = strings.TrimSpace(line); line != "" {
			lines = append(lines, line)
		}
	}
	return fakeModule{lines: lines}, nil
}

func (h *recordingHandler) Enabled(context.Context, slog.Level) bool { return true }

func (h *recordingHandler) Handle(ctx context.Context, r slog.Record) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.records = append(h.records, r)
	h.ctxs = append(h.ctxs, ctx)
	return nil
}

func (h *recordingHandler) WithAttrs([]slog.Attr) slog.Handler { return h }
func (h *recordingHandler) WithGroup(string) slog.Handler      { return h }

// count returns how many records carry msg.
func (h *recordingHandler) count(msg string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	n := 0
	for _, r := range h.records {
		if r.Message == msg {
			n++
		}
	}
	return n
}

// attr returns the value of key on the first record carrying msg.
func (h *recordingHandler) attr(msg, key string) (slog.Value, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, r := range h.records {
		if r.Message != msg {
			continue
		}
		var (
			v     slog.Value
			found bool
		)
		r.Attrs(func(a slog.Attr) bool {
			if a.Key == key {
				v, found = a.Value, true
				return false
			}
			return true
		})
		return v, found
	}
	return slog.Value{}, false
}

// ctxFor returns the context the first record carrying msg was logged with.
func (h *recordingHandler) ctxFor(msg string) context.Context {
	h.mu.Lock()
	defer h.mu.Unlock()
	for i, r := range h.records {
		if r.Message == msg {
			return h.ctxs[i]
		}
	}
	return nil
}

func newCountingFs(fs afero.Fs) *countingFs {
	return &countingFs{Fs: fs, opens: make(map[string]int)}
}

func (c *countingFs) Open(name string) (afero.File, error) {
	c.mu.Lock()
	c.opens[name]++
	c.mu.Unlock()
	return c.Fs.Open(name)
}

func (c *countingFs) count(name string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.opens[name]
}

func writeFiles(t *testing.T, fs afero.Fs, files map[string]string) {
	t.Helper()
	for name, content := range files {
		if err := afero.WriteFile(fs, name, []byte(content), 0o644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}
}

type testLoader struct {
	*Loader
	engine *fakeEngine
	logs   *recordingHandler
	fs     afero.Fs
}

// newTestLoader builds a Loader over an in-memory filesystem rooted at
// /proj with search path ["/proj", "/proj/lib"].
func newTestLoader(t *testing.T, files map[string]string, mutate ...func(*Options)) *testLoader {
	t.Helper()

	fs := afero.NewMemMapFs()
	writeFiles(t, fs, files)
	engine := newFakeEngine()
	logs := &recordingHandler{}
	opts := Options{
		Engine:     engine,
		Fs:         fs,
		WorkDir:    "/proj",
		SearchPath: []string{".", "lib"},
		Logger:     slog.New(logs),
	}
	for _, m := range mutate {
		m(&opts)
	}
	l, err := New(opts)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return &testLoader{Loader: l, engine: engine, logs: logs, fs: opts.Fs}
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
