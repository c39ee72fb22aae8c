// SPDX-License-Identifier: MPL-2.0

package modload

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/spf13/afero"
)

const (
	// DefaultNativeExt is the suffix of files loaded through the NativeOpener.
	DefaultNativeExt = ".so"

	defaultExportName = "default"
)

type (
	// Options configures a Loader. Only Engine is required.
	Options struct {
		// Engine compiles, decodes and evaluates modules.
		Engine Engine
		// Builtins is the shared built-in table. Nil means an empty table.
		Builtins *BuiltinTable
		// Fs is the filesystem module files and the manifest are read from.
		// Nil means the OS filesystem.
		Fs afero.Fs
		// WorkDir anchors relative search directories, the manifest and
		// specifiers imported without a file referrer. Empty means os.Getwd.
		WorkDir string
		// SearchPath is the ordered list of search directories. Nil means
		// SearchPathWith(os.Getenv, DefaultSearchPath).
		SearchPath []string
		// Suffixes is the ordered suffix list. Nil means DefaultSuffixes.
		Suffixes []string
		// NativeExt marks files loaded through NativeOpener.
		NativeExt string
		// NativeOpener loads native-extension files. Nil means OpenPlugin.
		NativeOpener NativeOpener
		// Manifest locates the alias table.
		Manifest ManifestOptions
		// OnCycle selects the circular-import policy. Empty means CycleWarn.
		OnCycle CyclePolicy
		// Verbosity gates resolution tracing: 1 traces each module, 2 every step.
		Verbosity int
		// Logger receives diagnostics. Nil means slog.Default().
		Logger *slog.Logger
	}

	// Loader is a resolver context: one registry, one load stack, one
	// manifest cache and one hook chain. A Loader is not safe for
	// concurrent use; the built-in table it reads from is.
	Loader struct {
		engine     Engine
		builtins   *BuiltinTable
		fs         afero.Fs
		workDir    string
		searchPath []string
		nativeExt  string
		opener     NativeOpener
		onCycle    CyclePolicy
		verbosity  int
		logger     *slog.Logger

		files    *FSResolver
		manifest *manifestAliases
		hooks    *LoaderChain
		registry *registry
		stack    *LoadStack
	}
)

// New creates a Loader from opts.
func New(opts Options) (*Loader, error) {
	if opts.Engine == nil {
		return nil, ErrNoEngine
	}
	if ok, errs := opts.OnCycle.IsValid(); !ok {
		return nil, errs[0]
	}

	l := &Loader{
		engine:     opts.Engine,
		builtins:   opts.Builtins,
		fs:         opts.Fs,
		workDir:    opts.WorkDir,
		searchPath: opts.SearchPath,
		nativeExt:  opts.NativeExt,
		opener:     opts.NativeOpener,
		onCycle:    opts.OnCycle,
		verbosity:  opts.Verbosity,
		logger:     opts.Logger,
		hooks:      NewLoaderChain(),
		registry:   newRegistry(),
		stack:      NewLoadStack(),
	}
	if l.builtins == nil {
		l.builtins = NewBuiltinTable()
	}
	if l.fs == nil {
		l.fs = afero.NewOsFs()
	}
	if l.workDir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("modload: working directory: %w", err)
		}
		l.workDir = wd
	}
	l.workDir = filepath.Clean(l.workDir)
	if l.searchPath == nil {
		l.searchPath = SearchPathWith(os.Getenv, DefaultSearchPath)
	}
	if l.nativeExt == "" {
		l.nativeExt = DefaultNativeExt
	}
	if l.opener == nil {
		l.opener = OpenPlugin
	}
	if l.onCycle == "" {
		l.onCycle = CycleWarn
	}
	if l.logger == nil {
		l.logger = slog.Default()
	}
	l.files = NewFSResolver(l.fs, l.workDir, opts.Suffixes)
	l.manifest = newManifestAliases(l.fs, l.workDir, opts.Manifest, l.logger)
	return l, nil
}

// Hooks returns the loader chain of this context.
func (l *Loader) Hooks() *LoaderChain { return l.hooks }

// WorkDir returns the working directory of this context.
func (l *Loader) WorkDir() string { return l.workDir }

// SearchPath returns the effective search path.
func (l *Loader) SearchPath() []string { return l.searchPath }

// Builtins returns the built-in table this context reads from.
func (l *Loader) Builtins() *BuiltinTable { return l.builtins }

// Modules returns every record of this context, sorted by canonical path.
func (l *Loader) Modules() []*Record { return l.registry.sorted() }

// Imports returns the canonical paths the module at p imported, in first
// import order. Imports that failed to resolve are not recorded.
func (l *Loader) Imports(p CanonicalPath) []CanonicalPath {
	return slices.Clone(l.registry.imports[p])
}

// LoadStack returns the canonical paths currently being instantiated,
// outermost first.
func (l *Loader) LoadStack() []CanonicalPath { return l.stack.Snapshot() }

// Load resolves specifier relative to referrer and returns its record,
// compiling and evaluating it on first use. An empty referrer means the
// working directory.
//
// A record that failed is returned together with its cached error. Hook
// failures are fatal: they are returned as-is and leave every in-flight
// record in its current state.
func (l *Loader) Load(ctx context.Context, specifier, referrer string) (*Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	spec, hooked, err := l.hooks.RunLoaders(ctx, specifier)
	if err != nil {
		return nil, err
	}
	if hooked != nil {
		l.trace(ctx, 1, "module provided by loader hook", "specifier", specifier, "path", hooked.Name)
		return hooked, nil
	}

	res, ok, err := l.resolve(ctx, spec, referrer)
	if err != nil {
		return nil, err
	}
	if !ok {
		args := []any{"specifier", specifier, "referrer", referrer}
		if spec != specifier {
			args = append(args, "rewritten", spec)
		}
		l.logger.WarnContext(ctx, "module not found", args...)
		return nil, &NotFoundError{Specifier: spec, Referrer: referrer}
	}

	if rec, found := l.registry.lookup(res.path); found {
		if rec.State.InFlight() || l.stack.Contains(res.path) {
			if err := l.cycle(ctx, spec, rec.Name); err != nil {
				return rec, err
			}
		}
		l.trace(ctx, 2, "module cached", "specifier", spec, "path", rec.Name, "state", rec.State)
		return rec, rec.Failure()
	}
	if l.stack.Contains(res.path) {
		if err := l.cycle(ctx, spec, res.path); err != nil {
			return nil, err
		}
	}

	return l.instantiate(ctx, spec, res)
}

// Instantiate creates (or returns) this context's record for a built-in
// entry without going through specifier normalization.
func (l *Loader) Instantiate(ctx context.Context, e *BuiltinEntry) (*Record, error) {
	if rec, found := l.registry.lookup(e.Path()); found {
		return rec, rec.Failure()
	}
	return l.instantiate(ctx, e.Name(), resolution{path: e.Path(), src: e.src, builtin: e})
}

// instantiate inserts a new record for res and drives it to a terminal
// state. The canonical path stays on the load stack while code runs.
func (l *Loader) instantiate(ctx context.Context, specifier string, res resolution) (*Record, error) {
	l.stack.Push(res.path)
	defer l.stack.Pop()

	rec := l.registry.insert(&Record{Name: res.path, Exports: NewExportTable()})
	if err := rec.advance(StateResolving); err != nil {
		return rec, err
	}
	l.trace(ctx, 1, "loading module", "specifier", specifier, "path", rec.Name)

	run, err := l.compile(ctx, rec, res)
	if err != nil {
		return rec, rec.fail(&CompileError{Path: rec.Name, Err: err})
	}
	if err := rec.advance(StateResolved); err != nil {
		return rec, err
	}
	if err := rec.advance(StateEvaluating); err != nil {
		return rec, err
	}

	if err := run(ctx, &linker{l: l, rec: rec}); err != nil {
		if IsFatal(err) {
			return rec, err
		}
		l.trace(ctx, 1, "module evaluation failed", "specifier", specifier, "path", rec.Name, "error", err)
		return rec, rec.fail(&EvaluationError{Path: rec.Name, Err: err})
	}
	if err := rec.advance(StateEvaluated); err != nil {
		return rec, err
	}
	l.trace(ctx, 1, "module evaluated", "specifier", specifier, "path", rec.Name, "exports", rec.Exports.Len())
	return rec, nil
}

// compile turns a resolution into the function that evaluates the module
// body. It is the only place that dispatches on the Source variant.
func (l *Loader) compile(ctx context.Context, rec *Record, res resolution) (NativeInit, error) {
	if res.srcErr != nil {
		return nil, res.srcErr
	}
	src := res.src
	if src == nil {
		var err error
		if src, err = l.readFile(ctx, string(rec.Name)); err != nil {
			return nil, err
		}
	}
	rec.Kind = src.kind()

	switch s := src.(type) {
	case NativeSource:
		return s.Init, nil

	case BytecodeSource:
		var (
			def CompiledModule
			err error
		)
		if res.builtin != nil {
			def, err = res.builtin.definition(l.engine, s.Blob)
		} else {
			def, err = l.engine.Decode(s.Blob, rec.Name)
		}
		if err != nil {
			return nil, err
		}
		rec.Def = def
		return l.evaluate(def), nil

	case TextSource:
		def, err := l.engine.Compile(s.Text, rec.Name, true)
		if err != nil {
			return nil, err
		}
		rec.Def = def
		return l.evaluate(def), nil

	case DataSource:
		var v any
		if err := json.Unmarshal(s.JSON, &v); err != nil {
			return nil, fmt.Errorf("decode JSON: %w", err)
		}
		rec.Def = v
		return func(_ context.Context, k Linker) error {
			k.Exports().Set(defaultExportName, v)
			return nil
		}, nil

	default:
		return nil, fmt.Errorf("%w %T", ErrInvalidKind, src)
	}
}

func (l *Loader) evaluate(def CompiledModule) NativeInit {
	return func(ctx context.Context, k Linker) error {
		return l.engine.Evaluate(ctx, def, k)
	}
}

// readFile loads the module file at path: native-extension files through
// the NativeOpener, everything else as source text.
func (l *Loader) readFile(ctx context.Context, path string) (Source, error) {
	if strings.HasSuffix(path, l.nativeExt) {
		fn, err := l.opener(ctx, path)
		if err != nil {
			return nil, err
		}
		return NativeSource{Init: fn}, nil
	}
	text, err := afero.ReadFile(l.fs, path)
	if err != nil {
		return nil, err
	}
	return TextSource{Text: text}, nil
}

// cycle applies the cycle policy to an import of path.
func (l *Loader) cycle(ctx context.Context, specifier string, path CanonicalPath) error {
	switch l.onCycle {
	case CycleError:
		return &CircularDependencyError{Specifier: specifier, Path: path, Stack: l.stack.Snapshot()}
	case CycleIgnore:
		l.trace(ctx, 2, "circular dependency ignored", "specifier", specifier, "path", path)
		return nil
	default:
		l.logger.WarnContext(ctx, "circular dependency", "specifier", specifier, "path", path, "stack", l.stack.Snapshot())
		return nil
	}
}

// trace logs a resolution step when the verbosity is at least level.
func (l *Loader) trace(ctx context.Context, level int, msg string, args ...any) {
	if l.verbosity < level {
		return
	}
	lvl := slog.LevelInfo
	if level > 1 {
		lvl = slog.LevelDebug
	}
	l.logger.Log(ctx, lvl, msg, args...)
}
