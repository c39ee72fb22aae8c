// SPDX-License-Identifier: MPL-2.0

package modload

import (
	"context"
	"encoding/base64"
	"errors"
	"reflect"
	"testing"
)

func TestNew_Validation(t *testing.T) {
	t.Parallel()

	if _, err := New(Options{}); !errors.Is(err, ErrNoEngine) {
		t.Errorf("New() without engine error = %v", err)
	}
	if _, err := New(Options{Engine: newFakeEngine(), OnCycle: "explode"}); !errors.Is(err, ErrInvalidCyclePolicy) {
		t.Errorf("New() with bad policy error = %v", err)
	}
}

func TestLoader_Idempotence(t *testing.T) {
	t.Parallel()

	tl := newTestLoader(t, map[string]string{"/proj/a.js": "export x 1"})
	ctx := context.Background()

	first, err := tl.Load(ctx, "./a.js", "")
	if err != nil {
		t.Fatal(err)
	}
	for _, spec := range []string{"./a.js", "./a", "a", "/proj/a.js"} {
		rec, err := tl.Load(ctx, spec, "")
		if err != nil {
			t.Fatalf("Load(%q) error = %v", spec, err)
		}
		if rec != first {
			t.Errorf("Load(%q) returned a different record", spec)
		}
	}
	if n := tl.engine.count(tl.engine.compiles, "/proj/a.js"); n != 1 {
		t.Errorf("compiled %d times, want 1", n)
	}
	if n := tl.engine.count(tl.engine.evals, "/proj/a.js"); n != 1 {
		t.Errorf("evaluated %d times, want 1", n)
	}
	if len(tl.Modules()) != 1 {
		t.Errorf("Modules() = %d records", len(tl.Modules()))
	}
}

func TestLoader_EndToEndSearchPath(t *testing.T) {
	t.Parallel()

	tl := newTestLoader(t, map[string]string{"/proj/lib/util.js": "export name util"})

	rec, err := tl.Load(context.Background(), "util", "")
	if err != nil {
		t.Fatal(err)
	}
	if rec.Name != "/proj/lib/util.js" || rec.Kind != KindSource || rec.State != StateEvaluated {
		t.Errorf("record = %s %s %s", rec.Name, rec.Kind, rec.State)
	}
	if v, _ := rec.Exports.Get("name"); v != "util" {
		t.Errorf("name = %v", v)
	}
}

func TestLoader_CycleWarn(t *testing.T) {
	t.Parallel()

	tl := newTestLoader(t, map[string]string{
		"/proj/a.js": "export early 1\nimport ./b.js\nexport late 2",
		"/proj/b.js": "import ./a.js\nexport b 1",
	})

	a, err := tl.Load(context.Background(), "./a.js", "")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	b, _ := tl.Load(context.Background(), "./b.js", "")
	if a.State != StateEvaluated || b.State != StateEvaluated {
		t.Errorf("states = %s, %s; want both evaluated", a.State, b.State)
	}
	if n := tl.logs.count("circular dependency"); n != 1 {
		t.Errorf("circular dependency diagnostics = %d, want 1", n)
	}
	if v, ok := tl.logs.attr("circular dependency", "specifier"); !ok || v.String() != "./a.js" {
		t.Errorf("specifier attr = %v", v)
	}
	if v, ok := tl.logs.attr("circular dependency", "path"); !ok || v.String() != "/proj/a.js" {
		t.Errorf("path attr = %v", v)
	}
	if len(tl.LoadStack()) != 0 {
		t.Errorf("load stack not unwound: %v", tl.LoadStack())
	}
}

func TestLoader_CycleError(t *testing.T) {
	t.Parallel()

	tl := newTestLoader(t, map[string]string{
		"/proj/a.js": "import ./b.js",
		"/proj/b.js": "import ./a.js",
	}, func(o *Options) { o.OnCycle = CycleError })

	a, err := tl.Load(context.Background(), "./a.js", "")
	var cde *CircularDependencyError
	if !errors.As(err, &cde) {
		t.Fatalf("error = %v, want CircularDependencyError in chain", err)
	}
	if cde.Path != "/proj/a.js" || !reflect.DeepEqual(cde.Stack, []CanonicalPath{"/proj/a.js", "/proj/b.js"}) {
		t.Errorf("cycle = %+v", cde)
	}
	b, _ := tl.Load(context.Background(), "./b.js", "")
	if a.State != StateEvaluationFailed || b.State != StateEvaluationFailed {
		t.Errorf("states = %s, %s; want both failed", a.State, b.State)
	}
	if tl.logs.count("circular dependency") != 0 {
		t.Error("error policy must not log a warning")
	}
}

func TestLoader_CycleIgnore(t *testing.T) {
	t.Parallel()

	tl := newTestLoader(t, map[string]string{
		"/proj/a.js": "import ./b.js",
		"/proj/b.js": "import ./a.js",
	}, func(o *Options) { o.OnCycle = CycleIgnore })

	a, err := tl.Load(context.Background(), "./a.js", "")
	if err != nil || a.State != StateEvaluated {
		t.Fatalf("Load() = %v, %v", a.State, err)
	}
	if tl.logs.count("circular dependency") != 0 {
		t.Error("ignore policy must be silent")
	}
}

func TestLoader_SelfImport(t *testing.T) {
	t.Parallel()

	tl := newTestLoader(t, map[string]string{"/proj/self.js": "import ./self.js\nexport ok 1"})

	rec, err := tl.Load(context.Background(), "./self.js", "")
	if err != nil || rec.State != StateEvaluated {
		t.Fatalf("Load() = %v, %v", rec, err)
	}
	if n := tl.logs.count("circular dependency"); n != 1 {
		t.Errorf("diagnostics = %d, want 1", n)
	}
}

func TestLoader_CachedFailureIsReused(t *testing.T) {
	t.Parallel()

	tl := newTestLoader(t, map[string]string{
		"/proj/fail.js": "export partial 1\nthrow boom",
		"/proj/x.js":    "import ./fail.js",
		"/proj/y.js":    "import ./fail.js",
	})
	ctx := context.Background()

	_, errX := tl.Load(ctx, "./x.js", "")
	_, errY := tl.Load(ctx, "./y.js", "")
	for _, err := range []error{errX, errY} {
		if !errors.Is(err, ErrEvaluation) {
			t.Errorf("importer error = %v", err)
		}
	}

	rec, err := tl.Load(ctx, "./fail.js", "")
	if rec == nil || rec.State != StateEvaluationFailed {
		t.Fatalf("record = %+v", rec)
	}
	if err != rec.Err {
		t.Errorf("Load() must return the cached error, got %v", err)
	}
	var ee *EvaluationError
	if !errors.As(err, &ee) || ee.Path != "/proj/fail.js" || ee.Err.Error() != "boom" {
		t.Errorf("cached error = %#v", err)
	}
	if n := tl.engine.count(tl.engine.evals, "/proj/fail.js"); n != 1 {
		t.Errorf("failing module evaluated %d times, want 1", n)
	}
}

func TestLoader_CompileErrorIsCached(t *testing.T) {
	t.Parallel()

	tl := newTestLoader(t, map[string]string{"/proj/bad.js": "!syntax"})
	ctx := context.Background()

	rec, err := tl.Load(ctx, "./bad.js", "")
	if !errors.Is(err, ErrCompile) || !errors.Is(err, errFakeSyntax) {
		t.Fatalf("error = %v", err)
	}
	if rec.State != StateEvaluationFailed || rec.Kind != KindSource {
		t.Errorf("record = %s %s", rec.State, rec.Kind)
	}
	if _, err := tl.Load(ctx, "./bad.js", ""); !errors.Is(err, ErrCompile) {
		t.Errorf("second Load() error = %v", err)
	}
	if n := tl.engine.count(tl.engine.compiles, "/proj/bad.js"); n != 1 {
		t.Errorf("compiled %d times, want 1", n)
	}
}

func TestLoader_NotFound(t *testing.T) {
	t.Parallel()

	tl := newTestLoader(t, nil)
	rec, err := tl.Load(context.Background(), "ghost", "/proj/main.js")
	var nf *NotFoundError
	if rec != nil || !errors.As(err, &nf) || nf.Specifier != "ghost" || nf.Referrer != "/proj/main.js" {
		t.Fatalf("Load() = %v, %v", rec, err)
	}
	if v, ok := tl.logs.attr("module not found", "specifier"); !ok || v.String() != "ghost" {
		t.Errorf("not-found diagnostic missing: %v", v)
	}
}

func TestLoader_NotFoundReportsRewrite(t *testing.T) {
	t.Parallel()

	tl := newTestLoader(t, nil)
	_ = tl.Hooks().Register(Hook{ID: "alias", Load: func(_ context.Context, s string) (Outcome, error) {
		if s == "alias" {
			return Rewrite("./ghost"), nil
		}
		return Pass(), nil
	}})

	_, err := tl.Load(context.Background(), "alias", "/proj/main.js")
	var nf *NotFoundError
	if !errors.As(err, &nf) {
		t.Fatalf("Load() error = %v, want NotFoundError", err)
	}
	if v, ok := tl.logs.attr("module not found", "specifier"); !ok || v.String() != "alias" {
		t.Errorf("specifier = %v, want alias", v)
	}
	if v, ok := tl.logs.attr("module not found", "rewritten"); !ok || v.String() != "./ghost" {
		t.Errorf("rewritten = %v, want ./ghost", v)
	}
}

func TestLoader_LoaderHookPrecedence(t *testing.T) {
	t.Parallel()

	tl := newTestLoader(t, map[string]string{
		"/proj/real.js":  "export real 1",
		"/proj/alias.js": "export wrong 1",
	})
	synthetic := NewSyntheticModule("host:config", map[string]any{"debug": true})
	_ = tl.Hooks().Register(Hook{ID: "host", Load: func(_ context.Context, s string) (Outcome, error) {
		switch s {
		case "./alias.js":
			return Rewrite("./real.js"), nil
		case "config":
			return Resolved(synthetic), nil
		}
		return Pass(), nil
	}})

	rec, err := tl.Load(context.Background(), "./alias.js", "")
	if err != nil || rec.Name != "/proj/real.js" {
		t.Fatalf("Load(alias) = %v, %v", rec, err)
	}
	if n := tl.engine.count(tl.engine.compiles, "/proj/alias.js"); n != 0 {
		t.Error("original specifier must not be resolved")
	}

	rec, err = tl.Load(context.Background(), "config", "")
	if err != nil || rec != synthetic {
		t.Fatalf("Load(config) = %v, %v", rec, err)
	}
	for _, m := range tl.Modules() {
		if m == synthetic {
			t.Error("hook-provided modules are not cached in the registry")
		}
	}
}

func TestLoader_HookFailureIsFatal(t *testing.T) {
	t.Parallel()

	tl := newTestLoader(t, map[string]string{
		"/proj/main.js": "import ./dep.js\nexport after 1",
		"/proj/dep.js":  "import forbidden",
	})
	_ = tl.Hooks().Register(Hook{ID: "policy", Load: func(_ context.Context, s string) (Outcome, error) {
		if s == "forbidden" {
			return Outcome{}, errors.New("blocked by policy")
		}
		return Pass(), nil
	}})

	rec, err := tl.Load(context.Background(), "./main.js", "")
	if !IsFatal(err) {
		t.Fatalf("error = %v, want fatal hook error", err)
	}
	if errors.Is(err, ErrEvaluation) {
		t.Error("hook failures must not be converted into module failures")
	}
	dep, _ := tl.registry.lookup("/proj/dep.js")
	if rec.State != StateEvaluating || dep == nil || dep.State != StateEvaluating {
		t.Errorf("in-flight records must keep their state: main=%s dep=%v", rec.State, dep)
	}
	if len(tl.LoadStack()) != 0 {
		t.Errorf("load stack not unwound: %v", tl.LoadStack())
	}
}

func TestLoader_DataURIRoundTrip(t *testing.T) {
	t.Parallel()

	src := "export a 1\nexport b two"
	tl := newTestLoader(t, map[string]string{"/proj/s.js": src})
	ctx := context.Background()

	direct, err := tl.Load(ctx, "./s.js", "")
	if err != nil {
		t.Fatal(err)
	}
	uri := "data:;base64," + base64.StdEncoding.EncodeToString([]byte(src))
	viaURI, err := tl.Load(ctx, uri, "")
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(direct.Namespace(), viaURI.Namespace()) {
		t.Errorf("namespaces differ: %v vs %v", direct.Namespace(), viaURI.Namespace())
	}
	if viaURI.Kind != KindSource || viaURI.Name != DataPath(uri) {
		t.Errorf("record = %s %s", viaURI.Kind, viaURI.Name)
	}
	again, _ := tl.Load(ctx, uri, "")
	if again != viaURI {
		t.Error("the same data URI must map to the same record")
	}
}

func TestLoader_JSONDataURI(t *testing.T) {
	t.Parallel()

	tl := newTestLoader(t, nil)
	ctx := context.Background()

	plain := `data:application/json,{"a":1}`
	encoded := "data:application/json;base64," + base64.StdEncoding.EncodeToString([]byte(`{"a":1}`))
	for _, uri := range []string{plain, encoded} {
		rec, err := tl.Load(ctx, uri, "")
		if err != nil {
			t.Fatalf("Load(%q) error = %v", uri, err)
		}
		if rec.Kind != KindData {
			t.Errorf("Kind = %s, want data", rec.Kind)
		}
		def, _ := rec.Exports.Get("default")
		if !reflect.DeepEqual(def, map[string]any{"a": float64(1)}) {
			t.Errorf("default = %#v", def)
		}
	}
	if len(tl.engine.compiles) != 0 {
		t.Error("JSON modules must not go through the compiler")
	}
}

func TestLoader_DataURIFailures(t *testing.T) {
	t.Parallel()

	tl := newTestLoader(t, nil)
	ctx := context.Background()

	tests := []struct {
		uri  string
		want error
	}{
		{uri: `data:application/json,{"a":`, want: ErrCompile},
		{uri: "data:text/plain", want: ErrMalformedDataURI},
		{uri: "data:,!syntax", want: errFakeSyntax},
	}
	for _, tt := range tests {
		rec, err := tl.Load(ctx, tt.uri, "")
		if !errors.Is(err, tt.want) || !errors.Is(err, ErrCompile) {
			t.Errorf("Load(%q) error = %v, want %v", tt.uri, err, tt.want)
		}
		if rec == nil || rec.State != StateEvaluationFailed {
			t.Errorf("Load(%q) record = %+v", tt.uri, rec)
		}
	}
}

func TestLoader_NativeExtension(t *testing.T) {
	t.Parallel()

	var opened []string
	opener := func(_ context.Context, path string) (NativeInit, error) {
		opened = append(opened, path)
		if path == "/proj/broken.so" {
			return nil, ErrNativeSymbol
		}
		return func(_ context.Context, l Linker) error {
			l.Exports().Set("native", true)
			return nil
		}, nil
	}
	tl := newTestLoader(t, map[string]string{
		"/proj/ext.so":    "\x7fELF",
		"/proj/ext.js":    "export js 1",
		"/proj/broken.so": "",
	}, func(o *Options) { o.NativeOpener = opener })
	ctx := context.Background()

	rec, err := tl.Load(ctx, "./ext", "")
	if err != nil {
		t.Fatal(err)
	}
	if rec.Name != "/proj/ext.so" || rec.Kind != KindNative {
		t.Errorf("record = %s %s", rec.Name, rec.Kind)
	}
	if v, _ := rec.Exports.Get("native"); v != true {
		t.Errorf("native = %v", v)
	}

	_, err = tl.Load(ctx, "./broken.so", "")
	if !errors.Is(err, ErrCompile) || !errors.Is(err, ErrNativeSymbol) {
		t.Errorf("broken native error = %v", err)
	}
	if !reflect.DeepEqual(opened, []string{"/proj/ext.so", "/proj/broken.so"}) {
		t.Errorf("opened = %v", opened)
	}
}

func TestLoader_VerbosityTracing(t *testing.T) {
	t.Parallel()

	files := map[string]string{"/proj/a.js": "export x 1"}

	quiet := newTestLoader(t, files)
	if _, err := quiet.Load(context.Background(), "./a.js", ""); err != nil {
		t.Fatal(err)
	}
	if quiet.logs.count("loading module") != 0 {
		t.Error("verbosity 0 must not trace")
	}

	loud := newTestLoader(t, files, func(o *Options) { o.Verbosity = 2 })
	if _, err := loud.Load(context.Background(), "./a.js", ""); err != nil {
		t.Fatal(err)
	}
	if v, ok := loud.logs.attr("loading module", "path"); !ok || v.String() != "/proj/a.js" {
		t.Errorf("trace path = %v", v)
	}
	if loud.logs.count("normalized") == 0 {
		t.Error("verbosity 2 should trace normalization steps")
	}
}

func TestLoader_TraceUsesLoadContext(t *testing.T) {
	t.Parallel()

	type requestKey struct{}
	tl := newTestLoader(t, map[string]string{"/proj/a.js": "export x 1"}, func(o *Options) { o.Verbosity = 2 })
	ctx := context.WithValue(context.Background(), requestKey{}, "req-7")
	if _, err := tl.Load(ctx, "./a.js", ""); err != nil {
		t.Fatal(err)
	}
	for _, msg := range []string{"loading module", "normalized"} {
		got := tl.logs.ctxFor(msg)
		if got == nil || got.Value(requestKey{}) != "req-7" {
			t.Errorf("%q logged without the load context", msg)
		}
	}
}

func TestLoader_ContextCancelled(t *testing.T) {
	t.Parallel()

	tl := newTestLoader(t, map[string]string{"/proj/a.js": "export x 1"})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := tl.Load(ctx, "./a.js", ""); !errors.Is(err, context.Canceled) {
		t.Errorf("Load() error = %v, want context.Canceled", err)
	}
	if len(tl.Modules()) != 0 {
		t.Error("a cancelled load must not create records")
	}
}

func TestLoader_ModulesSorted(t *testing.T) {
	t.Parallel()

	tl := newTestLoader(t, map[string]string{
		"/proj/z.js": "import ./m.js",
		"/proj/m.js": "import ./a.js",
		"/proj/a.js": "",
	})
	if _, err := tl.Load(context.Background(), "./z.js", ""); err != nil {
		t.Fatal(err)
	}
	var names []CanonicalPath
	for _, m := range tl.Modules() {
		names = append(names, m.Name)
	}
	if !reflect.DeepEqual(names, []CanonicalPath{"/proj/a.js", "/proj/m.js", "/proj/z.js"}) {
		t.Errorf("Modules() = %v", names)
	}
}

func TestLoader_Imports(t *testing.T) {
	t.Parallel()

	tl := newTestLoader(t, map[string]string{
		"/proj/main.js": "import ./a.js\nimport ./b.js\nimport ./a.js\nimport ./missing.js",
		"/proj/a.js":    "import ./b.js",
		"/proj/b.js":    "",
	})
	_, err := tl.Load(context.Background(), "./main.js", "")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("Load() error = %v, want ErrNotFound", err)
	}

	if got := tl.Imports("/proj/main.js"); !reflect.DeepEqual(got, []CanonicalPath{"/proj/a.js", "/proj/b.js"}) {
		t.Errorf("Imports(main) = %v", got)
	}
	if got := tl.Imports("/proj/a.js"); !reflect.DeepEqual(got, []CanonicalPath{"/proj/b.js"}) {
		t.Errorf("Imports(a) = %v", got)
	}
	if got := tl.Imports("/proj/b.js"); len(got) != 0 {
		t.Errorf("Imports(b) = %v, want none", got)
	}
}
