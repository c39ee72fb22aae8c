// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/invowk/modload/internal/issue"
	"github.com/invowk/modload/internal/testutil"
	"github.com/invowk/modload/pkg/modload"
	"github.com/invowk/modload/pkg/stdmods"

	"github.com/spf13/afero"
)

type cliResult struct {
	stdout string
	stderr string
	err    error
}

// runCLI executes the command tree against an in-memory project rooted at
// /proj. The environment is empty unless env provides values.
func runCLI(t *testing.T, files map[string]string, env map[string]string, args ...string) cliResult {
	t.Helper()

	fs := afero.NewMemMapFs()
	testutil.WriteTree(t, fs, "/proj", files)

	var stdout, stderr bytes.Buffer
	app := NewApp(Dependencies{
		Builtins: stdmods.Default(),
		Fs:       fs,
		Getenv:   func(k string) string { return env[k] },
		Stdout:   &stdout,
		Stderr:   &stderr,
	})
	root := NewRootCommand(app)
	root.SilenceErrors = true
	root.SilenceUsage = true
	root.SetArgs(append([]string{"-C", "/proj"}, args...))

	err := root.ExecuteContext(context.Background())
	return cliResult{stdout: stdout.String(), stderr: stderr.String(), err: err}
}

func exitCode(err error) int {
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	if err != nil {
		return 1
	}
	return 0
}

var project = map[string]string{
	"main.js": `import util from "./lib/util"
import chars from "strings"
export greeting = util.hello + " " + chars.digits
export default greeting
`,
	"lib/util.js": `export hello = "hi"
`,
	"lib/helper/index.js": `export n = 1 + 2
`,
	"package.json": `{"aliases": {"@util": "./lib/util.js"}}`,
	"cycle/a.js":   "import b from \"./b\"\nexport a = 1\n",
	"cycle/b.js":   "import a from \"./a\"\nexport b = 2\n",
	"bad.js":       "throw \"nope\"\n",
}

func TestRun(t *testing.T) {
	t.Parallel()

	res := runCLI(t, project, nil, "run", "./main")
	if res.err != nil {
		t.Fatalf("run error = %v\nstderr: %s", res.err, res.stderr)
	}

	var ns map[string]any
	if err := json.Unmarshal([]byte(res.stdout), &ns); err != nil {
		t.Fatalf("stdout is not JSON: %v\n%s", err, res.stdout)
	}
	if ns["greeting"] != "hi 0123456789" || ns["default"] != "hi 0123456789" {
		t.Errorf("namespace = %v", ns)
	}
}

func TestRun_Export(t *testing.T) {
	t.Parallel()

	res := runCLI(t, project, nil, "run", "helper", "--export", "n", "--search-path", "lib")
	if res.err != nil {
		t.Fatalf("run error = %v", res.err)
	}
	if strings.TrimSpace(res.stdout) != "3" {
		t.Errorf("stdout = %q, want 3", res.stdout)
	}

	res = runCLI(t, project, nil, "run", "./lib/util", "--export", "missing")
	var ae *issue.ActionableError
	if !errors.As(res.err, &ae) || exitCode(res.err) != ExitLoadFailed {
		t.Fatalf("missing export error = %v", res.err)
	}
	if !strings.Contains(ae.Format(false), "Available exports: hello") {
		t.Errorf("Format() = %q", ae.Format(false))
	}
}

func TestRun_Failures(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		args  []string
		guide issue.GuideID
		code  int
	}{
		{"not found", []string{"run", "./nope"}, issue.ModuleNotFoundID, ExitLoadFailed},
		{"thrown", []string{"run", "./bad"}, issue.EvaluationFailedID, ExitLoadFailed},
		{"cycle as error", []string{"run", "./cycle/a", "--on-cycle", "error"}, issue.CircularDependencyID, ExitLoadFailed},
		{"bad flag value", []string{"run", "./main", "--on-cycle", "panic"}, issue.NoGuide, ExitUsage},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			res := runCLI(t, project, nil, tt.args...)
			if got := exitCode(res.err); got != tt.code {
				t.Fatalf("exit code = %d, want %d (err %v)", got, tt.code, res.err)
			}
			var ae *issue.ActionableError
			if !errors.As(res.err, &ae) {
				t.Fatalf("error %T is not actionable", res.err)
			}
			if ae.Guide != tt.guide {
				t.Errorf("Guide = %d, want %d", ae.Guide, tt.guide)
			}
		})
	}
}

func TestRun_CycleWarns(t *testing.T) {
	t.Parallel()

	res := runCLI(t, project, nil, "run", "./cycle/a")
	if res.err != nil {
		t.Fatalf("run error = %v", res.err)
	}
	if !strings.Contains(res.stderr, "circular dependency") {
		t.Errorf("stderr does not report the cycle:\n%s", res.stderr)
	}

	res = runCLI(t, project, nil, "run", "./cycle/a", "--on-cycle", "ignore")
	if res.err != nil || strings.Contains(res.stderr, "circular") {
		t.Errorf("ignore policy: err %v, stderr %q", res.err, res.stderr)
	}
}

func TestRun_JSONLogs(t *testing.T) {
	t.Parallel()

	res := runCLI(t, project, nil, "run", "./nope", "--log-format", "json")
	line, _, _ := strings.Cut(strings.TrimSpace(res.stderr), "\n")
	var rec map[string]any
	if err := json.Unmarshal([]byte(line), &rec); err != nil {
		t.Fatalf("stderr is not JSON: %v\n%s", err, res.stderr)
	}
	if rec["msg"] != "module not found" || rec["specifier"] != "./nope" {
		t.Errorf("log record = %v", rec)
	}
}

func TestRun_Verbosity(t *testing.T) {
	t.Parallel()

	quiet := runCLI(t, project, nil, "run", "./main")
	if strings.Contains(quiet.stderr, "loading module") {
		t.Errorf("verbosity 0 should not trace:\n%s", quiet.stderr)
	}

	traced := runCLI(t, project, nil, "-v", "run", "./main")
	if !strings.Contains(traced.stderr, "loading module") {
		t.Errorf("-v should trace each module:\n%s", traced.stderr)
	}
	if strings.Contains(traced.stderr, "normalized") {
		t.Errorf("-v should not trace every step:\n%s", traced.stderr)
	}

	steps := runCLI(t, project, nil, "-vv", "run", "./main")
	if !strings.Contains(steps.stderr, "normalized") {
		t.Errorf("-vv should trace normalization:\n%s", steps.stderr)
	}
}

func TestResolve(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		args []string
		env  map[string]string
		want string
	}{
		{"relative", []string{"resolve", "./lib/util"}, nil, "/proj/lib/util.js"},
		{"directory index", []string{"resolve", "./lib/helper"}, nil, "/proj/lib/helper/index.js"},
		{"referrer directory", []string{"resolve", "./util", "--from", "/proj/lib/helper/index.js"}, nil, ""},
		{"search path", []string{"resolve", "util"}, nil, "/proj/lib/util.js"},
		{"env search path", []string{"resolve", "index"}, map[string]string{modload.SearchPathEnv: "lib/helper"}, "/proj/lib/helper/index.js"},
		{"alias", []string{"resolve", "@util"}, nil, "/proj/lib/util.js"},
		{"builtin", []string{"resolve", "os"}, nil, "builtin:os"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			res := runCLI(t, project, tt.env, tt.args...)
			if tt.want == "" {
				if !errors.Is(res.err, modload.ErrNotFound) {
					t.Fatalf("resolve error = %v, want ErrNotFound", res.err)
				}
				return
			}
			if res.err != nil {
				t.Fatalf("resolve error = %v", res.err)
			}
			if got := strings.TrimSpace(res.stdout); got != tt.want {
				t.Errorf("resolve = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestModules(t *testing.T) {
	t.Parallel()

	res := runCLI(t, project, nil, "modules", "./main", "./bad")
	if exitCode(res.err) != ExitLoadFailed {
		t.Fatalf("exit code = %d, want %d", exitCode(res.err), ExitLoadFailed)
	}

	lines := strings.Split(strings.TrimSpace(res.stdout), "\n")
	if len(lines) != 4 {
		t.Fatalf("got %d registry lines, want 4:\n%s", len(lines), res.stdout)
	}
	wantSuffix := []string{"/proj/bad.js", "/proj/lib/util.js", "/proj/main.js", "builtin:strings"}
	for i, line := range lines {
		if !strings.HasSuffix(line, wantSuffix[i]) {
			t.Errorf("line %d = %q, want suffix %q", i, line, wantSuffix[i])
		}
	}
	if !strings.HasPrefix(lines[0], "evaluation_failed") || !strings.Contains(lines[3], "bytecode") {
		t.Errorf("unexpected listing:\n%s", res.stdout)
	}
}

func TestBuiltins(t *testing.T) {
	t.Parallel()

	res := runCLI(t, nil, nil, "builtins")
	if res.err != nil {
		t.Fatalf("builtins error = %v", res.err)
	}
	for _, want := range []string{"builtin:env", "builtin:modload", "builtin:os", "builtin:strings"} {
		if !strings.Contains(res.stdout, want) {
			t.Errorf("builtins output missing %s:\n%s", want, res.stdout)
		}
	}
}

func TestConfigShow(t *testing.T) {
	t.Parallel()

	files := map[string]string{
		"config.cue": `on_cycle: "error"` + "\n" + `search_path: ["vendor"]`,
	}
	res := runCLI(t, files, nil, "config", "show", "--log-format", "logfmt")
	if res.err != nil {
		t.Fatalf("config show error = %v", res.err)
	}
	for _, want := range []string{
		"// source: /proj/config.cue",
		`on_cycle: "error"`,
		`search_path: ["vendor"]`,
		`format: "logfmt"`,
	} {
		if !strings.Contains(res.stdout, want) {
			t.Errorf("config show missing %q:\n%s", want, res.stdout)
		}
	}

	res = runCLI(t, map[string]string{"config.cue": `verbosity: 9`}, nil, "config", "show")
	if exitCode(res.err) != ExitUsage {
		t.Errorf("invalid config exit code = %d, want %d", exitCode(res.err), ExitUsage)
	}
}

func TestExplain(t *testing.T) {
	t.Parallel()

	res := runCLI(t, nil, nil, "explain")
	if res.err != nil {
		t.Fatalf("explain error = %v", res.err)
	}
	if !strings.Contains(res.stdout, "Circular dependency") || !strings.Contains(res.stdout, "not-found") {
		t.Errorf("topic list:\n%s", res.stdout)
	}

	res = runCLI(t, nil, nil, "explain", "bogus")
	if exitCode(res.err) != ExitUsage {
		t.Errorf("unknown topic exit code = %d", exitCode(res.err))
	}
}

func TestWriteError(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	writeError(&buf, &ExitError{Code: 3}, false)
	if buf.Len() != 0 {
		t.Errorf("bare ExitError printed %q", buf.String())
	}

	err := &ExitError{Code: 1, Err: issue.ForLoad(&modload.NotFoundError{Specifier: "x"}, "load module", "x")}
	writeError(&buf, err, true)
	out := buf.String()
	if !strings.Contains(out, `failed to load module: x: module "x" not found`) ||
		!strings.Contains(out, "modload explain not-found") {
		t.Errorf("writeError() = %q", out)
	}
}

func TestGraph(t *testing.T) {
	t.Parallel()

	res := runCLI(t, project, nil, "graph", "./main")
	if res.err != nil {
		t.Fatalf("graph error = %v", res.err)
	}
	got := strings.Fields(res.stdout)
	want := []string{"/proj/lib/util.js", "builtin:strings", "/proj/main.js"}
	if strings.Join(got, " ") != strings.Join(want, " ") {
		t.Errorf("graph order = %v, want %v", got, want)
	}

	res = runCLI(t, project, nil, "graph", "./cycle/a", "--on-cycle", "ignore")
	if res.err != nil {
		t.Fatalf("graph error = %v", res.err)
	}
	if !strings.Contains(res.stderr, "import cycle among: /proj/cycle/a.js, /proj/cycle/b.js") {
		t.Errorf("stderr = %q", res.stderr)
	}

	res = runCLI(t, project, nil, "graph", "./main", "--edges")
	if !strings.Contains(res.stdout, "/proj/main.js -> /proj/lib/util.js") {
		t.Errorf("edges output:\n%s", res.stdout)
	}
}
