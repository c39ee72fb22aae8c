// SPDX-License-Identifier: MPL-2.0

package modscript

import (
	"bufio"
	"bytes"
	"fmt"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"cuelang.org/go/cue/parser"
)

const (
	// OpImport evaluates another module and optionally binds its namespace.
	OpImport Op = "import"
	// OpExport binds an exported name.
	OpExport Op = "export"
	// OpThrow aborts evaluation with a ThrownError.
	OpThrow Op = "throw"

	// DefaultExport is the export name of `export default`.
	DefaultExport = "default"
)

var (
	identRe = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_]*$`)

	// reserved are CUE keywords that cannot name a binding.
	reserved = []string{"package", "import", "for", "in", "if", "let", "true", "false", "null"}
)

type (
	// Op is a statement opcode.
	Op string

	// Stmt is one compiled statement.
	Stmt struct {
		Op   Op     `msgpack:"op"`
		Line int    `msgpack:"line"`
		Name string `msgpack:"name,omitempty"`
		Spec string `msgpack:"spec,omitempty"`
		Expr string `msgpack:"expr,omitempty"`
	}

	// Program is a compiled module.
	Program struct {
		Path  string `msgpack:"path"`
		Stmts []Stmt `msgpack:"stmts"`
	}
)

// Imports returns the specifiers the program imports, in order.
func (p *Program) Imports() []string {
	var specs []string
	for _, s := range p.Stmts {
		if s.Op == OpImport {
			specs = append(specs, s.Spec)
		}
	}
	return specs
}

// Exports returns the names the program exports, in order.
func (p *Program) Exports() []string {
	var names []string
	for _, s := range p.Stmts {
		if s.Op == OpExport && !slices.Contains(names, s.Name) {
			names = append(names, s.Name)
		}
	}
	return names
}

// Parse compiles module text. When isModule is false, export statements
// are rejected.
func Parse(text []byte, path string, isModule bool) (*Program, error) {
	prog := &Program{Path: path}
	sc := bufio.NewScanner(bytes.NewReader(text))
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	line := 0
	for sc.Scan() {
		line++
		stmt, ok, err := parseLine(strings.TrimSpace(sc.Text()), path, line)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		if stmt.Op == OpExport && !isModule {
			return nil, &SyntaxError{Path: path, Line: line, Msg: "export outside a module"}
		}
		prog.Stmts = append(prog.Stmts, stmt)
	}
	if err := sc.Err(); err != nil {
		return nil, &SyntaxError{Path: path, Line: line + 1, Msg: err.Error()}
	}
	return prog, nil
}

func parseLine(src, path string, line int) (Stmt, bool, error) {
	src = strings.TrimSuffix(src, ";")
	if src == "" || strings.HasPrefix(src, "//") {
		return Stmt{}, false, nil
	}
	fail := func(format string, args ...any) (Stmt, bool, error) {
		return Stmt{}, false, &SyntaxError{Path: path, Line: line, Msg: fmt.Sprintf(format, args...)}
	}

	keyword, rest, _ := strings.Cut(src, " ")
	rest = strings.TrimSpace(rest)
	switch keyword {
	case "import":
		stmt := Stmt{Op: OpImport, Line: line}
		if name, from, ok := strings.Cut(rest, " from "); ok {
			stmt.Name = strings.TrimSpace(name)
			if err := checkIdent(stmt.Name); err != nil {
				return fail("import: %v", err)
			}
			rest = strings.TrimSpace(from)
		}
		spec, err := strconv.Unquote(rest)
		if err != nil || !strings.HasPrefix(rest, `"`) {
			return fail("import: specifier must be a double-quoted string, got %s", rest)
		}
		stmt.Spec = spec
		return stmt, true, nil

	case "export":
		stmt := Stmt{Op: OpExport, Line: line}
		if expr, ok := strings.CutPrefix(rest, DefaultExport+" "); ok {
			stmt.Name = DefaultExport
			stmt.Expr = strings.TrimSpace(expr)
		} else {
			name, expr, ok := strings.Cut(rest, "=")
			if !ok {
				return fail("export: expected 'export name = expr' or 'export default expr'")
			}
			stmt.Name = strings.TrimSpace(name)
			stmt.Expr = strings.TrimSpace(expr)
			if err := checkIdent(stmt.Name); err != nil {
				return fail("export: %v", err)
			}
		}
		if err := checkExpr(stmt.Expr); err != nil {
			return fail("export %s: %v", stmt.Name, err)
		}
		return stmt, true, nil

	case "throw":
		if err := checkExpr(rest); err != nil {
			return fail("throw: %v", err)
		}
		return Stmt{Op: OpThrow, Line: line, Expr: rest}, true, nil

	default:
		return fail("unknown statement %q", keyword)
	}
}

func checkIdent(name string) error {
	if !identRe.MatchString(name) {
		return fmt.Errorf("invalid identifier %q", name)
	}
	if slices.Contains(reserved, name) {
		return fmt.Errorf("reserved identifier %q", name)
	}
	return nil
}

func checkExpr(expr string) error {
	if expr == "" {
		return fmt.Errorf("missing expression")
	}
	if _, err := parser.ParseExpr("", expr); err != nil {
		return err
	}
	return nil
}
