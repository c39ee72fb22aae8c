// SPDX-License-Identifier: MPL-2.0

package modscript

import (
	"context"
	"fmt"
	"log/slog"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"

	"github.com/invowk/modload/pkg/cueutil"
	"github.com/invowk/modload/pkg/modload"
)

// Engine compiles, decodes and evaluates modscript programs. The zero value
// is ready to use and safe for concurrent use.
type Engine struct {
	// Logger receives per-statement debug records. Nil disables them.
	Logger *slog.Logger
}

var _ modload.Engine = (*Engine)(nil)

// New returns an Engine logging to logger.
func New(logger *slog.Logger) *Engine {
	return &Engine{Logger: logger}
}

// Compile implements modload.Compiler.
func (e *Engine) Compile(text []byte, path modload.CanonicalPath, isModule bool) (modload.CompiledModule, error) {
	return Parse(text, path.String(), isModule)
}

// Decode implements modload.Decoder.
func (e *Engine) Decode(blob []byte, path modload.CanonicalPath) (modload.CompiledModule, error) {
	prog, err := Decode(blob)
	if err != nil {
		return nil, err
	}
	prog.Path = path.String()
	return prog, nil
}

// Evaluate implements modload.Evaluator. Statements run in order; each
// export is published to the live export table as soon as it is computed.
func (e *Engine) Evaluate(ctx context.Context, mod modload.CompiledModule, l modload.Linker) error {
	prog, ok := mod.(*Program)
	if !ok {
		return fmt.Errorf("%w: %T", ErrNotProgram, mod)
	}

	cctx := cuecontext.New()
	scope := make(map[string]any)
	for _, st := range prog.Stmts {
		if err := ctx.Err(); err != nil {
			return err
		}
		e.debug("statement", "path", prog.Path, "line", st.Line, "op", st.Op)

		switch st.Op {
		case OpImport:
			rec, err := l.Import(ctx, st.Spec)
			if err != nil {
				return fmt.Errorf("%s:%d: import %q: %w", prog.Path, st.Line, st.Spec, err)
			}
			if st.Name != "" {
				scope[st.Name] = namespace(rec)
			}

		case OpExport:
			v, err := eval(cctx, scope, st.Expr, prog.Path, st.Line)
			if err != nil {
				return err
			}
			l.Exports().Set(st.Name, v)
			if st.Name != DefaultExport {
				scope[st.Name] = v
			}

		case OpThrow:
			v, err := eval(cctx, scope, st.Expr, prog.Path, st.Line)
			if err != nil {
				return err
			}
			return &ThrownError{Path: prog.Path, Line: st.Line, Value: v}

		default:
			return &SyntaxError{Path: prog.Path, Line: st.Line, Msg: fmt.Sprintf("unknown opcode %q", st.Op)}
		}
	}
	return nil
}

func (e *Engine) debug(msg string, args ...any) {
	if e.Logger != nil {
		e.Logger.Debug(msg, args...)
	}
}

// namespace is what an import binding sees: the frozen namespace of an
// evaluated module, or the partially populated export table of a module
// reached through a cycle.
func namespace(rec *modload.Record) map[string]any {
	if rec.State == modload.StateEvaluated {
		return rec.Namespace()
	}
	return rec.Exports.Map()
}

func eval(cctx *cue.Context, scope map[string]any, expr, path string, line int) (any, error) {
	return cueutil.EvalExpr(cctx, scope, expr, cueutil.WithFilename(fmt.Sprintf("%s:%d", path, line)))
}
