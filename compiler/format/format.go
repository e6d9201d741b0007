package format

import (
	"context"

	"github.com/nikandfor/hacked/hfmt"
	"tlog.app/go/errors"

	"github.com/slowlang/minicc/compiler/ast"
)

// Format appends C-like source text for x to b.
// x is a *ast.Program, a statement or an expression.
func Format(ctx context.Context, b []byte, x ast.Node) ([]byte, error) {
	return format(ctx, b, x, 0)
}

func format(ctx context.Context, b []byte, x ast.Node, d int) ([]byte, error) {
	switch x := x.(type) {
	case *ast.Program:
		return formatProgram(ctx, b, x, d)
	case *ast.FuncDef:
		return formatFunc(ctx, b, x, d)
	case *ast.Block, *ast.Decl, *ast.If, *ast.Return:
		return formatStmt(ctx, b, x, d)
	default:
		return formatExpr(ctx, b, x, d)
	}
}

func formatProgram(ctx context.Context, b []byte, x *ast.Program, d int) (_ []byte, err error) {
	for i, n := range x.Decls {
		if i != 0 {
			b = append(b, '\n')
		}

		switch n := n.(type) {
		case *ast.FuncDef:
			b, err = formatFunc(ctx, b, n, d)
			if err != nil {
				return nil, errors.Wrap(err, "func %v", n.Name)
			}
		case *ast.Decl:
			b, err = formatStmt(ctx, b, n, d)
			if err != nil {
				return nil, errors.Wrap(err, "global %v", n.Name)
			}
		default:
			return nil, errors.New("unsupported top level node: %T", n)
		}
	}

	return b, nil
}

func formatFunc(ctx context.Context, b []byte, x *ast.FuncDef, d int) (_ []byte, err error) {
	b = app(b, d, "%v %v(", typ(x.Type), x.Name)

	for i, a := range x.Params {
		if i != 0 {
			b = append(b, ", "...)
		}

		b = app(b, 0, "%v %v", typ(a.Type), a.Name)
	}

	b = append(b, ") {\n"...)

	if x.Body != nil {
		b, err = formatStmts(ctx, b, x.Body.Stmts, d+1)
		if err != nil {
			return nil, errors.Wrap(err, "body")
		}
	}

	b = app(b, d, "}\n")

	return b, nil
}

func formatStmts(ctx context.Context, b []byte, l []ast.Node, d int) (_ []byte, err error) {
	for i, s := range l {
		b, err = formatStmt(ctx, b, s, d)
		if err != nil {
			return nil, errors.Wrap(err, "stmt %d", i)
		}
	}

	return b, nil
}

func formatStmt(ctx context.Context, b []byte, x ast.Node, d int) (_ []byte, err error) {
	switch s := x.(type) {
	case *ast.Block:
		b = app(b, d, "{\n")

		b, err = formatStmts(ctx, b, s.Stmts, d+1)
		if err != nil {
			return nil, err
		}

		b = app(b, d, "}\n")
	case *ast.Decl:
		b = app(b, d, "%v %v", typ(s.Type), s.Name)

		if s.Init != nil {
			b = append(b, " = "...)

			b, err = formatExpr(ctx, b, s.Init, d)
			if err != nil {
				return nil, errors.Wrap(err, "init")
			}
		}

		b = append(b, ";\n"...)
	case *ast.Return:
		b = app(b, d, "return")

		if s.Value != nil {
			b = append(b, ' ')

			b, err = formatExpr(ctx, b, s.Value, d)
			if err != nil {
				return nil, errors.Wrap(err, "expr")
			}
		}

		b = append(b, ";\n"...)
	case *ast.If:
		b = app(b, d, "if (")

		b, err = formatExpr(ctx, b, s.Cond, d)
		if err != nil {
			return nil, errors.Wrap(err, "cond")
		}

		b = append(b, ")"...)

		b, err = formatBranch(ctx, b, s.Then, d)
		if err != nil {
			return nil, errors.Wrap(err, "then")
		}

		if s.Else != nil {
			b = app(b, d, "else")

			b, err = formatBranch(ctx, b, s.Else, d)
			if err != nil {
				return nil, errors.Wrap(err, "else")
			}
		}
	case nil:
		return nil, errors.New("empty statement")
	case *ast.FuncDef, *ast.Program:
		return nil, errors.New("unsupported stmt: %T", s)
	default:
		b = app(b, d, "")

		b, err = formatExpr(ctx, b, s, d)
		if err != nil {
			return nil, err
		}

		b = append(b, ";\n"...)
	}

	return b, nil
}

// formatBranch writes a block on the same line and anything else on its own indented line.
func formatBranch(ctx context.Context, b []byte, x ast.Node, d int) (_ []byte, err error) {
	blk, ok := x.(*ast.Block)
	if !ok {
		b = append(b, '\n')

		return formatStmt(ctx, b, x, d+1)
	}

	b = append(b, " {\n"...)

	b, err = formatStmts(ctx, b, blk.Stmts, d+1)
	if err != nil {
		return nil, err
	}

	b = app(b, d, "}\n")

	return b, nil
}

func formatExpr(ctx context.Context, b []byte, x ast.Node, d int) (_ []byte, err error) {
	switch x := x.(type) {
	case *ast.Ident:
		b = append(b, x.Name...)
	case *ast.IntConst:
		b = hfmt.Appendf(b, "%d", x.Value)
	case *ast.StringConst:
		b = hfmt.Appendf(b, "%q", x.Value)
	case *ast.Assign:
		b, err = formatExpr(ctx, b, x.LHS, d)
		if err != nil {
			return nil, errors.Wrap(err, "lhs")
		}

		b = append(b, " = "...)

		b, err = formatExpr(ctx, b, x.RHS, d)
		if err != nil {
			return nil, errors.Wrap(err, "rhs")
		}
	case *ast.BinOp:
		b, err = formatOperand(ctx, b, x.Left, d)
		if err != nil {
			return nil, errors.Wrap(err, "left")
		}

		b = hfmt.Appendf(b, " %s ", x.Op)

		b, err = formatOperand(ctx, b, x.Right, d)
		if err != nil {
			return nil, errors.Wrap(err, "right")
		}
	case *ast.Call:
		b = append(b, x.Name...)
		b = append(b, '(')

		for i, a := range x.Args {
			if i != 0 {
				b = append(b, ", "...)
			}

			b, err = formatExpr(ctx, b, a, d)
			if err != nil {
				return nil, errors.Wrap(err, "arg %d", i)
			}
		}

		b = append(b, ')')
	default:
		return nil, errors.New("unsupported expr: %T", x)
	}

	return b, nil
}

// formatOperand parenthesizes nested binary and assignment expressions.
func formatOperand(ctx context.Context, b []byte, x ast.Node, d int) (_ []byte, err error) {
	switch x.(type) {
	case *ast.BinOp, *ast.Assign:
	default:
		return formatExpr(ctx, b, x, d)
	}

	b = append(b, '(')

	b, err = formatExpr(ctx, b, x, d)
	if err != nil {
		return nil, err
	}

	return append(b, ')'), nil
}

func typ(t string) string {
	if t == "" {
		return "int"
	}

	return t
}

func app(b []byte, d int, f string, args ...any) []byte {
	const tabs = "\t\t\t\t\t\t\t\t\t\t\t\t\t\t\t"
	b = append(b, tabs[:d]...)
	b = hfmt.Appendf(b, f, args...)
	return b
}
