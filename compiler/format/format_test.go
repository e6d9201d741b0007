package format

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/slowlang/minicc/compiler/ast"
)

func TestFormatProgram(t *testing.T) {
	p := &ast.Program{Decls: []ast.Node{
		&ast.Decl{Name: "g", Type: "int", Init: &ast.IntConst{Value: 3}},
		&ast.FuncDef{
			Name: "f", Type: "int",
			Params: []*ast.Decl{{Name: "a", Type: "int"}, {Name: "b"}},
			Body: &ast.Block{Stmts: []ast.Node{
				&ast.Decl{Name: "x", Type: "int", Init: &ast.BinOp{
					Op:    ast.OpAdd,
					Left:  &ast.Ident{Name: "a"},
					Right: &ast.BinOp{Op: ast.OpAdd, Left: &ast.Ident{Name: "b"}, Right: &ast.IntConst{Value: 1}},
				}},
				&ast.If{
					Cond: &ast.BinOp{Op: ast.OpEq, Left: &ast.Ident{Name: "x"}, Right: &ast.IntConst{Value: 0}},
					Then: &ast.Block{Stmts: []ast.Node{
						&ast.Call{Name: "puts", Args: []ast.Node{&ast.StringConst{Value: "zero\n"}}},
					}},
					Else: &ast.Assign{LHS: &ast.Ident{Name: "x"}, RHS: &ast.IntConst{Value: 2}},
				},
				&ast.Block{Stmts: []ast.Node{
					&ast.Return{Value: &ast.Ident{Name: "x"}},
				}},
				&ast.Return{},
			}},
		},
	}}

	b, err := Format(context.Background(), nil, p)
	require.NoError(t, err)

	assert.Equal(t, `int g = 3;

int f(int a, int b) {
	int x = a + (b + 1);
	if (x == 0) {
		puts("zero\n");
	}
	else
		x = 2;
	{
		return x;
	}
	return;
}
`, string(b))
}

func TestFormatExpr(t *testing.T) {
	b, err := Format(context.Background(), []byte("> "), &ast.Call{Name: "f", Args: []ast.Node{
		&ast.IntConst{Value: -5},
		&ast.Assign{LHS: &ast.Ident{Name: "y"}, RHS: &ast.Ident{Name: "z"}},
	}})
	require.NoError(t, err)

	assert.Equal(t, "> f(-5, y = z)", string(b))
}

func TestFormatUnsupported(t *testing.T) {
	_, err := Format(context.Background(), nil, &ast.Program{Decls: []ast.Node{
		&ast.FuncDef{Name: "f", Body: &ast.Block{Stmts: []ast.Node{nil}}},
	}})
	assert.Error(t, err)

	_, err = Format(context.Background(), nil, &ast.Program{Decls: []ast.Node{
		&ast.Return{},
	}})
	assert.Error(t, err)
}
