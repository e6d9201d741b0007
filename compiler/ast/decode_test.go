package ast

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const incJSON = `{
	"kind": "Program",
	"decls": [{
		"kind": "FuncDef", "name": "f", "type": "int", "pos": {"file": "a.c", "line": 1},
		"params": [{"kind": "Decl", "name": "a", "type": "int"}],
		"body": {"kind": "Block", "stmts": [
			{"kind": "Return", "expr": {
				"kind": "BinOp", "op": "+",
				"left": {"kind": "Ident", "name": "a"},
				"right": {"kind": "IntConst", "value": 1}
			}}
		]}
	}]
}`

func TestDecode(t *testing.T) {
	p, err := Decode([]byte(incJSON))
	require.NoError(t, err)
	require.Len(t, p.Decls, 1)

	f, ok := p.Decls[0].(*FuncDef)
	require.True(t, ok, "got %T", p.Decls[0])

	assert.Equal(t, "f", f.Name)
	assert.Equal(t, "a.c:1", f.Position().String())
	require.Len(t, f.Params, 1)
	assert.Equal(t, "a", f.Params[0].Name)
	assert.Nil(t, f.Params[0].Init)

	require.Len(t, f.Body.Stmts, 1)

	ret := f.Body.Stmts[0].(*Return)
	add := ret.Value.(*BinOp)

	assert.Equal(t, OpAdd, add.Op)
	assert.Equal(t, &Ident{Name: "a"}, add.Left)
	assert.Equal(t, &IntConst{Value: 1}, add.Right)
}

func TestDecodeStatements(t *testing.T) {
	x, err := DecodeNode([]byte(`{"kind": "If",
		"cond": {"kind": "BinOp", "op": "==", "left": {"kind": "Ident", "name": "a"}, "right": {"kind": "IntConst", "value": 0}},
		"then": {"kind": "Assign", "lhs": {"kind": "Ident", "name": "s"}, "rhs": {"kind": "StringConst", "value": "zero\n"}},
		"else": null
	}`))
	require.NoError(t, err)

	i := x.(*If)
	assert.Nil(t, i.Else)
	assert.Equal(t, OpEq, i.Cond.(*BinOp).Op)
	assert.Equal(t, &StringConst{Value: "zero\n"}, i.Then.(*Assign).RHS)

	x, err = DecodeNode([]byte(`{"kind": "Call", "name": "printf", "args": [{"kind": "StringConst", "value": "%d"}, {"kind": "Ident", "name": "x"}]}`))
	require.NoError(t, err)

	c := x.(*Call)
	assert.Equal(t, "printf", c.Name)
	assert.Len(t, c.Args, 2)
}

func TestDecodeErrors(t *testing.T) {
	_, err := Decode([]byte(`{"kind": "Program", "decls": [{"kind": "While", "pos": {"line": 3, "col": 5}}]}`))
	require.Error(t, err)

	var uk UnknownKindError
	require.True(t, errors.As(err, &uk), "err: %v", err)
	assert.Equal(t, "While", uk.Kind)
	assert.Equal(t, Pos{Line: 3, Col: 5}, uk.Pos)

	_, err = Decode([]byte(`{"kind": "Ident", "name": "x"}`))
	assert.Error(t, err)

	_, err = Decode([]byte(`{"kind": "FuncDef", "name": "f", "params": [{"kind": "Ident", "name": "x"}]}`))
	assert.Error(t, err)

	_, err = Decode([]byte(`{`))
	assert.Error(t, err)
}

func TestPos(t *testing.T) {
	assert.Equal(t, "<input>", Pos{}.String())
	assert.Equal(t, "x.c:2:7", Pos{File: "x.c", Line: 2, Col: 7}.String())
	assert.True(t, Pos{}.IsZero())
}
