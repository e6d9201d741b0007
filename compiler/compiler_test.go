package compiler

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/slowlang/minicc/compiler/ast"
	"github.com/slowlang/minicc/compiler/back"
)

func TestCompileFile(t *testing.T) {
	obj, err := CompileFile(context.Background(), "testdata/hello.json", back.DefaultConfig())
	require.NoError(t, err)

	src, err := CompileFile(context.Background(), "testdata/hello.c", back.DefaultConfig())
	require.NoError(t, err)

	assert.Equal(t, string(obj), string(src), "source and syntax tree describe the same program")

	t.Logf("result:\n%s", obj)

	s := string(obj)

	for _, l := range []string{
		".section .rodata\n.LC1:\n\t.string \"hello\"\n",
		".data\n\t.align 4\ncounter:\n\t.long 7\n",
		".text\n.globl main\ninc:\n",
		"\tpushl $.LC1\n\tcall puts\n\taddl $4, %esp\n",
		"\tmovl counter, %eax\n\tcmpl $7, %eax\n\tjne .LC2\n",
		"\tmovl counter, %eax\n\tpushl %eax\n\tcall inc\n",
	} {
		assert.Contains(t, s, l)
	}

	assert.Less(t, strings.Index(s, "inc:"), strings.Index(s, "main:"))
}

func TestCompileErrors(t *testing.T) {
	_, err := CompileFile(context.Background(), "testdata/missing.json", back.DefaultConfig())
	assert.Error(t, err)

	_, err = Compile(context.Background(), "bad.json", []byte(`{"kind": "Program", "decls": [{"kind": "While"}]}`), back.DefaultConfig())

	var uk ast.UnknownKindError
	require.True(t, errors.As(err, &uk), "err: %v", err)
	assert.Equal(t, "While", uk.Kind)

	_, err = Compile(context.Background(), "u.json", []byte(`{"kind": "Program", "decls": [
		{"kind": "FuncDef", "name": "f", "body": {"kind": "Block", "stmts": [
			{"kind": "Return", "expr": {"kind": "Ident", "name": "nope", "pos": {"file": "u.c", "line": 2, "col": 9}}}
		]}}
	]}`), back.DefaultConfig())

	var ue back.UnresolvedSymbolError
	require.True(t, errors.As(err, &ue), "err: %v", err)
	assert.Equal(t, "u.c:2:9", ue.Pos.String())

	_, err = Compile(context.Background(), "u.c", []byte("int f() {\n\treturn nope;\n}\n"), back.DefaultConfig())
	require.True(t, errors.As(err, &ue), "err: %v", err)
	assert.Equal(t, "u.c:2:9", ue.Pos.String())

	_, err = Compile(context.Background(), "s.c", []byte("int f() { return 1 - 2; }"), back.DefaultConfig())
	assert.Error(t, err)
}

func TestCompileFiles(t *testing.T) {
	dir := t.TempDir()

	a := filepath.Join(dir, "a.c")
	b := filepath.Join(dir, "b.c")

	require.NoError(t, os.WriteFile(a, []byte("int f() {\n\tputs(\"a\");\n\treturn 0;\n}\n"), 0o644))
	require.NoError(t, os.WriteFile(b, []byte("int main() {\n\tputs(\"b\");\n\treturn f();\n}\n"), 0o644))

	obj, err := CompileFiles(context.Background(), []string{a, b}, back.DefaultConfig())
	require.NoError(t, err)

	t.Logf("result:\n%s", obj)

	s := string(obj)

	for _, h := range []string{".section .rodata\n", ".data\n", ".text\n", ".globl main\n"} {
		assert.Equal(t, 1, strings.Count(s, h), "header %q", h)
	}

	seen := map[string]bool{}

	for _, l := range strings.Split(s, "\n") {
		if !strings.HasPrefix(l, ".LC") {
			continue
		}

		require.False(t, seen[l], "label %v defined twice", l)
		seen[l] = true
	}

	assert.Contains(t, s, ".LC1:\n\t.string \"a\"\n")
	assert.Contains(t, s, ".LC2:\n\t.string \"b\"\n")

	_, err = CompileFiles(context.Background(), []string{a, "testdata/hello.c"}, back.DefaultConfig())
	require.NoError(t, err)

	var re back.SymbolRedefinedError

	_, err = CompileFiles(context.Background(), []string{b, b}, back.DefaultConfig())
	require.True(t, errors.As(err, &re), "err: %v", err)
	assert.Equal(t, "main", re.Name)

	_, err = CompileFiles(context.Background(), []string{a, filepath.Join(dir, "missing.c")}, back.DefaultConfig())
	assert.Error(t, err)
}
