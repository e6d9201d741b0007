package compiler

import (
	"context"
	"os"
	"path/filepath"

	"tlog.app/go/errors"
	"tlog.app/go/tlog"

	"github.com/slowlang/minicc/compiler/ast"
	"github.com/slowlang/minicc/compiler/back"
	"github.com/slowlang/minicc/compiler/parse"
)

func CompileFile(ctx context.Context, name string, cfg back.Config) (obj []byte, err error) {
	text, err := os.ReadFile(name)
	if err != nil {
		return nil, errors.Wrap(err, "read file")
	}

	tlog.SpanFromContext(ctx).Printw("read file", "size", len(text), "name", name)

	return Compile(ctx, name, text, cfg)
}

// CompileFiles merges the declarations of all the files into one program
// so labels and section headers are emitted once for the whole output.
func CompileFiles(ctx context.Context, names []string, cfg back.Config) (obj []byte, err error) {
	prog := &ast.Program{}

	for _, name := range names {
		text, err := os.ReadFile(name)
		if err != nil {
			return nil, errors.Wrap(err, "read file %v", name)
		}

		tlog.SpanFromContext(ctx).Printw("read file", "size", len(text), "name", name)

		p, err := ParseFile(ctx, name, text)
		if err != nil {
			return nil, errors.Wrap(err, "%v", name)
		}

		prog.Decls = append(prog.Decls, p.Decls...)
	}

	obj, err = back.New(cfg).CompileProgram(ctx, nil, prog)
	if err != nil {
		return nil, errors.Wrap(err, "compile")
	}

	return obj, nil
}

// Compile translates text into assembly.
// Files named *.json hold an encoded syntax tree, anything else is C source.
func Compile(ctx context.Context, name string, text []byte, cfg back.Config) (obj []byte, err error) {
	p, err := ParseFile(ctx, name, text)
	if err != nil {
		return nil, err
	}

	obj, err = back.New(cfg).CompileProgram(ctx, nil, p)
	if err != nil {
		return nil, errors.Wrap(err, "compile")
	}

	return obj, nil
}

func ParseFile(ctx context.Context, name string, text []byte) (p *ast.Program, err error) {
	if filepath.Ext(name) == ".json" {
		p, err = ast.Decode(text)
		if err != nil {
			return nil, errors.Wrap(err, "decode ast")
		}
	} else {
		p, err = parse.Parse(ctx, name, text)
		if err != nil {
			return nil, errors.Wrap(err, "parse text")
		}
	}

	tlog.SpanFromContext(ctx).V("ast").Printw("syntax tree", "decls", len(p.Decls), "name", name)

	return p, nil
}
