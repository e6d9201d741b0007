package main

import (
	"context"
	"os"

	"nikand.dev/go/cli"
	"tlog.app/go/errors"
	"tlog.app/go/tlog"

	"github.com/slowlang/minicc/compiler"
	"github.com/slowlang/minicc/compiler/back"
	"github.com/slowlang/minicc/compiler/format"
)

func main() {
	def := back.DefaultConfig()

	compileCmd := &cli.Command{
		Name:        "compile",
		Description: "compile json encoded syntax trees into x86 assembly",
		Action:      compileAct,
		Args:        cli.Args{},
		Flags: []*cli.Flag{
			cli.NewFlag("output,o", "", "output file, stdout if empty"),
			cli.NewFlag("entry", def.Entry, "symbol exported with .globl"),
			cli.NewFlag("frame", def.FrameSize, "local area size in bytes"),
			cli.NewFlag("shared-exit", false, "one epilogue per function"),
			cli.NewFlag("no-spill", false, "fail instead of spilling registers"),
		},
	}

	formatCmd := &cli.Command{
		Name:        "format",
		Description: "print syntax trees as source code",
		Action:      formatAct,
		Args:        cli.Args{},
	}

	app := &cli.Command{
		Name:        "minicc",
		Description: "minicc is a code generator for a small C subset",
		Commands: []*cli.Command{
			compileCmd,
			formatCmd,
		},
		Flags: []*cli.Flag{
			cli.NewFlag("verbose,v", "", "tlog verbosity topics"),
			cli.HelpFlag,
		},
	}

	cli.RunAndExit(app, os.Args, os.Environ())
}

func compileAct(c *cli.Command) (err error) {
	ctx := newContext(c)

	cfg := back.Config{
		Entry:      c.String("entry"),
		FrameSize:  c.Int("frame"),
		SharedExit: c.Bool("shared-exit"),
		NoSpill:    c.Bool("no-spill"),
	}

	out, err := compiler.CompileFiles(ctx, c.Args, cfg)
	if err != nil {
		return err
	}

	if name := c.String("output"); name != "" {
		err = os.WriteFile(name, out, 0o644)
		if err != nil {
			return errors.Wrap(err, "write output")
		}

		return nil
	}

	_, err = os.Stdout.Write(out)

	return err
}

func formatAct(c *cli.Command) (err error) {
	ctx := newContext(c)

	for _, a := range c.Args {
		text, err := os.ReadFile(a)
		if err != nil {
			return errors.Wrap(err, "read %v", a)
		}

		p, err := compiler.ParseFile(ctx, a, text)
		if err != nil {
			return errors.Wrap(err, "parse %v", a)
		}

		b, err := format.Format(ctx, nil, p)
		if err != nil {
			return errors.Wrap(err, "format %v", a)
		}

		_, err = os.Stdout.Write(b)
		if err != nil {
			return err
		}
	}

	return nil
}

func newContext(c *cli.Command) context.Context {
	if v := c.String("verbose"); v != "" {
		tlog.SetVerbosity(v)
	}

	return tlog.ContextWithSpan(context.Background(), tlog.Root())
}
