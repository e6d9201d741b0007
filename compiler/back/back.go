package back

import (
	"context"
	"fmt"
	"path"

	"tlog.app/go/errors"
	"tlog.app/go/loc"
	"tlog.app/go/tlog"

	"github.com/slowlang/minicc/compiler/asm"
	"github.com/slowlang/minicc/compiler/asm/x86"
	"github.com/slowlang/minicc/compiler/ast"
)

type (
	Config struct {
		// Entry is the symbol exported with .globl.
		Entry string

		// FrameSize is the local area reserved by every prologue.
		FrameSize int

		// SharedExit makes every return jump to one epilogue per function
		// instead of emitting the epilogue in place.
		SharedExit bool

		// NoSpill turns register exhaustion into an error.
		NoSpill bool
	}

	Compiler struct {
		Config
	}

	// unit is the state of one compilation.
	unit struct {
		*Compiler

		asm *asm.Emitter

		root  *Scope
		scope *Scope
		frame *Frame
		regs  *RegisterFile

		fn   *ast.FuncDef
		exit string

		syms map[string]ast.Pos

		seq int
	}
)

func DefaultConfig() Config {
	return Config{
		Entry:     "main",
		FrameSize: x86.FrameSize,
	}
}

func New(cfg Config) *Compiler {
	if cfg.Entry == "" {
		cfg.Entry = "main"
	}

	if cfg.FrameSize == 0 {
		cfg.FrameSize = x86.FrameSize
	}

	return &Compiler{Config: cfg}
}

// CompileProgram appends the assembly for p to b.
// Nothing is appended if an error occurs.
func (c *Compiler) CompileProgram(ctx context.Context, b []byte, p *ast.Program) (_ []byte, err error) {
	tr, ctx := tlog.SpawnFromContextAndWrap(ctx, "back: compile program", "decls", len(p.Decls), "entry", c.Entry)
	defer tr.Finish("err", &err)

	u := c.newUnit()

	err = u.program(ctx, p)
	if err != nil {
		return b, err
	}

	st := len(b)
	b = u.asm.Render(b)

	if tr.If("dump_asm") {
		tr.Printw("assembly", "text", b[st:])
	}

	return b, nil
}

func (c *Compiler) newUnit() *unit {
	u := &unit{
		Compiler: c,
		asm:      asm.New(),
		regs:     NewRegisterFile(),
		syms:     map[string]ast.Pos{},
	}

	u.root = NewScope(nil)
	u.scope = u.root

	u.asm.Globl(c.Entry)

	return u
}

func (u *unit) program(ctx context.Context, p *ast.Program) (err error) {
	for _, d := range p.Decls {
		switch d := d.(type) {
		case *ast.FuncDef:
			err = u.funcDef(ctx, d)
			if err != nil {
				return errors.Wrap(err, "func %v", d.Name)
			}
		case *ast.Decl:
			err = u.global(ctx, d)
			if err != nil {
				return errors.Wrap(err, "global %v", d.Name)
			}
		default:
			return unsupported(d, "at top level")
		}
	}

	return nil
}

func (u *unit) define(name string, pos ast.Pos) error {
	if prev, ok := u.syms[name]; ok {
		return SymbolRedefinedError{Name: name, Pos: pos, Prev: prev}
	}

	u.syms[name] = pos

	return nil
}

// global places a top level variable into the data section.
func (u *unit) global(ctx context.Context, d *ast.Decl) (err error) {
	err = u.define(d.Name, d.Pos)
	if err != nil {
		return err
	}

	val := &Operand{Node: d, Kind: Imm}

	if d.Init != nil {
		if !constExpr(d.Init) {
			return unsupported(d.Init, "non-constant global initializer")
		}

		val, err = u.expr(ctx, d.Init)
		if err != nil {
			return errors.Wrap(err, "init")
		}
	}

	u.asm.Emit(asm.Data, ".align 4")
	u.asm.Label(asm.Data, d.Name)

	if val.Sym != "" {
		u.asm.Emitf(asm.Data, ".long %s", val.Sym)
	} else {
		u.asm.Emitf(asm.Data, ".long %d", val.Imm)
	}

	u.root.Extend(d.Name, &Variable{Level: 0, Symbol: d.Name})

	return nil
}

func constExpr(x ast.Node) bool {
	if _, ok := x.(*ast.StringConst); ok {
		return true
	}

	return constInt(x)
}

func constInt(x ast.Node) bool {
	switch x := x.(type) {
	case *ast.IntConst:
		return true
	case *ast.BinOp:
		return x.Op == ast.OpAdd && constInt(x.Left) && constInt(x.Right)
	default:
		return false
	}
}

func (u *unit) funcDef(ctx context.Context, f *ast.FuncDef) (err error) {
	tr, ctx := tlog.SpawnFromContextAndWrap(ctx, "compile function", "name", f.Name, "params", len(f.Params))
	defer tr.Finish("err", &err)

	err = u.define(f.Name, f.Pos)
	if err != nil {
		return err
	}

	u.fn = f
	u.frame = NewFrame(u.FrameSize)
	u.scope = NewScope(u.root)
	u.exit = ""

	defer func() {
		u.printScope(ctx, u.scope)

		u.scope = u.root
		u.frame = nil
		u.fn = nil
	}()

	u.asm.Label(asm.Text, f.Name)
	u.emitAll(x86.Prologue(u.FrameSize))

	if u.SharedExit {
		u.exit = u.asm.NewLabel()
	}

	for _, p := range f.Params {
		_, err = u.declare(ctx, p, true)
		if err != nil {
			return errors.Wrap(err, "param %v", p.Name)
		}
	}

	if f.Body != nil {
		err = u.stmts(ctx, f.Body.Stmts)
		if err != nil {
			return errors.Wrap(err, "body")
		}
	}

	if u.exit != "" {
		u.asm.Label(asm.Text, u.exit)
	}

	u.emitAll(x86.Epilogue(u.FrameSize))

	tr.Printw("function done", "locals", u.frame.Used(), "spills", len(u.frame.spills))

	return nil
}

// declare binds d in the current scope to the next frame slot.
func (u *unit) declare(ctx context.Context, d *ast.Decl, param bool) (v *Variable, err error) {
	if param {
		if d.Init != nil {
			return nil, unsupported(d, "parameter with initializer")
		}

		v = &Variable{Offset: u.frame.NextParam(x86.WordSize), Level: u.scope.Level()}
		u.scope.Extend(d.Name, v)

		return v, nil
	}

	// The initializer does not see the new name.
	var init *Operand

	if d.Init != nil {
		init, err = u.expr(ctx, d.Init)
		if err != nil {
			return nil, errors.Wrap(err, "init")
		}
	}

	off, ok := u.frame.Next(x86.WordSize)
	if !ok {
		return nil, u.overflow(d)
	}

	v = &Variable{Offset: off, Level: u.scope.Level()}
	u.scope.Extend(d.Name, v)

	if init != nil {
		err = u.store(ctx, v, init)
		if err != nil {
			return nil, err
		}
	}

	return v, nil
}

func (u *unit) resolve(x *ast.Ident) (*Variable, error) {
	v, ok := u.scope.Lookup(x.Name)
	if !ok {
		return nil, UnresolvedSymbolError{Name: x.Name, Pos: x.Pos}
	}

	return v, nil
}

func (u *unit) stmts(ctx context.Context, l []ast.Node) error {
	for _, x := range l {
		err := u.stmt(ctx, x)
		if err != nil {
			return err
		}
	}

	return nil
}

// stmt generates one statement. No temporary outlives it.
func (u *unit) stmt(ctx context.Context, x ast.Node) (err error) {
	defer u.releaseTemps()

	switch x := x.(type) {
	case *ast.Block:
		prev := u.scope
		u.scope = NewScope(prev)

		err = u.stmts(ctx, x.Stmts)

		u.printScope(ctx, u.scope)
		u.scope = prev

		return err
	case *ast.Decl:
		_, err = u.declare(ctx, x, false)
		if err != nil {
			return errors.Wrap(err, "decl %v at %v", x.Name, x.Pos)
		}
	case *ast.Assign:
		_, err = u.assign(ctx, x)
	case *ast.If:
		err = u.ifStmt(ctx, x)
	case *ast.Return:
		err = u.ret(ctx, x)
	case *ast.Call, *ast.Ident, *ast.IntConst, *ast.StringConst, *ast.BinOp:
		var op *Operand

		op, err = u.expr(ctx, x)
		if err == nil && op.Kind == Flags {
			err = unsupported(x, "comparison used as a statement")
		}
	case nil:
		return unsupported(nil, "empty statement")
	default:
		return unsupported(x, "statement")
	}

	return err
}

func (u *unit) expr(ctx context.Context, x ast.Node) (*Operand, error) {
	switch x := x.(type) {
	case *ast.Ident:
		v, err := u.resolve(x)
		if err != nil {
			return nil, err
		}

		return &Operand{Node: x, Kind: Mem, Var: v}, nil
	case *ast.IntConst:
		return &Operand{Node: x, Kind: Imm, Imm: x.Value}, nil
	case *ast.StringConst:
		l := u.asm.NewLabel()

		u.asm.Label(asm.Rodata, l)
		u.asm.Emitf(asm.Rodata, ".string %s", cquote(x.Value))

		return &Operand{Node: x, Kind: Imm, Sym: l}, nil
	case *ast.Assign:
		return u.assign(ctx, x)
	case *ast.BinOp:
		return u.binOp(ctx, x)
	case *ast.Call:
		return u.call(ctx, x)
	case nil:
		return nil, unsupported(nil, "missing expression")
	default:
		return nil, unsupported(x, "expression")
	}
}

func (u *unit) assign(ctx context.Context, x *ast.Assign) (*Operand, error) {
	id, ok := x.LHS.(*ast.Ident)
	if !ok {
		return nil, unsupported(x.LHS, "assignment target")
	}

	r, err := u.expr(ctx, x.RHS)
	if err != nil {
		return nil, errors.Wrap(err, "rhs")
	}

	v, err := u.resolve(id)
	if err != nil {
		return nil, err
	}

	err = u.store(ctx, v, r)
	if err != nil {
		return nil, errors.Wrap(err, "store %v", id.Name)
	}

	u.release(r)

	return &Operand{Node: x, Kind: Mem, Var: v}, nil
}

func (u *unit) binOp(ctx context.Context, x *ast.BinOp) (_ *Operand, err error) {
	switch x.Op {
	case ast.OpAdd, ast.OpEq:
	default:
		return nil, unsupported(x, "operator "+string(x.Op))
	}

	l, err := u.expr(ctx, x.Left)
	if err != nil {
		return nil, errors.Wrap(err, "%v left", x.Op)
	}

	r, err := u.expr(ctx, x.Right)
	if err != nil {
		return nil, errors.Wrap(err, "%v right", x.Op)
	}

	if l.Kind == Flags || r.Kind == Flags {
		return nil, unsupported(x, "comparison operand")
	}

	if x.Op == ast.OpAdd && l.Const() && r.Const() {
		// int is 32 bits wide on the target.
		return &Operand{Node: x, Kind: Imm, Imm: int64(int32(l.Imm + r.Imm))}, nil
	}

	mnemonic := "addl"
	if x.Op == ast.OpEq {
		mnemonic = "cmpl"
	}

	// Left must be a register: it is the destination.
	ll, err := u.load(ctx, l)
	if err != nil {
		return nil, err
	}

	ll.pinned = true

	rr := r
	if r.inMemory() {
		rr, err = u.load(ctx, r)
		if err != nil {
			return nil, err
		}
	}

	rr.pinned = rr.Temp

	u.asm.Emitf(asm.Text, "%s %s, %s", mnemonic, rr.String(), ll.String())

	if x.Op == ast.OpEq {
		u.release(ll)
		u.release(rr)

		return &Operand{Node: x, Kind: Flags}, nil
	}

	res, err := u.temp(ctx, x, ll.String())
	if err != nil {
		return nil, err
	}

	u.release(ll)
	u.release(rr)

	return res, nil
}

func (u *unit) ifStmt(ctx context.Context, x *ast.If) (err error) {
	jump := "jne"

	cond, err := u.expr(ctx, x.Cond)
	if err != nil {
		return errors.Wrap(err, "if cond")
	}

	if cond.Kind != Flags {
		c, err := u.load(ctx, cond)
		if err != nil {
			return errors.Wrap(err, "if cond")
		}

		u.asm.Emitf(asm.Text, "cmpl $0, %s", c.String())
		u.release(c)

		jump = "je"
	}

	els := u.asm.NewLabel()
	end := u.asm.NewLabel()

	u.asm.Emitf(asm.Text, "%s %s", jump, els)

	err = u.branch(ctx, x.Then)
	if err != nil {
		return errors.Wrap(err, "then")
	}

	u.asm.Emitf(asm.Text, "jmp %s", end)
	u.asm.Label(asm.Text, els)

	if x.Else != nil {
		err = u.branch(ctx, x.Else)
		if err != nil {
			return errors.Wrap(err, "else")
		}
	}

	u.asm.Label(asm.Text, end)

	return nil
}

// branch generates an if branch. Only blocks open a new scope.
func (u *unit) branch(ctx context.Context, x ast.Node) error {
	if x == nil {
		return nil
	}

	return u.stmt(ctx, x)
}

func (u *unit) ret(ctx context.Context, x *ast.Return) error {
	if x.Value != nil {
		op, err := u.expr(ctx, x.Value)
		if err != nil {
			return errors.Wrap(err, "return value")
		}

		if op.Kind == Flags {
			return unsupported(x.Value, "comparison used as a value")
		}

		if op.Kind != InReg || op.Spill != nil || op.Reg != x86.Return {
			u.asm.Emitf(asm.Text, "movl %s, %s", op.String(), x86.Return.String())
		}
	}

	if u.exit != "" {
		u.asm.Emitf(asm.Text, "jmp %s", u.exit)

		return nil
	}

	u.emitAll(x86.Epilogue(u.FrameSize))

	return nil
}

func (u *unit) call(ctx context.Context, x *ast.Call) (_ *Operand, err error) {
	for i := len(x.Args) - 1; i >= 0; i-- {
		op, err := u.expr(ctx, x.Args[i])
		if err != nil {
			return nil, errors.Wrap(err, "%v arg %d", x.Name, i)
		}

		src, err := u.movable(ctx, op)
		if err != nil {
			return nil, errors.Wrap(err, "%v arg %d", x.Name, i)
		}

		u.asm.Emitf(asm.Text, "pushl %s", src.String())

		u.release(src)
		u.release(op)
	}

	// Live values must not stay where the callee is free to clobber them.
	for _, r := range x86.CallerSaved {
		err = u.evict(ctx, r)
		if err != nil {
			return nil, err
		}
	}

	u.asm.Emitf(asm.Text, "call %s", x.Name)

	if n := len(x.Args); n != 0 {
		u.asm.Emitf(asm.Text, "addl %s, %s", x86.Imm(int64(n*x86.WordSize)), x86.ESP.String())
	}

	res := u.newTemp(x)
	u.regs.Bind(x86.Return, res)

	return res, nil
}

// evict frees register r, moving its value to a register preserved across calls
// or to a spill slot if none is free.
func (u *unit) evict(ctx context.Context, r x86.Reg) error {
	op := u.regs.Owner(r)
	if op == nil {
		return nil
	}

	var hold Operand

	nr, ok := u.regs.AcquireFrom(&hold, x86.Preserved)
	if !ok {
		if u.NoSpill {
			return u.exhausted(op)
		}

		return u.spillOp(ctx, op, op)
	}

	u.regs.Release(&hold)
	u.regs.Release(op)
	u.regs.Bind(nr, op)

	u.asm.Emitf(asm.Text, "movl %s, %s", r.String(), nr.String())

	tlog.SpanFromContext(ctx).V("regs").Printw("evict", "from", r, "to", nr)

	return nil
}

func (u *unit) emitAll(l []string) {
	for _, s := range l {
		u.asm.Emit(asm.Text, s)
	}
}

func (u *unit) printScope(ctx context.Context, s *Scope) {
	tr := tlog.SpanFromContext(ctx)
	if !tr.If("scope") {
		return
	}

	tr.Printw("scope", "level", s.Level(), "vars", s.vars, "from", fmtFrom(s.from))
}

func fmtFrom(pc loc.PC) string {
	if pc == 0 {
		return ""
	}

	name, file, line := pc.NameFileLine()
	name = path.Ext(name)

	return fmt.Sprintf("%s %s:%d", name, path.Base(file), line)
}
