package back

import (
	"context"

	"nikand.dev/go/heap"
	"tlog.app/go/tlog"
	"tlog.app/go/tlog/tlwire"

	"github.com/slowlang/minicc/compiler/asm"
	"github.com/slowlang/minicc/compiler/asm/x86"
	"github.com/slowlang/minicc/compiler/ast"
)

type (
	OperandKind int

	// Operand is an intermediate value.
	Operand struct {
		Node ast.Node
		Kind OperandKind

		Imm int64     // Kind == Imm, Sym == ""
		Sym string    // Kind == Imm, address of a label
		Var *Variable // Kind == Mem
		Reg x86.Reg   // Kind == InReg

		Temp bool

		Spill *Variable // value moved out of Reg

		seq    int
		pinned bool
	}
)

const (
	Imm OperandKind = iota
	Mem
	InReg
	Flags
)

// String returns the operand as it is written in an instruction.
func (o *Operand) String() string {
	switch {
	case o.Spill != nil:
		return o.Spill.String()
	case o.Kind == Imm && o.Sym != "":
		return "$" + o.Sym
	case o.Kind == Imm:
		return x86.Imm(o.Imm)
	case o.Kind == Mem:
		return o.Var.String()
	case o.Kind == InReg:
		return o.Reg.String()
	default:
		return "<flags>"
	}
}

// Const reports whether o is an integer known at compile time.
func (o *Operand) Const() bool {
	return o.Kind == Imm && o.Sym == ""
}

// inMemory reports whether o must be loaded before it can meet another memory operand.
func (o *Operand) inMemory() bool {
	return o.Kind == Mem || o.Spill != nil
}

func (o *Operand) TlogAppend(b []byte) []byte {
	var e tlwire.Encoder

	b = e.AppendMap(b, 3)
	b = e.AppendKeyInt(b, "kind", int(o.Kind))
	b = e.AppendKeyInt(b, "reg", int(o.Reg))
	b = e.AppendKeyInt(b, "seq", o.seq)

	return b
}

func (k OperandKind) String() string {
	switch k {
	case Imm:
		return "imm"
	case Mem:
		return "mem"
	case InReg:
		return "reg"
	case Flags:
		return "flags"
	default:
		return "kind?"
	}
}

func (u *unit) newTemp(x ast.Node) *Operand {
	u.seq++

	return &Operand{
		Node: x,
		Kind: InReg,
		Temp: true,
		seq:  u.seq,
	}
}

// alloc gives op a register, spilling an older temporary if needed.
func (u *unit) alloc(ctx context.Context, op *Operand) (x86.Reg, error) {
	r, ok := u.regs.Acquire(op)
	if ok {
		tlog.SpanFromContext(ctx).V("regs").Printw("acquire", "reg", r, "op", op, "busy", u.regs.Busy())

		return r, nil
	}

	if u.NoSpill {
		return x86.NoReg, u.exhausted(op)
	}

	err := u.spill(ctx, op)
	if err != nil {
		return x86.NoReg, err
	}

	r, ok = u.regs.Acquire(op)
	if !ok {
		return x86.NoReg, u.exhausted(op)
	}

	return r, nil
}

// spill moves the oldest unpinned temporary to a frame slot.
func (u *unit) spill(ctx context.Context, op *Operand) error {
	h := heap.Heap[*Operand]{Less: spillLess}

	u.regs.Busy().Range(func(r x86.Reg) bool {
		if o := u.regs.Owner(r); o != nil && o.Temp && !o.pinned {
			h.Push(o)
		}

		return true
	})

	if h.Len() == 0 {
		return u.exhausted(op)
	}

	return u.spillOp(ctx, h.Pop(), op)
}

// spillOp stores victim to a spill slot and frees its register.
func (u *unit) spillOp(ctx context.Context, victim, op *Operand) error {
	r := victim.Reg

	slot, ok := u.frame.Spill(u.scope.Level())
	if !ok {
		return u.overflow(op.Node)
	}

	u.asm.Emitf(asm.Text, "movl %s, %s", r.String(), slot.String())

	u.regs.Release(victim)
	victim.Spill = slot

	tlog.SpanFromContext(ctx).V("regs").Printw("spill", "reg", r, "slot", slot, "victim", victim)

	return nil
}

func spillLess(d []*Operand, i, j int) bool {
	return d[i].seq < d[j].seq
}

// load returns an operand held in a register.
// Temporaries are reused, anything else is copied to a new temporary.
func (u *unit) load(ctx context.Context, op *Operand) (*Operand, error) {
	switch {
	case op.Kind == Flags:
		return nil, unsupported(op.Node, "comparison used as a value")
	case op.Temp && op.Kind == InReg && op.Spill == nil && op.Reg != x86.NoReg:
		return op, nil
	case op.Temp && op.Spill != nil:
		slot := op.Spill

		r, err := u.alloc(ctx, op)
		if err != nil {
			return nil, err
		}

		op.Spill = nil

		u.asm.Emitf(asm.Text, "movl %s, %s", slot.String(), r.String())

		return op, nil
	}

	return u.temp(ctx, op.Node, op.String())
}

// temp loads src into a new temporary.
func (u *unit) temp(ctx context.Context, x ast.Node, src string) (*Operand, error) {
	t := u.newTemp(x)

	r, err := u.alloc(ctx, t)
	if err != nil {
		return nil, err
	}

	u.asm.Emitf(asm.Text, "movl %s, %s", src, r.String())

	return t, nil
}

// movable returns an operand that can be the source of a move to memory.
func (u *unit) movable(ctx context.Context, op *Operand) (*Operand, error) {
	if op.Kind == Flags {
		return nil, unsupported(op.Node, "comparison used as a value")
	}

	if op.inMemory() {
		return u.load(ctx, op)
	}

	return op, nil
}

// store writes op to v.
func (u *unit) store(ctx context.Context, v *Variable, op *Operand) error {
	src, err := u.movable(ctx, op)
	if err != nil {
		return err
	}

	u.asm.Emitf(asm.Text, "movl %s, %s", src.String(), v.String())

	return nil
}

// release drops a temporary.
func (u *unit) release(op *Operand) {
	if op == nil || !op.Temp {
		return
	}

	u.regs.Release(op)
	op.Spill = nil
}

// releaseTemps ends the life of all temporaries of a statement.
func (u *unit) releaseTemps() {
	u.regs.ReleaseTemps()

	if u.frame != nil {
		u.frame.ResetSpills()
	}
}

func (u *unit) exhausted(op *Operand) error {
	if op == nil || op.Node == nil {
		return RegisterExhaustedError{Kind: "temporary"}
	}

	return RegisterExhaustedError{Kind: op.Node.Kind(), Pos: op.Node.Position()}
}

func (u *unit) overflow(x ast.Node) error {
	e := FrameOverflowError{Size: u.frame.Size}

	if u.fn != nil {
		e.Func = u.fn.Name
	}

	if x != nil {
		e.Pos = x.Position()
	}

	return e
}
