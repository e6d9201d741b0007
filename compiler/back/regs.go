package back

import (
	"github.com/slowlang/minicc/compiler/asm/x86"
	"github.com/slowlang/minicc/compiler/set"
)

type (
	RegMask = set.Mask[x86.Reg]

	// RegisterFile tracks which allocatable register is held by which Operand.
	RegisterFile struct {
		owner []*Operand // by x86.Reg
		busy  RegMask
	}
)

func NewRegisterFile() *RegisterFile {
	return &RegisterFile{
		owner: make([]*Operand, x86.NumRegs()),
	}
}

// Acquire binds the first free register to op.
// ok is false if all of them are taken.
func (rf *RegisterFile) Acquire(op *Operand) (r x86.Reg, ok bool) {
	return rf.AcquireFrom(op, x86.Allocatable)
}

// AcquireFrom binds the first free register of regs to op.
func (rf *RegisterFile) AcquireFrom(op *Operand, regs []x86.Reg) (r x86.Reg, ok bool) {
	for _, r := range regs {
		if rf.busy.IsSet(r) {
			continue
		}

		rf.Bind(r, op)

		return r, true
	}

	return x86.NoReg, false
}

// Bind gives the free register r to op.
func (rf *RegisterFile) Bind(r x86.Reg, op *Operand) {
	if rf.busy.IsSet(r) {
		panic("register " + r.String() + " is busy")
	}

	rf.busy.Set(r)
	rf.owner[r] = op

	op.Kind = InReg
	op.Reg = r
}

// Release frees the register held by op, if any.
func (rf *RegisterFile) Release(op *Operand) {
	if op == nil || op.Reg == x86.NoReg {
		return
	}

	if rf.owner[op.Reg] == op {
		rf.owner[op.Reg] = nil
		rf.busy.Clear(op.Reg)
	}

	op.Reg = x86.NoReg
	op.pinned = false
}

// ReleaseTemps frees every register held by a temporary.
func (rf *RegisterFile) ReleaseTemps() {
	rf.busy.Range(func(r x86.Reg) bool {
		if op := rf.owner[r]; op != nil && op.Temp {
			rf.Release(op)
		}

		return true
	})
}

func (rf *RegisterFile) Owner(r x86.Reg) *Operand {
	return rf.owner[r]
}

func (rf *RegisterFile) Busy() RegMask {
	return rf.busy
}

// Temps returns registers held by temporaries.
func (rf *RegisterFile) Temps() (m RegMask) {
	rf.busy.Range(func(r x86.Reg) bool {
		if rf.owner[r].Temp {
			m.Set(r)
		}

		return true
	})

	return m
}

func (rf *RegisterFile) Free() int {
	return len(x86.Allocatable) - rf.busy.Size()
}
