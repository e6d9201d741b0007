// Package x86 describes the 32-bit x86 target in AT&T syntax.
package x86

import "strconv"

type (
	Reg int
)

const (
	NoReg Reg = iota
	EAX
	ECX
	EDX
	EBX
	ESI
	EDI
	EBP
	ESP

	numRegs
)

const (
	// WordSize is the size of int, pointers and stack slots.
	WordSize = 4

	// Return holds function results.
	Return = EAX

	// FrameSize is the default local area reserved by the prologue.
	FrameSize = 64

	// ParamBase is the offset of the return address relative to the frame pointer.
	// The first parameter sits one word above it.
	ParamBase = 4
)

// Allocatable lists registers in the order they are handed out.
var Allocatable = []Reg{EAX, ECX, EDX, EBX, ESI, EDI}

// CallerSaved may be clobbered by any callee under the cdecl convention.
var CallerSaved = []Reg{EAX, ECX, EDX}

// Preserved survive a call to any cdecl function.
var Preserved = []Reg{EBX, ESI, EDI}

// CalleeSaved are pushed by the prologue in this order and popped in reverse.
var CalleeSaved = []Reg{ECX, EDX, EBX, ESI, EDI}

var names = [numRegs]string{
	NoReg: "%noreg",
	EAX:   "%eax",
	ECX:   "%ecx",
	EDX:   "%edx",
	EBX:   "%ebx",
	ESI:   "%esi",
	EDI:   "%edi",
	EBP:   "%ebp",
	ESP:   "%esp",
}

func (r Reg) String() string {
	if r < 0 || r >= numRegs {
		return "%r" + strconv.Itoa(int(r))
	}

	return names[r]
}

func NumRegs() int { return int(numRegs) }

// Imm formats an immediate operand.
func Imm(x int64) string {
	return "$" + strconv.FormatInt(x, 10)
}

// Addr formats a frame-relative memory operand.
func Addr(off int) string {
	return strconv.Itoa(off) + "(" + EBP.String() + ")"
}

// Prologue returns the function entry sequence for a local area of size bytes.
func Prologue(size int) []string {
	p := []string{
		"pushl " + EBP.String(),
		"movl " + ESP.String() + ", " + EBP.String(),
		"subl " + Imm(int64(size)) + ", " + ESP.String(),
	}

	for _, r := range CalleeSaved {
		p = append(p, "pushl "+r.String())
	}

	return p
}

// Epilogue undoes Prologue and returns to the caller.
func Epilogue(size int) []string {
	var p []string

	for i := len(CalleeSaved) - 1; i >= 0; i-- {
		p = append(p, "popl "+CalleeSaved[i].String())
	}

	p = append(p,
		"addl "+Imm(int64(size))+", "+ESP.String(),
		"leave",
		"ret",
	)

	return p
}
