package back

import (
	"strconv"

	"tlog.app/go/loc"
	"tlog.app/go/tlog/tlwire"

	"github.com/slowlang/minicc/compiler/asm/x86"
)

type (
	// Variable is a storage location. It never changes after creation.
	Variable struct {
		Offset int
		Level  int    // 0 is the top level
		Symbol string // data section symbol, for globals
	}

	// Scope maps names to variables. Inner scopes hide outer bindings.
	Scope struct {
		outer *Scope
		vars  map[string]*Variable

		level int

		from loc.PC
	}

	// Frame lays out one function activation.
	// Locals grow down from 0, parameters grow up from the return address slot.
	Frame struct {
		Size int

		local int
		param int

		spills    []*Variable
		spillUsed int
	}
)

func NewScope(outer *Scope) *Scope {
	s := &Scope{
		outer: outer,
		vars:  map[string]*Variable{},
		from:  loc.Caller(1),
	}

	if outer != nil {
		s.level = outer.level + 1
	}

	return s
}

func (s *Scope) Outer() *Scope { return s.outer }
func (s *Scope) Level() int    { return s.level }

// Extend creates a new binding in s, hiding any binding of the same name.
func (s *Scope) Extend(name string, v *Variable) *Scope {
	s.vars[name] = v

	return s
}

// Set rebinds name in the nearest scope that defines it.
// It returns false if no scope does.
func (s *Scope) Set(name string, v *Variable) bool {
	for q := s; q != nil; q = q.outer {
		if _, ok := q.vars[name]; ok {
			q.vars[name] = v
			return true
		}
	}

	return false
}

// Lookup finds the innermost binding of name.
func (s *Scope) Lookup(name string) (*Variable, bool) {
	for q := s; q != nil; q = q.outer {
		if v, ok := q.vars[name]; ok {
			return v, true
		}
	}

	return nil, false
}

func (v *Variable) String() string {
	switch {
	case v.Symbol != "":
		return v.Symbol
	case v.Level == 0:
		return strconv.Itoa(v.Offset)
	default:
		return x86.Addr(v.Offset)
	}
}

func (v *Variable) TlogAppend(b []byte) []byte {
	var e tlwire.Encoder

	b = e.AppendMap(b, 2)
	b = e.AppendKeyInt(b, "off", v.Offset)
	b = e.AppendKeyInt(b, "lvl", v.Level)

	return b
}

func NewFrame(size int) *Frame {
	return &Frame{
		Size:  size,
		param: x86.ParamBase,
	}
}

// Next reserves n bytes of local storage and returns its offset.
// ok is false if the local area is full.
func (f *Frame) Next(n int) (off int, ok bool) {
	if -(f.local - n) > f.Size {
		return f.local, false
	}

	f.local -= n

	return f.local, true
}

// NextParam returns the offset of the next n byte parameter.
func (f *Frame) NextParam(n int) int {
	f.param += n

	return f.param
}

// Spill returns a free spill slot at the given level.
func (f *Frame) Spill(level int) (*Variable, bool) {
	if f.spillUsed < len(f.spills) {
		v := f.spills[f.spillUsed]
		f.spillUsed++

		return v, true
	}

	off, ok := f.Next(x86.WordSize)
	if !ok {
		return nil, false
	}

	v := &Variable{Offset: off, Level: level}

	f.spills = append(f.spills, v)
	f.spillUsed++

	return v, true
}

// ResetSpills makes all spill slots reusable.
func (f *Frame) ResetSpills() {
	f.spillUsed = 0
}

// Used returns the number of local bytes reserved so far.
func (f *Frame) Used() int {
	return -f.local
}
