package asm

import (
	"strconv"

	"github.com/nikandfor/hacked/hfmt"
)

type (
	Section int

	// Emitter accumulates assembly text in three sections.
	// Labels come from a single counter and are unique across sections.
	Emitter struct {
		sec [numSections][]line

		globl []string

		label int
	}

	line struct {
		Text  string
		Label bool
	}
)

const (
	Rodata Section = iota
	Data
	Text

	numSections
)

var headers = [numSections]string{
	Rodata: ".section .rodata",
	Data:   ".data",
	Text:   ".text",
}

func New() *Emitter {
	return &Emitter{}
}

// Emit appends an instruction or directive.
func (e *Emitter) Emit(s Section, text string) {
	e.sec[s] = append(e.sec[s], line{Text: text})
}

func (e *Emitter) Emitf(s Section, format string, args ...any) {
	e.Emit(s, string(hfmt.Appendf(nil, format, args...)))
}

// Label appends a label definition.
func (e *Emitter) Label(s Section, name string) {
	e.sec[s] = append(e.sec[s], line{Text: name, Label: true})
}

// NewLabel returns a fresh label name. It does not define it.
func (e *Emitter) NewLabel() string {
	e.label++

	return ".LC" + strconv.Itoa(e.label)
}

// Globl adds a .globl directive to the text section header.
func (e *Emitter) Globl(name string) {
	for _, g := range e.globl {
		if g == name {
			return
		}
	}

	e.globl = append(e.globl, name)
}

// Lines returns section s as it would be rendered, without the header.
func (e *Emitter) Lines(s Section) []string {
	r := make([]string, len(e.sec[s]))

	for i, l := range e.sec[s] {
		r[i] = string(l.append(nil))
	}

	return r
}

// Labels returns all label definitions in rendering order.
func (e *Emitter) Labels() (r []string) {
	for _, sec := range e.sec {
		for _, l := range sec {
			if l.Label {
				r = append(r, l.Text)
			}
		}
	}

	return r
}

// Render appends the whole document to b.
// It does not modify the Emitter and may be called any number of times.
func (e *Emitter) Render(b []byte) []byte {
	for s, sec := range e.sec {
		b = append(b, headers[s]...)
		b = append(b, '\n')

		if Section(s) == Text {
			for _, g := range e.globl {
				b = hfmt.Appendf(b, ".globl %s\n", g)
			}
		}

		for _, l := range sec {
			b = l.append(b)
			b = append(b, '\n')
		}
	}

	return b
}

func (l line) append(b []byte) []byte {
	if l.Label {
		return hfmt.Appendf(b, "%s:", l.Text)
	}

	return hfmt.Appendf(b, "\t%s", l.Text)
}

func (s Section) String() string {
	switch s {
	case Rodata:
		return "rodata"
	case Data:
		return "data"
	case Text:
		return "text"
	default:
		return "section" + strconv.Itoa(int(s))
	}
}
