package asm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmitterRender(t *testing.T) {
	e := New()

	l := e.NewLabel()
	e.Label(Rodata, l)
	e.Emit(Rodata, `.string "hi"`)

	e.Globl("main")
	e.Globl("main")

	e.Label(Text, "main")
	e.Emitf(Text, "movl $%d, %%eax", 42)
	e.Emit(Text, "ret")

	exp := `.section .rodata
.LC1:
	.string "hi"
.data
.text
.globl main
main:
	movl $42, %eax
	ret
`

	assert.Equal(t, exp, string(e.Render(nil)))
	assert.Equal(t, []string{"main:", "\tmovl $42, %eax", "\tret"}, e.Lines(Text))
}

func TestEmitterRenderIdempotent(t *testing.T) {
	e := New()

	e.Label(Text, "f")
	e.Emit(Text, "leave")
	e.Label(Data, e.NewLabel())

	first := e.Render(nil)
	second := e.Render(nil)

	assert.Equal(t, first, second)

	prefixed := e.Render([]byte("# x\n"))
	assert.Equal(t, "# x\n"+string(first), string(prefixed))
}

func TestEmitterLabelsUnique(t *testing.T) {
	e := New()

	seen := map[string]bool{}

	for i := 0; i < 100; i++ {
		l := e.NewLabel()
		require.False(t, seen[l], "label %v reused", l)
		seen[l] = true

		e.Label(Section(i%int(numSections)), l)
	}

	assert.Len(t, e.Labels(), 100)
	assert.Equal(t, ".LC1", e.Labels()[0])
}
