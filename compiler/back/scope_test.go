package back

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScopeShadowing(t *testing.T) {
	outer := NewScope(nil)
	ox := &Variable{Offset: -4, Level: 1}
	outer.Extend("x", ox)

	inner := NewScope(outer)
	assert.Equal(t, 1, inner.Level())

	v, ok := inner.Lookup("x")
	require.True(t, ok)
	assert.Same(t, ox, v)

	ix := &Variable{Offset: -8, Level: 2}
	inner.Extend("x", ix)

	v, ok = inner.Lookup("x")
	require.True(t, ok)
	assert.Same(t, ix, v)

	v, ok = inner.Outer().Lookup("x")
	require.True(t, ok)
	assert.Same(t, ox, v)

	_, ok = inner.Lookup("y")
	assert.False(t, ok)
}

func TestScopeSetVsExtend(t *testing.T) {
	outer := NewScope(nil)
	outer.Extend("x", &Variable{Offset: -4})

	inner := NewScope(outer)

	nv := &Variable{Offset: -12}
	assert.True(t, inner.Set("x", nv))

	v, _ := outer.Lookup("x")
	assert.Same(t, nv, v, "set updates the defining scope")

	_, ok := inner.vars["x"]
	assert.False(t, ok, "set does not create a binding")

	assert.False(t, inner.Set("nope", nv))

	inner.Extend("x", &Variable{Offset: -16})
	inner.Extend("x", &Variable{Offset: -20})

	v, _ = inner.Lookup("x")
	assert.Equal(t, -20, v.Offset)

	v, _ = outer.Lookup("x")
	assert.Same(t, nv, v)
}

func TestVariableString(t *testing.T) {
	assert.Equal(t, "-4", (&Variable{Offset: -4}).String())
	assert.Equal(t, "-4(%ebp)", (&Variable{Offset: -4, Level: 1}).String())
	assert.Equal(t, "8(%ebp)", (&Variable{Offset: 8, Level: 2}).String())
	assert.Equal(t, "counter", (&Variable{Symbol: "counter"}).String())
}

func TestFrameLayout(t *testing.T) {
	f := NewFrame(64)

	a := f.NextParam(4)
	b := f.NextParam(4)

	assert.Equal(t, 8, a)
	assert.Equal(t, 12, b)

	x, ok := f.Next(4)
	require.True(t, ok)
	y, ok := f.Next(4)
	require.True(t, ok)

	assert.Equal(t, -4, x)
	assert.Equal(t, -8, y)
	assert.Equal(t, 8, f.Used())
}

func TestFrameOverflow(t *testing.T) {
	f := NewFrame(16)

	for i := 0; i < 4; i++ {
		_, ok := f.Next(4)
		require.True(t, ok, "slot %d", i)
	}

	_, ok := f.Next(4)
	assert.False(t, ok)
	assert.Equal(t, 16, f.Used())
}

func TestFrameSpills(t *testing.T) {
	f := NewFrame(64)

	f.Next(4)

	s1, ok := f.Spill(1)
	require.True(t, ok)
	s2, ok := f.Spill(1)
	require.True(t, ok)

	assert.Equal(t, "-8(%ebp)", s1.String())
	assert.Equal(t, "-12(%ebp)", s2.String())

	f.ResetSpills()

	r1, _ := f.Spill(1)
	assert.Same(t, s1, r1)

	l, _ := f.Next(4)
	assert.Equal(t, -16, l, "locals never reuse spill slots")
}
