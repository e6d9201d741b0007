package set

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMask(t *testing.T) {
	var m Mask[int]

	assert.True(t, m.Empty())

	m.Set(3)
	m.Set(0)
	m.Set(63)

	assert.True(t, m.IsSet(0))
	assert.True(t, m.IsSet(3))
	assert.True(t, m.IsSet(63))
	assert.False(t, m.IsSet(1))
	assert.Equal(t, 3, m.Size())
	assert.Equal(t, []int{0, 3, 63}, m.Keys())

	m.Clear(3)
	assert.False(t, m.IsSet(3))
	assert.Equal(t, []int{0, 63}, m.Keys())
}

func TestMaskOps(t *testing.T) {
	a := MakeMask(1, 2, 3)
	b := MakeMask(2, 5)

	assert.Equal(t, []int{1, 2, 3, 5}, a.Or(b).Keys())
	assert.Equal(t, []int{1, 3}, a.AndNot(b).Keys())
}

func TestMaskRangeStop(t *testing.T) {
	m := MakeMask(1, 4, 9)

	var seen []int

	m.Range(func(k int) bool {
		seen = append(seen, k)
		return k < 4
	})

	assert.Equal(t, []int{1, 4}, seen)
}
