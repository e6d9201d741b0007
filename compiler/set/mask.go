package set

import (
	"math/bits"

	"tlog.app/go/tlog/tlwire"
)

type (
	Key interface {
		~int | ~int8 | ~int16 | ~int32 | ~int64
	}

	// Mask is a set of small non-negative keys, up to 64 of them.
	Mask[K Key] uint64
)

func MakeMask[K Key](k ...K) (m Mask[K]) {
	for _, k := range k {
		m.Set(k)
	}

	return m
}

func (m *Mask[K]) Set(k K) {
	*m |= 1 << uint(k)
}

func (m *Mask[K]) Clear(k K) {
	*m &^= 1 << uint(k)
}

func (m Mask[K]) IsSet(k K) bool {
	return m&(1<<uint(k)) != 0
}

func (m Mask[K]) Or(x Mask[K]) Mask[K] {
	return m | x
}

func (m Mask[K]) AndNot(x Mask[K]) Mask[K] {
	return m &^ x
}

func (m Mask[K]) Size() int {
	return bits.OnesCount64(uint64(m))
}

func (m Mask[K]) Empty() bool {
	return m == 0
}

// Range calls f for each key in ascending order until f returns false.
func (m Mask[K]) Range(f func(k K) bool) {
	for x := uint64(m); x != 0; x &= x - 1 {
		if !f(K(bits.TrailingZeros64(x))) {
			return
		}
	}
}

func (m Mask[K]) Keys() (r []K) {
	m.Range(func(k K) bool {
		r = append(r, k)
		return true
	})

	return r
}

func (m Mask[K]) TlogAppend(b []byte) []byte {
	var e tlwire.LowEncoder

	b = e.AppendTag(b, tlwire.Array, -1)

	m.Range(func(k K) bool {
		b = e.AppendInt(b, int(k))

		return true
	})

	b = e.AppendBreak(b)

	return b
}
