package ds

import (
	"iter"
	"math/bits"
)

// BitsetWidth is the number of bits a Bitset can hold.
const BitsetWidth = 64

// Bitset is a fixed width bit vector used for permission sets.
type Bitset uint64

func NewBitset(bits ...int) (b Bitset) {
	for _, i := range bits {
		b = b.Set(i)
	}

	return b
}

// Set returns b with bit i set. Bits outside the width are ignored.
func (b Bitset) Set(i int) Bitset {
	if i < 0 || i >= BitsetWidth {
		return b
	}

	return b | 1<<uint(i)
}

func (b Bitset) Test(i int) bool {
	if i < 0 || i >= BitsetWidth {
		return false
	}

	return b&(1<<uint(i)) != 0
}

func (b Bitset) Or(other Bitset) Bitset {
	return b | other
}

func (b Bitset) Count() int {
	return bits.OnesCount64(uint64(b))
}

// Bits yields the set bits in ascending order.
func (b Bitset) Bits() iter.Seq[int] {
	return func(yield func(int) bool) {
		for rest := uint64(b); rest != 0; rest &= rest - 1 {
			if !yield(bits.TrailingZeros64(rest)) {
				return
			}
		}
	}
}
