package ds

import (
	"bytes"

	"github.com/cespare/xxhash"
)

// Vector is an append-only indexed sequence of values.
type Vector[V any] interface {
	Len() int
	At(i int) V
	Push(v V) int
}

// Keys is a Vector of fixed size values.
type Keys[K any] []K

func (k *Keys[K]) Len() int {
	return len(*k)
}

func (k *Keys[K]) At(i int) K {
	return (*k)[i]
}

func (k *Keys[K]) Push(v K) int {
	*k = append(*k, v)

	return len(*k) - 1
}

// Interned indexes the values of a Vector by hash. Buckets hold positions only,
// so a value is stored once, in the underlying vector.
//
// Push does not check for duplicates. Callers that need unique values call Find first.
type Interned[V any] struct {
	values  Vector[V]
	hash    func(V) uint64
	equal   func(a, b V) bool
	buckets map[uint64][]int
}

func NewInterned[V any](values Vector[V], hash func(V) uint64, equal func(a, b V) bool) *Interned[V] {
	in := &Interned[V]{
		values:  values,
		hash:    hash,
		equal:   equal,
		buckets: make(map[uint64][]int, values.Len()),
	}

	for i := 0; i < values.Len(); i++ {
		h := hash(values.At(i))
		in.buckets[h] = append(in.buckets[h], i)
	}

	return in
}

// NewInternedBytes interns byte strings stored in an Arena.
func NewInternedBytes() *Interned[[]byte] {
	return NewInterned[[]byte](&Arena{}, xxhash.Sum64, bytes.Equal)
}

// NewInternedArray interns 32 byte keys, such as hashes.
func NewInternedArray[K ~[32]byte]() *Interned[K] {
	return NewInterned[K](&Keys[K]{}, func(k K) uint64 {
		return xxhash.Sum64(k[:])
	}, func(a, b K) bool {
		return a == b
	})
}

// Find returns the index of the first stored value equal to v.
func (in *Interned[V]) Find(v V) (int, bool) {
	for _, i := range in.buckets[in.hash(v)] {
		if in.equal(in.values.At(i), v) {
			return i, true
		}
	}

	return 0, false
}

// Push stores v and returns its index.
func (in *Interned[V]) Push(v V) int {
	i := in.values.Push(v)
	h := in.hash(v)
	in.buckets[h] = append(in.buckets[h], i)

	return i
}

// Intern returns the index of v, storing it first if it is not present.
func (in *Interned[V]) Intern(v V) int {
	if i, ok := in.Find(v); ok {
		return i
	}

	return in.Push(v)
}

func (in *Interned[V]) At(i int) V {
	return in.values.At(i)
}

func (in *Interned[V]) Len() int {
	return in.values.Len()
}
