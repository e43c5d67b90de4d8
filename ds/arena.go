package ds

import (
	"errors"
	"fmt"
	"sort"
)

var ErrTruncate = errors.New("truncate beyond size")

// Offsets is a table of cumulative record lengths. Record i spans
// [Offset(i), Offset(i+1)).
type Offsets struct {
	offset []int
}

func (o *Offsets) init() {
	if o.offset == nil {
		o.offset = []int{0}
	}
}

// Len returns the number of records.
func (o *Offsets) Len() int {
	if len(o.offset) == 0 {
		return 0
	}

	return len(o.offset) - 1
}

// SizeBytes returns the total length of all records.
func (o *Offsets) SizeBytes() int {
	if len(o.offset) == 0 {
		return 0
	}

	return o.offset[len(o.offset)-1]
}

// Size returns the length of record i.
func (o *Offsets) Size(i int) int {
	return o.offset[i+1] - o.offset[i]
}

// Offset returns the start of record i. Offset(Len()) is SizeBytes().
func (o *Offsets) Offset(i int) int {
	if len(o.offset) == 0 {
		return 0
	}

	return o.offset[i]
}

// Index returns the record which contains the given offset.
func (o *Offsets) Index(offset int) int {
	o.init()

	return sort.Search(len(o.offset), func(i int) bool {
		return o.offset[i] > offset
	}) - 1
}

func (o *Offsets) Push(n int) {
	o.init()
	o.offset = append(o.offset, o.SizeBytes()+n)
}

// Truncate keeps the first n records.
func (o *Offsets) Truncate(n int) error {
	if n > o.Len() {
		return fmt.Errorf("%w: %d > %d", ErrTruncate, n, o.Len())
	}

	o.init()
	o.offset = o.offset[:n+1]

	return nil
}

// Arena stores variable length byte records in one flat buffer.
// Stored records are never modified in place.
type Arena struct {
	bytes   []byte
	offsets Offsets
}

var _ Vector[[]byte] = (*Arena)(nil)

// Push appends a copy of b and returns its index.
func (a *Arena) Push(b []byte) int {
	a.offsets.Push(len(b))
	a.bytes = append(a.bytes, b...)

	return a.offsets.Len() - 1
}

// PushString appends a string record.
func (a *Arena) PushString(s string) int {
	a.offsets.Push(len(s))
	a.bytes = append(a.bytes, s...)

	return a.offsets.Len() - 1
}

// Get returns record i. The slice aliases arena memory and must not be modified.
func (a *Arena) Get(i int) []byte {
	start, end := a.offsets.Offset(i), a.offsets.Offset(i+1)

	return a.bytes[start:end:end]
}

func (a *Arena) At(i int) []byte {
	return a.Get(i)
}

func (a *Arena) String(i int) string {
	return string(a.Get(i))
}

func (a *Arena) Len() int {
	return a.offsets.Len()
}

func (a *Arena) SizeBytes() int {
	return a.offsets.SizeBytes()
}

// Truncate keeps the first n records and releases the bytes after them.
func (a *Arena) Truncate(n int) error {
	if err := a.offsets.Truncate(n); err != nil {
		return err
	}

	a.bytes = a.bytes[:a.offsets.SizeBytes()]

	return nil
}

// Reset replaces the arena content with buf split by the given record sizes.
// The sizes must not sum to more than len(buf); trailing bytes are dropped.
func (a *Arena) Reset(buf []byte, sizes []int) error {
	offsets := Offsets{}
	offsets.init()

	for _, n := range sizes {
		offsets.Push(n)
	}

	if offsets.SizeBytes() > len(buf) {
		return fmt.Errorf("record sizes exceed buffer: %d > %d", offsets.SizeBytes(), len(buf))
	}

	a.bytes = buf[:offsets.SizeBytes()]
	a.offsets = offsets

	return nil
}
