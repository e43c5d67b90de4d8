package pbscan

import (
	"testing"

	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/encoding/protowire"
)

func appendString(b []byte, num protowire.Number, s string) []byte {
	b = protowire.AppendTag(b, num, protowire.BytesType)

	return protowire.AppendString(b, s)
}

func appendMessage(b []byte, num protowire.Number, msg []byte) []byte {
	b = protowire.AppendTag(b, num, protowire.BytesType)

	return protowire.AppendBytes(b, msg)
}

func appendUint(b []byte, num protowire.Number, v uint64) []byte {
	b = protowire.AppendTag(b, num, protowire.VarintType)

	return protowire.AppendVarint(b, v)
}

func TestSplit(t *testing.T) {
	t.Parallel()

	var (
		buf   []byte
		sizes []int
	)

	for _, payload := range []string{"first", "", "third record"} {
		before := len(buf)
		buf = appendString(buf, 1, payload)
		sizes = append(sizes, len(buf)-before)
	}

	valid := len(buf)

	t.Run("complete", func(t *testing.T) {
		t.Parallel()

		var got []int

		require.Equal(t, valid, Split(buf, 1, func(n int) { got = append(got, n) }))
		require.Equal(t, sizes, got)
	})

	t.Run("garbage tail", func(t *testing.T) {
		t.Parallel()

		var got []int

		corrupt := append(append([]byte{}, buf...), 0xff, 0xff, 0xff, 0xff, 0xff)

		require.Equal(t, valid, Split(corrupt, 1, func(n int) { got = append(got, n) }))
		require.Equal(t, sizes, got)
	})

	t.Run("cut record", func(t *testing.T) {
		t.Parallel()

		var got []int

		cut := buf[:valid-3]

		require.Equal(t, sizes[0]+sizes[1], Split(cut, 1, func(n int) { got = append(got, n) }))
		require.Equal(t, sizes[:2], got)
	})

	t.Run("other field", func(t *testing.T) {
		t.Parallel()

		other := appendUint(append([]byte{}, buf...), 1, 5)

		require.Equal(t, valid, Split(other, 1, func(int) {}))
	})
}

func TestFindAndRead(t *testing.T) {
	t.Parallel()

	var inner []byte
	inner = appendString(inner, 1, "alice")
	inner = appendUint(inner, 2, 300)
	inner = appendString(inner, 3, "ignored")

	var outer []byte
	outer = appendUint(outer, 5, 1)
	outer = appendMessage(outer, 2, inner)

	var buf []byte
	buf = appendMessage(buf, 1, outer)

	r, found, err := Find(buf, Whole(buf), 1, 2)
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, inner, r.Of(buf))

	name, err := String(buf, r, 1)
	require.NoError(t, err)
	require.Equal(t, "alice", name)

	v, err := Uint(buf, r, 2)
	require.NoError(t, err)
	require.Equal(t, uint64(300), v)

	missing, err := String(buf, r, 9)
	require.NoError(t, err)
	require.Empty(t, missing)

	_, found, err = Find(buf, Whole(buf), 1, 7)
	require.NoError(t, err)
	require.False(t, found)

	_, err = Uint(buf, r, 1)
	require.ErrorIs(t, err, ErrMalformed)

	_, _, err = Find(buf, Whole(buf), 1, 5)
	require.ErrorIs(t, err, ErrMalformed)
}

func TestRepeatedAndVarints(t *testing.T) {
	t.Parallel()

	var buf []byte
	buf = appendString(buf, 1, "a")
	buf = appendUint(buf, 2, 7)
	buf = appendString(buf, 1, "bc")

	var packed []byte
	packed = protowire.AppendVarint(packed, 1)
	packed = protowire.AppendVarint(packed, 150)
	buf = appendMessage(buf, 2, packed)

	var values []string

	require.NoError(t, Repeated(buf, Whole(buf), 1, func(r Range) error {
		values = append(values, string(r.Of(buf)))

		return nil
	}))
	require.Equal(t, []string{"a", "bc"}, values)

	var ints []uint64

	require.NoError(t, Varints(buf, Whole(buf), 2, func(v uint64) { ints = append(ints, v) }))
	require.Equal(t, []uint64{7, 1, 150}, ints)
}

func TestEach_Malformed(t *testing.T) {
	t.Parallel()

	buf := appendString(nil, 1, "abcdef")

	err := Each(buf, Range{Start: 0, End: len(buf) - 2}, func(Field) error { return nil })
	require.ErrorIs(t, err, ErrMalformed)
}

func TestRange(t *testing.T) {
	t.Parallel()

	r := Range{Start: 2, End: 5}

	require.Equal(t, 3, r.Len())
	require.Equal(t, Range{Start: 4, End: 7}, r.Shift(2))
	require.False(t, r.IsEmpty())
	require.True(t, Range{Start: 3, End: 3}.IsEmpty())
	require.Equal(t, []byte("cde"), r.Of([]byte("abcdefg")))
}
