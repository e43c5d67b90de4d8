package ds

import (
	"fmt"
	"slices"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestArena(t *testing.T) {
	t.Parallel()

	t.Run("push and get", func(t *testing.T) {
		t.Parallel()

		var arena Arena

		values := [][]byte{[]byte("abc"), {}, []byte("d"), []byte("efgh")}
		for i, v := range values {
			require.Equal(t, i, arena.Push(v))

			for j := 0; j <= i; j++ {
				require.Equal(t, values[j], arena.Get(j))
			}
		}

		require.Equal(t, 4, arena.Len())
		require.Equal(t, 8, arena.SizeBytes())
	})

	t.Run("truncate", func(t *testing.T) {
		t.Parallel()

		var arena Arena

		for i := 0; i < 5; i++ {
			arena.PushString(fmt.Sprintf("value-%d", i))
		}

		require.ErrorIs(t, arena.Truncate(6), ErrTruncate)
		require.Equal(t, 5, arena.Len())

		require.NoError(t, arena.Truncate(3))
		require.Equal(t, 3, arena.Len())
		require.Equal(t, 21, arena.SizeBytes())

		for i := 0; i < 3; i++ {
			require.Equal(t, fmt.Sprintf("value-%d", i), arena.String(i))
		}

		require.NoError(t, arena.Truncate(0))
		require.Equal(t, 0, arena.Len())
		require.Equal(t, 0, arena.SizeBytes())
	})

	t.Run("get does not leak capacity", func(t *testing.T) {
		t.Parallel()

		var arena Arena

		arena.PushString("ab")
		arena.PushString("cd")

		first := arena.Get(0)
		_ = append(first, 'x')

		require.Equal(t, "cd", arena.String(1))
	})

	t.Run("reset", func(t *testing.T) {
		t.Parallel()

		var arena Arena

		require.NoError(t, arena.Reset([]byte("aabbbcz"), []int{2, 3, 1}))
		require.Equal(t, 3, arena.Len())
		require.Equal(t, "bbb", arena.String(1))
		require.Equal(t, 6, arena.SizeBytes())

		require.Error(t, arena.Reset([]byte("ab"), []int{3}))
	})
}

func TestOffsets_Index(t *testing.T) {
	t.Parallel()

	var offsets Offsets

	for _, n := range []int{2, 0, 3} {
		offsets.Push(n)
	}

	require.Equal(t, 0, offsets.Index(0))
	require.Equal(t, 0, offsets.Index(1))
	require.Equal(t, 2, offsets.Index(2))
	require.Equal(t, 2, offsets.Index(4))
	require.Equal(t, 0, offsets.Size(1))
	require.Equal(t, 5, offsets.Offset(3))
}

func TestInterned(t *testing.T) {
	t.Parallel()

	t.Run("bytes", func(t *testing.T) {
		t.Parallel()

		in := NewInternedBytes()

		_, found := in.Find([]byte("alice@d1"))
		require.False(t, found)

		require.Equal(t, 0, in.Push([]byte("alice@d1")))
		require.Equal(t, 1, in.Push([]byte("bob@d1")))
		require.Equal(t, 2, in.Push([]byte("alice@d1")))

		i, found := in.Find([]byte("alice@d1"))
		require.True(t, found)
		require.Equal(t, 0, i)

		i, found = in.Find([]byte("bob@d1"))
		require.True(t, found)
		require.Equal(t, 1, i)

		_, found = in.Find([]byte("carol@d1"))
		require.False(t, found)

		require.Equal(t, 3, in.Intern([]byte("carol@d1")))
		require.Equal(t, 3, in.Intern([]byte("carol@d1")))
		require.Equal(t, 4, in.Len())
	})

	t.Run("array", func(t *testing.T) {
		t.Parallel()

		type hash [32]byte

		in := NewInternedArray[hash]()

		require.Equal(t, 0, in.Push(hash{1}))
		require.Equal(t, 1, in.Push(hash{2}))

		i, found := in.Find(hash{2})
		require.True(t, found)
		require.Equal(t, 1, i)
		require.Equal(t, hash{2}, in.At(1))

		_, found = in.Find(hash{3})
		require.False(t, found)
	})

	t.Run("colliding hashes", func(t *testing.T) {
		t.Parallel()

		keys := &Keys[string]{}
		in := NewInterned[string](keys, func(string) uint64 { return 7 }, func(a, b string) bool { return a == b })

		in.Push("x")
		in.Push("y")

		i, found := in.Find("y")
		require.True(t, found)
		require.Equal(t, 1, i)
	})

	t.Run("existing vector", func(t *testing.T) {
		t.Parallel()

		keys := &Keys[string]{"a", "b"}
		in := NewInterned[string](keys, func(s string) uint64 { return uint64(len(s)) }, func(a, b string) bool { return a == b })

		i, found := in.Find("b")
		require.True(t, found)
		require.Equal(t, 1, i)
	})
}

func TestLinked(t *testing.T) {
	t.Parallel()

	var linked Linked[string]

	linked.Add(0, "a")
	linked.Add(0, "b")
	linked.Add(2, "c")

	require.Equal(t, []string{"b", "a"}, linked.Slice(0))
	require.Nil(t, linked.Slice(1))
	require.Equal(t, []string{"c"}, linked.Slice(2))
	require.Nil(t, linked.Slice(10))
	require.Equal(t, 2, linked.Count(0))

	var first []string

	for v := range linked.Range(0) {
		first = append(first, v)

		break
	}

	require.Equal(t, []string{"b"}, first)
}

func TestBitset(t *testing.T) {
	t.Parallel()

	b := NewBitset(2, 5)

	require.True(t, b.Test(2))
	require.True(t, b.Test(5))
	require.False(t, b.Test(3))
	require.False(t, b.Test(BitsetWidth))
	require.Equal(t, 2, b.Count())
	require.Equal(t, []int{2, 5}, slices.Collect(b.Bits()))
	require.Equal(t, b, b.Set(-1).Set(BitsetWidth))
	require.Equal(t, NewBitset(1, 2, 5), b.Or(NewBitset(1)))
}

func TestRelation(t *testing.T) {
	t.Parallel()

	var rel Relation

	i, created := rel.Grant(0, 1, 2)
	require.True(t, created)
	require.Equal(t, 0, i)

	i, created = rel.Grant(0, 1, 5)
	require.False(t, created)
	require.Equal(t, 0, i)

	rel.Grant(0, 3, 1)
	rel.Grant(2, 1, 0)

	require.Equal(t, 3, rel.Len())

	edge, found := rel.Get(0, 1)
	require.True(t, found)
	require.Equal(t, []int{2, 5}, slices.Collect(edge.Bits.Bits()))

	_, found = rel.Get(1, 0)
	require.False(t, found)

	require.Equal(t, []Edge{
		{Left: 0, Right: 1, Bits: NewBitset(2, 5)},
		{Left: 0, Right: 3, Bits: NewBitset(1)},
	}, rel.ByLeft(0))

	require.Equal(t, []Edge{
		{Left: 0, Right: 1, Bits: NewBitset(2, 5)},
		{Left: 2, Right: 1, Bits: NewBitset(0)},
	}, rel.ByRight(1))

	require.Nil(t, rel.ByLeft(7))
}
