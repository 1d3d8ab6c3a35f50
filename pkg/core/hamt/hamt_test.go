package hamt_test

import (
	"fmt"
	"hash/fnv"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/iotaledger/hive.go/lo"

	"github.com/iotaledger/chainstate/pkg/core/hamt"
)

func hashString(s string) uint64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(s))

	return h.Sum64()
}

// collidingHash forces every key into the same leaf.
func collidingHash(string) uint64 {
	return 42
}

func TestInsertDoesNotMutateReceiver(t *testing.T) {
	m := hamt.New[string, int](hashString)

	m1 := lo.PanicOnErr(m.Insert("a", 1))

	require.Equal(t, 0, m.Size())
	require.False(t, m.Has("a"))

	require.Equal(t, 1, m1.Size())
	value, exists := m1.Lookup("a")
	require.True(t, exists)
	require.Equal(t, 1, value)

	m2 := lo.PanicOnErr(m1.Insert("b", 2))

	require.False(t, m.Has("b"))
	require.False(t, m1.Has("b"))
	require.True(t, m2.Has("a"))
	require.True(t, m2.Has("b"))
}

func TestInsertExistingKey(t *testing.T) {
	m := lo.PanicOnErr(hamt.New[string, int](hashString).Insert("a", 1))

	_, err := m.Insert("a", 2)
	require.ErrorIs(t, err, hamt.ErrKeyExists)

	// The failed insert left the receiver untouched.
	value, exists := m.Lookup("a")
	require.True(t, exists)
	require.Equal(t, 1, value)
}

func TestUpdate(t *testing.T) {
	m := lo.PanicOnErr(hamt.New[string, int](hashString).Insert("a", 1))

	m1, err := m.Update("a", 2)
	require.NoError(t, err)

	require.Equal(t, 1, lo.Return1(m.Lookup("a")))
	require.Equal(t, 2, lo.Return1(m1.Lookup("a")))
	require.Equal(t, m.Size(), m1.Size())

	_, err = m.Update("missing", 1)
	require.ErrorIs(t, err, hamt.ErrKeyNotFound)
}

func TestDelete(t *testing.T) {
	m := lo.PanicOnErr(hamt.New[string, int](hashString).Insert("a", 1))
	m = lo.PanicOnErr(m.Insert("b", 2))

	m1, removed, err := m.Delete("a")
	require.NoError(t, err)
	require.Equal(t, 1, removed)
	require.Equal(t, 1, m1.Size())
	require.False(t, m1.Has("a"))
	require.True(t, m1.Has("b"))

	// The predecessor still holds both entries.
	require.True(t, m.Has("a"))
	require.Equal(t, 2, m.Size())

	_, _, err = m1.Delete("a")
	require.ErrorIs(t, err, hamt.ErrKeyNotFound)
}

func TestManyKeysAcrossVersions(t *testing.T) {
	const numKeys = 1000

	m := hamt.New[string, int](hashString)

	snapshots := make([]*hamt.Map[string, int], 0, numKeys/100)
	for i := 0; i < numKeys; i++ {
		m = lo.PanicOnErr(m.Insert(fmt.Sprintf("key-%d", i), i))

		if i%100 == 0 {
			snapshots = append(snapshots, m)
		}
	}

	require.Equal(t, numKeys, m.Size())
	for i := 0; i < numKeys; i++ {
		require.Equal(t, i, lo.Return1(m.Lookup(fmt.Sprintf("key-%d", i))))
	}

	// Every snapshot still observes exactly the mapping it had when taken.
	for s, snapshot := range snapshots {
		require.Equal(t, s*100+1, snapshot.Size())
		require.True(t, snapshot.Has(fmt.Sprintf("key-%d", s*100)))
		require.False(t, snapshot.Has(fmt.Sprintf("key-%d", s*100+1)))
	}
}

func TestHashCollisions(t *testing.T) {
	m := hamt.New[string, int](collidingHash)

	for i := 0; i < 10; i++ {
		m = lo.PanicOnErr(m.Insert(fmt.Sprintf("key-%d", i), i))
	}

	require.Equal(t, 10, m.Size())
	for i := 0; i < 10; i++ {
		require.Equal(t, i, lo.Return1(m.Lookup(fmt.Sprintf("key-%d", i))))
	}

	_, err := m.Insert("key-3", 99)
	require.ErrorIs(t, err, hamt.ErrKeyExists)

	m1, removed, err := m.Delete("key-3")
	require.NoError(t, err)
	require.Equal(t, 3, removed)
	require.False(t, m1.Has("key-3"))
	require.True(t, m.Has("key-3"))

	for i := 9; i >= 0; i-- {
		var err error
		m, _, err = m.Delete(fmt.Sprintf("key-%d", i))
		require.NoError(t, err)
	}
	require.Equal(t, 0, m.Size())
}

func TestIteration(t *testing.T) {
	const numKeys = 100

	m := hamt.New[string, int](hashString)
	for i := 0; i < numKeys; i++ {
		m = lo.PanicOnErr(m.Insert(fmt.Sprintf("key-%d", i), i))
	}

	collect := func() []string {
		keys := make([]string, 0, numKeys)
		for it := m.Iterate(); ; {
			key, value, exists := it.Next()
			if !exists {
				break
			}
			require.Equal(t, value, lo.Return1(m.Lookup(key)))
			keys = append(keys, key)
		}

		return keys
	}

	first := collect()
	require.Len(t, first, numKeys)

	// The sequence is restartable and deterministic for a given version.
	require.Equal(t, first, collect())

	var visited int
	m.ForEach(func(key string, value int) bool {
		require.Equal(t, first[visited], key)
		visited++

		return true
	})
	require.Equal(t, numKeys, visited)

	// Early abort stops the walk.
	visited = 0
	m.ForEach(func(string, int) bool {
		visited++

		return visited < 10
	})
	require.Equal(t, 10, visited)
}

func TestEqual(t *testing.T) {
	intEqual := func(a, b int) bool { return a == b }

	a := hamt.New[string, int](hashString)
	b := hamt.New[string, int](hashString)

	require.True(t, a.Equal(b, intEqual))

	// Insertion order does not matter for content equality.
	for i := 0; i < 50; i++ {
		a = lo.PanicOnErr(a.Insert(fmt.Sprintf("key-%d", i), i))
	}
	for i := 49; i >= 0; i-- {
		b = lo.PanicOnErr(b.Insert(fmt.Sprintf("key-%d", i), i))
	}
	require.True(t, a.Equal(b, intEqual))

	c := lo.PanicOnErr(a.Insert("extra", 1))
	require.False(t, a.Equal(c, intEqual))
	require.False(t, c.Equal(a, intEqual))

	d, err := a.Update("key-0", 99)
	require.NoError(t, err)
	require.False(t, a.Equal(d, intEqual))
}
