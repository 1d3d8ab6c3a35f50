package hamt

import (
	"github.com/iotaledger/hive.go/ierrors"
)

var (
	// ErrKeyExists is returned when inserting a key that is already present.
	ErrKeyExists = ierrors.New("key already exists in the map")

	// ErrKeyNotFound is returned when updating or deleting an absent key.
	ErrKeyNotFound = ierrors.New("key not found in the map")
)

// Map is a persistent hash array mapped trie. Insert, Update and Delete never
// touch the receiver: they return a new Map that shares every unmodified
// subtree with its predecessor, so arbitrarily many versions can stay resident
// while paying only for the paths on which they differ.
//
// The key hash function is supplied at construction time and must be stable
// for the lifetime of all versions derived from the same root.
type Map[K comparable, V any] struct {
	keyHash func(K) uint64
	root    *node[K, V]
	size    int
}

// New creates an empty Map that hashes keys with the given function.
func New[K comparable, V any](keyHash func(K) uint64) *Map[K, V] {
	return &Map[K, V]{
		keyHash: keyHash,
	}
}

// Lookup returns the value stored under the given key. Absence is a normal
// outcome, reported through the second return value.
func (m *Map[K, V]) Lookup(key K) (value V, exists bool) {
	hash := m.keyHash(key)

	current := m.root
	shift := uint(0)
	for current != nil {
		if current.isLeaf() {
			if current.hash != hash {
				break
			}

			for _, e := range current.entries {
				if e.key == key {
					return e.value, true
				}
			}

			break
		}

		bit := bitAt(hash, shift)
		if current.bitmap&bit == 0 {
			break
		}

		current = current.children[childPosition(current.bitmap, bit)]
		shift += bitsPerLevel
	}

	var zero V

	return zero, false
}

// Has reports whether the given key is present.
func (m *Map[K, V]) Has(key K) bool {
	_, exists := m.Lookup(key)

	return exists
}

// Insert returns a new Map that additionally holds the given key/value pair.
// It fails with ErrKeyExists if the key is already present; the receiver is
// left untouched either way.
func (m *Map[K, V]) Insert(key K, value V) (*Map[K, V], error) {
	newRoot, err := m.root.insert(m.keyHash(key), 0, key, value)
	if err != nil {
		return nil, err
	}

	return &Map[K, V]{keyHash: m.keyHash, root: newRoot, size: m.size + 1}, nil
}

// Update returns a new Map in which the given key maps to the given value. It
// fails with ErrKeyNotFound if the key is absent.
func (m *Map[K, V]) Update(key K, value V) (*Map[K, V], error) {
	newRoot, err := m.root.update(m.keyHash(key), 0, key, value)
	if err != nil {
		return nil, err
	}

	return &Map[K, V]{keyHash: m.keyHash, root: newRoot, size: m.size}, nil
}

// Delete returns a new Map without the given key, together with the value that
// was stored under it. It fails with ErrKeyNotFound if the key is absent.
func (m *Map[K, V]) Delete(key K) (*Map[K, V], V, error) {
	newRoot, removed, err := m.root.remove(m.keyHash(key), 0, key)
	if err != nil {
		var zero V

		return nil, zero, err
	}

	return &Map[K, V]{keyHash: m.keyHash, root: newRoot, size: m.size - 1}, removed, nil
}

// Size returns the number of key/value pairs in this version of the map.
func (m *Map[K, V]) Size() int {
	return m.size
}

// ForEach calls the consumer for every key/value pair until it returns false.
// The visiting order follows the trie structure: unspecified but deterministic
// for a given content.
func (m *Map[K, V]) ForEach(consumer func(key K, value V) bool) {
	m.root.forEach(consumer)
}

// Iterate returns a fresh cursor over all key/value pairs. The sequence is
// lazy, finite and restartable; its order matches ForEach.
func (m *Map[K, V]) Iterate() *Iterator[K, V] {
	return newIterator(m.root)
}

// Equal reports whether two versions hold the same key/value content, using
// the given value equality. Physically shared versions compare cheaply.
func (m *Map[K, V]) Equal(other *Map[K, V], valueEqual func(a, b V) bool) bool {
	if other == nil {
		return false
	}

	if m.root == other.root {
		return true
	}

	if m.size != other.size {
		return false
	}

	equal := true
	m.ForEach(func(key K, value V) bool {
		otherValue, exists := other.Lookup(key)
		equal = exists && valueEqual(value, otherValue)

		return equal
	})

	return equal
}
