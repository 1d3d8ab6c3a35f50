package hamt

import "math/bits"

const (
	// bitsPerLevel is the number of hash bits consumed per trie level.
	bitsPerLevel = 6

	// levelMask extracts one level's worth of hash bits.
	levelMask = (1 << bitsPerLevel) - 1
)

type entry[K comparable, V any] struct {
	key   K
	value V
}

// node is either a branch or a leaf. A branch holds its populated children
// compacted into a slice, addressed through the bitmap. A leaf holds the
// entries of a single key hash: exactly one entry in the common case, several
// when full 64-bit hashes collide. Nodes are immutable once linked into a map
// version; mutations copy the path from the root down to the affected node.
type node[K comparable, V any] struct {
	bitmap   uint64
	children []*node[K, V]

	hash    uint64
	entries []entry[K, V]
}

func (n *node[K, V]) isLeaf() bool {
	return n.entries != nil
}

func newLeaf[K comparable, V any](hash uint64, key K, value V) *node[K, V] {
	return &node[K, V]{hash: hash, entries: []entry[K, V]{{key: key, value: value}}}
}

func bitAt(hash uint64, shift uint) uint64 {
	return 1 << ((hash >> shift) & levelMask)
}

// childPosition maps a bitmap bit to the child's index in the compacted slice.
func childPosition(bitmap uint64, bit uint64) int {
	return bits.OnesCount64(bitmap & (bit - 1))
}

func (n *node[K, V]) insert(hash uint64, shift uint, key K, value V) (*node[K, V], error) {
	if n == nil {
		return newLeaf(hash, key, value), nil
	}

	if n.isLeaf() {
		if n.hash != hash {
			return splitLeaf(n, newLeaf(hash, key, value), shift), nil
		}

		for _, e := range n.entries {
			if e.key == key {
				return nil, ErrKeyExists
			}
		}

		// Full hash collision: the new entry joins the leaf.
		entries := make([]entry[K, V], len(n.entries)+1)
		copy(entries, n.entries)
		entries[len(n.entries)] = entry[K, V]{key: key, value: value}

		return &node[K, V]{hash: hash, entries: entries}, nil
	}

	bit := bitAt(hash, shift)
	pos := childPosition(n.bitmap, bit)

	if n.bitmap&bit == 0 {
		children := make([]*node[K, V], len(n.children)+1)
		copy(children, n.children[:pos])
		children[pos] = newLeaf(hash, key, value)
		copy(children[pos+1:], n.children[pos:])

		return &node[K, V]{bitmap: n.bitmap | bit, children: children}, nil
	}

	child, err := n.children[pos].insert(hash, shift+bitsPerLevel, key, value)
	if err != nil {
		return nil, err
	}

	return n.withChild(pos, child), nil
}

// splitLeaf pushes two leaves with distinct hashes down to the first level at
// which their hash chunks diverge.
func splitLeaf[K comparable, V any](a, b *node[K, V], shift uint) *node[K, V] {
	bitA := bitAt(a.hash, shift)
	bitB := bitAt(b.hash, shift)

	if bitA == bitB {
		return &node[K, V]{
			bitmap:   bitA,
			children: []*node[K, V]{splitLeaf(a, b, shift+bitsPerLevel)},
		}
	}

	children := []*node[K, V]{a, b}
	if childPosition(bitA|bitB, bitA) != 0 {
		children[0], children[1] = children[1], children[0]
	}

	return &node[K, V]{bitmap: bitA | bitB, children: children}
}

func (n *node[K, V]) update(hash uint64, shift uint, key K, value V) (*node[K, V], error) {
	if n == nil {
		return nil, ErrKeyNotFound
	}

	if n.isLeaf() {
		if n.hash != hash {
			return nil, ErrKeyNotFound
		}

		for i, e := range n.entries {
			if e.key == key {
				entries := make([]entry[K, V], len(n.entries))
				copy(entries, n.entries)
				entries[i].value = value

				return &node[K, V]{hash: hash, entries: entries}, nil
			}
		}

		return nil, ErrKeyNotFound
	}

	bit := bitAt(hash, shift)
	if n.bitmap&bit == 0 {
		return nil, ErrKeyNotFound
	}

	pos := childPosition(n.bitmap, bit)
	child, err := n.children[pos].update(hash, shift+bitsPerLevel, key, value)
	if err != nil {
		return nil, err
	}

	return n.withChild(pos, child), nil
}

func (n *node[K, V]) remove(hash uint64, shift uint, key K) (*node[K, V], V, error) {
	var zero V

	if n == nil {
		return nil, zero, ErrKeyNotFound
	}

	if n.isLeaf() {
		if n.hash != hash {
			return nil, zero, ErrKeyNotFound
		}

		for i, e := range n.entries {
			if e.key != key {
				continue
			}

			if len(n.entries) == 1 {
				return nil, e.value, nil
			}

			entries := make([]entry[K, V], 0, len(n.entries)-1)
			entries = append(entries, n.entries[:i]...)
			entries = append(entries, n.entries[i+1:]...)

			return &node[K, V]{hash: hash, entries: entries}, e.value, nil
		}

		return nil, zero, ErrKeyNotFound
	}

	bit := bitAt(hash, shift)
	if n.bitmap&bit == 0 {
		return nil, zero, ErrKeyNotFound
	}

	pos := childPosition(n.bitmap, bit)
	child, removed, err := n.children[pos].remove(hash, shift+bitsPerLevel, key)
	if err != nil {
		return nil, zero, err
	}

	if child == nil {
		if len(n.children) == 1 {
			return nil, removed, nil
		}

		// The last sibling of a removed child is hoisted into the parent when
		// it is a leaf, keeping equal content in equal shape.
		if len(n.children) == 2 {
			if sibling := n.children[1-pos]; sibling.isLeaf() {
				return sibling, removed, nil
			}
		}

		children := make([]*node[K, V], 0, len(n.children)-1)
		children = append(children, n.children[:pos]...)
		children = append(children, n.children[pos+1:]...)

		return &node[K, V]{bitmap: n.bitmap &^ bit, children: children}, removed, nil
	}

	// A branch whose only remaining child collapsed into a leaf is redundant,
	// since leaves carry their full hash.
	if len(n.children) == 1 && child.isLeaf() {
		return child, removed, nil
	}

	return n.withChild(pos, child), removed, nil
}

// withChild copies the branch with one child replaced.
func (n *node[K, V]) withChild(pos int, child *node[K, V]) *node[K, V] {
	children := make([]*node[K, V], len(n.children))
	copy(children, n.children)
	children[pos] = child

	return &node[K, V]{bitmap: n.bitmap, children: children}
}

func (n *node[K, V]) forEach(consumer func(key K, value V) bool) bool {
	if n == nil {
		return true
	}

	if n.isLeaf() {
		for _, e := range n.entries {
			if !consumer(e.key, e.value) {
				return false
			}
		}

		return true
	}

	for _, child := range n.children {
		if !child.forEach(consumer) {
			return false
		}
	}

	return true
}
