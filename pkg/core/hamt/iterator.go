package hamt

// Iterator is a cursor over one version of a Map. The version it walks is
// immutable, so the cursor stays valid for as long as it is held and every
// call to Map.Iterate starts a fresh, independent sequence.
type Iterator[K comparable, V any] struct {
	stack []iteratorFrame[K, V]
}

type iteratorFrame[K comparable, V any] struct {
	node *node[K, V]
	next int
}

func newIterator[K comparable, V any](root *node[K, V]) *Iterator[K, V] {
	it := &Iterator[K, V]{}
	if root != nil {
		it.stack = append(it.stack, iteratorFrame[K, V]{node: root})
	}

	return it
}

// Next returns the next key/value pair, or false once the sequence is
// exhausted.
func (i *Iterator[K, V]) Next() (key K, value V, exists bool) {
	for len(i.stack) > 0 {
		frame := &i.stack[len(i.stack)-1]

		if frame.node.isLeaf() {
			if frame.next < len(frame.node.entries) {
				e := frame.node.entries[frame.next]
				frame.next++

				return e.key, e.value, true
			}

			i.stack = i.stack[:len(i.stack)-1]

			continue
		}

		if frame.next < len(frame.node.children) {
			child := frame.node.children[frame.next]
			frame.next++
			i.stack = append(i.stack, iteratorFrame[K, V]{node: child})

			continue
		}

		i.stack = i.stack[:len(i.stack)-1]
	}

	var zeroK K
	var zeroV V

	return zeroK, zeroV, false
}
