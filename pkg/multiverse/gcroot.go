package multiverse

import (
	"sync"

	"github.com/iotaledger/hive.go/ds/shrinkingmap"
	"github.com/iotaledger/hive.go/ierrors"
	"github.com/iotaledger/hive.go/runtime/syncutils"

	"github.com/iotaledger/chainstate/pkg/model"
)

// pinTable is the one piece of store state that is shared with the outside:
// every GCRoot holds a handle to the table of the store that issued it, so
// pins taken on one goroutine keep protecting a state while another goroutine
// runs the collection pass.
type pinTable struct {
	counts *shrinkingmap.ShrinkingMap[model.Digest, int]
	mutex  syncutils.RWMutex
}

func newPinTable() *pinTable {
	return &pinTable{
		counts: shrinkingmap.New[model.Digest, int](),
	}
}

func (p *pinTable) isPinnedWithoutLocking(id model.Digest) bool {
	return p.counts.Has(id)
}

// GCRoot pins one state identity in its Multiverse: while at least one live
// GCRoot references an identity, the collection pass will never reclaim it.
// Multiple roots over the same identity are independent handles sharing one
// counter. A GCRoot dereferences to the pinned identity, never to the state
// itself; the state is fetched through the store that issued the root.
type GCRoot struct {
	id          model.Digest
	pins        *pinTable
	releaseOnce sync.Once
}

func newGCRoot(id model.Digest, pins *pinTable) *GCRoot {
	pins.mutex.Lock()
	defer pins.mutex.Unlock()

	count, _ := pins.counts.Get(id)
	pins.counts.Set(id, count+1)

	return &GCRoot{id: id, pins: pins}
}

// ID returns the pinned state identity.
func (g *GCRoot) ID() model.Digest {
	return g.id
}

// Release drops this root's pin, making the identity eligible for collection
// once no other root references it. Release is idempotent; it must be called
// (typically deferred) on every exit path of the scope that acquired the root.
func (g *GCRoot) Release() {
	g.releaseOnce.Do(func() {
		g.pins.mutex.Lock()
		defer g.pins.mutex.Unlock()

		count, exists := g.pins.counts.Get(g.id)
		if !exists {
			panic(ierrors.Errorf("pin count for %s is gone while a root was still live", g.id))
		}

		if count > 1 {
			g.pins.counts.Set(g.id, count-1)

			return
		}

		g.pins.counts.Delete(g.id)
	})
}
