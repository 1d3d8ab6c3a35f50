package multiverse

import (
	"sort"

	"github.com/iotaledger/hive.go/ds"
	"github.com/iotaledger/hive.go/ds/shrinkingmap"
	"github.com/iotaledger/hive.go/ierrors"
	"github.com/iotaledger/hive.go/lo"
	"github.com/iotaledger/hive.go/log"
	"github.com/iotaledger/hive.go/runtime/options"
	"github.com/iotaledger/hive.go/stringify"

	"github.com/iotaledger/chainstate/pkg/model"
)

// SuffixToKeep is the default width of the retention window behind the longest
// tracked chain: every state within this distance of the tip survives the
// collection pass unconditionally.
const SuffixToKeep = 50

// ErrStateNotFound is returned when pinning an identity that has no stored
// state.
var ErrStateNotFound = ierrors.New("state not found in the multiverse")

// Multiverse stores one ledger state per known block while the chain may still
// fork into competing branches, and reclaims the states of branches that fell
// too far behind the longest one.
//
//	          [tip A]
//	        ,o            ,-o-o--o [tip B]
//	       /             /
//	 o----o----o--o--o--o-o-o-o-oooo [tip E]
//	                  \
//	                   `-o--o [tip C]
//
// Add and GC expect single-writer discipline (the block application thread);
// the pin table is safe for concurrent use from any goroutine.
type Multiverse[S model.State] struct {
	statesByID          *shrinkingmap.ShrinkingMap[model.Digest, S]
	statesByChainLength *shrinkingmap.ShrinkingMap[uint32, ds.Set[model.Digest]]
	pins                *pinTable

	optsSuffixToKeep uint32

	log.Logger
}

// New creates an empty Multiverse.
func New[S model.State](logger log.Logger, opts ...options.Option[Multiverse[S]]) *Multiverse[S] {
	return options.Apply(&Multiverse[S]{
		statesByID:          shrinkingmap.New[model.Digest, S](),
		statesByChainLength: shrinkingmap.New[uint32, ds.Set[model.Digest]](),
		pins:                newPinTable(),
		optsSuffixToKeep:    SuffixToKeep,
	}, opts, func(m *Multiverse[S]) {
		m.Logger = lo.Return1(logger.NewChildLogger("multiverse"))
	})
}

// Add stores the given state under the block identity and returns a live
// GCRoot pinning it. If the identity is already present the existing state is
// kept (first write wins) but a fresh pin is handed out all the same.
func (m *Multiverse[S]) Add(id model.Digest, state S) *GCRoot {
	bucket, _ := m.statesByChainLength.GetOrCreate(state.ChainLength(), func() ds.Set[model.Digest] {
		return ds.NewSet[model.Digest]()
	})
	bucket.Add(id)

	m.statesByID.GetOrCreate(id, func() S { return state })

	m.LogTrace("state added", "id", id, "chainLength", state.ChainLength())

	return newGCRoot(id, m.pins)
}

// Get returns the state stored under the given identity. Absence is a normal
// outcome: the state is either not yet known or already collected.
func (m *Multiverse[S]) Get(id model.Digest) (S, bool) {
	return m.statesByID.Get(id)
}

// GetFromRoot returns the state pinned by a GCRoot issued by this store.
// Handing in a root from a different store is a programming error, not an
// operating condition, and panics.
func (m *Multiverse[S]) GetFromRoot(root *GCRoot) S {
	if root.pins != m.pins {
		panic(ierrors.New("gc root was issued by a different multiverse"))
	}

	state, exists := m.statesByID.Get(root.ID())
	if !exists {
		panic(ierrors.Errorf("state %s is pinned but missing from the identity index", root.ID()))
	}

	return state
}

// Pin acquires an additional GCRoot for an already stored identity, e.g. when
// a consumer intends to keep building on that branch. It fails with
// ErrStateNotFound for unknown identities, so pins only ever reference stored
// states.
func (m *Multiverse[S]) Pin(id model.Digest) (*GCRoot, error) {
	if !m.statesByID.Has(id) {
		return nil, ierrors.Wrapf(ErrStateNotFound, "%s", id)
	}

	return newGCRoot(id, m.pins), nil
}

// GC reclaims states that are both unpinned and sufficiently far behind the
// longest tracked chain. States close to the tip are all kept; behind that
// window, retained checkpoints get exponentially sparser as they recede, which
// bounds the number of old states to O(log(chain length)) while pinned states
// survive regardless of age.
func (m *Multiverse[S]) GC() {
	if m.statesByChainLength.Size() == 0 {
		return
	}

	chainLengths := m.statesByChainLength.Keys()
	sort.Slice(chainLengths, func(i, j int) bool { return chainLengths[i] < chainLengths[j] })
	longestChain := chainLengths[len(chainLengths)-1]

	var garbage []model.Digest

	m.pins.mutex.RLock()
	keepFrom := uint32(0)
	for _, chainLength := range chainLengths {
		// Keep states close to the current longest chain.
		if chainLength+m.optsSuffixToKeep >= longestChain {
			break
		}

		// Keep states in gaps that get exponentially smaller as they get
		// closer to the longest chain.
		if chainLength >= keepFrom {
			keepFrom = chainLength + (longestChain-chainLength)/2

			continue
		}

		bucket := lo.Return1(m.statesByChainLength.Get(chainLength))
		bucket.Range(func(id model.Digest) {
			if !m.pins.isPinnedWithoutLocking(id) {
				garbage = append(garbage, id)
			}
		})
	}
	m.pins.mutex.RUnlock()

	for _, id := range garbage {
		m.delete(id)
	}

	if len(garbage) > 0 {
		m.LogDebug("collected stale states", "count", len(garbage), "longestChain", longestChain)
	}
}

// NrStates returns the number of states currently stored.
func (m *Multiverse[S]) NrStates() int {
	return m.statesByID.Size()
}

func (m *Multiverse[S]) String() string {
	return stringify.Struct("Multiverse",
		stringify.NewStructField("nrStates", m.statesByID.Size()),
		stringify.NewStructField("nrChainLengths", m.statesByChainLength.Size()),
	)
}

// delete removes one state from both indexes. The indexes desynchronizing is a
// bug, so a missing entry is a fatal assertion rather than an error.
func (m *Multiverse[S]) delete(id model.Digest) {
	state, exists := m.statesByID.Get(id)
	if !exists {
		panic(ierrors.Errorf("state %s is marked for collection but missing from the identity index", id))
	}
	m.statesByID.Delete(id)

	bucket, exists := m.statesByChainLength.Get(state.ChainLength())
	if !exists || !bucket.Delete(id) {
		panic(ierrors.Errorf("state %s is missing from the bucket of chain length %d", id, state.ChainLength()))
	}

	if bucket.IsEmpty() {
		m.statesByChainLength.Delete(state.ChainLength())
	}
}

// WithSuffixToKeep overrides the width of the retention window behind the
// longest chain.
func WithSuffixToKeep[S model.State](suffixToKeep uint32) options.Option[Multiverse[S]] {
	return func(m *Multiverse[S]) {
		m.optsSuffixToKeep = suffixToKeep
	}
}
