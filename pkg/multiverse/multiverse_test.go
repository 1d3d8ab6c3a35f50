package multiverse_test

import (
	"math/bits"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/iotaledger/hive.go/log"

	"github.com/iotaledger/chainstate/pkg/model"
	"github.com/iotaledger/chainstate/pkg/multiverse"
	"github.com/iotaledger/chainstate/pkg/utxoledger/tpkg"
)

// mockState stands in for a ledger snapshot: the store only ever asks for its
// chain length.
type mockState struct {
	id          model.Digest
	chainLength uint32
}

func (m *mockState) ChainLength() uint32 {
	return m.chainLength
}

// applyBlock produces the child state of the given parent, the way a block
// application thread would.
func applyBlock(parent *mockState) *mockState {
	return &mockState{
		id:          tpkg.RandDigest(),
		chainLength: parent.chainLength + 1,
	}
}

func newTestMultiverse() *multiverse.Multiverse[*mockState] {
	return multiverse.New[*mockState](log.NewLogger())
}

// buildChain adds a chain of the given length on top of genesis, releasing
// every root immediately, and returns the states by chain length.
func buildChain(m *multiverse.Multiverse[*mockState], length int) []*mockState {
	states := make([]*mockState, 0, length+1)

	state := &mockState{id: tpkg.RandDigest(), chainLength: 0}
	for i := 0; i <= length; i++ {
		states = append(states, state)
		m.Add(state.id, state).Release()
		state = applyBlock(state)
	}

	return states
}

func TestAddAndGet(t *testing.T) {
	m := newTestMultiverse()

	state := &mockState{id: tpkg.RandDigest(), chainLength: 0}
	root := m.Add(state.id, state)
	defer root.Release()

	require.Equal(t, state.id, root.ID())
	require.Equal(t, 1, m.NrStates())

	stored, exists := m.Get(state.id)
	require.True(t, exists)
	require.Same(t, state, stored)

	require.Same(t, state, m.GetFromRoot(root))

	// Unknown identities are a normal miss, not an error.
	_, exists = m.Get(tpkg.RandDigest())
	require.False(t, exists)
}

func TestAddFirstWriteWins(t *testing.T) {
	m := newTestMultiverse()

	id := tpkg.RandDigest()
	first := &mockState{id: id, chainLength: 0}
	second := &mockState{id: id, chainLength: 0}

	rootA := m.Add(id, first)
	defer rootA.Release()
	rootB := m.Add(id, second)
	defer rootB.Release()

	// The duplicate announcement did not displace the stored state.
	require.Equal(t, 1, m.NrStates())
	stored, exists := m.Get(id)
	require.True(t, exists)
	require.Same(t, first, stored)
}

func TestGetFromRootForeignStore(t *testing.T) {
	a := newTestMultiverse()
	b := newTestMultiverse()

	state := &mockState{id: tpkg.RandDigest(), chainLength: 0}
	root := a.Add(state.id, state)
	defer root.Release()

	require.Panics(t, func() {
		b.GetFromRoot(root)
	})
}

func TestPinUnknownState(t *testing.T) {
	m := newTestMultiverse()

	_, err := m.Pin(tpkg.RandDigest())
	require.ErrorIs(t, err, multiverse.ErrStateNotFound)
}

func TestPinProtectsFromCollection(t *testing.T) {
	m := newTestMultiverse()

	states := buildChain(m, 200)

	pinned := states[10]
	root, err := m.Pin(pinned.id)
	require.NoError(t, err)

	m.GC()

	// The pinned state survives even though its bucket is far behind the tip.
	stored, exists := m.Get(pinned.id)
	require.True(t, exists)
	require.Same(t, pinned, stored)

	// Its unpinned neighbors of the same age do not.
	_, exists = m.Get(states[11].id)
	require.False(t, exists)

	// A released pin makes the state eligible on the next pass.
	root.Release()
	m.GC()
	_, exists = m.Get(pinned.id)
	require.False(t, exists)
}

func TestPinReferenceCounting(t *testing.T) {
	m := newTestMultiverse()

	states := buildChain(m, 200)

	pinned := states[20]
	rootA, err := m.Pin(pinned.id)
	require.NoError(t, err)
	rootB, err := m.Pin(pinned.id)
	require.NoError(t, err)

	rootA.Release()
	rootA.Release() // Release is idempotent per root.
	m.GC()

	_, exists := m.Get(pinned.id)
	require.True(t, exists)

	rootB.Release()
	m.GC()

	_, exists = m.Get(pinned.id)
	require.False(t, exists)
}

func TestReleasedRootStillResolvesWhileStored(t *testing.T) {
	m := newTestMultiverse()

	state := &mockState{id: tpkg.RandDigest(), chainLength: 0}
	root := m.Add(state.id, state)
	root.Release()

	// The pin is gone but the state is still stored, so the root resolves.
	require.Same(t, state, m.GetFromRoot(root))
}

func TestSuffixWindowIsRetained(t *testing.T) {
	m := multiverse.New[*mockState](log.NewLogger(), multiverse.WithSuffixToKeep[*mockState](10))

	states := buildChain(m, 100)
	m.GC()

	// Everything within the window behind the tip is still there.
	for _, state := range states[90:] {
		_, exists := m.Get(state.id)
		require.True(t, exists)
	}

	// Genesis is the first retained checkpoint.
	_, exists := m.Get(states[0].id)
	require.True(t, exists)
}

// TestChainGrowth replays the reference scenario: a single branch of 10,001
// blocks, collecting after every insertion and holding no root beyond the most
// recent one. The store must keep no more than the suffix window plus a
// logarithmic number of checkpoints.
func TestChainGrowth(t *testing.T) {
	m := newTestMultiverse()

	genesis := &mockState{id: tpkg.RandDigest(), chainLength: 0}
	m.Add(genesis.id, genesis).Release()

	state := genesis
	var root *multiverse.GCRoot
	for i := 1; i <= 10000; i++ {
		state = applyBlock(state)
		require.Equal(t, uint32(i), state.ChainLength())

		if root != nil {
			root.Release()
		}
		root = m.Add(state.id, state)

		m.GC()

		require.LessOrEqual(t, m.NrStates(), multiverse.SuffixToKeep+bits.Len(uint(i))-1)
	}
	root.Release()
}

func TestConcurrentPinning(t *testing.T) {
	m := newTestMultiverse()

	state := &mockState{id: tpkg.RandDigest(), chainLength: 0}
	m.Add(state.id, state).Release()

	var wg sync.WaitGroup
	for worker := 0; worker < 8; worker++ {
		wg.Add(1)
		go func() {
			defer wg.Done()

			for i := 0; i < 1000; i++ {
				root, err := m.Pin(state.id)
				require.NoError(t, err)
				require.Same(t, state, m.GetFromRoot(root))
				root.Release()
			}
		}()
	}
	wg.Wait()

	// All pins are gone again; a root acquired now is the only one.
	root, err := m.Pin(state.id)
	require.NoError(t, err)
	root.Release()
}
