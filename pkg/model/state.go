package model

// State is the view the state store has of a ledger snapshot: an immutable
// value produced by applying a block to its parent snapshot. How a State is
// produced (block application, validation) is the caller's concern.
type State interface {
	// ChainLength returns the distance of the snapshot's block from genesis.
	// It grows by exactly one from parent to child along a single branch.
	ChainLength() uint32
}
