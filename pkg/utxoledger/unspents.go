package utxoledger

import (
	"sort"

	"github.com/iotaledger/hive.go/ierrors"
)

// MaxOutputsPerTransaction bounds the number of outputs a single transaction
// can carry; valid output indexes are in [0, MaxOutputsPerTransaction).
const MaxOutputsPerTransaction = 255

// OutputIndex addresses one output within its transaction.
type OutputIndex uint8

// IndexedOutput is one output together with its index in the transaction.
type IndexedOutput[O any] struct {
	Index  OutputIndex
	Output O
}

// TransactionUnspents holds the outputs of a single transaction that remain
// unspent, ordered by output index. Values are immutable; spending an output
// yields a new value sharing nothing mutable with its predecessor.
type TransactionUnspents[O any] struct {
	outputs []IndexedOutput[O]
}

func newTransactionUnspents[O any](outputs []IndexedOutput[O]) *TransactionUnspents[O] {
	if len(outputs) >= MaxOutputsPerTransaction {
		panic(ierrors.Errorf("transaction cannot carry %d outputs (maximum %d)", len(outputs), MaxOutputsPerTransaction-1))
	}

	collected := make([]IndexedOutput[O], 0, len(outputs))
	for _, output := range outputs {
		if int(output.Index) >= MaxOutputsPerTransaction {
			panic(ierrors.Errorf("output index %d out of range (maximum %d)", output.Index, MaxOutputsPerTransaction-1))
		}

		// Duplicate indexes within one call violate the caller contract; the
		// last occurrence wins.
		if position, exists := positionOfIndex(collected, output.Index); exists {
			collected[position] = output

			continue
		}

		collected = append(collected, output)
	}

	sort.Slice(collected, func(i, j int) bool {
		return collected[i].Index < collected[j].Index
	})

	return &TransactionUnspents[O]{outputs: collected}
}

func positionOfIndex[O any](outputs []IndexedOutput[O], index OutputIndex) (int, bool) {
	for i, output := range outputs {
		if output.Index == index {
			return i, true
		}
	}

	return 0, false
}

func (t *TransactionUnspents[O]) get(index OutputIndex) (O, bool) {
	if position, exists := positionOfIndex(t.outputs, index); exists {
		return t.outputs[position].Output, true
	}

	var zero O

	return zero, false
}

func (t *TransactionUnspents[O]) remove(index OutputIndex) (*TransactionUnspents[O], O, error) {
	position, exists := positionOfIndex(t.outputs, index)
	if !exists {
		var zero O

		return nil, zero, ErrIndexNotFound
	}

	remaining := make([]IndexedOutput[O], 0, len(t.outputs)-1)
	remaining = append(remaining, t.outputs[:position]...)
	remaining = append(remaining, t.outputs[position+1:]...)

	return &TransactionUnspents[O]{outputs: remaining}, t.outputs[position].Output, nil
}

func (t *TransactionUnspents[O]) isEmpty() bool {
	return len(t.outputs) == 0
}

func (t *TransactionUnspents[O]) size() int {
	return len(t.outputs)
}

func (t *TransactionUnspents[O]) equal(other *TransactionUnspents[O], outputEqual func(a, b O) bool) bool {
	if len(t.outputs) != len(other.outputs) {
		return false
	}

	for i, output := range t.outputs {
		if output.Index != other.outputs[i].Index || !outputEqual(output.Output, other.outputs[i].Output) {
			return false
		}
	}

	return true
}
