package utxoledger

import (
	"github.com/iotaledger/chainstate/pkg/core/hamt"
	"github.com/iotaledger/chainstate/pkg/model"
)

// Iterator yields every unspent output of one ledger version: transactions in
// trie order, outputs in index order within a transaction. The version is
// immutable, so a cursor stays valid for as long as it is held; every call to
// Iterate starts a fresh sequence.
type Iterator[O any] struct {
	outer         *hamt.Iterator[model.Digest, *TransactionUnspents[O]]
	transactionID model.Digest
	unspents      *TransactionUnspents[O]
	position      int
}

// Iterate returns a fresh cursor over all entries of the ledger.
func (l *Ledger[O]) Iterate() *Iterator[O] {
	return &Iterator[O]{outer: l.unspents.Iterate()}
}

// Next returns the next entry, or false once the sequence is exhausted.
func (i *Iterator[O]) Next() (*Entry[O], bool) {
	for {
		if i.unspents != nil && i.position < len(i.unspents.outputs) {
			output := i.unspents.outputs[i.position]
			i.position++

			return &Entry[O]{TransactionID: i.transactionID, OutputIndex: output.Index, Output: output.Output}, true
		}

		transactionID, unspents, exists := i.outer.Next()
		if !exists {
			return nil, false
		}

		i.transactionID, i.unspents, i.position = transactionID, unspents, 0
	}
}

// ValueIterator yields the outputs only, in the same order as Iterator.
type ValueIterator[O any] struct {
	inner Iterator[O]
}

// Values returns a fresh cursor over all outputs of the ledger.
func (l *Ledger[O]) Values() *ValueIterator[O] {
	return &ValueIterator[O]{inner: Iterator[O]{outer: l.unspents.Iterate()}}
}

// Next returns the next output, or false once the sequence is exhausted.
func (v *ValueIterator[O]) Next() (O, bool) {
	entry, exists := v.inner.Next()
	if !exists {
		var zero O

		return zero, false
	}

	return entry.Output, true
}
