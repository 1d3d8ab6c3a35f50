package utxoledger

import (
	"github.com/iotaledger/hive.go/ierrors"
	"github.com/iotaledger/hive.go/lo"

	"github.com/iotaledger/chainstate/pkg/core/hamt"
	"github.com/iotaledger/chainstate/pkg/model"
)

// Ledger is the persistent set of unspent transaction outputs a snapshot's
// balance state is derived from. It is a value type in the persistent sense:
// Add, Remove and RemoveMultiple return a new Ledger and leave the receiver
// untouched, with both versions sharing all unmodified structure. The output
// type O is opaque to the ledger.
type Ledger[O any] struct {
	unspents *hamt.Map[model.Digest, *TransactionUnspents[O]]
}

// New creates an empty Ledger.
func New[O any]() *Ledger[O] {
	return &Ledger[O]{
		unspents: hamt.New[model.Digest, *TransactionUnspents[O]](model.Digest.TrieHash),
	}
}

// TransactionOutputs pairs a transaction with its unspent outputs, as consumed
// by NewFromOutputs and produced by trusted reconstruction paths.
type TransactionOutputs[O any] struct {
	TransactionID model.Digest
	Outputs       []IndexedOutput[O]
}

// NewFromOutputs folds Add over an empty Ledger. It panics on the first
// duplicate transaction and is therefore only suitable for trusted internal
// reconstruction, never for untrusted input.
func NewFromOutputs[O any](transactions ...TransactionOutputs[O]) *Ledger[O] {
	ledger := New[O]()
	for _, transaction := range transactions {
		ledger = lo.PanicOnErr(ledger.Add(transaction.TransactionID, transaction.Outputs))
	}

	return ledger
}

// Add returns a new Ledger that additionally holds the given outputs under
// transactionID. It fails with ErrAlreadyExists if the transaction already
// has an entry; existing entries are never overwritten. Passing the same
// output index twice in one call violates the caller contract; the last
// occurrence wins.
func (l *Ledger[O]) Add(transactionID model.Digest, outputs []IndexedOutput[O]) (*Ledger[O], error) {
	next, err := l.unspents.Insert(transactionID, newTransactionUnspents(outputs))
	if err != nil {
		return nil, ierrors.Wrapf(ErrAlreadyExists, "transaction %s", transactionID)
	}

	return &Ledger[O]{unspents: next}, nil
}

// Remove spends a single output index of the given transaction and returns the
// new Ledger together with the spent output. Removing the last remaining index
// drops the transaction's entry entirely as part of the same version
// transition.
func (l *Ledger[O]) Remove(transactionID model.Digest, index OutputIndex) (*Ledger[O], O, error) {
	var zero O

	unspents, exists := l.unspents.Lookup(transactionID)
	if !exists {
		return nil, zero, ierrors.Wrapf(ErrTransactionNotFound, "transaction %s", transactionID)
	}

	remaining, output, err := unspents.remove(index)
	if err != nil {
		return nil, zero, ierrors.Wrapf(err, "transaction %s, index %d", transactionID, index)
	}

	next, err := l.withUnspents(transactionID, remaining)
	if err != nil {
		return nil, zero, err
	}

	return next, output, nil
}

// RemoveMultiple spends several output indexes of one transaction as a single
// logical step: if any index is missing the whole call fails and the receiver
// remains the only observable version.
func (l *Ledger[O]) RemoveMultiple(transactionID model.Digest, indexes []OutputIndex) (*Ledger[O], []O, error) {
	unspents, exists := l.unspents.Lookup(transactionID)
	if !exists {
		return nil, nil, ierrors.Wrapf(ErrTransactionNotFound, "transaction %s", transactionID)
	}

	outputs := make([]O, 0, len(indexes))
	remaining := unspents
	for _, index := range indexes {
		var output O
		var err error
		if remaining, output, err = remaining.remove(index); err != nil {
			return nil, nil, ierrors.Wrapf(err, "transaction %s, index %d", transactionID, index)
		}

		outputs = append(outputs, output)
	}

	next, err := l.withUnspents(transactionID, remaining)
	if err != nil {
		return nil, nil, err
	}

	return next, outputs, nil
}

// withUnspents produces the ledger version that holds the given remaining
// unspents for an existing transaction, pruning the outer entry when the
// transaction has no outputs left.
func (l *Ledger[O]) withUnspents(transactionID model.Digest, remaining *TransactionUnspents[O]) (*Ledger[O], error) {
	if remaining.isEmpty() {
		next, _, err := l.unspents.Delete(transactionID)
		if err != nil {
			panic(ierrors.Wrapf(err, "transaction %s found by lookup but not by delete", transactionID))
		}

		return &Ledger[O]{unspents: next}, nil
	}

	next, err := l.unspents.Update(transactionID, remaining)
	if err != nil {
		panic(ierrors.Wrapf(err, "transaction %s found by lookup but not by update", transactionID))
	}

	return &Ledger[O]{unspents: next}, nil
}

// Get returns the unspent output stored under the given coordinates. Absence
// is a normal outcome, not an error.
func (l *Ledger[O]) Get(transactionID model.Digest, index OutputIndex) (*Entry[O], bool) {
	unspents, exists := l.unspents.Lookup(transactionID)
	if !exists {
		return nil, false
	}

	output, exists := unspents.get(index)
	if !exists {
		return nil, false
	}

	return &Entry[O]{TransactionID: transactionID, OutputIndex: index, Output: output}, true
}

// Size returns the number of transactions that still have unspent outputs.
func (l *Ledger[O]) Size() int {
	return l.unspents.Size()
}

// NumOutputs returns the total number of unspent outputs across all
// transactions.
func (l *Ledger[O]) NumOutputs() (count int) {
	l.unspents.ForEach(func(_ model.Digest, unspents *TransactionUnspents[O]) bool {
		count += unspents.size()

		return true
	})

	return count
}

// ForEachEntry calls the consumer for every unspent output until it returns
// false. The order matches Iterate.
func (l *Ledger[O]) ForEachEntry(consumer func(*Entry[O]) bool) {
	l.unspents.ForEach(func(transactionID model.Digest, unspents *TransactionUnspents[O]) bool {
		for _, output := range unspents.outputs {
			if !consumer(&Entry[O]{TransactionID: transactionID, OutputIndex: output.Index, Output: output.Output}) {
				return false
			}
		}

		return true
	})
}

// Equal reports whether two ledger versions hold the same content under the
// given output equality. Versions that share their root structurally compare
// cheaply.
func (l *Ledger[O]) Equal(other *Ledger[O], outputEqual func(a, b O) bool) bool {
	return l.unspents.Equal(other.unspents, func(a, b *TransactionUnspents[O]) bool {
		return a.equal(b, outputEqual)
	})
}
