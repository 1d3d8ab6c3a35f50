package utxoledger

import (
	"github.com/iotaledger/hive.go/stringify"

	"github.com/iotaledger/chainstate/pkg/model"
)

// Entry is one unspent output together with the coordinates it is stored
// under, as yielded by Get and the iterators.
type Entry[O any] struct {
	TransactionID model.Digest
	OutputIndex   OutputIndex
	Output        O
}

func (e *Entry[O]) String() string {
	return stringify.Struct("Entry",
		stringify.NewStructField("TransactionID", e.TransactionID),
		stringify.NewStructField("OutputIndex", uint8(e.OutputIndex)),
	)
}
