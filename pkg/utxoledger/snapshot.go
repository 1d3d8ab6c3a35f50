package utxoledger

import (
	"io"

	"github.com/iotaledger/hive.go/ierrors"
	"github.com/iotaledger/hive.go/serializer/v2/stream"

	"github.com/iotaledger/chainstate/pkg/model"
)

// Export writes every unspent output of this ledger version to the given
// writer. The opaque output type is serialized through outputBytes.
func (l *Ledger[O]) Export(writer io.WriteSeeker, outputBytes func(O) ([]byte, error)) error {
	return stream.WriteCollection(writer, func() (uint64, error) {
		var elementsCount uint64

		for it := l.Iterate(); ; {
			entry, exists := it.Next()
			if !exists {
				break
			}

			if err := stream.Write(writer, entry.TransactionID); err != nil {
				return 0, ierrors.Wrapf(err, "failed to write transaction id %s", entry.TransactionID)
			}

			if err := stream.Write(writer, entry.OutputIndex); err != nil {
				return 0, ierrors.Wrapf(err, "failed to write output index of transaction %s", entry.TransactionID)
			}

			serialized, err := outputBytes(entry.Output)
			if err != nil {
				return 0, ierrors.Wrapf(err, "failed to serialize output %d of transaction %s", entry.OutputIndex, entry.TransactionID)
			}

			if err := stream.WriteBlob(writer, serialized); err != nil {
				return 0, ierrors.Wrapf(err, "failed to write output %d of transaction %s", entry.OutputIndex, entry.TransactionID)
			}

			elementsCount++
		}

		return elementsCount, nil
	})
}

// ImportLedger reconstructs a Ledger previously written with Export. The input
// is trusted: a duplicate (transaction, index) coordinate fails the import.
func ImportLedger[O any](reader io.ReadSeeker, outputFromBytes func([]byte) (O, error)) (*Ledger[O], error) {
	outputsByID := make(map[model.Digest][]IndexedOutput[O])
	order := make([]model.Digest, 0)

	if err := stream.ReadCollection(reader, func(i int) error {
		transactionID, err := stream.Read[model.Digest](reader)
		if err != nil {
			return ierrors.Wrapf(err, "failed to read transaction id of element %d", i)
		}

		index, err := stream.Read[OutputIndex](reader)
		if err != nil {
			return ierrors.Wrapf(err, "failed to read output index of transaction %s", transactionID)
		}

		serialized, err := stream.ReadBlob(reader)
		if err != nil {
			return ierrors.Wrapf(err, "failed to read output %d of transaction %s", index, transactionID)
		}

		output, err := outputFromBytes(serialized)
		if err != nil {
			return ierrors.Wrapf(err, "failed to deserialize output %d of transaction %s", index, transactionID)
		}

		collected, seen := outputsByID[transactionID]
		if !seen {
			order = append(order, transactionID)
		} else if _, duplicate := positionOfIndex(collected, index); duplicate {
			return ierrors.Errorf("duplicate output index %d for transaction %s", index, transactionID)
		}

		outputsByID[transactionID] = append(collected, IndexedOutput[O]{Index: index, Output: output})

		return nil
	}); err != nil {
		return nil, ierrors.Wrap(err, "failed to import ledger")
	}

	ledger := New[O]()
	for _, transactionID := range order {
		next, err := ledger.Add(transactionID, outputsByID[transactionID])
		if err != nil {
			return nil, ierrors.Wrapf(err, "failed to restore transaction %s", transactionID)
		}

		ledger = next
	}

	return ledger, nil
}
