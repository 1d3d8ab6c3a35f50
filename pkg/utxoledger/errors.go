package utxoledger

import "github.com/iotaledger/hive.go/ierrors"

var (
	// ErrAlreadyExists is returned when adding outputs for a transaction that
	// already has an entry in the ledger.
	ErrAlreadyExists = ierrors.New("transaction already exists in the ledger")

	// ErrTransactionNotFound is returned when spending from a transaction that
	// has no entry in the ledger.
	ErrTransactionNotFound = ierrors.New("transaction not found in the ledger")

	// ErrIndexNotFound is returned when spending an output index that is not
	// present for an existing transaction.
	ErrIndexNotFound = ierrors.New("output index not found")
)
