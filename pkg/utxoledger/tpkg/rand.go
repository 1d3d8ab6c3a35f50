package tpkg

import (
	"crypto/rand"
	"encoding/binary"

	"github.com/iotaledger/hive.go/ierrors"
	"github.com/iotaledger/hive.go/serializer/v2/marshalutil"

	"github.com/iotaledger/chainstate/pkg/model"
	"github.com/iotaledger/chainstate/pkg/utxoledger"
)

// Output is a minimal output record for tests: an amount locked to an opaque
// address. The ledger itself never looks inside its output type.
type Output struct {
	Address []byte
	Amount  uint64
}

func RandBytes(length int) []byte {
	b := make([]byte, length)
	if _, err := rand.Read(b); err != nil {
		panic(err)
	}

	return b
}

func RandDigest() model.Digest {
	return model.DigestFromData(RandBytes(model.DigestLength))
}

func RandAmount() uint64 {
	return binary.LittleEndian.Uint64(RandBytes(8))
}

func RandOutput() *Output {
	return &Output{
		Address: RandBytes(32),
		Amount:  RandAmount(),
	}
}

// RandOutputs produces count outputs indexed 0..count-1.
func RandOutputs(count int) []utxoledger.IndexedOutput[*Output] {
	outputs := make([]utxoledger.IndexedOutput[*Output], 0, count)
	for i := 0; i < count; i++ {
		outputs = append(outputs, utxoledger.IndexedOutput[*Output]{
			Index:  utxoledger.OutputIndex(i),
			Output: RandOutput(),
		})
	}

	return outputs
}

func OutputEqual(a, b *Output) bool {
	return a.Amount == b.Amount && string(a.Address) == string(b.Address)
}

func OutputBytes(o *Output) ([]byte, error) {
	m := marshalutil.New()
	m.WriteUint32(uint32(len(o.Address)))
	m.WriteBytes(o.Address)
	m.WriteUint64(o.Amount)

	return m.Bytes(), nil
}

func OutputFromBytes(b []byte) (*Output, error) {
	m := marshalutil.New(b)

	addressLength, err := m.ReadUint32()
	if err != nil {
		return nil, ierrors.Wrap(err, "failed to read address length")
	}

	address, err := m.ReadBytes(int(addressLength))
	if err != nil {
		return nil, ierrors.Wrap(err, "failed to read address")
	}

	amount, err := m.ReadUint64()
	if err != nil {
		return nil, ierrors.Wrap(err, "failed to read amount")
	}

	return &Output{Address: address, Amount: amount}, nil
}
