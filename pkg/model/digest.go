package model

import (
	"bytes"
	"encoding/binary"

	"github.com/mr-tron/base58"
	"golang.org/x/crypto/blake2b"

	"github.com/iotaledger/hive.go/ierrors"
	"github.com/iotaledger/hive.go/lo"
)

// DigestLength is the byte length of a Digest.
const DigestLength = blake2b.Size256

// Digest is the fixed-size identifier under which blocks and transactions are
// tracked. It is an opaque value type: this module never looks inside it
// beyond ordering, equality and hashing over its bytes.
type Digest [DigestLength]byte

// EmptyDigest is the zero value of a Digest.
var EmptyDigest = Digest{}

// DigestFromData returns the Digest of the given data.
func DigestFromData(data []byte) Digest {
	return blake2b.Sum256(data)
}

// DigestFromBytes parses a Digest from a byte slice and returns the number of
// bytes consumed.
func DigestFromBytes(b []byte) (Digest, int, error) {
	if len(b) < DigestLength {
		return EmptyDigest, 0, ierrors.Errorf("invalid digest length: expected %d, got %d", DigestLength, len(b))
	}

	return Digest(b), DigestLength, nil
}

// DigestFromBase58 parses a Digest from its base58 representation.
func DigestFromBase58(s string) (Digest, error) {
	decoded, err := base58.Decode(s)
	if err != nil {
		return EmptyDigest, ierrors.Wrapf(err, "failed to decode base58 digest %s", s)
	}

	if len(decoded) != DigestLength {
		return EmptyDigest, ierrors.Errorf("invalid digest length: expected %d, got %d", DigestLength, len(decoded))
	}

	digest, _, err := DigestFromBytes(decoded)

	return digest, err
}

// MustDigestFromBase58 parses a Digest from its base58 representation and
// panics on malformed input.
func MustDigestFromBase58(s string) Digest {
	return lo.PanicOnErr(DigestFromBase58(s))
}

// Bytes returns a serialized version of the Digest.
func (d Digest) Bytes() ([]byte, error) {
	return d[:], nil
}

// Compare orders two Digests over their raw bytes.
func (d Digest) Compare(other Digest) int {
	return bytes.Compare(d[:], other[:])
}

// Empty reports whether the Digest is the zero value.
func (d Digest) Empty() bool {
	return d == EmptyDigest
}

// TrieHash folds the Digest into the 64-bit key hash consumed by the
// persistent trie. The digest is itself the output of a hash function, so its
// prefix is uniformly distributed already.
func (d Digest) TrieHash() uint64 {
	return binary.LittleEndian.Uint64(d[:8])
}

func (d Digest) String() string {
	return base58.Encode(d[:])
}
