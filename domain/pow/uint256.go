package pow

import (
	"bytes"
	"encoding/hex"
	"math/big"

	"github.com/lucasbalieiro/cpuminer-stratum-v2/domain/hashes"
)

// Uint256Size is the number of bytes in a Uint256
const Uint256Size = 32

// Uint256 is a 256-bit unsigned integer stored big-endian: index 0 holds the
// most significant byte. Because of that, the lexicographic order of the
// underlying arrays is the numeric order.
type Uint256 [Uint256Size]byte

// FromHash interprets the given hash as a 256-bit number. Hashes are stored
// least significant byte first, so the bytes are reversed.
func FromHash(hash *hashes.Hash) Uint256 {
	var value Uint256
	for i, b := range hash {
		value[Uint256Size-1-i] = b
	}
	return value
}

// Cmp compares x and y and returns:
//
//	-1 if x <  y
//	 0 if x == y
//	+1 if x >  y
func (x *Uint256) Cmp(y *Uint256) int {
	return bytes.Compare(x[:], y[:])
}

// LessOrEqual returns true iff x <= y
func (x *Uint256) LessOrEqual(y *Uint256) bool {
	return x.Cmp(y) <= 0
}

// IsZero returns true iff x is zero
func (x *Uint256) IsZero() bool {
	return *x == Uint256{}
}

// Big returns x as a big.Int
func (x *Uint256) Big() *big.Int {
	return new(big.Int).SetBytes(x[:])
}

// String returns x as a zero-padded 64 character hex string
func (x Uint256) String() string {
	return hex.EncodeToString(x[:])
}
