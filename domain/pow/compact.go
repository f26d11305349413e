package pow

import (
	"github.com/lucasbalieiro/cpuminer-stratum-v2/domain/hashes"
)

const (
	compactCoefficientMask = 0x007fffff
	compactExponentShift   = 24
)

// CompactToTarget converts a compact representation of a whole number N to
// the 256-bit target it stands for. The representation is similar to IEEE754
// floating point numbers: the most significant 8 bits are the base-256
// exponent and the remaining 23 bits are the coefficient. The sign bit
// (0x00800000) is ignored, since targets are unsigned.
//
//	-------------------------------------------------
//	|   Exponent     |    Sign    |    Mantissa     |
//	-------------------------------------------------
//	| 8 bits [31-24] | 1 bit [23] | 23 bits [22-00] |
//	-------------------------------------------------
//
// Coefficient bytes that the exponent places outside the 32-byte target are
// dropped, which truncates precision for pathological exponents (34 and up)
// rather than reporting an error.
func CompactToTarget(bits uint32) Uint256 {
	exponent := int(bits >> compactExponentShift)
	coefficient := bits & compactCoefficientMask

	var target Uint256
	if exponent <= 3 {
		coefficient >>= 8 * uint(3-exponent)
		target[31] = byte(coefficient)
		if exponent > 1 {
			target[30] = byte(coefficient >> 8)
		}
		if exponent > 2 {
			target[29] = byte(coefficient >> 16)
		}
		return target
	}

	index := Uint256Size - exponent
	coefficientBytes := [3]byte{byte(coefficient >> 16), byte(coefficient >> 8), byte(coefficient)}
	for i, b := range coefficientBytes {
		position := index + i
		if position < 0 || position >= Uint256Size {
			continue
		}
		target[position] = b
	}
	return target
}

// CheckProofOfWork returns true iff the given hash, read as a 256-bit number,
// does not exceed target.
func CheckProofOfWork(hash *hashes.Hash, target *Uint256) bool {
	value := FromHash(hash)
	return value.LessOrEqual(target)
}
