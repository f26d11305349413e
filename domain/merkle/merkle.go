package merkle

import (
	"github.com/lucasbalieiro/cpuminer-stratum-v2/domain/hashes"
)

// hashMerkleBranches takes two hashes, treated as the left and right tree
// nodes, and returns the double hash of their concatenation.
func hashMerkleBranches(left, right *hashes.Hash) hashes.Hash {
	writer := hashes.NewDoubleHashWriter()
	writer.InfallibleWrite(left[:])
	writer.InfallibleWrite(right[:])
	return writer.Finalize()
}

// CalculateRoot folds the given transactions into a single merkle root.
//
// Every transaction is double hashed into a leaf, then each level is built
// by hashing the concatenation of adjacent pairs. When a level has an odd
// number of nodes the last node is paired with itself. An empty transaction
// list has the zero hash as its root.
func CalculateRoot(transactions [][]byte) hashes.Hash {
	if len(transactions) == 0 {
		return hashes.ZeroHash
	}

	level := make([]hashes.Hash, len(transactions))
	for i, transaction := range transactions {
		level[i] = hashes.DoubleHash(transaction)
	}

	for len(level) > 1 {
		nextLevel := make([]hashes.Hash, 0, (len(level)+1)/2)
		for i := 0; i < len(level); i += 2 {
			left := &level[i]
			right := left
			if i+1 < len(level) {
				right = &level[i+1]
			}
			nextLevel = append(nextLevel, hashMerkleBranches(left, right))
		}
		level = nextLevel
	}

	return level[0]
}
