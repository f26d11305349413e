package mining

import (
	"encoding/binary"

	"github.com/lucasbalieiro/cpuminer-stratum-v2/domain/hashes"
	"github.com/lucasbalieiro/cpuminer-stratum-v2/domain/pow"
	"github.com/lucasbalieiro/cpuminer-stratum-v2/wire"
)

// Mine tries nonces from header.Nonce upwards, wrapping around after
// 0xffffffff, until the header hash is at or below the target its bits
// encode. It returns the winning nonce and hash.
//
// Mine never gives up: if no nonce satisfies the target it loops forever.
// Use Search to bound the work or cancel it.
func Mine(header *wire.BlockHeader) (uint32, hashes.Hash) {
	target := pow.CompactToTarget(header.Bits)
	serialized := header.Bytes()
	nonce := header.Nonce
	for {
		binary.LittleEndian.PutUint32(serialized[wire.NonceOffset:], nonce)
		hash := hashes.DoubleHash(serialized)
		if pow.CheckProofOfWork(&hash, &target) {
			return nonce, hash
		}
		nonce++
	}
}
