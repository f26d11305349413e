package wire

import (
	"bytes"
	"io"

	"github.com/lucasbalieiro/cpuminer-stratum-v2/domain/hashes"
)

// BlockHeaderSize is the number of bytes a serialized block header takes.
// Version 4 bytes + PrevBlockHash 32 bytes + MerkleRoot 32 bytes +
// Timestamp 4 bytes + Bits 4 bytes + Nonce 4 bytes.
const BlockHeaderSize = 4 + hashes.HashSize + hashes.HashSize + 4 + 4 + 4

// NonceOffset is where the nonce starts within a serialized header.
const NonceOffset = BlockHeaderSize - 4

// BlockHeader defines the information about a block that is hashed to prove
// work.
type BlockHeader struct {
	// Version of the block. It is widened to 32 bits on the wire.
	Version uint8

	// Hash of the previous block header.
	PrevBlockHash hashes.Hash

	// Merkle tree reference to hash of all transactions for the block.
	MerkleRoot hashes.Hash

	// Time the block was created, as a unix timestamp.
	Timestamp uint32

	// Difficulty target for the block, in compact form.
	Bits uint32

	// Nonce used to generate the block.
	Nonce uint32
}

// NewBlockHeader returns a new BlockHeader using the provided fields.
func NewBlockHeader(version uint8, prevBlockHash, merkleRoot *hashes.Hash, timestamp, bits, nonce uint32) *BlockHeader {
	return &BlockHeader{
		Version:       version,
		PrevBlockHash: *prevBlockHash,
		MerkleRoot:    *merkleRoot,
		Timestamp:     timestamp,
		Bits:          bits,
		Nonce:         nonce,
	}
}

// BlockHash computes the block identifier hash for the given block header.
func (h *BlockHeader) BlockHash() hashes.Hash {
	writer := hashes.NewDoubleHashWriter()
	// A hash writer never fails, so neither can the serialization.
	_ = h.Serialize(writer)
	return writer.Finalize()
}

// TemplateID identifies the work a header represents regardless of the
// nonce: it is the double hash of every serialized field but the nonce.
func (h *BlockHeader) TemplateID() hashes.Hash {
	serialized := h.Bytes()
	return hashes.DoubleHash(serialized[:NonceOffset])
}

// Bytes returns the 80 byte serialization of the header.
func (h *BlockHeader) Bytes() []byte {
	buf := bytes.NewBuffer(make([]byte, 0, BlockHeaderSize))
	// Writing to a bytes.Buffer never fails.
	_ = h.Serialize(buf)
	return buf.Bytes()
}

// Serialize encodes the block header to w.
func (h *BlockHeader) Serialize(w io.Writer) error {
	return writeElements(w, uint32(h.Version), &h.PrevBlockHash, &h.MerkleRoot,
		h.Timestamp, h.Bits, h.Nonce)
}

// Deserialize decodes a block header from r into the receiver. A version
// above 255 doesn't fit the logical field and is rejected.
func (h *BlockHeader) Deserialize(r io.Reader) error {
	var version uint32
	err := readElements(r, &version, &h.PrevBlockHash, &h.MerkleRoot,
		&h.Timestamp, &h.Bits, &h.Nonce)
	if err != nil {
		return err
	}
	if version > 0xff {
		return messageError("BlockHeader.Deserialize", "version doesn't fit in 8 bits")
	}
	h.Version = uint8(version)
	return nil
}
