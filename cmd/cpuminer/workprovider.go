package main

import (
	"bytes"
	"encoding/hex"

	"github.com/lucasbalieiro/cpuminer-stratum-v2/domain/merkle"
	"github.com/lucasbalieiro/cpuminer-stratum-v2/mining"
	"github.com/lucasbalieiro/cpuminer-stratum-v2/wire"
	"github.com/pkg/errors"
)

// parseHeader decodes a hex encoded serialized block header.
func parseHeader(headerHex string) (*wire.BlockHeader, error) {
	serialized, err := hex.DecodeString(headerHex)
	if err != nil {
		return nil, errors.Wrap(err, "block header is not valid hex")
	}
	if len(serialized) != wire.BlockHeaderSize {
		return nil, errors.Errorf("block header is %d bytes, want %d", len(serialized), wire.BlockHeaderSize)
	}
	header := &wire.BlockHeader{}
	err = header.Deserialize(bytes.NewReader(serialized))
	if err != nil {
		return nil, err
	}
	return header, nil
}

// newWorkProvider returns a provider serving the configured header. If
// transactions were given, their merkle root replaces the header's.
func newWorkProvider(cfg *configFlags) (mining.WorkProvider, error) {
	header, err := parseHeader(cfg.Header)
	if err != nil {
		return nil, err
	}

	if len(cfg.Transactions) > 0 {
		transactions := make([][]byte, len(cfg.Transactions))
		for i, transactionHex := range cfg.Transactions {
			transactions[i], err = hex.DecodeString(transactionHex)
			if err != nil {
				return nil, errors.Wrapf(err, "transaction #%d is not valid hex", i)
			}
		}
		header.MerkleRoot = merkle.CalculateRoot(transactions)
		log.Infof("Using merkle root %s of %d transactions", header.MerkleRoot, len(transactions))
	}

	return mining.NewStaticWorkProvider(header), nil
}
