package main

import (
	"encoding/hex"
	"strings"
	"testing"

	"github.com/lucasbalieiro/cpuminer-stratum-v2/domain/merkle"
)

func TestParseHeader(t *testing.T) {
	header, err := parseHeader(block1HeaderHex)
	if err != nil {
		t.Fatalf("parseHeader: unexpected error %+v", err)
	}
	if header.Nonce != 0x9962e301 || header.Bits != 0x1d00ffff || header.Version != 1 {
		t.Errorf("parseHeader: got %+v", header)
	}
	wantHash := "00000000839a8e6886ab5951d76f411475428afc90947ee320161bbf18eb6048"
	if hash := header.BlockHash(); hash.String() != wantHash {
		t.Errorf("parseHeader: got hash %s, want %s", hash, wantHash)
	}

	invalid := []string{
		"",
		"zz" + block1HeaderHex[2:],
		block1HeaderHex[:len(block1HeaderHex)-2],
		block1HeaderHex + "00",
		// Version 0x00000100 doesn't fit in 8 bits.
		"00010000" + block1HeaderHex[8:],
	}
	for _, headerHex := range invalid {
		_, err := parseHeader(headerHex)
		if err == nil {
			t.Errorf("parseHeader(%q): expected an error", headerHex)
		}
	}
}

func TestNewWorkProvider(t *testing.T) {
	cfg := newConfigFlags()
	cfg.Header = block1HeaderHex
	provider, err := newWorkProvider(cfg)
	if err != nil {
		t.Fatalf("newWorkProvider: unexpected error %+v", err)
	}
	header, err := provider.GetWork()
	if err != nil {
		t.Fatalf("GetWork: unexpected error %v", err)
	}
	wantRoot := "982051fd1e4ba744bbbe680e1fee14677ba1a3c3540bf7b1cdb606e857233e0e"
	if hex.EncodeToString(header.MerkleRoot[:]) != wantRoot {
		t.Errorf("GetWork: merkle root changed without transactions - got %x", header.MerkleRoot[:])
	}

	transactions := [][]byte{{0x01, 0x02}, {0x03}, {0x04, 0x05, 0x06}}
	cfg.Transactions = make([]string, len(transactions))
	for i, transaction := range transactions {
		cfg.Transactions[i] = hex.EncodeToString(transaction)
	}
	provider, err = newWorkProvider(cfg)
	if err != nil {
		t.Fatalf("newWorkProvider: unexpected error %+v", err)
	}
	header, err = provider.GetWork()
	if err != nil {
		t.Fatalf("GetWork: unexpected error %v", err)
	}
	if header.MerkleRoot != merkle.CalculateRoot(transactions) {
		t.Errorf("GetWork: got merkle root %s, want the root of the transactions", header.MerkleRoot)
	}

	cfg.Transactions = []string{strings.Repeat("g", 4)}
	_, err = newWorkProvider(cfg)
	if err == nil {
		t.Errorf("newWorkProvider: expected an error for a transaction that isn't hex")
	}
}
