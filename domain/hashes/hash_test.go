package hashes

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"testing"
)

// TestDoubleHash checks DoubleHash against known vectors and against a
// digest-of-digest computed directly.
func TestDoubleHash(t *testing.T) {
	tests := []struct {
		in  string
		out string // hex of the hash bytes in produced order
	}{
		{
			in:  "hello world",
			out: "bc62d4b80d9e36da29c16c5d4d9f11731f36052c72401a76c23c0fb5a9b74423",
		},
		{
			in:  "",
			out: "5df6e0e2761359d30a8275058e299fcc0381534545f55cf43e41983f5d4c9456",
		},
	}

	for i, test := range tests {
		got := DoubleHash([]byte(test.in))
		if hex.EncodeToString(got[:]) != test.out {
			t.Errorf("DoubleHash #%d: wrong hash - got %x, want %s", i, got[:], test.out)
		}

		first := sha256.Sum256([]byte(test.in))
		want := sha256.Sum256(first[:])
		if got != Hash(want) {
			t.Errorf("DoubleHash #%d: not a digest of a digest - got %x, want %x", i, got[:], want[:])
		}

		if again := DoubleHash([]byte(test.in)); again != got {
			t.Errorf("DoubleHash #%d: not deterministic - got %x, then %x", i, got[:], again[:])
		}
	}
}

// TestDoubleHashWriter ensures the incremental writer agrees with DoubleHash
// regardless of how the input is split.
func TestDoubleHashWriter(t *testing.T) {
	data := bytes.Repeat([]byte{0x01, 0x02, 0x03, 0xfe}, 37)
	want := DoubleHash(data)

	for _, split := range []int{0, 1, 31, 64, len(data)} {
		writer := NewDoubleHashWriter()
		writer.InfallibleWrite(data[:split])
		writer.InfallibleWrite(data[split:])
		got := writer.Finalize()
		if got != want {
			t.Errorf("DoubleHashWriter split at %d: got %s, want %s", split, got, want)
		}
	}
}

// TestHashString tests the stringized output for hashes.
func TestHashString(t *testing.T) {
	// Block 100000 hash.
	wantStr := "000000000003ba27aa200b1cecaad478d2b00432346c3f1f3986da1afd33e506"
	hash := Hash([HashSize]byte{
		0x06, 0xe5, 0x33, 0xfd, 0x1a, 0xda, 0x86, 0x39,
		0x1f, 0x3f, 0x6c, 0x34, 0x32, 0x04, 0xb0, 0xd2,
		0x78, 0xd4, 0xaa, 0xec, 0x1c, 0x0b, 0x20, 0xaa,
		0x27, 0xba, 0x03, 0x00, 0x00, 0x00, 0x00, 0x00,
	})

	hashStr := hash.String()
	if hashStr != wantStr {
		t.Errorf("String: wrong hash string - got %v, want %v",
			hashStr, wantStr)
	}

	parsed, err := FromString(wantStr)
	if err != nil {
		t.Fatalf("FromString: unexpected error %v", err)
	}
	if !parsed.IsEqual(&hash) {
		t.Errorf("FromString: wrong hash - got %v, want %v", parsed, hash)
	}
}

// TestHashSetBytes covers the size checks of SetBytes and FromBytes.
func TestHashSetBytes(t *testing.T) {
	buf := bytes.Repeat([]byte{0xab}, HashSize)
	hash, err := FromBytes(buf)
	if err != nil {
		t.Fatalf("FromBytes: unexpected error %v", err)
	}
	if !bytes.Equal(hash.CloneBytes(), buf) {
		t.Errorf("FromBytes: hash contents mismatch - got %x, want %x", hash[:], buf)
	}

	err = hash.SetBytes([]byte{0x00})
	if err == nil {
		t.Errorf("SetBytes: failed to receive expected err - got: nil")
	}

	_, err = FromBytes(make([]byte, HashSize+1))
	if err == nil {
		t.Errorf("FromBytes: failed to receive expected err - got: nil")
	}

	if !(*Hash)(nil).IsEqual(nil) {
		t.Error("IsEqual: nil hashes should match")
	}
	if hash.IsEqual(nil) {
		t.Error("IsEqual: non-nil hash matches nil hash")
	}
}

func TestFromStringTooLong(t *testing.T) {
	_, err := FromString(string(bytes.Repeat([]byte{'a'}, MaxHashStringSize+1)))
	if err != ErrHashStrSize {
		t.Errorf("FromString: got error %v, want %v", err, ErrHashStrSize)
	}
}
