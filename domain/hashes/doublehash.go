package hashes

import (
	"crypto/sha256"
	"hash"

	"github.com/pkg/errors"
)

// DoubleHash calculates SHA-256(SHA-256(data)) and returns the resulting
// bytes as a Hash.
func DoubleHash(data []byte) Hash {
	first := sha256.Sum256(data)
	return sha256.Sum256(first[:])
}

// DoubleHashWriter is used to incrementally double hash data without
// concatenating all of the data to a single buffer.
// DoubleHashWriter.Write(slice).Finalize() == DoubleHash(slice)
type DoubleHashWriter struct {
	inner hash.Hash
}

// NewDoubleHashWriter returns a new DoubleHashWriter
func NewDoubleHashWriter() *DoubleHashWriter {
	return &DoubleHashWriter{sha256.New()}
}

// Write will always return (len(p), nil)
func (h *DoubleHashWriter) Write(p []byte) (n int, err error) {
	return h.inner.Write(p)
}

// InfallibleWrite is just like Write but doesn't return anything
func (h *DoubleHashWriter) InfallibleWrite(p []byte) {
	// hash.Hash promises to never return an error on Write.
	_, err := h.Write(p)
	if err != nil {
		panic(errors.Wrap(err, "this should never happen. hash.Hash interface promises to not return errors."))
	}
}

// Finalize returns the resulting double hash
func (h *DoubleHashWriter) Finalize() Hash {
	firstHashInTheSum := h.inner.Sum(nil)
	return sha256.Sum256(firstHashInTheSum)
}
