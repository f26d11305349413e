package securechannel

import (
	"io"

	"github.com/pkg/errors"
)

// SecureChannel protects the bytes exchanged with a pool. Initiate runs the
// handshake over rw; afterwards every frame header and every payload is
// passed through Encrypt before being written and through Decrypt after
// being read.
type SecureChannel interface {
	Initiate(rw io.ReadWriter) error
	Encrypt(plaintext []byte) ([]byte, error)
	Decrypt(ciphertext []byte) ([]byte, error)

	// EncryptedLen returns how many bytes Encrypt produces for a plaintext
	// of the given length, which is how many bytes to read before calling
	// Decrypt.
	EncryptedLen(plaintextLen int) int
}

var (
	// ErrHandshakeIncomplete is returned when encrypting or decrypting
	// before the handshake completed.
	ErrHandshakeIncomplete = errors.New("secure channel handshake is not complete")

	// ErrInvalidCertificate is returned when the pool's certificate can't
	// be parsed, is outside its validity window or isn't signed by the
	// authority key.
	ErrInvalidCertificate = errors.New("invalid pool certificate")
)

// PlaintextChannel is a SecureChannel that leaves the bytes as they are.
type PlaintextChannel struct{}

// NewPlaintextChannel returns a channel that doesn't encrypt anything.
func NewPlaintextChannel() *PlaintextChannel {
	return &PlaintextChannel{}
}

// Initiate does nothing: there is no handshake.
func (*PlaintextChannel) Initiate(io.ReadWriter) error {
	log.Warnf("Connection is not encrypted")
	return nil
}

// Encrypt returns a copy of plaintext.
func (*PlaintextChannel) Encrypt(plaintext []byte) ([]byte, error) {
	return append([]byte(nil), plaintext...), nil
}

// Decrypt returns a copy of ciphertext.
func (*PlaintextChannel) Decrypt(ciphertext []byte) ([]byte, error) {
	return append([]byte(nil), ciphertext...), nil
}

// EncryptedLen returns plaintextLen.
func (*PlaintextChannel) EncryptedLen(plaintextLen int) int {
	return plaintextLen
}
