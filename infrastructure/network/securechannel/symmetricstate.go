package securechannel

import (
	"crypto/cipher"
	"crypto/sha256"
	"encoding/binary"
	"io"
	"math"

	"github.com/pkg/errors"
	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/hkdf"
)

// ErrNonceExhausted is returned once a cipher state used up its nonces.
var ErrNonceExhausted = errors.New("secure channel nonces exhausted")

// cipherState is a ChaCha20-Poly1305 key and the counter the nonces are
// drawn from.
type cipherState struct {
	aead  cipher.AEAD
	nonce uint64
}

func newCipherState(key []byte) (*cipherState, error) {
	aead, err := chacha20poly1305.New(key)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	return &cipherState{aead: aead}, nil
}

// nextNonce returns 32 zero bits followed by the little endian counter.
// The counter's maximum value is reserved.
func (c *cipherState) nextNonce() ([]byte, error) {
	if c.nonce == math.MaxUint64 {
		return nil, errors.WithStack(ErrNonceExhausted)
	}
	nonce := make([]byte, chacha20poly1305.NonceSize)
	binary.LittleEndian.PutUint64(nonce[4:], c.nonce)
	c.nonce++
	return nonce, nil
}

// Encrypt appends the encryption of plaintext to out.
func (c *cipherState) Encrypt(out, ad, plaintext []byte) ([]byte, error) {
	nonce, err := c.nextNonce()
	if err != nil {
		return nil, err
	}
	return c.aead.Seal(out, nonce, plaintext, ad), nil
}

// Decrypt appends the decryption of ciphertext to out.
func (c *cipherState) Decrypt(out, ad, ciphertext []byte) ([]byte, error) {
	nonce, err := c.nextNonce()
	if err != nil {
		return nil, err
	}
	out, err = c.aead.Open(out, nonce, ciphertext, ad)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	return out, nil
}

// symmetricState is the chaining key and handshake hash that both sides of
// a Noise handshake fold every message into.
type symmetricState struct {
	chainingKey [sha256.Size]byte
	hash        [sha256.Size]byte
	cipher      *cipherState
}

// newSymmetricState initializes the state for protocolName with an empty
// prologue.
func newSymmetricState(protocolName string) *symmetricState {
	state := &symmetricState{}
	if len(protocolName) <= sha256.Size {
		copy(state.hash[:], protocolName)
	} else {
		state.hash = sha256.Sum256([]byte(protocolName))
	}
	state.chainingKey = state.hash
	state.mixHash(nil)
	return state
}

func (s *symmetricState) mixHash(data []byte) {
	hasher := sha256.New()
	hasher.Write(s.hash[:])
	hasher.Write(data)
	copy(s.hash[:], hasher.Sum(nil))
}

// hkdf2 derives two keys from chainingKey and inputKeyMaterial.
func hkdf2(chainingKey, inputKeyMaterial []byte) (first, second [sha256.Size]byte, err error) {
	reader := hkdf.New(sha256.New, inputKeyMaterial, chainingKey, nil)
	_, err = io.ReadFull(reader, first[:])
	if err != nil {
		return first, second, errors.WithStack(err)
	}
	_, err = io.ReadFull(reader, second[:])
	if err != nil {
		return first, second, errors.WithStack(err)
	}
	return first, second, nil
}

func (s *symmetricState) mixKey(inputKeyMaterial []byte) error {
	chainingKey, key, err := hkdf2(s.chainingKey[:], inputKeyMaterial)
	if err != nil {
		return err
	}
	s.chainingKey = chainingKey
	s.cipher, err = newCipherState(key[:])
	return err
}

// encryptAndHash encrypts plaintext once a key was mixed in, and returns it
// as is before that.
func (s *symmetricState) encryptAndHash(plaintext []byte) ([]byte, error) {
	ciphertext := append([]byte(nil), plaintext...)
	if s.cipher != nil {
		var err error
		ciphertext, err = s.cipher.Encrypt(nil, s.hash[:], plaintext)
		if err != nil {
			return nil, err
		}
	}
	s.mixHash(ciphertext)
	return ciphertext, nil
}

func (s *symmetricState) decryptAndHash(ciphertext []byte) ([]byte, error) {
	plaintext := append([]byte(nil), ciphertext...)
	if s.cipher != nil {
		var err error
		plaintext, err = s.cipher.Decrypt(nil, s.hash[:], ciphertext)
		if err != nil {
			return nil, err
		}
	}
	s.mixHash(ciphertext)
	return plaintext, nil
}

// split returns the initiator's sending and receiving cipher states.
func (s *symmetricState) split() (initiatorToResponder, responderToInitiator *cipherState, err error) {
	first, second, err := hkdf2(s.chainingKey[:], nil)
	if err != nil {
		return nil, nil, err
	}
	initiatorToResponder, err = newCipherState(first[:])
	if err != nil {
		return nil, nil, err
	}
	responderToInitiator, err = newCipherState(second[:])
	if err != nil {
		return nil, nil, err
	}
	return initiatorToResponder, responderToInitiator, nil
}
