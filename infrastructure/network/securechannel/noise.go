package securechannel

import (
	"crypto/rand"
	"io"
	"time"

	"github.com/flynn/noise"
	"github.com/kaspanet/go-secp256k1"
	"github.com/pkg/errors"
	"golang.org/x/crypto/chacha20poly1305"
)

// CipherSuite is the Noise_NX_25519_ChaChaPoly_SHA256 suite used by
// NoiseChannel.
var CipherSuite = noise.NewCipherSuite(noise.DH25519, noise.CipherChaChaPoly, noise.HashSHA256)

const (
	// MacSize is the authentication tag appended to every encrypted chunk.
	MacSize = chacha20poly1305.Overhead

	// MaxCiphertextChunkSize is the largest encrypted chunk. Longer
	// messages are split into several chunks.
	MaxCiphertextChunkSize = noise.MaxMsgLen

	// MaxPlaintextChunkSize is the plaintext carried by a full chunk.
	MaxPlaintextChunkSize = MaxCiphertextChunkSize - MacSize

	dhLen = 32

	// Act1Size is the size of the initiator's first NoiseChannel message:
	// its ephemeral key.
	Act1Size = dhLen

	// Act2Size is the size of the responder's reply: its ephemeral key,
	// its encrypted static key and the encrypted certificate.
	Act2Size = dhLen + dhLen + MacSize + CertificateSize + MacSize
)

// NoiseChannel is a SecureChannel using the Noise NX handshake over
// Curve25519, which some pools offer instead of EllSwiftChannel. The pool
// authenticates itself with a certificate signed by an authority key. A
// NoiseChannel may encrypt and decrypt concurrently, but not encrypt from
// two goroutines at once, nor decrypt.
type NoiseChannel struct {
	authorityKey *secp256k1.SchnorrPublicKey
	random       io.Reader
	now          func() time.Time

	encryptor   *noise.CipherState
	decryptor   *noise.CipherState
	peerStatic  []byte
	certificate *Certificate
}

// NewNoiseChannel returns a channel that accepts pools certified by
// authorityKey. With a nil authorityKey the certificate signature is not
// checked, only its validity window.
func NewNoiseChannel(authorityKey *secp256k1.SchnorrPublicKey) *NoiseChannel {
	return &NoiseChannel{
		authorityKey: authorityKey,
		random:       rand.Reader,
		now:          time.Now,
	}
}

// Initiate runs the initiator side of the handshake over rw.
func (c *NoiseChannel) Initiate(rw io.ReadWriter) error {
	handshake, err := noise.NewHandshakeState(noise.Config{
		CipherSuite: CipherSuite,
		Random:      c.random,
		Pattern:     noise.HandshakeNX,
		Initiator:   true,
	})
	if err != nil {
		return errors.Wrap(err, "failed to initialize the noise handshake")
	}

	act1, _, _, err := handshake.WriteMessage(nil, nil)
	if err != nil {
		return errors.Wrap(err, "failed to create the first handshake message")
	}
	_, err = rw.Write(act1)
	if err != nil {
		return errors.Wrap(err, "failed to send the first handshake message")
	}
	log.Debugf("Sent the handshake ephemeral key")

	act2 := make([]byte, Act2Size)
	_, err = io.ReadFull(rw, act2)
	if err != nil {
		return errors.Wrap(err, "failed to read the handshake response")
	}
	payload, encryptor, decryptor, err := handshake.ReadMessage(nil, act2)
	if err != nil {
		return errors.Wrap(err, "failed to process the handshake response")
	}
	if encryptor == nil || decryptor == nil {
		return errors.New("handshake didn't complete after the response")
	}

	certificate, err := DeserializeCertificate(payload)
	if err != nil {
		return err
	}
	peerStatic := handshake.PeerStatic()
	err = certificate.Verify(peerStatic, c.authorityKey, c.now())
	if err != nil {
		return err
	}
	log.Debugf("Pool certificate valid until %s", time.Unix(int64(certificate.NotValidAfter), 0).UTC())

	c.encryptor = encryptor
	c.decryptor = decryptor
	c.peerStatic = peerStatic
	c.certificate = certificate
	return nil
}

// PeerStatic returns the pool's static public key, once the handshake is
// complete.
func (c *NoiseChannel) PeerStatic() []byte {
	return c.peerStatic
}

// Certificate returns the pool's certificate, once the handshake is
// complete.
func (c *NoiseChannel) Certificate() *Certificate {
	return c.certificate
}

// Encrypt encrypts plaintext as a sequence of chunks of at most
// MaxCiphertextChunkSize bytes.
func (c *NoiseChannel) Encrypt(plaintext []byte) ([]byte, error) {
	if c.encryptor == nil {
		return nil, errors.WithStack(ErrHandshakeIncomplete)
	}
	return encryptChunks(c.encryptor, plaintext)
}

// Decrypt reverses Encrypt. ciphertext must hold whole chunks.
func (c *NoiseChannel) Decrypt(ciphertext []byte) ([]byte, error) {
	if c.decryptor == nil {
		return nil, errors.WithStack(ErrHandshakeIncomplete)
	}
	return decryptChunks(c.decryptor, ciphertext)
}

// EncryptedLen returns plaintextLen plus a MAC for every chunk.
func (c *NoiseChannel) EncryptedLen(plaintextLen int) int {
	return encryptedLen(plaintextLen)
}

// chunkCipher is the transport half of a completed handshake.
type chunkCipher interface {
	Encrypt(out, ad, plaintext []byte) ([]byte, error)
	Decrypt(out, ad, ciphertext []byte) ([]byte, error)
}

func encryptChunks(cipher chunkCipher, plaintext []byte) ([]byte, error) {
	out := make([]byte, 0, encryptedLen(len(plaintext)))
	for len(plaintext) > 0 {
		chunkSize := len(plaintext)
		if chunkSize > MaxPlaintextChunkSize {
			chunkSize = MaxPlaintextChunkSize
		}
		var err error
		out, err = cipher.Encrypt(out, nil, plaintext[:chunkSize])
		if err != nil {
			return nil, errors.Wrap(err, "failed to encrypt")
		}
		plaintext = plaintext[chunkSize:]
	}
	return out, nil
}

func decryptChunks(cipher chunkCipher, ciphertext []byte) ([]byte, error) {
	out := make([]byte, 0, len(ciphertext))
	for len(ciphertext) > 0 {
		chunkSize := len(ciphertext)
		if chunkSize > MaxCiphertextChunkSize {
			chunkSize = MaxCiphertextChunkSize
		}
		if chunkSize <= MacSize {
			return nil, errors.Errorf("encrypted chunk of %d bytes is too short", chunkSize)
		}
		var err error
		out, err = cipher.Decrypt(out, nil, ciphertext[:chunkSize])
		if err != nil {
			return nil, errors.Wrap(err, "failed to decrypt")
		}
		ciphertext = ciphertext[chunkSize:]
	}
	return out, nil
}

func encryptedLen(plaintextLen int) int {
	chunks := (plaintextLen + MaxPlaintextChunkSize - 1) / MaxPlaintextChunkSize
	return plaintextLen + chunks*MacSize
}
