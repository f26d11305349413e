package securechannel

import (
	"io"
	"time"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/ellswift"
	"github.com/kaspanet/go-secp256k1"
	"github.com/pkg/errors"
)

// EllSwiftProtocolName names the handshake EllSwiftChannel runs.
const EllSwiftProtocolName = "Noise_NX_Secp256k1+EllSwift_ChaChaPoly_SHA256"

const (
	// EllSwiftKeySize is the size of an ElligatorSwift encoded public key.
	EllSwiftKeySize = 64

	// EllSwiftAct1Size is the size of the initiator's first message: its
	// ephemeral key.
	EllSwiftAct1Size = EllSwiftKeySize

	// EllSwiftAct2Size is the size of the responder's reply: its ephemeral
	// key, its encrypted static key and the encrypted certificate.
	EllSwiftAct2Size = EllSwiftKeySize + EllSwiftKeySize + MacSize + CertificateSize + MacSize
)

// EllSwiftChannel is the Stratum V2 SecureChannel: a Noise NX handshake over
// secp256k1 with ElligatorSwift encoded keys. The pool authenticates itself
// with a certificate over the x coordinate of its static key, signed by an
// authority key. Like NoiseChannel it may encrypt and decrypt concurrently.
type EllSwiftChannel struct {
	authorityKey *secp256k1.SchnorrPublicKey
	now          func() time.Time

	encryptor   *cipherState
	decryptor   *cipherState
	peerStatic  []byte
	certificate *Certificate
}

// NewEllSwiftChannel returns a channel that accepts pools certified by
// authorityKey. With a nil authorityKey the certificate signature is not
// checked, only its validity window.
func NewEllSwiftChannel(authorityKey *secp256k1.SchnorrPublicKey) *EllSwiftChannel {
	return &EllSwiftChannel{
		authorityKey: authorityKey,
		now:          time.Now,
	}
}

// ellSwiftECDH returns the x-only shared secret of key and the peer's
// theirs, hashed together with both encodings as in BIP-324. ours encodes
// key's public key.
func ellSwiftECDH(key *btcec.PrivateKey, theirs, ours [EllSwiftKeySize]byte, initiator bool) ([]byte, error) {
	secret, err := ellswift.V2Ecdh(key, theirs, ours, initiator)
	if err != nil {
		return nil, errors.Wrap(err, "failed to compute the shared secret")
	}
	return secret[:], nil
}

// ellSwiftXOnly decodes an ElligatorSwift encoding to the x coordinate of the
// point it encodes.
func ellSwiftXOnly(encoded [EllSwiftKeySize]byte) ([]byte, error) {
	var u, t btcec.FieldVal
	if u.SetByteSlice(encoded[:32]) {
		u.Normalize()
	}
	if t.SetByteSlice(encoded[32:]) {
		t.Normalize()
	}
	x, err := ellswift.XSwiftEC(&u, &t)
	if err != nil {
		return nil, errors.Wrap(err, "invalid ElligatorSwift encoding")
	}
	serialized := x.Bytes()
	return serialized[:], nil
}

// Initiate runs the initiator side of the handshake over rw.
func (c *EllSwiftChannel) Initiate(rw io.ReadWriter) error {
	state := newSymmetricState(EllSwiftProtocolName)

	ephemeralKey, ephemeralPublic, err := ellswift.EllswiftCreate()
	if err != nil {
		return errors.Wrap(err, "failed to generate the ephemeral key")
	}
	state.mixHash(ephemeralPublic[:])
	_, err = state.encryptAndHash(nil)
	if err != nil {
		return err
	}
	_, err = rw.Write(ephemeralPublic[:])
	if err != nil {
		return errors.Wrap(err, "failed to send the first handshake message")
	}
	log.Debugf("Sent the handshake ephemeral key")

	act2 := make([]byte, EllSwiftAct2Size)
	_, err = io.ReadFull(rw, act2)
	if err != nil {
		return errors.Wrap(err, "failed to read the handshake response")
	}

	var responderEphemeral [EllSwiftKeySize]byte
	copy(responderEphemeral[:], act2[:EllSwiftKeySize])
	state.mixHash(responderEphemeral[:])
	secret, err := ellSwiftECDH(ephemeralKey, responderEphemeral, ephemeralPublic, true)
	if err != nil {
		return err
	}
	err = state.mixKey(secret)
	if err != nil {
		return err
	}

	encryptedStatic := act2[EllSwiftKeySize : 2*EllSwiftKeySize+MacSize]
	static, err := state.decryptAndHash(encryptedStatic)
	if err != nil {
		return errors.Wrap(err, "failed to decrypt the pool's static key")
	}
	var responderStatic [EllSwiftKeySize]byte
	copy(responderStatic[:], static)
	secret, err = ellSwiftECDH(ephemeralKey, responderStatic, ephemeralPublic, true)
	if err != nil {
		return err
	}
	err = state.mixKey(secret)
	if err != nil {
		return err
	}

	payload, err := state.decryptAndHash(act2[2*EllSwiftKeySize+MacSize:])
	if err != nil {
		return errors.Wrap(err, "failed to decrypt the pool's certificate")
	}
	encryptor, decryptor, err := state.split()
	if err != nil {
		return err
	}

	certificate, err := DeserializeCertificate(payload)
	if err != nil {
		return err
	}
	peerStatic, err := ellSwiftXOnly(responderStatic)
	if err != nil {
		return err
	}
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

// PeerStatic returns the x coordinate of the pool's static public key, once
// the handshake is complete.
func (c *EllSwiftChannel) PeerStatic() []byte {
	return c.peerStatic
}

// Certificate returns the pool's certificate, once the handshake is
// complete.
func (c *EllSwiftChannel) Certificate() *Certificate {
	return c.certificate
}

// Encrypt encrypts plaintext as a sequence of chunks of at most
// MaxCiphertextChunkSize bytes.
func (c *EllSwiftChannel) Encrypt(plaintext []byte) ([]byte, error) {
	if c.encryptor == nil {
		return nil, errors.WithStack(ErrHandshakeIncomplete)
	}
	return encryptChunks(c.encryptor, plaintext)
}

// Decrypt reverses Encrypt. ciphertext must hold whole chunks.
func (c *EllSwiftChannel) Decrypt(ciphertext []byte) ([]byte, error) {
	if c.decryptor == nil {
		return nil, errors.WithStack(ErrHandshakeIncomplete)
	}
	return decryptChunks(c.decryptor, ciphertext)
}

// EncryptedLen returns plaintextLen plus a MAC for every chunk.
func (c *EllSwiftChannel) EncryptedLen(plaintextLen int) int {
	return encryptedLen(plaintextLen)
}
