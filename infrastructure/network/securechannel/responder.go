package securechannel

import (
	"crypto/rand"
	"io"
	"time"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/ellswift"
	"github.com/btcsuite/btcd/btcec/v2/schnorr"
	"github.com/flynn/noise"
	"github.com/kaspanet/go-secp256k1"
	"github.com/pkg/errors"
)

// Responder is the pool side of the NoiseChannel handshake. It and
// EllSwiftResponder are used to stand up a pool endpoint in tests and local
// setups.
type Responder struct {
	staticKey   noise.DHKey
	certificate *Certificate
}

// NewResponder generates a static key and has authority certify it for
// validity, starting now.
func NewResponder(authority *secp256k1.SchnorrKeyPair, validity time.Duration) (*Responder, error) {
	staticKey, err := CipherSuite.GenerateKeypair(rand.Reader)
	if err != nil {
		return nil, errors.Wrap(err, "failed to generate the static key")
	}
	now := time.Now()
	certificate, err := SignCertificate(authority, staticKey.Public, now, now.Add(validity))
	if err != nil {
		return nil, err
	}
	return NewResponderWithCertificate(staticKey, certificate), nil
}

// NewResponderWithCertificate returns a responder presenting certificate for
// staticKey.
func NewResponderWithCertificate(staticKey noise.DHKey, certificate *Certificate) *Responder {
	return &Responder{staticKey: staticKey, certificate: certificate}
}

// StaticPublicKey returns the responder's static public key.
func (r *Responder) StaticPublicKey() []byte {
	return r.staticKey.Public
}

// Respond runs the responder side of the handshake over rw and returns a
// channel whose Encrypt is read by the initiator's Decrypt and vice versa.
func (r *Responder) Respond(rw io.ReadWriter) (*NoiseChannel, error) {
	handshake, err := noise.NewHandshakeState(noise.Config{
		CipherSuite:   CipherSuite,
		Random:        rand.Reader,
		Pattern:       noise.HandshakeNX,
		Initiator:     false,
		StaticKeypair: r.staticKey,
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to initialize the noise handshake")
	}

	act1 := make([]byte, Act1Size)
	_, err = io.ReadFull(rw, act1)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read the first handshake message")
	}
	_, _, _, err = handshake.ReadMessage(nil, act1)
	if err != nil {
		return nil, errors.Wrap(err, "failed to process the first handshake message")
	}

	act2, initiatorToResponder, responderToInitiator, err := handshake.WriteMessage(nil, r.certificate.Serialize())
	if err != nil {
		return nil, errors.Wrap(err, "failed to create the handshake response")
	}
	_, err = rw.Write(act2)
	if err != nil {
		return nil, errors.Wrap(err, "failed to send the handshake response")
	}

	return &NoiseChannel{
		random:      rand.Reader,
		now:         time.Now,
		encryptor:   responderToInitiator,
		decryptor:   initiatorToResponder,
		certificate: r.certificate,
	}, nil
}

// EllSwiftResponder is the pool side of the EllSwiftChannel handshake.
type EllSwiftResponder struct {
	staticKey     *btcec.PrivateKey
	staticEncoded [EllSwiftKeySize]byte
	certificate   *Certificate
}

// NewEllSwiftResponder generates a static key and has authority certify its
// x coordinate for validity, starting now.
func NewEllSwiftResponder(authority *secp256k1.SchnorrKeyPair, validity time.Duration) (*EllSwiftResponder, error) {
	staticKey, staticEncoded, err := ellswift.EllswiftCreate()
	if err != nil {
		return nil, errors.Wrap(err, "failed to generate the static key")
	}
	now := time.Now()
	certificate, err := SignCertificate(authority, schnorr.SerializePubKey(staticKey.PubKey()), now, now.Add(validity))
	if err != nil {
		return nil, err
	}
	return &EllSwiftResponder{
		staticKey:     staticKey,
		staticEncoded: staticEncoded,
		certificate:   certificate,
	}, nil
}

// StaticPublicKey returns the x coordinate of the responder's static key.
func (r *EllSwiftResponder) StaticPublicKey() []byte {
	return schnorr.SerializePubKey(r.staticKey.PubKey())
}

// Respond runs the responder side of the handshake over rw.
func (r *EllSwiftResponder) Respond(rw io.ReadWriter) (*EllSwiftChannel, error) {
	state := newSymmetricState(EllSwiftProtocolName)

	var initiatorEphemeral [EllSwiftKeySize]byte
	_, err := io.ReadFull(rw, initiatorEphemeral[:])
	if err != nil {
		return nil, errors.Wrap(err, "failed to read the first handshake message")
	}
	state.mixHash(initiatorEphemeral[:])
	_, err = state.decryptAndHash(nil)
	if err != nil {
		return nil, err
	}

	ephemeralKey, ephemeralPublic, err := ellswift.EllswiftCreate()
	if err != nil {
		return nil, errors.Wrap(err, "failed to generate the ephemeral key")
	}
	act2 := make([]byte, 0, EllSwiftAct2Size)
	act2 = append(act2, ephemeralPublic[:]...)
	state.mixHash(ephemeralPublic[:])
	secret, err := ellSwiftECDH(ephemeralKey, initiatorEphemeral, ephemeralPublic, false)
	if err != nil {
		return nil, err
	}
	err = state.mixKey(secret)
	if err != nil {
		return nil, err
	}

	encryptedStatic, err := state.encryptAndHash(r.staticEncoded[:])
	if err != nil {
		return nil, err
	}
	act2 = append(act2, encryptedStatic...)
	secret, err = ellSwiftECDH(r.staticKey, initiatorEphemeral, r.staticEncoded, false)
	if err != nil {
		return nil, err
	}
	err = state.mixKey(secret)
	if err != nil {
		return nil, err
	}

	encryptedCertificate, err := state.encryptAndHash(r.certificate.Serialize())
	if err != nil {
		return nil, err
	}
	act2 = append(act2, encryptedCertificate...)
	initiatorToResponder, responderToInitiator, err := state.split()
	if err != nil {
		return nil, err
	}

	_, err = rw.Write(act2)
	if err != nil {
		return nil, errors.Wrap(err, "failed to send the handshake response")
	}

	return &EllSwiftChannel{
		now:         time.Now,
		encryptor:   responderToInitiator,
		decryptor:   initiatorToResponder,
		certificate: r.certificate,
	}, nil
}
