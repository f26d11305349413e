package securechannel

import (
	"bytes"
	"crypto/sha256"
	"io"
	"time"

	"github.com/kaspanet/go-secp256k1"
	"github.com/lucasbalieiro/cpuminer-stratum-v2/util/binaryserializer"
	"github.com/pkg/errors"
)

// CertificateSize is the size of a serialized Certificate: version (2),
// valid from (4), not valid after (4) and the signature (64).
const CertificateSize = 2 + 4 + 4 + secp256k1.SerializedSchnorrSignatureSize

// Certificate is sent by the pool during the handshake. It binds the pool's
// static key to an authority key for a period of time.
type Certificate struct {
	Version       uint16
	ValidFrom     uint32 // unix seconds
	NotValidAfter uint32 // unix seconds
	Signature     [secp256k1.SerializedSchnorrSignatureSize]byte
}

// DeserializeCertificate parses a certificate. b must be exactly
// CertificateSize bytes long.
func DeserializeCertificate(b []byte) (*Certificate, error) {
	if len(b) != CertificateSize {
		return nil, errors.Wrapf(ErrInvalidCertificate, "got %d bytes, want %d", len(b), CertificateSize)
	}
	r := bytes.NewReader(b)
	certificate := &Certificate{}
	var err error
	certificate.Version, err = binaryserializer.Uint16(r)
	if err != nil {
		return nil, err
	}
	certificate.ValidFrom, err = binaryserializer.Uint32(r)
	if err != nil {
		return nil, err
	}
	certificate.NotValidAfter, err = binaryserializer.Uint32(r)
	if err != nil {
		return nil, err
	}
	_, err = io.ReadFull(r, certificate.Signature[:])
	if err != nil {
		return nil, errors.WithStack(err)
	}
	return certificate, nil
}

func (c *Certificate) serializeHeader(w io.Writer) error {
	err := binaryserializer.PutUint16(w, c.Version)
	if err != nil {
		return err
	}
	err = binaryserializer.PutUint32(w, c.ValidFrom)
	if err != nil {
		return err
	}
	return binaryserializer.PutUint32(w, c.NotValidAfter)
}

// Serialize returns the CertificateSize bytes encoding of c.
func (c *Certificate) Serialize() []byte {
	buf := bytes.NewBuffer(make([]byte, 0, CertificateSize))
	// Writing to a bytes.Buffer never fails.
	_ = c.serializeHeader(buf)
	buf.Write(c.Signature[:])
	return buf.Bytes()
}

// signedHash returns the hash the authority signs: SHA-256 of the version,
// the validity window and the pool's static public key.
func (c *Certificate) signedHash(staticKey []byte) *secp256k1.Hash {
	hasher := sha256.New()
	// hash.Hash never returns an error on Write.
	_ = c.serializeHeader(hasher)
	hasher.Write(staticKey)
	var hash secp256k1.Hash
	copy(hash[:], hasher.Sum(nil))
	return &hash
}

// Verify checks that now is within the validity window and, if authorityKey
// is not nil, that the signature over staticKey is the authority's.
func (c *Certificate) Verify(staticKey []byte, authorityKey *secp256k1.SchnorrPublicKey, now time.Time) error {
	unixNow := now.Unix()
	if unixNow < int64(c.ValidFrom) {
		return errors.Wrapf(ErrInvalidCertificate, "not valid before %s",
			time.Unix(int64(c.ValidFrom), 0).UTC())
	}
	if unixNow > int64(c.NotValidAfter) {
		return errors.Wrapf(ErrInvalidCertificate, "expired at %s",
			time.Unix(int64(c.NotValidAfter), 0).UTC())
	}
	if authorityKey == nil {
		return nil
	}

	signature, err := secp256k1.DeserializeSchnorrSignatureFromSlice(c.Signature[:])
	if err != nil {
		return errors.Wrapf(ErrInvalidCertificate, "malformed signature: %s", err)
	}
	if !authorityKey.SchnorrVerify(c.signedHash(staticKey), signature) {
		return errors.Wrap(ErrInvalidCertificate, "signature doesn't match the authority key")
	}
	return nil
}

// SignCertificate issues a certificate for staticKey valid between validFrom
// and notValidAfter.
func SignCertificate(authority *secp256k1.SchnorrKeyPair, staticKey []byte,
	validFrom, notValidAfter time.Time) (*Certificate, error) {

	certificate := &Certificate{
		Version:       0,
		ValidFrom:     uint32(validFrom.Unix()),
		NotValidAfter: uint32(notValidAfter.Unix()),
	}
	signature, err := authority.SchnorrSign(certificate.signedHash(staticKey))
	if err != nil {
		return nil, errors.Wrap(err, "failed to sign the certificate")
	}
	certificate.Signature = *signature.Serialize()
	return certificate, nil
}
