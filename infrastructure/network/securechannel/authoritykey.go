package securechannel

import (
	"github.com/btcsuite/btcutil/base58"
	"github.com/kaspanet/go-secp256k1"
	"github.com/pkg/errors"
)

// DefaultAuthorityKey is the authority key used when none is configured.
const DefaultAuthorityKey = "9auqWEzQDVyd2oe1JVGFLMLHZtCo2FFqZwtKA5gd9xbuEu7PH72"

// authorityKeyVersion is the only supported 2-byte version prefix of an
// encoded authority key.
const authorityKeyVersion = 1

// authorityKeyPayloadSize is the size of an encoded key after the first
// version byte: the second version byte and the 32-byte x-only key.
const authorityKeyPayloadSize = 1 + 32

// ParseAuthorityKey decodes a base58check authority public key: a
// little-endian uint16 version followed by the x-only public key.
func ParseAuthorityKey(encoded string) (*secp256k1.SchnorrPublicKey, error) {
	payload, versionLow, err := base58.CheckDecode(encoded)
	if err != nil {
		return nil, errors.Wrapf(err, "authority key '%s' is not valid base58check", encoded)
	}
	if len(payload) != authorityKeyPayloadSize {
		return nil, errors.Errorf("authority key '%s' has %d bytes, want %d",
			encoded, len(payload)+1, authorityKeyPayloadSize+1)
	}
	version := uint16(versionLow) | uint16(payload[0])<<8
	if version != authorityKeyVersion {
		return nil, errors.Errorf("authority key '%s' has unsupported version %d", encoded, version)
	}
	key, err := secp256k1.DeserializeSchnorrPubKey(payload[1:])
	if err != nil {
		return nil, errors.Wrapf(err, "authority key '%s' is not a valid public key", encoded)
	}
	return key, nil
}

// EncodeAuthorityKey is the inverse of ParseAuthorityKey.
func EncodeAuthorityKey(key *secp256k1.SchnorrPublicKey) (string, error) {
	serialized, err := key.Serialize()
	if err != nil {
		return "", errors.Wrap(err, "failed to serialize the authority key")
	}
	payload := append([]byte{byte(authorityKeyVersion >> 8)}, serialized[:]...)
	return base58.CheckEncode(payload, byte(authorityKeyVersion)), nil
}
