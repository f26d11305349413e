package securechannel

import (
	"bytes"
	"crypto/sha256"
	"io"
	"math"
	"net"
	"testing"
	"time"

	"github.com/btcsuite/btcd/btcec/v2/ellswift"
	"github.com/btcsuite/btcd/btcec/v2/schnorr"
	"github.com/pkg/errors"
	"golang.org/x/crypto/chacha20poly1305"
)

func TestEllSwiftHandshake(t *testing.T) {
	authority := testKeyPair(t, 0x58)
	responder, err := NewEllSwiftResponder(authority, time.Hour)
	if err != nil {
		t.Fatalf("NewEllSwiftResponder: unexpected error %s", err)
	}

	initiator := NewEllSwiftChannel(testPublicKey(t, authority))
	_, err = initiator.Decrypt(make([]byte, 2*MacSize))
	if !errors.Is(err, ErrHandshakeIncomplete) {
		t.Errorf("Decrypt: got error %v before the handshake, want %v", err, ErrHandshakeIncomplete)
	}

	pool, err := handshake(t, initiator, ellSwiftResponder(responder))
	if err != nil {
		t.Fatalf("Initiate: unexpected error %s", err)
	}
	if !bytes.Equal(initiator.PeerStatic(), responder.StaticPublicKey()) {
		t.Errorf("PeerStatic: got %x, want %x", initiator.PeerStatic(), responder.StaticPublicKey())
	}
	if len(initiator.PeerStatic()) != 32 {
		t.Errorf("PeerStatic: got %d bytes, want an x-only key", len(initiator.PeerStatic()))
	}
	if initiator.Certificate() == nil {
		t.Errorf("Certificate: nil after the handshake")
	}

	testTransport(t, initiator, pool)
}

// recordingConn records what the initiator writes and reads during the
// handshake.
type recordingConn struct {
	io.ReadWriter
	written bytes.Buffer
	read    bytes.Buffer
}

func (c *recordingConn) Write(b []byte) (int, error) {
	c.written.Write(b)
	return c.ReadWriter.Write(b)
}

func (c *recordingConn) Read(b []byte) (int, error) {
	n, err := c.ReadWriter.Read(b)
	c.read.Write(b[:n])
	return n, err
}

func TestEllSwiftHandshakeSizes(t *testing.T) {
	if EllSwiftAct1Size != 64 || EllSwiftAct2Size != 234 {
		t.Fatalf("act sizes: got %d and %d, want 64 and 234", EllSwiftAct1Size, EllSwiftAct2Size)
	}

	authority := testKeyPair(t, 0x59)
	responder, err := NewEllSwiftResponder(authority, time.Hour)
	if err != nil {
		t.Fatalf("NewEllSwiftResponder: unexpected error %s", err)
	}

	client, server := net.Pipe()
	defer client.Close()
	defer server.Close()
	responded := make(chan error, 1)
	go func() {
		_, err := responder.Respond(server)
		responded <- err
	}()

	conn := &recordingConn{ReadWriter: client}
	err = NewEllSwiftChannel(testPublicKey(t, authority)).Initiate(conn)
	if err != nil {
		t.Fatalf("Initiate: unexpected error %s", err)
	}
	if err := <-responded; err != nil {
		t.Fatalf("Respond: unexpected error %s", err)
	}
	if conn.written.Len() != EllSwiftAct1Size {
		t.Errorf("Initiate: wrote %d bytes, want %d", conn.written.Len(), EllSwiftAct1Size)
	}
	if conn.read.Len() != EllSwiftAct2Size {
		t.Errorf("Initiate: read %d bytes, want %d", conn.read.Len(), EllSwiftAct2Size)
	}
}

func TestEllSwiftHandshakeRejectsCertificate(t *testing.T) {
	authority := testKeyPair(t, 0x5a)
	responder, err := NewEllSwiftResponder(authority, time.Hour)
	if err != nil {
		t.Fatalf("NewEllSwiftResponder: unexpected error %s", err)
	}

	otherAuthority := NewEllSwiftChannel(testPublicKey(t, testKeyPair(t, 0x5b)))
	_, err = handshake(t, otherAuthority, ellSwiftResponder(responder))
	if !errors.Is(err, ErrInvalidCertificate) {
		t.Errorf("Initiate: got error %v for another authority, want %v", err, ErrInvalidCertificate)
	}

	late := NewEllSwiftChannel(testPublicKey(t, authority))
	late.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	_, err = handshake(t, late, ellSwiftResponder(responder))
	if !errors.Is(err, ErrInvalidCertificate) {
		t.Errorf("Initiate: got error %v for an expired certificate, want %v", err, ErrInvalidCertificate)
	}

	unchecked := NewEllSwiftChannel(nil)
	_, err = handshake(t, unchecked, ellSwiftResponder(responder))
	if err != nil {
		t.Errorf("Initiate: unexpected error %v without an authority key", err)
	}
}

// A NoiseChannel pool can't complete an EllSwiftChannel handshake.
func TestEllSwiftHandshakeWithCurve25519Pool(t *testing.T) {
	authority := testKeyPair(t, 0x5c)
	responder, err := NewResponder(authority, time.Hour)
	if err != nil {
		t.Fatalf("NewResponder: unexpected error %s", err)
	}

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Listen: %s", err)
	}
	defer listener.Close()
	go func() {
		server, err := listener.Accept()
		if err != nil {
			return
		}
		defer server.Close()
		responder.Respond(server)
	}()

	client, err := net.Dial("tcp", listener.Addr().String())
	if err != nil {
		t.Fatalf("Dial: %s", err)
	}
	defer client.Close()
	client.SetDeadline(time.Now().Add(10 * time.Second))
	err = NewEllSwiftChannel(testPublicKey(t, authority)).Initiate(client)
	if err == nil {
		t.Errorf("Initiate: expected an error")
	}
}

func TestEllSwiftXOnly(t *testing.T) {
	for i := 0; i < 8; i++ {
		key, encoded, err := ellswift.EllswiftCreate()
		if err != nil {
			t.Fatalf("EllswiftCreate: unexpected error %s", err)
		}
		got, err := ellSwiftXOnly(encoded)
		if err != nil {
			t.Fatalf("ellSwiftXOnly: unexpected error %s", err)
		}
		want := schnorr.SerializePubKey(key.PubKey())
		if !bytes.Equal(got, want) {
			t.Errorf("ellSwiftXOnly: got %x, want %x", got, want)
		}
	}
}

func TestCipherStateNonce(t *testing.T) {
	key := bytes.Repeat([]byte{0x01}, chacha20poly1305.KeySize)
	state, err := newCipherState(key)
	if err != nil {
		t.Fatalf("newCipherState: unexpected error %s", err)
	}
	aead, err := chacha20poly1305.New(key)
	if err != nil {
		t.Fatalf("chacha20poly1305.New: %s", err)
	}

	plaintext := []byte("mining")
	for counter := byte(0); counter < 3; counter++ {
		got, err := state.Encrypt(nil, nil, plaintext)
		if err != nil {
			t.Fatalf("Encrypt: unexpected error %s", err)
		}
		nonce := make([]byte, chacha20poly1305.NonceSize)
		nonce[4] = counter
		want := aead.Seal(nil, nonce, plaintext, nil)
		if !bytes.Equal(got, want) {
			t.Errorf("Encrypt: message %d got %x, want %x", counter, got, want)
		}
	}

	state.nonce = math.MaxUint64
	_, err = state.Encrypt(nil, nil, plaintext)
	if !errors.Is(err, ErrNonceExhausted) {
		t.Errorf("Encrypt: got error %v, want %v", err, ErrNonceExhausted)
	}
}

func TestSymmetricStateInitialization(t *testing.T) {
	state := newSymmetricState(EllSwiftProtocolName)
	protocolHash := sha256.Sum256([]byte(EllSwiftProtocolName))
	if state.chainingKey != protocolHash {
		t.Errorf("newSymmetricState: got chaining key %x, want %x", state.chainingKey, protocolHash)
	}
	wantHash := sha256.Sum256(protocolHash[:])
	if state.hash != wantHash {
		t.Errorf("newSymmetricState: got hash %x, want %x", state.hash, wantHash)
	}

	short := newSymmetricState("Noise_NN")
	var padded [sha256.Size]byte
	copy(padded[:], "Noise_NN")
	if short.chainingKey != padded {
		t.Errorf("newSymmetricState: got chaining key %x, want %x", short.chainingKey, padded)
	}
}
