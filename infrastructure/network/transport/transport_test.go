package transport

import (
	"io"
	"net"
	"strconv"
	"testing"
	"time"

	"github.com/pkg/errors"
)

type timeoutError struct{}

func (timeoutError) Error() string   { return "i/o timeout" }
func (timeoutError) Timeout() bool   { return true }
func (timeoutError) Temporary() bool { return true }

func listen(t *testing.T) net.Listener {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Listen: %s", err)
	}
	t.Cleanup(func() { listener.Close() })
	return listener
}

func TestDialLoopback(t *testing.T) {
	listener := listen(t)
	accepted := make(chan net.Conn, 1)
	go func() {
		conn, err := listener.Accept()
		if err == nil {
			accepted <- conn
		}
	}()

	conn, err := NewTCPDialer().Dial(listener.Addr().String(), time.Second)
	if err != nil {
		t.Fatalf("Dial: unexpected error %s", err)
	}
	defer conn.Close()

	select {
	case serverConn := <-accepted:
		serverConn.Close()
	case <-time.After(5 * time.Second):
		t.Fatalf("listener never accepted the connection")
	}

	host, port, err := RemoteEndpoint(conn)
	if err != nil {
		t.Fatalf("RemoteEndpoint: unexpected error %s", err)
	}
	wantPort := uint16(listener.Addr().(*net.TCPAddr).Port)
	if host != "127.0.0.1" || port != wantPort {
		t.Errorf("RemoteEndpoint: got %s:%d, want 127.0.0.1:%d", host, port, wantPort)
	}
}

func TestDialResolvesFirstAddress(t *testing.T) {
	var dialed string
	var dialedTimeout time.Duration
	dialer := &TCPDialer{
		lookup: func(host string) ([]net.IP, error) {
			if host != "pool.example" {
				t.Errorf("lookup: got host %s", host)
			}
			return []net.IP{net.ParseIP("10.0.0.7"), net.ParseIP("10.0.0.8")}, nil
		},
		dial: func(network, address string, timeout time.Duration) (net.Conn, error) {
			dialed = address
			dialedTimeout = timeout
			client, server := net.Pipe()
			server.Close()
			return client, nil
		},
	}

	conn, err := dialer.Dial("pool.example:3333", 7*time.Second)
	if err != nil {
		t.Fatalf("Dial: unexpected error %s", err)
	}
	conn.Close()
	if dialed != "10.0.0.7:3333" {
		t.Errorf("Dial: dialed %s, want 10.0.0.7:3333", dialed)
	}
	if dialedTimeout != 7*time.Second {
		t.Errorf("Dial: got timeout %s, want %s", dialedTimeout, 7*time.Second)
	}
}

func TestDialErrors(t *testing.T) {
	failingDial := func(string, string, time.Duration) (net.Conn, error) {
		return nil, &net.OpError{Op: "dial", Net: "tcp", Err: timeoutError{}}
	}
	noAddresses := func(string) ([]net.IP, error) { return nil, nil }
	lookupError := func(string) ([]net.IP, error) { return nil, errors.New("no such host") }

	tests := []struct {
		name        string
		dialer      *TCPDialer
		address     string
		wantTimeout bool
	}{
		{"missing port", NewTCPDialer(), "localhost", false},
		{"no addresses", &TCPDialer{dial: failingDial, lookup: noAddresses}, "pool.example:1", false},
		{"lookup error", &TCPDialer{dial: failingDial, lookup: lookupError}, "pool.example:1", false},
		{"timeout", &TCPDialer{dial: failingDial, lookup: noAddresses}, "127.0.0.1:1", true},
	}

	for _, test := range tests {
		_, err := test.dialer.Dial(test.address, time.Second)
		if err == nil {
			t.Errorf("Dial %s: expected an error", test.name)
			continue
		}
		if IsTimeout(err) != test.wantTimeout {
			t.Errorf("Dial %s: IsTimeout got %t, want %t (%s)", test.name, IsTimeout(err), test.wantTimeout, err)
		}
	}
}

// serveSOCKS5 accepts one connection, performs a no-auth SOCKS5 CONNECT
// handshake, reports the requested destination and then echoes.
func serveSOCKS5(t *testing.T, listener net.Listener, requested chan<- string) {
	conn, err := listener.Accept()
	if err != nil {
		return
	}
	defer conn.Close()

	greeting := make([]byte, 3)
	if _, err := io.ReadFull(conn, greeting); err != nil {
		t.Errorf("socks server: reading greeting: %s", err)
		return
	}
	if _, err := conn.Write([]byte{0x05, 0x00}); err != nil {
		return
	}

	header := make([]byte, 5)
	if _, err := io.ReadFull(conn, header); err != nil {
		t.Errorf("socks server: reading request: %s", err)
		return
	}
	if header[1] != 0x01 || header[3] != 0x03 {
		t.Errorf("socks server: unexpected request header %x", header)
		return
	}
	rest := make([]byte, int(header[4])+2)
	if _, err := io.ReadFull(conn, rest); err != nil {
		t.Errorf("socks server: reading destination: %s", err)
		return
	}
	host := string(rest[:header[4]])
	port := int(rest[header[4]])<<8 | int(rest[header[4]+1])
	requested <- net.JoinHostPort(host, strconv.Itoa(port))

	reply := []byte{0x05, 0x00, 0x00, 0x01, 127, 0, 0, 1, 0x0d, 0x05}
	if _, err := conn.Write(reply); err != nil {
		return
	}
	_, _ = io.Copy(conn, conn)
}

func TestProxyDialer(t *testing.T) {
	listener := listen(t)
	requested := make(chan string, 1)
	go serveSOCKS5(t, listener, requested)

	dialer, err := NewProxyDialer(listener.Addr().String(), "", "")
	if err != nil {
		t.Fatalf("NewProxyDialer: unexpected error %s", err)
	}
	conn, err := dialer.Dial("pool.example:3333", 5*time.Second)
	if err != nil {
		t.Fatalf("Dial: unexpected error %s", err)
	}
	defer conn.Close()

	select {
	case destination := <-requested:
		if destination != "pool.example:3333" {
			t.Errorf("proxy was asked for %s, want pool.example:3333", destination)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("proxy never received a request")
	}

	host, port, err := RemoteEndpoint(conn)
	if err != nil {
		t.Fatalf("RemoteEndpoint: unexpected error %s", err)
	}
	if host != "pool.example" || port != 3333 {
		t.Errorf("RemoteEndpoint: got %s:%d, want pool.example:3333", host, port)
	}

	message := []byte("ping")
	if _, err := conn.Write(message); err != nil {
		t.Fatalf("Write: %s", err)
	}
	echoed := make([]byte, len(message))
	if _, err := io.ReadFull(conn, echoed); err != nil {
		t.Fatalf("ReadFull: %s", err)
	}
	if string(echoed) != "ping" {
		t.Errorf("echo: got %q, want %q", echoed, message)
	}
}

func TestNewProxyDialerInvalidAddress(t *testing.T) {
	_, err := NewProxyDialer("not-an-address", "", "")
	if err == nil {
		t.Errorf("NewProxyDialer: expected an error for an address without a port")
	}
}
