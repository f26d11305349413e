package transport

import (
	"net"
	"strconv"
	"time"

	"github.com/btcsuite/go-socks/socks"
	"github.com/pkg/errors"
)

// Dialer opens a connection to a pool.
type Dialer interface {
	Dial(address string, timeout time.Duration) (net.Conn, error)
}

// DialFunc has the signature of net.DialTimeout.
type DialFunc func(network, address string, timeout time.Duration) (net.Conn, error)

// LookupFunc has the signature of net.LookupIP.
type LookupFunc func(host string) ([]net.IP, error)

// TCPDialer dials pool addresses over TCP, either directly or through a
// SOCKS5 proxy.
type TCPDialer struct {
	dial   DialFunc
	lookup LookupFunc
}

// NewTCPDialer returns a dialer that resolves the host with the system
// resolver and connects directly.
func NewTCPDialer() *TCPDialer {
	return &TCPDialer{
		dial:   net.DialTimeout,
		lookup: net.LookupIP,
	}
}

// NewProxyDialer returns a dialer that connects through the SOCKS5 proxy at
// proxyAddress. Host names are resolved by the proxy.
func NewProxyDialer(proxyAddress, username, password string) (*TCPDialer, error) {
	_, _, err := net.SplitHostPort(proxyAddress)
	if err != nil {
		return nil, errors.Wrapf(err, "proxy address '%s' is invalid", proxyAddress)
	}
	proxy := &socks.Proxy{
		Addr:     proxyAddress,
		Username: username,
		Password: password,
	}
	return &TCPDialer{dial: proxy.DialTimeout}, nil
}

// Dial resolves address, which must be of the form host:port, and connects
// to the first address it resolves to. The timeout bounds the connection
// attempt.
func (d *TCPDialer) Dial(address string, timeout time.Duration) (net.Conn, error) {
	host, port, err := net.SplitHostPort(address)
	if err != nil {
		return nil, errors.Wrapf(err, "pool address '%s' is invalid", address)
	}

	target := address
	if d.lookup != nil {
		ip, err := d.resolve(host)
		if err != nil {
			return nil, err
		}
		target = net.JoinHostPort(ip.String(), port)
	}

	log.Debugf("Dialing %s (%s) with a timeout of %s", address, target, timeout)
	conn, err := d.dial("tcp", target, timeout)
	if err != nil {
		if IsTimeout(err) {
			return nil, errors.Wrapf(err, "timed out after %s connecting to %s", timeout, address)
		}
		return nil, errors.Wrapf(err, "failed to connect to %s", address)
	}
	log.Debugf("Connected to %s", conn.RemoteAddr())
	return conn, nil
}

func (d *TCPDialer) resolve(host string) (net.IP, error) {
	if ip := net.ParseIP(host); ip != nil {
		return ip, nil
	}
	ips, err := d.lookup(host)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to resolve %s", host)
	}
	if len(ips) == 0 {
		return nil, errors.Errorf("%s resolved to no addresses", host)
	}
	return ips[0], nil
}

// IsTimeout returns whether err, or an error it wraps, is a network timeout.
func IsTimeout(err error) bool {
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

// RemoteEndpoint returns the host and port conn is connected to. Through a
// proxy, these are the ones the proxy was asked to connect to.
func RemoteEndpoint(conn net.Conn) (host string, port uint16, err error) {
	addr := conn.RemoteAddr()
	if tcpAddr, ok := addr.(*net.TCPAddr); ok {
		return tcpAddr.IP.String(), uint16(tcpAddr.Port), nil
	}
	if proxiedAddr, ok := addr.(*socks.ProxiedAddr); ok {
		return proxiedAddr.Host, uint16(proxiedAddr.Port), nil
	}

	// Fall back to parsing the string form of anything else.
	host, portStr, err := net.SplitHostPort(addr.String())
	if err != nil {
		return "", 0, errors.Wrapf(err, "can't parse remote address %s", addr)
	}
	parsedPort, err := strconv.ParseUint(portStr, 10, 16)
	if err != nil {
		return "", 0, errors.Wrapf(err, "invalid port in remote address %s", addr)
	}
	return host, uint16(parsedPort), nil
}
