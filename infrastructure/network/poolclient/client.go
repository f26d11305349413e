package poolclient

import (
	"bytes"
	"io"
	"net"
	"time"

	"github.com/lucasbalieiro/cpuminer-stratum-v2/infrastructure/logger"
	"github.com/lucasbalieiro/cpuminer-stratum-v2/infrastructure/metrics"
	"github.com/lucasbalieiro/cpuminer-stratum-v2/infrastructure/network/securechannel"
	"github.com/lucasbalieiro/cpuminer-stratum-v2/infrastructure/network/transport"
	"github.com/lucasbalieiro/cpuminer-stratum-v2/wire"
	"github.com/pkg/errors"
)

// Config describes how to reach a pool and what to tell it.
type Config struct {
	Address string
	Timeout time.Duration
	Dialer  transport.Dialer
	Channel securechannel.SecureChannel
	Setup   *SetupConfig

	// Metrics may be nil.
	Metrics *metrics.Metrics
}

// Client is a connection to a pool that completed SetupConnection.
type Client struct {
	conn        net.Conn
	channel     securechannel.SecureChannel
	address     string
	usedVersion uint16
	flags       uint32
}

// Connect dials the pool, runs the secure channel handshake and sends
// SetupConnection. It returns once the pool accepted the connection. A
// *SetupConnectionError is returned if the pool refused it. The timeout
// bounds the dial and, separately, the handshake together with
// SetupConnection.
func Connect(cfg *Config) (*Client, error) {
	onEnd := logger.LogAndMeasureExecutionTime(log, "Connect")
	defer onEnd()

	client, err := connect(cfg)
	if err != nil {
		var setupErr *SetupConnectionError
		if errors.As(err, &setupErr) {
			cfg.Metrics.HandshakeResult(metrics.HandshakeRejected)
		} else {
			cfg.Metrics.HandshakeResult(metrics.HandshakeFailed)
		}
		return nil, err
	}
	cfg.Metrics.HandshakeResult(metrics.HandshakeSuccess)
	return client, nil
}

func connect(cfg *Config) (*Client, error) {
	log.Infof("Attempting to connect to mining server at %s", cfg.Address)
	conn, err := cfg.Dialer.Dial(cfg.Address, cfg.Timeout)
	if err != nil {
		return nil, err
	}
	log.Infof("Successfully connected to mining server at %s", cfg.Address)

	client := &Client{
		conn:    conn,
		channel: cfg.Channel,
		address: cfg.Address,
	}
	err = client.setup(cfg)
	if err != nil {
		conn.Close()
		return nil, err
	}
	return client, nil
}

func (c *Client) setup(cfg *Config) error {
	if cfg.Timeout > 0 {
		err := c.conn.SetDeadline(time.Now().Add(cfg.Timeout))
		if err != nil {
			return errors.WithStack(err)
		}
		defer c.conn.SetDeadline(time.Time{})
	}

	err := c.channel.Initiate(c.conn)
	if err != nil {
		return errors.Wrapf(err, "handshake with %s failed", c.address)
	}
	log.Infof("Secure channel handshake completed with %s", c.address)

	setupConnection, err := SetupConnectionMessage(cfg.Setup, c.conn)
	if err != nil {
		return err
	}
	err = c.WriteMessage(setupConnection)
	if err != nil {
		return errors.Wrapf(err, "failed to send %s", setupConnection.MessageType())
	}
	log.Infof("Setup connection message sent to %s", c.address)

	_, reply, err := c.ReadMessage()
	if err != nil {
		return errors.Wrapf(err, "failed to read the reply to %s", setupConnection.MessageType())
	}
	switch reply := reply.(type) {
	case *wire.MsgSetupConnectionSuccess:
		c.usedVersion = reply.UsedVersion
		c.flags = reply.Flags
		log.Infof("Pool %s accepted the connection with version %d and flags %#x",
			c.address, reply.UsedVersion, reply.Flags)
		return nil
	case *wire.MsgSetupConnectionError:
		log.Warnf("Pool %s rejected the connection: %s", c.address, reply.ErrorCode)
		return &SetupConnectionError{Code: reply.ErrorCode, Flags: reply.Flags}
	default:
		return errors.Errorf("unexpected %s in reply to %s", reply.MessageType(), setupConnection.MessageType())
	}
}

// WriteMessage frames msg, encrypts the header and the payload separately
// and writes them to the pool.
func (c *Client) WriteMessage(msg wire.Message) error {
	payload, err := wire.EncodeMessage(msg)
	if err != nil {
		return err
	}
	if len(payload) > wire.MaxPayloadLength {
		return errors.Wrapf(wire.ErrFrameTooLarge, "%s payload is %d bytes", msg.MessageType(), len(payload))
	}
	header := &wire.FrameHeader{
		ExtensionType: wire.ExtensionTypeNone,
		MsgType:       msg.MessageType(),
		MsgLength:     uint32(len(payload)),
	}
	var headerBuf bytes.Buffer
	err = header.Serialize(&headerBuf)
	if err != nil {
		return err
	}

	encryptedHeader, err := c.channel.Encrypt(headerBuf.Bytes())
	if err != nil {
		return err
	}
	encryptedPayload, err := c.channel.Encrypt(payload)
	if err != nil {
		return err
	}
	_, err = c.conn.Write(append(encryptedHeader, encryptedPayload...))
	if err != nil {
		return errors.WithStack(err)
	}
	log.Debugf("Sent %s (%d bytes) to %s", msg.MessageType(), len(payload), c.address)
	return nil
}

// ReadMessage reads, decrypts and decodes the next message from the pool.
func (c *Client) ReadMessage() (*wire.FrameHeader, wire.Message, error) {
	encryptedHeader := make([]byte, c.channel.EncryptedLen(wire.FrameHeaderSize))
	_, err := io.ReadFull(c.conn, encryptedHeader)
	if err != nil {
		return nil, nil, errors.WithStack(err)
	}
	headerBytes, err := c.channel.Decrypt(encryptedHeader)
	if err != nil {
		return nil, nil, err
	}
	header, err := wire.ReadFrameHeader(bytes.NewReader(headerBytes))
	if err != nil {
		return nil, nil, err
	}

	encryptedPayload := make([]byte, c.channel.EncryptedLen(int(header.MsgLength)))
	_, err = io.ReadFull(c.conn, encryptedPayload)
	if err != nil {
		return nil, nil, errors.WithStack(err)
	}
	payload, err := c.channel.Decrypt(encryptedPayload)
	if err != nil {
		return nil, nil, err
	}

	msg, err := wire.DecodeMessage(header, payload)
	if err != nil {
		return nil, nil, err
	}
	log.Debugf("Received %s (%d bytes) from %s", header.MsgType, header.MsgLength, c.address)
	return header, msg, nil
}

// UsedVersion returns the protocol version the pool picked.
func (c *Client) UsedVersion() uint16 {
	return c.usedVersion
}

// Flags returns the flags of the pool's SetupConnection.Success.
func (c *Client) Flags() uint32 {
	return c.flags
}

// Address returns the pool address the client was configured with.
func (c *Client) Address() string {
	return c.address
}

// Close closes the connection to the pool.
func (c *Client) Close() error {
	log.Debugf("Disconnecting from %s", c.address)
	return errors.WithStack(c.conn.Close())
}
