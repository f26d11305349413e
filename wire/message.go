package wire

import (
	"bytes"
	"fmt"
	"io"

	"github.com/pkg/errors"
)

// MessageType identifies the kind of payload carried by a frame.
type MessageType uint8

// Common protocol message types.
const (
	MsgTypeSetupConnection        MessageType = 0x00
	MsgTypeSetupConnectionSuccess MessageType = 0x01
	MsgTypeSetupConnectionError   MessageType = 0x02
)

var messageTypeStrings = map[MessageType]string{
	MsgTypeSetupConnection:        "SetupConnection",
	MsgTypeSetupConnectionSuccess: "SetupConnection.Success",
	MsgTypeSetupConnectionError:   "SetupConnection.Error",
}

// String returns the MessageType in human-readable form.
func (t MessageType) String() string {
	if s, ok := messageTypeStrings[t]; ok {
		return s
	}
	return fmt.Sprintf("Unknown MessageType (%#02x)", uint8(t))
}

// Message is an interface that describes a protocol message. A type that
// implements Message has complete control over the representation of its
// data and may therefore contain additional or fewer fields than those which
// are used directly in the protocol encoded message.
type Message interface {
	Encode(w io.Writer) error
	Decode(r io.Reader) error
	MessageType() MessageType
}

// makeEmptyMessage creates a message of the appropriate concrete type based
// on the message type.
func makeEmptyMessage(msgType MessageType) (Message, error) {
	var msg Message
	switch msgType {
	case MsgTypeSetupConnection:
		msg = &MsgSetupConnection{}

	case MsgTypeSetupConnectionSuccess:
		msg = &MsgSetupConnectionSuccess{}

	case MsgTypeSetupConnectionError:
		msg = &MsgSetupConnectionError{}

	default:
		return nil, messageError("makeEmptyMessage", fmt.Sprintf("unhandled message type %s", msgType))
	}
	return msg, nil
}

// EncodeMessage returns the payload bytes of msg, without a frame header.
func EncodeMessage(msg Message) ([]byte, error) {
	var buf bytes.Buffer
	err := msg.Encode(&buf)
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// FrameMessage encodes msg and wraps it in a frame with the given extension
// type.
func FrameMessage(extensionType uint16, msg Message) ([]byte, error) {
	payload, err := EncodeMessage(msg)
	if err != nil {
		return nil, err
	}
	return Frame(extensionType, msg.MessageType(), payload)
}

// DecodeMessage decodes payload into the message that header.MsgType names.
// The payload must be consumed entirely.
func DecodeMessage(header *FrameHeader, payload []byte) (Message, error) {
	if uint32(len(payload)) != header.MsgLength {
		str := fmt.Sprintf("payload length %d doesn't match the header's %d", len(payload), header.MsgLength)
		return nil, messageError("DecodeMessage", str)
	}

	msg, err := makeEmptyMessage(header.MsgType)
	if err != nil {
		return nil, err
	}

	reader := bytes.NewReader(payload)
	err = msg.Decode(reader)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to decode %s", header.MsgType)
	}
	if reader.Len() != 0 {
		str := fmt.Sprintf("%d trailing bytes after %s", reader.Len(), header.MsgType)
		return nil, messageError("DecodeMessage", str)
	}
	return msg, nil
}

// WriteMessage frames msg and writes it to w.
func WriteMessage(w io.Writer, extensionType uint16, msg Message) error {
	framed, err := FrameMessage(extensionType, msg)
	if err != nil {
		return err
	}
	_, err = w.Write(framed)
	return errors.WithStack(err)
}

// ReadMessage reads a single frame from r and decodes its payload.
func ReadMessage(r io.Reader) (*FrameHeader, Message, error) {
	header, err := ReadFrameHeader(r)
	if err != nil {
		return nil, nil, err
	}

	payload := make([]byte, header.MsgLength)
	_, err = io.ReadFull(r, payload)
	if err != nil {
		return nil, nil, errors.WithStack(err)
	}

	msg, err := DecodeMessage(header, payload)
	if err != nil {
		return nil, nil, err
	}
	return header, msg, nil
}
