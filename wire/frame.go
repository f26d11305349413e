package wire

import (
	"bytes"
	"io"

	"github.com/lucasbalieiro/cpuminer-stratum-v2/util/binaryserializer"
	"github.com/pkg/errors"
)

// FrameHeaderSize is the number of bytes in a frame header:
// extension type 2 bytes + message type 1 byte + message length 3 bytes.
const FrameHeaderSize = 6

// MaxPayloadLength is the largest payload a frame can carry, bounded by the
// 24 bit message length field.
const MaxPayloadLength = binaryserializer.MaxUint24

// ExtensionTypeNone is the extension type of messages that belong to the
// core protocol rather than to an extension.
const ExtensionTypeNone uint16 = 0

// FrameHeader is the fixed header that precedes every message payload.
type FrameHeader struct {
	ExtensionType uint16
	MsgType       MessageType
	MsgLength     uint32
}

// Serialize writes the frame header to w. A MsgLength that doesn't fit in 24
// bits fails with ErrFrameTooLarge.
func (h *FrameHeader) Serialize(w io.Writer) error {
	if h.MsgLength > MaxPayloadLength {
		return errors.Wrapf(ErrFrameTooLarge, "payload length %d exceeds the maximum of %d",
			h.MsgLength, MaxPayloadLength)
	}
	err := writeElements(w, h.ExtensionType, h.MsgType)
	if err != nil {
		return err
	}
	return binaryserializer.PutUint24(w, h.MsgLength)
}

// ReadFrameHeader reads a frame header from r.
func ReadFrameHeader(r io.Reader) (*FrameHeader, error) {
	header := &FrameHeader{}
	err := readElements(r, &header.ExtensionType, &header.MsgType)
	if err != nil {
		return nil, err
	}
	header.MsgLength, err = binaryserializer.Uint24(r)
	if err != nil {
		return nil, err
	}
	return header, nil
}

// Frame wraps payload with a frame header carrying the given extension type
// and message type. Payloads of 2^24 bytes or more fail with
// ErrFrameTooLarge.
func Frame(extensionType uint16, msgType MessageType, payload []byte) ([]byte, error) {
	if len(payload) > MaxPayloadLength {
		return nil, errors.Wrapf(ErrFrameTooLarge, "payload length %d exceeds the maximum of %d",
			len(payload), MaxPayloadLength)
	}

	header := &FrameHeader{
		ExtensionType: extensionType,
		MsgType:       msgType,
		MsgLength:     uint32(len(payload)),
	}
	buf := bytes.NewBuffer(make([]byte, 0, FrameHeaderSize+len(payload)))
	err := header.Serialize(buf)
	if err != nil {
		return nil, err
	}
	buf.Write(payload)
	return buf.Bytes(), nil
}
