package wire

import (
	"fmt"
	"io"

	"github.com/pkg/errors"
)

// MsgSetupConnection is the first message a client sends after the secure
// channel is established. It declares the protocol the client wants to
// speak, the range of versions it supports and information about the mining
// device.
//
// String fields are written as their raw bytes followed by a single zero
// byte, so they must not contain zero bytes themselves.
type MsgSetupConnection struct {
	Protocol   Protocol
	MinVersion uint16
	MaxVersion uint16

	// Flags are optional protocol features the client supports. Their
	// meaning depends on Protocol.
	Flags uint32

	EndpointHost string
	EndpointPort uint16

	Vendor          string
	HardwareVersion string
	Firmware        string
	DeviceID        string
}

// MessageType returns the message type of this message.
func (msg *MsgSetupConnection) MessageType() MessageType {
	return MsgTypeSetupConnection
}

func (msg *MsgSetupConnection) validate() error {
	if !msg.Protocol.IsValid() {
		return errors.Wrapf(ErrInvalidFieldContent, "unknown protocol %d", uint8(msg.Protocol))
	}
	stringFields := []struct {
		name  string
		value string
	}{
		{"endpoint host", msg.EndpointHost},
		{"vendor", msg.Vendor},
		{"hardware version", msg.HardwareVersion},
		{"firmware", msg.Firmware},
		{"device id", msg.DeviceID},
	}
	for _, field := range stringFields {
		err := validateString(field.name, field.value)
		if err != nil {
			return err
		}
	}
	return nil
}

// Encode writes msg to w. Nothing is written if any field fails validation.
func (msg *MsgSetupConnection) Encode(w io.Writer) error {
	err := msg.validate()
	if err != nil {
		return err
	}

	return writeElements(w,
		msg.Protocol, msg.MinVersion, msg.MaxVersion, msg.Flags,
		msg.EndpointHost, msg.EndpointPort,
		msg.Vendor, msg.HardwareVersion, msg.Firmware, msg.DeviceID)
}

// Decode reads msg from r.
func (msg *MsgSetupConnection) Decode(r io.Reader) error {
	err := readElements(r,
		&msg.Protocol, &msg.MinVersion, &msg.MaxVersion, &msg.Flags,
		&msg.EndpointHost, &msg.EndpointPort,
		&msg.Vendor, &msg.HardwareVersion, &msg.Firmware, &msg.DeviceID)
	if err != nil {
		return err
	}
	if !msg.Protocol.IsValid() {
		return messageError("MsgSetupConnection.Decode", fmt.Sprintf("unknown protocol %d", uint8(msg.Protocol)))
	}
	return nil
}

// NewMsgSetupConnection returns a new MsgSetupConnection for the given
// protocol and version range. The endpoint and device fields are left for
// the caller to fill in.
func NewMsgSetupConnection(protocol Protocol, minVersion, maxVersion uint16, flags uint32) *MsgSetupConnection {
	return &MsgSetupConnection{
		Protocol:   protocol,
		MinVersion: minVersion,
		MaxVersion: maxVersion,
		Flags:      flags,
	}
}
