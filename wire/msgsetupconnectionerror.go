package wire

import "io"

// Error codes a server can put in a SetupConnection.Error.
const (
	SetupConnectionErrorUnsupportedFeatureFlags = "unsupported-feature-flags"
	SetupConnectionErrorUnsupportedProtocol     = "unsupported-protocol"
	SetupConnectionErrorProtocolVersionMismatch = "protocol-version-mismatch"
)

// MsgSetupConnectionError is the server's reply to a rejected
// SetupConnection.
type MsgSetupConnectionError struct {
	// Flags lists the requested features the server does not support, when
	// ErrorCode is unsupported-feature-flags.
	Flags uint32

	ErrorCode string
}

// MessageType returns the message type of this message.
func (msg *MsgSetupConnectionError) MessageType() MessageType {
	return MsgTypeSetupConnectionError
}

// Encode writes msg to w.
func (msg *MsgSetupConnectionError) Encode(w io.Writer) error {
	err := validateString("error code", msg.ErrorCode)
	if err != nil {
		return err
	}
	return writeElements(w, msg.Flags, msg.ErrorCode)
}

// Decode reads msg from r.
func (msg *MsgSetupConnectionError) Decode(r io.Reader) error {
	return readElements(r, &msg.Flags, &msg.ErrorCode)
}
