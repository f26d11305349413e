package wire

import "io"

// MsgSetupConnectionSuccess is the server's reply to an accepted
// SetupConnection.
type MsgSetupConnectionSuccess struct {
	// UsedVersion is the version the server picked from the client's range.
	UsedVersion uint16

	// Flags are the optional features the server supports.
	Flags uint32
}

// MessageType returns the message type of this message.
func (msg *MsgSetupConnectionSuccess) MessageType() MessageType {
	return MsgTypeSetupConnectionSuccess
}

// Encode writes msg to w.
func (msg *MsgSetupConnectionSuccess) Encode(w io.Writer) error {
	return writeElements(w, msg.UsedVersion, msg.Flags)
}

// Decode reads msg from r.
func (msg *MsgSetupConnectionSuccess) Decode(r io.Reader) error {
	return readElements(r, &msg.UsedVersion, &msg.Flags)
}
