package wire

import "fmt"

// Protocol identifies the sub-protocol a connection is set up for.
type Protocol uint8

// Protocols a SetupConnection can ask for.
const (
	MiningProtocol               Protocol = 0
	JobDeclarationProtocol       Protocol = 1
	TemplateDistributionProtocol Protocol = 2
)

var protocolStrings = map[Protocol]string{
	MiningProtocol:               "MiningProtocol",
	JobDeclarationProtocol:       "JobDeclarationProtocol",
	TemplateDistributionProtocol: "TemplateDistributionProtocol",
}

// IsValid returns true iff p is one of the known protocols
func (p Protocol) IsValid() bool {
	_, ok := protocolStrings[p]
	return ok
}

// String returns the Protocol in human-readable form.
func (p Protocol) String() string {
	if s, ok := protocolStrings[p]; ok {
		return s
	}
	return fmt.Sprintf("Unknown Protocol (%d)", uint8(p))
}

// Flags a miner can set in a MiningProtocol SetupConnection.
const (
	// SetupConnectionFlagRequiresStandardJobs indicates the downstream
	// node does not understand extended channels.
	SetupConnectionFlagRequiresStandardJobs uint32 = 1 << iota

	// SetupConnectionFlagRequiresWorkSelection indicates the client
	// will send SetCustomMiningJob messages.
	SetupConnectionFlagRequiresWorkSelection

	// SetupConnectionFlagRequiresVersionRolling indicates the client
	// requires version rolling for efficiency or correct operation.
	SetupConnectionFlagRequiresVersionRolling
)
