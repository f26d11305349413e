package poolclient

import (
	"fmt"
	"net"

	"github.com/lucasbalieiro/cpuminer-stratum-v2/infrastructure/network/transport"
	"github.com/lucasbalieiro/cpuminer-stratum-v2/wire"
)

// Defaults for the fields of SetupConnection this miner sends.
const (
	DefaultVendor          = "cpuminer_stratum_v2"
	DefaultHardwareVersion = "HWv1.0"
	DefaultFirmware        = "FWv1.0"
	DefaultDeviceID        = "balieiro_dev"
	DefaultMinVersion      = 2
	DefaultMaxVersion      = 2
)

// SetupConfig holds what the miner announces about itself in
// SetupConnection.
type SetupConfig struct {
	Protocol        wire.Protocol
	MinVersion      uint16
	MaxVersion      uint16
	Flags           uint32
	Vendor          string
	HardwareVersion string
	Firmware        string
	DeviceID        string
}

// DefaultSetupConfig returns the SetupConnection settings for a mining
// protocol connection.
func DefaultSetupConfig() *SetupConfig {
	return &SetupConfig{
		Protocol:        wire.MiningProtocol,
		MinVersion:      DefaultMinVersion,
		MaxVersion:      DefaultMaxVersion,
		Flags:           0,
		Vendor:          DefaultVendor,
		HardwareVersion: DefaultHardwareVersion,
		Firmware:        DefaultFirmware,
		DeviceID:        DefaultDeviceID,
	}
}

// SetupConnectionMessage builds the SetupConnection for conn. The endpoint
// host and port are the ones conn is connected to.
func SetupConnectionMessage(cfg *SetupConfig, conn net.Conn) (*wire.MsgSetupConnection, error) {
	host, port, err := transport.RemoteEndpoint(conn)
	if err != nil {
		return nil, err
	}
	msg := wire.NewMsgSetupConnection(cfg.Protocol, cfg.MinVersion, cfg.MaxVersion, cfg.Flags)
	msg.EndpointHost = host
	msg.EndpointPort = port
	msg.Vendor = cfg.Vendor
	msg.HardwareVersion = cfg.HardwareVersion
	msg.Firmware = cfg.Firmware
	msg.DeviceID = cfg.DeviceID
	return msg, nil
}

// SetupConnectionError is returned by Connect when the pool answers
// SetupConnection with SetupConnection.Error.
type SetupConnectionError struct {
	Code  string
	Flags uint32
}

func (e *SetupConnectionError) Error() string {
	if e.Flags != 0 {
		return fmt.Sprintf("pool rejected the connection: %s (flags %#x)", e.Code, e.Flags)
	}
	return fmt.Sprintf("pool rejected the connection: %s", e.Code)
}
