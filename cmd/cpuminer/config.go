package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/jessevdk/go-flags"
	"github.com/kaspanet/go-secp256k1"
	"github.com/lucasbalieiro/cpuminer-stratum-v2/infrastructure/logger"
	"github.com/lucasbalieiro/cpuminer-stratum-v2/infrastructure/network/poolclient"
	"github.com/lucasbalieiro/cpuminer-stratum-v2/infrastructure/network/securechannel"
	"github.com/lucasbalieiro/cpuminer-stratum-v2/version"
	"github.com/pkg/errors"
)

const (
	defaultLogFilename    = "cpuminer.log"
	defaultErrLogFilename = "cpuminer_err.log"
	defaultAddress        = "localhost:3333"
	defaultTimeoutSeconds = 10
)

var (
	// Default configuration options
	defaultHomeDir = btcutil.AppDataDir("cpuminer", false)
	defaultDataDir = filepath.Join(defaultHomeDir, "data")
	defaultLogDir  = filepath.Join(defaultHomeDir, "logs")
)

type configFlags struct {
	ShowVersion     bool     `short:"V" long:"version" description:"Display version information and exit"`
	Address         string   `short:"a" long:"address" description:"Pool address to connect to (host:port)"`
	Timeout         uint     `short:"t" long:"timeout" description:"Timeout in seconds for connecting and for the handshake"`
	AuthorityPubKey string   `long:"authority-pubkey" description:"Base58check encoded key of the pool authority that signs the pool's certificate"`
	NoEncryption    bool     `long:"noencryption" description:"Talk to the pool in plaintext instead of over a Noise secure channel"`
	X25519          bool     `long:"x25519" description:"Run the Noise handshake over Curve25519 instead of secp256k1 with ElligatorSwift, for pools that don't support the latter"`
	Proxy           string   `long:"proxy" description:"Connect via SOCKS5 proxy (eg. 127.0.0.1:9050)"`
	ProxyUser       string   `long:"proxyuser" description:"Username for proxy server"`
	ProxyPass       string   `long:"proxypass" default-mask:"-" description:"Password for proxy server"`
	Vendor          string   `long:"vendor" description:"Vendor announced in SetupConnection"`
	HWVersion       string   `long:"hwversion" description:"Hardware version announced in SetupConnection"`
	Firmware        string   `long:"firmware" description:"Firmware announced in SetupConnection"`
	DeviceID        string   `long:"deviceid" description:"Device id announced in SetupConnection"`
	MinVersion      uint16   `long:"minversion" description:"Minimum protocol version to accept"`
	MaxVersion      uint16   `long:"maxversion" description:"Maximum protocol version to accept"`
	Flags           uint32   `long:"flags" description:"Feature flags announced in SetupConnection"`
	Header          string   `long:"header" description:"Hex encoded 80 byte block header to mine on locally"`
	Transactions    []string `long:"transactions" description:"Hex encoded transaction whose merkle root replaces the header's; may be repeated"`
	NonceRange      string   `long:"nonce-range" description:"Inclusive nonce range to search, as start:end; defaults to the whole nonce space starting at the header's nonce"`
	SkipHandshake   bool     `long:"skip-handshake" description:"Don't connect to the pool, only mine locally"`
	DataDir         string   `long:"datadir" description:"Directory to store found solutions and search progress"`
	LogDir          string   `long:"logdir" description:"Directory to log output"`
	LogLevel        string   `short:"d" long:"loglevel" description:"Logging level for all subsystems {trace, debug, info, warn, error, critical} -- You may also specify <subsystem>=<level>,<subsystem2>=<level>,... to set the log level for individual subsystems"`
	Profile         string   `long:"profile" description:"Enable HTTP profiling and metrics on given port -- NOTE port must be between 1024 and 65535"`

	authorityKey *secp256k1.SchnorrPublicKey
	nonceRange   *nonceRange
	timeout      time.Duration
}

// nonceRange is an inclusive nonce range that may wrap around.
type nonceRange struct {
	start uint32
	end   uint32
}

func newConfigFlags() *configFlags {
	setup := poolclient.DefaultSetupConfig()
	return &configFlags{
		Address:         defaultAddress,
		Timeout:         defaultTimeoutSeconds,
		AuthorityPubKey: securechannel.DefaultAuthorityKey,
		Vendor:          setup.Vendor,
		HWVersion:       setup.HardwareVersion,
		Firmware:        setup.Firmware,
		DeviceID:        setup.DeviceID,
		MinVersion:      setup.MinVersion,
		MaxVersion:      setup.MaxVersion,
		Flags:           setup.Flags,
		DataDir:         defaultDataDir,
		LogDir:          defaultLogDir,
		LogLevel:        "info",
	}
}

func parseConfig() (*configFlags, error) {
	cfg, err := parseConfigArgs(os.Args[1:])

	// Show the version and exit if the version flag was specified.
	if cfg != nil && cfg.ShowVersion {
		appName := filepath.Base(os.Args[0])
		appName = strings.TrimSuffix(appName, filepath.Ext(appName))
		fmt.Println(appName, "version", version.Version())
		os.Exit(0)
	}

	if err != nil {
		return nil, err
	}

	err = logger.InitLog(filepath.Join(cfg.LogDir, defaultLogFilename),
		filepath.Join(cfg.LogDir, defaultErrLogFilename))
	if err != nil {
		return nil, err
	}
	err = logger.ParseAndSetLogLevels(cfg.LogLevel)
	if err != nil {
		return nil, err
	}

	return cfg, nil
}

// parseConfigArgs parses and validates args. It doesn't touch the logger so
// it can be used by tests. The returned config is never nil, even along
// with an error, so --version can be honored despite other errors.
func parseConfigArgs(args []string) (*configFlags, error) {
	cfg := newConfigFlags()
	parser := flags.NewParser(cfg, flags.PrintErrors|flags.HelpFlag)
	_, err := parser.ParseArgs(args)
	if err != nil {
		return cfg, err
	}
	if cfg.ShowVersion {
		return cfg, nil
	}
	return cfg, cfg.validate()
}

func (cfg *configFlags) validate() error {
	if cfg.Timeout == 0 {
		return errors.New("--timeout must be positive")
	}
	cfg.timeout = time.Duration(cfg.Timeout) * time.Second

	if cfg.MinVersion > cfg.MaxVersion {
		return errors.Errorf("--minversion %d is above --maxversion %d", cfg.MinVersion, cfg.MaxVersion)
	}

	if cfg.SkipHandshake && cfg.Header == "" {
		return errors.New("--skip-handshake requires --header, there is nothing to do otherwise")
	}
	if cfg.Header == "" && (cfg.NonceRange != "" || len(cfg.Transactions) > 0) {
		return errors.New("--nonce-range and --transactions require --header")
	}

	if cfg.NoEncryption && cfg.AuthorityPubKey != securechannel.DefaultAuthorityKey {
		return errors.New("--authority-pubkey can't be used with --noencryption")
	}
	if cfg.NoEncryption && cfg.X25519 {
		return errors.New("--x25519 can't be used with --noencryption")
	}
	if !cfg.NoEncryption {
		authorityKey, err := securechannel.ParseAuthorityKey(cfg.AuthorityPubKey)
		if err != nil {
			return errors.Wrap(err, "invalid --authority-pubkey")
		}
		cfg.authorityKey = authorityKey
	}

	if cfg.Proxy == "" && (cfg.ProxyUser != "" || cfg.ProxyPass != "") {
		return errors.New("--proxyuser and --proxypass require --proxy")
	}

	if cfg.NonceRange != "" {
		start, end, err := parseNonceRange(cfg.NonceRange)
		if err != nil {
			return err
		}
		cfg.nonceRange = &nonceRange{start: start, end: end}
	}

	if cfg.Profile != "" {
		profilePort, err := strconv.Atoi(cfg.Profile)
		if err != nil || profilePort < 1024 || profilePort > 65535 {
			return errors.New("The profile port must be between 1024 and 65535")
		}
	}

	return nil
}

// setupConfig returns what the miner announces to the pool.
func (cfg *configFlags) setupConfig() *poolclient.SetupConfig {
	setup := poolclient.DefaultSetupConfig()
	setup.MinVersion = cfg.MinVersion
	setup.MaxVersion = cfg.MaxVersion
	setup.Flags = cfg.Flags
	setup.Vendor = cfg.Vendor
	setup.HardwareVersion = cfg.HWVersion
	setup.Firmware = cfg.Firmware
	setup.DeviceID = cfg.DeviceID
	return setup
}

// parseNonceRange parses an inclusive nonce range given as start:end. Both
// ends accept decimal or 0x prefixed hex. end may be below start, in which
// case the range wraps around through 0xffffffff.
func parseNonceRange(s string) (start, end uint32, err error) {
	parts := strings.Split(s, ":")
	if len(parts) != 2 {
		return 0, 0, errors.Errorf("nonce range '%s' is not of the form start:end", s)
	}
	values := make([]uint32, 2)
	for i, part := range parts {
		value, err := strconv.ParseUint(strings.TrimSpace(part), 0, 32)
		if err != nil {
			return 0, 0, errors.Wrapf(err, "invalid nonce '%s' in range '%s'", part, s)
		}
		values[i] = uint32(value)
	}
	return values[0], values[1], nil
}
