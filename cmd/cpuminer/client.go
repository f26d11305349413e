package main

import (
	"github.com/lucasbalieiro/cpuminer-stratum-v2/infrastructure/metrics"
	"github.com/lucasbalieiro/cpuminer-stratum-v2/infrastructure/network/poolclient"
	"github.com/lucasbalieiro/cpuminer-stratum-v2/infrastructure/network/securechannel"
	"github.com/lucasbalieiro/cpuminer-stratum-v2/infrastructure/network/transport"
)

func newPoolClientConfig(cfg *configFlags, minerMetrics *metrics.Metrics) (*poolclient.Config, error) {
	var dialer transport.Dialer = transport.NewTCPDialer()
	if cfg.Proxy != "" {
		proxyDialer, err := transport.NewProxyDialer(cfg.Proxy, cfg.ProxyUser, cfg.ProxyPass)
		if err != nil {
			return nil, err
		}
		log.Infof("Connecting to the pool via proxy %s", cfg.Proxy)
		dialer = proxyDialer
	}

	var channel securechannel.SecureChannel
	switch {
	case cfg.NoEncryption:
		channel = securechannel.NewPlaintextChannel()
	case cfg.X25519:
		channel = securechannel.NewNoiseChannel(cfg.authorityKey)
	default:
		channel = securechannel.NewEllSwiftChannel(cfg.authorityKey)
	}

	return &poolclient.Config{
		Address: cfg.Address,
		Timeout: cfg.timeout,
		Dialer:  dialer,
		Channel: channel,
		Setup:   cfg.setupConfig(),
		Metrics: minerMetrics,
	}, nil
}

func connectToPool(cfg *configFlags, minerMetrics *metrics.Metrics) (*poolclient.Client, error) {
	clientConfig, err := newPoolClientConfig(cfg, minerMetrics)
	if err != nil {
		return nil, err
	}
	return poolclient.Connect(clientConfig)
}
