package main

import (
	"context"
	"fmt"
	"os"

	"github.com/lucasbalieiro/cpuminer-stratum-v2/infrastructure/db/solutionstore"
	"github.com/lucasbalieiro/cpuminer-stratum-v2/infrastructure/logger"
	"github.com/lucasbalieiro/cpuminer-stratum-v2/infrastructure/metrics"
	"github.com/lucasbalieiro/cpuminer-stratum-v2/infrastructure/os/signal"
	"github.com/lucasbalieiro/cpuminer-stratum-v2/util/panics"
	"github.com/lucasbalieiro/cpuminer-stratum-v2/util/profiling"
	"github.com/lucasbalieiro/cpuminer-stratum-v2/version"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
)

func main() {
	defer panics.HandlePanic(log, "main", nil)

	cfg, err := parseConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error parsing command-line arguments: %s\n", err)
		os.Exit(1)
	}
	defer logger.BackendLog.Close()

	// Show version at startup.
	log.Infof("Version %s", version.Version())

	minerMetrics := metrics.New()
	err = minerMetrics.Register(prometheus.DefaultRegisterer)
	if err != nil {
		panic(err)
	}

	// Enable http profiling server if requested.
	if cfg.Profile != "" {
		profiling.Start(cfg.Profile, prometheus.DefaultGatherer, log)
	}

	ctx, cancel := signal.InterruptContext(context.Background())
	defer cancel()

	if !cfg.SkipHandshake {
		client, err := connectToPool(cfg, minerMetrics)
		if err != nil {
			panics.Exit(log, fmt.Sprintf("Error connecting to the pool at %s: %+v", cfg.Address, err))
		}
		defer client.Close()
		log.Infof("Connected to pool %s using protocol version %d", client.Address(), client.UsedVersion())
	}

	if cfg.Header == "" {
		return
	}

	provider, err := newWorkProvider(cfg)
	if err != nil {
		panics.Exit(log, fmt.Sprintf("Error reading the block header: %+v", err))
	}
	store, err := solutionstore.Open(cfg.DataDir)
	if err != nil {
		panics.Exit(log, fmt.Sprintf("Error opening the solution store: %+v", err))
	}
	defer store.Close()

	doneChan := make(chan struct{})
	spawn("mineLoop", func() {
		defer close(doneChan)
		_, err := mineLoop(ctx, provider, cfg.nonceRange, store, minerMetrics)
		if err != nil {
			panic(errors.Wrap(err, "Error in mine loop"))
		}
	})
	<-doneChan
}
