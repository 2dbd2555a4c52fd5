// Copyright 2023-2024, the esc-node authors.
// For license information, see https://github.com/ethscriptions-protocol/esc-node/blob/master/LICENSE

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/log"
	"github.com/pkg/errors"

	"github.com/ethscriptions-protocol/esc-node/escnode"
	"github.com/ethscriptions-protocol/esc-node/ethscription"
	"github.com/ethscriptions-protocol/esc-node/validation"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	config, err := ParseNode(args)
	if err != nil {
		return err
	}

	glogger := log.NewGlogHandler(log.StreamHandler(os.Stderr, log.TerminalFormat(false)))
	glogger.Verbosity(log.Lvl(config.LogLevel))
	log.Root().SetHandler(glogger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	l1Client, err := escnode.DialL1Client(ctx, config.L1.URL)
	if err != nil {
		return errors.Wrap(err, "dialing L1")
	}
	var jwtSecret []byte
	if config.L2.JWTSecret != "" {
		jwtSecret = common.FromHex(config.L2.JWTSecret)
	}
	engineClient, err := escnode.DialEngineClient(ctx, config.L2.URL, jwtSecret)
	if err != nil {
		return errors.Wrap(err, "dialing L2 engine")
	}

	var feed escnode.ReferenceFeed
	if config.Feed.URL != "" {
		feed = escnode.NewReferenceFeed(config.Feed.URL)
	}

	detector := ethscription.NewDetector(ethscription.MainnetChainConfig)

	var (
		store            *validation.Store
		validationEngine *validation.Engine
	)
	if config.Validation.Enabled {
		store, err = validation.OpenStore(config.Validation.DBPath)
		if err != nil {
			return errors.Wrap(err, "opening validation store")
		}
		defer store.Close()

		engineConfig := validation.DefaultEngineConfig
		engineConfig.Threads = config.Validation.Threads
		validationEngine = validation.NewEngine(
			store, feed, escnode.NewDeriver(l1Client, detector), nil, engineConfig)
		validationEngine.Start(ctx)
		defer validationEngine.Stop(config.ShutdownTimeout)
	} else {
		store, err = validation.OpenStore(config.Validation.DBPath)
		if err != nil {
			return errors.Wrap(err, "opening validation store")
		}
		defer store.Close()
	}

	importerConfig := escnode.DefaultImporterConfig
	importerConfig.RetryOffset = config.RetryOffset
	importerConfig.ShutdownTimeout = config.ShutdownTimeout
	importerConfig.ValidationEnabled = config.Validation.Enabled

	prefetcherConfig := escnode.PrefetcherConfig{
		Forward:           config.Prefetch.Forward,
		Threads:           config.Prefetch.Threads,
		ValidationEnabled: config.Validation.Enabled,
	}

	// The import loop restarts with fresh cursor discovery after a reorg;
	// a validation failure halts for operator intervention.
	for {
		prefetcher := escnode.NewPrefetcher(l1Client, feed, detector, prefetcherConfig)
		prefetcher.Start(ctx)

		var queue escnode.ValidationQueue
		if validationEngine != nil {
			queue = validationEngine
		}
		importer := escnode.NewImporter(l1Client, engineClient, prefetcher, store, queue, importerConfig)
		if err := importer.RecoverStartingBlock(ctx); err != nil {
			prefetcher.Shutdown(config.ShutdownTimeout)
			return errors.Wrap(err, "recovering starting block")
		}
		importer.Start(ctx)

		err := waitForStop(ctx, importer)
		importer.Stop()

		switch {
		case err == nil:
			log.Info("shutting down")
			return nil
		case errors.Is(err, escnode.ErrReorgDetected):
			log.Warn("reorg detected, restarting with fresh cursor discovery", "err", err)
			continue
		default:
			return err
		}
	}
}

// waitForStop blocks until shutdown is requested or the importer records a
// fatal error.
func waitForStop(ctx context.Context, importer *escnode.Importer) error {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := importer.Err(); err != nil {
				return err
			}
		}
	}
}
