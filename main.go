package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/Ethernal-Tech/iroha-explorer/common"
	"github.com/Ethernal-Tech/iroha-explorer/config"
	"github.com/Ethernal-Tech/iroha-explorer/indexer"
	"github.com/Ethernal-Tech/iroha-explorer/indexer/irohagrpc"
	"github.com/Ethernal-Tech/iroha-explorer/iroha"
	"github.com/Ethernal-Tech/iroha-explorer/logger"
	"github.com/hashicorp/go-hclog"
)

const dataDirPerms = 0o770

func startSyncer(
	cfg *config.Config, blockIndexer *indexer.BlockIndexer, logger hclog.Logger,
) (*indexer.BlockIndexerRunner, *indexer.BlockSyncerImpl, func(), error) {
	key, err := cfg.Keypair()
	if err != nil {
		return nil, nil, nil, err
	}

	client, err := irohagrpc.NewClient(cfg.Sync.Host, cfg.Sync.AccountID, key, logger.Named("iroha_client"))
	if err != nil {
		return nil, nil, nil, err
	}

	runner := indexer.NewBlockIndexerRunner(blockIndexer, &cfg.Sync.Runner, logger.Named("block_indexer_runner"))
	syncer := indexer.NewBlockSyncer(&cfg.Sync.Syncer, client, blockIndexer, runner, logger.Named("block_syncer"))

	runner.Start()

	stop := func() {
		_ = syncer.Close()
		_ = runner.Close()
		<-runner.Done()
		_ = client.Close()
	}

	if err := syncer.Sync(); err != nil {
		stop()

		return nil, nil, nil, err
	}

	return runner, syncer, stop, nil
}

func run() int {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "invalid configuration:", err)

		return 1
	}

	logger, logCloser, err := logger.NewLogger(cfg.Logger)
	if err != nil {
		fmt.Fprintln(os.Stderr, "failed to create logger:", err)

		return 1
	}

	defer logCloser.Close()

	logger.Info("Starting explorer", "config", cfg)

	if err := iroha.ValidatePermissionTables(); err != nil {
		logger.Error("Unsupported protocol", "err", err)

		return 1
	}

	if err := common.CreateDirSafe(cfg.DataDir, dataDirPerms); err != nil {
		logger.Error("Failed to create data directory", "path", cfg.DataDir, "err", err)

		return 1
	}

	blockLog := indexer.NewBlockLog(cfg.DataDir, logger.Named("block_log"))
	defer blockLog.Close()

	blockIndexer := indexer.NewBlockIndexer(blockLog, logger.Named("block_indexer"))
	if err := blockIndexer.Load(); err != nil {
		logger.Error("Failed to load block cache", "err", err)

		return 1
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if !cfg.Sync.Enabled {
		logger.Info("Sync disabled")
		<-ctx.Done()

		return 0
	}

	runner, syncer, stop, err := startSyncer(cfg, blockIndexer, logger)
	if err != nil {
		logger.Error("Failed to start sync", "err", err)

		return 1
	}

	defer stop()

	select {
	case <-ctx.Done():
		logger.Info("Shutting down")

		return 0
	case err := <-syncer.ErrorCh():
		logger.Error("Syncer fatal error", "err", err)
	case err := <-runner.ErrorCh():
		logger.Error("Block indexer runner fatal error", "err", err)
	}

	return 1
}

func main() {
	os.Exit(run())
}
