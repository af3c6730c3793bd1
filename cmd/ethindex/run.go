package main

import (
	"fmt"
	"path/filepath"

	"github.com/goran-ethernal/ethindex/internal/common"
	"github.com/goran-ethernal/ethindex/internal/config"
	"github.com/goran-ethernal/ethindex/internal/fetcher"
	"github.com/goran-ethernal/ethindex/internal/logger"
	"github.com/goran-ethernal/ethindex/internal/pipeline"
	"github.com/goran-ethernal/ethindex/internal/reconcile"
	"github.com/goran-ethernal/ethindex/internal/rpc"
	"github.com/goran-ethernal/ethindex/internal/types"
	pkgconfig "github.com/goran-ethernal/ethindex/pkg/config"
	pkgstore "github.com/goran-ethernal/ethindex/pkg/store"
	"github.com/spf13/cobra"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Index the configured block range once",
	Long: `Fetch the logs of every configured contract over the configured block range,
decode them, verify them against the canonical block headers and store blocks and events.
A detected reorg aborts the run before anything is written.`,
	RunE: runIndexer,
}

func runIndexer(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadFromFile(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	ctx, cancel := signalContext()
	defer cancel()

	log := logger.NewComponentLoggerFromConfig(common.ComponentPipeline, cfg.Logging)

	stopMetrics, err := startMetrics(ctx, cfg.Metrics, log)
	if err != nil {
		return err
	}
	defer stopMetrics()

	log.Infof("connecting to ethereum node: %s", cfg.RPC.URL)
	ethClient, err := rpc.NewClient(ctx, cfg.RPC, logger.NewComponentLoggerFromConfig(common.ComponentRPC, cfg.Logging))
	if err != nil {
		return fmt.Errorf("failed to create RPC client: %w", err)
	}
	defer ethClient.Close()

	st, err := openStore(ctx, cfg.Storage, cfg.Logging)
	if err != nil {
		return fmt.Errorf("failed to open %s store: %w", cfg.Storage.Driver, err)
	}
	defer func() {
		if err := st.Close(); err != nil {
			log.Warnf("failed to close store: %v", err)
		}
	}()

	toBlock, err := types.ParseBlockBound(cfg.Ingestion.ToBlock)
	if err != nil {
		return fmt.Errorf("invalid to_block: %w", err)
	}

	runner, err := pipeline.New(
		pipeline.Config{
			FromBlock:     cfg.Ingestion.FromBlock,
			ToBlock:       toBlock,
			DecodeWorkers: cfg.Ingestion.DecodeWorkers,
		},
		interfaceSource(cfg, st),
		fetcher.NewLogFetcher(
			fetcher.LogFetcherConfig{ChunkSize: cfg.Ingestion.ChunkSize},
			logger.NewComponentLoggerFromConfig(common.ComponentLogFetcher, cfg.Logging),
			ethClient,
		),
		fetcher.NewBlockFetcher(
			logger.NewComponentLoggerFromConfig(common.ComponentBlockFetcher, cfg.Logging),
			ethClient,
			cfg.Ingestion.BlockWorkers,
		),
		st,
		reconcile.NewReconciler(logger.NewComponentLoggerFromConfig(common.ComponentReconciler, cfg.Logging)),
		log,
	)
	if err != nil {
		return fmt.Errorf("failed to create pipeline: %w", err)
	}

	summary, err := runner.Run(ctx)
	if err != nil {
		return fmt.Errorf("run failed: %w", err)
	}

	log.Infow("indexing finished",
		"from_block", summary.FromBlock,
		"to_block", summary.ToBlock,
		"events_stored", summary.EventsStored,
		"blocks_stored", summary.BlocksStored,
	)

	return nil
}

// interfaceSource picks where contract ABIs are loaded from.
func interfaceSource(cfg *pkgconfig.Config, st pkgstore.Store) pkgstore.InterfaceSource {
	if cfg.ABISource == pkgconfig.ABISourceDatabase {
		return st
	}
	return config.NewContractSource(cfg.Contracts, filepath.Dir(configPath))
}
