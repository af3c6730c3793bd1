package main

import (
	"errors"
	"fmt"

	"github.com/goran-ethernal/ethindex/internal/common"
	"github.com/goran-ethernal/ethindex/internal/config"
	"github.com/goran-ethernal/ethindex/internal/logger"
	"github.com/goran-ethernal/ethindex/pkg/api"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the read-only query API over stored events",
	Long: `Start the HTTP API configured in the "api" section. It exposes stored events,
statistics and the decodable contracts, plus a Swagger UI under /swagger/.`,
	RunE: serveAPI,
}

func serveAPI(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadFromFile(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if cfg.API == nil || !cfg.API.Enabled {
		return errors.New("api is not enabled in the configuration")
	}

	ctx, cancel := signalContext()
	defer cancel()

	log := logger.NewComponentLoggerFromConfig(common.ComponentAPI, cfg.Logging)

	stopMetrics, err := startMetrics(ctx, cfg.Metrics, log)
	if err != nil {
		return err
	}
	defer stopMetrics()

	st, err := openStore(ctx, cfg.Storage, cfg.Logging)
	if err != nil {
		return fmt.Errorf("failed to open %s store: %w", cfg.Storage.Driver, err)
	}
	defer func() {
		if err := st.Close(); err != nil {
			log.Warnf("failed to close store: %v", err)
		}
	}()

	return api.NewServer(cfg.API, st, interfaceSource(cfg, st), log).Start(ctx)
}
