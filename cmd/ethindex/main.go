package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/goran-ethernal/ethindex/internal/common"
	"github.com/goran-ethernal/ethindex/internal/config"
	"github.com/goran-ethernal/ethindex/internal/logger"
	"github.com/goran-ethernal/ethindex/internal/metrics"
	"github.com/goran-ethernal/ethindex/internal/store"
	pkgconfig "github.com/goran-ethernal/ethindex/pkg/config"
	pkgstore "github.com/goran-ethernal/ethindex/pkg/store"
	"github.com/spf13/cobra"
)

const version = "1.0.0"

var configPath string

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "ethindex",
	Short: "ethindex - Ethereum event log indexer",
	Long: `ethindex fetches the event logs of a set of contracts, decodes them against their ABIs,
verifies every log against the canonical block header and stores blocks and events
in SQLite or PostgreSQL.`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: false,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the ethindex version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintln(cmd.OutOrStdout(), version)
	},
}

var schemaCmd = &cobra.Command{
	Use:   "config-schema",
	Short: "Print the JSON Schema of the configuration file",
	RunE: func(cmd *cobra.Command, args []string) error {
		schema, err := config.Schema()
		if err != nil {
			return fmt.Errorf("failed to generate config schema: %w", err)
		}
		_, err = fmt.Fprintln(cmd.OutOrStdout(), string(schema))
		return err
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "config.yaml", "path to configuration file")
	rootCmd.AddCommand(runCmd, importABICmd, serveCmd, schemaCmd, versionCmd)
}

// signalContext returns a context cancelled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

// openStore opens the storage backend selected in the configuration.
func openStore(ctx context.Context, cfg pkgconfig.StorageConfig, logging *pkgconfig.LoggingConfig) (pkgstore.Store, error) {
	log := logger.NewComponentLoggerFromConfig(common.ComponentStore, logging)

	switch cfg.Driver {
	case pkgconfig.DriverSQLite:
		s, err := store.NewSQLiteStore(cfg.SQLite, log)
		if err != nil {
			return nil, err
		}
		return s, nil
	case pkgconfig.DriverPostgres:
		s, err := store.NewPostgresStore(ctx, *cfg.Postgres, log)
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unsupported storage driver %q", cfg.Driver)
	}
}

// startMetrics starts the metrics server when enabled and returns its shutdown function.
func startMetrics(ctx context.Context, cfg *pkgconfig.MetricsConfig, log *logger.Logger) (func(), error) {
	if cfg == nil || !cfg.Enabled {
		return func() {}, nil
	}

	server := metrics.NewServer(cfg, log)
	if err := server.Start(ctx); err != nil {
		return nil, fmt.Errorf("failed to start metrics server: %w", err)
	}

	return func() {
		if err := server.Stop(context.Background()); err != nil {
			log.Warnf("failed to stop metrics server: %v", err)
		}
	}, nil
}
