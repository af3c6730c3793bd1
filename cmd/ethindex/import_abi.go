package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/goran-ethernal/ethindex/internal/abi"
	"github.com/goran-ethernal/ethindex/internal/common"
	"github.com/goran-ethernal/ethindex/internal/config"
	"github.com/goran-ethernal/ethindex/internal/logger"
	"github.com/spf13/cobra"
)

var (
	addressesPath string
	contractsPath string
)

var importABICmd = &cobra.Command{
	Use:   "import-abi",
	Short: "Import contract ABIs into the abis table",
	Long: `Join a deployment file (contract name -> address) with a contracts file
(contract name -> ABI or {"abi": [...]}) and insert the ABI of every deployed address.
Addresses already present in the abis table are left untouched.`,
	RunE: importABIs,
}

func init() {
	importABICmd.Flags().StringVar(&addressesPath, "addresses", "addresses.json", "path to the contract name -> address file")
	importABICmd.Flags().StringVar(&contractsPath, "contracts", "contracts.json", "path to the contract name -> ABI file")
}

func importABIs(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadFromFile(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	ctx, cancel := signalContext()
	defer cancel()

	log := logger.NewComponentLoggerFromConfig(common.ComponentABIImport, cfg.Logging)

	var addresses map[string]string
	if err := readJSON(addressesPath, &addresses); err != nil {
		return err
	}

	var contracts map[string]json.RawMessage
	if err := readJSON(contractsPath, &contracts); err != nil {
		return err
	}

	abis, err := abi.AddressABIs(addresses, contracts)
	if err != nil {
		return fmt.Errorf("failed to build address to ABI mapping: %w", err)
	}
	log.Infof("importing %d abis", len(abis))

	st, err := openStore(ctx, cfg.Storage, cfg.Logging)
	if err != nil {
		return fmt.Errorf("failed to open %s store: %w", cfg.Storage.Driver, err)
	}
	defer func() {
		if err := st.Close(); err != nil {
			log.Warnf("failed to close store: %v", err)
		}
	}()

	inserted, err := st.ImportABIs(ctx, abis)
	if err != nil {
		return fmt.Errorf("failed to import abis: %w", err)
	}

	log.Infow("abis imported", "inserted", inserted, "skipped", len(abis)-inserted)
	return nil
}

func readJSON(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return nil
}
