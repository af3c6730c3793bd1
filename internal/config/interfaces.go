package config

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/goran-ethernal/ethindex/internal/abi"
	pkgconfig "github.com/goran-ethernal/ethindex/pkg/config"
	pkgstore "github.com/goran-ethernal/ethindex/pkg/store"
)

// Compile-time check to ensure ContractSource implements pkgstore.InterfaceSource interface.
var _ pkgstore.InterfaceSource = (*ContractSource)(nil)

// ContractSource builds contract interfaces from the contracts section of the configuration.
type ContractSource struct {
	contracts []pkgconfig.ContractConfig
	baseDir   string
}

// NewContractSource creates a source for contracts. Relative abi_file paths are
// resolved against baseDir, normally the directory of the configuration file.
func NewContractSource(contracts []pkgconfig.ContractConfig, baseDir string) *ContractSource {
	return &ContractSource{contracts: contracts, baseDir: baseDir}
}

// LoadInterfaces parses the ABI file and event signatures of every configured contract.
// Contracts listed more than once under the same address are merged.
func (s *ContractSource) LoadInterfaces(_ context.Context) (map[string]*abi.ContractInterface, error) {
	interfaces := make(map[string]*abi.ContractInterface, len(s.contracts))

	for _, contract := range s.contracts {
		iface, err := s.load(contract)
		if err != nil {
			return nil, fmt.Errorf("contract %s (%s): %w", contract.Name, contract.Address, err)
		}

		if existing, ok := interfaces[contract.Address]; ok {
			existing.Merge(iface)
			continue
		}
		interfaces[contract.Address] = iface
	}

	return interfaces, nil
}

func (s *ContractSource) load(contract pkgconfig.ContractConfig) (*abi.ContractInterface, error) {
	iface := abi.NewContractInterface(contract.Name)

	if contract.ABIFile != "" {
		path := contract.ABIFile
		if !filepath.IsAbs(path) {
			path = filepath.Join(s.baseDir, path)
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read abi file: %w", err)
		}

		fromFile, err := abi.ParseJSON(contract.Name, data)
		if err != nil {
			return nil, fmt.Errorf("failed to parse abi file %s: %w", path, err)
		}
		iface.Merge(fromFile)
	}

	if len(contract.Events) > 0 {
		fromSignatures, err := abi.ParseEventSignatures(contract.Name, contract.Events)
		if err != nil {
			return nil, err
		}
		iface.Merge(fromSignatures)
	}

	return iface, nil
}
