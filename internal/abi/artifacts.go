package abi

import (
	"encoding/json"
	"fmt"
	"slices"

	"github.com/ethereum/go-ethereum/common"
)

// AddressABIs joins a deployment map (contract name to address) with compiled contracts
// (contract name to ABI or artifact) into the ABI of every deployed address.
// Every deployed contract must have a parsable ABI.
func AddressABIs(addresses map[string]string, contracts map[string]json.RawMessage) (map[common.Address]json.RawMessage, error) {
	names := make([]string, 0, len(addresses))
	for name := range addresses {
		names = append(names, name)
	}
	slices.Sort(names)

	result := make(map[common.Address]json.RawMessage, len(addresses))
	for _, name := range names {
		raw := addresses[name]
		if !common.IsHexAddress(raw) {
			return nil, fmt.Errorf("contract %s: invalid address %q", name, raw)
		}

		artifact, ok := contracts[name]
		if !ok {
			return nil, fmt.Errorf("contract %s: no ABI found", name)
		}

		abiJSON, err := ExtractABI(artifact)
		if err != nil {
			return nil, fmt.Errorf("contract %s: %w", name, err)
		}
		if _, err := ParseJSON(name, abiJSON); err != nil {
			return nil, err
		}

		address := common.HexToAddress(raw)
		if _, ok := result[address]; ok {
			return nil, fmt.Errorf("contract %s: address %s is deployed under more than one name", name, address.Hex())
		}
		result[address] = abiJSON
	}

	return result, nil
}
