package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"slices"

	"github.com/ethereum/go-ethereum/common"
	"github.com/goran-ethernal/ethindex/internal/abi"
	"github.com/goran-ethernal/ethindex/internal/registry"
)

const (
	tableABIs   = "abis"
	tableBlocks = "blocks"
	tableEvents = "events"
)

var errNotReconciled = errors.New("event has no block timestamp")

// eventRow is the persisted form of a decoded event.
type eventRow struct {
	TxHash      common.Hash    `meddler:"transaction_hash,hash"`
	LogIndex    uint           `meddler:"log_index"`
	BlockNumber uint64         `meddler:"block_number"`
	BlockHash   common.Hash    `meddler:"block_hash,hash"`
	Address     common.Address `meddler:"address,address"`
	EventName   string         `meddler:"event_name"`
	Args        string         `meddler:"args"`
	TxIndex     uint           `meddler:"transaction_index"`
	Timestamp   uint64         `meddler:"timestamp"`
}

func newEventRow(event *registry.DecodedEvent) (*eventRow, error) {
	if event.Timestamp == nil {
		return nil, fmt.Errorf("tx %s log %d: %w", event.Log.TxHash.Hex(), event.Log.Index, errNotReconciled)
	}

	args, err := event.ArgsJSON()
	if err != nil {
		return nil, fmt.Errorf("tx %s log %d: failed to encode args: %w", event.Log.TxHash.Hex(), event.Log.Index, err)
	}

	return &eventRow{
		TxHash:      event.Log.TxHash,
		LogIndex:    event.Log.Index,
		BlockNumber: event.Log.BlockNumber,
		BlockHash:   event.Log.BlockHash,
		Address:     event.Log.Address,
		EventName:   event.Name,
		Args:        string(args),
		TxIndex:     event.Log.TxIndex,
		Timestamp:   *event.Timestamp,
	}, nil
}

func newEventRows(events []*registry.DecodedEvent) ([]*eventRow, error) {
	rows := make([]*eventRow, 0, len(events))
	for _, event := range events {
		row, err := newEventRow(event)
		if err != nil {
			return nil, err
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// abiRow is a contract address and its raw ABI JSON.
type abiRow struct {
	ContractAddress string `meddler:"contract_address" db:"contract_address"`
	ABI             string `meddler:"abi" db:"abi"`
}

func newABIRows(abis map[common.Address]json.RawMessage) []*abiRow {
	addresses := slices.SortedFunc(maps.Keys(abis), func(a, b common.Address) int { return a.Cmp(b) })

	rows := make([]*abiRow, 0, len(addresses))
	for _, address := range addresses {
		rows = append(rows, &abiRow{ContractAddress: address.Hex(), ABI: string(abis[address])})
	}
	return rows
}

// parseABIRows builds the contract interfaces stored in the abis table.
func parseABIRows(rows []*abiRow) (map[string]*abi.ContractInterface, error) {
	interfaces := make(map[string]*abi.ContractInterface, len(rows))
	for _, row := range rows {
		iface, err := abi.ParseJSON(row.ContractAddress, []byte(row.ABI))
		if err != nil {
			return nil, fmt.Errorf("invalid ABI stored for %s: %w", row.ContractAddress, err)
		}
		interfaces[row.ContractAddress] = iface
	}
	return interfaces, nil
}
