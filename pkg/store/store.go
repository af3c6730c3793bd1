package store

import (
	"context"
	"encoding/json"

	"github.com/ethereum/go-ethereum/common"
	"github.com/goran-ethernal/ethindex/internal/abi"
	"github.com/goran-ethernal/ethindex/internal/registry"
	"github.com/goran-ethernal/ethindex/internal/types"
)

// Sink persists reconciled blocks and events.
//
// Both operations are idempotent: blocks are keyed by (number, hash) and events by
// (transaction hash, log index), and rows that already exist are left untouched.
// Re-running a batch over an overlapping block range is therefore a no-op.
// Each call commits in a single transaction; on error nothing from that call is stored.
type Sink interface {
	// StoreBlocks inserts the headers that are not already stored and returns how many were new.
	StoreBlocks(ctx context.Context, headers []*types.BlockHeader) (int, error)

	// StoreEvents inserts the events that are not already stored and returns how many were new.
	// Every event must carry its block timestamp.
	StoreEvents(ctx context.Context, events []*registry.DecodedEvent) (int, error)
}

// InterfaceSource supplies contract interfaces keyed by contract address.
type InterfaceSource interface {
	LoadInterfaces(ctx context.Context) (map[string]*abi.ContractInterface, error)
}

// Store is a persistence backend: a Sink, an InterfaceSource backed by the abis table,
// a Reader for the query API and the helpers used by the CLI and tests.
type Store interface {
	Sink
	InterfaceSource
	Reader

	// ImportABIs stores raw ABI JSON per contract address, skipping addresses that already
	// have an ABI, and returns how many were inserted.
	ImportABIs(ctx context.Context, abis map[common.Address]json.RawMessage) (int, error)

	// CountEvents returns the number of stored events.
	CountEvents(ctx context.Context) (uint64, error)

	// CountBlocks returns the number of stored blocks.
	CountBlocks(ctx context.Context) (uint64, error)

	// Close flushes pending state and releases the connection.
	Close() error
}
