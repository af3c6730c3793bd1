package fetcher

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
	gethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/goran-ethernal/ethindex/internal/types"
)

// LogSource fetches raw event logs from the chain.
// This abstraction allows for easier testing and alternative implementations.
type LogSource interface {
	// ResolveBound turns a configured block bound into a concrete block number.
	ResolveBound(ctx context.Context, bound types.BlockBound) (uint64, error)

	// FetchLogs returns every log emitted by addresses in [fromBlock, toBlock], in chain order.
	FetchLogs(ctx context.Context, addresses []common.Address, fromBlock, toBlock uint64) ([]gethtypes.Log, error)
}

// BlockSource fetches canonical block headers.
type BlockSource interface {
	// FetchBlock returns the canonical header of a single block.
	FetchBlock(ctx context.Context, number uint64) (*types.BlockHeader, error)

	// FetchBlocks returns the canonical headers of the distinct numbers, in ascending order.
	FetchBlocks(ctx context.Context, numbers []uint64) ([]*types.BlockHeader, error)
}
