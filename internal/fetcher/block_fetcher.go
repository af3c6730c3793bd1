package fetcher

import (
	"context"
	"fmt"
	"slices"

	"github.com/goran-ethernal/ethindex/internal/logger"
	"github.com/goran-ethernal/ethindex/internal/types"
	"github.com/goran-ethernal/ethindex/pkg/fetcher"
	"github.com/goran-ethernal/ethindex/pkg/rpc"
	"golang.org/x/sync/errgroup"
)

// Compile-time check to ensure BlockFetcher implements fetcher.BlockSource interface.
var _ fetcher.BlockSource = (*BlockFetcher)(nil)

const defaultBlockWorkers = 8

// BlockFetcher fetches canonical block headers with a bounded number of concurrent requests.
type BlockFetcher struct {
	rpc     rpc.EthClient
	workers int
	log     *logger.Logger
}

// NewBlockFetcher creates a new BlockFetcher. A non-positive workers value uses the default.
func NewBlockFetcher(log *logger.Logger, rpcClient rpc.EthClient, workers int) *BlockFetcher {
	if workers <= 0 {
		workers = defaultBlockWorkers
	}

	return &BlockFetcher{
		rpc:     rpcClient,
		workers: workers,
		log:     log,
	}
}

// FetchBlock fetches the canonical header of block number.
func (bf *BlockFetcher) FetchBlock(ctx context.Context, number uint64) (*types.BlockHeader, error) {
	header, err := bf.rpc.GetBlockHeader(ctx, number)
	if err != nil {
		return nil, fmt.Errorf("failed to get block header %d: %w", number, err)
	}
	if header == nil || header.Number == nil {
		return nil, fmt.Errorf("node returned no header for block %d", number)
	}
	if header.Number.Uint64() != number {
		return nil, fmt.Errorf("node returned header %d for block %d", header.Number.Uint64(), number)
	}

	return types.NewBlockHeader(header), nil
}

// FetchBlocks fetches one header per distinct number. All responses are collected
// before returning; the first failure cancels the outstanding requests.
func (bf *BlockFetcher) FetchBlocks(ctx context.Context, numbers []uint64) ([]*types.BlockHeader, error) {
	distinct := slices.Clone(numbers)
	slices.Sort(distinct)
	distinct = slices.Compact(distinct)

	if len(distinct) == 0 {
		return nil, nil
	}

	headers := make([]*types.BlockHeader, len(distinct))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(bf.workers)

	for i, number := range distinct {
		g.Go(func() error {
			header, err := bf.FetchBlock(gctx, number)
			if err != nil {
				return err
			}
			headers[i] = header
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	BlocksFetchedInc(len(headers))
	bf.log.Debugf("fetched %d block headers from %d to %d with %d workers",
		len(headers),
		distinct[0],
		distinct[len(distinct)-1],
		bf.workers,
	)

	return headers, nil
}
