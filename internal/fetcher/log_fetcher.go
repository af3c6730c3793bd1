package fetcher

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum"
	ethcommon "github.com/ethereum/go-ethereum/common"
	gethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/goran-ethernal/ethindex/internal/logger"
	"github.com/goran-ethernal/ethindex/internal/metrics"
	irpc "github.com/goran-ethernal/ethindex/internal/rpc"
	"github.com/goran-ethernal/ethindex/internal/types"
	"github.com/goran-ethernal/ethindex/pkg/fetcher"
	"github.com/goran-ethernal/ethindex/pkg/rpc"
)

// Compile-time check to ensure LogFetcher implements fetcher.LogSource interface.
var _ fetcher.LogSource = (*LogFetcher)(nil)

const defaultChunkSize = 5000

// LogFetcherConfig contains configuration for the LogFetcher.
type LogFetcherConfig struct {
	// ChunkSize is the number of blocks to fetch per request
	ChunkSize uint64
}

// LogFetcher fetches raw logs for a set of contract addresses over a block range.
type LogFetcher struct {
	cfg LogFetcherConfig
	rpc rpc.EthClient
	log *logger.Logger
}

// NewLogFetcher creates a new LogFetcher instance.
func NewLogFetcher(cfg LogFetcherConfig, log *logger.Logger, rpcClient rpc.EthClient) *LogFetcher {
	if cfg.ChunkSize == 0 {
		cfg.ChunkSize = defaultChunkSize
	}

	return &LogFetcher{
		cfg: cfg,
		rpc: rpcClient,
		log: log,
	}
}

// ResolveBound returns the block number of bound, asking the node for finality tags.
func (lf *LogFetcher) ResolveBound(ctx context.Context, bound types.BlockBound) (uint64, error) {
	if !bound.IsTag() {
		return bound.Number, nil
	}

	var (
		header *gethtypes.Header
		err    error
	)

	switch bound.Finality {
	case types.FinalityFinalized:
		header, err = lf.rpc.GetFinalizedBlockHeader(ctx)
	case types.FinalitySafe:
		header, err = lf.rpc.GetSafeBlockHeader(ctx)
	case types.FinalityLatest:
		header, err = lf.rpc.GetLatestBlockHeader(ctx)
	default:
		return 0, fmt.Errorf("invalid finality mode: %s", bound.Finality)
	}

	if err != nil {
		return 0, fmt.Errorf("failed to get %s block header: %w", bound.Finality, err)
	}
	if header == nil || header.Number == nil {
		return 0, fmt.Errorf("node returned no %s block header", bound.Finality)
	}

	blockNum := header.Number.Uint64()
	ResolvedBlockSet(bound.Finality.String(), blockNum)
	lf.log.Debugf("resolved %s block to %d", bound.Finality, blockNum)

	return blockNum, nil
}

// FetchLogs fetches every log emitted by addresses in [fromBlock, toBlock].
// The range is walked in ChunkSize steps; a chunk the node rejects for returning
// too many results is narrowed until it fits.
func (lf *LogFetcher) FetchLogs(
	ctx context.Context,
	addresses []ethcommon.Address,
	fromBlock, toBlock uint64,
) ([]gethtypes.Log, error) {
	if fromBlock > toBlock {
		return nil, fmt.Errorf("invalid block range: from %d is after to %d", fromBlock, toBlock)
	}

	// An empty address list would turn eth_getLogs into an unfiltered chain scan.
	if len(addresses) == 0 {
		lf.log.Debugf("skipped log fetch from %d to %d - no addresses", fromBlock, toBlock)
		return nil, nil
	}

	var all []gethtypes.Log

	for current := fromBlock; ; {
		chunkEnd := toBlock
		if toBlock-current >= lf.cfg.ChunkSize {
			chunkEnd = current + lf.cfg.ChunkSize - 1
		}

		logs, fetchedTo, err := lf.fetchLogsWithRetry(ctx, current, chunkEnd, addresses)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch logs from %d to %d: %w", current, chunkEnd, err)
		}

		all = append(all, logs...)
		metrics.LogsFetchedInc(len(logs))

		lf.log.Debugf("fetched logs from %d to %d for %d addresses, logs count: %d",
			current,
			fetchedTo,
			len(addresses),
			len(logs),
		)

		if fetchedTo >= toBlock {
			break
		}
		current = fetchedTo + 1
	}

	lf.log.Infof("fetched range from %d to %d with %d logs", fromBlock, toBlock, len(all))

	return all, nil
}

// fetchLogsWithRetry fetches logs for [fromBlock, toBlock] and, on a "too many results" error,
// retries with the range suggested by the node or with the first half of the range.
// It returns the logs and the last block actually covered.
func (lf *LogFetcher) fetchLogsWithRetry(
	ctx context.Context,
	fromBlock, toBlock uint64,
	addresses []ethcommon.Address,
) ([]gethtypes.Log, uint64, error) {
	query := ethereum.FilterQuery{
		FromBlock: new(big.Int).SetUint64(fromBlock),
		ToBlock:   new(big.Int).SetUint64(toBlock),
		Addresses: addresses,
	}

	logs, err := lf.rpc.GetLogs(ctx, query)
	if err == nil {
		return logs, toBlock, nil
	}

	tooMany, suggestedFrom, suggestedTo, ok := irpc.SuggestedRange(err)
	if !tooMany {
		return nil, 0, err
	}

	RangeSplitInc()

	// Only a suggestion that keeps the start and shrinks the end is safe to follow.
	if ok && suggestedFrom == fromBlock && suggestedTo >= fromBlock && suggestedTo < toBlock {
		lf.log.Infof("too many logs, retrying with suggested block range from %d to %d (original range %d to %d)",
			suggestedFrom,
			suggestedTo,
			fromBlock,
			toBlock,
		)

		return lf.fetchLogsWithRetry(ctx, fromBlock, suggestedTo, addresses)
	}

	if fromBlock == toBlock {
		return nil, 0, fmt.Errorf("cannot split range further, single block %d has too many logs: %w", fromBlock, err)
	}

	mid := fromBlock + (toBlock-fromBlock)/2 //nolint:mnd
	lf.log.Infof("too many logs, retrying with smaller block range (by splitting in half) from %d to %d "+
		"(original range %d to %d)",
		fromBlock,
		mid,
		fromBlock,
		toBlock,
	)

	return lf.fetchLogsWithRetry(ctx, fromBlock, mid, addresses)
}
