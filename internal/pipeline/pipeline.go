package pipeline

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/goran-ethernal/ethindex/internal/abi"
	internalcommon "github.com/goran-ethernal/ethindex/internal/common"
	"github.com/goran-ethernal/ethindex/internal/logger"
	"github.com/goran-ethernal/ethindex/internal/metrics"
	"github.com/goran-ethernal/ethindex/internal/reconcile"
	"github.com/goran-ethernal/ethindex/internal/registry"
	"github.com/goran-ethernal/ethindex/internal/types"
	pkgfetcher "github.com/goran-ethernal/ethindex/pkg/fetcher"
	pkgstore "github.com/goran-ethernal/ethindex/pkg/store"
)

const (
	resultSuccess = "success"
	resultReorg   = "reorg"
	resultError   = "error"
)

// Config controls the block range and decode parallelism of a run.
type Config struct {
	FromBlock     uint64
	ToBlock       types.BlockBound
	DecodeWorkers int
}

// Summary describes what a run fetched, decoded and stored.
type Summary struct {
	FromBlock      uint64
	ToBlock        uint64
	Logs           int
	Events         int
	Unrecognized   int
	DecodeFailures int
	Blocks         int
	BlocksStored   int
	EventsStored   int
}

// Runner executes the single-pass fetch, decode, reconcile and store job.
type Runner struct {
	cfg        Config
	interfaces pkgstore.InterfaceSource
	logs       pkgfetcher.LogSource
	blocks     pkgfetcher.BlockSource
	sink       pkgstore.Sink
	reconciler *reconcile.Reconciler
	log        *logger.Logger
}

// New creates a Runner.
func New(
	cfg Config,
	interfaces pkgstore.InterfaceSource,
	logs pkgfetcher.LogSource,
	blocks pkgfetcher.BlockSource,
	sink pkgstore.Sink,
	reconciler *reconcile.Reconciler,
	log *logger.Logger,
) (*Runner, error) {
	if interfaces == nil {
		return nil, errors.New("interface source is required")
	}
	if logs == nil {
		return nil, errors.New("log source is required")
	}
	if blocks == nil {
		return nil, errors.New("block source is required")
	}
	if sink == nil {
		return nil, errors.New("sink is required")
	}
	if reconciler == nil {
		return nil, errors.New("reconciler is required")
	}
	if log == nil {
		return nil, errors.New("logger is required")
	}

	return &Runner{
		cfg:        cfg,
		interfaces: interfaces,
		logs:       logs,
		blocks:     blocks,
		sink:       sink,
		reconciler: reconciler,
		log:        log,
	}, nil
}

// Run scans the configured range once. Nothing is stored unless every decoded event
// reconciles against the canonical header of its block.
func (r *Runner) Run(ctx context.Context) (*Summary, error) {
	start := time.Now()

	summary, err := r.run(ctx)

	result := resultSuccess
	var reorgErr *reconcile.ReorgDetectedError
	switch {
	case errors.As(err, &reorgErr):
		result = resultReorg
	case err != nil:
		result = resultError
	}

	metrics.RunDurationLog(result, time.Since(start))
	metrics.ComponentHealthSet(internalcommon.ComponentPipeline, err == nil)
	if err != nil {
		metrics.ErrorsInc(internalcommon.ComponentPipeline, "error")
		return nil, err
	}

	return summary, nil
}

func (r *Runner) run(ctx context.Context) (*Summary, error) {
	interfaces, err := r.interfaces.LoadInterfaces(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load contract interfaces: %w", err)
	}
	r.warnSkipped(interfaces)

	reg, err := registry.New(interfaces, registry.WithDecodeWorkers(r.cfg.DecodeWorkers))
	if err != nil {
		return nil, fmt.Errorf("failed to build topic registry: %w", err)
	}

	addresses := reg.Addresses()
	if len(addresses) == 0 {
		r.log.Warn("no contract has a decodable event, nothing to index")
		return &Summary{FromBlock: r.cfg.FromBlock}, nil
	}

	toBlock, err := r.logs.ResolveBound(ctx, r.cfg.ToBlock)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve to_block %s: %w", r.cfg.ToBlock, err)
	}
	if toBlock < r.cfg.FromBlock {
		return nil, fmt.Errorf("to_block %d (%s) is lower than from_block %d", toBlock, r.cfg.ToBlock, r.cfg.FromBlock)
	}

	summary := &Summary{FromBlock: r.cfg.FromBlock, ToBlock: toBlock}

	r.log.Infow("starting run",
		"from_block", r.cfg.FromBlock,
		"to_block", toBlock,
		"addresses", len(addresses),
		"events", reg.Len(),
	)

	logs, err := r.logs.FetchLogs(ctx, addresses, r.cfg.FromBlock, toBlock)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch logs: %w", err)
	}
	summary.Logs = len(logs)

	batch, err := reg.DecodeBatch(ctx, logs)
	if err != nil {
		return nil, fmt.Errorf("failed to decode logs: %w", err)
	}
	summary.Events = len(batch.Events)
	summary.Unrecognized = batch.Unrecognized
	summary.DecodeFailures = len(batch.Failures)

	metrics.LogsDecodedInc(metrics.OutcomeDecoded, len(batch.Events))
	metrics.LogsDecodedInc(metrics.OutcomeUnrecognized, batch.Unrecognized)
	metrics.LogsDecodedInc(metrics.OutcomeFailed, len(batch.Failures))

	for _, failure := range batch.Failures {
		r.log.Warnw("failed to decode log",
			"tx_hash", failure.TxHash.Hex(),
			"log_index", failure.LogIndex,
			"address", failure.Address.Hex(),
			"event", failure.Event,
			"error", failure.Err,
		)
	}

	numbers := blockNumbers(batch.Events)
	headers, err := r.blocks.FetchBlocks(ctx, numbers)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch block headers: %w", err)
	}
	summary.Blocks = len(headers)

	if err := r.reconciler.Enrich(batch.Events, headers); err != nil {
		return nil, err
	}

	summary.BlocksStored, err = r.sink.StoreBlocks(ctx, headers)
	if err != nil {
		return nil, fmt.Errorf("failed to store blocks: %w", err)
	}
	metrics.BlocksStoredInc(summary.BlocksStored)

	summary.EventsStored, err = r.sink.StoreEvents(ctx, batch.Events)
	if err != nil {
		return nil, fmt.Errorf("failed to store events: %w", err)
	}
	metrics.EventsStoredInc(summary.EventsStored)
	metrics.LastProcessedBlockSet(toBlock)

	r.log.Infof("got %d events in %d blocks", summary.Events, summary.Blocks)
	r.log.Infow("run finished",
		"logs", summary.Logs,
		"unrecognized", summary.Unrecognized,
		"decode_failures", summary.DecodeFailures,
		"blocks_stored", summary.BlocksStored,
		"events_stored", summary.EventsStored,
	)

	return summary, nil
}

// warnSkipped logs the ABI events that were left out of the registry.
func (r *Runner) warnSkipped(interfaces map[string]*abi.ContractInterface) {
	addresses := make([]string, 0, len(interfaces))
	for address := range interfaces {
		addresses = append(addresses, address)
	}
	slices.Sort(addresses)

	for _, address := range addresses {
		ci := interfaces[address]
		if ci == nil {
			continue
		}
		for _, name := range ci.SkippedNames() {
			r.log.Warnw("skipping undecodable event",
				"contract", ci.Name,
				"address", address,
				"event", name,
				"reason", ci.Skipped[name],
			)
		}
	}
}

// blockNumbers returns the distinct block numbers referenced by events, ascending.
func blockNumbers(events []*registry.DecodedEvent) []uint64 {
	numbers := make([]uint64, 0, len(events))
	for _, event := range events {
		numbers = append(numbers, event.Log.BlockNumber)
	}
	slices.Sort(numbers)
	return slices.Compact(numbers)
}
