package reconcile

import (
	"fmt"

	internalcommon "github.com/goran-ethernal/ethindex/internal/common"
	"github.com/goran-ethernal/ethindex/internal/logger"
	"github.com/goran-ethernal/ethindex/internal/metrics"
	"github.com/goran-ethernal/ethindex/internal/registry"
	"github.com/goran-ethernal/ethindex/internal/types"
)

// Reconciler joins decoded events with the canonical headers of their blocks.
type Reconciler struct {
	log *logger.Logger
}

// NewReconciler creates a new Reconciler.
func NewReconciler(log *logger.Logger) *Reconciler {
	metrics.ComponentHealthSet(internalcommon.ComponentReconciler, true)

	return &Reconciler{log: log}
}

// Enrich verifies every event against the header of its block and stamps it with the
// block timestamp. The batch is all or nothing: either every event is stamped or none is.
//
// The outcome depends only on the sets of events and headers, not on their order:
// a missing header wins over a hash mismatch, and the lowest offending block number is reported.
// It returns *DuplicateBlockError, *MissingBlockError or *ReorgDetectedError.
func (r *Reconciler) Enrich(events []*registry.DecodedEvent, blocks []*types.BlockHeader) error {
	headers, err := indexHeaders(blocks)
	if err != nil {
		return err
	}

	var (
		missing  *MissingBlockError
		mismatch *ReorgDetectedError
	)

	for _, event := range events {
		blockNum := event.Log.BlockNumber

		header, ok := headers[blockNum]
		if !ok {
			if missing == nil || blockNum < missing.BlockNumber {
				missing = &MissingBlockError{BlockNumber: blockNum}
			}
			continue
		}

		if event.Log.BlockHash != header.Hash {
			if mismatch == nil || blockNum < mismatch.BlockNumber ||
				(blockNum == mismatch.BlockNumber && event.Log.BlockHash.Cmp(mismatch.LogHash) < 0) {
				mismatch = &ReorgDetectedError{
					BlockNumber: blockNum,
					LogHash:     event.Log.BlockHash,
					HeaderHash:  header.Hash,
				}
			}
		}
	}

	if missing != nil {
		r.log.Errorf("events reference block %d but no header was supplied", missing.BlockNumber)
		return missing
	}

	if mismatch != nil {
		r.log.Warnf("reorg detected: block=%d log_hash=%s header_hash=%s",
			mismatch.BlockNumber,
			mismatch.LogHash.Hex(),
			mismatch.HeaderHash.Hex(),
		)
		ReorgDetectedLog(mismatch.BlockNumber)
		return mismatch
	}

	for _, event := range events {
		timestamp := headers[event.Log.BlockNumber].Timestamp
		event.Timestamp = &timestamp
	}

	EventsEnrichedInc(len(events))
	r.log.Debugf("enriched %d events with %d block headers", len(events), len(headers))

	return nil
}

func indexHeaders(blocks []*types.BlockHeader) (map[uint64]*types.BlockHeader, error) {
	headers := make(map[uint64]*types.BlockHeader, len(blocks))

	var duplicate *DuplicateBlockError
	for _, block := range blocks {
		if block == nil {
			return nil, fmt.Errorf("nil block header")
		}

		existing, ok := headers[block.Number]
		if !ok {
			headers[block.Number] = block
			continue
		}

		if duplicate == nil || block.Number < duplicate.BlockNumber {
			first, second := existing.Hash, block.Hash
			if first.Cmp(second) > 0 {
				first, second = second, first
			}
			duplicate = &DuplicateBlockError{BlockNumber: block.Number, First: first, Second: second}
		}
	}

	if duplicate != nil {
		return nil, duplicate
	}

	return headers, nil
}
