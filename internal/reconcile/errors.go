package reconcile

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
)

// ReorgDetectedError is returned when a log's block hash differs from the canonical
// header fetched for the same block number.
type ReorgDetectedError struct {
	BlockNumber uint64
	LogHash     common.Hash
	HeaderHash  common.Hash
}

func (e *ReorgDetectedError) Error() string {
	return fmt.Sprintf("reorg detected at block %d: log_hash=%s header_hash=%s",
		e.BlockNumber, e.LogHash.Hex(), e.HeaderHash.Hex())
}

// MissingBlockError is returned when an event references a block for which no header was supplied.
type MissingBlockError struct {
	BlockNumber uint64
}

func (e *MissingBlockError) Error() string {
	return fmt.Sprintf("no header supplied for referenced block %d", e.BlockNumber)
}

// DuplicateBlockError is returned when two headers are supplied for the same block number.
type DuplicateBlockError struct {
	BlockNumber uint64
	First       common.Hash
	Second      common.Hash
}

func (e *DuplicateBlockError) Error() string {
	return fmt.Sprintf("duplicate headers for block %d: %s and %s",
		e.BlockNumber, e.First.Hex(), e.Second.Hex())
}
