package registry

import (
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/goran-ethernal/ethindex/internal/abi"
)

// DecodedEvent is a log decoded against its event definition.
type DecodedEvent struct {
	// Log is the raw log the event was decoded from. It is shared, not copied.
	Log *types.Log

	// Name is the event name, e.g. "Transfer"
	Name string

	// Args maps parameter names to decoded values
	Args map[string]any

	// Timestamp is the block timestamp, nil until the event is reconciled
	Timestamp *uint64
}

// ArgsJSON encodes the decoded arguments as a JSON object.
func (e *DecodedEvent) ArgsJSON() ([]byte, error) {
	return abi.MarshalArgs(e.Args)
}

// BatchResult is the outcome of decoding a batch of logs.
type BatchResult struct {
	// Events are the decoded events in input order
	Events []*DecodedEvent

	// Unrecognized counts logs that match no registered (address, topic) pair
	Unrecognized int

	// Failures are the logs that were recognized but could not be decoded
	Failures []*DecodeError
}
