package store

import (
	"context"
	"encoding/json"

	"github.com/ethereum/go-ethereum/common"
)

const (
	// DefaultQueryLimit is the page size used when EventQuery.Limit is zero.
	DefaultQueryLimit = 100
	// MaxQueryLimit is the largest accepted page size.
	MaxQueryLimit = 1000
)

// EventQuery filters and pages stored events. Nil and zero fields do not filter.
type EventQuery struct {
	Address    *common.Address
	EventName  string
	FromBlock  *uint64
	ToBlock    *uint64
	Limit      int
	Offset     int
	Descending bool
}

// PageSize returns the effective limit of the query.
func (q EventQuery) PageSize() int {
	switch {
	case q.Limit <= 0:
		return DefaultQueryLimit
	case q.Limit > MaxQueryLimit:
		return MaxQueryLimit
	default:
		return q.Limit
	}
}

// Event is a stored event.
type Event struct {
	TransactionHash  common.Hash     `json:"transaction_hash"`
	LogIndex         uint            `json:"log_index"`
	BlockNumber      uint64          `json:"block_number"`
	BlockHash        common.Hash     `json:"block_hash"`
	Address          common.Address  `json:"address"`
	EventName        string          `json:"event_name"`
	Args             json.RawMessage `json:"args"`
	TransactionIndex uint            `json:"transaction_index"`
	Timestamp        uint64          `json:"timestamp"`
}

// Stats summarizes what is stored.
type Stats struct {
	Blocks      uint64            `json:"blocks"`
	Events      uint64            `json:"events"`
	LatestBlock uint64            `json:"latest_block"`
	EventCounts map[string]uint64 `json:"event_counts"`
}

// Reader queries stored events.
type Reader interface {
	// QueryEvents returns one page of events in chain order (or reverse chain order)
	// and the total number of events matching the filter.
	QueryEvents(ctx context.Context, q EventQuery) ([]*Event, int, error)

	// Stats returns block and event counts.
	Stats(ctx context.Context) (*Stats, error)
}
