package store

import (
	"encoding/json"
	"fmt"
	"strings"

	pkgstore "github.com/goran-ethernal/ethindex/pkg/store"
)

const eventColumns = "transaction_hash, log_index, block_number, block_hash, address, " +
	"event_name, args, transaction_index, timestamp"

// placeholderFunc renders the n-th (1-based) bind parameter of a dialect.
type placeholderFunc func(n int) string

func sqlitePlaceholder(int) string { return "?" }

func postgresPlaceholder(n int) string { return fmt.Sprintf("$%d", n) }

// eventFilter renders the WHERE clause of q and its arguments.
func eventFilter(q pkgstore.EventQuery, placeholder placeholderFunc) (string, []any) {
	var (
		conditions []string
		args       []any
	)

	add := func(condition string, arg any) {
		args = append(args, arg)
		conditions = append(conditions, fmt.Sprintf(condition, placeholder(len(args))))
	}

	if q.Address != nil {
		add("address = %s", q.Address.Hex())
	}
	if q.EventName != "" {
		add("event_name = %s", q.EventName)
	}
	if q.FromBlock != nil {
		add("block_number >= %s", *q.FromBlock)
	}
	if q.ToBlock != nil {
		add("block_number <= %s", *q.ToBlock)
	}

	if len(conditions) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conditions, " AND "), args
}

// eventPage renders the ORDER BY and LIMIT/OFFSET clauses of q, appending their arguments.
func eventPage(q pkgstore.EventQuery, placeholder placeholderFunc, args []any) (string, []any) {
	direction := "ASC"
	if q.Descending {
		direction = "DESC"
	}

	args = append(args, q.PageSize(), q.Offset)
	return fmt.Sprintf(" ORDER BY block_number %[1]s, transaction_index %[1]s, log_index %[1]s LIMIT %[2]s OFFSET %[3]s",
		direction, placeholder(len(args)-1), placeholder(len(args))), args
}

func (r *eventRow) toEvent() *pkgstore.Event {
	return &pkgstore.Event{
		TransactionHash:  r.TxHash,
		LogIndex:         r.LogIndex,
		BlockNumber:      r.BlockNumber,
		BlockHash:        r.BlockHash,
		Address:          r.Address,
		EventName:        r.EventName,
		Args:             json.RawMessage(r.Args),
		TransactionIndex: r.TxIndex,
		Timestamp:        r.Timestamp,
	}
}

// eventCount is one row of the per-event-name count query.
type eventCount struct {
	EventName string `meddler:"event_name" db:"event_name"`
	Count     int64  `meddler:"count" db:"count"`
}

const (
	eventCountsQuery = "SELECT event_name, COUNT(*) AS count FROM events GROUP BY event_name"
	blockStatsQuery  = "SELECT COUNT(*), COALESCE(MAX(block_number), 0) FROM blocks"
)

func newStats(blocks, latest int64, counts []*eventCount) *pkgstore.Stats {
	stats := &pkgstore.Stats{
		Blocks:      uint64(blocks),
		LatestBlock: uint64(latest),
		EventCounts: make(map[string]uint64, len(counts)),
	}
	for _, c := range counts {
		stats.EventCounts[c.EventName] = uint64(c.Count)
		stats.Events += uint64(c.Count)
	}
	return stats
}
