package store

import (
	"context"
	"encoding/json"
	"os"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/goran-ethernal/ethindex/internal/logger"
	"github.com/goran-ethernal/ethindex/internal/registry"
	"github.com/goran-ethernal/ethindex/internal/types"
	"github.com/goran-ethernal/ethindex/pkg/config"
	pkgstore "github.com/goran-ethernal/ethindex/pkg/store"
	"github.com/stretchr/testify/require"
)

// postgresDSNEnv names a scratch database; its blocks, events and abis tables are truncated.
const postgresDSNEnv = "ETHINDEX_TEST_POSTGRES_DSN"

func TestPostgresInsertQuery(t *testing.T) {
	query, err := postgresInsertQuery(tableBlocks, &types.BlockHeader{})
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(query, "INSERT INTO blocks ("))
	require.Contains(t, query, `"block_hash"`)
	require.Contains(t, query, "$3")
	require.NotContains(t, query, "$4")
	require.True(t, strings.HasSuffix(query, "ON CONFLICT DO NOTHING"))
}

func TestNewInsertBatch(t *testing.T) {
	t.Run("events", func(t *testing.T) {
		rows, err := newEventRows([]*registry.DecodedEvent{
			testEvent("0x01", 0, 10, ts(1000)),
			testEvent("0x01", 1, 10, ts(1000)),
		})
		require.NoError(t, err)

		batch, err := newInsertBatch(tableEvents, rows)
		require.NoError(t, err)
		require.Equal(t, 2, batch.Len())

		for i, queued := range batch.QueuedQueries {
			require.True(t, strings.HasPrefix(queued.SQL, "INSERT INTO events ("))
			require.True(t, strings.HasSuffix(queued.SQL, "ON CONFLICT DO NOTHING"))
			require.Contains(t, queued.SQL, "$9")
			require.Len(t, queued.Arguments, 9)

			// hashes and addresses go through the hex meddlers
			require.Contains(t, queued.Arguments, common.HexToHash("0x01").Hex())
			require.Contains(t, queued.Arguments, tokenAddress.Hex())
			require.Contains(t, queued.Arguments, uint(i))
			require.Contains(t, queued.Arguments, rows[i].Args)
		}
	})

	t.Run("blocks", func(t *testing.T) {
		batch, err := newInsertBatch(tableBlocks, []*types.BlockHeader{
			{Number: 10, Hash: common.HexToHash("0xa"), Timestamp: 1000},
		})
		require.NoError(t, err)
		require.Equal(t, 1, batch.Len())
		require.ElementsMatch(t,
			[]any{uint64(10), common.HexToHash("0xa").Hex(), uint64(1000)},
			batch.QueuedQueries[0].Arguments)
	})

	t.Run("empty", func(t *testing.T) {
		batch, err := newInsertBatch[abiRow](tableABIs, nil)
		require.NoError(t, err)
		require.Zero(t, batch.Len())
	})
}

func setupPostgresStore(t *testing.T) *PostgresStore {
	t.Helper()

	dsn := os.Getenv(postgresDSNEnv)
	if dsn == "" {
		t.Skipf("%s not set", postgresDSNEnv)
	}

	ctx := context.Background()
	s, err := NewPostgresStore(ctx, config.PostgresConfig{DSN: dsn}, logger.NewNopLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	_, err = s.pool.Exec(ctx, "TRUNCATE blocks, events, abis")
	require.NoError(t, err)

	return s
}

func TestPostgresStore_StoreIdempotent(t *testing.T) {
	s := setupPostgresStore(t)
	ctx := context.Background()

	headers := []*types.BlockHeader{
		{Number: 10, Hash: common.HexToHash("0xa"), Timestamp: 1000},
		{Number: 11, Hash: common.HexToHash("0xb"), Timestamp: 1012},
	}

	n, err := s.StoreBlocks(ctx, headers)
	require.NoError(t, err)
	require.Equal(t, 2, n)

	n, err = s.StoreBlocks(ctx, headers)
	require.NoError(t, err)
	require.Equal(t, 0, n)

	withNul := testEvent("0x02", 0, 11, ts(1012))
	withNul.Args["memo"] = "a\x00b"

	events := []*registry.DecodedEvent{
		testEvent("0x01", 0, 10, ts(1000)),
		testEvent("0x01", 1, 10, ts(1000)),
		withNul,
	}

	n, err = s.StoreEvents(ctx, events)
	require.NoError(t, err)
	require.Equal(t, 3, n)

	// a batch mixing stored and new rows counts only the new ones
	n, err = s.StoreEvents(ctx, append(events, testEvent("0x03", 0, 11, ts(1012))))
	require.NoError(t, err)
	require.Equal(t, 1, n)

	count, err := s.CountEvents(ctx)
	require.NoError(t, err)
	require.Equal(t, uint64(4), count)

	count, err = s.CountBlocks(ctx)
	require.NoError(t, err)
	require.Equal(t, uint64(2), count)

	stored, total, err := s.QueryEvents(ctx, pkgstore.EventQuery{FromBlock: u64(11)})
	require.NoError(t, err)
	require.Equal(t, 2, total)
	require.Len(t, stored, 2)
	for _, event := range stored {
		if event.TransactionHash == common.HexToHash("0x02") {
			require.JSONEq(t, `"0x610062"`, mustField(t, event.Args, "memo"))
		}
	}
}

func TestPostgresStore_ImportABIs(t *testing.T) {
	s := setupPostgresStore(t)
	ctx := context.Background()

	n, err := s.ImportABIs(ctx, map[common.Address]json.RawMessage{tokenAddress: json.RawMessage(erc20ABI)})
	require.NoError(t, err)
	require.Equal(t, 1, n)

	n, err = s.ImportABIs(ctx, map[common.Address]json.RawMessage{tokenAddress: json.RawMessage(`[]`)})
	require.NoError(t, err)
	require.Equal(t, 0, n)

	interfaces, err := s.LoadInterfaces(ctx)
	require.NoError(t, err)
	require.Len(t, interfaces, 1)
	require.Equal(t, []string{"Transfer"}, interfaces[tokenAddress.Hex()].EventNames())
}

func mustField(t *testing.T, raw json.RawMessage, name string) string {
	t.Helper()

	var fields map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(raw, &fields))
	require.Contains(t, fields, name)
	return string(fields[name])
}
