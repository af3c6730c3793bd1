package store

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	gethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/goran-ethernal/ethindex/internal/logger"
	"github.com/goran-ethernal/ethindex/internal/registry"
	"github.com/goran-ethernal/ethindex/internal/types"
	"github.com/goran-ethernal/ethindex/pkg/config"
	"github.com/stretchr/testify/require"
)

const erc20ABI = `[
  {"type":"event","name":"Transfer","anonymous":false,"inputs":[
    {"name":"from","type":"address","indexed":true},
    {"name":"to","type":"address","indexed":true},
    {"name":"value","type":"uint256","indexed":false}]}
]`

var tokenAddress = common.HexToAddress("0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48")

func setupTestStore(t *testing.T) *SQLiteStore {
	t.Helper()

	cfg := config.DatabaseConfig{Path: filepath.Join(t.TempDir(), "ethindex.sqlite")}
	cfg.ApplyDefaults()

	s, err := NewSQLiteStore(cfg, logger.NewNopLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	return s
}

func testEvent(txHash string, index uint, blockNum uint64, timestamp *uint64) *registry.DecodedEvent {
	return &registry.DecodedEvent{
		Log: &gethtypes.Log{
			Address:     tokenAddress,
			TxHash:      common.HexToHash(txHash),
			Index:       index,
			TxIndex:     3,
			BlockNumber: blockNum,
			BlockHash:   common.HexToHash("0xb10c"),
		},
		Name: "Transfer",
		Args: map[string]any{
			"from":  common.HexToAddress("0x01"),
			"to":    common.HexToAddress("0x02"),
			"value": "100",
		},
		Timestamp: timestamp,
	}
}

func ts(v uint64) *uint64 { return &v }

func TestSQLiteStore_StoreBlocks_Idempotent(t *testing.T) {
	s := setupTestStore(t)
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

	// same number, different hash is a distinct row
	n, err = s.StoreBlocks(ctx, []*types.BlockHeader{{Number: 11, Hash: common.HexToHash("0xc"), Timestamp: 1012}})
	require.NoError(t, err)
	require.Equal(t, 1, n)

	count, err := s.CountBlocks(ctx)
	require.NoError(t, err)
	require.Equal(t, uint64(3), count)
}

func TestSQLiteStore_StoreEvents_Idempotent(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	events := []*registry.DecodedEvent{
		testEvent("0x01", 0, 10, ts(1000)),
		testEvent("0x01", 1, 10, ts(1000)),
		testEvent("0x02", 0, 11, ts(1012)),
	}

	n, err := s.StoreEvents(ctx, events)
	require.NoError(t, err)
	require.Equal(t, 3, n)

	n, err = s.StoreEvents(ctx, events)
	require.NoError(t, err)
	require.Equal(t, 0, n)

	count, err := s.CountEvents(ctx)
	require.NoError(t, err)
	require.Equal(t, uint64(3), count)

	var (
		address, name, args string
		timestamp           uint64
	)
	require.NoError(t, s.db.QueryRow(
		`SELECT address, event_name, args, timestamp FROM events WHERE transaction_hash = ? AND log_index = ?`,
		common.HexToHash("0x01").Hex(), 1,
	).Scan(&address, &name, &args, &timestamp))

	require.Equal(t, tokenAddress.Hex(), address)
	require.Equal(t, "Transfer", name)
	require.Equal(t, uint64(1000), timestamp)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal([]byte(args), &decoded))
	require.Equal(t, common.HexToAddress("0x02").Hex(), decoded["to"])
}

func TestSQLiteStore_StoreEvents_RequiresTimestamp(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	_, err := s.StoreEvents(ctx, []*registry.DecodedEvent{
		testEvent("0x01", 0, 10, ts(1000)),
		testEvent("0x02", 0, 10, nil),
	})
	require.ErrorIs(t, err, errNotReconciled)

	count, err := s.CountEvents(ctx)
	require.NoError(t, err)
	require.Zero(t, count)
}

func TestSQLiteStore_ImportAndLoadInterfaces(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	n, err := s.ImportABIs(ctx, map[common.Address]json.RawMessage{tokenAddress: json.RawMessage(erc20ABI)})
	require.NoError(t, err)
	require.Equal(t, 1, n)

	// existing addresses are left untouched
	n, err = s.ImportABIs(ctx, map[common.Address]json.RawMessage{tokenAddress: json.RawMessage(`[]`)})
	require.NoError(t, err)
	require.Equal(t, 0, n)

	interfaces, err := s.LoadInterfaces(ctx)
	require.NoError(t, err)
	require.Len(t, interfaces, 1)

	iface, ok := interfaces[tokenAddress.Hex()]
	require.True(t, ok)
	require.Equal(t, []string{"Transfer"}, iface.EventNames())
}

func TestSQLiteStore_LoadInterfaces_InvalidABI(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	_, err := s.db.Exec(`INSERT INTO abis (contract_address, abi) VALUES (?, ?)`, tokenAddress.Hex(), "not json")
	require.NoError(t, err)

	_, err = s.LoadInterfaces(ctx)
	require.ErrorContains(t, err, "invalid ABI stored for")
}

func TestSQLiteStore_Reopen(t *testing.T) {
	cfg := config.DatabaseConfig{Path: filepath.Join(t.TempDir(), "data", "ethindex.sqlite")}
	cfg.ApplyDefaults()
	ctx := context.Background()

	s, err := NewSQLiteStore(cfg, logger.NewNopLogger())
	require.NoError(t, err)
	_, err = s.StoreBlocks(ctx, []*types.BlockHeader{{Number: 1, Hash: common.HexToHash("0x1"), Timestamp: 1}})
	require.NoError(t, err)
	require.NoError(t, s.Close())

	_, err = os.Stat(cfg.Path)
	require.NoError(t, err)

	s, err = NewSQLiteStore(cfg, logger.NewNopLogger())
	require.NoError(t, err)
	defer s.Close()

	count, err := s.CountBlocks(ctx)
	require.NoError(t, err)
	require.Equal(t, uint64(1), count)
}

func TestNewABIRows_Sorted(t *testing.T) {
	rows := newABIRows(map[common.Address]json.RawMessage{
		common.HexToAddress("0x02"): json.RawMessage(`[]`),
		common.HexToAddress("0x01"): json.RawMessage(`[1]`),
	})

	require.Len(t, rows, 2)
	require.Equal(t, common.HexToAddress("0x01").Hex(), rows[0].ContractAddress)
	require.Equal(t, "[1]", rows[0].ABI)
}
