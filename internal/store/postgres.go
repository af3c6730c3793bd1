package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/goran-ethernal/ethindex/internal/abi"
	"github.com/goran-ethernal/ethindex/internal/db"
	"github.com/goran-ethernal/ethindex/internal/logger"
	"github.com/goran-ethernal/ethindex/internal/metrics"
	"github.com/goran-ethernal/ethindex/internal/registry"
	"github.com/goran-ethernal/ethindex/internal/store/migrations"
	"github.com/goran-ethernal/ethindex/internal/types"
	"github.com/goran-ethernal/ethindex/pkg/config"
	pkgstore "github.com/goran-ethernal/ethindex/pkg/store"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/russross/meddler"
)

// Compile-time check to ensure PostgresStore implements pkgstore.Store interface.
var _ pkgstore.Store = (*PostgresStore)(nil)

const postgresDB = "postgres"

// PostgresStore persists blocks, events and ABIs in PostgreSQL.
type PostgresStore struct {
	pool *pgxpool.Pool
	log  *logger.Logger
}

// NewPostgresStore connects to the database described by cfg and brings its schema up to date.
func NewPostgresStore(ctx context.Context, cfg config.PostgresConfig, log *logger.Logger) (*PostgresStore, error) {
	if cfg.DSN == "" {
		return nil, errors.New("postgres dsn is required")
	}

	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("invalid postgres dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create postgres pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}

	// sql-migrate works on database/sql, so the pool is exposed through the pgx stdlib adapter.
	sqlDB := stdlib.OpenDBFromPool(pool)
	err = db.RunMigrations(log, sqlDB, db.DialectPostgres, migrations.For(db.DialectPostgres))
	sqlDB.Close()
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to migrate postgres: %w", err)
	}

	log.Infof("connected to postgres store %s@%s/%s", poolCfg.ConnConfig.User, poolCfg.ConnConfig.Host, poolCfg.ConnConfig.Database)

	return &PostgresStore{pool: pool, log: log}, nil
}

// StoreBlocks inserts the headers with ON CONFLICT DO NOTHING in one transaction.
func (s *PostgresStore) StoreBlocks(ctx context.Context, headers []*types.BlockHeader) (int, error) {
	return s.sendBatch(ctx, "store_blocks", tableBlocks, headers)
}

// StoreEvents inserts the events with ON CONFLICT DO NOTHING in one transaction.
func (s *PostgresStore) StoreEvents(ctx context.Context, events []*registry.DecodedEvent) (int, error) {
	rows, err := newEventRows(events)
	if err != nil {
		return 0, err
	}

	return s.sendBatch(ctx, "store_events", tableEvents, rows)
}

// ImportABIs inserts ABIs for addresses that have none yet.
func (s *PostgresStore) ImportABIs(ctx context.Context, abis map[common.Address]json.RawMessage) (int, error) {
	return s.sendBatch(ctx, "import_abis", tableABIs, newABIRows(abis))
}

// LoadInterfaces parses every ABI in the abis table.
func (s *PostgresStore) LoadInterfaces(ctx context.Context) (map[string]*abi.ContractInterface, error) {
	metrics.DBQueryInc(postgresDB, "load_interfaces")

	rows, err := s.pool.Query(ctx, "SELECT contract_address, abi FROM abis ORDER BY contract_address")
	if err != nil {
		metrics.DBErrorsInc(postgresDB, "query")
		return nil, fmt.Errorf("failed to query abis: %w", err)
	}

	records, err := pgx.CollectRows(rows, pgx.RowToAddrOfStructByName[abiRow])
	if err != nil {
		metrics.DBErrorsInc(postgresDB, "scan")
		return nil, fmt.Errorf("failed to read abis: %w", err)
	}

	s.log.Debugf("loaded %d ABIs from the database", len(records))

	return parseABIRows(records)
}

// QueryEvents returns one page of stored events matching q and the total match count.
func (s *PostgresStore) QueryEvents(ctx context.Context, q pkgstore.EventQuery) ([]*pkgstore.Event, int, error) {
	start := time.Now()
	metrics.DBQueryInc(postgresDB, "query_events")
	defer func() { metrics.DBQueryDuration(postgresDB, "query_events", time.Since(start)) }()

	where, args := eventFilter(q, postgresPlaceholder)

	var total int64
	if err := s.pool.QueryRow(ctx, "SELECT COUNT(*) FROM events"+where, args...).Scan(&total); err != nil {
		metrics.DBErrorsInc(postgresDB, "query")
		return nil, 0, fmt.Errorf("failed to count events: %w", err)
	}

	page, args := eventPage(q, postgresPlaceholder, args)

	rows, err := s.pool.Query(ctx, "SELECT "+postgresEventColumns+" FROM events"+where+page, args...)
	if err != nil {
		metrics.DBErrorsInc(postgresDB, "query")
		return nil, 0, fmt.Errorf("failed to query events: %w", err)
	}

	records, err := pgx.CollectRows(rows, pgx.RowToAddrOfStructByName[postgresEventRow])
	if err != nil {
		metrics.DBErrorsInc(postgresDB, "scan")
		return nil, 0, fmt.Errorf("failed to read events: %w", err)
	}

	events := make([]*pkgstore.Event, 0, len(records))
	for _, record := range records {
		events = append(events, record.toEvent())
	}

	return events, int(total), nil
}

// Stats returns block and per-event-name counts.
func (s *PostgresStore) Stats(ctx context.Context) (*pkgstore.Stats, error) {
	metrics.DBQueryInc(postgresDB, "stats")

	var blocks, latest int64
	if err := s.pool.QueryRow(ctx, blockStatsQuery).Scan(&blocks, &latest); err != nil {
		metrics.DBErrorsInc(postgresDB, "query")
		return nil, fmt.Errorf("failed to query block stats: %w", err)
	}

	rows, err := s.pool.Query(ctx, eventCountsQuery)
	if err != nil {
		metrics.DBErrorsInc(postgresDB, "query")
		return nil, fmt.Errorf("failed to query event counts: %w", err)
	}

	counts, err := pgx.CollectRows(rows, pgx.RowToAddrOfStructByName[eventCount])
	if err != nil {
		metrics.DBErrorsInc(postgresDB, "scan")
		return nil, fmt.Errorf("failed to read event counts: %w", err)
	}

	return newStats(blocks, latest, counts), nil
}

// CountEvents returns the number of stored events.
func (s *PostgresStore) CountEvents(ctx context.Context) (uint64, error) {
	return s.count(ctx, tableEvents)
}

// CountBlocks returns the number of stored blocks.
func (s *PostgresStore) CountBlocks(ctx context.Context) (uint64, error) {
	return s.count(ctx, tableBlocks)
}

// Close releases the connection pool.
func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func (s *PostgresStore) count(ctx context.Context, table string) (uint64, error) {
	var n int64
	if err := s.pool.QueryRow(ctx, "SELECT COUNT(*) FROM "+table).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count %s: %w", table, err)
	}
	return uint64(n), nil
}

// postgresEventColumns selects the events table with args rendered as JSON text.
const postgresEventColumns = "transaction_hash, log_index, block_number, block_hash, address, " +
	"event_name, args::text AS args, transaction_index, timestamp"

// postgresEventRow is an events row as scanned by pgx.
type postgresEventRow struct {
	TxHash      string `db:"transaction_hash"`
	LogIndex    int64  `db:"log_index"`
	BlockNumber int64  `db:"block_number"`
	BlockHash   string `db:"block_hash"`
	Address     string `db:"address"`
	EventName   string `db:"event_name"`
	Args        string `db:"args"`
	TxIndex     int64  `db:"transaction_index"`
	Timestamp   int64  `db:"timestamp"`
}

func (r *postgresEventRow) toEvent() *pkgstore.Event {
	return &pkgstore.Event{
		TransactionHash:  common.HexToHash(r.TxHash),
		LogIndex:         uint(r.LogIndex),
		BlockNumber:      uint64(r.BlockNumber),
		BlockHash:        common.HexToHash(r.BlockHash),
		Address:          common.HexToAddress(r.Address),
		EventName:        r.EventName,
		Args:             json.RawMessage(r.Args),
		TransactionIndex: uint(r.TxIndex),
		Timestamp:        uint64(r.Timestamp),
	}
}

// newInsertBatch queues one insert per row.
func newInsertBatch[T any](table string, rows []*T) (*pgx.Batch, error) {
	batch := &pgx.Batch{}
	if len(rows) == 0 {
		return batch, nil
	}

	query, err := postgresInsertQuery(table, rows[0])
	if err != nil {
		return nil, err
	}

	for _, row := range rows {
		values, err := meddler.PostgreSQL.Values(row, true)
		if err != nil {
			return nil, err
		}
		batch.Queue(query, values...)
	}

	return batch, nil
}

// sendBatchRows sends the inserts for rows as a single batch on tx and returns the
// number of rows actually inserted. Conflicting rows count as zero.
func sendBatchRows[T any](ctx context.Context, tx pgx.Tx, table string, rows []*T) (int, error) {
	batch, err := newInsertBatch(table, rows)
	if err != nil {
		return 0, err
	}
	if batch.Len() == 0 {
		return 0, nil
	}

	br := tx.SendBatch(ctx, batch)
	defer br.Close()

	var inserted int64
	for range batch.Len() {
		tag, err := br.Exec()
		if err != nil {
			return 0, fmt.Errorf("failed to insert into %s: %w", table, err)
		}
		inserted += tag.RowsAffected()
	}

	return int(inserted), br.Close()
}

func (s *PostgresStore) sendBatch(ctx context.Context, operation, table string, rows any) (int, error) {
	start := time.Now()
	metrics.DBQueryInc(postgresDB, operation)
	defer func() { metrics.DBQueryDuration(postgresDB, operation, time.Since(start)) }()

	var inserted int
	err := pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		var err error
		switch r := rows.(type) {
		case []*types.BlockHeader:
			inserted, err = sendBatchRows(ctx, tx, table, r)
		case []*eventRow:
			inserted, err = sendBatchRows(ctx, tx, table, r)
		case []*abiRow:
			inserted, err = sendBatchRows(ctx, tx, table, r)
		default:
			err = fmt.Errorf("unsupported rows type %T", rows)
		}
		return err
	})
	if err != nil {
		metrics.DBErrorsInc(postgresDB, operation)
		return 0, err
	}

	s.log.Debugf("%s: inserted %d rows", operation, inserted)

	return inserted, nil
}

// postgresInsertQuery builds an INSERT ... ON CONFLICT DO NOTHING statement from the meddler tags of row.
func postgresInsertQuery(table string, row any) (string, error) {
	columns, err := meddler.PostgreSQL.ColumnsQuoted(row, true)
	if err != nil {
		return "", err
	}
	placeholders, err := meddler.PostgreSQL.PlaceholdersString(row, true)
	if err != nil {
		return "", err
	}

	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s) ON CONFLICT DO NOTHING", table, columns, placeholders), nil
}
