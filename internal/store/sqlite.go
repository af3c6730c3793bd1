package store

import (
	"context"
	"database/sql"
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
	"github.com/russross/meddler"
)

// Compile-time check to ensure SQLiteStore implements pkgstore.Store interface.
var _ pkgstore.Store = (*SQLiteStore)(nil)

const sqliteDB = "sqlite"

// SQLiteStore persists blocks, events and ABIs in a SQLite database.
type SQLiteStore struct {
	db   *sql.DB
	path string
	log  *logger.Logger
}

// NewSQLiteStore opens the database described by cfg and brings its schema up to date.
func NewSQLiteStore(cfg config.DatabaseConfig, log *logger.Logger) (*SQLiteStore, error) {
	sqlDB, err := db.NewSQLiteDBFromConfig(cfg)
	if err != nil {
		return nil, err
	}

	if err := db.RunMigrations(log, sqlDB, db.DialectSQLite, migrations.For(db.DialectSQLite)); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("failed to migrate %s: %w", cfg.Path, err)
	}

	log.Infof("opened sqlite store at %s", cfg.Path)

	return &SQLiteStore{db: sqlDB, path: cfg.Path, log: log}, nil
}

// StoreBlocks inserts the headers with INSERT OR IGNORE in one transaction.
func (s *SQLiteStore) StoreBlocks(ctx context.Context, headers []*types.BlockHeader) (int, error) {
	return s.withTx(ctx, "store_blocks", func(tx *sql.Tx) (int, error) {
		return insertOrIgnore(ctx, tx, tableBlocks, headers)
	})
}

// StoreEvents inserts the events with INSERT OR IGNORE in one transaction.
func (s *SQLiteStore) StoreEvents(ctx context.Context, events []*registry.DecodedEvent) (int, error) {
	rows, err := newEventRows(events)
	if err != nil {
		return 0, err
	}

	return s.withTx(ctx, "store_events", func(tx *sql.Tx) (int, error) {
		return insertOrIgnore(ctx, tx, tableEvents, rows)
	})
}

// ImportABIs inserts ABIs for addresses that have none yet.
func (s *SQLiteStore) ImportABIs(ctx context.Context, abis map[common.Address]json.RawMessage) (int, error) {
	return s.withTx(ctx, "import_abis", func(tx *sql.Tx) (int, error) {
		return insertOrIgnore(ctx, tx, tableABIs, newABIRows(abis))
	})
}

// LoadInterfaces parses every ABI in the abis table.
func (s *SQLiteStore) LoadInterfaces(ctx context.Context) (map[string]*abi.ContractInterface, error) {
	metrics.DBQueryInc(sqliteDB, "load_interfaces")

	var rows []*abiRow
	if err := meddler.QueryAll(s.db, &rows, "SELECT contract_address, abi FROM abis ORDER BY contract_address"); err != nil {
		metrics.DBErrorsInc(sqliteDB, "query")
		return nil, fmt.Errorf("failed to query abis: %w", err)
	}

	s.log.Debugf("loaded %d ABIs from the database", len(rows))

	return parseABIRows(rows)
}

// QueryEvents returns one page of stored events matching q and the total match count.
func (s *SQLiteStore) QueryEvents(ctx context.Context, q pkgstore.EventQuery) ([]*pkgstore.Event, int, error) {
	start := time.Now()
	metrics.DBQueryInc(sqliteDB, "query_events")
	defer func() { metrics.DBQueryDuration(sqliteDB, "query_events", time.Since(start)) }()

	where, args := eventFilter(q, sqlitePlaceholder)

	var total int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM events"+where, args...).Scan(&total); err != nil {
		metrics.DBErrorsInc(sqliteDB, "query")
		return nil, 0, fmt.Errorf("failed to count events: %w", err)
	}

	page, args := eventPage(q, sqlitePlaceholder, args)

	var rows []*eventRow
	if err := meddler.QueryAll(s.db, &rows, "SELECT "+eventColumns+" FROM events"+where+page, args...); err != nil {
		metrics.DBErrorsInc(sqliteDB, "query")
		return nil, 0, fmt.Errorf("failed to query events: %w", err)
	}

	events := make([]*pkgstore.Event, 0, len(rows))
	for _, row := range rows {
		events = append(events, row.toEvent())
	}

	return events, total, nil
}

// Stats returns block and per-event-name counts.
func (s *SQLiteStore) Stats(ctx context.Context) (*pkgstore.Stats, error) {
	metrics.DBQueryInc(sqliteDB, "stats")

	var blocks, latest int64
	if err := s.db.QueryRowContext(ctx, blockStatsQuery).Scan(&blocks, &latest); err != nil {
		metrics.DBErrorsInc(sqliteDB, "query")
		return nil, fmt.Errorf("failed to query block stats: %w", err)
	}

	var counts []*eventCount
	if err := meddler.QueryAll(s.db, &counts, eventCountsQuery); err != nil {
		metrics.DBErrorsInc(sqliteDB, "query")
		return nil, fmt.Errorf("failed to query event counts: %w", err)
	}

	return newStats(blocks, latest, counts), nil
}

// CountEvents returns the number of stored events.
func (s *SQLiteStore) CountEvents(ctx context.Context) (uint64, error) {
	return s.count(ctx, tableEvents)
}

// CountBlocks returns the number of stored blocks.
func (s *SQLiteStore) CountBlocks(ctx context.Context) (uint64, error) {
	return s.count(ctx, tableBlocks)
}

// Close checkpoints the WAL and closes the database.
func (s *SQLiteStore) Close() error {
	if err := db.Checkpoint(context.Background(), s.db, s.path, s.log); err != nil {
		s.log.Warnf("database checkpoint failed: %v", err)
	}

	return s.db.Close()
}

func (s *SQLiteStore) count(ctx context.Context, table string) (uint64, error) {
	var n uint64
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+table).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count %s: %w", table, err)
	}
	return n, nil
}

func (s *SQLiteStore) withTx(ctx context.Context, operation string, fn func(tx *sql.Tx) (int, error)) (int, error) {
	start := time.Now()
	metrics.DBQueryInc(sqliteDB, operation)
	defer func() { metrics.DBQueryDuration(sqliteDB, operation, time.Since(start)) }()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		metrics.DBErrorsInc(sqliteDB, "begin")
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err := tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
			s.log.Errorf("failed to rollback transaction: %v", err)
		}
	}()

	inserted, err := fn(tx)
	if err != nil {
		metrics.DBErrorsInc(sqliteDB, operation)
		return 0, err
	}

	if err := tx.Commit(); err != nil {
		metrics.DBErrorsInc(sqliteDB, "commit")
		return 0, fmt.Errorf("failed to commit transaction: %w", err)
	}

	s.log.Debugf("%s: inserted %d rows", operation, inserted)

	return inserted, nil
}

// insertOrIgnore writes rows through one prepared statement, skipping rows whose primary key exists.
func insertOrIgnore[T any](ctx context.Context, tx *sql.Tx, table string, rows []*T) (int, error) {
	if len(rows) == 0 {
		return 0, nil
	}

	columns, err := meddler.ColumnsQuoted(rows[0], true)
	if err != nil {
		return 0, err
	}
	placeholders, err := meddler.PlaceholdersString(rows[0], true)
	if err != nil {
		return 0, err
	}

	stmt, err := tx.PrepareContext(ctx,
		fmt.Sprintf("INSERT OR IGNORE INTO %s (%s) VALUES (%s)", table, columns, placeholders))
	if err != nil {
		return 0, fmt.Errorf("failed to prepare insert into %s: %w", table, err)
	}
	defer stmt.Close()

	var inserted int64
	for _, row := range rows {
		values, err := meddler.Values(row, true)
		if err != nil {
			return 0, err
		}

		res, err := stmt.ExecContext(ctx, values...)
		if err != nil {
			return 0, fmt.Errorf("failed to insert into %s: %w", table, err)
		}

		n, err := res.RowsAffected()
		if err != nil {
			return 0, err
		}
		inserted += n
	}

	return int(inserted), nil
}
