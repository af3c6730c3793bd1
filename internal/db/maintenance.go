package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/goran-ethernal/ethindex/internal/logger"
)

const walCheckpointMode = "TRUNCATE"

// Checkpoint folds the WAL back into the main database file and refreshes
// query planner statistics. It is meant to run once after a batch of writes.
func Checkpoint(ctx context.Context, db *sql.DB, dbPath string, log *logger.Logger) error {
	isWAL, err := isWALMode(ctx, db)
	if err != nil {
		return fmt.Errorf("failed to check journal mode: %w", err)
	}

	if isWAL {
		var busy, logFrames, checkpointed int
		err := db.QueryRowContext(ctx, fmt.Sprintf("PRAGMA wal_checkpoint(%s)", walCheckpointMode)).
			Scan(&busy, &logFrames, &checkpointed)
		if err != nil {
			return fmt.Errorf("failed to execute WAL checkpoint: %w", err)
		}

		WALCheckpointInc(strings.ToLower(walCheckpointMode))
		log.Debugf("WAL checkpoint complete - busy: %d, log_frames: %d, checkpointed: %d",
			busy, logFrames, checkpointed)

		if busy > 0 {
			log.Warnf("WAL checkpoint encountered %d busy pages", busy)
		}
	}

	if _, err := db.ExecContext(ctx, "PRAGMA optimize"); err != nil {
		return fmt.Errorf("failed to optimize database: %w", err)
	}
	OptimizeRunsInc()

	if dbPath != memoryPath {
		size, err := DBTotalSize(dbPath)
		if err != nil {
			log.Warnf("failed to get database size: %v", err)
		} else {
			DBSizeLog(size)
		}
	}

	return nil
}

// DBTotalSize returns the combined size of the database file and its -wal and -shm companions.
// Missing files count as zero.
func DBTotalSize(dbPath string) (int64, error) {
	var total int64

	for _, path := range []string{dbPath, dbPath + "-wal", dbPath + "-shm"} {
		info, err := os.Stat(path)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return 0, fmt.Errorf("failed to stat %s: %w", path, err)
		}
		total += info.Size()
	}

	return total, nil
}

func isWALMode(ctx context.Context, db *sql.DB) (bool, error) {
	var mode string
	if err := db.QueryRowContext(ctx, "PRAGMA journal_mode").Scan(&mode); err != nil {
		return false, err
	}
	return strings.EqualFold(mode, "wal"), nil
}
