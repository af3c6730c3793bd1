package db

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/goran-ethernal/ethindex/internal/logger"
	migrate "github.com/rubenv/sql-migrate"
)

const (
	DialectSQLite   = "sqlite3"
	DialectPostgres = "postgres"

	upMarker   = "-- +migrate Up"
	downMarker = "-- +migrate Down"
)

// Migration is a single schema change written as a Down section followed by an Up section.
type Migration struct {
	ID  string
	SQL string
}

// toMigrate splits the SQL into its Down and Up sections.
func (m Migration) toMigrate() (*migrate.Migration, error) {
	down, up, ok := strings.Cut(m.SQL, upMarker)
	if !ok {
		return nil, fmt.Errorf("migration %s missing '%s' separator", m.ID, upMarker)
	}

	if _, after, found := strings.Cut(down, downMarker); found {
		down = after
	}

	return &migrate.Migration{
		Id:   m.ID,
		Up:   []string{strings.TrimSpace(up)},
		Down: []string{strings.TrimSpace(down)},
	}, nil
}

// RunMigrations applies every pending migration for the given dialect.
func RunMigrations(log *logger.Logger, db *sql.DB, dialect string, migrations []Migration) error {
	return RunMigrationsExtended(log, db, dialect, migrations, migrate.Up, 0)
}

// RunMigrationsExtended applies at most maxMigrations migrations (0 means no limit) in direction dir.
func RunMigrationsExtended(
	log *logger.Logger,
	db *sql.DB,
	dialect string,
	migrations []Migration,
	dir migrate.MigrationDirection,
	maxMigrations int,
) error {
	source := &migrate.MemoryMigrationSource{Migrations: make([]*migrate.Migration, 0, len(migrations))}
	ids := make([]string, 0, len(migrations))

	for _, m := range migrations {
		mig, err := m.toMigrate()
		if err != nil {
			return err
		}
		source.Migrations = append(source.Migrations, mig)
		ids = append(ids, m.ID)
	}

	list := strings.Join(ids, ", ")
	log.Debugf("running %s migrations (max %d/%d): %s", dialect, maxMigrations, len(ids), list)

	applied, err := migrate.ExecMax(db, dialect, source, dir, maxMigrations)
	if err != nil {
		return fmt.Errorf("error executing migrations (max %d/%d) %s: %w", maxMigrations, len(ids), list, err)
	}

	log.Infof("successfully ran %d migrations from: %s", applied, list)

	return nil
}
