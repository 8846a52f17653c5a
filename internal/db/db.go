package db

import (
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/ameistad/carenote/internal/constants"
	_ "modernc.org/sqlite"
)

const driverName = "sqlite"

// ErrNotFound is returned by single-row lookups when nothing matches.
var ErrNotFound = errors.New("not found")

type DB struct {
	*sql.DB
}

// New opens (or creates) the carenote database inside dataDir.
func New(dataDir string) (*DB, error) {
	dbFile := filepath.Join(dataDir, constants.DBFileName)
	// Pragmas in the DSN are applied to every pooled connection.
	dsn := dbFile + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
	database, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := database.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if _, err := database.Exec("PRAGMA foreign_keys = ON"); err != nil {
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}
	if _, err := database.Exec("PRAGMA journal_mode = WAL"); err != nil {
		return nil, fmt.Errorf("failed to set journal mode: %w", err)
	}

	return &DB{database}, nil
}

// Migrate creates every table that does not exist yet.
func (db *DB) Migrate() error {
	steps := []func(*DB) error{
		createCustomersTable,
		createUsersTable,
		createDailyRecordTables,
		createWeeklyStatusTable,
		createAIEvaluationsTable,
		createEmployeeEvaluationsTable,
		createSettingsTable,
	}
	for _, step := range steps {
		if err := step(db); err != nil {
			return err
		}
	}
	return nil
}

// queryer is satisfied by both *sql.DB and *sql.Tx.
type queryer interface {
	Exec(query string, args ...any) (sql.Result, error)
	Query(query string, args ...any) (*sql.Rows, error)
	QueryRow(query string, args ...any) *sql.Row
}

// withTx runs fn inside a transaction, rolling back when fn fails.
func (db *DB) withTx(fn func(tx *sql.Tx) error) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func nullInt64(v *int64) any {
	if v == nil {
		return nil
	}
	return *v
}

func rowsAffected(result sql.Result) (int64, error) {
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to check rows affected: %w", err)
	}
	return n, nil
}
