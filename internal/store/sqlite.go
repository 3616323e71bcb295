package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"
)

// SQLiteStore implements DataStore on an embedded SQLite file.
type SQLiteStore struct {
	*sqlStore
	path string
}

// NewSQLiteStore opens (creating if needed) the journal database at dbPath.
func NewSQLiteStore(dbPath string, logger zerolog.Logger) (*SQLiteStore, error) {
	if dbPath == "" {
		return nil, fmt.Errorf("sqlite path is empty")
	}
	if dbPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, dbError(err, "failed to open database")
	}

	// One connection serializes writes to the file and keeps :memory:
	// databases alive across calls.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	store := &SQLiteStore{
		sqlStore: newSQLStore(db, BackendSQLite, logger),
		path:     dbPath,
	}
	store.isUniqueViolation = isSQLiteUniqueViolation

	ctx := context.Background()
	if err := store.createSchema(ctx, "REAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	store.migrate(ctx)

	store.logger.Info().Str("path", dbPath).Msg("Using database: SQLite (local)")
	return store, nil
}

// Path returns the database file path.
func (s *SQLiteStore) Path() string {
	return s.path
}

// migrate adds columns introduced after the first release. Failures are
// logged and otherwise ignored so that old journal files stay usable.
func (s *SQLiteStore) migrate(ctx context.Context) {
	for _, c := range addedColumns {
		exists, err := s.hasColumn(ctx, c.Table, c.Name)
		if err != nil {
			s.logger.Warn().Err(err).Str("table", c.Table).Str("column", c.Name).Msg("Failed to inspect table")
			continue
		}
		if exists {
			continue
		}
		stmt := fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s %s", c.Table, c.Name, c.Type)
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			s.logger.Warn().Err(err).Str("table", c.Table).Str("column", c.Name).Msg("Migration failed")
			continue
		}
		s.logger.Info().Str("table", c.Table).Str("column", c.Name).Msg("Added column")
	}
}

func (s *SQLiteStore) hasColumn(ctx context.Context, table, column string) (bool, error) {
	rows, err := s.db.QueryContext(ctx, fmt.Sprintf("PRAGMA table_info(%s)", table))
	if err != nil {
		return false, err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			cid       int
			name      string
			ctype     string
			notNull   int
			dfltValue sql.NullString
			pk        int
		)
		if err := rows.Scan(&cid, &name, &ctype, &notNull, &dfltValue, &pk); err != nil {
			return false, err
		}
		if name == column {
			return true, nil
		}
	}
	return false, rows.Err()
}

func isSQLiteUniqueViolation(err error) bool {
	var se sqlite3.Error
	if errors.As(err, &se) {
		return se.ExtendedCode == sqlite3.ErrConstraintUnique
	}
	return false
}
