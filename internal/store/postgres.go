package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"
	"github.com/rs/zerolog"
)

// uniqueViolation is the PostgreSQL SQLSTATE for a unique constraint failure.
const uniqueViolation = "23505"

// PostgresStore implements DataStore on a networked PostgreSQL server.
type PostgresStore struct {
	*sqlStore
}

// NewPostgresStore connects to dsn and prepares the schema.
func NewPostgresStore(ctx context.Context, dsn string, logger zerolog.Logger) (*PostgresStore, error) {
	connector, err := pq.NewConnector(dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to parse connection string: %w", err)
	}
	db := sql.OpenDB(connector)

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(time.Hour)

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, dbError(err, "failed to connect to database")
	}

	store := &PostgresStore{sqlStore: newSQLStore(db, BackendPostgres, logger)}
	store.numbered = true
	store.isUniqueViolation = isPostgresUniqueViolation

	if err := store.createSchema(ctx, "DOUBLE PRECISION"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	store.migrate(ctx)

	store.logger.Info().Msg("Using database: PostgreSQL")
	return store, nil
}

// migrate adds columns introduced after the first release. Failures are
// logged and otherwise ignored.
func (s *PostgresStore) migrate(ctx context.Context) {
	for _, c := range addedColumns {
		stmt := fmt.Sprintf("ALTER TABLE %s ADD COLUMN IF NOT EXISTS %s %s", c.Table, c.Name, c.Type)
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			s.logger.Warn().Err(err).Str("table", c.Table).Str("column", c.Name).Msg("Migration failed")
		}
	}
}

func isPostgresUniqueViolation(err error) bool {
	var pe *pq.Error
	if errors.As(err, &pe) {
		return pe.Code == uniqueViolation
	}
	return false
}
