// Package store provides data persistence interfaces and implementations.
package store

import (
	"context"
	"strings"

	"github.com/rs/zerolog"

	"trade-journal/internal/models"
)

// Backend names reported by DataStore.Backend.
const (
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
)

// TradeStore persists journaled trades.
type TradeStore interface {
	CreateTrade(ctx context.Context, trade *models.Trade) error
	GetTrade(ctx context.Context, id string) (*models.Trade, error)
	// ListTrades returns every trade, newest date first.
	ListTrades(ctx context.Context) ([]models.Trade, error)
	UpdateTrade(ctx context.Context, id string, trade *models.Trade) (bool, error)
	DeleteTrade(ctx context.Context, id string) (bool, error)
	CountTrades(ctx context.Context) (int, error)
}

// RuleStore persists trading rules.
type RuleStore interface {
	// ListRules returns every rule, most recently created first.
	ListRules(ctx context.Context) ([]models.Rule, error)
	AddRule(ctx context.Context, rule *models.Rule) error
	DeleteRule(ctx context.Context, id string) (bool, error)
}

// UserStore persists journal accounts.
type UserStore interface {
	GetUserByUsername(ctx context.Context, username string) (*models.User, error)
	CreateUser(ctx context.Context, user *models.User) error
}

// DataStore defines the interface for data persistence.
type DataStore interface {
	TradeStore
	RuleStore
	UserStore

	// Lifecycle
	Ping(ctx context.Context) error
	Backend() string
	Close() error
}

// Options selects and configures a backend.
type Options struct {
	// URL is a PostgreSQL connection string. When set it wins over SQLitePath.
	URL        string
	SQLitePath string
}

// Open returns the PostgreSQL store when a connection string is configured
// and the embedded SQLite store otherwise.
func Open(ctx context.Context, opts Options, logger zerolog.Logger) (DataStore, error) {
	if strings.TrimSpace(opts.URL) != "" {
		return NewPostgresStore(ctx, opts.URL, logger)
	}
	return NewSQLiteStore(opts.SQLitePath, logger)
}
