package store

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	jerrors "trade-journal/internal/errors"
	"trade-journal/internal/models"
	"trade-journal/pkg/id"
)

// timeLayout is fixed width so that createdAt sorts lexically.
const timeLayout = "2006-01-02T15:04:05.000000Z07:00"

// sqlStore holds the queries shared by both backends. Statements are
// written with ? placeholders and rebound for PostgreSQL.
type sqlStore struct {
	db      *sql.DB
	backend string
	logger  zerolog.Logger
	// numbered rewrites ? to $1, $2, ...
	numbered          bool
	isUniqueViolation func(error) bool
	now               func() time.Time
}

func newSQLStore(db *sql.DB, backend string, logger zerolog.Logger) *sqlStore {
	return &sqlStore{
		db:                db,
		backend:           backend,
		logger:            logger.With().Str("component", "store").Str("backend", backend).Logger(),
		isUniqueViolation: func(error) bool { return false },
		now:               func() time.Time { return time.Now().UTC().Truncate(time.Microsecond) },
	}
}

// q rebinds a query for the backend's placeholder style.
func (s *sqlStore) q(query string) string {
	if !s.numbered {
		return query
	}
	return rebind(query)
}

func rebind(query string) string {
	var b strings.Builder
	b.Grow(len(query) + 16)
	n := 1
	for _, r := range query {
		if r == '?' {
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			n++
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// createSchema creates the tables. Failure here is fatal; the additive
// column migrations that follow are not.
func (s *sqlStore) createSchema(ctx context.Context, realType string) error {
	for _, stmt := range schema(realType) {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return dbError(err, "failed to create schema")
		}
	}
	return nil
}

// Backend returns the backend name.
func (s *sqlStore) Backend() string {
	return s.backend
}

// Ping verifies the database connection.
func (s *sqlStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database connection.
func (s *sqlStore) Close() error {
	return s.db.Close()
}

// ============================================================================
// Trades Methods
// ============================================================================

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanTrade(r rowScanner) (*models.Trade, error) {
	var (
		t                                models.Trade
		pattern, quality, status         string
		stage, result, notes, chart, upd sql.NullString
		createdAt                        string
	)
	if err := r.Scan(&t.ID, &t.StockName, &t.Date, &pattern, &quality, &stage,
		&t.EntryPrice, &t.StopLoss, &t.TargetPrice, &t.RiskPercent,
		&status, &result, &notes, &chart, &createdAt, &upd); err != nil {
		return nil, err
	}

	t.PatternType = models.PatternType(pattern)
	t.SetupQuality = models.SetupQuality(quality)
	t.MarketStage = models.MarketStage(stage.String)
	t.Status = models.TradeStatus(status)
	t.Result = models.TradeResult(result.String)
	t.Notes = notes.String
	t.ChartImage = chart.String
	t.CreatedAt = parseTime(createdAt)
	if upd.Valid && upd.String != "" {
		u := parseTime(upd.String)
		t.UpdatedAt = &u
	}
	t.ApplyDefaults()
	return &t, nil
}

// CreateTrade inserts a trade, assigning its ID and creation time.
func (s *sqlStore) CreateTrade(ctx context.Context, trade *models.Trade) error {
	now := s.now()
	trade.ID = id.NewAt(now)
	trade.CreatedAt = now
	trade.UpdatedAt = nil
	trade.ApplyDefaults()

	_, err := s.db.ExecContext(ctx, s.q(`
		INSERT INTO trades (
			id, stockName, date, patternType, setupQuality, marketStage,
			entryPrice, stopLoss, targetPrice, riskPercent,
			status, result, notes, chartImage, createdAt
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`), trade.ID, trade.StockName, trade.Date, string(trade.PatternType), string(trade.SetupQuality),
		string(trade.MarketStage), trade.EntryPrice, trade.StopLoss, trade.TargetPrice, trade.RiskPercent,
		string(trade.Status), string(trade.Result), trade.Notes, trade.ChartImage, now.Format(timeLayout))
	if err != nil {
		return dbError(err, "failed to create trade")
	}
	return nil
}

// GetTrade returns a trade by ID, or errors.ErrNotFound.
func (s *sqlStore) GetTrade(ctx context.Context, id string) (*models.Trade, error) {
	row := s.db.QueryRowContext(ctx, s.q("SELECT "+tradeColumns+" FROM trades WHERE id = ?"), id)
	t, err := scanTrade(row)
	if err == sql.ErrNoRows {
		return nil, jerrors.NewDataError("trade", id, "trade not found", jerrors.ErrNotFound)
	}
	if err != nil {
		return nil, dbError(err, "failed to get trade")
	}
	return t, nil
}

// ListTrades returns all trades ordered by date, newest first.
func (s *sqlStore) ListTrades(ctx context.Context) ([]models.Trade, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+tradeColumns+" FROM trades ORDER BY date DESC, createdAt DESC, id DESC")
	if err != nil {
		return nil, dbError(err, "failed to query trades")
	}
	defer rows.Close()

	trades := []models.Trade{}
	for rows.Next() {
		t, err := scanTrade(rows)
		if err != nil {
			return nil, dbError(err, "failed to scan trade")
		}
		trades = append(trades, *t)
	}

	return trades, rows.Err()
}

// UpdateTrade replaces every editable field of a trade. It reports false
// when no trade has the given ID.
func (s *sqlStore) UpdateTrade(ctx context.Context, id string, trade *models.Trade) (bool, error) {
	now := s.now()
	trade.ApplyDefaults()

	result, err := s.db.ExecContext(ctx, s.q(`
		UPDATE trades SET
			stockName = ?,
			date = ?,
			patternType = ?,
			setupQuality = ?,
			marketStage = ?,
			entryPrice = ?,
			stopLoss = ?,
			targetPrice = ?,
			riskPercent = ?,
			status = ?,
			result = ?,
			notes = ?,
			chartImage = ?,
			updatedAt = ?
		WHERE id = ?
	`), trade.StockName, trade.Date, string(trade.PatternType), string(trade.SetupQuality),
		string(trade.MarketStage), trade.EntryPrice, trade.StopLoss, trade.TargetPrice, trade.RiskPercent,
		string(trade.Status), string(trade.Result), trade.Notes, trade.ChartImage, now.Format(timeLayout), id)
	if err != nil {
		return false, dbError(err, "failed to update trade")
	}

	n, err := result.RowsAffected()
	if err != nil {
		return false, dbError(err, "failed to update trade")
	}
	if n == 0 {
		return false, nil
	}
	trade.ID = id
	trade.UpdatedAt = &now
	return true, nil
}

// DeleteTrade removes a trade. It reports false when nothing was deleted.
func (s *sqlStore) DeleteTrade(ctx context.Context, id string) (bool, error) {
	return s.deleteByID(ctx, "trades", id)
}

// CountTrades returns the number of stored trades.
func (s *sqlStore) CountTrades(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM trades").Scan(&n); err != nil {
		return 0, dbError(err, "failed to count trades")
	}
	return n, nil
}

// ============================================================================
// Rules Methods
// ============================================================================

// ListRules returns all rules, most recent first.
func (s *sqlStore) ListRules(ctx context.Context) ([]models.Rule, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, ruleText, image, createdAt FROM trading_rules ORDER BY createdAt DESC, id DESC")
	if err != nil {
		return nil, dbError(err, "failed to query rules")
	}
	defer rows.Close()

	rules := []models.Rule{}
	for rows.Next() {
		var r models.Rule
		var image sql.NullString
		var createdAt string
		if err := rows.Scan(&r.ID, &r.RuleText, &image, &createdAt); err != nil {
			return nil, dbError(err, "failed to scan rule")
		}
		r.Image = image.String
		r.CreatedAt = parseTime(createdAt)
		rules = append(rules, r)
	}

	return rules, rows.Err()
}

// AddRule inserts a rule, assigning its ID and creation time.
func (s *sqlStore) AddRule(ctx context.Context, rule *models.Rule) error {
	now := s.now()
	rule.ID = id.NewAt(now)
	rule.CreatedAt = now

	var image interface{}
	if rule.Image != "" {
		image = rule.Image
	}

	_, err := s.db.ExecContext(ctx, s.q(
		"INSERT INTO trading_rules (id, ruleText, image, createdAt) VALUES (?, ?, ?, ?)"),
		rule.ID, rule.RuleText, image, now.Format(timeLayout))
	if err != nil {
		return dbError(err, "failed to add rule")
	}
	return nil
}

// DeleteRule removes a rule. It reports false when nothing was deleted.
func (s *sqlStore) DeleteRule(ctx context.Context, id string) (bool, error) {
	return s.deleteByID(ctx, "trading_rules", id)
}

// ============================================================================
// Users Methods
// ============================================================================

// GetUserByUsername returns a user, or errors.ErrNotFound.
func (s *sqlStore) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	var u models.User
	var createdAt string
	err := s.db.QueryRowContext(ctx,
		s.q("SELECT id, username, password, createdAt FROM users WHERE username = ?"), username,
	).Scan(&u.ID, &u.Username, &u.PasswordHash, &createdAt)
	if err == sql.ErrNoRows {
		return nil, jerrors.NewDataError("user", username, "user not found", jerrors.ErrNotFound)
	}
	if err != nil {
		return nil, dbError(err, "failed to get user")
	}
	u.CreatedAt = parseTime(createdAt)
	return &u, nil
}

// CreateUser inserts a user. It fails with errors.ErrDuplicateUsername when
// the username is taken, whichever backend is in use.
func (s *sqlStore) CreateUser(ctx context.Context, user *models.User) error {
	now := s.now()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return dbError(err, "failed to begin transaction")
	}
	defer tx.Rollback()

	var taken int
	if err := tx.QueryRowContext(ctx,
		s.q("SELECT COUNT(*) FROM users WHERE username = ?"), user.Username,
	).Scan(&taken); err != nil {
		return dbError(err, "failed to check username")
	}
	if taken > 0 {
		return jerrors.ErrDuplicateUsername
	}

	userID := id.NewAt(now)
	_, err = tx.ExecContext(ctx,
		s.q("INSERT INTO users (id, username, password, createdAt) VALUES (?, ?, ?, ?)"),
		userID, user.Username, user.PasswordHash, now.Format(timeLayout))
	if err != nil {
		if s.isUniqueViolation(err) {
			return jerrors.ErrDuplicateUsername
		}
		return dbError(err, "failed to create user")
	}

	if err := tx.Commit(); err != nil {
		if s.isUniqueViolation(err) {
			return jerrors.ErrDuplicateUsername
		}
		return dbError(err, "failed to commit transaction")
	}

	user.ID = userID
	user.CreatedAt = now
	return nil
}

func (s *sqlStore) deleteByID(ctx context.Context, table, id string) (bool, error) {
	result, err := s.db.ExecContext(ctx, s.q("DELETE FROM "+table+" WHERE id = ?"), id)
	if err != nil {
		return false, dbError(err, "failed to delete from %s", table)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, dbError(err, "failed to delete from %s", table)
	}
	return n > 0, nil
}

// parseTime accepts both our fixed layout and the ISO strings written by
// earlier versions.
func parseTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t.UTC()
}

// dbError marks a driver failure with errors.ErrDatabaseError, keeping the
// driver error in the chain.
func dbError(err error, format string, args ...interface{}) error {
	return jerrors.Wrapf(fmt.Errorf("%w: %w", jerrors.ErrDatabaseError, err), format, args...)
}
