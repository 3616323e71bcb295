package store

import "fmt"

// schema returns the table definitions with the backend's floating point
// column type substituted in.
func schema(realType string) []string {
	return []string{
		`CREATE TABLE IF NOT EXISTS users (
			id TEXT PRIMARY KEY,
			username TEXT UNIQUE NOT NULL,
			password TEXT NOT NULL,
			createdAt TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS trading_rules (
			id TEXT PRIMARY KEY,
			ruleText TEXT NOT NULL,
			image TEXT,
			createdAt TEXT NOT NULL
		)`,
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS trades (
			id TEXT PRIMARY KEY,
			stockName TEXT NOT NULL,
			date TEXT NOT NULL,
			patternType TEXT NOT NULL,
			setupQuality TEXT NOT NULL,
			marketStage TEXT,
			entryPrice %[1]s NOT NULL,
			stopLoss %[1]s NOT NULL,
			targetPrice %[1]s NOT NULL,
			riskPercent %[1]s NOT NULL,
			status TEXT NOT NULL,
			result TEXT,
			notes TEXT,
			chartImage TEXT,
			createdAt TEXT NOT NULL,
			updatedAt TEXT
		)`, realType),
		`CREATE INDEX IF NOT EXISTS idx_trades_date ON trades(date)`,
		`CREATE INDEX IF NOT EXISTS idx_rules_created ON trading_rules(createdAt)`,
	}
}

// column is a nullable column introduced after the first release.
type column struct {
	Table string
	Name  string
	Type  string
}

// addedColumns are applied additively on every start.
var addedColumns = []column{
	{Table: "trades", Name: "marketStage", Type: "TEXT"},
	{Table: "trading_rules", Name: "image", Type: "TEXT"},
}

const tradeColumns = `id, stockName, date, patternType, setupQuality, marketStage,
	entryPrice, stopLoss, targetPrice, riskPercent,
	status, result, notes, chartImage, createdAt, updatedAt`
