package models

import "time"

// DateLayout is the calendar date format used for Trade.Date.
const DateLayout = "2006-01-02"

// Trade represents one journaled stock trade.
type Trade struct {
	ID           string       `json:"id"`
	StockName    string       `json:"stockName"`
	Date         string       `json:"date"`
	PatternType  PatternType  `json:"patternType"`
	SetupQuality SetupQuality `json:"setupQuality"`
	MarketStage  MarketStage  `json:"marketStage"`
	EntryPrice   float64      `json:"entryPrice"`
	StopLoss     float64      `json:"stopLoss"`
	TargetPrice  float64      `json:"targetPrice"`
	RiskPercent  float64      `json:"riskPercent"`
	Status       TradeStatus  `json:"status"`
	Result       TradeResult  `json:"result"`
	Notes        string       `json:"notes"`
	ChartImage   string       `json:"chartImage"`
	CreatedAt    time.Time    `json:"createdAt"`
	UpdatedAt    *time.Time   `json:"updatedAt,omitempty"`
}

// ParsedDate returns the trade date as a time.Time.
func (t *Trade) ParsedDate() (time.Time, error) {
	return time.Parse(DateLayout, t.Date)
}

// IsClosed returns true if the trade has been closed.
func (t *Trade) IsClosed() bool {
	return t.Status == StatusClosed
}

// ApplyDefaults fills the optional fields the way the journal stores them.
func (t *Trade) ApplyDefaults() {
	if t.Result == "" {
		t.Result = ResultNone
	}
}

// Rule is a personal trading guideline, optionally illustrated.
type Rule struct {
	ID        string    `json:"id"`
	RuleText  string    `json:"ruleText"`
	Image     string    `json:"image,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// User is a journal account.
type User struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
}
