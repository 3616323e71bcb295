// Package models provides domain models for the trading journal.
package models

// PatternType represents the chart pattern a trade was taken on.
type PatternType string

const (
	PatternVCP       PatternType = "VCP"
	PatternCupHandle PatternType = "Cup & Handle"
	PatternBreakout  PatternType = "Breakout"
	PatternPullback  PatternType = "Pullback"
	PatternFlag      PatternType = "Flag"
	PatternOther     PatternType = "Other"
)

// PatternTypes lists the pattern types in display order.
var PatternTypes = []PatternType{
	PatternVCP, PatternCupHandle, PatternBreakout, PatternPullback, PatternFlag, PatternOther,
}

// SetupQuality is the subjective grade of a trade setup.
type SetupQuality string

const (
	SetupAPlus SetupQuality = "A+"
	SetupA     SetupQuality = "A"
	SetupB     SetupQuality = "B"
	SetupC     SetupQuality = "C"
)

// SetupQualities lists the grades from strongest to weakest.
var SetupQualities = []SetupQuality{SetupAPlus, SetupA, SetupB, SetupC}

// MarketStage is the four-stage trend classification of the stock.
type MarketStage string

const (
	StageAccumulation MarketStage = "Stage 1 — Accumulation (Base Building)"
	StageUptrend      MarketStage = "Stage 2 — Uptrend (Higher High)"
	StageDistribution MarketStage = "Stage 3 — Distribution (Topping Phase)"
	StageDowntrend    MarketStage = "Stage 4 — Downtrend (Capital Protection Phase)"
)

// MarketStages lists the stages in cycle order.
var MarketStages = []MarketStage{
	StageAccumulation, StageUptrend, StageDistribution, StageDowntrend,
}

// TradeStatus represents the lifecycle state of a trade.
type TradeStatus string

const (
	StatusPlanned  TradeStatus = "Planned"
	StatusExecuted TradeStatus = "Executed"
	StatusClosed   TradeStatus = "Closed"
)

// TradeStatuses lists the statuses in lifecycle order.
var TradeStatuses = []TradeStatus{StatusPlanned, StatusExecuted, StatusClosed}

// TradeResult represents the outcome of a trade.
type TradeResult string

const (
	ResultNone      TradeResult = "-"
	ResultWin       TradeResult = "Win"
	ResultLoss      TradeResult = "Loss"
	ResultBreakeven TradeResult = "Breakeven"
)

// TradeResults lists the results, "-" meaning not yet known.
var TradeResults = []TradeResult{ResultNone, ResultWin, ResultLoss, ResultBreakeven}

// Valid reports whether p is a known pattern type.
func (p PatternType) Valid() bool {
	for _, v := range PatternTypes {
		if p == v {
			return true
		}
	}
	return false
}

// Valid reports whether q is a known setup grade.
func (q SetupQuality) Valid() bool {
	for _, v := range SetupQualities {
		if q == v {
			return true
		}
	}
	return false
}

// Valid reports whether s is a known market stage.
func (s MarketStage) Valid() bool {
	for _, v := range MarketStages {
		if s == v {
			return true
		}
	}
	return false
}

// Valid reports whether s is a known trade status.
func (s TradeStatus) Valid() bool {
	for _, v := range TradeStatuses {
		if s == v {
			return true
		}
	}
	return false
}

// Valid reports whether r is a known trade result.
func (r TradeResult) Valid() bool {
	for _, v := range TradeResults {
		if r == v {
			return true
		}
	}
	return false
}
