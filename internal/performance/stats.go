// Package performance computes trading statistics over journaled trades.
//
// The same functions back the server's stats endpoint and the client-side
// trade cache, so both sides always report identical numbers.
package performance

import (
	"fmt"
	"math"

	"github.com/shopspring/decimal"

	"trade-journal/internal/models"
)

// Stats is the aggregate view of a trade list.
type Stats struct {
	Total   int     `json:"total"`
	Wins    int     `json:"wins"`
	Losses  int     `json:"losses"`
	WinRate float64 `json:"winRate"`
	AvgRR   float64 `json:"avgRR"`
}

// Calculate computes the journal statistics for trades.
//
// Wins and losses only count Closed trades; the win rate is taken over
// Closed trades. The average risk:reward covers every trade with a usable
// entry/stop/target, whatever its status.
func Calculate(trades []models.Trade) Stats {
	stats := Stats{Total: len(trades)}

	var closed int
	var totalRR float64
	var rrCount int

	for i := range trades {
		t := &trades[i]
		if t.IsClosed() {
			closed++
			switch t.Result {
			case models.ResultWin:
				stats.Wins++
			case models.ResultLoss:
				stats.Losses++
			}
		}

		if rr, ok := RiskReward(t.EntryPrice, t.StopLoss, t.TargetPrice); ok {
			totalRR += rr
			rrCount++
		}
	}

	if closed > 0 {
		stats.WinRate = Round(float64(stats.Wins)/float64(closed)*100, 1)
	}
	if rrCount > 0 {
		stats.AvgRR = Round(totalRR/float64(rrCount), 2)
	}

	return stats
}

// RiskReward returns reward/risk for a trade plan. ok is false when any price
// is zero or not finite, or when entry equals stop.
func RiskReward(entry, stop, target float64) (float64, bool) {
	if !usable(entry) || !usable(stop) || !usable(target) || entry == stop {
		return 0, false
	}
	risk := math.Abs(entry - stop)
	if risk <= 0 {
		return 0, false
	}
	reward := math.Abs(target - entry)
	rr := reward / risk
	if math.IsInf(rr, 0) || math.IsNaN(rr) {
		return 0, false
	}
	return rr, true
}

// RiskPercent returns |entry-stop|/entry as a percentage rounded to 2 places,
// or 0 when entry is not positive.
func RiskPercent(entry, stop float64) float64 {
	if !(entry > 0) || math.IsInf(entry, 0) || !usable(stop) {
		return 0
	}
	return Round(math.Abs(entry-stop)/entry*100, 2)
}

// FormatRR renders the risk:reward ratio as "1:3.00", or "-" if undefined.
func FormatRR(entry, stop, target float64) string {
	rr, ok := RiskReward(entry, stop, target)
	if !ok {
		return "-"
	}
	return fmt.Sprintf("1:%s", decimal.NewFromFloat(rr).StringFixed(2))
}

// Round rounds v to places decimals, half away from zero, using the
// shortest decimal representation of v.
func Round(v float64, places int32) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return v
	}
	return decimal.NewFromFloat(v).Round(places).InexactFloat64()
}

func usable(v float64) bool {
	return v != 0 && !math.IsNaN(v) && !math.IsInf(v, 0)
}
