package performance

import (
	"sort"
	"strings"
	"time"

	"trade-journal/internal/models"
)

// Filter narrows a trade history. Zero values match everything.
type Filter struct {
	PatternType models.PatternType
	// Result "-" is treated the same as empty.
	Result    models.TradeResult
	StartDate time.Time
	EndDate   time.Time
}

// SortKey names a sortable trade column.
type SortKey string

const (
	SortByDate         SortKey = "date"
	SortByStockName    SortKey = "stockName"
	SortByPatternType  SortKey = "patternType"
	SortBySetupQuality SortKey = "setupQuality"
	SortByStatus       SortKey = "status"
	SortByResult       SortKey = "result"
	SortByEntryPrice   SortKey = "entryPrice"
	SortByStopLoss     SortKey = "stopLoss"
	SortByTargetPrice  SortKey = "targetPrice"
)

// SortKeys lists every supported sort key.
var SortKeys = []SortKey{
	SortByDate, SortByStockName, SortByPatternType, SortBySetupQuality,
	SortByStatus, SortByResult, SortByEntryPrice, SortByStopLoss, SortByTargetPrice,
}

// Sort orders a trade history.
type Sort struct {
	Key  SortKey
	Desc bool
}

// DefaultSort is newest trade first.
var DefaultSort = Sort{Key: SortByDate, Desc: true}

// ParseSortKey resolves a user supplied column name, case-insensitively.
func ParseSortKey(s string) (SortKey, bool) {
	for _, k := range SortKeys {
		if strings.EqualFold(string(k), s) {
			return k, true
		}
	}
	return "", false
}

// Match reports whether t passes the filter.
func (f Filter) Match(t *models.Trade) bool {
	if f.PatternType != "" && t.PatternType != f.PatternType {
		return false
	}
	if f.Result != "" && f.Result != models.ResultNone && t.Result != f.Result {
		return false
	}
	if f.StartDate.IsZero() && f.EndDate.IsZero() {
		return true
	}

	d, err := t.ParsedDate()
	if err != nil {
		return false
	}
	if !f.StartDate.IsZero() && d.Before(f.StartDate) {
		return false
	}
	if !f.EndDate.IsZero() && d.After(f.EndDate) {
		return false
	}
	return true
}

// Apply returns the trades matching f, ordered by s. The input is not modified.
func Apply(trades []models.Trade, f Filter, s Sort) []models.Trade {
	out := make([]models.Trade, 0, len(trades))
	for i := range trades {
		if f.Match(&trades[i]) {
			out = append(out, trades[i])
		}
	}

	if s.Key == "" {
		s = DefaultSort
	}
	sort.SliceStable(out, func(i, j int) bool {
		c := compare(&out[i], &out[j], s.Key)
		if s.Desc {
			return c > 0
		}
		return c < 0
	})
	return out
}

func compare(a, b *models.Trade, key SortKey) int {
	switch key {
	case SortByDate:
		da, errA := a.ParsedDate()
		db, errB := b.ParsedDate()
		if errA != nil || errB != nil {
			return strings.Compare(a.Date, b.Date)
		}
		return da.Compare(db)
	case SortByEntryPrice:
		return compareFloat(a.EntryPrice, b.EntryPrice)
	case SortByStopLoss:
		return compareFloat(a.StopLoss, b.StopLoss)
	case SortByTargetPrice:
		return compareFloat(a.TargetPrice, b.TargetPrice)
	case SortByStockName:
		return strings.Compare(a.StockName, b.StockName)
	case SortByPatternType:
		return strings.Compare(string(a.PatternType), string(b.PatternType))
	case SortBySetupQuality:
		return strings.Compare(string(a.SetupQuality), string(b.SetupQuality))
	case SortByStatus:
		return strings.Compare(string(a.Status), string(b.Status))
	case SortByResult:
		return strings.Compare(string(a.Result), string(b.Result))
	}
	return 0
}

func compareFloat(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}
