package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnumValid(t *testing.T) {
	for _, p := range PatternTypes {
		assert.True(t, p.Valid(), p)
	}
	for _, q := range SetupQualities {
		assert.True(t, q.Valid(), q)
	}
	for _, s := range MarketStages {
		assert.True(t, s.Valid(), s)
	}
	for _, s := range TradeStatuses {
		assert.True(t, s.Valid(), s)
	}
	for _, r := range TradeResults {
		assert.True(t, r.Valid(), r)
	}

	assert.False(t, PatternType("Head & Shoulders").Valid())
	assert.False(t, SetupQuality("D").Valid())
	assert.False(t, MarketStage("Stage 5").Valid())
	assert.False(t, TradeStatus("Cancelled").Valid())
	assert.False(t, TradeResult("").Valid())
}

func TestTrade_ApplyDefaults(t *testing.T) {
	tr := &Trade{}
	tr.ApplyDefaults()
	assert.Equal(t, ResultNone, tr.Result)

	tr = &Trade{Result: ResultWin}
	tr.ApplyDefaults()
	assert.Equal(t, ResultWin, tr.Result)
}

func TestTrade_ParsedDateAndClosed(t *testing.T) {
	tr := &Trade{Date: "2024-03-01", Status: StatusClosed}
	d, err := tr.ParsedDate()
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), d)
	assert.True(t, tr.IsClosed())

	tr = &Trade{Date: "03/01/2024", Status: StatusExecuted}
	_, err = tr.ParsedDate()
	assert.Error(t, err)
	assert.False(t, tr.IsClosed())
}

func TestJSONShape(t *testing.T) {
	data, err := json.Marshal(Trade{ID: "t1", StockName: "AAPL"})
	require.NoError(t, err)

	var m map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &m))
	assert.Equal(t, "AAPL", m["stockName"])
	assert.NotContains(t, m, "updatedAt")

	data, err = json.Marshal(User{ID: "u1", Username: "trader", PasswordHash: "hash"})
	require.NoError(t, err)
	assert.NotContains(t, string(data), "hash")

	data, err = json.Marshal(Rule{ID: "r1", RuleText: "Cut losses"})
	require.NoError(t, err)
	assert.NotContains(t, string(data), "image")
}
