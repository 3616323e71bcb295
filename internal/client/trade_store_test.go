package client

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trade-journal/internal/models"
	"trade-journal/internal/performance"
)

// fakeAPI is an in-memory TradeAPI.
type fakeAPI struct {
	mu     sync.Mutex
	trades []models.Trade
	seq    int
	lists  int
	err    error
}

func (f *fakeAPI) ListTrades(context.Context) ([]models.Trade, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lists++
	if f.err != nil {
		return nil, f.err
	}
	return append([]models.Trade(nil), f.trades...), nil
}

func (f *fakeAPI) CreateTrade(_ context.Context, t *models.Trade) (*models.Trade, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	f.seq++
	created := *t
	created.ID = fmt.Sprintf("t%d", f.seq)
	f.trades = append([]models.Trade{created}, f.trades...)
	return &created, nil
}

func (f *fakeAPI) UpdateTrade(_ context.Context, id string, t *models.Trade) (*models.Trade, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	for i := range f.trades {
		if f.trades[i].ID == id {
			updated := *t
			updated.ID = id
			f.trades[i] = updated
			return &updated, nil
		}
	}
	return nil, &APIError{Status: 404, Message: "Trade not found"}
}

func (f *fakeAPI) DeleteTrade(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	for i := range f.trades {
		if f.trades[i].ID == id {
			f.trades = append(f.trades[:i], f.trades[i+1:]...)
			return nil
		}
	}
	return &APIError{Status: 404, Message: "Trade not found"}
}

func trade(name, date string, result models.TradeResult) *models.Trade {
	status := models.StatusPlanned
	if result != models.ResultNone {
		status = models.StatusClosed
	}
	return &models.Trade{
		StockName:    name,
		Date:         date,
		PatternType:  models.PatternVCP,
		SetupQuality: models.SetupA,
		EntryPrice:   100,
		StopLoss:     90,
		TargetPrice:  130,
		Status:       status,
		Result:       result,
	}
}

func TestTradeStore_LoadOnce(t *testing.T) {
	api := &fakeAPI{trades: []models.Trade{*trade("AAPL", "2024-01-01", models.ResultNone)}}
	s := NewTradeStore(api)
	ctx := context.Background()

	assert.False(t, s.Loaded())
	require.NoError(t, s.Load(ctx))
	require.NoError(t, s.Load(ctx))
	assert.True(t, s.Loaded())
	assert.Equal(t, 1, api.lists)
	assert.Len(t, s.Trades(), 1)

	require.NoError(t, s.Refresh(ctx))
	assert.Equal(t, 2, api.lists)
}

func TestTradeStore_LoadError(t *testing.T) {
	api := &fakeAPI{err: errors.New("offline")}
	s := NewTradeStore(api)

	require.Error(t, s.Load(context.Background()))
	assert.False(t, s.Loaded())
	assert.Empty(t, s.Trades())
}

func TestTradeStore_Mutations(t *testing.T) {
	api := &fakeAPI{}
	s := NewTradeStore(api)
	ctx := context.Background()
	require.NoError(t, s.Load(ctx))

	first, err := s.Add(ctx, trade("AAPL", "2024-01-01", models.ResultNone))
	require.NoError(t, err)
	second, err := s.Add(ctx, trade("MSFT", "2024-01-02", models.ResultNone))
	require.NoError(t, err)

	trades := s.Trades()
	require.Len(t, trades, 2)
	assert.Equal(t, second.ID, trades[0].ID, "new trades are prepended")

	edit := trade("AAPL", "2024-01-01", models.ResultWin)
	updated, err := s.Update(ctx, first.ID, edit)
	require.NoError(t, err)
	assert.Equal(t, models.ResultWin, updated.Result)

	got, ok := s.Get(first.ID)
	require.True(t, ok)
	assert.Equal(t, models.StatusClosed, got.Status)

	require.NoError(t, s.Delete(ctx, second.ID))
	_, ok = s.Get(second.ID)
	assert.False(t, ok)
	assert.Len(t, s.Trades(), 1)
	assert.Equal(t, 1, api.lists, "mutations never refetch")
}

func TestTradeStore_FailedMutationLeavesCache(t *testing.T) {
	api := &fakeAPI{}
	s := NewTradeStore(api)
	ctx := context.Background()

	created, err := s.Add(ctx, trade("AAPL", "2024-01-01", models.ResultNone))
	require.NoError(t, err)

	err = s.Delete(ctx, "missing")
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Len(t, s.Trades(), 1)

	api.err = errors.New("offline")
	_, err = s.Update(ctx, created.ID, trade("AAPL", "2024-01-01", models.ResultLoss))
	require.Error(t, err)
	got, _ := s.Get(created.ID)
	assert.Equal(t, models.ResultNone, got.Result)
}

func TestTradeStore_TradesIsACopy(t *testing.T) {
	s := NewTradeStore(&fakeAPI{})
	_, err := s.Add(context.Background(), trade("AAPL", "2024-01-01", models.ResultNone))
	require.NoError(t, err)

	trades := s.Trades()
	trades[0].StockName = "CHANGED"
	got := s.Trades()
	assert.Equal(t, "AAPL", got[0].StockName)
}

func TestTradeStore_StatsAndFilter(t *testing.T) {
	api := &fakeAPI{}
	s := NewTradeStore(api)
	ctx := context.Background()

	for _, tr := range []*models.Trade{
		trade("AAPL", "2024-01-01", models.ResultWin),
		trade("MSFT", "2024-01-03", models.ResultLoss),
		trade("NVDA", "2024-01-02", models.ResultNone),
	} {
		_, err := s.Add(ctx, tr)
		require.NoError(t, err)
	}

	stats := s.Stats()
	assert.Equal(t, performance.Calculate(s.Trades()), stats)
	assert.Equal(t, 3, stats.Total)
	assert.Equal(t, 50.0, stats.WinRate)
	assert.Equal(t, 3.0, stats.AvgRR)

	wins := s.Filtered(performance.Filter{Result: models.ResultWin}, performance.DefaultSort)
	require.Len(t, wins, 1)
	assert.Equal(t, "AAPL", wins[0].StockName)

	byDate := s.Filtered(performance.Filter{}, performance.Sort{Key: performance.SortByDate})
	require.Len(t, byDate, 3)
	assert.Equal(t, []string{"AAPL", "NVDA", "MSFT"},
		[]string{byDate[0].StockName, byDate[1].StockName, byDate[2].StockName})
}

func TestTradeStore_ConcurrentAccess(t *testing.T) {
	s := NewTradeStore(&fakeAPI{})
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, err := s.Add(ctx, trade("AAPL", "2024-01-01", models.ResultNone))
			assert.NoError(t, err)
		}()
		go func() {
			defer wg.Done()
			_ = s.Stats()
			_ = s.Trades()
		}()
	}
	wg.Wait()
	assert.Len(t, s.Trades(), 20)
}
