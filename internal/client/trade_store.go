package client

import (
	"context"
	"sync"

	"trade-journal/internal/models"
	"trade-journal/internal/performance"
)

// TradeAPI is the part of the API the trade cache needs.
type TradeAPI interface {
	ListTrades(ctx context.Context) ([]models.Trade, error)
	CreateTrade(ctx context.Context, trade *models.Trade) (*models.Trade, error)
	UpdateTrade(ctx context.Context, id string, trade *models.Trade) (*models.Trade, error)
	DeleteTrade(ctx context.Context, id string) error
}

// TradeStore caches the trade history. Mutations go to the server first
// and the cache is reconciled from the response rather than refetched.
// Concurrent mutations apply in the order their responses arrive.
type TradeStore struct {
	api TradeAPI

	mu     sync.RWMutex
	trades []models.Trade
	loaded bool
}

// NewTradeStore creates an empty cache backed by api.
func NewTradeStore(api TradeAPI) *TradeStore {
	return &TradeStore{api: api}
}

// Load fetches the trade history unless it is already cached.
func (s *TradeStore) Load(ctx context.Context) error {
	s.mu.RLock()
	loaded := s.loaded
	s.mu.RUnlock()
	if loaded {
		return nil
	}
	return s.Refresh(ctx)
}

// Refresh replaces the cache with the server's current history.
func (s *TradeStore) Refresh(ctx context.Context) error {
	trades, err := s.api.ListTrades(ctx)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.trades = trades
	s.loaded = true
	s.mu.Unlock()
	return nil
}

// Loaded reports whether the history has been fetched.
func (s *TradeStore) Loaded() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loaded
}

// Add creates a trade and puts the server's copy at the front of the cache.
func (s *TradeStore) Add(ctx context.Context, trade *models.Trade) (*models.Trade, error) {
	created, err := s.api.CreateTrade(ctx, trade)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.trades = append([]models.Trade{*created}, s.trades...)
	s.mu.Unlock()
	return created, nil
}

// Update edits a trade and replaces the cached entry with the same id.
func (s *TradeStore) Update(ctx context.Context, id string, trade *models.Trade) (*models.Trade, error) {
	updated, err := s.api.UpdateTrade(ctx, id, trade)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	for i := range s.trades {
		if s.trades[i].ID == id {
			s.trades[i] = *updated
		}
	}
	s.mu.Unlock()
	return updated, nil
}

// Delete removes a trade on the server and from the cache.
func (s *TradeStore) Delete(ctx context.Context, id string) error {
	if err := s.api.DeleteTrade(ctx, id); err != nil {
		return err
	}

	s.mu.Lock()
	kept := s.trades[:0]
	for _, t := range s.trades {
		if t.ID != id {
			kept = append(kept, t)
		}
	}
	s.trades = kept
	s.mu.Unlock()
	return nil
}

// Get looks a trade up in the cache.
func (s *TradeStore) Get(id string) (models.Trade, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, t := range s.trades {
		if t.ID == id {
			return t, true
		}
	}
	return models.Trade{}, false
}

// Trades returns a copy of the cached history.
func (s *TradeStore) Trades() []models.Trade {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Trade, len(s.trades))
	copy(out, s.trades)
	return out
}

// Stats computes statistics over the cache.
func (s *TradeStore) Stats() performance.Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return performance.Calculate(s.trades)
}

// Filtered returns the cached trades matching f, ordered by order.
func (s *TradeStore) Filtered(f performance.Filter, order performance.Sort) []models.Trade {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return performance.Apply(s.trades, f, order)
}
