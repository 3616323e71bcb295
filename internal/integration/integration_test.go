// Package integration runs the journal end to end: API server, SQLite
// store, HTTP client and client-side trade cache.
package integration

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"trade-journal/internal/api"
	"trade-journal/internal/auth"
	"trade-journal/internal/client"
	"trade-journal/internal/models"
	"trade-journal/internal/resilience"
	"trade-journal/internal/security"
	"trade-journal/internal/store"
)

type harness struct {
	url    string
	store  *store.SQLiteStore
	access *security.AccessController
	stop   func()
}

// startServer runs a real server on a loopback port.
func startServer(t *testing.T) *harness {
	t.Helper()

	st, err := store.NewSQLiteStore(filepath.Join(t.TempDir(), "journal.db"), zerolog.Nop())
	if err != nil {
		t.Fatalf("Failed to open store: %v", err)
	}

	validator := security.NewInputValidator(true)
	access := security.NewAccessController(false, nil)
	srv := api.NewServer(api.Options{
		Store:     st,
		Auth:      auth.NewService(st, validator, auth.Config{Secret: "integration", TokenTTL: time.Hour, BcryptCost: bcrypt.MinCost}, zerolog.Nop()),
		Validator: validator,
		Access:    access,
		Logger:    zerolog.Nop(),
		BodyLimit: 50 << 20,
	})

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Failed to listen: %v", err)
	}

	done := make(chan error, 1)
	go func() { done <- srv.Serve(ln) }()

	var once sync.Once
	stop := func() {
		once.Do(func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := srv.Shutdown(ctx); err != nil {
				t.Errorf("Shutdown failed: %v", err)
			}
			if err := <-done; err != nil {
				t.Errorf("Serve returned error: %v", err)
			}
			st.Close()
		})
	}
	t.Cleanup(stop)

	return &harness{url: "http://" + ln.Addr().String(), store: st, access: access, stop: stop}
}

func loggedInClient(t *testing.T, h *harness, username string) *client.Client {
	t.Helper()
	ctx := context.Background()
	c := client.New(client.WithBaseURL(h.url), client.WithTimeout(10*time.Second))
	if err := c.Register(ctx, username, "pw"); err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	if _, err := c.Login(ctx, username, "pw"); err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	return c
}

func plan(stock, date string, entry, stop, target float64) *models.Trade {
	return &models.Trade{
		StockName:    stock,
		Date:         date,
		PatternType:  models.PatternVCP,
		SetupQuality: models.SetupA,
		MarketStage:  models.StageUptrend,
		EntryPrice:   entry,
		StopLoss:     stop,
		TargetPrice:  target,
		Status:       models.StatusPlanned,
	}
}

// TestJournalWorkflow plans, executes and closes trades through the
// client cache and checks the cache agrees with the server throughout.
func TestJournalWorkflow(t *testing.T) {
	h := startServer(t)
	c := loggedInClient(t, h, "trader")
	ctx := context.Background()

	ts := client.NewTradeStore(c)
	if err := ts.Load(ctx); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if n := len(ts.Trades()); n != 0 {
		t.Fatalf("Expected empty journal, got %d trades", n)
	}

	trades := []*models.Trade{
		plan("AAPL", "2024-01-10", 100, 95, 115),
		plan("MSFT", "2024-01-12", 200, 190, 220),
		plan("NVDA", "2024-01-15", 50, 48, 56),
		plan("AMZN", "2024-01-20", 150, 145, 150),
	}
	ids := make([]string, len(trades))
	for i, tr := range trades {
		created, err := ts.Add(ctx, tr)
		if err != nil {
			t.Fatalf("Add %s failed: %v", tr.StockName, err)
		}
		if created.ID == "" || created.Result != models.ResultNone {
			t.Errorf("Unexpected created trade: %+v", created)
		}
		ids[i] = created.ID
	}

	// Close two trades, execute one.
	for i, result := range map[int]models.TradeResult{0: models.ResultWin, 1: models.ResultLoss} {
		tr, _ := ts.Get(ids[i])
		tr.Status = models.StatusClosed
		tr.Result = result
		if _, err := ts.Update(ctx, ids[i], &tr); err != nil {
			t.Fatalf("Update failed: %v", err)
		}
	}
	executed, _ := ts.Get(ids[2])
	executed.Status = models.StatusExecuted
	if _, err := ts.Update(ctx, ids[2], &executed); err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	serverStats, err := c.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats failed: %v", err)
	}
	if cacheStats := ts.Stats(); cacheStats != serverStats {
		t.Errorf("Cache stats %+v differ from server stats %+v", cacheStats, serverStats)
	}
	if serverStats.Total != 4 || serverStats.Wins != 1 || serverStats.Losses != 1 || serverStats.WinRate != 50 {
		t.Errorf("Unexpected stats: %+v", serverStats)
	}

	// A fresh cache sees exactly what the incremental one built up.
	fresh := client.NewTradeStore(c)
	if err := fresh.Load(ctx); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if got, want := len(fresh.Trades()), len(ts.Trades()); got != want {
		t.Fatalf("Fresh cache has %d trades, want %d", got, want)
	}
	if fresh.Stats() != ts.Stats() {
		t.Errorf("Fresh cache stats %+v differ from %+v", fresh.Stats(), ts.Stats())
	}

	if err := ts.Delete(ctx, ids[3]); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	err = ts.Delete(ctx, ids[3])
	var apiErr *client.APIError
	if !errors.As(err, &apiErr) || apiErr.Status != http.StatusNotFound {
		t.Errorf("Expected 404 deleting twice, got %v", err)
	}
	n, err := h.store.CountTrades(ctx)
	if err != nil || n != 3 {
		t.Errorf("Expected 3 stored trades, got %d (%v)", n, err)
	}
}

// TestConcurrentClients writes from several clients at once.
func TestConcurrentClients(t *testing.T) {
	h := startServer(t)
	ctx := context.Background()

	const writers = 5
	const perWriter = 8

	var wg sync.WaitGroup
	errs := make(chan error, writers*perWriter)
	for w := 0; w < writers; w++ {
		c := loggedInClient(t, h, fmt.Sprintf("trader%d", w))
		wg.Add(1)
		go func(w int, c *client.Client) {
			defer wg.Done()
			for i := 0; i < perWriter; i++ {
				day := fmt.Sprintf("2024-02-%02d", i+1)
				if _, err := c.CreateTrade(ctx, plan(fmt.Sprintf("S%d%d", w, i), day, 100, 90, 130)); err != nil {
					errs <- err
				}
			}
		}(w, c)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Errorf("CreateTrade failed: %v", err)
	}

	n, err := h.store.CountTrades(ctx)
	if err != nil {
		t.Fatalf("CountTrades failed: %v", err)
	}
	if n != writers*perWriter {
		t.Errorf("Expected %d trades, got %d", writers*perWriter, n)
	}

	seen := make(map[string]bool)
	trades, err := h.store.ListTrades(ctx)
	if err != nil {
		t.Fatalf("ListTrades failed: %v", err)
	}
	for _, tr := range trades {
		if seen[tr.ID] {
			t.Errorf("Duplicate trade id %s", tr.ID)
		}
		seen[tr.ID] = true
	}
}

// TestReadOnlyAndRules covers the rules endpoints and the read-only switch.
func TestReadOnlyAndRules(t *testing.T) {
	h := startServer(t)
	c := loggedInClient(t, h, "trader")
	ctx := context.Background()

	rule, err := c.AddRule(ctx, "Only A+ setups in a Stage 2 market", "")
	if err != nil {
		t.Fatalf("AddRule failed: %v", err)
	}

	h.access.SetReadOnly(true)
	_, err = c.CreateTrade(ctx, plan("AAPL", "2024-03-01", 100, 95, 115))
	var apiErr *client.APIError
	if !errors.As(err, &apiErr) || apiErr.Status != http.StatusForbidden {
		t.Errorf("Expected 403 in read-only mode, got %v", err)
	}
	if err := c.DeleteRule(ctx, rule.ID); err == nil {
		t.Error("Expected DeleteRule to fail in read-only mode")
	}

	rules, err := c.ListRules(ctx)
	if err != nil {
		t.Fatalf("ListRules failed: %v", err)
	}
	if len(rules) != 1 || rules[0].ID != rule.ID {
		t.Errorf("Unexpected rules: %+v", rules)
	}

	h.access.SetReadOnly(false)
	if err := c.DeleteRule(ctx, rule.ID); err != nil {
		t.Errorf("DeleteRule failed: %v", err)
	}
}

// TestHealthAndAuth checks the public and protected surfaces.
func TestHealthAndAuth(t *testing.T) {
	h := startServer(t)
	ctx := context.Background()
	anon := client.New(client.WithBaseURL(h.url))

	health, err := anon.Health(ctx)
	if err != nil {
		t.Fatalf("Health failed: %v", err)
	}
	if health.Status == resilience.HealthStatusUnhealthy {
		t.Errorf("Expected a serving status, got %s", health.Status)
	}
	var sawDB bool
	for _, comp := range health.Components {
		if comp.Name == "database" {
			sawDB = comp.Status == resilience.HealthStatusHealthy
		}
	}
	if !sawDB {
		t.Errorf("Expected a healthy database component, got %+v", health.Components)
	}

	_, err = anon.ListTrades(ctx)
	var apiErr *client.APIError
	if !errors.As(err, &apiErr) || apiErr.Status != http.StatusUnauthorized {
		t.Errorf("Expected 401 without token, got %v", err)
	}

	bad := client.New(client.WithBaseURL(h.url), client.WithToken("not-a-token"))
	_, err = bad.ListTrades(ctx)
	if !errors.As(err, &apiErr) || apiErr.Status != http.StatusForbidden {
		t.Errorf("Expected 403 with a bad token, got %v", err)
	}
}

// TestGracefulShutdown stops the server while a client is connected.
func TestGracefulShutdown(t *testing.T) {
	h := startServer(t)
	c := loggedInClient(t, h, "trader")
	ctx := context.Background()

	if _, err := c.CreateTrade(ctx, plan("AAPL", "2024-03-01", 100, 95, 115)); err != nil {
		t.Fatalf("CreateTrade failed: %v", err)
	}

	h.stop()

	if _, err := c.ListTrades(ctx); err == nil {
		t.Error("Expected requests to fail after shutdown")
	}
}
