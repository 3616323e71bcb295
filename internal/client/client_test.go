package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trade-journal/internal/models"
)

func newTestServer(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return New(WithBaseURL(srv.URL+"/"), WithTimeout(5*time.Second))
}

func writeEnvelope(w http.ResponseWriter, status int, body map[string]interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func TestNew_Defaults(t *testing.T) {
	c := New()
	assert.Equal(t, DefaultBaseURL, c.BaseURL())
	assert.Empty(t, c.Token())

	c = New(WithBaseURL("http://example.com/"), WithToken("abc"))
	assert.Equal(t, "http://example.com", c.BaseURL())
	assert.Equal(t, "abc", c.Token())
}

func TestLogin_StoresToken(t *testing.T) {
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/login", r.URL.Path)
		var creds credentials
		require.NoError(t, json.NewDecoder(r.Body).Decode(&creds))
		assert.Equal(t, "trader", creds.Username)
		writeEnvelope(w, http.StatusOK, map[string]interface{}{"success": true, "token": "tok", "username": "trader"})
	})

	token, err := c.Login(context.Background(), "trader", "pw")
	require.NoError(t, err)
	assert.Equal(t, "tok", token)
	assert.Equal(t, "tok", c.Token())
}

func TestAPIError(t *testing.T) {
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		writeEnvelope(w, http.StatusNotFound, map[string]interface{}{"success": false, "error": "Trade not found"})
	})

	_, err := c.GetTrade(context.Background(), "missing")
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusNotFound, apiErr.Status)
	assert.Equal(t, "Trade not found", apiErr.Message)
	assert.Equal(t, "api error: 404 Trade not found", apiErr.Error())
}

func TestAPIError_NonJSONBody(t *testing.T) {
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad gateway", http.StatusBadGateway)
	})

	err := c.DeleteTrade(context.Background(), "x")
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusBadGateway, apiErr.Status)
	assert.Equal(t, "bad gateway", apiErr.Message)
}

func TestSendsBearerToken(t *testing.T) {
	var got string
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Get("Authorization")
		writeEnvelope(w, http.StatusOK, map[string]interface{}{"success": true, "data": []interface{}{}})
	})
	c.SetToken("secret")

	trades, err := c.ListTrades(context.Background())
	require.NoError(t, err)
	assert.Empty(t, trades)
	assert.NotNil(t, trades)
	assert.Equal(t, "Bearer secret", got)
}

func TestCreateTrade_DecodesData(t *testing.T) {
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		var in models.Trade
		require.NoError(t, json.NewDecoder(r.Body).Decode(&in))
		in.ID = "01TEST"
		writeEnvelope(w, http.StatusCreated, map[string]interface{}{"success": true, "data": in})
	})

	created, err := c.CreateTrade(context.Background(), &models.Trade{StockName: "AAPL", EntryPrice: 10})
	require.NoError(t, err)
	assert.Equal(t, "01TEST", created.ID)
	assert.Equal(t, "AAPL", created.StockName)
}

func TestAddRule_SendsRuleText(t *testing.T) {
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "Never average down", body["ruleText"])
		writeEnvelope(w, http.StatusCreated, map[string]interface{}{
			"success": true,
			"data":    map[string]string{"id": "r1", "ruleText": body["ruleText"]},
		})
	})

	rule, err := c.AddRule(context.Background(), "Never average down", "")
	require.NoError(t, err)
	assert.Equal(t, "r1", rule.ID)
}

func TestStats(t *testing.T) {
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		writeEnvelope(w, http.StatusOK, map[string]interface{}{
			"success": true,
			"data":    map[string]interface{}{"total": 3, "wins": 1, "losses": 1, "winRate": 50, "avgRR": 2.5},
		})
	})

	stats, err := c.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, stats.Total)
	assert.Equal(t, 50.0, stats.WinRate)
	assert.Equal(t, 2.5, stats.AvgRR)
}

func TestTransportError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c := New(WithBaseURL(url), WithTimeout(time.Second))
	err := c.Register(context.Background(), "a", "b")
	require.Error(t, err)
	var apiErr *APIError
	assert.False(t, errors.As(err, &apiErr))
}

func TestIDsArePathEscaped(t *testing.T) {
	var (
		mu    sync.Mutex
		paths []string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Empty(t, r.URL.RawQuery)
		mu.Lock()
		paths = append(paths, r.Method+" "+r.URL.EscapedPath())
		mu.Unlock()
		writeEnvelope(w, http.StatusOK, map[string]interface{}{"success": true, "data": map[string]string{"id": "x"}})
	}))
	t.Cleanup(srv.Close)

	var logs bytes.Buffer
	c := New(WithBaseURL(srv.URL), WithLogger(zerolog.New(&logs).Level(zerolog.DebugLevel)))
	ctx := context.Background()
	id := "a/b?c#d"

	_, err := c.GetTrade(ctx, id)
	require.NoError(t, err)
	_, err = c.UpdateTrade(ctx, id, &models.Trade{StockName: "AAPL"})
	require.NoError(t, err)
	require.NoError(t, c.DeleteTrade(ctx, id))
	require.NoError(t, c.DeleteRule(ctx, id))

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{
		"GET /api/trades/a%2Fb%3Fc%23d",
		"PUT /api/trades/a%2Fb%3Fc%23d",
		"DELETE /api/trades/a%2Fb%3Fc%23d",
		"DELETE /api/rules/a%2Fb%3Fc%23d",
	}, paths)
	assert.Contains(t, logs.String(), `"event":"api_call"`)
	assert.Contains(t, logs.String(), `"endpoint":"/api/rules/a%2Fb%3Fc%23d"`)
}
