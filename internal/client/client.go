// Package client talks to the journal HTTP API and keeps a local view of
// the trade history.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"trade-journal/internal/logging"
	"trade-journal/internal/models"
	"trade-journal/internal/performance"
	"trade-journal/internal/resilience"
)

// DefaultBaseURL is used when no base URL is configured.
const DefaultBaseURL = "http://localhost:5001"

// APIError is a non-2xx response from the server.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("api error: %d %s", e.Status, http.StatusText(e.Status))
	}
	return fmt.Sprintf("api error: %d %s", e.Status, e.Message)
}

// Client is a typed client for the journal API.
type Client struct {
	httpClient *http.Client
	baseURL    string
	token      string
	logger     zerolog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL sets the server address, e.g. http://localhost:5001.
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		c.baseURL = strings.TrimRight(baseURL, "/")
	}
}

// WithToken sets the bearer token sent on every request.
func WithToken(token string) Option {
	return func(c *Client) {
		c.token = token
	}
}

// WithTimeout sets the HTTP timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		c.httpClient.Timeout = timeout
	}
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithLogger enables debug logging of requests.
func WithLogger(logger zerolog.Logger) Option {
	return func(c *Client) {
		c.logger = logger.With().Str("component", "client").Logger()
	}
}

// New creates a client.
func New(opts ...Option) *Client {
	c := &Client{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		baseURL:    DefaultBaseURL,
		logger:     zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Token returns the current bearer token.
func (c *Client) Token() string {
	return c.token
}

// SetToken replaces the bearer token.
func (c *Client) SetToken(token string) {
	c.token = token
}

// BaseURL returns the server address.
func (c *Client) BaseURL() string {
	return c.baseURL
}

type envelope struct {
	Success  bool            `json:"success"`
	Data     json.RawMessage `json:"data"`
	Message  string          `json:"message"`
	Error    string          `json:"error"`
	Token    string          `json:"token"`
	Username string          `json:"username"`
}

type credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type rulePayload struct {
	RuleText string `json:"ruleText"`
	Image    string `json:"image,omitempty"`
}

// do sends a request and decodes the response envelope. When out is
// non-nil the envelope's data is decoded into it.
func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) (*envelope, error) {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request body: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		logging.LogAPICall(c.logger, method, path, 0, time.Since(start), err)
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}
	logging.LogAPICall(c.logger, method, path, resp.StatusCode, time.Since(start), nil)

	var env envelope
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &env); err != nil {
			if resp.StatusCode >= 300 {
				return nil, &APIError{Status: resp.StatusCode, Message: strings.TrimSpace(string(raw))}
			}
			return nil, fmt.Errorf("failed to decode response: %w", err)
		}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg := env.Error
		if msg == "" {
			msg = env.Message
		}
		return nil, &APIError{Status: resp.StatusCode, Message: msg}
	}

	if out != nil && len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return nil, fmt.Errorf("failed to decode response data: %w", err)
		}
	}
	return &env, nil
}

// Register creates an account.
func (c *Client) Register(ctx context.Context, username, password string) error {
	_, err := c.do(ctx, http.MethodPost, "/api/register", credentials{username, password}, nil)
	return err
}

// Login exchanges credentials for a token, which the client keeps for
// later calls.
func (c *Client) Login(ctx context.Context, username, password string) (string, error) {
	env, err := c.do(ctx, http.MethodPost, "/api/login", credentials{username, password}, nil)
	if err != nil {
		return "", err
	}
	c.token = env.Token
	return env.Token, nil
}

// Health reports the server's component health.
func (c *Client) Health(ctx context.Context) (*resilience.SystemHealth, error) {
	var health resilience.SystemHealth
	if _, err := c.do(ctx, http.MethodGet, "/api/health", nil, &health); err != nil {
		return nil, err
	}
	return &health, nil
}

// ListTrades returns every trade, newest first.
func (c *Client) ListTrades(ctx context.Context) ([]models.Trade, error) {
	var trades []models.Trade
	if _, err := c.do(ctx, http.MethodGet, "/api/trades", nil, &trades); err != nil {
		return nil, err
	}
	if trades == nil {
		trades = []models.Trade{}
	}
	return trades, nil
}

func (c *Client) GetTrade(ctx context.Context, id string) (*models.Trade, error) {
	var trade models.Trade
	if _, err := c.do(ctx, http.MethodGet, "/api/trades/"+url.PathEscape(id), nil, &trade); err != nil {
		return nil, err
	}
	return &trade, nil
}

// CreateTrade stores a new trade and returns the server's copy.
func (c *Client) CreateTrade(ctx context.Context, trade *models.Trade) (*models.Trade, error) {
	var created models.Trade
	if _, err := c.do(ctx, http.MethodPost, "/api/trades", trade, &created); err != nil {
		return nil, err
	}
	return &created, nil
}

// UpdateTrade replaces the editable fields of trade id.
func (c *Client) UpdateTrade(ctx context.Context, id string, trade *models.Trade) (*models.Trade, error) {
	var updated models.Trade
	if _, err := c.do(ctx, http.MethodPut, "/api/trades/"+url.PathEscape(id), trade, &updated); err != nil {
		return nil, err
	}
	return &updated, nil
}

func (c *Client) DeleteTrade(ctx context.Context, id string) error {
	_, err := c.do(ctx, http.MethodDelete, "/api/trades/"+url.PathEscape(id), nil, nil)
	return err
}

func (c *Client) ListRules(ctx context.Context) ([]models.Rule, error) {
	var rules []models.Rule
	if _, err := c.do(ctx, http.MethodGet, "/api/rules", nil, &rules); err != nil {
		return nil, err
	}
	if rules == nil {
		rules = []models.Rule{}
	}
	return rules, nil
}

// AddRule stores a rule, with an optional image data URL.
func (c *Client) AddRule(ctx context.Context, text, image string) (*models.Rule, error) {
	var rule models.Rule
	if _, err := c.do(ctx, http.MethodPost, "/api/rules", rulePayload{RuleText: text, Image: image}, &rule); err != nil {
		return nil, err
	}
	return &rule, nil
}

func (c *Client) DeleteRule(ctx context.Context, id string) error {
	_, err := c.do(ctx, http.MethodDelete, "/api/rules/"+url.PathEscape(id), nil, nil)
	return err
}

// Stats returns the server-side statistics.
func (c *Client) Stats(ctx context.Context) (performance.Stats, error) {
	var stats performance.Stats
	_, err := c.do(ctx, http.MethodGet, "/api/stats", nil, &stats)
	return stats, err
}
