package security

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"gopkg.in/natefinch/lumberjack.v2"

	"trade-journal/internal/logging"
)

// AuditEventType represents the type of audit event.
type AuditEventType string

const (
	// Authentication events
	AuditRegister   AuditEventType = "REGISTER"
	AuditLogin      AuditEventType = "LOGIN"
	AuditAuthFailed AuditEventType = "AUTH_FAILED"

	// Journal events
	AuditTradeCreated AuditEventType = "TRADE_CREATED"
	AuditTradeUpdated AuditEventType = "TRADE_UPDATED"
	AuditTradeDeleted AuditEventType = "TRADE_DELETED"
	AuditRuleAdded    AuditEventType = "RULE_ADDED"
	AuditRuleDeleted  AuditEventType = "RULE_DELETED"

	// Security events
	AuditReadOnlyViolation AuditEventType = "READ_ONLY_VIOLATION"
	AuditInputValidation   AuditEventType = "INPUT_VALIDATION"
)

// AuditEvent represents a single audit log entry.
type AuditEvent struct {
	Timestamp time.Time              `json:"timestamp"`
	EventType AuditEventType         `json:"event_type"`
	Username  string                 `json:"username,omitempty"`
	EntityID  string                 `json:"entity_id,omitempty"`
	Action    string                 `json:"action,omitempty"`
	Details   map[string]interface{} `json:"details,omitempty"`
	Success   bool                   `json:"success"`
	ErrorMsg  string                 `json:"error,omitempty"`
	IPAddress string                 `json:"ip_address,omitempty"`
	SessionID string                 `json:"session_id,omitempty"`
	RequestID string                 `json:"request_id,omitempty"`
}

// AuditLogger appends audit events as JSON lines. A nil *AuditLogger
// discards everything, so callers need not check whether auditing is on.
type AuditLogger struct {
	writer    io.WriteCloser
	mu        sync.Mutex
	sessionID string
	now       func() time.Time
}

// AuditConfig holds audit logger configuration.
type AuditConfig struct {
	LogDir     string
	MaxSize    int // megabytes
	MaxBackups int
	MaxAge     int // days
	Compress   bool
}

// DefaultAuditConfig returns the default audit configuration.
func DefaultAuditConfig() AuditConfig {
	home, _ := os.UserHomeDir()
	return AuditConfig{
		LogDir:     filepath.Join(home, ".config", "trade-journal", "audit"),
		MaxSize:    50,
		MaxBackups: 30,
		MaxAge:     365,
		Compress:   true,
	}
}

// NewAuditLogger creates a new audit logger writing to LogDir/audit.log.
func NewAuditLogger(cfg AuditConfig) (*AuditLogger, error) {
	// Ensure audit directory exists with restricted permissions
	if err := os.MkdirAll(cfg.LogDir, 0700); err != nil {
		return nil, fmt.Errorf("creating audit directory: %w", err)
	}

	writer := &lumberjack.Logger{
		Filename:   filepath.Join(cfg.LogDir, "audit.log"),
		MaxSize:    cfg.MaxSize,
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAge,
		Compress:   cfg.Compress,
	}

	return newAuditLogger(writer), nil
}

func newAuditLogger(w io.WriteCloser) *AuditLogger {
	return &AuditLogger{
		writer:    w,
		sessionID: generateSessionID(),
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Log writes an audit event.
func (al *AuditLogger) Log(ctx context.Context, event AuditEvent) error {
	if al == nil {
		return nil
	}
	al.mu.Lock()
	defer al.mu.Unlock()

	event.Timestamp = al.now()
	event.SessionID = al.sessionID
	if event.RequestID == "" {
		event.RequestID = logging.RequestIDFromContext(ctx)
	}
	event.ErrorMsg = MaskSensitive(event.ErrorMsg)

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("serializing audit event: %w", err)
	}

	if _, err := al.writer.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("writing audit event: %w", err)
	}

	return nil
}

// LogRegister logs an account registration attempt.
func (al *AuditLogger) LogRegister(ctx context.Context, username string, success bool, errorMsg string) error {
	return al.Log(ctx, AuditEvent{
		EventType: AuditRegister,
		Username:  username,
		Success:   success,
		ErrorMsg:  errorMsg,
	})
}

// LogLogin logs a login attempt.
func (al *AuditLogger) LogLogin(ctx context.Context, username, ip string, success bool, errorMsg string) error {
	return al.Log(ctx, AuditEvent{
		EventType: AuditLogin,
		Username:  username,
		IPAddress: ip,
		Success:   success,
		ErrorMsg:  errorMsg,
	})
}

// LogAuthFailed logs a rejected bearer token.
func (al *AuditLogger) LogAuthFailed(ctx context.Context, ip, path, reason string) error {
	return al.Log(ctx, AuditEvent{
		EventType: AuditAuthFailed,
		IPAddress: ip,
		Action:    path,
		Success:   false,
		ErrorMsg:  reason,
	})
}

// LogMutation logs a trade or rule change.
func (al *AuditLogger) LogMutation(ctx context.Context, event AuditEventType, username, entityID string, details map[string]interface{}) error {
	return al.Log(ctx, AuditEvent{
		EventType: event,
		Username:  username,
		EntityID:  entityID,
		Success:   true,
		Details:   details,
	})
}

// LogReadOnlyViolation logs an attempt to perform a write operation in read-only mode.
func (al *AuditLogger) LogReadOnlyViolation(ctx context.Context, username string, op OperationType) error {
	return al.Log(ctx, AuditEvent{
		EventType: AuditReadOnlyViolation,
		Username:  username,
		Action:    string(op),
		Success:   false,
		ErrorMsg:  OperationDescription(op) + " blocked: read-only mode enabled",
	})
}

// LogInputValidation logs an input validation failure.
func (al *AuditLogger) LogInputValidation(ctx context.Context, username, field, reason string) error {
	return al.Log(ctx, AuditEvent{
		EventType: AuditInputValidation,
		Username:  username,
		Success:   false,
		ErrorMsg:  reason,
		Details:   map[string]interface{}{"field": field},
	})
}

// Close closes the audit logger.
func (al *AuditLogger) Close() error {
	if al == nil {
		return nil
	}
	return al.writer.Close()
}

// generateSessionID generates a unique session ID.
func generateSessionID() string {
	b := make([]byte, 16)
	rand.Read(b)
	return fmt.Sprintf("%x", b)
}
