package security

import (
	"context"
	"sync"

	jerrors "trade-journal/internal/errors"
)

// OperationType names a journal operation for permission checks.
type OperationType string

// Write operations, blocked in read-only mode.
const (
	OpCreateTrade OperationType = "CREATE_TRADE"
	OpUpdateTrade OperationType = "UPDATE_TRADE"
	OpDeleteTrade OperationType = "DELETE_TRADE"
	OpAddRule     OperationType = "ADD_RULE"
	OpDeleteRule  OperationType = "DELETE_RULE"
)

// AccessController manages read-only mode.
type AccessController struct {
	readOnly    bool
	auditLogger *AuditLogger
	mu          sync.RWMutex
}

// NewAccessController creates a new access controller. auditLogger may be nil.
func NewAccessController(readOnly bool, auditLogger *AuditLogger) *AccessController {
	return &AccessController{
		readOnly:    readOnly,
		auditLogger: auditLogger,
	}
}

// IsReadOnly returns whether read-only mode is enabled.
func (ac *AccessController) IsReadOnly() bool {
	ac.mu.RLock()
	defer ac.mu.RUnlock()
	return ac.readOnly
}

// SetReadOnly sets the read-only mode.
func (ac *AccessController) SetReadOnly(readOnly bool) {
	ac.mu.Lock()
	defer ac.mu.Unlock()
	ac.readOnly = readOnly
}

// CheckPermission returns errors.ErrReadOnlyMode for write operations while
// read-only mode is on, recording the attempt in the audit log.
func (ac *AccessController) CheckPermission(ctx context.Context, op OperationType, user string) error {
	if !ac.IsReadOnly() || !IsWriteOperation(op) {
		return nil
	}
	ac.auditLogger.LogReadOnlyViolation(ctx, user, op)
	return jerrors.ErrReadOnlyMode
}

// IsWriteOperation returns true if the operation modifies state.
func IsWriteOperation(op OperationType) bool {
	switch op {
	case OpCreateTrade, OpUpdateTrade, OpDeleteTrade, OpAddRule, OpDeleteRule:
		return true
	default:
		return false
	}
}

// OperationDescription returns a human-readable description of an operation.
func OperationDescription(op OperationType) string {
	switch op {
	case OpCreateTrade:
		return "Create trade"
	case OpUpdateTrade:
		return "Update trade"
	case OpDeleteTrade:
		return "Delete trade"
	case OpAddRule:
		return "Add rule"
	case OpDeleteRule:
		return "Delete rule"
	default:
		return string(op)
	}
}
