// Package security provides input validation, audit logging, and access controls.
package security

import (
	"fmt"
	"math"
	"strings"
	"time"

	jerrors "trade-journal/internal/errors"
	"trade-journal/internal/models"
)

// MaxPasswordLen is the bcrypt input limit; bytes past it are ignored.
const MaxPasswordLen = 72

// InputValidator validates journal input before it reaches the store.
// Free text is never rewritten; it is stored exactly as submitted.
type InputValidator struct {
	strictMode bool
}

// NewInputValidator creates a new input validator. Strict mode also
// requires the enum fields to hold known values.
func NewInputValidator(strictMode bool) *InputValidator {
	return &InputValidator{strictMode: strictMode}
}

// ValidateCredentials checks a username/password pair for registration
// and login.
func (v *InputValidator) ValidateCredentials(username, password string) error {
	if username == "" || password == "" {
		return jerrors.NewValidationError("username", username, "Username and password required")
	}
	if err := ValidateText("username", username); err != nil {
		return err
	}
	if len(password) > MaxPasswordLen {
		return jerrors.NewValidationError("password", MaskCredential(password),
			fmt.Sprintf("password too long (max %d bytes)", MaxPasswordLen))
	}
	return nil
}

// ValidateTrade checks a trade submitted for create or update.
func (v *InputValidator) ValidateTrade(t *models.Trade) error {
	if strings.TrimSpace(t.StockName) == "" {
		return jerrors.NewValidationError("stockName", t.StockName, "stock name is required")
	}
	if err := ValidateText("stockName", t.StockName); err != nil {
		return err
	}

	if t.Date == "" {
		return jerrors.NewValidationError("date", t.Date, "date is required")
	}
	if _, err := time.Parse(models.DateLayout, t.Date); err != nil {
		return jerrors.NewValidationError("date", t.Date, "date must be YYYY-MM-DD")
	}

	if err := validatePrice("entryPrice", t.EntryPrice); err != nil {
		return err
	}
	if err := validatePrice("stopLoss", t.StopLoss); err != nil {
		return err
	}
	if err := validatePrice("targetPrice", t.TargetPrice); err != nil {
		return err
	}
	if math.IsNaN(t.RiskPercent) || math.IsInf(t.RiskPercent, 0) || t.RiskPercent < 0 {
		return jerrors.NewValidationError("riskPercent", t.RiskPercent, "risk percent must be a non-negative number")
	}

	if t.PatternType == "" {
		return jerrors.NewValidationError("patternType", t.PatternType, "pattern type is required")
	}
	if t.SetupQuality == "" {
		return jerrors.NewValidationError("setupQuality", t.SetupQuality, "setup quality is required")
	}
	if t.Status == "" {
		return jerrors.NewValidationError("status", t.Status, "status is required")
	}

	if v.strictMode {
		if !t.PatternType.Valid() {
			return jerrors.NewValidationError("patternType", t.PatternType, "unknown pattern type")
		}
		if !t.SetupQuality.Valid() {
			return jerrors.NewValidationError("setupQuality", t.SetupQuality, "unknown setup quality")
		}
		if t.MarketStage != "" && !t.MarketStage.Valid() {
			return jerrors.NewValidationError("marketStage", t.MarketStage, "unknown market stage")
		}
		if !t.Status.Valid() {
			return jerrors.NewValidationError("status", t.Status, "unknown status")
		}
		if t.Result != "" && !t.Result.Valid() {
			return jerrors.NewValidationError("result", t.Result, "unknown result")
		}
	}

	if err := ValidateText("notes", t.Notes); err != nil {
		return err
	}
	return ValidateText("chartImage", t.ChartImage)
}

// ValidateRule checks a rule submitted for creation.
func (v *InputValidator) ValidateRule(r *models.Rule) error {
	if strings.TrimSpace(r.RuleText) == "" {
		return jerrors.NewValidationError("ruleText", r.RuleText, "rule text is required")
	}
	if err := ValidateText("ruleText", r.RuleText); err != nil {
		return err
	}
	return ValidateText("image", r.Image)
}

// ValidateText rejects text PostgreSQL cannot store in a TEXT column.
func ValidateText(field, text string) error {
	if strings.ContainsRune(text, 0) {
		return jerrors.NewValidationError(field, truncate(text, 50), field+" must not contain NUL characters")
	}
	return nil
}

func validatePrice(field string, price float64) error {
	if math.IsNaN(price) || math.IsInf(price, 0) || price <= 0 {
		return jerrors.NewValidationError(field, price, field+" must be positive")
	}
	return nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
