package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"trade-journal/internal/models"
	"trade-journal/internal/performance"
)

var errBadRequest = errors.New("bad request")

// decodeJSON reads a JSON body into dst. Malformed bodies map to 400 and
// bodies over the size limit to 413.
func decodeJSON(r *http.Request, dst interface{}) error {
	if r.Body == nil {
		return fmt.Errorf("%w: request body is empty", errBadRequest)
	}
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return err
		}
		if errors.Is(err, io.EOF) {
			return fmt.Errorf("%w: request body is empty", errBadRequest)
		}
		return fmt.Errorf("%w: invalid JSON: %v", errBadRequest, err)
	}
	return nil
}

// number accepts a JSON number or a numeric string; form inputs post
// prices as strings.
type number float64

func (n *number) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*n = 0
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		s = strings.TrimSpace(s)
		if s == "" {
			*n = 0
			return nil
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return fmt.Errorf("invalid number %q", s)
		}
		*n = number(f)
		return nil
	}
	var f float64
	if err := json.Unmarshal(b, &f); err != nil {
		return err
	}
	*n = number(f)
	return nil
}

type credentialsRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type tradeRequest struct {
	StockName    string `json:"stockName"`
	Date         string `json:"date"`
	PatternType  string `json:"patternType"`
	SetupQuality string `json:"setupQuality"`
	MarketStage  string `json:"marketStage"`
	EntryPrice   number `json:"entryPrice"`
	StopLoss     number `json:"stopLoss"`
	TargetPrice  number `json:"targetPrice"`
	RiskPercent  number `json:"riskPercent"`
	Status       string `json:"status"`
	Result       string `json:"result"`
	Notes        string `json:"notes"`
	ChartImage   string `json:"chartImage"`
}

// trade converts the request into a model, deriving the risk percent
// when the client left it at zero. Text fields are kept as submitted.
func (req *tradeRequest) trade() *models.Trade {
	t := &models.Trade{
		StockName:    req.StockName,
		Date:         req.Date,
		PatternType:  models.PatternType(req.PatternType),
		SetupQuality: models.SetupQuality(req.SetupQuality),
		MarketStage:  models.MarketStage(req.MarketStage),
		EntryPrice:   float64(req.EntryPrice),
		StopLoss:     float64(req.StopLoss),
		TargetPrice:  float64(req.TargetPrice),
		RiskPercent:  float64(req.RiskPercent),
		Status:       models.TradeStatus(req.Status),
		Result:       models.TradeResult(req.Result),
		Notes:        req.Notes,
		ChartImage:   req.ChartImage,
	}
	if t.RiskPercent == 0 && t.EntryPrice > 0 {
		t.RiskPercent = performance.RiskPercent(t.EntryPrice, t.StopLoss)
	}
	t.ApplyDefaults()
	return t
}

type ruleRequest struct {
	RuleText string `json:"ruleText"`
	Rule     string `json:"rule"`
	Image    string `json:"image"`
}

func (req *ruleRequest) rule() *models.Rule {
	text := req.RuleText
	if strings.TrimSpace(text) == "" {
		text = req.Rule
	}
	return &models.Rule{
		RuleText: text,
		Image:    req.Image,
	}
}
