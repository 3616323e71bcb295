package api

import (
	"errors"
	"net/http"

	"github.com/rs/zerolog/hlog"

	jerrors "trade-journal/internal/errors"
	"trade-journal/internal/logging"
	"trade-journal/internal/performance"
	"trade-journal/internal/security"
)

// ============================================================================
// Auth
// ============================================================================

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	if _, err := s.auth.Register(r.Context(), req.Username, req.Password); err != nil {
		s.audit.LogRegister(r.Context(), req.Username, false, err.Error())
		writeError(w, r, err)
		return
	}

	s.audit.LogRegister(r.Context(), req.Username, true, "")
	writeMessage(w, http.StatusCreated, "User registered successfully")
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	token, user, err := s.auth.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		s.audit.LogLogin(r.Context(), req.Username, clientIP(r), false, err.Error())
		writeError(w, r, err)
		return
	}

	s.audit.LogLogin(r.Context(), user.Username, clientIP(r), true, "")
	hlog.FromRequest(r).Info().Str("user", user.Username).Msg("User logged in")
	writeJSON(w, http.StatusOK, envelope{Success: true, Token: token, Username: user.Username})
}

// ============================================================================
// Health
// ============================================================================

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, envelope{
		Success: true,
		Message: "Server is running",
		Data:    s.health.GetHealth(r.Context()),
	})
}

// ============================================================================
// Trades
// ============================================================================

func (s *Server) handleListTrades(w http.ResponseWriter, r *http.Request) {
	trades, err := s.store.ListTrades(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, trades)
}

func (s *Server) handleGetTrade(w http.ResponseWriter, r *http.Request) {
	trade, err := s.store.GetTrade(r.Context(), r.PathValue("id"))
	if err != nil {
		if errors.Is(err, jerrors.ErrNotFound) {
			writeErrorMessage(w, http.StatusNotFound, "Trade not found")
			return
		}
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, trade)
}

func (s *Server) handleCreateTrade(w http.ResponseWriter, r *http.Request) {
	var req tradeRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	ctx := r.Context()
	user := logging.UserFromContext(ctx)
	trade := req.trade()
	if err := s.validator.ValidateTrade(trade); err != nil {
		s.logValidation(r, err)
		writeError(w, r, err)
		return
	}

	if err := s.store.CreateTrade(ctx, trade); err != nil {
		writeError(w, r, err)
		return
	}

	created, err := s.store.GetTrade(ctx, trade.ID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	s.audit.LogMutation(ctx, security.AuditTradeCreated, user, created.ID,
		map[string]interface{}{"stock": created.StockName})
	logging.LogTradeEvent(*hlog.FromRequest(r), "created", created.ID, created.StockName)
	writeData(w, http.StatusCreated, created)
}

func (s *Server) handleUpdateTrade(w http.ResponseWriter, r *http.Request) {
	var req tradeRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	ctx := r.Context()
	id := r.PathValue("id")
	trade := req.trade()
	if err := s.validator.ValidateTrade(trade); err != nil {
		s.logValidation(r, err)
		writeError(w, r, err)
		return
	}

	ok, err := s.store.UpdateTrade(ctx, id, trade)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if !ok {
		writeErrorMessage(w, http.StatusNotFound, "Trade not found")
		return
	}

	updated, err := s.store.GetTrade(ctx, id)
	if err != nil {
		writeError(w, r, err)
		return
	}

	s.audit.LogMutation(ctx, security.AuditTradeUpdated, logging.UserFromContext(ctx), id,
		map[string]interface{}{"status": string(updated.Status), "result": string(updated.Result)})
	logging.LogTradeEvent(*hlog.FromRequest(r), "updated", id, updated.StockName)
	writeData(w, http.StatusOK, updated)
}

func (s *Server) handleDeleteTrade(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := r.PathValue("id")

	ok, err := s.store.DeleteTrade(ctx, id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if !ok {
		writeErrorMessage(w, http.StatusNotFound, "Trade not found")
		return
	}

	s.audit.LogMutation(ctx, security.AuditTradeDeleted, logging.UserFromContext(ctx), id, nil)
	logging.LogTradeEvent(*hlog.FromRequest(r), "deleted", id, "")
	writeMessage(w, http.StatusOK, "Trade deleted successfully")
}

// ============================================================================
// Rules
// ============================================================================

func (s *Server) handleListRules(w http.ResponseWriter, r *http.Request) {
	rules, err := s.store.ListRules(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, rules)
}

func (s *Server) handleAddRule(w http.ResponseWriter, r *http.Request) {
	var req ruleRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	ctx := r.Context()
	rule := req.rule()
	if err := s.validator.ValidateRule(rule); err != nil {
		s.logValidation(r, err)
		writeError(w, r, err)
		return
	}

	if err := s.store.AddRule(ctx, rule); err != nil {
		writeError(w, r, err)
		return
	}

	s.audit.LogMutation(ctx, security.AuditRuleAdded, logging.UserFromContext(ctx), rule.ID, nil)
	writeData(w, http.StatusCreated, rule)
}

func (s *Server) handleDeleteRule(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := r.PathValue("id")

	ok, err := s.store.DeleteRule(ctx, id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if !ok {
		writeErrorMessage(w, http.StatusNotFound, "Rule not found")
		return
	}

	s.audit.LogMutation(ctx, security.AuditRuleDeleted, logging.UserFromContext(ctx), id, nil)
	writeMessage(w, http.StatusOK, "Rule deleted successfully")
}

// ============================================================================
// Stats
// ============================================================================

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	trades, err := s.store.ListTrades(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, performance.Calculate(trades))
}

func (s *Server) logValidation(r *http.Request, err error) {
	var ve *jerrors.ValidationError
	if errors.As(err, &ve) {
		s.audit.LogInputValidation(r.Context(), logging.UserFromContext(r.Context()), ve.Field, ve.Message)
	}
}
