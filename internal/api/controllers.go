package api

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"dca-core/internal/dca"
	"dca-core/internal/engine"
	"dca-core/internal/indicators"
	"dca-core/internal/montecarlo"
	"dca-core/internal/regime"
)

type expectedPriceRequest struct {
	Price float64 `json:"price" binding:"required,gt=0"`
}

type stakeRequest struct {
	ProposedStake float64 `json:"proposed_stake" binding:"required,gt=0"`
	EntryTag      string  `json:"entry_tag"`
	WalletBalance float64 `json:"wallet_balance" binding:"gte=0"`
}

type adjustRequest struct {
	Position dca.Position `json:"position"`
	MinStake float64      `json:"min_stake" binding:"gte=0"`
	MaxStake float64      `json:"max_stake" binding:"gte=0"`
	// Time optionally pins the evaluation clock.
	Time *time.Time `json:"time"`
}

type exitRequest struct {
	Pair       string     `json:"pair"`
	Reason     string     `json:"exit_reason"`
	Profit     *float64   `json:"profit" binding:"required"`
	LossAmount float64    `json:"loss_amount" binding:"gte=0"`
	Time       *time.Time `json:"time"`
}

type balanceRequest struct {
	Balance float64 `json:"balance" binding:"required,gt=0"`
}

type slippageRequest struct {
	Expected float64 `json:"expected" binding:"required,gt=0"`
	Actual   float64 `json:"actual" binding:"required,gt=0"`
}

func respondError(c *gin.Context, status int, code, msg string) {
	c.JSON(status, gin.H{
		"code":  code,
		"error": msg,
	})
}

func bind(c *gin.Context, req any) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		respondError(c, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
		return false
	}
	return true
}

// respondEngineError maps engine errors to HTTP codes.
func respondEngineError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, engine.ErrContextRequired):
		respondError(c, http.StatusBadRequest, "CONTEXT_REQUIRED", err.Error())
	case errors.Is(err, montecarlo.ErrInvalidInput):
		respondError(c, http.StatusBadRequest, "INVALID_INPUT", err.Error())
	case errors.Is(err, engine.ErrNoTradeLog):
		respondError(c, http.StatusServiceUnavailable, "TRADE_LOG_UNAVAILABLE", err.Error())
	default:
		respondError(c, http.StatusInternalServerError, "ENGINE_ERROR", err.Error())
	}
}

func pinned(t *time.Time) time.Time {
	if t == nil {
		return time.Time{}
	}
	return *t
}

// getSystemStatus exposes runtime counters for the dashboard.
func (s *Server) getSystemStatus(c *gin.Context) {
	c.JSON(http.StatusOK, s.Engine.GetSystemStatus(c.Request.Context()))
}

func (s *Server) listContexts(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"contexts": s.Engine.ListContexts(c.Request.Context())})
}

// Per-context hooks

func (s *Server) recordExpectedPrice(c *gin.Context) {
	var req expectedPriceRequest
	if !bind(c, &req) {
		return
	}
	if err := s.Engine.RecordExpectedPrice(c.Request.Context(), c.Param("id"), req.Price); err != nil {
		respondEngineError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "recorded"})
}

func (s *Server) confirmEntry(c *gin.Context) {
	var req engine.EntryRequest
	if !bind(c, &req) {
		return
	}
	if req.Rate <= 0 {
		respondError(c, http.StatusBadRequest, "INVALID_REQUEST", "rate must be positive")
		return
	}
	dec, err := s.Engine.ConfirmEntry(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		respondEngineError(c, err)
		return
	}
	c.JSON(http.StatusOK, dec)
}

func (s *Server) stakeAmount(c *gin.Context) {
	var req stakeRequest
	if !bind(c, &req) {
		return
	}
	id := c.Param("id")
	dec, err := s.Engine.StakeAmount(c.Request.Context(), id, dca.StakeInput{
		Pair:          id,
		ProposedStake: req.ProposedStake,
		EntryTag:      req.EntryTag,
		WalletBalance: req.WalletBalance,
	})
	if err != nil {
		respondEngineError(c, err)
		return
	}
	c.JSON(http.StatusOK, dec)
}

func (s *Server) adjustPosition(c *gin.Context) {
	var req adjustRequest
	if !bind(c, &req) {
		return
	}
	dec, err := s.Engine.AdjustPosition(c.Request.Context(), c.Param("id"), dca.AdjustInput{
		Position: &req.Position,
		Now:      pinned(req.Time),
		MinStake: req.MinStake,
		MaxStake: req.MaxStake,
	})
	if err != nil {
		respondEngineError(c, err)
		return
	}
	c.JSON(http.StatusOK, dec)
}

func (s *Server) confirmExit(c *gin.Context) {
	var req exitRequest
	if !bind(c, &req) {
		return
	}
	id := c.Param("id")
	if req.Pair == "" {
		req.Pair = id
	}
	out, err := s.Engine.ConfirmExit(c.Request.Context(), id, dca.ExitInput{
		Pair:       req.Pair,
		Reason:     req.Reason,
		Profit:     *req.Profit,
		LossAmount: req.LossAmount,
		Now:        pinned(req.Time),
	})
	if err != nil {
		respondEngineError(c, err)
		return
	}
	// The host must always be allowed to exit.
	c.JSON(http.StatusOK, gin.H{"allowed": true, "outcome": out})
}

func (s *Server) updateBalance(c *gin.Context) {
	var req balanceRequest
	if !bind(c, &req) {
		return
	}
	status, err := s.Engine.UpdateBalance(c.Request.Context(), c.Param("id"), req.Balance)
	if err != nil {
		respondEngineError(c, err)
		return
	}
	c.JSON(http.StatusOK, status)
}

func (s *Server) ingestBar(c *gin.Context) {
	var bar indicators.Bar
	if !bind(c, &bar) {
		return
	}
	report, err := s.Engine.IngestBar(c.Request.Context(), c.Param("id"), bar)
	if err != nil {
		respondError(c, http.StatusBadRequest, "INVALID_BAR", err.Error())
		return
	}
	c.JSON(http.StatusOK, report)
}

// getRiskStatus evaluates every guard. balance and starting_balance are
// optional query parameters.
func (s *Server) getRiskStatus(c *gin.Context) {
	balance, err := queryFloat(c, "balance")
	if err != nil {
		respondError(c, http.StatusBadRequest, "INVALID_QUERY", err.Error())
		return
	}
	starting, err := queryFloat(c, "starting_balance")
	if err != nil {
		respondError(c, http.StatusBadRequest, "INVALID_QUERY", err.Error())
		return
	}
	status, err := s.Engine.RiskStatus(c.Request.Context(), c.Param("id"), balance, starting)
	if err != nil {
		respondEngineError(c, err)
		return
	}
	c.JSON(http.StatusOK, status)
}

func queryFloat(c *gin.Context, key string) (float64, error) {
	raw := c.Query(key)
	if raw == "" {
		return 0, nil
	}
	return strconv.ParseFloat(raw, 64)
}

// Stateless evaluations

func (s *Server) detectRegime(c *gin.Context) {
	var snap regime.Snapshot
	if !bind(c, &snap) {
		return
	}
	c.JSON(http.StatusOK, s.Engine.Regime(c.Request.Context(), snap))
}

func (s *Server) checkSlippage(c *gin.Context) {
	var req slippageRequest
	if !bind(c, &req) {
		return
	}
	c.JSON(http.StatusOK, s.Engine.CheckSlippage(c.Request.Context(), req.Expected, req.Actual))
}

func (s *Server) simulateMonteCarlo(c *gin.Context) {
	var req engine.MonteCarloRequest
	if !bind(c, &req) {
		return
	}
	report, err := s.Engine.SimulateMonteCarlo(c.Request.Context(), req)
	if err != nil {
		respondEngineError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}
