package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"github.com/wonny/indexbeta/internal/contracts"
	"github.com/wonny/indexbeta/internal/position"
	"github.com/wonny/indexbeta/internal/quantile"
	"github.com/wonny/indexbeta/internal/strategyconfig"
	"github.com/wonny/indexbeta/pkg/logger"
)

// Strategy evaluates decisions and reports for an index
type Strategy interface {
	Evaluate(ctx context.Context, indexID string, baseDate time.Time) (*contracts.PositionDecision, error)
	Report(ctx context.Context, indexID string, baseDate time.Time) (*contracts.ValuationReport, error)
}

// DecisionLister reads persisted decisions
type DecisionLister interface {
	ListDecisions(ctx context.Context, indexID string, limit int) ([]*contracts.PositionDecision, error)
}

// ValuationHandler handles valuation API endpoints
// ⭐ SSOT: 밸류에이션 API 핸들러는 이 구조체에서만
type ValuationHandler struct {
	strategy  Strategy
	decisions DecisionLister
	universe  strategyconfig.Universe
	location  *time.Location
	logger    *logger.Logger
}

// NewValuationHandler creates a new valuation handler. decisions may be nil
// when no database is configured.
func NewValuationHandler(
	strategy Strategy,
	decisions DecisionLister,
	universe strategyconfig.Universe,
	loc *time.Location,
	log *logger.Logger,
) *ValuationHandler {
	if loc == nil {
		loc = time.Local
	}
	return &ValuationHandler{
		strategy:  strategy,
		decisions: decisions,
		universe:  universe,
		location:  loc,
		logger:    log,
	}
}

// GetUniverse returns the configured index→fund pairs
// GET /api/valuation/indices
func (h *ValuationHandler) GetUniverse(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.universe.Indices)
}

// GetDecision evaluates the position of one index
// GET /api/valuation/{index}/decision?date=YYYY-MM-DD
func (h *ValuationHandler) GetDecision(w http.ResponseWriter, r *http.Request) {
	indexID := mux.Vars(r)["index"]

	date, err := parseDate(r, h.location)
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid 'date' format (expected YYYY-MM-DD)")
		return
	}

	decision, err := h.strategy.Evaluate(r.Context(), indexID, date)
	if err != nil {
		h.logger.WithIndex(indexID).WithError(err).Error("Failed to evaluate position")
		respondError(w, http.StatusInternalServerError, "Failed to evaluate position")
		return
	}

	respondJSON(w, http.StatusOK, decision)
}

// GetReport returns the pe/pb percentile table of one index
// GET /api/valuation/{index}/report?date=YYYY-MM-DD
func (h *ValuationHandler) GetReport(w http.ResponseWriter, r *http.Request) {
	indexID := mux.Vars(r)["index"]

	date, err := parseDate(r, h.location)
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid 'date' format (expected YYYY-MM-DD)")
		return
	}

	report, err := h.strategy.Report(r.Context(), indexID, date)
	switch {
	case errors.Is(err, contracts.ErrNoData):
		respondError(w, http.StatusNotFound, err.Error())
		return
	case errors.Is(err, contracts.ErrInsufficientHistory):
		respondError(w, http.StatusUnprocessableEntity, err.Error())
		return
	case err != nil:
		h.logger.WithIndex(indexID).WithError(err).Error("Failed to build report")
		respondError(w, http.StatusInternalServerError, "Failed to build report")
		return
	}

	respondJSON(w, http.StatusOK, report)
}

// GetReports returns the report of every index in the universe. Indices
// without data are left out.
// GET /api/valuation/report?date=YYYY-MM-DD
func (h *ValuationHandler) GetReports(w http.ResponseWriter, r *http.Request) {
	date, err := parseDate(r, h.location)
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid 'date' format (expected YYYY-MM-DD)")
		return
	}

	reports := make([]*contracts.ValuationReport, 0, len(h.universe.Indices))
	for _, indexID := range h.universe.IndexIDs() {
		report, err := h.strategy.Report(r.Context(), indexID, date)
		if err != nil {
			h.logger.WithIndex(indexID).WithError(err).Warn("Report skipped")
			continue
		}
		reports = append(reports, report)
	}

	respondJSON(w, http.StatusOK, reports)
}

// GetDecisions lists persisted decisions of one index, newest first
// GET /api/valuation/{index}/decisions?limit=20
func (h *ValuationHandler) GetDecisions(w http.ResponseWriter, r *http.Request) {
	if h.decisions == nil {
		respondError(w, http.StatusServiceUnavailable, "Decision store not configured")
		return
	}

	indexID := mux.Vars(r)["index"]

	limit := 20
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > 500 {
			respondError(w, http.StatusBadRequest, "Invalid 'limit' (expected 1-500)")
			return
		}
		limit = n
	}

	decisions, err := h.decisions.ListDecisions(r.Context(), indexID, limit)
	if err != nil {
		h.logger.WithIndex(indexID).WithError(err).Error("Failed to list decisions")
		respondError(w, http.StatusInternalServerError, "Failed to list decisions")
		return
	}
	if decisions == nil {
		decisions = []*contracts.PositionDecision{}
	}

	respondJSON(w, http.StatusOK, decisions)
}

// PercentileRequest asks where value falls in distribution
type PercentileRequest struct {
	Value        float64   `json:"value"`
	Distribution []float64 `json:"distribution"`
}

// PercentileResponse is the percentile of a value with the breakpoints used
type PercentileResponse struct {
	Value      float64                       `json:"value"`
	Percentile float64                       `json:"percentile"`
	Deciles    [quantile.Breakpoints]float64 `json:"deciles"`
}

// Percentile computes a percentile on an ad-hoc distribution
// POST /api/valuation/percentile
func (h *ValuationHandler) Percentile(w http.ResponseWriter, r *http.Request) {
	var req PercentileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	q, err := quantile.Deciles(req.Distribution)
	if err != nil {
		respondError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	respondJSON(w, http.StatusOK, PercentileResponse{
		Value:      req.Value,
		Percentile: quantile.PercentileOfDeciles(req.Value, q),
		Deciles:    q,
	})
}

// PositionRequest carries the inputs of the decision table
type PositionRequest struct {
	PE           float64   `json:"pe"`
	PB           float64   `json:"pb"`
	PEQuantile   float64   `json:"pe_quantile"`
	PBQuantile   float64   `json:"pb_quantile"`
	AvgROE       float64   `json:"avg_roe"`
	RiskFreeRate float64   `json:"risk_free_rate"`
	PEHistory    []float64 `json:"pe_history"`
}

// PositionResponse is the decided position delta and the rule behind it
type PositionResponse struct {
	Position float64        `json:"position"`
	Rule     contracts.Rule `json:"rule"`
}

// Position runs the decision table on caller-supplied inputs
// POST /api/valuation/position
func (h *ValuationHandler) Position(w http.ResponseWriter, r *http.Request) {
	var req PositionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.RiskFreeRate == 0 {
		req.RiskFreeRate = position.DefaultRiskFreeRate
	}

	res, err := position.Evaluate(position.Inputs{
		PE:           req.PE,
		PB:           req.PB,
		PEQuantile:   req.PEQuantile,
		PBQuantile:   req.PBQuantile,
		AvgROE:       req.AvgROE,
		RiskFreeRate: req.RiskFreeRate,
		PEHistory:    req.PEHistory,
	})
	if errors.Is(err, contracts.ErrInvalidInput) || errors.Is(err, contracts.ErrInsufficientHistory) {
		respondError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	if err != nil {
		h.logger.WithError(err).Error("Failed to decide position")
		respondError(w, http.StatusInternalServerError, "Failed to decide position")
		return
	}

	respondJSON(w, http.StatusOK, PositionResponse{Position: res.Position, Rule: res.Rule})
}
