// Package strategy evaluates the index valuation strategy: one position
// decision or valuation report per index and base date.
package strategy

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gonum.org/v1/gonum/stat"

	"github.com/wonny/indexbeta/internal/contracts"
	"github.com/wonny/indexbeta/internal/metrics"
	"github.com/wonny/indexbeta/internal/position"
	"github.com/wonny/indexbeta/internal/quantile"
	"github.com/wonny/indexbeta/internal/valuation"
	"github.com/wonny/indexbeta/pkg/logger"
)

// Default windows
const (
	DefaultLookbackDays       = 5 * 365
	DefaultReportLookbackDays = 8 * 365
)

// Sampler returns the valuation of an index on one date
type Sampler interface {
	Sample(ctx context.Context, indexID string, date time.Time) (contracts.ValuationSample, error)
}

// Params configures IndexBeta
type Params struct {
	LookbackDays       int
	ReportLookbackDays int
	Interval           int
	RiskFreeRate       float64
	Names              map[string]string // index id → display name
}

func (p *Params) applyDefaults() {
	if p.LookbackDays <= 0 {
		p.LookbackDays = DefaultLookbackDays
	}
	if p.ReportLookbackDays <= 0 {
		p.ReportLookbackDays = DefaultReportLookbackDays
	}
	if p.Interval <= 0 {
		p.Interval = valuation.DefaultInterval
	}
	if p.RiskFreeRate <= 0 {
		p.RiskFreeRate = position.DefaultRiskFreeRate
	}
}

// IndexBeta ties sampler, history, percentiles and the decision table
// together
// ⭐ SSOT: 지수 리밸런싱 판단은 여기서만
type IndexBeta struct {
	sampler Sampler
	history valuation.HistorySource
	params  Params
	metrics *metrics.Registry
	logger  *logger.Logger
	now     func() time.Time
}

// NewIndexBeta creates the strategy
func NewIndexBeta(sampler Sampler, history valuation.HistorySource, params Params, m *metrics.Registry, log *logger.Logger) *IndexBeta {
	params.applyDefaults()
	return &IndexBeta{
		sampler: sampler,
		history: history,
		params:  params,
		metrics: m,
		logger:  log,
		now:     time.Now,
	}
}

// Params returns the effective parameters
func (s *IndexBeta) Params() Params {
	return s.params
}

// Evaluate decides the position delta of indexID at baseDate (zero means
// today) against the lookback window ending there. Missing data yields a
// hold decision, not an error; provider and calendar failures are returned.
func (s *IndexBeta) Evaluate(ctx context.Context, indexID string, baseDate time.Time) (*contracts.PositionDecision, error) {
	base := s.baseDate(baseDate)
	log := s.logger.WithIndex(indexID)

	decision := &contracts.PositionDecision{
		ID:           uuid.New().String(),
		IndexID:      indexID,
		Date:         base,
		RiskFreeRate: s.params.RiskFreeRate,
		Rule:         contracts.RuleHold,
		CreatedAt:    s.now(),
	}

	current, err := s.sampler.Sample(ctx, indexID, base)
	if err != nil {
		return nil, fmt.Errorf("sample %s: %w", indexID, err)
	}
	if !current.Complete() {
		decision.Reason = contracts.ReasonNoData
		s.record(log, decision)
		return decision, nil
	}
	decision.PE = current.PE
	decision.PB = current.PB

	begin := base.AddDate(0, 0, -s.params.LookbackDays)
	history, err := s.history.Build(ctx, indexID, begin, base, s.params.Interval)
	if err != nil {
		return nil, fmt.Errorf("build history of %s: %w", indexID, err)
	}
	decision.SampleCount = history.Len()
	if history.Empty() {
		decision.Reason = contracts.ReasonInsufficientHistory
		s.record(log, decision)
		return decision, nil
	}

	pes := history.PEs()
	peQ, err := quantile.PercentileOf(current.PE, pes)
	if err != nil {
		return nil, fmt.Errorf("pe percentile: %w", err)
	}
	pbQ, err := quantile.PercentileOf(current.PB, history.PBs())
	if err != nil {
		return nil, fmt.Errorf("pb percentile: %w", err)
	}
	avgROE := stat.Mean(history.ROEs(), nil)

	decision.PEQuantile = peQ
	decision.PBQuantile = pbQ
	decision.AvgROE = avgROE

	res, err := position.Evaluate(position.Inputs{
		PE:           current.PE,
		PB:           current.PB,
		PEQuantile:   peQ,
		PBQuantile:   pbQ,
		AvgROE:       avgROE,
		RiskFreeRate: s.params.RiskFreeRate,
		PEHistory:    pes,
	})
	if errors.Is(err, contracts.ErrInsufficientHistory) {
		decision.Reason = contracts.ReasonInsufficientHistory
		s.record(log, decision)
		return decision, nil
	}
	if err != nil {
		return nil, fmt.Errorf("decide position of %s: %w", indexID, err)
	}

	decision.Position = res.Position
	decision.Rule = res.Rule
	s.record(log, decision)

	return decision, nil
}

// Report builds the pe/pb percentile table of indexID at baseDate over the
// report window
func (s *IndexBeta) Report(ctx context.Context, indexID string, baseDate time.Time) (*contracts.ValuationReport, error) {
	base := s.baseDate(baseDate)

	current, err := s.sampler.Sample(ctx, indexID, base)
	if err != nil {
		return nil, fmt.Errorf("sample %s: %w", indexID, err)
	}
	if !current.Complete() {
		return nil, fmt.Errorf("%s on %s: %w", indexID, base.Format("2006-01-02"), contracts.ErrNoData)
	}

	begin := base.AddDate(0, 0, -s.params.ReportLookbackDays)
	history, err := s.history.Build(ctx, indexID, begin, base, s.params.Interval)
	if err != nil {
		return nil, fmt.Errorf("build history of %s: %w", indexID, err)
	}

	pe, err := factorStats(current.PE, history.PEs())
	if err != nil {
		return nil, fmt.Errorf("pe stats of %s: %w", indexID, err)
	}
	pb, err := factorStats(current.PB, history.PBs())
	if err != nil {
		return nil, fmt.Errorf("pb stats of %s: %w", indexID, err)
	}

	return &contracts.ValuationReport{
		IndexID: indexID,
		Name:    s.params.Names[indexID],
		Date:    base,
		PE:      pe,
		PB:      pb,
	}, nil
}

func factorStats(current float64, history []float64) (contracts.FactorStats, error) {
	q, err := quantile.Deciles(history)
	if err != nil {
		return contracts.FactorStats{}, err
	}
	return contracts.FactorStats{
		Current:     current,
		Percentile:  quantile.PercentileOfDeciles(current, q),
		Deciles:     q,
		SampleCount: len(history),
	}, nil
}

// baseDate truncates to midnight in the date's own location
func (s *IndexBeta) baseDate(d time.Time) time.Time {
	if d.IsZero() {
		d = s.now()
	}
	y, m, day := d.Date()
	return time.Date(y, m, day, 0, 0, 0, 0, d.Location())
}

func (s *IndexBeta) record(log *logger.Logger, d *contracts.PositionDecision) {
	s.metrics.RecordDecision(d.IndexID, string(d.Rule), d.Position)

	log.WithFields(map[string]interface{}{
		"decision_id":    d.ID,
		"date":           d.Date.Format("2006-01-02"),
		"pe":             d.PE,
		"pe_quantile":    d.PEQuantile,
		"pb":             d.PB,
		"pb_quantile":    d.PBQuantile,
		"avg_roe":        d.AvgROE,
		"risk_free_rate": d.RiskFreeRate,
		"samples":        d.SampleCount,
		"rule":           d.Rule,
		"reason":         d.Reason,
		"position":       d.Position,
	}).Info("Position decided")
}
