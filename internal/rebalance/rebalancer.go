package rebalance

import (
	"context"
	"fmt"
	"time"

	"github.com/wonny/indexbeta/internal/contracts"
	"github.com/wonny/indexbeta/internal/strategyconfig"
	"github.com/wonny/indexbeta/pkg/logger"
)

// Evaluator decides the position of one index
type Evaluator interface {
	Evaluate(ctx context.Context, indexID string, baseDate time.Time) (*contracts.PositionDecision, error)
}

// PortfolioSource reports what a rebalance can spend and redeem
type PortfolioSource interface {
	AvailableCash(ctx context.Context) (float64, error)
	CloseableShares(ctx context.Context, fundCode string) (int64, error)
}

// Recorder persists decisions and their order intents
type Recorder interface {
	SaveDecision(ctx context.Context, d *contracts.PositionDecision, order *contracts.RebalanceOrder) error
}

// Result is the outcome of one rebalance run
type Result struct {
	Date      time.Time                     `json:"date"`
	Decisions []*contracts.PositionDecision `json:"decisions"`
	Orders    []contracts.RebalanceOrder    `json:"orders"`
	Failed    []string                      `json:"failed,omitempty"`
}

// Rebalancer evaluates every index of the universe in turn and plans an
// order for its fund
type Rebalancer struct {
	evaluator Evaluator
	portfolio PortfolioSource
	recorder  Recorder
	planner   *Planner
	universe  []strategyconfig.IndexFund
	logger    *logger.Logger
}

// NewRebalancer creates a rebalancer. recorder may be nil.
func NewRebalancer(evaluator Evaluator, portfolio PortfolioSource, recorder Recorder, planner *Planner, universe []strategyconfig.IndexFund, log *logger.Logger) *Rebalancer {
	return &Rebalancer{
		evaluator: evaluator,
		portfolio: portfolio,
		recorder:  recorder,
		planner:   planner,
		universe:  universe,
		logger:    log,
	}
}

// Run rebalances the universe at baseDate. An index that fails is logged
// and skipped; Run fails only when every index failed or ctx is done.
func (r *Rebalancer) Run(ctx context.Context, baseDate time.Time) (*Result, error) {
	result := &Result{
		Date:      baseDate,
		Decisions: make([]*contracts.PositionDecision, 0, len(r.universe)),
		Orders:    make([]contracts.RebalanceOrder, 0, len(r.universe)),
	}

	cash, err := r.portfolio.AvailableCash(ctx)
	if err != nil {
		return nil, fmt.Errorf("get available cash: %w", err)
	}

	for _, f := range r.universe {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		log := r.logger.WithIndex(f.Index).WithField("fund", f.Fund)

		decision, err := r.evaluator.Evaluate(ctx, f.Index, baseDate)
		if err != nil {
			log.WithError(err).Error("Position decision failed")
			result.Failed = append(result.Failed, f.Index)
			continue
		}

		shares, err := r.portfolio.CloseableShares(ctx, f.Fund)
		if err != nil {
			log.WithError(err).Error("Failed to get closeable shares")
			result.Failed = append(result.Failed, f.Index)
			continue
		}

		order := r.planner.Plan(decision, f.Fund, cash, shares)
		if order.Action == contracts.ActionPurchase {
			cash -= order.Amount
		}

		if r.recorder != nil {
			if err := r.recorder.SaveDecision(ctx, decision, &order); err != nil {
				log.WithError(err).Warn("Failed to save decision")
			}
		}

		log.WithFields(map[string]interface{}{
			"position":  decision.Position,
			"rule":      decision.Rule,
			"action":    order.Action,
			"amount":    order.Amount,
			"shares":    order.Shares,
			"cash":      cash,
			"closeable": shares,
		}).Info("Rebalance order planned")

		result.Decisions = append(result.Decisions, decision)
		result.Orders = append(result.Orders, order)
	}

	if len(r.universe) > 0 && len(result.Failed) == len(r.universe) {
		return result, fmt.Errorf("rebalance failed for all %d indices", len(r.universe))
	}

	return result, nil
}
