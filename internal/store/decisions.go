package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wonny/indexbeta/internal/contracts"
)

// DecisionRepository persists position decisions and their order intents
// for audit
type DecisionRepository struct {
	pool *pgxpool.Pool
}

// NewDecisionRepository creates a new decision repository
func NewDecisionRepository(pool *pgxpool.Pool) *DecisionRepository {
	return &DecisionRepository{pool: pool}
}

// SaveDecision stores a decision and, when given, its order intent in one
// transaction
func (r *DecisionRepository) SaveDecision(ctx context.Context, d *contracts.PositionDecision, order *contracts.RebalanceOrder) error {
	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `
			INSERT INTO valuation.position_decisions (
				id, index_code, decision_date, pe, pb, pe_quantile, pb_quantile,
				avg_roe, risk_free_rate, position, rule, reason, sample_count, created_at
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
			ON CONFLICT (id) DO NOTHING
		`,
			d.ID, d.IndexID, d.Date, d.PE, d.PB, d.PEQuantile, d.PBQuantile,
			d.AvgROE, d.RiskFreeRate, d.Position, string(d.Rule), d.Reason, d.SampleCount, d.CreatedAt,
		)
		if err != nil {
			return fmt.Errorf("insert decision: %w", err)
		}

		if order == nil {
			return nil
		}

		_, err = tx.Exec(ctx, `
			INSERT INTO valuation.rebalance_orders (decision_id, index_code, fund_code, action, amount, shares)
			VALUES ($1, $2, $3, $4, $5, $6)
			ON CONFLICT (decision_id) DO UPDATE SET
				action = EXCLUDED.action,
				amount = EXCLUDED.amount,
				shares = EXCLUDED.shares
		`,
			order.DecisionID, order.IndexID, order.FundCode, string(order.Action), order.Amount, order.Shares,
		)
		if err != nil {
			return fmt.Errorf("insert order: %w", err)
		}
		return nil
	})
}

// ListDecisions returns the latest decisions of indexID, newest first
func (r *DecisionRepository) ListDecisions(ctx context.Context, indexID string, limit int) ([]*contracts.PositionDecision, error) {
	if limit <= 0 {
		limit = 20
	}

	query := `
		SELECT id, index_code, decision_date, pe, pb, pe_quantile, pb_quantile,
		       avg_roe, risk_free_rate, position, rule, reason, sample_count, created_at
		FROM valuation.position_decisions
		WHERE index_code = $1
		ORDER BY decision_date DESC, created_at DESC
		LIMIT $2
	`

	rows, err := r.pool.Query(ctx, query, indexID, limit)
	if err != nil {
		return nil, fmt.Errorf("query decisions: %w", err)
	}
	defer rows.Close()

	var decisions []*contracts.PositionDecision
	for rows.Next() {
		var d contracts.PositionDecision
		var rule string
		if err := rows.Scan(
			&d.ID, &d.IndexID, &d.Date, &d.PE, &d.PB, &d.PEQuantile, &d.PBQuantile,
			&d.AvgROE, &d.RiskFreeRate, &d.Position, &rule, &d.Reason, &d.SampleCount, &d.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan decision: %w", err)
		}
		d.Rule = contracts.Rule(rule)
		decisions = append(decisions, &d)
	}
	return decisions, rows.Err()
}
