package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PortfolioRepository reads the cash and fund units a rebalance may use.
// The tables are maintained by the account that executes orders.
type PortfolioRepository struct {
	pool      *pgxpool.Pool
	accountID string
}

// NewPortfolioRepository creates a portfolio repository for one account
func NewPortfolioRepository(pool *pgxpool.Pool, accountID string) *PortfolioRepository {
	return &PortfolioRepository{pool: pool, accountID: accountID}
}

// AvailableCash returns the account's spendable cash
func (r *PortfolioRepository) AvailableCash(ctx context.Context) (float64, error) {
	var cash float64
	err := r.pool.QueryRow(ctx, `
		SELECT available_cash FROM valuation.cash_accounts WHERE account_id = $1
	`, r.accountID).Scan(&cash)
	if err != nil {
		return 0, fmt.Errorf("query available cash of %s: %w", r.accountID, err)
	}
	return cash, nil
}

// CloseableShares returns the units of fundCode that can be redeemed now.
// A fund never bought has none.
func (r *PortfolioRepository) CloseableShares(ctx context.Context, fundCode string) (int64, error) {
	var shares int64
	err := r.pool.QueryRow(ctx, `
		SELECT closeable_shares FROM valuation.fund_holdings
		WHERE account_id = $1 AND fund_code = $2
	`, r.accountID, fundCode).Scan(&shares)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("query closeable shares of %s: %w", fundCode, err)
	}
	return shares, nil
}
