// Package store implements the valuation collaborators and the decision
// log on PostgreSQL.
package store

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wonny/indexbeta/internal/contracts"
)

// MarketRepository implements contracts.MarketData
// ⭐ SSOT: 구성종목/펀더멘털/거래일 저장소는 여기서만
type MarketRepository struct {
	pool *pgxpool.Pool
}

// NewMarketRepository creates a new market repository
func NewMarketRepository(pool *pgxpool.Pool) *MarketRepository {
	return &MarketRepository{pool: pool}
}

// GetIndexConstituents returns the members of indexID in the most recent
// composition effective on or before date
func (r *MarketRepository) GetIndexConstituents(ctx context.Context, indexID string, date time.Time) ([]string, error) {
	query := `
		SELECT stock_code
		FROM data.index_constituents
		WHERE index_code = $1
		  AND effective_date = (
			SELECT MAX(effective_date)
			FROM data.index_constituents
			WHERE index_code = $1 AND effective_date <= $2
		  )
		ORDER BY stock_code
	`

	rows, err := r.pool.Query(ctx, query, indexID, date)
	if err != nil {
		return nil, fmt.Errorf("query constituents: %w", err)
	}
	defer rows.Close()

	var codes []string
	for rows.Next() {
		var code string
		if err := rows.Scan(&code); err != nil {
			return nil, fmt.Errorf("scan constituent: %w", err)
		}
		codes = append(codes, code)
	}
	return codes, rows.Err()
}

// GetFundamentals returns the valuations of codes as of the latest trading
// day on or before date. Unreported ratios come back as 0.
func (r *MarketRepository) GetFundamentals(ctx context.Context, codes []string, date time.Time) (map[string]contracts.Fundamentals, error) {
	if len(codes) == 0 {
		return map[string]contracts.Fundamentals{}, nil
	}

	query := `
		SELECT stock_code,
		       COALESCE(pe_ratio, 0),
		       COALESCE(pb_ratio, 0),
		       COALESCE(circulating_market_cap, 0)
		FROM data.valuations
		WHERE stock_code = ANY($1)
		  AND trade_date = (
			SELECT MAX(trade_date)
			FROM data.valuations
			WHERE trade_date <= $2
		  )
	`

	rows, err := r.pool.Query(ctx, query, codes, date)
	if err != nil {
		return nil, fmt.Errorf("query fundamentals: %w", err)
	}
	defer rows.Close()

	result := make(map[string]contracts.Fundamentals, len(codes))
	for rows.Next() {
		var f contracts.Fundamentals
		if err := rows.Scan(&f.Code, &f.PERatio, &f.PBRatio, &f.CirculatingMarketCap); err != nil {
			return nil, fmt.Errorf("scan fundamentals: %w", err)
		}
		result[f.Code] = f
	}
	return result, rows.Err()
}

// TradingDays returns trading days strictly between begin and end, ascending
func (r *MarketRepository) TradingDays(ctx context.Context, begin, end time.Time) ([]time.Time, error) {
	query := `
		SELECT trade_date
		FROM data.trading_days
		WHERE trade_date > $1 AND trade_date < $2
		ORDER BY trade_date ASC
	`

	rows, err := r.pool.Query(ctx, query, begin, end)
	if err != nil {
		return nil, fmt.Errorf("query trading days: %w", err)
	}
	defer rows.Close()

	var days []time.Time
	for rows.Next() {
		var d time.Time
		if err := rows.Scan(&d); err != nil {
			return nil, fmt.Errorf("scan trading day: %w", err)
		}
		days = append(days, d)
	}
	return days, rows.Err()
}
