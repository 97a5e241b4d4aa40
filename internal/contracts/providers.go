package contracts

import (
	"context"
	"time"
)

// ⭐ SSOT: 외부 데이터 협력자 인터페이스는 여기서만 정의

// ConstituentProvider returns the members of an index on a date
type ConstituentProvider interface {
	GetIndexConstituents(ctx context.Context, indexID string, date time.Time) ([]string, error)
}

// FundamentalsProvider returns point-in-time fundamentals keyed by code.
// Codes without data may be missing from the result.
type FundamentalsProvider interface {
	GetFundamentals(ctx context.Context, codes []string, date time.Time) (map[string]Fundamentals, error)
}

// TradingCalendar returns trading days strictly between begin and end,
// ascending
type TradingCalendar interface {
	TradingDays(ctx context.Context, begin, end time.Time) ([]time.Time, error)
}

// MarketData bundles the collaborators a valuation run needs
type MarketData interface {
	ConstituentProvider
	FundamentalsProvider
	TradingCalendar
}
