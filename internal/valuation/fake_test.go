package valuation

import (
	"context"
	"time"

	"github.com/wonny/indexbeta/internal/contracts"
)

// fakeMarket serves a fixed constituent list and per-date fundamentals
type fakeMarket struct {
	members         []string
	constituentsErr error
	calendarErr     error
	days            []time.Time
	fundamentalsFn  func(ctx context.Context, date time.Time) (map[string]contracts.Fundamentals, error)
}

func (f *fakeMarket) GetIndexConstituents(ctx context.Context, indexID string, date time.Time) ([]string, error) {
	if f.constituentsErr != nil {
		return nil, f.constituentsErr
	}
	return f.members, nil
}

func (f *fakeMarket) GetFundamentals(ctx context.Context, codes []string, date time.Time) (map[string]contracts.Fundamentals, error) {
	return f.fundamentalsFn(ctx, date)
}

func (f *fakeMarket) TradingDays(ctx context.Context, begin, end time.Time) ([]time.Time, error) {
	if f.calendarErr != nil {
		return nil, f.calendarErr
	}
	return f.days, nil
}

func staticFundamentals(rows ...contracts.Fundamentals) func(context.Context, time.Time) (map[string]contracts.Fundamentals, error) {
	m := make(map[string]contracts.Fundamentals, len(rows))
	for _, r := range rows {
		m[r.Code] = r
	}
	return func(context.Context, time.Time) (map[string]contracts.Fundamentals, error) {
		return m, nil
	}
}

func codes(rows ...contracts.Fundamentals) []string {
	out := make([]string, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.Code)
	}
	return out
}

func day(m time.Month, d int) time.Time {
	return time.Date(2024, m, d, 0, 0, 0, 0, time.UTC)
}

// januaryDays returns every day from Jan 1 to Jan n
func januaryDays(n int) []time.Time {
	out := make([]time.Time, 0, n)
	for d := 1; d <= n; d++ {
		out = append(out, day(time.January, d))
	}
	return out
}
