package position

import (
	"fmt"
	"math"

	"github.com/wonny/indexbeta/internal/contracts"
	"github.com/wonny/indexbeta/internal/quantile"
)

const (
	// ExpectedEarnRate is the annual return a purchase is expected to earn
	ExpectedEarnRate = 0.15
	// ExpectedEarnYears is the horizon over which that return compounds
	ExpectedEarnYears = 5
)

// Odds is the payoff of a winning buy: (1+15%)^5
var Odds = math.Pow(1+ExpectedEarnRate, ExpectedEarnYears)

// sellStep is one rung of the graduated sell ladder: from quantile From
// (inclusive) upward, reduce by Position
type sellStep struct {
	From     float64
	Position float64
}

// ordered from the top rung down
var sellLadder = []sellStep{
	{From: 0.99, Position: -1.00},
	{From: 0.95, Position: -0.70},
	{From: 0.90, Position: -0.50},
	{From: 0.85, Position: -0.30},
	{From: 0.80, Position: -0.10},
	{From: 0.70, Position: -0.05},
}

// KellyBuy sizes a purchase with the Kelly criterion.
//
// The win rate is the share of history priced above the pe the index should
// trade at once the expected return has been earned at the historical
// average roe. The result is never negative.
// ⭐ SSOT: 매수 비중 계산은 여기서만
func KellyBuy(pe, avgROE float64, peHistory []float64) (float64, error) {
	if !(pe > 0) || math.IsInf(pe, 0) {
		return 0, fmt.Errorf("%w: pe=%v", contracts.ErrInvalidInput, pe)
	}
	if math.IsNaN(avgROE) || math.IsInf(avgROE, 0) || 1+avgROE <= 0 {
		return 0, fmt.Errorf("%w: avg roe=%v", contracts.ErrInvalidInput, avgROE)
	}

	expectedSellPE := Odds / math.Pow(1+avgROE, ExpectedEarnYears) * pe

	pct, err := quantile.PercentileOf(expectedSellPE, peHistory)
	if err != nil {
		return 0, fmt.Errorf("kelly buy: %w", err)
	}
	winRate := 1.0 - pct

	f := (Odds*winRate - (1.0 - winRate)) / Odds
	if f < 0 {
		return 0, nil
	}
	return f, nil
}

// KellySell maps the pe quantile onto the graduated sell ladder.
// Quantiles below 0.70 reduce nothing.
func KellySell(peQuantile float64) float64 {
	for _, step := range sellLadder {
		if peQuantile >= step.From {
			return step.Position
		}
	}
	return 0
}
