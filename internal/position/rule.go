// Package position turns an index valuation and its percentile against
// history into a position delta in [-1, 1].
package position

import (
	"fmt"
	"math"

	"github.com/wonny/indexbeta/internal/contracts"
)

// Decision table thresholds
const (
	SystemicBuyMaxPE      = 7.0
	SystemicBuyMaxPB      = 1.0
	SystemicBuyMinPBPE    = 0.18 // pb/pe, stands in for dividend yield
	SystemicSellMinPE     = 50.0
	SystemicSellMinPB     = 4.5
	LowQuantile           = 0.3
	HighQuantile          = 0.7
	GraduatedBuyMaxPB     = 2.0
	BuyEarningsYieldMult  = 3.0 // 1/pe above rf*3 is cheap
	SellEarningsYieldMult = 2.0 // 1/pe below rf*2 is expensive
)

// DefaultRiskFreeRate is the ten-year government bond yield used when none
// is configured
const DefaultRiskFreeRate = 0.035

// Inputs is everything one position decision looks at
type Inputs struct {
	PE           float64
	PB           float64
	PEQuantile   float64
	PBQuantile   float64
	AvgROE       float64
	RiskFreeRate float64
	PEHistory    []float64 // needed only on the graduated buy path
}

// Result is a position with the rule that produced it
type Result struct {
	Position float64
	Rule     contracts.Rule
}

// Decide returns the position delta for in
func Decide(in Inputs) (float64, error) {
	res, err := Evaluate(in)
	if err != nil {
		return 0, err
	}
	return res.Position, nil
}

// Evaluate walks the decision table; the first matching rule wins.
//
//  1. systemic undervaluation (pe<7, pb<1, pb/pe>0.18) → 1.0
//  2. systemic overvaluation (pe>50 or pb>4.5) → -1.0
//  3. cheap against history or earnings yield above rf*3 → Kelly buy
//  4. expensive against history or earnings yield below rf*2 → sell ladder
//  5. otherwise hold
//
// ⭐ SSOT: 포지션 결정 규칙은 여기서만
func Evaluate(in Inputs) (Result, error) {
	if err := in.validate(); err != nil {
		return Result{}, err
	}

	pe, pb := in.PE, in.PB
	earningsYield := 1.0 / pe

	if pe < SystemicBuyMaxPE && pb < SystemicBuyMaxPB && pb/pe > SystemicBuyMinPBPE {
		return Result{Position: 1.0, Rule: contracts.RuleSystemicBuy}, nil
	}

	if pe > SystemicSellMinPE || pb > SystemicSellMinPB {
		return Result{Position: -1.0, Rule: contracts.RuleSystemicSell}, nil
	}

	if (in.PEQuantile < LowQuantile && in.PBQuantile < LowQuantile && pb < GraduatedBuyMaxPB) ||
		(in.PBQuantile < LowQuantile && earningsYield > in.RiskFreeRate*BuyEarningsYieldMult) {
		size, err := KellyBuy(pe, in.AvgROE, in.PEHistory)
		if err != nil {
			return Result{}, err
		}
		return Result{Position: size, Rule: contracts.RuleGraduatedBuy}, nil
	}

	if (in.PEQuantile > HighQuantile && in.PBQuantile > HighQuantile) ||
		earningsYield < in.RiskFreeRate*SellEarningsYieldMult {
		return Result{Position: KellySell(in.PEQuantile), Rule: contracts.RuleGraduatedSell}, nil
	}

	return Result{Position: 0, Rule: contracts.RuleHold}, nil
}

func (in Inputs) validate() error {
	if !(in.PE > 0) || math.IsInf(in.PE, 0) {
		return fmt.Errorf("%w: pe=%v", contracts.ErrInvalidInput, in.PE)
	}
	for name, v := range map[string]float64{
		"pb":             in.PB,
		"pe quantile":    in.PEQuantile,
		"pb quantile":    in.PBQuantile,
		"risk free rate": in.RiskFreeRate,
	} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: %s=%v", contracts.ErrInvalidInput, name, v)
		}
	}
	return nil
}
