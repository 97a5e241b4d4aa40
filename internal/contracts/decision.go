package contracts

import "time"

// Rule names the decision-table row that produced a position
type Rule string

const (
	RuleSystemicBuy   Rule = "systemic_buy"
	RuleSystemicSell  Rule = "systemic_sell"
	RuleGraduatedBuy  Rule = "graduated_buy"
	RuleGraduatedSell Rule = "graduated_sell"
	RuleHold          Rule = "hold"
)

// Hold reasons when no rule could be evaluated
const (
	ReasonNoData              = "no_data"
	ReasonInsufficientHistory = "insufficient_history"
)

// PositionDecision is the outcome of one rebalancing check for an index
// ⭐ SSOT: 포지션 결정 결과
type PositionDecision struct {
	ID           string    `json:"id"`
	IndexID      string    `json:"index_id"`
	Date         time.Time `json:"date"`
	PE           float64   `json:"pe"`
	PB           float64   `json:"pb"`
	PEQuantile   float64   `json:"pe_quantile"`
	PBQuantile   float64   `json:"pb_quantile"`
	AvgROE       float64   `json:"avg_roe"`
	RiskFreeRate float64   `json:"risk_free_rate"`
	Position     float64   `json:"position"` // -1.0 ~ 1.0
	Rule         Rule      `json:"rule"`
	Reason       string    `json:"reason,omitempty"`
	SampleCount  int       `json:"sample_count"`
	CreatedAt    time.Time `json:"created_at"`
}

// IsBuy reports a positive allocation change
func (d *PositionDecision) IsBuy() bool { return d.Position > 0 }

// IsSell reports a negative allocation change
func (d *PositionDecision) IsSell() bool { return d.Position < 0 }

// FactorStats describes one valuation factor against its history
type FactorStats struct {
	Current     float64     `json:"current"`
	Percentile  float64     `json:"percentile"`
	Deciles     [11]float64 `json:"deciles"` // min, 10% … 90%, max
	SampleCount int         `json:"sample_count"`
}

// ValuationReport is the PE/PB percentile table of an index on a date
type ValuationReport struct {
	IndexID string      `json:"index_id"`
	Name    string      `json:"name,omitempty"`
	Date    time.Time   `json:"date"`
	PE      FactorStats `json:"pe"`
	PB      FactorStats `json:"pb"`
}

// OrderAction is what a rebalance wants done with a fund
type OrderAction string

const (
	ActionPurchase OrderAction = "purchase"
	ActionRedeem   OrderAction = "redeem"
	ActionHold     OrderAction = "hold"
)

// RebalanceOrder is an order intent derived from a decision. It is never
// executed here.
type RebalanceOrder struct {
	DecisionID string      `json:"decision_id"`
	IndexID    string      `json:"index_id"`
	FundCode   string      `json:"fund_code"`
	Action     OrderAction `json:"action"`
	Amount     float64     `json:"amount,omitempty"` // cash to purchase
	Shares     int64       `json:"shares,omitempty"` // units to redeem
}
