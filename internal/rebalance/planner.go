// Package rebalance turns position decisions into fund order intents.
// Orders are planned and recorded here, never executed.
package rebalance

import (
	"math"

	"github.com/wonny/indexbeta/internal/contracts"
)

// DefaultMinCash is the cash below which purchases are skipped
const DefaultMinCash = 10.0

// Planner converts one decision into one order intent
// ⭐ SSOT: 포지션 → 주문 의도 변환은 여기서만
type Planner struct {
	unitCash float64
	minCash  float64
}

// NewPlanner creates a planner. unitCash is the purchase amount of a full
// (1.0) position.
func NewPlanner(unitCash, minCash float64) *Planner {
	return &Planner{unitCash: unitCash, minCash: minCash}
}

// UnitCash returns the purchase amount of a full position
func (p *Planner) UnitCash() float64 {
	return p.unitCash
}

// Plan sizes the order for fund given the available cash and the shares
// that can be redeemed.
//
//   - position > 0 and cash > min cash: purchase unitCash*position, capped at cash
//   - position < 0: redeem floor(-shares*position) shares if that is at least one
//   - otherwise hold
func (p *Planner) Plan(d *contracts.PositionDecision, fund string, cash float64, shares int64) contracts.RebalanceOrder {
	order := contracts.RebalanceOrder{
		DecisionID: d.ID,
		IndexID:    d.IndexID,
		FundCode:   fund,
		Action:     contracts.ActionHold,
	}

	switch {
	case d.Position > 0:
		if cash <= p.minCash {
			return order
		}
		order.Action = contracts.ActionPurchase
		order.Amount = math.Min(p.unitCash*d.Position, cash)

	case d.Position < 0:
		if shares <= 0 {
			return order
		}
		redeem := int64(-float64(shares) * d.Position)
		if redeem <= 0 {
			return order
		}
		order.Action = contracts.ActionRedeem
		order.Shares = redeem
	}

	return order
}
