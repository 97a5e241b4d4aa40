package rebalance

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/wonny/indexbeta/internal/contracts"
)

func TestPlanner_Plan(t *testing.T) {
	// 250000 over 5 indices, 50 units each
	p := NewPlanner(1000, DefaultMinCash)

	tests := []struct {
		name       string
		position   float64
		cash       float64
		shares     int64
		wantAction contracts.OrderAction
		wantAmount float64
		wantShares int64
	}{
		{"full buy", 1.0, 50000, 0, contracts.ActionPurchase, 1000, 0},
		{"partial buy", 0.33, 50000, 0, contracts.ActionPurchase, 330, 0},
		{"buy capped at cash", 1.0, 400, 0, contracts.ActionPurchase, 400, 0},
		{"buy without cash", 0.5, 10, 0, contracts.ActionHold, 0, 0},
		{"graduated sell", -0.3, 0, 1000, contracts.ActionRedeem, 0, 300},
		{"clear", -1.0, 0, 1234, contracts.ActionRedeem, 0, 1234},
		{"sell rounds down", -0.05, 0, 30, contracts.ActionRedeem, 0, 1},
		{"sell below one share", -0.05, 0, 19, contracts.ActionHold, 0, 0},
		{"sell with nothing held", -0.5, 50000, 0, contracts.ActionHold, 0, 0},
		{"hold", 0, 50000, 1000, contracts.ActionHold, 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := &contracts.PositionDecision{ID: "d-1", IndexID: "000300.XSHG", Position: tt.position}

			order := p.Plan(d, "163407.OF", tt.cash, tt.shares)

			assert.Equal(t, "d-1", order.DecisionID)
			assert.Equal(t, "000300.XSHG", order.IndexID)
			assert.Equal(t, "163407.OF", order.FundCode)
			assert.Equal(t, tt.wantAction, order.Action)
			assert.InDelta(t, tt.wantAmount, order.Amount, 1e-9)
			assert.Equal(t, tt.wantShares, order.Shares)
		})
	}
}
