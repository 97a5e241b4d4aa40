package position

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/indexbeta/internal/contracts"
)

// deciles fall on each integer from 8 to 18
var peHistory = []float64{8, 9, 10, 11, 12, 13, 14, 15, 16, 17, 18}

func TestOdds(t *testing.T) {
	assert.InDelta(t, 2.0113571875, Odds, 1e-10)
}

func TestKellyBuy(t *testing.T) {
	// avg roe equal to the expected return keeps the expected sell pe at pe
	got, err := KellyBuy(10, ExpectedEarnRate, peHistory)
	require.NoError(t, err)

	// 10 sits at the 20th percentile, so the win rate is 0.8
	want := (Odds*0.8 - 0.2) / Odds
	assert.InDelta(t, want, got, 1e-12)
}

func TestKellyBuy_ExpensiveClampsToZero(t *testing.T) {
	// a low roe pushes the expected sell pe far above history: win rate 0
	got, err := KellyBuy(17, 0.01, peHistory)
	require.NoError(t, err)
	assert.Equal(t, 0.0, got)
}

func TestKellyBuy_NeverNegative(t *testing.T) {
	for _, pe := range []float64{0.5, 5, 8, 12, 18, 40, 200} {
		for _, roe := range []float64{-0.5, -0.1, 0, 0.05, 0.12, 0.3, 1.5} {
			t.Run(fmt.Sprintf("pe_%.1f_roe_%.2f", pe, roe), func(t *testing.T) {
				got, err := KellyBuy(pe, roe, peHistory)
				require.NoError(t, err)
				assert.GreaterOrEqual(t, got, 0.0)
				assert.LessOrEqual(t, got, 1.0)
			})
		}
	}
}

func TestKellyBuy_Errors(t *testing.T) {
	_, err := KellyBuy(10, 0.1, nil)
	assert.ErrorIs(t, err, contracts.ErrInsufficientHistory)

	_, err = KellyBuy(0, 0.1, peHistory)
	assert.ErrorIs(t, err, contracts.ErrInvalidInput)

	_, err = KellyBuy(10, -1, peHistory)
	assert.ErrorIs(t, err, contracts.ErrInvalidInput)
}

func TestKellySell(t *testing.T) {
	tests := []struct {
		peQuantile float64
		want       float64
	}{
		{0.0, 0},
		{0.5, 0},
		{0.6999, 0},
		{0.70, -0.05},
		{0.75, -0.05},
		{0.80, -0.10},
		{0.82, -0.10},
		{0.85, -0.30},
		{0.90, -0.50},
		{0.94, -0.50},
		{0.95, -0.70},
		{0.98, -0.70},
		{0.99, -1.00},
		{0.999, -1.00},
		{1.0, -1.00},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("q_%.4f", tt.peQuantile), func(t *testing.T) {
			assert.Equal(t, tt.want, KellySell(tt.peQuantile))
		})
	}
}
