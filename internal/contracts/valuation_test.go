package contracts

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestValuationSample_Complete(t *testing.T) {
	assert.True(t, ValuationSample{HasPE: true, HasPB: true}.Complete())
	assert.False(t, ValuationSample{HasPE: true}.Complete())
	assert.False(t, ValuationSample{}.Complete())
}

func TestValuationHistory_Columns(t *testing.T) {
	d := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	h := &ValuationHistory{
		Samples: []ValuationSample{
			{Date: d, PE: 10, PB: 1.2, ROE: 0.12, HasPE: true, HasPB: true},
			{Date: d.AddDate(0, 0, 7), PE: 12, PB: 1.5, ROE: 0.125, HasPE: true, HasPB: true},
		},
	}

	assert.Equal(t, 2, h.Len())
	assert.False(t, h.Empty())
	assert.Equal(t, []float64{10, 12}, h.PEs())
	assert.Equal(t, []float64{1.2, 1.5}, h.PBs())
	assert.Equal(t, []float64{0.12, 0.125}, h.ROEs())
}

func TestValuationHistory_Nil(t *testing.T) {
	var h *ValuationHistory
	assert.True(t, h.Empty())
	assert.Empty(t, h.PEs())
}

func TestPositionDecision_Direction(t *testing.T) {
	assert.True(t, (&PositionDecision{Position: 0.4}).IsBuy())
	assert.True(t, (&PositionDecision{Position: -0.05}).IsSell())

	hold := &PositionDecision{}
	assert.False(t, hold.IsBuy())
	assert.False(t, hold.IsSell())
}
