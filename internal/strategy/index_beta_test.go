package strategy

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/indexbeta/internal/contracts"
	"github.com/wonny/indexbeta/internal/metrics"
	"github.com/wonny/indexbeta/internal/position"
	"github.com/wonny/indexbeta/pkg/logger"
)

type fakeSampler struct {
	sample contracts.ValuationSample
	err    error
}

func (f *fakeSampler) Sample(_ context.Context, _ string, date time.Time) (contracts.ValuationSample, error) {
	s := f.sample
	s.Date = date
	return s, f.err
}

type fakeHistory struct {
	samples []contracts.ValuationSample
	err     error

	calls    int
	begin    time.Time
	end      time.Time
	interval int
}

func (f *fakeHistory) Build(_ context.Context, indexID string, begin, end time.Time, interval int) (*contracts.ValuationHistory, error) {
	f.calls++
	f.begin, f.end, f.interval = begin, end, interval
	if f.err != nil {
		return nil, f.err
	}
	return &contracts.ValuationHistory{IndexID: indexID, Begin: begin, End: end, Interval: interval, Samples: f.samples}, nil
}

// pe 8..18, pb 0.8..1.8, roe 0.1
func weeklyHistory() []contracts.ValuationSample {
	out := make([]contracts.ValuationSample, 0, 11)
	start := time.Date(2019, 1, 8, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 11; i++ {
		pe := float64(8 + i)
		pb := float64(8+i) / 10.0
		out = append(out, contracts.ValuationSample{
			Date: start.AddDate(0, 0, 7*i), PE: pe, PB: pb, ROE: pb / pe, HasPE: true, HasPB: true,
		})
	}
	return out
}

func complete(pe, pb float64) contracts.ValuationSample {
	return contracts.ValuationSample{PE: pe, PB: pb, ROE: pb / pe, HasPE: true, HasPB: true}
}

var baseDate = time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC)

func newTestStrategy(s Sampler, h *fakeHistory, m *metrics.Registry) *IndexBeta {
	return NewIndexBeta(s, h, Params{RiskFreeRate: 0.035, Names: map[string]string{"000300.XSHG": "CSI 300"}}, m, logger.Nop())
}

func TestIndexBeta_Evaluate(t *testing.T) {
	history := &fakeHistory{samples: weeklyHistory()}
	m := metrics.New()
	s := newTestStrategy(&fakeSampler{sample: complete(10, 1.0)}, history, m)

	d, err := s.Evaluate(context.Background(), "000300.XSHG", baseDate)
	require.NoError(t, err)

	assert.NotEmpty(t, d.ID)
	assert.Equal(t, "000300.XSHG", d.IndexID)
	assert.Equal(t, baseDate, d.Date)
	assert.Equal(t, 10.0, d.PE)
	assert.Equal(t, 1.0, d.PB)
	assert.InDelta(t, 0.2, d.PEQuantile, 1e-12)
	assert.InDelta(t, 0.2, d.PBQuantile, 1e-9)
	assert.InDelta(t, 0.1, d.AvgROE, 1e-12)
	assert.Equal(t, 11, d.SampleCount)
	assert.Equal(t, 0.035, d.RiskFreeRate)
	assert.Equal(t, contracts.RuleGraduatedBuy, d.Rule)
	assert.Empty(t, d.Reason)

	want, err := position.KellyBuy(10, d.AvgROE, (&contracts.ValuationHistory{Samples: history.samples}).PEs())
	require.NoError(t, err)
	assert.InDelta(t, want, d.Position, 1e-12)
	assert.Greater(t, d.Position, 0.0)

	// default window: five years back, weekly
	assert.Equal(t, baseDate.AddDate(0, 0, -DefaultLookbackDays), history.begin)
	assert.Equal(t, baseDate, history.end)
	assert.Equal(t, 7, history.interval)
}

func TestIndexBeta_Evaluate_SystemicSell(t *testing.T) {
	s := newTestStrategy(&fakeSampler{sample: complete(60, 1.0)}, &fakeHistory{samples: weeklyHistory()}, nil)

	d, err := s.Evaluate(context.Background(), "000905.XSHG", baseDate)
	require.NoError(t, err)
	assert.Equal(t, -1.0, d.Position)
	assert.Equal(t, contracts.RuleSystemicSell, d.Rule)
	assert.Equal(t, 1.0, d.PEQuantile)
}

func TestIndexBeta_Evaluate_EmptyHistoryHolds(t *testing.T) {
	history := &fakeHistory{}
	s := newTestStrategy(&fakeSampler{sample: complete(12, 1.3)}, history, nil)

	d, err := s.Evaluate(context.Background(), "000300.XSHG", baseDate)
	require.NoError(t, err)

	assert.Equal(t, 0.0, d.Position)
	assert.Equal(t, contracts.RuleHold, d.Rule)
	assert.Equal(t, contracts.ReasonInsufficientHistory, d.Reason)
	assert.Equal(t, 0, d.SampleCount)
	assert.Equal(t, 12.0, d.PE)
}

func TestIndexBeta_Evaluate_NoCurrentData(t *testing.T) {
	history := &fakeHistory{samples: weeklyHistory()}
	s := newTestStrategy(&fakeSampler{}, history, nil)

	d, err := s.Evaluate(context.Background(), "000300.XSHG", baseDate)
	require.NoError(t, err)

	assert.Equal(t, 0.0, d.Position)
	assert.Equal(t, contracts.RuleHold, d.Rule)
	assert.Equal(t, contracts.ReasonNoData, d.Reason)
	assert.Equal(t, 0, history.calls, "history is not built without a current sample")
}

func TestIndexBeta_Evaluate_Errors(t *testing.T) {
	errDown := errors.New("provider down")

	s := newTestStrategy(&fakeSampler{err: errDown}, &fakeHistory{}, nil)
	_, err := s.Evaluate(context.Background(), "x", baseDate)
	assert.ErrorIs(t, err, errDown)

	s = newTestStrategy(&fakeSampler{sample: complete(12, 1.3)}, &fakeHistory{err: errDown}, nil)
	_, err = s.Evaluate(context.Background(), "x", baseDate)
	assert.ErrorIs(t, err, errDown)
}

func TestIndexBeta_Evaluate_DefaultsToToday(t *testing.T) {
	history := &fakeHistory{samples: weeklyHistory()}
	s := newTestStrategy(&fakeSampler{sample: complete(12, 1.3)}, history, nil)
	s.now = func() time.Time { return time.Date(2024, 3, 5, 15, 30, 0, 0, time.UTC) }

	d, err := s.Evaluate(context.Background(), "x", time.Time{})
	require.NoError(t, err)
	assert.Equal(t, baseDate, d.Date)
	assert.Equal(t, baseDate, history.end)
}

func TestIndexBeta_Report(t *testing.T) {
	history := &fakeHistory{samples: weeklyHistory()}
	s := newTestStrategy(&fakeSampler{sample: complete(13, 1.3)}, history, nil)

	r, err := s.Report(context.Background(), "000300.XSHG", baseDate)
	require.NoError(t, err)

	assert.Equal(t, "CSI 300", r.Name)
	assert.Equal(t, baseDate, r.Date)

	assert.Equal(t, 13.0, r.PE.Current)
	assert.InDelta(t, 0.5, r.PE.Percentile, 1e-12)
	assert.Equal(t, 11, r.PE.SampleCount)
	assert.Equal(t, 8.0, r.PE.Deciles[0])
	assert.Equal(t, 18.0, r.PE.Deciles[10])

	assert.InDelta(t, 0.5, r.PB.Percentile, 1e-9)

	// eight-year window
	assert.Equal(t, baseDate.AddDate(0, 0, -DefaultReportLookbackDays), history.begin)
}

func TestIndexBeta_Report_Errors(t *testing.T) {
	s := newTestStrategy(&fakeSampler{}, &fakeHistory{samples: weeklyHistory()}, nil)
	_, err := s.Report(context.Background(), "x", baseDate)
	assert.ErrorIs(t, err, contracts.ErrNoData)

	s = newTestStrategy(&fakeSampler{sample: complete(13, 1.3)}, &fakeHistory{}, nil)
	_, err = s.Report(context.Background(), "x", baseDate)
	assert.ErrorIs(t, err, contracts.ErrInsufficientHistory)
}

func TestParamsDefaults(t *testing.T) {
	s := NewIndexBeta(&fakeSampler{}, &fakeHistory{}, Params{}, nil, logger.Nop())
	p := s.Params()

	assert.Equal(t, DefaultLookbackDays, p.LookbackDays)
	assert.Equal(t, DefaultReportLookbackDays, p.ReportLookbackDays)
	assert.Equal(t, 7, p.Interval)
	assert.Equal(t, position.DefaultRiskFreeRate, p.RiskFreeRate)
}
