package valuation

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/wonny/indexbeta/internal/contracts"
	"github.com/wonny/indexbeta/internal/metrics"
	"github.com/wonny/indexbeta/pkg/logger"
)

// Defaults for history builds
const (
	DefaultInterval     = 7 // trading days between samples
	DefaultConcurrency  = 8
	DefaultFetchTimeout = 10 * time.Second
)

// HistorySource builds the valuation history of an index
type HistorySource interface {
	Build(ctx context.Context, indexID string, begin, end time.Time, interval int) (*contracts.ValuationHistory, error)
}

// HistoryOptions bounds the parallel point-in-time fetches of a build
type HistoryOptions struct {
	Concurrency  int
	FetchTimeout time.Duration
}

// HistoryBuilder samples an index on every interval-th trading day of a
// window
// ⭐ SSOT: 과거 밸류에이션 시계열 생성은 여기서만
type HistoryBuilder struct {
	sampler  *Sampler
	calendar contracts.TradingCalendar
	opts     HistoryOptions
	metrics  *metrics.Registry
	logger   *logger.Logger
}

// NewHistoryBuilder creates a history builder
func NewHistoryBuilder(sampler *Sampler, calendar contracts.TradingCalendar, opts HistoryOptions, m *metrics.Registry, log *logger.Logger) *HistoryBuilder {
	if opts.Concurrency < 1 {
		opts.Concurrency = DefaultConcurrency
	}
	if opts.FetchTimeout <= 0 {
		opts.FetchTimeout = DefaultFetchTimeout
	}
	return &HistoryBuilder{
		sampler:  sampler,
		calendar: calendar,
		opts:     opts,
		metrics:  m,
		logger:   log,
	}
}

// Sampler returns the sampler used for each point-in-time fetch
func (b *HistoryBuilder) Sampler() *Sampler {
	return b.sampler
}

// Build walks the trading days strictly between begin and end and samples
// every interval-th one. Failed fetches count as absent samples; only
// complete samples are kept, in date order.
func (b *HistoryBuilder) Build(ctx context.Context, indexID string, begin, end time.Time, interval int) (*contracts.ValuationHistory, error) {
	if interval <= 0 {
		return nil, fmt.Errorf("%w: interval must be positive, got %d", contracts.ErrInvalidInput, interval)
	}

	startTime := time.Now()
	log := b.logger.WithIndex(indexID)

	days, err := b.calendar.TradingDays(ctx, begin, end)
	if err != nil {
		return nil, fmt.Errorf("get trading days: %w", err)
	}

	sampled := StrideDays(days, begin, end, interval)

	samples := make([]contracts.ValuationSample, len(sampled))
	failed := make([]bool, len(sampled))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(b.opts.Concurrency)

	for i, day := range sampled {
		g.Go(func() error {
			fetchCtx, cancel := context.WithTimeout(gctx, b.opts.FetchTimeout)
			defer cancel()

			sample, err := b.sampler.Sample(fetchCtx, indexID, day)
			if err != nil {
				// the build keeps going with this day absent
				log.WithError(err).WithField("date", day.Format("2006-01-02")).Warn("Valuation fetch failed, sample dropped")
				failed[i] = true
				return nil
			}
			samples[i] = sample
			return nil
		})
	}

	// goroutines never return an error; Wait only joins them
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("build history of %s: %w", indexID, err)
	}

	history := &contracts.ValuationHistory{
		IndexID:  indexID,
		Begin:    begin,
		End:      end,
		Interval: interval,
		Samples:  make([]contracts.ValuationSample, 0, len(sampled)),
	}

	var dropped, failures int
	for i, s := range samples {
		if failed[i] {
			failures++
			continue
		}
		if !s.Complete() {
			dropped++
			continue
		}
		history.Samples = append(history.Samples, s)
	}
	history.Failed = failures

	duration := time.Since(startTime)
	b.metrics.RecordHistory(indexID, history.Len(), dropped, failures, duration)

	log.WithFields(map[string]interface{}{
		"begin":    begin.Format("2006-01-02"),
		"end":      end.Format("2006-01-02"),
		"interval": interval,
		"sampled":  len(sampled),
		"kept":     history.Len(),
		"dropped":  dropped,
		"failed":   failures,
		"duration": duration,
	}).Info("Built valuation history")

	return history, nil
}

// StrideDays keeps the days strictly inside (begin, end) and, counting them
// from 1, returns every interval-th one. Input order is preserved.
func StrideDays(days []time.Time, begin, end time.Time, interval int) []time.Time {
	if interval <= 0 {
		return nil
	}

	out := make([]time.Time, 0, len(days)/interval+1)
	i := 0
	for _, day := range days {
		if !day.After(begin) || !day.Before(end) {
			continue
		}
		i++
		if i%interval != 0 {
			continue
		}
		out = append(out, day)
	}
	return out
}
