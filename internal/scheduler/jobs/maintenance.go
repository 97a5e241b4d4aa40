package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/wonny/indexbeta/internal/valuation"
	"github.com/wonny/indexbeta/pkg/logger"
)

// DefaultWarmupSchedule is 18:30 Sunday to Thursday: the evening before
// each weekday
const DefaultWarmupSchedule = "0 30 18 * * 0-4"

// WarmupWindow is what a warmup pre-builds: the lookback of each index
type WarmupWindow struct {
	Indices      []string
	LookbackDays int
	Interval     int
}

// HistoryWarmupJob pre-builds the histories the next day's decisions ask
// for, so that the morning rebalance hits the cache
type HistoryWarmupJob struct {
	history  valuation.HistorySource
	window   WarmupWindow
	location *time.Location
	logger   *logger.Logger
	now      func() time.Time
}

// NewHistoryWarmupJob creates a history warmup job
func NewHistoryWarmupJob(history valuation.HistorySource, window WarmupWindow, loc *time.Location, log *logger.Logger) *HistoryWarmupJob {
	if loc == nil {
		loc = time.Local
	}
	return &HistoryWarmupJob{
		history:  history,
		window:   window,
		location: loc,
		logger:   log,
		now:      time.Now,
	}
}

// Name returns the job name
func (j *HistoryWarmupJob) Name() string {
	return "history_warmup"
}

// Schedule returns the cron schedule
func (j *HistoryWarmupJob) Schedule() string {
	return DefaultWarmupSchedule
}

// Run builds, for every index, the lookback window ending tomorrow. That is
// the window a decision based on tomorrow's date requests; today's close
// is inside it. A failed index is logged; the job fails only if all of
// them fail.
func (j *HistoryWarmupJob) Run(ctx context.Context) error {
	now := j.now().In(j.location)
	end := time.Date(now.Year(), now.Month(), now.Day()+1, 0, 0, 0, 0, j.location)
	begin := end.AddDate(0, 0, -j.window.LookbackDays)

	j.logger.Debug("Starting history warmup")

	failed := 0
	for _, indexID := range j.window.Indices {
		h, err := j.history.Build(ctx, indexID, begin, end, j.window.Interval)
		if err != nil {
			failed++
			j.logger.WithIndex(indexID).WithError(err).Warn("History warmup failed")
			continue
		}
		j.logger.WithIndex(indexID).WithField("samples", h.Len()).Debug("History warmed")
	}

	if len(j.window.Indices) > 0 && failed == len(j.window.Indices) {
		return fmt.Errorf("history warmup failed for all %d indices", failed)
	}

	j.logger.WithField("indices", len(j.window.Indices)).Info("History warmup completed")
	return nil
}
