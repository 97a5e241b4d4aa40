package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/wonny/indexbeta/internal/rebalance"
	"github.com/wonny/indexbeta/pkg/logger"
)

// DefaultRebalanceSchedule is Tuesday 10:00
const DefaultRebalanceSchedule = "0 0 10 * * 2"

// Runner runs one rebalance of the universe
type Runner interface {
	Run(ctx context.Context, baseDate time.Time) (*rebalance.Result, error)
}

// RebalanceJob rebalances the universe on its schedule
// ⭐ SSOT: 주간 리밸런싱 스케줄은 이 Job에서만
type RebalanceJob struct {
	runner   Runner
	schedule string
	location *time.Location
	logger   *logger.Logger
	now      func() time.Time
}

// NewRebalanceJob creates a rebalance job. An empty schedule falls back to
// DefaultRebalanceSchedule; a nil location to time.Local.
func NewRebalanceJob(runner Runner, schedule string, loc *time.Location, log *logger.Logger) *RebalanceJob {
	if schedule == "" {
		schedule = DefaultRebalanceSchedule
	}
	if loc == nil {
		loc = time.Local
	}
	return &RebalanceJob{
		runner:   runner,
		schedule: schedule,
		location: loc,
		logger:   log,
		now:      time.Now,
	}
}

// Name returns the job name
func (j *RebalanceJob) Name() string {
	return "weekly_rebalance"
}

// Schedule returns the cron schedule
func (j *RebalanceJob) Schedule() string {
	return j.schedule
}

// Run rebalances as of today in the job's location
func (j *RebalanceJob) Run(ctx context.Context) error {
	today := j.now().In(j.location)
	j.logger.WithField("date", today.Format("2006-01-02")).Info("Starting scheduled rebalance")

	result, err := j.runner.Run(ctx, today)
	if err != nil {
		return fmt.Errorf("rebalance: %w", err)
	}

	j.logger.WithFields(map[string]interface{}{
		"orders": len(result.Orders),
		"failed": len(result.Failed),
	}).Info("Scheduled rebalance completed")

	return nil
}
