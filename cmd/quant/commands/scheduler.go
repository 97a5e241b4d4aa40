package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/wonny/indexbeta/internal/scheduler"
	"github.com/wonny/indexbeta/internal/scheduler/jobs"
)

// schedulerCmd represents the scheduler command
var schedulerCmd = &cobra.Command{
	Use:   "scheduler",
	Short: "스케줄러 관리",
	Long: `스케줄러를 시작하거나 작업을 즉시 실행합니다.

Subcommands:
  start   - 스케줄러 시작
  list    - 등록된 작업 목록과 다음 실행 시각
  run     - 특정 작업 즉시 실행 (완료까지 대기)

Example:
  go run ./cmd/quant scheduler start
  go run ./cmd/quant scheduler list
  go run ./cmd/quant scheduler run weekly_rebalance`,
}

var (
	schedulerStartCmd = &cobra.Command{
		Use:   "start",
		Short: "스케줄러 시작",
		Long: `스케줄러를 시작하고 등록된 모든 작업을 스케줄합니다.

등록되는 작업:
- weekly_rebalance: 전략 설정의 schedule.rebalance (기본 화요일 10시)
- history_warmup: 일~목 18:30 (다음 날 밸류에이션 이력 캐시 예열, Redis 사용 시)

스케줄러는 Ctrl+C로 종료할 수 있습니다.`,
		RunE: runScheduler,
	}

	schedulerListCmd = &cobra.Command{
		Use:   "list",
		Short: "등록된 작업 목록",
		RunE:  listJobs,
	}

	schedulerRunCmd = &cobra.Command{
		Use:   "run [job_name]",
		Short: "특정 작업 즉시 실행",
		Args:  cobra.ExactArgs(1),
		RunE:  runJob,
	}
)

func init() {
	rootCmd.AddCommand(schedulerCmd)
	schedulerCmd.AddCommand(schedulerStartCmd)
	schedulerCmd.AddCommand(schedulerListCmd)
	schedulerCmd.AddCommand(schedulerRunCmd)
}

func runScheduler(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	sched, err := initScheduler(a)
	if err != nil {
		return fmt.Errorf("init scheduler: %w", err)
	}

	sched.Start()

	out := cmd.OutOrStdout()
	PrintSuccess(out, "Scheduler started")
	printJobs(cmd, sched)
	fmt.Fprintln(out, "\nPress Ctrl+C to stop")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()

	sched.Stop()
	return nil
}

func listJobs(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	sched, err := initScheduler(a)
	if err != nil {
		return fmt.Errorf("init scheduler: %w", err)
	}

	// entries only get a next time once the cron runner is started
	sched.Start()
	defer sched.Stop()

	printJobs(cmd, sched)
	return nil
}

func runJob(cmd *cobra.Command, args []string) error {
	jobName := args[0]

	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	sched, err := initScheduler(a)
	if err != nil {
		return fmt.Errorf("init scheduler: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	fmt.Fprintf(cmd.OutOrStdout(), "Running job: %s\n", jobName)
	if err := sched.RunJobNow(ctx, jobName); err != nil {
		return fmt.Errorf("run job: %w", err)
	}

	PrintSuccess(cmd.OutOrStdout(), "Job completed")
	return nil
}

func printJobs(cmd *cobra.Command, sched *scheduler.Scheduler) {
	out := cmd.OutOrStdout()
	widths := []int{18, 16, 25}

	PrintTableHeader(out, []string{"job", "schedule", "next run"}, widths)
	stats := sched.GetJobStats()
	for _, name := range sched.GetAllJobs() {
		next := "-"
		if t, err := sched.NextRun(name); err == nil && !t.IsZero() {
			next = t.Format(time.RFC3339)
		}
		PrintTableRow(out, []string{name, stats[name].Schedule, next}, widths)
	}
}

// initScheduler registers the jobs the wiring supports: the rebalance needs
// the portfolio tables, the warmup only pays off with a history cache
func initScheduler(a *app) (*scheduler.Scheduler, error) {
	sched := scheduler.New(scheduler.Options{
		MaxRetries: 3,
		RetryDelay: 1 * time.Minute,
		Location:   a.location,
	}, a.metrics, a.log)

	if rb, err := a.newRebalancer(false); err != nil {
		a.log.WithError(err).Warn("weekly_rebalance not registered")
	} else {
		job := jobs.NewRebalanceJob(rb, a.strategyCfg.Schedule.Rebalance, a.location, a.log)
		if err := sched.AddJob(job); err != nil {
			return nil, err
		}
	}

	if a.redis.Enabled() {
		params := a.indexBeta.Params()
		job := jobs.NewHistoryWarmupJob(a.history, jobs.WarmupWindow{
			Indices:      a.strategyCfg.Universe.IndexIDs(),
			LookbackDays: params.LookbackDays,
			Interval:     params.Interval,
		}, a.location, a.log)
		if err := sched.AddJob(job); err != nil {
			return nil, err
		}
	}

	return sched, nil
}
