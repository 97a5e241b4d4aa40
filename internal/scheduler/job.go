package scheduler

import (
	"context"
	"time"
)

// DefaultHistoryDepth keeps a year of runs of a weekly job
const DefaultHistoryDepth = 52

// Job represents a scheduled job
// ⭐ SSOT: 스케줄 작업 인터페이스는 여기서만 정의
type Job interface {
	// Name returns the job name
	Name() string

	// Run executes the job
	Run(ctx context.Context) error

	// Schedule returns the cron schedule expression, seconds first
	// Examples: "0 0 10 * * 2" (Tuesday 10:00)
	//           "0 30 18 * * 0-4" (the evening before each weekday)
	Schedule() string
}

// JobResult is one run of a job, retries included
type JobResult struct {
	JobName   string        `json:"job_name"`
	StartTime time.Time     `json:"start_time"`
	EndTime   time.Time     `json:"end_time"`
	Duration  time.Duration `json:"duration"`
	Attempts  int           `json:"attempts"`
	Success   bool          `json:"success"`
	Error     string        `json:"error,omitempty"`
}

// JobHistory holds the most recent runs of one job, oldest first
type JobHistory struct {
	Results []JobResult
	depth   int
}

// NewJobHistory keeps up to depth runs (DefaultHistoryDepth if depth <= 0)
func NewJobHistory(depth int) *JobHistory {
	if depth <= 0 {
		depth = DefaultHistoryDepth
	}
	return &JobHistory{depth: depth}
}

// AddResult appends a run and drops the oldest beyond the depth
func (h *JobHistory) AddResult(result JobResult) {
	h.Results = append(h.Results, result)

	depth := h.depth
	if depth <= 0 {
		depth = DefaultHistoryDepth
	}
	if len(h.Results) > depth {
		h.Results = append([]JobResult(nil), h.Results[len(h.Results)-depth:]...)
	}
}

// Clone returns a copy safe to read while the scheduler keeps appending
func (h *JobHistory) Clone() *JobHistory {
	return &JobHistory{
		Results: append([]JobResult(nil), h.Results...),
		depth:   h.depth,
	}
}

// LatestResults returns the latest n runs, oldest first
func (h *JobHistory) LatestResults(n int) []JobResult {
	if n > len(h.Results) {
		n = len(h.Results)
	}
	if n <= 0 {
		return []JobResult{}
	}
	return h.Results[len(h.Results)-n:]
}

// FailedResults returns every failed run kept
func (h *JobHistory) FailedResults() []JobResult {
	failed := make([]JobResult, 0)
	for _, result := range h.Results {
		if !result.Success {
			failed = append(failed, result)
		}
	}
	return failed
}

// LastWith returns the start of the most recent run with the given outcome
func (h *JobHistory) LastWith(success bool) *time.Time {
	for i := len(h.Results) - 1; i >= 0; i-- {
		if h.Results[i].Success == success {
			t := h.Results[i].StartTime
			return &t
		}
	}
	return nil
}

// SuccessRate returns the share of kept runs that succeeded (0.0 - 1.0)
func (h *JobHistory) SuccessRate() float64 {
	if len(h.Results) == 0 {
		return 0.0
	}

	successCount := 0
	for _, result := range h.Results {
		if result.Success {
			successCount++
		}
	}

	return float64(successCount) / float64(len(h.Results))
}
