// Package scheduler runs periodic journal maintenance on cron schedules.
package scheduler

import (
	"context"
	"time"
)

// Job represents a scheduled job.
type Job interface {
	// Name returns the job name
	Name() string

	// Run executes the job
	Run(ctx context.Context) error

	// Schedule returns the cron schedule expression, seconds first.
	// Examples: "0 5 0 * * *" (every day at 00:05:00), "@daily"
	Schedule() string
}

// JobResult represents the result of a job execution.
type JobResult struct {
	JobName   string        `json:"jobName"`
	StartTime time.Time     `json:"startTime"`
	EndTime   time.Time     `json:"endTime"`
	Duration  time.Duration `json:"duration"`
	Attempts  int           `json:"attempts"`
	Success   bool          `json:"success"`
	Error     string        `json:"error,omitempty"`
}

// JobHistory stores the most recent results of one job.
type JobHistory struct {
	Results []JobResult
	limit   int
}

// NewJobHistory creates a history keeping at most limit results.
// A limit below 1 keeps 100.
func NewJobHistory(limit int) *JobHistory {
	if limit < 1 {
		limit = 100
	}
	return &JobHistory{limit: limit}
}

// AddResult adds a job result to history, dropping the oldest beyond the limit.
func (h *JobHistory) AddResult(result JobResult) {
	h.Results = append(h.Results, result)

	if len(h.Results) > h.limit {
		h.Results = h.Results[len(h.Results)-h.limit:]
	}
}

// GetLatestResults returns the latest N results.
func (h *JobHistory) GetLatestResults(n int) []JobResult {
	if n > len(h.Results) {
		n = len(h.Results)
	}

	if n <= 0 {
		return []JobResult{}
	}

	return h.Results[len(h.Results)-n:]
}

// GetFailedResults returns all failed results.
func (h *JobHistory) GetFailedResults() []JobResult {
	failed := make([]JobResult, 0)
	for _, result := range h.Results {
		if !result.Success {
			failed = append(failed, result)
		}
	}
	return failed
}

// GetSuccessRate returns the success rate (0.0 - 1.0).
func (h *JobHistory) GetSuccessRate() float64 {
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

// JobStats represents statistics for a job.
type JobStats struct {
	JobName      string     `json:"jobName"`
	Schedule     string     `json:"schedule"`
	TotalRuns    int        `json:"totalRuns"`
	SuccessCount int        `json:"successCount"`
	FailureCount int        `json:"failureCount"`
	SuccessRate  float64    `json:"successRate"`
	LastRun      *time.Time `json:"lastRun,omitempty"`
	LastSuccess  *time.Time `json:"lastSuccess,omitempty"`
	LastFailure  *time.Time `json:"lastFailure,omitempty"`
	NextRun      *time.Time `json:"nextRun,omitempty"`
}
