package scheduler

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"trade-journal/pkg/utils"
)

// Scheduler manages scheduled jobs.
type Scheduler struct {
	cron    *cron.Cron
	logger  zerolog.Logger
	jobs    map[string]Job
	entries map[string]cron.EntryID
	history map[string]*JobHistory
	mu      sync.RWMutex

	historySize int
	maxRetries  int
	retryDelay  time.Duration
	jobTimeout  time.Duration
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithRetries sets how often a failed run is retried and the pause between tries.
func WithRetries(maxRetries int, delay time.Duration) Option {
	return func(s *Scheduler) {
		s.maxRetries = maxRetries
		s.retryDelay = delay
	}
}

// WithHistorySize sets how many results are kept per job.
func WithHistorySize(n int) Option {
	return func(s *Scheduler) {
		s.historySize = n
	}
}

// WithJobTimeout bounds a single run, retries included.
func WithJobTimeout(d time.Duration) Option {
	return func(s *Scheduler) {
		s.jobTimeout = d
	}
}

// New creates a new scheduler. Schedules carry a leading seconds field.
func New(logger zerolog.Logger, opts ...Option) *Scheduler {
	s := &Scheduler{
		cron:        cron.New(cron.WithSeconds()),
		logger:      logger.With().Str("component", "scheduler").Logger(),
		jobs:        make(map[string]Job),
		entries:     make(map[string]cron.EntryID),
		history:     make(map[string]*JobHistory),
		historySize: 100,
		maxRetries:  2,
		retryDelay:  time.Minute,
		jobTimeout:  10 * time.Minute,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// AddJob adds a job to the scheduler.
func (s *Scheduler) AddJob(job Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	jobName := job.Name()

	if _, exists := s.jobs[jobName]; exists {
		return fmt.Errorf("job %s already exists", jobName)
	}

	id, err := s.cron.AddFunc(job.Schedule(), func() {
		s.runJob(context.Background(), job)
	})
	if err != nil {
		return fmt.Errorf("failed to schedule job %s: %w", jobName, err)
	}

	s.jobs[jobName] = job
	s.entries[jobName] = id
	s.history[jobName] = NewJobHistory(s.historySize)

	s.logger.Info().
		Str("job", jobName).
		Str("schedule", job.Schedule()).
		Msg("Job added to scheduler")

	return nil
}

// RemoveJob removes a job from the scheduler. Its history is kept.
func (s *Scheduler) RemoveJob(jobName string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.jobs[jobName]; !exists {
		return fmt.Errorf("job %s not found", jobName)
	}

	s.cron.Remove(s.entries[jobName])
	delete(s.jobs, jobName)
	delete(s.entries, jobName)
	s.logger.Info().Str("job", jobName).Msg("Job removed from scheduler")

	return nil
}

// Start starts the scheduler.
func (s *Scheduler) Start() {
	s.logger.Info().Int("jobs", len(s.Jobs())).Msg("Starting scheduler")
	s.cron.Start()
}

// Stop stops the scheduler and waits for running jobs.
func (s *Scheduler) Stop() {
	s.logger.Info().Msg("Stopping scheduler")
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.logger.Info().Msg("Scheduler stopped")
}

// RunNow runs a job immediately, outside of its schedule, and returns the result.
func (s *Scheduler) RunNow(ctx context.Context, jobName string) (JobResult, error) {
	s.mu.RLock()
	job, exists := s.jobs[jobName]
	s.mu.RUnlock()

	if !exists {
		return JobResult{}, fmt.Errorf("job %s not found", jobName)
	}

	return s.runJob(ctx, job), nil
}

// runJob executes a job with retry logic and records the result.
func (s *Scheduler) runJob(ctx context.Context, job Job) JobResult {
	jobName := job.Name()
	logger := s.logger.With().Str("job", jobName).Logger()
	startTime := time.Now()

	logger.Info().Msg("Job started")

	if s.jobTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.jobTimeout)
		defer cancel()
	}

	attempts := 0
	err := utils.Retry(ctx, utils.RetryConfig{
		MaxAttempts:   s.maxRetries + 1,
		InitialDelay:  s.retryDelay,
		MaxDelay:      s.retryDelay,
		BackoffFactor: 1,
		OnRetry: func(attempt int, err error, delay time.Duration) {
			logger.Warn().
				Int("attempt", attempt).
				Dur("retry_in", delay).
				Err(err).
				Msg("Job execution failed, retrying")
		},
	}, func() error {
		attempts++
		return job.Run(ctx)
	})

	endTime := time.Now()
	result := JobResult{
		JobName:   jobName,
		StartTime: startTime,
		EndTime:   endTime,
		Duration:  endTime.Sub(startTime),
		Attempts:  attempts,
		Success:   err == nil,
	}
	if err != nil {
		result.Error = err.Error()
	}

	s.mu.Lock()
	if history, exists := s.history[jobName]; exists {
		history.AddResult(result)
	}
	s.mu.Unlock()

	if err == nil {
		logger.Info().Dur("duration", result.Duration).Int("attempts", attempts).Msg("Job completed successfully")
	} else {
		logger.Error().Dur("duration", result.Duration).Int("attempts", attempts).Err(err).Msg("Job failed after all retries")
	}
	return result
}

// GetJobHistory returns a copy of the history of a job.
func (s *Scheduler) GetJobHistory(jobName string) ([]JobResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	history, exists := s.history[jobName]
	if !exists {
		return nil, fmt.Errorf("job %s not found", jobName)
	}

	out := make([]JobResult, len(history.Results))
	copy(out, history.Results)
	return out, nil
}

// Jobs returns the names of all registered jobs, sorted.
func (s *Scheduler) Jobs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	jobs := make([]string, 0, len(s.jobs))
	for jobName := range s.jobs {
		jobs = append(jobs, jobName)
	}
	sort.Strings(jobs)

	return jobs
}

// GetJobStats returns statistics for all registered jobs.
func (s *Scheduler) GetJobStats() map[string]JobStats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := make(map[string]JobStats, len(s.jobs))

	for jobName, job := range s.jobs {
		history := s.history[jobName]
		failedResults := history.GetFailedResults()

		st := JobStats{
			JobName:      jobName,
			Schedule:     job.Schedule(),
			TotalRuns:    len(history.Results),
			SuccessCount: len(history.Results) - len(failedResults),
			FailureCount: len(failedResults),
			SuccessRate:  history.GetSuccessRate(),
		}

		for i := len(history.Results) - 1; i >= 0; i-- {
			r := history.Results[i]
			if st.LastRun == nil {
				st.LastRun = &r.StartTime
			}
			if r.Success && st.LastSuccess == nil {
				st.LastSuccess = &r.StartTime
			}
			if !r.Success && st.LastFailure == nil {
				st.LastFailure = &r.StartTime
			}
		}

		if next := s.cron.Entry(s.entries[jobName]).Next; !next.IsZero() {
			st.NextRun = &next
		}

		stats[jobName] = st
	}

	return stats
}
