package scheduler

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"trade-journal/internal/errors"
	"trade-journal/internal/models"
	"trade-journal/internal/scoring"
)

// SummaryRecomputer rebuilds a stored period summary.
type SummaryRecomputer interface {
	RecomputeSummary(ctx context.Context, userID string, periodType models.PeriodType, ref time.Time) (*models.PeriodSummary, error)
}

// SummaryJob recomputes one period type for a set of users. Each run
// refreshes the window that just closed and the window in progress.
type SummaryJob struct {
	recomputer SummaryRecomputer
	period     models.PeriodType
	users      []string
	schedule   string
	now        func() time.Time
	logger     zerolog.Logger
}

// NewSummaryJob creates a summary job.
func NewSummaryJob(rec SummaryRecomputer, period models.PeriodType, schedule string, users []string, logger zerolog.Logger) *SummaryJob {
	return &SummaryJob{
		recomputer: rec,
		period:     period,
		users:      users,
		schedule:   schedule,
		now:        func() time.Time { return time.Now().UTC() },
		logger:     logger,
	}
}

// Name returns the job name.
func (j *SummaryJob) Name() string {
	return "summary_" + string(j.period)
}

// Schedule returns the cron spec.
func (j *SummaryJob) Schedule() string {
	return j.schedule
}

// Run recomputes the previous and current window for every user. A failing
// user does not stop the others; all failures are returned together.
func (j *SummaryJob) Run(ctx context.Context) error {
	now := j.now()
	start, _, err := scoring.PeriodWindow(j.period, now)
	if err != nil {
		return err
	}
	refs := []time.Time{start.Add(-time.Nanosecond), now}

	var errs []error
	for _, user := range j.users {
		for _, ref := range refs {
			if err := ctx.Err(); err != nil {
				return err
			}
			sum, err := j.recomputer.RecomputeSummary(ctx, user, j.period, ref)
			if err != nil {
				errs = append(errs, errors.Wrapf(err, "%s summary for %s", j.period, user))
				continue
			}
			j.logger.Debug().
				Str("user_id", user).
				Str("period_type", string(j.period)).
				Time("window_start", sum.WindowStart).
				Int("trades", sum.TotalTrades).
				Msg("Summary refreshed")
		}
	}
	return errors.Join(errs...)
}

// SummaryJobs builds one job per configured period type, in ascending
// period length. Schedules for unknown period types are skipped.
func SummaryJobs(rec SummaryRecomputer, users []string, schedules map[string]string, logger zerolog.Logger) []Job {
	jobs := make([]Job, 0, len(schedules))
	for _, pt := range models.PeriodTypes {
		spec, ok := schedules[string(pt)]
		if !ok || spec == "" {
			continue
		}
		jobs = append(jobs, NewSummaryJob(rec, pt, spec, users, logger))
	}
	return jobs
}
