package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"trade-journal/internal/api"
	"trade-journal/internal/coach"
	"trade-journal/internal/errors"
	"trade-journal/internal/resilience"
	"trade-journal/internal/scheduler"
)

func newServeCmd(app *App) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Long: `Serve the journal over HTTP. When [scheduler] is enabled, period summaries
of the configured users are recomputed on their cron schedules while the
server runs. Summary reviews are served when the coach is configured.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := app.Journal()
			if err != nil {
				return err
			}
			cfg := app.Config
			if addr != "" {
				cfg.Server.Addr = addr
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			var reviewCoach *coach.Coach
			if cfg.Coach.Enabled {
				reviewCoach, err = app.ReviewCoach()
				if err != nil && !errors.Is(err, errors.ErrCoachUnavailable) {
					return err
				}
				if err != nil {
					app.Logger.Warn().Err(err).Msg("Coach unavailable, reviews disabled")
				}
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			if cfg.Scheduler.Enabled {
				sched := scheduler.New(app.Logger, scheduler.WithHistorySize(cfg.Scheduler.MaxHistory))
				for _, job := range scheduler.SummaryJobs(svc, cfg.Scheduler.Users, cfg.Scheduler.Schedules, app.Logger) {
					if err := sched.AddJob(job); err != nil {
						return err
					}
				}
				sched.Start()
				defer sched.Stop()
			}

			health := resilience.NewHealthChecker(cfg.Server.ReadTimeout)
			if pinger, ok := app.Store.(interface{ Ping(context.Context) error }); ok {
				health.Register("database", resilience.DatabaseHealthCheck(pinger.Ping, 250*time.Millisecond))
			}
			if reviewCoach != nil {
				health.Register("coach", resilience.CircuitHealthCheck(reviewCoach.Breaker()))
			}

			router := api.NewRouter(api.NewHandler(svc, reviewCoach, api.WithHealthChecker(health)), app.Logger)
			server := api.NewServer(cfg.Server, app.Logger, router)
			return server.Run(ctx)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides server.addr)")

	return cmd
}
