package cli

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"trade-journal/internal/models"
)

// addSummaryCommands adds period summary and bulk maintenance commands.
func addSummaryCommands(rootCmd *cobra.Command, app *App) {
	cmd := &cobra.Command{
		Use:   "summary",
		Short: "Period summaries",
		Long: `Roll a trader's closed trades up into daily, weekly, monthly, quarterly,
half-year or yearly summaries.`,
	}

	cmd.AddCommand(newSummaryRecomputeCmd(app))
	cmd.AddCommand(newSummaryShowCmd(app))
	cmd.AddCommand(newSummaryReviewCmd(app))

	rootCmd.AddCommand(cmd)
	rootCmd.AddCommand(newRescoreCmd(app))
}

// summaryFlags selects one summary window.
type summaryFlags struct {
	user   string
	period string
	date   string
}

func (f *summaryFlags) register(cmd *cobra.Command) {
	names := make([]string, len(models.PeriodTypes))
	for i, p := range models.PeriodTypes {
		names[i] = string(p)
	}
	cmd.Flags().StringVar(&f.user, "user", "", "trader")
	cmd.Flags().StringVar(&f.period, "period", string(models.PeriodDaily), "period type: "+strings.Join(names, ", "))
	cmd.Flags().StringVar(&f.date, "date", "", "any date inside the window, YYYY-MM-DD (default today)")
	cmd.MarkFlagRequired("user")
}

func (f *summaryFlags) window() (models.PeriodType, time.Time, error) {
	ref := time.Now().UTC()
	if f.date != "" {
		t, err := parseTime("date", f.date)
		if err != nil {
			return "", time.Time{}, err
		}
		ref = t
	}
	return models.PeriodType(strings.ToLower(f.period)), ref, nil
}

func newSummaryRecomputeCmd(app *App) *cobra.Command {
	var flags summaryFlags

	cmd := &cobra.Command{
		Use:   "recompute",
		Short: "Rebuild a period summary from the trades closed in its window",
		Example: `  journal summary recompute --user u1 --period weekly
  journal summary recompute --user u1 --period monthly --date 2026-09-15`,
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			period, ref, err := flags.window()
			if err != nil {
				return err
			}
			svc, err := app.Journal()
			if err != nil {
				return err
			}
			ctx, cancel := commandContext()
			defer cancel()

			summary, err := svc.RecomputeSummary(ctx, flags.user, period, ref)
			if err != nil {
				output.Error("Failed to recompute summary: %v", err)
				return err
			}
			if output.IsJSON() {
				return output.JSON(summary)
			}
			printSummary(output, summary)
			return nil
		},
	}

	flags.register(cmd)
	return cmd
}

func newSummaryShowCmd(app *App) *cobra.Command {
	var flags summaryFlags

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show a stored period summary",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			period, ref, err := flags.window()
			if err != nil {
				return err
			}
			svc, err := app.Journal()
			if err != nil {
				return err
			}
			ctx, cancel := commandContext()
			defer cancel()

			summary, err := svc.GetSummary(ctx, flags.user, period, ref)
			if err != nil {
				output.Error("Failed to load summary: %v", err)
				output.Dim("Build it with: journal summary recompute --user %s --period %s", flags.user, period)
				return err
			}
			if output.IsJSON() {
				return output.JSON(summary)
			}
			printSummary(output, summary)
			return nil
		},
	}

	flags.register(cmd)
	return cmd
}

func newSummaryReviewCmd(app *App) *cobra.Command {
	var flags summaryFlags

	cmd := &cobra.Command{
		Use:   "review",
		Short: "Ask the coach to review a stored period summary",
		Long: `Send the aggregate figures of a stored summary to the configured LLM and
print its narrative review. Requires [coach] enabled = true and OPENAI_API_KEY.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			period, ref, err := flags.window()
			if err != nil {
				return err
			}
			c, err := app.ReviewCoach()
			if err != nil {
				output.Error("Coach unavailable: %v", err)
				return err
			}
			svc, err := app.Journal()
			if err != nil {
				return err
			}
			ctx, cancel := commandContext()
			defer cancel()

			summary, err := svc.GetSummary(ctx, flags.user, period, ref)
			if err != nil {
				output.Error("Failed to load summary: %v", err)
				return err
			}
			review, err := c.ReviewPeriod(ctx, summary)
			if err != nil {
				output.Error("Review failed: %v", err)
				return err
			}
			if output.IsJSON() {
				return output.JSON(review)
			}

			output.Bold("Review of %s %s summary, %s to %s", review.UserID, review.PeriodType,
				FormatDate(review.WindowStart), FormatDate(review.WindowEnd))
			output.Dim("Model: %s", review.Model)
			output.Println()
			output.Println(review.Narrative)
			return nil
		},
	}

	flags.register(cmd)
	return cmd
}

func newRescoreCmd(app *App) *cobra.Command {
	var userID string

	cmd := &cobra.Command{
		Use:   "rescore",
		Short: "Recompute the scores of every trade of a trader",
		Long: `Rescore every trade of a trader with the current thresholds. Useful after
changing the [scoring] section of the config.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			svc, err := app.Journal()
			if err != nil {
				return err
			}
			ctx, cancel := commandContext()
			defer cancel()

			result, err := svc.RescoreAll(ctx, userID)
			if result != nil && output.IsJSON() {
				if jsonErr := output.JSON(result); jsonErr != nil {
					return jsonErr
				}
			}
			if err != nil {
				output.Error("Rescore failed: %v", err)
				return err
			}
			if !output.IsJSON() {
				output.Success("Rescored %d of %d trades in %s", result.Scored, result.Total, FormatDuration(result.Duration))
				if result.Failed > 0 {
					output.Warning("%d trades failed", result.Failed)
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&userID, "user", "", "trader")
	cmd.MarkFlagRequired("user")

	return cmd
}

func printSummary(output *Output, s *models.PeriodSummary) {
	lines := []string{
		fmt.Sprintf("Window:         %s to %s", FormatDate(s.WindowStart), FormatDate(s.WindowEnd)),
		fmt.Sprintf("Trades:         %d (%d won, %d lost, %d breakeven)", s.TotalTrades, s.WinCount, s.LossCount, s.BreakevenCount),
		fmt.Sprintf("Win rate:       %s", FormatPercent(s.WinRate)),
		fmt.Sprintf("Total P&L:      %s", output.FormatPnL(s.TotalPnL)),
		fmt.Sprintf("Expectancy:     %s", output.FormatPnL(s.Expectancy)),
		fmt.Sprintf("Rule adherence: %s", FormatPercent(s.RuleAdherence)),
		fmt.Sprintf("Avg decision:   %.1f", s.AvgDecisionScore),
	}
	if s.BestStrategy != "" {
		lines = append(lines, fmt.Sprintf("Best strategy:  %s", s.BestStrategy))
	}
	if s.WorstStrategy != "" {
		lines = append(lines, fmt.Sprintf("Worst strategy: %s", s.WorstStrategy))
	}
	if s.BestEntryModel != "" {
		lines = append(lines, fmt.Sprintf("Best entry:     %s", s.BestEntryModel))
	}
	output.Box(fmt.Sprintf("%s summary %s", s.PeriodType, s.UserID), lines)

	if len(s.EmotionalPatterns) == 0 {
		return
	}
	emotions := make([]string, 0, len(s.EmotionalPatterns))
	for e := range s.EmotionalPatterns {
		emotions = append(emotions, e)
	}
	sort.Strings(emotions)

	output.Println()
	table := NewTable(output, "Emotion", "Trades", "Wins", "P&L")
	for _, e := range emotions {
		p := s.EmotionalPatterns[e]
		table.AddRow(e, fmt.Sprintf("%d", p.Count), fmt.Sprintf("%d", p.Wins), output.FormatPnL(p.TotalPnL))
	}
	table.Render()
}
