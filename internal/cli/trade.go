package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"trade-journal/internal/errors"
	"trade-journal/internal/models"
	"trade-journal/internal/store"
)

var timeLayouts = []string{time.RFC3339, "2006-01-02 15:04", "2006-01-02"}

// addTradeCommands adds trade logging and scoring commands.
func addTradeCommands(rootCmd *cobra.Command, app *App) {
	cmd := &cobra.Command{
		Use:   "trade",
		Short: "Trade logging and scoring",
		Long:  "Log trades, score them and review their score history.",
	}

	cmd.AddCommand(newTradeAddCmd(app))
	cmd.AddCommand(newTradeListCmd(app))
	cmd.AddCommand(newTradeShowCmd(app))
	cmd.AddCommand(newTradeScoreCmd(app))
	cmd.AddCommand(newTradeAnalyzeCmd(app))
	cmd.AddCommand(newTradeHistoryCmd(app))

	rootCmd.AddCommand(cmd)
}

// tradeFlags collects the optional numeric trade fields. Only flags the user
// actually set end up on the trade.
type tradeFlags struct {
	user, pair, direction, outcome      string
	strategy, entryModel, market, notes string
	executionNotes, timeframe           string
	entryTime, exitTime, drift, rules   string
	entry, exit, volume, stop, target   float64
	pnl, rr, hold, setup, conviction    float64
}

func (f *tradeFlags) register(cmd *cobra.Command) {
	fs := cmd.Flags()
	fs.StringVar(&f.user, "user", "", "trader")
	fs.StringVar(&f.pair, "pair", "", "instrument, e.g. EURUSD")
	fs.StringVar(&f.direction, "direction", "LONG", "LONG or SHORT")
	fs.StringVar(&f.outcome, "outcome", "", "profit, loss, breakeven (derived from --pnl when omitted)")
	fs.StringVar(&f.strategy, "strategy", "", "strategy ID")
	fs.StringVar(&f.entryModel, "entry-model", "", "entry model")
	fs.StringVar(&f.market, "market", "", "market condition")
	fs.StringVar(&f.notes, "notes", "", "trade notes")
	fs.StringVar(&f.executionNotes, "execution-notes", "", "execution notes")
	fs.StringVar(&f.timeframe, "timeframe", "", "chart timeframe")
	fs.StringVar(&f.entryTime, "entry-time", "", "entry time (RFC3339 or YYYY-MM-DD HH:MM, default now)")
	fs.StringVar(&f.exitTime, "exit-time", "", "exit time")
	fs.StringVar(&f.drift, "drift", "", "emotional drift as JSON")
	fs.StringVar(&f.rules, "rules", "", "rule checks as a JSON array")
	fs.Float64Var(&f.entry, "entry", 0, "entry price")
	fs.Float64Var(&f.exit, "exit", 0, "exit price")
	fs.Float64Var(&f.volume, "volume", 0, "position size")
	fs.Float64Var(&f.stop, "stop", 0, "stop loss")
	fs.Float64Var(&f.target, "target", 0, "take profit")
	fs.Float64Var(&f.pnl, "pnl", 0, "realised profit/loss")
	fs.Float64Var(&f.rr, "rr", 0, "planned risk/reward ratio")
	fs.Float64Var(&f.hold, "hold", 0, "holding time in minutes")
	fs.Float64Var(&f.setup, "setup", 0, "setup quality 1-10")
	fs.Float64Var(&f.conviction, "conviction", 0, "conviction 1-10")
	cmd.MarkFlagRequired("user")
	cmd.MarkFlagRequired("pair")
	cmd.MarkFlagRequired("entry")
}

func (f *tradeFlags) trade(cmd *cobra.Command, now time.Time) (*models.Trade, error) {
	t := &models.Trade{
		UserID:          f.user,
		Pair:            strings.ToUpper(f.pair),
		Direction:       models.Direction(strings.ToUpper(f.direction)),
		EntryPrice:      f.entry,
		Outcome:         models.Outcome(f.outcome),
		StrategyID:      f.strategy,
		EntryModel:      f.entryModel,
		MarketCondition: f.market,
		Notes:           f.notes,
		ExecutionNotes:  f.executionNotes,
		Timeframe:       f.timeframe,
		EntryTime:       now,
	}

	optional := map[string]struct {
		value float64
		dst   **float64
	}{
		"exit":       {f.exit, &t.ExitPrice},
		"volume":     {f.volume, &t.Volume},
		"stop":       {f.stop, &t.StopLoss},
		"target":     {f.target, &t.TakeProfit},
		"pnl":        {f.pnl, &t.ProfitLoss},
		"rr":         {f.rr, &t.RiskRewardRatio},
		"hold":       {f.hold, &t.HoldingTimeMinutes},
		"setup":      {f.setup, &t.SetupQuality},
		"conviction": {f.conviction, &t.Conviction},
	}
	for name, opt := range optional {
		if cmd.Flags().Changed(name) {
			*opt.dst = models.Float(opt.value)
		}
	}

	if f.entryTime != "" {
		entry, err := parseTime("entry-time", f.entryTime)
		if err != nil {
			return nil, err
		}
		t.EntryTime = entry
	}
	if f.exitTime != "" {
		exit, err := parseTime("exit-time", f.exitTime)
		if err != nil {
			return nil, err
		}
		t.ExitTime = &exit
	}

	drift, err := models.ParseEmotionalDrift(f.drift)
	if err != nil {
		return nil, errors.NewValidationError("drift", f.drift, err.Error())
	}
	t.EmotionalDrift = drift

	checks, err := models.ParseRuleChecks(f.rules)
	if err != nil {
		return nil, errors.NewValidationError("rules", f.rules, err.Error())
	}
	t.RuleChecks = checks

	return t, nil
}

func parseTime(field, value string) (time.Time, error) {
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, errors.NewValidationError(field, value, "must be RFC3339, YYYY-MM-DD HH:MM or YYYY-MM-DD")
}

func newTradeAddCmd(app *App) *cobra.Command {
	var flags tradeFlags

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Log a trade",
		Example: `  journal trade add --user u1 --pair EURUSD --direction LONG --entry 1.0850 \
    --exit 1.0900 --stop 1.0820 --target 1.0910 --volume 1 --pnl 50 --strategy <id>`,
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			trade, err := flags.trade(cmd, time.Now().UTC())
			if err != nil {
				output.Error("Invalid trade: %v", err)
				return err
			}
			svc, err := app.Journal()
			if err != nil {
				return err
			}
			ctx, cancel := commandContext()
			defer cancel()

			if err := svc.AddTrade(ctx, trade); err != nil {
				output.Error("Failed to save trade: %v", err)
				return err
			}

			if output.IsJSON() {
				return output.JSON(trade)
			}
			output.Success("Trade saved: %s", trade.ID)
			output.Dim("Score it with: journal trade score %s", trade.ID)
			return nil
		},
	}

	flags.register(cmd)
	return cmd
}

func newTradeListCmd(app *App) *cobra.Command {
	var (
		userID     string
		strategyID string
		from, to   string
		limit      int
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List trades",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			filter := store.TradeFilter{UserID: userID, StrategyID: strategyID, Limit: limit}
			if from != "" {
				t, err := parseTime("from", from)
				if err != nil {
					return err
				}
				filter.StartDate = t
			}
			if to != "" {
				t, err := parseTime("to", to)
				if err != nil {
					return err
				}
				if len(to) == len("2006-01-02") {
					t = t.Add(24*time.Hour - time.Nanosecond)
				}
				filter.EndDate = t
			}

			svc, err := app.Journal()
			if err != nil {
				return err
			}
			ctx, cancel := commandContext()
			defer cancel()

			trades, err := svc.ListTrades(ctx, filter)
			if err != nil {
				output.Error("Failed to list trades: %v", err)
				return err
			}

			if output.IsJSON() {
				if trades == nil {
					trades = []models.Trade{}
				}
				return output.JSON(trades)
			}
			if len(trades) == 0 {
				output.Info("No trades found.")
				return nil
			}

			var total float64
			table := NewTable(output, "Entered", "ID", "Pair", "Side", "Entry", "Exit", "P&L", "Score", "Strategy")
			for _, t := range trades {
				total += t.PnL()
				score := "-"
				if t.Scores != nil {
					score = output.FormatScore(t.Scores.DecisionScore)
				}
				table.AddRow(
					FormatDateTime(t.EntryTime),
					TruncateString(t.ID, 8),
					t.Pair,
					string(t.Direction),
					FormatPrice(t.EntryPrice),
					FormatOptionalPrice(t.ExitPrice),
					output.FormatPnL(t.PnL()),
					score,
					TruncateString(t.StrategyName, 15),
				)
			}
			table.Render()
			output.Println()
			output.Printf("  %d trades, total P&L %s\n", len(trades), output.FormatPnL(total))
			return nil
		},
	}

	cmd.Flags().StringVar(&userID, "user", "", "filter by trader")
	cmd.Flags().StringVar(&strategyID, "strategy", "", "filter by strategy ID")
	cmd.Flags().StringVar(&from, "from", "", "entered on or after")
	cmd.Flags().StringVar(&to, "to", "", "entered on or before")
	cmd.Flags().IntVar(&limit, "limit", 50, "maximum trades to show (0 for all)")

	return cmd
}

func newTradeShowCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "show <trade-id>",
		Short: "Show a trade",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			svc, err := app.Journal()
			if err != nil {
				return err
			}
			ctx, cancel := commandContext()
			defer cancel()

			t, err := svc.GetTrade(ctx, args[0])
			if err != nil {
				output.Error("Failed to load trade: %v", err)
				return err
			}
			if output.IsJSON() {
				return output.JSON(t)
			}

			lines := []string{
				fmt.Sprintf("Pair:      %s %s", t.Pair, t.Direction),
				fmt.Sprintf("Entry:     %s at %s", FormatPrice(t.EntryPrice), FormatDateTime(t.EntryTime)),
				fmt.Sprintf("Exit:      %s", FormatOptionalPrice(t.ExitPrice)),
				fmt.Sprintf("Stop:      %s", FormatOptionalPrice(t.StopLoss)),
				fmt.Sprintf("Target:    %s", FormatOptionalPrice(t.TakeProfit)),
				fmt.Sprintf("P&L:       %s (%s)", output.FormatPnL(t.PnL()), t.ResolvedOutcome()),
			}
			if t.StrategyName != "" {
				lines = append(lines, fmt.Sprintf("Strategy:  %s", t.StrategyName))
			}
			if t.RiskRewardRatio != nil {
				lines = append(lines, fmt.Sprintf("R:R:       %s", FormatRiskReward(*t.RiskRewardRatio)))
			}
			if t.HoldingTimeMinutes != nil {
				lines = append(lines, fmt.Sprintf("Held:      %s", FormatDuration(time.Duration(*t.HoldingTimeMinutes*float64(time.Minute)))))
			}
			output.Box("Trade "+t.ID, lines)

			if t.Scores != nil {
				output.Println()
				printScores(output, t.Scores)
			}
			return nil
		},
	}
}

func newTradeScoreCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "score <trade-id>",
		Short: "Score a trade",
		Long: `Compute decision quality, execution quality and emotional cost for a
trade, combine them into a decision score and store the result.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			svc, err := app.Journal()
			if err != nil {
				return err
			}
			ctx, cancel := commandContext()
			defer cancel()

			scores, err := svc.ScoreTrade(ctx, args[0])
			if err != nil {
				output.Error("Failed to score trade: %v", err)
				return err
			}
			if output.IsJSON() {
				return output.JSON(scores)
			}
			printScores(output, scores)
			return nil
		},
	}
}

func newTradeAnalyzeCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "analyze <trade-id>",
		Short: "Run the six-factor decision analysis of a trade",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			svc, err := app.Journal()
			if err != nil {
				return err
			}
			ctx, cancel := commandContext()
			defer cancel()

			a, err := svc.AnalyzeTrade(ctx, args[0])
			if err != nil {
				output.Error("Failed to analyze trade: %v", err)
				return err
			}
			if output.IsJSON() {
				return output.JSON(a)
			}

			output.Box("Decision analysis", []string{
				fmt.Sprintf("Score:          %s (%s)", output.FormatScore(a.Score), a.Quality),
				fmt.Sprintf("Classification: %s", output.FormatClassification(a.Classification)),
				fmt.Sprintf("Rules:          %.0f", a.Factors.RuleAdherence),
				fmt.Sprintf("Timing:         %.0f", a.Factors.TimingQuality),
				fmt.Sprintf("Emotions:       %.0f", a.Factors.EmotionalStability),
				fmt.Sprintf("Risk:           %.0f", a.Factors.RiskManagement),
				fmt.Sprintf("Market:         %.0f", a.Factors.MarketAnalysis),
				fmt.Sprintf("Execution:      %.0f", a.Factors.ExecutionQuality),
			})
			output.Println()
			output.List("Strengths", a.Strengths)
			output.List("Mistakes", a.Mistakes)
			output.List("Recommendations", a.Recommendations)
			return nil
		},
	}
}

func newTradeHistoryCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "history <trade-id>",
		Short: "Show every score computed for a trade",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			svc, err := app.Journal()
			if err != nil {
				return err
			}
			ctx, cancel := commandContext()
			defer cancel()

			history, err := svc.ScoreHistory(ctx, args[0])
			if err != nil {
				output.Error("Failed to load score history: %v", err)
				return err
			}
			if output.IsJSON() {
				if history == nil {
					history = []models.ScoreRecord{}
				}
				return output.JSON(history)
			}
			if len(history) == 0 {
				output.Info("Trade %s has not been scored yet.", args[0])
				return nil
			}

			table := NewTable(output, "Computed", "Kind", "Score")
			for _, rec := range history {
				table.AddRow(FormatDateTime(rec.CreatedAt), string(rec.Kind), output.FormatScore(rec.Score))
			}
			table.Render()
			return nil
		},
	}
}

func printScores(output *Output, s *models.TradeScores) {
	dq, eq, ec := s.DecisionQuality, s.ExecutionQuality, s.EmotionalCost
	output.Box("Scores "+s.TradeID, []string{
		fmt.Sprintf("Decision score:   %s (%s)", output.FormatScore(s.DecisionScore), s.Quality),
		fmt.Sprintf("Classification:   %s", output.FormatClassification(s.Classification)),
		fmt.Sprintf("Decision quality: %s", output.FormatScore(dq.Score)),
		fmt.Sprintf("Execution:        %s", output.FormatScore(eq.Score)),
		fmt.Sprintf("Emotional cost:   %d", ec.EmotionalCostScore),
		fmt.Sprintf("Recovery:         %.0f min", ec.RecoveryTimeMinutes),
	})
	output.Println()
	output.List("Strengths", dq.Strengths)
	output.List("Mistakes", dq.Mistakes)
	output.List("Learning points", dq.LearningPoints)
	output.List("Recommendations", dq.Recommendations)
	output.List("Emotional insights", ec.Insights)
}
