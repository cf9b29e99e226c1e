package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"trade-journal/internal/models"
)

// addStrategyCommands adds strategy and edge confidence commands.
func addStrategyCommands(rootCmd *cobra.Command, app *App) {
	cmd := &cobra.Command{
		Use:   "strategy",
		Short: "Strategy management",
		Long:  "Document strategies and measure their edge.",
	}

	cmd.AddCommand(newStrategyAddCmd(app))
	cmd.AddCommand(newStrategyListCmd(app))
	cmd.AddCommand(newStrategyEdgeCmd(app))

	rootCmd.AddCommand(cmd)
}

func newStrategyAddCmd(app *App) *cobra.Command {
	var (
		userID      string
		description string
		rules       []string
	)

	cmd := &cobra.Command{
		Use:   "add <name>",
		Short: "Document a strategy",
		Example: `  journal strategy add "London breakout" --user u1
  journal strategy add "NY reversal" --user u1 --rule "wait for sweep" --rule "1% risk"`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			svc, err := app.Journal()
			if err != nil {
				return err
			}
			ctx, cancel := commandContext()
			defer cancel()

			strategy := &models.Strategy{
				UserID:      userID,
				Name:        args[0],
				Description: description,
				Rules:       rules,
			}
			if err := svc.AddStrategy(ctx, strategy); err != nil {
				output.Error("Failed to save strategy: %v", err)
				return err
			}

			if output.IsJSON() {
				return output.JSON(strategy)
			}
			output.Success("Strategy saved: %s", strategy.ID)
			return nil
		},
	}

	cmd.Flags().StringVar(&userID, "user", "", "owner of the strategy")
	cmd.Flags().StringVar(&description, "description", "", "strategy description")
	cmd.Flags().StringArrayVar(&rules, "rule", nil, "strategy rule (repeatable)")
	cmd.MarkFlagRequired("user")

	return cmd
}

func newStrategyListCmd(app *App) *cobra.Command {
	var userID string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List strategies",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			svc, err := app.Journal()
			if err != nil {
				return err
			}
			ctx, cancel := commandContext()
			defer cancel()

			strategies, err := svc.ListStrategies(ctx, userID)
			if err != nil {
				output.Error("Failed to list strategies: %v", err)
				return err
			}

			if output.IsJSON() {
				if strategies == nil {
					strategies = []models.Strategy{}
				}
				return output.JSON(strategies)
			}
			if len(strategies) == 0 {
				output.Info("No strategies documented for %s.", userID)
				return nil
			}

			table := NewTable(output, "ID", "Name", "Rules", "Edge", "Trades")
			for _, s := range strategies {
				edge, trades := "-", "-"
				if s.Performance != nil {
					edge = output.FormatScore(s.Performance.EdgeConfidence)
					trades = fmt.Sprintf("%d", s.Performance.TotalTrades)
				}
				table.AddRow(s.ID, TruncateString(s.Name, 24), fmt.Sprintf("%d", len(s.Rules)), edge, trades)
			}
			table.Render()
			return nil
		},
	}

	cmd.Flags().StringVar(&userID, "user", "", "owner of the strategies")
	cmd.MarkFlagRequired("user")

	return cmd
}

func newStrategyEdgeCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "edge <strategy-id>",
		Short: "Compute a strategy's edge confidence",
		Long: `Recompute the aggregate performance of a strategy from all of its trades
and score how confident the journal is that the strategy has a real edge.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			svc, err := app.Journal()
			if err != nil {
				return err
			}
			ctx, cancel := commandContext()
			defer cancel()

			perf, err := svc.EdgeConfidence(ctx, args[0])
			if err != nil {
				output.Error("Failed to compute edge confidence: %v", err)
				return err
			}

			if output.IsJSON() {
				return output.JSON(perf)
			}
			printPerformance(output, perf)
			return nil
		},
	}
}

func printPerformance(output *Output, perf *models.StrategyPerformance) {
	output.Box(fmt.Sprintf("Edge confidence %s", perf.StrategyID), []string{
		fmt.Sprintf("Confidence:     %s / 100", output.FormatScore(perf.EdgeConfidence)),
		fmt.Sprintf("Trades:         %d", perf.TotalTrades),
		fmt.Sprintf("Win rate:       %s", FormatPercent(perf.WinRate)),
		fmt.Sprintf("Avg P&L:        %s", output.FormatPnL(perf.AvgProfitLoss)),
		fmt.Sprintf("Profit factor:  %.2f", perf.ProfitFactor),
		fmt.Sprintf("Consistency:    %.1f", perf.ConsistencyScore),
		fmt.Sprintf("Max drawdown:   %s", FormatMoney(perf.DrawdownMax)),
		fmt.Sprintf("Good decisions: %s", FormatPercent(perf.GoodDecisionRatio*100)),
	})
	output.Println()
	output.List("Insights", perf.Insights)
}
