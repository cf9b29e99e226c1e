package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"trade-journal/internal/models"
)

func newEmotionalCostCmd(app *App) *cobra.Command {
	var (
		f       models.EmotionalCostFactors
		outcome string
	)

	cmd := &cobra.Command{
		Use:   "emotional-cost",
		Short: "Estimate the emotional cost of a trade from explicit factors",
		Example: `  journal emotional-cost --pre anxious --pre-intensity 7 --post frustrated \
    --post-intensity 8 --outcome loss --size 2 --recover 3 --stress 7`,
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			f.Outcome = models.Outcome(outcome)
			svc, err := app.Journal()
			if err != nil {
				return err
			}
			ctx, cancel := commandContext()
			defer cancel()

			cost, err := svc.EmotionalCost(ctx, f)
			if err != nil {
				return err
			}
			if output.IsJSON() {
				return output.JSON(cost)
			}

			output.Box("Emotional cost", []string{
				fmt.Sprintf("Immediate:  %d", cost.ImmediateCost),
				fmt.Sprintf("Long term:  %d", cost.LongTermCost),
				fmt.Sprintf("Recovery:   %.1f h", cost.RecoveryTime),
				fmt.Sprintf("Stress:     %.1f", cost.StressAccumulation),
			})
			output.Println()
			output.List("Recommendations", cost.Recommendations)
			return nil
		},
	}

	fs := cmd.Flags()
	fs.StringVar(&f.PreTradeEmotion, "pre", "", "emotion before the trade")
	fs.Float64Var(&f.PreTradeIntensity, "pre-intensity", 5, "intensity before the trade, 1-10")
	fs.StringVar(&f.PostTradeEmotion, "post", "", "emotion after the trade")
	fs.Float64Var(&f.PostTradeIntensity, "post-intensity", 5, "intensity after the trade, 1-10")
	fs.StringVar(&outcome, "outcome", "", "profit, loss or breakeven")
	fs.Float64Var(&f.TradeSize, "size", 1, "trade size")
	fs.Float64Var(&f.TimeToRecover, "recover", 0, "hours until calm again")
	fs.Float64Var(&f.StressLevel, "stress", 5, "stress level, 1-10")

	return cmd
}
