// Package cli provides the command-line interface for the trade journal.
package cli

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"trade-journal/internal/coach"
	"trade-journal/internal/config"
	"trade-journal/internal/errors"
	"trade-journal/internal/journal"
	"trade-journal/internal/logging"
	"trade-journal/internal/scoring"
	"trade-journal/internal/store"
)

// Version information
const (
	Version   = "0.3.0"
	BuildDate = "2026-10-01"
)

const commandTimeout = 30 * time.Second

// App holds the application dependencies. The store, service and coach are
// opened on first use so commands that do not need them stay cheap.
type App struct {
	Config    *config.Config
	ConfigDir string
	Logger    zerolog.Logger

	Store   store.JournalStore
	Service *journal.Service
	Coach   *coach.Coach
}

// Execute runs the root command.
func Execute() error {
	app := &App{}
	defer app.Close()
	return NewRootCmd(app).Execute()
}

// NewRootCmd creates the root command for the CLI.
func NewRootCmd(app *App) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "journal",
		Short: "Trade journal with behavioral scoring",
		Long: `journal records trades and scores the decisions behind them.

Every trade gets a decision quality, execution quality and emotional cost
score. Strategies get an edge confidence score from their trade history, and
daily to yearly summaries roll everything up per trader.

Use 'journal serve' to expose the same operations over HTTP.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			configDir, _ := cmd.Flags().GetString("config")
			cfg, err := config.Load(configDir)
			if err != nil {
				return err
			}
			if configDir == "" {
				configDir = config.DefaultConfigDir()
			}
			app.Config = cfg
			app.ConfigDir = configDir

			logCfg := cfg.LogConfig()
			if jsonMode, _ := cmd.Flags().GetBool("json"); jsonMode {
				logCfg.Console = false
			}
			app.Logger = logging.NewLoggerWithConfig(logCfg)

			if debug, _ := cmd.Flags().GetBool("debug"); debug {
				logging.SetDebugLevel()
				app.Logger = app.Logger.Level(zerolog.DebugLevel)
			}
			return nil
		},
	}

	rootCmd.PersistentFlags().String("config", "", "config directory (default: ~/.config/trade-journal)")
	rootCmd.PersistentFlags().Bool("json", false, "output in JSON format")
	rootCmd.PersistentFlags().Bool("debug", false, "enable debug logging")

	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newConfigCmd(app))
	addStrategyCommands(rootCmd, app)
	addTradeCommands(rootCmd, app)
	rootCmd.AddCommand(newEmotionalCostCmd(app))
	addSummaryCommands(rootCmd, app)
	rootCmd.AddCommand(newServeCmd(app))

	return rootCmd
}

// Journal returns the journal service, opening the store on first use.
func (a *App) Journal() (*journal.Service, error) {
	if a.Service != nil {
		return a.Service, nil
	}
	if a.Config == nil {
		return nil, errors.Wrap(errors.ErrConfigInvalid, "configuration not loaded")
	}

	st, err := store.NewSQLiteStore(a.Config.Database.Path, store.WithLogger(a.Logger))
	if err != nil {
		return nil, err
	}
	a.Store = st

	engine := scoring.NewEngineWithThresholds(a.Config.Scoring)
	a.Service = journal.NewService(st, engine, journal.WithLogger(a.Logger))
	a.Logger.Debug().Str("path", a.Config.Database.Path).Msg("Journal store opened")
	return a.Service, nil
}

// ReviewCoach returns the coach, or ErrCoachUnavailable when it is not
// configured.
func (a *App) ReviewCoach() (*coach.Coach, error) {
	if a.Coach != nil {
		return a.Coach, nil
	}
	if a.Config == nil {
		return nil, errors.Wrap(errors.ErrConfigInvalid, "configuration not loaded")
	}
	c, err := coach.NewFromConfig(a.Config, a.Logger)
	if err != nil {
		return nil, err
	}
	a.Coach = c
	return c, nil
}

// Close releases the store.
func (a *App) Close() error {
	if a.Store == nil {
		return nil
	}
	err := a.Store.Close()
	a.Store = nil
	a.Service = nil
	return err
}

func commandContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), commandTimeout)
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			output := NewOutput(cmd)
			if output.IsJSON() {
				output.JSON(map[string]string{
					"version":    Version,
					"build_date": BuildDate,
				})
			} else {
				output.Printf("trade-journal v%s\n", Version)
				output.Dim("Build date: %s", BuildDate)
			}
		},
	}
}

func newConfigCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration management",
		Long:  "View and validate the journal configuration.",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show current configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if output.IsJSON() {
				return output.JSON(app.Config)
			}
			showConfig(output, app.Config)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Show configuration file path",
		Run: func(cmd *cobra.Command, args []string) {
			output := NewOutput(cmd)
			path := config.ConfigFile(app.ConfigDir)
			if output.IsJSON() {
				output.JSON(map[string]string{"path": path})
			} else {
				output.Println(path)
			}
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "validate",
		Short: "Validate configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if err := app.Config.Validate(); err != nil {
				output.Error("Configuration validation failed: %v", err)
				return err
			}
			if output.IsJSON() {
				return output.JSON(map[string]bool{"valid": true})
			}
			output.Success("Configuration is valid")
			return nil
		},
	})

	return cmd
}

func showConfig(output *Output, cfg *config.Config) {
	output.Bold("Storage")
	output.Printf("  Database:        %s\n", cfg.Database.Path)
	output.Println()

	output.Bold("Server")
	output.Printf("  Address:         %s\n", cfg.Server.Addr)
	output.Printf("  Read Timeout:    %s\n", cfg.Server.ReadTimeout)
	output.Printf("  Write Timeout:   %s\n", cfg.Server.WriteTimeout)
	output.Println()

	th := cfg.Scoring
	output.Bold("Scoring")
	output.Printf("  Min Edge Sample: %d trades\n", th.MinEdgeSample)
	output.Printf("  Edge Tiers:      %d / %d / %d\n", th.EdgeWeak, th.EdgeModerate, th.EdgeStrong)
	output.Printf("  Good Decision:   >= %d\n", th.GoodDecisionScore)
	output.Println()

	output.Bold("Scheduler")
	output.Printf("  Enabled:         %v\n", cfg.Scheduler.Enabled)
	output.Printf("  Users:           %d\n", len(cfg.Scheduler.Users))
	output.Println()

	output.Bold("Coach")
	output.Printf("  Enabled:         %v\n", cfg.Coach.Enabled)
	output.Printf("  Model:           %s\n", cfg.Coach.Model)
	output.Printf("  API Key:         %v\n", cfg.Coach.APIKey != "")
}
