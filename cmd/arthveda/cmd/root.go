package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/MudgalLabs/arthveda-sub000/compute"
	"github.com/MudgalLabs/arthveda-sub000/config"
	"github.com/MudgalLabs/arthveda-sub000/internal/logging"
	"github.com/MudgalLabs/arthveda-sub000/journal"
)

var rootCmd = &cobra.Command{
	Use:   "arthveda",
	Short: "A trading journal with a live position editor",
	Long: `Arthveda records trading positions and the trades executed against them.

It provides tools for:
  - Creating and editing positions from edit scripts
  - Computing PnL, R-factor, status and charges for a trade list
  - Listing, exporting and reviewing journaled positions

Configuration is read from --config (YAML or JSON) and can be overridden
with ARTHVEDA_* environment variables or a .env file.`,
	SilenceUsage:      true,
	PersistentPreRunE: setup,
	PersistentPostRun: teardown,
}

var (
	cfgPath string
	envPath string

	cfg       *config.Config
	logger    = zap.NewNop()
	closeLogs func() error
)

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "config file (defaults are used when empty)")
	rootCmd.PersistentFlags().StringVar(&envPath, "env", "", "env file with ARTHVEDA_* overrides (default .env)")
}

func setup(cmd *cobra.Command, args []string) error {
	var err error
	if cfgPath != "" {
		cfg, err = config.LoadFromFile(cfgPath)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
	} else {
		cfg = config.Default()
	}

	var envFiles []string
	if envPath != "" {
		envFiles = append(envFiles, envPath)
	}
	if err := cfg.ApplyEnv(envFiles...); err != nil {
		return fmt.Errorf("apply env: %w", err)
	}

	if cfg.Log.File != "" {
		logger, closeLogs, err = logging.NewWithFile(cfg.Log.Level, cfg.Log.File)
	} else {
		logger, err = logging.New(cfg.Log.Level)
	}
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}
	return nil
}

func teardown(cmd *cobra.Command, args []string) {
	if closeLogs != nil {
		_ = closeLogs()
		return
	}
	_ = logger.Sync()
}

// newService builds the computation service selected by the config.
func newService(c *config.Config) (compute.Service, error) {
	switch c.Compute.Mode {
	case "remote":
		timeout, err := c.Compute.TimeoutDuration()
		if err != nil {
			return nil, err
		}
		return compute.NewHTTPClient(c.Compute.BaseURL, c.Compute.Token, timeout), nil
	default:
		return compute.NewCalculator(), nil
	}
}

func openJournal(c *config.Config) (*journal.SQLite, error) {
	j, err := journal.NewSQLite(c.Journal.DBPath, journal.WithLogger(logger))
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	return j, nil
}

// notifyStderr surfaces compute failures without stopping the command.
type notifyStderr struct{}

func (notifyStderr) Notify(err error) {
	logger.Warn("compute notification", zap.Error(err))
	fmt.Fprintf(os.Stderr, "! %v\n", err)
}

// settleBudget bounds how long a command waits for the editor to go quiet.
func settleBudget(c *config.Config) time.Duration {
	timeout, _ := c.Compute.TimeoutDuration()
	if timeout <= 0 {
		timeout = compute.DefaultTimeout
	}
	debounce, _ := c.Draft.DebounceDuration()
	return timeout + 4*debounce
}
