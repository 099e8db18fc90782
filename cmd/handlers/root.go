package handlers

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"vidpulse/internal/config"
	"vidpulse/internal/logger"
)

var cfgFile string

// NewRootCmd creates the root command with all subcommands attached
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "vidpulse",
		Short: "Vidpulse delivers scheduled video marketing strategy reports.",
		Long: `Vidpulse runs an hourly pass over the user store. One hour before each
user's chosen delivery slot it requests a fresh trend analysis for their
business; at the slot itself it renders the stored strategy into an HTML
email and sends it.

Run 'vidpulse tick' from an external scheduler, or 'vidpulse serve' to
drive ticks from the built-in cron.`,
		SilenceUsage:      true,
		PersistentPreRunE: initConfig,
	}

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./.vidpulse.yaml or $HOME/.vidpulse.yaml)")

	rootCmd.AddCommand(NewTickCmd())
	rootCmd.AddCommand(NewServeCmd())
	rootCmd.AddCommand(NewDueCmd())
	rootCmd.AddCommand(NewRenderCmd())
	rootCmd.AddCommand(NewMigrateCmd())
	rootCmd.AddCommand(NewUsersCmd())

	return rootCmd
}

// Execute runs the root command
func Execute() {
	rootCmd := NewRootCmd()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// initConfig loads configuration once and applies the logging settings
func initConfig(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("error loading configuration: %w", err)
	}

	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)

	if cfg.App.ConfigFile != "" {
		logger.Debug("Using config file", "path", cfg.App.ConfigFile)
	}
	return nil
}
