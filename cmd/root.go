package cmd

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	cfgpkg "github.com/KaramelBytes/tabprep/internal/config"
	"github.com/KaramelBytes/tabprep/internal/logging"
)

var (
	// Global flags
	cfgFile  string
	debug    bool
	logLevel string

	// Loaded configuration
	cfg *cfgpkg.Global
)

var rootCmd = &cobra.Command{
	Use:   "tabprep",
	Short: "tabprep: prepare tabular data for machine learning",
	Long: `tabprep loads a table from CSV, Excel, SQLite or PostgreSQL and walks it
through column selection, missing values, categorical encoding, scaling and
outlier handling before exporting the prepared data.`,
	SilenceUsage: true,
}

// Execute is the entry point called by main.main()
func Execute() {
	// Initialize configuration before executing commands
	cobra.OnInitialize(loadConfig)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "✗ Error:", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ~/.tabprep/config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level: debug, info, warn, error (overrides config)")
}

func loadConfig() {
	c, err := cfgpkg.Load(cfgFile)
	if err != nil {
		// Non-fatal: commands fall back to defaults
		fmt.Fprintf(os.Stderr, "⚠ Warning: failed to load config: %v\n", err)
		return
	}
	cfg = c
}

// settings returns the loaded configuration, loading it on first use, with
// flag overrides applied.
func settings() (*cfgpkg.Global, error) {
	if cfg == nil {
		c, err := cfgpkg.Load(cfgFile)
		if err != nil {
			return nil, err
		}
		cfg = c
	}
	if rootCmd.PersistentFlags().Changed("log-level") {
		cfg.LogLevel = logLevel
	}
	return cfg, nil
}

// newLogger builds the logger for a command from the configured level.
func newLogger(cmd *cobra.Command, c *cfgpkg.Global) (zerolog.Logger, error) {
	return logging.New(cmd.ErrOrStderr(), c.LogLevel, debug)
}
