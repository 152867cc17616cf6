// Package cmd contains all the CLI commands for the application,
// built using the Cobra library.
package cmd

import (
	"errors"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/naka-gawa/repostats/internal/config"
	"github.com/naka-gawa/repostats/internal/gateway"
	"github.com/naka-gawa/repostats/internal/usecase"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "repostats",
	Short: "A CLI tool to explore GitHub repository datasets.",
	Long: `repostats loads a GitHub repository dataset (CSV or XLSX), optionally
joined with a second file of repository metadata, and derives the views of
a repository dashboard: rankings, frequency counts, ratios, trends,
correlations and histograms.`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	addGlobalFlags(rootCmd)
}

// addGlobalFlags registers the flags shared by every command.
func addGlobalFlags(c *cobra.Command) {
	// Add a persistent flag for verbose output, available to all commands.
	c.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose/debug logging")
	c.PersistentFlags().String("config", "", "Config file (default ./repostats.yaml)")
	c.PersistentFlags().StringSlice("data", nil, "Dataset file; pass twice to join the repository metadata file")
	c.PersistentFlags().StringP("output", "o", "json", "Output format: json or yaml")
}

// app is what every command needs: the resolved configuration, the logger
// and the dashboard over the configured dataset.
type app struct {
	cfg       *config.Config
	logger    *log.Logger
	dashboard *usecase.Dashboard
	format    string
}

// setup builds the app for cmd and exits the process on failure.
func setup(cmd *cobra.Command) *app {
	a, err := newApp(cmd)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	return a
}

// newApp loads the configuration, applies the flags over it and injects the
// dependencies of the dashboard. --data replaces data.paths entirely.
func newApp(cmd *cobra.Command) (*app, error) {
	verbose, _ := cmd.Flags().GetBool("verbose")
	logger := log.New(io.Discard, "", log.LstdFlags) // Default: discard all logs.
	if verbose {
		logger.SetOutput(os.Stderr) // If verbose, log to standard error.
	}

	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	if cmd.Flags().Changed("data") {
		cfg.Data.Paths, _ = cmd.Flags().GetStringSlice("data")
	}
	switch n := len(cfg.Data.Paths); {
	case n == 0:
		return nil, errors.New("no dataset given, use --data or set data.paths in the config file")
	case n > 2:
		return nil, fmt.Errorf("at most 2 dataset files can be given, got %d", n)
	}

	format, _ := cmd.Flags().GetString("output")
	if format != "json" && format != "yaml" {
		return nil, fmt.Errorf("unsupported output format %q (json or yaml)", format)
	}

	// Inject dependencies.
	loader := gateway.NewCachedLoader(gateway.NewFileGateway(logger), logger)
	dashboard := usecase.NewDashboard(loader, logger, cfg.Data.Paths, usecase.Options{
		TopN: cfg.Views.TopN,
		Bins: cfg.Views.HistogramBins,
	})
	return &app{cfg: cfg, logger: logger, dashboard: dashboard, format: format}, nil
}
