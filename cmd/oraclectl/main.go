package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"OracleEngine/internal/di"
	"OracleEngine/pkg/config"
)

var (
	cfgFile string
	format  string
	verbose bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "oraclectl",
		Short: "Score assets and manage signals from the command line",
		Long: `oraclectl runs the scoring pipeline in-process against the configured
stores, without starting the HTTP server.

Examples:
  oraclectl scan
  oraclectl scan --assets BTC,ETH,SOL
  oraclectl signal BTC --persist
  oraclectl sweep`,
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "config/config.yaml", "config file path")
	rootCmd.PersistentFlags().StringVar(&format, "format", "table", "output format: table, json")
	rootCmd.PersistentFlags().BoolVar(&verbose, "verbose", false, "log pipeline events to stderr")

	rootCmd.AddCommand(newScanCmd(), newSignalCmd(), newSweepCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// loadEngine reads the config and wires the pipeline. Logs go to stderr so
// table and json output stay clean.
func loadEngine() (*di.Engine, error) {
	cfg, err := config.LoadWithEnv(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	cfg.Logger.Output = "stderr"
	cfg.Logger.Format = "console"
	if !verbose {
		cfg.Logger.Level = "error"
	}
	cfg.Metrics.Enabled = false

	engine, err := di.InitializeEngine(cfg)
	if err != nil {
		return nil, fmt.Errorf("initializing engine: %w", err)
	}
	return engine, nil
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
