package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jmehdipour/churn-predictor/cmd/worker"
	"github.com/jmehdipour/churn-predictor/internal/config"
	"github.com/jmehdipour/churn-predictor/internal/logger"
)

var (
	cfgPath string
	rootCmd = &cobra.Command{
		Use:   "churn-predictor",
		Short: "Customer churn scoring service and tools",
	}
)

func Execute() {
	defer logger.Sync()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "config.yaml", "path to YAML config file")
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(importCmd)
	rootCmd.AddCommand(predictCmd)
	rootCmd.AddCommand(worker.NewWorkerCmd())
}

// loadConfig loads the config and initialises the process logger from it.
func loadConfig(console bool) (config.Config, error) {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return config.Config{}, fmt.Errorf("load config: %w", err)
	}
	if console {
		logger.InitConsole(cfg.Log.Level)
	} else {
		logger.Init(cfg.Log.Level)
	}
	return cfg, nil
}
