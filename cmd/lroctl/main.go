package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"longrun/internal/config"
	"longrun/internal/logging"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:           "lroctl",
	Short:         "Inspect and serve google.longrunning operations",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "longrun.yml", "config file (missing file means defaults)")
	rootCmd.AddCommand(newServeCommand(), newInspectCommand())
}

func loadConfig() (config.Config, error) {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return cfg, fmt.Errorf("config: %w", err)
	}
	logging.Configure(cfg.Log)
	return cfg, nil
}

func main() {
	logging.Configure(logging.FromEnv())
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "lroctl: %v\n", err)
		os.Exit(1)
	}
}
