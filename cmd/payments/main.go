package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.lumeweb.com/portal-plugin-payments/internal/config"
	"go.lumeweb.com/portal-plugin-payments/internal/core"
	"go.uber.org/zap"
)

var Version = "dev"

var configPath string

func main() {
	rootCmd := &cobra.Command{
		Use:           "payments",
		Short:         "Payment orchestration server",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to a YAML config file")

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(drainerCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(merchantCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// loadContext loads the configuration and opens every handle it names.
func loadContext(ctx context.Context) (*core.Context, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	logger, err := core.NewLogger(cfg.Log)
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	c, err := core.NewContext(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	logger.Debug("configuration loaded", zap.String("path", configPath))
	return c, nil
}
