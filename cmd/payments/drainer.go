package main

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.lumeweb.com/portal-plugin-payments/internal/drainer"
	"go.uber.org/zap"
)

func drainerCmd() *cobra.Command {
	var once bool

	cmd := &cobra.Command{
		Use:   "drainer",
		Short: "Replay cached writes from the change streams into the database",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			c, err := loadContext(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = c.Close() }()

			d := drainer.New(c)

			if once {
				applied, err := d.DrainOnce(ctx)
				c.Logger().Info("drained", zap.Int("applied", applied))
				return err
			}

			return d.Run(ctx)
		},
	}

	cmd.Flags().BoolVar(&once, "once", false, "drain every shard once and exit")

	return cmd
}
