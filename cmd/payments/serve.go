package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	payments "go.lumeweb.com/portal-plugin-payments"
	"go.uber.org/zap"
)

const shutdownTimeout = 15 * time.Second

func serveCmd() *cobra.Command {
	var migrate bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API and the background tasks",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			c, err := loadContext(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = c.Close() }()

			logger := c.Logger()

			if migrate {
				if err := payments.Migrate(c); err != nil {
					return err
				}
			}

			p, err := payments.New(c)
			if err != nil {
				return err
			}
			p.Start()

			server := &http.Server{
				Addr:              c.Config().Server.Addr,
				Handler:           p.Handler(),
				ReadHeaderTimeout: 10 * time.Second,
			}

			serveErr := make(chan error, 1)
			go func() {
				logger.Info("listening", zap.String("addr", server.Addr))
				if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					serveErr <- err
				}
				close(serveErr)
			}()

			select {
			case <-ctx.Done():
				logger.Info("shutting down")
			case err := <-serveErr:
				if err != nil {
					_ = p.Stop()
					return fmt.Errorf("server failed: %w", err)
				}
			}

			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()

			if err := server.Shutdown(shutdownCtx); err != nil {
				logger.Error("failed to shut down server", zap.Error(err))
			}
			if err := p.Stop(); err != nil {
				logger.Error("failed to stop background tasks", zap.Error(err))
			}

			return nil
		},
	}

	cmd.Flags().BoolVar(&migrate, "migrate", false, "run database migrations before serving")

	return cmd
}
