package main

import (
	"github.com/spf13/cobra"
	payments "go.lumeweb.com/portal-plugin-payments"
)

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database tables",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := loadContext(cmd.Context())
			if err != nil {
				return err
			}
			defer func() { _ = c.Close() }()

			if err := payments.Migrate(c); err != nil {
				return err
			}

			c.Logger().Info("migrations applied")
			return nil
		},
	}
}
