package main

import (
	"fmt"

	"github.com/spf13/cobra"
	payments "go.lumeweb.com/portal-plugin-payments"
	"go.lumeweb.com/portal-plugin-payments/internal/db"
	"go.lumeweb.com/portal-plugin-payments/service"
)

func merchantCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "merchant",
		Short: "Manage merchant accounts",
	}

	cmd.AddCommand(merchantCreateCmd())
	cmd.AddCommand(merchantSchemeCmd())

	return cmd
}

func merchantCreateCmd() *cobra.Command {
	var req service.CreateMerchantRequest
	var scheme string

	cmd := &cobra.Command{
		Use:   "create [merchant-id]",
		Short: "Register a merchant and print its API key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := loadContext(cmd.Context())
			if err != nil {
				return err
			}
			defer func() { _ = c.Close() }()

			p, err := payments.New(c)
			if err != nil {
				return err
			}

			req.MerchantID = args[0]
			req.StorageScheme = db.StorageScheme(scheme)

			merchant, apiKey, err := p.Merchants().CreateMerchant(cmd.Context(), req)
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "merchant_id:    %s\n", merchant.MerchantID)
			fmt.Fprintf(cmd.OutOrStdout(), "storage_scheme: %s\n", merchant.StorageScheme)
			fmt.Fprintf(cmd.OutOrStdout(), "api_key:        %s\n", apiKey)
			fmt.Fprintln(cmd.OutOrStdout(), "The API key is shown once and cannot be recovered.")
			return nil
		},
	}

	cmd.Flags().StringVar(&req.MerchantName, "name", "", "display name")
	cmd.Flags().StringVar(&scheme, "storage-scheme", "", "postgres_only or redis_kv (defaults to payments.default_storage_scheme)")
	cmd.Flags().StringVar(&req.DefaultConnector, "connector", "", "default connector for the merchant's payments")
	cmd.Flags().StringVar(&req.WebhookSecret, "webhook-secret", "", "secret used to verify connector webhooks")

	return cmd
}

func merchantSchemeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set-scheme [merchant-id] [postgres_only|redis_kv]",
		Short: "Switch a merchant between storage schemes",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := loadContext(cmd.Context())
			if err != nil {
				return err
			}
			defer func() { _ = c.Close() }()

			p, err := payments.New(c)
			if err != nil {
				return err
			}

			merchant, err := p.Merchants().UpdateStorageScheme(cmd.Context(), args[0], db.StorageScheme(args[1]))
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "%s now uses the %s storage scheme\n", merchant.MerchantID, merchant.StorageScheme)
			return nil
		},
	}
}
