package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/lexora-inc/lexora/internal/interfaces/cli/migrate"
	"github.com/lexora-inc/lexora/internal/interfaces/cli/plans"
	"github.com/lexora-inc/lexora/internal/interfaces/cli/server"
)

// @title Lexora Billing API
// @version 1.0
// @description Plan catalog, entitlements, usage metering and payment provider webhooks.
// @BasePath /api/v1
// @securityDefinitions.apikey Bearer
// @in header
// @name Authorization
func main() {
	rootCmd := &cobra.Command{
		Use:          "lexora",
		Short:        "Lexora - subscription entitlements for legal teams",
		Long:         `Lexora serves the plan catalog, resolves organization entitlements, meters usage and reconciles Stripe, Polar and Paystack subscriptions.`,
		SilenceUsage: true,
	}

	rootCmd.AddCommand(
		server.NewCommand(),
		migrate.NewCommand(),
		plans.NewCommand(),
	)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
