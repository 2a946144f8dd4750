package main

import (
	"dex-ledger-sol/pkg/logger"

	"github.com/spf13/cobra"
)

var logLevel string

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "inspect",
	Short: "Inspect SPL token accounts",
	Long: `inspect decodes SPL Token / Token-2022 account data offline or fetched over RPC,
and classifies the account mint against a market's base/quote pair.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return logger.InitLogger(logger.LogOption{Format: "console", Level: logLevel})
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "log level (debug, info, warn, error)")
}
