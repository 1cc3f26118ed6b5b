package main

import (
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "buyzactl",
	Short: "Buyza WhatsApp order bot",
	Long: `Run and operate the Buyza WhatsApp order bot.

The bot answers customers on WhatsApp, records every interaction in a
Google Sheets ledger and optionally mirrors orders into PostgreSQL.`,
	SilenceUsage: true,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func main() {
	Execute()
}
