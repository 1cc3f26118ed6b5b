package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// sheetsCmd represents the sheets command
var sheetsCmd = &cobra.Command{
	Use:   "sheets",
	Short: "Manage the Google Sheets ledger",
	Long:  `Manage the spreadsheet holding the Customers and Orders tabs.`,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("error: Command 'sheets' requires a subcommand (init)")
		fmt.Println()
		_ = cmd.Help()
		os.Exit(1)
	},
}

var sheetsInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Create the Customers and Orders tabs",
	Long: `Create the Customers and Orders tabs with their header rows.

Tabs that already exist are left alone. The server does the same on
startup, so this is only needed to prepare a spreadsheet ahead of time.

Example:
  buyzactl sheets init`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := loadConfig()
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}

		if _, err := openLedger(context.Background(), cfg); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to initialise spreadsheet: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Spreadsheet %s is ready\n", cfg.SheetsSpreadsheetID)
	},
}

func init() {
	rootCmd.AddCommand(sheetsCmd)
	sheetsCmd.AddCommand(sheetsInitCmd)
}
