// Package cmd provides the command-line interface for phishtrack.
// It defines the Cobra command structure, flag handling, and command execution
// for collecting phishing-campaign indicators from GitHub issue search.
package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

// Version is the current version, set by the main package at startup.
var Version = "dev"

var rootCmd = &cobra.Command{
	Use:   "phishtrack",
	Short: "Track a GitHub issue-based phishing campaign",
	Long: `phishtrack is a batch collector that searches GitHub issues for
indicators of an ongoing phishing campaign, merges them into a flat-file
ledger under data/, and reports aggregate attack statistics.`,
	Run: func(cmd *cobra.Command, args []string) {
		// fallback message, collection logic is in a subcommand
		fmt.Println("Use `phishtrack run` to start a collection run.")
	},
}

func Execute() {
	cobra.CheckErr(rootCmd.Execute())
}
