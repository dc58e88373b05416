// phishtrack polls the GitHub issue-search API for issues created by an
// ongoing phishing campaign, extracts indicators of compromise (compromised
// accounts, affected repositories, attack timestamps), and maintains a
// flat-file ledger under data/ for longitudinal analysis.
//
// Usage:
//
//	phishtrack run
//	phishtrack run --full --pages 50
//
// For full documentation, see: https://github.com/phishtrack/phishtrack
package main

import (
	"github.com/phishtrack/phishtrack/cmd"
)

// Version is the current version of phishtrack.
// It can be overridden at build time using:
//
//	go build -ldflags="-X main.Version=v1.0.0"
//
// During releases, this is automatically set from the git tag.
var Version = "dev"

func main() {
	// Set version in cmd package so it can be accessed by subcommands
	cmd.Version = Version
	cmd.Execute()
}
