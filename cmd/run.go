package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/phishtrack/phishtrack/internal/detector"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	fullMode   bool
	maxPages   int
	dataDir    string
	configFile string
	termsFile  string
	verbose    bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a collection pass against GitHub issue search",
	Long: `Run one collection pass: search GitHub issues for the configured
phishing terms, merge new indicators into the data directory, recompute
attack statistics, and print a report.

Examples:
  phishtrack run                          # Incremental run, stops when caught up
  phishtrack run --full                   # Reprocess from scratch up to the page cap
  phishtrack run --pages 10               # Fetch at most 10 result pages this run
  phishtrack run --config phishtrack.yaml # Custom search terms and patterns
  phishtrack run --data-dir /var/phish    # Custom ledger location

The GITHUB_TOKEN environment variable (or a .env file) is used for
authentication when present. Without it the run is subject to much
stricter search rate limits and may abort early.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		// A .env file is optional; ignore the error when it is absent.
		_ = godotenv.Load()

		config := detector.Config{
			Full:      fullMode,
			MaxPages:  maxPages,
			DataDir:   dataDir,
			TermsFile: termsFile,
			Verbose:   verbose,
			Token:     os.Getenv("GITHUB_TOKEN"),
		}

		if configFile != "" {
			if err := applyConfigFile(configFile, &config); err != nil {
				return fmt.Errorf("failed to load config file: %w", err)
			}
		}

		if config.Token == "" {
			pterm.Warning.Println("No GITHUB_TOKEN set; running with unauthenticated rate limits")
		}

		// One-hour timeout prevents indefinite hangs if the GitHub API
		// becomes unresponsive; a single run is bounded by --pages anyway.
		ctx, cancel := context.WithTimeout(context.Background(), time.Hour)
		defer cancel()

		// Handle interrupt signals
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

		go func() {
			sig := <-sigChan
			if sig == syscall.SIGTERM {
				fmt.Fprintln(os.Stderr, "\nReceived termination signal (SIGTERM), shutting down gracefully...")
			} else {
				fmt.Fprintln(os.Stderr, "\nReceived interrupt signal, shutting down gracefully... (press Ctrl-C again to force quit)")
			}
			cancel()

			if sig == syscall.SIGTERM {
				return
			}

			// For SIGINT (Ctrl-C), wait for second signal to force quit
			<-sigChan
			fmt.Fprintln(os.Stderr, "\nForce quitting...")
			os.Exit(130) // Standard exit code for SIGINT
		}()

		return detector.RunWithContext(ctx, config)
	},
}

// applyConfigFile reads search terms, extraction patterns, and request tuning
// from a YAML config file. Flags and environment variables still win for the
// settings they cover.
func applyConfigFile(path string, config *detector.Config) error {
	v := viper.New()
	v.SetConfigFile(path)

	if err := v.BindEnv("search.per_page", "PHISHTRACK_PER_PAGE"); err != nil {
		return err
	}

	if err := v.ReadInConfig(); err != nil {
		return err
	}

	if terms := v.GetStringSlice("search.terms"); len(terms) > 0 {
		config.Terms = terms
	}
	if patterns := v.GetStringSlice("extract.patterns"); len(patterns) > 0 {
		config.MentionPatterns = patterns
	}
	if perPage := v.GetInt("search.per_page"); perPage > 0 {
		config.PerPage = perPage
	}

	return nil
}

// init registers the run command and its flags.
func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().BoolVar(&fullMode, "full", false, "Ignore the saved cursor and reprocess from scratch up to the page cap")
	runCmd.Flags().IntVar(&maxPages, "pages", 200, "Maximum result pages fetched this run")
	runCmd.Flags().StringVarP(&dataDir, "data-dir", "d", "data", "Directory holding the persisted tables")
	runCmd.Flags().StringVarP(&configFile, "config", "c", "", "YAML config file with search terms and extraction patterns")
	runCmd.Flags().StringVar(&termsFile, "terms-file", "", "File with search terms, one per line (# comments allowed)")
	runCmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
}
