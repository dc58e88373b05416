// Package detector orchestrates one collection run.
//
// Control flow is strictly linear: query the search API, extract indicators,
// merge them into the stored tables, recompute statistics, persist, report.
// There is no internal concurrency; run time is bounded by the page cap and
// the per-request timeout.
package detector

import (
	"context"
	"errors"
	"fmt"
	"time"

	json "github.com/goccy/go-json"
	"github.com/phishtrack/phishtrack/internal/extract"
	"github.com/phishtrack/phishtrack/internal/ghapi"
	"github.com/phishtrack/phishtrack/internal/report"
	"github.com/phishtrack/phishtrack/internal/store"
	"github.com/pterm/pterm"
)

// Config holds all configuration for a collection run. It is passed
// explicitly through every stage; there are no package-level settings.
//
// Zero value behavior:
//   - Terms/TermsFile empty: the built-in campaign terms are used
//   - MentionPatterns empty: the default @-mention pattern is used
//   - MaxPages <= 0: defaults to 200; PerPage <= 0 or > 100: defaults to 100
//   - DataDir empty: defaults to "data"
//   - BaseURL empty: the public GitHub API
type Config struct {
	Terms           []string // Search terms; overrides TermsFile and the defaults
	TermsFile       string   // File with one term per line, # comments allowed
	MentionPatterns []string // Username extraction patterns (regex, one capture group)
	DataDir         string   // Directory holding the persisted tables
	MaxPages        int      // Maximum result pages fetched this run, across all terms
	PerPage         int      // Results per page (GitHub caps search at 100)
	Full            bool     // Ignore the cursor and reprocess up to the page cap
	Verbose         bool     // Enable debug output
	Token           string   // GitHub token; empty means unauthenticated
	BaseURL         string   // API root override for GHES and tests
}

// RunWithContext executes one collection run.
//
// On a transient remote failure (rate limit, timeout, 5xx after retries) the
// run aborts before persistence, so the stored tables and cursor are exactly
// what the previous successful run wrote and the next scheduled run retries
// naturally. Malformed search items are skipped and counted, never fatal.
// A persistence failure also returns an error, surfaced as a non-zero exit.
func RunWithContext(ctx context.Context, config Config) error {
	if err := setupAndValidate(&config); err != nil {
		return err
	}

	terms, err := loadTerms(config)
	if err != nil {
		return err
	}

	extractor, err := extract.NewExtractor(config.MentionPatterns)
	if err != nil {
		return err
	}

	st, err := store.Load(config.DataDir)
	if err != nil {
		return fmt.Errorf("failed to load stored tables: %w", err)
	}

	client := ghapi.NewClient(config.Token)
	if config.BaseURL != "" {
		client.BaseURL = config.BaseURL
	}

	mode := "incremental"
	if config.Full {
		mode = "full"
	}
	pterm.Info.Printf("Starting %s run: %d terms, %d known issues, up to %d pages\n",
		mode, len(terms), st.IssueCount(), config.MaxPages)
	if !config.Full && st.Cursor.LastIssueID != 0 {
		pterm.Info.Printf("Looking for issues newer than ID %d\n", st.Cursor.LastIssueID)
	}

	now := time.Now().UTC()
	result, err := collect(ctx, client, extractor, st, terms, config, now)
	if err != nil {
		return err
	}

	st.RebuildUsers()
	st.Cursor = store.Cursor{
		LastIssueID:    result.maxIssueID,
		LastRunTime:    now,
		TotalProcessed: st.Cursor.TotalProcessed + result.newIssues,
		PagesUsed:      result.pagesUsed,
	}

	snap := report.Compute(st, now)
	statsJSON, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal statistics: %w", err)
	}

	if err := store.Save(config.DataDir, st, statsJSON); err != nil {
		return fmt.Errorf("failed to persist tables: %w", err)
	}

	report.Print(snap, report.TopUsers(st, 5), st.Cursor)

	summary := fmt.Sprintf("Run complete: %d new issues, %d pages, %d API calls",
		result.newIssues, result.pagesUsed, client.APICalls())
	if result.skipped > 0 {
		summary += fmt.Sprintf(", %d malformed items skipped", result.skipped)
	}
	pterm.Success.Println(summary)

	return nil
}

// collectResult aggregates the counters of the query and extraction stages.
type collectResult struct {
	newIssues  int
	skipped    int
	pagesUsed  int
	maxIssueID int64
}

// collect runs the query and extraction stages for every term, merging new
// records into st as it goes. The page budget is shared across terms.
func collect(ctx context.Context, client *ghapi.Client, extractor *extract.Extractor,
	st *store.Store, terms []string, config Config, now time.Time) (collectResult, error) {

	result := collectResult{maxIssueID: st.Cursor.LastIssueID}

	for _, term := range terms {
		for page := 1; result.pagesUsed < config.MaxPages; page++ {
			select {
			case <-ctx.Done():
				return result, ctx.Err()
			default:
			}

			res, err := client.SearchIssues(ctx, term, page, config.PerPage)
			if errors.Is(err, ghapi.ErrSearchWindowExceeded) {
				break // end of the search window for this term
			}
			if err != nil {
				return result, fmt.Errorf("search aborted on term %q page %d: %w", term, page, err)
			}

			result.pagesUsed++
			if len(res.Items) == 0 {
				break
			}
			if config.Verbose {
				pterm.Debug.Printf("term %q page %d: %d items\n", term, page, len(res.Items))
			}

			knownOnPage := 0
			for _, item := range res.Items {
				if st.HasIssue(item.ID) {
					knownOnPage++
					continue
				}

				rec, _, err := extractor.Extract(item, term, now)
				if err != nil {
					result.skipped++
					if config.Verbose {
						pterm.Debug.Printf("skipping item: %v\n", err)
					}
					continue
				}

				if st.AddIssue(rec) {
					result.newIssues++
					if rec.ID > result.maxIssueID {
						result.maxIssueID = rec.ID
					}
				}
			}

			// Incremental mode is caught up for this term once a page is
			// entirely composed of already-known issue IDs. Skipped malformed
			// items do not count; later pages may still hold new issues.
			if !config.Full && knownOnPage == len(res.Items) {
				break
			}
			if len(res.Items) < config.PerPage {
				break
			}
		}
	}

	return result, nil
}
