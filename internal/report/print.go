package report

import (
	"time"

	"github.com/phishtrack/phishtrack/internal/store"
	"github.com/pterm/pterm"
)

// Print renders the end-of-run report for a snapshot.
func Print(snap Snapshot, topUsers []store.UserRecord, cur store.Cursor) {
	pterm.Println()
	pterm.DefaultSection.Println("GitHub Phishing Attack Report")

	pterm.Info.Printf("Last updated: %s\n", snap.LastUpdated.Format(time.RFC3339))
	pterm.Info.Printf("   ├─ Total phishing issues: %d\n", snap.TotalIssues)
	pterm.Info.Printf("   ├─ Compromised users: %d\n", snap.CompromisedUsers)
	pterm.Info.Printf("   ├─ Affected repositories: %d\n", snap.AffectedRepos)
	pterm.Info.Printf("   └─ Processed since start: %d\n", snap.TotalProcessed)

	if snap.FirstIssueDate != "" {
		pterm.Info.Printf("First issue detected: %s\n", snap.FirstIssueDate)
		pterm.Info.Printf("Latest issue detected: %s\n", snap.LatestIssueDate)
	}

	if len(topUsers) > 0 {
		pterm.Println()
		pterm.Info.Println("Top users by issue count:")
		for i, u := range topUsers {
			branch := "├─"
			if i == len(topUsers)-1 {
				branch = "└─"
			}
			pterm.Info.Printf("   %s %s: %d issues across %d repos\n", branch, u.Username, u.IssueCount, len(u.Repos))
		}
	}

	pterm.Println()
	pterm.Info.Println("Incremental processing status")
	if cur.LastIssueID != 0 {
		pterm.Info.Printf("   ├─ Last processed issue ID: %d\n", cur.LastIssueID)
	} else {
		pterm.Info.Println("   ├─ Last processed issue ID: none")
	}
	if cur.LastRunTime.IsZero() {
		pterm.Info.Println("   └─ Last run: never")
	} else {
		pterm.Info.Printf("   └─ Last run: %s\n", cur.LastRunTime.Format(time.RFC3339))
	}
}
