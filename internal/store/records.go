// Package store holds the typed tables for collected indicators and their
// flat-file persistence. Tables live in memory as strongly-typed collections;
// CSV/JSON serialization happens only at the persistence boundary.
package store

import (
	"sort"
	"time"
)

// IssueRecord is one observed phishing issue. Immutable once recorded.
type IssueRecord struct {
	ID             int64
	Repo           string // owner/name of the repository the issue was filed in
	Title          string
	Creator        string
	CreatedAt      time.Time
	MatchedTerm    string
	URL            string
	MentionedUsers []string // usernames extracted from the body, sorted, excludes Creator
	ProcessedAt    time.Time
}

// Usernames returns every username this issue references: the creator plus
// all mentioned users, deduplicated and sorted.
func (r IssueRecord) Usernames() []string {
	seen := make(map[string]struct{}, len(r.MentionedUsers)+1)
	if r.Creator != "" {
		seen[r.Creator] = struct{}{}
	}
	for _, u := range r.MentionedUsers {
		if u != "" {
			seen[u] = struct{}{}
		}
	}

	names := make([]string, 0, len(seen))
	for u := range seen {
		names = append(names, u)
	}
	sort.Strings(names)
	return names
}

// UserRecord is one compromised (or targeted) account. All fields are derived
// from the issue table, so records only ever grow: IssueCount increments and
// Repos gains members as referencing issues are ingested.
type UserRecord struct {
	Username    string
	FirstSeen   time.Time // earliest created_at among referencing issues
	IssueCount  int       // number of distinct issues referencing the user
	Repos       []string  // sorted union of repositories across those issues
	LastUpdated time.Time // latest processed_at among referencing issues
}

// Cursor marks how far the previous run progressed. Singleton, overwritten
// each run.
type Cursor struct {
	LastIssueID    int64     `json:"last_issue_id"`
	LastRunTime    time.Time `json:"last_run_time"`
	TotalProcessed int       `json:"total_issues_processed"`
	PagesUsed      int       `json:"pages_used"`
}
