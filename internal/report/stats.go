// Package report computes attack statistics from the stored tables and
// renders the end-of-run terminal report.
//
// Statistics are always a full recompute over the merged history, never an
// incremental update, so the snapshot can not drift from the tables it
// describes.
package report

import (
	"sort"
	"time"

	"github.com/phishtrack/phishtrack/internal/store"
)

// RepoCount is one entry of the ranked repository list.
type RepoCount struct {
	Repo  string `json:"repo"`
	Count int    `json:"count"`
}

// Snapshot is the derived statistics table, persisted as attack_stats.json.
// It wholly replaces the previous snapshot on every run.
type Snapshot struct {
	LastUpdated      time.Time      `json:"last_updated"`
	TotalIssues      int            `json:"total_issues"`
	CompromisedUsers int            `json:"compromised_users"`
	AffectedRepos    int            `json:"affected_repos"`
	TotalProcessed   int            `json:"total_processed_since_start"`
	FirstIssueDate   string         `json:"first_issue_date,omitempty"`
	LatestIssueDate  string         `json:"latest_issue_date,omitempty"`
	DailyCounts      map[string]int `json:"daily_counts"`
	TopRepos         []RepoCount    `json:"top_repos"`
	Users            []string       `json:"users_list"`
	Repos            []string       `json:"repos_list"`
}

// Compute derives a snapshot from the full issue and user tables.
// All lists are sorted and ranking ties break by name ascending, so equal
// stores always produce byte-identical snapshots.
func Compute(s *store.Store, now time.Time) Snapshot {
	issues := s.Issues()
	users := s.Users()

	snap := Snapshot{
		LastUpdated:      now,
		TotalIssues:      len(issues),
		CompromisedUsers: len(users),
		TotalProcessed:   s.Cursor.TotalProcessed,
		DailyCounts:      make(map[string]int, len(issues)),
	}

	repoCounts := make(map[string]int)
	var first, latest time.Time

	for _, issue := range issues {
		repoCounts[issue.Repo]++
		snap.DailyCounts[issue.CreatedAt.UTC().Format("2006-01-02")]++

		if first.IsZero() || issue.CreatedAt.Before(first) {
			first = issue.CreatedAt
		}
		if issue.CreatedAt.After(latest) {
			latest = issue.CreatedAt
		}
	}

	if !first.IsZero() {
		snap.FirstIssueDate = first.UTC().Format(time.RFC3339)
		snap.LatestIssueDate = latest.UTC().Format(time.RFC3339)
	}

	snap.AffectedRepos = len(repoCounts)
	snap.Repos = make([]string, 0, len(repoCounts))
	snap.TopRepos = make([]RepoCount, 0, len(repoCounts))
	for repo, count := range repoCounts {
		snap.Repos = append(snap.Repos, repo)
		snap.TopRepos = append(snap.TopRepos, RepoCount{Repo: repo, Count: count})
	}
	sort.Strings(snap.Repos)
	sort.Slice(snap.TopRepos, func(i, j int) bool {
		if snap.TopRepos[i].Count != snap.TopRepos[j].Count {
			return snap.TopRepos[i].Count > snap.TopRepos[j].Count
		}
		return snap.TopRepos[i].Repo < snap.TopRepos[j].Repo
	})

	snap.Users = make([]string, 0, len(users))
	for _, u := range users {
		snap.Users = append(snap.Users, u.Username)
	}

	return snap
}

// TopUsers returns up to n user records ranked by issue count, ties broken
// by username ascending.
func TopUsers(s *store.Store, n int) []store.UserRecord {
	users := s.Users()
	sort.SliceStable(users, func(i, j int) bool {
		return users[i].IssueCount > users[j].IssueCount
	})
	if len(users) > n {
		users = users[:n]
	}
	return users
}
