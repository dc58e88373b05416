package store

import (
	"sort"
)

// Store holds the three persisted tables: issues keyed by ID, users keyed by
// username, and the run cursor. Statistics are derived elsewhere and never
// stored here.
type Store struct {
	issues map[int64]IssueRecord
	users  map[string]UserRecord
	Cursor Cursor
}

// New returns an empty store.
func New() *Store {
	return &Store{
		issues: make(map[int64]IssueRecord),
		users:  make(map[string]UserRecord),
	}
}

// HasIssue reports whether an issue ID is already recorded.
func (s *Store) HasIssue(id int64) bool {
	_, ok := s.issues[id]
	return ok
}

// IssueCount returns the number of recorded issues.
func (s *Store) IssueCount() int {
	return len(s.issues)
}

// AddIssue records an issue. Re-ingesting an already-known ID is a no-op;
// the return value reports whether the record was new.
func (s *Store) AddIssue(rec IssueRecord) bool {
	if _, ok := s.issues[rec.ID]; ok {
		return false
	}
	s.issues[rec.ID] = rec
	return true
}

// RebuildUsers re-derives the user table wholly from the issue table.
//
// Because every field is a pure function of the set of referencing issues,
// the result is deterministic and independent of the order issues were
// merged: IssueCount is the number of distinct referencing issues, Repos is
// the union of their repositories, FirstSeen the earliest created_at, and
// LastUpdated the latest processed_at.
func (s *Store) RebuildUsers() {
	users := make(map[string]UserRecord)
	repoSets := make(map[string]map[string]struct{})

	for _, issue := range s.issues {
		for _, name := range issue.Usernames() {
			rec, ok := users[name]
			if !ok {
				rec = UserRecord{Username: name, FirstSeen: issue.CreatedAt, LastUpdated: issue.ProcessedAt}
				repoSets[name] = make(map[string]struct{})
			}

			rec.IssueCount++
			repoSets[name][issue.Repo] = struct{}{}
			if issue.CreatedAt.Before(rec.FirstSeen) {
				rec.FirstSeen = issue.CreatedAt
			}
			if issue.ProcessedAt.After(rec.LastUpdated) {
				rec.LastUpdated = issue.ProcessedAt
			}
			users[name] = rec
		}
	}

	for name, set := range repoSets {
		rec := users[name]
		rec.Repos = make([]string, 0, len(set))
		for repo := range set {
			rec.Repos = append(rec.Repos, repo)
		}
		sort.Strings(rec.Repos)
		users[name] = rec
	}

	s.users = users
}

// Issues returns all issue records sorted by ID.
func (s *Store) Issues() []IssueRecord {
	issues := make([]IssueRecord, 0, len(s.issues))
	for _, rec := range s.issues {
		issues = append(issues, rec)
	}
	sort.Slice(issues, func(i, j int) bool { return issues[i].ID < issues[j].ID })
	return issues
}

// Users returns all user records sorted by username.
func (s *Store) Users() []UserRecord {
	users := make([]UserRecord, 0, len(s.users))
	for _, rec := range s.users {
		users = append(users, rec)
	}
	sort.Slice(users, func(i, j int) bool { return users[i].Username < users[j].Username })
	return users
}

// User looks up a single user record by username.
func (s *Store) User(username string) (UserRecord, bool) {
	rec, ok := s.users[username]
	return rec, ok
}
