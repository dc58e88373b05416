package report

import (
	"testing"
	"time"

	"github.com/phishtrack/phishtrack/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedStore(t *testing.T) *store.Store {
	t.Helper()
	s := store.New()

	day1 := time.Date(2026, 2, 10, 8, 0, 0, 0, time.UTC)
	day2 := time.Date(2026, 2, 11, 9, 0, 0, 0, time.UTC)

	issues := []store.IssueRecord{
		{ID: 1, Repo: "x/y", Creator: "alice", CreatedAt: day1, ProcessedAt: day2},
		{ID: 2, Repo: "x/y", Creator: "bob", CreatedAt: day1.Add(time.Hour), ProcessedAt: day2},
		{ID: 3, Repo: "a/b", Creator: "alice", CreatedAt: day2, MentionedUsers: []string{"carol"}, ProcessedAt: day2},
		{ID: 4, Repo: "m/n", Creator: "bob", CreatedAt: day2, ProcessedAt: day2},
		{ID: 5, Repo: "a/b", Creator: "bob", CreatedAt: day2, ProcessedAt: day2},
	}
	for _, rec := range issues {
		require.True(t, s.AddIssue(rec))
	}
	s.RebuildUsers()
	s.Cursor.TotalProcessed = 5
	return s
}

func TestCompute_Totals(t *testing.T) {
	snap := Compute(seedStore(t), time.Date(2026, 2, 12, 0, 0, 0, 0, time.UTC))

	assert.Equal(t, 5, snap.TotalIssues)
	assert.Equal(t, 3, snap.CompromisedUsers) // alice, bob, carol
	assert.Equal(t, 3, snap.AffectedRepos)
	assert.Equal(t, 5, snap.TotalProcessed)
	assert.Equal(t, "2026-02-10T08:00:00Z", snap.FirstIssueDate)
	assert.Equal(t, "2026-02-11T09:00:00Z", snap.LatestIssueDate)
	assert.Equal(t, []string{"alice", "bob", "carol"}, snap.Users)
	assert.Equal(t, []string{"a/b", "m/n", "x/y"}, snap.Repos)
}

func TestCompute_DailyCounts(t *testing.T) {
	snap := Compute(seedStore(t), time.Now())

	assert.Equal(t, map[string]int{
		"2026-02-10": 2,
		"2026-02-11": 3,
	}, snap.DailyCounts)
}

func TestCompute_TopReposTieBreakByName(t *testing.T) {
	snap := Compute(seedStore(t), time.Now())

	// a/b and x/y both have 2 issues; the tie breaks by name ascending.
	assert.Equal(t, []RepoCount{
		{Repo: "a/b", Count: 2},
		{Repo: "x/y", Count: 2},
		{Repo: "m/n", Count: 1},
	}, snap.TopRepos)
}

func TestCompute_EmptyStore(t *testing.T) {
	snap := Compute(store.New(), time.Now())

	assert.Zero(t, snap.TotalIssues)
	assert.Empty(t, snap.FirstIssueDate)
	assert.Empty(t, snap.DailyCounts)
	assert.Empty(t, snap.TopRepos)
}

func TestTopUsers_RankedWithTieBreak(t *testing.T) {
	top := TopUsers(seedStore(t), 2)

	require.Len(t, top, 2)
	assert.Equal(t, "bob", top[0].Username) // 3 issues
	assert.Equal(t, 3, top[0].IssueCount)
	assert.Equal(t, "alice", top[1].Username) // 2 issues
}
