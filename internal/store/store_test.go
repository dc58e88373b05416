package store

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func issue(id int64, repo, creator string, mentioned ...string) IssueRecord {
	return IssueRecord{
		ID:             id,
		Repo:           repo,
		Title:          "permissions request",
		Creator:        creator,
		CreatedAt:      time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC).Add(time.Duration(id) * time.Minute),
		MatchedTerm:    "term",
		URL:            "https://github.com/" + repo + "/issues/1",
		MentionedUsers: mentioned,
		ProcessedAt:    time.Date(2026, 2, 20, 0, 0, 0, 0, time.UTC),
	}
}

func TestStore_SingleIssueScenario(t *testing.T) {
	s := New()
	require.True(t, s.AddIssue(issue(1, "x/y", "alice")))
	s.RebuildUsers()

	assert.Equal(t, 1, s.IssueCount())
	rec, ok := s.User("alice")
	require.True(t, ok)
	assert.Equal(t, 1, rec.IssueCount)
	assert.Equal(t, []string{"x/y"}, rec.Repos)
}

func TestStore_ReingestKnownIDIsNoop(t *testing.T) {
	s := New()
	require.True(t, s.AddIssue(issue(42, "x/y", "alice")))
	require.False(t, s.AddIssue(issue(42, "x/y", "alice")))
	s.RebuildUsers()

	rec, ok := s.User("alice")
	require.True(t, ok)
	assert.Equal(t, 1, rec.IssueCount)
	assert.Equal(t, 1, s.IssueCount())
}

func TestStore_MergeIdempotent(t *testing.T) {
	batch := []IssueRecord{
		issue(1, "x/y", "alice", "bob"),
		issue(2, "a/b", "alice"),
		issue(3, "x/y", "bob"),
	}

	once := New()
	for _, rec := range batch {
		once.AddIssue(rec)
	}
	once.RebuildUsers()

	twice := New()
	for i := 0; i < 2; i++ {
		for _, rec := range batch {
			twice.AddIssue(rec)
		}
		twice.RebuildUsers()
	}

	assert.Equal(t, once.Issues(), twice.Issues())
	assert.Equal(t, once.Users(), twice.Users())
}

func TestStore_MergeOrderIndependent(t *testing.T) {
	batch := []IssueRecord{
		issue(1, "x/y", "alice", "bob"),
		issue(2, "a/b", "alice"),
		issue(3, "x/y", "bob", "alice"),
	}

	permutations := [][]int{
		{0, 1, 2}, {0, 2, 1}, {1, 0, 2}, {1, 2, 0}, {2, 0, 1}, {2, 1, 0},
	}

	var want []UserRecord
	for _, perm := range permutations {
		s := New()
		for _, idx := range perm {
			s.AddIssue(batch[idx])
		}
		s.RebuildUsers()

		if want == nil {
			want = s.Users()
			continue
		}
		assert.Equal(t, want, s.Users())
	}
}

func TestStore_UserDerivation(t *testing.T) {
	s := New()
	s.AddIssue(issue(1, "x/y", "alice", "bob"))
	s.AddIssue(issue(2, "a/b", "carol", "alice"))
	s.AddIssue(issue(3, "a/b", "alice"))
	s.RebuildUsers()

	alice, ok := s.User("alice")
	require.True(t, ok)
	assert.Equal(t, 3, alice.IssueCount)
	assert.Equal(t, []string{"a/b", "x/y"}, alice.Repos)
	// FirstSeen is the earliest referencing issue's creation time
	assert.Equal(t, issue(1, "", "").CreatedAt, alice.FirstSeen)

	bob, ok := s.User("bob")
	require.True(t, ok)
	assert.Equal(t, 1, bob.IssueCount)
	assert.Equal(t, []string{"x/y"}, bob.Repos)
}

func TestStore_IssueIDsPairwiseDistinct(t *testing.T) {
	s := New()
	for i := int64(1); i <= 50; i++ {
		s.AddIssue(issue(i%10+1, "x/y", "alice"))
	}

	seen := make(map[int64]bool)
	for _, rec := range s.Issues() {
		assert.False(t, seen[rec.ID], "duplicate issue ID %d", rec.ID)
		seen[rec.ID] = true
	}
	assert.Equal(t, 10, s.IssueCount())
}
