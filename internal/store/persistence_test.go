package store

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_MissingDirYieldsEmptyStore(t *testing.T) {
	s, err := Load(filepath.Join(t.TempDir(), "does-not-exist"))
	require.NoError(t, err)

	assert.Equal(t, 0, s.IssueCount())
	assert.Zero(t, s.Cursor)
}

func TestSaveLoad_Roundtrip(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "data")

	s := New()
	s.AddIssue(IssueRecord{
		ID:             42,
		Repo:           "x/y",
		Title:          `title with "quotes", commas`,
		Creator:        "alice",
		CreatedAt:      time.Date(2026, 2, 10, 8, 30, 0, 0, time.UTC),
		MatchedTerm:    "term-a",
		URL:            "https://github.com/x/y/issues/5",
		MentionedUsers: []string{"bob", "carol"},
		ProcessedAt:    time.Date(2026, 2, 20, 9, 0, 0, 0, time.UTC),
	})
	s.RebuildUsers()
	s.Cursor = Cursor{LastIssueID: 42, LastRunTime: time.Date(2026, 2, 20, 9, 0, 0, 0, time.UTC), TotalProcessed: 1, PagesUsed: 3}

	require.NoError(t, Save(dir, s, []byte(`{"total_issues":1}`)))

	for _, name := range []string{IssuesFile, UsersFile, StatsFile, CursorFile} {
		_, err := os.Stat(filepath.Join(dir, name))
		assert.NoError(t, err, "expected %s to exist", name)
	}

	loaded, err := Load(dir)
	require.NoError(t, err)

	assert.Equal(t, s.Issues(), loaded.Issues())
	assert.Equal(t, s.Users(), loaded.Users())
	assert.Equal(t, s.Cursor, loaded.Cursor)
}

func TestSave_LeavesNoTempFiles(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "data")

	s := New()
	s.AddIssue(IssueRecord{ID: 1, Repo: "x/y", Creator: "alice",
		CreatedAt: time.Now().UTC(), ProcessedAt: time.Now().UTC()})
	s.RebuildUsers()
	require.NoError(t, Save(dir, s, []byte("{}")))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	for _, e := range entries {
		assert.NotContains(t, e.Name(), ".tmp")
	}
	assert.Len(t, entries, 4)
}

func TestLoad_SkipsMalformedRows(t *testing.T) {
	dir := t.TempDir()
	csv := "issue_id,repo,title,creator,created_at,matched_term,url,mentioned_users,processed_at\n" +
		"not-a-number,x/y,t,alice,2026-02-10T08:30:00Z,term,u,,2026-02-20T09:00:00Z\n" +
		"7,x/y,t,alice,2026-02-10T08:30:00Z,term,u,,2026-02-20T09:00:00Z\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, IssuesFile), []byte(csv), 0o644))

	s, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, 1, s.IssueCount())
	assert.True(t, s.HasIssue(7))
}

func TestLoad_CorruptedCursorStartsFresh(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, CursorFile), []byte("{broken"), 0o644))

	s, err := Load(dir)
	require.NoError(t, err)
	assert.Zero(t, s.Cursor)
}
