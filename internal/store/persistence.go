package store

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	json "github.com/goccy/go-json"
)

// File names inside the data directory.
const (
	IssuesFile = "phishing_issues.csv"
	UsersFile  = "compromised_users.csv"
	StatsFile  = "attack_stats.json"
	CursorFile = "last_run_data.json"
)

var (
	issueHeader = []string{"issue_id", "repo", "title", "creator", "created_at", "matched_term", "url", "mentioned_users", "processed_at"}
	userHeader  = []string{"username", "first_seen", "repos_affected", "repos", "issues_created", "last_updated"}
)

// repoListSeparator joins the repository and mention lists inside a single
// CSV field. GitHub logins and repo names cannot contain it.
const repoListSeparator = ";"

// Load reads the persisted tables from dir. A missing directory or missing
// files yield an empty store; this is the normal first-run case. The user
// table is re-derived from the issue table rather than read back, which keeps
// the occurrence-count invariant intact even if the user CSV was edited.
func Load(dir string) (*Store, error) {
	s := New()

	if err := loadIssues(filepath.Join(dir, IssuesFile), s); err != nil {
		return nil, err
	}
	if err := loadCursor(filepath.Join(dir, CursorFile), s); err != nil {
		return nil, err
	}

	s.RebuildUsers()
	return s, nil
}

func loadIssues(path string, s *Store) error {
	file, err := os.Open(path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to open issue table: %w", err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	rows, err := reader.ReadAll()
	if err != nil {
		return fmt.Errorf("failed to read issue table: %w", err)
	}

	for i, row := range rows {
		if i == 0 {
			continue // header
		}
		rec, ok := issueFromRow(row)
		if !ok {
			continue // tolerate stray rows, never fatal
		}
		s.AddIssue(rec)
	}

	return nil
}

func issueFromRow(row []string) (IssueRecord, bool) {
	if len(row) < len(issueHeader) {
		return IssueRecord{}, false
	}

	id, err := strconv.ParseInt(row[0], 10, 64)
	if err != nil || id == 0 {
		return IssueRecord{}, false
	}
	createdAt, err := time.Parse(time.RFC3339, row[4])
	if err != nil {
		return IssueRecord{}, false
	}
	processedAt, _ := time.Parse(time.RFC3339, row[8])

	var mentioned []string
	if row[7] != "" {
		mentioned = strings.Split(row[7], repoListSeparator)
	}

	return IssueRecord{
		ID:             id,
		Repo:           row[1],
		Title:          row[2],
		Creator:        row[3],
		CreatedAt:      createdAt,
		MatchedTerm:    row[5],
		URL:            row[6],
		MentionedUsers: mentioned,
		ProcessedAt:    processedAt,
	}, true
}

func loadCursor(path string, s *Store) error {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read cursor: %w", err)
	}
	if len(data) == 0 {
		return nil
	}

	var cur Cursor
	if err := json.Unmarshal(data, &cur); err != nil {
		// A corrupted cursor only costs incremental progress; start from
		// scratch rather than failing the run.
		return nil
	}
	s.Cursor = cur
	return nil
}

// Save writes all four tables to dir. Every file is rendered and staged as a
// temp file first; renames happen only after all staging succeeded, so a
// failure mid-save leaves the previous tables untouched.
//
// statsJSON is the already-serialized statistics snapshot; the store does not
// depend on how statistics are computed.
func Save(dir string, s *Store, statsJSON []byte) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create data directory: %w", err)
	}

	issuesCSV, err := renderIssuesCSV(s)
	if err != nil {
		return err
	}
	usersCSV, err := renderUsersCSV(s)
	if err != nil {
		return err
	}
	cursorJSON, err := json.MarshalIndent(s.Cursor, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal cursor: %w", err)
	}

	files := []struct {
		name string
		data []byte
	}{
		{IssuesFile, issuesCSV},
		{UsersFile, usersCSV},
		{StatsFile, statsJSON},
		{CursorFile, cursorJSON},
	}

	// Stage everything before renaming anything.
	staged := make([]string, 0, len(files))
	cleanup := func() {
		for _, tmp := range staged {
			_ = os.Remove(tmp) // Error is not critical during error cleanup
		}
	}

	for _, f := range files {
		tmp := filepath.Join(dir, f.name+".tmp")
		if err := writeFileSync(tmp, f.data); err != nil {
			cleanup()
			return err
		}
		staged = append(staged, tmp)
	}

	for i, f := range files {
		if err := os.Rename(staged[i], filepath.Join(dir, f.name)); err != nil {
			cleanup()
			return fmt.Errorf("failed to commit %s: %w", f.name, err)
		}
	}

	return nil
}

// writeFileSync writes data to path and fsyncs before closing, so a rename
// that follows never publishes a partially-flushed file.
func writeFileSync(path string, data []byte) (err error) {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create temp file %s: %w", path, err)
	}
	defer func() {
		if err != nil {
			_ = file.Close()
			_ = os.Remove(path)
		}
	}()

	if _, err = file.Write(data); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err = file.Sync(); err != nil {
		return fmt.Errorf("failed to sync %s: %w", path, err)
	}
	if err = file.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", path, err)
	}
	return nil
}

func renderIssuesCSV(s *Store) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	if err := w.Write(issueHeader); err != nil {
		return nil, fmt.Errorf("failed to render issue table: %w", err)
	}
	for _, rec := range s.Issues() {
		row := []string{
			strconv.FormatInt(rec.ID, 10),
			rec.Repo,
			rec.Title,
			rec.Creator,
			rec.CreatedAt.UTC().Format(time.RFC3339),
			rec.MatchedTerm,
			rec.URL,
			strings.Join(rec.MentionedUsers, repoListSeparator),
			rec.ProcessedAt.UTC().Format(time.RFC3339),
		}
		if err := w.Write(row); err != nil {
			return nil, fmt.Errorf("failed to render issue table: %w", err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("failed to render issue table: %w", err)
	}
	return buf.Bytes(), nil
}

func renderUsersCSV(s *Store) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	if err := w.Write(userHeader); err != nil {
		return nil, fmt.Errorf("failed to render user table: %w", err)
	}
	for _, rec := range s.Users() {
		row := []string{
			rec.Username,
			rec.FirstSeen.UTC().Format(time.RFC3339),
			strconv.Itoa(len(rec.Repos)),
			strings.Join(rec.Repos, repoListSeparator),
			strconv.Itoa(rec.IssueCount),
			rec.LastUpdated.UTC().Format(time.RFC3339),
		}
		if err := w.Write(row); err != nil {
			return nil, fmt.Errorf("failed to render user table: %w", err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("failed to render user table: %w", err)
	}
	return buf.Bytes(), nil
}
