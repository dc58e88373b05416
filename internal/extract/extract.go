// Package extract turns raw search results into issue records and candidate
// usernames. Extraction is a pure function of its input; over-detection of
// usernames is acceptable, silent loss is not.
package extract

import (
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/phishtrack/phishtrack/internal/ghapi"
	"github.com/phishtrack/phishtrack/internal/store"
)

// ErrInvalidIssue marks a search item that failed schema validation. Callers
// skip the item and continue; a malformed entry is never fatal.
var ErrInvalidIssue = errors.New("issue failed schema validation")

// DefaultMentionPattern matches @-mentions using GitHub's login rules:
// 1-39 alphanumeric characters and inner hyphens, no leading/trailing hyphen.
// The first capture group is the username.
const DefaultMentionPattern = `@([a-zA-Z0-9](?:[a-zA-Z0-9-]{0,37}[a-zA-Z0-9])?)`

// Extractor applies a fixed set of username patterns to issue bodies.
// Patterns are configuration data, not hard-coded logic; new campaign phrase
// templates are added without touching code.
type Extractor struct {
	patterns []*regexp.Regexp
}

// NewExtractor compiles the given patterns. Each pattern must contain at
// least one capture group, which yields the username. An empty list falls
// back to DefaultMentionPattern.
func NewExtractor(patterns []string) (*Extractor, error) {
	if len(patterns) == 0 {
		patterns = []string{DefaultMentionPattern}
	}

	compiled := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("invalid extraction pattern %q: %w", p, err)
		}
		if re.NumSubexp() < 1 {
			return nil, fmt.Errorf("extraction pattern %q has no capture group", p)
		}
		compiled = append(compiled, re)
	}

	return &Extractor{patterns: compiled}, nil
}

// Extract converts one raw search item into an issue record plus the
// candidate usernames it references (creator first, then body matches).
// Returns ErrInvalidIssue when the item fails schema validation.
func (e *Extractor) Extract(item ghapi.SearchIssue, term string, processedAt time.Time) (store.IssueRecord, []string, error) {
	repo, ok := repoFromURL(item.RepositoryURL)
	if item.ID == 0 || !ok || item.CreatedAt.IsZero() {
		return store.IssueRecord{}, nil, fmt.Errorf("%w: id=%d repository_url=%q", ErrInvalidIssue, item.ID, item.RepositoryURL)
	}
	if item.PullRequest != nil {
		// The search API can still return pull requests despite is:issue.
		return store.IssueRecord{}, nil, fmt.Errorf("%w: id=%d is a pull request", ErrInvalidIssue, item.ID)
	}

	mentioned := e.usernamesFromBody(item.Body, item.User.Login)

	rec := store.IssueRecord{
		ID:             item.ID,
		Repo:           repo,
		Title:          item.Title,
		Creator:        item.User.Login,
		CreatedAt:      item.CreatedAt,
		MatchedTerm:    term,
		URL:            item.HTMLURL,
		MentionedUsers: mentioned,
		ProcessedAt:    processedAt,
	}

	return rec, rec.Usernames(), nil
}

// usernamesFromBody applies every pattern to the body and collects the first
// capture group of each match, deduplicated and sorted. The creator is
// excluded; it is carried separately on the record.
func (e *Extractor) usernamesFromBody(body, creator string) []string {
	seen := make(map[string]struct{})
	for _, re := range e.patterns {
		for _, match := range re.FindAllStringSubmatch(body, -1) {
			name := match[1]
			if name == "" || name == creator {
				continue
			}
			seen[name] = struct{}{}
		}
	}

	if len(seen) == 0 {
		return nil
	}
	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// repoFromURL derives "owner/name" from an API repository URL such as
// https://api.github.com/repos/owner/name. The host is not assumed, so
// GitHub Enterprise URLs work too.
func repoFromURL(u string) (string, bool) {
	idx := strings.Index(u, "/repos/")
	if idx < 0 {
		return "", false
	}
	repo := strings.Trim(u[idx+len("/repos/"):], "/")
	parts := strings.Split(repo, "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", false
	}
	return repo, true
}
