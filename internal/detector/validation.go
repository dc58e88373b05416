package detector

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pterm/pterm"
)

// defaultTerms identifies the currently tracked campaign: the OAuth client ID
// embedded in the phishing issues it mass-files. New terms belong in a config
// file or terms file, not here.
var defaultTerms = []string{"Ov23lit4gvZ7pVctYyZH"}

// maxTermLength bounds a single search term. GitHub rejects queries over 256
// characters anyway; failing early gives a better message.
const maxTermLength = 256

// setupAndValidate normalizes the config and applies defaults.
func setupAndValidate(config *Config) error {
	if config.Verbose {
		pterm.EnableDebugMessages()
	}

	if config.MaxPages <= 0 {
		config.MaxPages = 200
	}
	if config.PerPage <= 0 || config.PerPage > 100 {
		config.PerPage = 100
	}
	if config.DataDir == "" {
		config.DataDir = "data"
	}

	return nil
}

// validateTerm checks that a search term is usable as a single query string.
func validateTerm(term string) error {
	if term == "" {
		return fmt.Errorf("search term cannot be empty")
	}
	if len(term) > maxTermLength {
		return fmt.Errorf("search term too long (max %d characters): %.40s...", maxTermLength, term)
	}
	if strings.ContainsAny(term, "\r\n") {
		return fmt.Errorf("search term cannot span multiple lines: %q", term)
	}
	return nil
}

// loadTerms resolves the search-term list: explicit config terms win, then a
// terms file, then the built-in defaults.
//
// Terms file format:
//   - One term per line
//   - Empty lines are ignored
//   - Lines starting with # are treated as comments
//   - Leading/trailing whitespace is automatically trimmed
func loadTerms(config Config) ([]string, error) {
	if len(config.Terms) > 0 {
		return dedupeTerms(config.Terms)
	}

	if config.TermsFile != "" {
		data, err := os.ReadFile(filepath.Clean(config.TermsFile))
		if err != nil {
			return nil, fmt.Errorf("failed to read terms file: %w", err)
		}

		var terms []string
		for _, line := range strings.Split(string(data), "\n") {
			line = strings.TrimSpace(strings.TrimSuffix(line, "\r"))
			if line == "" || strings.HasPrefix(line, "#") {
				continue
			}
			terms = append(terms, line)
		}
		if len(terms) == 0 {
			return nil, fmt.Errorf("terms file %s contains no terms", config.TermsFile)
		}
		return dedupeTerms(terms)
	}

	return defaultTerms, nil
}

// dedupeTerms validates terms and removes duplicates, preserving order.
func dedupeTerms(terms []string) ([]string, error) {
	seen := make(map[string]struct{}, len(terms))
	out := make([]string, 0, len(terms))
	for _, term := range terms {
		if err := validateTerm(term); err != nil {
			return nil, err
		}
		if _, ok := seen[term]; ok {
			continue
		}
		seen[term] = struct{}{}
		out = append(out, term)
	}
	return out, nil
}
