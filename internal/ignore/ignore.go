// Package ignore filters source documents by gitignore-style name patterns.
//
// Patterns are matched with path.Match against the base name of a file.
// Directory patterns (trailing slash) and negations are not supported and
// are skipped.
package ignore

import (
	"bufio"
	"fmt"
	"io"
	"path"
	"strings"
)

// FileName is the ignore file read from a source location.
const FileName = ".promoragignore"

// DefaultPatterns skip Office lock files and hidden files.
var DefaultPatterns = []string{"~$*", ".*"}

// Matcher reports whether a file name is excluded.
type Matcher struct {
	patterns []string
}

// New returns a matcher for DefaultPatterns plus extra. Invalid patterns
// fail with path.ErrBadPattern.
func New(extra ...string) (*Matcher, error) {
	patterns := deduplicate(append(append([]string(nil), DefaultPatterns...), extra...))
	for _, p := range patterns {
		if _, err := path.Match(p, ""); err != nil {
			return nil, fmt.Errorf("ignore pattern %q: %w", p, err)
		}
	}
	return &Matcher{patterns: patterns}, nil
}

// Patterns returns the active patterns in order.
func (m *Matcher) Patterns() []string {
	return append([]string(nil), m.patterns...)
}

// Match reports whether name, or its base name, matches any pattern.
func (m *Matcher) Match(name string) bool {
	base := path.Base(strings.ReplaceAll(name, "\\", "/"))
	for _, p := range m.patterns {
		if ok, _ := path.Match(p, base); ok {
			return true
		}
	}
	return false
}

// Parse reads patterns from an ignore file.
func Parse(r io.Reader) ([]string, error) {
	var patterns []string
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		if p := parseLine(scanner.Text()); p != "" {
			patterns = append(patterns, p)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return deduplicate(patterns), nil
}

// parseLine returns the pattern on line, or "" for blanks, comments and
// unsupported forms.
func parseLine(line string) string {
	line = strings.TrimSpace(line)
	switch {
	case line == "", strings.HasPrefix(line, "#"), strings.HasPrefix(line, "!"):
		return ""
	case strings.HasSuffix(line, "/"):
		return ""
	}
	line = strings.TrimPrefix(line, "**/")
	return strings.TrimPrefix(line, "/")
}

func deduplicate(patterns []string) []string {
	seen := make(map[string]bool)
	result := make([]string, 0, len(patterns))
	for _, p := range patterns {
		if !seen[p] {
			seen[p] = true
			result = append(result, p)
		}
	}
	return result
}
