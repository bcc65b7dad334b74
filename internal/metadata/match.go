package metadata

import (
	"sort"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/dlclark/regexp2"
)

// matchTimeout bounds a single regex evaluation.
const matchTimeout = 250 * time.Millisecond

func compile(expr string, opts regexp2.RegexOptions) *regexp2.Regexp {
	re := regexp2.MustCompile(expr, opts)
	re.MatchTimeout = matchTimeout
	return re
}

// pass collects warnings produced while extracting one input.
type pass struct {
	warnings []*ExtractionWarning
}

func (p *pass) warn(signal string, re *regexp2.Regexp, err error) {
	p.warnings = append(p.warnings, &ExtractionWarning{Signal: signal, Pattern: re.String(), Err: err})
}

// findAll mirrors findall semantics: each match yields its capture groups,
// or the whole match when the pattern has none. A failed evaluation drops
// every match of that pattern.
func (p *pass) findAll(signal string, re *regexp2.Regexp, text string) [][]string {
	var out [][]string
	m, err := re.FindStringMatch(text)
	for err == nil && m != nil {
		groups := m.Groups()
		if len(groups) == 1 {
			out = append(out, []string{m.String()})
		} else {
			vals := make([]string, 0, len(groups)-1)
			for _, g := range groups[1:] {
				vals = append(vals, g.String())
			}
			out = append(out, vals)
		}
		m, err = re.FindNextMatch(m)
	}
	if err != nil {
		p.warn(signal, re, err)
		return nil
	}
	return out
}

// matches reports whether re matches text, treating failures as no match.
func (p *pass) matches(signal string, re *regexp2.Regexp, text string) bool {
	ok, err := re.MatchString(text)
	if err != nil {
		p.warn(signal, re, err)
		return false
	}
	return ok
}

// termSet matches vocabulary terms as whole words, case-insensitively.
type termSet struct {
	terms []term
}

type term struct {
	original string
	re       *regexp2.Regexp
}

// newTermSet compiles terms longest first. Terms that differ only in case
// collapse onto the first spelling.
func newTermSet(terms []string) termSet {
	sorted := append([]string(nil), terms...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return len([]rune(sorted[i])) > len([]rune(sorted[j]))
	})

	seen := make(map[string]bool, len(sorted))
	set := termSet{terms: make([]term, 0, len(sorted))}
	for _, t := range sorted {
		lower := strings.ToLower(t)
		if lower == "" || seen[lower] {
			continue
		}
		seen[lower] = true
		set.terms = append(set.terms, term{
			original: t,
			re:       compile(wordBounded(lower), regexp2.None),
		})
	}
	return set
}

// wordBounded anchors term at word boundaries on the sides where it starts
// or ends with a word character, so handles like "@team" still match.
func wordBounded(term string) string {
	expr := regexp2.Escape(term)
	if first, _ := utf8.DecodeRuneInString(term); isWordRune(first) {
		expr = `\b` + expr
	}
	if last, _ := utf8.DecodeLastRuneInString(term); isWordRune(last) {
		expr += `\b`
	}
	return expr
}

func isWordRune(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
}

// find returns the original spelling of every term present in text.
func (p *pass) find(signal string, set termSet, text string) []string {
	if text == "" {
		return nil
	}
	lower := strings.ToLower(text)
	var found []string
	for _, t := range set.terms {
		if p.matches(signal, t.re, lower) {
			found = append(found, t.original)
		}
	}
	return found
}

func (p *pass) has(signal string, set termSet, text string) bool {
	lower := strings.ToLower(text)
	for _, t := range set.terms {
		if p.matches(signal, t.re, lower) {
			return true
		}
	}
	return false
}

// sortedSet trims values, drops blanks and returns the sorted distinct rest.
func sortedSet(values ...[]string) []string {
	seen := make(map[string]struct{})
	for _, list := range values {
		for _, v := range list {
			if v = strings.TrimSpace(v); v != "" {
				seen[v] = struct{}{}
			}
		}
	}
	if len(seen) == 0 {
		return nil
	}
	out := make([]string, 0, len(seen))
	for v := range seen {
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}
