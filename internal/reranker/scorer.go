package reranker

import (
	"math"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/fyrsmithlabs/promorag/internal/corpus"
	"github.com/fyrsmithlabs/promorag/internal/query"
)

// MaxBonus is the ceiling of a heuristic bonus.
const MaxBonus = 100.0

var (
	mentionedName  = regexp.MustCompile(`([А-ЯЁ][а-яё]+(?:\s+[А-ЯЁ][а-яё]+)?|@[a-zA-Z0-9._]+)`)
	contactInText  = regexp.MustCompile(`[\p{L}\p{N}_.-]+@[\p{L}\p{N}_.-]+|@[\p{L}\p{N}_.]+`)
	contactChannel = []string{"email", "почта", "телеграм", "tg", "телефон", "связаться"}
	contactHeaders = []string{
		"position", "должность", "name", "имя", "фамилия", "email", "почта", "tg",
		"telegram", "contact", "контакт", "responsible", "ответственный",
	}
	slaHeaders = []string{"sla", "срок", "время", "duration"}
)

// Scorer computes heuristic bonuses. It is safe for concurrent use.
type Scorer struct {
	keyLinks []query.KeyLink
}

// NewScorer returns a scorer matching link targets against keyLinks.
func NewScorer(keyLinks []query.KeyLink) *Scorer {
	return &Scorer{keyLinks: keyLinks}
}

// Bonus rates how well chunk fits a query of type qtype. queryLower must
// already be lowercased. The result lies in [0, MaxBonus].
func (s *Scorer) Bonus(chunk corpus.Chunk, queryLower string, qtype query.Type, linkTarget string) float64 {
	meta := chunk.Meta
	text := strings.ToLower(chunk.Text)
	structured := meta.Table

	var score float64
	if structured {
		switch qtype {
		case query.TypeContact, query.TypeSLA, query.TypeGeneral, query.TypeLink:
			score += 5
		}
	}

	switch qtype {
	case query.TypeContact:
		score += s.contactBonus(meta, text, queryLower)
	case query.TypeSLA:
		if len(meta.SLA) > 0 {
			score += 25
		}
		if structured && headerContains(meta.Columns, slaHeaders) {
			score += 15
		}
		if strings.Contains(queryLower, "инцидент") && strings.Contains(text, "инцидент") {
			score += 10
		}
	case query.TypeProcess:
		if len(meta.Stage) > 0 {
			score += 15
		}
		if meta.Type == "process" {
			score += 15
		}
	case query.TypeTool:
		switch {
		case anyIn(meta.Tools, queryLower), anyIn(meta.FormType, queryLower):
			score += 20
		case len(meta.Tools) > 0, len(meta.FormType) > 0:
			score += 10
		}
		if meta.Type == "form_instruction" {
			score += 10
		}
	case query.TypeLink:
		score += s.linkBonus(meta.Link, linkTarget)
	}

	if common := sharedWords(queryLower, text); common > 0 {
		per := 5.0
		if qtype == query.TypeGeneral {
			per = 3
		}
		score += float64(common) * per
	}

	score = math.Min(score, MaxBonus)
	if math.IsNaN(score) {
		return 0
	}
	return score
}

func (s *Scorer) contactBonus(meta corpus.Metadata, text, queryLower string) float64 {
	multiplier := 1.0
	if strings.HasPrefix(meta.SourceType, string(corpus.BlockExcelRow)) {
		multiplier = 0.5
	}
	if containsAny(queryLower, contactChannel) {
		multiplier *= 1.5
	}

	var score float64
	if meta.Responsible != "" {
		name := ""
		if m := mentionedName.FindStringSubmatch(queryLower); m != nil {
			name = strings.ToLower(m[1])
		}
		if name != "" && strings.Contains(strings.ToLower(meta.Responsible), name) {
			score += 25 * multiplier
		} else {
			score += 10 * multiplier
		}
	}
	if contactInText.MatchString(text) {
		score += 5 * multiplier
	}
	if meta.Table && headerContains(meta.Columns, contactHeaders) {
		score += 8 * multiplier
	}
	return score
}

func (s *Scorer) linkBonus(links []string, target string) float64 {
	if len(links) == 0 {
		return 0
	}
	score := 10.0
	if target == "" {
		return score
	}
	for _, kl := range s.keyLinks {
		if target != kl.Target() {
			continue
		}
		for _, u := range links {
			if strings.Contains(u, kl.Pattern) {
				return score + 60
			}
		}
		break
	}
	for _, u := range links {
		if strings.Contains(strings.ToLower(u), target) {
			return score + 30
		}
	}
	return score
}

// headerContains reports whether any lowercased header contains any key.
func headerContains(headers, keys []string) bool {
	for _, h := range headers {
		if containsAny(strings.ToLower(h), keys) {
			return true
		}
	}
	return false
}

// anyIn reports whether any value occurs, lowercased, in s.
func anyIn(values []string, s string) bool {
	for _, v := range values {
		if strings.Contains(s, strings.ToLower(v)) {
			return true
		}
	}
	return false
}

func containsAny(s string, words []string) bool {
	for _, w := range words {
		if strings.Contains(s, w) {
			return true
		}
	}
	return false
}

// sharedWords counts distinct words of three or more runes present in both
// texts.
func sharedWords(a, b string) int {
	left := words(a)
	if len(left) == 0 {
		return 0
	}
	n := 0
	for w := range words(b) {
		if left[w] {
			n++
		}
	}
	return n
}

func words(s string) map[string]bool {
	set := make(map[string]bool)
	for _, w := range strings.FieldsFunc(s, func(r rune) bool { return !isWordRune(r) }) {
		if utf8.RuneCountInString(w) >= 3 {
			set[w] = true
		}
	}
	return set
}

func isWordRune(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.Is(unicode.Mn, r)
}
