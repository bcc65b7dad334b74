package chunker

import (
	"regexp"
	"strings"
)

// Block types assigned by the semantic splitter.
const (
	TypeHeading      = "heading"
	TypeNumberedList = "numbered_list"
	TypeBulletList   = "bullet_list"
	TypeQuestion     = "question"
	TypeAnswer       = "answer"
	TypeCheckbox     = "checkbox"
	TypeText         = "text"
	TypeTable        = "table"
)

// blockRule tags a block whose first line matches pattern.
type blockRule struct {
	pattern *regexp.Regexp
	tag     string
}

// blockRules are evaluated in order; the first match wins.
var blockRules = []blockRule{
	{regexp.MustCompile(`^#{1,6}\s+\S`), TypeHeading},
	{regexp.MustCompile(`^\s*[-*]?\s*\[[ xX]\]`), TypeCheckbox},
	{regexp.MustCompile(`^\s*\d+[.)]\s+`), TypeNumberedList},
	{regexp.MustCompile(`^\s*[-*•]\s+`), TypeBulletList},
	{regexp.MustCompile(`(?i)^\s*(?:q|вопрос|в)\s*[:.]\s|\?\s*$`), TypeQuestion},
	{regexp.MustCompile(`(?i)^\s*(?:a|ответ|о)\s*[:.]\s`), TypeAnswer},
}

var (
	headingLine    = regexp.MustCompile(`^(#{1,6})\s+(.+?)\s*#*\s*$`)
	semanticLinks  = regexp.MustCompile(`(?i)\b(?:https?://|www\.)[^\s<>()\[\]{}"'«»]+`)
	contactPattern = regexp.MustCompile(`[\p{L}\p{N}._%+-]+@[\p{L}\p{N}-]+(?:\.[\p{L}\p{N}-]+)+|@[A-Za-z0-9_.]{3,}`)
	tagPattern     = regexp.MustCompile(`\[([^\[\]\n]{2,50})\]`)
)

// SemanticMeta describes a structure-aware chunk.
type SemanticMeta struct {
	ChunkType       string   `json:"chunk_type"`
	Heading         string   `json:"heading,omitempty"`
	Section         string   `json:"section,omitempty"`
	Links           []string `json:"links,omitempty"`
	Contacts        []string `json:"contacts,omitempty"`
	Tags            []string `json:"tags,omitempty"`
	TableHeaders    []string `json:"table_headers,omitempty"`
	IsCompleteTable bool     `json:"is_complete_table,omitempty"`
}

// SemanticChunk is a block of text with its structural metadata.
type SemanticChunk struct {
	Text string       `json:"text"`
	Meta SemanticMeta `json:"meta"`
}

// Semantic splits markdown-like text along its structure.
type Semantic struct {
	maxSize int
	lines   *Recursive
}

// NewSemantic returns a semantic splitter producing blocks of at most
// maxChunkSize runes.
func NewSemantic(maxChunkSize int) (*Semantic, error) {
	if maxChunkSize <= 0 {
		return nil, &ConfigError{Size: maxChunkSize, Reason: "size must be positive"}
	}
	// Single lines longer than the limit are sliced without overlap.
	lines, err := NewRecursive(maxChunkSize, 0, []string{". ", " ", ""}, true)
	if err != nil {
		return nil, err
	}
	return &Semantic{maxSize: maxChunkSize, lines: lines}, nil
}

// Split segments text into structural blocks.
func (s *Semantic) Split(text string) []SemanticChunk {
	text = strings.TrimSpace(text)
	if text == "" {
		return []SemanticChunk{}
	}
	if isTable(text) {
		return s.splitTable(text)
	}
	return s.merge(s.scan(text))
}

func isTable(text string) bool {
	lines := nonEmptyLines(text)
	return len(lines) >= 3 && tableRowPattern.MatchString(lines[0])
}

// scanner accumulates lines into blocks under the current heading context.
type scanner struct {
	heading string
	section string
	buf     []string
	bufLen  int
	out     []SemanticChunk
}

func (s *Semantic) scan(text string) []SemanticChunk {
	sc := &scanner{}
	for _, line := range strings.Split(text, "\n") {
		if m := headingLine.FindStringSubmatch(line); m != nil {
			sc.flush()
			title := strings.TrimSpace(m[2])
			if len(m[1]) == 2 {
				sc.section = title
			}
			sc.heading = title
			sc.add(line)
			continue
		}
		if runeLen(line) > s.maxSize {
			sc.flush()
			for _, part := range s.lines.Split(line) {
				sc.add(part)
				sc.flush()
			}
			continue
		}
		if len(sc.buf) > 0 && sc.bufLen+1+runeLen(line) > s.maxSize {
			sc.flush()
		}
		sc.add(line)
	}
	sc.flush()
	return sc.out
}

func (sc *scanner) add(line string) {
	if len(sc.buf) > 0 {
		sc.bufLen++
	}
	sc.buf = append(sc.buf, line)
	sc.bufLen += runeLen(line)
}

func (sc *scanner) flush() {
	text := strings.TrimSpace(strings.Join(sc.buf, "\n"))
	sc.buf, sc.bufLen = nil, 0
	if text == "" {
		return
	}
	sc.out = append(sc.out, SemanticChunk{
		Text: text,
		Meta: SemanticMeta{
			ChunkType: detectBlockType(text),
			Heading:   sc.heading,
			Section:   sc.section,
			Links:     findAll(semanticLinks, text, 0),
			Contacts:  findAll(contactPattern, text, 0),
			Tags:      findAll(tagPattern, text, 1),
		},
	})
}

// merge joins adjacent blocks of the same type while they fit.
func (s *Semantic) merge(blocks []SemanticChunk) []SemanticChunk {
	merged := make([]SemanticChunk, 0, len(blocks))
	for _, b := range blocks {
		if n := len(merged); n > 0 {
			last := &merged[n-1]
			if last.Meta.ChunkType == b.Meta.ChunkType &&
				runeLen(last.Text)+2+runeLen(b.Text) <= s.maxSize {
				last.Text += "\n\n" + b.Text
				last.Meta.Links = appendUnique(last.Meta.Links, b.Meta.Links...)
				last.Meta.Contacts = appendUnique(last.Meta.Contacts, b.Meta.Contacts...)
				last.Meta.Tags = appendUnique(last.Meta.Tags, b.Meta.Tags...)
				continue
			}
		}
		merged = append(merged, b)
	}
	return merged
}

// splitTable keeps a table whole when it fits, otherwise slices it by line.
// Every slice repeats the header lines and, when it fits, the last row of
// the previous slice.
func (s *Semantic) splitTable(text string) []SemanticChunk {
	lines := nonEmptyLines(text)
	headers := splitCells(lines[0])
	if runeLen(text) <= s.maxSize {
		return []SemanticChunk{{
			Text: text,
			Meta: SemanticMeta{ChunkType: TypeTable, TableHeaders: headers, IsCompleteTable: true},
		}}
	}

	prefix := lines[:1]
	data := lines[1:]
	if len(lines) > 1 && tableSeparatorPattern.MatchString(lines[1]) {
		prefix = lines[:2]
		data = lines[2:]
	}

	var (
		out      []SemanticChunk
		current  []string
		fresh    int
		boundary string
	)
	size := func(extra string) int {
		n := runeLen(strings.Join(prefix, "\n"))
		for _, l := range current {
			n += 1 + runeLen(l)
		}
		return n + 1 + runeLen(extra)
	}
	emit := func() {
		body := append(append([]string{}, prefix...), current...)
		out = append(out, SemanticChunk{
			Text: strings.Join(body, "\n"),
			Meta: SemanticMeta{ChunkType: TypeTable, TableHeaders: headers},
		})
		boundary = current[len(current)-1]
		current, fresh = []string{boundary}, 0
	}
	for _, line := range data {
		if fresh > 0 && size(line) > s.maxSize {
			emit()
			if size(line) > s.maxSize {
				current = nil
			}
		}
		current = append(current, line)
		fresh++
	}
	if fresh > 0 {
		emit()
	}
	return out
}

func detectBlockType(text string) string {
	first := text
	if i := strings.IndexByte(text, '\n'); i >= 0 {
		first = text[:i]
	}
	for _, rule := range blockRules {
		if rule.pattern.MatchString(first) {
			return rule.tag
		}
	}
	return TypeText
}

func findAll(re *regexp.Regexp, text string, group int) []string {
	var out []string
	for _, m := range re.FindAllStringSubmatch(text, -1) {
		v := strings.TrimRight(strings.TrimSpace(m[group]), ".,;:!?")
		out = appendUnique(out, v)
	}
	return out
}

func appendUnique(dst []string, values ...string) []string {
	for _, v := range values {
		if v == "" {
			continue
		}
		seen := false
		for _, d := range dst {
			if d == v {
				seen = true
				break
			}
		}
		if !seen {
			dst = append(dst, v)
		}
	}
	return dst
}
