package chunker

import (
	"errors"
	"regexp"
	"strings"

	"github.com/fyrsmithlabs/promorag/internal/corpus"
)

// InvalidTableMarker is rendered in place of a table without headers.
const InvalidTableMarker = "[Неверные данные для таблицы]"

// ErrNotTable is returned when text cannot be parsed as a markdown table.
var ErrNotTable = errors.New("not a markdown table")

var (
	tableRowPattern       = regexp.MustCompile(`^\s*\|.*\|\s*$`)
	tableSeparatorPattern = regexp.MustCompile(`^\s*\|?\s*:?-{3,}:?\s*(\|\s*:?-{3,}:?\s*)*\|?\s*$`)
)

// FormatTableToMarkdown renders rows as a markdown table. Cells are looked
// up by header; pipes are escaped and newlines inside cells flattened.
func FormatTableToMarkdown(rows []corpus.Row, headers []string) string {
	if len(headers) == 0 {
		return InvalidTableMarker
	}

	escaped := make([]string, len(headers))
	dashes := make([]string, len(headers))
	for i, h := range headers {
		escaped[i] = escapePipes(h)
		dashes[i] = strings.Repeat("-", max(3, runeLen(escaped[i])))
	}

	lines := make([]string, 0, len(rows)+2)
	lines = append(lines,
		"| "+strings.Join(escaped, " | ")+" |",
		"|-"+strings.Join(dashes, "-|-")+"-|",
	)
	for _, row := range rows {
		cells := make([]string, len(headers))
		for i, h := range headers {
			cells[i] = strings.ReplaceAll(escapePipes(row.Get(h)), "\n", " ")
		}
		lines = append(lines, "| "+strings.Join(cells, " | ")+" |")
	}
	return strings.Join(lines, "\n")
}

// ParseMarkdownTable reads a table produced by FormatTableToMarkdown (or any
// pipe table with a separator line) back into headers and rows.
func ParseMarkdownTable(md string) ([]string, []corpus.Row, error) {
	lines := nonEmptyLines(md)
	if len(lines) < 2 || !tableRowPattern.MatchString(lines[0]) || !tableSeparatorPattern.MatchString(lines[1]) {
		return nil, nil, ErrNotTable
	}

	headers := splitCells(lines[0])
	rows := make([]corpus.Row, 0, len(lines)-2)
	for _, line := range lines[2:] {
		if !tableRowPattern.MatchString(line) {
			continue
		}
		cells := splitCells(line)
		row := make(corpus.Row, 0, len(headers))
		for i, h := range headers {
			var v string
			if i < len(cells) {
				v = cells[i]
			}
			row = append(row, corpus.Field{Key: h, Value: v})
		}
		rows = append(rows, row)
	}
	return headers, rows, nil
}

// splitCells splits a table line on unescaped pipes and unescapes cells.
func splitCells(line string) []string {
	line = strings.TrimSpace(line)
	line = strings.TrimPrefix(line, "|")
	if strings.HasSuffix(line, "|") && !strings.HasSuffix(line, `\|`) {
		line = line[:len(line)-1]
	}

	var (
		cells []string
		cell  strings.Builder
	)
	runes := []rune(line)
	for i := 0; i < len(runes); i++ {
		switch {
		case runes[i] == '\\' && i+1 < len(runes) && runes[i+1] == '|':
			cell.WriteRune('|')
			i++
		case runes[i] == '|':
			cells = append(cells, strings.TrimSpace(cell.String()))
			cell.Reset()
		default:
			cell.WriteRune(runes[i])
		}
	}
	return append(cells, strings.TrimSpace(cell.String()))
}

func escapePipes(s string) string {
	return strings.ReplaceAll(s, "|", `\|`)
}

func nonEmptyLines(s string) []string {
	var out []string
	for _, line := range strings.Split(s, "\n") {
		if strings.TrimSpace(line) != "" {
			out = append(out, line)
		}
	}
	return out
}
