package chunker

import (
	"regexp"
	"strings"
)

var (
	horizontalSpace = regexp.MustCompile(`[ \t]+`)
	blankLines      = regexp.MustCompile(`\n\s*\n`)
	newlineRuns     = regexp.MustCompile(`\n{3,}`)
)

// CleanText normalizes whitespace: non-breaking spaces become spaces, runs
// of spaces and tabs collapse, blank-line runs reduce to one empty line.
func CleanText(text string) string {
	text = strings.ReplaceAll(text, "\u00a0", " ")
	text = horizontalSpace.ReplaceAllString(text, " ")
	text = blankLines.ReplaceAllString(text, "\n\n")
	text = newlineRuns.ReplaceAllString(text, "\n\n")
	return strings.TrimSpace(text)
}
