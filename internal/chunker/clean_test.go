package chunker

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCleanText(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "collapses spaces", input: "a  \t b", want: "a b"},
		{name: "non-breaking space", input: "10\u00a0дней", want: "10 дней"},
		{name: "blank line runs", input: "a\n\n\n\nb", want: "a\n\nb"},
		{name: "whitespace-only lines", input: "a\n  \n \nb", want: "a\n\nb"},
		{name: "trims", input: "  text \n", want: "text"},
		{name: "empty", input: "", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CleanText(tt.input))
		})
	}
}
