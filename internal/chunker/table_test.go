package chunker

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/promorag/internal/corpus"
)

func TestFormatTableToMarkdown(t *testing.T) {
	rows := []corpus.Row{
		{{Key: "Отдел", Value: "Promo"}, {Key: "Контакт", Value: "@promo_lead"}},
		{{Key: "Отдел", Value: "CRM | Email"}, {Key: "Контакт", Value: "line1\nline2"}},
	}

	got := FormatTableToMarkdown(rows, []string{"Отдел", "Контакт"})
	want := "| Отдел | Контакт |\n" +
		"|-------|---------|\n" +
		"| Promo | @promo_lead |\n" +
		`| CRM \| Email | line1 line2 |`
	assert.Equal(t, want, got)
}

func TestFormatTableToMarkdown_NoHeaders(t *testing.T) {
	assert.Equal(t, InvalidTableMarker, FormatTableToMarkdown(nil, nil))
}

func TestParseMarkdownTable_RoundTrip(t *testing.T) {
	headers := []string{"Этап", "SLA"}
	rows := []corpus.Row{
		{{Key: "Этап", Value: "Согласование"}, {Key: "SLA", Value: "3 рабочих дня"}},
		{{Key: "Этап", Value: "A|B"}, {Key: "SLA", Value: ""}},
	}

	gotHeaders, gotRows, err := ParseMarkdownTable(FormatTableToMarkdown(rows, headers))
	require.NoError(t, err)
	assert.Equal(t, headers, gotHeaders)
	assert.Equal(t, rows, gotRows)
}

func TestParseMarkdownTable_NotATable(t *testing.T) {
	_, _, err := ParseMarkdownTable("just text\nmore text")
	assert.ErrorIs(t, err, ErrNotTable)
}
