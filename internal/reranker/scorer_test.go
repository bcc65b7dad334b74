package reranker

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/fyrsmithlabs/promorag/internal/corpus"
	"github.com/fyrsmithlabs/promorag/internal/query"
)

func TestScorer_Bonus(t *testing.T) {
	scorer := NewScorer(query.DefaultKeyLinks())

	tests := []struct {
		name       string
		chunk      corpus.Chunk
		query      string
		qtype      query.Type
		linkTarget string
		want       float64
	}{
		{
			name:  "sla metadata",
			chunk: corpus.Chunk{Text: "x", Meta: corpus.Metadata{SLA: []string{"24 часа"}}},
			query: "sla?",
			qtype: query.TypeSLA,
			want:  25,
		},
		{
			name: "sla table with time column",
			chunk: corpus.Chunk{Text: "x", Meta: corpus.Metadata{
				Table:   true,
				Columns: []string{"Задача", "Срок"},
				SLA:     []string{"1 день"},
			}},
			query: "sla?",
			qtype: query.TypeSLA,
			want:  5 + 25 + 15,
		},
		{
			name:  "incident in query and text",
			chunk: corpus.Chunk{Text: "Инцидент закрыт"},
			query: "инцидент?",
			qtype: query.TypeSLA,
			// +10 for the incident rule, +5 for the shared word.
			want: 15,
		},
		{
			name:  "process stage and type",
			chunk: corpus.Chunk{Text: "x", Meta: corpus.Metadata{Stage: []string{"QA"}, Type: "process"}},
			query: "?",
			qtype: query.TypeProcess,
			want:  30,
		},
		{
			name:  "tool named in query",
			chunk: corpus.Chunk{Text: "x", Meta: corpus.Metadata{Tools: []string{"Asana"}, Type: "form_instruction"}},
			query: "где asana?",
			qtype: query.TypeTool,
			want:  30,
		},
		{
			name:  "tool present but not named",
			chunk: corpus.Chunk{Text: "x", Meta: corpus.Metadata{FormType: []string{"Бриф"}}},
			query: "где?",
			qtype: query.TypeTool,
			want:  10,
		},
		{
			name: "key link pattern",
			chunk: corpus.Chunk{Text: "x", Meta: corpus.Metadata{
				Link: []string{"https://miro.com/app/board/abc"},
			}},
			query:      "?",
			qtype:      query.TypeLink,
			linkTarget: "miro структура",
			want:       70,
		},
		{
			name: "target inside url",
			chunk: corpus.Chunk{Text: "x", Meta: corpus.Metadata{
				Link: []string{"https://Wiki.example.com/Brief"},
			}},
			query:      "?",
			qtype:      query.TypeLink,
			linkTarget: "brief",
			want:       40,
		},
		{
			name:  "link without target",
			chunk: corpus.Chunk{Text: "x", Meta: corpus.Metadata{Link: []string{"https://a.example"}}},
			query: "?",
			qtype: query.TypeLink,
			want:  10,
		},
		{
			name:  "contact handle in responsible",
			chunk: corpus.Chunk{Text: "пишите", Meta: corpus.Metadata{Responsible: "@Anna_K"}},
			query: "кто @anna_k?",
			qtype: query.TypeContact,
			want:  25,
		},
		{
			name:  "contact channel and email in text",
			chunk: corpus.Chunk{Text: "a@b.io", Meta: corpus.Metadata{Responsible: "Иван"}},
			query: "email?",
			qtype: query.TypeContact,
			want:  (10 + 5) * 1.5,
		},
		{
			name: "excel contact dampened",
			chunk: corpus.Chunk{Text: "x", Meta: corpus.Metadata{
				Responsible: "Иван",
				SourceType:  "excel_row_chunk",
			}},
			query: "?",
			qtype: query.TypeContact,
			want:  5,
		},
		{
			name:  "general lexical overlap",
			chunk: corpus.Chunk{Text: "Бонус за депозит"},
			query: "какой бонус за депозит",
			qtype: query.TypeGeneral,
			want:  6,
		},
		{
			name:  "structured chunk for general query",
			chunk: corpus.Chunk{Text: "x", Meta: corpus.Metadata{Table: true}},
			query: "?",
			qtype: query.TypeGeneral,
			want:  5,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := scorer.Bonus(tt.chunk, tt.query, tt.qtype, tt.linkTarget)
			assert.InDelta(t, tt.want, got, 1e-9)
		})
	}
}

func TestScorer_BonusIsCapped(t *testing.T) {
	scorer := NewScorer(nil)
	text := "alpha bravo charlie delta echo foxtrot golf hotel india juliet kilo lima mike november oscar papa quebec romeo"
	chunk := corpus.Chunk{Text: text, Meta: corpus.Metadata{SLA: []string{"1 день"}}}

	got := scorer.Bonus(chunk, text, query.TypeSLA, "")
	assert.Equal(t, MaxBonus, got)
}

func TestScorer_BonusMonotonicInOverlap(t *testing.T) {
	scorer := NewScorer(nil)
	chunk := corpus.Chunk{Text: "депозит бонус кэшбэк фриспины"}

	prev := -1.0
	for _, q := range []string{"привет", "депозит", "депозит бонус", "депозит бонус кэшбэк"} {
		got := scorer.Bonus(chunk, q, query.TypeGeneral, "")
		assert.GreaterOrEqual(t, got, 0.0)
		assert.Greater(t, got, prev, q)
		prev = got
	}
}

func TestSharedWords(t *testing.T) {
	tests := []struct {
		a, b string
		want int
	}{
		{"", "abc", 0},
		{"ab cd", "ab cd", 0},
		{"кэшбэк кэшбэк", "кэшбэк", 1},
		{"snake_case word", "snake_case other", 1},
		{"x123 test", "x123, test!", 2},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, sharedWords(tt.a, tt.b), "%q vs %q", tt.a, tt.b)
	}
}
