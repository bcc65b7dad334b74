// Package assembler renders ranked chunks into the context block of an LLM
// prompt.
package assembler

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/fyrsmithlabs/promorag/internal/corpus"
	"github.com/fyrsmithlabs/promorag/internal/reranker"
)

// NoContextFound is returned by Assemble for an empty candidate list.
const NoContextFound = "Контекст не найден."

const (
	linksHeader = "\n--- Найденные ссылки в контексте ---"
	linksFooter = "-------------------------------------"
	blockRule   = "--------------------"
)

// Assemble renders ranked candidates in order, followed by every link they
// reference.
func Assemble(ranked []reranker.Candidate) string {
	if len(ranked) == 0 {
		return NoContextFound
	}

	parts := make([]string, 0, len(ranked)+3)
	links := make(map[string]struct{})
	for i, c := range ranked {
		for _, l := range c.Chunk.Meta.Link {
			links[l] = struct{}{}
		}
		for _, l := range c.Chunk.Meta.DocumentLinks {
			links[l] = struct{}{}
		}
		parts = append(parts, renderBlock(i+1, c))
	}

	if len(links) > 0 {
		sorted := make([]string, 0, len(links))
		for l := range links {
			sorted = append(sorted, l)
		}
		sort.Strings(sorted)

		parts = append(parts, linksHeader)
		for _, l := range sorted {
			parts = append(parts, "- "+l)
		}
		parts = append(parts, linksFooter)
	}
	return strings.Join(parts, "\n\n")
}

func renderBlock(n int, c reranker.Candidate) string {
	meta := c.Chunk.Meta

	var b strings.Builder
	fmt.Fprintf(&b, "--- Chunk [%d] (Score: %.4f) ---\n", n, c.FinalScore)
	b.WriteString("Источник: " + meta.DocumentName)
	if meta.Page > 0 {
		fmt.Fprintf(&b, ", Стр: %d", meta.Page)
	}
	fmt.Fprintf(&b, " (ID: %s)\n", c.Chunk.ID)
	if summary := summarize(meta); summary != "" {
		b.WriteString("Метаданные: " + summary + "\n")
	}
	b.WriteString("Текст:\n")
	b.WriteString(strings.TrimSpace(c.Chunk.Text))
	b.WriteString("\n" + blockRule)
	return b.String()
}

// field is one entry of the metadata summary.
type field struct {
	key   string
	value any
}

// summarize renders the prompt-relevant metadata as a JSON object, or ""
// when there is nothing to show.
func summarize(meta corpus.Metadata) string {
	var fields []field
	addString := func(key, v string) {
		if v != "" {
			fields = append(fields, field{key, v})
		}
	}
	addList := func(key string, v []string) {
		if len(v) > 0 {
			fields = append(fields, field{key, v})
		}
	}

	addString("type", meta.Type)
	addString("responsible", meta.Responsible)
	addList("stage", meta.Stage)
	addList("geo", meta.Geo)
	addList("currency", meta.Currency)
	addList("department", meta.Department)
	addList("metric", meta.Metric)
	addList("mechanic", meta.Mechanic)
	addList("bonus_type", meta.BonusType)
	addString("priority_level", meta.PriorityLevel)
	addList("sla", meta.SLA)
	addList("duration", meta.Duration)
	addList("wager", meta.Wager)
	addList("payout", meta.Payout)
	addList("form_type", meta.FormType)
	addList("tools", meta.Tools)
	addList("related_to", meta.RelatedTo)
	if meta.Table {
		fields = append(fields, field{"is_table", true})
	}
	if len(fields) == 0 {
		return ""
	}

	entries := make([]string, 0, len(fields))
	for _, f := range fields {
		entries = append(entries, encode(f.key)+": "+encode(f.value))
	}
	return "{" + strings.Join(entries, ", ") + "}"
}

// encode writes v as JSON without HTML escaping, spacing list items like
// the rest of the summary.
func encode(v any) string {
	if list, ok := v.([]string); ok {
		items := make([]string, len(list))
		for i, s := range list {
			items[i] = encode(s)
		}
		return "[" + strings.Join(items, ", ") + "]"
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	// Strings and bools always encode.
	_ = enc.Encode(v)
	return strings.TrimSuffix(buf.String(), "\n")
}
