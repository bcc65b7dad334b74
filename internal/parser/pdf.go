package parser

import (
	"bytes"
	"context"
	"fmt"

	"github.com/ledongthuc/pdf"

	"github.com/fyrsmithlabs/promorag/internal/chunker"
	"github.com/fyrsmithlabs/promorag/internal/corpus"
)

// PDF emits one text block per non-empty page.
type PDF struct{}

// NewPDF returns a PDF parser.
func NewPDF() *PDF { return &PDF{} }

// Parse implements Parser. Every block carries the URLs found anywhere in
// the document.
func (p *PDF) Parse(ctx context.Context, name string, data []byte) (blocks []corpus.Block, err error) {
	// The reader panics on some malformed xref tables.
	defer func() {
		if r := recover(); r != nil {
			blocks, err = nil, fmt.Errorf("reading pdf: %v", r)
		}
	}()

	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("opening pdf: %w", err)
	}

	pages := make([]string, r.NumPage())
	for i := range pages {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		page := r.Page(i + 1)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			return nil, fmt.Errorf("reading page %d: %w", i+1, err)
		}
		pages[i] = chunker.CleanText(text)
	}

	links := findLinks(pages...)
	for i, text := range pages {
		if text == "" {
			continue
		}
		blocks = append(blocks, corpus.Block{
			Type: corpus.BlockText,
			Text: text,
			Source: corpus.SourceInfo{
				DocumentName:       name,
				PageNumber:         i + 1,
				DocumentHyperlinks: links,
			},
		})
	}
	return blocks, nil
}
