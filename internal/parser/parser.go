// Package parser turns source documents into content blocks.
//
// Each supported format has its own Parser; Registry dispatches on the file
// extension. Parsers never chunk: they emit whole pages, heading sections,
// tables and spreadsheet rows, and leave segmentation to the pipeline.
package parser

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/promorag/internal/corpus"
)

// ErrUnsupported is returned for documents with no registered parser.
var ErrUnsupported = errors.New("unsupported document type")

// Parser extracts content blocks from a document.
type Parser interface {
	// Parse reads data, the full content of the document called name.
	Parse(ctx context.Context, name string, data []byte) ([]corpus.Block, error)
}

// Registry maps lowercase file extensions, without the dot, to parsers.
type Registry struct {
	parsers map[string]Parser
}

// NewRegistry returns a registry with the PDF, DOCX and Excel parsers.
func NewRegistry(logger *zap.Logger) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	excel := NewExcel(logger)
	r := &Registry{parsers: make(map[string]Parser)}
	r.Register("pdf", NewPDF())
	r.Register("docx", NewDOCX())
	r.Register("xlsx", excel)
	r.Register("xls", excel)
	return r
}

// Register adds or replaces the parser for ext.
func (r *Registry) Register(ext string, p Parser) {
	r.parsers[normalizeExt(ext)] = p
}

// Extensions returns the registered extensions in sorted order.
func (r *Registry) Extensions() []string {
	exts := make([]string, 0, len(r.parsers))
	for ext := range r.parsers {
		exts = append(exts, ext)
	}
	sort.Strings(exts)
	return exts
}

// Supports reports whether name has a registered extension.
func (r *Registry) Supports(name string) bool {
	_, ok := r.parsers[extOf(name)]
	return ok
}

// Parse dispatches to the parser registered for the extension of name.
func (r *Registry) Parse(ctx context.Context, name string, data []byte) ([]corpus.Block, error) {
	p, ok := r.parsers[extOf(name)]
	if !ok {
		return nil, fmt.Errorf("%s: %w", name, ErrUnsupported)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	blocks, err := p.Parse(ctx, name, data)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", name, err)
	}
	return blocks, nil
}

func extOf(name string) string {
	return normalizeExt(filepath.Ext(name))
}

func normalizeExt(ext string) string {
	return strings.ToLower(strings.TrimPrefix(ext, "."))
}

var hyperlinkPattern = regexp.MustCompile(`https?://[^\s<>"'()\[\]{}«»]+`)

// findLinks returns the distinct URLs in text, sorted.
func findLinks(texts ...string) []string {
	seen := make(map[string]bool)
	var links []string
	for _, text := range texts {
		for _, l := range hyperlinkPattern.FindAllString(text, -1) {
			l = strings.TrimRight(l, ".,;:!?")
			if !seen[l] {
				seen[l] = true
				links = append(links, l)
			}
		}
	}
	sort.Strings(links)
	return links
}

// setField stores value under key, replacing an earlier cell with the same
// header.
func setField(row corpus.Row, key, value string) corpus.Row {
	for i := range row {
		if row[i].Key == key {
			row[i].Value = value
			return row
		}
	}
	return append(row, corpus.Field{Key: key, Value: value})
}

// fallbackHeader names an unlabeled column.
func fallbackHeader(j int) string {
	return fmt.Sprintf("Col_%d", j)
}
