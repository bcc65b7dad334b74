package parser

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/fyrsmithlabs/promorag/internal/chunker"
	"github.com/fyrsmithlabs/promorag/internal/corpus"
)

// DefaultHeading is the section name for text before the first heading.
const DefaultHeading = "Общее"

const (
	docxDocument = "word/document.xml"
	docxStyles   = "word/styles.xml"
	docxRels     = "word/_rels/document.xml.rels"
)

var headingStylePrefixes = []string{"heading", "заголовок", "title", "название"}

// DOCX groups paragraphs under their heading and emits tables separately.
type DOCX struct{}

// NewDOCX returns a DOCX parser.
func NewDOCX() *DOCX { return &DOCX{} }

// Parse implements Parser.
func (d *DOCX) Parse(ctx context.Context, name string, data []byte) ([]corpus.Block, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("opening docx: %w", err)
	}

	body, err := readZipFile(zr, docxDocument)
	if err != nil {
		return nil, err
	}
	if body == nil {
		return nil, fmt.Errorf("%s missing", docxDocument)
	}
	styles, err := readStyles(zr)
	if err != nil {
		return nil, err
	}
	links, err := readHyperlinks(zr)
	if err != nil {
		return nil, err
	}

	w := &docxWalker{
		name:    name,
		styles:  styles,
		links:   links,
		heading: DefaultHeading,
	}
	if err := w.walk(ctx, xml.NewDecoder(bytes.NewReader(body))); err != nil {
		return nil, fmt.Errorf("reading %s: %w", docxDocument, err)
	}
	return w.blocks, nil
}

// docxWalker accumulates paragraphs under the current heading.
type docxWalker struct {
	name    string
	styles  map[string]string
	links   []string
	heading string
	text    []string
	blocks  []corpus.Block
}

func (w *docxWalker) walk(ctx context.Context, dec *xml.Decoder) error {
	inBody := false
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return err
		}
		se, ok := tok.(xml.StartElement)
		if !ok {
			continue
		}
		switch {
		case se.Name.Local == "body":
			inBody = true
		case !inBody:
		case se.Name.Local == "p":
			style, text, err := readParagraph(dec)
			if err != nil {
				return err
			}
			w.paragraph(style, chunker.CleanText(text))
		case se.Name.Local == "tbl":
			if err := ctx.Err(); err != nil {
				return err
			}
			rows, err := readTable(dec)
			if err != nil {
				return err
			}
			w.flush()
			w.table(rows)
		}
	}
	w.flush()
	return nil
}

func (w *docxWalker) paragraph(style, text string) {
	if text == "" {
		return
	}
	if w.isHeading(style) {
		w.flush()
		w.heading = text
		return
	}
	w.text = append(w.text, text)
}

func (w *docxWalker) isHeading(styleID string) bool {
	if styleID == "" {
		return false
	}
	name := strings.ToLower(w.styles[styleID])
	if name == "" {
		name = strings.ToLower(styleID)
	}
	for _, prefix := range headingStylePrefixes {
		if strings.HasPrefix(name, prefix) {
			return true
		}
	}
	return false
}

func (w *docxWalker) source() corpus.SourceInfo {
	return corpus.SourceInfo{
		DocumentName:       w.name,
		CurrentHeading:     w.heading,
		DocumentHyperlinks: w.links,
	}
}

func (w *docxWalker) flush() {
	text := strings.TrimSpace(strings.Join(w.text, "\n\n"))
	w.text = nil
	if text == "" {
		return
	}
	w.blocks = append(w.blocks, corpus.Block{Type: corpus.BlockText, Text: text, Source: w.source()})
}

// table turns raw cell text into a table block. A first row without any
// label is data, and columns are named Col_j.
func (w *docxWalker) table(raw [][]string) {
	if len(raw) == 0 || len(raw[0]) == 0 {
		return
	}

	headers := make([]string, len(raw[0]))
	labeled := false
	for j, cell := range raw[0] {
		headers[j] = chunker.CleanText(cell)
		if headers[j] != "" {
			labeled = true
		}
	}
	start := 1
	if !labeled {
		start = 0
	}
	for j := range headers {
		if headers[j] == "" {
			headers[j] = fallbackHeader(j)
		}
	}

	var rows []corpus.Row
	for _, cells := range raw[start:] {
		var row corpus.Row
		for j, cell := range cells {
			if j >= len(headers) {
				break
			}
			if v := chunker.CleanText(cell); v != "" {
				row = setField(row, headers[j], v)
			}
		}
		if len(row) > 0 {
			rows = append(rows, row)
		}
	}
	if len(rows) == 0 {
		return
	}
	w.blocks = append(w.blocks, corpus.Block{
		Type:    corpus.BlockTable,
		Rows:    rows,
		Headers: headers,
		Source:  w.source(),
	})
}

// readParagraph consumes the rest of a w:p element and returns its style
// id and text.
func readParagraph(dec *xml.Decoder) (string, string, error) {
	var (
		style string
		text  strings.Builder
	)
	for depth := 1; depth > 0; {
		tok, err := dec.Token()
		if err != nil {
			return "", "", err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			depth++
			switch t.Name.Local {
			case "pStyle":
				style = attr(t, "val")
			case "t":
				var s string
				if err := dec.DecodeElement(&s, &t); err != nil {
					return "", "", err
				}
				text.WriteString(s)
				depth--
			case "tab":
				text.WriteByte('\t')
			case "br", "cr":
				text.WriteByte('\n')
			}
		case xml.EndElement:
			depth--
		}
	}
	return style, text.String(), nil
}

// readTable consumes the rest of a w:tbl element. Nested tables are
// flattened into the enclosing cell.
func readTable(dec *xml.Decoder) ([][]string, error) {
	var (
		rows  [][]string
		paras []string
		nest  int
	)
	for depth := 1; depth > 0; {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			depth++
			switch t.Name.Local {
			case "tbl":
				nest++
			case "tr":
				if nest == 0 {
					rows = append(rows, nil)
				}
			case "tc":
				if nest == 0 {
					paras = nil
				}
			case "p":
				_, text, err := readParagraph(dec)
				if err != nil {
					return nil, err
				}
				paras = append(paras, text)
				depth--
			}
		case xml.EndElement:
			depth--
			switch t.Name.Local {
			case "tbl":
				nest--
			case "tc":
				if nest == 0 && len(rows) > 0 {
					last := len(rows) - 1
					rows[last] = append(rows[last], strings.Join(paras, "\n"))
				}
			}
		}
	}
	return rows, nil
}

func attr(se xml.StartElement, local string) string {
	for _, a := range se.Attr {
		if a.Name.Local == local {
			return a.Value
		}
	}
	return ""
}

func readZipFile(zr *zip.Reader, name string) ([]byte, error) {
	for _, f := range zr.File {
		if f.Name != name {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, fmt.Errorf("opening %s: %w", name, err)
		}
		defer rc.Close()
		data, err := io.ReadAll(rc)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", name, err)
		}
		return data, nil
	}
	return nil, nil
}

type stylesXML struct {
	Styles []struct {
		ID   string `xml:"styleId,attr"`
		Name struct {
			Val string `xml:"val,attr"`
		} `xml:"name"`
	} `xml:"style"`
}

// readStyles maps style ids to style names. Documents without a styles
// part yield an empty map.
func readStyles(zr *zip.Reader) (map[string]string, error) {
	data, err := readZipFile(zr, docxStyles)
	if err != nil || data == nil {
		return map[string]string{}, err
	}
	var doc stylesXML
	if err := xml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", docxStyles, err)
	}
	styles := make(map[string]string, len(doc.Styles))
	for _, s := range doc.Styles {
		styles[s.ID] = s.Name.Val
	}
	return styles, nil
}

type relationshipsXML struct {
	Relationships []struct {
		Type       string `xml:"Type,attr"`
		Target     string `xml:"Target,attr"`
		TargetMode string `xml:"TargetMode,attr"`
	} `xml:"Relationship"`
}

// readHyperlinks returns the external hyperlink targets of the document,
// sorted and deduplicated.
func readHyperlinks(zr *zip.Reader) ([]string, error) {
	data, err := readZipFile(zr, docxRels)
	if err != nil || data == nil {
		return nil, err
	}
	var rels relationshipsXML
	if err := xml.Unmarshal(data, &rels); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", docxRels, err)
	}
	seen := make(map[string]bool)
	var links []string
	for _, r := range rels.Relationships {
		if !strings.HasSuffix(r.Type, "/hyperlink") || r.TargetMode != "External" || seen[r.Target] {
			continue
		}
		seen[r.Target] = true
		links = append(links, r.Target)
	}
	sort.Strings(links)
	return links, nil
}
