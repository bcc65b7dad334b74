package corpus

import "strings"

// BlockType identifies the shape of a parsed content block.
type BlockType string

const (
	BlockText     BlockType = "text"
	BlockTable    BlockType = "table"
	BlockExcelRow BlockType = "excel_row"
)

// Field is a single key/value cell of a row.
type Field struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// Row is an ordered set of fields. Order follows the source columns.
type Row []Field

// Get returns the value stored under key, or "" when absent.
func (r Row) Get(key string) string {
	for _, f := range r {
		if f.Key == key {
			return f.Value
		}
	}
	return ""
}

// SourceInfo describes where a block came from.
type SourceInfo struct {
	DocumentName       string
	PageNumber         int
	CurrentHeading     string
	DocumentHyperlinks []string
	SheetName          string
	RowIndex           int
}

// Block is transient parser output consumed by the chunking stage.
//
// Text is set for BlockText; Rows and Headers for BlockTable; Row and
// Headers for BlockExcelRow.
type Block struct {
	Type    BlockType
	Text    string
	Rows    []Row
	Row     Row
	Headers []string
	Source  SourceInfo
}

// SourceType returns the chunk source tag recorded in metadata.
func (b Block) SourceType() string {
	return string(b.Type) + "_chunk"
}

// RenderRow renders an Excel row as "key: value. key: value.".
func RenderRow(row Row) string {
	if len(row) == 0 {
		return "Пустая строка Excel."
	}
	return JoinRow(row) + "."
}

// JoinRow joins fields as "key: value" pairs separated by ". ".
func JoinRow(row Row) string {
	parts := make([]string, 0, len(row))
	for _, f := range row {
		parts = append(parts, f.Key+": "+f.Value)
	}
	return strings.Join(parts, ". ")
}
