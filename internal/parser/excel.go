package parser

import (
	"bytes"
	"context"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/shakinm/xlsReader/xls"
	"github.com/shakinm/xlsReader/xls/structure"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/promorag/internal/chunker"
	"github.com/fyrsmithlabs/promorag/internal/corpus"
)

// headerScanRows is how many leading rows are searched for a header.
const headerScanRows = 5

// headerKeywords mark a row as the sheet header.
var headerKeywords = []string{
	"position", "email", "tg", "telegram", "отдел", "department",
	"name", "имя", "фамилия", "должность", "fi", "team", "команда",
	"geo", "ссылка", "форма", "название", "описание", "ответственный",
	"responsible", "role", "роль", "contact", "контакт", "status", "статус",
}

// Excel emits one block per non-empty data row of every sheet. It reads
// .xlsx with excelize and legacy .xls with xlsReader.
type Excel struct {
	logger *zap.Logger
}

// NewExcel returns an Excel parser.
func NewExcel(logger *zap.Logger) *Excel {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Excel{logger: logger}
}

// sheet is a worksheet as a grid of cell strings.
type sheet struct {
	name string
	rows [][]string
}

// Parse implements Parser.
func (e *Excel) Parse(ctx context.Context, name string, data []byte) ([]corpus.Block, error) {
	var (
		sheets []sheet
		err    error
	)
	if strings.EqualFold(filepath.Ext(name), ".xls") {
		sheets, err = e.readXLS(data)
	} else {
		sheets, err = readXLSX(data)
	}
	if err != nil {
		return nil, err
	}

	var blocks []corpus.Block
	for _, s := range sheets {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		blocks = append(blocks, sheetBlocks(name, s)...)
	}
	return blocks, nil
}

func readXLSX(data []byte) ([]sheet, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("opening xlsx: %w", err)
	}
	defer func() { _ = f.Close() }()

	var sheets []sheet
	for _, name := range f.GetSheetList() {
		rows, err := f.GetRows(name)
		if err != nil {
			return nil, fmt.Errorf("reading sheet %q: %w", name, err)
		}
		sheets = append(sheets, sheet{name: name, rows: rows})
	}
	return sheets, nil
}

func (e *Excel) readXLS(data []byte) ([]sheet, error) {
	wb, err := xls.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("opening xls: %w", err)
	}

	var sheets []sheet
	for i := 0; i < wb.GetNumberSheets(); i++ {
		ws, err := wb.GetSheet(i)
		if err != nil || ws == nil {
			e.logger.Warn("skipping unreadable sheet", zap.Int("sheet_index", i), zap.Error(err))
			continue
		}
		var rows [][]string
		for _, row := range ws.GetRows() {
			rows = append(rows, xlsValues(row.GetCols()))
		}
		sheets = append(sheets, sheet{name: ws.GetName(), rows: rows})
	}
	return sheets, nil
}

func xlsValues(cols []structure.CellData) []string {
	out := make([]string, 0, len(cols))
	for _, col := range cols {
		val := col.GetString()
		if val == "" {
			if num := col.GetFloat64(); num != 0 {
				val = strconv.FormatFloat(num, 'f', -1, 64)
			} else if in := col.GetInt64(); in != 0 {
				val = strconv.FormatInt(in, 10)
			}
		}
		out = append(out, val)
	}
	return out
}

// sheetBlocks converts the rows below the detected header into excel_row
// blocks. Columns without a header are dropped, as are empty cells.
func sheetBlocks(document string, s sheet) []corpus.Block {
	if len(s.rows) == 0 {
		return nil
	}
	h := detectHeaderRow(s.rows)

	headers := make([]string, len(s.rows[h]))
	for j, cell := range s.rows[h] {
		headers[j] = normalizeHeader(cell)
	}
	columns := make([]string, 0, len(headers))
	for _, hdr := range headers {
		if hdr != "" {
			columns = append(columns, hdr)
		}
	}
	if len(columns) == 0 {
		return nil
	}

	var blocks []corpus.Block
	for i := h + 1; i < len(s.rows); i++ {
		var row corpus.Row
		for j, cell := range s.rows[i] {
			if j >= len(headers) || headers[j] == "" {
				continue
			}
			if v := chunker.CleanText(cell); v != "" {
				row = setField(row, headers[j], v)
			}
		}
		if len(row) == 0 {
			continue
		}
		blocks = append(blocks, corpus.Block{
			Type:    corpus.BlockExcelRow,
			Row:     row,
			Headers: columns,
			Source: corpus.SourceInfo{
				DocumentName: document,
				SheetName:    s.name,
				RowIndex:     i + 1,
			},
		})
	}
	return blocks
}

// detectHeaderRow returns the first of the leading rows that mentions a
// header keyword, or 0.
func detectHeaderRow(rows [][]string) int {
	for i := 0; i < len(rows) && i < headerScanRows; i++ {
		var cells []string
		for _, c := range rows[i] {
			if c = strings.ToLower(strings.TrimSpace(c)); c != "" {
				cells = append(cells, c)
			}
		}
		if len(cells) == 0 {
			continue
		}
		line := strings.Join(cells, " ")
		for _, kw := range headerKeywords {
			if strings.Contains(line, kw) {
				return i
			}
		}
	}
	return 0
}

func normalizeHeader(cell string) string {
	cell = strings.ReplaceAll(cell, "\r", "")
	cell = strings.ReplaceAll(cell, "\n", " ")
	return strings.ToLower(strings.TrimSpace(cell))
}
