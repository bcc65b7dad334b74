package parser

import (
	"archive/zip"
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/promorag/internal/corpus"
)

const testStyles = `<?xml version="1.0" encoding="UTF-8"?>
<w:styles xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main">
  <w:style w:type="paragraph" w:styleId="1"><w:name w:val="heading 1"/></w:style>
  <w:style w:type="paragraph" w:styleId="Normal"><w:name w:val="Normal"/></w:style>
</w:styles>`

const testRels = `<?xml version="1.0" encoding="UTF-8"?>
<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">
  <Relationship Id="rId1" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/styles" Target="styles.xml"/>
  <Relationship Id="rId5" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/hyperlink" Target="https://miro.com/app/board/x" TargetMode="External"/>
  <Relationship Id="rId6" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/hyperlink" Target="https://a.example/" TargetMode="External"/>
  <Relationship Id="rId7" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/hyperlink" Target="#bookmark"/>
</Relationships>`

const testDocument = `<?xml version="1.0" encoding="UTF-8"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main">
<w:body>
  <w:p><w:r><w:t>Вступление</w:t></w:r></w:p>
  <w:p><w:pPr><w:pStyle w:val="1"/></w:pPr><w:r><w:t>Контакты</w:t></w:r></w:p>
  <w:p><w:r><w:t xml:space="preserve">Пишите </w:t></w:r><w:r><w:t>@promo_team</w:t></w:r></w:p>
  <w:p><w:r><w:t>Второй   абзац</w:t></w:r></w:p>
  <w:tbl>
    <w:tr><w:tc><w:p><w:r><w:t>Имя</w:t></w:r></w:p></w:tc><w:tc><w:p><w:r><w:t>TG</w:t></w:r></w:p></w:tc></w:tr>
    <w:tr><w:tc><w:p><w:r><w:t>Анна</w:t></w:r></w:p></w:tc><w:tc><w:p><w:r><w:t>@anna</w:t></w:r></w:p></w:tc></w:tr>
    <w:tr><w:tc><w:p/></w:tc><w:tc><w:p/></w:tc></w:tr>
  </w:tbl>
  <w:p><w:pPr><w:pStyle w:val="Title"/></w:pPr><w:r><w:t>Итоги</w:t></w:r></w:p>
  <w:p><w:r><w:t>Конец</w:t></w:r></w:p>
  <w:sectPr/>
</w:body>
</w:document>`

func buildDOCX(t *testing.T, files map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, content := range files {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func TestDOCX_Parse(t *testing.T) {
	data := buildDOCX(t, map[string]string{
		docxDocument: testDocument,
		docxStyles:   testStyles,
		docxRels:     testRels,
	})

	blocks, err := NewDOCX().Parse(context.Background(), "guide.docx", data)
	require.NoError(t, err)
	require.Len(t, blocks, 4)

	links := []string{"https://a.example/", "https://miro.com/app/board/x"}

	assert.Equal(t, corpus.BlockText, blocks[0].Type)
	assert.Equal(t, "Вступление", blocks[0].Text)
	assert.Equal(t, DefaultHeading, blocks[0].Source.CurrentHeading)
	assert.Equal(t, links, blocks[0].Source.DocumentHyperlinks)

	assert.Equal(t, "Пишите @promo_team\n\nВторой абзац", blocks[1].Text)
	assert.Equal(t, "Контакты", blocks[1].Source.CurrentHeading)

	assert.Equal(t, corpus.BlockTable, blocks[2].Type)
	assert.Equal(t, []string{"Имя", "TG"}, blocks[2].Headers)
	assert.Equal(t, []corpus.Row{{{Key: "Имя", Value: "Анна"}, {Key: "TG", Value: "@anna"}}}, blocks[2].Rows)
	assert.Equal(t, "Контакты", blocks[2].Source.CurrentHeading)

	assert.Equal(t, "Конец", blocks[3].Text)
	assert.Equal(t, "Итоги", blocks[3].Source.CurrentHeading)
	assert.Equal(t, "guide.docx", blocks[3].Source.DocumentName)
}

func TestDOCX_UnlabeledTable(t *testing.T) {
	doc := `<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:body>
<w:tbl>
  <w:tr><w:tc><w:p/></w:tc><w:tc><w:p/></w:tc></w:tr>
  <w:tr><w:tc><w:p><w:r><w:t>a</w:t></w:r></w:p></w:tc><w:tc><w:p><w:r><w:t>b</w:t></w:r></w:p></w:tc></w:tr>
</w:tbl></w:body></w:document>`

	blocks, err := NewDOCX().Parse(context.Background(), "t.docx", buildDOCX(t, map[string]string{docxDocument: doc}))
	require.NoError(t, err)
	require.Len(t, blocks, 1)
	assert.Equal(t, []string{"Col_0", "Col_1"}, blocks[0].Headers)
	assert.Equal(t, []corpus.Row{{{Key: "Col_0", Value: "a"}, {Key: "Col_1", Value: "b"}}}, blocks[0].Rows)
	assert.Nil(t, blocks[0].Source.DocumentHyperlinks)
}

func TestDOCX_Errors(t *testing.T) {
	tests := []struct {
		name string
		data []byte
	}{
		{"not a zip", []byte("plain text")},
		{"missing document part", buildDOCX(t, map[string]string{"other.xml": "<a/>"})},
		{"broken xml", buildDOCX(t, map[string]string{docxDocument: "<w:document><w:body><w:p>"})},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewDOCX().Parse(context.Background(), "x.docx", tt.data)
			assert.Error(t, err)
		})
	}
}
