package parser

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/promorag/internal/ignore"
)

func TestSource_ListAndDownload(t *testing.T) {
	dir := t.TempDir()
	files := map[string]string{
		"b.docx":    "docx-bytes",
		"a.pdf":     "pdf-bytes",
		"c.xlsx":    "xlsx-bytes",
		"notes.txt": "ignored",
	}
	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o600))
	}
	require.NoError(t, os.Mkdir(filepath.Join(dir, "nested.pdf"), 0o700))

	src := NewSource(NewRegistry(nil))
	docs, err := src.List(context.Background(), dir)
	require.NoError(t, err)

	names := make([]string, len(docs))
	for i, d := range docs {
		names[i] = d.Name
	}
	assert.Equal(t, []string{"a.pdf", "b.docx", "c.xlsx"}, names)

	data, err := src.Download(context.Background(), docs[1])
	require.NoError(t, err)
	assert.Equal(t, "docx-bytes", string(data))

	// A document rebuilt from its URL alone is still downloadable.
	data, err = src.Download(context.Background(), Document{Name: docs[0].Name, URL: docs[0].URL})
	require.NoError(t, err)
	assert.Equal(t, "pdf-bytes", string(data))
}

func TestSource_ListIgnores(t *testing.T) {
	dir := t.TempDir()
	files := map[string]string{
		"guide.pdf":     "pdf",
		"~$guide.docx":  "lock",
		".hidden.xlsx":  "hidden",
		"draft-q3.docx": "draft",
		"rules.xlsx":    "xlsx",
		ignore.FileName: "# drafts\ndraft-*\n",
	}
	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o600))
	}

	docs, err := NewSource(NewRegistry(nil)).List(context.Background(), dir)
	require.NoError(t, err)
	names := make([]string, len(docs))
	for i, d := range docs {
		names[i] = d.Name
	}
	assert.Equal(t, []string{"guide.pdf", "rules.xlsx"}, names)
}

func TestSource_ListBadIgnoreFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ignore.FileName), []byte("[\n"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.pdf"), []byte("pdf"), 0o600))

	_, err := NewSource(NewRegistry(nil)).List(context.Background(), dir)
	assert.Error(t, err)
}

func TestNormalizeLocation(t *testing.T) {
	got, err := normalizeLocation("mem://localhost/docs")
	require.NoError(t, err)
	assert.Equal(t, "mem://localhost/docs", got)

	got, err = normalizeLocation("/tmp/docs")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(got, "file://"), got)
	assert.True(t, strings.HasSuffix(got, "/tmp/docs"), got)
}
