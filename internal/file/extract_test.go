package file

import (
	"archive/zip"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeDocx(t *testing.T, documentXML string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "doc.docx")
	f, err := os.Create(path)
	require.NoError(t, err)

	zw := zip.NewWriter(f)
	w, err := zw.Create("word/document.xml")
	require.NoError(t, err)
	_, err = w.Write([]byte(documentXML))
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	require.NoError(t, f.Close())

	return path
}

func TestExtractDOCX(t *testing.T) {
	const doc = `<?xml version="1.0"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main">
  <w:body>
    <w:p><w:r><w:t>Первый абзац.</w:t></w:r></w:p>
    <w:p><w:r><w:t>Second </w:t></w:r><w:r><w:t>paragraph.</w:t></w:r></w:p>
  </w:body>
</w:document>`

	text, err := Extractor{}.Extract(writeDocx(t, doc), mimeDOCX)
	require.NoError(t, err)
	assert.Contains(t, text, "Первый абзац.")
	assert.Contains(t, text, "Second paragraph.")
}

func TestExtractDOCXWithoutDocumentXML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.docx")
	f, err := os.Create(path)
	require.NoError(t, err)
	zw := zip.NewWriter(f)
	require.NoError(t, zw.Close())
	require.NoError(t, f.Close())

	_, err = Extractor{}.Extract(path, mimeDOCX)
	assert.Error(t, err)
}

func TestExtractUnsupportedType(t *testing.T) {
	_, err := Extractor{}.Extract("whatever.bin", "application/octet-stream")
	assert.True(t, errors.Is(err, ErrUnsupportedType))
}

func TestExtractCorruptPDF(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.pdf")
	require.NoError(t, os.WriteFile(path, []byte("not a pdf"), 0o644))

	_, err := Extractor{}.Extract(path, mimePDF)
	assert.Error(t, err)
}

func TestExtractPlainText(t *testing.T) {
	path := filepath.Join(t.TempDir(), "notes.txt")
	require.NoError(t, os.WriteFile(path, []byte("строка один\nстрока два"), 0o600))

	text, err := Extractor{}.Extract(path, "text/plain")
	require.NoError(t, err)
	assert.Equal(t, "строка один\nстрока два", text)

	text, err = Extractor{}.Extract(path, "text/markdown")
	require.NoError(t, err)
	assert.Contains(t, text, "строка два")
}

func TestCanSummarize(t *testing.T) {
	assert.True(t, CanSummarize("application/pdf"))
	assert.True(t, CanSummarize("text/plain"))
	assert.False(t, CanSummarize("application/msword"))
	assert.False(t, CanSummarize("application/octet-stream"))
}
