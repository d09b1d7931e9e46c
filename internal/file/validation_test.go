package file

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateFilename(t *testing.T) {
	tests := []struct {
		name     string
		filename string
		wantErr  error
	}{
		{"pdf ok", "lecture1.pdf", nil},
		{"docx ok", "конспект.docx", nil},
		{"markdown ok", "notes.md", nil},
		{"empty", "", ErrInvalidFilename},
		{"no extension", "lecture", ErrInvalidFilename},
		{"only extension", ".pdf", ErrInvalidFilename},
		{"bad extension", "malware.exe", ErrInvalidFileType},
		{"traversal dots", "../etc/passwd.pdf", ErrPathTraversal},
		{"slash", "a/b.pdf", ErrPathTraversal},
		{"backslash", `a\b.pdf`, ErrPathTraversal},
		{"too long", strings.Repeat("a", 300) + ".pdf", ErrInvalidFilename},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateFilename(tt.filename)
			if tt.wantErr == nil {
				assert.NoError(t, err)
			} else {
				assert.True(t, errors.Is(err, tt.wantErr), "got %v", err)
			}
		})
	}
}

func TestValidateContentType(t *testing.T) {
	assert.NoError(t, ValidateContentType("application/pdf"))
	assert.NoError(t, ValidateContentType("text/plain; charset=utf-8"))
	assert.Error(t, ValidateContentType("application/x-msdownload"))
	assert.Error(t, ValidateContentType(""))
}

func TestSanitizeFilename(t *testing.T) {
	assert.Equal(t, "etcpasswd.pdf", SanitizeFilename("../etc/passwd.pdf"))
	assert.Equal(t, "notes.pdf", SanitizeFilename("notes\x00\x01.pdf"))
}
