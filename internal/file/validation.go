package file

import (
	"errors"
	"mime"
	"path/filepath"
	"strings"
	"unicode/utf8"
)

var allowedExtensions = map[string]bool{
	".pdf":  true,
	".doc":  true,
	".docx": true,
	".md":   true,
	".txt":  true,
}

var allowedMimeTypes = map[string]bool{
	"application/pdf":    true,
	"application/msword": true,
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document": true,
	"text/plain":    true,
	"text/markdown": true,
}

var (
	ErrInvalidFilename    = errors.New("invalid filename")
	ErrInvalidFileType    = errors.New("file type not allowed")
	ErrPathTraversal      = errors.New("path traversal detected")
	ErrInvalidContentType = errors.New("content type not allowed")
)

// ValidateFilename проверяет имя файла на безопасность
func ValidateFilename(filename string) error {
	if filename == "" {
		return ErrInvalidFilename
	}

	if strings.Contains(filename, "..") || strings.Contains(filename, "/") || strings.Contains(filename, "\\") {
		return ErrPathTraversal
	}

	if len(filename) > 255 {
		return ErrInvalidFilename
	}

	if !utf8.ValidString(filename) {
		return ErrInvalidFilename
	}

	ext := strings.ToLower(filepath.Ext(filename))
	if ext == "" {
		return ErrInvalidFilename
	}
	if !allowedExtensions[ext] {
		return ErrInvalidFileType
	}

	if len(strings.TrimSuffix(filename, ext)) == 0 {
		return ErrInvalidFilename
	}

	return nil
}

// ValidateContentType проверяет MIME тип файла
func ValidateContentType(contentType string) error {
	if contentType == "" {
		return ErrInvalidContentType
	}

	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return ErrInvalidContentType
	}

	if !allowedMimeTypes[mediaType] {
		return ErrInvalidContentType
	}

	return nil
}

// SanitizeFilename очищает имя файла от опасных символов
func SanitizeFilename(filename string) string {
	filename = strings.ReplaceAll(filename, "..", "")
	filename = strings.ReplaceAll(filename, "/", "")
	filename = strings.ReplaceAll(filename, "\\", "")

	var builder strings.Builder
	for _, r := range filename {
		if r >= 32 && r != 127 {
			builder.WriteRune(r)
		}
	}

	return builder.String()
}
