package dto

import "fmt"

// FileResponse отдаётся клиенту вместо сырого документа Mongo.
type FileResponse struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Type         string `json:"type"`
	Size         string `json:"size"`
	SizeBytes    int64  `json:"sizeBytes"`
	MimeType     string `json:"mimeType"`
	URL          string `json:"url"`
	Pages        int    `json:"pages,omitempty"`
	Subject      string `json:"subject"`
	SubjectID    string `json:"subjectId"`
	HasSummary   bool   `json:"hasSummary"`
	SummaryCount int    `json:"summaryCount"`
	QuizCount    int    `json:"quizCount"`
	UploadDate   string `json:"uploadDate"`
	LastModified string `json:"lastModified,omitempty"`
}

type Pagination struct {
	CurrentPage  int   `json:"currentPage"`
	TotalPages   int   `json:"totalPages"`
	TotalItems   int64 `json:"totalItems"`
	ItemsPerPage int   `json:"itemsPerPage"`
}

type FileListResponse struct {
	Files      []FileResponse `json:"files"`
	Pagination Pagination     `json:"pagination"`
}

type ProcessingStatus struct {
	Queued bool   `json:"queued"`
	Error  string `json:"error,omitempty"`
}

type UploadResponse struct {
	File       FileResponse     `json:"file"`
	Processing ProcessingStatus `json:"processing"`
}

type SummaryResponse struct {
	FileID  string `json:"fileId"`
	Name    string `json:"name"`
	Summary string `json:"summary"`
}

// FormatSize renders a byte count the way the web client shows it.
func FormatSize(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(bytes)/float64(div), "KMGTPE"[exp])
}

// NewPagination derives page math from a total count.
func NewPagination(page, limit int, total int64) Pagination {
	totalPages := int((total + int64(limit) - 1) / int64(limit))
	return Pagination{
		CurrentPage:  page,
		TotalPages:   totalPages,
		TotalItems:   total,
		ItemsPerPage: limit,
	}
}
