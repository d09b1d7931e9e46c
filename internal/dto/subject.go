package dto

type SubjectRequest struct {
	Name  string `json:"name"`
	Color string `json:"color,omitempty"`
}

type SubjectResponse struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	Color          string `json:"color,omitempty"`
	TotalFiles     int    `json:"totalFiles"`
	TotalSummaries int    `json:"totalSummaries"`
	TotalQuizzes   int    `json:"totalQuizzes"`
	CreatedAt      string `json:"createdAt,omitempty"`
	UpdatedAt      string `json:"updatedAt,omitempty"`
}
