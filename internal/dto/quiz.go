package dto

type CreateQuizRequest struct {
	Name         string `json:"name,omitempty"`
	NumQuestions int    `json:"numQuestions,omitempty"`
	Level        string `json:"level,omitempty"`
}

type AnswerResponse struct {
	Content   string `json:"content"`
	IsCorrect bool   `json:"isCorrect"`
	Explain   string `json:"explain,omitempty"`
}

type QuestionResponse struct {
	ID          string           `json:"id"`
	Question    string           `json:"question"`
	Answers     []AnswerResponse `json:"answers"`
	Explanation string           `json:"explanation,omitempty"`
}

type QuizResponse struct {
	ID            string             `json:"id"`
	Name          string             `json:"name"`
	FileID        string             `json:"fileId"`
	Level         string             `json:"level"`
	HighestScore  int                `json:"highestScore"`
	AttemptCount  int                `json:"attemptCount"`
	QuestionCount int                `json:"questionCount,omitempty"`
	Questions     []QuestionResponse `json:"questions,omitempty"`
	CreatedAt     string             `json:"createdAt,omitempty"`
}

type AttemptRequest struct {
	Score int `json:"score"`
}
