package quiz

import (
	"errors"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	LevelEasy   = "ez"
	LevelMedium = "md"
	LevelHard   = "hard"
)

// NoAttempts — значение highestScore до первой попытки.
const NoAttempts = -1

var (
	ErrInvalidLevel     = errors.New("level must be ez, md or hard")
	ErrInvalidScore     = errors.New("score must be between 0 and 100")
	ErrNoCorrectAnswer  = errors.New("question must have exactly one correct answer")
	ErrTooFewAnswers    = errors.New("question must have at least two answers")
	ErrEmptyQuestion    = errors.New("question text required")
	ErrEmptyAnswer      = errors.New("answer content required")
	ErrInvalidQuestions = errors.New("numQuestions must be between 1 and 30")
)

// Quiz привязан к файлу. HighestScore равен -1, пока нет ни одной попытки.
type Quiz struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name         string             `bson:"name" json:"name"`
	FileID       primitive.ObjectID `bson:"file_id" json:"fileId"`
	Level        string             `bson:"level" json:"level"`
	HighestScore int                `bson:"highest_score" json:"highestScore"`
	AttemptCount int                `bson:"attempt_count" json:"attemptCount"`
	CreatedAt    time.Time          `bson:"created_at" json:"createdAt"`
	UpdatedAt    time.Time          `bson:"updated_at" json:"updatedAt"`
}

type Answer struct {
	Content   string `bson:"content" json:"content"`
	IsCorrect bool   `bson:"is_correct" json:"isCorrect"`
	Explain   string `bson:"explain,omitempty" json:"explain,omitempty"`
}

type Question struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	QuizID      primitive.ObjectID `bson:"quiz_id" json:"quizId"`
	Question    string             `bson:"question" json:"question"`
	Answers     []Answer           `bson:"answers" json:"answers"`
	Explanation string             `bson:"explanation,omitempty" json:"explanation,omitempty"`
}

// NewQuestion — единственный путь создания вопроса: ровно один верный
// ответ, минимум два варианта, непустые тексты.
func NewQuestion(text string, answers []Answer, explanation string) (Question, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return Question{}, ErrEmptyQuestion
	}
	if len(answers) < 2 {
		return Question{}, ErrTooFewAnswers
	}

	correct := 0
	for i := range answers {
		answers[i].Content = strings.TrimSpace(answers[i].Content)
		if answers[i].Content == "" {
			return Question{}, ErrEmptyAnswer
		}
		if answers[i].IsCorrect {
			correct++
		}
	}
	if correct != 1 {
		return Question{}, ErrNoCorrectAnswer
	}

	return Question{
		Question:    text,
		Answers:     answers,
		Explanation: strings.TrimSpace(explanation),
	}, nil
}

// ValidLevel нормализует уровень сложности.
func ValidLevel(level string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case LevelEasy, "easy", "":
		return LevelEasy, nil
	case LevelMedium, "medium":
		return LevelMedium, nil
	case LevelHard:
		return LevelHard, nil
	default:
		return "", ErrInvalidLevel
	}
}

// LevelPrompt maps a stored level to the wording the generator expects.
func LevelPrompt(level string) string {
	switch level {
	case LevelEasy:
		return "easy"
	case LevelMedium:
		return "medium"
	case LevelHard:
		return "hard"
	default:
		return "medium"
	}
}
