package quiz

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/Oniqq60/study_space/internal/file"
	"github.com/Oniqq60/study_space/internal/summarize"
)

var ErrInvalidID = errors.New("invalid quiz id")

// FileStore gives access to file metadata with the caller's ownership
// already enforced.
type FileStore interface {
	GetByID(ctx context.Context, userID primitive.ObjectID, fileID string) (file.File, string, error)
}

type FileCounter interface {
	IncQuizCount(ctx context.Context, id primitive.ObjectID, delta int) error
}

type TextSource interface {
	FetchText(ctx context.Context, sourceURL, mimeType string) (string, error)
}

type Generator interface {
	GenerateQuiz(ctx context.Context, text string, n int, difficulty string) ([]summarize.QuizQuestion, error)
}

type CreateInput struct {
	Name         string
	NumQuestions int
	Level        string
}

type QuizWithQuestions struct {
	Quiz      Quiz
	Questions []Question
}

type Service interface {
	Create(ctx context.Context, userID primitive.ObjectID, fileID string, input CreateInput) (QuizWithQuestions, error)
	GenerateForFile(ctx context.Context, userID primitive.ObjectID, fileID, name string, numQuestions int, level string) error
	Get(ctx context.Context, userID primitive.ObjectID, quizID string) (QuizWithQuestions, error)
	ListByFile(ctx context.Context, userID primitive.ObjectID, fileID string) ([]Quiz, error)
	RecordAttempt(ctx context.Context, userID primitive.ObjectID, quizID string, score int) (Quiz, error)
	Delete(ctx context.Context, userID primitive.ObjectID, quizID string) error
}

type service struct {
	quizzes         Repository
	files           FileStore
	counter         FileCounter
	source          TextSource
	generator       Generator
	generateTimeout time.Duration
	log             *zap.SugaredLogger
}

func NewService(quizzes Repository, files FileStore, counter FileCounter, source TextSource, generator Generator, generateTimeout time.Duration, log *zap.SugaredLogger) Service {
	return &service{
		quizzes:         quizzes,
		files:           files,
		counter:         counter,
		source:          source,
		generator:       generator,
		generateTimeout: generateTimeout,
		log:             log,
	}
}

// Create генерирует квиз синхронно: скачиваем исходник, спрашиваем
// модель, сохраняем вопросы через NewQuestion.
func (s *service) Create(ctx context.Context, userID primitive.ObjectID, fileID string, input CreateInput) (QuizWithQuestions, error) {
	if input.NumQuestions == 0 {
		input.NumQuestions = 10
	}
	if input.NumQuestions < 1 || input.NumQuestions > 30 {
		return QuizWithQuestions{}, ErrInvalidQuestions
	}
	level, err := ValidLevel(input.Level)
	if err != nil {
		return QuizWithQuestions{}, err
	}

	f, _, err := s.files.GetByID(ctx, userID, fileID)
	if err != nil {
		return QuizWithQuestions{}, err
	}

	text, err := s.source.FetchText(ctx, f.StorageURL, f.MimeType)
	if err != nil {
		return QuizWithQuestions{}, fmt.Errorf("fetch source text: %w", err)
	}

	genCtx, cancel := context.WithTimeout(ctx, s.generateTimeout)
	defer cancel()
	generated, err := s.generator.GenerateQuiz(genCtx, text, input.NumQuestions, LevelPrompt(level))
	if err != nil {
		return QuizWithQuestions{}, err
	}

	questions := make([]Question, 0, len(generated))
	for _, g := range generated {
		question, err := buildQuestion(g)
		if err != nil {
			s.log.Warnf("skipping generated question: %v", err)
			continue
		}
		questions = append(questions, question)
	}
	if len(questions) == 0 {
		return QuizWithQuestions{}, errors.New("no valid questions generated")
	}

	name := strings.TrimSpace(input.Name)
	if name == "" {
		name = f.Name
	}

	quiz := Quiz{
		Name:         name,
		FileID:       f.ID,
		Level:        level,
		HighestScore: NoAttempts,
	}
	quizID, err := s.quizzes.InsertQuiz(ctx, quiz)
	if err != nil {
		return QuizWithQuestions{}, err
	}
	quiz.ID = quizID

	for i := range questions {
		questions[i].QuizID = quizID
	}
	if err := s.quizzes.InsertQuestions(ctx, questions); err != nil {
		return QuizWithQuestions{}, err
	}

	if err := s.counter.IncQuizCount(ctx, f.ID, 1); err != nil {
		s.log.Warnf("failed to bump quiz count for file %s: %v", f.ID.Hex(), err)
	}

	return QuizWithQuestions{Quiz: quiz, Questions: questions}, nil
}

// GenerateForFile допускает вызов из пути загрузки файла.
func (s *service) GenerateForFile(ctx context.Context, userID primitive.ObjectID, fileID, name string, numQuestions int, level string) error {
	_, err := s.Create(ctx, userID, fileID, CreateInput{
		Name:         name,
		NumQuestions: numQuestions,
		Level:        level,
	})
	return err
}

func buildQuestion(g summarize.QuizQuestion) (Question, error) {
	answers := make([]Answer, 0, len(g.Options))
	for key, content := range g.Options {
		answers = append(answers, Answer{
			Content:   content,
			IsCorrect: key == g.Answer,
		})
	}
	return NewQuestion(g.Question, answers, g.Explain)
}

func (s *service) Get(ctx context.Context, userID primitive.ObjectID, quizID string) (QuizWithQuestions, error) {
	quiz, err := s.findOwned(ctx, userID, quizID)
	if err != nil {
		return QuizWithQuestions{}, err
	}

	questions, err := s.quizzes.QuestionsByQuiz(ctx, quiz.ID)
	if err != nil {
		return QuizWithQuestions{}, err
	}
	return QuizWithQuestions{Quiz: quiz, Questions: questions}, nil
}

func (s *service) ListByFile(ctx context.Context, userID primitive.ObjectID, fileID string) ([]Quiz, error) {
	f, _, err := s.files.GetByID(ctx, userID, fileID)
	if err != nil {
		return nil, err
	}
	return s.quizzes.ListByFile(ctx, f.ID)
}

func (s *service) RecordAttempt(ctx context.Context, userID primitive.ObjectID, quizID string, score int) (Quiz, error) {
	if score < 0 || score > 100 {
		return Quiz{}, ErrInvalidScore
	}

	quiz, err := s.findOwned(ctx, userID, quizID)
	if err != nil {
		return Quiz{}, err
	}
	return s.quizzes.RecordAttempt(ctx, quiz.ID, score)
}

func (s *service) Delete(ctx context.Context, userID primitive.ObjectID, quizID string) error {
	quiz, err := s.findOwned(ctx, userID, quizID)
	if err != nil {
		return err
	}

	if err := s.quizzes.Delete(ctx, quiz.ID); err != nil {
		return err
	}
	if err := s.counter.IncQuizCount(ctx, quiz.FileID, -1); err != nil {
		s.log.Warnf("failed to drop quiz count for file %s: %v", quiz.FileID.Hex(), err)
	}
	return nil
}

// findOwned проверяет владение через файл, к которому привязан квиз.
func (s *service) findOwned(ctx context.Context, userID primitive.ObjectID, quizID string) (Quiz, error) {
	id, err := primitive.ObjectIDFromHex(quizID)
	if err != nil {
		return Quiz{}, ErrInvalidID
	}

	quiz, err := s.quizzes.FindByID(ctx, id)
	if err != nil {
		return Quiz{}, err
	}

	if _, _, err := s.files.GetByID(ctx, userID, quiz.FileID.Hex()); err != nil {
		if errors.Is(err, file.ErrForbidden) || errors.Is(err, file.ErrNotFound) {
			return Quiz{}, file.ErrForbidden
		}
		return Quiz{}, err
	}
	return quiz, nil
}
