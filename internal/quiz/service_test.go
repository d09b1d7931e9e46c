package quiz

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/Oniqq60/study_space/internal/file"
	"github.com/Oniqq60/study_space/internal/summarize"
)

type memQuizRepo struct {
	quizzes   map[primitive.ObjectID]Quiz
	questions []Question
}

func newMemQuizRepo() *memQuizRepo {
	return &memQuizRepo{quizzes: make(map[primitive.ObjectID]Quiz)}
}

func (m *memQuizRepo) InsertQuiz(ctx context.Context, q Quiz) (primitive.ObjectID, error) {
	q.ID = primitive.NewObjectID()
	m.quizzes[q.ID] = q
	return q.ID, nil
}

func (m *memQuizRepo) InsertQuestions(ctx context.Context, questions []Question) error {
	m.questions = append(m.questions, questions...)
	return nil
}

func (m *memQuizRepo) FindByID(ctx context.Context, id primitive.ObjectID) (Quiz, error) {
	if q, ok := m.quizzes[id]; ok {
		return q, nil
	}
	return Quiz{}, ErrNotFound
}

func (m *memQuizRepo) ListByFile(ctx context.Context, fileID primitive.ObjectID) ([]Quiz, error) {
	var out []Quiz
	for _, q := range m.quizzes {
		if q.FileID == fileID {
			out = append(out, q)
		}
	}
	return out, nil
}

func (m *memQuizRepo) QuestionsByQuiz(ctx context.Context, quizID primitive.ObjectID) ([]Question, error) {
	var out []Question
	for _, q := range m.questions {
		if q.QuizID == quizID {
			out = append(out, q)
		}
	}
	return out, nil
}

func (m *memQuizRepo) RecordAttempt(ctx context.Context, id primitive.ObjectID, score int) (Quiz, error) {
	q, ok := m.quizzes[id]
	if !ok {
		return Quiz{}, ErrNotFound
	}
	q.AttemptCount++
	if score > q.HighestScore {
		q.HighestScore = score
	}
	m.quizzes[id] = q
	return q, nil
}

func (m *memQuizRepo) Delete(ctx context.Context, id primitive.ObjectID) error {
	if _, ok := m.quizzes[id]; !ok {
		return ErrNotFound
	}
	delete(m.quizzes, id)
	return nil
}

type stubFileStore struct {
	file file.File
	err  error
}

func (s *stubFileStore) GetByID(ctx context.Context, userID primitive.ObjectID, fileID string) (file.File, string, error) {
	if s.err != nil {
		return file.File{}, "", s.err
	}
	return s.file, "Математика", nil
}

type stubCounter struct {
	deltas []int
}

func (s *stubCounter) IncQuizCount(ctx context.Context, id primitive.ObjectID, delta int) error {
	s.deltas = append(s.deltas, delta)
	return nil
}

type stubTextSource struct{ text string }

func (s *stubTextSource) FetchText(ctx context.Context, sourceURL, mimeType string) (string, error) {
	return s.text, nil
}

type stubGenerator struct {
	questions []summarize.QuizQuestion
	gotN      int
	gotLevel  string
	err       error
}

func (s *stubGenerator) GenerateQuiz(ctx context.Context, text string, n int, difficulty string) ([]summarize.QuizQuestion, error) {
	s.gotN = n
	s.gotLevel = difficulty
	return s.questions, s.err
}

func newQuizFixture() (*memQuizRepo, *stubCounter, *stubGenerator, Service, file.File, primitive.ObjectID) {
	userID := primitive.NewObjectID()
	f := file.File{
		ID:         primitive.NewObjectID(),
		Name:       "lecture.pdf",
		MimeType:   "application/pdf",
		StorageURL: "http://storage.local/f.pdf",
	}

	repo := newMemQuizRepo()
	counter := &stubCounter{}
	generator := &stubGenerator{questions: []summarize.QuizQuestion{
		{
			Question: "2+2?",
			Options:  map[string]string{"A": "3", "B": "4"},
			Answer:   "B",
			Explain:  "арифметика",
		},
		{
			// Answer key missing in options: dropped by the invariant.
			Question: "broken",
			Options:  map[string]string{"A": "x", "B": "y"},
			Answer:   "Z",
		},
	}}

	svc := NewService(repo, &stubFileStore{file: f}, counter, &stubTextSource{text: "source text"}, generator, time.Second, zap.NewNop().Sugar())
	return repo, counter, generator, svc, f, userID
}

func TestCreateQuizPersistsValidQuestionsOnly(t *testing.T) {
	repo, counter, generator, svc, f, userID := newQuizFixture()

	result, err := svc.Create(context.Background(), userID, f.ID.Hex(), CreateInput{Level: "hard"})
	require.NoError(t, err)

	assert.Equal(t, 10, generator.gotN)
	assert.Equal(t, "hard", generator.gotLevel)
	assert.Equal(t, LevelHard, result.Quiz.Level)
	assert.Equal(t, NoAttempts, result.Quiz.HighestScore)
	assert.Equal(t, f.Name, result.Quiz.Name)

	require.Len(t, repo.questions, 1)
	question := repo.questions[0]
	assert.Equal(t, result.Quiz.ID, question.QuizID)

	correct := 0
	for _, a := range question.Answers {
		if a.IsCorrect {
			correct++
			assert.Equal(t, "4", a.Content)
		}
	}
	assert.Equal(t, 1, correct)

	assert.Equal(t, []int{1}, counter.deltas)
}

func TestCreateQuizRejectsBadQuestionCount(t *testing.T) {
	_, _, _, svc, f, userID := newQuizFixture()

	_, err := svc.Create(context.Background(), userID, f.ID.Hex(), CreateInput{NumQuestions: 31})
	assert.True(t, errors.Is(err, ErrInvalidQuestions))
}

func TestCreateQuizFailsWhenNothingValid(t *testing.T) {
	_, _, generator, svc, f, userID := newQuizFixture()
	generator.questions = []summarize.QuizQuestion{
		{Question: "broken", Options: map[string]string{"A": "x", "B": "y"}, Answer: "Z"},
	}

	_, err := svc.Create(context.Background(), userID, f.ID.Hex(), CreateInput{})
	assert.Error(t, err)
}

func TestRecordAttempt(t *testing.T) {
	_, _, _, svc, f, userID := newQuizFixture()

	created, err := svc.Create(context.Background(), userID, f.ID.Hex(), CreateInput{})
	require.NoError(t, err)

	_, err = svc.RecordAttempt(context.Background(), userID, created.Quiz.ID.Hex(), 101)
	assert.True(t, errors.Is(err, ErrInvalidScore))

	q, err := svc.RecordAttempt(context.Background(), userID, created.Quiz.ID.Hex(), 70)
	require.NoError(t, err)
	assert.Equal(t, 70, q.HighestScore)
	assert.Equal(t, 1, q.AttemptCount)

	// Рекорд не опускается.
	q, err = svc.RecordAttempt(context.Background(), userID, created.Quiz.ID.Hex(), 40)
	require.NoError(t, err)
	assert.Equal(t, 70, q.HighestScore)
	assert.Equal(t, 2, q.AttemptCount)
}

func TestDeleteQuizDropsCounter(t *testing.T) {
	repo, counter, _, svc, f, userID := newQuizFixture()

	created, err := svc.Create(context.Background(), userID, f.ID.Hex(), CreateInput{})
	require.NoError(t, err)

	require.NoError(t, svc.Delete(context.Background(), userID, created.Quiz.ID.Hex()))
	assert.Empty(t, repo.quizzes)
	assert.Equal(t, []int{1, -1}, counter.deltas)
}
