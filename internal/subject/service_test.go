package subject

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

type memSubjectRepo struct {
	subjects map[primitive.ObjectID]Subject
	stats    []Stats
}

func newMemSubjectRepo() *memSubjectRepo {
	return &memSubjectRepo{subjects: make(map[primitive.ObjectID]Subject)}
}

func (m *memSubjectRepo) Insert(ctx context.Context, s Subject) (primitive.ObjectID, error) {
	s.ID = primitive.NewObjectID()
	m.subjects[s.ID] = s
	return s.ID, nil
}

func (m *memSubjectRepo) FindOwned(ctx context.Context, id, userID primitive.ObjectID) (Subject, error) {
	if s, ok := m.subjects[id]; ok && s.UserID == userID {
		return s, nil
	}
	return Subject{}, ErrNotFound
}

func (m *memSubjectRepo) ListByUser(ctx context.Context, userID primitive.ObjectID) ([]Subject, error) {
	var out []Subject
	for _, s := range m.subjects {
		if s.UserID == userID {
			out = append(out, s)
		}
	}
	return out, nil
}

func (m *memSubjectRepo) Update(ctx context.Context, id, userID primitive.ObjectID, name, color string) error {
	s, ok := m.subjects[id]
	if !ok || s.UserID != userID {
		return ErrNotFound
	}
	if name != "" {
		s.Name = name
	}
	if color != "" {
		s.Color = color
	}
	m.subjects[id] = s
	return nil
}

func (m *memSubjectRepo) Delete(ctx context.Context, id, userID primitive.ObjectID) error {
	s, ok := m.subjects[id]
	if !ok || s.UserID != userID {
		return ErrNotFound
	}
	delete(m.subjects, id)
	return nil
}

func (m *memSubjectRepo) AddChild(ctx context.Context, subjectID, fileID primitive.ObjectID) error {
	s, ok := m.subjects[subjectID]
	if !ok {
		return ErrNotFound
	}
	s.Children = append(s.Children, fileID)
	m.subjects[subjectID] = s
	return nil
}

func (m *memSubjectRepo) RemoveChild(ctx context.Context, subjectID, fileID primitive.ObjectID) error {
	return nil
}

func (m *memSubjectRepo) StatsByUser(ctx context.Context, userID primitive.ObjectID) ([]Stats, error) {
	return m.stats, nil
}

type stubFileStore struct {
	deletedSubjects []primitive.ObjectID
}

func (s *stubFileStore) SoftDeleteBySubject(ctx context.Context, subjectID primitive.ObjectID) (int64, error) {
	s.deletedSubjects = append(s.deletedSubjects, subjectID)
	return 3, nil
}

func TestCreateSubjectValidatesName(t *testing.T) {
	svc := NewService(newMemSubjectRepo(), &stubFileStore{}, zap.NewNop().Sugar())
	userID := primitive.NewObjectID()

	s, err := svc.Create(context.Background(), userID, "  Математика  ", "#ff0000")
	require.NoError(t, err)
	assert.Equal(t, "Математика", s.Name)
	assert.False(t, s.ID.IsZero())

	_, err = svc.Create(context.Background(), userID, "   ", "")
	assert.True(t, errors.Is(err, ErrInvalidName))

	_, err = svc.Create(context.Background(), userID, strings.Repeat("x", 101), "")
	assert.True(t, errors.Is(err, ErrInvalidName))
}

func TestListMergesStats(t *testing.T) {
	repo := newMemSubjectRepo()
	svc := NewService(repo, &stubFileStore{}, zap.NewNop().Sugar())
	userID := primitive.NewObjectID()

	s, err := svc.Create(context.Background(), userID, "Физика", "")
	require.NoError(t, err)
	repo.stats = []Stats{{SubjectID: s.ID, TotalFiles: 4, TotalSummaries: 2, TotalQuizzes: 1}}

	items, err := svc.List(context.Background(), userID)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, 4, items[0].Stats.TotalFiles)
	assert.Equal(t, 2, items[0].Stats.TotalSummaries)
}

func TestDeleteCascadesToFiles(t *testing.T) {
	repo := newMemSubjectRepo()
	files := &stubFileStore{}
	svc := NewService(repo, files, zap.NewNop().Sugar())
	userID := primitive.NewObjectID()

	s, err := svc.Create(context.Background(), userID, "Химия", "")
	require.NoError(t, err)

	require.NoError(t, svc.Delete(context.Background(), userID, s.ID.Hex()))
	assert.Equal(t, []primitive.ObjectID{s.ID}, files.deletedSubjects)
	assert.Empty(t, repo.subjects)

	// Чужой предмет удалить нельзя.
	s2, err := svc.Create(context.Background(), userID, "Биология", "")
	require.NoError(t, err)
	err = svc.Delete(context.Background(), primitive.NewObjectID(), s2.ID.Hex())
	assert.True(t, errors.Is(err, ErrNotFound))
}
