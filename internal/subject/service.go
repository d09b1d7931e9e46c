package subject

import (
	"context"
	"errors"
	"strings"
	"unicode/utf8"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

var (
	ErrInvalidID   = errors.New("invalid subject id")
	ErrInvalidName = errors.New("subject name must be 1-100 characters")
)

// FileStore is the slice of the file repository the subject service needs
// for cascade deletes.
type FileStore interface {
	SoftDeleteBySubject(ctx context.Context, subjectID primitive.ObjectID) (int64, error)
}

type SubjectWithStats struct {
	Subject Subject
	Stats   Stats
}

type Service interface {
	Create(ctx context.Context, userID primitive.ObjectID, name, color string) (Subject, error)
	Get(ctx context.Context, userID primitive.ObjectID, id string) (Subject, error)
	List(ctx context.Context, userID primitive.ObjectID) ([]SubjectWithStats, error)
	Update(ctx context.Context, userID primitive.ObjectID, id, name, color string) (Subject, error)
	Delete(ctx context.Context, userID primitive.ObjectID, id string) error
}

type service struct {
	subjects Repository
	files    FileStore
	log      *zap.SugaredLogger
}

func NewService(subjects Repository, files FileStore, log *zap.SugaredLogger) Service {
	return &service{subjects: subjects, files: files, log: log}
}

func validateName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" || utf8.RuneCountInString(name) > 100 {
		return "", ErrInvalidName
	}
	return name, nil
}

func (s *service) Create(ctx context.Context, userID primitive.ObjectID, name, color string) (Subject, error) {
	name, err := validateName(name)
	if err != nil {
		return Subject{}, err
	}

	subj := Subject{
		UserID:   userID,
		Name:     name,
		Color:    strings.TrimSpace(color),
		Children: []primitive.ObjectID{},
	}
	id, err := s.subjects.Insert(ctx, subj)
	if err != nil {
		return Subject{}, err
	}
	subj.ID = id
	return subj, nil
}

func (s *service) Get(ctx context.Context, userID primitive.ObjectID, id string) (Subject, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return Subject{}, ErrInvalidID
	}
	return s.subjects.FindOwned(ctx, oid, userID)
}

func (s *service) List(ctx context.Context, userID primitive.ObjectID) ([]SubjectWithStats, error) {
	subjects, err := s.subjects.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	stats, err := s.subjects.StatsByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	byID := make(map[primitive.ObjectID]Stats, len(stats))
	for _, st := range stats {
		byID[st.SubjectID] = st
	}

	result := make([]SubjectWithStats, 0, len(subjects))
	for _, subj := range subjects {
		result = append(result, SubjectWithStats{Subject: subj, Stats: byID[subj.ID]})
	}
	return result, nil
}

func (s *service) Update(ctx context.Context, userID primitive.ObjectID, id, name, color string) (Subject, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return Subject{}, ErrInvalidID
	}
	if name != "" {
		if name, err = validateName(name); err != nil {
			return Subject{}, err
		}
	}

	if err := s.subjects.Update(ctx, oid, userID, name, strings.TrimSpace(color)); err != nil {
		return Subject{}, err
	}
	return s.subjects.FindOwned(ctx, oid, userID)
}

// Delete удаляет предмет и мягко гасит его файлы.
func (s *service) Delete(ctx context.Context, userID primitive.ObjectID, id string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return ErrInvalidID
	}

	if _, err := s.subjects.FindOwned(ctx, oid, userID); err != nil {
		return err
	}

	deleted, err := s.files.SoftDeleteBySubject(ctx, oid)
	if err != nil {
		return err
	}
	if deleted > 0 {
		s.log.Infow("subject files soft deleted", "subjectId", id, "count", deleted)
	}

	return s.subjects.Delete(ctx, oid, userID)
}
