package file

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/Oniqq60/study_space/internal/rabbitmq"
	"github.com/Oniqq60/study_space/internal/subject"
)

var (
	ErrForbidden          = errors.New("forbidden")
	ErrFileTooLarge       = errors.New("file too large")
	ErrEmptyContent       = errors.New("file content required")
	ErrInvalidFileID      = errors.New("invalid file id")
	ErrInvalidSubjectID   = errors.New("invalid subject id")
	errMaxSizeNotProvided = errors.New("max file size not specified")
)

// SubjectStore is the slice of the subject repository the file service
// needs: ownership checks and the children list.
type SubjectStore interface {
	FindOwned(ctx context.Context, id, userID primitive.ObjectID) (subject.Subject, error)
	AddChild(ctx context.Context, subjectID, fileID primitive.ObjectID) error
	RemoveChild(ctx context.Context, subjectID, fileID primitive.ObjectID) error
	ListByUser(ctx context.Context, userID primitive.ObjectID) ([]subject.Subject, error)
}

// Publisher is satisfied by the broker client; injected so the upload path
// owns no broker state of its own.
type Publisher interface {
	Publish(ctx context.Context, queue string, env rabbitmq.Envelope) error
}

// QuizGenerator lets the upload path kick off synchronous quiz creation
// without the file package depending on the quiz package.
type QuizGenerator interface {
	GenerateForFile(ctx context.Context, userID primitive.ObjectID, fileID, name string, numQuestions int, level string) error
}

type UploadInput struct {
	UserID        primitive.ObjectID
	SubjectID     string
	Filename      string
	ContentType   string
	Content       []byte
	CreateSummary bool
	MaxSize       int64
}

// UploadResult distinguishes "stored" from "queued for processing": a
// publish failure still returns the stored file with Queued=false.
type UploadResult struct {
	File        File
	SubjectName string
	Queued      bool
	QueueError  string
}

type ListResult struct {
	Files        []File
	SubjectNames map[primitive.ObjectID]string
	Total        int64
	Page         Page
}

type Service interface {
	Upload(ctx context.Context, input UploadInput) (UploadResult, error)
	GetByID(ctx context.Context, userID primitive.ObjectID, fileID string) (File, string, error)
	ListBySubject(ctx context.Context, userID primitive.ObjectID, subjectID string, page Page) (ListResult, error)
	ListByUser(ctx context.Context, userID primitive.ObjectID, nameQuery string, page Page) (ListResult, error)
	Delete(ctx context.Context, userID primitive.ObjectID, fileID string) error
}

type service struct {
	files     Repository
	subjects  SubjectStore
	storage   ObjectStorage
	publisher Publisher
	source    string
	log       *zap.SugaredLogger
}

func NewService(files Repository, subjects SubjectStore, storage ObjectStorage, publisher Publisher, source string, log *zap.SugaredLogger) Service {
	return &service{
		files:     files,
		subjects:  subjects,
		storage:   storage,
		publisher: publisher,
		source:    source,
		log:       log,
	}
}

func (s *service) Upload(ctx context.Context, input UploadInput) (UploadResult, error) {
	if input.MaxSize <= 0 {
		return UploadResult{}, errMaxSizeNotProvided
	}
	if len(input.Content) == 0 {
		return UploadResult{}, ErrEmptyContent
	}
	if int64(len(input.Content)) > input.MaxSize {
		return UploadResult{}, ErrFileTooLarge
	}

	filename := SanitizeFilename(input.Filename)
	if err := ValidateFilename(filename); err != nil {
		return UploadResult{}, err
	}
	if err := ValidateContentType(input.ContentType); err != nil {
		return UploadResult{}, err
	}

	subjectID, err := primitive.ObjectIDFromHex(input.SubjectID)
	if err != nil {
		return UploadResult{}, ErrInvalidSubjectID
	}
	subj, err := s.subjects.FindOwned(ctx, subjectID, input.UserID)
	if err != nil {
		return UploadResult{}, err
	}

	saveCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	objectKey, publicURL, _, err := s.storage.Save(saveCtx, filename, input.ContentType, input.Content)
	if err != nil {
		return UploadResult{}, fmt.Errorf("store file: %w", err)
	}

	f := File{
		Name:       filename,
		Type:       strings.ToLower(filepath.Ext(filename)),
		SizeBytes:  int64(len(input.Content)),
		MimeType:   input.ContentType,
		StorageURL: publicURL,
		StorageKey: objectKey,
		SubjectID:  subjectID,
		Status:     StatusActive,
	}

	if input.ContentType == mimePDF {
		if pages, err := api.PageCount(bytes.NewReader(input.Content), nil); err == nil {
			f.Pages = pages
		} else {
			s.log.Warnf("pdf page count failed for %s: %v", filename, err)
		}
	}

	insertCtx, cancelInsert := context.WithTimeout(ctx, 10*time.Second)
	defer cancelInsert()
	insertID, err := s.files.Insert(insertCtx, f)
	if err != nil {
		_ = s.storage.Delete(context.Background(), objectKey)
		return UploadResult{}, err
	}
	f.ID = insertID
	f.UploadDate = time.Now()

	if err := s.subjects.AddChild(ctx, subjectID, insertID); err != nil {
		s.log.Warnf("failed to link file %s to subject %s: %v", insertID.Hex(), subjectID.Hex(), err)
	}

	result := UploadResult{File: f, SubjectName: subj.Name}

	if !input.CreateSummary {
		return result, nil
	}
	if !CanSummarize(input.ContentType) {
		// Консьюмер такой файл всё равно не разберёт; честнее отказать
		// сразу, чем отправить заведомо мёртвую задачу в DLQ.
		result.QueueError = "summary is not available for this file type"
		return result, nil
	}

	// Publish after persist: the job references a durable fileId and a
	// stable storage URL, and a single fileId is never enqueued twice.
	job := rabbitmq.FileProcessingJob{
		FileID:    insertID.Hex(),
		SourceURL: publicURL,
		UserID:    input.UserID.Hex(),
		MimeType:  input.ContentType,
	}
	env, err := rabbitmq.NewEnvelope(rabbitmq.TypeFileProcess, s.source, job)
	if err == nil {
		err = s.publisher.Publish(ctx, rabbitmq.FileProcessQueue, env)
	}
	if err != nil {
		// File is stored either way; never report queued while dropping
		// the job silently.
		s.log.Errorf("failed to queue processing for file %s: %v", insertID.Hex(), err)
		result.QueueError = "failed to queue file processing"
		return result, nil
	}

	result.Queued = true
	return result, nil
}

func (s *service) GetByID(ctx context.Context, userID primitive.ObjectID, fileID string) (File, string, error) {
	id, err := primitive.ObjectIDFromHex(fileID)
	if err != nil {
		return File{}, "", ErrInvalidFileID
	}

	f, err := s.files.FindActiveByID(ctx, id)
	if err != nil {
		return File{}, "", err
	}

	subj, err := s.subjects.FindOwned(ctx, f.SubjectID, userID)
	if err != nil {
		if errors.Is(err, subject.ErrNotFound) {
			return File{}, "", ErrForbidden
		}
		return File{}, "", err
	}

	return f, subj.Name, nil
}

func (s *service) ListBySubject(ctx context.Context, userID primitive.ObjectID, subjectID string, page Page) (ListResult, error) {
	id, err := primitive.ObjectIDFromHex(subjectID)
	if err != nil {
		return ListResult{}, ErrInvalidSubjectID
	}
	subj, err := s.subjects.FindOwned(ctx, id, userID)
	if err != nil {
		return ListResult{}, err
	}

	files, total, err := s.files.ListBySubject(ctx, id, page)
	if err != nil {
		return ListResult{}, err
	}

	return ListResult{
		Files:        files,
		SubjectNames: map[primitive.ObjectID]string{id: subj.Name},
		Total:        total,
		Page:         page,
	}, nil
}

func (s *service) ListByUser(ctx context.Context, userID primitive.ObjectID, nameQuery string, page Page) (ListResult, error) {
	subjects, err := s.subjects.ListByUser(ctx, userID)
	if err != nil {
		return ListResult{}, err
	}

	ids := make([]primitive.ObjectID, 0, len(subjects))
	names := make(map[primitive.ObjectID]string, len(subjects))
	for _, subj := range subjects {
		ids = append(ids, subj.ID)
		names[subj.ID] = subj.Name
	}

	files, total, err := s.files.ListBySubjects(ctx, ids, strings.TrimSpace(nameQuery), page)
	if err != nil {
		return ListResult{}, err
	}

	return ListResult{Files: files, SubjectNames: names, Total: total, Page: page}, nil
}

func (s *service) Delete(ctx context.Context, userID primitive.ObjectID, fileID string) error {
	id, err := primitive.ObjectIDFromHex(fileID)
	if err != nil {
		return ErrInvalidFileID
	}

	f, err := s.files.FindActiveByID(ctx, id)
	if err != nil {
		return err
	}
	if _, err := s.subjects.FindOwned(ctx, f.SubjectID, userID); err != nil {
		if errors.Is(err, subject.ErrNotFound) {
			return ErrForbidden
		}
		return err
	}

	if err := s.files.SoftDelete(ctx, id); err != nil {
		return err
	}
	if err := s.subjects.RemoveChild(ctx, f.SubjectID, id); err != nil {
		s.log.Warnf("failed to unlink file %s from subject %s: %v", id.Hex(), f.SubjectID.Hex(), err)
	}

	// Запись помечена удалённой, объект чистим best-effort.
	if f.StorageKey != "" {
		delCtx, cancelDel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancelDel()
		if err := s.storage.Delete(delCtx, f.StorageKey); err != nil {
			s.log.Warnf("failed to remove object %s: %v", f.StorageKey, err)
		}
	}

	return nil
}
