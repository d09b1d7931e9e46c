package file

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/Oniqq60/study_space/internal/rabbitmq"
	"github.com/Oniqq60/study_space/internal/subject"
)

type fakeRepo struct {
	Repository
	inserted     []File
	insertErr    error
	softDeleted  []primitive.ObjectID
	findResult   File
	findErr      error
	summaries    map[string]string
	summaryCalls int
}

func (f *fakeRepo) Insert(ctx context.Context, file File) (primitive.ObjectID, error) {
	if f.insertErr != nil {
		return primitive.NilObjectID, f.insertErr
	}
	f.inserted = append(f.inserted, file)
	return primitive.NewObjectID(), nil
}

func (f *fakeRepo) FindActiveByID(ctx context.Context, id primitive.ObjectID) (File, error) {
	return f.findResult, f.findErr
}

func (f *fakeRepo) SoftDelete(ctx context.Context, id primitive.ObjectID) error {
	f.softDeleted = append(f.softDeleted, id)
	return nil
}

func (f *fakeRepo) SetSummary(ctx context.Context, id primitive.ObjectID, summary string) error {
	if f.summaries == nil {
		f.summaries = make(map[string]string)
	}
	f.summaries[id.Hex()] = summary
	f.summaryCalls++
	return nil
}

type fakeSubjects struct {
	owned      map[primitive.ObjectID]subject.Subject
	added      []primitive.ObjectID
	removed    []primitive.ObjectID
	listResult []subject.Subject
}

func (f *fakeSubjects) FindOwned(ctx context.Context, id, userID primitive.ObjectID) (subject.Subject, error) {
	if s, ok := f.owned[id]; ok && s.UserID == userID {
		return s, nil
	}
	return subject.Subject{}, subject.ErrNotFound
}

func (f *fakeSubjects) AddChild(ctx context.Context, subjectID, fileID primitive.ObjectID) error {
	f.added = append(f.added, fileID)
	return nil
}

func (f *fakeSubjects) RemoveChild(ctx context.Context, subjectID, fileID primitive.ObjectID) error {
	f.removed = append(f.removed, fileID)
	return nil
}

func (f *fakeSubjects) ListByUser(ctx context.Context, userID primitive.ObjectID) ([]subject.Subject, error) {
	return f.listResult, nil
}

type fakeStorage struct {
	saved   int
	deleted []string
	saveErr error
}

func (f *fakeStorage) Save(ctx context.Context, filename, contentType string, data []byte) (string, string, string, error) {
	if f.saveErr != nil {
		return "", "", "", f.saveErr
	}
	f.saved++
	return "files/key.pdf", "http://storage.local/bucket/files/key.pdf", "checksum", nil
}

func (f *fakeStorage) Delete(ctx context.Context, objectKey string) error {
	f.deleted = append(f.deleted, objectKey)
	return nil
}

func (f *fakeStorage) Bucket() string { return "bucket" }

type fakePublisher struct {
	published []rabbitmq.Envelope
	queues    []string
	err       error
}

func (f *fakePublisher) Publish(ctx context.Context, queue string, env rabbitmq.Envelope) error {
	if f.err != nil {
		return f.err
	}
	f.published = append(f.published, env)
	f.queues = append(f.queues, queue)
	return nil
}

func newUploadFixture() (*fakeRepo, *fakeSubjects, *fakeStorage, *fakePublisher, Service, UploadInput) {
	userID := primitive.NewObjectID()
	subjectID := primitive.NewObjectID()

	repo := &fakeRepo{}
	subjects := &fakeSubjects{owned: map[primitive.ObjectID]subject.Subject{
		subjectID: {ID: subjectID, UserID: userID, Name: "Математика"},
	}}
	storage := &fakeStorage{}
	publisher := &fakePublisher{}

	svc := NewService(repo, subjects, storage, publisher, "api", zap.NewNop().Sugar())

	input := UploadInput{
		UserID:        userID,
		SubjectID:     subjectID.Hex(),
		Filename:      "lecture.txt",
		ContentType:   "text/plain",
		Content:       []byte("hello"),
		CreateSummary: true,
		MaxSize:       1024,
	}
	return repo, subjects, storage, publisher, svc, input
}

func TestUploadPublishesExactlyOneJob(t *testing.T) {
	repo, subjects, storage, publisher, svc, input := newUploadFixture()

	result, err := svc.Upload(context.Background(), input)
	require.NoError(t, err)

	assert.True(t, result.Queued)
	assert.Empty(t, result.QueueError)
	assert.Equal(t, "Математика", result.SubjectName)
	assert.Equal(t, 1, storage.saved)
	assert.Len(t, repo.inserted, 1)
	assert.Len(t, subjects.added, 1)

	require.Len(t, publisher.published, 1)
	assert.Equal(t, rabbitmq.FileProcessQueue, publisher.queues[0])

	payload, err := publisher.published[0].Decode()
	require.NoError(t, err)
	job := payload.(rabbitmq.FileProcessingJob)
	assert.Equal(t, result.File.ID.Hex(), job.FileID)
	assert.Equal(t, result.File.StorageURL, job.SourceURL)
	assert.Equal(t, input.UserID.Hex(), job.UserID)
}

func TestUploadWithoutSummarySkipsPublish(t *testing.T) {
	_, _, _, publisher, svc, input := newUploadFixture()
	input.CreateSummary = false

	result, err := svc.Upload(context.Background(), input)
	require.NoError(t, err)

	assert.False(t, result.Queued)
	assert.Empty(t, publisher.published)
}

func TestUploadPublishFailureStillStoresFile(t *testing.T) {
	repo, _, _, publisher, svc, input := newUploadFixture()
	publisher.err = errors.New("broker down")

	result, err := svc.Upload(context.Background(), input)
	require.NoError(t, err)

	assert.False(t, result.Queued)
	assert.NotEmpty(t, result.QueueError)
	assert.Len(t, repo.inserted, 1)
	assert.False(t, result.File.ID.IsZero())
}

func TestUploadValidation(t *testing.T) {
	_, _, _, _, svc, base := newUploadFixture()

	tests := []struct {
		name    string
		mutate  func(*UploadInput)
		wantErr error
	}{
		{"too large", func(in *UploadInput) { in.Content = make([]byte, 2048) }, ErrFileTooLarge},
		{"empty content", func(in *UploadInput) { in.Content = nil }, ErrEmptyContent},
		{"bad extension", func(in *UploadInput) { in.Filename = "virus.exe" }, ErrInvalidFileType},
		{"bad mime", func(in *UploadInput) { in.ContentType = "application/zip" }, ErrInvalidContentType},
		{"bad subject id", func(in *UploadInput) { in.SubjectID = "nope" }, ErrInvalidSubjectID},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			input := base
			tt.mutate(&input)
			_, err := svc.Upload(context.Background(), input)
			assert.True(t, errors.Is(err, tt.wantErr), "got %v", err)
		})
	}
}

func TestUploadForeignSubjectRejected(t *testing.T) {
	_, _, storage, publisher, svc, input := newUploadFixture()
	input.UserID = primitive.NewObjectID()

	_, err := svc.Upload(context.Background(), input)
	assert.True(t, errors.Is(err, subject.ErrNotFound))
	assert.Zero(t, storage.saved)
	assert.Empty(t, publisher.published)
}

func TestGetByIDForeignFileForbidden(t *testing.T) {
	repo, subjects, storage, publisher, _, _ := newUploadFixture()
	repo.findResult = File{ID: primitive.NewObjectID(), SubjectID: primitive.NewObjectID()}

	svc := NewService(repo, subjects, storage, publisher, "api", zap.NewNop().Sugar())

	_, _, err := svc.GetByID(context.Background(), primitive.NewObjectID(), repo.findResult.ID.Hex())
	assert.True(t, errors.Is(err, ErrForbidden))
}

func TestDeleteSoftDeletesAndUnlinks(t *testing.T) {
	repo, subjects, storage, publisher, _, input := newUploadFixture()

	subjectID, _ := primitive.ObjectIDFromHex(input.SubjectID)
	fileID := primitive.NewObjectID()
	repo.findResult = File{ID: fileID, SubjectID: subjectID, StorageKey: "files/key.pdf"}

	svc := NewService(repo, subjects, storage, publisher, "api", zap.NewNop().Sugar())

	require.NoError(t, svc.Delete(context.Background(), input.UserID, fileID.Hex()))
	assert.Equal(t, []primitive.ObjectID{fileID}, repo.softDeleted)
	assert.Equal(t, []primitive.ObjectID{fileID}, subjects.removed)
	assert.Equal(t, []string{"files/key.pdf"}, storage.deleted)
}

func TestUploadUnsummarizableTypeNotQueued(t *testing.T) {
	repo, _, _, publisher, svc, input := newUploadFixture()
	input.Filename = "old.doc"
	input.ContentType = "application/msword"

	result, err := svc.Upload(context.Background(), input)
	require.NoError(t, err)

	// Файл сохранён, но задача в очередь не уходит: разобрать .doc
	// консьюмер не умеет.
	assert.Len(t, repo.inserted, 1)
	assert.False(t, result.Queued)
	assert.NotEmpty(t, result.QueueError)
	assert.Empty(t, publisher.published)
}
