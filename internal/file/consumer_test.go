package file

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/Oniqq60/study_space/internal/rabbitmq"
)

type captureExtractor struct {
	paths []string
	text  string
	err   error
}

func (c *captureExtractor) Extract(path, mimeType string) (string, error) {
	c.paths = append(c.paths, path)
	if c.err != nil {
		return "", c.err
	}
	return c.text, nil
}

type fakeSummarizer struct {
	calls int
	html  string
	err   error
}

func (f *fakeSummarizer) Summarize(ctx context.Context, text string) (string, float64, error) {
	f.calls++
	if f.err != nil {
		return "", 0, f.err
	}
	return f.html, 0.42, nil
}

func fileServer(t *testing.T, status int, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func processDelivery(t *testing.T, fileID primitive.ObjectID, sourceURL string) rabbitmq.Delivery {
	t.Helper()
	env, err := rabbitmq.NewEnvelope(rabbitmq.TypeFileProcess, "api", rabbitmq.FileProcessingJob{
		FileID:    fileID.Hex(),
		SourceURL: sourceURL,
		MimeType:  "application/pdf",
	})
	require.NoError(t, err)
	return rabbitmq.Delivery{Envelope: env}
}

func TestConsumerHappyPath(t *testing.T) {
	srv := fileServer(t, http.StatusOK, "raw pdf bytes")
	repo := &fakeRepo{}
	extractor := &captureExtractor{text: "extracted lecture text"}
	summarizer := &fakeSummarizer{html: "<h2>Конспект</h2>"}

	c := NewConsumer(repo, NewFetcher(extractor, time.Second), summarizer, time.Second, zap.NewNop().Sugar())

	fileID := primitive.NewObjectID()
	require.NoError(t, c.Handle(context.Background(), processDelivery(t, fileID, srv.URL+"/doc.pdf")))

	assert.Equal(t, 1, summarizer.calls)
	assert.Equal(t, "<h2>Конспект</h2>", repo.summaries[fileID.Hex()])

	// Temp file is gone once handling finished.
	require.Len(t, extractor.paths, 1)
	_, err := os.Stat(extractor.paths[0])
	assert.True(t, os.IsNotExist(err))
}

func TestConsumerMissingSourceURLAcks(t *testing.T) {
	repo := &fakeRepo{}
	summarizer := &fakeSummarizer{}
	c := NewConsumer(repo, NewFetcher(&captureExtractor{}, time.Second), summarizer, time.Second, zap.NewNop().Sugar())

	err := c.Handle(context.Background(), processDelivery(t, primitive.NewObjectID(), ""))
	assert.NoError(t, err)
	assert.Zero(t, summarizer.calls)
	assert.Zero(t, repo.summaryCalls)
}

func TestConsumerDownloadFailure(t *testing.T) {
	srv := fileServer(t, http.StatusNotFound, "gone")
	repo := &fakeRepo{}
	summarizer := &fakeSummarizer{}
	c := NewConsumer(repo, NewFetcher(&captureExtractor{}, time.Second), summarizer, time.Second, zap.NewNop().Sugar())

	err := c.Handle(context.Background(), processDelivery(t, primitive.NewObjectID(), srv.URL+"/doc.pdf"))
	assert.Error(t, err)
	assert.Zero(t, summarizer.calls)
	assert.Zero(t, repo.summaryCalls)
}

func TestConsumerSummarizerFailureLeavesFileUntouched(t *testing.T) {
	srv := fileServer(t, http.StatusOK, "raw")
	repo := &fakeRepo{}
	summarizer := &fakeSummarizer{err: errors.New("model unavailable")}
	extractor := &captureExtractor{text: "text"}
	c := NewConsumer(repo, NewFetcher(extractor, time.Second), summarizer, time.Second, zap.NewNop().Sugar())

	err := c.Handle(context.Background(), processDelivery(t, primitive.NewObjectID(), srv.URL+"/doc.pdf"))
	assert.Error(t, err)
	assert.Zero(t, repo.summaryCalls)

	// Temp file removed on the failure path too.
	require.Len(t, extractor.paths, 1)
	_, statErr := os.Stat(extractor.paths[0])
	assert.True(t, os.IsNotExist(statErr))
}

func TestConsumerUnsupportedMimeNeverReachesSummarizer(t *testing.T) {
	srv := fileServer(t, http.StatusOK, "binary")
	repo := &fakeRepo{}
	summarizer := &fakeSummarizer{}
	c := NewConsumer(repo, NewFetcher(Extractor{}, time.Second), summarizer, time.Second, zap.NewNop().Sugar())

	env, err := rabbitmq.NewEnvelope(rabbitmq.TypeFileProcess, "api", rabbitmq.FileProcessingJob{
		FileID:    primitive.NewObjectID().Hex(),
		SourceURL: srv.URL + "/doc.bin",
		MimeType:  "application/octet-stream",
	})
	require.NoError(t, err)

	handleErr := c.Handle(context.Background(), rabbitmq.Delivery{Envelope: env})
	assert.True(t, errors.Is(handleErr, ErrUnsupportedType))
	assert.Zero(t, summarizer.calls)
}

func TestConsumerRedeliveryBumpsSummaryCountAgain(t *testing.T) {
	srv := fileServer(t, http.StatusOK, "raw")
	repo := &fakeRepo{}
	summarizer := &fakeSummarizer{html: "<p>s</p>"}
	c := NewConsumer(repo, NewFetcher(&captureExtractor{text: "text"}, time.Second), summarizer, time.Second, zap.NewNop().Sugar())

	d := processDelivery(t, primitive.NewObjectID(), srv.URL+"/doc.pdf")
	require.NoError(t, c.Handle(context.Background(), d))
	require.NoError(t, c.Handle(context.Background(), d))

	// Content converges, the counter does not: two deliveries, two bumps.
	assert.Equal(t, 2, repo.summaryCalls)
}

func TestConsumerBareBodyFallback(t *testing.T) {
	srv := fileServer(t, http.StatusOK, "raw")
	repo := &fakeRepo{}
	summarizer := &fakeSummarizer{html: "<p>s</p>"}
	c := NewConsumer(repo, NewFetcher(&captureExtractor{text: "text"}, time.Second), summarizer, time.Second, zap.NewNop().Sugar())

	fileID := primitive.NewObjectID()
	body, err := json.Marshal(map[string]string{
		"id":            fileID.Hex(),
		"cloudinaryUrl": srv.URL + "/doc.pdf",
		"mimeType":      "application/pdf",
	})
	require.NoError(t, err)

	require.NoError(t, c.Handle(context.Background(), rabbitmq.Delivery{Body: body}))
	assert.Equal(t, "<p>s</p>", repo.summaries[fileID.Hex()])
}

// readExtractor returns the downloaded file contents as the extracted text,
// so each job's summary depends on its own source document.
type readExtractor struct{}

func (readExtractor) Extract(path, mimeType string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

type echoSummarizer struct {
	calls int
}

func (e *echoSummarizer) Summarize(ctx context.Context, text string) (string, float64, error) {
	e.calls++
	return "<p>" + text + "</p>", 1, nil
}

func TestConsumerTwoFilesIndependentSummaries(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/a.pdf", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("алгебра"))
	})
	mux.HandleFunc("/b.pdf", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("геометрия"))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	repo := &fakeRepo{}
	summarizer := &echoSummarizer{}
	c := NewConsumer(repo, NewFetcher(readExtractor{}, time.Second), summarizer, time.Second, zap.NewNop().Sugar())

	fileA := primitive.NewObjectID()
	fileB := primitive.NewObjectID()

	// Порядок обработки на результат не влияет.
	require.NoError(t, c.Handle(context.Background(), processDelivery(t, fileB, srv.URL+"/b.pdf")))
	require.NoError(t, c.Handle(context.Background(), processDelivery(t, fileA, srv.URL+"/a.pdf")))

	assert.Equal(t, 2, summarizer.calls)
	assert.Equal(t, "<p>алгебра</p>", repo.summaries[fileA.Hex()])
	assert.Equal(t, "<p>геометрия</p>", repo.summaries[fileB.Hex()])
}
