package file

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/Oniqq60/study_space/internal/rabbitmq"
)

// TextSource downloads a stored document and returns its plain text.
type TextSource interface {
	FetchText(ctx context.Context, sourceURL, mimeType string) (string, error)
}

// Summarizer produces the summary markup and a relevance score for it.
type Summarizer interface {
	Summarize(ctx context.Context, text string) (html string, score float64, err error)
}

// Consumer handles file.process jobs: download, extract, summarize,
// persist. Any failure nacks the message to the dead letter queue.
type Consumer struct {
	files            Repository
	source           TextSource
	summarizer       Summarizer
	summarizeTimeout time.Duration
	log              *zap.SugaredLogger
}

func NewConsumer(files Repository, source TextSource, summarizer Summarizer, summarizeTimeout time.Duration, log *zap.SugaredLogger) *Consumer {
	return &Consumer{
		files:            files,
		source:           source,
		summarizer:       summarizer,
		summarizeTimeout: summarizeTimeout,
		log:              log,
	}
}

// Register subscribes the consumer on the processing queue.
func (c *Consumer) Register(client *rabbitmq.Client) error {
	return client.RegisterConsumer(rabbitmq.FileProcessQueue, c.Handle)
}

// Handle обрабатывает одно сообщение очереди file.process.
func (c *Consumer) Handle(ctx context.Context, d rabbitmq.Delivery) error {
	job, err := c.decodeJob(d)
	if err != nil {
		return err
	}

	if job.SourceURL == "" {
		// Nothing to download and nothing to retry; drop instead of
		// poisoning the dead letter queue.
		c.log.Warnf("file job %s has no source url, dropping", job.FileID)
		return nil
	}

	fileID, err := primitive.ObjectIDFromHex(job.FileID)
	if err != nil {
		return fmt.Errorf("bad file id %q: %w", job.FileID, err)
	}

	text, err := c.source.FetchText(ctx, job.SourceURL, job.MimeType)
	if err != nil {
		return fmt.Errorf("fetch text for file %s: %w", job.FileID, err)
	}
	if strings.TrimSpace(text) == "" {
		return fmt.Errorf("file %s produced no text", job.FileID)
	}

	sumCtx, cancel := context.WithTimeout(ctx, c.summarizeTimeout)
	defer cancel()
	summary, score, err := c.summarizer.Summarize(sumCtx, text)
	if err != nil {
		return fmt.Errorf("summarize file %s: %w", job.FileID, err)
	}

	if err := c.files.SetSummary(ctx, fileID, summary); err != nil {
		return fmt.Errorf("persist summary for file %s: %w", job.FileID, err)
	}

	c.log.Infow("file processed", "fileId", job.FileID, "score", score)
	return nil
}

// decodeJob принимает и конверт, и голый payload от старых продюсеров.
func (c *Consumer) decodeJob(d rabbitmq.Delivery) (rabbitmq.FileProcessingJob, error) {
	if d.Envelope.Type == rabbitmq.TypeFileProcess {
		v, err := d.Envelope.Decode()
		if err != nil {
			return rabbitmq.FileProcessingJob{}, err
		}
		job, ok := v.(rabbitmq.FileProcessingJob)
		if !ok {
			return rabbitmq.FileProcessingJob{}, fmt.Errorf("unexpected payload type %T", v)
		}
		return job, nil
	}

	var job rabbitmq.FileProcessingJob
	if err := json.Unmarshal(d.Body, &job); err != nil {
		return rabbitmq.FileProcessingJob{}, fmt.Errorf("decode file job: %w", err)
	}
	if job.FileID == "" {
		return rabbitmq.FileProcessingJob{}, fmt.Errorf("file job without file id")
	}
	return job, nil
}
