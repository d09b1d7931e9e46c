package rabbitmq

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Message types routed through the envelope. Every queue payload is wrapped
// in an Envelope and dispatched on Type; consumers reject unknown types.
const (
	TypeFileProcess      = "file.process"
	TypeEmailVerify      = "email.verify"
	TypeEmailReset       = "email.reset"
	TypeNotificationSend = "notification.send.v1"
)

var ErrUnknownType = errors.New("unknown message type")

// Envelope — единый формат сообщения для всех очередей.
// Структура должна оставаться стабильной: producer и consumer
// деплоятся независимо.
type Envelope struct {
	Type          string          `json:"type"`
	Version       string          `json:"version"`
	CorrelationID string          `json:"correlationId,omitempty"`
	CausationID   string          `json:"causationId,omitempty"`
	Source        string          `json:"source"`
	Timestamp     time.Time       `json:"timestamp"`
	Payload       json.RawMessage `json:"payload"`
}

// FileProcessingJob is published by the upload path and consumed by the
// file-processing worker. Legacy producers used cloudinaryUrl/url and id
// for the same fields, so decoding accepts the old keys too.
type FileProcessingJob struct {
	FileID    string `json:"fileId"`
	SourceURL string `json:"sourceUrl"`
	UserID    string `json:"userId"`
	MimeType  string `json:"mimeType"`
}

func (j *FileProcessingJob) UnmarshalJSON(data []byte) error {
	var raw struct {
		FileID        string `json:"fileId"`
		ID            string `json:"id"`
		SourceURL     string `json:"sourceUrl"`
		CloudinaryURL string `json:"cloudinaryUrl"`
		URL           string `json:"url"`
		UserID        string `json:"userId"`
		MimeType      string `json:"mimeType"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	j.FileID = firstNonEmpty(raw.FileID, raw.ID)
	j.SourceURL = firstNonEmpty(raw.SourceURL, raw.CloudinaryURL, raw.URL)
	j.UserID = raw.UserID
	j.MimeType = raw.MimeType
	return nil
}

type EmailJob struct {
	Email string `json:"email"`
	Name  string `json:"name"`
	Token string `json:"token"`
}

type NotificationPayload struct {
	UserID  string `json:"user_id"`
	Email   string `json:"email"`
	Subject string `json:"subject"`
	Message string `json:"message"`
}

// NewEnvelope wraps a payload with protocol metadata. A fresh correlation id
// is stamped so causally-related messages can be traced.
func NewEnvelope(msgType, source string, payload any) (Envelope, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return Envelope{}, fmt.Errorf("marshal payload: %w", err)
	}
	return Envelope{
		Type:          msgType,
		Version:       "1",
		CorrelationID: uuid.NewString(),
		Source:        source,
		Timestamp:     time.Now().UTC(),
		Payload:       body,
	}, nil
}

// Decode возвращает типизированный payload по полю Type.
// Неизвестный type — ошибка, сообщение уходит в dead-letter.
func (e Envelope) Decode() (any, error) {
	switch e.Type {
	case TypeFileProcess:
		var job FileProcessingJob
		if err := json.Unmarshal(e.Payload, &job); err != nil {
			return nil, fmt.Errorf("decode %s payload: %w", e.Type, err)
		}
		return job, nil
	case TypeEmailVerify, TypeEmailReset:
		var job EmailJob
		if err := json.Unmarshal(e.Payload, &job); err != nil {
			return nil, fmt.Errorf("decode %s payload: %w", e.Type, err)
		}
		return job, nil
	case TypeNotificationSend:
		var p NotificationPayload
		if err := json.Unmarshal(e.Payload, &p); err != nil {
			return nil, fmt.Errorf("decode %s payload: %w", e.Type, err)
		}
		return p, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownType, e.Type)
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
