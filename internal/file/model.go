package file

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Status string

const (
	StatusActive  Status = "ACTIVE"
	StatusDeleted Status = "DELETED"
)

// File представляет загруженный документ, хранящийся в MongoDB.
// Контент лежит в object storage, здесь только метаданные и summary.
type File struct {
	ID             primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name           string             `bson:"name" json:"name"`
	Type           string             `bson:"type" json:"type"` // расширение: .pdf, .docx, ...
	SizeBytes      int64              `bson:"size" json:"size_bytes"`
	MimeType       string             `bson:"mime_type" json:"mime_type"`
	StorageURL     string             `bson:"storage_url" json:"storage_url"`
	StorageKey     string             `bson:"storage_key" json:"-"`
	Pages          int                `bson:"pages,omitempty" json:"pages,omitempty"`
	SubjectID      primitive.ObjectID `bson:"subject_id" json:"subject_id"`
	SummaryContent string             `bson:"summary_content,omitempty" json:"summary_content,omitempty"`
	SummaryCount   int                `bson:"summary_count" json:"summary_count"`
	QuizCount      int                `bson:"quiz_count" json:"quiz_count"`
	Status         Status             `bson:"status" json:"status"`
	UploadDate     time.Time          `bson:"upload_date" json:"upload_date"`
	LastModified   time.Time          `bson:"last_modified" json:"-"`
}
