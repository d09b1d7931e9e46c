package subject

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Subject группирует файлы пользователя. Children хранит id файлов,
// порядок соответствует порядку загрузки.
type Subject struct {
	ID        primitive.ObjectID   `bson:"_id,omitempty" json:"id"`
	UserID    primitive.ObjectID   `bson:"user_id" json:"userId"`
	Name      string               `bson:"name" json:"name"`
	Color     string               `bson:"color,omitempty" json:"color,omitempty"`
	Children  []primitive.ObjectID `bson:"children" json:"children"`
	CreatedAt time.Time            `bson:"created_at" json:"createdAt"`
	UpdatedAt time.Time            `bson:"updated_at" json:"updatedAt"`
}

// Stats собирается агрегацией по коллекциям files и quizzes.
type Stats struct {
	SubjectID      primitive.ObjectID `bson:"_id" json:"subjectId"`
	TotalFiles     int                `bson:"total_files" json:"totalFiles"`
	TotalSummaries int                `bson:"total_summaries" json:"totalSummaries"`
	TotalQuizzes   int                `bson:"total_quizzes" json:"totalQuizzes"`
}
