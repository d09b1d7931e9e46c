package quiz

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var ErrNotFound = errors.New("quiz not found")

type Repository interface {
	InsertQuiz(ctx context.Context, q Quiz) (primitive.ObjectID, error)
	InsertQuestions(ctx context.Context, questions []Question) error
	FindByID(ctx context.Context, id primitive.ObjectID) (Quiz, error)
	ListByFile(ctx context.Context, fileID primitive.ObjectID) ([]Quiz, error)
	QuestionsByQuiz(ctx context.Context, quizID primitive.ObjectID) ([]Question, error)
	RecordAttempt(ctx context.Context, id primitive.ObjectID, score int) (Quiz, error)
	Delete(ctx context.Context, id primitive.ObjectID) error
}

type mongoRepository struct {
	quizzes   *mongo.Collection
	questions *mongo.Collection
}

func NewMongoRepository(db *mongo.Database) Repository {
	return &mongoRepository{
		quizzes:   db.Collection("quizzes"),
		questions: db.Collection("questions"),
	}
}

func (r *mongoRepository) InsertQuiz(ctx context.Context, q Quiz) (primitive.ObjectID, error) {
	now := time.Now()
	q.CreatedAt = now
	q.UpdatedAt = now

	res, err := r.quizzes.InsertOne(ctx, q)
	if err != nil {
		return primitive.NilObjectID, err
	}
	id, ok := res.InsertedID.(primitive.ObjectID)
	if !ok {
		return primitive.NilObjectID, errors.New("unexpected inserted id type")
	}
	return id, nil
}

func (r *mongoRepository) InsertQuestions(ctx context.Context, questions []Question) error {
	if len(questions) == 0 {
		return nil
	}

	docs := make([]interface{}, 0, len(questions))
	for _, q := range questions {
		docs = append(docs, q)
	}
	_, err := r.questions.InsertMany(ctx, docs)
	return err
}

func (r *mongoRepository) FindByID(ctx context.Context, id primitive.ObjectID) (Quiz, error) {
	var q Quiz
	err := r.quizzes.FindOne(ctx, bson.M{"_id": id}).Decode(&q)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return Quiz{}, ErrNotFound
	}
	if err != nil {
		return Quiz{}, err
	}
	return q, nil
}

func (r *mongoRepository) ListByFile(ctx context.Context, fileID primitive.ObjectID) ([]Quiz, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	cursor, err := r.quizzes.Find(ctx, bson.M{"file_id": fileID}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	quizzes := make([]Quiz, 0)
	if err := cursor.All(ctx, &quizzes); err != nil {
		return nil, err
	}
	return quizzes, nil
}

func (r *mongoRepository) QuestionsByQuiz(ctx context.Context, quizID primitive.ObjectID) ([]Question, error) {
	cursor, err := r.questions.Find(ctx, bson.M{"quiz_id": quizID})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	questions := make([]Question, 0)
	if err := cursor.All(ctx, &questions); err != nil {
		return nil, err
	}
	return questions, nil
}

// RecordAttempt атомарно увеличивает счётчик и поднимает рекорд.
func (r *mongoRepository) RecordAttempt(ctx context.Context, id primitive.ObjectID, score int) (Quiz, error) {
	update := bson.M{
		"$inc": bson.M{"attempt_count": 1},
		"$max": bson.M{"highest_score": score},
		"$set": bson.M{"updated_at": time.Now()},
	}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var q Quiz
	err := r.quizzes.FindOneAndUpdate(ctx, bson.M{"_id": id}, update, opts).Decode(&q)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return Quiz{}, ErrNotFound
	}
	if err != nil {
		return Quiz{}, err
	}
	return q, nil
}

func (r *mongoRepository) Delete(ctx context.Context, id primitive.ObjectID) error {
	res, err := r.quizzes.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}

	_, err = r.questions.DeleteMany(ctx, bson.M{"quiz_id": id})
	return err
}
