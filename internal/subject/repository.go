package subject

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var ErrNotFound = errors.New("subject not found")

type Repository interface {
	Insert(ctx context.Context, s Subject) (primitive.ObjectID, error)
	FindOwned(ctx context.Context, id, userID primitive.ObjectID) (Subject, error)
	ListByUser(ctx context.Context, userID primitive.ObjectID) ([]Subject, error)
	Update(ctx context.Context, id, userID primitive.ObjectID, name, color string) error
	Delete(ctx context.Context, id, userID primitive.ObjectID) error
	AddChild(ctx context.Context, subjectID, fileID primitive.ObjectID) error
	RemoveChild(ctx context.Context, subjectID, fileID primitive.ObjectID) error
	StatsByUser(ctx context.Context, userID primitive.ObjectID) ([]Stats, error)
}

type mongoRepository struct {
	collection *mongo.Collection
}

func NewMongoRepository(db *mongo.Database) Repository {
	return &mongoRepository{collection: db.Collection("subjects")}
}

func (r *mongoRepository) Insert(ctx context.Context, s Subject) (primitive.ObjectID, error) {
	now := time.Now()
	s.CreatedAt = now
	s.UpdatedAt = now
	if s.Children == nil {
		s.Children = []primitive.ObjectID{}
	}

	res, err := r.collection.InsertOne(ctx, s)
	if err != nil {
		return primitive.NilObjectID, err
	}
	id, ok := res.InsertedID.(primitive.ObjectID)
	if !ok {
		return primitive.NilObjectID, errors.New("unexpected inserted id type")
	}
	return id, nil
}

func (r *mongoRepository) FindOwned(ctx context.Context, id, userID primitive.ObjectID) (Subject, error) {
	var s Subject
	err := r.collection.FindOne(ctx, bson.M{"_id": id, "user_id": userID}).Decode(&s)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return Subject{}, ErrNotFound
	}
	if err != nil {
		return Subject{}, err
	}
	return s, nil
}

func (r *mongoRepository) ListByUser(ctx context.Context, userID primitive.ObjectID) ([]Subject, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	cursor, err := r.collection.Find(ctx, bson.M{"user_id": userID}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	subjects := make([]Subject, 0)
	if err := cursor.All(ctx, &subjects); err != nil {
		return nil, err
	}
	return subjects, nil
}

func (r *mongoRepository) Update(ctx context.Context, id, userID primitive.ObjectID, name, color string) error {
	set := bson.M{"updated_at": time.Now()}
	if name != "" {
		set["name"] = name
	}
	if color != "" {
		set["color"] = color
	}

	res, err := r.collection.UpdateOne(ctx, bson.M{"_id": id, "user_id": userID}, bson.M{"$set": set})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *mongoRepository) Delete(ctx context.Context, id, userID primitive.ObjectID) error {
	res, err := r.collection.DeleteOne(ctx, bson.M{"_id": id, "user_id": userID})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *mongoRepository) AddChild(ctx context.Context, subjectID, fileID primitive.ObjectID) error {
	update := bson.M{
		"$addToSet": bson.M{"children": fileID},
		"$set":      bson.M{"updated_at": time.Now()},
	}
	res, err := r.collection.UpdateByID(ctx, subjectID, update)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *mongoRepository) RemoveChild(ctx context.Context, subjectID, fileID primitive.ObjectID) error {
	update := bson.M{
		"$pull": bson.M{"children": fileID},
		"$set":  bson.M{"updated_at": time.Now()},
	}
	res, err := r.collection.UpdateByID(ctx, subjectID, update)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// StatsByUser считает totalFiles, totalSummaries и totalQuizzes одной
// агрегацией: lookup активных файлов, затем lookup квизов по их id.
func (r *mongoRepository) StatsByUser(ctx context.Context, userID primitive.ObjectID) ([]Stats, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"user_id": userID}}},
		{{Key: "$lookup", Value: bson.M{
			"from": "files",
			"let":  bson.M{"sid": "$_id"},
			"pipeline": bson.A{
				bson.M{"$match": bson.M{"$expr": bson.M{"$and": bson.A{
					bson.M{"$eq": bson.A{"$subject_id", "$$sid"}},
					bson.M{"$eq": bson.A{"$status", "ACTIVE"}},
				}}}},
			},
			"as": "files",
		}}},
		{{Key: "$lookup", Value: bson.M{
			"from":         "quizzes",
			"localField":   "files._id",
			"foreignField": "file_id",
			"as":           "quizzes",
		}}},
		{{Key: "$project", Value: bson.M{
			"total_files": bson.M{"$size": "$files"},
			"total_summaries": bson.M{"$size": bson.M{"$filter": bson.M{
				"input": "$files",
				"as":    "f",
				"cond":  bson.M{"$gt": bson.A{bson.M{"$strLenCP": bson.M{"$ifNull": bson.A{"$$f.summary_content", ""}}}, 0}},
			}}},
			"total_quizzes": bson.M{"$size": "$quizzes"},
		}}},
	}

	cursor, err := r.collection.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	stats := make([]Stats, 0)
	if err := cursor.All(ctx, &stats); err != nil {
		return nil, err
	}
	return stats, nil
}
