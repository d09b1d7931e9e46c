package file

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var ErrNotFound = errors.New("file not found")

type Page struct {
	Number int
	Limit  int
}

func (p Page) skip() int64 {
	return int64((p.Number - 1) * p.Limit)
}

type Repository interface {
	Insert(ctx context.Context, f File) (primitive.ObjectID, error)
	FindActiveByID(ctx context.Context, id primitive.ObjectID) (File, error)
	ListBySubject(ctx context.Context, subjectID primitive.ObjectID, page Page) ([]File, int64, error)
	ListBySubjects(ctx context.Context, subjectIDs []primitive.ObjectID, nameQuery string, page Page) ([]File, int64, error)
	SetSummary(ctx context.Context, id primitive.ObjectID, summary string) error
	IncQuizCount(ctx context.Context, id primitive.ObjectID, delta int) error
	SoftDelete(ctx context.Context, id primitive.ObjectID) error
	SoftDeleteBySubject(ctx context.Context, subjectID primitive.ObjectID) (int64, error)
}

type mongoRepository struct {
	collection *mongo.Collection
}

func NewRepository(collection *mongo.Collection) Repository {
	return &mongoRepository{collection: collection}
}

func (r *mongoRepository) Insert(ctx context.Context, f File) (primitive.ObjectID, error) {
	now := time.Now()
	f.UploadDate = now
	f.LastModified = now
	if f.Status == "" {
		f.Status = StatusActive
	}

	res, err := r.collection.InsertOne(ctx, f)
	if err != nil {
		return primitive.NilObjectID, err
	}

	id, ok := res.InsertedID.(primitive.ObjectID)
	if !ok {
		return primitive.NilObjectID, errors.New("unexpected insert id type")
	}
	return id, nil
}

func (r *mongoRepository) FindActiveByID(ctx context.Context, id primitive.ObjectID) (File, error) {
	var f File
	err := r.collection.FindOne(ctx, bson.M{"_id": id, "status": StatusActive}).Decode(&f)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return File{}, ErrNotFound
		}
		return File{}, err
	}
	return f, nil
}

func (r *mongoRepository) ListBySubject(ctx context.Context, subjectID primitive.ObjectID, page Page) ([]File, int64, error) {
	filter := bson.M{"subject_id": subjectID, "status": StatusActive}
	return r.findPaged(ctx, filter, page)
}

func (r *mongoRepository) ListBySubjects(ctx context.Context, subjectIDs []primitive.ObjectID, nameQuery string, page Page) ([]File, int64, error) {
	filter := bson.M{
		"subject_id": bson.M{"$in": subjectIDs},
		"status":     StatusActive,
	}
	if nameQuery != "" {
		filter["name"] = bson.M{"$regex": nameQuery, "$options": "i"}
	}
	return r.findPaged(ctx, filter, page)
}

func (r *mongoRepository) findPaged(ctx context.Context, filter bson.M, page Page) ([]File, int64, error) {
	total, err := r.collection.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, err
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "upload_date", Value: -1}}).
		SetSkip(page.skip()).
		SetLimit(int64(page.Limit))

	cur, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, 0, err
	}
	defer cur.Close(ctx)

	var files []File
	for cur.Next(ctx) {
		var f File
		if err := cur.Decode(&f); err != nil {
			return nil, 0, err
		}
		files = append(files, f)
	}
	if err := cur.Err(); err != nil {
		return nil, 0, err
	}

	return files, total, nil
}

// SetSummary overwrites the summary and bumps the counter in one update.
// The content write is idempotent; the counter is not, so a redelivered
// job leaves the same summary but a higher summary_count.
func (r *mongoRepository) SetSummary(ctx context.Context, id primitive.ObjectID, summary string) error {
	res, err := r.collection.UpdateByID(ctx, id, bson.M{
		"$set": bson.M{"summary_content": summary, "last_modified": time.Now()},
		"$inc": bson.M{"summary_count": 1},
	})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *mongoRepository) IncQuizCount(ctx context.Context, id primitive.ObjectID, delta int) error {
	res, err := r.collection.UpdateByID(ctx, id, bson.M{
		"$inc": bson.M{"quiz_count": delta},
		"$set": bson.M{"last_modified": time.Now()},
	})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// SoftDeleteBySubject гасит все активные файлы предмета разом.
func (r *mongoRepository) SoftDeleteBySubject(ctx context.Context, subjectID primitive.ObjectID) (int64, error) {
	res, err := r.collection.UpdateMany(ctx,
		bson.M{"subject_id": subjectID, "status": StatusActive},
		bson.M{"$set": bson.M{"status": StatusDeleted, "last_modified": time.Now()}},
	)
	if err != nil {
		return 0, err
	}
	return res.ModifiedCount, nil
}

// SoftDelete flips the status; documents are never hard-deleted here.
func (r *mongoRepository) SoftDelete(ctx context.Context, id primitive.ObjectID) error {
	res, err := r.collection.UpdateByID(ctx, id, bson.M{
		"$set": bson.M{"status": StatusDeleted, "last_modified": time.Now()},
	})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}
