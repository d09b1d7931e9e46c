package user

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

var (
	ErrNotFound      = errors.New("user not found")
	ErrEmailTaken    = errors.New("email already registered")
	ErrUsernameTaken = errors.New("username already taken")
)

type Repository interface {
	Insert(ctx context.Context, u User) (primitive.ObjectID, error)
	FindByID(ctx context.Context, id primitive.ObjectID) (User, error)
	FindByEmail(ctx context.Context, email string) (User, error)
	FindByUsername(ctx context.Context, username string) (User, error)
	MarkVerified(ctx context.Context, id primitive.ObjectID) error
	UpdatePassword(ctx context.Context, id primitive.ObjectID, passwordHash string) error
}

type mongoRepository struct {
	collection *mongo.Collection
}

func NewMongoRepository(db *mongo.Database) Repository {
	return &mongoRepository{collection: db.Collection("users")}
}

func (r *mongoRepository) Insert(ctx context.Context, u User) (primitive.ObjectID, error) {
	if _, err := r.FindByEmail(ctx, u.Email); err == nil {
		return primitive.NilObjectID, ErrEmailTaken
	} else if !errors.Is(err, ErrNotFound) {
		return primitive.NilObjectID, err
	}
	if _, err := r.FindByUsername(ctx, u.Username); err == nil {
		return primitive.NilObjectID, ErrUsernameTaken
	} else if !errors.Is(err, ErrNotFound) {
		return primitive.NilObjectID, err
	}

	u.CreatedAt = time.Now()
	res, err := r.collection.InsertOne(ctx, u)
	if err != nil {
		return primitive.NilObjectID, err
	}
	id, ok := res.InsertedID.(primitive.ObjectID)
	if !ok {
		return primitive.NilObjectID, errors.New("unexpected inserted id type")
	}
	return id, nil
}

func (r *mongoRepository) FindByID(ctx context.Context, id primitive.ObjectID) (User, error) {
	return r.findOne(ctx, bson.M{"_id": id})
}

func (r *mongoRepository) FindByEmail(ctx context.Context, email string) (User, error) {
	return r.findOne(ctx, bson.M{"email": email})
}

func (r *mongoRepository) FindByUsername(ctx context.Context, username string) (User, error) {
	return r.findOne(ctx, bson.M{"username": username})
}

func (r *mongoRepository) findOne(ctx context.Context, filter bson.M) (User, error) {
	var u User
	err := r.collection.FindOne(ctx, filter).Decode(&u)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return User{}, ErrNotFound
	}
	if err != nil {
		return User{}, err
	}
	return u, nil
}

func (r *mongoRepository) MarkVerified(ctx context.Context, id primitive.ObjectID) error {
	res, err := r.collection.UpdateByID(ctx, id, bson.M{"$set": bson.M{"email_verified": true}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *mongoRepository) UpdatePassword(ctx context.Context, id primitive.ObjectID, passwordHash string) error {
	res, err := r.collection.UpdateByID(ctx, id, bson.M{"$set": bson.M{"password_hash": passwordHash}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}
