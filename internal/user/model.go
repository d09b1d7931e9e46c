package user

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// User — аккаунт платформы. PasswordHash никогда не сериализуется наружу.
type User struct {
	ID            primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Username      string             `bson:"username" json:"username"`
	Email         string             `bson:"email" json:"email"`
	Name          string             `bson:"name" json:"name"`
	Image         string             `bson:"image,omitempty" json:"image,omitempty"`
	PasswordHash  string             `bson:"password_hash" json:"-"`
	EmailVerified bool               `bson:"email_verified" json:"emailVerified"`
	CreatedAt     time.Time          `bson:"created_at" json:"createdAt"`
}
