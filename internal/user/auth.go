package user

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	tokenBlacklistPrefix = "auth:token:blacklist:"
	authCookieName       = "access_token"

	purposeAccess = "access"
	purposeVerify = "verify"
	purposeReset  = "reset"
)

var ErrUnauthorized = errors.New("unauthorized")

type Claims struct {
	UserID  string `json:"user_id"`
	Purpose string `json:"purpose,omitempty"`
	jwt.RegisteredClaims
}

// TokenManager выпускает и проверяет HS256 токены. Отозванные jti лежат
// в Redis до истечения срока токена.
type TokenManager struct {
	secret []byte
	ttl    time.Duration
	rdb    *redis.Client
}

func NewTokenManager(secret []byte, ttl time.Duration, rdb *redis.Client) *TokenManager {
	return &TokenManager{secret: secret, ttl: ttl, rdb: rdb}
}

func (m *TokenManager) Issue(userID primitive.ObjectID) (string, error) {
	return m.issue(userID, purposeAccess, m.ttl)
}

// IssueVerification makes a one-day email-confirmation token.
func (m *TokenManager) IssueVerification(userID primitive.ObjectID) (string, error) {
	return m.issue(userID, purposeVerify, 24*time.Hour)
}

// IssueReset makes a short-lived password-reset token.
func (m *TokenManager) IssueReset(userID primitive.ObjectID) (string, error) {
	return m.issue(userID, purposeReset, time.Hour)
}

func (m *TokenManager) issue(userID primitive.ObjectID, purpose string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		UserID:  userID.Hex(),
		Purpose: purpose,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
}

func (m *TokenManager) parse(tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return m.secret, nil
	})
	if err != nil || !token.Valid {
		return nil, ErrUnauthorized
	}
	if claims.ID == "" || claims.UserID == "" {
		return nil, ErrUnauthorized
	}
	return claims, nil
}

// ParsePurpose validates a verify/reset token and returns its subject.
func (m *TokenManager) ParsePurpose(tokenString, purpose string) (primitive.ObjectID, error) {
	claims, err := m.parse(tokenString)
	if err != nil {
		return primitive.NilObjectID, err
	}
	if claims.Purpose != purpose {
		return primitive.NilObjectID, ErrUnauthorized
	}
	id, err := primitive.ObjectIDFromHex(claims.UserID)
	if err != nil {
		return primitive.NilObjectID, ErrUnauthorized
	}
	return id, nil
}

// Authorize resolves the requesting user from bearer header or cookie and
// rejects blacklisted tokens.
func (m *TokenManager) Authorize(r *http.Request) (primitive.ObjectID, error) {
	tokenString, err := tokenFromRequest(r)
	if err != nil {
		return primitive.NilObjectID, err
	}

	claims, err := m.parse(tokenString)
	if err != nil {
		return primitive.NilObjectID, err
	}
	if claims.Purpose != "" && claims.Purpose != purposeAccess {
		return primitive.NilObjectID, ErrUnauthorized
	}

	if m.rdb != nil {
		exists, redisErr := m.rdb.Exists(r.Context(), tokenBlacklistPrefix+claims.ID).Result()
		if redisErr != nil {
			return primitive.NilObjectID, redisErr
		}
		if exists > 0 {
			return primitive.NilObjectID, ErrUnauthorized
		}
	}

	id, err := primitive.ObjectIDFromHex(claims.UserID)
	if err != nil {
		return primitive.NilObjectID, ErrUnauthorized
	}
	return id, nil
}

// Revoke blacklists the token's jti until its natural expiry.
func (m *TokenManager) Revoke(ctx context.Context, tokenString string) error {
	claims, err := m.parse(tokenString)
	if err != nil {
		return err
	}
	if m.rdb == nil {
		return nil
	}

	ttl := time.Until(claims.ExpiresAt.Time)
	if ttl <= 0 {
		return nil
	}
	return m.rdb.Set(ctx, tokenBlacklistPrefix+claims.ID, "1", ttl).Err()
}

func tokenFromRequest(r *http.Request) (string, error) {
	if token, err := extractBearerToken(r.Header.Get("Authorization")); err == nil {
		return token, nil
	}

	if cookie, err := r.Cookie(authCookieName); err == nil {
		if token := strings.TrimSpace(cookie.Value); token != "" {
			return token, nil
		}
	}

	return "", ErrUnauthorized
}

func extractBearerToken(header string) (string, error) {
	if header == "" {
		return "", ErrUnauthorized
	}

	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", ErrUnauthorized
	}

	token := strings.TrimSpace(parts[1])
	if token == "" {
		return "", ErrUnauthorized
	}
	return token, nil
}
