package user

import (
	"context"
	"errors"
	"net/mail"
	"strings"
	"unicode/utf8"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/Oniqq60/study_space/internal/rabbitmq"
)

var (
	ErrInvalidEmail       = errors.New("invalid email")
	ErrInvalidUsername    = errors.New("username must be 3-30 characters")
	ErrWeakPassword       = errors.New("password must be at least 8 characters")
	ErrInvalidCredentials = errors.New("invalid email or password")
)

type Publisher interface {
	Publish(ctx context.Context, queue string, env rabbitmq.Envelope) error
}

type RegisterInput struct {
	Username string
	Email    string
	Name     string
	Password string
}

type Service interface {
	Register(ctx context.Context, input RegisterInput) (User, error)
	Login(ctx context.Context, email, password string) (User, string, error)
	Logout(ctx context.Context, token string) error
	Profile(ctx context.Context, id primitive.ObjectID) (User, error)
	VerifyEmail(ctx context.Context, token string) error
	RequestPasswordReset(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, token, newPassword string) error
}

type service struct {
	users     Repository
	tokens    *TokenManager
	publisher Publisher
	source    string
	log       *zap.SugaredLogger
}

func NewService(users Repository, tokens *TokenManager, publisher Publisher, source string, log *zap.SugaredLogger) Service {
	return &service{
		users:     users,
		tokens:    tokens,
		publisher: publisher,
		source:    source,
		log:       log,
	}
}

func (s *service) Register(ctx context.Context, input RegisterInput) (User, error) {
	email := strings.ToLower(strings.TrimSpace(input.Email))
	if _, err := mail.ParseAddress(email); err != nil {
		return User{}, ErrInvalidEmail
	}

	username := strings.TrimSpace(input.Username)
	if n := utf8.RuneCountInString(username); n < 3 || n > 30 {
		return User{}, ErrInvalidUsername
	}
	if len(input.Password) < 8 {
		return User{}, ErrWeakPassword
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return User{}, err
	}

	u := User{
		Username:     username,
		Email:        email,
		Name:         strings.TrimSpace(input.Name),
		PasswordHash: string(hash),
	}
	id, err := s.users.Insert(ctx, u)
	if err != nil {
		return User{}, err
	}
	u.ID = id

	// Письмо уходит асинхронно; регистрация не ждёт SMTP.
	s.publishEmailJob(ctx, rabbitmq.TypeEmailVerify, rabbitmq.EmailVerifyQueue, u)

	return u, nil
}

func (s *service) publishEmailJob(ctx context.Context, msgType, queue string, u User) {
	var token string
	var err error
	switch msgType {
	case rabbitmq.TypeEmailVerify:
		token, err = s.tokens.IssueVerification(u.ID)
	case rabbitmq.TypeEmailReset:
		token, err = s.tokens.IssueReset(u.ID)
	}
	if err != nil {
		s.log.Errorf("failed to issue %s token for %s: %v", msgType, u.Email, err)
		return
	}

	job := rabbitmq.EmailJob{Email: u.Email, Name: u.Name, Token: token}
	env, err := rabbitmq.NewEnvelope(msgType, s.source, job)
	if err == nil {
		err = s.publisher.Publish(ctx, queue, env)
	}
	if err != nil {
		s.log.Errorf("failed to queue %s for %s: %v", msgType, u.Email, err)
	}
}

func (s *service) Login(ctx context.Context, email, password string) (User, string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	u, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return User{}, "", ErrInvalidCredentials
		}
		return User{}, "", err
	}

	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) != nil {
		return User{}, "", ErrInvalidCredentials
	}

	token, err := s.tokens.Issue(u.ID)
	if err != nil {
		return User{}, "", err
	}
	return u, token, nil
}

func (s *service) Logout(ctx context.Context, token string) error {
	return s.tokens.Revoke(ctx, token)
}

func (s *service) Profile(ctx context.Context, id primitive.ObjectID) (User, error) {
	return s.users.FindByID(ctx, id)
}

func (s *service) VerifyEmail(ctx context.Context, token string) error {
	id, err := s.tokens.ParsePurpose(token, purposeVerify)
	if err != nil {
		return err
	}
	return s.users.MarkVerified(ctx, id)
}

// RequestPasswordReset не раскрывает, существует ли адрес.
func (s *service) RequestPasswordReset(ctx context.Context, email string) error {
	email = strings.ToLower(strings.TrimSpace(email))
	u, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil
		}
		return err
	}

	s.publishEmailJob(ctx, rabbitmq.TypeEmailReset, rabbitmq.EmailResetQueue, u)
	return nil
}

func (s *service) ResetPassword(ctx context.Context, token, newPassword string) error {
	if len(newPassword) < 8 {
		return ErrWeakPassword
	}

	id, err := s.tokens.ParsePurpose(token, purposeReset)
	if err != nil {
		return err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	return s.users.UpdatePassword(ctx, id, string(hash))
}
