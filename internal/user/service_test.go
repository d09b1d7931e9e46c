package user

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/Oniqq60/study_space/internal/rabbitmq"
)

type memoryRepo struct {
	byEmail  map[string]User
	verified []primitive.ObjectID
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{byEmail: make(map[string]User)}
}

func (m *memoryRepo) Insert(ctx context.Context, u User) (primitive.ObjectID, error) {
	if _, ok := m.byEmail[u.Email]; ok {
		return primitive.NilObjectID, ErrEmailTaken
	}
	u.ID = primitive.NewObjectID()
	m.byEmail[u.Email] = u
	return u.ID, nil
}

func (m *memoryRepo) FindByID(ctx context.Context, id primitive.ObjectID) (User, error) {
	for _, u := range m.byEmail {
		if u.ID == id {
			return u, nil
		}
	}
	return User{}, ErrNotFound
}

func (m *memoryRepo) FindByEmail(ctx context.Context, email string) (User, error) {
	if u, ok := m.byEmail[email]; ok {
		return u, nil
	}
	return User{}, ErrNotFound
}

func (m *memoryRepo) FindByUsername(ctx context.Context, username string) (User, error) {
	for _, u := range m.byEmail {
		if u.Username == username {
			return u, nil
		}
	}
	return User{}, ErrNotFound
}

func (m *memoryRepo) MarkVerified(ctx context.Context, id primitive.ObjectID) error {
	for email, u := range m.byEmail {
		if u.ID == id {
			u.EmailVerified = true
			m.byEmail[email] = u
			m.verified = append(m.verified, id)
			return nil
		}
	}
	return ErrNotFound
}

func (m *memoryRepo) UpdatePassword(ctx context.Context, id primitive.ObjectID, hash string) error {
	for email, u := range m.byEmail {
		if u.ID == id {
			u.PasswordHash = hash
			m.byEmail[email] = u
			return nil
		}
	}
	return ErrNotFound
}

type recordingPublisher struct {
	envelopes []rabbitmq.Envelope
	queues    []string
}

func (p *recordingPublisher) Publish(ctx context.Context, queue string, env rabbitmq.Envelope) error {
	p.envelopes = append(p.envelopes, env)
	p.queues = append(p.queues, queue)
	return nil
}

func newTestService() (Service, *memoryRepo, *recordingPublisher, *TokenManager) {
	repo := newMemoryRepo()
	publisher := &recordingPublisher{}
	tokens := NewTokenManager([]byte("0123456789abcdef0123456789abcdef"), time.Hour, nil)
	svc := NewService(repo, tokens, publisher, "api", zap.NewNop().Sugar())
	return svc, repo, publisher, tokens
}

func TestRegisterPublishesVerifyJob(t *testing.T) {
	svc, _, publisher, _ := newTestService()

	u, err := svc.Register(context.Background(), RegisterInput{
		Username: "student",
		Email:    "Student@Example.COM",
		Name:     "Аня",
		Password: "correct horse",
	})
	require.NoError(t, err)

	assert.Equal(t, "student@example.com", u.Email)
	assert.NotEqual(t, "correct horse", u.PasswordHash)

	require.Len(t, publisher.envelopes, 1)
	assert.Equal(t, rabbitmq.EmailVerifyQueue, publisher.queues[0])
	assert.Equal(t, rabbitmq.TypeEmailVerify, publisher.envelopes[0].Type)

	payload, err := publisher.envelopes[0].Decode()
	require.NoError(t, err)
	job := payload.(rabbitmq.EmailJob)
	assert.Equal(t, "student@example.com", job.Email)
	assert.NotEmpty(t, job.Token)
}

func TestRegisterValidation(t *testing.T) {
	svc, _, _, _ := newTestService()

	_, err := svc.Register(context.Background(), RegisterInput{Username: "ab", Email: "a@b.co", Password: "longenough"})
	assert.True(t, errors.Is(err, ErrInvalidUsername))

	_, err = svc.Register(context.Background(), RegisterInput{Username: "abc", Email: "not-an-email", Password: "longenough"})
	assert.True(t, errors.Is(err, ErrInvalidEmail))

	_, err = svc.Register(context.Background(), RegisterInput{Username: "abc", Email: "a@b.co", Password: "short"})
	assert.True(t, errors.Is(err, ErrWeakPassword))
}

func TestLoginAndAuthorize(t *testing.T) {
	svc, _, _, tokens := newTestService()

	_, err := svc.Register(context.Background(), RegisterInput{
		Username: "student",
		Email:    "a@b.co",
		Password: "correct horse",
	})
	require.NoError(t, err)

	u, token, err := svc.Login(context.Background(), "a@b.co", "correct horse")
	require.NoError(t, err)
	require.NotEmpty(t, token)

	req := httptest.NewRequest("GET", "/files", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	gotID, err := tokens.Authorize(req)
	require.NoError(t, err)
	assert.Equal(t, u.ID, gotID)

	// Cookie fallback works too.
	cookieReq := httptest.NewRequest("GET", "/files", nil)
	cookieReq.AddCookie(&http.Cookie{Name: authCookieName, Value: token})
	gotID, err = tokens.Authorize(cookieReq)
	require.NoError(t, err)
	assert.Equal(t, u.ID, gotID)
}

func TestLoginWrongPassword(t *testing.T) {
	svc, _, _, _ := newTestService()

	_, err := svc.Register(context.Background(), RegisterInput{
		Username: "student",
		Email:    "a@b.co",
		Password: "correct horse",
	})
	require.NoError(t, err)

	_, _, err = svc.Login(context.Background(), "a@b.co", "wrong")
	assert.True(t, errors.Is(err, ErrInvalidCredentials))

	_, _, err = svc.Login(context.Background(), "missing@b.co", "whatever")
	assert.True(t, errors.Is(err, ErrInvalidCredentials))
}

func TestVerifyEmailToken(t *testing.T) {
	svc, repo, publisher, _ := newTestService()

	_, err := svc.Register(context.Background(), RegisterInput{
		Username: "student",
		Email:    "a@b.co",
		Password: "correct horse",
	})
	require.NoError(t, err)

	payload, err := publisher.envelopes[0].Decode()
	require.NoError(t, err)
	token := payload.(rabbitmq.EmailJob).Token

	require.NoError(t, svc.VerifyEmail(context.Background(), token))
	assert.Len(t, repo.verified, 1)

	// Access token is not accepted as a verification token.
	u, _ := repo.FindByEmail(context.Background(), "a@b.co")
	tokens := NewTokenManager([]byte("0123456789abcdef0123456789abcdef"), time.Hour, nil)
	access, err := tokens.Issue(u.ID)
	require.NoError(t, err)
	assert.Error(t, svc.VerifyEmail(context.Background(), access))
}

func TestPasswordResetFlow(t *testing.T) {
	svc, _, publisher, _ := newTestService()

	_, err := svc.Register(context.Background(), RegisterInput{
		Username: "student",
		Email:    "a@b.co",
		Password: "correct horse",
	})
	require.NoError(t, err)

	// Unknown address is silently accepted.
	require.NoError(t, svc.RequestPasswordReset(context.Background(), "ghost@b.co"))
	assert.Len(t, publisher.envelopes, 1)

	require.NoError(t, svc.RequestPasswordReset(context.Background(), "a@b.co"))
	require.Len(t, publisher.envelopes, 2)
	assert.Equal(t, rabbitmq.EmailResetQueue, publisher.queues[1])

	payload, err := publisher.envelopes[1].Decode()
	require.NoError(t, err)
	token := payload.(rabbitmq.EmailJob).Token

	require.NoError(t, svc.ResetPassword(context.Background(), token, "new password 123"))

	_, _, err = svc.Login(context.Background(), "a@b.co", "correct horse")
	assert.Error(t, err)
	_, _, err = svc.Login(context.Background(), "a@b.co", "new password 123")
	assert.NoError(t, err)
}
