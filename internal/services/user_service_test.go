package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/markdave123-py/damage-detector/internal/apperr"
	"github.com/markdave123-py/damage-detector/internal/core/auth"
	db "github.com/markdave123-py/damage-detector/internal/core/database"
	"github.com/markdave123-py/damage-detector/internal/models"
)

func newUserService(v auth.GoogleVerifier) (*UserService, *db.MemoryClient, *auth.TokenManager) {
	store := db.NewMemoryClient()
	tokens := auth.NewTokenManager("test-secret", time.Hour)
	return NewUserService(store, tokens, v), store, tokens
}

func TestRegisterAndLogin(t *testing.T) {
	ctx := context.Background()
	svc, _, tokens := newUserService(&fakeVerifier{})

	reg, err := svc.Register(ctx, "Ada", "Ada@Example.com", "s3cret")
	require.NoError(t, err)
	assert.True(t, reg.Created)
	assert.Equal(t, "ada@example.com", reg.User.Email)

	uid, err := tokens.Parse(reg.Token)
	require.NoError(t, err)
	assert.Equal(t, reg.User.ID, uid)

	login, err := svc.Login(ctx, "ada@example.com", "s3cret")
	require.NoError(t, err)
	assert.False(t, login.Created)

	me, err := svc.Me(ctx, uid)
	require.NoError(t, err)
	assert.Equal(t, "Ada", me.Name)
}

func TestRegisterValidation(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newUserService(&fakeVerifier{})

	_, err := svc.Register(ctx, "", "a@b.co", "x")
	assert.Equal(t, "Missing required fields", apperr.Message(err))
	assert.Equal(t, 400, apperr.Status(err))

	_, err = svc.Register(ctx, "Ada", "not-an-email", "x")
	assert.ErrorIs(t, err, apperr.ErrInvalidEmail)

	for _, email := range []string{"Bob <bob@example.com>", "<bob@example.com>"} {
		_, err = svc.Register(ctx, "Bob", email, "pw")
		assert.ErrorIs(t, err, apperr.ErrInvalidEmail, email)
	}
	_, err = svc.Login(ctx, "bob@example.com", "pw")
	assert.ErrorIs(t, err, apperr.ErrInvalidCredentials)

	_, err = svc.Register(ctx, "Ada", "ada@example.com", "x")
	require.NoError(t, err)
	_, err = svc.Register(ctx, "Other", "ADA@example.com", "y")
	assert.ErrorIs(t, err, apperr.ErrDuplicateEmail)
	assert.Equal(t, 400, apperr.Status(err))
}

func TestLoginFailures(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newUserService(&fakeVerifier{})
	_, err := svc.Register(ctx, "Ada", "ada@example.com", "right")
	require.NoError(t, err)

	res, err := svc.Login(ctx, "ada@example.com", "wrong")
	assert.Nil(t, res)
	assert.ErrorIs(t, err, apperr.ErrInvalidCredentials)
	assert.Equal(t, 401, apperr.Status(err))

	_, err = svc.Login(ctx, "nobody@example.com", "right")
	assert.ErrorIs(t, err, apperr.ErrInvalidCredentials)

	_, err = svc.Login(ctx, "", "right")
	assert.Equal(t, "Missing email or password", apperr.Message(err))
}

func TestGoogleAuthPaths(t *testing.T) {
	ctx := context.Background()
	v := &fakeVerifier{identity: &auth.GoogleIdentity{Subject: "g-1", Email: "Grace@Example.com", Name: "Grace"}}
	svc, store, _ := newUserService(v)

	created, err := svc.GoogleAuth(ctx, "id-token")
	require.NoError(t, err)
	assert.True(t, created.Created)
	assert.Equal(t, "grace@example.com", created.User.Email)

	again, err := svc.GoogleAuth(ctx, "id-token")
	require.NoError(t, err)
	assert.False(t, again.Created)
	assert.Equal(t, created.User.ID, again.User.ID)

	// a password account is linked on first Google sign-in
	pw, err := svc.Register(ctx, "Lin", "lin@example.com", "pw")
	require.NoError(t, err)
	v.identity = &auth.GoogleIdentity{Subject: "g-2", Email: "lin@example.com", Name: "Lin"}
	linked, err := svc.GoogleAuth(ctx, "id-token")
	require.NoError(t, err)
	assert.False(t, linked.Created)
	assert.Equal(t, pw.User.ID, linked.User.ID)

	u, err := store.GetUserByID(ctx, pw.User.ID)
	require.NoError(t, err)
	assert.Equal(t, "g-2", u.GoogleID)
	assert.Equal(t, "google", u.AuthProvider)
	assert.NotEmpty(t, u.PasswordHash)

	// google-only accounts cannot use password login
	_, err = svc.Login(ctx, "grace@example.com", "anything")
	assert.ErrorIs(t, err, apperr.ErrInvalidCredentials)
}

// staleLookupStore misses the first email lookup, as if a concurrent request
// created the user between the lookup and the insert.
type staleLookupStore struct {
	*db.MemoryClient
	missed bool
}

func (s *staleLookupStore) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	if !s.missed {
		s.missed = true
		return nil, nil
	}
	return s.MemoryClient.GetUserByEmail(ctx, email)
}

func TestGoogleAuthConcurrentFirstSignIn(t *testing.T) {
	ctx := context.Background()
	store := &staleLookupStore{MemoryClient: db.NewMemoryClient()}
	winner := &models.User{Name: "Grace", Email: "grace@example.com", GoogleID: "g-1", AuthProvider: "google"}
	require.NoError(t, store.CreateUser(ctx, winner))

	v := &fakeVerifier{identity: &auth.GoogleIdentity{Subject: "g-1", Email: "grace@example.com", Name: "Grace"}}
	svc := NewUserService(store, auth.NewTokenManager("test-secret", time.Hour), v)

	res, err := svc.GoogleAuth(ctx, "id-token")
	require.NoError(t, err)
	assert.False(t, res.Created)
	assert.Equal(t, winner.ID, res.User.ID)
	assert.NotEmpty(t, res.Token)
}

func TestGoogleAuthRejects(t *testing.T) {
	ctx := context.Background()

	svc, _, _ := newUserService(&fakeVerifier{})
	_, err := svc.GoogleAuth(ctx, " ")
	assert.Equal(t, "Token is required", apperr.Message(err))

	svc, _, _ = newUserService(&fakeVerifier{err: errors.New("token expired")})
	_, err = svc.GoogleAuth(ctx, "tok")
	assert.Equal(t, 400, apperr.Status(err))
	assert.Equal(t, "Invalid token: token expired", apperr.Message(err))

	svc, _, _ = newUserService(&fakeVerifier{identity: &auth.GoogleIdentity{Subject: "g"}})
	_, err = svc.GoogleAuth(ctx, "tok")
	assert.Equal(t, 400, apperr.Status(err))
	assert.Equal(t, "Invalid token: Email not found", apperr.Message(err))
}

func TestMeUnknownUser(t *testing.T) {
	svc, _, _ := newUserService(&fakeVerifier{})
	_, err := svc.Me(context.Background(), "ghost")
	assert.Equal(t, 404, apperr.Status(err))
	assert.Equal(t, "User not found", apperr.Message(err))
}
