package services

import (
	"context"
	"errors"
	"net/mail"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/markdave123-py/damage-detector/internal/apperr"
	"github.com/markdave123-py/damage-detector/internal/core"
	"github.com/markdave123-py/damage-detector/internal/core/auth"
	"github.com/markdave123-py/damage-detector/internal/models"
)

const authProviderGoogle = "google"

// AuthResult is what every sign-in path hands back to the client.
type AuthResult struct {
	Token   string
	User    models.PublicUser
	Created bool
}

type UserService struct {
	db     core.DbClient
	tokens *auth.TokenManager
	google auth.GoogleVerifier
}

func NewUserService(db core.DbClient, tokens *auth.TokenManager, google auth.GoogleVerifier) *UserService {
	return &UserService{db: db, tokens: tokens, google: google}
}

// Register creates a password account and signs the user in.
func (s *UserService) Register(ctx context.Context, name, email, password string) (*AuthResult, error) {
	name, email = strings.TrimSpace(name), strings.TrimSpace(email)
	if name == "" || email == "" || password == "" {
		return nil, apperr.Validation("Missing required fields")
	}
	// display names and angle brackets are rejected, only a bare address is stored
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return nil, apperr.ErrInvalidEmail
	}
	email = strings.ToLower(addr.Address)

	existing, err := s.db.GetUserByEmail(ctx, email)
	if err != nil {
		return nil, apperr.Upstream("Registration failed", err)
	}
	if existing != nil {
		return nil, apperr.ErrDuplicateEmail
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, apperr.Upstream("Registration failed", err)
	}

	user := &models.User{Name: name, Email: email, PasswordHash: string(hash)}
	if err := s.db.CreateUser(ctx, user); err != nil {
		if errors.Is(err, apperr.ErrDuplicateEmail) {
			return nil, err
		}
		return nil, apperr.Upstream("Registration failed", err)
	}
	return s.signIn(user, true)
}

func (s *UserService) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return nil, apperr.Validation("Missing email or password")
	}

	user, err := s.db.GetUserByEmail(ctx, email)
	if err != nil {
		return nil, apperr.Upstream("", err)
	}
	// Google-only accounts have no password hash and never match.
	if user == nil || user.PasswordHash == "" ||
		bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return nil, apperr.ErrInvalidCredentials
	}
	return s.signIn(user, false)
}

// GoogleAuth verifies a Google ID token, then registers, links or logs in the matching account.
func (s *UserService) GoogleAuth(ctx context.Context, idToken string) (*AuthResult, error) {
	if strings.TrimSpace(idToken) == "" {
		return nil, apperr.Validation("Token is required")
	}

	identity, err := s.google.Verify(ctx, idToken)
	if err != nil {
		return nil, apperr.InvalidToken(err)
	}
	if identity.Email == "" {
		return nil, apperr.InvalidToken(errors.New("Email not found"))
	}
	email := strings.ToLower(identity.Email)

	user, err := s.db.GetUserByEmail(ctx, email)
	if err != nil {
		return nil, apperr.Upstream("", err)
	}

	if user == nil {
		user = &models.User{
			Name:         identity.Name,
			Email:        email,
			GoogleID:     identity.Subject,
			AuthProvider: authProviderGoogle,
		}
		err := s.db.CreateUser(ctx, user)
		if err == nil {
			return s.signIn(user, true)
		}
		if !errors.Is(err, apperr.ErrDuplicateEmail) {
			return nil, apperr.Upstream("", err)
		}
		// a concurrent first sign-in created the account, continue as a login
		user, err = s.db.GetUserByEmail(ctx, email)
		if err != nil {
			return nil, apperr.Upstream("", err)
		}
		if user == nil {
			return nil, apperr.Upstream("", apperr.ErrDuplicateEmail)
		}
	}

	if user.GoogleID == "" {
		if err := s.db.LinkGoogleID(ctx, user.ID, identity.Subject); err != nil {
			return nil, apperr.Upstream("", err)
		}
	}
	return s.signIn(user, false)
}

// Me returns the profile behind a verified token.
func (s *UserService) Me(ctx context.Context, userID string) (models.PublicUser, error) {
	user, err := s.db.GetUserByID(ctx, userID)
	if err != nil {
		return models.PublicUser{}, apperr.Upstream("", err)
	}
	if user == nil {
		return models.PublicUser{}, apperr.NotFound("User not found")
	}
	return user.Public(), nil
}

func (s *UserService) signIn(user *models.User, created bool) (*AuthResult, error) {
	token, err := s.tokens.Issue(user.ID)
	if err != nil {
		return nil, apperr.Upstream("", err)
	}
	return &AuthResult{Token: token, User: user.Public(), Created: created}, nil
}
