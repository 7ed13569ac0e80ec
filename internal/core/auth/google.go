package auth

import (
	"context"
	"fmt"

	"google.golang.org/api/idtoken"
)

// GoogleIdentity is the verified subset of a Google ID token.
type GoogleIdentity struct {
	Subject string
	Email   string
	Name    string
}

type GoogleVerifier interface {
	Verify(ctx context.Context, idToken string) (*GoogleIdentity, error)
}

// IDTokenVerifier checks Google-signed ID tokens. An empty audience accepts any client ID.
type IDTokenVerifier struct {
	audience string
}

func NewIDTokenVerifier(clientID string) *IDTokenVerifier {
	return &IDTokenVerifier{audience: clientID}
}

func (v *IDTokenVerifier) Verify(ctx context.Context, token string) (*GoogleIdentity, error) {
	payload, err := idtoken.Validate(ctx, token, v.audience)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	id := &GoogleIdentity{Subject: payload.Subject}
	if email, ok := payload.Claims["email"].(string); ok {
		id.Email = email
	}
	if name, ok := payload.Claims["name"].(string); ok {
		id.Name = name
	}
	return id, nil
}

var _ GoogleVerifier = (*IDTokenVerifier)(nil)
