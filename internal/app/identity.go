package app

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"wellness-sessions/internal/model"
	"wellness-sessions/internal/pkg/jwtutil"
)

// Identity is the verified caller of a request.
type Identity struct {
	UserID   uint
	Username string
}

type UserLookup interface {
	GetByID(ctx context.Context, id uint) (*model.User, error)
}

// IdentityVerifier turns a bearer credential into a live user identity.
type IdentityVerifier struct {
	secret string
	users  UserLookup
}

func NewIdentityVerifier(secret string, users UserLookup) (*IdentityVerifier, error) {
	if strings.TrimSpace(secret) == "" {
		return nil, errors.New("identity verifier requires a signing secret")
	}
	return &IdentityVerifier{secret: secret, users: users}, nil
}

// Verify returns ErrMissingCredential, ErrInvalidToken or ErrUnknownSubject for
// credential problems; any other error is an infrastructure failure.
func (v *IdentityVerifier) Verify(ctx context.Context, credential string) (Identity, error) {
	credential = strings.TrimSpace(credential)
	if credential == "" {
		return Identity{}, ErrMissingCredential
	}

	claims, err := jwtutil.ParseToken(v.secret, credential)
	if err != nil {
		return Identity{}, ErrInvalidToken
	}

	user, err := v.users.GetByID(ctx, claims.UserID)
	if err != nil {
		return Identity{}, fmt.Errorf("resolve token subject failed: %w", err)
	}
	if user == nil {
		return Identity{}, ErrUnknownSubject
	}
	return Identity{UserID: user.ID, Username: user.Username}, nil
}
