package app

import (
	"context"
	"errors"
	"testing"
	"time"

	"wellness-sessions/internal/model"
	"wellness-sessions/internal/pkg/jwtutil"
)

const testSecret = "0123456789abcdef0123456789abcdef"

type stubUsers struct {
	users map[uint]*model.User
	err   error
}

func (s *stubUsers) GetByID(ctx context.Context, id uint) (*model.User, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.users[id], nil
}

func TestNewIdentityVerifierRequiresSecret(t *testing.T) {
	if _, err := NewIdentityVerifier("  ", &stubUsers{}); err == nil {
		t.Fatal("expected error for empty secret")
	}
}

func TestIdentityVerifier_Verify(t *testing.T) {
	users := &stubUsers{users: map[uint]*model.User{7: {ID: 7, Username: "alice"}}}
	verifier, err := NewIdentityVerifier(testSecret, users)
	if err != nil {
		t.Fatalf("NewIdentityVerifier: %v", err)
	}

	mustToken := func(secret string, exp time.Duration, id uint) string {
		t.Helper()
		token, err := jwtutil.GenerateToken(secret, exp, id, "alice")
		if err != nil {
			t.Fatalf("GenerateToken: %v", err)
		}
		return token
	}

	tests := []struct {
		name       string
		credential string
		wantErr    error
	}{
		{name: "valid", credential: mustToken(testSecret, time.Hour, 7)},
		{name: "missing", credential: "", wantErr: ErrMissingCredential},
		{name: "garbage", credential: "not-a-jwt", wantErr: ErrInvalidToken},
		{name: "wrong secret", credential: mustToken("another-secret-another-secret-xx", time.Hour, 7), wantErr: ErrInvalidToken},
		{name: "expired", credential: mustToken(testSecret, -time.Minute, 7), wantErr: ErrInvalidToken},
		{name: "deleted user", credential: mustToken(testSecret, time.Hour, 99), wantErr: ErrUnknownSubject},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			who, err := verifier.Verify(context.Background(), tt.credential)
			if tt.wantErr == nil {
				if err != nil {
					t.Fatalf("Verify() error = %v", err)
				}
				if who.UserID != 7 || who.Username != "alice" {
					t.Fatalf("Verify() = %+v", who)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Verify() error = %v, want %v", err, tt.wantErr)
			}
			if !errors.Is(err, ErrUnauthenticated) {
				t.Fatalf("Verify() error = %v does not wrap ErrUnauthenticated", err)
			}
		})
	}
}

func TestIdentityVerifier_StoreFailureIsNotAuthError(t *testing.T) {
	verifier, err := NewIdentityVerifier(testSecret, &stubUsers{err: errBoom})
	if err != nil {
		t.Fatalf("NewIdentityVerifier: %v", err)
	}
	token, err := jwtutil.GenerateToken(testSecret, time.Hour, 7, "alice")
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}

	_, err = verifier.Verify(context.Background(), token)
	if !errors.Is(err, errBoom) {
		t.Fatalf("Verify() error = %v, want wrapped store error", err)
	}
	if errors.Is(err, ErrUnauthenticated) {
		t.Fatal("store failure reported as unauthenticated")
	}
}
