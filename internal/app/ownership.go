package app

import (
	"context"
	"strings"

	"wellness-sessions/internal/model"
	"wellness-sessions/internal/repository"
)

type Intent int

const (
	IntentRead Intent = iota
	IntentWrite
)

func (i Intent) String() string {
	if i == IntentWrite {
		return "write"
	}
	return "read"
}

type SessionLoader interface {
	FindByID(ctx context.Context, id string) (*model.Session, error)
}

// OwnershipGuard decides whether an identity may act on a session. Access is
// exclusive to the owner; there is no shared or collaborative access.
type OwnershipGuard struct {
	sessions SessionLoader
}

func NewOwnershipGuard(sessions SessionLoader) *OwnershipGuard {
	return &OwnershipGuard{sessions: sessions}
}

// Authorize loads the session and returns a Grant for it. Absent sessions yield
// ErrSessionNotFound; sessions of another owner yield ErrForbidden for any intent.
func (g *OwnershipGuard) Authorize(ctx context.Context, sessionID string, who Identity, intent Intent) (*Grant, error) {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return nil, invalid("session_id", "is required")
	}
	if who.UserID == 0 {
		return nil, ErrUnauthenticated
	}

	session, err := g.sessions.FindByID(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, ErrSessionNotFound
	}
	if session.OwnerID != who.UserID {
		return nil, ErrForbidden
	}
	return &Grant{session: *session.Clone(), owner: who, intent: intent}, nil
}

// Grant is the per-request capability produced by OwnershipGuard. It is the only
// source of the store scope used for mutations, so the guard's owner check and
// the store's owner filter always name the same owner.
type Grant struct {
	session model.Session
	owner   Identity
	intent  Intent
}

// Session returns a copy of the session loaded during authorization.
func (g *Grant) Session() *model.Session {
	return g.session.Clone()
}

func (g *Grant) Owner() Identity {
	return g.owner
}

func (g *Grant) Intent() Intent {
	return g.intent
}

// Scope returns the owner-scoped store target. Read grants cannot mutate.
func (g *Grant) Scope() (repository.SessionScope, error) {
	if g.intent != IntentWrite {
		return repository.SessionScope{}, ErrForbidden
	}
	return repository.SessionScope{SessionID: g.session.ID, OwnerID: g.owner.UserID}, nil
}
