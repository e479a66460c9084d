package app

import (
	"context"
	"errors"
	"testing"

	"wellness-sessions/internal/model"
)

type mapLoader map[string]*model.Session

func (m mapLoader) FindByID(ctx context.Context, id string) (*model.Session, error) {
	if id == "broken" {
		return nil, errBoom
	}
	return m[id], nil
}

func TestOwnershipGuard_Authorize(t *testing.T) {
	loader := mapLoader{
		"s-1": {ID: "s-1", OwnerID: 1, Title: "Mine", Status: model.SessionStatusDraft},
	}
	guard := NewOwnershipGuard(loader)
	owner := Identity{UserID: 1, Username: "alice"}
	other := Identity{UserID: 2, Username: "bob"}

	tests := []struct {
		name    string
		id      string
		who     Identity
		intent  Intent
		wantErr error
	}{
		{name: "owner read", id: "s-1", who: owner, intent: IntentRead},
		{name: "owner write", id: "s-1", who: owner, intent: IntentWrite},
		{name: "other read", id: "s-1", who: other, intent: IntentRead, wantErr: ErrForbidden},
		{name: "other write", id: "s-1", who: other, intent: IntentWrite, wantErr: ErrForbidden},
		{name: "missing", id: "s-2", who: owner, intent: IntentRead, wantErr: ErrSessionNotFound},
		{name: "empty id", id: " ", who: owner, intent: IntentRead, wantErr: ErrInvalidInput},
		{name: "anonymous", id: "s-1", who: Identity{}, intent: IntentRead, wantErr: ErrUnauthenticated},
		{name: "store failure", id: "broken", who: owner, intent: IntentRead, wantErr: errBoom},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			grant, err := guard.Authorize(context.Background(), tt.id, tt.who, tt.intent)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("Authorize() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Authorize() error = %v", err)
			}
			if grant.Session().ID != tt.id || grant.Owner() != tt.who || grant.Intent() != tt.intent {
				t.Fatalf("grant = %+v", grant)
			}
		})
	}
}

func TestGrant_Scope(t *testing.T) {
	guard := NewOwnershipGuard(mapLoader{"s-1": {ID: "s-1", OwnerID: 1}})
	owner := Identity{UserID: 1}

	read, err := guard.Authorize(context.Background(), "s-1", owner, IntentRead)
	if err != nil {
		t.Fatalf("Authorize(read): %v", err)
	}
	if _, err := read.Scope(); !errors.Is(err, ErrForbidden) {
		t.Fatalf("read grant Scope() error = %v, want ErrForbidden", err)
	}

	write, err := guard.Authorize(context.Background(), "s-1", owner, IntentWrite)
	if err != nil {
		t.Fatalf("Authorize(write): %v", err)
	}
	scope, err := write.Scope()
	if err != nil {
		t.Fatalf("write grant Scope(): %v", err)
	}
	if scope.SessionID != "s-1" || scope.OwnerID != 1 {
		t.Fatalf("scope = %+v", scope)
	}
}

func TestGrant_SessionIsACopy(t *testing.T) {
	loaded := &model.Session{ID: "s-1", OwnerID: 1, Title: "Original", Tags: model.Tags{"a"}}
	guard := NewOwnershipGuard(mapLoader{"s-1": loaded})

	grant, err := guard.Authorize(context.Background(), "s-1", Identity{UserID: 1}, IntentRead)
	if err != nil {
		t.Fatalf("Authorize: %v", err)
	}
	s := grant.Session()
	s.Title = "changed"
	s.Tags[0] = "changed"

	again := grant.Session()
	if again.Title != "Original" || again.Tags[0] != "a" {
		t.Fatalf("grant session mutated through a returned copy: %+v", again)
	}
}
