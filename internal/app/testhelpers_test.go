package app

import (
	"context"
	"errors"
	"sync"
	"testing"

	"gorm.io/gorm"

	"wellness-sessions/internal/model"
	sqliteClient "wellness-sessions/internal/platform/sqlite"
	"wellness-sessions/internal/repository"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := sqliteClient.New(context.Background(), ":memory:")
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := repository.AutoMigrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}

func mustCreateUser(t *testing.T, users *repository.UserRepository, name string) Identity {
	t.Helper()
	u := &model.User{Username: name, Email: name + "@example.com", PasswordHash: "x"}
	if err := users.Create(context.Background(), u); err != nil {
		t.Fatalf("create user %s: %v", name, err)
	}
	return Identity{UserID: u.ID, Username: u.Username}
}

type fakeCache struct {
	mu            sync.Mutex
	entries       []model.PublicSession
	hit           bool
	invalidations int
	err           error
}

func (c *fakeCache) GetPublished(ctx context.Context) ([]model.PublicSession, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return nil, false, c.err
	}
	return c.entries, c.hit, nil
}

func (c *fakeCache) SetPublished(ctx context.Context, sessions []model.PublicSession) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return c.err
	}
	c.entries = sessions
	c.hit = true
	return nil
}

func (c *fakeCache) InvalidatePublished(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.invalidations++
	c.entries = nil
	c.hit = false
	return c.err
}

type fakeEvents struct {
	mu     sync.Mutex
	events []model.SessionEvent
	err    error
}

func (e *fakeEvents) PublishSessionEvent(ctx context.Context, event model.SessionEvent) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.err != nil {
		return e.err
	}
	e.events = append(e.events, event)
	return nil
}

func (e *fakeEvents) types() []model.SessionEventType {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]model.SessionEventType, 0, len(e.events))
	for _, ev := range e.events {
		out = append(out, ev.Type)
	}
	return out
}

var errBoom = errors.New("boom")

func strPtr(s string) *string { return &s }

func tagsPtr(tags ...string) *[]string { return &tags }
