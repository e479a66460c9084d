package repository

import (
	"context"
	"testing"
	"time"

	"wellness-sessions/internal/model"
)

func TestSessionEventRepository_ListBySessionID(t *testing.T) {
	ctx := context.Background()
	repo := NewSessionEventRepository(newTestDB(t))
	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	events := []model.SessionEvent{
		{SessionID: "s", OwnerID: 1, Type: model.SessionEventPublished, Status: model.SessionStatusPublished, OccurredAt: base.Add(2 * time.Second)},
		{SessionID: "s", OwnerID: 1, Type: model.SessionEventCreated, Status: model.SessionStatusDraft, OccurredAt: base},
		{SessionID: "other", OwnerID: 2, Type: model.SessionEventCreated, Status: model.SessionStatusDraft, OccurredAt: base},
	}
	for i := range events {
		if err := repo.Create(ctx, &events[i]); err != nil {
			t.Fatalf("Create: %v", err)
		}
	}

	got, err := repo.ListBySessionID(ctx, "s", 0)
	if err != nil {
		t.Fatalf("ListBySessionID: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("len = %d, want 2", len(got))
	}
	if got[0].Type != model.SessionEventCreated || got[1].Type != model.SessionEventPublished {
		t.Errorf("order = [%s %s]", got[0].Type, got[1].Type)
	}
}
