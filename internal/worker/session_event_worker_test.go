package worker

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"wellness-sessions/internal/model"
)

type recordingStore struct {
	events []model.SessionEvent
	err    error
}

func (s *recordingStore) Create(ctx context.Context, event *model.SessionEvent) error {
	if s.err != nil {
		return s.err
	}
	s.events = append(s.events, *event)
	return nil
}

func newTestWorker(store SessionEventStore) *SessionEventWorker {
	return NewSessionEventWorker(nil, store, "test.queue", slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestSessionEventWorker_Handle(t *testing.T) {
	store := &recordingStore{}
	w := newTestWorker(store)

	body := []byte(`{"id":99,"session_id":"s-1","owner_id":7,"type":"published","status":"published","occurred_at":"2026-01-02T03:04:05Z"}`)
	if err := w.handle(context.Background(), body); err != nil {
		t.Fatalf("handle() error = %v", err)
	}
	if len(store.events) != 1 {
		t.Fatalf("stored %d events", len(store.events))
	}
	got := store.events[0]
	if got.ID != 0 {
		t.Errorf("id = %d, want the database to assign it", got.ID)
	}
	if got.SessionID != "s-1" || got.OwnerID != 7 || got.Type != model.SessionEventPublished || got.Status != model.SessionStatusPublished {
		t.Errorf("event = %+v", got)
	}
	if want := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC); !got.OccurredAt.Equal(want) {
		t.Errorf("occurred_at = %v, want %v", got.OccurredAt, want)
	}
}

func TestSessionEventWorker_HandleRejects(t *testing.T) {
	tests := []struct {
		name  string
		body  string
		store *recordingStore
		want  error
	}{
		{name: "not json", body: `{`, store: &recordingStore{}, want: errMalformedEvent},
		{name: "missing type", body: `{"session_id":"s-1"}`, store: &recordingStore{}, want: errMalformedEvent},
		{name: "store failure", body: `{"session_id":"s-1","type":"created"}`, store: &recordingStore{err: io.ErrUnexpectedEOF}, want: io.ErrUnexpectedEOF},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := newTestWorker(tt.store).handle(context.Background(), []byte(tt.body))
			if !errors.Is(err, tt.want) {
				t.Fatalf("handle() error = %v, want %v", err, tt.want)
			}
			if len(tt.store.events) != 0 {
				t.Fatalf("stored %+v", tt.store.events)
			}
		})
	}
}
