package app

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"wellness-sessions/internal/metrics"
	"wellness-sessions/internal/model"
	"wellness-sessions/internal/pkg/logger"
	"wellness-sessions/internal/repository"
)

type SessionStore interface {
	SessionLoader
	Create(ctx context.Context, session *model.Session) error
	FindByOwner(ctx context.Context, ownerID uint) ([]model.Session, error)
	FindPublished(ctx context.Context) ([]model.PublicSession, error)
	UpdateByID(ctx context.Context, scope repository.SessionScope, patch repository.SessionPatch) (*model.Session, error)
	DeleteByID(ctx context.Context, scope repository.SessionScope) (bool, error)
}

type PublishedCache interface {
	GetPublished(ctx context.Context) ([]model.PublicSession, bool, error)
	SetPublished(ctx context.Context, sessions []model.PublicSession) error
	InvalidatePublished(ctx context.Context) error
}

type SessionEventPublisher interface {
	PublishSessionEvent(ctx context.Context, event model.SessionEvent) error
}

// SessionFields carries editable fields. A nil field is "not supplied".
type SessionFields struct {
	Title      *string
	Tags       *[]string
	PayloadURL *string
}

type SaveDraftInput struct {
	SessionID string
	SessionFields
}

// SessionService owns the draft/published lifecycle. Every mutation of an
// existing session goes through the OwnershipGuard first.
type SessionService struct {
	store  SessionStore
	guard  *OwnershipGuard
	cache  PublishedCache
	events SessionEventPublisher
	newID  func() string
	now    func() time.Time
}

// NewSessionService accepts nil cache and events; both are optional.
func NewSessionService(store SessionStore, cache PublishedCache, events SessionEventPublisher) *SessionService {
	return &SessionService{
		store:  store,
		guard:  NewOwnershipGuard(store),
		cache:  cache,
		events: events,
		newID:  func() string { return uuid.Must(uuid.NewV7()).String() },
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// SaveDraft creates a draft when SessionID is empty, otherwise overwrites the
// supplied fields of the caller's session. Status is never changed here.
func (s *SessionService) SaveDraft(ctx context.Context, who Identity, input SaveDraftInput) (session *model.Session, err error) {
	defer func() { metrics.ObserveSessionOperation("save_draft", outcome(err)) }()

	if who.UserID == 0 {
		return nil, ErrUnauthenticated
	}

	if input.SessionID != "" {
		grant, err := s.guard.Authorize(ctx, input.SessionID, who, IntentWrite)
		if err != nil {
			return nil, err
		}
		patch, err := normalizeFields(input.SessionFields)
		if err != nil {
			return nil, err
		}
		return s.applyPatch(ctx, grant, patch)
	}

	patch, err := normalizeFields(input.SessionFields)
	if err != nil {
		return nil, err
	}
	if patch.Title == nil {
		return nil, invalid("title", "is required")
	}
	session = &model.Session{
		ID:      s.newID(),
		OwnerID: who.UserID,
		Title:   *patch.Title,
		Tags:    model.Tags{},
		Status:  model.SessionStatusDraft,
	}
	if patch.Tags != nil {
		session.Tags = *patch.Tags
	}
	if patch.PayloadURL != nil {
		session.PayloadURL = *patch.PayloadURL
	}
	if err := s.store.Create(ctx, session); err != nil {
		return nil, err
	}
	s.emit(ctx, model.SessionEventCreated, session)
	return session, nil
}

// Publish moves a draft to published. The stored title and payload URL must
// already be present; publishing a published session is a no-op.
func (s *SessionService) Publish(ctx context.Context, who Identity, sessionID string) (session *model.Session, err error) {
	defer func() { metrics.ObserveSessionOperation("publish", outcome(err)) }()

	grant, err := s.guard.Authorize(ctx, sessionID, who, IntentWrite)
	if err != nil {
		return nil, err
	}
	current := grant.Session()
	if current.IsPublished() {
		return current, nil
	}
	if err := checkPublishable(current); err != nil {
		return nil, err
	}

	scope, err := grant.Scope()
	if err != nil {
		return nil, err
	}
	published := model.SessionStatusPublished
	session, err = s.store.UpdateByID(ctx, scope, repository.SessionPatch{Status: &published})
	if err != nil {
		return nil, storeWriteError(err)
	}
	if session == nil {
		return nil, ErrSessionNotFound
	}
	s.invalidatePublished(ctx)
	s.emit(ctx, model.SessionEventPublished, session)
	return session, nil
}

// Update applies a partial edit in either status. Edits that would leave a
// published session without a title or payload URL are rejected.
func (s *SessionService) Update(ctx context.Context, who Identity, sessionID string, fields SessionFields) (session *model.Session, err error) {
	defer func() { metrics.ObserveSessionOperation("update", outcome(err)) }()

	grant, err := s.guard.Authorize(ctx, sessionID, who, IntentWrite)
	if err != nil {
		return nil, err
	}
	patch, err := normalizeFields(fields)
	if err != nil {
		return nil, err
	}
	return s.applyPatch(ctx, grant, patch)
}

func (s *SessionService) Delete(ctx context.Context, who Identity, sessionID string) (err error) {
	defer func() { metrics.ObserveSessionOperation("delete", outcome(err)) }()

	grant, err := s.guard.Authorize(ctx, sessionID, who, IntentWrite)
	if err != nil {
		return err
	}
	scope, err := grant.Scope()
	if err != nil {
		return err
	}
	deleted, err := s.store.DeleteByID(ctx, scope)
	if err != nil {
		return err
	}
	if !deleted {
		return ErrSessionNotFound
	}

	session := grant.Session()
	if session.IsPublished() {
		s.invalidatePublished(ctx)
	}
	s.emit(ctx, model.SessionEventDeleted, session)
	return nil
}

// Get returns one of the caller's sessions.
func (s *SessionService) Get(ctx context.Context, who Identity, sessionID string) (session *model.Session, err error) {
	defer func() { metrics.ObserveSessionOperation("get", outcome(err)) }()

	grant, err := s.guard.Authorize(ctx, sessionID, who, IntentRead)
	if err != nil {
		return nil, err
	}
	return grant.Session(), nil
}

// CanEdit reports whether who owns the session. A missing session is still
// ErrSessionNotFound; another owner's session is (false, nil, nil).
func (s *SessionService) CanEdit(ctx context.Context, who Identity, sessionID string) (canEdit bool, session *model.Session, err error) {
	defer func() { metrics.ObserveSessionOperation("can_edit", outcome(err)) }()

	grant, err := s.guard.Authorize(ctx, sessionID, who, IntentRead)
	switch {
	case err == nil:
		return true, grant.Session(), nil
	case errors.Is(err, ErrForbidden):
		return false, nil, nil
	default:
		return false, nil, err
	}
}

func (s *SessionService) ListMine(ctx context.Context, who Identity) (sessions []model.Session, err error) {
	defer func() { metrics.ObserveSessionOperation("list_mine", outcome(err)) }()

	if who.UserID == 0 {
		return nil, ErrUnauthenticated
	}
	return s.store.FindByOwner(ctx, who.UserID)
}

// ListPublished needs no identity. Cache failures fall back to the store.
func (s *SessionService) ListPublished(ctx context.Context) (sessions []model.PublicSession, err error) {
	defer func() { metrics.ObserveSessionOperation("list_published", outcome(err)) }()

	log := logger.FromContext(ctx)
	if s.cache != nil {
		cached, hit, cacheErr := s.cache.GetPublished(ctx)
		if cacheErr != nil {
			log.Warn("published cache read failed", "error", cacheErr)
		} else if hit {
			return cached, nil
		}
	}

	sessions, err = s.store.FindPublished(ctx)
	if err != nil {
		return nil, err
	}
	if s.cache != nil {
		if cacheErr := s.cache.SetPublished(ctx, sessions); cacheErr != nil {
			log.Warn("published cache write failed", "error", cacheErr)
		}
	}
	return sessions, nil
}

func (s *SessionService) applyPatch(ctx context.Context, grant *Grant, patch repository.SessionPatch) (*model.Session, error) {
	current := grant.Session()
	merged := mergePatch(current, patch)
	if merged.IsPublished() {
		if err := checkPublishable(merged); err != nil {
			return nil, err
		}
	}

	scope, err := grant.Scope()
	if err != nil {
		return nil, err
	}
	updated, err := s.store.UpdateByID(ctx, scope, patch)
	if err != nil {
		return nil, storeWriteError(err)
	}
	if updated == nil {
		return nil, ErrSessionNotFound
	}
	if current.IsPublished() || updated.IsPublished() {
		s.invalidatePublished(ctx)
	}
	s.emit(ctx, model.SessionEventUpdated, updated)
	return updated, nil
}

// storeWriteError turns the store's invariant rejection, caused by a write
// that raced this one, into a validation error.
func storeWriteError(err error) error {
	if errors.Is(err, repository.ErrPublishedIncomplete) {
		return invalid("", "a published session requires a title and payload url")
	}
	return err
}

func (s *SessionService) invalidatePublished(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.InvalidatePublished(ctx); err != nil {
		logger.FromContext(ctx).Warn("published cache invalidation failed", "error", err)
	}
}

// emit never fails the caller: the write it describes is already committed.
func (s *SessionService) emit(ctx context.Context, typ model.SessionEventType, session *model.Session) {
	if s.events == nil {
		return
	}
	event := model.SessionEvent{
		SessionID:  session.ID,
		OwnerID:    session.OwnerID,
		Type:       typ,
		Status:     session.Status,
		OccurredAt: s.now(),
	}
	if err := s.events.PublishSessionEvent(ctx, event); err != nil {
		logger.FromContext(ctx).Warn("publish session event failed",
			"session_id", session.ID,
			"event", string(typ),
			"error", err,
		)
	}
}

func normalizeFields(fields SessionFields) (repository.SessionPatch, error) {
	var patch repository.SessionPatch
	if fields.Title != nil {
		title, err := normalizeTitle(*fields.Title)
		if err != nil {
			return patch, err
		}
		patch.Title = &title
	}
	if fields.Tags != nil {
		tags, err := normalizeTags(*fields.Tags)
		if err != nil {
			return patch, err
		}
		patch.Tags = &tags
	}
	if fields.PayloadURL != nil {
		url, err := normalizePayloadURL(*fields.PayloadURL)
		if err != nil {
			return patch, err
		}
		patch.PayloadURL = &url
	}
	return patch, nil
}

func mergePatch(s *model.Session, patch repository.SessionPatch) *model.Session {
	out := s.Clone()
	if patch.Title != nil {
		out.Title = *patch.Title
	}
	if patch.Tags != nil {
		out.Tags = patch.Tags.Clone()
	}
	if patch.PayloadURL != nil {
		out.PayloadURL = *patch.PayloadURL
	}
	if patch.Status != nil {
		out.Status = *patch.Status
	}
	return out
}
