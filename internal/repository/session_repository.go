package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"wellness-sessions/internal/model"
)

// ErrPublishedIncomplete is returned by UpdateByID when the committed row would
// be published without a title or payload URL. The update is rolled back.
var ErrPublishedIncomplete = errors.New("published session requires a title and payload url")

// SessionScope targets one session of one owner. Every mutating query filters on
// both columns, so a scope naming another owner's session matches nothing.
type SessionScope struct {
	SessionID string
	OwnerID   uint
}

// SessionPatch lists the fields to change; nil fields are left untouched.
// updated_at is always refreshed.
type SessionPatch struct {
	Title      *string
	Tags       *model.Tags
	PayloadURL *string
	Status     *model.SessionStatus
}

type SessionRepository struct {
	db    *gorm.DB
	users *UserRepository
	now   func() time.Time
}

func NewSessionRepository(db *gorm.DB) *SessionRepository {
	return &SessionRepository{
		db:    db,
		users: NewUserRepository(db),
		now:   func() time.Time { return time.Now().UTC() },
	}
}

// Create stamps CreatedAt and UpdatedAt with the same instant.
func (r *SessionRepository) Create(ctx context.Context, session *model.Session) error {
	now := r.now()
	session.CreatedAt = now
	session.UpdatedAt = now
	if session.Tags == nil {
		session.Tags = model.Tags{}
	}
	if err := r.db.WithContext(ctx).Create(session).Error; err != nil {
		return fmt.Errorf("create session failed: %w", err)
	}
	return nil
}

func (r *SessionRepository) FindByID(ctx context.Context, id string) (*model.Session, error) {
	var session model.Session
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&session).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("get session failed: %w", err)
	}
	return &session, nil
}

func (r *SessionRepository) FindByOwner(ctx context.Context, ownerID uint) ([]model.Session, error) {
	sessions := []model.Session{}
	if err := r.db.WithContext(ctx).
		Where("owner_id = ?", ownerID).
		Order("updated_at DESC").
		Order("id DESC").
		Find(&sessions).Error; err != nil {
		return nil, fmt.Errorf("list sessions by owner failed: %w", err)
	}
	return sessions, nil
}

// FindPublished never selects payload_url.
func (r *SessionRepository) FindPublished(ctx context.Context) ([]model.PublicSession, error) {
	var sessions []model.Session
	if err := r.db.WithContext(ctx).
		Select("id", "owner_id", "title", "tags", "status", "created_at", "updated_at").
		Where("status = ?", model.SessionStatusPublished).
		Order("created_at DESC").
		Order("id DESC").
		Find(&sessions).Error; err != nil {
		return nil, fmt.Errorf("list published sessions failed: %w", err)
	}

	ownerIDs := make([]uint, 0, len(sessions))
	seen := make(map[uint]struct{}, len(sessions))
	for _, s := range sessions {
		if _, ok := seen[s.OwnerID]; !ok {
			seen[s.OwnerID] = struct{}{}
			ownerIDs = append(ownerIDs, s.OwnerID)
		}
	}
	authors, err := r.users.UsernamesByIDs(ctx, ownerIDs)
	if err != nil {
		return nil, err
	}

	out := make([]model.PublicSession, 0, len(sessions))
	for _, s := range sessions {
		out = append(out, model.PublicSession{
			ID:        s.ID,
			OwnerID:   s.OwnerID,
			Author:    authors[s.OwnerID],
			Title:     s.Title,
			Tags:      s.Tags,
			Status:    s.Status,
			CreatedAt: s.CreatedAt,
			UpdatedAt: s.UpdatedAt,
		})
	}
	return out, nil
}

// UpdateByID applies patch and re-reads the row in one transaction. It returns
// (nil, nil) when scope matches no row. The reloaded row is checked against the
// publish invariant before commit, so a concurrent write that emptied a field
// cannot leave a published session incomplete.
func (r *SessionRepository) UpdateByID(ctx context.Context, scope SessionScope, patch SessionPatch) (*model.Session, error) {
	updates := map[string]interface{}{
		"updated_at": r.now(),
	}
	if patch.Title != nil {
		updates["title"] = *patch.Title
	}
	if patch.Tags != nil {
		tags := *patch.Tags
		if tags == nil {
			tags = model.Tags{}
		}
		updates["tags"] = tags
	}
	if patch.PayloadURL != nil {
		updates["payload_url"] = *patch.PayloadURL
	}
	if patch.Status != nil {
		updates["status"] = *patch.Status
	}

	var updated *model.Session
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		scoped := tx.Model(&model.Session{}).Where("id = ? AND owner_id = ?", scope.SessionID, scope.OwnerID)
		if err := scoped.Updates(updates).Error; err != nil {
			return fmt.Errorf("update session failed: %w", err)
		}

		var session model.Session
		if err := tx.Where("id = ? AND owner_id = ?", scope.SessionID, scope.OwnerID).First(&session).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil
			}
			return fmt.Errorf("reload session failed: %w", err)
		}
		if session.IsPublished() && (strings.TrimSpace(session.Title) == "" || strings.TrimSpace(session.PayloadURL) == "") {
			return ErrPublishedIncomplete
		}
		updated = &session
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// DeleteByID reports whether a row matching scope was removed.
func (r *SessionRepository) DeleteByID(ctx context.Context, scope SessionScope) (bool, error) {
	res := r.db.WithContext(ctx).
		Where("id = ? AND owner_id = ?", scope.SessionID, scope.OwnerID).
		Delete(&model.Session{})
	if res.Error != nil {
		return false, fmt.Errorf("delete session failed: %w", res.Error)
	}
	return res.RowsAffected > 0, nil
}
