package model

import "time"

type SessionEventType string

const (
	SessionEventCreated   SessionEventType = "created"
	SessionEventUpdated   SessionEventType = "updated"
	SessionEventPublished SessionEventType = "published"
	SessionEventDeleted   SessionEventType = "deleted"
)

// SessionEvent is an audit record of a lifecycle transition.
type SessionEvent struct {
	ID         uint             `gorm:"primaryKey" json:"id"`
	SessionID  string           `gorm:"size:36;not null;index" json:"session_id"`
	OwnerID    uint             `gorm:"not null;index" json:"owner_id"`
	Type       SessionEventType `gorm:"size:16;not null" json:"type"`
	Status     SessionStatus    `gorm:"size:16;not null" json:"status"`
	OccurredAt time.Time        `gorm:"not null" json:"occurred_at"`
}
