package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

type SessionStatus string

const (
	SessionStatusDraft     SessionStatus = "draft"
	SessionStatusPublished SessionStatus = "published"
)

// Session is a wellness session owned by exactly one user. Status only ever
// moves from draft to published.
type Session struct {
	ID         string        `gorm:"primaryKey;size:36" json:"id"`
	OwnerID    uint          `gorm:"not null;index:idx_sessions_owner_status,priority:1" json:"owner_id"`
	Title      string        `gorm:"size:200;not null" json:"title"`
	Tags       Tags          `gorm:"type:text" json:"tags"`
	PayloadURL string        `gorm:"size:2048" json:"payload_url"`
	Status     SessionStatus `gorm:"size:16;not null;index:idx_sessions_owner_status,priority:2;index:idx_sessions_status_created,priority:1" json:"status"`
	CreatedAt  time.Time     `gorm:"autoCreateTime:false;index:idx_sessions_status_created,priority:2,sort:desc" json:"created_at"`
	UpdatedAt  time.Time     `gorm:"autoUpdateTime:false" json:"updated_at"`
}

func (s *Session) IsPublished() bool {
	return s.Status == SessionStatusPublished
}

// Clone returns a copy that shares no slice memory with s.
func (s *Session) Clone() *Session {
	out := *s
	out.Tags = s.Tags.Clone()
	return &out
}

// PublicSession is the public listing projection. It never carries the payload URL.
type PublicSession struct {
	ID        string        `json:"id"`
	OwnerID   uint          `json:"owner_id"`
	Author    string        `json:"author"`
	Title     string        `json:"title"`
	Tags      Tags          `json:"tags"`
	Status    SessionStatus `json:"status"`
	CreatedAt time.Time     `json:"created_at"`
	UpdatedAt time.Time     `json:"updated_at"`
}

// Tags is stored as a JSON array in a text column so that order survives a round trip.
type Tags []string

func (t Tags) Clone() Tags {
	out := make(Tags, len(t))
	copy(out, t)
	return out
}

func (t Tags) Value() (driver.Value, error) {
	if t == nil {
		return "[]", nil
	}
	b, err := json.Marshal([]string(t))
	if err != nil {
		return nil, fmt.Errorf("marshal tags failed: %w", err)
	}
	return string(b), nil
}

func (t *Tags) Scan(src any) error {
	var raw []byte
	switch v := src.(type) {
	case nil:
		*t = Tags{}
		return nil
	case string:
		raw = []byte(v)
	case []byte:
		raw = v
	default:
		return fmt.Errorf("scan tags: unsupported type %T", src)
	}
	if len(raw) == 0 {
		*t = Tags{}
		return nil
	}
	var out []string
	if err := json.Unmarshal(raw, &out); err != nil {
		return fmt.Errorf("unmarshal tags failed: %w", err)
	}
	if out == nil {
		out = []string{}
	}
	*t = out
	return nil
}

// MarshalJSON keeps an empty list as [] rather than null.
func (t Tags) MarshalJSON() ([]byte, error) {
	if t == nil {
		return []byte("[]"), nil
	}
	return json.Marshal([]string(t))
}
