// Package domain contains the invitation lifecycle models.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

const (
	StatusPending  = "PENDING"
	StatusAccepted = "ACCEPTED"
	StatusRevoked  = "REVOKED"
	StatusExpired  = "EXPIRED"
)

// Invite is a persisted invitation. The raw token is never stored, only
// its SHA-256 digest.
type Invite struct {
	ID         snowflake.ID `gorm:"primaryKey" json:"id"`
	OrgID      snowflake.ID `gorm:"not null;index" json:"org_id"`
	Email      string       `gorm:"type:text;not null;index" json:"email"`
	Role       string       `gorm:"type:text;not null" json:"role"`
	TokenHash  string       `gorm:"type:text;not null;uniqueIndex:ux_invites_token_hash" json:"-"`
	Status     string       `gorm:"type:text;not null;default:'PENDING'" json:"status"`
	InvitedBy  snowflake.ID `gorm:"column:invited_by;not null;index" json:"invited_by"`
	ExpiresAt  time.Time    `gorm:"not null" json:"expires_at"`
	AcceptedAt *time.Time   `json:"accepted_at,omitempty"`
	AcceptedBy *snowflake.ID `gorm:"column:accepted_by" json:"accepted_by,omitempty"`
	RevokedAt  *time.Time   `json:"revoked_at,omitempty"`
	CreatedAt  time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt  time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (Invite) TableName() string { return "organization_invites" }

// Expired reports whether the invite's validity window has passed at t.
func (i Invite) Expired(t time.Time) bool {
	return t.After(i.ExpiresAt)
}
