package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
)

type IssueRequest struct {
	OrgID     snowflake.ID
	Email     string
	Role      string
	InvitedBy snowflake.ID
}

// IssueResult carries the raw token exactly once, at issue time.
// DeliveryFailed is set when the invite was persisted but the email
// could not be sent; callers decide how to report that.
type IssueResult struct {
	InviteID       snowflake.ID
	RawToken       string
	ExpiresAt      time.Time
	Resent         bool
	DeliveryFailed bool
}

// InviteView is the safe projection returned when a token is resolved.
type InviteView struct {
	OrgID     string    `json:"org_id"`
	OrgName   string    `json:"org_name"`
	Email     string    `json:"email"`
	Role      string    `json:"role"`
	Status    string    `json:"status"`
	ExpiresAt time.Time `json:"expires_at"`
}

type AcceptRequest struct {
	RawToken string
	UserID   snowflake.ID
}

type AcceptResult struct {
	OrgID snowflake.ID
	Role  string
}

type PendingInvite struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Role      string    `json:"role"`
	InvitedBy string    `json:"invited_by"`
	ExpiresAt time.Time `json:"expires_at"`
	CreatedAt time.Time `json:"created_at"`
}

type Service interface {
	Issue(ctx context.Context, req IssueRequest) (*IssueResult, error)
	Resolve(ctx context.Context, rawToken string) (*InviteView, error)
	Accept(ctx context.Context, req AcceptRequest) (*AcceptResult, error)
	// Revoke marks the pending invite for (org, email) REVOKED. It is a
	// no-op success when no pending invite exists.
	Revoke(ctx context.Context, orgID snowflake.ID, email string) error
	ListPending(ctx context.Context, orgID snowflake.ID) ([]PendingInvite, error)
}
