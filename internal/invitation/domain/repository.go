package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, invite Invite) error
	GetByTokenHash(ctx context.Context, tokenHash string) (*Invite, error)
	GetPending(ctx context.Context, orgID snowflake.ID, email string) (*Invite, error)
	// RefreshPending rotates the token and extends the window of an
	// existing pending invite. Returns false when no pending row matched.
	RefreshPending(ctx context.Context, id snowflake.ID, tokenHash string, role string, invitedBy snowflake.ID, expiresAt, updatedAt time.Time) (bool, error)
	// MarkAccepted transitions PENDING to ACCEPTED. Returns false when the
	// invite was no longer pending, which means another writer won.
	MarkAccepted(ctx context.Context, id snowflake.ID, acceptedBy snowflake.ID, acceptedAt time.Time) (bool, error)
	// MarkRevoked transitions PENDING to REVOKED. Returns false when the
	// invite was no longer pending.
	MarkRevoked(ctx context.Context, id snowflake.ID, revokedAt time.Time) (bool, error)
	ListPending(ctx context.Context, orgID snowflake.ID) ([]Invite, error)
}
