package repository

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/uniteorg/unite/internal/invitation/domain"
	"gorm.io/gorm"
)

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) domain.Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) domain.Repository {
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, invite domain.Invite) error {
	return r.db.WithContext(ctx).Exec(
		`INSERT INTO organization_invites (id, org_id, email, role, token_hash, status, invited_by, expires_at, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		invite.ID,
		invite.OrgID,
		invite.Email,
		invite.Role,
		invite.TokenHash,
		invite.Status,
		invite.InvitedBy,
		invite.ExpiresAt,
		invite.CreatedAt,
		invite.UpdatedAt,
	).Error
}

func (r *repository) GetByTokenHash(ctx context.Context, tokenHash string) (*domain.Invite, error) {
	var invite domain.Invite
	err := r.db.WithContext(ctx).First(&invite, "token_hash = ?", tokenHash).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &invite, nil
}

func (r *repository) GetPending(ctx context.Context, orgID snowflake.ID, email string) (*domain.Invite, error) {
	var invite domain.Invite
	err := r.db.WithContext(ctx).First(&invite, "org_id = ? AND email = ? AND status = ?", orgID, email, domain.StatusPending).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &invite, nil
}

func (r *repository) RefreshPending(ctx context.Context, id snowflake.ID, tokenHash string, role string, invitedBy snowflake.ID, expiresAt, updatedAt time.Time) (bool, error) {
	res := r.db.WithContext(ctx).Exec(
		`UPDATE organization_invites
		 SET token_hash = ?, role = ?, invited_by = ?, expires_at = ?, updated_at = ?
		 WHERE id = ? AND status = ?`,
		tokenHash,
		role,
		invitedBy,
		expiresAt,
		updatedAt,
		id,
		domain.StatusPending,
	)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *repository) MarkAccepted(ctx context.Context, id snowflake.ID, acceptedBy snowflake.ID, acceptedAt time.Time) (bool, error) {
	res := r.db.WithContext(ctx).Exec(
		`UPDATE organization_invites
		 SET status = ?, accepted_by = ?, accepted_at = ?, updated_at = ?
		 WHERE id = ? AND status = ?`,
		domain.StatusAccepted,
		acceptedBy,
		acceptedAt,
		acceptedAt,
		id,
		domain.StatusPending,
	)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *repository) MarkRevoked(ctx context.Context, id snowflake.ID, revokedAt time.Time) (bool, error) {
	res := r.db.WithContext(ctx).Exec(
		`UPDATE organization_invites
		 SET status = ?, revoked_at = ?, updated_at = ?
		 WHERE id = ? AND status = ?`,
		domain.StatusRevoked,
		revokedAt,
		revokedAt,
		id,
		domain.StatusPending,
	)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *repository) ListPending(ctx context.Context, orgID snowflake.ID) ([]domain.Invite, error) {
	var invites []domain.Invite
	err := r.db.WithContext(ctx).Raw(
		`SELECT id, org_id, email, role, status, invited_by, expires_at, created_at, updated_at
		 FROM organization_invites
		 WHERE org_id = ? AND status = ?
		 ORDER BY created_at DESC`,
		orgID,
		domain.StatusPending,
	).Scan(&invites).Error
	if err != nil {
		return nil, err
	}
	return invites, nil
}
