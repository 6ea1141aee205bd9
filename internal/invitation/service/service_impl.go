package service

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	authdomain "github.com/uniteorg/unite/internal/auth/domain"
	"github.com/uniteorg/unite/internal/config"
	"github.com/uniteorg/unite/internal/invitation/domain"
	"github.com/uniteorg/unite/internal/observability/logger"
	"github.com/uniteorg/unite/internal/observability/metrics"
	orgdomain "github.com/uniteorg/unite/internal/organization/domain"
	"github.com/uniteorg/unite/internal/providers/email"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const tokenBytes = 32

type service struct {
	db       *gorm.DB
	repo     domain.Repository
	orgRepo  orgdomain.Repository
	userRepo authdomain.Repository
	genID    *snowflake.Node
	holder   *config.InviteConfigHolder
	mailer   email.Provider
	metrics  *metrics.Metrics
	baseURL  string
}

func NewService(
	cfg config.Config,
	db *gorm.DB,
	repo domain.Repository,
	orgRepo orgdomain.Repository,
	userRepo authdomain.Repository,
	genID *snowflake.Node,
	holder *config.InviteConfigHolder,
	mailer email.Provider,
	m *metrics.Metrics,
) domain.Service {
	return &service{
		db:       db,
		repo:     repo,
		orgRepo:  orgRepo,
		userRepo: userRepo,
		genID:    genID,
		holder:   holder,
		mailer:   mailer,
		metrics:  m,
		baseURL:  strings.TrimRight(cfg.BaseURL, "/"),
	}
}

func (s *service) Issue(ctx context.Context, req domain.IssueRequest) (*domain.IssueResult, error) {
	if req.OrgID == 0 {
		return nil, domain.ErrInvalidOrganization
	}
	if req.InvitedBy == 0 {
		return nil, domain.ErrInvalidUser
	}

	targetEmail, err := normalizeEmail(req.Email)
	if err != nil {
		return nil, domain.ErrInvalidEmail
	}

	inviteCfg := s.holder.Get()
	if !orgdomain.ValidRole(req.Role) || !inviteCfg.RoleAllowed(req.Role) {
		return nil, domain.ErrInvalidRole
	}

	org, err := s.orgRepo.GetOrganization(ctx, req.OrgID)
	if err != nil {
		if errors.Is(err, orgdomain.ErrInvalidOrganization) {
			return nil, domain.ErrInvalidOrganization
		}
		return nil, err
	}

	rawToken, err := newInviteToken()
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	expiresAt := now.Add(inviteCfg.Expiry())

	result := &domain.IssueResult{
		RawToken:  rawToken,
		ExpiresAt: expiresAt,
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		existing, err := repo.GetPending(ctx, req.OrgID, targetEmail)
		if err != nil && !errors.Is(err, domain.ErrNotFound) {
			return err
		}
		if existing != nil {
			// Re-inviting the same address rotates the token instead of
			// stacking duplicate pending rows.
			ok, err := repo.RefreshPending(ctx, existing.ID, HashToken(rawToken), req.Role, req.InvitedBy, expiresAt, now)
			if err != nil {
				return err
			}
			if ok {
				result.InviteID = existing.ID
				result.Resent = true
				return nil
			}
		}

		invite := domain.Invite{
			ID:        s.genID.Generate(),
			OrgID:     req.OrgID,
			Email:     targetEmail,
			Role:      req.Role,
			TokenHash: HashToken(rawToken),
			Status:    domain.StatusPending,
			InvitedBy: req.InvitedBy,
			ExpiresAt: expiresAt,
			CreatedAt: now,
			UpdatedAt: now,
		}
		if err := repo.Create(ctx, invite); err != nil {
			return err
		}
		result.InviteID = invite.ID
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.RecordInviteIssued(ctx, req.OrgID.String(), req.Role)

	inviter, err := s.userRepo.FindByID(ctx, req.InvitedBy)
	inviterName := ""
	if err == nil {
		inviterName = inviter.DisplayName
	}

	if err := s.mailer.SendTemplate(ctx, []string{targetEmail}, "invite_member", map[string]any{
		"org_name":     org.Name,
		"role":         req.Role,
		"inviter_name": inviterName,
		"invite_url":   fmt.Sprintf("%s/invites/%s", s.baseURL, rawToken),
		"expires_at":   expiresAt.Format("January 2, 2006"),
	}); err != nil {
		logger.FromContext(ctx).Warn("invite email delivery failed",
			zap.String("org_id", req.OrgID.String()),
			zap.Error(err),
		)
		s.metrics.RecordInviteEmailFailure(ctx, req.OrgID.String())
		result.DeliveryFailed = true
	}

	return result, nil
}

func (s *service) Resolve(ctx context.Context, rawToken string) (*domain.InviteView, error) {
	token := strings.TrimSpace(rawToken)
	if token == "" {
		return nil, domain.ErrNotFound
	}

	invite, err := s.repo.GetByTokenHash(ctx, HashToken(token))
	if err != nil {
		return nil, err
	}

	status := invite.Status
	if status == domain.StatusPending && invite.Expired(time.Now().UTC()) {
		status = domain.StatusExpired
	}

	orgName := ""
	if org, err := s.orgRepo.GetOrganization(ctx, invite.OrgID); err == nil {
		orgName = org.Name
	}

	return &domain.InviteView{
		OrgID:     invite.OrgID.String(),
		OrgName:   orgName,
		Email:     invite.Email,
		Role:      invite.Role,
		Status:    status,
		ExpiresAt: invite.ExpiresAt,
	}, nil
}

func (s *service) Accept(ctx context.Context, req domain.AcceptRequest) (*domain.AcceptResult, error) {
	token := strings.TrimSpace(req.RawToken)
	if token == "" {
		return nil, domain.ErrNotFound
	}
	if req.UserID == 0 {
		return nil, domain.ErrInvalidUser
	}

	user, err := s.userRepo.FindByID(ctx, req.UserID)
	if err != nil {
		return nil, err
	}

	var result *domain.AcceptResult
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		orgRepo := s.orgRepo.WithTx(tx)

		invite, err := repo.GetByTokenHash(ctx, HashToken(token))
		if err != nil {
			return err
		}

		switch invite.Status {
		case domain.StatusRevoked:
			return domain.ErrRevoked
		case domain.StatusAccepted:
			return domain.ErrAlreadyAccepted
		}

		now := time.Now().UTC()
		if invite.Expired(now) {
			return domain.ErrExpired
		}

		// The invite is bound to the address it was issued for.
		if !strings.EqualFold(strings.TrimSpace(user.Email), invite.Email) {
			return domain.ErrEmailMismatch
		}

		ok, err := repo.MarkAccepted(ctx, invite.ID, req.UserID, now)
		if err != nil {
			return err
		}
		if !ok {
			// Another writer transitioned the invite first.
			return domain.ErrAlreadyAccepted
		}

		member, err := orgRepo.GetMember(ctx, invite.OrgID, req.UserID)
		switch {
		case errors.Is(err, orgdomain.ErrMemberNotFound):
			if err := orgRepo.AddMember(ctx, orgdomain.OrganizationMember{
				ID:        s.genID.Generate(),
				OrgID:     invite.OrgID,
				UserID:    req.UserID,
				Role:      invite.Role,
				Status:    orgdomain.MemberStatusActive,
				CreatedAt: now,
				UpdatedAt: now,
			}); err != nil {
				return err
			}
			result = &domain.AcceptResult{OrgID: invite.OrgID, Role: invite.Role}
			return nil
		case err != nil:
			return err
		}

		// Already a member: accepting never demotes an existing role.
		role := member.Role
		if orgdomain.RoleRank(invite.Role) > orgdomain.RoleRank(member.Role) {
			if err := orgRepo.UpdateMemberRole(ctx, invite.OrgID, req.UserID, invite.Role, now); err != nil {
				return err
			}
			role = invite.Role
		}
		result = &domain.AcceptResult{OrgID: invite.OrgID, Role: role}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.RecordInviteAccepted(ctx, result.OrgID.String(), result.Role)

	return result, nil
}

func (s *service) Revoke(ctx context.Context, orgID snowflake.ID, email string) error {
	if orgID == 0 {
		return domain.ErrInvalidOrganization
	}
	normalized, err := normalizeEmail(email)
	if err != nil {
		return domain.ErrInvalidEmail
	}

	revoked := false
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		invite, err := repo.GetPending(ctx, orgID, normalized)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				// No pending invite to revoke. The UI's revoke action is
				// safe to double-click.
				return nil
			}
			return err
		}

		ok, err := repo.MarkRevoked(ctx, invite.ID, time.Now().UTC())
		if err != nil {
			return err
		}
		revoked = ok
		return nil
	})
	if err != nil {
		return err
	}

	if revoked {
		s.metrics.RecordInviteRevoked(ctx, orgID.String())
	}
	return nil
}

func (s *service) ListPending(ctx context.Context, orgID snowflake.ID) ([]domain.PendingInvite, error) {
	if orgID == 0 {
		return nil, domain.ErrInvalidOrganization
	}

	invites, err := s.repo.ListPending(ctx, orgID)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	resp := make([]domain.PendingInvite, 0, len(invites))
	for _, invite := range invites {
		if invite.Expired(now) {
			continue
		}
		resp = append(resp, domain.PendingInvite{
			ID:        invite.ID.String(),
			Email:     invite.Email,
			Role:      invite.Role,
			InvitedBy: invite.InvitedBy.String(),
			ExpiresAt: invite.ExpiresAt,
			CreatedAt: invite.CreatedAt,
		})
	}
	return resp, nil
}

func normalizeEmail(raw string) (string, error) {
	addr, err := mail.ParseAddress(strings.TrimSpace(raw))
	if err != nil {
		return "", err
	}
	return strings.ToLower(strings.TrimSpace(addr.Address)), nil
}

func newInviteToken() (string, error) {
	buf := make([]byte, tokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// HashToken returns the hex SHA-256 digest stored in place of raw tokens.
func HashToken(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}
