package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/google/uuid"
	authdomain "github.com/uniteorg/unite/internal/auth/domain"
	authrepository "github.com/uniteorg/unite/internal/auth/repository"
	"github.com/uniteorg/unite/internal/config"
	"github.com/uniteorg/unite/internal/invitation/domain"
	"github.com/uniteorg/unite/internal/invitation/repository"
	orgdomain "github.com/uniteorg/unite/internal/organization/domain"
	orgrepository "github.com/uniteorg/unite/internal/organization/repository"
	"github.com/uniteorg/unite/pkg/db"
	"gorm.io/gorm"
)

type fakeMailer struct {
	sent []sentMail
	fail bool
}

type sentMail struct {
	to       string
	template string
	data     map[string]any
}

func (m *fakeMailer) Send(ctx context.Context, to []string, subject string, htmlBody string) error {
	if m.fail {
		return errors.New("smtp unavailable")
	}
	return nil
}

func (m *fakeMailer) SendTemplate(ctx context.Context, to []string, templateName string, data map[string]any) error {
	if m.fail {
		return errors.New("smtp unavailable")
	}
	m.sent = append(m.sent, sentMail{to: to[0], template: templateName, data: data})
	return nil
}

type fixture struct {
	svc    domain.Service
	db     *gorm.DB
	node   *snowflake.Node
	mailer *fakeMailer
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	dbConn, err := db.NewTest()
	if err != nil {
		t.Fatalf("failed to open db: %v", err)
	}
	if err := dbConn.AutoMigrate(
		&authdomain.User{},
		&orgdomain.Organization{},
		&orgdomain.OrganizationMember{},
		&domain.Invite{},
	); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}

	node, err := snowflake.NewNode(1)
	if err != nil {
		t.Fatalf("failed to create snowflake node: %v", err)
	}

	mailer := &fakeMailer{}
	userRepo, _ := authrepository.New(dbConn)
	svc := NewService(
		config.Config{BaseURL: "http://localhost:8080"},
		dbConn,
		repository.NewRepository(dbConn),
		orgrepository.NewRepository(dbConn),
		userRepo,
		node,
		config.NewStaticInviteConfigHolder(config.DefaultInviteConfig()),
		mailer,
		nil,
	)

	return &fixture{svc: svc, db: dbConn, node: node, mailer: mailer}
}

func (f *fixture) createUser(t *testing.T, email string) snowflake.ID {
	t.Helper()
	user := authdomain.User{
		ID:          f.node.Generate(),
		ExternalID:  uuid.NewString(),
		Provider:    "local",
		DisplayName: email,
		Email:       email,
	}
	if err := f.db.Create(&user).Error; err != nil {
		t.Fatalf("failed to create user: %v", err)
	}
	return user.ID
}

func (f *fixture) createOrg(t *testing.T, name string, ownerID snowflake.ID) snowflake.ID {
	t.Helper()
	now := time.Now().UTC()
	orgID := f.node.Generate()
	if err := f.db.Create(&orgdomain.Organization{
		ID:        orgID,
		Name:      name,
		Slug:      name,
		Kind:      orgdomain.KindOther,
		CreatedBy: ownerID,
		CreatedAt: now,
		UpdatedAt: now,
	}).Error; err != nil {
		t.Fatalf("failed to create org: %v", err)
	}
	if err := f.db.Create(&orgdomain.OrganizationMember{
		ID:        f.node.Generate(),
		OrgID:     orgID,
		UserID:    ownerID,
		Role:      orgdomain.RoleOwner,
		Status:    orgdomain.MemberStatusActive,
		CreatedAt: now,
		UpdatedAt: now,
	}).Error; err != nil {
		t.Fatalf("failed to create owner membership: %v", err)
	}
	return orgID
}

func (f *fixture) memberCount(t *testing.T, orgID, userID snowflake.ID) int64 {
	t.Helper()
	var count int64
	if err := f.db.Model(&orgdomain.OrganizationMember{}).
		Where("org_id = ? AND user_id = ?", orgID, userID).
		Count(&count).Error; err != nil {
		t.Fatalf("failed to count memberships: %v", err)
	}
	return count
}

func TestIssueThenResolve(t *testing.T) {
	f := newFixture(t)
	ownerID := f.createUser(t, "owner@x.com")
	orgID := f.createOrg(t, "O1", ownerID)

	res, err := f.svc.Issue(context.Background(), domain.IssueRequest{
		OrgID:     orgID,
		Email:     "bob@x.com",
		Role:      orgdomain.RoleMember,
		InvitedBy: ownerID,
	})
	if err != nil {
		t.Fatalf("failed to issue invite: %v", err)
	}
	if res.RawToken == "" {
		t.Fatal("expected raw token")
	}
	if res.DeliveryFailed {
		t.Fatal("unexpected delivery failure")
	}
	if len(f.mailer.sent) != 1 {
		t.Fatalf("expected 1 email, got %d", len(f.mailer.sent))
	}
	if f.mailer.sent[0].to != "bob@x.com" {
		t.Fatalf("expected email to bob@x.com, got %s", f.mailer.sent[0].to)
	}

	view, err := f.svc.Resolve(context.Background(), res.RawToken)
	if err != nil {
		t.Fatalf("failed to resolve invite: %v", err)
	}
	if view.OrgName != "O1" {
		t.Fatalf("expected org O1, got %s", view.OrgName)
	}
	if view.Email != "bob@x.com" {
		t.Fatalf("expected email bob@x.com, got %s", view.Email)
	}
	if view.Role != orgdomain.RoleMember {
		t.Fatalf("expected role MEMBER, got %s", view.Role)
	}
	if view.Status != domain.StatusPending {
		t.Fatalf("expected PENDING, got %s", view.Status)
	}
}

func TestIssueStoresOnlyTokenHash(t *testing.T) {
	f := newFixture(t)
	ownerID := f.createUser(t, "owner@x.com")
	orgID := f.createOrg(t, "O1", ownerID)

	res, err := f.svc.Issue(context.Background(), domain.IssueRequest{
		OrgID:     orgID,
		Email:     "bob@x.com",
		Role:      orgdomain.RoleMember,
		InvitedBy: ownerID,
	})
	if err != nil {
		t.Fatalf("failed to issue invite: %v", err)
	}

	var invite domain.Invite
	if err := f.db.First(&invite, "id = ?", res.InviteID).Error; err != nil {
		t.Fatalf("expected invite row: %v", err)
	}
	if invite.TokenHash == res.RawToken {
		t.Fatal("raw token must not be stored")
	}
	if invite.TokenHash != HashToken(res.RawToken) {
		t.Fatal("stored hash does not match token digest")
	}
}

func TestIssueRejectsUnknownRole(t *testing.T) {
	f := newFixture(t)
	ownerID := f.createUser(t, "owner@x.com")
	orgID := f.createOrg(t, "O1", ownerID)

	_, err := f.svc.Issue(context.Background(), domain.IssueRequest{
		OrgID:     orgID,
		Email:     "bob@x.com",
		Role:      "SUPERUSER",
		InvitedBy: ownerID,
	})
	if err != domain.ErrInvalidRole {
		t.Fatalf("expected ErrInvalidRole, got %v", err)
	}
}

func TestIssueRejectsOwnerRole(t *testing.T) {
	f := newFixture(t)
	ownerID := f.createUser(t, "owner@x.com")
	orgID := f.createOrg(t, "O1", ownerID)

	_, err := f.svc.Issue(context.Background(), domain.IssueRequest{
		OrgID:     orgID,
		Email:     "bob@x.com",
		Role:      orgdomain.RoleOwner,
		InvitedBy: ownerID,
	})
	if err != domain.ErrInvalidRole {
		t.Fatalf("expected ErrInvalidRole, got %v", err)
	}
}

func TestResendRotatesToken(t *testing.T) {
	f := newFixture(t)
	ownerID := f.createUser(t, "owner@x.com")
	orgID := f.createOrg(t, "O1", ownerID)

	first, err := f.svc.Issue(context.Background(), domain.IssueRequest{
		OrgID:     orgID,
		Email:     "bob@x.com",
		Role:      orgdomain.RoleMember,
		InvitedBy: ownerID,
	})
	if err != nil {
		t.Fatalf("failed to issue invite: %v", err)
	}

	second, err := f.svc.Issue(context.Background(), domain.IssueRequest{
		OrgID:     orgID,
		Email:     "bob@x.com",
		Role:      orgdomain.RoleOfficeStaff,
		InvitedBy: ownerID,
	})
	if err != nil {
		t.Fatalf("failed to reissue invite: %v", err)
	}
	if !second.Resent {
		t.Fatal("expected resend to refresh the existing invite")
	}
	if second.InviteID != first.InviteID {
		t.Fatal("expected reissue to reuse the pending row")
	}

	var count int64
	if err := f.db.Model(&domain.Invite{}).
		Where("org_id = ? AND email = ?", orgID, "bob@x.com").
		Count(&count).Error; err != nil {
		t.Fatalf("failed to count invites: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected 1 invite row, got %d", count)
	}

	if _, err := f.svc.Resolve(context.Background(), first.RawToken); err != domain.ErrNotFound {
		t.Fatalf("expected old token invalidated, got %v", err)
	}

	view, err := f.svc.Resolve(context.Background(), second.RawToken)
	if err != nil {
		t.Fatalf("failed to resolve refreshed token: %v", err)
	}
	if view.Role != orgdomain.RoleOfficeStaff {
		t.Fatalf("expected refreshed role OFFICE_STAFF, got %s", view.Role)
	}
}

func TestAcceptCreatesSingleMembership(t *testing.T) {
	f := newFixture(t)
	ownerID := f.createUser(t, "owner@x.com")
	orgID := f.createOrg(t, "O1", ownerID)
	bobID := f.createUser(t, "bob@x.com")

	res, err := f.svc.Issue(context.Background(), domain.IssueRequest{
		OrgID:     orgID,
		Email:     "bob@x.com",
		Role:      orgdomain.RoleMember,
		InvitedBy: ownerID,
	})
	if err != nil {
		t.Fatalf("failed to issue invite: %v", err)
	}

	accepted, err := f.svc.Accept(context.Background(), domain.AcceptRequest{
		RawToken: res.RawToken,
		UserID:   bobID,
	})
	if err != nil {
		t.Fatalf("failed to accept invite: %v", err)
	}
	if accepted.OrgID != orgID {
		t.Fatalf("expected org %s, got %s", orgID, accepted.OrgID)
	}
	if accepted.Role != orgdomain.RoleMember {
		t.Fatalf("expected role MEMBER, got %s", accepted.Role)
	}
	if got := f.memberCount(t, orgID, bobID); got != 1 {
		t.Fatalf("expected 1 membership, got %d", got)
	}

	_, err = f.svc.Accept(context.Background(), domain.AcceptRequest{
		RawToken: res.RawToken,
		UserID:   bobID,
	})
	if err != domain.ErrAlreadyAccepted {
		t.Fatalf("expected ErrAlreadyAccepted, got %v", err)
	}
	if got := f.memberCount(t, orgID, bobID); got != 1 {
		t.Fatalf("expected 1 membership after replay, got %d", got)
	}
}

func TestAcceptEmailMismatch(t *testing.T) {
	f := newFixture(t)
	ownerID := f.createUser(t, "owner@x.com")
	orgID := f.createOrg(t, "O1", ownerID)
	eveID := f.createUser(t, "eve@x.com")

	res, err := f.svc.Issue(context.Background(), domain.IssueRequest{
		OrgID:     orgID,
		Email:     "bob@x.com",
		Role:      orgdomain.RoleMember,
		InvitedBy: ownerID,
	})
	if err != nil {
		t.Fatalf("failed to issue invite: %v", err)
	}

	_, err = f.svc.Accept(context.Background(), domain.AcceptRequest{
		RawToken: res.RawToken,
		UserID:   eveID,
	})
	if err != domain.ErrEmailMismatch {
		t.Fatalf("expected ErrEmailMismatch, got %v", err)
	}
	if got := f.memberCount(t, orgID, eveID); got != 0 {
		t.Fatalf("expected no membership, got %d", got)
	}

	view, err := f.svc.Resolve(context.Background(), res.RawToken)
	if err != nil {
		t.Fatalf("failed to resolve invite: %v", err)
	}
	if view.Status != domain.StatusPending {
		t.Fatalf("expected invite to stay PENDING, got %s", view.Status)
	}
}

func TestExpiredInvite(t *testing.T) {
	f := newFixture(t)
	ownerID := f.createUser(t, "owner@x.com")
	orgID := f.createOrg(t, "O1", ownerID)
	bobID := f.createUser(t, "bob@x.com")

	res, err := f.svc.Issue(context.Background(), domain.IssueRequest{
		OrgID:     orgID,
		Email:     "bob@x.com",
		Role:      orgdomain.RoleMember,
		InvitedBy: ownerID,
	})
	if err != nil {
		t.Fatalf("failed to issue invite: %v", err)
	}

	// Backdate the validity window so the invite reads as expired.
	expired := time.Now().UTC().Add(-24 * time.Hour)
	if err := f.db.Model(&domain.Invite{}).
		Where("id = ?", res.InviteID).
		Update("expires_at", expired).Error; err != nil {
		t.Fatalf("failed to backdate invite: %v", err)
	}

	view, err := f.svc.Resolve(context.Background(), res.RawToken)
	if err != nil {
		t.Fatalf("failed to resolve invite: %v", err)
	}
	if view.Status != domain.StatusExpired {
		t.Fatalf("expected EXPIRED, got %s", view.Status)
	}

	_, err = f.svc.Accept(context.Background(), domain.AcceptRequest{
		RawToken: res.RawToken,
		UserID:   bobID,
	})
	if err != domain.ErrExpired {
		t.Fatalf("expected ErrExpired, got %v", err)
	}
	if got := f.memberCount(t, orgID, bobID); got != 0 {
		t.Fatalf("expected no membership, got %d", got)
	}
}

func TestRevokeBlocksAccept(t *testing.T) {
	f := newFixture(t)
	ownerID := f.createUser(t, "owner@x.com")
	orgID := f.createOrg(t, "O1", ownerID)
	bobID := f.createUser(t, "bob@x.com")

	res, err := f.svc.Issue(context.Background(), domain.IssueRequest{
		OrgID:     orgID,
		Email:     "bob@x.com",
		Role:      orgdomain.RoleMember,
		InvitedBy: ownerID,
	})
	if err != nil {
		t.Fatalf("failed to issue invite: %v", err)
	}

	if err := f.svc.Revoke(context.Background(), orgID, "bob@x.com"); err != nil {
		t.Fatalf("failed to revoke invite: %v", err)
	}
	// Revoking twice is a no-op.
	if err := f.svc.Revoke(context.Background(), orgID, "bob@x.com"); err != nil {
		t.Fatalf("expected idempotent revoke, got %v", err)
	}

	_, err = f.svc.Accept(context.Background(), domain.AcceptRequest{
		RawToken: res.RawToken,
		UserID:   bobID,
	})
	if err != domain.ErrRevoked {
		t.Fatalf("expected ErrRevoked, got %v", err)
	}
}

func TestRevokeAcceptedInvite(t *testing.T) {
	f := newFixture(t)
	ownerID := f.createUser(t, "owner@x.com")
	orgID := f.createOrg(t, "O1", ownerID)
	bobID := f.createUser(t, "bob@x.com")

	res, err := f.svc.Issue(context.Background(), domain.IssueRequest{
		OrgID:     orgID,
		Email:     "bob@x.com",
		Role:      orgdomain.RoleMember,
		InvitedBy: ownerID,
	})
	if err != nil {
		t.Fatalf("failed to issue invite: %v", err)
	}
	if _, err := f.svc.Accept(context.Background(), domain.AcceptRequest{
		RawToken: res.RawToken,
		UserID:   bobID,
	}); err != nil {
		t.Fatalf("failed to accept invite: %v", err)
	}

	// The accepted invite is no longer pending, so there is nothing left
	// to revoke.
	if err := f.svc.Revoke(context.Background(), orgID, "bob@x.com"); err != nil {
		t.Fatalf("expected no-op revoke after acceptance, got %v", err)
	}

	var status string
	if err := f.db.Raw(`SELECT status FROM organization_invites WHERE id = ?`, res.InviteID).Scan(&status).Error; err != nil {
		t.Fatalf("failed to read invite status: %v", err)
	}
	if status != domain.StatusAccepted {
		t.Fatalf("expected invite to stay ACCEPTED, got %s", status)
	}
}

func TestAcceptExistingMemberNeverDemotes(t *testing.T) {
	f := newFixture(t)
	ownerID := f.createUser(t, "owner@x.com")
	orgID := f.createOrg(t, "O1", ownerID)
	bobID := f.createUser(t, "bob@x.com")

	now := time.Now().UTC()
	if err := f.db.Create(&orgdomain.OrganizationMember{
		ID:        f.node.Generate(),
		OrgID:     orgID,
		UserID:    bobID,
		Role:      orgdomain.RoleAdmin,
		Status:    orgdomain.MemberStatusActive,
		CreatedAt: now,
		UpdatedAt: now,
	}).Error; err != nil {
		t.Fatalf("failed to add member: %v", err)
	}

	res, err := f.svc.Issue(context.Background(), domain.IssueRequest{
		OrgID:     orgID,
		Email:     "bob@x.com",
		Role:      orgdomain.RoleMember,
		InvitedBy: ownerID,
	})
	if err != nil {
		t.Fatalf("failed to issue invite: %v", err)
	}

	accepted, err := f.svc.Accept(context.Background(), domain.AcceptRequest{
		RawToken: res.RawToken,
		UserID:   bobID,
	})
	if err != nil {
		t.Fatalf("failed to accept invite: %v", err)
	}
	if accepted.Role != orgdomain.RoleAdmin {
		t.Fatalf("expected role to stay ADMIN, got %s", accepted.Role)
	}
	if got := f.memberCount(t, orgID, bobID); got != 1 {
		t.Fatalf("expected 1 membership, got %d", got)
	}
}

func TestIssuePersistsWhenDeliveryFails(t *testing.T) {
	f := newFixture(t)
	ownerID := f.createUser(t, "owner@x.com")
	orgID := f.createOrg(t, "O1", ownerID)
	f.mailer.fail = true

	res, err := f.svc.Issue(context.Background(), domain.IssueRequest{
		OrgID:     orgID,
		Email:     "bob@x.com",
		Role:      orgdomain.RoleMember,
		InvitedBy: ownerID,
	})
	if err != nil {
		t.Fatalf("failed to issue invite: %v", err)
	}
	if !res.DeliveryFailed {
		t.Fatal("expected delivery failure to be reported")
	}

	if _, err := f.svc.Resolve(context.Background(), res.RawToken); err != nil {
		t.Fatalf("expected invite persisted despite delivery failure: %v", err)
	}
}

func TestListPendingSkipsExpired(t *testing.T) {
	f := newFixture(t)
	ownerID := f.createUser(t, "owner@x.com")
	orgID := f.createOrg(t, "O1", ownerID)

	fresh, err := f.svc.Issue(context.Background(), domain.IssueRequest{
		OrgID:     orgID,
		Email:     "bob@x.com",
		Role:      orgdomain.RoleMember,
		InvitedBy: ownerID,
	})
	if err != nil {
		t.Fatalf("failed to issue invite: %v", err)
	}

	stale, err := f.svc.Issue(context.Background(), domain.IssueRequest{
		OrgID:     orgID,
		Email:     "carol@x.com",
		Role:      orgdomain.RoleMember,
		InvitedBy: ownerID,
	})
	if err != nil {
		t.Fatalf("failed to issue invite: %v", err)
	}
	if err := f.db.Model(&domain.Invite{}).
		Where("id = ?", stale.InviteID).
		Update("expires_at", time.Now().UTC().Add(-time.Hour)).Error; err != nil {
		t.Fatalf("failed to backdate invite: %v", err)
	}

	pending, err := f.svc.ListPending(context.Background(), orgID)
	if err != nil {
		t.Fatalf("failed to list pending: %v", err)
	}
	if len(pending) != 1 {
		t.Fatalf("expected 1 pending invite, got %d", len(pending))
	}
	if pending[0].ID != fresh.InviteID.String() {
		t.Fatalf("expected fresh invite listed, got %s", pending[0].ID)
	}
}
