package authorization

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	orgdomain "github.com/uniteorg/unite/internal/organization/domain"
	"github.com/uniteorg/unite/pkg/db"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func newTestService(t *testing.T) (Service, *gorm.DB, *snowflake.Node) {
	t.Helper()

	dbConn, err := db.NewTest()
	if err != nil {
		t.Fatalf("failed to open db: %v", err)
	}
	if err := dbConn.AutoMigrate(&orgdomain.OrganizationMember{}); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}

	enforcer, err := NewEnforcer(dbConn)
	if err != nil {
		t.Fatalf("failed to create enforcer: %v", err)
	}

	node, err := snowflake.NewNode(1)
	if err != nil {
		t.Fatalf("failed to create snowflake node: %v", err)
	}

	svc := NewService(Params{
		DB:       dbConn,
		Log:      zap.NewNop(),
		Enforcer: enforcer,
	})
	return svc, dbConn, node
}

func addMember(t *testing.T, dbConn *gorm.DB, node *snowflake.Node, orgID, userID snowflake.ID, role string) {
	t.Helper()
	now := time.Now().UTC()
	if err := dbConn.Create(&orgdomain.OrganizationMember{
		ID:        node.Generate(),
		OrgID:     orgID,
		UserID:    userID,
		Role:      role,
		Status:    orgdomain.MemberStatusActive,
		CreatedAt: now,
		UpdatedAt: now,
	}).Error; err != nil {
		t.Fatalf("failed to add member: %v", err)
	}
}

func TestAuthorizeByRole(t *testing.T) {
	svc, dbConn, node := newTestService(t)
	orgID := node.Generate()
	adminID := node.Generate()
	memberID := node.Generate()
	addMember(t, dbConn, node, orgID, adminID, orgdomain.RoleAdmin)
	addMember(t, dbConn, node, orgID, memberID, orgdomain.RoleMember)

	ctx := context.Background()

	if err := svc.Authorize(ctx, "user:"+adminID.String(), orgID.String(), ObjectInvite, ActionInviteIssue); err != nil {
		t.Fatalf("expected admin allowed, got %v", err)
	}
	if err := svc.Authorize(ctx, "user:"+memberID.String(), orgID.String(), ObjectInvite, ActionInviteIssue); err != ErrForbidden {
		t.Fatalf("expected member forbidden, got %v", err)
	}
	if err := svc.Authorize(ctx, "user:"+memberID.String(), orgID.String(), ObjectOrganization, ActionOrganizationView); err != nil {
		t.Fatalf("expected member can view org, got %v", err)
	}
}

func TestAuthorizeNonMemberForbidden(t *testing.T) {
	svc, _, node := newTestService(t)
	orgID := node.Generate()
	strangerID := node.Generate()

	err := svc.Authorize(context.Background(), "user:"+strangerID.String(), orgID.String(), ObjectMember, ActionMemberView)
	if err != ErrForbidden {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
}

func TestAuthorizeSystemActor(t *testing.T) {
	svc, _, node := newTestService(t)
	orgID := node.Generate()

	if err := svc.Authorize(context.Background(), "system", orgID.String(), ObjectMember, ActionMemberRemove); err != nil {
		t.Fatalf("expected system allowed, got %v", err)
	}
}

func TestAuthorizeInvalidActor(t *testing.T) {
	svc, _, node := newTestService(t)
	orgID := node.Generate()

	if err := svc.Authorize(context.Background(), "robot:1", orgID.String(), ObjectMember, ActionMemberView); err != ErrInvalidActor {
		t.Fatalf("expected ErrInvalidActor, got %v", err)
	}
	if err := svc.Authorize(context.Background(), "", orgID.String(), ObjectMember, ActionMemberView); err != ErrInvalidActor {
		t.Fatalf("expected ErrInvalidActor, got %v", err)
	}
}

func TestRoleChangeUpdatesGrouping(t *testing.T) {
	svc, dbConn, node := newTestService(t)
	orgID := node.Generate()
	userID := node.Generate()
	addMember(t, dbConn, node, orgID, userID, orgdomain.RoleMember)

	ctx := context.Background()
	actor := "user:" + userID.String()

	if err := svc.Authorize(ctx, actor, orgID.String(), ObjectInvite, ActionInviteIssue); err != ErrForbidden {
		t.Fatalf("expected member forbidden, got %v", err)
	}

	if err := dbConn.Model(&orgdomain.OrganizationMember{}).
		Where("org_id = ? AND user_id = ?", orgID, userID).
		Update("role", orgdomain.RoleAdmin).Error; err != nil {
		t.Fatalf("failed to promote member: %v", err)
	}

	if err := svc.Authorize(ctx, actor, orgID.String(), ObjectInvite, ActionInviteIssue); err != nil {
		t.Fatalf("expected promoted admin allowed, got %v", err)
	}
}
