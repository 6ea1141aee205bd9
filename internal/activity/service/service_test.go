package service

import (
	"context"
	"testing"

	"github.com/bwmarrin/snowflake"
	"github.com/uniteorg/unite/internal/activity/domain"
	"github.com/uniteorg/unite/internal/activity/repository"
	"github.com/uniteorg/unite/internal/orgcontext"
	"github.com/uniteorg/unite/pkg/db"
	"github.com/uniteorg/unite/pkg/db/pagination"
	"go.uber.org/zap"
)

func newTestService(t *testing.T) (domain.Service, *snowflake.Node) {
	t.Helper()

	dbConn, err := db.NewTest()
	if err != nil {
		t.Fatalf("failed to open db: %v", err)
	}
	if err := dbConn.AutoMigrate(&domain.ActivityLog{}); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}

	node, err := snowflake.NewNode(1)
	if err != nil {
		t.Fatalf("failed to create snowflake node: %v", err)
	}

	return NewService(Params{
		DB:    dbConn,
		Log:   zap.NewNop(),
		GenID: node,
		Repo:  repository.Provide(),
	}), node
}

func TestRecordAndList(t *testing.T) {
	svc, node := newTestService(t)
	orgID := node.Generate()
	ctx := orgcontext.WithOrgID(context.Background(), int64(orgID))

	actorID := "user:42"
	targetID := "invite-1"
	if err := svc.Record(ctx, &orgID, "user", &actorID, "invite.issued", "invite", &targetID, map[string]any{
		"email": "bob@x.com",
	}); err != nil {
		t.Fatalf("failed to record activity: %v", err)
	}

	resp, err := svc.List(ctx, domain.ListActivityRequest{})
	if err != nil {
		t.Fatalf("failed to list activity: %v", err)
	}
	if len(resp.Activities) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(resp.Activities))
	}
	entry := resp.Activities[0]
	if entry.Action != "invite.issued" {
		t.Fatalf("expected invite.issued, got %s", entry.Action)
	}
	if entry.ActorID == nil || *entry.ActorID != actorID {
		t.Fatalf("expected actor %s", actorID)
	}
}

func TestRecordRequiresAction(t *testing.T) {
	svc, node := newTestService(t)
	orgID := node.Generate()

	err := svc.Record(context.Background(), &orgID, "user", nil, "  ", "invite", nil, nil)
	if err != domain.ErrInvalidAction {
		t.Fatalf("expected ErrInvalidAction, got %v", err)
	}
}

func TestListPaginates(t *testing.T) {
	svc, node := newTestService(t)
	orgID := node.Generate()
	ctx := orgcontext.WithOrgID(context.Background(), int64(orgID))

	for i := 0; i < 5; i++ {
		if err := svc.Record(ctx, &orgID, "user", nil, "member.removed", "member", nil, nil); err != nil {
			t.Fatalf("failed to record activity: %v", err)
		}
	}

	first, err := svc.List(ctx, domain.ListActivityRequest{
		Pagination: pagination.Pagination{PageSize: 2},
	})
	if err != nil {
		t.Fatalf("failed to list first page: %v", err)
	}
	if len(first.Activities) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(first.Activities))
	}
	if !first.HasMore {
		t.Fatal("expected more pages")
	}

	second, err := svc.List(ctx, domain.ListActivityRequest{
		Pagination: pagination.Pagination{PageSize: 2, PageToken: first.NextPageToken},
	})
	if err != nil {
		t.Fatalf("failed to list second page: %v", err)
	}
	if len(second.Activities) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(second.Activities))
	}
	if second.Activities[0].ID == first.Activities[0].ID {
		t.Fatal("expected distinct pages")
	}
}

func TestListRejectsBadToken(t *testing.T) {
	svc, node := newTestService(t)
	ctx := orgcontext.WithOrgID(context.Background(), int64(node.Generate()))

	_, err := svc.List(ctx, domain.ListActivityRequest{
		Pagination: pagination.Pagination{PageToken: "not-a-cursor"},
	})
	if err != domain.ErrInvalidPageToken {
		t.Fatalf("expected ErrInvalidPageToken, got %v", err)
	}
}
