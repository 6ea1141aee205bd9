package signup

import (
	"context"
	"testing"

	"github.com/bwmarrin/snowflake"
	activitydomain "github.com/uniteorg/unite/internal/activity/domain"
	activityrepository "github.com/uniteorg/unite/internal/activity/repository"
	activityservice "github.com/uniteorg/unite/internal/activity/service"
	"github.com/uniteorg/unite/internal/config"
	dbpkg "github.com/uniteorg/unite/pkg/db"
	"go.uber.org/zap"
)

func TestNewProvisionerOSSModeUsesNoop(t *testing.T) {
	provisioner := newProvisioner(config.Config{Mode: config.ModeOSS}, nil)
	if _, ok := provisioner.(*noopProvisioner); !ok {
		t.Fatalf("expected noop provisioner in OSS mode, got %T", provisioner)
	}
}

func TestActivityProvisionerRecordsOrganizationCreated(t *testing.T) {
	db, err := dbpkg.NewTest()
	if err != nil {
		t.Fatalf("failed to create test db: %v", err)
	}
	if err := db.AutoMigrate(&activitydomain.ActivityLog{}); err != nil {
		t.Fatalf("failed to migrate activity logs: %v", err)
	}

	node, err := snowflake.NewNode(1)
	if err != nil {
		t.Fatalf("failed to create id generator: %v", err)
	}

	activitySvc := activityservice.NewService(activityservice.Params{
		DB:    db,
		Log:   zap.NewNop(),
		GenID: node,
		Repo:  activityrepository.Provide(),
	})

	provisioner := NewActivityProvisioner(activitySvc)
	organizationID := node.Generate().String()

	if err := provisioner.Provision(context.Background(), organizationID); err != nil {
		t.Fatalf("provision failed: %v", err)
	}

	var entries []activitydomain.ActivityLog
	if err := db.Find(&entries).Error; err != nil {
		t.Fatalf("failed to load activity entries: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}

	entry := entries[0]
	if entry.Action != "organization.created" {
		t.Fatalf("expected action organization.created, got %q", entry.Action)
	}
	value, ok := entry.Metadata["organization_id"].(string)
	if !ok {
		t.Fatalf("expected organization_id metadata to be a string, got %T", entry.Metadata["organization_id"])
	}
	if value != organizationID {
		t.Fatalf("expected organization_id %q, got %q", organizationID, value)
	}
}

func TestNoopProvisionerDoesNothing(t *testing.T) {
	provisioner := NewNoopProvisioner()
	if err := provisioner.Provision(context.Background(), "org"); err != nil {
		t.Fatalf("expected noop provisioner to return nil, got %v", err)
	}
}
