package signup

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	activitydomain "github.com/uniteorg/unite/internal/activity/domain"
	"github.com/uniteorg/unite/internal/signup/domain"
)

type noopProvisioner struct{}

func NewNoopProvisioner() domain.Provisioner {
	return &noopProvisioner{}
}

func (p *noopProvisioner) Provision(ctx context.Context, organizationID string) error {
	_ = ctx
	_ = organizationID
	return nil
}

// ActivityProvisioner records the tenant bootstrap in the activity log so
// downstream tooling can react to new organizations.
type ActivityProvisioner struct {
	activitySvc activitydomain.Service
}

func NewActivityProvisioner(activitySvc activitydomain.Service) domain.Provisioner {
	return &ActivityProvisioner{activitySvc: activitySvc}
}

func (p *ActivityProvisioner) Provision(ctx context.Context, organizationID string) error {
	orgID := strings.TrimSpace(organizationID)
	parsedID, err := snowflake.ParseString(orgID)
	if err != nil {
		return err
	}

	targetID := orgID
	return p.activitySvc.Record(ctx, &parsedID, "system", nil, "organization.created", "organization", &targetID, map[string]any{
		"organization_id": orgID,
	})
}
