package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type OrganizationListItem struct {
	ID        snowflake.ID
	Name      string
	Kind      string
	Role      string
	CreatedAt time.Time
}

type MemberListItem struct {
	UserID      snowflake.ID
	DisplayName string
	Email       string
	Role        string
	Status      string
	CreatedAt   time.Time
}

type Repository interface {
	WithTx(tx *gorm.DB) Repository
	CreateOrganization(ctx context.Context, org Organization) error
	GetOrganization(ctx context.Context, id snowflake.ID) (*Organization, error)
	AddMember(ctx context.Context, member OrganizationMember) error
	GetMember(ctx context.Context, orgID, userID snowflake.ID) (*OrganizationMember, error)
	ListOrganizationsByUser(ctx context.Context, userID snowflake.ID) ([]OrganizationListItem, error)
	ListMembers(ctx context.Context, orgID snowflake.ID) ([]MemberListItem, error)
	IsMember(ctx context.Context, orgID, userID snowflake.ID) (bool, error)
	CountMembersByRole(ctx context.Context, orgID snowflake.ID, role string) (int64, error)
	UpdateMemberRole(ctx context.Context, orgID, userID snowflake.ID, role string, updatedAt time.Time) error
	RemoveMember(ctx context.Context, orgID, userID snowflake.ID) error
}
