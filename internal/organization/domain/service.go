package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
)

const (
	RoleOwner       = "OWNER"
	RoleAdmin       = "ADMIN"
	RoleAccountant  = "ACCOUNTANT"   // Finance records, reports
	RoleOfficeStaff = "OFFICE_STAFF" // Day-to-day member administration
	RoleMember      = "MEMBER"       // Read-only / Limited
)

const (
	KindSchool = "school"
	KindChurch = "church"
	KindOther  = "other"
)

const MemberStatusActive = "ACTIVE"

// roleRank orders roles from least to most privileged.
var roleRank = map[string]int{
	RoleMember:      1,
	RoleOfficeStaff: 2,
	RoleAccountant:  2,
	RoleAdmin:       3,
	RoleOwner:       4,
}

// ValidRole reports whether role is one of the known membership roles.
func ValidRole(role string) bool {
	_, ok := roleRank[role]
	return ok
}

// RoleRank returns the privilege rank of a role, 0 when unknown.
func RoleRank(role string) int {
	return roleRank[role]
}

// ValidKind reports whether kind is a supported organization kind.
func ValidKind(kind string) bool {
	switch kind {
	case KindSchool, KindChurch, KindOther:
		return true
	}
	return false
}

type Service interface {
	Create(ctx context.Context, userID snowflake.ID, req CreateOrganizationRequest) (*OrganizationResponse, error)
	GetByID(ctx context.Context, id string) (*OrganizationResponse, error)
	ListOrganizationsByUser(ctx context.Context, userID snowflake.ID) ([]OrganizationListResponseItem, error)
	ListMembers(ctx context.Context, orgID snowflake.ID) ([]MemberResponse, error)
	UpdateMemberRole(ctx context.Context, orgID, userID snowflake.ID, role string) error
	RemoveMember(ctx context.Context, orgID, userID snowflake.ID) error
}

type CreateOrganizationRequest struct {
	Name        string
	Kind        string
	Description string
}

type OrganizationResponse struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Slug        string `json:"slug"`
	Kind        string `json:"kind"`
	Description string `json:"description,omitempty"`
}

type OrganizationListResponseItem struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Kind      string    `json:"kind"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"created_at"`
}

type MemberResponse struct {
	UserID      string    `json:"user_id"`
	DisplayName string    `json:"display_name"`
	Email       string    `json:"email"`
	Role        string    `json:"role"`
	Status      string    `json:"status"`
	JoinedAt    time.Time `json:"joined_at"`
}

var (
	ErrInvalidName         = errors.New("invalid_name")
	ErrInvalidKind         = errors.New("invalid_kind")
	ErrInvalidUser         = errors.New("invalid_user")
	ErrInvalidOrganization = errors.New("invalid_organization")
	ErrInvalidRole         = errors.New("invalid_role")
	ErrMemberNotFound      = errors.New("member_not_found")
	ErrLastOwner           = errors.New("last_owner")
	ErrForbidden           = errors.New("forbidden")
)
