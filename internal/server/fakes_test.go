package server

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	activitydomain "github.com/uniteorg/unite/internal/activity/domain"
	authdomain "github.com/uniteorg/unite/internal/auth/domain"
	invitationdomain "github.com/uniteorg/unite/internal/invitation/domain"
	organizationdomain "github.com/uniteorg/unite/internal/organization/domain"
	signupdomain "github.com/uniteorg/unite/internal/signup/domain"
)

type fakeSignupService struct {
	called bool
	result *signupdomain.Result
	err    error
}

func (f *fakeSignupService) Signup(ctx context.Context, req signupdomain.Request) (*signupdomain.Result, error) {
	f.called = true
	_ = ctx
	_ = req
	if f.err != nil {
		return nil, f.err
	}
	if f.result != nil {
		return f.result, nil
	}
	return &signupdomain.Result{}, nil
}

type fakeAuthService struct {
	session   *authdomain.Session
	loginErr  error
	authErr   error
	loginRes  *authdomain.LoginResult
	logoutErr error
}

func (f *fakeAuthService) CreateUser(ctx context.Context, req authdomain.CreateUserRequest) (*authdomain.User, error) {
	_ = ctx
	return &authdomain.User{ID: snowflake.ID(200), Email: req.Email}, nil
}

func (f *fakeAuthService) Login(ctx context.Context, req authdomain.LoginRequest) (*authdomain.LoginResult, error) {
	_ = ctx
	_ = req
	if f.loginErr != nil {
		return nil, f.loginErr
	}
	if f.loginRes != nil {
		return f.loginRes, nil
	}
	return &authdomain.LoginResult{
		Session: &authdomain.SessionView{
			Metadata: map[string]any{"user_id": "200"},
		},
		RawToken:  "session-token",
		ExpiresAt: time.Now().Add(time.Hour),
		SessionID: snowflake.ID(300),
	}, nil
}

func (f *fakeAuthService) Logout(ctx context.Context, rawToken string) error {
	_ = ctx
	_ = rawToken
	return f.logoutErr
}

func (f *fakeAuthService) Authenticate(ctx context.Context, rawToken string) (*authdomain.Session, error) {
	_ = ctx
	_ = rawToken
	if f.authErr != nil {
		return nil, f.authErr
	}
	if f.session != nil {
		return f.session, nil
	}
	return nil, authdomain.ErrInvalidSession
}

func (f *fakeAuthService) UpdateSessionOrgContext(ctx context.Context, sessionID snowflake.ID, activeOrgID *int64, orgIDs []int64) error {
	_ = ctx
	_ = sessionID
	_ = activeOrgID
	_ = orgIDs
	return nil
}

func (f *fakeAuthService) ChangePassword(ctx context.Context, userID string, newPassword string) error {
	_ = ctx
	_ = userID
	_ = newPassword
	return nil
}

type fakeOrgService struct {
	org        *organizationdomain.OrganizationResponse
	members    []organizationdomain.MemberResponse
	updateErr  error
	removeErr  error
	lastRole   string
	lastUserID snowflake.ID
}

func newFakeOrgService() *fakeOrgService {
	return &fakeOrgService{
		org: &organizationdomain.OrganizationResponse{
			ID:   snowflake.ID(100).String(),
			Name: "Northside Academy",
			Slug: "northside-academy",
			Kind: organizationdomain.KindSchool,
		},
	}
}

func (f *fakeOrgService) Create(ctx context.Context, userID snowflake.ID, req organizationdomain.CreateOrganizationRequest) (*organizationdomain.OrganizationResponse, error) {
	_ = ctx
	f.lastUserID = userID
	f.org.Name = req.Name
	return f.org, nil
}

func (f *fakeOrgService) GetByID(ctx context.Context, id string) (*organizationdomain.OrganizationResponse, error) {
	_ = ctx
	_ = id
	return f.org, nil
}

func (f *fakeOrgService) ListOrganizationsByUser(ctx context.Context, userID snowflake.ID) ([]organizationdomain.OrganizationListResponseItem, error) {
	_ = ctx
	_ = userID
	return nil, nil
}

func (f *fakeOrgService) ListMembers(ctx context.Context, orgID snowflake.ID) ([]organizationdomain.MemberResponse, error) {
	_ = ctx
	_ = orgID
	return f.members, nil
}

func (f *fakeOrgService) UpdateMemberRole(ctx context.Context, orgID, userID snowflake.ID, role string) error {
	_ = ctx
	_ = orgID
	f.lastUserID = userID
	f.lastRole = role
	return f.updateErr
}

func (f *fakeOrgService) RemoveMember(ctx context.Context, orgID, userID snowflake.ID) error {
	_ = ctx
	_ = orgID
	f.lastUserID = userID
	return f.removeErr
}

type fakeInvitationService struct {
	issueResult     *invitationdomain.IssueResult
	issueErr        error
	resolveView     *invitationdomain.InviteView
	resolveErr      error
	acceptResult    *invitationdomain.AcceptResult
	acceptErr       error
	revokeErr       error
	pending         []invitationdomain.PendingInvite
	issued          []invitationdomain.IssueRequest
	lastAccept      invitationdomain.AcceptRequest
	lastRevokeEmail string
}

func (f *fakeInvitationService) Issue(ctx context.Context, req invitationdomain.IssueRequest) (*invitationdomain.IssueResult, error) {
	_ = ctx
	f.issued = append(f.issued, req)
	if f.issueErr != nil {
		return nil, f.issueErr
	}
	if f.issueResult != nil {
		return f.issueResult, nil
	}
	return &invitationdomain.IssueResult{
		InviteID:  snowflake.ID(400),
		RawToken:  "raw-token",
		ExpiresAt: time.Now().Add(7 * 24 * time.Hour),
	}, nil
}

func (f *fakeInvitationService) Resolve(ctx context.Context, rawToken string) (*invitationdomain.InviteView, error) {
	_ = ctx
	_ = rawToken
	if f.resolveErr != nil {
		return nil, f.resolveErr
	}
	return f.resolveView, nil
}

func (f *fakeInvitationService) Accept(ctx context.Context, req invitationdomain.AcceptRequest) (*invitationdomain.AcceptResult, error) {
	_ = ctx
	f.lastAccept = req
	if f.acceptErr != nil {
		return nil, f.acceptErr
	}
	if f.acceptResult != nil {
		return f.acceptResult, nil
	}
	return &invitationdomain.AcceptResult{OrgID: snowflake.ID(100), Role: organizationdomain.RoleMember}, nil
}

func (f *fakeInvitationService) Revoke(ctx context.Context, orgID snowflake.ID, email string) error {
	_ = ctx
	_ = orgID
	f.lastRevokeEmail = email
	return f.revokeErr
}

func (f *fakeInvitationService) ListPending(ctx context.Context, orgID snowflake.ID) ([]invitationdomain.PendingInvite, error) {
	_ = ctx
	_ = orgID
	return f.pending, nil
}

type recordedActivity struct {
	Action     string
	TargetType string
	Metadata   map[string]any
}

type fakeActivityService struct {
	records []recordedActivity
}

func (f *fakeActivityService) Record(ctx context.Context, orgID *snowflake.ID, actorType string, actorID *string, action string, targetType string, targetID *string, metadata map[string]any) error {
	_ = ctx
	_ = orgID
	_ = actorType
	_ = actorID
	_ = targetID
	f.records = append(f.records, recordedActivity{Action: action, TargetType: targetType, Metadata: metadata})
	return nil
}

func (f *fakeActivityService) List(ctx context.Context, req activitydomain.ListActivityRequest) (activitydomain.ListActivityResponse, error) {
	_ = ctx
	_ = req
	return activitydomain.ListActivityResponse{}, nil
}
