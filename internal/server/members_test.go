package server

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/uniteorg/unite/internal/auth/session"
	"github.com/uniteorg/unite/internal/config"
	organizationdomain "github.com/uniteorg/unite/internal/organization/domain"
)

func newMemberTestServer(orgSvc *fakeOrgService) *Server {
	return &Server{
		cfg:             config.Config{Mode: config.ModeOSS},
		authsvc:         &fakeAuthService{},
		sessions:        session.NewManager(config.Config{}),
		organizationSvc: orgSvc,
	}
}

func TestUpdateMemberRoleHandler(t *testing.T) {
	gin.SetMode(gin.TestMode)

	orgSvc := newFakeOrgService()
	srv := newMemberTestServer(orgSvc)

	router := gin.New()
	router.Use(ErrorHandlingMiddleware())
	router.PATCH("/admin/orgs/:id/members/:user_id", asUser("200"), srv.UpdateMemberRole)

	req := httptest.NewRequest(http.MethodPatch, "/admin/orgs/100/members/300", bytes.NewBufferString(`{"role":"ADMIN"}`))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusNoContent {
		t.Fatalf("expected status 204, got %d", resp.Code)
	}
	if orgSvc.lastUserID != snowflake.ID(300) {
		t.Fatalf("unexpected member id: %v", orgSvc.lastUserID)
	}
	if orgSvc.lastRole != organizationdomain.RoleAdmin {
		t.Fatalf("unexpected role: %s", orgSvc.lastRole)
	}
}

func TestUpdateMemberRoleHandlerLastOwnerConflict(t *testing.T) {
	gin.SetMode(gin.TestMode)

	orgSvc := newFakeOrgService()
	orgSvc.updateErr = organizationdomain.ErrLastOwner
	srv := newMemberTestServer(orgSvc)

	router := gin.New()
	router.Use(ErrorHandlingMiddleware())
	router.PATCH("/admin/orgs/:id/members/:user_id", asUser("200"), srv.UpdateMemberRole)

	req := httptest.NewRequest(http.MethodPatch, "/admin/orgs/100/members/200", bytes.NewBufferString(`{"role":"MEMBER"}`))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusConflict {
		t.Fatalf("expected status 409, got %d", resp.Code)
	}
}

func TestRemoveMemberHandlerNotFound(t *testing.T) {
	gin.SetMode(gin.TestMode)

	orgSvc := newFakeOrgService()
	orgSvc.removeErr = organizationdomain.ErrMemberNotFound
	srv := newMemberTestServer(orgSvc)

	router := gin.New()
	router.Use(ErrorHandlingMiddleware())
	router.DELETE("/admin/orgs/:id/members/:user_id", asUser("200"), srv.RemoveMember)

	req := httptest.NewRequest(http.MethodDelete, "/admin/orgs/100/members/300", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected status 404, got %d", resp.Code)
	}
}

func TestListMembersHandler(t *testing.T) {
	gin.SetMode(gin.TestMode)

	orgSvc := newFakeOrgService()
	orgSvc.members = []organizationdomain.MemberResponse{
		{UserID: "200", DisplayName: "Alice", Email: "alice@example.com", Role: organizationdomain.RoleOwner, Status: organizationdomain.MemberStatusActive},
	}
	srv := newMemberTestServer(orgSvc)

	router := gin.New()
	router.Use(ErrorHandlingMiddleware())
	router.GET("/admin/orgs/:id/members", asUser("200"), srv.ListMembers)

	req := httptest.NewRequest(http.MethodGet, "/admin/orgs/100/members", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", resp.Code)
	}
	if !bytes.Contains(resp.Body.Bytes(), []byte("alice@example.com")) {
		t.Fatalf("expected member in response, got %s", resp.Body.String())
	}
}
