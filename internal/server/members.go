package server

import (
	"net/http"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	organizationdomain "github.com/uniteorg/unite/internal/organization/domain"
)

type updateMemberRoleRequest struct {
	Role string `json:"role"`
}

func (s *Server) ListMembers(c *gin.Context) {
	orgID, ok := s.orgIDFromPath(c)
	if !ok {
		return
	}

	members, err := s.organizationSvc.ListMembers(c.Request.Context(), orgID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": members})
}

func (s *Server) UpdateMemberRole(c *gin.Context) {
	actorID, ok := s.userIDFromSession(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	orgID, ok := s.orgIDFromPath(c)
	if !ok {
		return
	}

	memberID, ok := s.memberIDFromPath(c)
	if !ok {
		return
	}

	var req updateMemberRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	role := strings.TrimSpace(req.Role)
	if err := s.organizationSvc.UpdateMemberRole(c.Request.Context(), orgID, memberID, role); err != nil {
		AbortWithError(c, err)
		return
	}

	if s.activitySvc != nil {
		actor := actorID.String()
		target := memberID.String()
		_ = s.activitySvc.Record(c.Request.Context(), &orgID, "user", &actor, "member.role_updated", "member", &target, map[string]any{
			"role": role,
		})
	}

	c.Status(http.StatusNoContent)
}

func (s *Server) RemoveMember(c *gin.Context) {
	actorID, ok := s.userIDFromSession(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	orgID, ok := s.orgIDFromPath(c)
	if !ok {
		return
	}

	memberID, ok := s.memberIDFromPath(c)
	if !ok {
		return
	}

	if err := s.organizationSvc.RemoveMember(c.Request.Context(), orgID, memberID); err != nil {
		AbortWithError(c, err)
		return
	}

	if s.activitySvc != nil {
		actor := actorID.String()
		target := memberID.String()
		_ = s.activitySvc.Record(c.Request.Context(), &orgID, "user", &actor, "member.removed", "member", &target, nil)
	}

	c.Status(http.StatusNoContent)
}

func (s *Server) orgIDFromPath(c *gin.Context) (snowflake.ID, bool) {
	raw := strings.TrimSpace(c.Param("id"))
	orgID, err := snowflake.ParseString(raw)
	if err != nil || orgID == 0 {
		AbortWithError(c, organizationdomain.ErrInvalidOrganization)
		return 0, false
	}
	return orgID, true
}

func (s *Server) memberIDFromPath(c *gin.Context) (snowflake.ID, bool) {
	raw := strings.TrimSpace(c.Param("user_id"))
	memberID, err := snowflake.ParseString(raw)
	if err != nil || memberID == 0 {
		AbortWithError(c, newValidationError("user_id", "invalid_user_id", "invalid user id"))
		return 0, false
	}
	return memberID, true
}
