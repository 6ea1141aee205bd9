package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	invitationdomain "github.com/uniteorg/unite/internal/invitation/domain"
)

type inviteMembersRequest struct {
	Invites []inviteMemberRequest `json:"invites"`
}

type inviteMemberRequest struct {
	Email string `json:"email"`
	Role  string `json:"role"`
}

type inviteMemberResult struct {
	Email          string `json:"email"`
	Role           string `json:"role"`
	Resent         bool   `json:"resent"`
	DeliveryFailed bool   `json:"delivery_failed,omitempty"`
}

func (s *Server) InviteOrganizationMembers(c *gin.Context) {
	userID, ok := s.userIDFromSession(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	orgID, ok := s.orgIDFromPath(c)
	if !ok {
		return
	}

	var req inviteMembersRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	if len(req.Invites) == 0 {
		c.Status(http.StatusNoContent)
		return
	}

	results := make([]inviteMemberResult, 0, len(req.Invites))
	for _, invite := range req.Invites {
		issued, err := s.invitationSvc.Issue(c.Request.Context(), invitationdomain.IssueRequest{
			OrgID:     orgID,
			Email:     invite.Email,
			Role:      invite.Role,
			InvitedBy: userID,
		})
		if err != nil {
			AbortWithError(c, err)
			return
		}

		if s.activitySvc != nil {
			actor := userID.String()
			target := issued.InviteID.String()
			action := "invite.issued"
			if issued.Resent {
				action = "invite.resent"
			}
			_ = s.activitySvc.Record(c.Request.Context(), &orgID, "user", &actor, action, "invite", &target, map[string]any{
				"email": strings.ToLower(strings.TrimSpace(invite.Email)),
				"role":  invite.Role,
			})
		}

		results = append(results, inviteMemberResult{
			Email:          strings.ToLower(strings.TrimSpace(invite.Email)),
			Role:           invite.Role,
			Resent:         issued.Resent,
			DeliveryFailed: issued.DeliveryFailed,
		})
	}

	c.JSON(http.StatusOK, gin.H{"data": results})
}

func (s *Server) ListOrganizationInvites(c *gin.Context) {
	orgID, ok := s.orgIDFromPath(c)
	if !ok {
		return
	}

	invites, err := s.invitationSvc.ListPending(c.Request.Context(), orgID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": invites})
}

type revokeInviteRequest struct {
	Email string `json:"email"`
}

func (s *Server) RevokeOrganizationInvite(c *gin.Context) {
	userID, ok := s.userIDFromSession(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	orgID, ok := s.orgIDFromPath(c)
	if !ok {
		return
	}

	var req revokeInviteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))
	if email == "" {
		AbortWithError(c, newValidationError("email", "required", "email is required"))
		return
	}

	if err := s.invitationSvc.Revoke(c.Request.Context(), orgID, email); err != nil {
		AbortWithError(c, err)
		return
	}

	if s.activitySvc != nil {
		actor := userID.String()
		_ = s.activitySvc.Record(c.Request.Context(), &orgID, "user", &actor, "invite.revoked", "invite", &email, nil)
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}

func isInvitationValidationError(err error) bool {
	switch err {
	case invitationdomain.ErrInvalidEmail,
		invitationdomain.ErrInvalidRole,
		invitationdomain.ErrInvalidOrganization,
		invitationdomain.ErrInvalidUser:
		return true
	default:
		return false
	}
}
