package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	invitationdomain "github.com/uniteorg/unite/internal/invitation/domain"
)

type acceptInviteRequest struct {
	Token string `json:"token"`
}

// ResolveInvite is an unauthenticated lookup: the invited person follows
// the link from the email before they have a session.
func (s *Server) ResolveInvite(c *gin.Context) {
	token := strings.TrimSpace(c.Param("token"))
	if token == "" {
		AbortWithError(c, invitationdomain.ErrNotFound)
		return
	}

	view, err := s.invitationSvc.Resolve(c.Request.Context(), token)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"invite": view})
}

func (s *Server) AcceptInvite(c *gin.Context) {
	userID, ok := s.userIDFromSession(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	var req acceptInviteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	token := strings.TrimSpace(req.Token)
	if token == "" {
		AbortWithError(c, newValidationError("token", "required", "token is required"))
		return
	}

	result, err := s.invitationSvc.Accept(c.Request.Context(), invitationdomain.AcceptRequest{
		RawToken: token,
		UserID:   userID,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	if s.activitySvc != nil {
		actor := userID.String()
		target := actor
		_ = s.activitySvc.Record(c.Request.Context(), &result.OrgID, "user", &actor, "invite.accepted", "member", &target, map[string]any{
			"role": result.Role,
		})
	}

	c.JSON(http.StatusOK, gin.H{
		"org_id": result.OrgID.String(),
		"role":   result.Role,
	})
}
