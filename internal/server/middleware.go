package server

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/uniteorg/unite/internal/activitycontext"
	obscontext "github.com/uniteorg/unite/internal/observability/context"
	"github.com/uniteorg/unite/internal/orgcontext"
)

const (
	HeaderOrg         = "X-Org-ID"
	HeaderRequestID   = "X-Request-ID"
	contextUserIDKey  = "user_id"
	contextSessionKey = "session"
)

// RequestID assigns a request id and threads request attributes into
// the context consumed by logging and the activity log.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := strings.TrimSpace(c.GetHeader(HeaderRequestID))
		if requestID == "" {
			requestID = uuid.NewString()
		}

		ctx := c.Request.Context()
		ctx = obscontext.WithRequestID(ctx, requestID)
		ctx = activitycontext.WithRequestID(ctx, requestID)
		ctx = activitycontext.WithIPAddress(ctx, c.ClientIP())
		ctx = activitycontext.WithUserAgent(ctx, c.Request.UserAgent())
		c.Request = c.Request.WithContext(ctx)

		c.Header(HeaderRequestID, requestID)
		c.Next()
	}
}

func (s *Server) WebAuthRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := s.sessions.ReadToken(c)
		if !ok {
			AbortWithError(c, ErrUnauthorized)
			return
		}

		session, err := s.authsvc.Authenticate(c.Request.Context(), token)
		if err != nil {
			AbortWithError(c, err)
			return
		}

		c.Set(contextUserIDKey, session.UserID.String())
		c.Set(contextSessionKey, session)

		ctx := obscontext.WithActor(c.Request.Context(), "user", session.UserID.String())
		c.Request = c.Request.WithContext(ctx)

		c.Next()
	}
}

// OrgContext resolves the organization an admin request operates on, from
// the path parameter, the X-Org-ID header, or the session's active org.
func (s *Server) OrgContext() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := strings.TrimSpace(c.Param("id"))
		if raw == "" {
			raw = strings.TrimSpace(c.GetHeader(HeaderOrg))
		}
		if raw == "" {
			if session, ok := s.sessionFromContext(c); ok && session.ActiveOrgID != nil {
				raw = snowflake.ID(*session.ActiveOrgID).String()
			}
		}
		if raw == "" {
			c.Next()
			return
		}

		orgID, err := snowflake.ParseString(raw)
		if err != nil {
			AbortWithError(c, newValidationError("org_id", "invalid_org_id", "invalid org id"))
			return
		}

		ctx := orgcontext.WithOrgID(c.Request.Context(), int64(orgID))
		ctx = obscontext.WithOrgID(ctx, orgID.String())
		c.Request = c.Request.WithContext(ctx)

		c.Next()
	}
}

// RequireRole gates a route on the caller's membership role in the org
// held by the request context.
func (s *Server) RequireRole(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := s.userIDFromSession(c)
		if !ok {
			AbortWithError(c, ErrUnauthorized)
			return
		}

		orgID, ok := orgcontext.OrgIDFromContext(c.Request.Context())
		if !ok || orgID == 0 {
			AbortWithError(c, ErrForbidden)
			return
		}

		role, err := s.memberRole(c.Request.Context(), orgID, userID)
		if err != nil {
			AbortWithError(c, ErrForbidden)
			return
		}

		for _, allowed := range roles {
			if role == allowed {
				c.Next()
				return
			}
		}

		AbortWithError(c, ErrForbidden)
	}
}

func (s *Server) authorizeOrgAction(object string, action string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := s.authorizeOrgActionWithContext(c, object, action); err != nil {
			AbortWithError(c, err)
			return
		}
		c.Next()
	}
}

func (s *Server) authorizeOrgActionWithContext(c *gin.Context, object string, action string) error {
	userID, ok := s.userIDFromSession(c)
	if !ok {
		return ErrUnauthorized
	}

	orgID, ok := orgcontext.OrgIDFromContext(c.Request.Context())
	if !ok || orgID == 0 {
		return ErrForbidden
	}

	if s.authzSvc == nil {
		return ErrForbidden
	}

	actor := "user:" + userID.String()
	return s.authzSvc.Authorize(c.Request.Context(), actor, orgID.String(), strings.TrimSpace(object), strings.TrimSpace(action))
}

func (s *Server) memberRole(ctx context.Context, orgID, userID snowflake.ID) (string, error) {
	var role string
	err := s.db.WithContext(ctx).
		Raw(`SELECT role FROM organization_members WHERE org_id = ? AND user_id = ? AND status = 'ACTIVE'`, int64(orgID), int64(userID)).
		Scan(&role).Error
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(role) == "" {
		return "", ErrForbidden
	}
	return role, nil
}
