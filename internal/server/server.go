package server

import (
	"context"
	"net/http"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/uniteorg/unite/internal/activity"
	activitydomain "github.com/uniteorg/unite/internal/activity/domain"
	"github.com/uniteorg/unite/internal/auth"
	authdomain "github.com/uniteorg/unite/internal/auth/domain"
	"github.com/uniteorg/unite/internal/auth/session"
	"github.com/uniteorg/unite/internal/authorization"
	"github.com/uniteorg/unite/internal/config"
	"github.com/uniteorg/unite/internal/invitation"
	invitationdomain "github.com/uniteorg/unite/internal/invitation/domain"
	"github.com/uniteorg/unite/internal/observability"
	obsmiddleware "github.com/uniteorg/unite/internal/observability/logger"
	obsmetrics "github.com/uniteorg/unite/internal/observability/metrics"
	obstracing "github.com/uniteorg/unite/internal/observability/tracing"
	"github.com/uniteorg/unite/internal/organization"
	organizationdomain "github.com/uniteorg/unite/internal/organization/domain"
	"github.com/uniteorg/unite/internal/providers"
	"github.com/uniteorg/unite/internal/ratelimit"
	"github.com/uniteorg/unite/internal/signup"
	signupdomain "github.com/uniteorg/unite/internal/signup/domain"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

var Module = fx.Module("http.server",
	config.Module,
	fx.Provide(registerGin),
	authorization.Module,
	activity.Module,
	auth.Module,
	session.Module,
	organization.Module,
	invitation.Module,
	providers.Module,
	ratelimit.Module,
	signup.Module,
	fx.Invoke(NewServer),
	fx.Invoke(run),
)

func NewEngine(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(RequestID())
	r.Use(obsmiddleware.GinMiddleware(obsmiddleware.MiddlewareConfig{
		Debug:           obsCfg.Debug(),
		ErrorClassifier: classifyErrorForLog,
	}))
	r.Use(obstracing.GinMiddleware())
	r.Use(obsmetrics.GinMiddleware(httpMetrics))
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func registerGin(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	return NewEngine(obsCfg, httpMetrics)
}

func run(lc fx.Lifecycle, r *gin.Engine) {
	srv := &http.Server{
		Addr:    ":8080",
		Handler: r,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					panic(err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}

type Server struct {
	engine          *gin.Engine
	cfg             config.Config
	db              *gorm.DB
	authsvc         authdomain.Service
	sessions        *session.Manager
	genID           *snowflake.Node
	authzSvc        authorization.Service
	activitySvc     activitydomain.Service
	organizationSvc organizationdomain.Service
	invitationSvc   invitationdomain.Service
	signupsvc       signupdomain.Service
	obsMetrics      *obsmetrics.Metrics
	inviteLimiter   *ratelimit.InviteResolveLimiter
}

type ServerParams struct {
	fx.In

	Gin             *gin.Engine
	Cfg             config.Config
	DB              *gorm.DB
	Authsvc         authdomain.Service
	Sessions        *session.Manager
	GenID           *snowflake.Node
	AuthzSvc        authorization.Service
	ActivitySvc     activitydomain.Service
	OrganizationSvc organizationdomain.Service
	InvitationSvc   invitationdomain.Service
	Signupsvc       signupdomain.Service
	ObsMetrics      *obsmetrics.Metrics             `optional:"true"`
	InviteLimiter   *ratelimit.InviteResolveLimiter `optional:"true"`
}

func NewServer(p ServerParams) *Server {
	svc := &Server{
		engine:          p.Gin,
		cfg:             p.Cfg,
		db:              p.DB,
		authsvc:         p.Authsvc,
		sessions:        p.Sessions,
		genID:           p.GenID,
		authzSvc:        p.AuthzSvc,
		activitySvc:     p.ActivitySvc,
		organizationSvc: p.OrganizationSvc,
		invitationSvc:   p.InvitationSvc,
		signupsvc:       p.Signupsvc,
		obsMetrics:      p.ObsMetrics,
		inviteLimiter:   p.InviteLimiter,
	}

	svc.registerAuthRoutes()
	svc.registerAdminRoutes()
	svc.registerPublicRoutes()

	return svc
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) registerAuthRoutes() {
	auth := s.engine.Group("/auth")

	auth.POST("/signup", s.Signup)
	auth.POST("/login", s.Login)
	auth.POST("/logout", s.Logout)
	auth.POST("/change-password", s.WebAuthRequired(), s.ChangePassword)
	auth.GET("/me", s.Me)

	user := auth.Group("/user", s.WebAuthRequired())
	{
		user.GET("/orgs", s.ListUserOrgs)
		user.POST("/using/:orgId", s.UseOrg)
	}
}

func (s *Server) registerAdminRoutes() {
	admin := s.engine.Group("/admin")

	admin.Use(s.WebAuthRequired())

	admin.POST("/orgs", s.CreateOrganization)

	orgs := admin.Group("/orgs/:id", s.OrgContext())
	{
		orgs.GET("", s.authorizeOrgAction(authorization.ObjectOrganization, authorization.ActionOrganizationView), s.GetOrg)

		orgs.GET("/members", s.authorizeOrgAction(authorization.ObjectMember, authorization.ActionMemberView), s.ListMembers)
		orgs.PATCH("/members/:user_id", s.RequireRole(organizationdomain.RoleOwner, organizationdomain.RoleAdmin), s.authorizeOrgAction(authorization.ObjectMember, authorization.ActionMemberUpdate), s.UpdateMemberRole)
		orgs.DELETE("/members/:user_id", s.RequireRole(organizationdomain.RoleOwner, organizationdomain.RoleAdmin), s.authorizeOrgAction(authorization.ObjectMember, authorization.ActionMemberRemove), s.RemoveMember)

		orgs.GET("/invites", s.authorizeOrgAction(authorization.ObjectInvite, authorization.ActionInviteView), s.ListOrganizationInvites)
		orgs.POST("/invites", s.authorizeOrgAction(authorization.ObjectInvite, authorization.ActionInviteIssue), s.InviteOrganizationMembers)
		orgs.DELETE("/invites", s.authorizeOrgAction(authorization.ObjectInvite, authorization.ActionInviteRevoke), s.RevokeOrganizationInvite)

		orgs.GET("/activity-logs", s.authorizeOrgAction(authorization.ObjectActivityLog, authorization.ActionActivityLogView), s.ListActivityLogs)
	}
}

func (s *Server) registerPublicRoutes() {
	invites := s.engine.Group("/invites")

	invites.GET("/:token", s.InviteResolveRateLimit(), s.ResolveInvite)
	invites.POST("/accept", s.WebAuthRequired(), s.AcceptInvite)
}
