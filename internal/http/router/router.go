package router

import (
	"github.com/gin-gonic/gin"

	"github.com/ignatzorin/freelance-escrow/internal/config"
	"github.com/ignatzorin/freelance-escrow/internal/http/handlers"
	"github.com/ignatzorin/freelance-escrow/internal/http/middleware"
	"github.com/ignatzorin/freelance-escrow/internal/service"
)

func SetupRouter(
	cfg *config.Config,
	authHandler *handlers.AuthHandler,
	projectHandler *handlers.ProjectHandler,
	contractHandler *handlers.ContractHandler,
	milestoneHandler *handlers.MilestoneHandler,
	disputeHandler *handlers.DisputeHandler,
	arbitratorHandler *handlers.ArbitratorHandler,
	wsHandler *handlers.WSHandler,
	healthHandler *handlers.HealthHandler,
	tokenManager *service.TokenManager,
) *gin.Engine {
	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.Default()
	r.Use(middleware.ErrorHandler())
	r.Use(middleware.CORSMiddleware(cfg.AllowedOrigins))

	r.GET("/health", healthHandler.Health)

	api := r.Group("/api")

	authGroup := api.Group("/auth")
	authGroup.Use(middleware.RateLimitMiddleware(5, cfg.RateLimitPeriod))
	{
		authGroup.POST("/register", authHandler.Register)
		authGroup.POST("/login", authHandler.Login)
		authGroup.POST("/refresh", authHandler.Refresh)
	}

	api.GET("/ws", wsHandler.Handle)
	api.GET("/projects/:id", middleware.UUIDValidator("id"), projectHandler.GetProject)

	protected := api.Group("/")
	protected.Use(middleware.AuthMiddleware(tokenManager))
	{
		protected.POST("/projects", projectHandler.CreateProject)
		protected.POST("/projects/:id/proposals", middleware.UUIDValidator("id"), projectHandler.SubmitProposal)
		protected.GET("/projects/:id/proposals", middleware.UUIDValidator("id"), projectHandler.ListProposals)

		protected.POST("/proposals/:id/accept", middleware.UUIDValidator("id"), contractHandler.AcceptProposal)

		protected.GET("/contracts", contractHandler.ListContracts)
		protected.GET("/contracts/:id", middleware.UUIDValidator("id"), contractHandler.GetContract)
		protected.POST("/contracts/:id/sign", middleware.UUIDValidator("id"), contractHandler.Sign)
		protected.POST("/contracts/:id/funding/retry", middleware.UUIDValidator("id"), contractHandler.RetryFunding)

		protected.POST("/contracts/:id/milestones/:idx/submit", middleware.UUIDValidator("id"), milestoneHandler.SubmitProof)
		protected.POST("/contracts/:id/milestones/:idx/attachment", middleware.UUIDValidator("id"), milestoneHandler.UploadProof)
		protected.POST("/contracts/:id/milestones/:idx/revision", middleware.UUIDValidator("id"), milestoneHandler.RequestRevision)
		protected.POST("/contracts/:id/milestones/:idx/approve", middleware.UUIDValidator("id"), milestoneHandler.Approve)
		protected.GET("/contracts/:id/milestones/:idx/submission", middleware.UUIDValidator("id"), milestoneHandler.GetSubmission)

		// Открытие спора ограничено по частоте: подбор арбитра дорогой.
		protected.POST("/contracts/:id/disputes", middleware.UUIDValidator("id"),
			middleware.RateLimitMiddleware(cfg.RateLimitLimit, cfg.RateLimitPeriod), disputeHandler.Raise)

		protected.GET("/disputes", disputeHandler.List)
		protected.GET("/disputes/:id", disputeHandler.Get)
		protected.POST("/disputes/:id/evidence", disputeHandler.SubmitEvidence)
		protected.POST("/disputes/:id/evidence/request", disputeHandler.RequestEvidence)
		protected.POST("/disputes/:id/escalate", disputeHandler.Escalate)
		protected.POST("/disputes/:id/resolve", disputeHandler.Resolve)

		protected.POST("/arbitrators", arbitratorHandler.Apply)
		protected.GET("/arbitrators/me", arbitratorHandler.Me)
		protected.PUT("/arbitrators/me/presence", arbitratorHandler.SetPresence)
		protected.POST("/arbitrators/me/gigs", arbitratorHandler.BookGig)
		protected.GET("/arbitrators/me/gigs", arbitratorHandler.ListGigs)
		protected.DELETE("/arbitrators/me/gigs/:id", middleware.UUIDValidator("id"), arbitratorHandler.CancelGig)

		protected.GET("/balance", arbitratorHandler.Balance)
		protected.GET("/events", wsHandler.ListEvents)
	}

	return r
}
