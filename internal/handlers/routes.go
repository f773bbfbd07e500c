package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/anand-fs/plantrack/internal/auth"
	"github.com/anand-fs/plantrack/internal/middleware"
	"github.com/anand-fs/plantrack/internal/models"
	"github.com/anand-fs/plantrack/internal/services"
)

// Handlers groups every HTTP handler the API exposes.
type Handlers struct {
	Auth        *AuthHandler
	Users       *UserHandler
	Plans       *PlanHandler
	Milestones  *MilestoneHandler
	Initiatives *InitiativeHandler
	Comments    *CommentHandler
	Audit       *AuditHandler
}

// New builds all handlers over the shared service dependencies.
func New(deps services.Deps, tokens *auth.TokenManager) Handlers {
	return Handlers{
		Auth:        NewAuthHandler(services.NewAuthService(deps), tokens),
		Users:       NewUserHandler(services.NewUserService(deps)),
		Plans:       NewPlanHandler(services.NewPlanService(deps)),
		Milestones:  NewMilestoneHandler(services.NewMilestoneService(deps)),
		Initiatives: NewInitiativeHandler(services.NewInitiativeService(deps)),
		Comments:    NewCommentHandler(services.NewCommentService(deps)),
		Audit:       NewAuditHandler(services.NewAuditService(deps)),
	}
}

// Health reports that the process is serving.
func Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"message": "PlanTrack API is running",
	})
}

// RegisterRoutes mounts the API under the given group.
func RegisterRoutes(api *gin.RouterGroup, h Handlers, tokens *auth.TokenManager) {
	requireAuth := middleware.RequireAuth(tokens)
	managers := middleware.RequireRole(models.RoleManager, models.RoleAdmin)
	admins := middleware.RequireRole(models.RoleAdmin)

	authGroup := api.Group("/auth")
	{
		authGroup.POST("/register", h.Auth.Register)
		authGroup.POST("/login", h.Auth.Login)
		authGroup.POST("/logout", h.Auth.Logout)
		authGroup.GET("/me", requireAuth, h.Auth.GetCurrentUser)
	}

	protected := api.Group("")
	protected.Use(requireAuth)

	users := protected.Group("/users")
	{
		users.GET("", admins, h.Users.ListUsers)
		users.GET("/:id", admins, h.Users.GetUser)
		users.PUT("/:id", admins, h.Users.UpdateUser)
		users.DELETE("/:id", admins, h.Users.DeleteUser)
		users.POST("/:id/plans", managers, h.Plans.CreatePlan)
		users.GET("/:id/plans", h.Plans.ListPlansByOwner)
		users.GET("/:id/assigned-plans", h.Plans.ListAssignedPlans)
		users.GET("/:id/initiatives", h.Initiatives.ListByUser)
	}

	protected.GET("/audit-logs", admins, h.Audit.ListAuditLogs)

	plans := protected.Group("/plans")
	{
		plans.GET("", h.Plans.ListPlans)
		plans.GET("/:id", h.Plans.GetPlan)
		plans.PUT("/:id", managers, h.Plans.UpdatePlan)
		plans.DELETE("/:id", managers, h.Plans.DeletePlan)
		plans.GET("/:id/cancel-preview", managers, h.Plans.PreviewCancel)
		plans.POST("/:id/cancel", managers, h.Plans.Cancel)
		plans.GET("/:id/complete-preview", managers, h.Plans.PreviewComplete)
		plans.POST("/:id/complete", managers, h.Plans.Complete)
		plans.POST("/:id/reactivate", managers, h.Plans.Reactivate)
		plans.GET("/:id/milestones", h.Milestones.ListMilestones)
		plans.POST("/:id/milestones", managers, h.Milestones.CreateMilestone)
		plans.POST("/:id/milestones/:milestoneId/initiatives", managers, h.Initiatives.CreatePlanInitiative)
	}

	milestones := protected.Group("/milestones")
	{
		milestones.GET("/:id", h.Milestones.GetMilestone)
		milestones.PUT("/:id", managers, h.Milestones.UpdateMilestone)
		milestones.DELETE("/:id", managers, h.Milestones.DeleteMilestone)
		milestones.GET("/:id/cancel-preview", managers, h.Milestones.PreviewCancel)
		milestones.POST("/:id/cancel", managers, h.Milestones.Cancel)
		milestones.GET("/:id/complete-preview", managers, h.Milestones.PreviewComplete)
		milestones.POST("/:id/complete", managers, h.Milestones.Complete)
		milestones.POST("/:id/reactivate", managers, h.Milestones.Reactivate)
		milestones.GET("/:id/initiatives", h.Initiatives.ListByMilestone)
		milestones.POST("/:id/initiatives", managers, h.Initiatives.CreateInitiative)
		milestones.POST("/:id/initiatives/generate", managers, h.Initiatives.GenerateInitiatives)
	}

	initiatives := protected.Group("/initiatives")
	{
		initiatives.GET("/:id", h.Initiatives.GetInitiative)
		initiatives.PUT("/:id", h.Initiatives.UpdateInitiative)
		initiatives.DELETE("/:id", managers, h.Initiatives.DeleteInitiative)
		initiatives.PUT("/:id/assignees", managers, h.Initiatives.ReplaceAssignees)
		initiatives.POST("/:id/reactivate", managers, h.Initiatives.Reactivate)
		initiatives.GET("/:id/comments", h.Comments.ListComments)
		initiatives.POST("/:id/comments", h.Comments.CreateComment)
	}

	comments := protected.Group("/comments")
	{
		comments.PUT("/:id", h.Comments.UpdateComment)
		comments.DELETE("/:id", h.Comments.DeleteComment)
	}
}
