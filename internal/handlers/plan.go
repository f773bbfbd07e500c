package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/anand-fs/plantrack/internal/cascade"
	"github.com/anand-fs/plantrack/internal/dto"
	apierrors "github.com/anand-fs/plantrack/internal/errors"
	"github.com/anand-fs/plantrack/internal/models"
	"github.com/anand-fs/plantrack/internal/services"
	"github.com/anand-fs/plantrack/internal/utils"
)

// PlanHandler serves plan endpoints, including cascade cancel and complete
type PlanHandler struct {
	planService *services.PlanService
}

func NewPlanHandler(planService *services.PlanService) *PlanHandler {
	return &PlanHandler{planService: planService}
}

// cascadeRequest carries the fingerprint of the preview the caller confirmed.
// An empty body executes against the current state.
type cascadeRequest struct {
	Fingerprint string `json:"fingerprint"`
}

func bindCascadeRequest(c *gin.Context) (cascadeRequest, bool) {
	var req cascadeRequest
	if c.Request.ContentLength == 0 {
		return req, true
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return req, false
	}
	return req, true
}

type previewFunc func(ctx context.Context, id uint64) (*cascade.Plan, error)

type executeFunc func(ctx context.Context, id uint64, actor services.Actor, fingerprint string) (*cascade.Result, error)

func servePreview(c *gin.Context, preview previewFunc) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	plan, err := preview(c.Request.Context(), id)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, plan)
}

func serveExecute(c *gin.Context, execute executeFunc) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	req, ok := bindCascadeRequest(c)
	if !ok {
		return
	}

	result, err := execute(c.Request.Context(), id, actor, req.Fingerprint)
	if err != nil {
		respondCascadeError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// CreatePlan creates a plan owned by the user in the path
func (h *PlanHandler) CreatePlan(c *gin.Context) {
	type CreatePlanRequest struct {
		Title       string `json:"title" binding:"required,max=255"`
		Description string `json:"description"`
	}

	ownerID, ok := parseID(c, "id")
	if !ok {
		return
	}
	actor, ok := currentActor(c)
	if !ok {
		return
	}

	var req CreatePlanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequestWithDetails(c, "Invalid request body", err.Error())
		return
	}

	plan, err := h.planService.CreatePlan(c.Request.Context(), services.CreatePlanInput{
		OwnerID:     ownerID,
		Title:       req.Title,
		Description: req.Description,
	}, actor)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, dto.ToPlanDTO(*plan))
}

// ListPlans returns a page of plans, newest first
func (h *PlanHandler) ListPlans(c *gin.Context) {
	params := utils.GetPaginationParams(c)

	plans, total, err := h.planService.ListPlans(c.Request.Context(), params)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.PlanListResponse{
		Plans:      dto.ToPlanDTOs(plans),
		Pagination: utils.NewPaginationResponse(params, total),
	})
}

// ListPlansByOwner returns plans owned by the user in the path
func (h *PlanHandler) ListPlansByOwner(c *gin.Context) {
	userID, ok := parseID(c, "id")
	if !ok {
		return
	}
	plans, err := h.planService.ListPlansByOwner(c.Request.Context(), userID)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.ToPlanDTOs(plans))
}

// ListAssignedPlans returns plans containing initiatives assigned to the user in the path
func (h *PlanHandler) ListAssignedPlans(c *gin.Context) {
	userID, ok := parseID(c, "id")
	if !ok {
		return
	}
	plans, err := h.planService.ListPlansWithAssignedInitiatives(c.Request.Context(), userID)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.ToPlanDTOs(plans))
}

// GetPlan returns a plan with its owner and milestones
func (h *PlanHandler) GetPlan(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	plan, err := h.planService.GetPlan(c.Request.Context(), id)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.ToPlanDTO(*plan))
}

// UpdatePlan changes plan fields and non-terminal status
func (h *PlanHandler) UpdatePlan(c *gin.Context) {
	type UpdatePlanRequest struct {
		Title       *string        `json:"title" binding:"omitempty,max=255"`
		Description *string        `json:"description"`
		Status      *models.Status `json:"status" binding:"omitempty,lifecycle_status"`
	}

	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	actor, ok := currentActor(c)
	if !ok {
		return
	}

	var req UpdatePlanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequestWithDetails(c, "Invalid request body", err.Error())
		return
	}

	plan, err := h.planService.UpdatePlan(c.Request.Context(), id, services.UpdatePlanInput{
		Title:       req.Title,
		Description: req.Description,
		Status:      req.Status,
	}, actor)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.ToPlanDTO(*plan))
}

// DeletePlan soft deletes a plan whose milestones are all closed
func (h *PlanHandler) DeletePlan(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	if err := h.planService.DeletePlan(c.Request.Context(), id, actor); err != nil {
		respondServiceError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// PreviewCancel lists every change cancelling the plan would make
func (h *PlanHandler) PreviewCancel(c *gin.Context) {
	servePreview(c, h.planService.PreviewCancelPlan)
}

// Cancel cancels the plan and its open descendants
func (h *PlanHandler) Cancel(c *gin.Context) {
	serveExecute(c, h.planService.CancelPlan)
}

// PreviewComplete lists every change completing the plan would make
func (h *PlanHandler) PreviewComplete(c *gin.Context) {
	servePreview(c, h.planService.PreviewCompletePlan)
}

// Complete completes the plan and its open descendants
func (h *PlanHandler) Complete(c *gin.Context) {
	serveExecute(c, h.planService.CompletePlan)
}

// Reactivate moves a cancelled plan back to ACTIVE
func (h *PlanHandler) Reactivate(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	plan, err := h.planService.ReactivatePlan(c.Request.Context(), id, actor)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.ToPlanDTO(*plan))
}
