package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/anand-fs/plantrack/internal/dto"
	apierrors "github.com/anand-fs/plantrack/internal/errors"
	"github.com/anand-fs/plantrack/internal/models"
	"github.com/anand-fs/plantrack/internal/services"
)

// MilestoneHandler serves milestone endpoints
type MilestoneHandler struct {
	milestoneService *services.MilestoneService
}

func NewMilestoneHandler(milestoneService *services.MilestoneService) *MilestoneHandler {
	return &MilestoneHandler{milestoneService: milestoneService}
}

// CreateMilestone adds a milestone to the plan in the path
func (h *MilestoneHandler) CreateMilestone(c *gin.Context) {
	type CreateMilestoneRequest struct {
		Title       string     `json:"title" binding:"required,max=255"`
		Description string     `json:"description"`
		Sequence    int        `json:"sequence" binding:"min=0"`
		DueDate     *time.Time `json:"dueDate"`
	}

	planID, ok := parseID(c, "id")
	if !ok {
		return
	}
	actor, ok := currentActor(c)
	if !ok {
		return
	}

	var req CreateMilestoneRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequestWithDetails(c, "Invalid request body", err.Error())
		return
	}

	milestone, err := h.milestoneService.CreateMilestone(c.Request.Context(), planID, services.CreateMilestoneInput{
		Title:       req.Title,
		Description: req.Description,
		Sequence:    req.Sequence,
		DueDate:     req.DueDate,
	}, actor)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, dto.ToMilestoneDTO(*milestone))
}

// ListMilestones returns the plan's milestones in sequence order
func (h *MilestoneHandler) ListMilestones(c *gin.Context) {
	planID, ok := parseID(c, "id")
	if !ok {
		return
	}
	milestones, err := h.milestoneService.ListMilestonesByPlan(c.Request.Context(), planID)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.ToMilestoneDTOs(milestones))
}

func (h *MilestoneHandler) GetMilestone(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	milestone, err := h.milestoneService.GetMilestone(c.Request.Context(), id)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.ToMilestoneDTO(*milestone))
}

func (h *MilestoneHandler) UpdateMilestone(c *gin.Context) {
	type UpdateMilestoneRequest struct {
		Title        *string        `json:"title" binding:"omitempty,max=255"`
		Description  *string        `json:"description"`
		Sequence     *int           `json:"sequence" binding:"omitempty,min=0"`
		DueDate      *time.Time     `json:"dueDate"`
		ClearDueDate bool           `json:"clearDueDate"`
		Status       *models.Status `json:"status" binding:"omitempty,lifecycle_status"`
	}

	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	actor, ok := currentActor(c)
	if !ok {
		return
	}

	var req UpdateMilestoneRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequestWithDetails(c, "Invalid request body", err.Error())
		return
	}

	milestone, err := h.milestoneService.UpdateMilestone(c.Request.Context(), id, services.UpdateMilestoneInput{
		Title:        req.Title,
		Description:  req.Description,
		Sequence:     req.Sequence,
		DueDate:      req.DueDate,
		ClearDueDate: req.ClearDueDate,
		Status:       req.Status,
	}, actor)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.ToMilestoneDTO(*milestone))
}

func (h *MilestoneHandler) DeleteMilestone(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	if err := h.milestoneService.DeleteMilestone(c.Request.Context(), id, actor); err != nil {
		respondServiceError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *MilestoneHandler) PreviewCancel(c *gin.Context) {
	servePreview(c, h.milestoneService.PreviewCancelMilestone)
}

func (h *MilestoneHandler) Cancel(c *gin.Context) {
	serveExecute(c, h.milestoneService.CancelMilestone)
}

func (h *MilestoneHandler) PreviewComplete(c *gin.Context) {
	servePreview(c, h.milestoneService.PreviewCompleteMilestone)
}

func (h *MilestoneHandler) Complete(c *gin.Context) {
	serveExecute(c, h.milestoneService.CompleteMilestone)
}

// Reactivate moves a cancelled milestone back to ACTIVE
func (h *MilestoneHandler) Reactivate(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	milestone, err := h.milestoneService.ReactivateMilestone(c.Request.Context(), id, actor)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.ToMilestoneDTO(*milestone))
}
