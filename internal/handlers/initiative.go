package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/anand-fs/plantrack/internal/dto"
	apierrors "github.com/anand-fs/plantrack/internal/errors"
	"github.com/anand-fs/plantrack/internal/models"
	"github.com/anand-fs/plantrack/internal/services"
)

// InitiativeHandler serves initiative endpoints
type InitiativeHandler struct {
	initiativeService *services.InitiativeService
}

func NewInitiativeHandler(initiativeService *services.InitiativeService) *InitiativeHandler {
	return &InitiativeHandler{initiativeService: initiativeService}
}

type createInitiativeRequest struct {
	Title       string   `json:"title" binding:"required,max=255"`
	Description string   `json:"description"`
	AssigneeIDs []uint64 `json:"assigneeIds"`
}

// CreateInitiative adds an initiative to the milestone in the path
func (h *InitiativeHandler) CreateInitiative(c *gin.Context) {
	milestoneID, ok := parseID(c, "id")
	if !ok {
		return
	}
	h.create(c, milestoneID, nil)
}

// CreatePlanInitiative adds an initiative addressed by plan and milestone.
// The milestone must belong to the plan.
func (h *InitiativeHandler) CreatePlanInitiative(c *gin.Context) {
	planID, ok := parseID(c, "id")
	if !ok {
		return
	}
	milestoneID, ok := parseID(c, "milestoneId")
	if !ok {
		return
	}
	h.create(c, milestoneID, &planID)
}

func (h *InitiativeHandler) create(c *gin.Context, milestoneID uint64, planID *uint64) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}

	var req createInitiativeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequestWithDetails(c, "Invalid request body", err.Error())
		return
	}

	initiative, err := h.initiativeService.CreateInitiative(c.Request.Context(), services.CreateInitiativeInput{
		MilestoneID: milestoneID,
		PlanID:      planID,
		Title:       req.Title,
		Description: req.Description,
		AssigneeIDs: req.AssigneeIDs,
	}, actor)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, dto.ToInitiativeDTO(*initiative))
}

func (h *InitiativeHandler) ListByMilestone(c *gin.Context) {
	milestoneID, ok := parseID(c, "id")
	if !ok {
		return
	}
	initiatives, err := h.initiativeService.ListInitiativesByMilestone(c.Request.Context(), milestoneID)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.ToInitiativeDTOs(initiatives))
}

func (h *InitiativeHandler) ListByUser(c *gin.Context) {
	userID, ok := parseID(c, "id")
	if !ok {
		return
	}
	initiatives, err := h.initiativeService.ListInitiativesByUser(c.Request.Context(), userID)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.ToInitiativeDTOs(initiatives))
}

func (h *InitiativeHandler) GetInitiative(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	initiative, err := h.initiativeService.GetInitiative(c.Request.Context(), id)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.ToInitiativeDTO(*initiative))
}

// UpdateInitiative changes fields or status. Employees must be assigned.
func (h *InitiativeHandler) UpdateInitiative(c *gin.Context) {
	type UpdateInitiativeRequest struct {
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

	var req UpdateInitiativeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequestWithDetails(c, "Invalid request body", err.Error())
		return
	}

	initiative, err := h.initiativeService.UpdateInitiative(c.Request.Context(), id, services.UpdateInitiativeInput{
		Title:       req.Title,
		Description: req.Description,
		Status:      req.Status,
	}, actor)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.ToInitiativeDTO(*initiative))
}

// ReplaceAssignees swaps the assignee set
func (h *InitiativeHandler) ReplaceAssignees(c *gin.Context) {
	type ReplaceAssigneesRequest struct {
		AssigneeIDs []uint64 `json:"assigneeIds"`
	}

	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	actor, ok := currentActor(c)
	if !ok {
		return
	}

	var req ReplaceAssigneesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	initiative, err := h.initiativeService.ReplaceAssignees(c.Request.Context(), id, req.AssigneeIDs, actor)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.ToInitiativeDTO(*initiative))
}

func (h *InitiativeHandler) Reactivate(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	initiative, err := h.initiativeService.ReactivateInitiative(c.Request.Context(), id, actor)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.ToInitiativeDTO(*initiative))
}

func (h *InitiativeHandler) DeleteInitiative(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	if err := h.initiativeService.DeleteInitiative(c.Request.Context(), id, actor); err != nil {
		respondServiceError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// GenerateInitiatives drafts initiatives for the milestone from free text using AI
func (h *InitiativeHandler) GenerateInitiatives(c *gin.Context) {
	type GenerateInitiativesRequest struct {
		Text string `json:"text" binding:"required,max=10000"`
	}

	milestoneID, ok := parseID(c, "id")
	if !ok {
		return
	}

	var req GenerateInitiativesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	drafts, err := h.initiativeService.SuggestInitiatives(c.Request.Context(), services.SuggestInitiativesInput{
		MilestoneID: milestoneID,
		Text:        req.Text,
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}

	result := make([]dto.DraftInitiativeDTO, len(drafts))
	for i, d := range drafts {
		result[i] = dto.DraftInitiativeDTO{Title: d.Title, Description: d.Description}
	}
	c.JSON(http.StatusOK, gin.H{"initiatives": result})
}
