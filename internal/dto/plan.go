package dto

import (
	"time"

	"github.com/anand-fs/plantrack/internal/models"
	"github.com/anand-fs/plantrack/internal/utils"
)

// PlanDTO represents a plan in API responses
type PlanDTO struct {
	ID          uint64          `json:"id"`
	OwnerID     uint64          `json:"ownerId"`
	Title       string          `json:"title"`
	Description string          `json:"description"`
	Status      models.Status   `json:"status"`
	CreatedAt   time.Time       `json:"createdAt"`
	UpdatedAt   time.Time       `json:"updatedAt"`
	Owner       *UserSummaryDTO `json:"owner,omitempty"`
	Milestones  []MilestoneDTO  `json:"milestones,omitempty"`
}

// PlanListResponse represents a paginated list of plans
type PlanListResponse struct {
	Plans []PlanDTO `json:"plans"`
	Pagination utils.PaginationResponse `json:"pagination"`
}

// MilestoneDTO represents a milestone in API responses
type MilestoneDTO struct {
	ID          uint64          `json:"id"`
	PlanID      uint64          `json:"planId"`
	Title       string          `json:"title"`
	Description string          `json:"description"`
	Sequence    int             `json:"sequence"`
	DueDate     *time.Time      `json:"dueDate"`
	Status      models.Status   `json:"status"`
	CreatedAt   time.Time       `json:"createdAt"`
	UpdatedAt   time.Time       `json:"updatedAt"`
	Initiatives []InitiativeDTO `json:"initiatives,omitempty"`
}

// InitiativeDTO represents an initiative in API responses
type InitiativeDTO struct {
	ID          uint64           `json:"id"`
	MilestoneID uint64           `json:"milestoneId"`
	Title       string           `json:"title"`
	Description string           `json:"description"`
	Status      models.Status    `json:"status"`
	CreatedAt   time.Time        `json:"createdAt"`
	UpdatedAt   time.Time        `json:"updatedAt"`
	Assignees   []UserSummaryDTO `json:"assignees,omitempty"`
}

// DraftInitiativeDTO is an AI-drafted initiative that has not been stored
type DraftInitiativeDTO struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

// ToPlanDTO converts a Plan model to PlanDTO
func ToPlanDTO(plan models.Plan) PlanDTO {
	dto := PlanDTO{
		ID:          plan.ID,
		OwnerID:     plan.UserID,
		Title:       plan.Title,
		Description: plan.Description,
		Status:      plan.Status,
		CreatedAt:   plan.CreatedAt,
		UpdatedAt:   plan.UpdatedAt,
	}
	if plan.Owner.ID != 0 {
		owner := ToUserSummaryDTO(plan.Owner)
		dto.Owner = &owner
	}
	if len(plan.Milestones) > 0 {
		dto.Milestones = ToMilestoneDTOs(plan.Milestones)
	}
	return dto
}

func ToPlanDTOs(plans []models.Plan) []PlanDTO {
	result := make([]PlanDTO, len(plans))
	for i, p := range plans {
		result[i] = ToPlanDTO(p)
	}
	return result
}

// ToMilestoneDTO converts a Milestone model to MilestoneDTO
func ToMilestoneDTO(milestone models.Milestone) MilestoneDTO {
	dto := MilestoneDTO{
		ID:          milestone.ID,
		PlanID:      milestone.PlanID,
		Title:       milestone.Title,
		Description: milestone.Description,
		Sequence:    milestone.Sequence,
		DueDate:     milestone.DueDate,
		Status:      milestone.Status,
		CreatedAt:   milestone.CreatedAt,
		UpdatedAt:   milestone.UpdatedAt,
	}
	if len(milestone.Initiatives) > 0 {
		dto.Initiatives = ToInitiativeDTOs(milestone.Initiatives)
	}
	return dto
}

func ToMilestoneDTOs(milestones []models.Milestone) []MilestoneDTO {
	result := make([]MilestoneDTO, len(milestones))
	for i, m := range milestones {
		result[i] = ToMilestoneDTO(m)
	}
	return result
}

// ToInitiativeDTO converts an Initiative model to InitiativeDTO
func ToInitiativeDTO(initiative models.Initiative) InitiativeDTO {
	dto := InitiativeDTO{
		ID:          initiative.ID,
		MilestoneID: initiative.MilestoneID,
		Title:       initiative.Title,
		Description: initiative.Description,
		Status:      initiative.Status,
		CreatedAt:   initiative.CreatedAt,
		UpdatedAt:   initiative.UpdatedAt,
	}
	for _, a := range initiative.Assignments {
		if a.User.ID == 0 {
			continue
		}
		dto.Assignees = append(dto.Assignees, ToUserSummaryDTO(a.User))
	}
	return dto
}

func ToInitiativeDTOs(initiatives []models.Initiative) []InitiativeDTO {
	result := make([]InitiativeDTO, len(initiatives))
	for i, in := range initiatives {
		result[i] = ToInitiativeDTO(in)
	}
	return result
}
