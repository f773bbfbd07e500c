package dto

import (
	"time"

	"github.com/anand-fs/plantrack/internal/models"
	"github.com/anand-fs/plantrack/internal/utils"
)

// CommentDTO represents a comment in API responses
type CommentDTO struct {
	ID           uint64          `json:"id"`
	InitiativeID uint64          `json:"initiativeId"`
	Body         string          `json:"body"`
	CreatedAt    time.Time       `json:"createdAt"`
	UpdatedAt    time.Time       `json:"updatedAt"`
	Author       *UserSummaryDTO `json:"author,omitempty"`
}

// ToCommentDTO converts a Comment model to CommentDTO
func ToCommentDTO(comment models.Comment) CommentDTO {
	dto := CommentDTO{
		ID:           comment.ID,
		InitiativeID: comment.InitiativeID,
		Body:         comment.Body,
		CreatedAt:    comment.CreatedAt,
		UpdatedAt:    comment.UpdatedAt,
	}
	if comment.Author.ID != 0 {
		author := ToUserSummaryDTO(comment.Author)
		dto.Author = &author
	}
	return dto
}

func ToCommentDTOs(comments []models.Comment) []CommentDTO {
	result := make([]CommentDTO, len(comments))
	for i, c := range comments {
		result[i] = ToCommentDTO(c)
	}
	return result
}

// AuditLogListResponse represents a paginated list of audit entries.
// Entries use the persisted audit shape as-is.
type AuditLogListResponse struct {
	AuditLogs []models.AuditLog `json:"auditLogs"`
	Pagination utils.PaginationResponse `json:"pagination"`
}
