package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/anand-fs/plantrack/internal/dto"
	apierrors "github.com/anand-fs/plantrack/internal/errors"
	"github.com/anand-fs/plantrack/internal/models"
	"github.com/anand-fs/plantrack/internal/repository"
	"github.com/anand-fs/plantrack/internal/services"
	"github.com/anand-fs/plantrack/internal/utils"
)

// AuditHandler exposes the audit trail
type AuditHandler struct {
	auditService *services.AuditService
}

func NewAuditHandler(auditService *services.AuditService) *AuditHandler {
	return &AuditHandler{auditService: auditService}
}

// ListAuditLogs returns audit entries newest first.
// Query: entityType, entityId, action, performedBy, from, to (RFC 3339), page, limit.
func (h *AuditHandler) ListAuditLogs(c *gin.Context) {
	filter, err := parseAuditFilter(c)
	if err != nil {
		apierrors.BadRequest(c, err.Error())
		return
	}

	logs, total, err := h.auditService.ListAuditLogs(c.Request.Context(), filter)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.AuditLogListResponse{
		AuditLogs:  logs,
		Pagination: utils.NewPaginationResponse(filter.Pagination, total),
	})
}

func parseAuditFilter(c *gin.Context) (repository.AuditLogFilter, error) {
	filter := repository.AuditLogFilter{Pagination: utils.GetPaginationParams(c)}

	if v := c.Query("entityType"); v != "" {
		entityType := models.EntityType(v)
		filter.EntityType = &entityType
	}
	if v := c.Query("entityId"); v != "" {
		id, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			return filter, errInvalidQuery("entityId")
		}
		filter.EntityID = &id
	}
	if v := c.Query("action"); v != "" {
		action := models.AuditAction(v)
		filter.Action = &action
	}
	if v := c.Query("performedBy"); v != "" {
		filter.PerformedBy = &v
	}
	if v := c.Query("from"); v != "" {
		from, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return filter, errInvalidQuery("from")
		}
		filter.From = &from
	}
	if v := c.Query("to"); v != "" {
		to, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return filter, errInvalidQuery("to")
		}
		filter.To = &to
	}
	return filter, nil
}

type errInvalidQuery string

func (e errInvalidQuery) Error() string {
	return "Invalid query parameter: " + string(e)
}
