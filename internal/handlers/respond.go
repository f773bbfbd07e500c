package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/anand-fs/plantrack/internal/audit"
	"github.com/anand-fs/plantrack/internal/cascade"
	apierrors "github.com/anand-fs/plantrack/internal/errors"
	"github.com/anand-fs/plantrack/internal/lifecycle"
	"github.com/anand-fs/plantrack/internal/logging"
	"github.com/anand-fs/plantrack/internal/middleware"
	"github.com/anand-fs/plantrack/internal/services"
)

const retryMessage = "cancellation failed, nothing was changed, please retry"

// parseID reads a numeric path parameter and answers 400 when it is malformed.
func parseID(c *gin.Context, name string) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		apierrors.BadRequest(c, "Invalid "+name)
		return 0, false
	}
	return id, true
}

// currentActor answers 401 when the request carries no identity.
func currentActor(c *gin.Context) (services.Actor, bool) {
	actor, ok := middleware.GetActor(c)
	if !ok {
		apierrors.Unauthorized(c, "Not authenticated")
		return services.Actor{}, false
	}
	return actor, true
}

// respondServiceError maps domain errors onto API error responses.
func respondServiceError(c *gin.Context, err error) {
	var transitionErr *lifecycle.TransitionError

	switch {
	case errors.Is(err, services.ErrPlanNotFound),
		errors.Is(err, services.ErrMilestoneNotFound),
		errors.Is(err, services.ErrInitiativeNotFound),
		errors.Is(err, services.ErrCommentNotFound),
		errors.Is(err, services.ErrUserNotFound),
		errors.Is(err, cascade.ErrNotFound):
		apierrors.NotFound(c, err.Error())
	case errors.Is(err, services.ErrInvalidReference):
		apierrors.RespondWithError(c, http.StatusBadRequest,
			apierrors.NewAPIError(apierrors.ErrCodeInvalidReference, err.Error()))
	case errors.Is(err, services.ErrNoAssigneesProvided),
		errors.Is(err, services.ErrTitleRequired),
		errors.Is(err, services.ErrTitleEmpty),
		errors.Is(err, services.ErrBodyRequired),
		errors.Is(err, services.ErrInvalidRole),
		errors.Is(err, services.ErrInvalidUserStatus),
		errors.Is(err, cascade.ErrInvalidTarget),
		errors.Is(err, cascade.ErrUnsupportedRoot):
		apierrors.BadRequest(c, err.Error())
	case errors.Is(err, services.ErrForbidden):
		apierrors.Forbidden(c, err.Error())
	case errors.Is(err, cascade.ErrConcurrentModification):
		apierrors.ConflictWithCode(c, apierrors.ErrCodeConcurrentModification, retryMessage, nil)
	case errors.As(err, &transitionErr):
		apierrors.UnprocessableEntity(c, apierrors.ErrCodeTransitionRejected, err.Error(), gin.H{
			"from":   transitionErr.From,
			"to":     transitionErr.To,
			"reason": transitionErr.Reason,
		})
	case errors.Is(err, services.ErrParentClosed),
		errors.Is(err, services.ErrCascadeRequired):
		apierrors.UnprocessableEntity(c, apierrors.ErrCodeInvalidOperation, err.Error(), nil)
	case errors.Is(err, services.ErrHasOpenChildren):
		apierrors.Conflict(c, err.Error())
	case errors.Is(err, services.ErrAIServiceNotConfigured):
		apierrors.ServiceUnavailable(c, err.Error())
	case errors.Is(err, services.ErrAINoInitiativesGenerated),
		errors.Is(err, services.ErrAINoValidInitiatives):
		apierrors.UnprocessableEntity(c, apierrors.ErrCodeOperationFailed, err.Error(), nil)
	case errors.Is(err, audit.ErrInvalidEntry):
		logging.WithContext(c.Request.Context()).WithError(err).Error("Rejected audit entry")
		apierrors.InternalError(c, "")
	default:
		logging.WithContext(c.Request.Context()).WithError(err).Error("Request failed")
		apierrors.InternalError(c, "")
	}
}

// respondCascadeError keeps the retry wording for any failed cascade execution.
func respondCascadeError(c *gin.Context, err error) {
	var transitionErr *lifecycle.TransitionError
	switch {
	case errors.Is(err, cascade.ErrNotFound),
		errors.Is(err, cascade.ErrInvalidTarget),
		errors.Is(err, cascade.ErrConcurrentModification),
		errors.As(err, &transitionErr):
		respondServiceError(c, err)
	default:
		logging.WithContext(c.Request.Context()).WithError(err).Error("Cascade failed")
		apierrors.InternalError(c, retryMessage)
	}
}
