package middleware

import (
	"strings"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"

	"github.com/anand-fs/plantrack/internal/auth"
	"github.com/anand-fs/plantrack/internal/constants"
	apierrors "github.com/anand-fs/plantrack/internal/errors"
	"github.com/anand-fs/plantrack/internal/logging"
	"github.com/anand-fs/plantrack/internal/models"
	"github.com/anand-fs/plantrack/internal/services"
)

// RequireAuth accepts a Bearer access token and falls back to the session cookie
func RequireAuth(tokens *auth.TokenManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		if header := c.GetHeader(constants.HeaderAuthorization); strings.HasPrefix(header, constants.BearerPrefix) {
			claims, err := tokens.Validate(strings.TrimPrefix(header, constants.BearerPrefix))
			if err != nil {
				logging.WithContext(c.Request.Context()).WithError(err).Debug("Rejected access token")
				apierrors.Unauthorized(c, "Invalid or expired token")
				c.Abort()
				return
			}
			setIdentity(c, claims.UserID, claims.Email, claims.Role)
			c.Next()
			return
		}

		session := sessions.Default(c)
		userID := session.Get(constants.ContextKeyUserID)
		if userID == nil {
			apierrors.Unauthorized(c, "")
			c.Abort()
			return
		}

		c.Set(constants.ContextKeyUserID, userID)
		if email, ok := session.Get(constants.ContextKeyUserEmail).(string); ok {
			c.Set(constants.ContextKeyUserEmail, email)
		}
		if role, ok := session.Get(constants.ContextKeyUserRole).(string); ok {
			c.Set(constants.ContextKeyUserRole, models.Role(role))
		}
		c.Next()
	}
}

// RequireRole rejects callers whose role is not in the allowed list
func RequireRole(roles ...models.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		role, ok := GetUserRole(c)
		if !ok {
			apierrors.Unauthorized(c, "")
			c.Abort()
			return
		}
		for _, allowed := range roles {
			if role == allowed {
				c.Next()
				return
			}
		}
		apierrors.Forbidden(c, "Insufficient permissions for this action")
		c.Abort()
	}
}

// SaveSession stores the user's identity in the session cookie
func SaveSession(c *gin.Context, user *models.User) error {
	session := sessions.Default(c)
	session.Set(constants.ContextKeyUserID, user.ID)
	session.Set(constants.ContextKeyUserEmail, user.Email)
	session.Set(constants.ContextKeyUserRole, string(user.Role))
	return session.Save()
}

func setIdentity(c *gin.Context, userID uint64, email string, role models.Role) {
	c.Set(constants.ContextKeyUserID, userID)
	c.Set(constants.ContextKeyUserEmail, email)
	c.Set(constants.ContextKeyUserRole, role)
}

// GetUserID retrieves the current user ID from context
func GetUserID(c *gin.Context) (uint64, bool) {
	userID, exists := c.Get(constants.ContextKeyUserID)
	if !exists {
		return 0, false
	}

	switch v := userID.(type) {
	case uint64:
		return v, true
	case uint:
		return uint64(v), true
	case int:
		if v < 0 {
			return 0, false
		}
		return uint64(v), true
	default:
		return 0, false
	}
}

// GetUserRole retrieves the current user's role from context
func GetUserRole(c *gin.Context) (models.Role, bool) {
	value, exists := c.Get(constants.ContextKeyUserRole)
	if !exists {
		return "", false
	}
	switch v := value.(type) {
	case models.Role:
		return v, true
	case string:
		return models.Role(v), true
	default:
		return "", false
	}
}

// GetActor builds the service-level caller from the request context
func GetActor(c *gin.Context) (services.Actor, bool) {
	userID, ok := GetUserID(c)
	if !ok {
		return services.Actor{}, false
	}
	role, _ := GetUserRole(c)
	return services.Actor{
		ID:    userID,
		Email: c.GetString(constants.ContextKeyUserEmail),
		Role:  role,
	}, true
}
