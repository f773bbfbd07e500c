package constants

// Context keys
const (
	ContextKeyUserID    = "user_id"
	ContextKeyUserRole  = "user_role"
	ContextKeyUserEmail = "user_email"
	ContextKeyRequestID = "request_id"
)

// Session
const (
	SessionCookieName = "plantrack_session"
	SessionMaxAge     = 86400 * 7
)

// Validation
const (
	MinPasswordLength = 8
	MinSecretLength   = 32
)

// Pagination
const (
	MinPageSize     = 1
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// AI
const (
	MaxAIGeneratedInitiatives = 20
)

// HTTP headers
const (
	HeaderRequestID     = "X-Request-ID"
	HeaderAuthorization = "Authorization"
	BearerPrefix        = "Bearer "
)
