package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/anand-fs/plantrack/internal/auth"
	"github.com/anand-fs/plantrack/internal/constants"
	"github.com/anand-fs/plantrack/internal/database"
	"github.com/anand-fs/plantrack/internal/dto"
	"github.com/anand-fs/plantrack/internal/lifecycle"
	"github.com/anand-fs/plantrack/internal/models"
	"github.com/anand-fs/plantrack/internal/services"
)

const testSecret = "handlers-test-secret-that-is-long-enough"

type testEnv struct {
	db     *gorm.DB
	deps   services.Deps
	tokens *auth.TokenManager
	router *gin.Engine
}

func setupTestEnv(t *testing.T, ai *services.AIService) testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)
	require.NoError(t, RegisterValidators())

	db, err := database.OpenMemory()
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() {
		sqlDB.Close()
	})

	tokens, err := auth.NewTokenManager(testSecret, time.Hour)
	require.NoError(t, err)

	deps := services.NewDeps(db, lifecycle.Policy{}, ai)

	r := gin.New()
	r.Use(sessions.Sessions(constants.SessionCookieName, cookie.NewStore([]byte(testSecret))))
	r.GET("/health", Health)
	RegisterRoutes(r.Group("/api"), New(deps, tokens), tokens)

	return testEnv{db: db, deps: deps, tokens: tokens, router: r}
}

// createUser inserts a user with password "supersecret" and returns it with an access token.
func (e testEnv) createUser(t *testing.T, email string, role models.Role) (*models.User, string) {
	t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte("supersecret"), bcrypt.MinCost)
	require.NoError(t, err)
	user := &models.User{Name: email, Email: email, PasswordHash: string(hash), Role: role, Status: models.UserStatusActive}
	require.NoError(t, e.db.Create(user).Error)

	token, _, err := e.tokens.Generate(user)
	require.NoError(t, err)
	return user, token
}

func (e testEnv) do(t *testing.T, method, url string, payload interface{}, token string) *httptest.ResponseRecorder {
	t.Helper()

	var body *bytes.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		require.NoError(t, err)
		body = bytes.NewReader(raw)
	} else {
		body = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, url, body)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set(constants.HeaderAuthorization, constants.BearerPrefix+token)
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func TestAuthHandler_Register(t *testing.T) {
	env := setupTestEnv(t, nil)

	payload := map[string]string{
		"name":       "New User",
		"email":      "new@example.com",
		"password":   "supersecret",
		"department": "Ops",
	}
	w := env.do(t, http.MethodPost, "/api/auth/register", payload, "")
	require.Equal(t, http.StatusCreated, w.Code)

	var response dto.UserDTO
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	require.Equal(t, payload["email"], response.Email)
	require.Equal(t, models.RoleEmployee, response.Role)

	w = env.do(t, http.MethodPost, "/api/auth/register", payload, "")
	require.Equal(t, http.StatusConflict, w.Code)
}

func TestAuthHandler_RegisterValidation(t *testing.T) {
	env := setupTestEnv(t, nil)

	w := env.do(t, http.MethodPost, "/api/auth/register", map[string]string{
		"name": "x", "email": "not-an-email", "password": "supersecret",
	}, "")
	require.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do(t, http.MethodPost, "/api/auth/register", map[string]string{
		"name": "x", "email": "x@example.com", "password": "short",
	}, "")
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAuthHandler_Login(t *testing.T) {
	env := setupTestEnv(t, nil)
	user, _ := env.createUser(t, "existing@example.com", models.RoleManager)

	w := env.do(t, http.MethodPost, "/api/auth/login", map[string]string{
		"email":    "existing@example.com",
		"password": "supersecret",
	}, "")
	require.Equal(t, http.StatusOK, w.Code)

	var response dto.TokenResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	require.Equal(t, user.ID, response.User.ID)
	require.NotEmpty(t, response.AccessToken)

	cookies := w.Result().Cookies()
	require.NotEmpty(t, cookies)

	// the session cookie alone authenticates /me
	req := httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)
	for _, c := range cookies {
		req.AddCookie(c)
	}
	me := httptest.NewRecorder()
	env.router.ServeHTTP(me, req)
	require.Equal(t, http.StatusOK, me.Code)

	// and so does the bearer token
	me = env.do(t, http.MethodGet, "/api/auth/me", nil, response.AccessToken)
	require.Equal(t, http.StatusOK, me.Code)
}

func TestAuthHandler_LoginInvalidCredentials(t *testing.T) {
	env := setupTestEnv(t, nil)
	env.createUser(t, "existing@example.com", models.RoleEmployee)

	w := env.do(t, http.MethodPost, "/api/auth/login", map[string]string{
		"email":    "existing@example.com",
		"password": "wrongpassword",
	}, "")
	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAuthHandler_GetCurrentUserUnauthenticated(t *testing.T) {
	env := setupTestEnv(t, nil)

	w := env.do(t, http.MethodGet, "/api/auth/me", nil, "")
	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestHealth(t *testing.T) {
	env := setupTestEnv(t, nil)

	w := env.do(t, http.MethodGet, "/health", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
}
