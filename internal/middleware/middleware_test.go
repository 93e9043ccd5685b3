package middleware

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"marketplace-chat/internal/auth"
	"marketplace-chat/internal/mocks"
	"marketplace-chat/internal/models"
	"marketplace-chat/internal/observability"
	"marketplace-chat/internal/repositories"
)

func newRouter(handlers ...gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/", append(handlers, func(c *gin.Context) {
		id := Identity(c)
		c.JSON(http.StatusOK, gin.H{"user": id.UserID, "role": id.Role, "request_id": observability.RequestIDFromContext(c.Request.Context())})
	})...)
	return r
}

func TestAuthMiddleware(t *testing.T) {
	validator := auth.NewJWTValidator("secret")
	token, err := validator.Sign("u-1", auth.RoleAdmin, time.Hour)
	require.NoError(t, err)
	router := newRouter(AuthMiddleware(validator))

	tests := []struct {
		name   string
		header string
		status int
	}{
		{"missing header", "", http.StatusUnauthorized},
		{"wrong scheme", "Basic abc", http.StatusUnauthorized},
		{"bad token", "Bearer nope", http.StatusUnauthorized},
		{"valid token", "Bearer " + token, http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)
			assert.Equal(t, tt.status, rec.Code)
		})
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "u-1", body["user"])
	assert.Equal(t, auth.RoleAdmin, body["role"])
}

func withUser(id string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(ContextUserID, id)
		c.Next()
	}
}

func TestRequireActiveUser(t *testing.T) {
	const (
		active   = "5b0d1c1e-4a55-4a0e-9a57-2f6a3d9c0001"
		disabled = "5b0d1c1e-4a55-4a0e-9a57-2f6a3d9c0002"
		ghost    = "5b0d1c1e-4a55-4a0e-9a57-2f6a3d9c0003"
		broken   = "5b0d1c1e-4a55-4a0e-9a57-2f6a3d9c0004"
	)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	users := new(mocks.DirectoryRepositoryMock)
	users.On("GetUser", mock.Anything, active).Return(models.User{ID: active}, nil)
	users.On("GetUser", mock.Anything, disabled).Return(models.User{ID: disabled, IsDisabled: true}, nil)
	users.On("GetUser", mock.Anything, ghost).Return(nil, repositories.ErrUserNotFound)
	users.On("GetUser", mock.Anything, broken).Return(nil, errors.New("db down"))

	tests := []struct {
		name   string
		user   string
		status int
	}{
		{"active", active, http.StatusOK},
		{"disabled", disabled, http.StatusForbidden},
		{"unknown", ghost, http.StatusNotFound},
		{"lookup failure", broken, http.StatusInternalServerError},
		{"malformed subject", "u-1", http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := newRouter(withUser(tt.user), RequireActiveUser(users, logger))
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
			assert.Equal(t, tt.status, rec.Code)
		})
	}
	users.AssertNotCalled(t, "GetUser", mock.Anything, "u-1")
}

func TestRequestID(t *testing.T) {
	router := newRouter(RequestID())

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(HeaderRequestID, "req-42")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, "req-42", rec.Header().Get(HeaderRequestID))
	assert.Contains(t, rec.Body.String(), `"request_id":"req-42"`)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Len(t, rec.Header().Get(HeaderRequestID), 36)
}

var _ UserLookup = (*mocks.DirectoryRepositoryMock)(nil)
