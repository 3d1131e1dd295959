package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/ikkim/storefront-backend/internal/app/model"
	apperrors "github.com/ikkim/storefront-backend/internal/errors"
	"github.com/ikkim/storefront-backend/pkg/util"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testJWTSecret = "test-jwt-secret-for-middleware"

func setupMiddlewareTest() (*gin.Engine, *AuthMiddleware) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(LoggingMiddleware())
	return router, NewAuthMiddleware(testJWTSecret)
}

func generateTestTokens(t *testing.T, userID uint, role model.UserRole, accessExpiry time.Duration) *util.TokenPair {
	tokens, err := util.GenerateTokenPair(userID, "test@example.com", string(role), testJWTSecret, accessExpiry, 7*24*time.Hour)
	require.NoError(t, err)
	return tokens
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) apperrors.ErrorResponse {
	var body apperrors.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func TestAuthMiddleware_Authenticate(t *testing.T) {
	router, auth := setupMiddlewareTest()
	router.GET("/test", auth.Authenticate(), func(c *gin.Context) {
		userID, _ := GetUserID(c)
		role, _ := GetUserRole(c)
		c.JSON(http.StatusOK, gin.H{"user_id": userID, "role": role})
	})

	valid := generateTestTokens(t, 7, model.RoleAdmin, 15*time.Minute)
	expired := generateTestTokens(t, 7, model.RoleAdmin, -time.Minute)

	tests := []struct {
		name       string
		header     string
		query      string
		wantStatus int
		wantCode   string
	}{
		{name: "bearer header", header: "Bearer " + valid.AccessToken, wantStatus: http.StatusOK},
		{name: "query token", query: valid.AccessToken, wantStatus: http.StatusOK},
		{name: "missing", wantStatus: http.StatusUnauthorized, wantCode: apperrors.AuthUnauthorized},
		{name: "malformed header", header: "Token " + valid.AccessToken, wantStatus: http.StatusUnauthorized, wantCode: apperrors.AuthTokenInvalid},
		{name: "garbage token", header: "Bearer not-a-jwt", wantStatus: http.StatusUnauthorized, wantCode: apperrors.AuthTokenInvalid},
		{name: "expired", header: "Bearer " + expired.AccessToken, wantStatus: http.StatusUnauthorized, wantCode: apperrors.AuthTokenExpired},
		{name: "refresh token rejected", header: "Bearer " + valid.RefreshToken, wantStatus: http.StatusUnauthorized, wantCode: apperrors.AuthTokenInvalid},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			target := "/test"
			if tt.query != "" {
				target += "?token=" + tt.query
			}
			req := httptest.NewRequest(http.MethodGet, target, nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			assert.Equal(t, tt.wantStatus, w.Code)
			if tt.wantCode != "" {
				assert.Equal(t, tt.wantCode, decodeError(t, w).Error)
			}
		})
	}
}

func TestAuthMiddleware_RequireRole(t *testing.T) {
	router, auth := setupMiddlewareTest()
	router.POST("/admin", auth.Authenticate(), auth.RequireRole(model.RoleAdmin), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})

	t.Run("admin passes", func(t *testing.T) {
		tokens := generateTestTokens(t, 1, model.RoleAdmin, time.Minute)
		req := httptest.NewRequest(http.MethodPost, "/admin", nil)
		req.Header.Set("Authorization", "Bearer "+tokens.AccessToken)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusNoContent, w.Code)
	})

	t.Run("user is forbidden", func(t *testing.T) {
		tokens := generateTestTokens(t, 2, model.RoleUser, time.Minute)
		req := httptest.NewRequest(http.MethodPost, "/admin", nil)
		req.Header.Set("Authorization", "Bearer "+tokens.AccessToken)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusForbidden, w.Code)
		assert.Equal(t, apperrors.AuthzAdminOnly, decodeError(t, w).Error)
	})
}

func TestLoggingMiddleware_RequestID(t *testing.T) {
	router, _ := setupMiddlewareTest()
	router.GET("/ping", func(c *gin.Context) {
		c.String(http.StatusOK, c.GetString("request_id"))
	})

	t.Run("generated", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/ping", nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		id := w.Header().Get(RequestIDHeader)
		assert.Len(t, id, 36)
		assert.Equal(t, id, w.Body.String())
	})

	t.Run("propagated", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/ping", nil)
		req.Header.Set(RequestIDHeader, "upstream-id")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, "upstream-id", w.Header().Get(RequestIDHeader))
		assert.Equal(t, "upstream-id", w.Body.String())
	})
}
