package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"portfolio-site-api/internal/auth"
	"portfolio-site-api/internal/config"
)

func testTokens() *auth.TokenManager {
	return auth.NewTokenManager(config.AuthConfig{
		JWTSecret: "middleware-secret",
		Issuer:    "portfolio-site-api",
		Audience:  "portfolio-site-admin",
		TokenTTL:  time.Hour,
	})
}

func protectedRouter(tokens *auth.TokenManager) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(JWTAuthMiddleware(tokens))
	r.GET("/protected", func(c *gin.Context) {
		c.String(http.StatusOK, c.GetString(ContextAdminEmail))
	})
	return r
}

func TestJWTAuthMiddleware_Success(t *testing.T) {
	tokens := testTokens()
	r := protectedRouter(tokens)

	token, _, err := tokens.GenerateToken("admin@example.com")
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()

	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "admin@example.com", w.Body.String())
}

func TestJWTAuthMiddleware_QueryTokenFallback(t *testing.T) {
	tokens := testTokens()
	r := protectedRouter(tokens)

	token, _, err := tokens.GenerateToken("admin@example.com")
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodGet, "/protected?token="+token, nil)
	w := httptest.NewRecorder()

	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
}

func TestJWTAuthMiddleware_MissingHeader(t *testing.T) {
	r := protectedRouter(testTokens())

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	w := httptest.NewRecorder()

	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusUnauthorized, w.Code)
	require.Contains(t, w.Body.String(), "Authorization token is required")
}

func TestJWTAuthMiddleware_InvalidToken(t *testing.T) {
	r := protectedRouter(testTokens())

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer not-a-jwt")
	w := httptest.NewRecorder()

	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusUnauthorized, w.Code)
	require.Contains(t, w.Body.String(), "Invalid or expired token")
}
