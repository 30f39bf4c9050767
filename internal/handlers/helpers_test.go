package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"portfolio-site-api/internal/auth"
	"portfolio-site-api/internal/blog"
	"portfolio-site-api/internal/cache"
	"portfolio-site-api/internal/config"
	"portfolio-site-api/internal/contact"
	"portfolio-site-api/internal/media"
	"portfolio-site-api/internal/middleware"
	"portfolio-site-api/internal/realtime"
	"portfolio-site-api/internal/settings"
	"portfolio-site-api/internal/store"
	"portfolio-site-api/internal/testutil"
)

const (
	testAdminEmail    = "admin@example.com"
	testAdminPassword = "correct-horse"
)

type memoryObjects struct {
	mu   sync.Mutex
	keys []string
}

func (m *memoryObjects) PutObject(ctx context.Context, key string, body []byte, contentType string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.keys = append(m.keys, key)
	return nil
}

func (m *memoryObjects) PublicURL(key string) string {
	return "https://cdn.example.com/" + key
}

type testServer struct {
	router  *gin.Engine
	tokens  *auth.TokenManager
	hub     *realtime.Hub
	objects *memoryObjects
	token   string
}

// newTestServer wires every service on an in-memory database the same way the
// server command does and mounts the routes under test.
func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := testutil.NewInMemoryDB()
	require.NoError(t, err)

	hash, err := bcrypt.GenerateFromPassword([]byte(testAdminPassword), bcrypt.MinCost)
	require.NoError(t, err)
	authCfg := config.AuthConfig{
		JWTSecret:         "handlers-secret",
		Issuer:            "portfolio-site-api",
		Audience:          "portfolio-site-admin",
		TokenTTL:          time.Hour,
		AdminEmail:        testAdminEmail,
		AdminPasswordHash: string(hash),
	}
	tokens := auth.NewTokenManager(authCfg)
	hub := realtime.NewHub()
	objects := &memoryObjects{}

	h := New(Deps{
		Settings: settings.NewService(store.NewSettingsRepository(db), cache.Policy{Fresh: 10 * time.Minute, Retain: time.Hour}, hub, nil),
		Blog:     blog.NewService(store.NewBlogRepository(db), cache.Policy{Fresh: 5 * time.Minute, Retain: 30 * time.Minute}, hub, nil),
		Contact:  contact.NewService(store.NewContactRepository(db), nil, ""),
		Uploads:  media.NewUploader(objects, media.DefaultMaxBytes),
		Auth:     auth.NewAuthenticator(authCfg, tokens),
		Hub:      hub,
	})

	r := gin.New()
	r.POST("/api/login", h.Login)
	r.GET("/api/settings", h.GetAllSettings)
	r.GET("/api/settings/:key", h.GetSetting)
	r.GET("/api/posts", h.GetPublishedPosts)
	r.GET("/api/posts/:id", h.GetPublishedPost)
	r.POST("/api/contact", h.SubmitContact)
	r.GET("/ws", h.PublicWebSocket)

	admin := r.Group("/api/admin")
	admin.Use(middleware.JWTAuthMiddleware(tokens))
	{
		admin.PUT("/settings/:key", h.UpdateSetting)
		admin.GET("/posts", h.GetAllPosts)
		admin.GET("/posts/:id", h.GetPost)
		admin.POST("/posts", h.CreatePost)
		admin.PATCH("/posts/:id", h.UpdatePost)
		admin.POST("/posts/:id/toggle-published", h.TogglePublished)
		admin.DELETE("/posts/:id", h.DeletePost)
		admin.POST("/uploads", h.UploadImage)
		admin.GET("/dashboard", h.Dashboard)
		admin.GET("/ws", h.AdminWebSocket)
	}

	token, _, err := tokens.GenerateToken(testAdminEmail)
	require.NoError(t, err)
	return &testServer{router: r, tokens: tokens, hub: hub, objects: objects, token: token}
}

// do sends a request, attaching the admin token for /api/admin paths.
func (s *testServer) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(b))
	default:
		data, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if strings.HasPrefix(path, "/api/admin") {
		req.Header.Set("Authorization", "Bearer "+s.token)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}
