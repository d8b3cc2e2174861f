package testutils

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/osaretin/rosca-server/internal/api"
	"github.com/osaretin/rosca-server/internal/config"
	"github.com/osaretin/rosca-server/internal/push"
	"github.com/osaretin/rosca-server/internal/ratelimit"
	"github.com/osaretin/rosca-server/internal/relay"
	"github.com/osaretin/rosca-server/internal/repository"
	"github.com/osaretin/rosca-server/internal/service"
	"github.com/stretchr/testify/assert"
)

// TestContext holds all dependencies for tests
type TestContext struct {
	Router      *gin.Engine
	Repository  repository.Repository
	Service     service.Service
	Hub         *push.Hub
	JWTSecret   []byte
	DB          *sqlx.DB
	TestUserID  string
	TestUserJWT string
}

// SetupTestContext creates a new test context with initialized dependencies.
// Tests are skipped when the test database is unreachable.
func SetupTestContext(t *testing.T) *TestContext {
	cfg := config.LoadConfig()

	// Override with test-specific config
	if cfg.Database.TestDBName != "" {
		cfg.Database.DBName = cfg.Database.TestDBName
	} else {
		cfg.Database.DBName = "rosca_test"
	}

	if cfg.Auth.JWTSecret == "" {
		cfg.Auth.JWTSecret = "test-secret-key"
	}

	db, err := config.SetupDatabase(cfg)
	if err != nil {
		t.Skipf("test database unavailable: %v", err)
	}

	repo := repository.NewPostgresRepository(db)
	hub := push.NewHub()
	rel := relay.New(repo, hub)

	// A generous join limit so tests never trip the limiter by accident.
	joinLimiter := ratelimit.New(1000, time.Minute)

	svc := service.NewDefaultService(repo, rel, joinLimiter, time.Hour)

	handler := api.NewHandler(svc, hub)

	gin.SetMode(gin.TestMode)
	router := gin.Default()

	// Add middleware for JWT secret
	router.Use(func(c *gin.Context) {
		c.Set("jwtSecret", []byte(cfg.Auth.JWTSecret))
		c.Next()
	})

	handler.SetupRoutes(router)

	cleanupTestDatabase(t, repo)

	// Users live in the external identity provider; tests only need a
	// stable id and a token signed with the shared secret.
	testUserID := uuid.New().String()
	token := MintToken(t, cfg.Auth.JWTSecret, testUserID)

	return &TestContext{
		Router:      router,
		Repository:  repo,
		Service:     svc,
		Hub:         hub,
		JWTSecret:   []byte(cfg.Auth.JWTSecret),
		DB:          db,
		TestUserID:  testUserID,
		TestUserJWT: token,
	}
}

// CleanupTestContext cleans up test resources
func CleanupTestContext(t *TestContext) {
	if t.DB != nil {
		cleanupTestDatabase(nil, t.Repository)
		t.DB.Close()
	}
}

// cleanupTestDatabase removes all rows, children before parents
func cleanupTestDatabase(t *testing.T, repo repository.Repository) {
	if pgRepo, ok := repo.(*repository.PostgresRepository); ok {
		db := pgRepo.GetDB()

		for _, table := range []string{
			"payment_logs",
			"payment_cycles",
			"notifications",
			"activity_logs",
			"members",
			"groups",
		} {
			if _, err := db.Exec("DELETE FROM " + table); err != nil && t != nil {
				t.Logf("Warning: Failed to clean %s: %v", table, err)
			}
		}
	}
}

// MintToken signs a short-lived HS256 token the way the identity provider
// would.
func MintToken(t *testing.T, jwtSecret, userID string) string {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": userID,
		"exp": time.Now().Add(24 * time.Hour).Unix(),
		"iat": time.Now().Unix(),
	})

	tokenString, err := token.SignedString([]byte(jwtSecret))
	assert.NoError(t, err, "Failed to generate JWT token")

	return tokenString
}

// PerformRequest executes an HTTP request against the router
func PerformRequest(r http.Handler, method, path string, body interface{}, headers map[string]string) *httptest.ResponseRecorder {
	var reqBody *bytes.Buffer

	if body != nil {
		jsonBody, _ := json.Marshal(body)
		reqBody = bytes.NewBuffer(jsonBody)
	} else {
		reqBody = bytes.NewBuffer(nil)
	}

	req, _ := http.NewRequest(method, path, reqBody)
	req.Header.Set("Content-Type", "application/json")

	for k, v := range headers {
		req.Header.Set(k, v)
	}

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

// AuthHeaders returns headers with Authorization token
func AuthHeaders(token string) map[string]string {
	return map[string]string{
		"Authorization": fmt.Sprintf("Bearer %s", token),
	}
}
