package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"bothub/internal/cache"
	"bothub/internal/config"
	"bothub/internal/database"
	"bothub/internal/models"
	"bothub/internal/openai"
	"bothub/internal/service"

	"github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// stubProvider stands in for the OpenAI client in handler tests.
type stubProvider struct {
	reply    string
	imageURL string
	err      error
}

func (p *stubProvider) ChatCompletion(_ context.Context, _, _ string, _ []openai.Message) (string, error) {
	return p.reply, p.err
}

func (p *stubProvider) GenerateImage(_ context.Context, _, _ string) (string, error) {
	return p.imageURL, p.err
}

// newTestServer wires a full server against in-memory sqlite and miniredis.
func newTestServer(t *testing.T) (*Server, *fiber.App) {
	t.Helper()
	t.Setenv("APP_ENV", "test")

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	cache.SetClient(rdb)
	t.Cleanup(func() {
		cache.SetClient(nil)
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})

	cfg := &config.Config{
		Port:                "0",
		JWTSecret:           "test-secret-key-12345678901234567890",
		Env:                 "test",
		FeatureFlags:        "image_generation=on,paypal_payments=on",
		PayPalBusinessEmail: "merchant@bothub.example",
		PriceBasicEUR:       "9.99",
		PricePremiumEUR:     "19.99",
	}

	srv, err := NewServerWithDeps(cfg, db, rdb)
	require.NoError(t, err)

	srv.provider = &stubProvider{reply: "stub reply", imageURL: "https://img.example/out.png"}
	srv.initServices()

	app := fiber.New()
	srv.SetupMiddleware(app)
	srv.SetupRoutes(app)
	return srv, app
}

// createTestUser inserts a user directly and returns it with a valid token.
func createTestUser(t *testing.T, srv *Server, plan models.Plan, openaiKey string) (*models.User, string) {
	t.Helper()

	hashed, err := bcrypt.GenerateFromPassword([]byte("Str0ng-Passw0rd!"), bcrypt.MinCost)
	require.NoError(t, err)

	now := time.Now()
	user := &models.User{
		Name:      "Test User",
		Email:     "user" + uuidSuffix() + "@example.com",
		Password:  string(hashed),
		Plan:      plan,
		OpenAIKey: openaiKey,
		Usage:     models.UsageCounters{LastReset: now, LastMessageReset: now},
	}
	require.NoError(t, srv.userRepo.Create(context.Background(), user))

	token, err := srv.generateToken(user.ID, user.Email)
	require.NoError(t, err)
	return user, token
}

func uuidSuffix() string {
	return uuid.New().String()[:8]
}

// doJSON performs a request with an optional JSON body and bearer token and
// decodes the JSON response.
func doJSON(t *testing.T, app *fiber.App, method, path string, body any, token string) (*http.Response, map[string]any) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := app.Test(req, -1)
	require.NoError(t, err)

	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	_ = resp.Body.Close()

	var decoded map[string]any
	if len(data) > 0 && json.Valid(data) {
		require.NoError(t, json.Unmarshal(data, &decoded))
	} else if len(data) > 0 {
		decoded = map[string]any{"_raw": string(data)}
	}
	return resp, decoded
}

var _ service.ChatProvider = (*stubProvider)(nil)
