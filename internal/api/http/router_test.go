package http

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/account-service/internal/api/http/handlers"
	"github.com/spec-kit/account-service/internal/auth"
	"github.com/spec-kit/account-service/internal/config"
	"github.com/spec-kit/account-service/internal/events"
	"github.com/spec-kit/account-service/internal/observability"
	"github.com/spec-kit/account-service/internal/persistence"
	"github.com/spec-kit/account-service/internal/service"
	"github.com/spec-kit/account-service/internal/store"
)

type envelope struct {
	Data  json.RawMessage `json:"data"`
	Error *struct {
		Code    string         `json:"code"`
		Message string         `json:"message"`
		Details map[string]any `json:"details"`
	} `json:"error"`
}

type userBody struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	Email         string `json:"email"`
	Password      string `json:"password"`
	Role          string `json:"role"`
	Status        string `json:"status"`
	SuspensionEnd string `json:"suspension_end"`
	UnreadCount   int    `json:"unread_count"`
	Notifications []struct {
		Message string `json:"message"`
		Read    bool   `json:"read"`
	} `json:"notifications"`
	Preferences struct {
		PushEnabled  bool `json:"push_enabled"`
		EmailEnabled bool `json:"email_enabled"`
		SMSEnabled   bool `json:"sms_enabled"`
	} `json:"preferences"`
}

type sessionBody struct {
	User userBody `json:"user"`
	Auth struct {
		Token string `json:"token"`
	} `json:"auth"`
}

func newTestApp(t *testing.T) (*fiber.App, *store.UserStore) {
	t.Helper()
	logger := zap.NewNop()
	cfg := config.Config{
		App:  config.AppConfig{Name: "innout-account-service", Version: "test"},
		Auth: config.AuthConfig{JWTSecret: "test-secret", AccessTokenTTLMinutes: 5},
	}
	kv := persistence.NewMemory()
	st := store.New(kv, store.Options{KeyPrefix: "innout_", Logger: logger})
	require.NoError(t, st.Load(context.Background()))

	dispatcher := events.NewInMemoryDispatcher()
	service.NewNotificationService(dispatcher, st, logger, cfg.Notification).RegisterHandlers()
	accounts := service.NewAccountService(cfg, service.AccountDependencies{Store: st, Dispatcher: dispatcher, Logger: logger})
	metrics := observability.NewMetrics()

	app := fiber.New()
	RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())
	RegisterRoutes(app, RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, config.BackendMemory, kv, metrics),
		Users:          handlers.NewUsersHandler(accounts),
		Session:        handlers.NewSessionHandler(accounts, service.NewProfileService(accounts)),
		Admin:          handlers.NewAdminHandler(accounts),
		AuthMiddleware: auth.NewAuthMiddleware(accounts.TokenManager(), st),
	})
	return app, st
}

func do(t *testing.T, app *fiber.App, method, path, token string, body any) (int, envelope) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
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
	defer resp.Body.Close()

	var env envelope
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	if len(raw) > 0 {
		require.NoError(t, json.Unmarshal(raw, &env), string(raw))
	}
	return resp.StatusCode, env
}

func decode[T any](t *testing.T, env envelope) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(env.Data, &out))
	return out
}

func login(t *testing.T, app *fiber.App, email, password string) sessionBody {
	t.Helper()
	status, env := do(t, app, http.MethodPost, "/auth/login", "", map[string]string{"email": email, "password": password})
	require.Equal(t, http.StatusOK, status)
	return decode[sessionBody](t, env)
}

func TestRegisterLoginScenario(t *testing.T) {
	app, _ := newTestApp(t)

	status, env := do(t, app, http.MethodPost, "/auth/register", "", map[string]string{
		"name": "Alice", "email": "a@x.com", "phone": "555", "password": "Secret1A",
	})
	require.Equal(t, http.StatusCreated, status)
	registered := decode[sessionBody](t, env)
	assert.Equal(t, "Alice", registered.User.Name)
	assert.Equal(t, "customer", registered.User.Role)
	assert.Empty(t, registered.User.Password, "passwords are never serialized")
	assert.NotEmpty(t, registered.Auth.Token)

	token := login(t, app, "a@x.com", "Secret1A").Auth.Token

	status, env = do(t, app, http.MethodPost, "/auth/login", "", map[string]string{"email": "a@x.com", "password": "wrong"})
	assert.Equal(t, http.StatusUnauthorized, status)
	require.NotNil(t, env.Error)
	assert.Equal(t, "INVALID_CREDENTIALS", env.Error.Code)

	status, env = do(t, app, http.MethodGet, "/session", token, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "Alice", decode[userBody](t, env).Name)

	status, _ = do(t, app, http.MethodPost, "/auth/logout", "", nil)
	assert.Equal(t, http.StatusUnauthorized, status)
	status, _ = do(t, app, http.MethodPost, "/auth/logout", token, nil)
	require.Equal(t, http.StatusOK, status)
	status, env = do(t, app, http.MethodGet, "/session", token, nil)
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "NOT_FOUND", env.Error.Code)
}

func TestRegisterRequiresFields(t *testing.T) {
	app, _ := newTestApp(t)

	status, env := do(t, app, http.MethodPost, "/auth/register", "", map[string]string{"email": "a@x.com"})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "BAD_REQUEST", env.Error.Code)
}

func TestProfileEndpoints(t *testing.T) {
	app, _ := newTestApp(t)
	_, env := do(t, app, http.MethodPost, "/auth/register", "", map[string]string{
		"name": "Alice", "email": "a@x.com", "phone": "555", "password": "Secret1A",
	})
	token := decode[sessionBody](t, env).Auth.Token

	status, env := do(t, app, http.MethodPatch, "/session/profile", token, map[string]any{
		"name": "Alice B", "password": "weak", "confirm_password": "weak",
	})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "VALIDATION_FAILED", env.Error.Code)
	assert.Equal(t, "password", env.Error.Details["field"])

	status, env = do(t, app, http.MethodPatch, "/session/profile", token, map[string]any{
		"name":        "Alice B",
		"preferences": map[string]bool{"push_enabled": false, "email_enabled": true, "sms_enabled": true},
	})
	require.Equal(t, http.StatusOK, status)
	updated := decode[userBody](t, env)
	assert.Equal(t, "Alice B", updated.Name)
	assert.True(t, updated.Preferences.SMSEnabled)
	assert.False(t, updated.Preferences.PushEnabled)

	status, env = do(t, app, http.MethodPut, "/session/preferences/EMAIL", token, nil)
	require.Equal(t, http.StatusOK, status)
	toggled := decode[struct {
		Channel string `json:"channel"`
		Enabled bool   `json:"enabled"`
	}](t, env)
	assert.Equal(t, "email", toggled.Channel)
	assert.False(t, toggled.Enabled)

	status, _ = do(t, app, http.MethodPut, "/session/preferences/fax", token, nil)
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestSessionRoutesRequireSessionOwner(t *testing.T) {
	app, _ := newTestApp(t)
	admin := login(t, app, "admin@gmail.com", "admin123")

	status, env := do(t, app, http.MethodPatch, "/session/profile", "", map[string]any{
		"password": "Pwned123", "confirm_password": "Pwned123",
	})
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, "UNAUTHORIZED", env.Error.Code)
	for _, route := range []struct{ method, path string }{
		{http.MethodGet, "/session"},
		{http.MethodPut, "/session/preferences/sms"},
		{http.MethodPost, "/session/notifications/read"},
		{http.MethodPost, "/auth/logout"},
	} {
		status, _ = do(t, app, route.method, route.path, "", nil)
		assert.Equal(t, http.StatusUnauthorized, status, route.path)
	}

	status, env = do(t, app, http.MethodPost, "/admin/users", admin.Auth.Token, map[string]string{
		"name": "Bob", "email": "b@x.com", "password": "Secret1B",
	})
	require.Equal(t, http.StatusCreated, status)
	bob := login(t, app, "b@x.com", "Secret1B")
	admin = login(t, app, "admin@gmail.com", "admin123")

	status, env = do(t, app, http.MethodPatch, "/session/profile", bob.Auth.Token, map[string]any{
		"password": "Pwned123", "confirm_password": "Pwned123",
	})
	assert.Equal(t, http.StatusForbidden, status)
	assert.Equal(t, "FORBIDDEN", env.Error.Code)
	status, _ = do(t, app, http.MethodPost, "/auth/logout", bob.Auth.Token, nil)
	assert.Equal(t, http.StatusForbidden, status)

	status, env = do(t, app, http.MethodGet, "/session", admin.Auth.Token, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "admin", decode[userBody](t, env).ID)
	login(t, app, "admin@gmail.com", "admin123")
}

func TestAdminRoutesRequireAdmin(t *testing.T) {
	app, _ := newTestApp(t)

	status, env := do(t, app, http.MethodGet, "/admin/users", "", nil)
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, "UNAUTHORIZED", env.Error.Code)

	_, env = do(t, app, http.MethodPost, "/auth/register", "", map[string]string{
		"name": "Alice", "email": "a@x.com", "phone": "555", "password": "Secret1A",
	})
	customer := decode[sessionBody](t, env)
	status, env = do(t, app, http.MethodGet, "/admin/users", customer.Auth.Token, nil)
	assert.Equal(t, http.StatusForbidden, status)
	assert.Equal(t, "FORBIDDEN", env.Error.Code)
}

func TestAdminSuspensionFlow(t *testing.T) {
	app, _ := newTestApp(t)
	admin := login(t, app, "admin@gmail.com", "admin123")
	token := admin.Auth.Token

	status, env := do(t, app, http.MethodPost, "/admin/users", token, map[string]string{
		"name": "Bob", "email": "b@x.com", "phone": "1", "password": "pw",
	})
	require.Equal(t, http.StatusCreated, status)
	bob := decode[userBody](t, env)

	status, env = do(t, app, http.MethodPost, "/admin/users/"+bob.ID+"/suspend", token, map[string]string{
		"until": "2024-04-01", "reason": "abuse",
	})
	require.Equal(t, http.StatusOK, status)
	suspended := decode[userBody](t, env)
	assert.Equal(t, "Suspended", suspended.Status)
	assert.Equal(t, "2024-04-01", suspended.SuspensionEnd)

	status, env = do(t, app, http.MethodGet, "/admin/users?status=suspended", token, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Len(t, decode[[]userBody](t, env), 1)

	status, env = do(t, app, http.MethodPost, "/admin/users/"+bob.ID+"/lift", token, nil)
	require.Equal(t, http.StatusOK, status)
	lifted := decode[userBody](t, env)
	assert.Equal(t, "Active", lifted.Status)
	assert.Empty(t, lifted.SuspensionEnd)
	require.Len(t, lifted.Notifications, 2)
	assert.Equal(t, store.LiftMessage, lifted.Notifications[0].Message)
	assert.Equal(t, 2, lifted.UnreadCount)

	status, _ = do(t, app, http.MethodPost, "/admin/users/"+bob.ID+"/notifications", token, map[string]string{"message": "Order approved"})
	assert.Equal(t, http.StatusCreated, status)

	bobToken := login(t, app, "b@x.com", "pw").Auth.Token
	status, env = do(t, app, http.MethodPost, "/session/notifications/read", bobToken, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Zero(t, decode[userBody](t, env).UnreadCount)
}

func TestAdminUpdateAndDelete(t *testing.T) {
	app, st := newTestApp(t)
	token := login(t, app, "admin@gmail.com", "admin123").Auth.Token

	status, env := do(t, app, http.MethodPatch, "/admin/users/admin", token, map[string]string{"role": "root"})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "VALIDATION_FAILED", env.Error.Code)
	status, _ = do(t, app, http.MethodPatch, "/admin/users/admin", token, map[string]string{"status": "Paused"})
	assert.Equal(t, http.StatusBadRequest, status)

	status, env = do(t, app, http.MethodDelete, "/admin/users/admin", token, nil)
	assert.Equal(t, http.StatusForbidden, status)
	assert.Equal(t, "FORBIDDEN", env.Error.Code)

	status, _ = do(t, app, http.MethodDelete, "/admin/users/nope", token, nil)
	assert.Equal(t, http.StatusNotFound, status)

	status, _ = do(t, app, http.MethodPatch, "/admin/users/admin", token, map[string]string{})
	assert.Equal(t, http.StatusBadRequest, status)

	status, env = do(t, app, http.MethodPatch, "/admin/users/admin", token, map[string]string{"name": "Root"})
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "Root", decode[userBody](t, env).Name)

	_, env = do(t, app, http.MethodPost, "/admin/users", token, map[string]string{"name": "Bob", "email": "b@x.com"})
	bob := decode[userBody](t, env)
	status, _ = do(t, app, http.MethodDelete, "/admin/users/"+bob.ID, token, nil)
	assert.Equal(t, http.StatusNoContent, status)
	assert.Len(t, st.Users(), 1)
}

func TestHealthAndUnknownRoute(t *testing.T) {
	app, _ := newTestApp(t)

	status, _ := do(t, app, http.MethodGet, "/health/live", "", nil)
	assert.Equal(t, http.StatusOK, status)
	status, _ = do(t, app, http.MethodGet, "/health/ready", "", nil)
	assert.Equal(t, http.StatusOK, status)

	status, env := do(t, app, http.MethodGet, "/menu", "", nil)
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "NOT_FOUND", env.Error.Code)

	token := login(t, app, "admin@gmail.com", "admin123").Auth.Token
	status, env = do(t, app, http.MethodGet, "/admin/metrics", token, nil)
	require.Equal(t, http.StatusOK, status)
	metrics := decode[observability.MetricsSnapshot](t, env)
	assert.Equal(t, int64(1), metrics.Requests["/health/live|GET|200"])
	assert.Equal(t, int64(1), metrics.Errors["/menu|GET|NOT_FOUND"])
}
