package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/account-service/internal/config"
	"github.com/spec-kit/account-service/internal/domain"
	apperrors "github.com/spec-kit/account-service/pkg/util/errorutil"
)

func TestPlaintextPolicy(t *testing.T) {
	p := PlaintextPolicy{}
	stored, err := p.Hash("Secret1A")
	require.NoError(t, err)
	assert.Equal(t, "Secret1A", stored)
	assert.True(t, p.Matches(stored, "Secret1A"))
	assert.False(t, p.Matches(stored, "secret1a"))
}

func TestBcryptPolicy(t *testing.T) {
	p := BcryptPolicy{Cost: 4}
	stored, err := p.Hash("Secret1A")
	require.NoError(t, err)
	assert.NotEqual(t, "Secret1A", stored)
	assert.True(t, p.Matches(stored, "Secret1A"))
	assert.False(t, p.Matches(stored, "Secret1B"))
	assert.False(t, p.Matches("plaintext-from-old-snapshot", "plaintext-from-old-snapshot"))
}

func TestNewPasswordPolicy(t *testing.T) {
	p, err := NewPasswordPolicy(config.AuthConfig{PasswordPolicy: config.PasswordPolicyPlaintext})
	require.NoError(t, err)
	assert.IsType(t, PlaintextPolicy{}, p)

	p, err = NewPasswordPolicy(config.AuthConfig{PasswordPolicy: config.PasswordPolicyBcrypt, BcryptCost: 99})
	require.NoError(t, err)
	assert.Equal(t, BcryptPolicy{Cost: 10}, p)

	_, err = NewPasswordPolicy(config.AuthConfig{PasswordPolicy: "md5"})
	assert.Error(t, err)
}

func TestTokenRoundTrip(t *testing.T) {
	tm := NewTokenManager("secret", 5)
	token, exp, err := tm.GenerateToken(domain.User{ID: "u1", Role: domain.RoleAdmin})
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(5*time.Minute), exp, 5*time.Second)

	claims, err := tm.ParseToken(token)
	require.NoError(t, err)
	assert.Equal(t, "u1", claims.SubjectID)
	assert.Equal(t, domain.RoleAdmin, claims.Role)

	_, err = NewTokenManager("other", 5).ParseToken(token)
	assert.Error(t, err)
}

func TestExpiredTokenRejected(t *testing.T) {
	tm := NewTokenManager("secret", 1)
	tm.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	token, _, err := tm.GenerateToken(domain.User{ID: "u1"})
	require.NoError(t, err)

	_, err = NewTokenManager("secret", 1).ParseToken(token)
	assert.Error(t, err)
}

type lookupMap map[string]domain.User

func (m lookupMap) User(id string) (domain.User, bool) {
	u, ok := m[id]
	return u, ok
}

func newProtectedApp(tm *TokenManager, users UserLookup) *fiber.App {
	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			de := apperrors.ToDomainError(err)
			return c.Status(de.HTTPStatus).SendString(de.Code)
		},
	})
	mw := NewAuthMiddleware(tm, users)
	app.Get("/admin", mw.Handle, RequireRole(domain.RoleAdmin), func(c *fiber.Ctx) error {
		p, _ := PrincipalFromContext(c)
		return c.SendString(p.User.ID)
	})
	return app
}

func TestMiddlewareEnforcesRole(t *testing.T) {
	tm := NewTokenManager("secret", 5)
	users := lookupMap{
		"admin": {ID: "admin", Role: domain.RoleAdmin},
		"c1":    {ID: "c1", Role: domain.RoleCustomer},
	}
	app := newProtectedApp(tm, users)

	adminToken, _, err := tm.GenerateToken(users["admin"])
	require.NoError(t, err)
	customerToken, _, err := tm.GenerateToken(users["c1"])
	require.NoError(t, err)
	ghostToken, _, err := tm.GenerateToken(domain.User{ID: "ghost", Role: domain.RoleAdmin})
	require.NoError(t, err)

	cases := []struct {
		name   string
		header string
		status int
	}{
		{"missing header", "", http.StatusUnauthorized},
		{"wrong scheme", "Basic abc", http.StatusUnauthorized},
		{"garbage token", "Bearer abc", http.StatusUnauthorized},
		{"deleted user", "Bearer " + ghostToken, http.StatusUnauthorized},
		{"customer", "Bearer " + customerToken, http.StatusForbidden},
		{"admin", "Bearer " + adminToken, http.StatusOK},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/admin", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			resp, err := app.Test(req)
			require.NoError(t, err)
			assert.Equal(t, tc.status, resp.StatusCode)
		})
	}
}
