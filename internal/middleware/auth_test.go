package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"urbanfix/internal/config"
	"urbanfix/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret-key-12345678901234567890123456789012"

func initTestAuth() {
	InitMiddleware(&config.Config{
		JWTSecret:   testSecret,
		JWTIssuer:   "urbanfix-identity",
		JWTAudience: "urbanfix-api",
	})
}

func signToken(t *testing.T, sub, role, issuer string, exp time.Duration) string {
	t.Helper()
	claims := IdentityClaims{
		Email: "citizen@example.com",
		Role:  role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   sub,
			Issuer:    issuer,
			Audience:  jwt.ClaimStrings{"urbanfix-api"},
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(exp)),
		},
	}
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	require.NoError(t, err)
	return s
}

func TestAuthRequired(t *testing.T) {
	initTestAuth()
	app := fiber.New()
	app.Get("/test", AuthRequired, func(c *fiber.Ctx) error {
		p, _ := PrincipalFrom(c)
		return c.JSON(fiber.Map{"user_id": p.UserID.String(), "role": p.Role})
	})

	userID := uuid.New()

	tests := []struct {
		name           string
		authHeader     string
		expectedStatus int
		expectedRole   string
	}{
		{"happy path", "Bearer " + signToken(t, userID.String(), "ngo", "urbanfix-identity", time.Hour), http.StatusOK, "ngo"},
		{"role defaults to user", "Bearer " + signToken(t, userID.String(), "", "urbanfix-identity", time.Hour), http.StatusOK, "user"},
		{"missing header", "", http.StatusUnauthorized, ""},
		{"invalid format", "Basic dXNlcjpwYXNz", http.StatusUnauthorized, ""},
		{"malformed token", "Bearer malformed.token.here", http.StatusUnauthorized, ""},
		{"expired token", "Bearer " + signToken(t, userID.String(), "user", "urbanfix-identity", -time.Hour), http.StatusUnauthorized, ""},
		{"wrong issuer", "Bearer " + signToken(t, userID.String(), "user", "someone-else", time.Hour), http.StatusUnauthorized, ""},
		{"non-uuid subject", "Bearer " + signToken(t, "42", "user", "urbanfix-identity", time.Hour), http.StatusUnauthorized, ""},
		{"unknown role", "Bearer " + signToken(t, userID.String(), "mayor", "urbanfix-identity", time.Hour), http.StatusUnauthorized, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/test", nil)
			if tt.authHeader != "" {
				req.Header.Set("Authorization", tt.authHeader)
			}

			resp, err := app.Test(req)
			require.NoError(t, err)
			assert.Equal(t, tt.expectedStatus, resp.StatusCode)

			var body map[string]interface{}
			require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
			if tt.expectedStatus == http.StatusOK {
				assert.Equal(t, userID.String(), body["user_id"])
				assert.Equal(t, tt.expectedRole, body["role"])
			} else {
				assert.Equal(t, models.CodeUnauthorized, body["code"])
			}
		})
	}
}

func TestRequireRoles(t *testing.T) {
	initTestAuth()
	app := fiber.New()
	app.Post("/address", AuthRequired, RequireRoles(models.RoleNGO, models.RoleAdmin), func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusNoContent)
	})

	tests := []struct {
		role     string
		expected int
	}{
		{"ngo", http.StatusNoContent},
		{"admin", http.StatusNoContent},
		{"user", http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.role, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/address", nil)
			req.Header.Set("Authorization", "Bearer "+signToken(t, uuid.NewString(), tt.role, "urbanfix-identity", time.Hour))
			resp, err := app.Test(req)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, resp.StatusCode)
		})
	}
}
