// Package middleware provides authentication, logging, tracing and rate limiting middleware.
package middleware

import (
	"context"
	"strings"

	"urbanfix/internal/config"
	"urbanfix/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var cfg *config.Config

// InitMiddleware initializes authentication middleware with the given config.
func InitMiddleware(c *config.Config) {
	cfg = c
}

// IdentityClaims are the claims minted by the identity provider.
type IdentityClaims struct {
	Email string `json:"email"`
	Role  string `json:"role"`
	jwt.RegisteredClaims
}

func unauthorized(c *fiber.Ctx, msg string) error {
	return models.RespondWithError(c, fiber.StatusUnauthorized, models.NewUnauthorizedError(msg))
}

// ParsePrincipal validates a bearer token and returns the principal it names.
func ParsePrincipal(tokenString string) (models.Principal, error) {
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{"HS256", "HS384", "HS512"})}
	if cfg.JWTIssuer != "" {
		opts = append(opts, jwt.WithIssuer(cfg.JWTIssuer))
	}
	if cfg.JWTAudience != "" {
		opts = append(opts, jwt.WithAudience(cfg.JWTAudience))
	}

	claims := &IdentityClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(_ *jwt.Token) (interface{}, error) {
		return []byte(cfg.JWTSecret), nil
	}, opts...)
	if err != nil || !token.Valid {
		return models.Principal{}, models.NewUnauthorizedError("Invalid or expired token")
	}

	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return models.Principal{}, models.NewUnauthorizedError("Invalid user ID in token")
	}

	role := models.Role(strings.ToLower(claims.Role))
	if claims.Role == "" {
		role = models.RoleUser
	}
	if !role.Valid() {
		return models.Principal{}, models.NewUnauthorizedError("Unknown role in token")
	}

	return models.Principal{UserID: userID, Role: role, Email: claims.Email}, nil
}

// AuthRequired is a middleware that enforces authentication for protected routes.
func AuthRequired(c *fiber.Ctx) error {
	authHeader := c.Get("Authorization")
	if authHeader == "" {
		return unauthorized(c, "Authorization header required")
	}

	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || parts[0] != "Bearer" {
		return unauthorized(c, "Invalid authorization header format")
	}

	principal, err := ParsePrincipal(parts[1])
	if err != nil {
		return models.RespondWithAppError(c, err)
	}

	c.Locals("principal", principal)
	c.Locals("userID", principal.UserID)
	c.SetUserContext(context.WithValue(c.UserContext(), UserIDKey, principal.UserID))

	return c.Next()
}

// RequireRoles rejects principals whose role is not listed. It must run after AuthRequired.
func RequireRoles(roles ...models.Role) fiber.Handler {
	return func(c *fiber.Ctx) error {
		principal, ok := PrincipalFrom(c)
		if !ok {
			return unauthorized(c, "Authentication required")
		}
		for _, r := range roles {
			if principal.Role == r {
				return c.Next()
			}
		}
		return models.RespondWithError(c, fiber.StatusForbidden,
			models.NewForbiddenError("Role "+string(principal.Role)+" may not perform this action"))
	}
}

// PrincipalFrom returns the authenticated principal stored by AuthRequired.
func PrincipalFrom(c *fiber.Ctx) (models.Principal, bool) {
	p, ok := c.Locals("principal").(models.Principal)
	return p, ok
}
