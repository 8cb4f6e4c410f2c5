package middleware

import (
	"context"
	"strings"

	"vendorrisk/internal/models"
	"vendorrisk/internal/response"
	"vendorrisk/internal/services"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

const userKey = "user"

// TokenVerifier resolves a bearer token to its user.
type TokenVerifier interface {
	VerifyToken(ctx context.Context, token string) (*models.User, error)
}

// FailureCounter is notified of every rejected token.
type FailureCounter interface {
	AuthFailure()
}

// AuthRequired is a Fiber middleware to check for a valid JWT token. The
// Authorization header may hold "Bearer <token>" or the bare token.
func AuthRequired(verifier TokenVerifier, failures FailureCounter, logger *zap.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token := bearerToken(c.Get(fiber.HeaderAuthorization))
		if token == "" {
			if failures != nil {
				failures.AuthFailure()
			}
			return response.Fail(c, fiber.StatusUnauthorized, "Access token is missing", nil)
		}

		user, err := verifier.VerifyToken(c.UserContext(), token)
		if err != nil {
			logger.Debug("JWT validation failed", zap.String("path", c.Path()), zap.Error(err))
			if failures != nil {
				failures.AuthFailure()
			}
			return response.Fail(c, fiber.StatusUnauthorized, "Invalid or expired token", services.ErrInvalidToken)
		}

		// Store the user in Fiber context for subsequent handlers
		c.Locals(userKey, user)
		return c.Next()
	}
}

func bearerToken(header string) string {
	header = strings.TrimSpace(header)
	if scheme, rest, ok := strings.Cut(header, " "); ok && strings.EqualFold(scheme, "Bearer") {
		return strings.TrimSpace(rest)
	}
	return header
}

// CurrentUser returns the user attached by AuthRequired, or nil.
func CurrentUser(c *fiber.Ctx) *models.User {
	user, _ := c.Locals(userKey).(*models.User)
	return user
}
