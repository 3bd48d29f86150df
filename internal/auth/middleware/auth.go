package middleware

import (
	"context"
	"crypto/subtle"
	"net/http"
	"strings"

	"place-indexer/internal/auth"
	"place-indexer/logger"

	"github.com/labstack/echo/v4"
)

type contextKey string

// UserContextKey is the key for storing user context in request context
const UserContextKey contextKey = "user"

const serviceTokenHeader = "X-Service-Token"

type AuthMiddleware struct {
	users        *auth.Verifier
	webhooks     *auth.Verifier
	serviceToken []byte
}

// NewAuthMiddleware takes the verifier for user tokens, the verifier for
// webhook calls and the admin service token. Any of them may be empty.
func NewAuthMiddleware(users, webhooks *auth.Verifier, serviceToken string) *AuthMiddleware {
	return &AuthMiddleware{
		users:        users,
		webhooks:     webhooks,
		serviceToken: []byte(serviceToken),
	}
}

// UserFromContext returns the authenticated user, if any.
func UserFromContext(ctx context.Context) (*auth.UserContext, bool) {
	u, ok := ctx.Value(UserContextKey).(*auth.UserContext)
	return u, ok && u != nil
}

func bearerToken(c echo.Context) (string, bool) {
	header := c.Request().Header.Get("Authorization")
	token, ok := strings.CutPrefix(header, "Bearer ")
	if !ok || strings.TrimSpace(token) == "" {
		return "", false
	}
	return strings.TrimSpace(token), true
}

// OptionalAuth attaches the user when a bearer token is present. A request
// without one continues anonymously; a present but invalid token is
// rejected.
func (m *AuthMiddleware) OptionalAuth() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			token, ok := bearerToken(c)
			if !ok || !m.users.Enabled() {
				return next(c)
			}

			userContext, err := m.users.ParseUserToken(token)
			if err != nil {
				logger.FromContext(c.Request().Context()).Warn("rejected user token", "error", err)
				return echo.NewHTTPError(http.StatusUnauthorized, "Invalid token")
			}

			ctx := context.WithValue(c.Request().Context(), UserContextKey, userContext)
			c.SetRequest(c.Request().WithContext(ctx))

			return next(c)
		}
	}
}

// RequireServiceAuth guards admin endpoints with the X-Service-Token
// header. With no token configured every request is refused.
func (m *AuthMiddleware) RequireServiceAuth() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			provided := []byte(c.Request().Header.Get(serviceTokenHeader))
			if len(provided) == 0 {
				return echo.NewHTTPError(http.StatusUnauthorized, "Service token required")
			}
			if len(m.serviceToken) == 0 || subtle.ConstantTimeCompare(provided, m.serviceToken) != 1 {
				return echo.NewHTTPError(http.StatusForbidden, "Invalid service token")
			}
			return next(c)
		}
	}
}

// WebhookAuth requires a bearer token signed with the webhook secret when
// one is configured, and passes every request through otherwise.
func (m *AuthMiddleware) WebhookAuth() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if !m.webhooks.Enabled() {
				return next(c)
			}

			token, ok := bearerToken(c)
			if !ok {
				return echo.NewHTTPError(http.StatusUnauthorized, "Authorization header required")
			}
			if err := m.webhooks.Verify(token); err != nil {
				logger.FromContext(c.Request().Context()).Warn("rejected webhook token", "error", err)
				return echo.NewHTTPError(http.StatusUnauthorized, "Invalid token")
			}
			return next(c)
		}
	}
}
