package middleware // middleware provides shared request processing for handlers

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/avioline/flight-seat-reservation/internal/utils"
)

// JWTAuth returns an Echo middleware that validates a Bearer access
// token and injects the token's claims into the request context.  The
// provided secret must match the one used when issuing tokens.  Handlers
// behind it read `c.Get("user_id")`, `c.Get("username")` and
// `c.Get("role")`.  Role enforcement is not done here: capability checks
// live in the reservation engine so the closed role enumeration is
// consulted in exactly one place.
func JWTAuth(secret string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			auth := c.Request().Header.Get("Authorization")
			if !strings.HasPrefix(auth, "Bearer ") {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "missing bearer token"})
			}
			raw := strings.TrimPrefix(auth, "Bearer ")

			sess, err := utils.ParseAccessToken(secret, raw)
			if err != nil {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid token"})
			}

			c.Set("user_id", sess.UserID)
			c.Set("username", sess.Username)
			c.Set("role", string(sess.Role))
			return next(c)
		}
	}
}
