package middleware

import (
	"net/http"
	"strings"

	"github.com/Eursukkul/care-booking-service/internal/models"
	"github.com/Eursukkul/care-booking-service/pkg/auth"
	"github.com/labstack/echo/v4"
)

const actorKey = "actor"

func JWTAuth(secret string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			h := c.Request().Header.Get(echo.HeaderAuthorization)
			if !strings.HasPrefix(h, "Bearer ") {
				return echo.NewHTTPError(http.StatusUnauthorized, "missing bearer token")
			}
			claims, err := auth.ParseValidate(secret, strings.TrimPrefix(h, "Bearer "))
			if err != nil {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid token")
			}
			c.Set(actorKey, models.Actor{
				ID:    claims.Sub,
				Role:  models.Role(claims.Role),
				Email: claims.Email,
			})
			return next(c)
		}
	}
}

func RequireRole(roles ...models.Role) echo.MiddlewareFunc {
	allowed := map[models.Role]struct{}{}
	for _, r := range roles {
		allowed[r] = struct{}{}
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			actor, ok := ActorFrom(c)
			if !ok {
				return echo.NewHTTPError(http.StatusUnauthorized, "unauthenticated")
			}
			if _, ok := allowed[actor.Role]; !ok {
				return echo.NewHTTPError(http.StatusForbidden, "insufficient role")
			}
			return next(c)
		}
	}
}

// ActorFrom returns the caller stored by JWTAuth.
func ActorFrom(c echo.Context) (models.Actor, bool) {
	actor, ok := c.Get(actorKey).(models.Actor)
	return actor, ok
}

// WithActor is used by tests to skip token parsing.
func WithActor(c echo.Context, actor models.Actor) {
	c.Set(actorKey, actor)
}
