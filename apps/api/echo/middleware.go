package echoapi

import (
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/clubemanager/backend/core/user"
)

// tierMiddleware only lets through operators whose tier is at least as
// powerful as the required one. Unknown tiers are rejected.
func tierMiddleware(required string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			claims, err := getContextClaims(ctx)
			if err != nil {
				return errors.Wrap(err, "getting context claims")
			}
			if user.IsAuthorized(claims.Tier, required) {
				return next(ctx)
			}
			return errHttpForbidden
		}
	}
}

func adminMiddleware() echo.MiddlewareFunc {
	return tierMiddleware(user.TierAdmin)
}
