package echoapi

import (
	"github.com/labstack/echo/v4"
)

// schedulerMiddleware lets through accounts allowed to change assignments.
func schedulerMiddleware() echo.MiddlewareFunc {
	return claimsMiddleware(func(c Claims) bool { return c.CanSchedule })
}

// adminMiddleware lets through admins holding any of `roles` (any admin role when empty).
func adminMiddleware(roles ...string) echo.MiddlewareFunc {
	return claimsMiddleware(func(c Claims) bool { return c.IsAdmin && hasAnyRole(c, roles) })
}

func claimsMiddleware(allowed func(Claims) bool) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			claims, err := getContextClaims(ctx)
			if err != nil {
				return err
			}
			if allowed(claims) {
				return next(ctx)
			}
			return errHttpForbidden
		}
	}
}

func hasAnyRole(claims Claims, roles []string) bool {
	if len(roles) == 0 {
		return true
	}
	for _, role := range roles {
		for _, r := range claims.Roles {
			if r == role {
				return true
			}
		}
	}
	return false
}
