package middleware

import (
	"strings"

	"github.com/labstack/echo/v4"
)

// SecurityHeaders sets hardening headers on responses. The strict
// Content-Security-Policy and no-store caching apply to JSON routes under
// apiPrefix only, leaving the landing page and static assets loadable.
func SecurityHeaders(apiPrefix string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			h := c.Response().Header()

			h.Set("X-Content-Type-Options", "nosniff")
			h.Set("X-Frame-Options", "DENY")
			h.Set("X-XSS-Protection", "0")
			h.Set("Referrer-Policy", "no-referrer")
			h.Set("Permissions-Policy", "camera=(), microphone=(), geolocation=()")

			if strings.HasPrefix(c.Request().URL.Path, apiPrefix) {
				h.Set("Content-Security-Policy", "default-src 'none'; frame-ancestors 'none'")
				// Patient data must not be cached by intermediaries.
				h.Set("Cache-Control", "no-store")
			}

			return next(c)
		}
	}
}
