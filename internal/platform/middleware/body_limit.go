package middleware

import (
	"fmt"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/bytes"
)

// DefaultBodyLimit applies when the configured limit is empty or malformed.
const DefaultBodyLimit = "1M"

// BodyLimit rejects request bodies larger than limit ("512K", "1M", "2MB" or
// "4096B") with 413. Both a declared Content-Length and the bytes actually
// read are checked.
func BodyLimit(limit string) echo.MiddlewareFunc {
	if _, err := ParseLimit(limit); err != nil {
		limit = DefaultBodyLimit
	}
	return echomw.BodyLimitWithConfig(echomw.BodyLimitConfig{Limit: limit})
}

// ParseLimit converts a human-readable size into bytes.
func ParseLimit(s string) (int64, error) {
	n, err := bytes.Parse(s)
	if err != nil {
		return 0, fmt.Errorf("invalid body limit %q: %w", s, err)
	}
	if n <= 0 {
		return 0, fmt.Errorf("invalid body limit %q: must be positive", s)
	}
	return n, nil
}
