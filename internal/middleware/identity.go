package middleware

// identity.go holds the actor resolution shared by handlers and the
// rate limiter.  Every mutation is stamped with a human-readable actor
// label for the audit trail; the X-Actor header wins, the JWT subject
// is the fallback.

import (
	"strings"

	"github.com/labstack/echo/v4"
)

// Actor resolves the label recorded on audit lines for the current
// request.  Returns "system" when neither an X-Actor header nor an
// authenticated subject is present.
func Actor(c echo.Context) string {
	if h := strings.TrimSpace(c.Request().Header.Get("X-Actor")); h != "" {
		return h
	}
	if v := c.Get("user_id"); v != nil {
		if s, ok := v.(string); ok && s != "" {
			return s
		}
	}
	return "system"
}

// subjectID returns the authenticated subject for rate-limit keying,
// or "anon" for unauthenticated traffic.
func subjectID(c echo.Context) string {
	if v := c.Get("user_id"); v != nil {
		if s, ok := v.(string); ok && s != "" {
			return s
		}
	}
	return "anon"
}
