package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/intake-calendar/internal/engine"
	"github.com/iliyamo/intake-calendar/internal/repository"
)

// Summary handles GET /v1/summary?from=&to=&purpose=.  Returns the
// per-day aggregates the calendar grid renders, keyed by date.  The
// data is advisory: a store failure degrades to an empty grid rather
// than failing the dashboard render.  The route sits behind the Redis
// response cache, so counts may also lag writes by the cache TTL.
func (h *Handler) Summary(c echo.Context) error {
	from := c.QueryParam("from")
	to := c.QueryParam("to")
	purpose := c.QueryParam("purpose")
	days, err := h.Engine.Summarize(c.Request().Context(), from, to, purpose)
	if err != nil {
		if errors.Is(err, repository.ErrInvalidKey) {
			return writeErr(c, err)
		}
		c.Logger().Warnf("summary degraded to empty aggregates: %v", err)
		days = map[string]engine.DaySummary{}
	}
	return c.JSON(http.StatusOK, echo.Map{
		"from":    from,
		"to":      to,
		"purpose": purpose,
		"days":    days,
	})
}
