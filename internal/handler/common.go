// Package handler defines the HTTP surface over the assignment
// engine.  Handlers bind and validate input, build the mutation meta
// (actor label plus idempotency token) and translate engine errors
// into the API error taxonomy; all business rules live in the engine.
package handler

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/intake-calendar/internal/engine"
	"github.com/iliyamo/intake-calendar/internal/middleware"
	"github.com/iliyamo/intake-calendar/internal/repository"
)

// Handler bundles the engine behind the HTTP routes.
type Handler struct {
	Engine *engine.Engine
}

// NewHandler constructs a Handler and panics if the engine is nil.
func NewHandler(eng *engine.Engine) *Handler {
	if eng == nil {
		panic("nil engine passed to NewHandler")
	}
	return &Handler{Engine: eng}
}

// meta assembles the per-request mutation context.  The actor comes
// from the X-Actor header or the authenticated subject; the
// idempotency token from the Idempotency-Key header when the client
// sends one.
func meta(c echo.Context) engine.Meta {
	return engine.Meta{
		Actor:   middleware.Actor(c),
		IdemKey: strings.TrimSpace(c.Request().Header.Get("Idempotency-Key")),
	}
}

// pathID parses a numeric path parameter; zero is never a valid id.
func pathID(c echo.Context, name string) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	return id, err == nil && id != 0
}

// writeErr maps engine and repository errors onto the wire error
// taxonomy.  Every mutating endpoint funnels failures through here so
// the dashboard sees one stable set of machine-readable codes.
func writeErr(c echo.Context, err error) error {
	var obm *repository.OccupyBeforeMeetingError
	switch {
	case errors.Is(err, repository.ErrInvalidKey):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid_key"})
	case errors.Is(err, repository.ErrOccupyRequired):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "occupy_required"})
	case errors.As(err, &obm):
		return c.JSON(http.StatusBadRequest, echo.Map{
			"error":        "occupy_before_meeting",
			"meeting_date": obm.MeetingDate,
		})
	case errors.Is(err, repository.ErrHousefull):
		return c.JSON(http.StatusConflict, echo.Map{"error": "housefull"})
	case errors.Is(err, repository.ErrLockedQualified):
		return c.JSON(http.StatusLocked, echo.Map{"error": "locked_qualified"})
	case errors.Is(err, repository.ErrReservationMissing):
		return c.JSON(http.StatusConflict, echo.Map{"error": "reservation_missing"})
	case errors.Is(err, repository.ErrNotMeetingCandidate):
		return c.JSON(http.StatusConflict, echo.Map{"error": "not_meeting_candidate"})
	case errors.Is(err, repository.ErrNotPlaced):
		return c.JSON(http.StatusConflict, echo.Map{"error": "not_placed"})
	case errors.Is(err, repository.ErrQualifyNotAllowed):
		return c.JSON(http.StatusConflict, echo.Map{"error": "qualify_not_allowed"})
	case errors.Is(err, repository.ErrContainerNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "container_not_found"})
	case errors.Is(err, repository.ErrAssignmentNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "assignment_not_found"})
	case errors.Is(err, repository.ErrPersonNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "person_not_found"})
	default:
		c.Logger().Errorf("internal error: %v", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal_error"})
	}
}
