package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// Exit handles POST /v1/assignments/:id/exit.  The assignment and its
// PLACED group siblings leave the container together; a QUALIFIED
// member anywhere in the group blocks the whole exit with 423.
func (h *Handler) Exit(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid_key"})
	}
	if err := h.Engine.Exit(c.Request().Context(), meta(c), id); err != nil {
		return writeErr(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"assignment_id": id, "status": "EXITED"})
}

// Qualify handles POST /v1/assignments/:id/qualify.  Sets the terminal
// QUALIFIED lock on a PLACED assignment in a DIKSHA container.
// Repeating the call on an already-qualified assignment is a no-op.
func (h *Handler) Qualify(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid_key"})
	}
	if err := h.Engine.Qualify(c.Request().Context(), meta(c), id); err != nil {
		return writeErr(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"assignment_id": id, "lock_status": "QUALIFIED"})
}
