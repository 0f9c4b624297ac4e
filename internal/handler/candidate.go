package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/intake-calendar/internal/model"
)

// Confirm handles POST /v1/assignments/:id/confirm.  Promotes the
// group's RESERVED DIKSHA seats to PLACED, archives one CONFIRMED
// history row per member and retires the meeting candidate rows.
func (h *Handler) Confirm(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid_key"})
	}
	res, err := h.Engine.Confirm(c.Request().Context(), meta(c), id)
	if err != nil {
		return writeErr(c, err)
	}
	return c.JSON(http.StatusOK, res)
}

// Reject handles POST /v1/assignments/:id/reject.  The disposition
// chooses the person's destination pool: "TRASH" parks them as
// rejected, "PENDING" leaves them eligible for resubmission.
func (h *Handler) Reject(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid_key"})
	}
	var body struct {
		Disposition string `json:"disposition"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid_key"})
	}
	disp, valid := model.ParseDisposition(body.Disposition)
	if !valid {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid_key"})
	}
	if err := h.Engine.Reject(c.Request().Context(), meta(c), id, disp); err != nil {
		return writeErr(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"assignment_id": id, "disposition": disp})
}

// Shift handles POST /v1/assignments/:id/shift.  Moves the whole group
// to a new (date, purpose) container in one transaction; optionally
// rebooks a DIKSHA reservation when the new target is a meeting day.
func (h *Handler) Shift(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid_key"})
	}
	var body struct {
		NewDate       string `json:"new_date"`
		NewPurpose    string `json:"new_purpose"`
		NewOccupyDate string `json:"new_occupy_date"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid_key"})
	}
	created, err := h.Engine.Shift(c.Request().Context(), meta(c), id, body.NewDate, body.NewPurpose, body.NewOccupyDate)
	if err != nil {
		return writeErr(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"assignments": created})
}
