package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/intake-calendar/internal/model"
)

// PlaceAssignments handles POST /v1/containers/:id/assignments.  One
// person or a whole group goes in atomically: either every member fits
// under the capacity limit or the request fails with housefull and
// nothing is created.
func (h *Handler) PlaceAssignments(c echo.Context) error {
	containerID, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid_key"})
	}
	var body struct {
		PersonIDs []uint64 `json:"person_ids"`
		GroupKind string   `json:"group_kind"`
		Roles     []string `json:"roles"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid_key"})
	}
	if len(body.PersonIDs) == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid_key"})
	}
	kind := model.GroupSingle
	if body.GroupKind != "" {
		var valid bool
		if kind, valid = model.ParseGroupKind(body.GroupKind); !valid {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid_key"})
		}
	}
	created, err := h.Engine.PlaceGroup(c.Request().Context(), meta(c), containerID, body.PersonIDs, kind, body.Roles)
	if err != nil {
		return writeErr(c, err)
	}
	return c.JSON(http.StatusCreated, echo.Map{"assignments": created})
}

// Reserve handles POST /v1/containers/:id/reservations.  The path id
// is the meeting container; the body names the group and the future
// DIKSHA day whose seats get held as RESERVED.
func (h *Handler) Reserve(c echo.Context) error {
	meetingID, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid_key"})
	}
	var body struct {
		PersonIDs  []uint64 `json:"person_ids"`
		GroupKind  string   `json:"group_kind"`
		OccupyDate string   `json:"occupy_date"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid_key"})
	}
	if len(body.PersonIDs) == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid_key"})
	}
	kind := model.GroupSingle
	if body.GroupKind != "" {
		var valid bool
		if kind, valid = model.ParseGroupKind(body.GroupKind); !valid {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid_key"})
		}
	}
	created, err := h.Engine.ReserveFutureSeat(c.Request().Context(), meta(c), meetingID, body.PersonIDs, kind, body.OccupyDate)
	if err != nil {
		return writeErr(c, err)
	}
	return c.JSON(http.StatusCreated, echo.Map{"reservations": created})
}
