package handler

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
)

// ResolveContainer handles POST /v1/containers.  Finds or creates the
// single container for a (date, purpose) key; the response is the same
// whether the row existed or was just inserted, so the dashboard can
// call this blindly while drawing the calendar.
func (h *Handler) ResolveContainer(c echo.Context) error {
	var body struct {
		Date    string `json:"date"`
		Purpose string `json:"purpose"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid_key"})
	}
	container, err := h.Engine.ResolveContainer(c.Request().Context(), body.Date, body.Purpose)
	if err != nil {
		return writeErr(c, err)
	}
	return c.JSON(http.StatusOK, container)
}

// GetContainer handles GET /v1/containers/:id.  Query flags
// include_reserved and include_history expand the detail view.
func (h *Handler) GetContainer(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid_key"})
	}
	includeReserved := c.QueryParam("include_reserved") == "true"
	includeHistory := c.QueryParam("include_history") == "true"
	det, err := h.Engine.FetchContainerDetail(c.Request().Context(), id, includeReserved, includeHistory)
	if err != nil {
		return writeErr(c, err)
	}
	return c.JSON(http.StatusOK, det)
}

// PreviewAdmit handles GET /v1/containers/:id/preview?group_size=n.
// Advisory capacity check for the UI; the binding answer comes from
// the placement transaction itself.
func (h *Handler) PreviewAdmit(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid_key"})
	}
	size := uint64(1)
	if raw := c.QueryParam("group_size"); raw != "" {
		n, err := strconv.ParseUint(raw, 10, 32)
		if err != nil || n == 0 {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid_key"})
		}
		size = n
	}
	preview, err := h.Engine.PreviewAdmit(c.Request().Context(), id, uint32(size))
	if err != nil {
		return writeErr(c, err)
	}
	return c.JSON(http.StatusOK, preview)
}

// AdjustCapacity handles PUT /v1/containers/:id/capacity.  Routed
// behind RequireRole("ADMIN"); lowering below current occupancy is
// allowed and only constrains future placements.
func (h *Handler) AdjustCapacity(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid_key"})
	}
	var body struct {
		CapacityLimit uint32 `json:"capacity_limit"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid_key"})
	}
	if err := h.Engine.AdjustCapacity(c.Request().Context(), meta(c), id, body.CapacityLimit); err != nil {
		return writeErr(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"container_id": id, "capacity_limit": body.CapacityLimit})
}
