// Package router wires the HTTP routes to their handlers and
// middleware.
package router

import (
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/intake-calendar/internal/config"
	"github.com/iliyamo/intake-calendar/internal/handler"
	"github.com/iliyamo/intake-calendar/internal/middleware"
)

// RegisterRoutes registers the unauthenticated routes: currently just
// the health check used by load balancers.
func RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", handler.Health)
}

// RegisterAPI registers the calendar API under /v1.  Everything is JWT
// protected; mutations sit behind the token bucket, the summary reads
// behind the response cache, and capacity adjustment additionally
// requires the ADMIN role.
func RegisterAPI(e *echo.Echo, h *handler.Handler, jwtSecret string, rdb *redis.Client, rlCfg config.RateLimitConfig, cacheCfg config.CacheConfig) {
	v1 := e.Group("/v1")
	v1.Use(middleware.JWTAuth(jwtSecret))

	limited := middleware.NewTokenBucket(rlCfg, rdb)
	cached := middleware.NewRedisCache(cacheCfg, rdb)

	// Container registry and detail views.
	v1.POST("/containers", h.ResolveContainer, limited)
	v1.GET("/containers/:id", h.GetContainer)
	v1.GET("/containers/:id/preview", h.PreviewAdmit)
	v1.PUT("/containers/:id/capacity", h.AdjustCapacity, middleware.RequireRole("ADMIN"))

	// Placement and forward reservation.
	v1.POST("/containers/:id/assignments", h.PlaceAssignments, limited)
	v1.POST("/containers/:id/reservations", h.Reserve, limited)

	// Per-assignment state machine.
	v1.POST("/assignments/:id/confirm", h.Confirm, limited)
	v1.POST("/assignments/:id/reject", h.Reject, limited)
	v1.POST("/assignments/:id/shift", h.Shift, limited)
	v1.POST("/assignments/:id/exit", h.Exit, limited)
	v1.POST("/assignments/:id/qualify", h.Qualify, limited)

	// Calendar summary projection, cached.
	v1.GET("/summary", h.Summary, cached)
}
