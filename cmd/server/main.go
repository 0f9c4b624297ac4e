package main

import (
	"log"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/intake-calendar/internal/config"
	"github.com/iliyamo/intake-calendar/internal/database"
	"github.com/iliyamo/intake-calendar/internal/engine"
	"github.com/iliyamo/intake-calendar/internal/handler"
	"github.com/iliyamo/intake-calendar/internal/queue"
	"github.com/iliyamo/intake-calendar/internal/router"
	"github.com/iliyamo/intake-calendar/internal/service"
)

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg := config.Load()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	rdb := config.NewRedisClient()
	if rdb == nil {
		log.Printf("redis unavailable; rate limiting and summary cache disabled")
	}

	eng := engine.New(db, service.NewNotifyPublisher(), uint32(cfg.DefaultCapacity))
	h := handler.NewHandler(eng)

	// Background notification consumer; reconnects on broker failures.
	go func() {
		if err := queue.StartNotifyConsumer(); err != nil {
			log.Printf("notify consumer stopped: %v", err)
		}
	}()

	e := echo.New()
	e.HideBanner = true
	router.RegisterRoutes(e)
	router.RegisterAPI(e, h, cfg.JWTSecret, rdb, config.LoadRateLimitConfig(), config.LoadCacheConfig())

	addr := ":" + cfg.Port
	log.Printf("listening on %s (env=%s)", addr, cfg.Env)

	if err := e.Start(addr); err != nil {
		log.Fatal(err)
	}
}
