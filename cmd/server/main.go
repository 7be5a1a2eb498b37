package main // Entry point package

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	"github.com/avioline/flight-seat-reservation/internal/config"
	"github.com/avioline/flight-seat-reservation/internal/database"
	"github.com/avioline/flight-seat-reservation/internal/engine"
	"github.com/avioline/flight-seat-reservation/internal/handler"
	"github.com/avioline/flight-seat-reservation/internal/hub"
	"github.com/avioline/flight-seat-reservation/internal/middleware"
	"github.com/avioline/flight-seat-reservation/internal/queue"
	"github.com/avioline/flight-seat-reservation/internal/repository"
	"github.com/avioline/flight-seat-reservation/internal/router"
	"github.com/avioline/flight-seat-reservation/internal/worker"
	"github.com/avioline/flight-seat-reservation/internal/ws"
)

func main() {
	_ = godotenv.Load() // .env is optional; real env vars win
	cfg := config.Load()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("database connect failed: %v", err)
	}
	defer db.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Broadcast registry: one goroutine owns the subscriber set.
	broadcastHub := hub.New()
	go broadcastHub.Run(ctx)

	seatRepo := repository.NewSeatRepo(db)
	userRepo := repository.NewUserRepo(db)
	tokenRepo := repository.NewTokenRepo(db)

	publisher := queue.NewPublisher()
	eng := engine.New(seatRepo, ws.StateBroadcaster{Hub: broadcastHub}, publisher,
		cfg.Flight, cfg.FareFirstCents, cfg.FareEconomyCents)

	// Audit consumer tails seat.events into logs/seat-audit.log.  It
	// reconnects forever on its own; a missing broker only costs audit
	// lines, never reservations.
	go func() {
		if err := queue.StartAuditConsumer(); err != nil {
			log.Printf("audit consumer stopped: %v", err)
		}
	}()

	// Optional hold reclamation (HOLD_TTL=0 keeps legacy behavior).
	go worker.NewHoldExpiry(eng, cfg.HoldTTL).Run(ctx)

	e := echo.New()
	e.HideBanner = true
	e.Use(echomw.Logger())
	e.Use(echomw.Recover())

	rdb := config.NewRedisClient()
	if rdb == nil {
		log.Println("redis unavailable; rate limiting disabled")
	}
	limiter := middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb)

	authHandler := handler.NewAuthHandler(cfg, userRepo, tokenRepo)
	stateHandler := handler.NewStateHandler(eng)
	sockHandler := ws.NewHandler(ctx, eng, broadcastHub, cfg.JWTSecret)

	router.Register(e, authHandler, stateHandler, sockHandler, cfg.JWTSecret, limiter)

	addr := ":" + cfg.Port
	log.Printf("flight %s listening on %s (env=%s)", cfg.Flight.Number, addr, cfg.Env)

	go func() {
		<-ctx.Done()
		_ = e.Shutdown(context.Background())
	}()
	if err := e.Start(addr); err != nil {
		log.Println(err)
	}
}
