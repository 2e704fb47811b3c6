package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"github.com/Divy1030/Code-Arena-Backend/internal/api"
	"github.com/Divy1030/Code-Arena-Backend/internal/arena"
	"github.com/Divy1030/Code-Arena-Backend/internal/config"
	"github.com/Divy1030/Code-Arena-Backend/internal/database"
	"github.com/Divy1030/Code-Arena-Backend/internal/judge"
	"github.com/Divy1030/Code-Arena-Backend/internal/matchmaking"
	"github.com/Divy1030/Code-Arena-Backend/internal/migrations"
	"github.com/Divy1030/Code-Arena-Backend/internal/redis"
	"github.com/Divy1030/Code-Arena-Backend/internal/store"
	"github.com/Divy1030/Code-Arena-Backend/internal/ws"
)

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	// Initialize configuration
	cfg := config.Load()

	// Initialize database
	db, err := database.Connect(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	// Run migrations on start if requested
	if os.Getenv("MIGRATE_ON_START") == "true" {
		log.Println("↗ Running DB migrations on startup...")
		if err := migrations.RunMigrations(cfg.DatabaseURL); err != nil {
			log.Fatalf("Failed to run migrations: %v", err)
		}
	}

	// Initialize Redis
	rdb, err := redis.Connect(cfg.RedisURL)
	if err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}
	defer rdb.Close()

	st := store.New(db)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	// Websocket hub plus the Redis bridge that fans events out across instances
	hub := ws.NewHub()
	go hub.Run()

	bridge := ws.NewRedisBridge(rdb)
	bridge.StartSubscriber(ctx, hub)

	// Judge queue client and the synchronous evaluator used by duel submissions
	jobs := judge.NewClient(rdb, st)
	evaluator := judge.NewEvaluator(jobs, time.Duration(cfg.EvaluationTimeoutSeconds)*time.Second)

	// Duel rooms: lifecycle, submissions, settlement
	engine := arena.NewEngine(st, bridge, evaluator, time.Duration(cfg.MatchDurationMinutes)*time.Minute)

	// Matchmaking queue and pairing service
	queue := matchmaking.NewQueue(cfg.MatchmakingRatingWindow)
	matcher := matchmaking.NewService(queue, engine, bridge, time.Duration(cfg.MatchmakingTimeoutSeconds)*time.Second)

	gateway := ws.NewGateway(cfg, hub, bridge, engine, matcher, st)

	// Set up Gin router
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.Default()

	// Initialize API handlers
	api.SetupRoutes(router, st, jobs, gateway, cfg)

	// Start server
	port := cfg.Port
	if port == "" {
		port = "8000"
	}

	server := &http.Server{
		Addr:    ":" + port,
		Handler: router,
	}

	go func() {
		log.Printf("Starting CodeArena server on port %s", port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	<-ctx.Done()
	log.Println("Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server shutdown error: %v", err)
	}

	// Stop pairing before tearing down rooms so no new matches start mid-shutdown
	matcher.Shutdown()
	engine.Shutdown()
}
