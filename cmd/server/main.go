package main

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	goredis "github.com/redis/go-redis/v9"

	"github.com/studyplay/backend/internal/api"
	"github.com/studyplay/backend/internal/config"
	"github.com/studyplay/backend/internal/database"
	"github.com/studyplay/backend/internal/matchmaking"
	"github.com/studyplay/backend/internal/migrations"
	"github.com/studyplay/backend/internal/redis"
	"github.com/studyplay/backend/internal/ws"
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

	// Initialize Redis for the cross-process push bridge (optional)
	var rdb *goredis.Client
	if cfg.RedisURL != "" {
		rdb, err = redis.Connect(cfg.RedisURL)
		if err != nil {
			log.Fatalf("Failed to connect to Redis: %v", err)
		}
		defer rdb.Close()
	} else {
		log.Println("[REDIS] REDIS_URL not set; running with local-only push delivery")
	}

	queueExpiry := time.Duration(cfg.QueueExpiryMinutes) * time.Minute
	matchExpiry := time.Duration(cfg.MatchExpiryMinutes) * time.Minute
	reconcileInterval := time.Duration(cfg.ReconcileIntervalSeconds) * time.Second
	sweepInterval := time.Duration(cfg.SweepIntervalSeconds) * time.Second

	// Pairing engine over the durable queue
	store := matchmaking.NewPostgresStore(db, queueExpiry)
	service := matchmaking.NewService(store)

	// Per-user reconcile loops, bounded by the queue retention window
	reconciler := matchmaking.NewReconciler(service, reconcileInterval, queueExpiry)
	defer reconciler.StopAll()

	// Queue/match garbage collection
	ctx := context.Background()
	go matchmaking.StartSweeper(ctx, store, sweepInterval, matchExpiry)

	// Real-time gateway
	hub := ws.NewHub()
	bridge := ws.NewEventBridge(rdb, hub)
	go bridge.Run(ctx)
	gateway := ws.NewGateway(service, reconciler, hub, bridge, cfg)

	// Set up Gin router
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.Default()
	api.SetupRoutes(router, service, gateway, cfg)

	// Start server
	port := cfg.Port
	if port == "" {
		port = "8080"
	}

	log.Printf("Starting matchmaking server on port %s", port)
	if err := router.Run(":" + port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
