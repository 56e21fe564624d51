package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq" // PostgreSQL driver
	"github.com/redis/go-redis/v9"

	"github.com/coach-gateway/internal/api"
	"github.com/coach-gateway/internal/audit"
	"github.com/coach-gateway/internal/cache"
	"github.com/coach-gateway/internal/config"
	"github.com/coach-gateway/internal/feeds"
	"github.com/coach-gateway/internal/metrics"
	"github.com/coach-gateway/internal/moderation"
	"github.com/coach-gateway/internal/piiscan"
	"github.com/coach-gateway/internal/promptguard"
)

func main() {
	log.Println("🚀 Starting Security Coach Gateway...")

	// 0. Load .env file if present
	if err := godotenv.Load(); err != nil {
		log.Println("⚠️  No .env file found, using environment variables")
	}

	// 1. Load configuration from environment variables
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	log.Printf("✓ Configuration loaded (Port: %s)", cfg.Port)

	// 2. Connect to PostgreSQL
	db, err := sql.Open("postgres", cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	db.SetMaxOpenConns(cfg.DBMaxOpenConns)
	db.SetMaxIdleConns(cfg.DBMaxIdleConns)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		log.Fatalf("Failed to ping database: %v", err)
	}
	log.Println("✓ Connected to PostgreSQL")

	// 3. Connect to Redis
	redisOpts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		log.Fatalf("Failed to parse Redis URL: %v", err)
	}
	rdb := redis.NewClient(redisOpts)
	defer rdb.Close()

	if err := rdb.Ping(context.Background()).Err(); err != nil {
		log.Fatalf("Failed to ping Redis: %v", err)
	}
	log.Println("✓ Connected to Redis")

	// 4. Register Prometheus metrics
	metrics.Register()

	// 5. Initialize services and background workers
	ctx := context.Background()

	feedRepo := feeds.NewRepository(db)
	feedCache := cache.NewFeedCache(feedRepo, cfg.FeedRefreshInterval)
	if err := feedCache.Start(ctx); err != nil {
		log.Fatalf("Failed to load indicator feed: %v", err)
	}

	recorder := audit.NewRecorder(rdb)
	syncer := audit.NewSyncer(db, rdb, cfg.AuditSyncInterval)
	if err := syncer.Start(ctx); err != nil {
		log.Fatalf("Failed to start audit syncer: %v", err)
	}

	guard := promptguard.New()
	scanner := piiscan.New()
	detector := moderation.NewDetector()
	log.Println("✓ Services initialized")

	// 6. Wire the HTTP layer
	handler := api.NewHandler(guard, scanner, detector, feedCache, feedRepo, recorder, audit.HashContent)
	mux := api.SetupRoutes(handler)
	log.Println("✓ Routes configured")

	server := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Port),
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// 7. Start server and wait for shutdown signal
	go func() {
		log.Printf("✓ Server listening on port %s", cfg.Port)
		log.Println("📡 Endpoints:")
		log.Println("   POST   /v1/guard/scan")
		log.Println("   POST   /v1/guard/enforce")
		log.Println("   POST   /v1/pii/scan")
		log.Println("   POST   /v1/pii/redact")
		log.Println("   POST   /v1/ioc/check")
		log.Println("   GET    /v1/ioc/stats")
		log.Println("   GET    /v1/indicators")
		log.Println("   POST   /v1/indicators")
		log.Println("   DELETE /v1/indicators/{id}")
		log.Println("   GET    /v1/health")
		log.Println("   GET    /metrics")

		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("🛑 Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("⚠️  Server shutdown error: %v", err)
	}

	feedCache.Stop()
	syncer.Stop()
	log.Println("✓ Shutdown complete")
}
