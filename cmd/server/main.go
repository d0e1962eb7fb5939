package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/idfuturestars/starguide/internal/config"
	"github.com/idfuturestars/starguide/internal/database"
	"github.com/idfuturestars/starguide/internal/handlers"
	"github.com/idfuturestars/starguide/internal/metrics"
	"github.com/idfuturestars/starguide/internal/middleware"
	"github.com/idfuturestars/starguide/internal/repository"
	"github.com/idfuturestars/starguide/internal/router"
	"github.com/idfuturestars/starguide/internal/services"
	"github.com/idfuturestars/starguide/internal/websocket"
	"github.com/idfuturestars/starguide/internal/worker"
	"github.com/idfuturestars/starguide/migrations"
)

func main() {
	log.Println("🚀 Starting StarGuide Backend...")

	// ──── Step 1: Load Environment Variables ────
	cfg := config.Load()
	log.Println("✓ Environment variables loaded")

	// ──── Step 2: Initialize PostgreSQL Connection Pool ────
	pool, err := database.NewPostgresPool(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("✗ PostgreSQL connection failed: %v", err)
	}
	defer pool.Close()
	log.Println("✓ PostgreSQL connected")

	// ──── Step 3: Initialize Redis Clients ────
	redisClients, err := database.NewRedisClients(cfg.RedisURL)
	if err != nil {
		log.Fatalf("✗ Redis connection failed: %v", err)
	}
	defer redisClients.Close()
	log.Println("✓ Redis connected")

	// ──── Step 4: Run Database Migrations ────
	if err := database.RunMigrations(pool, migrations.FS); err != nil {
		log.Fatalf("✗ Database migration failed: %v", err)
	}
	log.Println("✓ Database migrations applied")

	// ──── Initialize Repositories ────
	userRepo := repository.NewUserRepo(pool)
	groupRepo := repository.NewGroupRepo(pool)
	quizRepo := repository.NewQuizRepo(pool)
	analyticsRepo := repository.NewAnalyticsRepo(pool)
	notificationRepo := repository.NewNotificationRepo(pool)

	// ──── Initialize Services ────
	jwtAuth := middleware.NewJWTAuth(cfg.JWTSecret)
	authService := services.NewAuthService(userRepo, redisClients.Sessions, jwtAuth, analyticsRepo)

	// ──── Initialize Handlers ────
	authHandler := handlers.NewAuthHandler(authService)
	groupHandler := handlers.NewGroupHandler(groupRepo, userRepo, analyticsRepo)
	quizHandler := handlers.NewQuizHandler(quizRepo, userRepo, userRepo, analyticsRepo)
	analyticsHandler := handlers.NewAnalyticsHandler(userRepo, analyticsRepo)
	userHandler := handlers.NewUserHandler(userRepo, notificationRepo)
	aiHandler := handlers.NewAIHandler(analyticsRepo)

	// ──── Step 5: Start Notification Worker Pool ────
	workerPool := worker.NewPool(redisClients.Sessions, notificationRepo, cfg.NotificationWorkers)
	workerPool.Start()
	log.Printf("✓ Notification worker pool started (%d goroutines)", cfg.NotificationWorkers)

	streakScheduler := services.NewStreakScheduler(userRepo, analyticsRepo)
	streakScheduler.Start()
	log.Println("✓ Streak scheduler started")

	// ──── Step 6: Start WebSocket Hub ────
	wsHub := websocket.NewHub(redisClients.Sessions, redisClients.PubSub, groupRepo, quizRepo, cfg.JWTSecret)
	log.Println("✓ WebSocket hub started")

	// ──── Step 7: Start Metrics Server ────
	metrics.StartServer(cfg.MetricsPort, "/metrics")
	log.Printf("✓ Metrics server started on :%s", cfg.MetricsPort)

	// ──── Step 8: Start HTTP Server ────
	r := router.New(
		jwtAuth,
		authHandler,
		groupHandler,
		quizHandler,
		analyticsHandler,
		userHandler,
		aiHandler,
		wsHub,
		cfg.FrontendURL,
	)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Port),
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		log.Println("Shutting down...")
		workerPool.Stop()
		streakScheduler.Stop()

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		server.Shutdown(ctx)
	}()

	log.Printf("✓ StarGuide Backend ready on http://localhost:%s", cfg.Port)
	log.Printf("  API: http://localhost:%s/api/v1", cfg.Port)
	log.Printf("  WS:  ws://localhost:%s/api/v1/ws", cfg.Port)

	if err := server.ListenAndServe(); err != http.ErrServerClosed {
		log.Fatalf("Server error: %v", err)
	}
}
