package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"ctarcade/Game-Arcade/internal/api/controller"
	apirepository "ctarcade/Game-Arcade/internal/api/repository"
	"ctarcade/Game-Arcade/internal/api/service"
	"ctarcade/Game-Arcade/internal/config"
	"ctarcade/Game-Arcade/internal/db"
	"ctarcade/Game-Arcade/internal/hub"
	"ctarcade/Game-Arcade/internal/logger"
	"ctarcade/Game-Arcade/internal/repository"
	"ctarcade/Game-Arcade/internal/server"
	"ctarcade/Game-Arcade/internal/telemetry"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg := config.Load()

	// Initialize telemetry
	shutdown, err := telemetry.InitOtel(cfg.CollectorAddr)
	if err != nil {
		log.Fatalf("failed to initialize telemetry: %v", err)
	}
	defer func() {
		if err := shutdown(context.Background()); err != nil {
			log.Printf("Error shutting down telemetry: %v", err)
		}
	}()

	// Route slog through console + otel
	logger.Init()

	// Initialize Redis
	rdb, err := db.NewRedisClient(ctx)
	if err != nil {
		log.Fatalf("failed to initialize redis: %v", err)
	}

	// Initialize SQLite DB
	conn, err := db.InitializeDB(cfg.SQLitePath)
	if err != nil {
		log.Fatalf("failed to initialize sqlite db: %v", err)
	}

	// Create repositories
	sessionRepo := repository.NewSessionRepository(rdb)
	queueRepo := repository.NewQueueRepository(rdb)
	joinCodeRepo := repository.NewJoinCodeRepository(rdb)
	resultRepo := repository.NewResultRepository(rdb)
	historyRepo := repository.NewHistoryRepository(conn)
	userRepo := apirepository.NewUserRepository(conn)

	// Create services
	userService := service.NewUserService(userRepo, cfg.JWTSecret)

	// Create hub
	h := hub.New(hub.Config{
		QueueTTL:          cfg.QueueTTL,
		QueueScanInterval: cfg.QueueScanInterval,
	}, rdb, sessionRepo, queueRepo, joinCodeRepo, resultRepo, historyRepo)
	h.Run(ctx)

	// Create controllers
	userController := controller.NewUserController(userService)
	queryController := controller.NewQueryController(h.Rooms(), h.Tournaments(), sessionRepo, queueRepo, historyRepo)

	// Create the Gin-based server
	srv := server.NewServer(h, userController, queryController)

	// Graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	httpServer := &http.Server{
		Addr:    cfg.ListenAddr,
		Handler: srv.Engine(),
	}

	go func() {
		log.Printf("http server started on %s", cfg.ListenAddr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("ListenAndServe: %v", err)
		}
	}()

	<-stop

	log.Println("Shutting down server...")
	cancel()

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelShutdown()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server exiting")
}
