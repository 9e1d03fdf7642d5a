package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"github.com/mr1hm/go-disaster-impact/internal/api"
	"github.com/mr1hm/go-disaster-impact/internal/broadcast"
	"github.com/mr1hm/go-disaster-impact/internal/config"
	internalgrpc "github.com/mr1hm/go-disaster-impact/internal/grpc"
	"github.com/mr1hm/go-disaster-impact/internal/impact"
	"github.com/mr1hm/go-disaster-impact/internal/logging"
	"github.com/mr1hm/go-disaster-impact/internal/observability"
	"github.com/mr1hm/go-disaster-impact/internal/publish"
	"github.com/mr1hm/go-disaster-impact/internal/refresh"
	"github.com/mr1hm/go-disaster-impact/internal/repository"
	"github.com/mr1hm/go-disaster-impact/internal/snapshot"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		logging.Fatalf("Fatal while loading config: %v", err)
	}
	logging.Setup(cfg.Logging.Level, cfg.Logging.Format)

	slog.Info("Server starting", "host", cfg.Server.Host, "port", cfg.Server.Port)

	db, err := repository.NewSQLiteDB(cfg.DB.Path)
	if err != nil {
		logging.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()

	engineCfg, err := impact.ConfigFromEnv(cfg.Engine)
	if err != nil {
		logging.Fatalf("Failed to load engine config: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	metrics := observability.NewMetrics()
	store := snapshot.NewStore()
	broadcaster := broadcast.NewBroadcaster(broadcast.DefaultBuffer)

	engine := impact.NewEngine(store, engineCfg,
		impact.WithRecorder(db),
		impact.WithPublisher(broadcaster),
		impact.WithMetrics(metrics),
	)

	// Forward assessments to Kafka
	var forwarder *publish.Forwarder
	if cfg.Kafka.Enabled {
		forwarder = publish.NewForwarder(broadcaster, publish.NewKafkaWriter(cfg.Kafka), metrics)
		forwarder.Start(ctx)
		slog.Info("publishing assessments", "brokers", cfg.Kafka.Brokers, "topic", cfg.Kafka.Topic)
	}

	grpcServer := internalgrpc.NewServer()

	// Load the first snapshot and keep it fresh
	mgr := refresh.NewManager(cfg, db, store, engine,
		refresh.WithMetrics(metrics),
		refresh.OnPublish(grpcServer.Observe),
	)
	if err := mgr.Start(ctx); err != nil {
		logging.Fatalf("Failed to start refresh manager: %v", err)
	}

	go func() {
		grpcAddr := fmt.Sprintf(":%d", cfg.GRPC.Port)
		if err := grpcServer.Start(grpcAddr); err != nil {
			logging.Fatalf("gRPC server error: %v", err)
		}
	}()

	// Gin router
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.Server.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: false, // Set to false when using wildcard origins
	}))
	router.Use(api.RateLimitMiddleware(cfg.RateLimit.RequestsPerSecond))

	handler := api.NewHandler(engine, db)
	handler.RegisterRoutes(router)

	srv := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler: router,
	}

	go func() {
		slog.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logging.Fatalf("server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server shutdown error", "error", err)
	}

	cancel()
	mgr.Stop()
	broadcaster.Close()
	if forwarder != nil {
		if err := forwarder.Close(); err != nil {
			slog.Error("kafka writer close error", "error", err)
		}
	}
	grpcServer.Stop()

	slog.Info("shutdown complete")
}
