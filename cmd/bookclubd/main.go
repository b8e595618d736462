package main

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bookstore/services/bookclub/internal/auth"
	"github.com/bookstore/services/bookclub/internal/config"
	"github.com/bookstore/services/bookclub/internal/db"
	"github.com/bookstore/services/bookclub/internal/events"
	grpcserver "github.com/bookstore/services/bookclub/internal/grpc"
	"github.com/bookstore/services/bookclub/internal/httpapi"
	"github.com/bookstore/services/bookclub/internal/metrics"
	"github.com/bookstore/services/bookclub/internal/repo"
	"github.com/bookstore/services/bookclub/internal/service"
	"github.com/bookstore/services/bookclub/pkg/logger"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health/grpc_health_v1"
)

func main() {
	dotenvErr := config.LoadDotEnv()

	// Load configuration
	cfg := config.Load()

	// Initialize logger
	log := logger.New(cfg.ServiceName, cfg.LogLevel, cfg.LogFormat)
	defer log.Sync()

	if dotenvErr != nil {
		log.Debug("No .env file loaded", zap.Error(dotenvErr))
	}
	log.Info("BookClub service starting")

	database, err := openDatabase(cfg, log)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer database.Close()

	// Run migrations
	log.Info("Running database migrations...")
	if err := db.RunMigrations(database); err != nil {
		log.Fatal("Failed to run migrations", zap.Error(err))
	}

	// Repositories
	catalogRepo := repo.NewCatalogRepository(database, log)
	commentRepo := repo.NewCommentRepository(database, log)
	shelfRepo := repo.NewShelfRepository(database, log)
	statsRepo, err := repo.NewStatsRepository(database, log)
	if err != nil {
		log.Fatal("Failed to create stats repository", zap.Error(err))
	}

	services := grpcserver.Services{
		Catalog:     service.NewCatalog(catalogRepo, log),
		Annotations: service.NewAnnotations(commentRepo, catalogRepo, log),
		Shelf:       service.NewShelf(shelfRepo, catalogRepo, log),
		Statistics:  service.NewStatistics(statsRepo, log),
	}

	publisher := openPublisher(cfg, log)
	defer publisher.Close()

	// Metrics
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	instruments := metrics.New(registry)
	if err := metrics.RegisterCatalogCollector(registry, catalogRepo, log); err != nil {
		log.Fatal("Failed to register catalog collector", zap.Error(err))
	}

	// Create gRPC server
	grpcServer := grpc.NewServer(
		grpc.ChainUnaryInterceptor(
			grpcserver.CorrelationInterceptor(),
			grpcserver.LoggingInterceptor(log, instruments),
			auth.UnaryServerInterceptor(resolver(cfg, log), log),
		),
	)

	grpcserver.RegisterBookClubServer(grpcServer, grpcserver.NewBookClubService(services, publisher, instruments, log))

	// Register health service
	healthServer := grpcserver.NewHealthServer(database, publisher, log)
	grpc_health_v1.RegisterHealthServer(grpcServer, healthServer)

	// Start gRPC server
	grpcListener, err := net.Listen("tcp", fmt.Sprintf(":%s", cfg.GRPCPort))
	if err != nil {
		log.Fatal("Failed to listen on gRPC port", zap.Error(err))
	}

	go func() {
		log.Info("Starting gRPC server", zap.String("address", grpcListener.Addr().String()))
		if err := grpcServer.Serve(grpcListener); err != nil {
			log.Fatal("Failed to serve gRPC", zap.Error(err))
		}
	}()

	// Start HTTP server for health checks and metrics
	gin.SetMode(gin.ReleaseMode)
	httpServer := &http.Server{
		Addr: fmt.Sprintf(":%s", cfg.HTTPHealthPort),
		Handler: httpapi.NewRouter(httpapi.Deps{
			DB:       database,
			Broker:   publisher,
			Gatherer: registry,
			Log:      log,
		}),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		log.Info("Starting HTTP server", zap.String("address", httpServer.Addr))
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Failed to serve HTTP", zap.Error(err))
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := httpServer.Shutdown(ctx); err != nil {
		log.Error("HTTP server shutdown error", zap.Error(err))
	}

	stopped := make(chan struct{})
	go func() {
		grpcServer.GracefulStop()
		close(stopped)
	}()
	select {
	case <-stopped:
	case <-ctx.Done():
		log.Warn("Graceful stop timed out, forcing")
		grpcServer.Stop()
	}

	log.Info("Server stopped")
}

func openDatabase(cfg *config.Config, log *zap.Logger) (*db.DB, error) {
	switch cfg.DBDriver {
	case "sqlite":
		log.Info("Opening SQLite database", zap.String("path", cfg.SQLitePath))
		return db.OpenSQLite(cfg.SQLitePath)
	case "postgres", "":
		log.Info("Connecting to database...")
		return db.Connect(cfg.PGDSN)
	default:
		return nil, fmt.Errorf("unsupported DB_DRIVER %q", cfg.DBDriver)
	}
}

// openPublisher connects to RabbitMQ, or drops events when they are disabled
func openPublisher(cfg *config.Config, log *zap.Logger) events.EventPublisher {
	if !cfg.EventsEnabled {
		log.Info("Event publishing disabled")
		return events.NopPublisher{}
	}

	log.Info("Connecting to RabbitMQ")
	publisher, err := events.NewPublisher(cfg.RabbitMQURL, log)
	if err != nil {
		log.Fatal("Failed to connect to RabbitMQ", zap.Error(err))
	}
	return publisher
}

func resolver(cfg *config.Config, log *zap.Logger) auth.Resolver {
	if !cfg.Auth.Enabled {
		log.Warn("Authentication disabled, trusting x-username and x-roles headers")
		return auth.HeaderResolver{ReadRole: cfg.Auth.ReadRole, AdminRole: cfg.Auth.AdminRole}
	}
	if cfg.Auth.JWTSecret == "" {
		log.Fatal("JWT_SECRET is required when AUTH_ENABLED is true")
	}
	return auth.NewVerifier(cfg.Auth.JWTSecret, cfg.Auth.ReadRole, cfg.Auth.AdminRole)
}
