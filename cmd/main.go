package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"binarybets/internal/app"
	"binarybets/internal/auth"
	"binarybets/internal/config"
	"binarybets/internal/handlers"
	"binarybets/internal/logger"
	"binarybets/internal/metrics"
	"binarybets/internal/services"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	zl, err := logger.New("binarybets", cfg.Log.Env, cfg.Log.Level)
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer func() { _ = zl.Sync() }()

	tokens, err := auth.NewManager(cfg.App.JWTSecret)
	if err != nil {
		zl.Fatal("failed to init jwt", zap.Error(err))
	}

	a, err := app.New(cfg, zl, prometheus.DefaultRegisterer)
	if err != nil {
		zl.Fatal("failed to build application", zap.Error(err))
	}
	defer a.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	metricsSrv := metrics.StartMetricsServer(cfg.Server.MetricsPort, prometheus.DefaultGatherer, a.Ping)

	// Start background resolvers
	var wg sync.WaitGroup
	if cfg.Resolver.Enabled {
		for _, r := range a.Resolvers {
			wg.Add(1)
			go func() {
				defer wg.Done()
				r.Start(ctx)
			}()
		}
		zl.Info("market resolvers started",
			zap.Duration("continuous_interval", cfg.Resolver.ContinuousInterval),
			zap.Duration("deadline_interval", cfg.Resolver.DeadlineInterval))
	}

	if cfg.Log.Env != "local" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())

	// CORS middleware
	allowedOrigins := []string{
		"http://localhost:3000", // Local development
		"http://localhost:5173", // Vite dev server
		"http://127.0.0.1:3000",
		"http://127.0.0.1:5173",
	}
	if cfg.Server.FrontendURL != "" {
		allowedOrigins = append(allowedOrigins, cfg.Server.FrontendURL)
	}

	router.Use(cors.New(cors.Config{
		AllowOrigins:     allowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS", "PATCH"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "Accept", "X-Requested-With"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	handlers.RegisterRoutes(router, tokens, zl,
		handlers.NewBetHandler(a.Bets),
		handlers.NewUserHandler(services.NewUserService(a.Repo)),
		handlers.NewMarketHandler(services.NewMarketService(a.Repo, zl)),
		handlers.NewResolutionHandler(a.Repo, a.Settlement, a.Evidence, a.Resolvers...),
	)

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		zl.Info("server starting", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zl.Fatal("failed to start server", zap.Error(err))
		}
	}()

	<-ctx.Done()
	zl.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		zl.Error("server forced to shutdown", zap.Error(err))
	}
	if err := metricsSrv.Shutdown(shutdownCtx); err != nil {
		zl.Error("metrics server forced to shutdown", zap.Error(err))
	}

	// Resolvers stop at the next market boundary once ctx is cancelled
	wg.Wait()
	zl.Info("server exited")
}
