package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"sipitali-server/internal/config"
	"sipitali-server/internal/logger"
	"sipitali-server/internal/metrics"
	"sipitali-server/internal/ratelimit"
	"sipitali-server/internal/repository"
	"sipitali-server/internal/routes"
	"sipitali-server/internal/utils"
)

func main() {
	// A missing .env is fine; the environment may already be populated.
	envErr := godotenv.Load()

	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(cfg.LogLevel, cfg.LogFormat)
	if envErr != nil {
		log.WithError(envErr).Debug("No .env file loaded")
	}
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	stores, closeDB, err := repository.Open(cfg.Database, !cfg.IsProduction() && cfg.LogLevel == "debug")
	if err != nil {
		log.WithError(err).Fatal("Error connecting to database")
	}
	defer func() {
		if err := closeDB(); err != nil {
			log.WithError(err).Warn("Error closing database")
		}
	}()
	log.WithField("driver", cfg.Database.Driver).Info("Database ready")

	var rdb *redis.Client
	var limiter ratelimit.Limiter = ratelimit.NewMemoryLimiter(cfg.LoginRateLimit, cfg.LoginRateWindow)
	if cfg.Redis.Addr != "" {
		rdb, err = ratelimit.NewRedisClient(cfg.Redis)
		if err != nil {
			log.WithError(err).Warn("Redis unavailable, using in-process rate limiting")
		} else {
			defer rdb.Close()
			limiter = ratelimit.NewRedisLimiter(rdb, cfg.LoginRateLimit, cfg.LoginRateWindow)
		}
	}

	router := gin.New()
	router.Use(gin.CustomRecovery(func(c *gin.Context, recovered any) {
		log.WithField("panic", recovered).Error("Recovered from panic")
		utils.InternalServerError(c, "Server error")
		c.Abort()
	}))

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = []string{cfg.Origin}
	corsConfig.AllowCredentials = true
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Request-ID"}
	corsConfig.ExposeHeaders = []string{"X-Request-ID"}
	router.Use(cors.New(corsConfig))

	routes.SetupRoutes(router, routes.Dependencies{
		Config:  cfg,
		Stores:  stores,
		Log:     log,
		Metrics: metrics.New(),
		Limiter: limiter,
		Redis:   rdb,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		log.WithField("port", cfg.Port).Info("Server running")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Error("Failed to start server")
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("Shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("Server forced to shutdown")
	}
}
