package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"boostclics/internal/config"
	"boostclics/internal/db"
	"boostclics/internal/graphql"
	httpServer "boostclics/internal/http"
	"boostclics/internal/http/handlers"
	"boostclics/internal/identity"
	"boostclics/internal/logger"
	"boostclics/internal/repository"
	"boostclics/internal/service"
	"boostclics/internal/telegram"
	"boostclics/internal/upstream"
	"boostclics/internal/ws"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	redis "github.com/redis/go-redis/v9"
)

func main() {
	cfg := config.Load()
	logger.Init(cfg.LogLevel, cfg.LogJSON)

	retry := upstream.Policy{Retries: cfg.UpstreamRetry, InitialInterval: 500 * time.Millisecond}
	health := map[string]handlers.Pinger{}

	// Optional login bookkeeping
	var users service.LoginRecorder
	var dbPool *pgxpool.Pool
	if cfg.DatabaseURL != "" {
		dbPool = db.Connect(cfg.DatabaseURL)
		defer dbPool.Close()

		if cfg.DBAutoMigrate {
			if err := db.Migrate(context.Background(), dbPool); err != nil {
				logger.Fatal("failed to apply migrations", "error", err)
			}
		}
		users = repository.NewUserRepository(dbPool)
		health["database"] = dbPool
	}

	// Optional shared rate limiting and task cache
	rdb := connectRedis(cfg)
	var taskCache *service.TaskCache
	if rdb != nil {
		defer rdb.Close()
		taskCache = service.NewTaskCache(rdb, cfg.TasksCacheTTL)
		health["redis"] = handlers.PingFunc(func(ctx context.Context) error {
			return rdb.Ping(ctx).Err()
		})
	}

	idp := identity.NewClient(identity.Config{
		BaseURL:      cfg.AuthURL,
		SharedSecret: cfg.AuthSharedSecret,
		Audience:     cfg.AuthAudience,
		Timeout:      cfg.UpstreamTimeout,
		Retry:        retry,
	})
	gql := graphql.NewClient(graphql.Config{
		URL:     cfg.GraphQLURL,
		Timeout: cfg.UpstreamTimeout,
		Retry:   retry,
	})

	authService := service.NewAuthService(telegram.NewVerifier(cfg.BotToken), idp, users, cfg.InitDataMaxAge)
	taskService := service.NewTaskService(gql, taskCache)
	feed := ws.NewFeed(taskService, cfg.TasksFeedInterval, cfg.CORSAllowedOrigins)

	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())

	httpServer.RegisterRoutes(r, httpServer.RouteConfig{
		Handler:            handlers.NewHandler(authService, taskService),
		Health:             handlers.NewHealthHandler(cfg.AppVersion, health),
		Feed:               feed,
		Redis:              rdb,
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
		APIRateLimit:       cfg.APIRateLimit,
		APIRateWindow:      cfg.APIRateWindow,
		AuthRateLimit:      cfg.AuthRateLimit,
		AuthRateWindow:     cfg.AuthRateWindow,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.AppPort,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("server started", "port", cfg.AppPort, "version", cfg.AppVersion)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("listen failed", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	feed.Shutdown()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
	}

	logger.Info("server exited")
}

// connectRedis returns nil when Redis is not configured or unreachable, so
// the server keeps working with in-process limits and no cache.
func connectRedis(cfg *config.Config) *redis.Client {
	if cfg.RedisAddr == "" {
		return nil
	}
	client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		logger.Warn("redis unavailable, continuing without it", "error", err)
		_ = client.Close()
		return nil
	}
	logger.Info("redis connected")
	return client
}
