package http

import (
	"net/http"
	"strings"
	"time"

	"boostclics/internal/http/handlers"
	"boostclics/internal/http/middleware"
	"boostclics/internal/web"
	"boostclics/internal/ws"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	redis "github.com/redis/go-redis/v9"
)

// RouteConfig carries everything RegisterRoutes wires together.
type RouteConfig struct {
	Handler *handlers.Handler
	Health  *handlers.HealthHandler
	Feed    *ws.Feed

	// Redis enables shared rate limiting; nil falls back to in-process limits.
	Redis *redis.Client

	CORSAllowedOrigins []string

	APIRateLimit   int
	APIRateWindow  time.Duration
	AuthRateLimit  int
	AuthRateWindow time.Duration
}

type limiterFunc func(name string, max int, window time.Duration, keyFn middleware.KeyFunc) gin.HandlerFunc

func RegisterRoutes(r *gin.Engine, cfg RouteConfig) {
	r.Use(middleware.RequestID(), middleware.AccessLog(), middleware.Metrics(), middleware.CORS(cfg.CORSAllowedOrigins))

	var limit limiterFunc = middleware.SimpleRateLimit
	if cfg.Redis != nil {
		limit = middleware.NewRedisLimiter(cfg.Redis).Limit
	}

	// Health checks (no rate limiting)
	r.GET("/health", cfg.Health.Health)
	r.GET("/healthz", cfg.Health.Liveness)
	r.GET("/readyz", cfg.Health.Readiness)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// API v1 routes
	v1 := r.Group("/api/v1")
	v1.Use(limit("api", cfg.APIRateLimit, cfg.APIRateWindow, middleware.ByIP))
	registerAPIRoutes(v1, cfg, limit)

	// Legacy /api routes
	api := r.Group("/api")
	api.Use(limit("api_legacy", cfg.APIRateLimit, cfg.APIRateWindow, middleware.ByIP))
	api.GET("/health", cfg.Health.Health)
	registerAPIRoutes(api, cfg, limit)

	if cfg.Feed != nil {
		r.GET("/ws/tasks", cfg.Feed.Handle)
	}

	// Frontend
	r.GET("/", web.Index)
	r.NoRoute(func(c *gin.Context) {
		if strings.HasPrefix(c.Request.URL.Path, "/api/") {
			c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
			return
		}
		web.Index(c)
	})
}

func registerAPIRoutes(api *gin.RouterGroup, cfg RouteConfig, limit limiterFunc) {
	h := cfg.Handler

	api.GET("/test", handlers.APITest)

	// Auth
	api.POST("/auth", limit("auth:"+api.BasePath(), cfg.AuthRateLimit, cfg.AuthRateWindow, middleware.ByIP), h.Auth)

	// Tasks
	api.GET("/tasks", middleware.Bearer(), limit("tasks:"+api.BasePath(), cfg.APIRateLimit, cfg.APIRateWindow, middleware.BySession), h.ListTasks)
}
