package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	rediscache "github.com/streamop/switchwatch/internal/cache"
	"github.com/streamop/switchwatch/internal/config"
	"github.com/streamop/switchwatch/internal/database"
	"github.com/streamop/switchwatch/internal/logging"
	"github.com/streamop/switchwatch/internal/middleware"
	"github.com/streamop/switchwatch/internal/queue"
	"github.com/streamop/switchwatch/internal/tracing"
	"github.com/streamop/switchwatch/pkg/models"
)

// Repo is the subset of repository operations the API needs
type Repo interface {
	Health(ctx context.Context) error
	CreateStreamServer(ctx context.Context, server *models.StreamServer) error
	GetStreamServer(ctx context.Context, id string) (*models.StreamServer, error)
	ListStreamServers(ctx context.Context) ([]*models.StreamServer, error)
	UpdateStreamServer(ctx context.Context, server *models.StreamServer) error
	DeleteStreamServer(ctx context.Context, id string) error
	ListHealthEvents(ctx context.Context, serverID string, limit int) ([]*models.HealthEvent, error)
	CreateWebhook(ctx context.Context, webhook *models.Webhook) error
	ListWebhooks(ctx context.Context) ([]*models.Webhook, error)
	DeleteWebhook(ctx context.Context, id string) error
}

// HealthCache is the subset of cache operations the API needs
type HealthCache interface {
	GetStreamHealth(ctx context.Context, serverID string) (*models.StreamHealth, error)
	GetLastBitrate(ctx context.Context, serverID string) (int64, error)
}

// EventBus is the queue surface the API reports on. Depth growing without
// bound means no consumer is draining switch events.
type EventBus interface {
	GetQueueDepth() (int, error)
}

type API struct {
	repo  Repo
	cache HealthCache
	bus   EventBus
	log   *logging.Logger
}

func main() {
	// Load configuration
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger, err := logging.NewLogger(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	// Initialize JWT secret from config
	middleware.SetJWTSecret(cfg.Auth.JWTSecret)

	// Initialize tracing
	tracerCloser, err := tracing.Init(cfg.Tracing)
	if err != nil {
		logger.Fatalf("Failed to initialize tracer: %v", err)
	}
	defer tracerCloser.Close()

	// Initialize database
	db, err := database.New(cfg.Database)
	if err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	repo := database.NewRepository(db)

	// Initialize cache
	cache, err := rediscache.NewCache(cfg.Redis.Host, cfg.Redis.Port, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		logger.Fatalf("Failed to connect to Redis: %v", err)
	}
	defer cache.Close()

	// Initialize queue. Declaring here makes the exchange exist before the
	// monitor publishes, and the health endpoint reports its depth.
	q, err := queue.New(cfg.Queue)
	if err != nil {
		logger.Fatalf("Failed to connect to queue: %v", err)
	}
	defer q.Close()

	// Create API instance
	api := &API{
		repo:  repo,
		cache: cache,
		bus:   q,
		log:   logger,
	}

	// Setup router
	router := setupRouter(api, cfg, logger)

	// Create HTTP server
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// Start server in goroutine
	go func() {
		logger.Infof("Starting API server on %s", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	// Graceful shutdown
	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Fatalf("Server forced to shutdown: %v", err)
	}

	logger.Info("Server stopped")
}

func setupRouter(api *API, cfg *config.Config, logger *logging.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.Logger(logger))
	router.Use(middleware.Tracing())

	// Health check
	router.GET("/health", api.healthCheck)

	// API routes
	rl := middleware.NewRateLimiter(cfg.Server.RateLimitRPS, cfg.Server.RateLimitBurst)
	v1 := router.Group("/api/v1")
	v1.Use(middleware.JWTAuth(), middleware.RateLimit(rl))
	{
		// Stream servers
		v1.POST("/servers", api.createServer)
		v1.GET("/servers", api.listServers)
		v1.GET("/servers/:id", api.getServer)
		v1.PUT("/servers/:id", api.updateServer)
		v1.DELETE("/servers/:id", api.deleteServer)

		// Live queries against a server's stats endpoint
		v1.GET("/servers/:id/bitrate", api.getBitrate)
		v1.GET("/servers/:id/switch", api.getSwitch)
		v1.GET("/servers/:id/source", api.getSourceInfo)

		// Monitoring state
		v1.GET("/servers/:id/health", api.getHealth)
		v1.GET("/servers/:id/events", api.listEvents)

		// Webhooks
		v1.POST("/webhooks", api.createWebhook)
		v1.GET("/webhooks", api.listWebhooks)
		v1.DELETE("/webhooks/:id", api.deleteWebhook)
	}

	return router
}

// Health check endpoint
func (api *API) healthCheck(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	// Check database health
	if err := api.repo.Health(ctx); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status": "unhealthy",
			"error":  err.Error(),
		})
		return
	}

	resp := gin.H{"status": "healthy"}

	// The API keeps serving without the queue, so a broker problem only
	// degrades the report instead of failing it.
	if api.bus != nil {
		if depth, err := api.bus.GetQueueDepth(); err != nil {
			resp["status"] = "degraded"
			resp["queue_error"] = err.Error()
		} else {
			resp["queue_depth"] = depth
		}
	}

	c.JSON(http.StatusOK, resp)
}
