// Package server contains HTTP and WebSocket handlers for the board's API endpoints.
package server

import (
	"context"
	"errors"
	"log"
	"time"

	_ "whisperwall/docs" // swagger docs
	"whisperwall/internal/bootstrap"
	"whisperwall/internal/cache"
	"whisperwall/internal/config"
	"whisperwall/internal/middleware"
	"whisperwall/internal/models"
	"whisperwall/internal/notifications"
	"whisperwall/internal/ratelimit"
	"whisperwall/internal/repository"
	"whisperwall/internal/service"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/gofiber/swagger"
	"github.com/redis/go-redis/v9"
)

// Server holds all dependencies and provides handlers
type Server struct {
	config         *config.Config
	store          *repository.Store
	redis          *redis.Client
	app            *fiber.App
	promMiddleware *fiberprometheus.FiberPrometheus
	shutdownCtx    context.Context
	shutdownFn     context.CancelFunc

	hub       *notifications.Hub
	heartbeat *notifications.Heartbeat
	limiter   ratelimit.Limiter
	pruner    *ratelimit.Pruner

	messageService *service.MessageService
	commentService *service.CommentService
	statsService   *service.StatsService
	authService    *service.AuthService
}

// NewServer creates a new server instance with all dependencies
func NewServer(cfg *config.Config) (*Server, error) {
	store, redisClient, err := bootstrap.InitRuntime(context.Background(), cfg, bootstrap.Options{})
	if err != nil {
		return nil, err
	}
	return NewServerWithDeps(cfg, store, redisClient, nil)
}

// NewServerWithDeps creates a Server using already-initialized dependencies.
// redisClient and hub may be nil; a nil hub is replaced with a fresh one.
func NewServerWithDeps(cfg *config.Config, store *repository.Store, redisClient *redis.Client, hub *notifications.Hub) (*Server, error) {
	if hub == nil {
		hub = notifications.NewHub(cfg.WSMaxConnections)
	}

	lim, err := ratelimit.New(cfg, store, redisClient)
	if err != nil {
		return nil, err
	}

	authService, err := service.NewAuthService(cfg)
	if err != nil {
		return nil, err
	}

	s := &Server{
		config:         cfg,
		store:          store,
		redis:          redisClient,
		promMiddleware: middleware.InitMetrics("whisperwall-api"),
		hub:            hub,
		heartbeat:      notifications.NewHeartbeat(hub, cfg.WSPingInterval),
		limiter:        lim,
		authService:    authService,
	}
	if cfg.RateLimitMode == config.RateLimitStore {
		s.pruner = ratelimit.NewPruner(store.RateLimits, cfg.RateLimitPruneCron, cfg.RateLimitRetention)
	}

	s.statsService = service.NewStatsService(store, cache.New(redisClient), cfg.StatsCacheTTL)
	s.messageService = service.NewMessageService(store, hub, lim, s.statsService)
	s.commentService = service.NewCommentService(store, hub, s.statsService)

	s.app = s.newApp()
	return s, nil
}

// App returns the configured Fiber app.
func (s *Server) App() *fiber.App {
	return s.app
}

// Hub returns the live-channel registry.
func (s *Server) Hub() *notifications.Hub {
	return s.hub
}

func (s *Server) newApp() *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:      "Whisperwall API",
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			var fe *fiber.Error
			if errors.As(err, &fe) {
				return c.Status(fe.Code).JSON(models.ErrorResponse{Error: fe.Message})
			}
			middleware.Logger.ErrorContext(c.UserContext(), "unhandled error", "error", err)
			return models.RespondWithError(c, fiber.StatusInternalServerError,
				models.NewInternalError(err))
		},
	})

	s.SetupMiddleware(app)
	s.SetupRoutes(app)
	return app
}

// SetupMiddleware configures middleware for the Fiber app
func (s *Server) SetupMiddleware(app *fiber.App) {
	// Panic recovery
	app.Use(recover.New())

	// Request ID for tracing
	app.Use(requestid.New())

	app.Use(middleware.TracingMiddleware())

	// Context Middleware to propagate Request ID and trace ID
	app.Use(middleware.ContextMiddleware())

	// Prometheus Metrics
	if s.promMiddleware != nil {
		app.Use(middleware.MetricsMiddleware(s.promMiddleware))
	}

	// Security headers
	app.Use(helmet.New())

	// Structured Logging middleware (after requestid and context middleware)
	app.Use(middleware.StructuredLogger())

	// CORS middleware should run before middlewares that can short-circuit (e.g. limiter)
	// so browser clients still receive CORS headers on error responses.
	origins := s.config.AllowedOrigins
	if origins == "" {
		origins = "http://localhost:5173,http://localhost:3000,http://127.0.0.1:5173"
	}

	app.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, Upgrade, Connection, Sec-WebSocket-Key, Sec-WebSocket-Version",
		AllowCredentials: origins != "*",
		MaxAge:           86400, // 24 hours
	}))

	// Global rate limiting (100 requests per minute per IP)
	app.Use(limiter.New(limiter.Config{
		Max:        100,
		Expiration: 1 * time.Minute,
		// Never rate-limit preflight requests or the test profile.
		Next: func(c *fiber.Ctx) bool {
			return c.Method() == fiber.MethodOptions || s.config.Env == "test"
		},
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return models.RespondWithError(c, fiber.StatusTooManyRequests,
				models.NewRateLimitedError("Too many requests, please try again later."))
		},
	}))
}

// burstLimit caps per-address bursts on a route when Redis is configured.
// The test profile is never limited.
func (s *Server) burstLimit(limit int, window time.Duration, name string) fiber.Handler {
	if s.redis == nil || s.config.Env == "test" {
		return func(c *fiber.Ctx) error { return c.Next() }
	}
	return middleware.Burst(s.redis, middleware.BurstConfig{
		Name:   name,
		Limit:  limit,
		Window: window,
	})
}

// SetupRoutes configures all routes for the application
func (s *Server) SetupRoutes(app *fiber.App) {
	api := app.Group("/api")

	// Health checks
	app.Get("/health/live", s.LivenessCheck)
	app.Get("/health/ready", s.ReadinessCheck)
	app.Get("/health", s.ReadinessCheck)

	// Metrics endpoint for Prometheus
	if s.promMiddleware != nil {
		s.promMiddleware.RegisterAt(app, "/metrics")
	}

	// Swagger documentation
	api.Get("/swagger/*", swagger.HandlerDefault)

	// Auth routes
	auth := api.Group("/auth")
	auth.Post("/login", s.burstLimit(10, 5*time.Minute, "login"), s.Login)
	auth.Post("/admin", s.burstLimit(5, 5*time.Minute, "admin_login"), s.AdminLogin)

	admin := middleware.AdminRequired(s.authService.VerifyAdminToken)

	// Message routes. Specific /:id/:resource routes come before generic /:id.
	messages := api.Group("/messages")
	messages.Post("/", s.CreateMessage)
	messages.Get("/", s.GetMessages)
	messages.Get("/:id/comments", s.GetComments)
	messages.Post("/:id/comments", s.burstLimit(10, time.Minute, "create_comment"), s.CreateComment)
	messages.Post("/:id/like", s.burstLimit(30, time.Minute, "like"), s.LikeMessage)
	messages.Post("/:id/demote", admin, s.DemoteMessage)
	messages.Get("/:id", s.GetMessage)
	messages.Delete("/:id", admin, s.DeleteMessage)

	comments := api.Group("/comments")
	comments.Post("/:id/like", s.burstLimit(30, time.Minute, "like"), s.LikeComment)
	comments.Delete("/:id", admin, s.DeleteComment)

	api.Get("/stats", s.GetStats)

	// Live channel
	app.Get("/ws", s.WebSocketUpgrade, s.WebsocketHandler())
}

// LivenessCheck handles liveness probe requests
// @Summary Liveness probe
// @Tags health
// @Produce json
// @Success 200 {object} object{status=string,time=string}
// @Router /health/live [get]
func (s *Server) LivenessCheck(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"status": "up",
		"time":   time.Now(),
	})
}

// ReadinessCheck handles readiness probe requests
// @Summary Readiness probe
// @Tags health
// @Produce json
// @Success 200 {object} object{status=string}
// @Failure 503 {object} object{status=string}
// @Router /health/ready [get]
func (s *Server) ReadinessCheck(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), 5*time.Second)
	defer cancel()

	storeStatus := "healthy"
	if err := s.store.Ping(ctx); err != nil {
		storeStatus = "unhealthy"
	}

	// Redis is optional; it only fails readiness when configured and down.
	redisStatus := "disabled"
	if s.redis != nil {
		redisStatus = "healthy"
		if err := s.redis.Ping(ctx).Err(); err != nil {
			redisStatus = "unhealthy"
		}
	}

	status := fiber.StatusOK
	overallStatus := "healthy"
	if storeStatus == "unhealthy" || redisStatus == "unhealthy" {
		status = fiber.StatusServiceUnavailable
		overallStatus = "unhealthy"
	}

	return c.Status(status).JSON(fiber.Map{
		"status": overallStatus,
		"checks": fiber.Map{
			"store":   storeStatus,
			"backend": s.store.Backend(),
			"redis":   redisStatus,
		},
		"connections": s.hub.Count(),
		"time":        time.Now(),
	})
}

// Start runs the background jobs and listens on the configured port.
func (s *Server) Start() error {
	ctx, cancel := context.WithCancel(context.Background())
	s.shutdownCtx = ctx
	s.shutdownFn = cancel

	s.heartbeat.Start(ctx)
	if s.pruner != nil {
		s.pruner.Start(ctx)
	}

	log.Printf("Server starting on port %s...", s.config.Port)
	return s.app.Listen(":" + s.config.Port)
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	// Cancel the server-scoped context to stop background jobs
	if s.shutdownFn != nil {
		s.shutdownFn()
	}
	s.heartbeat.Stop()
	if local, ok := s.limiter.(*ratelimit.LocalLimiter); ok {
		local.Shutdown()
	}

	// Close WebSocket connections before the listener so clients see a
	// going-away frame.
	if err := s.hub.Shutdown(ctx); err != nil {
		log.Printf("error shutting down hub: %v", err)
	}

	// Shutdown the HTTP/WS server
	if s.app != nil {
		if err := s.app.ShutdownWithContext(ctx); err != nil {
			log.Printf("error shutting down HTTP server: %v", err)
		}
	}

	if err := s.store.Close(); err != nil {
		log.Printf("error closing store: %v", err)
	}

	// Close Redis connection
	if s.redis != nil {
		if rerr := s.redis.Close(); rerr != nil {
			log.Printf("error closing redis: %v", rerr)
		}
	}

	log.Println("Server shutdown complete")
	return nil
}
