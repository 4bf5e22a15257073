// Package server contains the HTTP handlers for the UrbanFix API.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	_ "urbanfix/docs" // swagger docs
	"urbanfix/internal/cache"
	"urbanfix/internal/config"
	"urbanfix/internal/database"
	"urbanfix/internal/featureflags"
	"urbanfix/internal/geo"
	"urbanfix/internal/geocode"
	"urbanfix/internal/middleware"
	"urbanfix/internal/models"
	"urbanfix/internal/notifications"
	"urbanfix/internal/repository"
	"urbanfix/internal/service"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/gofiber/swagger"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Server holds all dependencies and provides handlers
type Server struct {
	config         *config.Config
	db             *gorm.DB
	redis          *redis.Client
	promMiddleware *fiberprometheus.FiberPrometheus
	store          *repository.Store
	notifier       *notifications.Notifier
	featureFlags   *featureflags.Manager
	ipLocator      *geocode.IPLocator

	resolver  *service.Resolver
	scoring   *service.ScoringService
	lifecycle *service.LifecycleService
	issues    *service.IssueService
}

// NewServer connects to Postgres and Redis and wires the services.
func NewServer(cfg *config.Config) (*Server, error) {
	db, err := database.Connect(cfg)
	if err != nil {
		return nil, fmt.Errorf("database connection failed: %w", err)
	}

	// A nil client means Redis is unreachable; dependents degrade.
	cache.InitRedis(cfg.RedisURL)

	return NewServerWithDeps(cfg, db, cache.GetClient())
}

// NewServerWithDeps creates a Server using already-initialized dependencies.
// Use this in tests or when a bootstrap layer establishes DB/Redis.
func NewServerWithDeps(cfg *config.Config, db *gorm.DB, redisClient *redis.Client) (*Server, error) {
	middleware.InitMiddleware(cfg)

	store := repository.NewStore(db)
	flags := featureflags.NewManager(cfg.FeatureFlags)
	settings := service.SettingsFromConfig(cfg)

	var locker cache.Locker
	if redisClient != nil {
		locker = cache.NewRedisLocker(redisClient, cfg.GeocellLockTTL, cfg.GeocellLockWait)
	} else {
		slog.Warn("redis unavailable, geocell locks are process-local")
		locker = cache.NewLocalLocker(cfg.GeocellLockWait)
	}

	var notifier *notifications.Notifier
	if redisClient != nil && flags.Enabled(featureflags.IssueEvents, uuid.Nil) {
		notifier = notifications.NewNotifier(redisClient)
	}

	var reverser geocode.Reverser
	if cfg.GeocoderURL != "" {
		reverser = geocode.NewNominatim(cfg.GeocoderURL, cfg.GeocoderTimeout, redisClient)
	}

	defaultCenter := geo.Point{Lat: cfg.DefaultMapLat, Lng: cfg.DefaultMapLng}
	s := &Server{
		config:         cfg,
		db:             db,
		redis:          redisClient,
		promMiddleware: middleware.InitMetrics("urbanfix-api"),
		store:          store,
		notifier:       notifier,
		featureFlags:   flags,
		ipLocator:      geocode.NewIPLocator(cfg.IPLocationURL, defaultCenter, cfg.GeocoderTimeout),
	}

	s.lifecycle = service.NewLifecycleService(store, redisClient, notifier, settings)
	s.scoring = service.NewScoringService(store, redisClient)
	s.issues = service.NewIssueService(store, redisClient, settings)
	s.resolver = service.NewResolver(service.ResolverDeps{
		Store:     store,
		Redis:     redisClient,
		Locker:    locker,
		Lifecycle: s.lifecycle,
		Geocoder:  reverser,
		Flags:     flags,
		Notifier:  notifier,
	}, settings)

	return s, nil
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

	if s.promMiddleware != nil {
		app.Use(middleware.MetricsMiddleware(s.promMiddleware))
	}

	// Security headers
	app.Use(helmet.New())

	// Structured Logging middleware (after requestid and context middleware)
	app.Use(middleware.StructuredLogger())

	// CORS runs before the limiter so error responses still carry CORS headers.
	origins := s.config.AllowedOrigins
	if origins == "" {
		origins = "http://localhost:3000,http://127.0.0.1:3000"
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		AllowCredentials: origins != "*",
		MaxAge:           86400,
	}))

	// Global per-IP ceiling; per-operation throttles are set on routes.
	app.Use(limiter.New(limiter.Config{
		Max:        300,
		Expiration: 1 * time.Minute,
		Next: func(c *fiber.Ctx) bool {
			return c.Method() == fiber.MethodOptions || s.config.Env == "test"
		},
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return models.RespondWithAppError(c, models.NewTooManyRequestsError(time.Minute))
		},
	}))
}

// SetupRoutes configures all routes for the application
func (s *Server) SetupRoutes(app *fiber.App) {
	app.Get("/health/live", s.LivenessCheck)
	app.Get("/health/ready", s.ReadinessCheck)

	if s.promMiddleware != nil {
		s.promMiddleware.RegisterAt(app, "/metrics")
	}
	app.Get("/swagger/*", swagger.HandlerDefault)

	api := app.Group("/api")
	throttle := func(operation string, limit int) fiber.Handler {
		return middleware.Throttle{Operation: operation, Limit: limit, Window: s.config.WriteRateWindow}.Handler(s.redis)
	}

	api.Get("/location/ip", s.LocateIP)

	// Public issue reads. Specific paths come before /:id.
	issues := api.Group("/issues")
	issues.Get("/", s.ListIssues)
	issues.Get("/triage", s.GetTriage)
	issues.Get("/stats", s.GetStats)
	issues.Get("/nearby", s.GetNearby)
	issues.Get("/mine", middleware.AuthRequired, s.GetMyIssues)
	issues.Get("/:id/reports", s.GetIssueReports)
	issues.Get("/:id", s.GetIssue)

	// Authenticated writes
	issues.Post("/", middleware.AuthRequired,
		middleware.RequireRoles(models.RoleUser, models.RoleAdmin), throttle("reports", s.config.WriteRateLimit), s.SubmitReport)
	issues.Post("/:id/votes", middleware.AuthRequired, throttle("votes", s.config.VoteRateLimit), s.CastVote)
	issues.Post("/:id/address", middleware.AuthRequired,
		middleware.RequireRoles(models.RoleNGO, models.RoleAdmin), throttle("address", s.config.WriteRateLimit), s.MarkAddressed)
	issues.Post("/:id/ai-verification", middleware.AuthRequired,
		middleware.RequireRoles(models.RoleAdmin), s.RecordAIVerification)

	api.Get("/votes/me", middleware.AuthRequired, s.GetMyVotes)
	api.Get("/feature-flags", middleware.AuthRequired, s.GetFeatureFlags)
}

// LivenessCheck handles liveness probe requests
func (s *Server) LivenessCheck(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"status": "up",
		"time":   time.Now(),
	})
}

// ReadinessCheck pings the database and Redis.
func (s *Server) ReadinessCheck(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), 5*time.Second)
	defer cancel()

	dbStatus := "healthy"
	if err := s.store.Ping(ctx); err != nil {
		dbStatus = "unhealthy"
	}

	redisStatus := "healthy"
	if s.redis != nil {
		if err := s.redis.Ping(ctx).Err(); err != nil {
			redisStatus = "unhealthy"
		}
	} else {
		redisStatus = "unavailable"
	}

	status := fiber.StatusOK
	overallStatus := "healthy"
	if dbStatus != "healthy" || redisStatus != "healthy" {
		status = fiber.StatusServiceUnavailable
		overallStatus = "unhealthy"
	}

	return c.Status(status).JSON(fiber.Map{
		"status": overallStatus,
		"checks": fiber.Map{
			"database": dbStatus,
			"redis":    redisStatus,
		},
		"time": time.Now(),
	})
}

// Shutdown releases the database and Redis connections.
func (s *Server) Shutdown(ctx context.Context) error {
	slog.InfoContext(ctx, "closing server resources")
	if s.redis != nil {
		if err := s.redis.Close(); err != nil {
			slog.WarnContext(ctx, "failed to close redis", "error", err)
		}
	}
	if s.db != nil {
		sqlDB, err := s.db.DB()
		if err != nil {
			return err
		}
		return sqlDB.Close()
	}
	return nil
}
