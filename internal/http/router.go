// Package httpapi wires the HTTP transport (Gin) to application services,
// middleware, and route handlers. It centralizes cross-cutting concerns such
// as tracing, correlation IDs, logging/redaction, panic recovery, metrics,
// CORS, security headers, idempotency, and rate limiting.
//
// Design goals:
//   - Put observability first (OTel + Prometheus)
//   - Safe-by-default middleware ordering (RequestID → logging → recovery)
//   - Deterministic, minimal router setup; all dependencies injected
//   - Production-ready CORS and security header posture
package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"gorm.io/gorm"

	"github.com/fitstack/go-fitness-backend/internal/cache"
	"github.com/fitstack/go-fitness-backend/internal/config"
	"github.com/fitstack/go-fitness-backend/internal/domain"
	"github.com/fitstack/go-fitness-backend/internal/events"
	"github.com/fitstack/go-fitness-backend/internal/http/handlers"
	"github.com/fitstack/go-fitness-backend/internal/http/middleware"
	"github.com/fitstack/go-fitness-backend/internal/repo"
	"github.com/fitstack/go-fitness-backend/internal/services"
)

// onboardingRepoShim adapts the repository free functions to the
// services.OnboardingRepo interface expected by the OnboardingService. This
// keeps services decoupled from the concrete repo package while reusing
// existing functions.
type onboardingRepoShim struct{}

// GetProfile proxies repo.GetProfile.
func (onboardingRepoShim) GetProfile(ctx context.Context, db *gorm.DB, userID string) (*domain.Profile, error) {
	return repo.GetProfile(ctx, db, userID)
}

// GetBodyFatProfile proxies repo.GetBodyFatProfile.
func (onboardingRepoShim) GetBodyFatProfile(ctx context.Context, db *gorm.DB, userID string) (*domain.BodyFatProfile, error) {
	return repo.GetBodyFatProfile(ctx, db, userID)
}

// GetLatestSubscription proxies repo.GetLatestSubscription.
func (onboardingRepoShim) GetLatestSubscription(ctx context.Context, db *gorm.DB, userID string) (*domain.Subscription, error) {
	return repo.GetLatestSubscription(ctx, db, userID)
}

// CountWorkoutTemplates proxies repo.CountWorkoutTemplates.
func (onboardingRepoShim) CountWorkoutTemplates(ctx context.Context, db *gorm.DB, userID string) (int64, error) {
	return repo.CountWorkoutTemplates(ctx, db, userID)
}

// GetActiveMealPlan proxies repo.GetActiveMealPlan.
func (onboardingRepoShim) GetActiveMealPlan(ctx context.Context, db *gorm.DB, userID string) (*domain.MealPlan, error) {
	return repo.GetActiveMealPlan(ctx, db, userID)
}

// TouchLastLogin proxies repo.TouchLastLogin.
func (onboardingRepoShim) TouchLastLogin(ctx context.Context, db *gorm.DB, userID string, now time.Time) error {
	return repo.TouchLastLogin(ctx, db, userID, now)
}

// notificationRepoShim adapts the repository free functions to the
// services.NotificationRepo interface expected by the NotificationService.
type notificationRepoShim struct{}

// GetProfile proxies repo.GetProfile.
func (notificationRepoShim) GetProfile(ctx context.Context, db *gorm.DB, userID string) (*domain.Profile, error) {
	return repo.GetProfile(ctx, db, userID)
}

// ListActiveTriggers proxies repo.ListActiveTriggers.
func (notificationRepoShim) ListActiveTriggers(ctx context.Context, db *gorm.DB) ([]domain.NotificationTrigger, error) {
	return repo.ListActiveTriggers(ctx, db)
}

// ListUserIDs proxies repo.ListUserIDs.
func (notificationRepoShim) ListUserIDs(ctx context.Context, db *gorm.DB) ([]string, error) {
	return repo.ListUserIDs(ctx, db)
}

// ListInactiveUserIDs proxies repo.ListInactiveUserIDs.
func (notificationRepoShim) ListInactiveUserIDs(ctx context.Context, db *gorm.DB, cutoff time.Time) ([]string, error) {
	return repo.ListInactiveUserIDs(ctx, db, cutoff)
}

// ListUserIDsWithoutWorkoutSince proxies repo.ListUserIDsWithoutWorkoutSince.
func (notificationRepoShim) ListUserIDsWithoutWorkoutSince(ctx context.Context, db *gorm.DB, since time.Time) ([]string, error) {
	return repo.ListUserIDsWithoutWorkoutSince(ctx, db, since)
}

// ListUserIDsWithoutMealSince proxies repo.ListUserIDsWithoutMealSince.
func (notificationRepoShim) ListUserIDsWithoutMealSince(ctx context.Context, db *gorm.DB, since time.Time) ([]string, error) {
	return repo.ListUserIDsWithoutMealSince(ctx, db, since)
}

// ListUserIDsWithStreak proxies repo.ListUserIDsWithStreak.
func (notificationRepoShim) ListUserIDsWithStreak(ctx context.Context, db *gorm.DB, streak int) ([]string, error) {
	return repo.ListUserIDsWithStreak(ctx, db, streak)
}

// ListDeviceTokens proxies repo.ListDeviceTokens.
func (notificationRepoShim) ListDeviceTokens(ctx context.Context, db *gorm.DB, userID string) ([]domain.DeviceToken, error) {
	return repo.ListDeviceTokens(ctx, db, userID)
}

// CreateNotificationLog proxies repo.CreateNotificationLog.
func (notificationRepoShim) CreateNotificationLog(ctx context.Context, db *gorm.DB, l *domain.NotificationLog) error {
	return repo.CreateNotificationLog(ctx, db, l)
}

// MarkNotificationSent proxies repo.MarkNotificationSent.
func (notificationRepoShim) MarkNotificationSent(ctx context.Context, db *gorm.DB, id string, at time.Time) error {
	return repo.MarkNotificationSent(ctx, db, id, at)
}

// CountNotifications proxies repo.CountNotifications.
func (notificationRepoShim) CountNotifications(ctx context.Context, db *gorm.DB, userID string) (int64, error) {
	return repo.CountNotifications(ctx, db, userID)
}

// ListNotificationsPage proxies repo.ListNotificationsPage.
func (notificationRepoShim) ListNotificationsPage(ctx context.Context, db *gorm.DB, userID string, offset, limit int) ([]domain.NotificationLog, error) {
	return repo.ListNotificationsPage(ctx, db, userID, offset, limit)
}

// NotificationStats proxies repo.NotificationStats.
func (notificationRepoShim) NotificationStats(ctx context.Context, db *gorm.DB) (total, sent int64, err error) {
	return repo.NotificationStats(ctx, db)
}

// NewNotificationService builds a NotificationService on this package's repo
// shim. The cron scheduler uses it to share the exact wiring the HTTP layer
// gets.
func NewNotificationService(db *gorm.DB, pusher services.Pusher) *services.NotificationService {
	return &services.NotificationService{
		DB:   db,
		Repo: notificationRepoShim{},
		Push: pusher,
	}
}

// Deps carries the externally constructed collaborators the router wires into
// services. Everything else (services, handlers, shims) is built here.
type Deps struct {
	DB    *gorm.DB
	Cache *cache.PageCache
	Bus   *events.Bus
	Push  services.Pusher
}

// RegisterRoutes attaches all middleware and HTTP endpoints to the given Gin
// engine. It configures observability (tracing, metrics), idempotency and rate
// limiting, CORS and security headers, health and metrics endpoints, and then
// mounts the versioned public API under /api/v*.
//
// Middleware order matters:
//  1. OpenTelemetry: trace everything
//  2. RequestID: generate/propagate correlation id
//  3. RedactingLogger: structured logs with PII scrubbing
//  4. Recovery: capture panics after logger
//  5. Body size limiter
//  6. Gzip compression
//  7. Metrics
//  8. Idempotency validator (before rate limiter to allow bypass on replay)
//  9. Rate limiter (per user/IP, bypass on replay)
//  10. CORS and Security headers
func RegisterRoutes(r *gin.Engine, deps Deps, cfg config.Config) {
	r.HandleMethodNotAllowed = true
	db := deps.DB

	// 1) Trace all HTTP requests
	r.Use(otelgin.Middleware(cfg.OTEL.ServiceName))

	// 2) Correlate requests and logs
	r.Use(middleware.RequestID())

	// 3) Structured logging with redaction
	r.Use(middleware.RedactingLogger(middleware.RedactOptions{
		MaskHeaders: []string{
			"X-API-Key", // project-specific sensitive header example
		},
	}))

	// 4) Panic recovery to JSON 500 (with request id)
	r.Use(middleware.Recovery())

	// 5) Global body size limit (1 MiB)
	r.Use(limitBody(1 << 20))

	// 6) Compress responses (page payloads are JSON-heavy)
	r.Use(gzip.Gzip(gzip.DefaultCompression, gzip.WithExcludedPaths([]string{"/metrics"})))

	// 7) Prometheus metrics and /metrics endpoint
	r.Use(middleware.Metrics())
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// 8) Idempotency validation (before rate limiting)
	r.Use(middleware.IdempotencyValidator(
		middleware.IdempotencyOptions{
			MaxLen: 200,
		},
		func(ctx context.Context, userID, scope, key string, now time.Time) (bool, error) {
			rec, err := repo.GetIdempotency(ctx, db, userID, scope, key, now)
			if err != nil || rec == nil {
				return false, nil
			}
			return true, nil
		},
	))

	// 9) Token-bucket rate limiter per user/IP
	rl := middleware.NewRateLimiter(cfg.RateRPS, cfg.RateBurst, middleware.KeyByUserOrIP())
	r.Use(rl.Handler())

	// 10) CORS posture (safe defaults: allow all if none configured)
	if len(cfg.CORS.AllowedOrigins) == 0 {
		// Force ACAO: * even for requests without an Origin header (helps tests and simple health checks).
		r.Use(func(c *gin.Context) {
			c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
			c.Next()
		})
		r.Use(cors.New(cors.Config{
			AllowAllOrigins:  true,
			AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "X-User-ID", middleware.HeaderIdempotencyKey},
			ExposeHeaders:    []string{"X-Request-ID", "Content-Length"},
			AllowCredentials: false, // must remain false with AllowAllOrigins
			MaxAge:           12 * time.Hour,
		}))
	} else {
		// Echo ACAO with the request Origin when it is in the allowlist (in addition to gin-contrib/cors).
		allowed := make(map[string]struct{}, len(cfg.CORS.AllowedOrigins))
		for _, o := range cfg.CORS.AllowedOrigins {
			allowed[o] = struct{}{}
		}
		r.Use(func(c *gin.Context) {
			if origin := c.GetHeader("Origin"); origin != "" {
				if _, ok := allowed[origin]; ok {
					h := c.Writer.Header()
					h.Set("Access-Control-Allow-Origin", origin)
					h.Add("Vary", "Origin")
				}
			}
			c.Next()
		})
		r.Use(cors.New(cors.Config{
			AllowOrigins:     cfg.CORS.AllowedOrigins,
			AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "X-User-ID", middleware.HeaderIdempotencyKey},
			ExposeHeaders:    []string{"X-Request-ID", "Content-Length"},
			AllowCredentials: false,
			MaxAge:           12 * time.Hour,
		}))
	}

	// Security headers (HSTS only when enabled and request is HTTPS)
	r.Use(middleware.SecurityHeaders(middleware.SecurityOptions{
		EnableHSTS:   cfg.Security.EnableHSTS,
		HSTSMaxAge:   cfg.Security.HSTSMaxAge,
		NoStore:      false,
		EnablePolicy: true,
	}))

	// Fallbacks
	r.NoRoute(func(c *gin.Context) {
		handlers.Fail(c, http.StatusNotFound, handlers.ErrCodeNotFound, "route not found")
	})
	r.NoMethod(func(c *gin.Context) {
		handlers.Fail(c, http.StatusMethodNotAllowed, handlers.ErrCodeMethodNotAllowed, "method not allowed")
	})

	// Liveness/health
	r.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })

	// Swagger UI (off unless explicitly enabled)
	if cfg.SwaggerEnabled {
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	// Dependency injection: services ← repo/db/cache/bus/push
	onbSvc := services.NewOnboardingService(db, onboardingRepoShim{})
	notifSvc := NewNotificationService(db, deps.Push)
	pageSvc := services.NewPageService(db, deps.Cache, deps.Bus)
	devSvc := &services.DeviceService{DB: db}
	h := handlers.New(onbSvc, pageSvc, notifSvc, devSvc, cfg.IdempotencyTTL)

	// Public API
	apiBase := cfg.APIBasePath // e.g. "/api/v1"
	api := groupWithPrefix(r, apiBase)
	{
		// Onboarding
		api.GET("/onboarding/next", h.NextStep)
		api.POST("/onboarding/continue", h.ContinueStep)
		api.GET("/onboarding/status", h.OnboardingStatus)

		// Pages and activity
		api.GET("/pages/:page", h.GetPage)
		api.POST("/workouts/:id/complete", h.CompleteWorkout)
		api.POST("/meals/log", h.LogMeal)

		// Notifications
		api.GET("/notifications", h.ListNotifications)
		api.GET("/notifications/stats", h.NotificationStats)
		api.POST("/notifications/notify", h.Notify)
		api.POST("/notifications/run", h.RunTriggers)

		// Devices
		api.POST("/devices", h.RegisterDevice)
		api.DELETE("/devices/:token", h.UnregisterDevice)
	}
}

// limitBody returns a Gin middleware that caps the request body size for all
// endpoints to maxBytes using http.MaxBytesReader. Requests exceeding the cap
// will cause downstream body reads to error.
func limitBody(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}

// groupWithPrefix mounts a group at prefix, treating "/" (or empty) as root.
func groupWithPrefix(r *gin.Engine, prefix string) *gin.RouterGroup {
	if prefix == "" || prefix == "/" {
		return r.Group("")
	}
	return r.Group(prefix)
}
